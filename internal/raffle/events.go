package raffle

import (
	"time"

	"github.com/tonkeeper/tongo/tlb"
)

type EventType string

const (
	EventEntered          EventType = "entered"
	EventRequestSubmitted EventType = "request_submitted"
	EventWinnerSelected   EventType = "winner_selected"
)

// Event is a notification for observers and indexers. Addresses are in raw
// form. Fields not meaningful for the event type are zero.
type Event struct {
	Type            EventType `json:"type"`
	Round           uint64    `json:"round,omitempty"`
	Participant     string    `json:"participant,omitempty"`
	Amount          uint64    `json:"amount,omitempty"`
	RequestID       uint64    `json:"request_id,omitempty"`
	Winner          string    `json:"winner,omitempty"`
	Prize           uint64    `json:"prize,omitempty"`
	NumParticipants int       `json:"num_participants,omitempty"`
	At              time.Time `json:"at"`
}

// Sink receives events synchronously from inside the state machine's
// critical section; implementations must not call back into the machine.
type Sink interface {
	Publish(event Event)
}

// MultiSink fans an event out to every sink in order.
type MultiSink []Sink

func (m MultiSink) Publish(event Event) {
	for _, sink := range m {
		sink.Publish(event)
	}
}

func enteredEvent(participant string, amount tlb.Grams, at time.Time) Event {
	return Event{Type: EventEntered, Participant: participant, Amount: uint64(amount), At: at}
}

func requestSubmittedEvent(requestID uint64, at time.Time) Event {
	return Event{Type: EventRequestSubmitted, RequestID: requestID, At: at}
}

func winnerSelectedEvent(round uint64, winner string, prize tlb.Grams, numParticipants int, requestID uint64, at time.Time) Event {
	return Event{
		Type:            EventWinnerSelected,
		Round:           round,
		Winner:          winner,
		Prize:           uint64(prize),
		NumParticipants: numParticipants,
		RequestID:       requestID,
		At:              at,
	}
}
