package storage

import (
	"go.uber.org/zap"

	"github.com/justbytes/solidity-casino/internal/logger"
	"github.com/justbytes/solidity-casino/internal/raffle"
)

// Recorder subscribes to state machine events and persists the history the
// display endpoints read. Persistence failures are logged and never surface
// back into the round.
type Recorder struct {
	storage Storage
}

func NewRecorder(storage Storage) *Recorder {
	return &Recorder{storage: storage}
}

func (r *Recorder) Publish(event raffle.Event) {
	switch event.Type {
	case raffle.EventEntered:
		err := r.storage.SaveEntry(&EntryRecord{
			Address:         event.Participant,
			Amount:          event.Amount,
			EnteredUnixTime: event.At.Unix(),
		})
		if err != nil {
			logger.Error("recorder: failed to persist entry",
				zap.String("address", event.Participant), zap.Error(err))
		}

	case raffle.EventWinnerSelected:
		err := r.storage.SaveRound(&RoundRecord{
			Round:           event.Round,
			RequestID:       event.RequestID,
			Winner:          event.Winner,
			Prize:           event.Prize,
			NumParticipants: event.NumParticipants,
			SettledUnixTime: event.At.Unix(),
		})
		if err != nil {
			logger.Error("recorder: failed to persist round",
				zap.Uint64("round", event.Round), zap.Error(err))
		}
	}
}
