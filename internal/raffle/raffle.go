package raffle

import (
	"fmt"
	"sync"
	"time"

	"github.com/tonkeeper/tongo/tlb"
	"github.com/tonkeeper/tongo/ton"
	"go.uber.org/zap"

	"github.com/justbytes/solidity-casino/internal/logger"
	"github.com/justbytes/solidity-casino/internal/payout"
	"github.com/justbytes/solidity-casino/internal/vrf"
)

type State int

const (
	StateOpen State = iota
	StateCalculating
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateCalculating:
		return "calculating"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config is fixed at construction and never mutated afterwards.
type Config struct {
	EntryFee tlb.Grams
	Interval time.Duration
	// Expiry is how long a round may sit in calculating before the operator
	// reopen path accepts. Zero disables the expiry check.
	Expiry  time.Duration
	Request vrf.RequestConfig
}

// Raffle owns all round state. Every round-mutating operation serializes
// behind one mutex; nothing outside this type touches the round directly.
type Raffle struct {
	cfg         Config
	coordinator vrf.Coordinator
	executor    payout.Executor
	sink        Sink
	now         func() time.Time

	mu               sync.Mutex
	state            State
	participants     []ton.AccountID
	pool             tlb.Grams
	lastRoundAt      time.Time
	calculatingSince time.Time
	pendingRequestID uint64
	recentWinner     ton.AccountID
	hasWinner        bool
	round            uint64
}

// Snapshot is a read-only view of the round, taken atomically.
type Snapshot struct {
	State            State
	Round            uint64
	Pool             tlb.Grams
	NumParticipants  int
	LastRoundAt      time.Time
	PendingRequestID uint64
	RecentWinner     ton.AccountID
	HasWinner        bool
}

func New(cfg Config, coordinator vrf.Coordinator, executor payout.Executor, sink Sink) *Raffle {
	if sink == nil {
		sink = MultiSink(nil)
	}

	return &Raffle{
		cfg:         cfg,
		coordinator: coordinator,
		executor:    executor,
		sink:        sink,
		now:         time.Now,
		state:       StateOpen,
		lastRoundAt: time.Now(),
		round:       1,
	}
}

// Enter records one ticket for the participant. Overpayment is accepted and
// pooled; re-entering buys additional tickets and raises the participant's
// odds proportionally.
func (r *Raffle) Enter(participant ton.AccountID, paid tlb.Grams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if paid < r.cfg.EntryFee {
		return fmt.Errorf("%w: paid %d, fee %d", ErrInsufficientPayment, paid, r.cfg.EntryFee)
	}
	if r.state != StateOpen {
		return ErrRoundNotOpen
	}

	r.participants = append(r.participants, participant)
	r.pool += paid

	r.sink.Publish(enteredEvent(participant.ToRaw(), paid, r.now()))
	logger.Debug("raffle: entry recorded",
		zap.String("participant", participant.ToRaw()),
		zap.Uint64("paid", uint64(paid)),
		zap.Int("participants", len(r.participants)))
	return nil
}

// UpkeepNeeded is the upkeep predicate. It is pure: all four conjuncts must
// hold for the round to advance.
func UpkeepNeeded(state State, elapsed, interval time.Duration, balance tlb.Grams, numParticipants int) bool {
	return state == StateOpen &&
		elapsed >= interval &&
		balance > 0 &&
		numParticipants > 0
}

// CheckUpkeep reports whether the round is due. It is free of side effects
// and may be polled by anyone; the payload is reserved and always empty.
func (r *Raffle) CheckUpkeep() (bool, []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	needed := UpkeepNeeded(r.state, r.now().Sub(r.lastRoundAt), r.cfg.Interval, r.pool, len(r.participants))
	return needed, nil
}

// PerformUpkeep advances the round into calculating. The predicate is
// re-evaluated against live state here: a caller's earlier CheckUpkeep result
// may be stale by the time the trigger lands.
//
// The oracle request is submitted before any state is committed, so a
// rejected request leaves the round untouched. The mutex is held across the
// submission; a delivery cannot interleave with the flip.
func (r *Raffle) PerformUpkeep() (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !UpkeepNeeded(r.state, r.now().Sub(r.lastRoundAt), r.cfg.Interval, r.pool, len(r.participants)) {
		return 0, &UpkeepNotNeededError{
			State:           r.state,
			Balance:         r.pool,
			NumParticipants: len(r.participants),
		}
	}

	requestID, err := r.coordinator.RequestRandomWords(r.cfg.Request)
	if err != nil {
		logger.Warn("raffle: randomness request rejected", zap.Error(err))
		return 0, err
	}

	r.state = StateCalculating
	r.pendingRequestID = requestID
	r.calculatingSince = r.now()

	r.sink.Publish(requestSubmittedEvent(requestID, r.now()))
	logger.Info("raffle: randomness requested",
		zap.Uint64("round", r.round),
		zap.Uint64("request id", requestID),
		zap.Int("participants", len(r.participants)),
		zap.Uint64("pool", uint64(r.pool)))
	return requestID, nil
}

// FulfillRandomWords settles the round with a delivery from the coordinator.
// Only the delivery matching the pending request is accepted; a request
// counts as completed (and duplicates are rejected) once settlement
// succeeded, so a delivery that failed on payout may be retried.
func (r *Raffle) FulfillRandomWords(requestID uint64, words []uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateCalculating || requestID != r.pendingRequestID {
		return fmt.Errorf("%w: request %d", ErrUnknownRequest, requestID)
	}
	if len(words) == 0 {
		return ErrEmptyDelivery
	}

	winnerIndex := words[0] % uint64(len(r.participants))
	winner := r.participants[winnerIndex]
	prize := r.pool
	numParticipants := len(r.participants)

	// Transfer first, commit after: a failed payout must not leave the prize
	// stranded behind an already-reset round.
	if !r.executor.Transfer(winner, prize) {
		logger.Error("raffle: prize transfer failed",
			zap.Uint64("round", r.round),
			zap.String("winner", winner.ToRaw()),
			zap.Uint64("prize", uint64(prize)))
		return fmt.Errorf("%w: winner %s, prize %d", ErrPayoutTransferFailed, winner.ToRaw(), prize)
	}

	settledRound := r.round
	r.recentWinner = winner
	r.hasWinner = true
	r.participants = nil
	r.pool = 0
	r.pendingRequestID = 0
	r.state = StateOpen
	r.lastRoundAt = r.now()
	r.round++

	r.sink.Publish(winnerSelectedEvent(settledRound, winner.ToRaw(), prize, numParticipants, requestID, r.lastRoundAt))
	logger.Info("raffle: round settled",
		zap.Uint64("round", settledRound),
		zap.String("winner", winner.ToRaw()),
		zap.Uint64("prize", uint64(prize)),
		zap.Int("participants", numParticipants))
	return nil
}

// Reopen is the operator path out of a stuck calculating round. It discards
// the pending request and returns to open; entries and pool are kept, so the
// next upkeep issues a fresh request over the same tickets.
func (r *Raffle) Reopen() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateCalculating {
		return ErrRoundNotCalculating
	}
	if r.cfg.Expiry > 0 && r.now().Sub(r.calculatingSince) < r.cfg.Expiry {
		return fmt.Errorf("%w: calculating since %s", ErrRequestNotExpired, r.calculatingSince.Format(time.RFC3339))
	}

	abandoned := r.pendingRequestID
	r.pendingRequestID = 0
	r.state = StateOpen

	logger.Warn("raffle: round reopened by operator",
		zap.Uint64("round", r.round),
		zap.Uint64("abandoned request id", abandoned),
		zap.Int("participants", len(r.participants)))
	return nil
}

func (r *Raffle) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Snapshot{
		State:            r.state,
		Round:            r.round,
		Pool:             r.pool,
		NumParticipants:  len(r.participants),
		LastRoundAt:      r.lastRoundAt,
		PendingRequestID: r.pendingRequestID,
		RecentWinner:     r.recentWinner,
		HasWinner:        r.hasWinner,
	}
}

// Participants returns a copy of the current ticket order.
func (r *Raffle) Participants() []ton.AccountID {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ton.AccountID, len(r.participants))
	copy(out, r.participants)
	return out
}

// RecentWinner returns the last settled winner, if any round has settled yet.
func (r *Raffle) RecentWinner() (ton.AccountID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.recentWinner, r.hasWinner
}
