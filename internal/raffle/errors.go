package raffle

import (
	"errors"
	"fmt"

	"github.com/tonkeeper/tongo/tlb"
)

var (
	ErrInsufficientPayment  = errors.New("payment below entry fee")
	ErrRoundNotOpen         = errors.New("round is not open for entries")
	ErrUnknownRequest       = errors.New("unknown or already completed randomness request")
	ErrEmptyDelivery        = errors.New("randomness delivery carries no words")
	ErrPayoutTransferFailed = errors.New("prize transfer failed")
	ErrRoundNotCalculating  = errors.New("round has no pending randomness request")
	ErrRequestNotExpired    = errors.New("pending randomness request has not expired")
)

// UpkeepNotNeededError reports the state that made the predicate false, so
// external triggers can see why their attempt was rejected.
type UpkeepNotNeededError struct {
	State           State
	Balance         tlb.Grams
	NumParticipants int
}

func (e *UpkeepNotNeededError) Error() string {
	return fmt.Sprintf("upkeep not needed: state=%s balance=%d participants=%d",
		e.State, e.Balance, e.NumParticipants)
}
