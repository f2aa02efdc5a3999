package payout

import (
	"github.com/tonkeeper/tongo/tlb"
	"github.com/tonkeeper/tongo/ton"
)

// Executor performs the prize transfer. It reports success or failure and
// never retries; retry policy belongs to the caller or to the operator.
type Executor interface {
	Transfer(recipient ton.AccountID, amount tlb.Grams) bool
}
