package payout

import (
	"errors"
	"sync"

	"github.com/tonkeeper/tongo/tlb"
	"github.com/tonkeeper/tongo/ton"
	"go.uber.org/zap"

	"github.com/justbytes/solidity-casino/internal/logger"
)

var ErrInsufficientFunds = errors.New("insufficient account balance")

// Bank is the in-memory settlement ledger. Entry payments are debited from it
// and prizes are credited to it. While halted, outgoing transfers fail and the
// state machine surfaces that to its caller.
type Bank struct {
	mu       sync.Mutex
	accounts map[ton.AccountID]tlb.Grams
	halted   bool
}

func NewBank() *Bank {
	return &Bank{
		accounts: make(map[ton.AccountID]tlb.Grams),
	}
}

func (b *Bank) Deposit(account ton.AccountID, amount tlb.Grams) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.accounts[account] += amount
}

func (b *Bank) Debit(account ton.AccountID, amount tlb.Grams) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.accounts[account] < amount {
		return ErrInsufficientFunds
	}

	b.accounts[account] -= amount
	return nil
}

func (b *Bank) BalanceOf(account ton.AccountID) tlb.Grams {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.accounts[account]
}

// Halt suspends outgoing transfers for maintenance. Deposits and debits are
// unaffected.
func (b *Bank) Halt() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.halted = true
}

func (b *Bank) Resume() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.halted = false
}

func (b *Bank) Transfer(recipient ton.AccountID, amount tlb.Grams) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.halted {
		logger.Warn("bank: transfer refused, ledger halted",
			zap.String("recipient", recipient.ToRaw()),
			zap.Uint64("amount", uint64(amount)))
		return false
	}

	b.accounts[recipient] += amount
	logger.Debug("bank: transfer settled",
		zap.String("recipient", recipient.ToRaw()),
		zap.Uint64("amount", uint64(amount)))
	return true
}
