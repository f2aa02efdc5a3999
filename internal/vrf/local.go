package vrf

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/tonkeeper/tongo/tlb"
	"go.uber.org/zap"

	"github.com/justbytes/solidity-casino/internal/logger"
)

type subscription struct {
	balance   tlb.Grams
	consumers []Consumer
}

// LocalCoordinator is an in-process coordinator. It manages funded
// subscriptions, charges a flat price per request and fulfills accepted
// requests asynchronously after the configured confirmation delay, drawing
// words from crypto/rand.
type LocalCoordinator struct {
	mu            sync.Mutex
	ctx           context.Context
	blockTime     time.Duration
	requestPrice  tlb.Grams
	subscriptions map[uint64]*subscription
	nextSubID     uint64
	nextRequestID uint64
}

func NewLocalCoordinator(ctx context.Context, blockTime time.Duration, requestPrice tlb.Grams) *LocalCoordinator {
	return &LocalCoordinator{
		ctx:           ctx,
		blockTime:     blockTime,
		requestPrice:  requestPrice,
		subscriptions: make(map[uint64]*subscription),
		nextSubID:     1,
		nextRequestID: 1,
	}
}

// CreateSubscription registers a new empty subscription and returns its id.
func (c *LocalCoordinator) CreateSubscription() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSubID
	c.nextSubID++
	c.subscriptions[id] = &subscription{}

	logger.Debug("coordinator: subscription created", zap.Uint64("subscription id", id))
	return id
}

// FundSubscription credits a subscription's balance.
func (c *LocalCoordinator) FundSubscription(subscriptionID uint64, amount tlb.Grams) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub, ok := c.subscriptions[subscriptionID]
	if !ok {
		return fmt.Errorf("fund subscription: unknown subscription %d", subscriptionID)
	}

	sub.balance += amount
	logger.Debug("coordinator: subscription funded",
		zap.Uint64("subscription id", subscriptionID),
		zap.Uint64("balance", uint64(sub.balance)))
	return nil
}

// AddConsumer registers a consumer to receive deliveries for a subscription.
func (c *LocalCoordinator) AddConsumer(subscriptionID uint64, consumer Consumer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub, ok := c.subscriptions[subscriptionID]
	if !ok {
		return fmt.Errorf("add consumer: unknown subscription %d", subscriptionID)
	}

	sub.consumers = append(sub.consumers, consumer)
	return nil
}

// RequestRandomWords validates the subscription, charges it and schedules an
// asynchronous delivery. The returned id is unique and strictly positive.
func (c *LocalCoordinator) RequestRandomWords(config RequestConfig) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub, ok := c.subscriptions[config.SubscriptionID]
	if !ok {
		return 0, fmt.Errorf("%w: unknown subscription %d", ErrRequestRejected, config.SubscriptionID)
	}
	if sub.balance < c.requestPrice {
		return 0, fmt.Errorf("%w: subscription %d balance %d below request price %d",
			ErrRequestRejected, config.SubscriptionID, sub.balance, c.requestPrice)
	}
	if len(sub.consumers) == 0 {
		return 0, fmt.Errorf("%w: subscription %d has no registered consumers",
			ErrRequestRejected, config.SubscriptionID)
	}
	if config.NumWords == 0 {
		return 0, fmt.Errorf("%w: zero words requested", ErrRequestRejected)
	}

	sub.balance -= c.requestPrice
	requestID := c.nextRequestID
	c.nextRequestID++

	consumers := make([]Consumer, len(sub.consumers))
	copy(consumers, sub.consumers)

	delay := time.Duration(config.RequestConfirmations) * c.blockTime
	go c.fulfill(requestID, config.NumWords, delay, consumers)

	logger.Debug("coordinator: request accepted",
		zap.Uint64("request id", requestID),
		zap.String("key hash", config.KeyHash),
		zap.Duration("confirmation delay", delay))
	return requestID, nil
}

func (c *LocalCoordinator) fulfill(requestID uint64, numWords uint32, delay time.Duration, consumers []Consumer) {
	select {
	case <-c.ctx.Done():
		logger.Warn("coordinator: shutdown before delivery", zap.Uint64("request id", requestID))
		return
	case <-time.After(delay):
	}

	words, err := randomWords(numWords)
	if err != nil {
		logger.Error("coordinator: failed to draw random words",
			zap.Uint64("request id", requestID), zap.Error(err))
		return
	}

	for _, consumer := range consumers {
		if err := consumer.FulfillRandomWords(requestID, words); err != nil {
			logger.Warn("coordinator: consumer refused delivery",
				zap.Uint64("request id", requestID), zap.Error(err))
		}
	}
}

func randomWords(n uint32) ([]uint64, error) {
	buf := make([]byte, 8*n)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}

	words := make([]uint64, n)
	for i := range words {
		words[i] = binary.BigEndian.Uint64(buf[8*i:])
	}
	return words, nil
}
