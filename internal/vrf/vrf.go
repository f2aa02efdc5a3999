package vrf

import "errors"

// RequestConfig describes a single randomness request. The routing values are
// fixed per deployment and come from the service configuration.
type RequestConfig struct {
	KeyHash              string
	SubscriptionID       uint64
	RequestConfirmations uint16
	CallbackGasLimit     uint32
	NumWords             uint32
	NativePayment        bool
}

// Coordinator submits randomness requests. Submission is fire-and-forget:
// the random words arrive later through the subscription's consumers.
type Coordinator interface {
	RequestRandomWords(config RequestConfig) (uint64, error)
}

// Consumer receives exactly one delivery per accepted request.
type Consumer interface {
	FulfillRandomWords(requestID uint64, words []uint64) error
}

// ErrRequestRejected wraps every condition under which a request is refused
// at submission time. Callers match it with errors.Is.
var ErrRequestRejected = errors.New("randomness request rejected")
