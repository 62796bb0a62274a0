// Package scheduler runs the background tasks of the outreach engine
package scheduler

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/prbn021/seo-app/models"
)

const (
	DefaultSuccessProbability = 0.85
	DefaultTransportError     = "SMTP connection failed: Timeout while connecting to server."
)

// Outcome is the result of one delivery attempt
type Outcome struct {
	Success      bool
	ErrorMessage string
}

// Transport performs one delivery attempt. It resolves synchronously and never hangs.
type Transport interface {
	Deliver(ctx context.Context, entry models.DeliveryLogEntry) Outcome
}

// TransportFunc adapts a function to the Transport interface
type TransportFunc func(ctx context.Context, entry models.DeliveryLogEntry) Outcome

// Deliver calls f
func (f TransportFunc) Deliver(ctx context.Context, entry models.DeliveryLogEntry) Outcome {
	return f(ctx, entry)
}

// AlwaysSucceed is a transport whose attempts all succeed
var AlwaysSucceed = TransportFunc(func(context.Context, models.DeliveryLogEntry) Outcome {
	return Outcome{Success: true}
})

// AlwaysFail returns a transport whose attempts all fail with msg
func AlwaysFail(msg string) Transport {
	return TransportFunc(func(context.Context, models.DeliveryLogEntry) Outcome {
		return Outcome{ErrorMessage: msg}
	})
}

// SimulatedTransport succeeds with a fixed probability and otherwise fails with a fixed message
type SimulatedTransport struct {
	mu                 sync.Mutex
	rnd                *rand.Rand
	successProbability float64
	errorMessage       string
}

// NewSimulatedTransport creates a simulated transport. A zero seed draws from the clock.
func NewSimulatedTransport(successProbability float64, errorMessage string, seed uint64) *SimulatedTransport {
	if errorMessage == "" {
		errorMessage = DefaultTransportError
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &SimulatedTransport{
		rnd:                rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		successProbability: successProbability,
		errorMessage:       errorMessage,
	}
}

// Deliver draws one outcome
func (t *SimulatedTransport) Deliver(_ context.Context, _ models.DeliveryLogEntry) Outcome {
	t.mu.Lock()
	draw := t.rnd.Float64()
	t.mu.Unlock()

	if draw < t.successProbability {
		return Outcome{Success: true}
	}
	return Outcome{ErrorMessage: t.errorMessage}
}
