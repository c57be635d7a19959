// Package gateway is a stand-in for a real payment processor. Outcomes are
// drawn at random after an artificial processing delay so the UI's failure
// and retry paths get exercised; nothing here talks to a real bank.
package gateway

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opuslink/opuslink/internal/config"
)

// canned failure modes, weighted equally within the failure share
var (
	ErrInsufficientFunds = errors.New("insufficient funds in source account")
	ErrNetwork           = errors.New("network error, please try again")
	ErrBankUnavailable   = errors.New("bank servers are currently unavailable")
)

var failureModes = []error{ErrInsufficientFunds, ErrNetwork, ErrBankUnavailable}

// Result is a successful charge: the processor's reference and the fee it
// withheld.
type Result struct {
	Reference string
	Fee       float64
}

type Gateway struct {
	cfg config.GatewayConfig

	mu  sync.Mutex
	rng *rand.Rand
}

func New(cfg config.GatewayConfig) *Gateway {
	return NewWithSource(cfg, rand.NewSource(time.Now().UnixNano()))
}

// NewWithSource exists so tests can pin the outcome sequence.
func NewWithSource(cfg config.GatewayConfig, src rand.Source) *Gateway {
	return &Gateway{
		cfg: cfg,
		rng: rand.New(src),
	}
}

// Process simulates charging amount via method. It blocks for the configured
// processing delay (or until ctx is cancelled), then draws an outcome. Once
// the delay has elapsed the outcome is final; there is no cancelling a charge
// mid-flight.
func (g *Gateway) Process(ctx context.Context, amount float64, method string) (*Result, error) {
	if _, ok := g.cfg.Fees[method]; !ok {
		return nil, errors.New("unknown payment method: " + method)
	}

	if g.cfg.ProcessingDelay > 0 {
		select {
		case <-time.After(g.cfg.ProcessingDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	g.mu.Lock()
	draw := g.rng.Float64()
	pick := g.rng.Intn(len(failureModes))
	g.mu.Unlock()

	if draw >= g.cfg.SuccessRate {
		return nil, failureModes[pick]
	}

	return &Result{
		Reference: uuid.NewString(),
		Fee:       g.Fee(amount, method),
	}, nil
}

// Fee computes the processing fee for method: a percentage of amount clamped
// to the method's [min, max] band, rounded to the nearest whole unit.
func (g *Gateway) Fee(amount float64, method string) float64 {
	band, ok := g.cfg.Fees[method]
	if !ok {
		return 0
	}

	fee := amount * band.Percent
	fee = math.Max(fee, band.Min)
	fee = math.Min(fee, band.Max)
	return math.Round(fee)
}
