package payments

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rahulmehra/mandiflow-backend/pkg/config"
)

// Gateway is the charge authority. The production build uses the simulated
// gateway; tests inject deterministic implementations.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// ChargeRequest carries what the gateway needs to decide a charge.
type ChargeRequest struct {
	TransactionID string
	Amount        string
	MethodType    string
}

// ChargeResult is the gateway's verdict plus the raw response payload that
// gets frozen onto the transaction row.
type ChargeResult struct {
	Approved bool
	Response map[string]any
}

type simulatedGateway struct {
	latency     time.Duration
	successRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedGateway builds a gateway that approves charges at the
// configured success rate after the configured processing delay.
func NewSimulatedGateway(cfg config.PaymentsConfig) Gateway {
	return &simulatedGateway{
		latency:     cfg.GatewayLatency,
		successRate: cfg.SuccessRate,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (g *simulatedGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if g.latency > 0 {
		timer := time.NewTimer(g.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	g.mu.Lock()
	draw := g.rng.Float64()
	g.mu.Unlock()

	if draw < g.successRate {
		return &ChargeResult{
			Approved: true,
			Response: map[string]any{
				"status":  "success",
				"message": "Payment processed successfully",
			},
		}, nil
	}
	return &ChargeResult{
		Approved: false,
		Response: map[string]any{
			"status":  "failed",
			"message": "Insufficient funds or card declined",
		},
	}, nil
}
