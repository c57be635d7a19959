package gateway

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opuslink/opuslink/internal/config"
)

func testConfig(successRate float64) config.GatewayConfig {
	return config.GatewayConfig{
		SuccessRate: successRate,
		Fees:        config.DefaultFeeBands(),
	}
}

func TestFee(t *testing.T) {
	g := NewWithSource(testConfig(1), rand.NewSource(1))

	cases := []struct {
		name   string
		amount float64
		method string
		want   float64
	}{
		{"escrow within band", 1500, config.PaymentMethodEscrow, 30},
		{"escrow clamped to max", 10000, config.PaymentMethodEscrow, 50},
		{"escrow clamped to min", 100, config.PaymentMethodEscrow, 10},
		{"upi within band", 1000, config.PaymentMethodUPI, 10},
		{"upi rounds to whole units", 1234, config.PaymentMethodUPI, 12},
		{"bank clamped to max", 5000, config.PaymentMethodBank, 30},
		{"unknown method charges nothing", 5000, "cheque", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, g.Fee(tc.amount, tc.method))
		})
	}
}

func TestProcessAlwaysSucceedsAtFullRate(t *testing.T) {
	g := NewWithSource(testConfig(1), rand.NewSource(1))

	for i := 0; i < 20; i++ {
		result, err := g.Process(context.Background(), 4000, config.PaymentMethodEscrow)
		require.NoError(t, err)
		require.NotEmpty(t, result.Reference)
		require.Equal(t, 50.0, result.Fee)
	}
}

func TestProcessAlwaysFailsAtZeroRate(t *testing.T) {
	g := NewWithSource(testConfig(0), rand.NewSource(1))

	for i := 0; i < 20; i++ {
		_, err := g.Process(context.Background(), 4000, config.PaymentMethodEscrow)
		require.Error(t, err)
		require.Contains(t, failureModes, err)
	}
}

func TestProcessRejectsUnknownMethod(t *testing.T) {
	g := NewWithSource(testConfig(1), rand.NewSource(1))

	_, err := g.Process(context.Background(), 4000, "cheque")
	require.Error(t, err)
}

func TestProcessHonoursContextDuringDelay(t *testing.T) {
	cfg := testConfig(1)
	cfg.ProcessingDelay = time.Hour
	g := NewWithSource(cfg, rand.NewSource(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Process(ctx, 4000, config.PaymentMethodEscrow)
	require.ErrorIs(t, err, context.Canceled)
}
