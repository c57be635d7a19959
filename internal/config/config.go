package config

import "time"

type Config struct {
	BaseURL  string
	HttpPort int
	Db       struct {
		Dsn         string
		Automigrate bool
	}
	Jwt struct {
		SecretKey string
	}
	Notifications struct {
		Email string
	}
	Smtp struct {
		Host     string
		Port     int
		Username string
		Password string
		From     string
	}
	FileUploader struct {
		CloudName string
		ApiKey    string
		ApiSecret string
	}
	KafkaServers string
	RedisServer  string

	Gateway GatewayConfig
	Payout  PayoutPolicy
	Ledger  LedgerConfig
}

// GatewayConfig drives the simulated payment processor. The success rate and
// per-method fee bands are configuration so that the demo behaviour can be
// tuned without code changes.
type GatewayConfig struct {
	ProcessingDelay time.Duration
	SuccessRate     float64
	Fees            map[string]FeeBand
}

// FeeBand is a percentage fee clamped to an absolute [Min, Max] range.
type FeeBand struct {
	Percent float64
	Min     float64
	Max     float64
}

// PayoutPolicy carries the business constants used to turn logged work into
// owed amounts. The policy is versioned and stamped onto every payment so
// historical payouts can be audited against the policy in effect at the time.
type PayoutPolicy struct {
	Version              int
	WorkingHoursPerMonth float64
	WorkingDaysPerMonth  float64
	FixedProrationDays   float64
}

type LedgerConfig struct {
	RetentionDays int
	SweepInterval time.Duration
}

const (
	PaymentMethodEscrow = "escrow"
	PaymentMethodUPI    = "upi"
	PaymentMethodBank   = "bank"
)

// DefaultFeeBands mirrors the published fee schedule: escrow 2% (₹10–₹50),
// UPI 1% (₹5–₹20), bank transfer 1.5% (₹8–₹30).
func DefaultFeeBands() map[string]FeeBand {
	return map[string]FeeBand{
		PaymentMethodEscrow: {Percent: 0.02, Min: 10, Max: 50},
		PaymentMethodUPI:    {Percent: 0.01, Min: 5, Max: 20},
		PaymentMethodBank:   {Percent: 0.015, Min: 8, Max: 30},
	}
}

func DefaultPayoutPolicy() PayoutPolicy {
	return PayoutPolicy{
		Version:              1,
		WorkingHoursPerMonth: 160,
		WorkingDaysPerMonth:  26,
		FixedProrationDays:   30,
	}
}
