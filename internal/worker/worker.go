package worker

import (
	"context"
	"log/slog"

	"github.com/opuslink/opuslink/internal/config"
	"github.com/opuslink/opuslink/internal/repository"
	"github.com/opuslink/opuslink/internal/service"
	"github.com/opuslink/opuslink/internal/smtp"
	"github.com/opuslink/opuslink/internal/stream"
)

// Consumer groups, one per pipeline stage so each stage scales independently.
const (
	// payoutRequestedGroupID is for workers that charge the simulated gateway
	// whenever an employer triggers a payout for an approved work log.
	payoutRequestedGroupID = "payout-requested-group"

	// payoutSettledGroupID is for workers that take action after a payout has
	// landed in the worker's wallet: notifications, receipt email, audit log.
	payoutSettledGroupID = "payout-settled-group"

	// payoutFailedGroupID is for workers that react to a gateway rejection.
	payoutFailedGroupID = "payout-failed-group"
)

// Workers typically need the event stream, the database, and the payment
// service; anything stage-specific is on the struct too.
type Worker struct {
	KafkaStream *stream.KafkaStream
	DB          repository.Database
	Payments    *service.PaymentService
	Mailer      smtp.MailerInterface
	Config      *config.Config
	Logger      *slog.Logger
	Ctx         context.Context
}

func New(wk *Worker) *Worker {
	if wk.Ctx == nil {
		wk.Ctx = context.Background()
	}
	return &Worker{
		KafkaStream: wk.KafkaStream,
		DB:          wk.DB,
		Payments:    wk.Payments,
		Mailer:      wk.Mailer,
		Config:      wk.Config,
		Logger:      wk.Logger,
		Ctx:         wk.Ctx,
	}
}
