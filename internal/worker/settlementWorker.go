package worker

import (
	"encoding/json"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/opuslink/opuslink/internal/models"
	"github.com/opuslink/opuslink/internal/repository"
	"github.com/opuslink/opuslink/internal/service"
	"github.com/opuslink/opuslink/internal/stream"
)

// SettlementWorker runs after a payout lands: notify both parties, email the
// worker a receipt, and write the audit trail.
func (wk *Worker) SettlementWorker() {
	consumer, err := wk.KafkaStream.CreateConsumer(&stream.StreamConsumer{
		GroupId: payoutSettledGroupID,
		Topic:   service.PayoutSettledTopic,
	})

	if err != nil {
		wk.Logger.Error("creating settlement consumer", "error", err)
		return
	}

	for {
		event := consumer.Poll(100)
		switch e := event.(type) {
		case *kafka.Message:
			var payoutEvent service.PayoutEvent
			if err := json.Unmarshal(e.Value, &payoutEvent); err != nil {
				wk.Logger.Error("bad settlement payload", "error", err)
				continue
			}

			wk.settle(payoutEvent.PaymentID)
		case kafka.Error:
			wk.Logger.Error("kafka error", "error", e)
		default:
		}
	}
}

func (wk *Worker) settle(paymentID string) {
	payment, found, err := wk.Payments.GetOne(paymentID)
	if err != nil || !found {
		wk.Logger.Error("settled payment lookup", "error", err, "payment_id", paymentID)
		return
	}

	wk.Payments.NotifySettled(payment)

	_, err = wk.DB.Activity().Insert(&models.ActivityLog{
		UserID:      payment.EmployerID,
		Entity:      repository.ActivityLogPaymentEntity,
		EntityId:    payment.ID,
		Description: "payout settled",
	})
	if err != nil {
		wk.Logger.Error("settlement activity log", "error", err, "payment_id", paymentID)
	}

	worker, found, err := wk.DB.User().GetOne(payment.WorkerID)
	if err != nil || !found {
		wk.Logger.Error("settled payment worker lookup", "error", err, "payment_id", paymentID)
		return
	}

	data := map[string]any{
		"FirstName": worker.FirstName,
		"Amount":    payment.Amount,
		"Reference": payment.Reference,
		"Method":    payment.Method,
	}
	if err := wk.Mailer.Send(worker.Email, data, "payment-receipt.tmpl"); err != nil {
		wk.Logger.Error("payment receipt email", "error", err, "payment_id", paymentID)
	}
}
