package worker

import (
	"encoding/json"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/opuslink/opuslink/internal/service"
	"github.com/opuslink/opuslink/internal/stream"
)

// PayoutWorker consumes payout requests and charges the simulated gateway.
// The gateway call blocks for the artificial processing delay, so this stays
// off the HTTP request path.
func (wk *Worker) PayoutWorker() {
	consumer, err := wk.KafkaStream.CreateConsumer(&stream.StreamConsumer{
		GroupId: payoutRequestedGroupID,
		Topic:   service.PayoutRequestedTopic,
	})

	if err != nil {
		wk.Logger.Error("creating payout consumer", "error", err)
		return
	}

	for {
		event := consumer.Poll(100)
		switch e := event.(type) {
		case *kafka.Message:
			var payoutEvent service.PayoutEvent
			if err := json.Unmarshal(e.Value, &payoutEvent); err != nil {
				wk.Logger.Error("bad payout request payload", "error", err)
				continue
			}

			wk.Logger.Info("processing payout", "payment_id", payoutEvent.PaymentID)

			if err := wk.Payments.Process(wk.Ctx, payoutEvent.PaymentID); err != nil {
				wk.Logger.Error("processing payout", "error", err, "payment_id", payoutEvent.PaymentID)
			}
		case kafka.Error:
			wk.Logger.Error("kafka error", "error", e)
		default:
		}
	}
}
