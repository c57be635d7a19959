package worker

import (
	"encoding/json"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/opuslink/opuslink/internal/service"
	"github.com/opuslink/opuslink/internal/stream"
)

// FailureWorker reacts to gateway rejections. The work log stays approved and
// unpaid; the employer is told why so they can retry.
func (wk *Worker) FailureWorker() {
	consumer, err := wk.KafkaStream.CreateConsumer(&stream.StreamConsumer{
		GroupId: payoutFailedGroupID,
		Topic:   service.PayoutFailedTopic,
	})

	if err != nil {
		wk.Logger.Error("creating failure consumer", "error", err)
		return
	}

	for {
		event := consumer.Poll(100)
		switch e := event.(type) {
		case *kafka.Message:
			var payoutEvent service.PayoutEvent
			if err := json.Unmarshal(e.Value, &payoutEvent); err != nil {
				wk.Logger.Error("bad failure payload", "error", err)
				continue
			}

			payment, found, err := wk.Payments.GetOne(payoutEvent.PaymentID)
			if err != nil || !found {
				wk.Logger.Error("failed payment lookup", "error", err, "payment_id", payoutEvent.PaymentID)
				continue
			}

			wk.Payments.NotifyFailed(payment, payoutEvent.Reason)
		case kafka.Error:
			wk.Logger.Error("kafka error", "error", e)
		default:
		}
	}
}
