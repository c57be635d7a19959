package service

import (
	"encoding/json"
	"log/slog"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/opuslink/opuslink/internal/models"
	"github.com/opuslink/opuslink/internal/repository"
)

// Notifier is the fire-and-forget notification sink the services write to.
// Delivery is best effort; a failed insert is logged, never propagated, so a
// notification hiccup can't fail an escrow release.
type Notifier interface {
	Notify(userID, kind, message string, data any)
}

type NotificationService struct {
	db     repository.Database
	logger *slog.Logger
	// en-IN groups digits the Indian way (₹1,00,000)
	printer *message.Printer
}

func NewNotificationService(db repository.Database, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		db:      db,
		logger:  logger,
		printer: message.NewPrinter(language.MustParse("en-IN")),
	}
}

func (n *NotificationService) Notify(userID, kind, msg string, data any) {
	var payload []byte
	if data != nil {
		var err error
		payload, err = json.Marshal(data)
		if err != nil {
			n.logger.Error("notification payload", "error", err, "kind", kind)
			payload = nil
		}
	}

	_, err := n.db.Notification().Insert(&models.Notification{
		UserID:  userID,
		Kind:    kind,
		Message: msg,
		Data:    payload,
	})
	if err != nil {
		n.logger.Error("notification insert", "error", err, "user_id", userID, "kind", kind)
	}
}

// FormatAmount renders a rupee amount for notification and email copy.
func (n *NotificationService) FormatAmount(amount float64) string {
	return n.printer.Sprintf("₹%.0f", amount)
}
