package mocks

import (
	"sync"
	"time"

	"github.com/opuslink/opuslink/internal/models"
)

type InMemoryNotificationRepo struct {
	mu            sync.Mutex
	notifications []models.Notification
}

func NewInMemoryNotificationRepo() *InMemoryNotificationRepo {
	return &InMemoryNotificationRepo{}
}

func (r *InMemoryNotificationRepo) Insert(notification *models.Notification) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := *notification
	created.ID = nextID("notification")
	created.CreatedAt = time.Now()
	r.notifications = append(r.notifications, created)

	copied := created
	return &copied, nil
}

func (r *InMemoryNotificationRepo) ListByUser(userID string, unreadOnly bool) ([]models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []models.Notification
	for i := len(r.notifications) - 1; i >= 0; i-- {
		n := r.notifications[i]
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		matched = append(matched, n)
	}
	return matched, nil
}

func (r *InMemoryNotificationRepo) UnreadCount(userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, n := range r.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *InMemoryNotificationRepo) MarkRead(id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.notifications {
		if r.notifications[i].ID == id && r.notifications[i].UserID == userID {
			r.notifications[i].Read = true
		}
	}
	return nil
}

func (r *InMemoryNotificationRepo) MarkAllRead(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.notifications {
		if r.notifications[i].UserID == userID {
			r.notifications[i].Read = true
		}
	}
	return nil
}
