package usecase

import (
	"sync"
	"time"

	"FxCast/internal/domain/models"

	"github.com/google/uuid"
)

// Notifier keeps transient user notifications. Entries expire after ttl.
type Notifier struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	items  []models.Notification
	onPush func(models.Notification)
}

func NewNotifier(ttl time.Duration) *Notifier {
	return &Notifier{ttl: ttl, now: time.Now}
}

// OnPush registers a hook called for every new notification.
func (n *Notifier) OnPush(fn func(models.Notification)) {
	n.mu.Lock()
	n.onPush = fn
	n.mu.Unlock()
}

func (n *Notifier) Success(msg string) models.Notification {
	return n.Push(models.LevelSuccess, msg)
}

func (n *Notifier) Error(msg string) models.Notification {
	return n.Push(models.LevelError, msg)
}

func (n *Notifier) Push(level models.NotificationLevel, msg string) models.Notification {
	now := n.now()
	item := models.Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   msg,
		CreatedAt: now,
		ExpiresAt: now.Add(n.ttl),
	}
	n.mu.Lock()
	n.prune(now)
	n.items = append(n.items, item)
	hook := n.onPush
	n.mu.Unlock()

	if hook != nil {
		hook(item)
	}
	return item
}

// Active returns the notifications that have not expired, oldest first.
func (n *Notifier) Active() []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.prune(n.now())
	return append([]models.Notification{}, n.items...)
}

// Dismiss removes a notification before it expires.
func (n *Notifier) Dismiss(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, it := range n.items {
		if it.ID == id {
			n.items = append(n.items[:i], n.items[i+1:]...)
			return true
		}
	}
	return false
}

func (n *Notifier) prune(now time.Time) {
	kept := n.items[:0]
	for _, it := range n.items {
		if now.Before(it.ExpiresAt) {
			kept = append(kept, it)
		}
	}
	n.items = kept
}
