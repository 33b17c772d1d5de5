package notifications

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tvx/internal/models"
	"github.com/desertthunder/tvx/internal/shared"
)

// API is the backend surface the store needs. [services.NotificationService] implements it.
type API interface {
	List(ctx context.Context) (*models.NotificationList, error)
	MarkRead(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

// MutationState is the lifecycle of the last optimistic mutation applied to a notification.
type MutationState int

const (
	Idle      MutationState = iota // no mutation since the list was loaded
	Pending                        // applied locally, request in flight
	Committed                      // confirmed by the backend
	Reverted                       // rolled back after the request failed
)

func (m MutationState) String() string {
	switch m {
	case Pending:
		return "pending"
	case Committed:
		return "committed"
	case Reverted:
		return "reverted"
	default:
		return "idle"
	}
}

// Store is the notification list plus its unread counter.
//
// At quiescent states UnreadCount equals the number of unread entries. It may diverge while a mark-read is
// in flight and converges once the response arrives.
type Store struct {
	api    API
	logger *log.Logger
	now    func() time.Time

	mu            sync.RWMutex
	notifications []models.Notification
	unreadCount   int
	mutations     map[int64]MutationState
}

// NewStore creates an empty store backed by api.
func NewStore(api API, logger *log.Logger) *Store {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Store{
		api:       api,
		logger:    shared.WithLogger(logger, "component", "notifications"),
		now:       time.Now,
		mutations: make(map[int64]MutationState),
	}
}

// SetNotifications replaces the list wholesale. When unreadCount is nil it is derived from the list.
//
// Entries with a duplicate user_notification_id after the first are dropped. Entries breaking the
// status/read_at rule are repaired (see normalize) or dropped with a warning.
func (s *Store) SetNotifications(list []models.Notification, unreadCount *int) {
	seen := make(map[int64]bool, len(list))
	next := make([]models.Notification, 0, len(list))
	for _, n := range list {
		if seen[n.UserNotificationID] {
			continue
		}
		n, ok := s.normalize(cloneNotification(n))
		if !ok {
			continue
		}
		seen[n.UserNotificationID] = true
		next = append(next, n)
	}

	count := models.CountUnread(next)
	if unreadCount != nil {
		count = max(*unreadCount, 0)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = next
	s.unreadCount = count
	s.mutations = make(map[int64]MutationState)
}

// Clear empties the store, as on logout.
func (s *Store) Clear() {
	zero := 0
	s.SetNotifications(nil, &zero)
}

// Refresh reloads the list from the backend.
func (s *Store) Refresh(ctx context.Context) error {
	list, err := s.api.List(ctx)
	if err != nil {
		s.logger.Error("failed to load notifications", "error", err)
		return err
	}
	s.SetNotifications(list.Notifications, list.UnreadCount)
	return nil
}

// MarkAsRead optimistically marks id read and sends the update.
//
// It is a no-op without a request when id is unknown or already read. On failure the entry's status, read_at
// and the counter are restored to their pre-call values, the error is logged and returned.
func (s *Store) MarkAsRead(ctx context.Context, id int64) error {
	s.mu.Lock()
	i := s.index(id)
	if i < 0 || s.notifications[i].Status == models.StatusRead {
		s.mu.Unlock()
		return nil
	}

	entry := &s.notifications[i]
	prevStatus, prevReadAt := entry.Status, entry.ReadAt
	readAt := s.now()
	entry.Status = models.StatusRead
	entry.ReadAt = &readAt

	decremented := prevStatus == models.StatusUnread && s.unreadCount > 0
	if decremented {
		s.unreadCount--
	}
	s.mutations[id] = Pending
	s.mu.Unlock()

	err := s.api.MarkRead(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		s.mutations[id] = Committed
		return nil
	}

	s.logger.Error("failed to mark notification as read", "id", id, "error", err)
	s.mutations[id] = Reverted

	// Only roll back the entry this call mutated; it may have been deleted or replaced meanwhile.
	if j := s.index(id); j >= 0 && s.notifications[j].ReadAt == &readAt {
		s.notifications[j].Status = prevStatus
		s.notifications[j].ReadAt = prevReadAt
		if decremented {
			s.unreadCount++
		}
	}
	return fmt.Errorf("mark notification %d read: %w", id, err)
}

// Delete removes id after the backend confirms the deletion.
//
// On failure the list is left untouched and the error is logged and returned.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := s.api.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete notification", "id", id, "error", err)
		return fmt.Errorf("delete notification %d: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return nil
	}
	wasUnread := s.notifications[i].IsUnread()
	s.notifications = slices.Delete(s.notifications, i, i+1)
	if wasUnread && s.unreadCount > 0 {
		s.unreadCount--
	}
	delete(s.mutations, id)
	return nil
}

// Notifications returns a copy of the list in server order, latest first.
func (s *Store) Notifications() []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Notification, len(s.notifications))
	for i, n := range s.notifications {
		out[i] = cloneNotification(n)
	}
	return out
}

// Get returns a copy of the notification with the given user_notification_id.
func (s *Store) Get(id int64) (models.Notification, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		return cloneNotification(s.notifications[i]), true
	}
	return models.Notification{}, false
}

// UnreadCount returns the unread counter.
func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unreadCount
}

// Len returns the number of notifications held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notifications)
}

// MutationState reports the state of the last optimistic mutation on id.
func (s *Store) MutationState(id int64) MutationState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mutations[id]
}

// index must be called with mu held.
func (s *Store) index(id int64) int {
	return slices.IndexFunc(s.notifications, func(n models.Notification) bool {
		return n.UserNotificationID == id
	})
}

// normalize enforces read <=> read_at on n. A read entry without read_at gets its notified_at (or now), an
// unread entry loses its read_at, and an unknown status drops the entry.
func (s *Store) normalize(n models.Notification) (models.Notification, bool) {
	err := n.Validate()
	if err == nil {
		return n, true
	}

	switch n.Status {
	case models.StatusRead:
		at := n.NotifiedAt
		if at.IsZero() {
			at = s.now()
		}
		n.ReadAt = &at
	case models.StatusUnread:
		n.ReadAt = nil
	default:
		s.logger.Warn("dropping invalid notification", "id", n.UserNotificationID, "error", err)
		return n, false
	}
	s.logger.Warn("repaired inconsistent notification", "id", n.UserNotificationID, "error", err)
	return n, true
}

func cloneNotification(n models.Notification) models.Notification {
	if n.ReadAt != nil {
		t := *n.ReadAt
		n.ReadAt = &t
	}
	n.Variables.SeasonNumbers = slices.Clone(n.Variables.SeasonNumbers)
	return n
}
