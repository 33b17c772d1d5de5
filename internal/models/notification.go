package models

import (
	"fmt"
	"strings"
	"time"
)

// NotificationType enumerates the events that produce a notification.
type NotificationType string

const (
	NotificationNewSeason      NotificationType = "new_season"
	NotificationNewEpisodes    NotificationType = "new_episodes"
	NotificationStatusCanceled NotificationType = "status_canceled"
	NotificationStatusEnded    NotificationType = "status_ended"
)

// NotificationStatus is the per-user lifecycle state of a notification.
type NotificationStatus string

const (
	StatusUnread  NotificationStatus = "unread"
	StatusRead    NotificationStatus = "read"
	StatusDeleted NotificationStatus = "deleted"
)

// NotificationVariables is the typed payload of a notification. Which fields are set depends on the type:
//   - new_season: SeasonNumber (or SeasonNumbers and Count when several seasons landed at once)
//   - new_episodes: SeasonNumber and EpisodeCount
//   - status_canceled, status_ended: Status
type NotificationVariables struct {
	SeasonNumber  int    `json:"season_number,omitempty"`
	EpisodeCount  int    `json:"episode_count,omitempty"`
	SeasonNumbers []int  `json:"season_numbers,omitempty"`
	Count         int    `json:"count,omitempty"`
	Status        string `json:"status,omitempty"`
}

// Notification is a single user-notification pairing.
type Notification struct {
	UserNotificationID int64                 `json:"user_notification_id"`
	NotificationID     int64                 `json:"notification_id"`
	SerieID            int64                 `json:"serie_id"`
	SerieName          string                `json:"serie_name"`
	SeriePoster        string                `json:"serie_poster,omitempty"`
	Type               NotificationType      `json:"type"`
	Status             NotificationStatus    `json:"status"`
	NotifiedAt         time.Time             `json:"notified_at"`
	ReadAt             *time.Time            `json:"read_at"`
	CreatedAt          time.Time             `json:"created_at"`
	Variables          NotificationVariables `json:"variables"`
}

// IsUnread reports whether the notification counts towards the unread badge.
func (n Notification) IsUnread() bool {
	return n.Status == StatusUnread
}

// Validate checks that read_at is set exactly when the notification is read.
func (n Notification) Validate() error {
	switch n.Status {
	case StatusRead:
		if n.ReadAt == nil {
			return fmt.Errorf("notification %d: read without read_at", n.UserNotificationID)
		}
	case StatusUnread:
		if n.ReadAt != nil {
			return fmt.Errorf("notification %d: unread with read_at", n.UserNotificationID)
		}
	case StatusDeleted:
	default:
		return fmt.Errorf("notification %d: unknown status %q", n.UserNotificationID, n.Status)
	}
	return nil
}

// Message renders a one-line English summary of the notification.
func (n Notification) Message() string {
	v := n.Variables
	switch n.Type {
	case NotificationNewSeason:
		if len(v.SeasonNumbers) > 1 {
			nums := make([]string, len(v.SeasonNumbers))
			for i, s := range v.SeasonNumbers {
				nums[i] = fmt.Sprintf("%d", s)
			}
			return fmt.Sprintf("%s: %d new seasons (%s)", n.SerieName, len(v.SeasonNumbers), strings.Join(nums, ", "))
		}
		return fmt.Sprintf("%s: season %d is out", n.SerieName, v.SeasonNumber)
	case NotificationNewEpisodes:
		if v.EpisodeCount == 1 {
			return fmt.Sprintf("%s: 1 new episode in season %d", n.SerieName, v.SeasonNumber)
		}
		return fmt.Sprintf("%s: %d new episodes in season %d", n.SerieName, v.EpisodeCount, v.SeasonNumber)
	case NotificationStatusCanceled:
		return fmt.Sprintf("%s has been canceled", n.SerieName)
	case NotificationStatusEnded:
		return fmt.Sprintf("%s has ended", n.SerieName)
	default:
		return n.SerieName
	}
}

// CountUnread returns the number of unread notifications in list.
func CountUnread(list []Notification) int {
	count := 0
	for _, n := range list {
		if n.IsUnread() {
			count++
		}
	}
	return count
}

// NotificationList is the payload of GET /notifications.
//
// UnreadCount is optional; when absent the count is derived from the list.
type NotificationList struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   *int           `json:"unread_count,omitempty"`
}
