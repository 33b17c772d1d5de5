package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/tvx/internal/models"
)

var _ list.Item = notificationItem{}

// notificationItem wraps [models.Notification] to implement [list.Item].
type notificationItem struct {
	n models.Notification
}

func (i notificationItem) FilterValue() string { return i.n.SerieName }

func (i notificationItem) Title() string {
	if i.n.IsUnread() {
		return styles.unread.Render("● " + i.n.SerieName)
	}
	return "  " + i.n.SerieName
}

func (i notificationItem) Description() string {
	desc := i.n.Message()
	if !i.n.NotifiedAt.IsZero() {
		desc = fmt.Sprintf("%s • %s", desc, i.n.NotifiedAt.Local().Format("Jan 2 15:04"))
	}
	return desc
}

func toItems(notifications []models.Notification) []list.Item {
	items := make([]list.Item, len(notifications))
	for i, n := range notifications {
		items[i] = notificationItem{n: n}
	}
	return items
}
