package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/tvx/internal/models"
	"github.com/desertthunder/tvx/internal/shared"
	"github.com/urfave/cli/v3"
)

// NotificationsList reloads the inbox and prints it, latest first.
func (r *Runner) NotificationsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(ctx); err != nil {
		return err
	}
	if err := r.inbox.Refresh(ctx); err != nil {
		return err
	}

	list := r.inbox.Notifications()
	if cmd.Bool("unread") {
		unread := list[:0]
		for _, n := range list {
			if n.IsUnread() {
				unread = append(unread, n)
			}
		}
		list = unread
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"notifications":              list,
			"unread_notifications_count": r.inbox.UnreadCount(),
		}, true)
	}

	r.writePlain("Notifications (%d unread)\n\n", r.inbox.UnreadCount())
	if len(list) == 0 {
		return r.writePlain("No notifications\n")
	}
	for _, n := range list {
		r.printNotification(n)
	}
	return nil
}

// NotificationsRead marks one notification read.
func (r *Runner) NotificationsRead(ctx context.Context, cmd *cli.Command) error {
	n, err := r.lookupNotification(ctx, cmd.Int64Arg("id"))
	if err != nil {
		return err
	}
	if !n.IsUnread() {
		return r.writePlain("Notification %d is already read\n", n.UserNotificationID)
	}

	if err := r.inbox.MarkAsRead(ctx, n.UserNotificationID); err != nil {
		return err
	}
	return r.writePlain("✓ Marked as read (%d unread)\n", r.inbox.UnreadCount())
}

// NotificationsDelete deletes one notification.
func (r *Runner) NotificationsDelete(ctx context.Context, cmd *cli.Command) error {
	n, err := r.lookupNotification(ctx, cmd.Int64Arg("id"))
	if err != nil {
		return err
	}

	if err := r.inbox.Delete(ctx, n.UserNotificationID); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted notification %d\n", n.UserNotificationID)
}

// lookupNotification finds id in the inbox, reloading it when the bootstrap batch does not hold it.
func (r *Runner) lookupNotification(ctx context.Context, id int64) (models.Notification, error) {
	if id <= 0 {
		return models.Notification{}, fmt.Errorf("%w: notification id", shared.ErrMissingArgument)
	}
	if err := r.requireAuth(ctx); err != nil {
		return models.Notification{}, err
	}

	if n, ok := r.inbox.Get(id); ok {
		return n, nil
	}
	if err := r.inbox.Refresh(ctx); err != nil {
		return models.Notification{}, err
	}
	if n, ok := r.inbox.Get(id); ok {
		return n, nil
	}
	return models.Notification{}, fmt.Errorf("%w: %d", shared.ErrNotificationNotFound, id)
}

func (r *Runner) printNotification(n models.Notification) {
	marker := " "
	if n.IsUnread() {
		marker = "●"
	}
	r.writePlain("%s [%d] %s\n", marker, n.UserNotificationID, n.SerieName)
	r.writePlain("    %s\n", n.Message())
	if !n.NotifiedAt.IsZero() {
		r.writePlain("    %s\n", n.NotifiedAt.Local().Format("Jan 2, 2006 15:04"))
	}
}
