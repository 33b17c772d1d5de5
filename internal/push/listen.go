package push

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// MessageType distinguishes frames on the push message channel.
type MessageType string

const (
	MessagePush  MessageType = "push"
	MessageClick MessageType = "notificationclick"
)

// Message is one frame from the push message channel.
type Message struct {
	Type           MessageType `json:"type"`
	Title          string      `json:"title,omitempty"`
	Body           string      `json:"body,omitempty"`
	URL            string      `json:"url,omitempty"`
	NotificationID int64       `json:"notification_id,omitempty"`
}

// Inbox is the part of the notification store the listener drives.
type Inbox interface {
	MarkAsRead(ctx context.Context, id int64) error
	Refresh(ctx context.Context) error
}

// Navigator opens a path or URL carried by a clicked notification.
type Navigator func(url string)

// Listen dispatches messages until ctx is done or msgs is closed.
//
//   - push: the notification is displayed and the inbox reloaded
//   - notificationclick: url is handed to navigate; notification_id triggers a fire-and-forget mark-read
//
// Failures are logged and never returned. Listen waits for the calls it started before returning.
func (m *Manager) Listen(ctx context.Context, msgs <-chan Message, inbox Inbox, navigate Navigator) {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			m.dispatch(ctx, &wg, msg, inbox, navigate)
		}
	}
}

func (m *Manager) dispatch(ctx context.Context, wg *sync.WaitGroup, msg Message, inbox Inbox, navigate Navigator) {
	switch msg.Type {
	case MessagePush:
		if msg.Title != "" {
			opts := Options{Body: msg.Body, URL: msg.URL, NotificationID: msg.NotificationID}
			if err := m.ShowNotification(msg.Title, opts); err != nil {
				m.logger.Warn("could not display push message", "error", err)
			}
		}
		if inbox != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := inbox.Refresh(ctx); err != nil {
					m.logger.Error("failed to refresh notifications after push", "error", err)
				}
			}()
		}
	case MessageClick:
		if msg.URL != "" && navigate != nil {
			navigate(msg.URL)
		}
		if msg.NotificationID != 0 && inbox != nil {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				if err := inbox.MarkAsRead(ctx, id); err != nil {
					m.logger.Error("failed to mark clicked notification as read", "id", id, "error", err)
				}
			}(msg.NotificationID)
		}
	default:
		m.logger.Debug("ignoring push message", "type", msg.Type)
	}
}

// DialMessages connects to the push message websocket at url and streams decoded frames.
//
// The channel is closed when the connection drops or ctx is done.
func DialMessages(ctx context.Context, url string, header http.Header, logger *log.Logger) (<-chan Message, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("dial push channel: %w", err)
	}

	out := make(chan Message)
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			deadline := time.Now().Add(time.Second)
			conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		case <-done:
		}
		conn.Close()
	}()

	go func() {
		defer close(out)
		defer close(done)
		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && logger != nil {
					logger.Error("push channel read failed", "error", err)
				}
				return
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
