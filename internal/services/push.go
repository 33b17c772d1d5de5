package services

import (
	"context"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
)

// PushService registers push subscriptions with the backend, keyed by endpoint.
type PushService struct {
	client *Client
}

func NewPushService(client *Client) *PushService {
	return &PushService{client: client}
}

// Subscribe posts the subscription (endpoint plus p256dh and auth keys).
func (s *PushService) Subscribe(ctx context.Context, sub webpush.Subscription) error {
	return s.client.doRequest(ctx, http.MethodPost, "/push/subscribe", sub, nil)
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// Unsubscribe removes the server-side record for endpoint.
func (s *PushService) Unsubscribe(ctx context.Context, endpoint string) error {
	return s.client.doRequest(ctx, http.MethodPost, "/push/unsubscribe", unsubscribeRequest{Endpoint: endpoint}, nil)
}
