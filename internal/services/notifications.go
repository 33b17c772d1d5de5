package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/tvx/internal/models"
)

// NotificationService wraps the notification endpoints.
type NotificationService struct {
	client *Client
}

func NewNotificationService(client *Client) *NotificationService {
	return &NotificationService{client: client}
}

// List fetches the caller's notifications, latest first.
func (s *NotificationService) List(ctx context.Context) (*models.NotificationList, error) {
	var list models.NotificationList
	if err := s.client.doRequest(ctx, http.MethodGet, "/notifications", nil, &list); err != nil {
		return nil, err
	}
	if list.Notifications == nil {
		list.Notifications = []models.Notification{}
	}
	return &list, nil
}

type statusRequest struct {
	Status models.NotificationStatus `json:"status"`
}

// MarkRead sends PUT /notifications/{id} with {status:"read"}.
func (s *NotificationService) MarkRead(ctx context.Context, id int64) error {
	return s.client.doRequest(ctx, http.MethodPut, fmt.Sprintf("/notifications/%d", id), statusRequest{Status: models.StatusRead}, nil)
}

// Delete sends DELETE /notifications/{id}.
func (s *NotificationService) Delete(ctx context.Context, id int64) error {
	return s.client.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/notifications/%d", id), nil, nil)
}
