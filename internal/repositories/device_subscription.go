package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/tvx/internal/models"
	"github.com/desertthunder/tvx/internal/shared"
)

// DeviceSubscriptionRepository stores the push subscription issued to this device.
type DeviceSubscriptionRepository struct {
	db *sql.DB
}

func NewDeviceSubscriptionRepository(db *sql.DB) *DeviceSubscriptionRepository {
	return &DeviceSubscriptionRepository{db: db}
}

// Current returns the most recently created subscription, or nil when there is none.
func (r *DeviceSubscriptionRepository) Current(ctx context.Context) (*models.DeviceSubscription, error) {
	query := `
		SELECT id, endpoint, p256dh, auth, private_key, created_at
		FROM device_subscriptions
		ORDER BY created_at DESC
		LIMIT 1
	`

	var sub models.DeviceSubscription
	err := r.db.QueryRowContext(ctx, query).Scan(&sub.ID, &sub.Endpoint, &sub.P256dh, &sub.Auth, &sub.PrivateKey, &sub.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load device subscription: %w", err)
	}
	return &sub, nil
}

// Save upserts sub by endpoint, assigning an ID and creation time when missing.
func (r *DeviceSubscriptionRepository) Save(ctx context.Context, sub *models.DeviceSubscription) error {
	if sub.Endpoint == "" || sub.P256dh == "" || sub.Auth == "" {
		return fmt.Errorf("validation failed: endpoint and keys are required")
	}
	if sub.ID == "" {
		sub.ID = shared.GenerateID()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO device_subscriptions (id, endpoint, p256dh, auth, private_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(endpoint) DO UPDATE SET
			p256dh = excluded.p256dh,
			auth = excluded.auth,
			private_key = excluded.private_key
	`
	if _, err := r.db.ExecContext(ctx, query, sub.ID, sub.Endpoint, sub.P256dh, sub.Auth, sub.PrivateKey, sub.CreatedAt); err != nil {
		return fmt.Errorf("failed to save device subscription: %w", err)
	}
	return nil
}

// DeleteByEndpoint removes the subscription for endpoint. A missing row is not an error.
func (r *DeviceSubscriptionRepository) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM device_subscriptions WHERE endpoint = ?`, endpoint); err != nil {
		return fmt.Errorf("failed to delete device subscription: %w", err)
	}
	return nil
}

// List returns every stored subscription, newest first.
func (r *DeviceSubscriptionRepository) List(ctx context.Context) ([]models.DeviceSubscription, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, endpoint, p256dh, auth, private_key, created_at
		FROM device_subscriptions
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query device subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []models.DeviceSubscription
	for rows.Next() {
		var sub models.DeviceSubscription
		if err := rows.Scan(&sub.ID, &sub.Endpoint, &sub.P256dh, &sub.Auth, &sub.PrivateKey, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan device subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return subs, nil
}
