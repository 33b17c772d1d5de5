package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

const (
	PrefPushPromptDismissedAt = "push_prompt_dismissed_at"
	PrefSwipeHintShown        = "swipe_hint_shown"
	PrefPushPermission        = "push_permission"
)

// PreferenceRepository is a string key/value store for UI flags.
type PreferenceRepository struct {
	db *sql.DB
}

func NewPreferenceRepository(db *sql.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// Get returns the value for key and whether it was set.
func (r *PreferenceRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get preference %s: %w", key, err)
	}
	return value, true, nil
}

// Set inserts or overwrites key.
func (r *PreferenceRepository) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("preference key is required")
	}

	query := `
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, key, value, time.Now()); err != nil {
		return fmt.Errorf("failed to set preference %s: %w", key, err)
	}
	return nil
}

func (r *PreferenceRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM preferences WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete preference %s: %w", key, err)
	}
	return nil
}

// PromptDismissedAt returns when the push prompt was last dismissed.
// A stored value that does not parse is treated as unset.
func (r *PreferenceRepository) PromptDismissedAt(ctx context.Context) (time.Time, bool, error) {
	value, ok, err := r.Get(ctx, PrefPushPromptDismissedAt)
	if err != nil || !ok {
		return time.Time{}, false, err
	}

	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, false, nil
	}
	return t, true, nil
}

func (r *PreferenceRepository) SetPromptDismissedAt(ctx context.Context, at time.Time) error {
	return r.Set(ctx, PrefPushPromptDismissedAt, at.UTC().Format(time.RFC3339Nano))
}

// PushPermission returns the stored permission decision, "" when never asked.
func (r *PreferenceRepository) PushPermission(ctx context.Context) (string, error) {
	value, _, err := r.Get(ctx, PrefPushPermission)
	return value, err
}

func (r *PreferenceRepository) SetPushPermission(ctx context.Context, value string) error {
	return r.Set(ctx, PrefPushPermission, value)
}

func (r *PreferenceRepository) SwipeHintShown(ctx context.Context) (bool, error) {
	value, ok, err := r.Get(ctx, PrefSwipeHintShown)
	if err != nil || !ok {
		return false, err
	}
	shown, _ := strconv.ParseBool(value)
	return shown, nil
}

func (r *PreferenceRepository) SetSwipeHintShown(ctx context.Context, shown bool) error {
	return r.Set(ctx, PrefSwipeHintShown, strconv.FormatBool(shown))
}
