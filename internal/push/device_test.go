package push

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/desertthunder/tvx/internal/models"
	"github.com/desertthunder/tvx/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSubs struct {
	sub *models.DeviceSubscription
}

func (m *memSubs) Current(ctx context.Context) (*models.DeviceSubscription, error) { return m.sub, nil }

func (m *memSubs) Save(ctx context.Context, sub *models.DeviceSubscription) error {
	m.sub = sub
	return nil
}

func (m *memSubs) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	if m.sub != nil && m.sub.Endpoint == endpoint {
		m.sub = nil
	}
	return nil
}

type memPerms struct{ value string }

func (m *memPerms) PushPermission(ctx context.Context) (string, error) { return m.value, nil }

func (m *memPerms) SetPushPermission(ctx context.Context, value string) error {
	m.value = value
	return nil
}

type scriptedPrompter struct {
	answer bool
	asked  int
}

func (p *scriptedPrompter) Confirm(question string) (bool, error) {
	p.asked++
	return p.answer, nil
}

var deviceConfig = shared.PushConfig{Enabled: true, Endpoint: "http://localhost:8000/push/device/"}

func TestDevicePlatform(t *testing.T) {
	ctx := context.Background()

	t.Run("supported requires enabled and endpoint", func(t *testing.T) {
		assert.True(t, NewDevicePlatform(deviceConfig, &memSubs{}, &memPerms{}, nil, nil).Supported())
		assert.False(t, NewDevicePlatform(shared.PushConfig{Enabled: true}, &memSubs{}, &memPerms{}, nil, nil).Supported())
		assert.False(t, NewDevicePlatform(shared.PushConfig{Endpoint: "x"}, &memSubs{}, &memPerms{}, nil, nil).Supported())
	})

	t.Run("unknown stored permission reads as default", func(t *testing.T) {
		d := NewDevicePlatform(deviceConfig, &memSubs{}, &memPerms{value: "maybe"}, nil, nil)
		assert.Equal(t, PermissionDefault, d.Permission())
	})

	t.Run("grant issues and stores a subscription", func(t *testing.T) {
		subs, perms, prompter := &memSubs{}, &memPerms{}, &scriptedPrompter{answer: true}
		d := NewDevicePlatform(deviceConfig, subs, perms, prompter, nil)

		sub, err := d.Subscribe(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, prompter.asked)
		assert.Equal(t, "granted", perms.value)
		assert.True(t, strings.HasPrefix(sub.Endpoint, "http://localhost:8000/push/device/"))
		assert.NotContains(t, strings.TrimPrefix(sub.Endpoint, "http://"), "//")
		assert.NotEmpty(t, sub.Keys.P256dh)

		secret, err := base64.RawURLEncoding.DecodeString(sub.Keys.Auth)
		require.NoError(t, err)
		assert.Len(t, secret, authSecretSize)

		require.NotNil(t, subs.sub)
		assert.NotEmpty(t, subs.sub.PrivateKey)
		assert.Equal(t, sub.Endpoint, subs.sub.Endpoint)
	})

	t.Run("second subscribe reuses the stored subscription", func(t *testing.T) {
		subs, prompter := &memSubs{}, &scriptedPrompter{answer: true}
		d := NewDevicePlatform(deviceConfig, subs, &memPerms{}, prompter, nil)

		first, err := d.Subscribe(ctx)
		require.NoError(t, err)
		second, err := d.Subscribe(ctx)
		require.NoError(t, err)

		assert.Equal(t, first.Endpoint, second.Endpoint)
		assert.Equal(t, 1, prompter.asked)
	})

	t.Run("deny is remembered", func(t *testing.T) {
		perms, prompter := &memPerms{}, &scriptedPrompter{answer: false}
		d := NewDevicePlatform(deviceConfig, &memSubs{}, perms, prompter, nil)

		_, err := d.Subscribe(ctx)
		require.ErrorIs(t, err, ErrPermissionDenied)
		assert.Equal(t, "denied", perms.value)

		_, err = d.Subscribe(ctx)
		require.ErrorIs(t, err, ErrPermissionDenied)
		assert.Equal(t, 1, prompter.asked)
	})

	t.Run("unsubscribe removes the stored row", func(t *testing.T) {
		subs := &memSubs{}
		d := NewDevicePlatform(deviceConfig, subs, &memPerms{value: "granted"}, nil, nil)

		sub, err := d.Subscribe(ctx)
		require.NoError(t, err)
		require.NoError(t, d.Unsubscribe(ctx, sub))

		current, err := d.Subscription(ctx)
		require.NoError(t, err)
		assert.Nil(t, current)
	})

	t.Run("show draws title body and url", func(t *testing.T) {
		var buf bytes.Buffer
		d := NewDevicePlatform(deviceConfig, &memSubs{}, &memPerms{}, nil, &buf)

		require.NoError(t, d.Show("Dark", Options{Body: "Season 3 is out", URL: "/series/7"}))

		out := buf.String()
		assert.Contains(t, out, "Dark")
		assert.Contains(t, out, "Season 3 is out")
		assert.Contains(t, out, "/series/7")
	})
}

func TestIOPrompter(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"yes", true},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		p := IOPrompter{In: strings.NewReader(tt.input), Out: &out}
		got, err := p.Confirm("Allow?")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
		assert.Contains(t, out.String(), "Allow? [y/N]")
	}
}
