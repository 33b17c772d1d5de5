package models

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
)

// DeviceSubscription is the locally issued push subscription of this device.
//
// PrivateKey is the device half of the P-256 key pair whose public half is P256dh. It never leaves the device.
type DeviceSubscription struct {
	ID         string    `json:"id"`
	Endpoint   string    `json:"endpoint"`
	P256dh     string    `json:"p256dh"`
	Auth       string    `json:"auth"`
	PrivateKey string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// WebPush returns the subscription in the wire shape registered with the backend.
func (d DeviceSubscription) WebPush() webpush.Subscription {
	return webpush.Subscription{
		Endpoint: d.Endpoint,
		Keys:     webpush.Keys{P256dh: d.P256dh, Auth: d.Auth},
	}
}
