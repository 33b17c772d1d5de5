// Package push manages this device's push subscription and the out-of-band push message channel.
//
// [Manager] tracks three signals: whether push is supported (fixed at construction), the notification
// permission (default, granted or denied) and whether an active subscription is registered with the backend.
//
// Subscribing asks the [Platform] for a subscription, which may block on a permission prompt with no timeout,
// validates its keys and registers it with the backend. Permission is refreshed from the platform whether or
// not this succeeds. Unsubscribing removes the platform subscription first and clears the local flag as soon
// as that succeeds; a failed backend call afterwards is only logged.
//
// [DevicePlatform] is the terminal implementation: permission comes from a [Prompter], the subscription is a
// locally generated endpoint plus P-256 key pair and auth secret stored in sqlite, and notifications are drawn
// as a box on the terminal.
//
// [DialMessages] connects to the backend's websocket and yields push and click [Message] values that
// [Manager.Listen] dispatches.
package push
