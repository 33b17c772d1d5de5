// Package notifications holds the session's notification list and unread counter.
//
// A [Store] is constructed once per session and shared by reference between the CLI commands, the TUI inbox
// and the push message listener.
//
// Marking a notification read is optimistic: the local entry flips to read and the counter drops before the
// PUT is sent, and both are restored if it fails. Deleting is not: the DELETE is sent first and the entry is
// only removed once the backend confirms. Neither operation retries.
//
// Each optimistic mutation is tracked per notification as [Pending], [Committed] or [Reverted] so callers can
// render in-flight state and tests can observe the outcome.
package notifications
