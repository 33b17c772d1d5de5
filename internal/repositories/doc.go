// Package repositories implements SQLite persistence for the little state tvx keeps between runs.
//
// The backend owns series, follows, watch state and notifications; none of that is stored here.
// What survives a restart is what a browser would have kept in local storage:
//
//   - [SessionRepository] : the bearer token and the user snapshot it belongs to (a single row)
//   - [PreferenceRepository] : key/value UI flags such as the push prompt dismissal timestamp
//   - [DeviceSubscriptionRepository] : the push subscription issued to this device, keyed by endpoint
//   - [ExportJobRepository] : history of library export runs with status tracking
//
// Tables are created by the embedded migrations in [shared.RunMigrations].
// Lookups that match nothing return [ErrNotFound] unless documented otherwise.
package repositories
