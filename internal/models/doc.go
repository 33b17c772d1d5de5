// Package models defines the entities exchanged with the series tracker backend.
//
// The package contains three groups of types:
//
// 1. Notifications
//   - [Notification] : a user-notification pairing with read/unread/deleted status
//   - [NotificationVariables] : typed payload whose shape depends on [NotificationType]
//
// 2. Series and watch state
//   - [Series] : catalog entry returned by list, search and "my series" reads
//   - [SeriesDetail] : a series with seasons, episodes, [SeriesStats] and the caller's [UserData]
//   - [IDSet] : ordered set of season or episode ids used by [UserData]
//
// 3. Identity
//   - [User] and [Session] : the signed-in account and its bearer token
//
// Types that carry invariants implement [Validator].
package models
