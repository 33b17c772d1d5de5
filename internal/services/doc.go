// Package services implements the REST gateway to the series tracker backend.
//
// # Client
//
// [Client] sends JSON requests relative to the configured base URL. The bearer token is read from an
// [oauth2.TokenSource] on every request, so the session manager can swap tokens on login and logout.
// Non-2xx responses become [*APIError], which unwraps to [shared.ErrAPIRequest] (or
// [shared.ErrNotAuthenticated] for 401). Raw [Client.Get] and [Client.Post] back the `api` debugging commands.
//
// # Series Gateway
//
// [SeriesGateway] covers catalog reads, series detail, follows and watched flags.
//   - Catalog reads degrade to an empty page and a logged error.
//   - [SeriesGateway.UserSeries] keeps a single-entry cache of the followed series list. It is unset
//     until the first successful fetch and unset again after any follow or unfollow.
//   - Follow and unfollow emit toasts through a [Notifier]. An explicit {success:false, error} response
//     is returned as [shared.ErrRequestRejected] carrying the backend message.
//   - Watched toggles return (false, nil) when the backend refuses.
//
// # Other services
//
//   - [NotificationService] : list, mark read, delete
//   - [PushService] : register and remove push subscriptions
//   - [AuthService] : session bootstrap, credential login, logout and the Google OAuth config
package services
