// Package watch holds the follow and watched state of the series being viewed and applies toggles to it.
//
// Every toggle follows the same shape: check preconditions, mutate local state, call the backend, then keep
// the change (possibly cascading it) or revert it.
//
//   - [Controller.ToggleFollow] flips the follow flag and adjusts the follower count by one.
//   - [Controller.ToggleWatched] flips the series watched flag and marks or clears every season and episode
//     before the request is sent. Only the flag is reverted on failure; the season and episode sets keep the
//     cascaded values.
//   - [Controller.ToggleSeasonWatched] adds or removes the season and, once the backend confirms, marks or
//     clears every episode of that season locally.
//   - [Controller.ToggleEpisodeWatched] adds or removes the episode and, once confirmed, reconciles the parent
//     season in the background: a season whose episodes are now all watched is marked watched, and one with
//     none watched is unmarked. Reconciliation failures are logged and can leave the season stale.
//
// Each entity has an in-flight key ("follow", "watched", "season:{id}", "episode:{id}"). A toggle on a key
// that is already in flight is rejected with [ErrInFlight] without touching state or issuing a request.
// Toggles on different keys run concurrently.
package watch
