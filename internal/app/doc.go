// Package app is the composition root for the coach terminal client.
//
// Run loads configuration and preferences, assigns a device user id on first
// launch, opens the log file, builds the sensecoach client and the shared
// state.Store, and hands everything to the UI.
//
// There is no background poller. The Refresher reloads the store when the
// user presses r, toggles the upcoming filter, or after a mutation. Events and
// children are fetched concurrently with errgroup; either failing fails the
// refresh and the store keeps its previous data. Membership is fetched
// alongside them on a best-effort basis.
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       ├─────> config.Load()          Read config.toml
//	       ├─────> prefs.EnsureUserID()   Device user id
//	       ├─────> openLogger()           slog text handler on the log file
//	       ├─────> sensecoach.NewClient() HTTP client
//	       ├─────> state.Store{}          Shared snapshot
//	       └─────> ui.Run()               TUI (blocks)
package app
