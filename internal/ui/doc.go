// Package ui implements the Sense Coach terminal interface on Bubble Tea.
//
// # Screens
//
//   - Dashboard: saved events sorted by date, with a preview pane on wide terminals
//   - Event detail: translation, cultural context, tips, memo and the checklist
//   - Children: register, rename and remove children used as event tags
//   - Compose: paste a school notice or point at a photo of one, pick the country and analyze it
//   - Results: review parsed events, fix name, date or time, pick child tags and save them
//   - Log: the tail of the client's own log file
//
// # Event Flow
//
//  1. Run builds a Model and starts the Bubble Tea program
//  2. Init checks service health and asks the Refresher to load the store
//  3. Key presses return commands that call the sensecoach client off the UI goroutine
//  4. Result messages update the store and the Model, then re-render
//  5. Context cancellation quits the program
//
// Destructive actions (deleting an event, an item, a child or all data) wait
// for a "y" confirmation. Every service failure is shown in the status line
// using sensecoach.Message so users see the service's own explanation.
//
// # Usage Example
//
//	err := ui.Run(ui.Options{
//		Context:   ctx,
//		Client:    client,
//		Store:     store,
//		Refresher: refresher,
//		Prefs:     userPrefs,
//		Country:   cfg.Country,
//		UserID:    userID,
//	})
package ui
