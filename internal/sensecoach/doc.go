// Package sensecoach provides an HTTP client for the Sense Coach notice-analysis API.
//
// # Overview
//
// The service turns school notices (text or photos) into calendar events and
// stores events, their checklists, and the family's child names. This package
// is the only place that talks to it. It handles HTTP communication, JSON and
// multipart encoding, and the typed representation of every payload.
//
// # Architecture
//
//   - client.go: Client, request plumbing, multipart forms
//   - types.go: records mirroring the API schema and small helpers
//   - errors.go: error taxonomy and server detail extraction
//
// The sensecoachtest subpackage runs an in-memory fake of the service.
//
// # Client Usage
//
//	client, err := sensecoach.NewClient(sensecoach.Options{})
//	if err != nil {
//		return fmt.Errorf("init client: %w", err)
//	}
//
//	result, err := client.AnalyzeNotice(ctx, "소풍 10/5", "네덜란드", userID)
//	if err != nil {
//		return err
//	}
//	for _, ev := range result.ParsedEvents {
//		saved, err := client.SaveEvent(ctx, ev.NewEvent(nil))
//		...
//	}
//
// # API Endpoints
//
//   - GET /api/health
//   - POST /api/analyze, POST /api/analyze/image (multipart)
//   - GET/POST /api/events, GET/PUT/DELETE /api/events/{id}
//   - POST /api/events/{id}/checklist (multipart item_name)
//   - PUT/DELETE /api/checklist/{id}
//   - GET/POST/PUT /api/children, DELETE /api/children/{name}
//   - GET /api/user/{id}/membership
//   - DELETE /api/data/reset
//
// # Request Handling
//
// Every method performs exactly one round trip. Requests carry
// Accept: application/json and a coach/* User-Agent, and are bounded by a
// 30-second timeout (Options.Timeout). There is no caching, no retry and no
// request coalescing: concurrent identical calls race, and callers sequence
// dependent calls themselves (save, then refresh).
//
// # Error Handling
//
// Every failure is an *APIError whose kind is one of the package sentinels:
//
//   - ErrValidation: 4xx or a locally rejected input (empty text, missing date)
//   - ErrDuplicate: 400 when adding or renaming a child to an existing name
//   - ErrNotFound: 404
//   - ErrService: 5xx
//   - ErrNetwork: connection refused, DNS, reset; ErrTimeout also matches it
//   - ErrDecode: a 2xx body that is not the expected JSON
//
// Use errors.Is to branch and Message for user-facing text; the server's
// "detail" field is carried through when present.
//
// # Thread Safety
//
// Client holds no mutable state after construction and is safe for
// concurrent use.
package sensecoach
