package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100

	// LayoutSplitWidth is the minimum width for the dashboard preview pane.
	LayoutSplitWidth = 90

	// LayoutExtraWideWidth is the threshold for extra-wide layouts.
	LayoutExtraWideWidth = 160
)

// Timing constants.
const (
	// StatusTTL is how long a success message stays in the status line.
	// Errors stay until the next action.
	StatusTTL = 5 * time.Second

	// ClockInterval re-renders relative timestamps in the header.
	ClockInterval = 30 * time.Second
)

// Input limits.
const (
	NoticeCharLimit    = 5000
	ChildNameCharLimit = 40
	ItemNameCharLimit  = 100
	MemoCharLimit      = 500
	EventNameCharLimit = 100
)
