package sensecoach

import (
	"strings"
	"time"
)

const (
	// NoChildTag is the stored child_tag value for events not tagged to any child.
	NoChildTag = "없음"

	// DateLayout is the wire format of event_date.
	DateLayout = "2006-01-02"
	// TimeLayout is the wire format of event_time.
	TimeLayout = "15:04"

	createdAtLayout = "2006-01-02 15:04:05"
)

// Health mirrors the payload returned by /api/health.
type Health struct {
	Status string `json:"status"`
}

// Healthy reports whether the service answered with a healthy status.
func (h Health) Healthy() bool {
	return strings.EqualFold(strings.TrimSpace(h.Status), "healthy")
}

// AnalyzeRequest is the JSON body of /api/analyze.
type AnalyzeRequest struct {
	Text    string `json:"text"`
	Country string `json:"country"`
	UserID  string `json:"user_id"`
}

// AnalysisResult mirrors the payload of /api/analyze and /api/analyze/image.
type AnalysisResult struct {
	ParsedEvents []ParsedEvent `json:"parsed_events"`
	RawResult    string        `json:"raw_result"`
	Usage        int           `json:"usage"`
	Limit        int           `json:"limit"`
}

// Unlimited reports whether the user's analysis quota is unbounded.
func (r AnalysisResult) Unlimited() bool {
	return r.Limit < 0
}

// ParsedEvent is one event extracted from a notice by the analysis service.
type ParsedEvent struct {
	Name            string   `json:"event_name"`
	Date            string   `json:"event_date"`
	Time            string   `json:"event_time"`
	Country         string   `json:"country"`
	Translation     string   `json:"translation"`
	CulturalContext string   `json:"cultural_context"`
	Tips            string   `json:"tips"`
	ChecklistItems  []string `json:"checklist_items"`
	Memo            string   `json:"memo"`
}

// ParsedDate returns the event date, or the zero time when unset or malformed.
func (p ParsedEvent) ParsedDate() time.Time {
	return parseDate(p.Date)
}

// NewEvent builds the create payload for persisting this parsed event with the
// given child tags.
func (p ParsedEvent) NewEvent(childTags []string) NewEvent {
	items := make([]string, len(p.ChecklistItems))
	copy(items, p.ChecklistItems)
	return NewEvent{
		Name:            p.Name,
		Date:            p.Date,
		Time:            p.Time,
		Country:         p.Country,
		ChildTag:        JoinChildTags(childTags),
		Translation:     p.Translation,
		CulturalContext: p.CulturalContext,
		Tips:            p.Tips,
		ChecklistItems:  items,
		Memo:            p.Memo,
	}
}

// NewEvent is the JSON body of POST /api/events. Name and Date are required.
type NewEvent struct {
	Name            string   `json:"event_name"`
	Date            string   `json:"event_date"`
	Time            string   `json:"event_time"`
	Country         string   `json:"country"`
	ChildTag        string   `json:"child_tag"`
	Translation     string   `json:"translation"`
	CulturalContext string   `json:"cultural_context"`
	Tips            string   `json:"tips"`
	ChecklistItems  []string `json:"checklist_items"`
	Memo            string   `json:"memo"`
}

func (e NewEvent) withDefaults() NewEvent {
	if strings.TrimSpace(e.ChildTag) == "" {
		e.ChildTag = NoChildTag
	}
	if e.ChecklistItems == nil {
		e.ChecklistItems = []string{}
	}
	return e
}

// EventUpdate is the JSON body of PUT /api/events/{id}. Nil fields are left
// unchanged by the service.
type EventUpdate struct {
	Name     *string `json:"event_name,omitempty"`
	Date     *string `json:"event_date,omitempty"`
	Time     *string `json:"event_time,omitempty"`
	Country  *string `json:"country,omitempty"`
	ChildTag *string `json:"child_tag,omitempty"`
	Memo     *string `json:"memo,omitempty"`
}

// Empty reports whether the update carries no fields.
func (u EventUpdate) Empty() bool {
	return u.Name == nil && u.Date == nil && u.Time == nil &&
		u.Country == nil && u.ChildTag == nil && u.Memo == nil
}

// String returns a pointer to s, for building EventUpdate values.
func String(s string) *string {
	return &s
}

// Event is a persisted calendar event.
type Event struct {
	ID              int64           `json:"id"`
	Name            string          `json:"event_name"`
	Date            string          `json:"event_date"`
	Time            string          `json:"event_time"`
	Country         string          `json:"country"`
	ChildTag        string          `json:"child_tag"`
	Translation     string          `json:"translation"`
	CulturalContext string          `json:"cultural_context"`
	Tips            string          `json:"tips"`
	Memo            string          `json:"memo"`
	ChecklistItems  []string        `json:"checklist_items"`
	CreatedAt       string          `json:"created_at"`
	Checklist       []ChecklistItem `json:"checklist_with_status"`
}

// ChildTags returns the child names the event is tagged with, or nil when the
// event carries the no-child sentinel.
func (e Event) ChildTags() []string {
	return SplitChildTags(e.ChildTag)
}

// ParsedDate returns the event date, or the zero time when unset or malformed.
func (e Event) ParsedDate() time.Time {
	return parseDate(e.Date)
}

// ParsedCreatedAt returns the creation timestamp when the service supplied one.
func (e Event) ParsedCreatedAt() time.Time {
	value := strings.TrimSpace(e.CreatedAt)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(createdAtLayout, value, time.UTC); err == nil {
		return t
	}
	return time.Time{}
}

// Progress returns how many checklist items are checked out of the total.
func (e Event) Progress() (checked, total int) {
	for _, item := range e.Checklist {
		if item.Checked {
			checked++
		}
	}
	return checked, len(e.Checklist)
}

// ChecklistItem is one entry of an event's checklist.
type ChecklistItem struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Checked bool   `json:"checked"`
}

// Membership mirrors /api/user/{id}/membership.
type Membership struct {
	UserID   string `json:"user_id"`
	Tier     string `json:"tier"`
	Usage    int    `json:"usage"`
	Limit    int    `json:"limit"`
	PlanName string `json:"plan_name"`
}

// Remaining returns the analyses left this month, or -1 when unlimited.
func (m Membership) Remaining() int {
	if m.Limit < 0 {
		return -1
	}
	if m.Usage >= m.Limit {
		return 0
	}
	return m.Limit - m.Usage
}

// Ack is the confirmation body returned by mutating endpoints.
type Ack struct {
	Message string `json:"message"`
}

type eventsResponse struct {
	Events []Event `json:"events"`
}

type eventResponse struct {
	Event Event `json:"event"`
}

type createdEventResponse struct {
	Message string `json:"message"`
	EventID int64  `json:"event_id"`
}

type childrenResponse struct {
	Children []string `json:"children"`
}

type childRequest struct {
	Name string `json:"name"`
}

type renameChildRequest struct {
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
}

type checklistUpdateRequest struct {
	Checked bool `json:"is_checked"`
}

// SplitChildTags parses a stored child_tag value into names.
func SplitChildTags(tag string) []string {
	trimmed := strings.TrimSpace(tag)
	if isNoChildTag(trimmed) {
		return nil
	}
	var names []string
	for _, part := range strings.Split(trimmed, ",") {
		name := strings.TrimSpace(part)
		if name == "" || isNoChildTag(name) {
			continue
		}
		names = append(names, name)
	}
	return names
}

// JoinChildTags renders child names into the stored child_tag form.
func JoinChildTags(names []string) string {
	kept := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || isNoChildTag(name) {
			continue
		}
		kept = append(kept, name)
	}
	if len(kept) == 0 {
		return NoChildTag
	}
	return strings.Join(kept, ", ")
}

func isNoChildTag(value string) bool {
	return value == "" || value == NoChildTag || strings.EqualFold(value, "none")
}

func parseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
