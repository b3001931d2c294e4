package sensecoach

import (
	"encoding/json"
	"testing"
	"time"
)

func TestChildTags(t *testing.T) {
	cases := []struct {
		tag  string
		want []string
	}{
		{"", nil},
		{"없음", nil},
		{"none", nil},
		{"민수", []string{"민수"}},
		{"민수, 지아", []string{"민수", "지아"}},
		{" 민수 ,, 없음, 지아 ", []string{"민수", "지아"}},
	}
	for _, tc := range cases {
		got := Event{ChildTag: tc.tag}.ChildTags()
		if len(got) != len(tc.want) {
			t.Fatalf("ChildTags(%q) = %#v, want %#v", tc.tag, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("ChildTags(%q) = %#v, want %#v", tc.tag, got, tc.want)
			}
		}
	}
}

func TestJoinChildTags(t *testing.T) {
	if got := JoinChildTags(nil); got != NoChildTag {
		t.Fatalf("JoinChildTags(nil) = %q, want %q", got, NoChildTag)
	}
	if got := JoinChildTags([]string{" ", "none"}); got != NoChildTag {
		t.Fatalf("JoinChildTags(blank) = %q, want %q", got, NoChildTag)
	}
	if got := JoinChildTags([]string{"민수", " 지아 "}); got != "민수, 지아" {
		t.Fatalf("JoinChildTags = %q, want %q", got, "민수, 지아")
	}
}

func TestParsedEventNewEvent(t *testing.T) {
	p := ParsedEvent{
		Name:           "소풍",
		Date:           "2025-10-05",
		Time:           "09:00",
		Country:        "네덜란드",
		ChecklistItems: []string{"도시락", "물통"},
	}
	ev := p.NewEvent([]string{"민수"})
	if ev.Name != "소풍" || ev.Date != "2025-10-05" || ev.Time != "09:00" || ev.ChildTag != "민수" {
		t.Fatalf("NewEvent = %#v, want fields copied", ev)
	}
	ev.ChecklistItems[0] = "mutated"
	if p.ChecklistItems[0] != "도시락" {
		t.Fatalf("NewEvent should copy checklist items")
	}
	if untagged := p.NewEvent(nil); untagged.ChildTag != NoChildTag {
		t.Fatalf("NewEvent(nil).ChildTag = %q, want %q", untagged.ChildTag, NoChildTag)
	}
}

func TestNewEventDefaults(t *testing.T) {
	ev := NewEvent{Name: "a", Date: "2025-01-01"}.withDefaults()
	if ev.ChildTag != NoChildTag || ev.Time != "" || ev.Memo != "" || ev.ChecklistItems == nil {
		t.Fatalf("withDefaults = %#v", ev)
	}
}

func TestEventHelpers(t *testing.T) {
	ev := Event{
		Date:      "2025-10-05",
		CreatedAt: "2025-10-01 08:30:00",
		Checklist: []ChecklistItem{{ID: 1, Checked: true}, {ID: 2}, {ID: 3, Checked: true}},
	}
	if d := ev.ParsedDate(); d.Year() != 2025 || d.Month() != time.October || d.Day() != 5 {
		t.Fatalf("ParsedDate = %v, want 2025-10-05", d)
	}
	if !(Event{Date: "soon"}).ParsedDate().IsZero() {
		t.Fatalf("ParsedDate of malformed date should be zero")
	}
	if c := ev.ParsedCreatedAt(); c.Hour() != 8 || c.Minute() != 30 {
		t.Fatalf("ParsedCreatedAt = %v, want 08:30", c)
	}
	if c := (Event{CreatedAt: "2025-10-01T08:30:00Z"}).ParsedCreatedAt(); c.IsZero() {
		t.Fatalf("ParsedCreatedAt should parse RFC3339")
	}
	checked, total := ev.Progress()
	if checked != 2 || total != 3 {
		t.Fatalf("Progress = %d/%d, want 2/3", checked, total)
	}
}

func TestEventDecodesWireShape(t *testing.T) {
	raw := `{
  "id": 12,
  "event_name": "학부모 상담",
  "event_date": "2025-11-03",
  "event_time": "15:30",
  "country": "네덜란드",
  "child_tag": "민수, 지아",
  "translation": "parent meeting",
  "cultural_context": "ctx",
  "tips": "tips",
  "checklist_items": ["공책"],
  "created_at": "2025-10-01T10:00:00",
  "memo": "",
  "checklist_with_status": [
    {"id": 5, "name": "공책", "checked": false},
    {"id": 2, "name": "연필", "checked": true}
  ]
}`
	var ev Event
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if ev.ID != 12 || ev.Time != "15:30" || len(ev.ChildTags()) != 2 {
		t.Fatalf("event = %#v", ev)
	}
	if len(ev.Checklist) != 2 || ev.Checklist[0].ID != 5 || ev.Checklist[1].ID != 2 {
		t.Fatalf("checklist order changed: %#v", ev.Checklist)
	}
}

func TestMembershipRemaining(t *testing.T) {
	if got := (Membership{Limit: -1, Usage: 40}).Remaining(); got != -1 {
		t.Fatalf("Remaining unlimited = %d, want -1", got)
	}
	if got := (Membership{Limit: 5, Usage: 2}).Remaining(); got != 3 {
		t.Fatalf("Remaining = %d, want 3", got)
	}
	if got := (Membership{Limit: 5, Usage: 9}).Remaining(); got != 0 {
		t.Fatalf("Remaining over = %d, want 0", got)
	}
}

func TestEventUpdateEmpty(t *testing.T) {
	if !(EventUpdate{}).Empty() {
		t.Fatalf("zero EventUpdate should be empty")
	}
	if (EventUpdate{Memo: String("")}).Empty() {
		t.Fatalf("EventUpdate clearing memo should not be empty")
	}
}

func TestNormalizeChildName(t *testing.T) {
	decomposed := "\u1100\u1161" // ᄀ + ᅡ
	if got := NormalizeChildName("  " + decomposed + " "); got != "\uac00" {
		t.Fatalf("NormalizeChildName = %q, want composed 가", got)
	}
}

func TestHealthy(t *testing.T) {
	if !(Health{Status: "healthy"}).Healthy() {
		t.Fatalf("healthy status not recognised")
	}
	if (Health{Status: "degraded"}).Healthy() {
		t.Fatalf("degraded reported healthy")
	}
}
