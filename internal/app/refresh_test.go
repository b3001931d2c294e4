package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sensecoach/coach/internal/sensecoach"
	"github.com/sensecoach/coach/internal/sensecoach/sensecoachtest"
	"github.com/sensecoach/coach/internal/state"
)

func fixedToday() time.Time {
	return time.Date(2025, time.October, 1, 9, 0, 0, 0, time.UTC)
}

func newTestRefresher(t *testing.T, fake *sensecoachtest.Server, timeout time.Duration, logs *bytes.Buffer) *Refresher {
	t.Helper()
	client, err := sensecoach.NewClient(sensecoach.Options{BaseURL: fake.URL(), Timeout: timeout})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return &Refresher{
		Client: client,
		Store:  &state.Store{},
		UserID: "device-1",
		Logger: newLogger(logs, slog.LevelDebug),
	}
}

func TestRefresh_LoadsEventsChildrenAndMembership(t *testing.T) {
	fake := sensecoachtest.NewServer(t, sensecoachtest.WithToday(fixedToday))
	fake.SeedChild("민수")
	fake.SeedEvent(sensecoach.NewEvent{Name: "소풍", Date: "2025-10-05"})
	fake.SeedEvent(sensecoach.NewEvent{Name: "개학", Date: "2025-09-01"})

	var logs bytes.Buffer
	r := newTestRefresher(t, fake, 5*time.Second, &logs)

	if err := r.Refresh(context.Background(), true); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	snap := r.Store.Snapshot()
	if !snap.Loaded {
		t.Fatalf("snapshot not loaded")
	}
	if len(snap.Events) != 1 || snap.Events[0].Name != "소풍" {
		t.Fatalf("events = %#v, want only the upcoming event", snap.Events)
	}
	if len(snap.Children) != 1 || snap.Children[0] != "민수" {
		t.Fatalf("children = %#v, want [민수]", snap.Children)
	}
	if !snap.HasMembership || snap.Membership.UserID != "device-1" || snap.Membership.Tier != "FREE" {
		t.Fatalf("membership = %#v (has=%v), want FREE plan for device-1", snap.Membership, snap.HasMembership)
	}

	if err := r.Refresh(context.Background(), false); err != nil {
		t.Fatalf("Refresh all: %v", err)
	}
	if got := len(r.Store.Snapshot().Events); got != 2 {
		t.Fatalf("events with future_only=false = %d, want 2", got)
	}
}

func TestRefresh_EventsFailureKeepsPreviousData(t *testing.T) {
	fake := sensecoachtest.NewServer(t,
		sensecoachtest.WithToday(fixedToday),
		sensecoachtest.WithStall(http.MethodGet, "/api/events"),
	)

	var logs bytes.Buffer
	r := newTestRefresher(t, fake, 150*time.Millisecond, &logs)
	r.Store.Update([]sensecoach.Event{{ID: 7, Name: "기존"}}, []string{"지우"}, nil, nil)

	err := r.Refresh(context.Background(), true)
	if err == nil {
		t.Fatalf("Refresh succeeded, want timeout")
	}
	if !errors.Is(err, sensecoach.ErrTimeout) {
		t.Fatalf("Refresh error = %v, want ErrTimeout", err)
	}
	if !strings.Contains(err.Error(), "load events") {
		t.Fatalf("Refresh error = %q, want load events context", err)
	}

	snap := r.Store.Snapshot()
	if len(snap.Events) != 1 || snap.Events[0].ID != 7 {
		t.Fatalf("events = %#v, want previous data kept", snap.Events)
	}
	if snap.LastError == nil || snap.ConsecutiveFailures != 1 {
		t.Fatalf("snapshot error = %v failures = %d, want recorded failure", snap.LastError, snap.ConsecutiveFailures)
	}
	if !strings.Contains(logs.String(), "refresh failed") {
		t.Fatalf("logs = %q, want refresh failure warning", logs.String())
	}
}

func TestRefresh_MembershipIsBestEffort(t *testing.T) {
	fake := sensecoachtest.NewServer(t,
		sensecoachtest.WithToday(fixedToday),
		sensecoachtest.WithStall(http.MethodGet, "/api/user/device-1/membership"),
	)
	fake.SeedChild("민수")

	var logs bytes.Buffer
	r := newTestRefresher(t, fake, 150*time.Millisecond, &logs)
	r.Store.Update(nil, nil, &sensecoach.Membership{Tier: "PREMIUM", Limit: -1}, nil)

	if err := r.Refresh(context.Background(), true); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	snap := r.Store.Snapshot()
	if len(snap.Children) != 1 {
		t.Fatalf("children = %#v, want refreshed list", snap.Children)
	}
	if !snap.HasMembership || snap.Membership.Tier != "PREMIUM" {
		t.Fatalf("membership = %#v, want previous plan kept", snap.Membership)
	}
	if !strings.Contains(logs.String(), "membership refresh failed") {
		t.Fatalf("logs = %q, want membership warning", logs.String())
	}
}

func TestRefresh_SkipsMembershipWithoutUserID(t *testing.T) {
	fake := sensecoachtest.NewServer(t, sensecoachtest.WithToday(fixedToday))

	var logs bytes.Buffer
	r := newTestRefresher(t, fake, 5*time.Second, &logs)
	r.UserID = ""

	if err := r.Refresh(context.Background(), true); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	for _, req := range fake.Requests() {
		if strings.HasPrefix(req.Path, "/api/user/") {
			t.Fatalf("unexpected membership request %s %s", req.Method, req.Path)
		}
	}
	if r.Store.Snapshot().HasMembership {
		t.Fatalf("membership set without a user id")
	}
}

func TestRefresh_Unconfigured(t *testing.T) {
	var r *Refresher
	if err := r.Refresh(context.Background(), true); err == nil {
		t.Fatalf("nil refresher returned no error")
	}
	if err := (&Refresher{}).Refresh(context.Background(), true); err == nil {
		t.Fatalf("empty refresher returned no error")
	}
}

func TestOpenLogger_AppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "coach.log")

	logger, closeLog, err := openLogger(path, false)
	if err != nil {
		t.Fatalf("openLogger: %v", err)
	}
	logger.Info("first")
	logger.Debug("hidden")
	closeLog()

	logger, closeLog, err = openLogger(path, true)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	logger.Debug("second")
	closeLog()

	data := readFile(t, path)
	if !strings.Contains(data, "msg=first") || !strings.Contains(data, "msg=second") {
		t.Fatalf("log = %q, want both entries", data)
	}
	if strings.Contains(data, "hidden") {
		t.Fatalf("log = %q, debug entry written at info level", data)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}
