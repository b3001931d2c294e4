package sensecoach_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensecoach/coach/internal/sensecoach"
	"github.com/sensecoach/coach/internal/sensecoach/sensecoachtest"
)

func fixedToday() time.Time {
	return time.Date(2025, time.October, 1, 9, 0, 0, 0, time.UTC)
}

func newClient(t *testing.T, fake *sensecoachtest.Server) *sensecoach.Client {
	t.Helper()
	c, err := sensecoach.NewClient(sensecoach.Options{BaseURL: fake.URL(), Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func TestContract_SavedEventsGetDistinctIDs(t *testing.T) {
	fake := sensecoachtest.NewServer(t, sensecoachtest.WithToday(fixedToday))
	c := newClient(t, fake)
	ctx := context.Background()

	seen := map[int64]bool{}
	for _, name := range []string{"소풍", "학부모 상담", "체육대회", "소풍"} {
		ev, err := c.SaveEvent(ctx, sensecoach.NewEvent{Name: name, Date: "2025-10-05"})
		require.NoError(t, err)
		assert.Positive(t, ev.ID)
		assert.False(t, seen[ev.ID], "id %d reused", ev.ID)
		seen[ev.ID] = true
	}
}

func TestContract_DuplicateChildRejected(t *testing.T) {
	fake := sensecoachtest.NewServer(t)
	c := newClient(t, fake)
	ctx := context.Background()

	_, err := c.AddChild(ctx, "A")
	require.NoError(t, err)

	_, err = c.AddChild(ctx, "A")
	require.Error(t, err)
	assert.ErrorIs(t, err, sensecoach.ErrDuplicate)
	assert.Equal(t, "같은 이름의 아이가 이미 존재합니다.", sensecoach.Message(err))

	children, err := c.GetChildren(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, children)
}

func TestContract_DuplicateChildAcrossUnicodeForms(t *testing.T) {
	fake := sensecoachtest.NewServer(t)
	c := newClient(t, fake)
	ctx := context.Background()

	_, err := c.AddChild(ctx, "\uac00")
	require.NoError(t, err)
	_, err = c.AddChild(ctx, "\u1100\u1161")
	assert.ErrorIs(t, err, sensecoach.ErrDuplicate)
}

func TestContract_DeletedEventIsNotFound(t *testing.T) {
	fake := sensecoachtest.NewServer(t)
	c := newClient(t, fake)
	ctx := context.Background()

	ev, err := c.SaveEvent(ctx, sensecoach.NewEvent{Name: "소풍", Date: "2025-10-05", ChecklistItems: []string{"도시락"}})
	require.NoError(t, err)

	_, err = c.DeleteEvent(ctx, ev.ID)
	require.NoError(t, err)

	_, err = c.GetEventByID(ctx, ev.ID)
	assert.ErrorIs(t, err, sensecoach.ErrNotFound)

	events, err := c.GetEvents(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestContract_ChecklistToggleRoundTrip(t *testing.T) {
	fake := sensecoachtest.NewServer(t)
	c := newClient(t, fake)
	ctx := context.Background()

	ev, err := c.SaveEvent(ctx, sensecoach.NewEvent{Name: "소풍", Date: "2025-10-05", ChecklistItems: []string{"도시락", "물통"}})
	require.NoError(t, err)

	fetched, err := c.GetEventByID(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, fetched.Checklist, 2)
	target := fetched.Checklist[1]
	assert.False(t, target.Checked)

	item, err := c.UpdateChecklistItem(ctx, target.ID, true)
	require.NoError(t, err)
	assert.True(t, item.Checked)

	fetched, err = c.GetEventByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.True(t, fetched.Checklist[1].Checked)
	assert.False(t, fetched.Checklist[0].Checked)

	_, err = c.UpdateChecklistItem(ctx, target.ID, false)
	require.NoError(t, err)
	fetched, err = c.GetEventByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.False(t, fetched.Checklist[1].Checked)
}

func TestContract_ChecklistKeepsServerOrder(t *testing.T) {
	fake := sensecoachtest.NewServer(t)
	c := newClient(t, fake)
	ctx := context.Background()

	ev, err := c.SaveEvent(ctx, sensecoach.NewEvent{Name: "소풍", Date: "2025-10-05", ChecklistItems: []string{"하", "가"}})
	require.NoError(t, err)
	_, err = c.AddChecklistItem(ctx, ev.ID, "나")
	require.NoError(t, err)

	fetched, err := c.GetEventByID(ctx, ev.ID)
	require.NoError(t, err)
	names := make([]string, 0, len(fetched.Checklist))
	for _, item := range fetched.Checklist {
		names = append(names, item.Name)
	}
	assert.Equal(t, []string{"하", "가", "나"}, names)

	_, err = c.DeleteChecklistItem(ctx, fetched.Checklist[0].ID)
	require.NoError(t, err)
	fetched, err = c.GetEventByID(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, fetched.Checklist, 2)
	assert.Equal(t, "가", fetched.Checklist[0].Name)

	req, ok := fake.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "/api/events/1", req.Path)
}

func TestContract_FutureOnlyIsStrictSubset(t *testing.T) {
	fake := sensecoachtest.NewServer(t, sensecoachtest.WithToday(fixedToday))
	c := newClient(t, fake)
	ctx := context.Background()

	for _, date := range []string{"2025-09-01", "2025-09-30", "2025-10-01", "2025-12-24"} {
		_, err := c.SaveEvent(ctx, sensecoach.NewEvent{Name: "행사 " + date, Date: date})
		require.NoError(t, err)
	}

	all, err := c.GetEvents(ctx, false)
	require.NoError(t, err)
	future, err := c.GetEvents(ctx, true)
	require.NoError(t, err)

	require.Len(t, all, 4)
	require.Less(t, len(future), len(all))
	allIDs := map[int64]bool{}
	for _, ev := range all {
		allIDs[ev.ID] = true
	}
	for _, ev := range future {
		assert.True(t, allIDs[ev.ID], "future event %d missing from full list", ev.ID)
		assert.GreaterOrEqual(t, ev.Date, "2025-10-01")
	}
	assert.Len(t, future, 2, "today counts as future")
}

func TestContract_StalledEndpointTimesOut(t *testing.T) {
	fake := sensecoachtest.NewServer(t, sensecoachtest.WithStall("GET", "/api/events"))
	c, err := sensecoach.NewClient(sensecoach.Options{BaseURL: fake.URL(), Timeout: 150 * time.Millisecond})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := c.GetEvents(context.Background(), false)
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, sensecoach.IsTimeout(err), "error %v is not timeout-classified", err)
		assert.ErrorIs(t, err, sensecoach.ErrNetwork)
	case <-time.After(5 * time.Second):
		t.Fatal("GetEvents hung past its timeout")
	}
}

func TestContract_CallerDeadlineAlsoTimesOut(t *testing.T) {
	fake := sensecoachtest.NewServer(t, sensecoachtest.WithStall("GET", "/api/health"))
	c := newClient(t, fake)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := c.CheckHealth(ctx)
	assert.True(t, sensecoach.IsTimeout(err), "error %v is not timeout-classified", err)
}

func TestContract_AnalyzeNoticeReturnsParsedEventsUnmodified(t *testing.T) {
	want := sensecoach.ParsedEvent{
		Name:           "소풍",
		Date:           "2025-10-05",
		Country:        "네덜란드",
		ChecklistItems: []string{"도시락"},
	}
	fake := sensecoachtest.NewServer(t, sensecoachtest.WithAnalysis(want))
	c := newClient(t, fake)

	result, err := c.AnalyzeNotice(context.Background(), "소풍 10/5", "네덜란드", "u1")
	require.NoError(t, err)
	require.Len(t, result.ParsedEvents, 1)
	assert.Equal(t, want, result.ParsedEvents[0])
	assert.True(t, result.Unlimited())
	assert.Equal(t, 1, result.Usage)
}

func TestContract_AnalyzeImageSendsJPEGPart(t *testing.T) {
	fake := sensecoachtest.NewServer(t, sensecoachtest.WithAnalysis(sensecoach.ParsedEvent{Name: "체육대회", Date: "2025-10-10"}))
	c := newClient(t, fake)

	result, err := c.AnalyzeImage(context.Background(), strings.NewReader("\xff\xd8\xff"), "", "독일", "u9", "")
	require.NoError(t, err)
	require.Len(t, result.ParsedEvents, 1)
	assert.Equal(t, "독일", result.ParsedEvents[0].Country)

	req, ok := fake.LastRequest()
	require.True(t, ok)
	form, err := req.Multipart()
	require.NoError(t, err)
	require.Len(t, form.File["file"], 1)
	assert.Equal(t, "image/jpeg", form.File["file"][0].Header.Get("Content-Type"))
	assert.Equal(t, []string{"u9"}, form.Value["user_id"])
	assert.NotContains(t, form.Value, "text")

	membership, err := c.GetMembership(context.Background(), "u9")
	require.NoError(t, err)
	assert.Equal(t, 1, membership.Usage)
}

func TestContract_PartialUpdateLeavesOtherFields(t *testing.T) {
	fake := sensecoachtest.NewServer(t)
	c := newClient(t, fake)
	ctx := context.Background()

	ev, err := c.SaveEvent(ctx, sensecoach.NewEvent{Name: "소풍", Date: "2025-10-05", Time: "09:00", ChildTag: "민수"})
	require.NoError(t, err)

	_, err = c.UpdateEvent(ctx, ev.ID, sensecoach.EventUpdate{Memo: sensecoach.String("우비 챙기기")})
	require.NoError(t, err)

	fetched, err := c.GetEventByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "우비 챙기기", fetched.Memo)
	assert.Equal(t, "09:00", fetched.Time)
	assert.Equal(t, []string{"민수"}, fetched.ChildTags())

	_, err = c.UpdateEvent(ctx, 999, sensecoach.EventUpdate{Memo: sensecoach.String("x")})
	assert.ErrorIs(t, err, sensecoach.ErrNotFound)
}

func TestContract_DeleteChildKeepsEventTags(t *testing.T) {
	fake := sensecoachtest.NewServer(t)
	c := newClient(t, fake)
	ctx := context.Background()

	_, err := c.AddChild(ctx, "민수/첫째")
	require.NoError(t, err)
	ev, err := c.SaveEvent(ctx, sensecoach.NewEvent{Name: "소풍", Date: "2025-10-05", ChildTag: "민수/첫째"})
	require.NoError(t, err)

	_, err = c.DeleteChild(ctx, "민수/첫째")
	require.NoError(t, err)

	children, err := c.GetChildren(ctx)
	require.NoError(t, err)
	assert.Empty(t, children)

	fetched, err := c.GetEventByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "민수/첫째", fetched.ChildTag)
}

func TestContract_RenameChild(t *testing.T) {
	fake := sensecoachtest.NewServer(t)
	c := newClient(t, fake)
	ctx := context.Background()

	for _, name := range []string{"민수", "지아"} {
		_, err := c.AddChild(ctx, name)
		require.NoError(t, err)
	}
	ev, err := c.SaveEvent(ctx, sensecoach.NewEvent{Name: "소풍", Date: "2025-10-05", ChildTag: "민수"})
	require.NoError(t, err)

	_, err = c.RenameChild(ctx, "민수", "지아")
	assert.ErrorIs(t, err, sensecoach.ErrDuplicate)

	_, err = c.RenameChild(ctx, "민수", "민준")
	require.NoError(t, err)
	children, err := c.GetChildren(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"민준", "지아"}, children)

	fetched, err := c.GetEventByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "민준", fetched.ChildTag)
}

func TestContract_ResetData(t *testing.T) {
	fake := sensecoachtest.NewServer(t)
	c := newClient(t, fake)
	ctx := context.Background()

	fake.SeedChild("민수")
	fake.SeedEvent(sensecoach.NewEvent{Name: "소풍", Date: "2025-10-05"})

	_, err := c.ResetData(ctx)
	require.NoError(t, err)

	events, err := c.GetEvents(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, events)
	children, err := c.GetChildren(ctx)
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestContract_ConcurrentCallsAreIndependent(t *testing.T) {
	fake := sensecoachtest.NewServer(t)
	c := newClient(t, fake)
	ctx := context.Background()
	fake.SeedEvent(sensecoach.NewEvent{Name: "소풍", Date: "2025-10-05"})

	const n = 8
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := c.GetEvents(ctx, false)
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}
	count := 0
	for _, req := range fake.Requests() {
		if req.Path == "/api/events" {
			count++
		}
	}
	assert.Equal(t, n, count, "identical calls must not be coalesced")
}

func TestContract_ErrorsAreNeverSwallowed(t *testing.T) {
	fake := sensecoachtest.NewServer(t)
	c := newClient(t, fake)

	_, err := c.AddChecklistItem(context.Background(), 404, "물통")
	var apiErr *sensecoach.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "AddChecklistItem", apiErr.Op)
	assert.Equal(t, 404, apiErr.Status)
	assert.ErrorIs(t, err, sensecoach.ErrNotFound)
}
