package sensecoachtest

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensecoach/coach/internal/sensecoach"
)

func TestServer_ValidationErrorsUseFieldList(t *testing.T) {
	s := NewServer(t)

	resp, err := http.Post(s.URL()+"/api/events", "application/json", strings.NewReader(`{"event_name":"소풍"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var body struct {
		Detail []struct {
			Loc []string `json:"loc"`
			Msg string   `json:"msg"`
		} `json:"detail"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Detail, 1)
	assert.Equal(t, []string{"body", "event_date"}, body.Detail[0].Loc)
}

func TestServer_NotFoundUsesStringDetail(t *testing.T) {
	s := NewServer(t)

	resp, err := http.Get(s.URL() + "/api/events/42")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, eventNotFoundDetail, body["detail"])
}

func TestServer_ListOrdersByDateThenTime(t *testing.T) {
	s := NewServer(t, WithToday(func() time.Time { return time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC) }))
	late := s.SeedEvent(sensecoach.NewEvent{Name: "late", Date: "2025-10-05", Time: "15:00"})
	early := s.SeedEvent(sensecoach.NewEvent{Name: "early", Date: "2025-10-05", Time: "09:00"})
	first := s.SeedEvent(sensecoach.NewEvent{Name: "first", Date: "2025-10-02"})
	past := s.SeedEvent(sensecoach.NewEvent{Name: "past", Date: "2025-09-30"})

	resp, err := http.Get(s.URL() + "/api/events?future_only=true")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Events []sensecoach.Event `json:"events"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	ids := make([]int64, 0, len(body.Events))
	for _, ev := range body.Events {
		ids = append(ids, ev.ID)
	}
	assert.Equal(t, []int64{first, early, late}, ids)
	assert.NotContains(t, ids, past)
}

func TestServer_RejectsMalformedFutureOnly(t *testing.T) {
	s := NewServer(t)

	resp, err := http.Get(s.URL() + "/api/events?future_only=maybe")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestServer_RecordsRequests(t *testing.T) {
	s := NewServer(t)

	_, ok := s.LastRequest()
	assert.False(t, ok)

	resp, err := http.Get(s.URL() + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()

	req, ok := s.LastRequest()
	require.True(t, ok)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/api/health", req.Path)
	assert.Len(t, s.Requests(), 1)
}

func TestServer_MembershipOverride(t *testing.T) {
	s := NewServer(t, WithMembership("PREMIUM", "프리미엄", -1))

	resp, err := http.Get(s.URL() + "/api/user/u1/membership")
	require.NoError(t, err)
	defer resp.Body.Close()

	var m sensecoach.Membership
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	assert.Equal(t, "u1", m.UserID)
	assert.Equal(t, "PREMIUM", m.Tier)
	assert.Equal(t, -1, m.Remaining())
}
