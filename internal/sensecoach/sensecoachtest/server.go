// Package sensecoachtest runs an in-memory Sense Coach API for tests.
//
// The fake follows the service's wire contract: JSON bodies with snake_case
// fields, multipart uploads for image analysis and checklist creation,
// FastAPI-style {"detail": ...} error bodies, and the same status codes.
// Events list in date/time order, checklists in insertion order, and
// future_only keeps events dated today or later.
package sensecoachtest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/unicode/norm"

	"github.com/sensecoach/coach/internal/sensecoach"
)

const (
	maxUploadBytes = 10 << 20

	duplicateChildDetail = "같은 이름의 아이가 이미 존재합니다."
	renameFailedDetail   = "이름 변경에 실패했습니다."
	eventNotFoundDetail  = "이벤트를 찾을 수 없습니다."
	itemNotFoundDetail   = "체크리스트 항목을 찾을 수 없습니다."
)

// Request is a recorded inbound request.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	ContentType string
	UserAgent   string
	Body        []byte
}

// Multipart parses the recorded body as a multipart form.
func (r Request) Multipart() (*multipart.Form, error) {
	mediaType, params, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		return nil, err
	}
	if mediaType != "multipart/form-data" {
		return nil, fmt.Errorf("content type %q is not multipart/form-data", mediaType)
	}
	return multipart.NewReader(bytes.NewReader(r.Body), params["boundary"]).ReadForm(maxUploadBytes)
}

// Option configures a Server.
type Option func(*Server)

// WithToday fixes the clock used for future_only filtering.
func WithToday(today func() time.Time) Option {
	return func(s *Server) {
		s.today = today
	}
}

// WithAnalysis sets the parsed events returned by both analyze endpoints.
func WithAnalysis(events ...sensecoach.ParsedEvent) Option {
	return func(s *Server) {
		s.analysis = append([]sensecoach.ParsedEvent(nil), events...)
	}
}

// WithStall makes requests to method+path block until the client gives up.
func WithStall(method, path string) Option {
	return func(s *Server) {
		s.stalls[method+" "+path] = true
	}
}

// WithMembership overrides the plan reported for every user.
func WithMembership(tier, planName string, limit int) Option {
	return func(s *Server) {
		s.tier = tier
		s.planName = planName
		s.limit = limit
	}
}

// Server is a running fake Sense Coach API.
type Server struct {
	srv *httptest.Server

	mu          sync.Mutex
	events      map[int64]*storedEvent
	items       map[int64]*storedItem
	children    []string
	usage       map[string]int
	requests    []Request
	nextEventID int64
	nextItemID  int64

	today    func() time.Time
	analysis []sensecoach.ParsedEvent
	stalls   map[string]bool
	tier     string
	planName string
	limit    int
}

type storedEvent struct {
	event sensecoach.NewEvent
	id    int64
	at    time.Time
}

type storedItem struct {
	id      int64
	eventID int64
	name    string
	checked bool
}

// NewServer starts a fake API and closes it when the test ends.
func NewServer(t testing.TB, opts ...Option) *Server {
	t.Helper()
	s := &Server{
		events:   make(map[int64]*storedEvent),
		items:    make(map[int64]*storedItem),
		usage:    make(map[string]int),
		stalls:   make(map[string]bool),
		today:    time.Now,
		tier:     "FREE",
		planName: "무료 회원",
		limit:    5,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.srv = httptest.NewServer(s.routes())
	t.Cleanup(s.srv.Close)
	return s
}

// URL returns the fake's base URL.
func (s *Server) URL() string {
	return s.srv.URL
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent request, or false when none arrived.
func (s *Server) LastRequest() (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}, false
	}
	return s.requests[len(s.requests)-1], true
}

// SeedEvent stores an event directly and returns its id.
func (s *Server) SeedEvent(ev sensecoach.NewEvent) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertEvent(ev)
}

// SeedChild registers a child name directly.
func (s *Server) SeedChild(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children = append(s.children, norm.NFC.String(name))
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record, s.stall)

	r.Get("/", s.handleRoot)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/analyze/image", s.handleAnalyzeImage)

		r.Get("/events", s.handleListEvents)
		r.Post("/events", s.handleCreateEvent)
		r.Get("/events/{id}", s.handleGetEvent)
		r.Put("/events/{id}", s.handleUpdateEvent)
		r.Delete("/events/{id}", s.handleDeleteEvent)
		r.Post("/events/{id}/checklist", s.handleAddChecklistItem)

		r.Put("/checklist/{id}", s.handleUpdateChecklistItem)
		r.Delete("/checklist/{id}", s.handleDeleteChecklistItem)

		r.Get("/children", s.handleListChildren)
		r.Post("/children", s.handleAddChild)
		r.Put("/children", s.handleRenameChild)
		r.Delete("/children/{name}", s.handleDeleteChild)

		r.Get("/user/{userID}/membership", s.handleMembership)
		r.Delete("/data/reset", s.handleReset)
	})
	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:      r.Method,
			Path:        r.URL.Path,
			Query:       r.URL.Query(),
			ContentType: r.Header.Get("Content-Type"),
			UserAgent:   r.Header.Get("User-Agent"),
			Body:        body,
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) stall(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		stalled := s.stalls[r.Method+" "+r.URL.Path]
		s.mu.Unlock()
		if stalled {
			<-r.Context().Done()
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Sense Coach API v1.0.0", "status": "OK"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, sensecoach.Health{Status: "healthy"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req sensecoach.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeFieldErrors(w, "user_id")
		return
	}
	writeJSON(w, http.StatusOK, s.analyze(req.UserID, req.Country))
}

func (s *Server) handleAnalyzeImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "expected multipart form")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeFieldErrors(w, "file")
		return
	}
	_ = file.Close()
	userID := r.FormValue("user_id")
	if strings.TrimSpace(userID) == "" {
		writeFieldErrors(w, "user_id")
		return
	}
	country := r.FormValue("country")
	if country == "" {
		country = "네덜란드"
	}
	writeJSON(w, http.StatusOK, s.analyze(userID, country))
}

func (s *Server) analyze(userID, country string) sensecoach.AnalysisResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage[userID]++
	events := make([]sensecoach.ParsedEvent, len(s.analysis))
	for i, ev := range s.analysis {
		if ev.Country == "" {
			ev.Country = country
		}
		events[i] = ev
	}
	return sensecoach.AnalysisResult{
		ParsedEvents: events,
		Usage:        s.usage[userID],
		Limit:        -1,
	}
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	futureOnly := false
	if raw := r.URL.Query().Get("future_only"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeFieldErrors(w, "future_only")
			return
		}
		futureOnly = parsed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	today := s.today().Format(sensecoach.DateLayout)
	stored := make([]*storedEvent, 0, len(s.events))
	for _, ev := range s.events {
		if futureOnly && ev.event.Date < today {
			continue
		}
		stored = append(stored, ev)
	}
	sort.Slice(stored, func(i, j int) bool {
		a, b := stored[i].event, stored[j].event
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return stored[i].id < stored[j].id
	})
	events := make([]sensecoach.Event, 0, len(stored))
	for _, ev := range stored {
		events = append(events, s.render(ev))
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid JSON body")
		return
	}
	var missing []string
	for _, key := range []string{"event_name", "event_date"} {
		if _, ok := fields[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		writeFieldErrors(w, missing...)
		return
	}
	var ev sensecoach.NewEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if _, ok := fields["child_tag"]; !ok {
		ev.ChildTag = sensecoach.NoChildTag
	}

	s.mu.Lock()
	id := s.insertEvent(ev)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"message": "이벤트가 저장되었습니다.", "event_id": id})
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, found := s.events[id]
	if !found {
		writeDetail(w, http.StatusNotFound, eventNotFoundDetail)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"event": s.render(ev)})
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var update sensecoach.EventUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid JSON body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, found := s.events[id]
	if !found {
		writeDetail(w, http.StatusNotFound, eventNotFoundDetail)
		return
	}
	merge(&ev.event.Name, update.Name)
	merge(&ev.event.Date, update.Date)
	merge(&ev.event.Time, update.Time)
	merge(&ev.event.Country, update.Country)
	merge(&ev.event.ChildTag, update.ChildTag)
	merge(&ev.event.Memo, update.Memo)
	writeJSON(w, http.StatusOK, sensecoach.Ack{Message: "이벤트가 수정되었습니다."})
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.events[id]; !found {
		writeDetail(w, http.StatusNotFound, eventNotFoundDetail)
		return
	}
	delete(s.events, id)
	for itemID, item := range s.items {
		if item.eventID == id {
			delete(s.items, itemID)
		}
	}
	writeJSON(w, http.StatusOK, sensecoach.Ack{Message: "이벤트가 삭제되었습니다."})
}

func (s *Server) handleAddChecklistItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "expected multipart form")
		return
	}
	name := strings.TrimSpace(r.FormValue("item_name"))
	if name == "" {
		writeFieldErrors(w, "item_name")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.events[id]; !found {
		writeDetail(w, http.StatusNotFound, eventNotFoundDetail)
		return
	}
	s.insertItem(id, name)
	writeJSON(w, http.StatusOK, sensecoach.Ack{Message: fmt.Sprintf("'%s'이(가) 추가되었습니다.", name)})
}

func (s *Server) handleUpdateChecklistItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Checked *bool `json:"is_checked"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Checked == nil {
		writeFieldErrors(w, "is_checked")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	item, found := s.items[id]
	if !found {
		writeDetail(w, http.StatusNotFound, itemNotFoundDetail)
		return
	}
	item.checked = *body.Checked
	writeJSON(w, http.StatusOK, sensecoach.Ack{Message: "체크리스트가 업데이트되었습니다."})
}

func (s *Server) handleDeleteChecklistItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.items[id]; !found {
		writeDetail(w, http.StatusNotFound, itemNotFoundDetail)
		return
	}
	delete(s.items, id)
	writeJSON(w, http.StatusOK, sensecoach.Ack{Message: "체크리스트 항목이 삭제되었습니다."})
}

func (s *Server) handleListChildren(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	children := append([]string{}, s.children...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"children": children})
}

func (s *Server) handleAddChild(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name *string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == nil {
		writeFieldErrors(w, "name")
		return
	}
	name := norm.NFC.String(*body.Name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.childIndex(name) >= 0 {
		writeDetail(w, http.StatusBadRequest, duplicateChildDetail)
		return
	}
	s.children = append(s.children, name)
	writeJSON(w, http.StatusOK, sensecoach.Ack{Message: fmt.Sprintf("'%s'이(가) 추가되었습니다.", name)})
}

func (s *Server) handleRenameChild(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OldName *string `json:"old_name"`
		NewName *string `json:"new_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.OldName == nil || body.NewName == nil {
		writeFieldErrors(w, "old_name", "new_name")
		return
	}
	oldName := norm.NFC.String(*body.OldName)
	newName := norm.NFC.String(*body.NewName)
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.childIndex(oldName)
	if idx < 0 || (newName != oldName && s.childIndex(newName) >= 0) {
		writeDetail(w, http.StatusBadRequest, renameFailedDetail)
		return
	}
	s.children[idx] = newName
	for _, ev := range s.events {
		if ev.event.ChildTag == oldName {
			ev.event.ChildTag = newName
		}
	}
	writeJSON(w, http.StatusOK, sensecoach.Ack{Message: fmt.Sprintf("'%s'이(가) '%s'으로 변경되었습니다.", oldName, newName)})
}

func (s *Server) handleDeleteChild(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(name); err == nil {
			name = unescaped
		}
	}
	name = norm.NFC.String(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.childIndex(name); idx >= 0 {
		s.children = append(s.children[:idx], s.children[idx+1:]...)
	}
	writeJSON(w, http.StatusOK, sensecoach.Ack{Message: fmt.Sprintf("'%s'이(가) 삭제되었습니다.", name)})
}

func (s *Server) handleMembership(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, sensecoach.Membership{
		UserID:   userID,
		Tier:     s.tier,
		Usage:    s.usage[userID],
		Limit:    s.limit,
		PlanName: s.planName,
	})
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[int64]*storedEvent)
	s.items = make(map[int64]*storedItem)
	s.children = nil
	writeJSON(w, http.StatusOK, sensecoach.Ack{Message: "모든 데이터가 초기화되었습니다."})
}

// insertEvent requires s.mu.
func (s *Server) insertEvent(ev sensecoach.NewEvent) int64 {
	s.nextEventID++
	id := s.nextEventID
	if ev.ChecklistItems == nil {
		ev.ChecklistItems = []string{}
	}
	s.events[id] = &storedEvent{event: ev, id: id, at: s.today()}
	for _, name := range ev.ChecklistItems {
		s.insertItem(id, name)
	}
	return id
}

// insertItem requires s.mu.
func (s *Server) insertItem(eventID int64, name string) {
	s.nextItemID++
	s.items[s.nextItemID] = &storedItem{id: s.nextItemID, eventID: eventID, name: strings.TrimSpace(name)}
}

// render requires s.mu.
func (s *Server) render(ev *storedEvent) sensecoach.Event {
	var items []*storedItem
	for _, item := range s.items {
		if item.eventID == ev.id {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].id < items[j].id })
	checklist := make([]sensecoach.ChecklistItem, 0, len(items))
	for _, item := range items {
		checklist = append(checklist, sensecoach.ChecklistItem{ID: item.id, Name: item.name, Checked: item.checked})
	}
	return sensecoach.Event{
		ID:              ev.id,
		Name:            ev.event.Name,
		Date:            ev.event.Date,
		Time:            ev.event.Time,
		Country:         ev.event.Country,
		ChildTag:        ev.event.ChildTag,
		Translation:     ev.event.Translation,
		CulturalContext: ev.event.CulturalContext,
		Tips:            ev.event.Tips,
		Memo:            ev.event.Memo,
		ChecklistItems:  append([]string{}, ev.event.ChecklistItems...),
		CreatedAt:       ev.at.UTC().Format(time.RFC3339),
		Checklist:       checklist,
	}
}

// childIndex requires s.mu.
func (s *Server) childIndex(name string) int {
	for i, existing := range s.children {
		if existing == name {
			return i
		}
	}
	return -1
}

func merge(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeFieldErrors(w, "id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeFieldErrors(w http.ResponseWriter, fields ...string) {
	type fieldError struct {
		Loc  []string `json:"loc"`
		Msg  string   `json:"msg"`
		Type string   `json:"type"`
	}
	errs := make([]fieldError, 0, len(fields))
	for _, field := range fields {
		errs = append(errs, fieldError{Loc: []string{"body", field}, Msg: "field required", Type: "value_error.missing"})
	}
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": errs})
}
