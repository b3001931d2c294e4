package sensecoach

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// DataClient defines every operation of the Sense Coach API.
// This interface is implemented by *Client and can be used for testing.
type DataClient interface {
	CheckHealth(ctx context.Context) (*Health, error)
	AnalyzeNotice(ctx context.Context, text, country, userID string) (*AnalysisResult, error)
	AnalyzeImage(ctx context.Context, image io.Reader, filename, country, userID, text string) (*AnalysisResult, error)
	GetEvents(ctx context.Context, futureOnly bool) ([]Event, error)
	SaveEvent(ctx context.Context, event NewEvent) (*Event, error)
	GetEventByID(ctx context.Context, id int64) (*Event, error)
	UpdateEvent(ctx context.Context, id int64, update EventUpdate) (*Ack, error)
	DeleteEvent(ctx context.Context, id int64) (*Ack, error)
	UpdateChecklistItem(ctx context.Context, id int64, checked bool) (*ChecklistItem, error)
	AddChecklistItem(ctx context.Context, eventID int64, name string) (*Ack, error)
	DeleteChecklistItem(ctx context.Context, id int64) (*Ack, error)
	GetChildren(ctx context.Context) ([]string, error)
	AddChild(ctx context.Context, name string) (*Ack, error)
	DeleteChild(ctx context.Context, name string) (*Ack, error)
	RenameChild(ctx context.Context, oldName, newName string) (*Ack, error)
	GetMembership(ctx context.Context, userID string) (*Membership, error)
	ResetData(ctx context.Context) (*Ack, error)
}

// Ensure Client implements DataClient at compile time.
var _ DataClient = (*Client)(nil)

const (
	// DefaultBaseURL is the production Sense Coach API.
	DefaultBaseURL = "https://sense-coach-api.onrender.com"
	// DefaultTimeout bounds every request, body included.
	DefaultTimeout = 30 * time.Second

	defaultUserAgent  = "coach/0.1"
	defaultImageName  = "notice.jpg"
	imageContentType  = "image/jpeg"
	jsonContentType   = "application/json"
	maxErrorBodyBytes = 64 << 10
)

// Options configure a Client.
type Options struct {
	BaseURL    string        // empty uses DefaultBaseURL; host:port gets http://
	Timeout    time.Duration // zero uses DefaultTimeout
	UserAgent  string
	HTTPClient *http.Client // overrides the transport; Timeout still applies when unset on it
	Logger     *slog.Logger
}

// Client talks to the Sense Coach HTTP API. It holds no mutable state and is
// safe for concurrent use.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	logger    *slog.Logger
}

// NewClient builds a Client from opts.
func NewClient(opts Options) (*Client, error) {
	base, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = newHTTPClient(timeout)
	} else if httpClient.Timeout == 0 {
		dup := *httpClient
		dup.Timeout = timeout
		httpClient = &dup
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		baseURL:   base,
		http:      httpClient,
		userAgent: userAgent,
		logger:    logger,
	}, nil
}

// BaseURL returns the resolved service root.
func (c *Client) BaseURL() string {
	if c == nil || c.baseURL == nil {
		return ""
	}
	return c.baseURL.String()
}

// CheckHealth retrieves the service status.
func (c *Client) CheckHealth(ctx context.Context) (*Health, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload Health
	if err := c.do(ctx, call{op: "CheckHealth", method: http.MethodGet, rel: apiPath("health")}, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// AnalyzeNotice submits notice text for analysis.
func (c *Client) AnalyzeNotice(ctx context.Context, text, country, userID string) (*AnalysisResult, error) {
	const op = "AnalyzeNotice"
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(text) == "" {
		return nil, newError(op, ErrValidation, "notice text is required")
	}
	body, err := jsonBody(AnalyzeRequest{Text: text, Country: country, UserID: userID})
	if err != nil {
		return nil, err
	}
	var payload AnalysisResult
	if err := c.do(ctx, call{op: op, method: http.MethodPost, rel: apiPath("analyze"), body: body, contentType: jsonContentType}, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// AnalyzeImage submits a notice photo for analysis. The image is sent as the
// multipart field "file" with type image/jpeg; text is optional context.
func (c *Client) AnalyzeImage(ctx context.Context, image io.Reader, filename, country, userID, text string) (*AnalysisResult, error) {
	const op = "AnalyzeImage"
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if image == nil {
		return nil, newError(op, ErrValidation, "image is required")
	}
	if strings.TrimSpace(filename) == "" {
		filename = defaultImageName
	}

	form := newForm()
	if err := form.file("file", filename, imageContentType, image); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	form.field("country", country)
	form.field("user_id", userID)
	if text != "" {
		form.field("text", text)
	}
	body, contentType, err := form.close()
	if err != nil {
		return nil, err
	}

	var payload AnalysisResult
	if err := c.do(ctx, call{op: op, method: http.MethodPost, rel: apiPath("analyze", "image"), body: body, contentType: contentType}, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// GetEvents lists saved events in server order. futureOnly asks the service to
// drop events dated before today.
func (c *Client) GetEvents(ctx context.Context, futureOnly bool) ([]Event, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	values := url.Values{}
	values.Set("future_only", strconv.FormatBool(futureOnly))
	rel := apiPath("events")
	rel.RawQuery = values.Encode()
	var payload eventsResponse
	if err := c.do(ctx, call{op: "GetEvents", method: http.MethodGet, rel: rel}, &payload); err != nil {
		return nil, err
	}
	return payload.Events, nil
}

// SaveEvent persists a new event and returns it with the server-assigned ID.
func (c *Client) SaveEvent(ctx context.Context, event NewEvent) (*Event, error) {
	const op = "SaveEvent"
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(event.Name) == "" {
		return nil, newError(op, ErrValidation, "event name is required")
	}
	if strings.TrimSpace(event.Date) == "" {
		return nil, newError(op, ErrValidation, "event date is required")
	}
	if parseDate(event.Date).IsZero() {
		return nil, newError(op, ErrValidation, fmt.Sprintf("event date %q must be YYYY-MM-DD", event.Date))
	}
	event = event.withDefaults()
	body, err := jsonBody(event)
	if err != nil {
		return nil, err
	}
	var payload createdEventResponse
	if err := c.do(ctx, call{op: op, method: http.MethodPost, rel: apiPath("events"), body: body, contentType: jsonContentType}, &payload); err != nil {
		return nil, err
	}
	if payload.EventID <= 0 {
		return nil, decodeError(op, http.StatusOK, fmt.Errorf("response carries no event_id"))
	}
	return &Event{
		ID:              payload.EventID,
		Name:            event.Name,
		Date:            event.Date,
		Time:            event.Time,
		Country:         event.Country,
		ChildTag:        event.ChildTag,
		Translation:     event.Translation,
		CulturalContext: event.CulturalContext,
		Tips:            event.Tips,
		Memo:            event.Memo,
		ChecklistItems:  event.ChecklistItems,
	}, nil
}

// GetEventByID fetches a single event.
func (c *Client) GetEventByID(ctx context.Context, id int64) (*Event, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload eventResponse
	if err := c.do(ctx, call{op: "GetEventByID", method: http.MethodGet, rel: apiPath("events", idSegment(id))}, &payload); err != nil {
		return nil, err
	}
	return &payload.Event, nil
}

// UpdateEvent applies a partial update; nil fields are left unchanged.
func (c *Client) UpdateEvent(ctx context.Context, id int64, update EventUpdate) (*Ack, error) {
	const op = "UpdateEvent"
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if update.Empty() {
		return nil, newError(op, ErrValidation, "update carries no fields")
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return nil, newError(op, ErrValidation, "event name cannot be empty")
	}
	if update.Date != nil && parseDate(*update.Date).IsZero() {
		return nil, newError(op, ErrValidation, fmt.Sprintf("event date %q must be YYYY-MM-DD", *update.Date))
	}
	body, err := jsonBody(update)
	if err != nil {
		return nil, err
	}
	return c.ack(ctx, call{op: op, method: http.MethodPut, rel: apiPath("events", idSegment(id)), body: body, contentType: jsonContentType})
}

// DeleteEvent removes an event; the service deletes its checklist with it.
func (c *Client) DeleteEvent(ctx context.Context, id int64) (*Ack, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	return c.ack(ctx, call{op: "DeleteEvent", method: http.MethodDelete, rel: apiPath("events", idSegment(id))})
}

// UpdateChecklistItem sets the checked state of one checklist item. The
// service acknowledges without echoing the item, so the result carries only
// ID and the applied Checked state; Name is left empty.
func (c *Client) UpdateChecklistItem(ctx context.Context, id int64, checked bool) (*ChecklistItem, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	body, err := jsonBody(checklistUpdateRequest{Checked: checked})
	if err != nil {
		return nil, err
	}
	if _, err := c.ack(ctx, call{op: "UpdateChecklistItem", method: http.MethodPut, rel: apiPath("checklist", idSegment(id)), body: body, contentType: jsonContentType}); err != nil {
		return nil, err
	}
	return &ChecklistItem{ID: id, Checked: checked}, nil
}

// AddChecklistItem appends an item to an event's checklist. The service takes
// this one as a multipart form field named item_name.
func (c *Client) AddChecklistItem(ctx context.Context, eventID int64, name string) (*Ack, error) {
	const op = "AddChecklistItem"
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, newError(op, ErrValidation, "item name is required")
	}
	form := newForm()
	form.field("item_name", name)
	body, contentType, err := form.close()
	if err != nil {
		return nil, err
	}
	return c.ack(ctx, call{op: op, method: http.MethodPost, rel: apiPath("events", idSegment(eventID), "checklist"), body: body, contentType: contentType})
}

// DeleteChecklistItem removes one checklist item.
func (c *Client) DeleteChecklistItem(ctx context.Context, id int64) (*Ack, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	return c.ack(ctx, call{op: "DeleteChecklistItem", method: http.MethodDelete, rel: apiPath("checklist", idSegment(id))})
}

// GetChildren lists registered child names in server order.
func (c *Client) GetChildren(ctx context.Context) ([]string, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload childrenResponse
	if err := c.do(ctx, call{op: "GetChildren", method: http.MethodGet, rel: apiPath("children")}, &payload); err != nil {
		return nil, err
	}
	return payload.Children, nil
}

// AddChild registers a child name. A name already present fails with ErrDuplicate.
func (c *Client) AddChild(ctx context.Context, name string) (*Ack, error) {
	const op = "AddChild"
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	name, err := childName(op, name)
	if err != nil {
		return nil, err
	}
	body, err := jsonBody(childRequest{Name: name})
	if err != nil {
		return nil, err
	}
	ack, err := c.ack(ctx, call{op: op, method: http.MethodPost, rel: apiPath("children"), body: body, contentType: jsonContentType})
	return ack, duplicateOnBadRequest(err)
}

// DeleteChild removes a child name. Events already tagged keep their tag.
func (c *Client) DeleteChild(ctx context.Context, name string) (*Ack, error) {
	const op = "DeleteChild"
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	name, err := childName(op, name)
	if err != nil {
		return nil, err
	}
	return c.ack(ctx, call{op: op, method: http.MethodDelete, rel: apiPath("children", name)})
}

// RenameChild changes a child's name. The service also rewrites events tagged
// with exactly the old name.
func (c *Client) RenameChild(ctx context.Context, oldName, newName string) (*Ack, error) {
	const op = "RenameChild"
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	oldName = NormalizeChildName(oldName)
	newName = NormalizeChildName(newName)
	if oldName == "" || newName == "" {
		return nil, newError(op, ErrValidation, "old and new child names are required")
	}
	if _, err := childName(op, newName); err != nil {
		return nil, err
	}
	body, err := jsonBody(renameChildRequest{OldName: oldName, NewName: newName})
	if err != nil {
		return nil, err
	}
	ack, err := c.ack(ctx, call{op: op, method: http.MethodPut, rel: apiPath("children"), body: body, contentType: jsonContentType})
	return ack, duplicateOnBadRequest(err)
}

// GetMembership fetches the user's plan and monthly usage.
func (c *Client) GetMembership(ctx context.Context, userID string) (*Membership, error) {
	const op = "GetMembership"
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, newError(op, ErrValidation, "user id is required")
	}
	var payload Membership
	if err := c.do(ctx, call{op: op, method: http.MethodGet, rel: apiPath("user", userID, "membership")}, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// ResetData deletes every event, checklist item and child on the service.
func (c *Client) ResetData(ctx context.Context) (*Ack, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	return c.ack(ctx, call{op: "ResetData", method: http.MethodDelete, rel: apiPath("data", "reset")})
}

// NormalizeChildName trims name and converts it to Unicode NFC so the same
// Hangul name entered on different keyboards maps to one natural key.
func NormalizeChildName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// childName normalizes name and rejects values that cannot travel as a path
// segment. "." and ".." are removed by URL dot-segment resolution, so a child
// with either name could be added but never deleted.
func childName(op, name string) (string, error) {
	name = NormalizeChildName(name)
	switch name {
	case "":
		return "", newError(op, ErrValidation, "child name is required")
	case ".", "..":
		return "", newError(op, ErrValidation, fmt.Sprintf("child name %q is not allowed", name))
	}
	return name, nil
}

type call struct {
	op          string
	method      string
	rel         *url.URL
	body        io.Reader
	contentType string
}

func (c *Client) ack(ctx context.Context, req call) (*Ack, error) {
	var payload Ack
	if err := c.do(ctx, req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) do(ctx context.Context, in call, dest any) error {
	reqURL := c.baseURL.ResolveReference(in.rel)
	req, err := http.NewRequestWithContext(ctx, in.method, reqURL.String(), in.body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", jsonContentType)
	req.Header.Set("User-Agent", c.userAgent)
	if in.contentType != "" {
		req.Header.Set("Content-Type", in.contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "api request failed",
			"op", in.op,
			"method", in.method,
			"path", in.rel.Path,
			"duration", time.Since(start),
			"error", err,
		)
		return transportError(in.op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.DebugContext(ctx, "api request",
		"op", in.op,
		"method", in.method,
		"path", in.rel.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode >= 400 {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		if readErr != nil && isTimeoutErr(readErr) {
			return transportError(in.op, readErr)
		}
		return statusError(in.op, resp.StatusCode, body)
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		if isTimeoutErr(err) {
			return transportError(in.op, err)
		}
		return decodeError(in.op, resp.StatusCode, err)
	}
	return nil
}

func duplicateOnBadRequest(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		return err
	}
	dup := *apiErr
	dup.Kind = ErrDuplicate
	return &dup
}

func jsonBody(v any) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return bytes.NewReader(data), nil
}

// apiPath builds /api/<segments...>, escaping each segment.
func apiPath(segments ...string) *url.URL {
	parts := append([]string{"api"}, segments...)
	escaped := make([]string, len(parts))
	for i, part := range parts {
		escaped[i] = url.PathEscape(part)
	}
	return &url.URL{
		Path:    "/" + strings.Join(parts, "/"),
		RawPath: "/" + strings.Join(escaped, "/"),
	}
}

func idSegment(id int64) string {
	return strconv.FormatInt(id, 10)
}

type form struct {
	buf bytes.Buffer
	w   *multipart.Writer
	err error
}

func newForm() *form {
	f := &form{}
	f.w = multipart.NewWriter(&f.buf)
	return f
}

func (f *form) field(name, value string) {
	if f.err != nil {
		return
	}
	f.err = f.w.WriteField(name, value)
}

func (f *form) file(field, filename, contentType string, r io.Reader) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(filename)))
	header.Set("Content-Type", contentType)
	part, err := f.w.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, r)
	return err
}

func (f *form) close() (io.Reader, string, error) {
	if f.err != nil {
		return nil, "", fmt.Errorf("encode form: %w", f.err)
	}
	if err := f.w.Close(); err != nil {
		return nil, "", fmt.Errorf("encode form: %w", err)
	}
	return &f.buf, f.w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func newHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api url %q: missing host", raw)
	}
	u.Path = ""
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
