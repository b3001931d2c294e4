package sensecoach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Sentinel errors classify every failure returned by Client. An *APIError
// matches exactly one kind through errors.Is; timeouts additionally match
// ErrNetwork.
var (
	ErrValidation = errors.New("validation failed")
	ErrDuplicate  = errors.New("duplicate")
	ErrNotFound   = errors.New("not found")
	ErrService    = errors.New("service error")
	ErrNetwork    = errors.New("network error")
	ErrTimeout    = errors.New("timeout")
	ErrDecode     = errors.New("decode response")
)

var genericMessages = map[error]string{
	ErrValidation: "요청 내용을 확인해 주세요.",
	ErrDuplicate:  "이미 존재하는 항목입니다.",
	ErrNotFound:   "요청한 항목을 찾을 수 없습니다.",
	ErrService:    "서버에 문제가 발생했습니다. 잠시 후 다시 시도해 주세요.",
	ErrNetwork:    "서버에 연결할 수 없습니다. 네트워크를 확인해 주세요.",
	ErrTimeout:    "요청 시간이 초과되었습니다.",
	ErrDecode:     "서버 응답을 해석할 수 없습니다.",
}

// APIError describes a failed client operation.
type APIError struct {
	Op     string // client method, e.g. "AddChild"
	Kind   error  // one of the package sentinels
	Status int    // HTTP status, zero when no response was received
	Detail string // server-provided detail, or a generic message
	Err    error  // underlying transport/decode error, if any
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Is matches the error's kind, and ErrNetwork for timeouts.
func (e *APIError) Is(target error) bool {
	if target == e.Kind {
		return true
	}
	return e.Kind == ErrTimeout && target == ErrNetwork
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Message returns a user-facing message for err: the server detail when
// present, otherwise a generic message for its kind.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
		return genericMessages[apiErr.Kind]
	}
	return err.Error()
}

// IsTimeout reports whether err is a timeout-classified client error.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

func newError(op string, kind error, detail string) *APIError {
	if detail == "" {
		detail = genericMessages[kind]
	}
	return &APIError{Op: op, Kind: kind, Detail: detail}
}

func transportError(op string, err error) *APIError {
	kind := ErrNetwork
	if isTimeoutErr(err) {
		kind = ErrTimeout
	}
	return &APIError{Op: op, Kind: kind, Detail: genericMessages[kind], Err: err}
}

func decodeError(op string, status int, err error) *APIError {
	return &APIError{Op: op, Kind: ErrDecode, Status: status, Detail: genericMessages[ErrDecode], Err: err}
}

func statusError(op string, status int, body []byte) *APIError {
	kind := kindForStatus(status)
	detail := parseDetail(body)
	if detail == "" {
		detail = genericMessages[kind]
	}
	return &APIError{Op: op, Kind: kind, Status: status, Detail: detail}
}

func kindForStatus(status int) error {
	switch {
	case status == http.StatusNotFound:
		return ErrNotFound
	case status >= 500:
		return ErrService
	default:
		return ErrValidation
	}
}

func isTimeoutErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// parseDetail extracts the FastAPI-style "detail" message from an error body.
// The detail is either a string or a list of validation entries.
func parseDetail(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(payload.Detail, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var entries []struct {
		Msg string `json:"msg"`
		Loc []any  `json:"loc"`
	}
	if err := json.Unmarshal(payload.Detail, &entries); err != nil {
		return ""
	}
	msgs := make([]string, 0, len(entries))
	for _, entry := range entries {
		msg := strings.TrimSpace(entry.Msg)
		if msg == "" {
			continue
		}
		if field := lastLoc(entry.Loc); field != "" {
			msg = field + ": " + msg
		}
		msgs = append(msgs, msg)
	}
	return strings.Join(msgs, "; ")
}

func lastLoc(loc []any) string {
	if len(loc) == 0 {
		return ""
	}
	if s, ok := loc[len(loc)-1].(string); ok {
		return s
	}
	return ""
}
