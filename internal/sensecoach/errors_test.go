package sensecoach

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindForStatus(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, ErrValidation},
		{http.StatusForbidden, ErrValidation},
		{http.StatusUnprocessableEntity, ErrValidation},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusInternalServerError, ErrService},
		{http.StatusServiceUnavailable, ErrService},
	}
	for _, tc := range cases {
		if got := kindForStatus(tc.status); got != tc.want {
			t.Fatalf("kindForStatus(%d) = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestParseDetail(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"empty", "", ""},
		{"not json", "<html>", ""},
		{"string detail", `{"detail":" 이벤트를 찾을 수 없습니다. "}`, "이벤트를 찾을 수 없습니다."},
		{"validation list", `{"detail":[{"loc":["body","name"],"msg":"field required"},{"loc":["query","future_only"],"msg":"value could not be parsed to a boolean"}]}`,
			"name: field required; future_only: value could not be parsed to a boolean"},
		{"numeric loc", `{"detail":[{"loc":["body",0],"msg":"bad"}]}`, "bad"},
		{"no detail", `{"message":"x"}`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := parseDetail([]byte(tc.body)); got != tc.want {
				t.Fatalf("parseDetail = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestAPIError_IsAndMessage(t *testing.T) {
	timeout := transportError("GetEvents", context.DeadlineExceeded)
	if !errors.Is(timeout, ErrTimeout) || !errors.Is(timeout, ErrNetwork) {
		t.Fatalf("timeout error should match ErrTimeout and ErrNetwork")
	}
	if errors.Is(timeout, ErrService) {
		t.Fatalf("timeout error should not match ErrService")
	}
	if !errors.Is(timeout, context.DeadlineExceeded) {
		t.Fatalf("timeout error should unwrap to the transport cause")
	}

	refused := transportError("GetEvents", errors.New("connection refused"))
	if IsTimeout(refused) || !errors.Is(refused, ErrNetwork) {
		t.Fatalf("refused error = %v, want plain network error", refused)
	}

	wrapped := fmt.Errorf("refresh: %w", statusError("GetEventByID", http.StatusNotFound, []byte(`{"detail":"없음"}`)))
	if !errors.Is(wrapped, ErrNotFound) {
		t.Fatalf("wrapped error lost its kind")
	}
	if Message(wrapped) != "없음" {
		t.Fatalf("Message(wrapped) = %q, want server detail", Message(wrapped))
	}
	if Message(nil) != "" {
		t.Fatalf("Message(nil) should be empty")
	}
	if Message(errors.New("plain")) != "plain" {
		t.Fatalf("Message(plain) should fall back to Error()")
	}
}

func TestDuplicateOnBadRequest(t *testing.T) {
	bad := statusError("AddChild", http.StatusBadRequest, nil)
	dup := duplicateOnBadRequest(bad)
	if !errors.Is(dup, ErrDuplicate) || errors.Is(dup, ErrValidation) {
		t.Fatalf("duplicateOnBadRequest = %v, want only ErrDuplicate", dup)
	}
	unprocessable := statusError("AddChild", http.StatusUnprocessableEntity, nil)
	if got := duplicateOnBadRequest(unprocessable); !errors.Is(got, ErrValidation) {
		t.Fatalf("422 should stay ErrValidation, got %v", got)
	}
	if duplicateOnBadRequest(nil) != nil {
		t.Fatalf("nil should stay nil")
	}
}
