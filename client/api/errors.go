package api

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// The error taxonomy every caller branches on with errors.Is
var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrNetwork         = errors.New("network failure")
)

// Error is a failed backend call
type Error struct {
	Kind     error    // one of the sentinel errors above
	Status   int      // http status, zero when no response arrived
	Messages []string // server-reported or validation messages
	Err      error    // underlying cause, if any
}

func (e *Error) Error() string {
	s := e.Kind.Error()
	if e.Status != 0 {
		s = fmt.Sprintf("%s (%d)", s, e.Status)
	}
	if len(e.Messages) > 0 {
		s += ": " + strings.Join(e.Messages, "; ")
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IsAuthError reports whether err means the session must go back through login
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

// Messages returns the messages carried by an *Error, if any
func Messages(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Messages
	}
	return nil
}

func kindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrUnauthenticated
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status >= 500:
		return ErrNetwork
	default:
		return ErrValidation
	}
}

func statusError(status int, body []byte) *Error {
	e := &Error{
		Kind:   kindForStatus(status),
		Status: status,
	}
	var parsed any
	if len(body) > 0 && json.Unmarshal(body, &parsed) == nil {
		e.Messages = collectMessages("", parsed)
	}
	return e
}

// collectMessages flattens the shapes the backend uses for errors:
// {"errors": {...}}, {"detail": "..."}, a bare string, or lists of those.
func collectMessages(prefix string, v any) []string {
	switch t := v.(type) {
	case string:
		if prefix != "" && prefix != "errors" && prefix != "detail" {
			return []string{prefix + ": " + t}
		}
		return []string{t}
	case []any:
		messages := make([]string, 0)
		for _, item := range t {
			messages = append(messages, collectMessages(prefix, item)...)
		}
		return messages
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		messages := make([]string, 0)
		for _, k := range keys {
			messages = append(messages, collectMessages(k, t[k])...)
		}
		return messages
	}
	return nil
}
