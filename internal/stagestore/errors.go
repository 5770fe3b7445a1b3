package stagestore

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// StatusError is a non-2xx response from the store. Body holds the response
// text as received.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error prefers the envelope's message and falls back to the raw body.
func (e *StatusError) Error() string {
	detail := strings.TrimSpace(e.Body)
	if gjson.Valid(detail) {
		if msg := gjson.Get(detail, "message"); msg.Type == gjson.String && msg.String() != "" {
			detail = msg.String()
		}
	}
	if detail == "" {
		detail = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%d %s", e.StatusCode, detail)
}

func isNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}
