package gemini

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DelaySource records where a retry wait came from.
type DelaySource int

const (
	// DelayBackoff is the exponential fallback (initialDelay * 2^attempt).
	DelayBackoff DelaySource = iota
	// DelayServer is a wait duration supplied by the server.
	DelayServer
)

func (s DelaySource) String() string {
	if s == DelayServer {
		return "server-provided"
	}
	return "computed-backoff"
}

// retryState tracks one logical request's retry budget. A fresh state is
// created per Generate call and discarded with it.
type retryState struct {
	// attempt counts failed attempts so far, starting at 0.
	attempt    int
	maxRetries int
	initial    time.Duration
	// waited accumulates the time actually slept.
	waited time.Duration
}

func newRetryState(maxRetries int, initial time.Duration) *retryState {
	return &retryState{maxRetries: maxRetries, initial: initial}
}

// next consumes one retry from the budget and returns the wait before the
// following attempt. A server hint is used verbatim when present (clamped at
// zero: "retry immediately"); otherwise the exponential fallback applies.
// ok is false once the budget is exhausted.
func (s *retryState) next(hint time.Duration, hasHint bool) (wait time.Duration, source DelaySource, ok bool) {
	if s.attempt >= s.maxRetries {
		return 0, DelayBackoff, false
	}
	if hasHint {
		if hint < 0 {
			hint = 0
		}
		wait, source = hint, DelayServer
	} else {
		wait, source = s.initial<<uint(s.attempt), DelayBackoff
	}
	s.attempt++
	return wait, source, true
}

// serverWait extracts a server-supplied wait duration from a transient error
// response: the Retry-After header first, then a Google RetryInfo detail in
// the body.
func serverWait(hdr http.Header, body []byte) (time.Duration, bool) {
	if v := hdr.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return time.Duration(secs) * time.Second, true
		}
	}
	return retryInfoDelay(body)
}

// retryInfoDelay parses Google's RetryInfo error detail, which carries a
// retryDelay like "30s" or "1.5s".
func retryInfoDelay(body []byte) (time.Duration, bool) {
	var errResp struct {
		Error struct {
			Details []struct {
				Type       string `json:"@type"`
				RetryDelay string `json:"retryDelay"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return 0, false
	}
	for _, detail := range errResp.Error.Details {
		if !strings.Contains(detail.Type, "RetryInfo") || detail.RetryDelay == "" {
			continue
		}
		d := strings.TrimSuffix(detail.RetryDelay, "s")
		if secs, err := strconv.ParseFloat(d, 64); err == nil {
			return time.Duration(secs * float64(time.Second)), true
		}
	}
	return 0, false
}
