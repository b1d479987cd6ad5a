package gemini

import (
	"net/http"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// retryState
// ---------------------------------------------------------------------------

func TestRetryState_BackoffDoubles(t *testing.T) {
	st := newRetryState(5, time.Second)

	want := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}
	for i, w := range want {
		wait, source, ok := st.next(0, false)
		if !ok {
			t.Fatalf("budget exhausted at retry %d", i)
		}
		if wait != w {
			t.Errorf("retry %d wait = %s, want %s", i, wait, w)
		}
		if source != DelayBackoff {
			t.Errorf("retry %d source = %v, want DelayBackoff", i, source)
		}
	}

	if _, _, ok := st.next(0, false); ok {
		t.Error("sixth retry granted, budget is 5")
	}
}

func TestRetryState_ServerHintUsedVerbatim(t *testing.T) {
	st := newRetryState(5, time.Second)

	wait, source, ok := st.next(42*time.Second, true)
	if !ok || wait != 42*time.Second || source != DelayServer {
		t.Errorf("got (%s, %v, %v), want (42s, DelayServer, true)", wait, source, ok)
	}

	// A hint does not consume the backoff progression differently: the
	// next hintless retry still uses initial<<attempt.
	wait, source, _ = st.next(0, false)
	if wait != 2*time.Second || source != DelayBackoff {
		t.Errorf("after hint: got (%s, %v), want (2s, DelayBackoff)", wait, source)
	}
}

func TestRetryState_NegativeHintClampedToZero(t *testing.T) {
	st := newRetryState(5, time.Second)

	wait, source, ok := st.next(-3*time.Second, true)
	if !ok || wait != 0 || source != DelayServer {
		t.Errorf("got (%s, %v, %v), want (0s, DelayServer, true)", wait, source, ok)
	}
}

func TestDelaySource_String(t *testing.T) {
	if DelayBackoff.String() != "computed-backoff" {
		t.Errorf("DelayBackoff = %q", DelayBackoff.String())
	}
	if DelayServer.String() != "server-provided" {
		t.Errorf("DelayServer = %q", DelayServer.String())
	}
}

// ---------------------------------------------------------------------------
// serverWait
// ---------------------------------------------------------------------------

func TestServerWait_RetryAfterHeader(t *testing.T) {
	hdr := http.Header{}
	hdr.Set("Retry-After", "30")

	d, ok := serverWait(hdr, nil)
	if !ok || d != 30*time.Second {
		t.Errorf("got (%s, %v), want (30s, true)", d, ok)
	}
}

func TestServerWait_HeaderBeatsBody(t *testing.T) {
	hdr := http.Header{}
	hdr.Set("Retry-After", "5")
	body := []byte(`{"error":{"details":[{"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"60s"}]}}`)

	d, ok := serverWait(hdr, body)
	if !ok || d != 5*time.Second {
		t.Errorf("got (%s, %v), want header's 5s", d, ok)
	}
}

func TestServerWait_RetryInfoBody(t *testing.T) {
	body := []byte(`{"error":{"message":"quota","details":[` +
		`{"@type":"type.googleapis.com/google.rpc.ErrorInfo","reason":"RATE_LIMIT_EXCEEDED"},` +
		`{"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"30s"}]}}`)

	d, ok := serverWait(http.Header{}, body)
	if !ok || d != 30*time.Second {
		t.Errorf("got (%s, %v), want (30s, true)", d, ok)
	}
}

func TestServerWait_FractionalRetryDelay(t *testing.T) {
	body := []byte(`{"error":{"details":[{"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"1.5s"}]}}`)

	d, ok := serverWait(http.Header{}, body)
	if !ok || d != 1500*time.Millisecond {
		t.Errorf("got (%s, %v), want (1.5s, true)", d, ok)
	}
}

func TestServerWait_NoHint(t *testing.T) {
	if _, ok := serverWait(http.Header{}, []byte(`{"error":{"message":"oops"}}`)); ok {
		t.Error("hint reported for a body without RetryInfo")
	}
	if _, ok := serverWait(http.Header{}, nil); ok {
		t.Error("hint reported for an empty response")
	}
	hdr := http.Header{}
	hdr.Set("Retry-After", "Wed, 21 Oct 2015 07:28:00 GMT")
	if _, ok := serverWait(hdr, nil); ok {
		t.Error("HTTP-date Retry-After should be ignored, not misparsed")
	}
}
