package socket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/SAADX25/SafeChat/internal/models"
)

func TestAllowFrameSlidingWindow(t *testing.T) {
	c := NewConn(nil, nil)
	base := time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < rateLimitBurst; i++ {
		if !c.allowFrame(base.Add(time.Duration(i) * 10 * time.Millisecond)) {
			t.Fatalf("frame %d within burst rejected", i+1)
		}
	}

	if c.allowFrame(base.Add(time.Second)) {
		t.Fatal("frame over burst inside the window should be rejected")
	}

	// Rejected frames are not recorded, so the next attempt at the same
	// instant fails for the same reason.
	if c.allowFrame(base.Add(time.Second)) {
		t.Fatal("repeated over-burst frame should still be rejected")
	}

	// Once the original burst slides out of the window, frames pass again.
	if !c.allowFrame(base.Add(rateLimitWindow + 200*time.Millisecond)) {
		t.Fatal("frame after the window expired should be allowed")
	}
}

func TestAllowFrameExpiresOldTimestamps(t *testing.T) {
	c := NewConn(nil, nil)
	base := time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)

	// Half the burst long ago, half just now: the old half must not count
	// against the window.
	for i := 0; i < rateLimitBurst/2; i++ {
		if !c.allowFrame(base) {
			t.Fatalf("old frame %d rejected", i+1)
		}
	}
	later := base.Add(rateLimitWindow + time.Millisecond)
	for i := 0; i < rateLimitBurst; i++ {
		if !c.allowFrame(later) {
			t.Fatalf("fresh frame %d rejected after old burst expired", i+1)
		}
	}
	if c.allowFrame(later) {
		t.Fatal("fresh burst exhausted, frame should be rejected")
	}
}

func TestNotifyRateLimitSendsErrorFrame(t *testing.T) {
	c := NewConn(nil, nil)
	c.notifyRateLimit()

	select {
	case data := <-c.send:
		var env models.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("unmarshal frame: %v", err)
		}
		if env.Type != models.EventError {
			t.Fatalf("frame type = %s, want %s", env.Type, models.EventError)
		}
		var p models.ErrorPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			t.Fatalf("unmarshal error payload: %v", err)
		}
		if p.Message == "" {
			t.Fatal("error payload should carry a message")
		}
	default:
		t.Fatal("no frame queued on the send channel")
	}
}
