package mailer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/membergate/membergate/config"
	"github.com/membergate/membergate/internal/logger"
)

type recordingSender struct {
	mu    sync.Mutex
	sent  []string
	err   error
	delay time.Duration
}

func (s *recordingSender) SendTemporaryPassword(ctx context.Context, email, password string) error {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, email)
	return s.err
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestDispatcher_Dispatch(t *testing.T) {
	logger.Init("error", "text")
	sender := &recordingSender{}
	d := NewDispatcher(sender, 2, time.Second)

	d.Dispatch("a@b.com", "secret")
	d.Dispatch("c@d.com", "secret")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	if sender.count() != 2 {
		t.Fatalf("expected 2 sends, got %d", sender.count())
	}
}

func TestDispatcher_SendFailureIsSwallowed(t *testing.T) {
	logger.Init("error", "text")
	sender := &recordingSender{err: errors.New("smtp down")}
	d := NewDispatcher(sender, 1, time.Second)

	// Must not panic or propagate; provisioning never rolls back on mail failure
	d.Dispatch("a@b.com", "secret")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}
}

func TestDispatcher_BoundedInflight(t *testing.T) {
	logger.Init("error", "text")
	sender := &recordingSender{delay: 50 * time.Millisecond}
	d := NewDispatcher(sender, 1, time.Second)

	for i := 0; i < 3; i++ {
		d.Dispatch("a@b.com", "secret")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := d.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if sender.count() != 3 {
		t.Fatalf("expected all queued sends to complete, got %d", sender.count())
	}
}

func TestNew_FallsBackToLogSender(t *testing.T) {
	logger.Init("error", "text")
	s := New(config.MailConfig{})
	if _, ok := s.(*logSender); !ok {
		t.Fatalf("expected log sender without Postmark tokens")
	}

	// Log sender never surfaces the plaintext anywhere callers can observe
	if err := s.SendTemporaryPassword(context.Background(), "a@b.com", "secret"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}

	s = New(config.MailConfig{
		PostmarkServerToken:  "server-token",
		PostmarkAccountToken: "account-token",
		SenderEmail:          "members@example.com",
		SupportEmail:         "support@example.com",
	})
	if _, ok := s.(*postmarkSender); !ok {
		t.Fatalf("expected postmark sender with tokens configured")
	}
}

func TestDispatcher_DrainSeesFreshDispatch(t *testing.T) {
	logger.Init("error", "text")
	sender := &recordingSender{delay: 50 * time.Millisecond}
	d := NewDispatcher(sender, 2, time.Second)

	// Drain immediately after Dispatch must wait for the send even when its
	// goroutine has not been scheduled yet.
	d.Dispatch("a@b.com", "secret")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if sender.count() != 1 {
		t.Fatalf("expected dispatched send to complete before drain returns, got %d", sender.count())
	}
}

func TestDispatcher_DrainTimeout(t *testing.T) {
	logger.Init("error", "text")
	sender := &recordingSender{delay: time.Second}
	d := NewDispatcher(sender, 1, 2*time.Second)

	d.Dispatch("a@b.com", "secret")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Drain(ctx); err == nil {
		t.Fatal("expected drain to report the expired deadline")
	}
}
