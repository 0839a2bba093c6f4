package mailer

import (
	"context"
	"sync"
	"time"

	"github.com/membergate/membergate/internal/logger"
	"golang.org/x/sync/semaphore"
)

// Dispatcher sends credential emails asynchronously so webhook handling never
// blocks on the mail provider. Delivery is best-effort: failures are logged,
// never propagated back to the provisioning flow.
type Dispatcher struct {
	sender  Sender
	sem     *semaphore.Weighted
	wg      sync.WaitGroup
	timeout time.Duration
}

func NewDispatcher(sender Sender, maxInflight int, timeout time.Duration) *Dispatcher {
	if maxInflight < 1 {
		maxInflight = 1
	}
	return &Dispatcher{
		sender:  sender,
		sem:     semaphore.NewWeighted(int64(maxInflight)),
		timeout: timeout,
	}
}

// Dispatch queues a credential email. It returns immediately; the send itself
// runs in the background bounded by the in-flight limit and per-send timeout.
// The send is registered before the goroutine starts so Drain always sees it.
func (d *Dispatcher) Dispatch(email, password string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		acquireCtx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.sem.Acquire(acquireCtx, 1); err != nil {
			logger.Error("Credential email dropped: dispatcher saturated", "email", email)
			return
		}
		defer d.sem.Release(1)

		sendCtx, cancelSend := context.WithTimeout(context.Background(), d.timeout)
		defer cancelSend()
		if err := d.sender.SendTemporaryPassword(sendCtx, email, password); err != nil {
			logger.Error("Credential email failed", "email", email, "error", err)
			return
		}
		logger.Info("Credential email sent", "email", email)
	}()
}

// Drain blocks until every dispatched send settles or ctx expires
func (d *Dispatcher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
