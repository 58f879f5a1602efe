package usecase

import (
	"context"
	"testing"
	"time"
)

type manualScheduler struct {
	job     func(time.Time)
	stopped bool
}

func (m *manualScheduler) Start(_ context.Context, job func(time.Time)) error {
	m.job = job
	return nil
}

func (m *manualScheduler) Stop(context.Context) error {
	m.stopped = true
	return nil
}

func TestSweeperRunsStaleSweep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newQueueFixture(t)
	g := seedGraph(t, f.leads, "12 Elm St", "+15125550100")
	if _, err := f.queue.Enqueue(ctx, g.property.ID, 0); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := f.queue.Start(ctx, "u"); err != nil {
		t.Fatalf("start: %v", err)
	}

	driver := &manualScheduler{}
	sweeper := NewSweeper(driver, f.queue, time.Minute, discardLogger())
	if err := sweeper.Start(ctx); err != nil {
		t.Fatalf("start sweeper: %v", err)
	}

	f.queue.now = func() time.Time { return testNow.Add(2 * time.Minute) }
	driver.job(testNow.Add(2 * time.Minute))

	n, err := f.queue.queue.CountQueueItems(ctx, "failed")
	if err != nil || n != 1 {
		t.Fatalf("expected the stale call to fail, got %d %v", n, err)
	}
	if err := sweeper.Stop(ctx); err != nil || !driver.stopped {
		t.Fatalf("stop: %v", err)
	}
}
