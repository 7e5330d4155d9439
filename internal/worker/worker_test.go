package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
	"github.com/aryan0dhankhar/jobmatch/pkg/config"
)

type fakeTransport struct {
	mu     sync.Mutex
	pushed map[string][]string
	err    error
}

func (f *fakeTransport) Push(_ context.Context, to string, texts ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.pushed == nil {
		f.pushed = map[string][]string{}
	}
	f.pushed[to] = append(f.pushed[to], texts...)
	return nil
}

func (f *fakeTransport) Reply(context.Context, string, ...string) error { return nil }

type fakeHub struct{ got []*domain.Notification }

func (h *fakeHub) Broadcast(n *domain.Notification) { h.got = append(h.got, n) }

func TestDispatcherPushesStatusChanges(t *testing.T) {
	tests := []struct {
		name     string
		ev       domain.Event
		pushOn   bool
		err      error
		wantPush bool
	}{
		{"pushed", domain.Event{Type: domain.EventApplicationStatus, LineUserID: "U1", Message: "🔔 hi"}, true, nil, true},
		{"no chat identity", domain.Event{Type: domain.EventApplicationStatus, Message: "🔔 hi"}, true, nil, false},
		{"flag off", domain.Event{Type: domain.EventApplicationStatus, LineUserID: "U1", Message: "🔔 hi"}, false, nil, false},
		{"transport down", domain.Event{Type: domain.EventApplicationStatus, LineUserID: "U1", Message: "🔔 hi"}, true, errors.New("503"), false},
		{"other event", domain.Event{Type: domain.EventOrderPaid, LineUserID: "U1"}, true, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTransport{err: tt.err}
			d := NewNotificationDispatcher(tr, nil, nil)
			d.pushOn = func() bool { return tt.pushOn }

			d.Deliver(context.Background(), tt.ev)
			d.Fanout(context.Background(), tt.ev)

			got := len(tr.pushed["U1"]) > 0
			if got != tt.wantPush {
				t.Fatalf("pushed = %v, want %v", got, tt.wantPush)
			}
			if got && tr.pushed["U1"][0] != "🔔 hi" {
				t.Fatalf("text = %q", tr.pushed["U1"][0])
			}
		})
	}
}

func TestDispatcherBroadcastsNotifications(t *testing.T) {
	hub := &fakeHub{}
	d := NewNotificationDispatcher(&fakeTransport{}, hub, nil)
	n := &domain.Notification{ID: "n-1", SeekerID: "s-1"}

	d.Fanout(context.Background(), domain.Event{Type: domain.EventNotificationCreated, Notification: n})
	d.Fanout(context.Background(), domain.Event{Type: domain.EventNotificationCreated})
	d.Deliver(context.Background(), domain.Event{Type: domain.EventNotificationCreated, Notification: n})

	if len(hub.got) != 1 || hub.got[0].ID != "n-1" {
		t.Fatalf("broadcast = %+v", hub.got)
	}
}

type fakeExpirer struct {
	n     int
	err   error
	calls int
}

func (f *fakeExpirer) ExpirePackages(context.Context) (int, error) {
	f.calls++
	return f.n, f.err
}

type fakeCloser struct {
	at    time.Time
	calls int
}

func (f *fakeCloser) CloseExpired(_ context.Context, now time.Time) (int64, error) {
	f.calls++
	f.at = now
	return 2, nil
}

func TestMaintenancePasses(t *testing.T) {
	pk := &fakeExpirer{n: 1}
	jobs := &fakeCloser{}
	w := NewMaintenanceWorker(pk, jobs, config.Schedules{PackageExpiry: "@every 1h", JobExpiry: "@every 1h"}, nil)
	fixed := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	w.expirePackages(context.Background())
	w.closeExpiredJobs(context.Background())
	if pk.calls != 1 || jobs.calls != 1 || !jobs.at.Equal(fixed) {
		t.Fatalf("expirer=%d closer=%d at=%v", pk.calls, jobs.calls, jobs.at)
	}

	pk.err = errors.New("db down")
	w.expirePackages(context.Background())
	if pk.calls != 2 {
		t.Fatalf("expirer calls = %d", pk.calls)
	}
}

func TestMaintenanceRejectsBadSchedule(t *testing.T) {
	w := NewMaintenanceWorker(&fakeExpirer{}, &fakeCloser{}, config.Schedules{PackageExpiry: "every hour", JobExpiry: "@hourly"}, nil)
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("expected schedule error")
	}
}

func TestSuperviseRestartsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := SuperviseConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 2 * time.Millisecond

	runs := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		Supervise(ctx, cfg, nil, "events", func(ctx context.Context) error {
			runs++
			if runs == 5 {
				cancel()
			}
			return errors.New("subscription closed")
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop after cancel")
	}
	if runs < 5 {
		t.Fatalf("runs = %d, want at least 5", runs)
	}
}

func TestSuperviseStopsOnCleanExit(t *testing.T) {
	runs := 0
	Supervise(context.Background(), SuperviseConfig(), nil, "events", func(context.Context) error {
		runs++
		return nil
	})
	if runs != 1 {
		t.Fatalf("runs = %d, want 1", runs)
	}
}
