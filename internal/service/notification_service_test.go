package service

import (
	"context"
	"errors"
	"testing"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
)

func TestNotificationListAndMarkRead(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := NewNotificationService(memNotifications{f.store}, f.events, nil)

	app, _ := f.apps.Apply(ctx, f.seeker, ApplyInput{JobID: "j-1"})
	if _, err := f.apps.Transition(ctx, f.company, app.ID, "REVIEWING"); err != nil {
		t.Fatalf("transition: %v", err)
	}

	mine, err := svc.List(ctx, f.seeker, true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 1 || mine[0].Type != domain.NotifyStatusChanged {
		t.Fatalf("seeker notifications = %+v", mine)
	}
	theirs, _ := svc.List(ctx, f.company, false)
	if len(theirs) != 1 || theirs[0].Type != domain.NotifyNewApplication {
		t.Fatalf("company notifications = %+v", theirs)
	}

	if err := svc.MarkRead(ctx, f.company, mine[0].ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("foreign mark read err = %v, want forbidden", err)
	}
	if err := svc.MarkRead(ctx, f.seeker, mine[0].ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	unread, _ := svc.List(ctx, f.seeker, true)
	if len(unread) != 0 {
		t.Fatalf("unread = %d after mark read", len(unread))
	}
	if err := svc.MarkRead(ctx, f.admin, theirs[0].ID); err != nil {
		t.Fatalf("admin mark read: %v", err)
	}
}

func TestAdminCreateNotification(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := NewNotificationService(memNotifications{f.store}, f.events, nil)

	in := NotificationInput{SeekerID: "s-2", Title: "ประกาศ", Message: "ระบบจะปิดปรับปรุง"}
	if _, err := svc.Create(ctx, f.company, in); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("company create err = %v, want forbidden", err)
	}
	var verr *domain.ValidationError
	if _, err := svc.Create(ctx, f.admin, NotificationInput{Title: "x", Message: "y"}); !errors.As(err, &verr) {
		t.Fatalf("no recipient err = %v, want validation", err)
	}

	n, err := svc.Create(ctx, f.admin, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if n.Type != domain.NotifyAnnouncement {
		t.Fatalf("type = %s, want default ANNOUNCEMENT", n.Type)
	}
	if got := f.events.ofType(domain.EventNotificationCreated); len(got) != 1 || got[0].Notification.ID != n.ID {
		t.Fatalf("notification.created events = %+v", got)
	}
}
