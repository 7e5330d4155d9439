package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
)

func TestCreateOrderSnapshotsPrice(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	order, err := f.ledger.CreateOrder(ctx, f.company, "p-basic")
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.Amount != 2990 || order.Status != domain.OrderPending || order.CompanyID != "c-1" {
		t.Fatalf("unexpected order %+v", order)
	}

	tests := []struct {
		name    string
		pkg     string
		wantErr error
	}{
		{"inactive package", "p-old", domain.ErrInvalidState},
		{"unknown package", "p-missing", domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.ledger.CreateOrder(ctx, f.company, tt.pkg); !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := f.ledger.CreateOrder(ctx, f.seeker, "p-basic"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("seeker order err = %v, want forbidden", err)
	}
}

func TestPayOrderGrantsCreditsAndPackage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	c := f.store.state.companies["c-1"]
	c.CreditsRemaining = 5
	f.store.state.companies["c-1"] = c

	order, err := f.ledger.CreateOrder(ctx, f.company, "p-basic")
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	res, err := f.ledger.PayOrder(ctx, f.company, order.ID)
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if res.CreditsRemaining != 55 {
		t.Fatalf("credits = %d, want 55", res.CreditsRemaining)
	}
	if res.Order.Status != domain.OrderPaid || res.Order.PaidAt == nil {
		t.Fatalf("order not paid: %+v", res.Order)
	}
	wantExpiry := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	if !res.PackageExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expiry = %v, want %v", res.PackageExpiresAt, wantExpiry)
	}

	stored := f.store.state.companies["c-1"]
	if stored.CurrentPackageID == nil || *stored.CurrentPackageID != "p-basic" {
		t.Fatalf("current package = %v", stored.CurrentPackageID)
	}

	if _, err := f.ledger.PayOrder(ctx, f.company, order.ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("second pay err = %v, want conflict", err)
	}
	if got := f.store.state.companies["c-1"].CreditsRemaining; got != 55 {
		t.Fatalf("credits after retry = %d, want 55", got)
	}
	if got := f.events.ofType(domain.EventOrderPaid); len(got) != 1 {
		t.Fatalf("order.paid events = %d, want 1", len(got))
	}
}

func TestPayOrderOneCalendarMonth(t *testing.T) {
	f := newFixture()
	f.ledger.now = func() time.Time { return time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	order, _ := f.ledger.CreateOrder(ctx, f.company, "p-basic")
	res, err := f.ledger.PayOrder(ctx, f.company, order.ID)
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	want := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	if !res.PackageExpiresAt.Equal(want) {
		t.Fatalf("expiry = %v, want %v", res.PackageExpiresAt, want)
	}
}

func TestPayOrderIsAtomic(t *testing.T) {
	steps := []string{"Orders.MarkPaid", "Companies.AddCredits", "Companies.SetCurrentPackage"}
	for _, step := range steps {
		t.Run(step, func(t *testing.T) {
			f := newFixture()
			ctx := context.Background()
			order, err := f.ledger.CreateOrder(ctx, f.company, "p-basic")
			if err != nil {
				t.Fatalf("create order: %v", err)
			}
			f.store.failOn[step] = errors.New("connection reset")

			if _, err := f.ledger.PayOrder(ctx, f.company, order.ID); err == nil {
				t.Fatal("expected error")
			}
			if got := f.store.state.orders[order.ID].Status; got != domain.OrderPending {
				t.Fatalf("order status = %s, want PENDING", got)
			}
			c := f.store.state.companies["c-1"]
			if c.CreditsRemaining != 0 || c.CurrentPackageID != nil {
				t.Fatalf("company changed by a failed payment: %+v", c)
			}
			if len(f.events.ofType(domain.EventOrderPaid)) != 0 {
				t.Fatalf("order.paid published for a failed payment")
			}

			delete(f.store.failOn, step)
			res, err := f.ledger.PayOrder(ctx, f.company, order.ID)
			if err != nil {
				t.Fatalf("retry pay: %v", err)
			}
			if res.CreditsRemaining != 50 {
				t.Fatalf("credits = %d, want 50", res.CreditsRemaining)
			}
		})
	}
}

func TestPayOrderAuthorization(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order, _ := f.ledger.CreateOrder(ctx, f.company, "p-basic")

	if _, err := f.ledger.PayOrder(ctx, f.otherCompany, order.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("other company err = %v, want forbidden", err)
	}
	if _, err := f.ledger.PayOrder(ctx, f.company, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing order err = %v, want not found", err)
	}
	if _, err := f.ledger.PayOrder(ctx, f.admin, order.ID); err != nil {
		t.Fatalf("admin pay: %v", err)
	}
}

func TestPayOrderAfterPackageDeactivated(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order, _ := f.ledger.CreateOrder(ctx, f.company, "p-basic")

	pkg := f.store.state.packages["p-basic"]
	pkg.IsActive = false
	f.store.state.packages["p-basic"] = pkg

	if _, err := f.ledger.PayOrder(ctx, f.company, order.ID); err != nil {
		t.Fatalf("pay of an order whose package was deactivated: %v", err)
	}
}

func TestCreditsSummary(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order, _ := f.ledger.CreateOrder(ctx, f.company, "p-basic")
	if _, err := f.ledger.PayOrder(ctx, f.company, order.ID); err != nil {
		t.Fatalf("pay: %v", err)
	}

	sum, err := f.ledger.Credits(ctx, f.company)
	if err != nil {
		t.Fatalf("credits: %v", err)
	}
	if sum.CreditsRemaining != 50 || sum.CurrentPackageName != "Basic" || sum.PackageExpiresAt == nil {
		t.Fatalf("summary = %+v", sum)
	}

	orders, err := f.ledger.ListOrders(ctx, f.company, 0)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(orders))
	}
}

func TestExpirePackagesKeepsCredits(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order, _ := f.ledger.CreateOrder(ctx, f.company, "p-basic")
	if _, err := f.ledger.PayOrder(ctx, f.company, order.ID); err != nil {
		t.Fatalf("pay: %v", err)
	}

	n, err := f.ledger.ExpirePackages(ctx)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if n != 0 {
		t.Fatalf("expired %d packages before expiry", n)
	}

	f.ledger.now = func() time.Time { return time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC) }
	n, err = f.ledger.ExpirePackages(ctx)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if n != 1 {
		t.Fatalf("expired = %d, want 1", n)
	}
	c := f.store.state.companies["c-1"]
	if c.CurrentPackageID != nil || c.PackageExpiresAt != nil {
		t.Fatalf("package not cleared: %+v", c)
	}
	if c.CreditsRemaining != 50 {
		t.Fatalf("credits = %d, want 50 kept", c.CreditsRemaining)
	}

	var found bool
	for _, note := range (memNotifications{f.store}).all() {
		if note.Type == domain.NotifyPackageExpired && note.UserID == "u-company" {
			found = true
			if note.Message != "แพ็กเกจของคุณหมดอายุแล้ว เครดิตคงเหลือ 50 เครดิต" {
				t.Errorf("message = %q", note.Message)
			}
		}
	}
	if !found {
		t.Fatalf("owner was not notified")
	}
}
