package handler

import "net/http"

// Handlers bundles every HTTP handler of the API.
type Handlers struct {
	Health        *HealthHandler
	Auth          *AuthHandler
	Jobs          *JobsHandler
	JobPostings   *JobPostingsHandler
	Seekers       *SeekersHandler
	Applications  *ApplicationsHandler
	Notifications *NotificationsHandler
	Stream        *NotificationHub
	Ledger        *LedgerHandler
	LineWebhook   *LineWebhookHandler
}

// Register mounts the API routes on mux.
func (hs Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", hs.Health.Health)
	mux.HandleFunc("GET /readyz", hs.Health.Ready)

	mux.HandleFunc("POST /api/auth/register", hs.Auth.Register)
	mux.HandleFunc("POST /api/auth/login", hs.Auth.Login)

	mux.HandleFunc("GET /api/transit-lines", hs.Jobs.TransitLines)
	mux.HandleFunc("GET /api/jobs", hs.Jobs.List)
	mux.HandleFunc("GET /api/jobs/{id}", hs.Jobs.Get)
	mux.HandleFunc("GET /api/jobs/{id}/match", hs.Jobs.Match)
	mux.HandleFunc("GET /api/seekers", hs.Jobs.SearchSeekers)

	mux.HandleFunc("POST /api/jobs", hs.JobPostings.Create)
	mux.HandleFunc("PUT /api/jobs/{id}", hs.JobPostings.Update)
	mux.HandleFunc("DELETE /api/jobs/{id}", hs.JobPostings.Delete)
	mux.HandleFunc("POST /api/jobs/{id}/close", hs.JobPostings.Close)
	mux.HandleFunc("GET /api/company/jobs", hs.JobPostings.List)
	mux.HandleFunc("GET /api/admin/jobs", hs.JobPostings.List)
	mux.HandleFunc("POST /api/admin/jobs/{id}/approve", hs.JobPostings.Approve)
	mux.HandleFunc("POST /api/admin/jobs/{id}/reject", hs.JobPostings.Reject)

	mux.HandleFunc("GET /api/seekers/me", hs.Seekers.Me)
	mux.HandleFunc("PUT /api/seekers/me", hs.Seekers.Update)
	mux.HandleFunc("POST /api/seekers/me/line-link", hs.Seekers.LinkCode)

	mux.HandleFunc("GET /api/applications", hs.Applications.List)
	mux.HandleFunc("POST /api/applications", hs.Applications.Create)
	mux.HandleFunc("GET /api/applications/{id}", hs.Applications.Get)
	mux.HandleFunc("PUT /api/applications/{id}/status", hs.Applications.UpdateStatus)
	mux.HandleFunc("POST /api/applications/{id}/withdraw", hs.Applications.Withdraw)
	mux.HandleFunc("PUT /api/applications/{id}/additional-info", hs.Applications.AdditionalInfo)
	mux.HandleFunc("POST /api/admin/applications", hs.Applications.HRSave)
	mux.HandleFunc("GET /api/company/saved-applications", hs.Applications.ListSaved)
	mux.HandleFunc("POST /api/company/saved-applications", hs.Applications.Save)
	mux.HandleFunc("DELETE /api/company/saved-applications", hs.Applications.Unsave)
	mux.HandleFunc("GET /api/company/stats", hs.Applications.Stats)

	mux.HandleFunc("GET /api/notifications", hs.Notifications.List)
	mux.HandleFunc("POST /api/notifications/{id}/read", hs.Notifications.MarkRead)
	mux.HandleFunc("POST /api/admin/notifications", hs.Notifications.Create)
	mux.Handle("GET /ws/notifications", hs.Stream)

	mux.HandleFunc("GET /api/packages", hs.Ledger.ListPackages)
	mux.HandleFunc("GET /api/admin/packages", hs.Ledger.AdminListPackages)
	mux.HandleFunc("POST /api/admin/packages", hs.Ledger.CreatePackage)
	mux.HandleFunc("PUT /api/admin/packages/{id}", hs.Ledger.UpdatePackage)
	mux.HandleFunc("GET /api/company/orders", hs.Ledger.ListOrders)
	mux.HandleFunc("POST /api/company/orders", hs.Ledger.CreateOrder)
	mux.HandleFunc("POST /api/company/orders/{id}/pay", hs.Ledger.PayOrder)
	mux.HandleFunc("GET /api/company/credits", hs.Ledger.Credits)

	// without a channel secret in production the webhook is not mounted
	if hs.LineWebhook != nil {
		mux.Handle("POST /api/line/webhook", hs.LineWebhook)
	}
}
