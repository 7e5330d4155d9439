package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
	"github.com/aryan0dhankhar/jobmatch/internal/security"
	"github.com/aryan0dhankhar/jobmatch/internal/security/audit"
)

// memState is the whole fake database. Entities are stored by value so a
// snapshot is a plain map copy.
type memState struct {
	users         map[string]domain.User
	seekers       map[string]domain.JobSeeker
	jobs          map[string]domain.Job
	apps          map[string]domain.Application
	appOrder      []string
	companies     map[string]domain.Company
	packages      map[string]domain.Package
	orders        map[string]domain.Order
	notifications []domain.Notification
	saved         map[string]domain.SavedApplication
	views         map[string]bool
}

func (s memState) clone() memState {
	c := memState{
		users:         make(map[string]domain.User, len(s.users)),
		seekers:       make(map[string]domain.JobSeeker, len(s.seekers)),
		jobs:          make(map[string]domain.Job, len(s.jobs)),
		apps:          make(map[string]domain.Application, len(s.apps)),
		appOrder:      append([]string(nil), s.appOrder...),
		companies:     make(map[string]domain.Company, len(s.companies)),
		packages:      make(map[string]domain.Package, len(s.packages)),
		orders:        make(map[string]domain.Order, len(s.orders)),
		notifications: append([]domain.Notification(nil), s.notifications...),
		saved:         make(map[string]domain.SavedApplication, len(s.saved)),
		views:         make(map[string]bool, len(s.views)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.seekers {
		c.seekers[k] = v
	}
	for k, v := range s.jobs {
		c.jobs[k] = v
	}
	for k, v := range s.apps {
		c.apps[k] = v
	}
	for k, v := range s.companies {
		c.companies[k] = v
	}
	for k, v := range s.packages {
		c.packages[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.saved {
		c.saved[k] = v
	}
	for k, v := range s.views {
		c.views[k] = v
	}
	return c
}

type memStore struct {
	mu     sync.Mutex
	state  memState
	failOn map[string]error
	now    func() time.Time
}

func newMemStore() *memStore {
	return &memStore{
		state:  memState{}.clone(),
		failOn: map[string]error{},
		now:    func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) },
	}
}

func (m *memStore) fail(op string) error {
	return m.failOn[op]
}

func (m *memStore) stores() Stores {
	return Stores{
		Users:         memUsers{m},
		Seekers:       memSeekers{m},
		Jobs:          memJobs{m},
		Applications:  memApplications{m},
		Saved:         memSaved{m},
		Companies:     memCompanies{m},
		Packages:      memPackages{m},
		Orders:        memOrders{m},
		Notifications: memNotifications{m},
	}
}

// memTx restores the state snapshot when fn fails. Top-level transactions
// run one at a time so a rollback never discards a concurrent commit.
type memTx struct {
	store *memStore
	mu    sync.Mutex
	calls atomic.Int32
}

type inMemTx struct{}

func (t *memTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls.Add(1)
	if ctx.Value(inMemTx{}) != nil {
		return fn(ctx)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	ctx = context.WithValue(ctx, inMemTx{}, true)

	t.store.mu.Lock()
	snapshot := t.store.state.clone()
	t.store.mu.Unlock()

	if err := fn(ctx); err != nil {
		t.store.mu.Lock()
		t.store.state = snapshot
		t.store.mu.Unlock()
		return err
	}
	return nil
}

type memUsers struct{ m *memStore }

func (r memUsers) Create(_ context.Context, u *domain.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("Users.Create"); err != nil {
		return err
	}
	for _, existing := range r.m.state.users {
		if existing.Email == u.Email {
			return domain.Conflictf("email %s already registered", u.Email)
		}
	}
	u.CreatedAt = r.m.now()
	u.UpdatedAt = u.CreatedAt
	r.m.state.users[u.ID] = *u
	return nil
}

func (r memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.state.users[id]
	if !ok {
		return nil, domain.NotFoundf("user %s", id)
	}
	return &u, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.state.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, domain.NotFoundf("user %s", email)
}

func (r memUsers) ListByRole(_ context.Context, role domain.Role) ([]*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.User
	for _, u := range r.m.state.users {
		if u.Role == role {
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memSeekers struct{ m *memStore }

func (r memSeekers) Create(_ context.Context, s *domain.JobSeeker) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("Seekers.Create"); err != nil {
		return err
	}
	for _, other := range r.m.state.seekers {
		if s.LineUserID != "" && other.LineUserID == s.LineUserID {
			return domain.Conflictf("seeker already registered")
		}
	}
	s.CreatedAt = r.m.now()
	r.m.state.seekers[s.ID] = *s
	return nil
}

func (r memSeekers) Update(_ context.Context, s *domain.JobSeeker) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("Seekers.Update"); err != nil {
		return err
	}
	if _, ok := r.m.state.seekers[s.ID]; !ok {
		return domain.NotFoundf("seeker %s", s.ID)
	}
	s.UpdatedAt = r.m.now()
	r.m.state.seekers[s.ID] = *s
	return nil
}

func (r memSeekers) LinkLine(_ context.Context, id, lineUserID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, other := range r.m.state.seekers {
		if other.ID != id && other.LineUserID == lineUserID {
			return domain.Conflictf("line account already linked")
		}
	}
	s, ok := r.m.state.seekers[id]
	if !ok {
		return domain.NotFoundf("seeker %s", id)
	}
	s.LineUserID = lineUserID
	r.m.state.seekers[id] = s
	return nil
}

func (r memSeekers) GetByID(_ context.Context, id string) (*domain.JobSeeker, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.state.seekers[id]
	if !ok {
		return nil, domain.NotFoundf("seeker %s", id)
	}
	return &s, nil
}

func (r memSeekers) GetByUserID(_ context.Context, userID string) (*domain.JobSeeker, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, s := range r.m.state.seekers {
		if s.UserID == userID {
			return &s, nil
		}
	}
	return nil, domain.NotFoundf("seeker of user %s", userID)
}

func (r memSeekers) GetByLineUserID(_ context.Context, lineUserID string) (*domain.JobSeeker, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, s := range r.m.state.seekers {
		if s.LineUserID != "" && s.LineUserID == lineUserID {
			return &s, nil
		}
	}
	return nil, domain.NotFoundf("seeker with line user %s", lineUserID)
}

func (r memSeekers) Search(_ context.Context, f domain.SeekerFilter) ([]*domain.JobSeeker, int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.JobSeeker
	for _, s := range r.m.state.seekers {
		if f.Area != "" && !strings.Contains(strings.ToLower(s.PreferredArea), strings.ToLower(f.Area)) {
			continue
		}
		if f.TransitLine != "" && !s.TransitLines.Has(f.TransitLine) {
			continue
		}
		if f.Category != "" && !strings.Contains(strings.ToLower(s.Skills+" "+s.Experience), strings.ToLower(f.Category)) {
			continue
		}
		out = append(out, &s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (r memSeekers) AppliedJobIDs(_ context.Context, seekerIDs []string) (map[string][]string, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	want := make(map[string]bool, len(seekerIDs))
	for _, id := range seekerIDs {
		want[id] = true
	}
	out := map[string][]string{}
	for _, id := range r.m.state.appOrder {
		a := r.m.state.apps[id]
		if want[a.SeekerID] {
			out[a.SeekerID] = append(out[a.SeekerID], a.JobID)
		}
	}
	return out, nil
}

type memJobs struct{ m *memStore }

func (r memJobs) put(j domain.Job) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.state.jobs[j.ID] = j
}

func (r memJobs) Create(_ context.Context, j *domain.Job) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("Jobs.Create"); err != nil {
		return err
	}
	j.CreatedAt = r.m.now()
	r.m.state.jobs[j.ID] = *j
	return nil
}

func (r memJobs) Update(_ context.Context, j *domain.Job) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	old, ok := r.m.state.jobs[j.ID]
	if !ok {
		return domain.NotFoundf("job %s", j.ID)
	}
	next := *j
	next.Status = old.Status
	r.m.state.jobs[j.ID] = next
	return nil
}

func (r memJobs) UpdateStatus(_ context.Context, id string, from, to domain.JobStatus) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	j, ok := r.m.state.jobs[id]
	if !ok {
		return domain.NotFoundf("job %s", id)
	}
	if j.Status != from {
		return domain.InvalidStatef("job %s is not %s", id, from)
	}
	j.Status = to
	r.m.state.jobs[id] = j
	return nil
}

func (r memJobs) Delete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.state.jobs[id]; !ok {
		return domain.NotFoundf("job %s", id)
	}
	for _, a := range r.m.state.apps {
		if a.JobID == id {
			return domain.Conflictf("job %s has applications, close it instead", id)
		}
	}
	delete(r.m.state.jobs, id)
	return nil
}

func (r memJobs) List(_ context.Context, f domain.ManagedJobFilter) ([]*domain.Job, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.Job
	for _, j := range r.m.state.jobs {
		if (f.CompanyID != "" && j.CompanyID != f.CompanyID) || (f.Status != "" && j.Status != f.Status) {
			continue
		}
		out = append(out, &j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out, nil
}

func (r memJobs) GetByID(_ context.Context, id string) (*domain.Job, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	j, ok := r.m.state.jobs[id]
	if !ok {
		return nil, domain.NotFoundf("job %s", id)
	}
	return &j, nil
}

func (r memJobs) ListActive(_ context.Context, f domain.JobFilter) ([]*domain.Job, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.Job
	for _, j := range r.m.state.jobs {
		if j.Status != domain.JobStatusActive {
			continue
		}
		if !f.OnlyOpenAt.IsZero() && !j.IsOpen(f.OnlyOpenAt) {
			continue
		}
		if f.ForElderly && !j.ForElderly {
			continue
		}
		if f.TransitLine != "" && !j.TransitLines.IsEmpty() && !j.TransitLines.Has(f.TransitLine) {
			continue
		}
		out = append(out, &j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r memJobs) LatestActiveByCompany(ctx context.Context, companyID string) (*domain.Job, error) {
	jobs, err := r.ListActive(ctx, domain.JobFilter{})
	if err != nil {
		return nil, err
	}
	for _, j := range jobs {
		if j.CompanyID == companyID {
			return j, nil
		}
	}
	return nil, domain.NotFoundf("active job of company %s", companyID)
}

func (r memJobs) CloseExpired(_ context.Context, now time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for id, j := range r.m.state.jobs {
		if j.Status == domain.JobStatusActive && j.ExpiresAt != nil && j.ExpiresAt.Before(now) {
			j.Status = domain.JobStatusClosed
			r.m.state.jobs[id] = j
			n++
		}
	}
	return n, nil
}

type memApplications struct{ m *memStore }

func (r memApplications) decorate(a domain.Application) *domain.Application {
	if j, ok := r.m.state.jobs[a.JobID]; ok {
		a.JobTitle = j.Title
		a.CompanyID = j.CompanyID
	}
	if s, ok := r.m.state.seekers[a.SeekerID]; ok {
		a.SeekerName = s.DisplayName
	}
	return &a
}

func (r memApplications) Create(_ context.Context, a *domain.Application) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("Applications.Create"); err != nil {
		return err
	}
	for _, existing := range r.m.state.apps {
		if existing.JobID == a.JobID && existing.SeekerID == a.SeekerID {
			return domain.Conflictf("seeker %s already applied to job %s", a.SeekerID, a.JobID)
		}
	}
	a.CreatedAt = r.m.now()
	a.UpdatedAt = a.CreatedAt
	r.m.state.apps[a.ID] = *a
	r.m.state.appOrder = append(r.m.state.appOrder, a.ID)
	return nil
}

func (r memApplications) GetByID(_ context.Context, id string) (*domain.Application, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.state.apps[id]
	if !ok {
		return nil, domain.NotFoundf("application %s", id)
	}
	return r.decorate(a), nil
}

func (r memApplications) GetForUpdate(ctx context.Context, id string) (*domain.Application, error) {
	return r.GetByID(ctx, id)
}

func (r memApplications) GetByJobAndSeeker(_ context.Context, jobID, seekerID string) (*domain.Application, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, a := range r.m.state.apps {
		if a.JobID == jobID && a.SeekerID == seekerID {
			return r.decorate(a), nil
		}
	}
	return nil, domain.NotFoundf("application of seeker %s for job %s", seekerID, jobID)
}

func (r memApplications) UpdateStatus(_ context.Context, id string, status domain.ApplicationStatus) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("Applications.UpdateStatus"); err != nil {
		return err
	}
	a, ok := r.m.state.apps[id]
	if !ok {
		return domain.NotFoundf("application %s", id)
	}
	a.Status = status
	a.UpdatedAt = r.m.now()
	r.m.state.apps[id] = a
	return nil
}

func (r memApplications) UpdateAdditionalInfo(_ context.Context, id string, info domain.AdditionalInfo, needsMoreInfo bool) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.state.apps[id]
	if !ok {
		return domain.NotFoundf("application %s", id)
	}
	a.AdditionalSkills = info.AdditionalSkills
	a.PreferredLocations = info.PreferredLocations
	a.AdminNotes = info.AdminNotes
	a.NeedsMoreInfo = needsMoreInfo
	r.m.state.apps[id] = a
	return nil
}

func (r memApplications) List(_ context.Context, f domain.ApplicationFilter) ([]*domain.Application, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.Application
	for i := len(r.m.state.appOrder) - 1; i >= 0; i-- {
		a := r.decorate(r.m.state.apps[r.m.state.appOrder[i]])
		switch {
		case f.JobID != "" && a.JobID != f.JobID,
			f.SeekerID != "" && a.SeekerID != f.SeekerID,
			f.CompanyID != "" && a.CompanyID != f.CompanyID,
			f.Status != "" && a.Status != f.Status,
			f.NeedsMoreInfo != nil && a.NeedsMoreInfo != *f.NeedsMoreInfo:
			continue
		}
		out = append(out, a)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (r memApplications) CountByCompany(_ context.Context, companyID string, statuses ...domain.ApplicationStatus) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n := 0
	for _, a := range r.m.state.apps {
		d := r.decorate(a)
		if d.CompanyID != companyID {
			continue
		}
		if len(statuses) > 0 && !containsStatus(statuses, d.Status) {
			continue
		}
		n++
	}
	return n, nil
}

func containsStatus(list []domain.ApplicationStatus, s domain.ApplicationStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type memSaved struct{ m *memStore }

func (r memSaved) Save(_ context.Context, companyID, applicationID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	key := companyID + "|" + applicationID
	if _, ok := r.m.state.saved[key]; !ok {
		r.m.state.saved[key] = domain.SavedApplication{CompanyID: companyID, ApplicationID: applicationID, CreatedAt: r.m.now()}
	}
	return nil
}

func (r memSaved) Remove(_ context.Context, companyID, applicationID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	key := companyID + "|" + applicationID
	if _, ok := r.m.state.saved[key]; !ok {
		return domain.NotFoundf("saved application %s", applicationID)
	}
	delete(r.m.state.saved, key)
	return nil
}

func (r memSaved) IsSaved(_ context.Context, companyID, applicationID string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	_, ok := r.m.state.saved[companyID+"|"+applicationID]
	return ok, nil
}

func (r memSaved) ListByCompany(_ context.Context, companyID string) ([]*domain.SavedApplication, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.SavedApplication
	for _, s := range r.m.state.saved {
		if s.CompanyID == companyID {
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ApplicationID < out[j].ApplicationID })
	return out, nil
}

func (r memSaved) CountByCompany(ctx context.Context, companyID string) (int, error) {
	list, err := r.ListByCompany(ctx, companyID)
	return len(list), err
}

func (r memSaved) RecordView(_ context.Context, companyID, applicationID string, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.state.views[companyID+"|"+applicationID+"|"+at.UTC().Format(time.DateOnly)] = true
	return nil
}

func (r memSaved) CountViewsByCompany(_ context.Context, companyID string) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n := 0
	for k := range r.m.state.views {
		if strings.HasPrefix(k, companyID+"|") {
			n++
		}
	}
	return n, nil
}

type memCompanies struct{ m *memStore }

func (r memCompanies) Create(_ context.Context, c *domain.Company) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("Companies.Create"); err != nil {
		return err
	}
	c.CreatedAt = r.m.now()
	r.m.state.companies[c.ID] = *c
	return nil
}

func (r memCompanies) GetByID(_ context.Context, id string) (*domain.Company, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.state.companies[id]
	if !ok {
		return nil, domain.NotFoundf("company %s", id)
	}
	return &c, nil
}

func (r memCompanies) GetByUserID(_ context.Context, userID string) (*domain.Company, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, c := range r.m.state.companies {
		if c.UserID == userID {
			return &c, nil
		}
	}
	return nil, domain.NotFoundf("company of user %s", userID)
}

func (r memCompanies) AddCredits(_ context.Context, id string, credits int) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("Companies.AddCredits"); err != nil {
		return 0, err
	}
	c, ok := r.m.state.companies[id]
	if !ok {
		return 0, domain.NotFoundf("company %s", id)
	}
	c.CreditsRemaining += credits
	r.m.state.companies[id] = c
	return c.CreditsRemaining, nil
}

func (r memCompanies) SetCurrentPackage(_ context.Context, id, packageID string, expiresAt time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("Companies.SetCurrentPackage"); err != nil {
		return err
	}
	c, ok := r.m.state.companies[id]
	if !ok {
		return domain.NotFoundf("company %s", id)
	}
	c.CurrentPackageID = &packageID
	c.PackageExpiresAt = &expiresAt
	r.m.state.companies[id] = c
	return nil
}

func (r memCompanies) ClearExpiredPackages(_ context.Context, now time.Time) ([]*domain.Company, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.Company
	for id, c := range r.m.state.companies {
		if c.CurrentPackageID == nil || c.PackageExpiresAt == nil || !c.PackageExpiresAt.Before(now) {
			continue
		}
		old := c
		out = append(out, &old)
		c.CurrentPackageID = nil
		c.PackageExpiresAt = nil
		r.m.state.companies[id] = c
	}
	return out, nil
}

type memPackages struct{ m *memStore }

func (r memPackages) Create(_ context.Context, p *domain.Package) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p.CreatedAt = r.m.now()
	p.UpdatedAt = p.CreatedAt
	r.m.state.packages[p.ID] = *p
	return nil
}

func (r memPackages) Update(_ context.Context, p *domain.Package) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.state.packages[p.ID]; !ok {
		return domain.NotFoundf("package %s", p.ID)
	}
	p.UpdatedAt = r.m.now()
	r.m.state.packages[p.ID] = *p
	return nil
}

func (r memPackages) GetByID(_ context.Context, id string) (*domain.Package, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.state.packages[id]
	if !ok {
		return nil, domain.NotFoundf("package %s", id)
	}
	return &p, nil
}

func (r memPackages) List(_ context.Context, onlyActive bool) ([]*domain.Package, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("Packages.List"); err != nil {
		return nil, err
	}
	var out []*domain.Package
	for _, p := range r.m.state.packages {
		if onlyActive && !p.IsActive {
			continue
		}
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

type memOrders struct{ m *memStore }

func (r memOrders) Create(_ context.Context, o *domain.Order) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	o.CreatedAt = r.m.now()
	r.m.state.orders[o.ID] = *o
	return nil
}

func (r memOrders) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	o, ok := r.m.state.orders[id]
	if !ok {
		return nil, domain.NotFoundf("order %s", id)
	}
	return &o, nil
}

func (r memOrders) GetForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return r.GetByID(ctx, id)
}

func (r memOrders) MarkPaid(_ context.Context, id string, paidAt time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("Orders.MarkPaid"); err != nil {
		return err
	}
	o, ok := r.m.state.orders[id]
	if !ok {
		return domain.NotFoundf("order %s", id)
	}
	o.Status = domain.OrderPaid
	o.PaidAt = &paidAt
	r.m.state.orders[id] = o
	return nil
}

func (r memOrders) ListByCompany(_ context.Context, companyID string, limit int) ([]*domain.Order, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.Order
	for _, o := range r.m.state.orders {
		if o.CompanyID == companyID {
			out = append(out, &o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memNotifications struct{ m *memStore }

func (r memNotifications) Create(_ context.Context, n *domain.Notification) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("Notifications.Create"); err != nil {
		return err
	}
	n.CreatedAt = r.m.now()
	r.m.state.notifications = append(r.m.state.notifications, *n)
	return nil
}

func (r memNotifications) GetByID(_ context.Context, id string) (*domain.Notification, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, n := range r.m.state.notifications {
		if n.ID == id {
			return &n, nil
		}
	}
	return nil, domain.NotFoundf("notification %s", id)
}

func (r memNotifications) ListFor(_ context.Context, rcpt domain.Recipient, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.Notification
	for i := len(r.m.state.notifications) - 1; i >= 0; i-- {
		n := r.m.state.notifications[i]
		if !rcpt.Matches(&n) || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, &n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r memNotifications) MarkRead(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i := range r.m.state.notifications {
		if r.m.state.notifications[i].ID == id {
			r.m.state.notifications[i].IsRead = true
			return nil
		}
	}
	return domain.NotFoundf("notification %s", id)
}

// all returns every stored notification in insertion order.
func (r memNotifications) all() []domain.Notification {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return append([]domain.Notification(nil), r.m.state.notifications...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) ofType(t domain.EventType) []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.Event
	for _, ev := range p.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type recordingTransport struct {
	replies map[string][]string
	pushes  map[string][]string
	err     error
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{replies: map[string][]string{}, pushes: map[string][]string{}}
}

func (t *recordingTransport) Push(_ context.Context, to string, texts ...string) error {
	if t.err != nil {
		return t.err
	}
	t.pushes[to] = append(t.pushes[to], texts...)
	return nil
}

func (t *recordingTransport) Reply(_ context.Context, token string, texts ...string) error {
	if t.err != nil {
		return t.err
	}
	t.replies[token] = append(t.replies[token], texts...)
	return nil
}

// fixture is a small marketplace: one company with one active job, one
// regular seeker, one elderly seeker and one admin.
type fixture struct {
	store  *memStore
	tx     *memTx
	events *recordingPublisher
	apps   *ApplicationService
	ledger *LedgerService
	jobs   *JobService

	company       security.Principal
	otherCompany  security.Principal
	seeker        security.Principal
	elderlySeeker security.Principal
	admin         security.Principal
}

func newFixture() *fixture {
	store := newMemStore()
	f := &fixture{
		store:         store,
		tx:            &memTx{store: store},
		events:        &recordingPublisher{},
		company:       security.Principal{UserID: "u-company", Role: domain.RoleCompany, CompanyID: "c-1"},
		otherCompany:  security.Principal{UserID: "u-other", Role: domain.RoleCompany, CompanyID: "c-2"},
		seeker:        security.Principal{UserID: "u-seeker", Role: domain.RoleSeeker, SeekerID: "s-1"},
		elderlySeeker: security.Principal{UserID: "u-elderly", Role: domain.RoleSeeker, SeekerID: "s-2"},
		admin:         security.Principal{UserID: "u-admin", Role: domain.RoleAdmin},
	}
	st := &store.state
	st.users["u-company"] = domain.User{ID: "u-company", Email: "hr@acme.test", Role: domain.RoleCompany}
	st.users["u-other"] = domain.User{ID: "u-other", Email: "hr@other.test", Role: domain.RoleCompany}
	st.users["u-seeker"] = domain.User{ID: "u-seeker", Email: "somchai@test", Role: domain.RoleSeeker}
	st.users["u-elderly"] = domain.User{ID: "u-elderly", Email: "prasert@test", Role: domain.RoleSeeker}
	st.users["u-admin"] = domain.User{ID: "u-admin", Email: "admin@test", Role: domain.RoleAdmin}
	st.companies["c-1"] = domain.Company{ID: "c-1", UserID: "u-company", Name: "Acme"}
	st.companies["c-2"] = domain.Company{ID: "c-2", UserID: "u-other", Name: "Other"}
	st.seekers["s-1"] = domain.JobSeeker{ID: "s-1", UserID: "u-seeker", DisplayName: "Somchai", LineUserID: "U-line-1"}
	st.seekers["s-2"] = domain.JobSeeker{ID: "s-2", UserID: "u-elderly", DisplayName: "Prasert", IsElderly: true}
	st.jobs["j-1"] = domain.Job{
		ID: "j-1", CompanyID: "c-1", CompanyName: "Acme", Title: "Cashier",
		Location: "Bangkok", JobType: domain.JobTypePartTime, Status: domain.JobStatusActive,
		CreatedAt: store.now().Add(-time.Hour),
	}
	st.jobs["j-closed"] = domain.Job{
		ID: "j-closed", CompanyID: "c-1", CompanyName: "Acme", Title: "Driver",
		Status: domain.JobStatusClosed, CreatedAt: store.now().Add(-2 * time.Hour),
	}
	st.packages["p-basic"] = domain.Package{ID: "p-basic", Name: "Basic", Price: 2990, CreditsIncluded: 50, IsActive: true, SortOrder: 1}
	st.packages["p-old"] = domain.Package{ID: "p-old", Name: "Legacy", Price: 990, CreditsIncluded: 10, SortOrder: 9}

	authz := security.NewAuthorizer(nil)
	auditLog := audit.NewLogger(nil)
	f.apps = NewApplicationService(store.stores(), f.tx, authz, auditLog, f.events, nil)
	f.apps.now = store.now
	f.apps.adminAlert = func() bool { return true }
	f.ledger = NewLedgerService(store.stores(), f.tx, authz, auditLog, f.events, nil)
	f.ledger.now = store.now
	f.jobs = NewJobService(store.stores(), f.tx, authz, auditLog, f.events, nil)
	f.jobs.now = store.now
	return f
}

type fakeProfiles struct {
	profiles map[string]domain.ChatProfile
	err      error
}

func (p fakeProfiles) Profile(_ context.Context, userID string) (*domain.ChatProfile, error) {
	if p.err != nil {
		return nil, p.err
	}
	prof, ok := p.profiles[userID]
	if !ok {
		return nil, domain.NotFoundf("profile %s", userID)
	}
	return &prof, nil
}

// memLinkCodes issues sequential codes.
type memLinkCodes struct {
	mu    sync.Mutex
	next  int
	codes map[string]string
}

func newMemLinkCodes() *memLinkCodes {
	return &memLinkCodes{codes: map[string]string{}}
}

func (l *memLinkCodes) Issue(_ context.Context, seekerID string, _ time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	code := fmt.Sprintf("%06d", l.next)
	l.codes[code] = seekerID
	return code, nil
}

func (l *memLinkCodes) Consume(_ context.Context, code string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id, ok := l.codes[code]
	if !ok {
		return "", domain.NotFoundf("link code")
	}
	delete(l.codes, code)
	return id, nil
}
