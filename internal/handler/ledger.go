package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
	"github.com/aryan0dhankhar/jobmatch/internal/security"
	"github.com/aryan0dhankhar/jobmatch/internal/service"
)

// PackageCatalog reads and edits the package catalog.
type PackageCatalog interface {
	ListActive(ctx context.Context) ([]*domain.Package, error)
	ListAll(ctx context.Context, p security.Principal) ([]*domain.Package, error)
	Create(ctx context.Context, p security.Principal, in service.PackageInput) (*domain.Package, error)
	Update(ctx context.Context, p security.Principal, id string, in service.PackageInput) (*domain.Package, error)
}

// Ledger creates and pays orders and reports credit balances.
type Ledger interface {
	CreateOrder(ctx context.Context, p security.Principal, packageID string) (*domain.Order, error)
	PayOrder(ctx context.Context, p security.Principal, orderID string) (*service.PaymentResult, error)
	Credits(ctx context.Context, p security.Principal) (*service.CreditSummary, error)
	ListOrders(ctx context.Context, p security.Principal, limit int) ([]*domain.Order, error)
}

// LedgerHandler handles the package catalog, orders and credit balances
type LedgerHandler struct {
	packages PackageCatalog
	ledger   Ledger
	logger   *slog.Logger
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(packages PackageCatalog, ledger Ledger, logger *slog.Logger) *LedgerHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerHandler{packages: packages, ledger: ledger, logger: logger}
}

// OrderRequest names the package to buy.
type OrderRequest struct {
	PackageID string `json:"packageId"`
}

// ListPackages handles GET /api/packages
func (h *LedgerHandler) ListPackages(w http.ResponseWriter, r *http.Request) {
	pkgs, err := h.packages.ListActive(r.Context())
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilPackages(pkgs))
}

// AdminListPackages handles GET /api/admin/packages
func (h *LedgerHandler) AdminListPackages(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	pkgs, err := h.packages.ListAll(r.Context(), p)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilPackages(pkgs))
}

// CreatePackage handles POST /api/admin/packages
func (h *LedgerHandler) CreatePackage(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var in service.PackageInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}
	pkg, err := h.packages.Create(r.Context(), p, in)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, pkg)
}

// UpdatePackage handles PUT /api/admin/packages/{id}
func (h *LedgerHandler) UpdatePackage(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var in service.PackageInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}
	pkg, err := h.packages.Update(r.Context(), p, r.PathValue("id"), in)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pkg)
}

// ListOrders handles GET /api/company/orders?limit=
func (h *LedgerHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	orders, err := h.ledger.ListOrders(r.Context(), p, limit)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

// CreateOrder handles POST /api/company/orders
func (h *LedgerHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req OrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}
	order, err := h.ledger.CreateOrder(r.Context(), p, req.PackageID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// PayOrder handles POST /api/company/orders/{id}/pay
func (h *LedgerHandler) PayOrder(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	res, err := h.ledger.PayOrder(r.Context(), p, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Credits handles GET /api/company/credits
func (h *LedgerHandler) Credits(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	sum, err := h.ledger.Credits(r.Context(), p)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func nonNilPackages(pkgs []*domain.Package) []*domain.Package {
	if pkgs == nil {
		return []*domain.Package{}
	}
	return pkgs
}
