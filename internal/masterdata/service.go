package masterdata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/billhive/billhive/internal/platform/httpx"
	"github.com/billhive/billhive/internal/shared"
)

// Service wraps master data business rules on top of the repository.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Business returns the seller profile for the user.
func (s *Service) Business(ctx context.Context, userID int64) (*Business, error) {
	return s.repo.GetBusiness(ctx, userID)
}

// SaveBusiness creates or updates the seller profile. Prefixes default to
// INV and QUO; GST defaults to enabled on first save and is otherwise kept
// unless the request sets it.
func (s *Service) SaveBusiness(ctx context.Context, userID int64, req BusinessRequest) (*Business, error) {
	gstEnabled := true
	existing, err := s.repo.GetBusiness(ctx, userID)
	switch {
	case err == nil:
		gstEnabled = existing.GSTEnabled
	case errors.Is(err, httpx.ErrNotFound):
	default:
		return nil, err
	}
	if req.GSTEnabled != nil {
		gstEnabled = *req.GSTEnabled
	}

	b := &Business{
		UserID:          userID,
		Name:            strings.TrimSpace(req.Name),
		GSTIN:           strings.ToUpper(strings.TrimSpace(req.GSTIN)),
		PAN:             strings.ToUpper(strings.TrimSpace(req.PAN)),
		Phone:           strings.TrimSpace(req.Phone),
		Email:           strings.TrimSpace(req.Email),
		Address:         req.Address.toAddress(),
		BankDetails:     BankDetails(req.BankDetails),
		InvoicePrefix:   strings.TrimSpace(req.InvoicePrefix),
		QuotationPrefix: strings.TrimSpace(req.QuotationPrefix),
		Terms:           req.Terms,
		GSTEnabled:      gstEnabled,
	}
	if b.InvoicePrefix == "" {
		b.InvoicePrefix = "INV"
	}
	if b.QuotationPrefix == "" {
		b.QuotationPrefix = "QUO"
	}
	return s.repo.UpsertBusiness(ctx, b)
}

// ListCustomers returns a customer page with pagination metadata.
func (s *Service) ListCustomers(ctx context.Context, userID int64, q ListQuery) ([]Customer, shared.Pagination, error) {
	q = normaliseQuery(q)
	customers, total, err := s.repo.ListCustomers(ctx, userID, q)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return customers, shared.NewPagination(q.Page, q.PerPage, total), nil
}

// Customer fetches one customer.
func (s *Service) Customer(ctx context.Context, userID, id int64) (*Customer, error) {
	return s.repo.GetCustomer(ctx, userID, id)
}

// CreateCustomer inserts a customer with a zero opening balance.
func (s *Service) CreateCustomer(ctx context.Context, userID int64, req CustomerRequest) (*Customer, error) {
	return s.repo.CreateCustomer(ctx, customerFromRequest(userID, 0, req))
}

// UpdateCustomer saves editable customer fields.
func (s *Service) UpdateCustomer(ctx context.Context, userID, id int64, req CustomerRequest) (*Customer, error) {
	return s.repo.UpdateCustomer(ctx, customerFromRequest(userID, id, req))
}

// DeleteCustomer removes a customer.
func (s *Service) DeleteCustomer(ctx context.Context, userID, id int64) error {
	return s.repo.DeleteCustomer(ctx, userID, id)
}

func customerFromRequest(userID, id int64, req CustomerRequest) *Customer {
	return &Customer{
		ID:      id,
		UserID:  userID,
		Name:    strings.TrimSpace(req.Name),
		Phone:   strings.TrimSpace(req.Phone),
		Email:   strings.TrimSpace(req.Email),
		GSTIN:   strings.ToUpper(strings.TrimSpace(req.GSTIN)),
		Address: req.Address.toAddress(),
	}
}

// ListProducts returns a product page with pagination metadata.
func (s *Service) ListProducts(ctx context.Context, userID int64, q ListQuery) ([]Product, shared.Pagination, error) {
	q = normaliseQuery(q)
	products, total, err := s.repo.ListProducts(ctx, userID, q)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return products, shared.NewPagination(q.Page, q.PerPage, total), nil
}

// LowStockProducts returns products at or under their threshold.
func (s *Service) LowStockProducts(ctx context.Context, userID int64) ([]Product, error) {
	return s.repo.ListLowStockProducts(ctx, userID)
}

// Product fetches one product.
func (s *Service) Product(ctx context.Context, userID, id int64) (*Product, error) {
	return s.repo.GetProduct(ctx, userID, id)
}

// CreateProduct inserts a product after applying defaults.
func (s *Service) CreateProduct(ctx context.Context, userID int64, req ProductRequest) (*Product, error) {
	p, err := productFromRequest(userID, 0, req)
	if err != nil {
		return nil, err
	}
	return s.repo.CreateProduct(ctx, p)
}

// UpdateProduct saves product fields.
func (s *Service) UpdateProduct(ctx context.Context, userID, id int64, req ProductRequest) (*Product, error) {
	p, err := productFromRequest(userID, id, req)
	if err != nil {
		return nil, err
	}
	return s.repo.UpdateProduct(ctx, p)
}

// DeleteProduct removes a product.
func (s *Service) DeleteProduct(ctx context.Context, userID, id int64) error {
	return s.repo.DeleteProduct(ctx, userID, id)
}

func productFromRequest(userID, id int64, req ProductRequest) (*Product, error) {
	rate := 18
	if req.GSTRate != nil {
		rate = *req.GSTRate
	}
	if !ValidGSTRate(rate) {
		return nil, fmt.Errorf("%w: gst rate %d not in %v", httpx.ErrValidation, rate, GSTRates)
	}
	unit := req.Unit
	if unit == "" {
		unit = UnitPCS
	}
	if !ValidUnit(unit) {
		return nil, fmt.Errorf("%w: unknown unit %q", httpx.ErrValidation, unit)
	}
	if req.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", httpx.ErrValidation)
	}
	return &Product{
		ID:                id,
		UserID:            userID,
		Name:              strings.TrimSpace(req.Name),
		Description:       req.Description,
		HSNCode:           strings.TrimSpace(req.HSNCode),
		PartNo:            strings.TrimSpace(req.PartNo),
		Price:             req.Price,
		GSTRate:           rate,
		Unit:              unit,
		Stock:             req.Stock,
		LowStockThreshold: req.LowStockThreshold,
	}, nil
}

func normaliseQuery(q ListQuery) ListQuery {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PerPage <= 0 || q.PerPage > 100 {
		q.PerPage = 20
	}
	return q
}
