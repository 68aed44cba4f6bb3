package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/billhive/billhive/internal/platform/httpx"
	"github.com/billhive/billhive/internal/shared"
)

// Store abstracts the repository for the service layer.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetDocument(ctx context.Context, userID, id int64) (*Document, error)
	ListDocuments(ctx context.Context, userID int64, f ListFilter) ([]Document, int, error)
	Stats(ctx context.Context, userID int64) (*Stats, error)
}

// Service drives the document lifecycle. Every write runs in one
// transaction covering number allocation, the document rows and the ledger
// postings, so a failure leaves no trace and numbers stay gap-free.
type Service struct {
	logger         *slog.Logger
	store          Store
	cache          *StatsCache
	idem           *shared.IdempotencyStore
	invoiceWidth   int
	quotationWidth int
}

// NewService constructs a new Service. cache and idem may be nil.
func NewService(logger *slog.Logger, store Store, cache *StatsCache, idem *shared.IdempotencyStore, invoiceWidth, quotationWidth int) *Service {
	return &Service{
		logger:         logger,
		store:          store,
		cache:          cache,
		idem:           idem,
		invoiceWidth:   invoiceWidth,
		quotationWidth: quotationWidth,
	}
}

// FormatNumber renders a document number from prefix and sequence, zero
// padded to the configured width.
func FormatNumber(prefix string, seq int64, width int) string {
	return fmt.Sprintf("%s-%0*d", prefix, width, seq)
}

func (s *Service) numberWidth(t DocumentType) int {
	if t == TypeQuotation {
		return s.quotationWidth
	}
	return s.invoiceWidth
}

// Create posts a new invoice or quotation. The idempotency key, when
// supplied, guards against duplicate submissions of the same request.
func (s *Service) Create(ctx context.Context, userID int64, req DocumentRequest, idempotencyKey string) (*Document, error) {
	docType := req.Type
	if docType == "" {
		docType = TypeInvoice
	}
	if !ValidDocumentType(docType) {
		return nil, fmt.Errorf("%w: unknown document type %q", httpx.ErrValidation, req.Type)
	}
	if err := validateAmounts(req); err != nil {
		return nil, err
	}

	if idempotencyKey != "" && s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, idempotencyKey, "billing"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return nil, fmt.Errorf("%w: request already processed", httpx.ErrDuplicate)
			}
			return nil, err
		}
	}

	var doc *Document
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		built, err := s.buildDocument(ctx, tx, userID, docType, req, nil)
		if err != nil {
			return err
		}
		prefix, seq, err := tx.AllocateDocumentNumber(ctx, userID, docType)
		if err != nil {
			return err
		}
		built.Number = FormatNumber(prefix, seq, s.numberWidth(docType))

		if _, err := tx.InsertDocument(ctx, built); err != nil {
			return err
		}
		if err := tx.InsertItems(ctx, built.ID, built.Items); err != nil {
			return err
		}
		if err := applyLedger(ctx, tx, built); err != nil {
			return err
		}
		doc = built
		return nil
	})
	if err != nil {
		if idempotencyKey != "" && s.idem != nil {
			if rerr := s.idem.Release(ctx, idempotencyKey); rerr != nil {
				s.logger.Warn("release idempotency key", slog.String("key", idempotencyKey), slog.Any("error", rerr))
			}
		}
		return nil, err
	}
	s.cache.Invalidate(ctx, userID)
	s.logger.Info("document created",
		slog.Int64("user_id", userID),
		slog.String("type", string(doc.Type)),
		slog.String("number", doc.Number))
	return doc, nil
}

// Update reprices a document in place. The previous ledger effect is
// reverted and the new one applied in the same transaction; the number and
// type never change.
func (s *Service) Update(ctx context.Context, userID, id int64, req DocumentRequest) (*Document, error) {
	if req.Type != "" && !ValidDocumentType(req.Type) {
		return nil, fmt.Errorf("%w: unknown document type %q", httpx.ErrValidation, req.Type)
	}
	if err := validateAmounts(req); err != nil {
		return nil, err
	}

	var doc *Document
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		old, err := tx.GetDocumentForUpdate(ctx, userID, id)
		if err != nil {
			return err
		}
		if req.Type != "" && req.Type != old.Type {
			return fmt.Errorf("%w: document type is fixed, convert the quotation instead", httpx.ErrInvalidTransition)
		}
		if err := revertLedger(ctx, tx, old); err != nil {
			return err
		}

		carryPaid := old.PaidAmount
		built, err := s.buildDocument(ctx, tx, userID, old.Type, req, &carryPaid)
		if err != nil {
			return err
		}
		built.ID = old.ID
		built.Number = old.Number
		built.CreatedAt = old.CreatedAt

		if err := tx.UpdateDocument(ctx, built); err != nil {
			return err
		}
		if err := tx.DeleteItems(ctx, old.ID); err != nil {
			return err
		}
		if err := tx.InsertItems(ctx, old.ID, built.Items); err != nil {
			return err
		}
		if err := applyLedger(ctx, tx, built); err != nil {
			return err
		}
		doc = built
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, userID)
	return doc, nil
}

// Delete removes a document, reverting its ledger effect and cascading to
// its payments.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		doc, err := tx.GetDocumentForUpdate(ctx, userID, id)
		if err != nil {
			return err
		}
		if err := revertLedger(ctx, tx, doc); err != nil {
			return err
		}
		if err := tx.DeletePayments(ctx, doc.ID); err != nil {
			return err
		}
		if err := tx.DeleteItems(ctx, doc.ID); err != nil {
			return err
		}
		return tx.DeleteDocument(ctx, userID, id)
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx, userID)
	return nil
}

// Convert creates an invoice from a quotation. The quotation keeps its
// number and stays untouched; the invoice gets a fresh number and posts to
// the ledger as unpaid.
func (s *Service) Convert(ctx context.Context, userID, id int64) (*Document, error) {
	var invoice *Document
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		quotation, err := tx.GetDocumentForUpdate(ctx, userID, id)
		if err != nil {
			return err
		}
		if quotation.Type != TypeQuotation {
			return fmt.Errorf("%w: only quotations can be converted", httpx.ErrInvalidTransition)
		}

		prefix, seq, err := tx.AllocateDocumentNumber(ctx, userID, TypeInvoice)
		if err != nil {
			return err
		}

		inv := *quotation
		inv.ID = 0
		inv.Type = TypeInvoice
		inv.Number = FormatNumber(prefix, seq, s.invoiceWidth)
		inv.Date = time.Now()
		inv.PaidAmount = decimal.Zero
		inv.Status = DeriveStatus(inv.Total, inv.PaidAmount)
		inv.Items = make([]LineItem, len(quotation.Items))
		for i, item := range quotation.Items {
			item.ID = 0
			item.DocumentID = 0
			inv.Items[i] = item
		}

		if _, err := tx.InsertDocument(ctx, &inv); err != nil {
			return err
		}
		if err := tx.InsertItems(ctx, inv.ID, inv.Items); err != nil {
			return err
		}
		if err := applyLedger(ctx, tx, &inv); err != nil {
			return err
		}
		invoice = &inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, userID)
	s.logger.Info("quotation converted",
		slog.Int64("user_id", userID),
		slog.Int64("quotation_id", id),
		slog.String("invoice_number", invoice.Number))
	return invoice, nil
}

// Get fetches one document with line items.
func (s *Service) Get(ctx context.Context, userID, id int64) (*Document, error) {
	return s.store.GetDocument(ctx, userID, id)
}

// List returns a filtered document page.
func (s *Service) List(ctx context.Context, userID int64, f ListFilter) (*ListResponse, error) {
	if f.Type != "" && !ValidDocumentType(f.Type) {
		return nil, fmt.Errorf("%w: unknown document type %q", httpx.ErrValidation, f.Type)
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PerPage <= 0 || f.PerPage > 100 {
		f.PerPage = 20
	}
	docs, total, err := s.store.ListDocuments(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	return &ListResponse{Data: docs, Pagination: shared.NewPagination(f.Page, f.PerPage, total)}, nil
}

// Stats returns cached dashboard aggregates.
func (s *Service) Stats(ctx context.Context, userID int64) (*Stats, error) {
	return s.cache.Fetch(ctx, userID, func(ctx context.Context) (*Stats, error) {
		return s.store.Stats(ctx, userID)
	})
}

// buildDocument resolves the customer and items and prices the document.
// carryPaid, when set, is the previous paid amount used if the request does
// not override it.
func (s *Service) buildDocument(ctx context.Context, tx TxRepository, userID int64, docType DocumentType, req DocumentRequest, carryPaid *decimal.Decimal) (*Document, error) {
	profile, err := tx.SellerProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	var snapshot CustomerSnapshot
	var customerID *int64
	if req.CustomerID != nil {
		customer, err := tx.CustomerByID(ctx, userID, *req.CustomerID)
		if err != nil {
			return nil, err
		}
		cid := customer.ID
		customerID = &cid
		snapshot = CustomerSnapshot{
			Name:    customer.Name,
			Phone:   customer.Phone,
			Email:   customer.Email,
			GSTIN:   customer.GSTIN,
			Address: joinAddress(customer.Address.Street, customer.Address.City, customer.Address.Pincode),
			State:   customer.Address.State,
		}
	} else {
		snapshot = CustomerSnapshot{
			Name:    strings.TrimSpace(req.CustomerName),
			Phone:   strings.TrimSpace(req.Phone),
			Email:   strings.TrimSpace(req.Email),
			GSTIN:   strings.ToUpper(strings.TrimSpace(req.GSTIN)),
			Address: strings.TrimSpace(req.Address),
			State:   strings.TrimSpace(req.State),
		}
		if snapshot.Name == "" {
			return nil, fmt.Errorf("%w: customer name or customerId required", httpx.ErrValidation)
		}
	}

	items, err := ResolveItems(ctx, tx, userID, req.Items)
	if err != nil {
		return nil, err
	}
	gstEnabled := profile.GSTEnabled
	if req.GSTEnabled != nil {
		gstEnabled = *req.GSTEnabled
	}
	totals := ComputeTotals(items, req.Discount, gstEnabled, InterState(profile.State, snapshot.State))

	paid := decimal.Zero
	if docType == TypeInvoice {
		switch {
		case req.PaidAmount != nil:
			paid = *req.PaidAmount
		case carryPaid != nil:
			paid = *carryPaid
		}
		// Never record more than the document is worth.
		if paid.GreaterThan(totals.Total) {
			paid = totals.Total
		}
	}

	date := time.Now()
	if req.Date != nil {
		date = *req.Date
	}

	return &Document{
		UserID:     userID,
		Type:       docType,
		CustomerID: customerID,
		Customer:   snapshot,
		Date:       date,
		DueDate:    req.DueDate,
		Items:      items,
		GSTEnabled: gstEnabled,
		Subtotal:   totals.Subtotal,
		Discount:   totals.Discount,
		CGST:       totals.CGST,
		SGST:       totals.SGST,
		IGST:       totals.IGST,
		Total:      totals.Total,
		PaidAmount: paid,
		Status:     DeriveStatus(totals.Total, paid),
		Notes:      req.Notes,
		Terms:      profile.Terms,
		Transport: Transport{
			EwayBillNo:  strings.TrimSpace(req.Transport.EwayBillNo),
			VehicleNo:   strings.ToUpper(strings.TrimSpace(req.Transport.VehicleNo)),
			Mode:        strings.TrimSpace(req.Transport.Mode),
			Transporter: strings.TrimSpace(req.Transport.Transporter),
		},
	}, nil
}

func validateAmounts(req DocumentRequest) error {
	if req.Discount.IsNegative() {
		return fmt.Errorf("%w: discount must not be negative", httpx.ErrValidation)
	}
	if req.PaidAmount != nil && req.PaidAmount.IsNegative() {
		return fmt.Errorf("%w: paid amount must not be negative", httpx.ErrValidation)
	}
	return nil
}

func joinAddress(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, ", ")
}
