package payments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/billhive/billhive/internal/billing"
	"github.com/billhive/billhive/internal/platform/httpx"
	"github.com/billhive/billhive/internal/shared"
)

// Store abstracts the repository for the service layer.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPayment(ctx context.Context, userID, id int64) (*Payment, error)
	ListPayments(ctx context.Context, userID int64, q ListQuery) ([]Payment, int, error)
	ListForInvoice(ctx context.Context, userID, invoiceID int64) ([]Payment, error)
}

// Service posts receipts against invoices. Each posting locks the invoice,
// moves its paid amount, rederives the status and mirrors the movement on
// the customer's outstanding balance.
type Service struct {
	logger *slog.Logger
	store  Store
	cache  *billing.StatsCache
}

// NewService constructs a new Service. cache may be nil.
func NewService(logger *slog.Logger, store Store, cache *billing.StatsCache) *Service {
	return &Service{logger: logger, store: store, cache: cache}
}

// Create records a receipt. An amount above the open balance is rejected so
// an invoice can never be overpaid.
func (s *Service) Create(ctx context.Context, userID, invoiceID int64, req PaymentRequest) (*Payment, error) {
	mode, err := normaliseRequest(&req)
	if err != nil {
		return nil, err
	}

	var payment *Payment
	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		invoice, err := tx.InvoiceForUpdate(ctx, userID, invoiceID)
		if err != nil {
			return err
		}
		if invoice.Type != billing.TypeInvoice {
			return fmt.Errorf("%w: payments apply to invoices only", httpx.ErrValidation)
		}
		balance := invoice.Balance()
		if !balance.IsPositive() {
			return fmt.Errorf("%w: invoice %s is already paid in full", httpx.ErrValidation, invoice.Number)
		}
		amount := req.Amount
		if amount.GreaterThan(balance) {
			return fmt.Errorf("%w: amount %s exceeds open balance %s on invoice %s",
				httpx.ErrValidation, amount, balance, invoice.Number)
		}

		p := &Payment{
			UserID:        userID,
			DocumentID:    invoice.ID,
			InvoiceNumber: invoice.Number,
			Number:        NewNumber(),
			Amount:        amount,
			Mode:          mode,
			Reference:     req.Reference,
			Notes:         req.Notes,
			Date:          *req.Date,
		}
		if _, err := tx.InsertPayment(ctx, p); err != nil {
			return err
		}

		newPaid := invoice.Paid.Add(amount)
		if err := tx.SetInvoicePaid(ctx, invoice.ID, newPaid, billing.DeriveStatus(invoice.Total, newPaid)); err != nil {
			return err
		}
		if invoice.CustomerID != nil {
			if err := tx.AdjustCustomerBalance(ctx, userID, *invoice.CustomerID, amount.Neg()); err != nil {
				return err
			}
		}
		payment = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, userID)
	s.logger.Info("payment recorded",
		slog.Int64("user_id", userID),
		slog.String("number", payment.Number),
		slog.String("invoice", payment.InvoiceNumber))
	return payment, nil
}

// Update edits a receipt. The amount change is applied as a delta to the
// invoice and customer; a new amount that would overpay the invoice is
// rejected.
func (s *Service) Update(ctx context.Context, userID, id int64, req PaymentRequest) (*Payment, error) {
	mode, err := normaliseRequest(&req)
	if err != nil {
		return nil, err
	}

	var payment *Payment
	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		old, err := tx.PaymentForUpdate(ctx, userID, id)
		if err != nil {
			return err
		}
		invoice, err := tx.InvoiceForUpdate(ctx, userID, old.DocumentID)
		if err != nil {
			return err
		}

		headroom := invoice.Balance().Add(old.Amount)
		amount := req.Amount
		if amount.GreaterThan(headroom) {
			return fmt.Errorf("%w: amount %s exceeds open balance %s on invoice %s",
				httpx.ErrValidation, amount, headroom, invoice.Number)
		}
		delta := amount.Sub(old.Amount)

		old.Amount = amount
		old.Mode = mode
		old.Reference = req.Reference
		old.Notes = req.Notes
		old.Date = *req.Date
		if err := tx.UpdatePayment(ctx, old); err != nil {
			return err
		}

		newPaid := invoice.Paid.Add(delta)
		if err := tx.SetInvoicePaid(ctx, invoice.ID, newPaid, billing.DeriveStatus(invoice.Total, newPaid)); err != nil {
			return err
		}
		if invoice.CustomerID != nil && !delta.IsZero() {
			if err := tx.AdjustCustomerBalance(ctx, userID, *invoice.CustomerID, delta.Neg()); err != nil {
				return err
			}
		}
		payment = old
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, userID)
	return payment, nil
}

// Delete removes a receipt and returns its amount to the invoice balance.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		old, err := tx.PaymentForUpdate(ctx, userID, id)
		if err != nil {
			return err
		}
		invoice, err := tx.InvoiceForUpdate(ctx, userID, old.DocumentID)
		if err != nil {
			return err
		}

		newPaid := invoice.Paid.Sub(old.Amount)
		if err := tx.SetInvoicePaid(ctx, invoice.ID, newPaid, billing.DeriveStatus(invoice.Total, newPaid)); err != nil {
			return err
		}
		if invoice.CustomerID != nil {
			if err := tx.AdjustCustomerBalance(ctx, userID, *invoice.CustomerID, old.Amount); err != nil {
				return err
			}
		}
		return tx.DeletePayment(ctx, userID, id)
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx, userID)
	return nil
}

// Get fetches one payment.
func (s *Service) Get(ctx context.Context, userID, id int64) (*Payment, error) {
	return s.store.GetPayment(ctx, userID, id)
}

// List returns a filtered payment page.
func (s *Service) List(ctx context.Context, userID int64, q ListQuery) (*ListResponse, error) {
	if q.Mode != "" && !ValidMode(q.Mode) {
		return nil, fmt.Errorf("%w: unknown payment mode %q", httpx.ErrValidation, q.Mode)
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PerPage <= 0 || q.PerPage > 100 {
		q.PerPage = 20
	}
	data, total, err := s.store.ListPayments(ctx, userID, q)
	if err != nil {
		return nil, err
	}
	return &ListResponse{Data: data, Pagination: shared.NewPagination(q.Page, q.PerPage, total)}, nil
}

// ListForInvoice returns every payment against one invoice.
func (s *Service) ListForInvoice(ctx context.Context, userID, invoiceID int64) ([]Payment, error) {
	return s.store.ListForInvoice(ctx, userID, invoiceID)
}

func normaliseRequest(req *PaymentRequest) (Mode, error) {
	if !req.Amount.IsPositive() {
		return "", fmt.Errorf("%w: amount must be positive", httpx.ErrValidation)
	}
	mode := req.Mode
	if mode == "" {
		mode = ModeCash
	}
	if !ValidMode(mode) {
		return "", fmt.Errorf("%w: unknown payment mode %q", httpx.ErrValidation, req.Mode)
	}
	if req.Date == nil {
		now := time.Now()
		req.Date = &now
	}
	return mode, nil
}
