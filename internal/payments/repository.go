package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/billhive/billhive/internal/billing"
	"github.com/billhive/billhive/internal/platform/db"
	"github.com/billhive/billhive/internal/platform/httpx"
)

// InvoiceRow is the slice of a document row a payment posting needs.
type InvoiceRow struct {
	ID         int64
	CustomerID *int64
	Type       billing.DocumentType
	Number     string
	Total      decimal.Decimal
	Paid       decimal.Decimal
}

// Balance returns the amount still owed.
func (i *InvoiceRow) Balance() decimal.Decimal {
	return i.Total.Sub(i.Paid)
}

// TxRepository exposes the operations available inside a payment
// transaction. The invoice row is locked first so concurrent receipts
// serialise.
type TxRepository interface {
	InvoiceForUpdate(ctx context.Context, userID, id int64) (*InvoiceRow, error)
	SetInvoicePaid(ctx context.Context, invoiceID int64, paid decimal.Decimal, status billing.PaymentStatus) error
	AdjustCustomerBalance(ctx context.Context, userID, customerID int64, delta decimal.Decimal) error
	InsertPayment(ctx context.Context, p *Payment) (int64, error)
	PaymentForUpdate(ctx context.Context, userID, id int64) (*Payment, error)
	UpdatePayment(ctx context.Context, p *Payment) error
	DeletePayment(ctx context.Context, userID, id int64) error
}

// Repository provides PostgreSQL backed persistence for payments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx runs fn inside a repeatable-read transaction, retrying
// serialization failures.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func (t *txRepo) InvoiceForUpdate(ctx context.Context, userID, id int64) (*InvoiceRow, error) {
	var row InvoiceRow
	err := t.tx.QueryRow(ctx, `SELECT id, customer_id, type, number, total, paid_amount
FROM documents WHERE user_id = $1 AND id = $2 FOR UPDATE`, userID, id).
		Scan(&row.ID, &row.CustomerID, &row.Type, &row.Number, &row.Total, &row.Paid)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: invoice", httpx.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (t *txRepo) SetInvoicePaid(ctx context.Context, invoiceID int64, paid decimal.Decimal, status billing.PaymentStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE documents SET paid_amount = $2, status = $3, updated_at = now()
WHERE id = $1`, invoiceID, paid, status)
	return err
}

func (t *txRepo) AdjustCustomerBalance(ctx context.Context, userID, customerID int64, delta decimal.Decimal) error {
	_, err := t.tx.Exec(ctx, `UPDATE customers SET outstanding_balance = outstanding_balance + $3, updated_at = now()
WHERE user_id = $1 AND id = $2`, userID, customerID, delta)
	return err
}

const paymentColumns = `p.id, p.user_id, p.document_id, d.number, p.number, p.amount, p.mode,
p.reference, p.notes, p.pay_date, p.created_at, p.updated_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.UserID, &p.DocumentID, &p.InvoiceNumber, &p.Number, &p.Amount, &p.Mode,
		&p.Reference, &p.Notes, &p.Date, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: payment", httpx.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *txRepo) InsertPayment(ctx context.Context, p *Payment) (int64, error) {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	err := t.tx.QueryRow(ctx, `INSERT INTO payments
(user_id, document_id, number, amount, mode, reference, notes, pay_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
RETURNING id`,
		p.UserID, p.DocumentID, p.Number, p.Amount, p.Mode, p.Reference, p.Notes, p.Date, now).Scan(&p.ID)
	return p.ID, err
}

func (t *txRepo) PaymentForUpdate(ctx context.Context, userID, id int64) (*Payment, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments p
JOIN documents d ON d.id = p.document_id
WHERE p.user_id = $1 AND p.id = $2 FOR UPDATE OF p`, userID, id)
	return scanPayment(row)
}

func (t *txRepo) UpdatePayment(ctx context.Context, p *Payment) error {
	p.UpdatedAt = time.Now()
	tag, err := t.tx.Exec(ctx, `UPDATE payments SET amount = $3, mode = $4, reference = $5, notes = $6, pay_date = $7, updated_at = $8
WHERE user_id = $1 AND id = $2`,
		p.UserID, p.ID, p.Amount, p.Mode, p.Reference, p.Notes, p.Date, p.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: payment", httpx.ErrNotFound)
	}
	return nil
}

func (t *txRepo) DeletePayment(ctx context.Context, userID, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM payments WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: payment", httpx.ErrNotFound)
	}
	return nil
}

// GetPayment fetches one payment.
func (r *Repository) GetPayment(ctx context.Context, userID, id int64) (*Payment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments p
JOIN documents d ON d.id = p.document_id
WHERE p.user_id = $1 AND p.id = $2`, userID, id)
	return scanPayment(row)
}

// ListPayments returns a page of payments, newest first.
func (r *Repository) ListPayments(ctx context.Context, userID int64, q ListQuery) ([]Payment, int, error) {
	where := `WHERE p.user_id = $1`
	args := []any{userID}
	if q.Mode != "" {
		where += ` AND p.mode = $2`
		args = append(args, q.Mode)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM payments p `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, q.PerPage, (q.Page-1)*q.PerPage)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM payments p
JOIN documents d ON d.id = p.document_id
%s ORDER BY p.pay_date DESC, p.id DESC LIMIT $%d OFFSET $%d`, paymentColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}

// ListForInvoice returns all payments against one invoice, oldest first.
func (r *Repository) ListForInvoice(ctx context.Context, userID, invoiceID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+paymentColumns+` FROM payments p
JOIN documents d ON d.id = p.document_id
WHERE p.user_id = $1 AND p.document_id = $2 ORDER BY p.pay_date ASC, p.id ASC`, userID, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
