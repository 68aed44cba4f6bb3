package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/billhive/billhive/internal/jobs"
)

// LedgerAuditor cross-checks the ledger-maintained figures against the
// documents that should explain them. It never repairs anything, it only
// reports, so an operator decides what a drift means.
type LedgerAuditor struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewLedgerAuditor constructs the auditor.
func NewLedgerAuditor(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerAuditor {
	return &LedgerAuditor{pool: pool, logger: logger, metrics: metrics}
}

// Handle processes TaskLedgerAudit tasks.
func (a *LedgerAuditor) Handle(ctx context.Context, _ *asynq.Task) error {
	tracker := a.metrics.Track("ledger_audit")
	return tracker.End(a.Run(ctx))
}

// Run executes all audit checks once.
func (a *LedgerAuditor) Run(ctx context.Context) error {
	if err := a.checkCustomerBalances(ctx); err != nil {
		return err
	}
	if err := a.checkPaymentSums(ctx); err != nil {
		return err
	}
	return a.checkNegativeStock(ctx)
}

// A customer's outstanding balance must equal the open balance of their
// invoices.
func (a *LedgerAuditor) checkCustomerBalances(ctx context.Context) error {
	rows, err := a.pool.Query(ctx, `SELECT c.id, c.name, c.outstanding_balance,
 COALESCE(SUM(d.total - d.paid_amount), 0) AS derived
FROM customers c
LEFT JOIN documents d ON d.customer_id = c.id AND d.type = 'INVOICE'
GROUP BY c.id, c.name, c.outstanding_balance
HAVING c.outstanding_balance <> COALESCE(SUM(d.total - d.paid_amount), 0)`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var name, recorded, derived string
		if err := rows.Scan(&id, &name, &recorded, &derived); err != nil {
			return err
		}
		a.metrics.Drift("customer_balance")
		a.logger.Warn("customer balance drift",
			slog.Int64("customer_id", id),
			slog.String("customer", name),
			slog.String("recorded", recorded),
			slog.String("derived", derived))
	}
	return rows.Err()
}

// An invoice's paid amount must equal the sum of its payments, except for
// the opening amount recorded at creation without a receipt.
func (a *LedgerAuditor) checkPaymentSums(ctx context.Context) error {
	rows, err := a.pool.Query(ctx, `SELECT d.id, d.number, d.paid_amount, COALESCE(SUM(p.amount), 0) AS receipts
FROM documents d
JOIN payments p ON p.document_id = d.id
WHERE d.type = 'INVOICE'
GROUP BY d.id, d.number, d.paid_amount
HAVING COALESCE(SUM(p.amount), 0) > d.paid_amount`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var number, recorded, receipts string
		if err := rows.Scan(&id, &number, &recorded, &receipts); err != nil {
			return err
		}
		a.metrics.Drift("payment_sum")
		a.logger.Warn("invoice payment drift",
			slog.Int64("document_id", id),
			slog.String("number", number),
			slog.String("paid_amount", recorded),
			slog.String("receipts", receipts))
	}
	return rows.Err()
}

func (a *LedgerAuditor) checkNegativeStock(ctx context.Context) error {
	rows, err := a.pool.Query(ctx, `SELECT id, name, stock FROM products WHERE stock < 0`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var name, stock string
		if err := rows.Scan(&id, &name, &stock); err != nil {
			return err
		}
		a.metrics.Drift("negative_stock")
		a.logger.Warn("negative stock",
			slog.Int64("product_id", id),
			slog.String("product", name),
			slog.String("stock", stock))
	}
	return rows.Err()
}
