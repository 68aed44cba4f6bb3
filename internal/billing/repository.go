package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/billhive/billhive/internal/masterdata"
	"github.com/billhive/billhive/internal/platform/db"
	"github.com/billhive/billhive/internal/platform/httpx"
)

// SellerProfile is the slice of the business row billing needs at document
// time.
type SellerProfile struct {
	State      string
	GSTEnabled bool
	Terms      string
}

// TxRepository exposes the operations available inside a document
// transaction. Number allocation, snapshots and ledger postings all run on
// the same connection so a rollback undoes everything.
type TxRepository interface {
	Catalogue

	SellerProfile(ctx context.Context, userID int64) (*SellerProfile, error)
	AllocateDocumentNumber(ctx context.Context, userID int64, docType DocumentType) (prefix string, seq int64, err error)
	CustomerByID(ctx context.Context, userID, id int64) (*masterdata.Customer, error)

	GetDocumentForUpdate(ctx context.Context, userID, id int64) (*Document, error)
	InsertDocument(ctx context.Context, doc *Document) (int64, error)
	UpdateDocument(ctx context.Context, doc *Document) error
	DeleteDocument(ctx context.Context, userID, id int64) error
	InsertItems(ctx context.Context, documentID int64, items []LineItem) error
	DeleteItems(ctx context.Context, documentID int64) error
	DeletePayments(ctx context.Context, documentID int64) error

	AdjustProductStock(ctx context.Context, userID, productID int64, delta decimal.Decimal) error
	AdjustCustomerBalance(ctx context.Context, userID, customerID int64, delta decimal.Decimal) error
}

// Repository provides PostgreSQL backed persistence for billing.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
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

func (t *txRepo) SellerProfile(ctx context.Context, userID int64) (*SellerProfile, error) {
	var p SellerProfile
	err := t.tx.QueryRow(ctx, `SELECT address_state, gst_enabled, terms FROM businesses WHERE user_id = $1`, userID).
		Scan(&p.State, &p.GSTEnabled, &p.Terms)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: business profile", httpx.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// AllocateDocumentNumber advances the per-type counter atomically and
// returns the sequence it claimed. The upsert keeps the bump atomic; a
// missing business row has already failed the document in SellerProfile.
func (t *txRepo) AllocateDocumentNumber(ctx context.Context, userID int64, docType DocumentType) (string, int64, error) {
	counter := "invoice_counter"
	prefixCol := "invoice_prefix"
	seed := "2, 1"
	if docType == TypeQuotation {
		counter = "quotation_counter"
		prefixCol = "quotation_prefix"
		seed = "1, 2"
	}
	var prefix string
	var seq int64
	err := t.tx.QueryRow(ctx, fmt.Sprintf(`INSERT INTO businesses
(user_id, name, invoice_prefix, quotation_prefix, invoice_counter, quotation_counter, gst_enabled, created_at, updated_at)
VALUES ($1, '', 'INV', 'QUO', %s, TRUE, now(), now())
ON CONFLICT (user_id) DO UPDATE SET %s = businesses.%s + 1, updated_at = now()
RETURNING %s, %s - 1`, seed, counter, counter, prefixCol, counter), userID).Scan(&prefix, &seq)
	if err != nil {
		return "", 0, fmt.Errorf("allocate %s number: %w", strings.ToLower(string(docType)), err)
	}
	return prefix, seq, nil
}

func (t *txRepo) CustomerByID(ctx context.Context, userID, id int64) (*masterdata.Customer, error) {
	var c masterdata.Customer
	err := t.tx.QueryRow(ctx, `SELECT id, user_id, name, phone, email, gstin,
address_street, address_city, address_state, address_pincode, address_country, outstanding_balance
FROM customers WHERE user_id = $1 AND id = $2`, userID, id).
		Scan(&c.ID, &c.UserID, &c.Name, &c.Phone, &c.Email, &c.GSTIN,
			&c.Address.Street, &c.Address.City, &c.Address.State, &c.Address.Pincode, &c.Address.Country,
			&c.OutstandingBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: customer", httpx.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const productLookupColumns = `id, user_id, name, description, hsn_code, part_no, price, gst_rate, unit, stock, low_stock_threshold`

func scanLookupProduct(row pgx.Row) (*masterdata.Product, error) {
	var p masterdata.Product
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.HSNCode, &p.PartNo,
		&p.Price, &p.GSTRate, &p.Unit, &p.Stock, &p.LowStockThreshold)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: product", httpx.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *txRepo) ProductByID(ctx context.Context, userID, id int64) (*masterdata.Product, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+productLookupColumns+` FROM products WHERE user_id = $1 AND id = $2`, userID, id)
	return scanLookupProduct(row)
}

func (t *txRepo) ProductByName(ctx context.Context, userID int64, name string) (*masterdata.Product, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+productLookupColumns+` FROM products WHERE user_id = $1 AND LOWER(name) = LOWER($2)
ORDER BY id LIMIT 1`, userID, name)
	return scanLookupProduct(row)
}

const documentColumns = `id, user_id, type, number, customer_id,
customer_name, customer_phone, customer_email, customer_gstin, customer_address, customer_state,
doc_date, due_date, gst_enabled, subtotal, discount, cgst, sgst, igst, total, paid_amount, status, notes, terms,
eway_bill_no, vehicle_no, transport_mode, transporter, created_at, updated_at`

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.UserID, &d.Type, &d.Number, &d.CustomerID,
		&d.Customer.Name, &d.Customer.Phone, &d.Customer.Email, &d.Customer.GSTIN, &d.Customer.Address, &d.Customer.State,
		&d.Date, &d.DueDate, &d.GSTEnabled, &d.Subtotal, &d.Discount, &d.CGST, &d.SGST, &d.IGST, &d.Total, &d.PaidAmount, &d.Status, &d.Notes, &d.Terms,
		&d.Transport.EwayBillNo, &d.Transport.VehicleNo, &d.Transport.Mode, &d.Transport.Transporter, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: document", httpx.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func loadItems(ctx context.Context, q dbtx, documentID int64) ([]LineItem, error) {
	rows, err := q.Query(ctx, `SELECT id, document_id, product_id, name, description, hsn_code, part_no, tool,
quantity, unit, unit_price, gst_rate, processes, amount, tax_amount, line_total
FROM document_items WHERE document_id = $1 ORDER BY id`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []LineItem
	for rows.Next() {
		var item LineItem
		var processes []byte
		err := rows.Scan(&item.ID, &item.DocumentID, &item.ProductID, &item.Name, &item.Description,
			&item.HSNCode, &item.PartNo, &item.Tool, &item.Quantity, &item.Unit, &item.UnitPrice,
			&item.GSTRate, &processes, &item.Amount, &item.TaxAmount, &item.LineTotal)
		if err != nil {
			return nil, err
		}
		if len(processes) > 0 {
			if err := json.Unmarshal(processes, &item.Processes); err != nil {
				return nil, fmt.Errorf("decode processes: %w", err)
			}
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (t *txRepo) GetDocumentForUpdate(ctx context.Context, userID, id int64) (*Document, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents
WHERE user_id = $1 AND id = $2 FOR UPDATE`, userID, id)
	doc, err := scanDocument(row)
	if err != nil {
		return nil, err
	}
	doc.Items, err = loadItems(ctx, t.tx, doc.ID)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (t *txRepo) InsertDocument(ctx context.Context, doc *Document) (int64, error) {
	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO documents
(user_id, type, number, customer_id,
 customer_name, customer_phone, customer_email, customer_gstin, customer_address, customer_state,
 doc_date, due_date, gst_enabled, subtotal, discount, cgst, sgst, igst, total, paid_amount, status, notes, terms,
 eway_bill_no, vehicle_no, transport_mode, transporter, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $28)
RETURNING id`,
		doc.UserID, doc.Type, doc.Number, doc.CustomerID,
		doc.Customer.Name, doc.Customer.Phone, doc.Customer.Email, doc.Customer.GSTIN, doc.Customer.Address, doc.Customer.State,
		doc.Date, doc.DueDate, doc.GSTEnabled, doc.Subtotal, doc.Discount, doc.CGST, doc.SGST, doc.IGST, doc.Total, doc.PaidAmount, doc.Status, doc.Notes, doc.Terms,
		doc.Transport.EwayBillNo, doc.Transport.VehicleNo, doc.Transport.Mode, doc.Transport.Transporter, now).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, fmt.Errorf("%w: document number %s", httpx.ErrDuplicate, doc.Number)
		}
		return 0, err
	}
	doc.ID = id
	return id, nil
}

func (t *txRepo) UpdateDocument(ctx context.Context, doc *Document) error {
	doc.UpdatedAt = time.Now()
	tag, err := t.tx.Exec(ctx, `UPDATE documents SET
 customer_id = $3, customer_name = $4, customer_phone = $5, customer_email = $6,
 customer_gstin = $7, customer_address = $8, customer_state = $9,
 doc_date = $10, due_date = $11, gst_enabled = $12, subtotal = $13, discount = $14,
 cgst = $15, sgst = $16, igst = $17, total = $18,
 paid_amount = $19, status = $20, notes = $21, terms = $22,
 eway_bill_no = $23, vehicle_no = $24, transport_mode = $25, transporter = $26, updated_at = $27
WHERE user_id = $1 AND id = $2`,
		doc.UserID, doc.ID, doc.CustomerID, doc.Customer.Name, doc.Customer.Phone, doc.Customer.Email,
		doc.Customer.GSTIN, doc.Customer.Address, doc.Customer.State,
		doc.Date, doc.DueDate, doc.GSTEnabled, doc.Subtotal, doc.Discount,
		doc.CGST, doc.SGST, doc.IGST, doc.Total,
		doc.PaidAmount, doc.Status, doc.Notes, doc.Terms,
		doc.Transport.EwayBillNo, doc.Transport.VehicleNo, doc.Transport.Mode, doc.Transport.Transporter, doc.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: document", httpx.ErrNotFound)
	}
	return nil
}

func (t *txRepo) DeleteDocument(ctx context.Context, userID, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM documents WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: document", httpx.ErrNotFound)
	}
	return nil
}

func (t *txRepo) InsertItems(ctx context.Context, documentID int64, items []LineItem) error {
	for i := range items {
		var processes []byte
		if len(items[i].Processes) > 0 {
			raw, err := json.Marshal(items[i].Processes)
			if err != nil {
				return fmt.Errorf("encode processes: %w", err)
			}
			processes = raw
		}
		err := t.tx.QueryRow(ctx, `INSERT INTO document_items
(document_id, product_id, name, description, hsn_code, part_no, tool, quantity, unit, unit_price, gst_rate, processes, amount, tax_amount, line_total)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
RETURNING id`,
			documentID, items[i].ProductID, items[i].Name, items[i].Description, items[i].HSNCode,
			items[i].PartNo, items[i].Tool, items[i].Quantity, items[i].Unit, items[i].UnitPrice,
			items[i].GSTRate, processes, items[i].Amount, items[i].TaxAmount, items[i].LineTotal).Scan(&items[i].ID)
		if err != nil {
			return err
		}
		items[i].DocumentID = documentID
	}
	return nil
}

func (t *txRepo) DeleteItems(ctx context.Context, documentID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM document_items WHERE document_id = $1`, documentID)
	return err
}

func (t *txRepo) DeletePayments(ctx context.Context, documentID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM payments WHERE document_id = $1`, documentID)
	return err
}

func (t *txRepo) AdjustProductStock(ctx context.Context, userID, productID int64, delta decimal.Decimal) error {
	_, err := t.tx.Exec(ctx, `UPDATE products SET stock = stock + $3, updated_at = now()
WHERE user_id = $1 AND id = $2`, userID, productID, delta)
	return err
}

func (t *txRepo) AdjustCustomerBalance(ctx context.Context, userID, customerID int64, delta decimal.Decimal) error {
	_, err := t.tx.Exec(ctx, `UPDATE customers SET outstanding_balance = outstanding_balance + $3, updated_at = now()
WHERE user_id = $1 AND id = $2`, userID, customerID, delta)
	return err
}

// GetDocument fetches one document with its line items.
func (r *Repository) GetDocument(ctx context.Context, userID, id int64) (*Document, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE user_id = $1 AND id = $2`, userID, id)
	doc, err := scanDocument(row)
	if err != nil {
		return nil, err
	}
	doc.Items, err = loadItems(ctx, r.pool, doc.ID)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments returns a filtered page of documents without line items.
func (r *Repository) ListDocuments(ctx context.Context, userID int64, f ListFilter) ([]Document, int, error) {
	where := []string{"user_id = $1"}
	args := []any{userID}
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.Type != "" {
		add("type = $%d", f.Type)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		add("(number ILIKE $%d OR customer_name ILIKE $%[1]d)", "%"+s+"%")
	}
	if f.DateFrom != nil {
		add("doc_date >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		add("doc_date <= $%d", *f.DateTo)
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.PerPage, (f.Page-1)*f.PerPage)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM documents WHERE %s
ORDER BY doc_date DESC, id DESC LIMIT $%d OFFSET $%d`, documentColumns, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *doc)
	}
	return out, total, rows.Err()
}

// Stats aggregates billing activity for one user.
func (r *Repository) Stats(ctx context.Context, userID int64) (*Stats, error) {
	var s Stats
	err := r.pool.QueryRow(ctx, `SELECT
 COUNT(*) FILTER (WHERE type = 'INVOICE'),
 COUNT(*) FILTER (WHERE type = 'QUOTATION'),
 COALESCE(SUM(total) FILTER (WHERE type = 'INVOICE'), 0),
 COALESCE(SUM(total - paid_amount) FILTER (WHERE type = 'INVOICE'), 0),
 COUNT(*) FILTER (WHERE type = 'INVOICE' AND status = 'PAID'),
 COUNT(*) FILTER (WHERE type = 'INVOICE' AND status = 'PARTIAL'),
 COUNT(*) FILTER (WHERE type = 'INVOICE' AND status = 'UNPAID'),
 COALESCE(SUM(total) FILTER (WHERE type = 'INVOICE' AND doc_date >= date_trunc('month', now())), 0),
 COUNT(*) FILTER (WHERE type = 'INVOICE' AND doc_date >= date_trunc('month', now()))
FROM documents WHERE user_id = $1`, userID).
		Scan(&s.TotalInvoices, &s.TotalQuotations, &s.TotalRevenue, &s.TotalOutstanding,
			&s.PaidInvoices, &s.PartialInvoices, &s.UnpaidInvoices,
			&s.RevenueThisMonth, &s.InvoicesThisMonth)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
