package masterdata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/billhive/billhive/internal/platform/httpx"
)

// Repository defines persistence operations for master data. Every method is
// scoped to the owning user.
type Repository interface {
	GetBusiness(ctx context.Context, userID int64) (*Business, error)
	UpsertBusiness(ctx context.Context, b *Business) (*Business, error)

	ListCustomers(ctx context.Context, userID int64, q ListQuery) ([]Customer, int, error)
	GetCustomer(ctx context.Context, userID, id int64) (*Customer, error)
	CreateCustomer(ctx context.Context, c *Customer) (*Customer, error)
	UpdateCustomer(ctx context.Context, c *Customer) (*Customer, error)
	DeleteCustomer(ctx context.Context, userID, id int64) error

	ListProducts(ctx context.Context, userID int64, q ListQuery) ([]Product, int, error)
	ListLowStockProducts(ctx context.Context, userID int64) ([]Product, error)
	GetProduct(ctx context.Context, userID, id int64) (*Product, error)
	CreateProduct(ctx context.Context, p *Product) (*Product, error)
	UpdateProduct(ctx context.Context, p *Product) (*Product, error)
	DeleteProduct(ctx context.Context, userID, id int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const businessColumns = `id, user_id, name, gstin, pan, phone, email,
address_street, address_city, address_state, address_pincode, address_country,
bank_account_name, bank_account_number, bank_ifsc, bank_name, bank_branch,
invoice_prefix, invoice_counter, quotation_prefix, quotation_counter,
terms, gst_enabled, created_at, updated_at`

func scanBusiness(row pgx.Row) (*Business, error) {
	var b Business
	err := row.Scan(&b.ID, &b.UserID, &b.Name, &b.GSTIN, &b.PAN, &b.Phone, &b.Email,
		&b.Address.Street, &b.Address.City, &b.Address.State, &b.Address.Pincode, &b.Address.Country,
		&b.BankDetails.AccountName, &b.BankDetails.AccountNumber, &b.BankDetails.IFSC, &b.BankDetails.BankName, &b.BankDetails.Branch,
		&b.InvoicePrefix, &b.InvoiceCounter, &b.QuotationPrefix, &b.QuotationCounter,
		&b.Terms, &b.GSTEnabled, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: business profile", httpx.ErrNotFound)
		}
		return nil, err
	}
	return &b, nil
}

// GetBusiness fetches the seller profile for a user.
func (r *PGRepository) GetBusiness(ctx context.Context, userID int64) (*Business, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+businessColumns+` FROM businesses WHERE user_id = $1`, userID)
	return scanBusiness(row)
}

// UpsertBusiness creates or updates the seller profile. Counters are
// preserved on update so numbering never rewinds.
func (r *PGRepository) UpsertBusiness(ctx context.Context, b *Business) (*Business, error) {
	now := time.Now()
	row := r.pool.QueryRow(ctx, `INSERT INTO businesses
(user_id, name, gstin, pan, phone, email,
 address_street, address_city, address_state, address_pincode, address_country,
 bank_account_name, bank_account_number, bank_ifsc, bank_name, bank_branch,
 invoice_prefix, quotation_prefix, terms, gst_enabled, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $21)
ON CONFLICT (user_id) DO UPDATE SET
 name = EXCLUDED.name, gstin = EXCLUDED.gstin, pan = EXCLUDED.pan,
 phone = EXCLUDED.phone, email = EXCLUDED.email,
 address_street = EXCLUDED.address_street, address_city = EXCLUDED.address_city,
 address_state = EXCLUDED.address_state, address_pincode = EXCLUDED.address_pincode,
 address_country = EXCLUDED.address_country,
 bank_account_name = EXCLUDED.bank_account_name, bank_account_number = EXCLUDED.bank_account_number,
 bank_ifsc = EXCLUDED.bank_ifsc, bank_name = EXCLUDED.bank_name, bank_branch = EXCLUDED.bank_branch,
 invoice_prefix = EXCLUDED.invoice_prefix, quotation_prefix = EXCLUDED.quotation_prefix,
 terms = EXCLUDED.terms, gst_enabled = EXCLUDED.gst_enabled, updated_at = EXCLUDED.updated_at
RETURNING `+businessColumns,
		b.UserID, b.Name, b.GSTIN, b.PAN, b.Phone, b.Email,
		b.Address.Street, b.Address.City, b.Address.State, b.Address.Pincode, b.Address.Country,
		b.BankDetails.AccountName, b.BankDetails.AccountNumber, b.BankDetails.IFSC, b.BankDetails.BankName, b.BankDetails.Branch,
		b.InvoicePrefix, b.QuotationPrefix, b.Terms, b.GSTEnabled, now)
	return scanBusiness(row)
}

const customerColumns = `id, user_id, name, phone, email, gstin,
address_street, address_city, address_state, address_pincode, address_country,
outstanding_balance, created_at, updated_at`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Phone, &c.Email, &c.GSTIN,
		&c.Address.Street, &c.Address.City, &c.Address.State, &c.Address.Pincode, &c.Address.Country,
		&c.OutstandingBalance, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: customer", httpx.ErrNotFound)
		}
		return nil, err
	}
	return &c, nil
}

// ListCustomers returns a page of customers, optionally filtered by a
// case-insensitive match on name, phone or GSTIN.
func (r *PGRepository) ListCustomers(ctx context.Context, userID int64, q ListQuery) ([]Customer, int, error) {
	where := `WHERE user_id = $1`
	args := []any{userID}
	if s := strings.TrimSpace(q.Search); s != "" {
		where += ` AND (name ILIKE $2 OR phone ILIKE $2 OR gstin ILIKE $2)`
		args = append(args, "%"+s+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, q.PerPage, (q.Page-1)*q.PerPage)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM customers %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		customerColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *c)
	}
	return out, total, rows.Err()
}

// GetCustomer fetches one customer by id.
func (r *PGRepository) GetCustomer(ctx context.Context, userID, id int64) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE user_id = $1 AND id = $2`, userID, id)
	return scanCustomer(row)
}

// CreateCustomer inserts a customer with a zero opening balance.
func (r *PGRepository) CreateCustomer(ctx context.Context, c *Customer) (*Customer, error) {
	now := time.Now()
	row := r.pool.QueryRow(ctx, `INSERT INTO customers
(user_id, name, phone, email, gstin,
 address_street, address_city, address_state, address_pincode, address_country,
 outstanding_balance, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $11, $11)
RETURNING `+customerColumns,
		c.UserID, c.Name, c.Phone, c.Email, c.GSTIN,
		c.Address.Street, c.Address.City, c.Address.State, c.Address.Pincode, c.Address.Country, now)
	return scanCustomer(row)
}

// UpdateCustomer saves editable fields. The outstanding balance is left to
// the billing ledger.
func (r *PGRepository) UpdateCustomer(ctx context.Context, c *Customer) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `UPDATE customers SET
 name = $3, phone = $4, email = $5, gstin = $6,
 address_street = $7, address_city = $8, address_state = $9, address_pincode = $10, address_country = $11,
 updated_at = $12
WHERE user_id = $1 AND id = $2
RETURNING `+customerColumns,
		c.UserID, c.ID, c.Name, c.Phone, c.Email, c.GSTIN,
		c.Address.Street, c.Address.City, c.Address.State, c.Address.Pincode, c.Address.Country, time.Now())
	return scanCustomer(row)
}

// DeleteCustomer removes a customer. Documents referencing it keep their
// snapshot fields and drop the link.
func (r *PGRepository) DeleteCustomer(ctx context.Context, userID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: customer", httpx.ErrNotFound)
	}
	return nil
}

const productColumns = `id, user_id, name, description, hsn_code, part_no,
price, gst_rate, unit, stock, low_stock_threshold, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.HSNCode, &p.PartNo,
		&p.Price, &p.GSTRate, &p.Unit, &p.Stock, &p.LowStockThreshold, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: product", httpx.ErrNotFound)
		}
		return nil, err
	}
	return &p, nil
}

// ListProducts returns a page of products, optionally filtered on name, HSN
// code or part number.
func (r *PGRepository) ListProducts(ctx context.Context, userID int64, q ListQuery) ([]Product, int, error) {
	where := `WHERE user_id = $1`
	args := []any{userID}
	if s := strings.TrimSpace(q.Search); s != "" {
		where += ` AND (name ILIKE $2 OR hsn_code ILIKE $2 OR part_no ILIKE $2)`
		args = append(args, "%"+s+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, q.PerPage, (q.Page-1)*q.PerPage)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM products %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		productColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}

// ListLowStockProducts returns products at or under their threshold.
func (r *PGRepository) ListLowStockProducts(ctx context.Context, userID int64) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products
WHERE user_id = $1 AND stock <= low_stock_threshold ORDER BY stock ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// GetProduct fetches one product by id.
func (r *PGRepository) GetProduct(ctx context.Context, userID, id int64) (*Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE user_id = $1 AND id = $2`, userID, id)
	return scanProduct(row)
}

// CreateProduct inserts a product.
func (r *PGRepository) CreateProduct(ctx context.Context, p *Product) (*Product, error) {
	now := time.Now()
	row := r.pool.QueryRow(ctx, `INSERT INTO products
(user_id, name, description, hsn_code, part_no, price, gst_rate, unit, stock, low_stock_threshold, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
RETURNING `+productColumns,
		p.UserID, p.Name, p.Description, p.HSNCode, p.PartNo, p.Price, p.GSTRate, p.Unit, p.Stock, p.LowStockThreshold, now)
	return scanProduct(row)
}

// UpdateProduct saves product fields, including a direct stock correction.
func (r *PGRepository) UpdateProduct(ctx context.Context, p *Product) (*Product, error) {
	row := r.pool.QueryRow(ctx, `UPDATE products SET
 name = $3, description = $4, hsn_code = $5, part_no = $6,
 price = $7, gst_rate = $8, unit = $9, stock = $10, low_stock_threshold = $11, updated_at = $12
WHERE user_id = $1 AND id = $2
RETURNING `+productColumns,
		p.UserID, p.ID, p.Name, p.Description, p.HSNCode, p.PartNo,
		p.Price, p.GSTRate, p.Unit, p.Stock, p.LowStockThreshold, time.Now())
	return scanProduct(row)
}

// DeleteProduct removes a product. Document line items keep their snapshots.
func (r *PGRepository) DeleteProduct(ctx context.Context, userID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product", httpx.ErrNotFound)
	}
	return nil
}
