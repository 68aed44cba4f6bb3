package masterdata

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billhive/billhive/internal/platform/httpx"
)

type mockRepository struct {
	business  *Business
	customers map[int64]*Customer
	products  map[int64]*Product
	nextID    int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		customers: map[int64]*Customer{},
		products:  map[int64]*Product{},
		nextID:    1,
	}
}

func (m *mockRepository) GetBusiness(_ context.Context, userID int64) (*Business, error) {
	if m.business == nil || m.business.UserID != userID {
		return nil, httpx.ErrNotFound
	}
	copied := *m.business
	return &copied, nil
}

func (m *mockRepository) UpsertBusiness(_ context.Context, b *Business) (*Business, error) {
	if m.business != nil {
		b.ID = m.business.ID
		b.InvoiceCounter = m.business.InvoiceCounter
		b.QuotationCounter = m.business.QuotationCounter
	} else {
		b.ID = m.nextID
		m.nextID++
		b.InvoiceCounter = 1
		b.QuotationCounter = 1
	}
	copied := *b
	m.business = &copied
	return b, nil
}

func (m *mockRepository) ListCustomers(_ context.Context, userID int64, q ListQuery) ([]Customer, int, error) {
	var out []Customer
	for _, c := range m.customers {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, len(out), nil
}

func (m *mockRepository) GetCustomer(_ context.Context, userID, id int64) (*Customer, error) {
	c, ok := m.customers[id]
	if !ok || c.UserID != userID {
		return nil, httpx.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *mockRepository) CreateCustomer(_ context.Context, c *Customer) (*Customer, error) {
	c.ID = m.nextID
	m.nextID++
	copied := *c
	m.customers[c.ID] = &copied
	return c, nil
}

func (m *mockRepository) UpdateCustomer(_ context.Context, c *Customer) (*Customer, error) {
	existing, ok := m.customers[c.ID]
	if !ok || existing.UserID != c.UserID {
		return nil, httpx.ErrNotFound
	}
	c.OutstandingBalance = existing.OutstandingBalance
	copied := *c
	m.customers[c.ID] = &copied
	return c, nil
}

func (m *mockRepository) DeleteCustomer(_ context.Context, userID, id int64) error {
	c, ok := m.customers[id]
	if !ok || c.UserID != userID {
		return httpx.ErrNotFound
	}
	delete(m.customers, id)
	return nil
}

func (m *mockRepository) ListProducts(_ context.Context, userID int64, q ListQuery) ([]Product, int, error) {
	var out []Product
	for _, p := range m.products {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, len(out), nil
}

func (m *mockRepository) ListLowStockProducts(_ context.Context, userID int64) ([]Product, error) {
	var out []Product
	for _, p := range m.products {
		if p.UserID == userID && p.LowOnStock() {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockRepository) GetProduct(_ context.Context, userID, id int64) (*Product, error) {
	p, ok := m.products[id]
	if !ok || p.UserID != userID {
		return nil, httpx.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *mockRepository) CreateProduct(_ context.Context, p *Product) (*Product, error) {
	p.ID = m.nextID
	m.nextID++
	copied := *p
	m.products[p.ID] = &copied
	return p, nil
}

func (m *mockRepository) UpdateProduct(_ context.Context, p *Product) (*Product, error) {
	existing, ok := m.products[p.ID]
	if !ok || existing.UserID != p.UserID {
		return nil, httpx.ErrNotFound
	}
	copied := *p
	m.products[p.ID] = &copied
	return p, nil
}

func (m *mockRepository) DeleteProduct(_ context.Context, userID, id int64) error {
	p, ok := m.products[id]
	if !ok || p.UserID != userID {
		return httpx.ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func TestSaveBusinessDefaults(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	b, err := svc.SaveBusiness(context.Background(), 7, BusinessRequest{Name: "Sharma Traders"})
	require.NoError(t, err)
	assert.Equal(t, "INV", b.InvoicePrefix)
	assert.Equal(t, "QUO", b.QuotationPrefix)
	assert.True(t, b.GSTEnabled)
	assert.Equal(t, "India", b.Address.Country)
	assert.Equal(t, int64(1), b.InvoiceCounter)
}

func TestSaveBusinessKeepsGSTFlagUnlessSet(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	off := false
	_, err := svc.SaveBusiness(context.Background(), 7, BusinessRequest{Name: "Sharma Traders", GSTEnabled: &off})
	require.NoError(t, err)

	b, err := svc.SaveBusiness(context.Background(), 7, BusinessRequest{Name: "Sharma Traders Pvt Ltd"})
	require.NoError(t, err)
	assert.False(t, b.GSTEnabled, "omitting the flag must not re-enable GST")

	on := true
	b, err = svc.SaveBusiness(context.Background(), 7, BusinessRequest{Name: "Sharma Traders Pvt Ltd", GSTEnabled: &on})
	require.NoError(t, err)
	assert.True(t, b.GSTEnabled)
}

func TestSaveBusinessNormalisesIdentifiers(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	b, err := svc.SaveBusiness(context.Background(), 7, BusinessRequest{
		Name:  "Sharma Traders",
		GSTIN: " 27aapfu0939f1zv ",
		PAN:   "aapfu0939f",
	})
	require.NoError(t, err)
	assert.Equal(t, "27AAPFU0939F1ZV", b.GSTIN)
	assert.Equal(t, "AAPFU0939F", b.PAN)
}

func TestCreateProductDefaults(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	p, err := svc.CreateProduct(context.Background(), 7, ProductRequest{
		Name:  "Hydraulic Hose",
		Price: decimal.NewFromInt(450),
	})
	require.NoError(t, err)
	assert.Equal(t, 18, p.GSTRate)
	assert.Equal(t, UnitPCS, p.Unit)
}

func TestCreateProductRejectsBadInput(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	rate := 7
	_, err := svc.CreateProduct(context.Background(), 7, ProductRequest{Name: "X", GSTRate: &rate})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.CreateProduct(context.Background(), 7, ProductRequest{Name: "X", Unit: "CRATE"})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.CreateProduct(context.Background(), 7, ProductRequest{Name: "X", Price: decimal.NewFromInt(-1)})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestUpdateCustomerPreservesBalance(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	created, err := svc.CreateCustomer(context.Background(), 7, CustomerRequest{Name: "Patel Industries"})
	require.NoError(t, err)
	repo.customers[created.ID].OutstandingBalance = decimal.NewFromInt(1200)

	updated, err := svc.UpdateCustomer(context.Background(), 7, created.ID, CustomerRequest{Name: "Patel Industries Ltd"})
	require.NoError(t, err)
	assert.True(t, updated.OutstandingBalance.Equal(decimal.NewFromInt(1200)))
}

func TestLowStockProducts(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	low := 0
	_, err := svc.CreateProduct(context.Background(), 7, ProductRequest{
		Name: "Gasket", Stock: decimal.NewFromInt(2), LowStockThreshold: decimal.NewFromInt(5), GSTRate: &low,
	})
	require.NoError(t, err)
	_, err = svc.CreateProduct(context.Background(), 7, ProductRequest{
		Name: "Bolt", Stock: decimal.NewFromInt(500), LowStockThreshold: decimal.NewFromInt(50),
	})
	require.NoError(t, err)

	products, err := svc.LowStockProducts(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Gasket", products[0].Name)
}

func TestCustomerScopedToUser(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	created, err := svc.CreateCustomer(context.Background(), 7, CustomerRequest{Name: "Patel Industries"})
	require.NoError(t, err)

	_, err = svc.Customer(context.Background(), 8, created.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}
