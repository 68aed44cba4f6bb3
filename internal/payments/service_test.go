package payments

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billhive/billhive/internal/billing"
	"github.com/billhive/billhive/internal/platform/httpx"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type invoiceState struct {
	row    InvoiceRow
	status billing.PaymentStatus
}

type mockStore struct {
	invoices map[int64]*invoiceState
	balances map[int64]decimal.Decimal
	payments map[int64]*Payment
	ownerID  int64
	nextID   int64
}

func newMockStore() *mockStore {
	customerID := int64(20)
	return &mockStore{
		invoices: map[int64]*invoiceState{
			1: {row: InvoiceRow{ID: 1, CustomerID: &customerID, Type: billing.TypeInvoice,
				Number: "INV-0001", Total: dec("1000"), Paid: decimal.Zero}, status: billing.StatusUnpaid},
			2: {row: InvoiceRow{ID: 2, CustomerID: &customerID, Type: billing.TypeQuotation,
				Number: "QUO-001", Total: dec("500"), Paid: decimal.Zero}, status: billing.StatusUnpaid},
		},
		balances: map[int64]decimal.Decimal{20: dec("1000")},
		payments: map[int64]*Payment{},
		ownerID:  7,
		nextID:   100,
	}
}

func (m *mockStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &mockTx{store: m})
}

func (m *mockStore) GetPayment(_ context.Context, userID, id int64) (*Payment, error) {
	p, ok := m.payments[id]
	if !ok || userID != m.ownerID {
		return nil, fmt.Errorf("%w: payment", httpx.ErrNotFound)
	}
	copied := *p
	return &copied, nil
}

func (m *mockStore) ListPayments(_ context.Context, userID int64, _ ListQuery) ([]Payment, int, error) {
	var out []Payment
	if userID != m.ownerID {
		return nil, 0, nil
	}
	for _, p := range m.payments {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *mockStore) ListForInvoice(_ context.Context, userID, invoiceID int64) ([]Payment, error) {
	var out []Payment
	if userID != m.ownerID {
		return nil, nil
	}
	for _, p := range m.payments {
		if p.DocumentID == invoiceID {
			out = append(out, *p)
		}
	}
	return out, nil
}

type mockTx struct {
	store *mockStore
}

func (t *mockTx) InvoiceForUpdate(_ context.Context, userID, id int64) (*InvoiceRow, error) {
	inv, ok := t.store.invoices[id]
	if !ok || userID != t.store.ownerID {
		return nil, fmt.Errorf("%w: invoice", httpx.ErrNotFound)
	}
	row := inv.row
	return &row, nil
}

func (t *mockTx) SetInvoicePaid(_ context.Context, invoiceID int64, paid decimal.Decimal, status billing.PaymentStatus) error {
	inv := t.store.invoices[invoiceID]
	inv.row.Paid = paid
	inv.status = status
	return nil
}

func (t *mockTx) AdjustCustomerBalance(_ context.Context, _, customerID int64, delta decimal.Decimal) error {
	t.store.balances[customerID] = t.store.balances[customerID].Add(delta)
	return nil
}

func (t *mockTx) InsertPayment(_ context.Context, p *Payment) (int64, error) {
	p.ID = t.store.nextID
	t.store.nextID++
	copied := *p
	t.store.payments[p.ID] = &copied
	return p.ID, nil
}

func (t *mockTx) PaymentForUpdate(_ context.Context, userID, id int64) (*Payment, error) {
	p, ok := t.store.payments[id]
	if !ok || userID != t.store.ownerID {
		return nil, fmt.Errorf("%w: payment", httpx.ErrNotFound)
	}
	copied := *p
	return &copied, nil
}

func (t *mockTx) UpdatePayment(_ context.Context, p *Payment) error {
	copied := *p
	t.store.payments[p.ID] = &copied
	return nil
}

func (t *mockTx) DeletePayment(_ context.Context, _, id int64) error {
	delete(t.store.payments, id)
	return nil
}

func newTestService(store *mockStore) *Service {
	return NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), store, nil)
}

func TestCreatePayment(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)

	p, err := svc.Create(context.Background(), 7, 1, PaymentRequest{Amount: dec("400"), Mode: ModeUPI})
	require.NoError(t, err)

	assert.True(t, p.Amount.Equal(dec("400")))
	assert.Contains(t, p.Number, "PAY-")
	assert.Equal(t, "INV-0001", p.InvoiceNumber)
	assert.True(t, store.invoices[1].row.Paid.Equal(dec("400")))
	assert.Equal(t, billing.StatusPartial, store.invoices[1].status)
	assert.True(t, store.balances[20].Equal(dec("600")))
}

func TestCreatePaymentRejectsOverBalance(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)

	_, err := svc.Create(context.Background(), 7, 1, PaymentRequest{Amount: dec("5000")})
	require.ErrorIs(t, err, httpx.ErrValidation)

	assert.True(t, store.invoices[1].row.Paid.IsZero(), "rejected payment leaves the invoice untouched")
	assert.Equal(t, billing.StatusUnpaid, store.invoices[1].status)
	assert.True(t, store.balances[20].Equal(dec("1000")))
	assert.Empty(t, store.payments)
}

func TestCreatePaymentDefaultsMode(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)

	p, err := svc.Create(context.Background(), 7, 1, PaymentRequest{Amount: dec("1000")})
	require.NoError(t, err)

	assert.Equal(t, ModeCash, p.Mode, "mode defaults to cash")
	assert.Equal(t, billing.StatusPaid, store.invoices[1].status)
	assert.True(t, store.balances[20].IsZero())
}

func TestCreatePaymentRejectsQuotation(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)

	_, err := svc.Create(context.Background(), 7, 2, PaymentRequest{Amount: dec("100")})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreatePaymentRejectsSettledInvoice(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)

	_, err := svc.Create(context.Background(), 7, 1, PaymentRequest{Amount: dec("1000")})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), 7, 1, PaymentRequest{Amount: dec("1")})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreatePaymentValidation(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)

	_, err := svc.Create(context.Background(), 7, 1, PaymentRequest{Amount: decimal.Zero})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Create(context.Background(), 7, 1, PaymentRequest{Amount: dec("10"), Mode: "BARTER"})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestUpdatePaymentAppliesDelta(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)

	p, err := svc.Create(context.Background(), 7, 1, PaymentRequest{Amount: dec("400")})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), 7, p.ID, PaymentRequest{Amount: dec("700"), Mode: ModeCheque})
	require.NoError(t, err)

	assert.True(t, updated.Amount.Equal(dec("700")))
	assert.Equal(t, ModeCheque, updated.Mode)
	assert.True(t, store.invoices[1].row.Paid.Equal(dec("700")))
	assert.True(t, store.balances[20].Equal(dec("300")))
}

func TestUpdatePaymentRejectsOverHeadroom(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)

	p, err := svc.Create(context.Background(), 7, 1, PaymentRequest{Amount: dec("400")})
	require.NoError(t, err)

	// headroom is the open balance plus the amount being replaced: 600 + 400
	_, err = svc.Update(context.Background(), 7, p.ID, PaymentRequest{Amount: dec("1001")})
	require.ErrorIs(t, err, httpx.ErrValidation)
	assert.True(t, store.invoices[1].row.Paid.Equal(dec("400")), "rejected update keeps the old amount")
	assert.True(t, store.balances[20].Equal(dec("600")))

	updated, err := svc.Update(context.Background(), 7, p.ID, PaymentRequest{Amount: dec("1000")})
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(dec("1000")))
	assert.Equal(t, billing.StatusPaid, store.invoices[1].status)
	assert.True(t, store.balances[20].IsZero())
}

func TestDeletePaymentReverts(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)

	p, err := svc.Create(context.Background(), 7, 1, PaymentRequest{Amount: dec("400")})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), 7, p.ID))
	assert.True(t, store.invoices[1].row.Paid.IsZero())
	assert.Equal(t, billing.StatusUnpaid, store.invoices[1].status)
	assert.True(t, store.balances[20].Equal(dec("1000")))
	assert.Empty(t, store.payments)
}
