package billing

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billhive/billhive/internal/masterdata"
	"github.com/billhive/billhive/internal/platform/httpx"
)

type mockCatalogue struct {
	products map[int64]*masterdata.Product
}

func (m *mockCatalogue) ProductByID(_ context.Context, userID, id int64) (*masterdata.Product, error) {
	p, ok := m.products[id]
	if !ok || p.UserID != userID {
		return nil, fmt.Errorf("%w: product", httpx.ErrNotFound)
	}
	copied := *p
	return &copied, nil
}

func (m *mockCatalogue) ProductByName(_ context.Context, userID int64, name string) (*masterdata.Product, error) {
	for _, p := range m.products {
		if p.UserID == userID && strings.EqualFold(p.Name, name) {
			copied := *p
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: product", httpx.ErrNotFound)
}

func testCatalogue() *mockCatalogue {
	return &mockCatalogue{products: map[int64]*masterdata.Product{
		10: {
			ID: 10, UserID: 7, Name: "Hydraulic Hose", Description: "1m braided",
			HSNCode: "4009", PartNo: "HH-01", Price: dec("450"), GSTRate: 12,
			Unit: masterdata.UnitMeter, Stock: dec("100"),
		},
	}}
}

func TestResolveItemsByID(t *testing.T) {
	items, err := ResolveItems(context.Background(), testCatalogue(), 7, []LineItemInput{
		{ProductID: ptr(int64(10)), Quantity: ptr(dec("3"))},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Hydraulic Hose", items[0].Name)
	assert.Equal(t, "4009", items[0].HSNCode)
	assert.Equal(t, "METER", items[0].Unit)
	assert.Equal(t, 12, items[0].GSTRate)
	assert.True(t, items[0].UnitPrice.Equal(dec("450")))
	assert.True(t, items[0].Amount.Equal(dec("1350")))
	require.NotNil(t, items[0].ProductID)
	assert.Equal(t, int64(10), *items[0].ProductID)
}

func TestResolveItemsByName(t *testing.T) {
	items, err := ResolveItems(context.Background(), testCatalogue(), 7, []LineItemInput{
		{ProductName: "hydraulic hose", Quantity: ptr(dec("2"))},
	})
	require.NoError(t, err)
	require.NotNil(t, items[0].ProductID)
	assert.True(t, items[0].Amount.Equal(dec("900")))
}

func TestResolveItemsAdHoc(t *testing.T) {
	items, err := ResolveItems(context.Background(), testCatalogue(), 7, []LineItemInput{
		{ProductName: "Machining charges", UnitPrice: dec("1200"), Quantity: ptr(dec("1"))},
	})
	require.NoError(t, err)
	assert.Nil(t, items[0].ProductID, "unmatched name falls through to an ad-hoc line")
	assert.Equal(t, 18, items[0].GSTRate, "ad-hoc lines default to 18 percent")
	assert.Equal(t, "PCS", items[0].Unit)
}

func TestResolveItemsRequestOverridesCatalogue(t *testing.T) {
	five := 5
	items, err := ResolveItems(context.Background(), testCatalogue(), 7, []LineItemInput{
		{ProductID: ptr(int64(10)), Quantity: ptr(dec("1")), UnitPrice: dec("400"), GSTRate: &five},
	})
	require.NoError(t, err)
	assert.True(t, items[0].UnitPrice.Equal(dec("400")))
	assert.Equal(t, 5, items[0].GSTRate)
}

func TestResolveItemsProcessPricing(t *testing.T) {
	items, err := ResolveItems(context.Background(), testCatalogue(), 7, []LineItemInput{
		{
			ProductName: "Shaft rework",
			Quantity:    ptr(dec("4")),
			UnitPrice:   dec("999"),
			Processes: []ProcessInput{
				{Name: "Turning", Amount: dec("80")},
				{Name: "Grinding", Amount: dec("45")},
			},
		},
	})
	require.NoError(t, err)
	assert.True(t, items[0].UnitPrice.Equal(dec("125")), "process sum replaces the quoted price")
	assert.True(t, items[0].Amount.Equal(dec("500")))
	require.Len(t, items[0].Processes, 2)
}

func TestResolveItemsDefaultsQuantity(t *testing.T) {
	items, err := ResolveItems(context.Background(), testCatalogue(), 7, []LineItemInput{
		{ProductID: ptr(int64(10))},
	})
	require.NoError(t, err)
	assert.True(t, items[0].Quantity.Equal(dec("1")), "omitted quantity defaults to one")
	assert.True(t, items[0].Amount.Equal(dec("450")))
}

func TestResolveItemsRejectsNonPositiveQuantity(t *testing.T) {
	cat := testCatalogue()

	_, err := ResolveItems(context.Background(), cat, 7, []LineItemInput{
		{ProductID: ptr(int64(10)), Quantity: ptr(dec("0"))},
	})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = ResolveItems(context.Background(), cat, 7, []LineItemInput{
		{ProductID: ptr(int64(10)), Quantity: ptr(dec("-2"))},
	})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestResolveItemsLegacyTaxRate(t *testing.T) {
	twelve, twentyEight := 12, 28

	items, err := ResolveItems(context.Background(), testCatalogue(), 7, []LineItemInput{
		{ProductName: "Machining charges", UnitPrice: dec("1200"), TaxRate: &twelve},
	})
	require.NoError(t, err)
	assert.Equal(t, 12, items[0].GSTRate, "taxRate stands in for gstRate")

	items, err = ResolveItems(context.Background(), testCatalogue(), 7, []LineItemInput{
		{ProductName: "Machining charges", UnitPrice: dec("1200"), GSTRate: &twentyEight, TaxRate: &twelve},
	})
	require.NoError(t, err)
	assert.Equal(t, 28, items[0].GSTRate, "gstRate wins when both fields are sent")
}

func TestResolveItemsErrors(t *testing.T) {
	cat := testCatalogue()

	_, err := ResolveItems(context.Background(), cat, 7, []LineItemInput{{ProductID: ptr(int64(99))}})
	require.ErrorIs(t, err, httpx.ErrValidation, "unknown product id must not fall through")

	_, err = ResolveItems(context.Background(), cat, 7, []LineItemInput{{UnitPrice: dec("10")}})
	require.ErrorIs(t, err, httpx.ErrValidation, "nameless ad-hoc line")

	bad := 7
	_, err = ResolveItems(context.Background(), cat, 7, []LineItemInput{{ProductName: "X", GSTRate: &bad}})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = ResolveItems(context.Background(), cat, 7, []LineItemInput{
		{ProductName: "X", Processes: []ProcessInput{{Name: "Cut", Amount: dec("-5")}}},
	})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestResolveItemsScopedToUser(t *testing.T) {
	_, err := ResolveItems(context.Background(), testCatalogue(), 8, []LineItemInput{
		{ProductID: ptr(int64(10))},
	})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func ptr[T any](v T) *T { return &v }
