package order

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vendaflow/backend-vendas/internal/common"
	"github.com/vendaflow/backend-vendas/internal/pricing"
)

type memStore struct {
	products  map[int64]ProductRef
	discounts map[int64]DiscountRef
	orders    map[int64]Order
	nextID    int64
}

func newMemStore() *memStore {
	return &memStore{
		products:  map[int64]ProductRef{},
		discounts: map[int64]DiscountRef{},
		orders:    map[int64]Order{},
	}
}

func (m *memStore) LookupProduct(_ context.Context, id int64) (ProductRef, error) {
	p, ok := m.products[id]
	if !ok {
		return ProductRef{}, ErrNotFound
	}
	return p, nil
}

func (m *memStore) LookupDiscount(_ context.Context, id int64) (DiscountRef, error) {
	d, ok := m.discounts[id]
	if !ok {
		return DiscountRef{}, ErrNotFound
	}
	return d, nil
}

func (m *memStore) InsertOrder(_ context.Context, o *Order) error {
	m.nextID++
	o.ID = m.nextID
	m.orders[o.ID] = *o
	return nil
}

func (m *memStore) UpdateOrder(_ context.Context, o *Order) error {
	stored, ok := m.orders[o.ID]
	if !ok {
		return ErrNotFound
	}
	// The reference column is write-once, like the real store.
	o.Reference = stored.Reference
	m.orders[o.ID] = *o
	return nil
}

func (m *memStore) GetOrder(_ context.Context, id int64) (Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (m *memStore) ListOrders(_ context.Context, f ListFilter) ([]Summary, int64, error) {
	var rows []Summary
	for _, o := range m.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.ClientID != 0 && o.ClientID != f.ClientID {
			continue
		}
		rows = append(rows, Summary{ID: o.ID, ClientID: o.ClientID, Status: o.Status, Total: o.Total, Commission: o.Commission})
	}
	return rows, int64(len(rows)), nil
}

func (m *memStore) DeleteOrder(_ context.Context, id int64) error {
	if _, ok := m.orders[id]; !ok {
		return ErrNotFound
	}
	delete(m.orders, id)
	return nil
}

func (m *memStore) UpdateTotals(_ context.Context, o *Order) error {
	stored, ok := m.orders[o.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Status = o.Status
	stored.Subtotal = o.Subtotal
	stored.Total = o.Total
	stored.Commission = o.Commission
	m.orders[o.ID] = stored
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seededStore() *memStore {
	store := newMemStore()
	store.products[1] = ProductRef{ID: 1, Code: "P-100", Name: "Parafuso", Price: dec("100")}
	store.products[2] = ProductRef{ID: 2, Code: "P-050", Name: "Arruela", Price: dec("50")}
	store.discounts[10] = DiscountRef{ID: 10, Percentage: dec("20"), Commission: dec("5")}
	return store
}

func ptr[T any](v T) *T { return &v }

func TestCreateTierPricedQuotation(t *testing.T) {
	store := seededStore()
	svc := NewService(store)

	o, err := svc.Create(context.Background(), Input{
		ClientID: 1,
		Items:    []ItemInput{{ProductID: 1, Quantity: 10, DiscountID: ptr(int64(10))}},
	})
	require.NoError(t, err)
	require.Equal(t, pricing.StatusQuotation, o.Status)
	require.NotEmpty(t, o.Reference)
	require.True(t, o.Subtotal.Equal(dec("800.00")), "subtotal = %s", o.Subtotal)
	require.True(t, o.Total.Equal(dec("800.00")), "total = %s", o.Total)
	require.True(t, o.Commission.IsZero(), "quotation must carry no commission, got %s", o.Commission)

	require.Len(t, o.Items, 1)
	item := o.Items[0]
	require.True(t, item.Subtotal.Equal(dec("800.00")))
	require.True(t, item.DiscountPercentage.Equal(dec("20")))
	require.True(t, item.Commission.Equal(dec("5")))
}

func TestCreateConfirmedCarriesCommission(t *testing.T) {
	svc := NewService(seededStore())

	o, err := svc.Create(context.Background(), Input{
		ClientID: 1,
		Status:   pricing.StatusConfirmed,
		Items:    []ItemInput{{ProductID: 1, Quantity: 10, DiscountID: ptr(int64(10))}},
	})
	require.NoError(t, err)
	require.True(t, o.Commission.Equal(dec("40.00")), "commission = %s", o.Commission)
}

func TestCreateManualPriceImpliesDiscount(t *testing.T) {
	svc := NewService(seededStore())

	o, err := svc.Create(context.Background(), Input{
		ClientID: 1,
		Items:    []ItemInput{{ProductID: 2, Quantity: 1, ManualPrice: ptr(dec("40"))}},
	})
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	require.True(t, o.Items[0].DiscountPercentage.Equal(dec("20.00")), "implied discount = %s", o.Items[0].DiscountPercentage)
	require.True(t, o.Items[0].Subtotal.Equal(dec("40.00")))
}

func TestCreateManualPriceWinsOverTier(t *testing.T) {
	svc := NewService(seededStore())

	o, err := svc.Create(context.Background(), Input{
		ClientID: 1,
		Items: []ItemInput{{
			ProductID:   2,
			Quantity:    1,
			DiscountID:  ptr(int64(10)),
			ManualPrice: ptr(dec("45")),
		}},
	})
	require.NoError(t, err)
	require.True(t, o.Items[0].DiscountPercentage.Equal(dec("10.00")), "discount = %s", o.Items[0].DiscountPercentage)
	// The tier still contributes its commission rate.
	require.True(t, o.Items[0].Commission.Equal(dec("5")))
}

func TestCreateDeletedTierPricesAtList(t *testing.T) {
	svc := NewService(seededStore())

	o, err := svc.Create(context.Background(), Input{
		ClientID: 1,
		Items:    []ItemInput{{ProductID: 1, Quantity: 2, DiscountID: ptr(int64(999))}},
	})
	require.NoError(t, err)
	require.True(t, o.Items[0].DiscountPercentage.IsZero())
	require.True(t, o.Items[0].Commission.IsZero())
	require.Nil(t, o.Items[0].DiscountID)
	require.True(t, o.Subtotal.Equal(dec("200.00")))
}

func TestCreateEmptyOrderKeepsTaxes(t *testing.T) {
	svc := NewService(seededStore())

	o, err := svc.Create(context.Background(), Input{ClientID: 1, Taxes: dec("15")})
	require.NoError(t, err)
	require.True(t, o.Subtotal.IsZero())
	require.True(t, o.Total.Equal(dec("15.00")), "total = %s", o.Total)
	require.True(t, o.Commission.IsZero())
}

func TestCreateRejectsBadInput(t *testing.T) {
	svc := NewService(seededStore())
	ctx := context.Background()

	cases := []struct {
		name string
		in   Input
	}{
		{"missing client", Input{}},
		{"unknown status", Input{ClientID: 1, Status: "faturado"}},
		{"negative taxes", Input{ClientID: 1, Taxes: dec("-1")}},
		{"unknown product", Input{ClientID: 1, Items: []ItemInput{{ProductID: 404, Quantity: 1}}}},
		{"zero quantity", Input{ClientID: 1, Items: []ItemInput{{ProductID: 1, Quantity: 0}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.in)
			require.Error(t, err)
			require.True(t, common.IsAppError(err), "want AppError, got %v", err)
		})
	}
}

func TestCreateTinyManualPriceIsAccepted(t *testing.T) {
	svc := NewService(seededStore())

	o, err := svc.Create(context.Background(), Input{
		ClientID: 1,
		Items:    []ItemInput{{ProductID: 1, Quantity: 1, ManualPrice: ptr(dec("0.001"))}},
	})
	require.NoError(t, err)
	require.True(t, o.Items[0].DiscountPercentage.Equal(dec("99.99")), "discount = %s", o.Items[0].DiscountPercentage)
}

func TestCreateRejectsNonPositiveManualPrice(t *testing.T) {
	svc := NewService(seededStore())

	_, err := svc.Create(context.Background(), Input{
		ClientID: 1,
		Items:    []ItemInput{{ProductID: 1, Quantity: 1, ManualPrice: ptr(dec("0"))}},
	})
	require.Error(t, err)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Contains(t, appErr.Message, "manual price")
}

func TestCreateManualPriceAboveListIsZeroDiscount(t *testing.T) {
	svc := NewService(seededStore())

	o, err := svc.Create(context.Background(), Input{
		ClientID: 1,
		Items:    []ItemInput{{ProductID: 2, Quantity: 1, ManualPrice: ptr(dec("60"))}},
	})
	require.NoError(t, err)
	require.True(t, o.Items[0].DiscountPercentage.IsZero())
	require.True(t, o.Subtotal.Equal(dec("50.00")), "subtotal = %s", o.Subtotal)
}

func TestUpdateStatusRecomputesCommission(t *testing.T) {
	store := seededStore()
	svc := NewService(store)
	ctx := context.Background()

	created, err := svc.Create(ctx, Input{
		ClientID: 1,
		Items:    []ItemInput{{ProductID: 1, Quantity: 10, DiscountID: ptr(int64(10))}},
	})
	require.NoError(t, err)
	require.True(t, created.Commission.IsZero())

	confirmed, err := svc.UpdateStatus(ctx, created.ID, pricing.StatusConfirmed)
	require.NoError(t, err)
	require.True(t, confirmed.Commission.Equal(dec("40.00")), "commission = %s", confirmed.Commission)

	back, err := svc.UpdateStatus(ctx, created.ID, pricing.StatusQuotation)
	require.NoError(t, err)
	require.True(t, back.Commission.IsZero())
	// Subtotal and total are unchanged by status moves.
	require.True(t, back.Subtotal.Equal(created.Subtotal))
	require.True(t, back.Total.Equal(created.Total))
}

func TestUpdateReplacesItems(t *testing.T) {
	store := seededStore()
	svc := NewService(store)
	ctx := context.Background()

	created, err := svc.Create(ctx, Input{
		ClientID: 1,
		Items:    []ItemInput{{ProductID: 1, Quantity: 10, DiscountID: ptr(int64(10))}},
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, Input{
		ClientID: 1,
		Items:    []ItemInput{{ProductID: 2, Quantity: 3}},
	})
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	require.Equal(t, int64(2), updated.Items[0].ProductID)
	require.True(t, updated.Subtotal.Equal(dec("150.00")), "subtotal = %s", updated.Subtotal)
	require.Equal(t, created.Reference, updated.Reference)
}

func TestDeleteOrder(t *testing.T) {
	store := seededStore()
	svc := NewService(store)
	ctx := context.Background()

	created, err := svc.Create(ctx, Input{ClientID: 1})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	require.True(t, common.IsAppError(err))
	require.Error(t, svc.Delete(ctx, created.ID))
}
