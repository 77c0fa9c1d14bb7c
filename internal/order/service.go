package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendaflow/backend-vendas/internal/common"
	"github.com/vendaflow/backend-vendas/internal/obs"
	"github.com/vendaflow/backend-vendas/internal/pricing"
)

// Item is a priced order line. UnitPrice, DiscountPercentage, and Commission
// are snapshots taken when the line was saved; later catalog edits never
// change an existing order.
type Item struct {
	ID                 int64           `json:"id"`
	ProductID          int64           `json:"product_id"`
	ProductCode        string          `json:"product_code"`
	ProductName        string          `json:"product_name"`
	Quantity           int             `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	DiscountID         *int64          `json:"discount_id,omitempty"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	Commission         decimal.Decimal `json:"commission"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	ClientRef          *string         `json:"client_ref,omitempty"`
}

// Order is a quotation or confirmed sale with derived totals. Reference is
// the stable external code quoted to the client; it survives item rewrites
// and status changes.
type Order struct {
	ID               int64           `json:"id"`
	Reference        string          `json:"reference"`
	ClientID         int64           `json:"client_id"`
	ClientName       string          `json:"client_name,omitempty"`
	RepresentativeID int64           `json:"representative_id"`
	Status           string          `json:"status"`
	PaymentTerms     string          `json:"payment_terms,omitempty"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	Discount         decimal.Decimal `json:"discount"`
	Taxes            decimal.Decimal `json:"taxes"`
	Total            decimal.Decimal `json:"total"`
	Commission       decimal.Decimal `json:"commission"`
	Notes            string          `json:"notes,omitempty"`
	Items            []Item          `json:"items"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Summary is the list view of an order.
type Summary struct {
	ID         int64           `json:"id"`
	Reference  string          `json:"reference"`
	ClientID   int64           `json:"client_id"`
	ClientName string          `json:"client_name"`
	Status     string          `json:"status"`
	Total      decimal.Decimal `json:"total"`
	Commission decimal.Decimal `json:"commission"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ItemInput is one requested order line. Pricing is resolved server side:
// either a discount tier is referenced or a final unit price is typed in,
// and a typed price wins when both are present.
type ItemInput struct {
	ProductID   int64            `json:"product_id" validate:"required"`
	Quantity    int              `json:"quantity" validate:"required,gt=0"`
	DiscountID  *int64           `json:"discount_id"`
	ManualPrice *decimal.Decimal `json:"manual_price"`
	ClientRef   *string          `json:"client_ref"`
}

// Input captures payload for creating or replacing an order.
type Input struct {
	ClientID         int64           `json:"client_id" validate:"required"`
	RepresentativeID int64           `json:"representative_id"`
	Status           string          `json:"status"`
	PaymentTerms     string          `json:"payment_terms"`
	Taxes            decimal.Decimal `json:"taxes"`
	Notes            string          `json:"notes"`
	Items            []ItemInput     `json:"items" validate:"dive"`
}

// Service prices and persists orders.
type Service struct {
	store Store
}

// NewService constructs an order service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create prices the requested lines and stores a new order under a fresh
// external reference code.
func (s *Service) Create(ctx context.Context, in Input) (Order, error) {
	o, err := s.assemble(ctx, in)
	if err != nil {
		return Order{}, err
	}
	o.Reference = uuid.NewString()
	if err := s.store.InsertOrder(ctx, &o); err != nil {
		countSave(o.Status, "error")
		return Order{}, fmt.Errorf("insert order: %w", err)
	}
	countSave(o.Status, "created")
	return o, nil
}

// Update reprices every line from current inputs and replaces the stored
// order. Lines keep their snapshots only through the items the caller sends
// back unchanged.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Order, error) {
	o, err := s.assemble(ctx, in)
	if err != nil {
		return Order{}, err
	}
	o.ID = id
	if err := s.store.UpdateOrder(ctx, &o); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Order{}, common.NotFound("order", err)
		}
		countSave(o.Status, "error")
		return Order{}, fmt.Errorf("update order: %w", err)
	}
	countSave(o.Status, "updated")
	return s.Get(ctx, id)
}

// Get loads one order with its items.
func (s *Service) Get(ctx context.Context, id int64) (Order, error) {
	o, err := s.store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Order{}, common.NotFound("order", err)
		}
		return Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// List returns order summaries filtered by status and client.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Summary, int64, error) {
	if f.Status != "" && f.Status != pricing.StatusQuotation && f.Status != pricing.StatusConfirmed {
		return nil, 0, common.BadRequest("status", "unknown status", nil)
	}
	if f.Limit <= 0 {
		f.Limit = 20
	}
	rows, total, err := s.store.ListOrders(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return rows, total, nil
}

// Delete removes an order and its items.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteOrder(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return common.NotFound("order", err)
		}
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

// UpdateStatus moves an order between quotation and confirmed and recomputes
// its totals, since commission only counts on confirmed orders.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (Order, error) {
	if status != pricing.StatusQuotation && status != pricing.StatusConfirmed {
		return Order{}, common.BadRequest("status", "unknown status", nil)
	}
	o, err := s.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	previous := o.Status

	totals := pricing.OrderTotals(itemLines(o.Items), o.Taxes, status)
	o.Status = status
	o.Subtotal = totals.Subtotal
	o.Total = totals.Total
	o.Commission = totals.Commission
	if err := s.store.UpdateTotals(ctx, &o); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Order{}, common.NotFound("order", err)
		}
		return Order{}, fmt.Errorf("update order status: %w", err)
	}
	if previous != status && obs.OrderStatusChangesTotal != nil {
		obs.OrderStatusChangesTotal.WithLabelValues(previous, status).Inc()
	}
	return o, nil
}

// assemble validates the input, prices every line, and computes order totals.
func (s *Service) assemble(ctx context.Context, in Input) (Order, error) {
	if in.ClientID < 1 {
		return Order{}, common.BadRequest("client_id", "client_id is required", nil)
	}
	status := in.Status
	if status == "" {
		status = pricing.StatusQuotation
	}
	if status != pricing.StatusQuotation && status != pricing.StatusConfirmed {
		return Order{}, common.BadRequest("status", "unknown status", nil)
	}
	if in.Taxes.Sign() < 0 {
		return Order{}, common.BadRequest("taxes", "taxes must not be negative", nil)
	}

	items := make([]Item, 0, len(in.Items))
	for i, itemIn := range in.Items {
		item, err := s.priceItem(ctx, itemIn)
		if err != nil {
			var appErr *common.AppError
			if errors.As(err, &appErr) && appErr.Details == nil {
				appErr.Details = map[string]any{"item": i}
			}
			return Order{}, err
		}
		items = append(items, item)
	}

	totals := pricing.OrderTotals(itemLines(items), in.Taxes, status)
	return Order{
		ClientID:         in.ClientID,
		RepresentativeID: in.RepresentativeID,
		Status:           status,
		PaymentTerms:     in.PaymentTerms,
		Subtotal:         totals.Subtotal,
		Discount:         decimal.Zero,
		Taxes:            in.Taxes,
		Total:            totals.Total,
		Commission:       totals.Commission,
		Notes:            in.Notes,
		Items:            items,
	}, nil
}

// priceItem resolves a line's discount and commission from the catalog and
// computes its subtotal.
func (s *Service) priceItem(ctx context.Context, in ItemInput) (Item, error) {
	product, err := s.store.LookupProduct(ctx, in.ProductID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Item{}, common.NotFound("product", err)
		}
		return Item{}, fmt.Errorf("lookup product: %w", err)
	}

	var (
		tierPct    *decimal.Decimal
		commission decimal.Decimal
		discountID *int64
	)
	if in.DiscountID != nil {
		tier, err := s.store.LookupDiscount(ctx, *in.DiscountID)
		switch {
		case errors.Is(err, ErrNotFound):
			// A deleted tier prices the line at full list with no commission.
		case err != nil:
			return Item{}, fmt.Errorf("lookup discount: %w", err)
		default:
			tierPct = &tier.Percentage
			commission = tier.Commission
			discountID = in.DiscountID
		}
	}

	discountPct, err := pricing.ResolveDiscount(product.Price, pricing.PriceInput{
		TierPercentage: tierPct,
		ManualPrice:    in.ManualPrice,
	})
	if err != nil {
		return Item{}, pricingError(err)
	}
	// A typed price overrides the tier discount but keeps its commission.
	if in.ManualPrice != nil && obs.ManualPriceOverridesTotal != nil {
		obs.ManualPriceOverridesTotal.Inc()
	}

	line := pricing.Line{
		Quantity:             in.Quantity,
		UnitPrice:            product.Price,
		DiscountPercentage:   discountPct,
		CommissionPercentage: commission,
	}
	if err := line.Validate(); err != nil {
		return Item{}, pricingError(err)
	}

	return Item{
		ProductID:          product.ID,
		ProductCode:        product.Code,
		ProductName:        product.Name,
		Quantity:           in.Quantity,
		UnitPrice:          product.Price,
		DiscountID:         discountID,
		DiscountPercentage: discountPct,
		Commission:         commission,
		Subtotal:           line.Subtotal(),
		ClientRef:          in.ClientRef,
	}, nil
}

func itemLines(items []Item) []pricing.Line {
	lines := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, pricing.Line{
			Quantity:             it.Quantity,
			UnitPrice:            it.UnitPrice,
			DiscountPercentage:   it.DiscountPercentage,
			CommissionPercentage: it.Commission,
		})
	}
	return lines
}

func pricingError(err error) error {
	switch {
	case errors.Is(err, pricing.ErrInvalidQuantity):
		return common.BadRequest("quantity", "quantity must be positive", err)
	case errors.Is(err, pricing.ErrInvalidDiscount):
		return common.BadRequest("discount", "discount percentage must be in [0, 100)", err)
	case errors.Is(err, pricing.ErrInvalidCommission):
		return common.BadRequest("commission", "commission must not be negative", err)
	case errors.Is(err, pricing.ErrInvalidManualPrice):
		return common.BadRequest("manual_price", "manual price must be positive", err)
	case errors.Is(err, pricing.ErrZeroListPrice):
		return common.BadRequest("manual_price", "product has no positive list price to discount from", err)
	default:
		return err
	}
}

func countSave(status, result string) {
	if obs.OrderSavesTotal != nil {
		obs.OrderSavesTotal.WithLabelValues(status, result).Inc()
	}
}
