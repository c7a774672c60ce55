package services

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"groupcart/internal/domain"
	"groupcart/internal/repos"
)

type ShoppingService struct {
	Runs     *repos.RunRepo
	Bids     *repos.BidRepo
	Products *repos.ProductRepo
	Shopping *repos.ShoppingRepo
	Events   Publisher
}

func NewShoppingService(runs *repos.RunRepo, bids *repos.BidRepo, products *repos.ProductRepo,
	shopping *repos.ShoppingRepo, events Publisher) *ShoppingService {
	return &ShoppingService{Runs: runs, Bids: bids, Products: products, Shopping: shopping, Events: events}
}

// requireShopping checks the run is mid-shopping and the caller may act.
func (s *ShoppingService) requireShopping(runID, userID string) error {
	run, err := s.Runs.ByID(runID)
	if err != nil {
		return ErrNotFound
	}
	if run.State != domain.StateShopping {
		return ErrStateConflict.With(map[string]any{"state": run.State})
	}
	p, err := s.Runs.Participant(runID, userID)
	if err != nil {
		return ErrForbidden
	}
	if p.IsRemoved || (!p.IsLeader && !p.IsHelper) {
		return ErrForbidden
	}
	return nil
}

// AddPrice records a price observation for a product.
func (s *ShoppingService) AddPrice(runID, userID, productID string, price, minQty decimal.Decimal, note string) error {
	if err := s.requireShopping(runID, userID); err != nil {
		return err
	}
	if !price.IsPositive() {
		return ErrValidation.With(map[string]any{"price": price.String()})
	}
	if minQty.IsNegative() {
		return ErrValidation.With(map[string]any{"min_quantity": minQty.String()})
	}
	if _, err := s.Products.ByID(productID); err != nil {
		return ErrNotFound
	}
	if err := s.Shopping.AddObservation(uuid.NewString(), runID, productID, price, minQty, note); err != nil {
		return err
	}
	publish(s.Events, runID, EventShoppingItemUpdated)
	return nil
}

// MarkPurchased records the purchase for a product, replacing any
// earlier record. Total is quantity × unit price, computed server-side.
func (s *ShoppingService) MarkPurchased(runID, userID, productID string, qty, price decimal.Decimal) error {
	if err := s.requireShopping(runID, userID); err != nil {
		return err
	}
	if !qty.IsPositive() {
		return ErrValidation.With(map[string]any{"quantity": qty.String()})
	}
	if !price.IsPositive() {
		return ErrValidation.With(map[string]any{"price": price.String()})
	}
	if _, err := s.Products.ByID(productID); err != nil {
		return ErrNotFound
	}
	if err := s.Shopping.PutPurchase(runID, productID, qty, price); err != nil {
		return err
	}
	publish(s.Events, runID, EventShoppingItemUpdated)
	return nil
}

// BuyMore adds quantity to an existing purchase. The unit price of the
// existing record is kept unless the new batch cost differs, in which
// case the weighted unit price is stored so total stays consistent.
func (s *ShoppingService) BuyMore(runID, userID, productID string, qty, price decimal.Decimal) error {
	if err := s.requireShopping(runID, userID); err != nil {
		return err
	}
	if !qty.IsPositive() || !price.IsPositive() {
		return ErrValidation.With(map[string]any{"quantity": qty.String(), "price": price.String()})
	}

	prevQty, prevPrice, found, err := s.Shopping.Purchase(runID, productID)
	if err != nil {
		return err
	}
	if !found {
		return ErrNoPurchase.With(map[string]any{"product_id": productID})
	}

	newQty := prevQty.Add(qty)
	unit := prevPrice
	if !price.Equal(prevPrice) {
		total := prevQty.Mul(prevPrice).Add(qty.Mul(price))
		unit = total.DivRound(newQty, 4)
	}
	if err := s.Shopping.PutPurchase(runID, productID, newQty, unit); err != nil {
		return err
	}
	publish(s.Events, runID, EventShoppingItemUpdated)
	return nil
}

// List builds the shopping list: one aggregate per product that has
// bids, purchases or observations.
func (s *ShoppingService) List(runID string) ([]domain.ShoppingItem, error) {
	if _, err := s.Runs.ByID(runID); err != nil {
		return nil, ErrNotFound
	}

	totals, err := s.Bids.RequestedTotals(runID)
	if err != nil {
		return nil, err
	}
	purchases, err := s.Shopping.Purchases(runID)
	if err != nil {
		return nil, err
	}
	observations, err := s.Shopping.Observations(runID)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	for id := range totals {
		seen[id] = true
	}
	for id := range purchases {
		seen[id] = true
	}
	for id := range observations {
		seen[id] = true
	}

	items := make([]domain.ShoppingItem, 0, len(seen))
	for productID := range seen {
		product, err := s.Products.ByID(productID)
		if err != nil {
			continue
		}
		item := domain.ShoppingItem{
			ProductID:    productID,
			ProductName:  product.Name,
			Unit:         product.Unit,
			RequestedQty: totals[productID],
		}
		if row, ok := purchases[productID]; ok {
			qty, err1 := decimal.NewFromString(row.Quantity)
			price, err2 := decimal.NewFromString(row.Price)
			if err1 == nil && err2 == nil {
				item.Purchased = true
				item.PurchasedQty = qty
				item.PurchasedPrice = price
				item.PurchasedTotal = qty.Mul(price)
			}
		}
		if obs := observations[productID]; len(obs) > 0 {
			if len(obs) > 5 {
				obs = obs[:5]
			}
			item.Observations = obs
			// most recent observation carries the min-quantity constraint
			item.MinQuantity = obs[0].MinQuantity
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].ProductName < items[j].ProductName })
	return items, nil
}
