package services

import (
	"database/sql"

	"github.com/shopspring/decimal"

	"groupcart/internal/domain"
	"groupcart/internal/repos"
)

type BidService struct {
	Runs     *repos.RunRepo
	Bids     *repos.BidRepo
	Products *repos.ProductRepo
	Events   Publisher
}

func NewBidService(runs *repos.RunRepo, bids *repos.BidRepo, products *repos.ProductRepo, events Publisher) *BidService {
	return &BidService{Runs: runs, Bids: bids, Products: products, Events: events}
}

// Place creates or updates the caller's bid on a product. In planning
// and active any positive quantity is accepted; in adjusting mode
// (confirmed/shopping) only reductions of an existing bid pass, down to
// and including zero, the advertised range minimum.
func (s *BidService) Place(runID, userID, productID string, qty decimal.Decimal, interestedOnly bool, comment string) (*domain.Bid, error) {
	run, err := s.Runs.ByID(runID)
	if err != nil {
		return nil, ErrNotFound
	}
	product, err := s.Products.ByID(productID)
	if err != nil {
		return nil, ErrNotFound
	}
	if product.StoreID != run.StoreID {
		return nil, ErrValidation.With(map[string]any{"product_id": productID})
	}

	if qty.IsNegative() {
		return nil, ErrValidation.With(map[string]any{"quantity": qty.String()})
	}
	if interestedOnly {
		// quantity is ignored for interest-only bids
		qty = decimal.Zero
	}

	switch {
	case run.State.AcceptsBids():
		if !interestedOnly && qty.IsZero() {
			return nil, ErrValidation.With(map[string]any{"quantity": "0"})
		}
	case run.State.Adjusting():
		prev, err := s.Bids.Get(runID, userID, productID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, ErrBidOutOfRange.With(map[string]any{"min": "0", "max": "0"})
			}
			return nil, err
		}
		if interestedOnly || qty.GreaterThan(prev.Quantity) {
			return nil, ErrBidOutOfRange.With(map[string]any{"min": "0", "max": prev.Quantity.String()})
		}
		// zero is the range minimum: the bid stays, asking for nothing
	default:
		return nil, ErrStateConflict.With(map[string]any{"state": run.State})
	}

	if err := s.Runs.EnsureParticipant(runID, userID); err != nil {
		return nil, err
	}
	p, err := s.Runs.Participant(runID, userID)
	if err != nil {
		return nil, err
	}
	if p.IsRemoved {
		return nil, ErrRemoved
	}

	bid := domain.Bid{
		RunID:          runID,
		UserID:         userID,
		ProductID:      productID,
		Quantity:       qty,
		InterestedOnly: interestedOnly,
		Comment:        comment,
	}
	if err := s.Bids.Upsert(bid); err != nil {
		return nil, err
	}
	publish(s.Events, runID, EventBidUpdated)

	out, err := s.Bids.Get(runID, userID, productID)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Retract deletes the caller's bid. Retracting a bid that does not
// exist is reported as not_found, never a crash.
func (s *BidService) Retract(runID, userID, productID string) error {
	run, err := s.Runs.ByID(runID)
	if err != nil {
		return ErrNotFound
	}
	if !run.State.AcceptsBids() {
		return ErrStateConflict.With(map[string]any{"state": run.State})
	}
	n, err := s.Bids.Delete(runID, userID, productID)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoBid
	}
	publish(s.Events, runID, EventBidUpdated)
	return nil
}

type BidWithRange struct {
	domain.Bid
	Range *domain.BidRange `json:"range,omitempty"`
}

// ListForUser returns the caller's bids; once the run is adjusting each
// bid carries the server-computed [min,max] reduction window.
func (s *BidService) ListForUser(runID, userID string) ([]BidWithRange, error) {
	run, err := s.Runs.ByID(runID)
	if err != nil {
		return nil, ErrNotFound
	}
	bids, err := s.Bids.ListForUser(runID, userID)
	if err != nil {
		return nil, err
	}

	out := make([]BidWithRange, 0, len(bids))
	for _, b := range bids {
		item := BidWithRange{Bid: b}
		if run.State.Adjusting() {
			item.Range = &domain.BidRange{
				ProductID: b.ProductID,
				Min:       decimal.Zero,
				Max:       b.Quantity,
			}
		}
		out = append(out, item)
	}
	return out, nil
}

// AvailableProducts lists store products the caller has not bid on.
func (s *BidService) AvailableProducts(runID, userID string) ([]domain.Product, error) {
	if _, err := s.Runs.ByID(runID); err != nil {
		return nil, ErrNotFound
	}
	return s.Products.AvailableForRun(runID, userID)
}
