package repos

import (
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"groupcart/internal/domain"
)

type BidRepo struct{ db *sqlx.DB }

func NewBidRepo(db *sqlx.DB) *BidRepo { return &BidRepo{db: db} }

const bidCols = `run_id,user_id,product_id,quantity,interested_only,comment,updated_at`

// Upsert places a bid, replacing quantity and flags in place when one
// already exists for the (participant, product) pair.
func (r *BidRepo) Upsert(b domain.Bid) error {
	_, err := r.db.Exec(`
		INSERT INTO bids(run_id,user_id,product_id,quantity,interested_only,comment,updated_at)
		VALUES(?,?,?,?,?,?,CURRENT_TIMESTAMP)
		ON CONFLICT(run_id,user_id,product_id) DO UPDATE SET
		  quantity=excluded.quantity,
		  interested_only=excluded.interested_only,
		  comment=excluded.comment,
		  updated_at=CURRENT_TIMESTAMP
	`, b.RunID, b.UserID, b.ProductID, b.Quantity.String(), b.InterestedOnly, b.Comment)
	return err
}

func (r *BidRepo) Get(runID, userID, productID string) (*domain.Bid, error) {
	var b domain.Bid
	err := r.db.Get(&b, `SELECT `+bidCols+` FROM bids WHERE run_id=? AND user_id=? AND product_id=?`,
		runID, userID, productID)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Delete retracts a bid. Returns the number of rows removed so the
// caller can distinguish a retract of a bid that never existed.
func (r *BidRepo) Delete(runID, userID, productID string) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM bids WHERE run_id=? AND user_id=? AND product_id=?`,
		runID, userID, productID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *BidRepo) ListForUser(runID, userID string) ([]domain.Bid, error) {
	out := []domain.Bid{}
	err := r.db.Select(&out, `SELECT `+bidCols+` FROM bids WHERE run_id=? AND user_id=? ORDER BY product_id`,
		runID, userID)
	return out, err
}

// RequestedTotals sums bid quantities per product for a run. Bids from
// removed participants still count (historical record); interested-only
// bids contribute nothing.
func (r *BidRepo) RequestedTotals(runID string) (map[string]decimal.Decimal, error) {
	var rows []struct {
		ProductID string `db:"product_id"`
		Quantity  string `db:"quantity"`
	}
	err := r.db.Select(&rows, `
		SELECT product_id, quantity FROM bids
		WHERE run_id=? AND interested_only=0`, runID)
	if err != nil {
		return nil, err
	}

	totals := map[string]decimal.Decimal{}
	for _, row := range rows {
		q, err := decimal.NewFromString(row.Quantity)
		if err != nil {
			continue
		}
		totals[row.ProductID] = totals[row.ProductID].Add(q)
	}
	return totals, nil
}
