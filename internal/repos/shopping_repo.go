package repos

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"groupcart/internal/domain"
)

type ShoppingRepo struct{ db *sqlx.DB }

func NewShoppingRepo(db *sqlx.DB) *ShoppingRepo { return &ShoppingRepo{db: db} }

type PurchaseRow struct {
	ProductID string `db:"product_id"`
	Quantity  string `db:"quantity"`
	Price     string `db:"price"`
	UpdatedAt string `db:"updated_at"`
}

// PutPurchase records or replaces the purchase for a product.
func (r *ShoppingRepo) PutPurchase(runID, productID string, qty, price decimal.Decimal) error {
	_, err := r.db.Exec(`
		INSERT INTO purchases(run_id,product_id,quantity,price,updated_at)
		VALUES(?,?,?,?,CURRENT_TIMESTAMP)
		ON CONFLICT(run_id,product_id) DO UPDATE SET
		  quantity=excluded.quantity, price=excluded.price, updated_at=CURRENT_TIMESTAMP
	`, runID, productID, qty.String(), price.String())
	return err
}

func (r *ShoppingRepo) Purchase(runID, productID string) (qty, price decimal.Decimal, found bool, err error) {
	var row PurchaseRow
	err = r.db.Get(&row, `SELECT product_id,quantity,price,updated_at FROM purchases WHERE run_id=? AND product_id=?`,
		runID, productID)
	if err != nil {
		if err == sql.ErrNoRows {
			return decimal.Zero, decimal.Zero, false, nil
		}
		return decimal.Zero, decimal.Zero, false, err
	}
	qty, err = decimal.NewFromString(row.Quantity)
	if err != nil {
		return decimal.Zero, decimal.Zero, false, err
	}
	price, err = decimal.NewFromString(row.Price)
	if err != nil {
		return decimal.Zero, decimal.Zero, false, err
	}
	return qty, price, true, nil
}

func (r *ShoppingRepo) Purchases(runID string) (map[string]PurchaseRow, error) {
	rows := []PurchaseRow{}
	if err := r.db.Select(&rows, `SELECT product_id,quantity,price,updated_at FROM purchases WHERE run_id=?`, runID); err != nil {
		return nil, err
	}
	out := make(map[string]PurchaseRow, len(rows))
	for _, row := range rows {
		out[row.ProductID] = row
	}
	return out, nil
}

func (r *ShoppingRepo) AddObservation(id, runID, productID string, price, minQty decimal.Decimal, note string) error {
	_, err := r.db.Exec(`
		INSERT INTO price_observations(id,run_id,product_id,price,note,min_quantity)
		VALUES(?,?,?,?,?,?)`, id, runID, productID, price.String(), note, minQty.String())
	return err
}

// Observations returns recent price observations per product, newest
// first, capped per product by the caller.
func (r *ShoppingRepo) Observations(runID string) (map[string][]domain.PriceObservation, error) {
	var rows []struct {
		ProductID   string `db:"product_id"`
		Price       string `db:"price"`
		Note        string `db:"note"`
		MinQuantity string `db:"min_quantity"`
		ObservedAt  string `db:"observed_at"`
	}
	err := r.db.Select(&rows, `
		SELECT product_id,price,note,min_quantity,observed_at
		FROM price_observations WHERE run_id=?
		ORDER BY observed_at DESC, rowid DESC`, runID)
	if err != nil {
		return nil, err
	}

	out := map[string][]domain.PriceObservation{}
	for _, row := range rows {
		price, err := decimal.NewFromString(row.Price)
		if err != nil {
			continue
		}
		minQty, err := decimal.NewFromString(row.MinQuantity)
		if err != nil {
			minQty = decimal.Zero
		}
		out[row.ProductID] = append(out[row.ProductID], domain.PriceObservation{
			ProductID:   row.ProductID,
			Price:       price,
			Note:        row.Note,
			MinQuantity: minQty,
			ObservedAt:  row.ObservedAt,
		})
	}
	return out, nil
}
