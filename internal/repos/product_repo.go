package repos

import (
	"groupcart/internal/domain"

	"github.com/jmoiron/sqlx"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

func (r *ProductRepo) ByID(id string) (*domain.Product, error) {
	var p domain.Product
	if err := r.db.Get(&p, `SELECT id,store_id,name,unit,verified FROM products WHERE id=?`, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepo) ListByStore(storeID string) ([]domain.Product, error) {
	out := []domain.Product{}
	err := r.db.Select(&out, `SELECT id,store_id,name,unit,verified FROM products WHERE store_id=? ORDER BY name`, storeID)
	return out, err
}

// AvailableForRun returns the run's store products the user has not bid
// on yet. Retracting a bid puts the product back on this list.
func (r *ProductRepo) AvailableForRun(runID, userID string) ([]domain.Product, error) {
	out := []domain.Product{}
	err := r.db.Select(&out, `
		SELECT p.id, p.store_id, p.name, p.unit, p.verified
		FROM products p
		JOIN runs rn ON rn.store_id = p.store_id
		WHERE rn.id = ?
		  AND NOT EXISTS (
		    SELECT 1 FROM bids b
		    WHERE b.run_id = rn.id AND b.user_id = ? AND b.product_id = p.id
		  )
		ORDER BY p.name`, runID, userID)
	return out, err
}

func (r *ProductRepo) ListAdmin(search string, verified *bool, limit, offset int) ([]domain.Product, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := `SELECT id,store_id,name,unit,verified FROM products WHERE 1=1`
	args := []any{}
	if search != "" {
		q += ` AND LOWER(name) LIKE LOWER(?)`
		args = append(args, "%"+search+"%")
	}
	if verified != nil {
		q += ` AND verified = ?`
		args = append(args, *verified)
	}
	q += ` ORDER BY name LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	out := []domain.Product{}
	err := r.db.Select(&out, q, args...)
	return out, err
}

func (r *ProductRepo) ToggleVerified(id string) (bool, error) {
	if _, err := r.db.Exec(`UPDATE products SET verified = NOT verified, updated_at=CURRENT_TIMESTAMP WHERE id=?`, id); err != nil {
		return false, err
	}
	var v bool
	err := r.db.Get(&v, `SELECT verified FROM products WHERE id=?`, id)
	return v, err
}

func (r *ProductRepo) Update(id, name, unit string) (int64, error) {
	res, err := r.db.Exec(`UPDATE products SET name=?, unit=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`, name, unit, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Merge re-points every bid, purchase and observation of src onto dst,
// then deletes src. Bids that would collide keep the dst row.
func (r *ProductRepo) Merge(srcID, dstID string) (int64, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var affected int64

	res, err := tx.Exec(`
		UPDATE bids SET product_id=?
		WHERE product_id=? AND NOT EXISTS (
		  SELECT 1 FROM bids b2
		  WHERE b2.run_id=bids.run_id AND b2.user_id=bids.user_id AND b2.product_id=?
		)`, dstID, srcID, dstID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	affected += n

	if _, err := tx.Exec(`DELETE FROM bids WHERE product_id=?`, srcID); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(`UPDATE price_observations SET product_id=? WHERE product_id=?`, dstID, srcID); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(`
		UPDATE purchases SET product_id=?
		WHERE product_id=? AND NOT EXISTS (
		  SELECT 1 FROM purchases p2 WHERE p2.run_id=purchases.run_id AND p2.product_id=?
		)`, dstID, srcID, dstID); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(`DELETE FROM purchases WHERE product_id=?`, srcID); err != nil {
		return 0, err
	}

	res, err = tx.Exec(`DELETE FROM products WHERE id=?`, srcID)
	if err != nil {
		return 0, err
	}
	n, _ = res.RowsAffected()
	affected += n

	return affected, tx.Commit()
}

func (r *ProductRepo) Delete(id string) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM products WHERE id=?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
