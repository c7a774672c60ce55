package repos

import (
	"groupcart/internal/domain"

	"github.com/jmoiron/sqlx"
)

type StoreRepo struct{ db *sqlx.DB }

func NewStoreRepo(db *sqlx.DB) *StoreRepo { return &StoreRepo{db: db} }

func (r *StoreRepo) ByID(id string) (*domain.Store, error) {
	var s domain.Store
	if err := r.db.Get(&s, `SELECT id,name,address,verified FROM stores WHERE id=?`, id); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StoreRepo) List() ([]domain.Store, error) {
	out := []domain.Store{}
	err := r.db.Select(&out, `SELECT id,name,address,verified FROM stores ORDER BY name`)
	return out, err
}

func (r *StoreRepo) ListAdmin(search string, verified *bool, limit, offset int) ([]domain.Store, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := `SELECT id,name,address,verified FROM stores WHERE 1=1`
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

	out := []domain.Store{}
	err := r.db.Select(&out, q, args...)
	return out, err
}

func (r *StoreRepo) ToggleVerified(id string) (bool, error) {
	if _, err := r.db.Exec(`UPDATE stores SET verified = NOT verified, updated_at=CURRENT_TIMESTAMP WHERE id=?`, id); err != nil {
		return false, err
	}
	var v bool
	err := r.db.Get(&v, `SELECT verified FROM stores WHERE id=?`, id)
	return v, err
}

// Delete refuses stores that still have products or runs (RESTRICT
// foreign keys surface as an error from the driver).
func (r *StoreRepo) Delete(id string) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM stores WHERE id=?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
