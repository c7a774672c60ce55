package repos

import (
	"groupcart/internal/domain"

	"github.com/jmoiron/sqlx"
)

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

func (r *UserRepo) ByEmail(email string) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, `SELECT id,email,name,password_hash,role,verified FROM users WHERE LOWER(email)=LOWER(?)`, email)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ByID(id string) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, `SELECT id,email,name,password_hash,role,verified FROM users WHERE id=?`, id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) BindSession(sid, userID string) error {
	_, err := r.DB.Exec(`INSERT INTO sessions(id,user_id,last_seen)
                          VALUES(?,?,CURRENT_TIMESTAMP)
                          ON CONFLICT(id) DO UPDATE SET user_id=excluded.user_id,last_seen=CURRENT_TIMESTAMP`, sid, userID)
	return err
}

func (r *UserRepo) SessionUser(sid string) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, `
      SELECT u.id,u.email,u.name,u.password_hash,u.role,u.verified
      FROM sessions s
      JOIN users u ON u.id=s.user_id
      WHERE s.id=?`, sid)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) UnbindSession(sid string) error {
	_, err := r.DB.Exec(`UPDATE sessions SET user_id=NULL,last_seen=CURRENT_TIMESTAMP WHERE id=?`, sid)
	return err
}

// ListAdmin returns users matching the admin console filters. verified
// is a tri-state: nil means both.
func (r *UserRepo) ListAdmin(search string, verified *bool, limit, offset int) ([]domain.User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := `SELECT id,email,name,password_hash,role,verified FROM users WHERE 1=1`
	args := []any{}
	if search != "" {
		q += ` AND (LOWER(name) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?))`
		pat := "%" + search + "%"
		args = append(args, pat, pat)
	}
	if verified != nil {
		q += ` AND verified = ?`
		args = append(args, *verified)
	}
	q += ` ORDER BY email LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	out := []domain.User{}
	err := r.DB.Select(&out, q, args...)
	return out, err
}

// ToggleVerified flips the verified flag and returns the new value.
func (r *UserRepo) ToggleVerified(id string) (bool, error) {
	if _, err := r.DB.Exec(`UPDATE users SET verified = NOT verified, updated_at=CURRENT_TIMESTAMP WHERE id=?`, id); err != nil {
		return false, err
	}
	var v bool
	err := r.DB.Get(&v, `SELECT verified FROM users WHERE id=?`, id)
	return v, err
}

// DeleteUserCascade removes a user and their sessions. Participant rows
// are marked removed so historical bids survive for the run record.
func (r *UserRepo) DeleteUserCascade(userID string) (int64, error) {
	tx, err := r.DB.Beginx()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var affected int64
	res, err := tx.Exec(`UPDATE participants SET is_removed=1, is_helper=0, ready=0 WHERE user_id=?`, userID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	affected += n

	if _, err := tx.Exec(`DELETE FROM sessions WHERE user_id=?`, userID); err != nil {
		return 0, err
	}
	res, err = tx.Exec(`DELETE FROM users WHERE id=?`, userID)
	if err != nil {
		return 0, err
	}
	n, _ = res.RowsAffected()
	affected += n

	return affected, tx.Commit()
}
