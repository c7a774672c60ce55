package repos

import (
	"groupcart/internal/domain"

	"github.com/jmoiron/sqlx"
)

type GroupRepo struct{ db *sqlx.DB }

func NewGroupRepo(db *sqlx.DB) *GroupRepo { return &GroupRepo{db: db} }

func (r *GroupRepo) Create(id, name string) error {
	_, err := r.db.Exec(`INSERT INTO groups(id,name) VALUES(?,?)`, id, name)
	return err
}

func (r *GroupRepo) ByID(id string) (*domain.Group, error) {
	var g domain.Group
	if err := r.db.Get(&g, `SELECT id,name,created_at FROM groups WHERE id=?`, id); err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *GroupRepo) ListForUser(userID string) ([]domain.Group, error) {
	out := []domain.Group{}
	err := r.db.Select(&out, `
		SELECT g.id, g.name, g.created_at
		FROM groups g
		JOIN group_members m ON m.group_id = g.id
		WHERE m.user_id = ?
		ORDER BY g.name`, userID)
	return out, err
}

func (r *GroupRepo) AddMember(groupID, userID string) error {
	_, err := r.db.Exec(`
		INSERT INTO group_members(group_id,user_id) VALUES(?,?)
		ON CONFLICT(group_id,user_id) DO NOTHING`, groupID, userID)
	return err
}

func (r *GroupRepo) IsMember(groupID, userID string) (bool, error) {
	var n int
	if err := r.db.Get(&n, `SELECT COUNT(*) FROM group_members WHERE group_id=? AND user_id=?`, groupID, userID); err != nil {
		return false, err
	}
	return n > 0, nil
}
