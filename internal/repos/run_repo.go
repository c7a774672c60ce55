package repos

import (
	"database/sql"

	"groupcart/internal/domain"

	"github.com/jmoiron/sqlx"
)

type RunRepo struct{ db *sqlx.DB }

func NewRunRepo(db *sqlx.DB) *RunRepo { return &RunRepo{db: db} }

const runCols = `id,group_id,store_id,state,planned_on,planning_at,active_at,confirmed_at,shopping_at,completed_at,cancelled_at`

// Create inserts the run in planning state and its leader participant.
func (r *RunRepo) Create(runID, groupID, storeID, leaderID string, plannedOn *string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		INSERT INTO runs(id,group_id,store_id,state,planned_on)
		VALUES(?,?,?,'planning',?)`, runID, groupID, storeID, plannedOn); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		INSERT INTO participants(run_id,user_id,is_leader) VALUES(?,?,1)`, runID, leaderID); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *RunRepo) ByID(id string) (*domain.Run, error) {
	var run domain.Run
	if err := r.db.Get(&run, `SELECT `+runCols+` FROM runs WHERE id=?`, id); err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *RunRepo) ListForGroup(groupID string) ([]domain.Run, error) {
	out := []domain.Run{}
	err := r.db.Select(&out, `SELECT `+runCols+` FROM runs WHERE group_id=? ORDER BY planning_at DESC`, groupID)
	return out, err
}

// stateStamp maps a target state to its timestamp column.
var stateStamp = map[domain.RunState]string{
	domain.StateActive:    "active_at",
	domain.StateConfirmed: "confirmed_at",
	domain.StateShopping:  "shopping_at",
	domain.StateCompleted: "completed_at",
	domain.StateCancelled: "cancelled_at",
}

// Transition performs a compare-and-swap on the run state so a stale
// request from another participant cannot double-apply. Returns false
// when the run was no longer in `from`.
func (r *RunRepo) Transition(runID string, from, to domain.RunState) (bool, error) {
	col, ok := stateStamp[to]
	if !ok {
		return false, nil
	}
	res, err := r.db.Exec(`UPDATE runs SET state=?, `+col+`=CURRENT_TIMESTAMP WHERE id=? AND state=?`,
		to, runID, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ---------- Participants ----------

func (r *RunRepo) Participants(runID string) ([]domain.Participant, error) {
	out := []domain.Participant{}
	err := r.db.Select(&out, `
		SELECT p.run_id, p.user_id, u.name AS user_name,
		       p.is_leader, p.is_helper, p.is_removed, p.ready
		FROM participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.run_id=?
		ORDER BY u.name`, runID)
	return out, err
}

func (r *RunRepo) Participant(runID, userID string) (*domain.Participant, error) {
	var p domain.Participant
	err := r.db.Get(&p, `
		SELECT p.run_id, p.user_id, u.name AS user_name,
		       p.is_leader, p.is_helper, p.is_removed, p.ready
		FROM participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.run_id=? AND p.user_id=?`, runID, userID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// EnsureParticipant creates the membership row on first contact with a
// run (e.g. first bid). No-op when it already exists.
func (r *RunRepo) EnsureParticipant(runID, userID string) error {
	_, err := r.db.Exec(`
		INSERT INTO participants(run_id,user_id) VALUES(?,?)
		ON CONFLICT(run_id,user_id) DO NOTHING`, runID, userID)
	return err
}

// ToggleReady flips the ready flag and returns the new value.
func (r *RunRepo) ToggleReady(runID, userID string) (bool, error) {
	if _, err := r.db.Exec(`
		UPDATE participants SET ready = NOT ready
		WHERE run_id=? AND user_id=? AND is_removed=0`, runID, userID); err != nil {
		return false, err
	}
	var v bool
	err := r.db.Get(&v, `SELECT ready FROM participants WHERE run_id=? AND user_id=?`, runID, userID)
	return v, err
}

// AllReady reports whether every non-removed participant marked ready.
func (r *RunRepo) AllReady(runID string) (bool, error) {
	var pending int
	if err := r.db.Get(&pending, `
		SELECT COUNT(*) FROM participants
		WHERE run_id=? AND is_removed=0 AND ready=0`, runID); err != nil {
		return false, err
	}
	return pending == 0, nil
}

func (r *RunRepo) ToggleHelper(runID, userID string) (bool, error) {
	if _, err := r.db.Exec(`
		UPDATE participants SET is_helper = NOT is_helper
		WHERE run_id=? AND user_id=? AND is_leader=0 AND is_removed=0`, runID, userID); err != nil {
		return false, err
	}
	var v bool
	err := r.db.Get(&v, `SELECT is_helper FROM participants WHERE run_id=? AND user_id=?`, runID, userID)
	return v, err
}

// ---------- Leadership handshake ----------

func (r *RunRepo) PutLeadershipRequest(runID, fromUserID, toUserID string) error {
	_, err := r.db.Exec(`
		INSERT INTO leadership_requests(run_id,from_user_id,to_user_id)
		VALUES(?,?,?)
		ON CONFLICT(run_id) DO UPDATE SET from_user_id=excluded.from_user_id,
		  to_user_id=excluded.to_user_id, created_at=CURRENT_TIMESTAMP`, runID, fromUserID, toUserID)
	return err
}

func (r *RunRepo) LeadershipRequest(runID string) (*domain.LeadershipRequest, error) {
	var lr domain.LeadershipRequest
	err := r.db.Get(&lr, `SELECT run_id,from_user_id,to_user_id,created_at FROM leadership_requests WHERE run_id=?`, runID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &lr, nil
}

// SwapLeader moves is_leader from one participant to the other and
// clears the pending request, all in one transaction.
func (r *RunRepo) SwapLeader(runID, fromUserID, toUserID string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`UPDATE participants SET is_leader=0 WHERE run_id=? AND user_id=?`, runID, fromUserID); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE participants SET is_leader=1, is_helper=0 WHERE run_id=? AND user_id=?`, runID, toUserID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM leadership_requests WHERE run_id=?`, runID); err != nil {
		return err
	}
	return tx.Commit()
}
