package services

import (
	"database/sql"

	"github.com/google/uuid"

	"groupcart/internal/domain"
	"groupcart/internal/metrics"
	"groupcart/internal/repos"
)

type RunService struct {
	Runs     *repos.RunRepo
	Groups   *repos.GroupRepo
	Stores   *repos.StoreRepo
	Shopping *repos.ShoppingRepo
	Bids     *repos.BidRepo
	Events   Publisher
}

func NewRunService(runs *repos.RunRepo, groups *repos.GroupRepo, stores *repos.StoreRepo,
	shopping *repos.ShoppingRepo, bids *repos.BidRepo, events Publisher) *RunService {
	return &RunService{Runs: runs, Groups: groups, Stores: stores, Shopping: shopping, Bids: bids, Events: events}
}

// Create starts a run in planning state; the caller becomes leader.
func (s *RunService) Create(groupID, storeID, callerID string, plannedOn *string) (*domain.Run, error) {
	if _, err := s.Groups.ByID(groupID); err != nil {
		return nil, ErrNotFound
	}
	if _, err := s.Stores.ByID(storeID); err != nil {
		return nil, ErrNotFound
	}
	member, err := s.Groups.IsMember(groupID, callerID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotAMember
	}

	runID := uuid.NewString()
	if err := s.Runs.Create(runID, groupID, storeID, callerID, plannedOn); err != nil {
		return nil, err
	}
	return s.Runs.ByID(runID)
}

type RunDetail struct {
	Run          domain.Run                `json:"run"`
	Participants []domain.Participant      `json:"participants"`
	Reassignment *domain.LeadershipRequest `json:"reassignment,omitempty"`
}

func (s *RunService) Detail(runID string) (*RunDetail, error) {
	run, err := s.Runs.ByID(runID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	parts, err := s.Runs.Participants(runID)
	if err != nil {
		return nil, err
	}
	lr, err := s.Runs.LeadershipRequest(runID)
	if err != nil {
		return nil, err
	}
	return &RunDetail{Run: *run, Participants: parts, Reassignment: lr}, nil
}

// participant loads the caller's row and rejects removed participants.
func (s *RunService) participant(runID, userID string) (*domain.Participant, error) {
	p, err := s.Runs.Participant(runID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrForbidden
		}
		return nil, err
	}
	if p.IsRemoved {
		return nil, ErrRemoved
	}
	return p, nil
}

func (s *RunService) requireLeader(runID, userID string) (*domain.Run, error) {
	p, err := s.participant(runID, userID)
	if err != nil {
		return nil, err
	}
	if !p.IsLeader {
		return nil, ErrForbidden
	}
	return s.Runs.ByID(runID)
}

func (s *RunService) requireLeaderOrHelper(runID, userID string) (*domain.Run, error) {
	p, err := s.participant(runID, userID)
	if err != nil {
		return nil, err
	}
	if !p.IsLeader && !p.IsHelper {
		return nil, ErrForbidden
	}
	return s.Runs.ByID(runID)
}

func (s *RunService) transition(run *domain.Run, to domain.RunState) error {
	if !run.State.CanTransition(to) {
		return ErrStateConflict.With(map[string]any{"state": run.State, "requested": to})
	}
	ok, err := s.Runs.Transition(run.ID, run.State, to)
	if err != nil {
		return err
	}
	if !ok {
		// someone else moved the run first
		return ErrStateConflict.With(map[string]any{"state": run.State, "requested": to})
	}
	metrics.RunTransitions.WithLabelValues(string(to)).Inc()
	publish(s.Events, run.ID, EventRunUpdated)
	return nil
}

// ToggleReady flips the caller's readiness. The run state does not
// change unless every non-removed participant is now ready, in which
// case the run auto-confirms.
func (s *RunService) ToggleReady(runID, userID string) (bool, error) {
	run, err := s.Runs.ByID(runID)
	if err != nil {
		return false, ErrNotFound
	}
	if _, err := s.participant(runID, userID); err != nil {
		return false, err
	}
	if run.State != domain.StatePlanning && run.State != domain.StateActive {
		return false, ErrStateConflict.With(map[string]any{"state": run.State})
	}

	ready, err := s.Runs.ToggleReady(runID, userID)
	if err != nil {
		return false, err
	}
	publish(s.Events, runID, EventParticipantUpdated)

	if ready {
		all, err := s.Runs.AllReady(runID)
		if err != nil {
			return ready, err
		}
		if all {
			if err := s.transition(run, domain.StateConfirmed); err != nil {
				return ready, err
			}
		}
	}
	return ready, nil
}

// Activate advances planning → active (leader only).
func (s *RunService) Activate(runID, userID string) error {
	run, err := s.requireLeader(runID, userID)
	if err != nil {
		return err
	}
	if run.State != domain.StatePlanning {
		return ErrStateConflict.With(map[string]any{"state": run.State})
	}
	return s.transition(run, domain.StateActive)
}

// ForceConfirm is the leader override that advances the run without
// waiting for full readiness.
func (s *RunService) ForceConfirm(runID, userID string) error {
	run, err := s.requireLeader(runID, userID)
	if err != nil {
		return err
	}
	if run.State != domain.StateActive {
		return ErrStateConflict.With(map[string]any{"state": run.State})
	}
	return s.transition(run, domain.StateConfirmed)
}

func (s *RunService) StartShopping(runID, userID string) error {
	run, err := s.requireLeaderOrHelper(runID, userID)
	if err != nil {
		return err
	}
	if run.State != domain.StateConfirmed {
		return ErrStateConflict.With(map[string]any{"state": run.State})
	}
	return s.transition(run, domain.StateShopping)
}

// FinishAdjusting completes the run. Without force it is rejected while
// any required item (requested quantity > 0) lacks a purchase record;
// the caller is expected to confirm and re-issue with force=true.
func (s *RunService) FinishAdjusting(runID, userID string, force bool) error {
	run, err := s.requireLeader(runID, userID)
	if err != nil {
		return err
	}
	if run.State != domain.StateShopping {
		return ErrStateConflict.With(map[string]any{"state": run.State})
	}

	if !force {
		missing, err := s.unpurchasedRequired(runID)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return ErrUnpurchased.With(map[string]any{"products": missing})
		}
	}
	return s.transition(run, domain.StateCompleted)
}

func (s *RunService) unpurchasedRequired(runID string) ([]string, error) {
	totals, err := s.Bids.RequestedTotals(runID)
	if err != nil {
		return nil, err
	}
	purchases, err := s.Shopping.Purchases(runID)
	if err != nil {
		return nil, err
	}
	missing := []string{}
	for productID, qty := range totals {
		if qty.IsZero() {
			continue
		}
		if _, ok := purchases[productID]; !ok {
			missing = append(missing, productID)
		}
	}
	return missing, nil
}

// Cancel is the terminal escape valve, legal from any non-terminal
// state, leader only, irreversible.
func (s *RunService) Cancel(runID, userID string) error {
	run, err := s.requireLeader(runID, userID)
	if err != nil {
		return err
	}
	if run.State.Terminal() {
		return ErrStateConflict.With(map[string]any{"state": run.State})
	}
	return s.transition(run, domain.StateCancelled)
}

// ToggleHelper grants or revokes helper permissions for a non-leader
// participant while the run has not started shopping.
func (s *RunService) ToggleHelper(runID, leaderID, targetID string) (bool, error) {
	run, err := s.requireLeader(runID, leaderID)
	if err != nil {
		return false, err
	}
	switch run.State {
	case domain.StatePlanning, domain.StateActive, domain.StateConfirmed:
	default:
		return false, ErrStateConflict.With(map[string]any{"state": run.State})
	}

	target, err := s.Runs.Participant(runID, targetID)
	if err != nil {
		return false, ErrNotFound
	}
	if target.IsLeader || target.IsRemoved {
		return false, ErrValidation.With(map[string]any{"user_id": targetID})
	}

	v, err := s.Runs.ToggleHelper(runID, targetID)
	if err != nil {
		return false, err
	}
	publish(s.Events, runID, EventParticipantUpdated)
	return v, nil
}

// RequestLeadership starts the reassignment handshake. The target must
// be an existing, non-removed, non-leader participant.
func (s *RunService) RequestLeadership(runID, leaderID, targetID string) error {
	run, err := s.requireLeader(runID, leaderID)
	if err != nil {
		return err
	}
	if run.State.Terminal() {
		return ErrStateConflict.With(map[string]any{"state": run.State})
	}
	target, err := s.Runs.Participant(runID, targetID)
	if err != nil {
		return ErrNotFound
	}
	if target.IsLeader {
		return ErrAlreadyLeader
	}
	if target.IsRemoved {
		return ErrValidation.With(map[string]any{"user_id": targetID})
	}

	if err := s.Runs.PutLeadershipRequest(runID, leaderID, targetID); err != nil {
		return err
	}
	publish(s.Events, runID, EventParticipantUpdated)
	return nil
}

// AcceptLeadership completes the handshake: the pending target takes
// over; exactly one is_leader flips each way. A terminal run is
// immutable, so a request filed earlier dies with it.
func (s *RunService) AcceptLeadership(runID, userID string) error {
	run, err := s.Runs.ByID(runID)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return err
	}
	if run.State.Terminal() {
		return ErrStateConflict.With(map[string]any{"state": run.State})
	}
	lr, err := s.Runs.LeadershipRequest(runID)
	if err != nil {
		return err
	}
	if lr == nil {
		return ErrNoReassignment
	}
	if lr.ToUserID != userID {
		return ErrForbidden
	}
	if _, err := s.participant(runID, userID); err != nil {
		return err
	}

	if err := s.Runs.SwapLeader(runID, lr.FromUserID, lr.ToUserID); err != nil {
		return err
	}
	publish(s.Events, runID, EventParticipantUpdated)
	return nil
}

// EligibleLeaders returns participants a reassignment may target.
func (s *RunService) EligibleLeaders(runID string) ([]domain.Participant, error) {
	parts, err := s.Runs.Participants(runID)
	if err != nil {
		return nil, err
	}
	out := []domain.Participant{}
	for _, p := range parts {
		if !p.IsLeader && !p.IsRemoved {
			out = append(out, p)
		}
	}
	return out, nil
}
