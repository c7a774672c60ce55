package services_test

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"groupcart/internal/domain"
	"groupcart/internal/repos"
	"groupcart/internal/services"
)

// memdb opens a seeded in-memory database: users u-alice/u-bob/u-carol
// in group g-kitchen, store s-metro with four products.
func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	return db
}

type fixture struct {
	runs     *services.RunService
	bids     *services.BidService
	shopping *services.ShoppingService
	runRepo  *repos.RunRepo
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := memdb(t)
	runRepo := repos.NewRunRepo(db)
	bidRepo := repos.NewBidRepo(db)
	prodRepo := repos.NewProductRepo(db)
	shopRepo := repos.NewShoppingRepo(db)
	groupRepo := repos.NewGroupRepo(db)
	storeRepo := repos.NewStoreRepo(db)

	return fixture{
		runs:     services.NewRunService(runRepo, groupRepo, storeRepo, shopRepo, bidRepo, nil),
		bids:     services.NewBidService(runRepo, bidRepo, prodRepo, nil),
		shopping: services.NewShoppingService(runRepo, bidRepo, prodRepo, shopRepo, nil),
		runRepo:  runRepo,
	}
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestCreateRunCallerBecomesLeader(t *testing.T) {
	f := newFixture(t)

	run, err := f.runs.Create("g-kitchen", "s-metro", "u-alice", nil)
	if err != nil {
		t.Fatal(err)
	}
	if run.State != domain.StatePlanning {
		t.Fatalf("want planning, got %s", run.State)
	}

	p, err := f.runRepo.Participant(run.ID, "u-alice")
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsLeader {
		t.Fatal("creator should lead the run")
	}
}

func TestCreateRunRejectsNonMember(t *testing.T) {
	f := newFixture(t)
	_, err := f.runs.Create("g-kitchen", "s-metro", "u-admin", nil)
	se, ok := err.(*services.Error)
	if !ok || se.Code != "not_a_member" {
		t.Fatalf("want not_a_member, got %v", err)
	}
}

func TestFullLifecycleToCompleted(t *testing.T) {
	f := newFixture(t)
	run, err := f.runs.Create("g-kitchen", "s-metro", "u-alice", nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.bids.Place(run.ID, "u-alice", "p-oats", dec(t, "3"), false, ""); err != nil {
		t.Fatal(err)
	}

	if err := f.runs.Activate(run.ID, "u-alice"); err != nil {
		t.Fatal(err)
	}
	if err := f.runs.ForceConfirm(run.ID, "u-alice"); err != nil {
		t.Fatal(err)
	}
	if err := f.runs.StartShopping(run.ID, "u-alice"); err != nil {
		t.Fatal(err)
	}

	// finish without force: oats requested but not purchased
	err = f.runs.FinishAdjusting(run.ID, "u-alice", false)
	se, ok := err.(*services.Error)
	if !ok || se.Code != "unpurchased_items" {
		t.Fatalf("want unpurchased_items, got %v", err)
	}

	if err := f.shopping.MarkPurchased(run.ID, "u-alice", "p-oats", dec(t, "3"), dec(t, "4.50")); err != nil {
		t.Fatal(err)
	}
	if err := f.runs.FinishAdjusting(run.ID, "u-alice", false); err != nil {
		t.Fatal(err)
	}

	detail, err := f.runs.Detail(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if detail.Run.State != domain.StateCompleted {
		t.Fatalf("want completed, got %s", detail.Run.State)
	}
	if detail.Run.CompletedAt == nil {
		t.Fatal("completed_at should be stamped")
	}

	// terminal: no further actions
	if err := f.runs.Cancel(run.ID, "u-alice"); err == nil {
		t.Fatal("cancel after completion must fail")
	}
}

func TestFinishAdjustingWithForceSkipsUnpurchased(t *testing.T) {
	f := newFixture(t)
	run, _ := f.runs.Create("g-kitchen", "s-metro", "u-alice", nil)
	if _, err := f.bids.Place(run.ID, "u-alice", "p-oats", dec(t, "2"), false, ""); err != nil {
		t.Fatal(err)
	}
	_ = f.runs.Activate(run.ID, "u-alice")
	_ = f.runs.ForceConfirm(run.ID, "u-alice")
	_ = f.runs.StartShopping(run.ID, "u-alice")

	if err := f.runs.FinishAdjusting(run.ID, "u-alice", true); err != nil {
		t.Fatal(err)
	}
	detail, _ := f.runs.Detail(run.ID)
	if detail.Run.State != domain.StateCompleted {
		t.Fatalf("want completed, got %s", detail.Run.State)
	}
}

func TestForceConfirmRequiresLeaderAndActiveState(t *testing.T) {
	f := newFixture(t)
	run, _ := f.runs.Create("g-kitchen", "s-metro", "u-alice", nil)

	// still planning
	err := f.runs.ForceConfirm(run.ID, "u-alice")
	if se, ok := err.(*services.Error); !ok || se.Code != "state_conflict" {
		t.Fatalf("want state_conflict, got %v", err)
	}

	_ = f.runs.Activate(run.ID, "u-alice")

	// bob joins by bidding, then tries to force-confirm
	if _, err := f.bids.Place(run.ID, "u-bob", "p-rice", dec(t, "1"), false, ""); err != nil {
		t.Fatal(err)
	}
	err = f.runs.ForceConfirm(run.ID, "u-bob")
	if se, ok := err.(*services.Error); !ok || se.Code != "forbidden" {
		t.Fatalf("want forbidden for non-leader, got %v", err)
	}

	if err := f.runs.ForceConfirm(run.ID, "u-alice"); err != nil {
		t.Fatal(err)
	}
}

func TestCancelFromEveryNonTerminalState(t *testing.T) {
	f := newFixture(t)

	advance := map[string]func(runID string){
		"planning": func(string) {},
		"active": func(id string) {
			_ = f.runs.Activate(id, "u-alice")
		},
		"confirmed": func(id string) {
			_ = f.runs.Activate(id, "u-alice")
			_ = f.runs.ForceConfirm(id, "u-alice")
		},
		"shopping": func(id string) {
			_ = f.runs.Activate(id, "u-alice")
			_ = f.runs.ForceConfirm(id, "u-alice")
			_ = f.runs.StartShopping(id, "u-alice")
		},
	}

	for name, fn := range advance {
		run, err := f.runs.Create("g-kitchen", "s-metro", "u-alice", nil)
		if err != nil {
			t.Fatal(err)
		}
		fn(run.ID)
		if err := f.runs.Cancel(run.ID, "u-alice"); err != nil {
			t.Fatalf("cancel from %s: %v", name, err)
		}
		detail, _ := f.runs.Detail(run.ID)
		if detail.Run.State != domain.StateCancelled {
			t.Fatalf("cancel from %s: state %s", name, detail.Run.State)
		}
	}
}

func TestReadyToggleAutoConfirmsWhenAllReady(t *testing.T) {
	f := newFixture(t)
	run, _ := f.runs.Create("g-kitchen", "s-metro", "u-alice", nil)
	if _, err := f.bids.Place(run.ID, "u-bob", "p-rice", dec(t, "2"), false, ""); err != nil {
		t.Fatal(err)
	}

	ready, err := f.runs.ToggleReady(run.ID, "u-alice")
	if err != nil || !ready {
		t.Fatalf("toggle: ready=%v err=%v", ready, err)
	}
	detail, _ := f.runs.Detail(run.ID)
	if detail.Run.State != domain.StatePlanning {
		t.Fatalf("one of two ready must not confirm, state %s", detail.Run.State)
	}

	if _, err := f.runs.ToggleReady(run.ID, "u-bob"); err != nil {
		t.Fatal(err)
	}
	detail, _ = f.runs.Detail(run.ID)
	if detail.Run.State != domain.StateConfirmed {
		t.Fatalf("all ready should auto-confirm, state %s", detail.Run.State)
	}
}

func TestLeadershipReassignmentHandshake(t *testing.T) {
	f := newFixture(t)
	run, _ := f.runs.Create("g-kitchen", "s-metro", "u-alice", nil)
	if _, err := f.bids.Place(run.ID, "u-bob", "p-rice", dec(t, "1"), false, ""); err != nil {
		t.Fatal(err)
	}

	// eligible targets never include the current leader
	eligible, err := f.runs.EligibleLeaders(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range eligible {
		if p.UserID == "u-alice" {
			t.Fatal("current leader listed as eligible target")
		}
	}

	// targeting the leader is rejected outright
	err = f.runs.RequestLeadership(run.ID, "u-alice", "u-alice")
	if se, ok := err.(*services.Error); !ok || se.Code != "already_leader" {
		t.Fatalf("want already_leader, got %v", err)
	}

	if err := f.runs.RequestLeadership(run.ID, "u-alice", "u-bob"); err != nil {
		t.Fatal(err)
	}

	// not instantaneous: alice still leads until bob accepts
	p, _ := f.runRepo.Participant(run.ID, "u-alice")
	if !p.IsLeader {
		t.Fatal("request alone must not move leadership")
	}

	// only the pending target may accept
	err = f.runs.AcceptLeadership(run.ID, "u-alice")
	if se, ok := err.(*services.Error); !ok || se.Code != "forbidden" {
		t.Fatalf("want forbidden, got %v", err)
	}

	if err := f.runs.AcceptLeadership(run.ID, "u-bob"); err != nil {
		t.Fatal(err)
	}

	parts, _ := f.runRepo.Participants(run.ID)
	leaders := 0
	for _, p := range parts {
		if p.IsLeader {
			leaders++
			if p.UserID != "u-bob" {
				t.Fatalf("leadership should land on u-bob, landed on %s", p.UserID)
			}
		}
	}
	if leaders != 1 {
		t.Fatalf("exactly one leader expected, got %d", leaders)
	}
}

func TestLeadershipAcceptOnTerminalRunIsRejected(t *testing.T) {
	f := newFixture(t)
	run, _ := f.runs.Create("g-kitchen", "s-metro", "u-alice", nil)
	if _, err := f.bids.Place(run.ID, "u-bob", "p-rice", dec(t, "1"), false, ""); err != nil {
		t.Fatal(err)
	}
	if err := f.runs.RequestLeadership(run.ID, "u-alice", "u-bob"); err != nil {
		t.Fatal(err)
	}
	if err := f.runs.Cancel(run.ID, "u-alice"); err != nil {
		t.Fatal(err)
	}

	// the pending request died with the run
	err := f.runs.AcceptLeadership(run.ID, "u-bob")
	if se, ok := err.(*services.Error); !ok || se.Code != "state_conflict" {
		t.Fatalf("want state_conflict, got %v", err)
	}
	p, _ := f.runRepo.Participant(run.ID, "u-bob")
	if p.IsLeader {
		t.Fatal("leadership must not move on a cancelled run")
	}
	p, _ = f.runRepo.Participant(run.ID, "u-alice")
	if !p.IsLeader {
		t.Fatal("original leader flag must survive")
	}
}

func TestHelperToggleExcludesLeader(t *testing.T) {
	f := newFixture(t)
	run, _ := f.runs.Create("g-kitchen", "s-metro", "u-alice", nil)
	if _, err := f.bids.Place(run.ID, "u-bob", "p-rice", dec(t, "1"), false, ""); err != nil {
		t.Fatal(err)
	}

	v, err := f.runs.ToggleHelper(run.ID, "u-alice", "u-bob")
	if err != nil || !v {
		t.Fatalf("helper on: v=%v err=%v", v, err)
	}
	v, err = f.runs.ToggleHelper(run.ID, "u-alice", "u-bob")
	if err != nil || v {
		t.Fatalf("helper off: v=%v err=%v", v, err)
	}

	if _, err := f.runs.ToggleHelper(run.ID, "u-alice", "u-alice"); err == nil {
		t.Fatal("leader must not become helper")
	}
}

func TestHelperMayStartShoppingButNotFinish(t *testing.T) {
	f := newFixture(t)
	run, _ := f.runs.Create("g-kitchen", "s-metro", "u-alice", nil)
	if _, err := f.bids.Place(run.ID, "u-bob", "p-rice", dec(t, "1"), false, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := f.runs.ToggleHelper(run.ID, "u-alice", "u-bob"); err != nil {
		t.Fatal(err)
	}
	_ = f.runs.Activate(run.ID, "u-alice")
	_ = f.runs.ForceConfirm(run.ID, "u-alice")

	if err := f.runs.StartShopping(run.ID, "u-bob"); err != nil {
		t.Fatalf("helper should start shopping: %v", err)
	}
	err := f.runs.FinishAdjusting(run.ID, "u-bob", true)
	if se, ok := err.(*services.Error); !ok || se.Code != "forbidden" {
		t.Fatalf("helper must not finish the run, got %v", err)
	}
}
