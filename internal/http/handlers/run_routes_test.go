package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"

	"groupcart/internal/http/handlers"
	"groupcart/internal/repos"
	"groupcart/internal/services"
)

// newAPIApp wires the full route surface the way the server binary does,
// minus websockets and metrics, against a seeded in-memory database.
func newAPIApp(t *testing.T) (*fiber.App, *repos.UserRepo) {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	userRepo := repos.NewUserRepo(db)
	authSvc := &services.AuthService{Users: userRepo}
	deps := handlers.NewDeps(db, authSvc, nil)

	app := fiber.New()
	api := app.Group("/api", handlers.RequireUser(authSvc))
	api.Post("/runs/create", deps.RunHandler.Create)
	api.Get("/runs/:id", deps.RunHandler.Detail)
	api.Post("/runs/:id/ready", deps.RunHandler.ToggleReady)
	api.Post("/runs/:id/activate", deps.RunHandler.Activate)
	api.Post("/runs/:id/force-confirm", deps.RunHandler.ForceConfirm)
	api.Post("/runs/:id/start-shopping", deps.RunHandler.StartShopping)
	api.Post("/runs/:id/finish-adjusting", deps.RunHandler.FinishAdjusting)
	api.Post("/runs/:id/cancel", deps.RunHandler.Cancel)
	api.Post("/runs/:id/bids", deps.BidHandler.Place)
	api.Delete("/runs/:id/bids/:product_id", deps.BidHandler.Retract)
	api.Get("/runs/:id/bids", deps.BidHandler.List)
	api.Get("/runs/:id/available-products", deps.BidHandler.AvailableProducts)
	api.Post("/runs/:id/shopping/:product_id/purchase", deps.ShoppingHandler.MarkPurchased)
	api.Get("/runs/:id/shopping-list", deps.ShoppingHandler.List)

	admin := app.Group("/admin", handlers.RequireAdmin(authSvc))
	admin.Get("/users", deps.AdminHandler.ListUsers)
	admin.Post("/users/:id/verify", deps.AdminHandler.VerifyUser)
	admin.Post("/products/:id/merge", deps.AdminHandler.MergeProduct)

	return app, userRepo
}

func as(sid string, req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	return req
}

func doJSON(t *testing.T, app *fiber.App, sid, method, target, body string, want int) *http.Response {
	t.Helper()
	resp, err := app.Test(as(sid, jsonReq(method, target, body)))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != want {
		t.Fatalf("%s %s: want %d, got %d", method, target, want, resp.StatusCode)
	}
	return resp
}

func TestRunLifecycleOverHTTP(t *testing.T) {
	app, userRepo := newAPIApp(t)
	_ = userRepo.BindSession("sid-alice", "u-alice")

	// create
	respCreate := doJSON(t, app, "sid-alice", "POST", "/api/runs/create",
		`{"group_id":"g-kitchen","store_id":"s-metro"}`, http.StatusCreated)
	var run struct {
		ID    string `json:"id"`
		State string `json:"state"`
	}
	if err := json.NewDecoder(respCreate.Body).Decode(&run); err != nil {
		t.Fatal(err)
	}
	if run.State != "planning" {
		t.Fatalf("new run state %q", run.State)
	}

	// bid 3 oats
	doJSON(t, app, "sid-alice", "POST", "/api/runs/"+run.ID+"/bids",
		`{"product_id":"p-oats","quantity":"3"}`, http.StatusOK)

	// oats no longer available, retract brings it back
	available := func() []string {
		resp := doJSON(t, app, "sid-alice", "GET", "/api/runs/"+run.ID+"/available-products", "", http.StatusOK)
		var products []struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
			t.Fatal(err)
		}
		ids := make([]string, 0, len(products))
		for _, p := range products {
			ids = append(ids, p.ID)
		}
		return ids
	}
	for _, id := range available() {
		if id == "p-oats" {
			t.Fatal("bid product still listed as available")
		}
	}
	doJSON(t, app, "sid-alice", "DELETE", "/api/runs/"+run.ID+"/bids/p-oats", "", http.StatusOK)
	found := false
	for _, id := range available() {
		if id == "p-oats" {
			found = true
		}
	}
	if !found {
		t.Fatal("retract must restore availability")
	}

	// re-bid and walk the lifecycle to completion
	doJSON(t, app, "sid-alice", "POST", "/api/runs/"+run.ID+"/bids",
		`{"product_id":"p-oats","quantity":"2"}`, http.StatusOK)
	doJSON(t, app, "sid-alice", "POST", "/api/runs/"+run.ID+"/activate", "", http.StatusOK)
	doJSON(t, app, "sid-alice", "POST", "/api/runs/"+run.ID+"/force-confirm", "", http.StatusOK)
	doJSON(t, app, "sid-alice", "POST", "/api/runs/"+run.ID+"/start-shopping", "", http.StatusOK)

	// finishing with an unpurchased required item is a 409 until forced
	respConflict := doJSON(t, app, "sid-alice", "POST", "/api/runs/"+run.ID+"/finish-adjusting", "", http.StatusConflict)
	if code := decodeErrorCode(t, respConflict); code != "unpurchased_items" {
		t.Fatalf("conflict code %q", code)
	}

	doJSON(t, app, "sid-alice", "POST", "/api/runs/"+run.ID+"/shopping/p-oats/purchase",
		`{"quantity":"2","price":"5.00"}`, http.StatusOK)
	respDone := doJSON(t, app, "sid-alice", "POST", "/api/runs/"+run.ID+"/finish-adjusting", "", http.StatusOK)
	var detail struct {
		Run struct {
			State string `json:"state"`
		} `json:"run"`
	}
	if err := json.NewDecoder(respDone.Body).Decode(&detail); err != nil {
		t.Fatal(err)
	}
	if detail.Run.State != "completed" {
		t.Fatalf("final state %q", detail.Run.State)
	}
}

func TestForceQueryFlagSkipsPurchaseCheck(t *testing.T) {
	app, userRepo := newAPIApp(t)
	_ = userRepo.BindSession("sid-alice", "u-alice")

	respCreate := doJSON(t, app, "sid-alice", "POST", "/api/runs/create",
		`{"group_id":"g-kitchen","store_id":"s-metro"}`, http.StatusCreated)
	var run struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(respCreate.Body).Decode(&run); err != nil {
		t.Fatal(err)
	}

	doJSON(t, app, "sid-alice", "POST", "/api/runs/"+run.ID+"/bids",
		`{"product_id":"p-rice","quantity":"4"}`, http.StatusOK)
	doJSON(t, app, "sid-alice", "POST", "/api/runs/"+run.ID+"/activate", "", http.StatusOK)
	doJSON(t, app, "sid-alice", "POST", "/api/runs/"+run.ID+"/force-confirm", "", http.StatusOK)
	doJSON(t, app, "sid-alice", "POST", "/api/runs/"+run.ID+"/start-shopping", "", http.StatusOK)
	doJSON(t, app, "sid-alice", "POST", "/api/runs/"+run.ID+"/finish-adjusting?force=true", "", http.StatusOK)
}

func TestRunDetailForMissingRun(t *testing.T) {
	app, userRepo := newAPIApp(t)
	_ = userRepo.BindSession("sid-alice", "u-alice")

	resp := doJSON(t, app, "sid-alice", "GET", "/api/runs/r-nope", "", http.StatusNotFound)
	if code := decodeErrorCode(t, resp); code != "not_found" {
		t.Fatalf("code %q", code)
	}
}
