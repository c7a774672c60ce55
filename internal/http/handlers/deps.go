package handlers

import (
	"github.com/jmoiron/sqlx"

	"groupcart/internal/repos"
	"groupcart/internal/services"
)

type Deps struct {
	GroupHandler    *GroupHandler
	StoreHandler    *StoreHandler
	RunHandler      *RunHandler
	BidHandler      *BidHandler
	ShoppingHandler *ShoppingHandler
	AdminHandler    *AdminHandler
}

func NewDeps(db *sqlx.DB, auth *services.AuthService, events services.Publisher) *Deps {
	userRepo := repos.NewUserRepo(db)
	groupRepo := repos.NewGroupRepo(db)
	storeRepo := repos.NewStoreRepo(db)
	prodRepo := repos.NewProductRepo(db)
	runRepo := repos.NewRunRepo(db)
	bidRepo := repos.NewBidRepo(db)
	shopRepo := repos.NewShoppingRepo(db)

	runSvc := services.NewRunService(runRepo, groupRepo, storeRepo, shopRepo, bidRepo, events)
	bidSvc := services.NewBidService(runRepo, bidRepo, prodRepo, events)
	shopSvc := services.NewShoppingService(runRepo, bidRepo, prodRepo, shopRepo, events)

	return &Deps{
		GroupHandler:    &GroupHandler{Groups: groupRepo, Runs: runRepo},
		StoreHandler:    &StoreHandler{Stores: storeRepo, Products: prodRepo},
		RunHandler:      &RunHandler{Runs: runSvc},
		BidHandler:      &BidHandler{Bids: bidSvc},
		ShoppingHandler: &ShoppingHandler{Shopping: shopSvc},
		AdminHandler:    &AdminHandler{Users: userRepo, Products: prodRepo, Stores: storeRepo},
	}
}
