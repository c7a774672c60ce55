package domain

import "github.com/shopspring/decimal"

type User struct {
	ID       string `db:"id" json:"id"`
	Email    string `db:"email" json:"email"`
	Name     string `db:"name" json:"name"`
	Hash     string `db:"password_hash" json:"-"`
	Role     string `db:"role" json:"role"` // USER | ADMIN
	Verified bool   `db:"verified" json:"verified"`
}

type Group struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	CreatedAt string `db:"created_at" json:"created_at"`
}

type Store struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Address  string `db:"address" json:"address"`
	Verified bool   `db:"verified" json:"verified"`
}

type Product struct {
	ID       string `db:"id" json:"id"`
	StoreID  string `db:"store_id" json:"store_id"`
	Name     string `db:"name" json:"name"`
	Unit     string `db:"unit" json:"unit"`
	Verified bool   `db:"verified" json:"verified"`
}

type Run struct {
	ID          string   `db:"id" json:"id"`
	GroupID     string   `db:"group_id" json:"group_id"`
	StoreID     string   `db:"store_id" json:"store_id"`
	State       RunState `db:"state" json:"state"`
	PlannedOn   *string  `db:"planned_on" json:"planned_on,omitempty"`
	PlanningAt  string   `db:"planning_at" json:"planning_at"`
	ActiveAt    *string  `db:"active_at" json:"active_at,omitempty"`
	ConfirmedAt *string  `db:"confirmed_at" json:"confirmed_at,omitempty"`
	ShoppingAt  *string  `db:"shopping_at" json:"shopping_at,omitempty"`
	CompletedAt *string  `db:"completed_at" json:"completed_at,omitempty"`
	CancelledAt *string  `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

type Participant struct {
	RunID     string `db:"run_id" json:"run_id"`
	UserID    string `db:"user_id" json:"user_id"`
	UserName  string `db:"user_name" json:"user_name"`
	IsLeader  bool   `db:"is_leader" json:"is_leader"`
	IsHelper  bool   `db:"is_helper" json:"is_helper"`
	IsRemoved bool   `db:"is_removed" json:"is_removed"`
	Ready     bool   `db:"ready" json:"ready"`
}

// Bid is a participant's interest in a product within a run. Quantity is
// ignored when InterestedOnly is set.
type Bid struct {
	RunID          string          `db:"run_id" json:"run_id"`
	UserID         string          `db:"user_id" json:"user_id"`
	ProductID      string          `db:"product_id" json:"product_id"`
	Quantity       decimal.Decimal `db:"quantity" json:"quantity"`
	InterestedOnly bool            `db:"interested_only" json:"interested_only"`
	Comment        string          `db:"comment" json:"comment,omitempty"`
	UpdatedAt      string          `db:"updated_at" json:"updated_at"`
}

// BidRange is the server-computed window a bid may be adjusted within
// once the run has left the bid-accepting states.
type BidRange struct {
	ProductID string          `json:"product_id"`
	Min       decimal.Decimal `json:"min"`
	Max       decimal.Decimal `json:"max"`
}

// PriceObservation is a price seen in the store during shopping.
type PriceObservation struct {
	ProductID   string          `db:"product_id" json:"product_id"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Note        string          `db:"note" json:"note,omitempty"`
	MinQuantity decimal.Decimal `db:"min_quantity" json:"min_quantity"`
	ObservedAt  string          `db:"observed_at" json:"observed_at"`
}

// ShoppingItem is the per-product aggregate rendered during the
// shopping phase. PurchasedTotal always equals PurchasedQty times
// PurchasedPrice; the server value is authoritative.
type ShoppingItem struct {
	ProductID      string             `json:"product_id"`
	ProductName    string             `json:"product_name"`
	Unit           string             `json:"unit"`
	RequestedQty   decimal.Decimal    `json:"requested_qty"`
	PurchasedQty   decimal.Decimal    `json:"purchased_qty"`
	PurchasedPrice decimal.Decimal    `json:"purchased_price"`
	PurchasedTotal decimal.Decimal    `json:"purchased_total"`
	Purchased      bool               `json:"purchased"`
	MinQuantity    decimal.Decimal    `json:"min_quantity"`
	Observations   []PriceObservation `json:"observations,omitempty"`
}

// LeadershipRequest is a pending leader reassignment handshake.
type LeadershipRequest struct {
	RunID      string `db:"run_id" json:"run_id"`
	FromUserID string `db:"from_user_id" json:"from_user_id"`
	ToUserID   string `db:"to_user_id" json:"to_user_id"`
	CreatedAt  string `db:"created_at" json:"created_at"`
}
