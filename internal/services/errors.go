package services

import "fmt"

// Error is a structured API error. Code is the contract: clients key
// their copy off it, never off Message.
type Error struct {
	Code    string
	Status  int
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

func apiErr(status int, code, msg string) *Error {
	return &Error{Code: code, Status: status, Message: msg}
}

func (e *Error) With(details map[string]any) *Error {
	out := *e
	out.Details = details
	return &out
}

var (
	ErrBadCreds       = apiErr(401, "unauthorized", "invalid email or password")
	ErrNoSession      = apiErr(401, "unauthorized", "session expired or missing")
	ErrForbidden      = apiErr(403, "forbidden", "not allowed")
	ErrNotFound       = apiErr(404, "not_found", "no such resource")
	ErrNotAMember     = apiErr(403, "not_a_member", "caller is not a member of the group")
	ErrValidation     = apiErr(400, "validation_failed", "invalid input")
	ErrStateConflict  = apiErr(409, "state_conflict", "run is not in the expected state")
	ErrBidOutOfRange  = apiErr(409, "bid_out_of_range", "adjusting permits only reductions within the allowed range")
	ErrUnpurchased    = apiErr(409, "unpurchased_items", "required items lack a purchase record; pass force=true to proceed")
	ErrAlreadyLeader  = apiErr(409, "already_leader", "target already leads this run")
	ErrRemoved        = apiErr(403, "forbidden", "participant was removed from the run")
	ErrNoBid          = apiErr(404, "not_found", "no bid for this product")
	ErrNoPurchase     = apiErr(404, "not_found", "no purchase recorded for this product")
	ErrNoReassignment = apiErr(409, "state_conflict", "no pending leadership request for this run")
)
