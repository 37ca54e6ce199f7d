package auth

// Role is the numeric role code carried by a caller's identity. Identity
// issuance (tokens, passwords) lives outside this module; callers arrive
// already resolved to a user id and a role.
type Role int64

const (
	RoleRegular Role = 1
	RoleStaff   Role = 2
	RoleAdmin   Role = 3
)

// Elevated reports whether the role may act on orders it does not own.
func (r Role) Elevated() bool {
	return r == RoleStaff || r == RoleAdmin
}

type Action int

const (
	ActionReadOrder Action = iota
	ActionListAllOrders
	ActionUpdateOrderStatus
	ActionReplaceOrderItems
	ActionDeleteOrder
)

// Caller identifies who is performing an operation.
type Caller struct {
	UserID int64
	Role   Role
}

// Can is the single place order policy is decided. Elevated roles may do
// everything; a regular caller may only read and delete orders they own.
// The extra status condition on a regular caller's delete (only "new" orders)
// is enforced by the order service, since it needs the order row.
func Can(role Role, action Action, ownsResource bool) bool {
	if role.Elevated() {
		return true
	}
	switch action {
	case ActionReadOrder, ActionDeleteOrder:
		return ownsResource
	default:
		return false
	}
}
