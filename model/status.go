package model

type OrderStatus struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// Canonical status ids installed by the seed. Statuses are reference rows, not
// a state machine: any status can be set from any other via an explicit
// status-update call.
const (
	StatusNew        int64 = 1
	StatusProcessing int64 = 2
	StatusShipped    int64 = 3
	StatusDelivered  int64 = 4
	StatusCancelled  int64 = 5
)
