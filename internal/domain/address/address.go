package address

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when the requested address does not exist.
var ErrNotFound = errors.New("address not found")

// Address is a user's saved shipping address. Orders never reference an
// address row; they carry a Snapshot copied at placement time so later edits
// cannot retroactively change a placed order.
type Address struct {
	ID         string
	UserID     string
	FullName   string
	Phone      string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// Snapshot is the frozen copy of an address stored on an order.
type Snapshot struct {
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Snapshot returns the frozen copy of the address for order storage.
func (a *Address) Snapshot() Snapshot {
	return Snapshot{
		FullName:   a.FullName,
		Phone:      a.Phone,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

// Repository defines address lookups for checkout.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Address, error)
}
