package domain

import "time"

type Cart struct {
	ID        int64
	Name      string
	Rows      int
	Columns   int
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Capacity is the number of boxes the cart holds, zero when the grid is unset.
func (c Cart) Capacity() int {
	if c.Rows <= 0 || c.Columns <= 0 {
		return 0
	}
	return c.Rows * c.Columns
}

func (c Cart) Validate() error {
	if c.Name == "" {
		return ErrInvalidCart
	}
	if c.Rows < 1 || c.Columns < 1 {
		return ErrInvalidCapacity
	}
	return nil
}

type Picker struct {
	ID     int64
	Name   string
	CartID *int64
	Cart   *Cart
}

// ActiveCart returns the picker's cart when one is set and enabled.
func (p Picker) ActiveCart() (*Cart, bool) {
	if p.Cart == nil || !p.Cart.Active {
		return nil, false
	}
	return p.Cart, true
}
