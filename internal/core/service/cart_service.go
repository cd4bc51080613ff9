package service

import (
	"context"
	"fmt"

	"github.com/rl1809/cart-allocation/internal/core/domain"
	"github.com/rl1809/cart-allocation/internal/port"
)

type CartService struct {
	carts   port.CartRepository
	pickers port.PickerDirectory
}

func NewCartService(carts port.CartRepository, pickers port.PickerDirectory) *CartService {
	return &CartService{carts: carts, pickers: pickers}
}

func (s *CartService) CreateCart(ctx context.Context, name string, rows, columns int) (*domain.Cart, error) {
	cart := domain.Cart{Name: name, Rows: rows, Columns: columns, Active: true}
	if err := cart.Validate(); err != nil {
		return nil, err
	}
	return s.carts.CreateCart(ctx, cart)
}

func (s *CartService) UpdateCart(ctx context.Context, id int64, name string, rows, columns int) (*domain.Cart, error) {
	cart, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	cart.Name, cart.Rows, cart.Columns = name, rows, columns
	if err := cart.Validate(); err != nil {
		return nil, err
	}
	return s.carts.UpdateCart(ctx, *cart)
}

func (s *CartService) SetCartActive(ctx context.Context, id int64, active bool) (*domain.Cart, error) {
	cart, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	cart.Active = active
	return s.carts.UpdateCart(ctx, *cart)
}

// DeleteCart refuses to remove a cart while draft assignments still point at it.
func (s *CartService) DeleteCart(ctx context.Context, id int64) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	inUse, err := s.carts.CartInUse(ctx, id)
	if err != nil {
		return fmt.Errorf("cart in use: %w", err)
	}
	if inUse {
		return domain.ErrCartInUse
	}
	return s.carts.DeleteCart(ctx, id)
}

// AssignCart sets the cart the picker works with; a nil cartID clears it.
func (s *CartService) AssignCart(ctx context.Context, pickerID int64, cartID *int64) error {
	picker, err := s.pickers.Picker(ctx, pickerID)
	if err != nil {
		return fmt.Errorf("load picker: %w", err)
	}
	if picker == nil {
		return domain.ErrPickerNotFound
	}
	if cartID != nil {
		cart, err := s.get(ctx, *cartID)
		if err != nil {
			return err
		}
		if !cart.Active {
			return fmt.Errorf("cart %d is inactive: %w", cart.ID, domain.ErrCartNotFound)
		}
	}
	return s.pickers.SetPickerCart(ctx, pickerID, cartID)
}

func (s *CartService) get(ctx context.Context, id int64) (*domain.Cart, error) {
	cart, err := s.carts.GetCart(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if cart == nil {
		return nil, domain.ErrCartNotFound
	}
	return cart, nil
}
