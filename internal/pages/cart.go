package pages

import (
	"context"
	"fmt"
	"storefront-e2e/internal/entity"
	"storefront-e2e/pkg/apperr"
)

const cartPath = "/cart"

type Cart struct {
	base
}

func (c *Cart) Kind() Kind {
	return KindCart
}

func (c *Cart) Open(ctx context.Context) error {
	return c.actions.Navigate(ctx, cartPath)
}

func (c *Cart) ItemCount(ctx context.Context) int {
	return c.actions.Count(ctx, cartItems)
}

// IsEmpty trusts an explicit empty-state message first, then the absence of
// line items.
func (c *Cart) IsEmpty(ctx context.Context) bool {
	if c.actions.Exists(ctx, cartEmpty) {
		return true
	}

	return c.ItemCount(ctx) == 0
}

func (c *Cart) AssertEmpty(ctx context.Context) error {
	const op = "AssertEmpty"

	if !c.IsEmpty(ctx) {
		n := c.ItemCount(ctx)

		return apperr.AssertionFailure(op, cartItems.Name,
			fmt.Sprintf("expected an empty cart, found %d items", n), 0, n)
	}

	return nil
}

func (c *Cart) AssertItemCount(ctx context.Context, want int) error {
	return c.actions.AssertCount(ctx, cartItems, want)
}

// RemoveFirst removes the first line item. It returns ActionAbsent when the
// cart has nothing to remove.
func (c *Cart) RemoveFirst(ctx context.Context) (entity.ActionOutcome, error) {
	const op = "RemoveFirst"

	first, err := nth(op, cartRemove, 0)
	if err != nil {
		return "", err
	}

	return c.actions.SafeClick(ctx, first, 0)
}

func (c *Cart) Total(ctx context.Context) (float64, error) {
	const op = "Total"

	text, err := c.actions.Text(ctx, cartTotal)
	if err != nil {
		return 0, err
	}

	v, ok := parsePrice(text)
	if !ok {
		return 0, apperr.AssertionFailure(op, cartTotal.Name,
			fmt.Sprintf("cart total %q is not a number", text), "amount", text)
	}

	return v, nil
}

func (c *Cart) CanCheckout(ctx context.Context) bool {
	return c.actions.Exists(ctx, cartCheckout)
}
