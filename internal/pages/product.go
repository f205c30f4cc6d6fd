package pages

import (
	"context"
	"fmt"
	"storefront-e2e/internal/entity"
	"storefront-e2e/pkg/apperr"
	"strconv"
)

// Product is a product detail page.
type Product struct {
	base
}

func (p *Product) Kind() Kind {
	return KindProduct
}

func (p *Product) Open(ctx context.Context, path string) error {
	if err := p.actions.Navigate(ctx, path); err != nil {
		return err
	}

	return p.AssertLoaded(ctx)
}

func (p *Product) AssertLoaded(ctx context.Context) error {
	return p.actions.AssertVisible(ctx, productTitle, 0)
}

func (p *Product) Title(ctx context.Context) (string, error) {
	return p.actions.Text(ctx, productTitle)
}

func (p *Product) Price(ctx context.Context) (float64, error) {
	const op = "Price"

	text, err := p.actions.Text(ctx, productPrice)
	if err != nil {
		return 0, err
	}

	v, ok := parsePrice(text)
	if !ok {
		return 0, apperr.AssertionFailure(op, productPrice.Name,
			fmt.Sprintf("product price %q is not a number", text), "price", text)
	}

	return v, nil
}

// SetQuantity returns ActionAbsent on layouts without a quantity field.
func (p *Product) SetQuantity(ctx context.Context, quantity int) (entity.ActionOutcome, error) {
	return p.actions.SafeType(ctx, productQuantity, strconv.Itoa(quantity), 0)
}

// AddToCart requires the add-to-cart button: a detail page without one is a
// feature failure, not an optional layout.
func (p *Product) AddToCart(ctx context.Context) error {
	const op = "AddToCart"

	outcome, err := p.actions.SafeClick(ctx, productAddToCart, 0)
	if err != nil {
		return err
	}

	if outcome == entity.ActionAbsent {
		return apperr.AssertionFailure(op, productAddToCart.Name,
			"product page has no add to cart button", "present", "absent")
	}

	p.actions.DismissPopups(ctx)

	return nil
}
