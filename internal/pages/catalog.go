package pages

import (
	"context"
	"fmt"
	"storefront-e2e/internal/entity"
	"storefront-e2e/pkg/apperr"
)

const catalogPath = "/catalog"

var catalogAddButtons = entity.NewSelectorSet("card add to cart",
	"[data-testid='product-card'] [data-testid='add-to-cart']",
	".product-card .add-to-cart",
	"li.product .add_to_cart_button",
)

// Catalog is a product listing: category pages and search results.
type Catalog struct {
	base
}

func (c *Catalog) Kind() Kind {
	return KindCatalog
}

// Open loads a listing; an empty path opens the default catalog.
func (c *Catalog) Open(ctx context.Context, path string) error {
	if path == "" {
		path = catalogPath
	}

	return c.actions.Navigate(ctx, path)
}

func (c *Catalog) ProductCount(ctx context.Context) int {
	return c.actions.Count(ctx, catalogCards)
}

func (c *Catalog) ProductTitles(ctx context.Context) []string {
	return c.actions.Texts(ctx, catalogTitles)
}

// ProductPrices returns the parsed card prices; unparsable ones are skipped.
func (c *Catalog) ProductPrices(ctx context.Context) []float64 {
	var prices []float64

	for _, text := range c.actions.Texts(ctx, catalogPrices) {
		if v, ok := parsePrice(text); ok {
			prices = append(prices, v)
		}
	}

	return prices
}

func (c *Catalog) IsEmpty(ctx context.Context) bool {
	return c.actions.Exists(ctx, catalogEmpty) || !c.actions.Exists(ctx, catalogCards)
}

func (c *Catalog) AssertHasProducts(ctx context.Context, minimum int) error {
	if _, err := c.actions.WaitForVisible(ctx, catalogCards, 0); err != nil {
		return err
	}

	return c.actions.AssertMinimumCount(ctx, catalogCards, minimum)
}

// OpenProduct opens the detail page of the index-th card.
func (c *Catalog) OpenProduct(ctx context.Context, index int) error {
	const op = "OpenProduct"

	title, err := nth(op, catalogTitles, index)
	if err != nil {
		return err
	}

	outcome, err := c.actions.SafeClick(ctx, title, 0)
	if err != nil {
		return err
	}

	if outcome == entity.ActionAbsent {
		return apperr.AssertionFailure(op, catalogTitles.Name,
			fmt.Sprintf("catalog has no product at position %d", index), index, c.ProductCount(ctx))
	}

	c.actions.DismissPopups(ctx)

	return nil
}

// AddToCart uses the quick-add button of the index-th card. Layouts without
// quick-add return ActionAbsent; callers then go through the product page.
func (c *Catalog) AddToCart(ctx context.Context, index int) (entity.ActionOutcome, error) {
	const op = "AddToCart"

	button, err := nth(op, catalogAddButtons, index)
	if err != nil {
		return "", err
	}

	outcome, err := c.actions.SafeClick(ctx, button, 0)
	if err != nil || outcome == entity.ActionAbsent {
		return outcome, err
	}

	c.actions.DismissPopups(ctx)

	return outcome, nil
}
