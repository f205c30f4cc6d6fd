// Package suite holds the storefront smoke scenarios. Each one touches a
// different page object family and relies only on the resilient core: the
// world it receives is fresh and is torn down by the runner.
package suite

import (
	"context"
	"fmt"
	"storefront-e2e/internal/runner"
	"storefront-e2e/internal/world"
	"storefront-e2e/pkg/apperr"
)

const (
	TagSmoke     = "smoke"
	TagNav       = "nav"
	TagCatalog   = "catalog"
	TagCart      = "cart"
	TagIsolation = "isolation"
)

func Scenarios() []runner.Scenario {
	return []runner.Scenario{
		{
			Name: "home page renders the header",
			Tags: []string{TagSmoke, TagNav},
			Run:  homeRendersHeader,
		},
		{
			Name: "catalog lists products",
			Tags: []string{TagSmoke, TagCatalog},
			Run:  catalogListsProducts,
		},
		{
			Name: "adding a product fills the cart",
			Tags: []string{TagCart},
			Run:  addToCartFillsCart,
		},
		{
			Name: "fresh visitor starts with an empty cart",
			Tags: []string{TagSmoke, TagCart, TagIsolation},
			Run:  freshVisitorHasEmptyCart,
		},
	}
}

func homeRendersHeader(ctx context.Context, w *world.World) error {
	const op = "homeRendersHeader"
	nav := w.Pages().Navigation()

	if err := nav.OpenHome(ctx); err != nil {
		return err
	}

	if !nav.HasLogo(ctx) {
		return apperr.AssertionFailure(op, "logo", "home page shows no logo", "present", "absent")
	}

	if !nav.HasCartIcon(ctx) {
		return apperr.AssertionFailure(op, "cart icon", "home page shows no cart icon", "present", "absent")
	}

	return nil
}

func catalogListsProducts(ctx context.Context, w *world.World) error {
	catalog := w.Pages().Catalog()

	if err := catalog.Open(ctx, ""); err != nil {
		return err
	}

	return catalog.AssertHasProducts(ctx, 1)
}

func addToCartFillsCart(ctx context.Context, w *world.World) error {
	const op = "addToCartFillsCart"
	registry := w.Pages()

	catalog := registry.Catalog()
	if err := catalog.Open(ctx, ""); err != nil {
		return err
	}

	if err := catalog.AssertHasProducts(ctx, 1); err != nil {
		return err
	}

	if err := catalog.OpenProduct(ctx, 0); err != nil {
		return err
	}

	product := registry.Product()
	if err := product.AssertLoaded(ctx); err != nil {
		return err
	}

	if err := product.AddToCart(ctx); err != nil {
		return err
	}

	if err := registry.Navigation().OpenCart(ctx); err != nil {
		return err
	}

	if n := registry.Cart().ItemCount(ctx); n < 1 {
		return apperr.AssertionFailure(op, "cart items",
			fmt.Sprintf("expected the added product in the cart, found %d items", n), ">= 1", n)
	}

	return nil
}

func freshVisitorHasEmptyCart(ctx context.Context, w *world.World) error {
	const op = "freshVisitorHasEmptyCart"

	empty, err := w.StorageIsEmpty(ctx)
	if err != nil {
		return err
	}

	if !empty {
		return apperr.AssertionFailure(op, "storage", "a new scenario inherited cookies or storage", "empty", "not empty")
	}

	registry := w.Pages()
	if err := registry.Navigation().OpenHome(ctx); err != nil {
		return err
	}

	if n := registry.Navigation().CartBadgeCount(ctx); n != 0 {
		return apperr.AssertionFailure(op, "cart badge",
			fmt.Sprintf("expected an empty cart badge, got %d", n), 0, n)
	}

	cart := registry.Cart()
	if err := cart.Open(ctx); err != nil {
		return err
	}

	return cart.AssertEmpty(ctx)
}
