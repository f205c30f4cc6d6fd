package pages

import (
	"context"
	"storefront-e2e/internal/entity"
)

// Navigation is the site header: logo, search, cart icon and category menu.
type Navigation struct {
	base
}

func (n *Navigation) Kind() Kind {
	return KindNavigation
}

func (n *Navigation) OpenHome(ctx context.Context) error {
	return n.actions.Navigate(ctx, "/")
}

func (n *Navigation) HasLogo(ctx context.Context) bool {
	return n.actions.Exists(ctx, navLogo)
}

func (n *Navigation) HasCartIcon(ctx context.Context) bool {
	return n.actions.Exists(ctx, navCartIcon)
}

// CartBadgeCount returns the item count shown on the cart icon. A missing or
// unparsable badge means an empty cart on every layout we know.
func (n *Navigation) CartBadgeCount(ctx context.Context) int {
	texts := n.actions.Texts(ctx, navCartBadge)
	if len(texts) == 0 {
		return 0
	}

	count, ok := parseCount(texts[0])
	if !ok {
		return 0
	}

	return count
}

// OpenCart uses the header icon when the layout has one and falls back to the
// cart url otherwise.
func (n *Navigation) OpenCart(ctx context.Context) error {
	outcome, err := n.actions.SafeClick(ctx, navCartIcon, 0)
	if err != nil {
		return err
	}

	if outcome == entity.ActionAbsent {
		n.logger.Info("Cart icon absent, opening cart by url")

		return n.actions.Navigate(ctx, cartPath)
	}

	n.actions.DismissPopups(ctx)

	return nil
}

// Search submits term through the header search box. It returns ActionAbsent
// when the layout has no search box.
func (n *Navigation) Search(ctx context.Context, term string) (entity.ActionOutcome, error) {
	outcome, err := n.actions.SafeType(ctx, navSearchBox, term, 0)
	if err != nil || outcome == entity.ActionAbsent {
		return outcome, err
	}

	if err := n.actions.Press(ctx, "Enter"); err != nil {
		return "", err
	}

	n.actions.DismissPopups(ctx)

	return entity.ActionPerformed, nil
}

func (n *Navigation) Categories(ctx context.Context) []string {
	return n.actions.Texts(ctx, navCategoryLinks)
}
