package pages

import "storefront-e2e/internal/entity"

// Selector sets for the storefront. Layouts differ between A/B variants and
// locales, so every concept lists several alternatives, most specific first.
var (
	navLogo = entity.NewSelectorSet("logo",
		"[data-testid='header-logo']",
		"header a.logo",
		"header a[href='/']",
	)
	navCartIcon = entity.NewSelectorSet("cart icon",
		"[data-testid='header-cart']",
		"header a[href*='/cart']",
		"a[aria-label*='cart' i]",
		".header-cart",
	)
	navCartBadge = entity.NewSelectorSet("cart badge",
		"[data-testid='cart-count']",
		".header-cart .badge",
		"[class*='cart-count']",
	)
	navSearchBox = entity.NewSelectorSet("search box",
		"[data-testid='search-input']",
		"header input[type='search']",
		"input[name='q']",
	)
	navCategoryLinks = entity.NewSelectorSet("category links",
		"[data-testid='nav-category']",
		"nav.main-menu a",
		"header nav a",
	)

	catalogCards = entity.NewSelectorSet("product cards",
		"[data-testid='product-card']",
		".product-card",
		"li.product",
		"[itemtype*='Product']",
	)
	catalogTitles = entity.NewSelectorSet("product titles",
		"[data-testid='product-card'] [data-testid='product-title']",
		".product-card .product-title",
		"li.product h2",
		"[itemtype*='Product'] [itemprop='name']",
	)
	catalogPrices = entity.NewSelectorSet("product prices",
		"[data-testid='product-card'] [data-testid='price']",
		".product-card .price",
		"li.product .price",
	)
	catalogEmpty = entity.NewSelectorSet("empty catalog",
		"[data-testid='empty-results']",
		".no-results",
		"text=/no products found/i",
	)

	productTitle = entity.NewSelectorSet("product title",
		"[data-testid='product-name']",
		"h1[itemprop='name']",
		".product-detail h1",
		"main h1",
	)
	productPrice = entity.NewSelectorSet("product price",
		"[data-testid='product-price']",
		"[itemprop='price']",
		".product-detail .price",
	)
	productQuantity = entity.NewSelectorSet("quantity input",
		"[data-testid='quantity']",
		"input[name='quantity']",
		"input[type='number']",
	)
	productAddToCart = entity.NewSelectorSet("add to cart",
		"[data-testid='add-to-cart']",
		"button[name='add-to-cart']",
		"button.add-to-cart",
		"role=button[name=/add to (cart|bag|basket)/i]",
	)

	cartItems = entity.NewSelectorSet("cart items",
		"[data-testid='cart-item']",
		".cart-item",
		"tr.cart_item",
	)
	cartEmpty = entity.NewSelectorSet("empty cart",
		"[data-testid='cart-empty']",
		".cart-empty",
		"text=/your (cart|bag|basket) is empty/i",
	)
	cartRemove = entity.NewSelectorSet("remove item",
		"[data-testid='remove-item']",
		".cart-item .remove",
		"role=button[name=/remove/i]",
	)
	cartTotal = entity.NewSelectorSet("cart total",
		"[data-testid='cart-total']",
		".cart-total .amount",
		".order-total",
	)
	cartCheckout = entity.NewSelectorSet("checkout button",
		"[data-testid='checkout']",
		"a.checkout-button",
		"role=button[name=/checkout/i]",
	)
)
