package popup

import "storefront-e2e/internal/entity"

// DefaultStrategies covers the interstitials seen on the storefront, most
// frequent first. Each strategy is independent of the others.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{
			Name: "cookie-consent",
			Trigger: entity.NewSelectorSet("cookie banner",
				"#onetrust-banner-sdk",
				"#CybotCookiebotDialog",
				"[class*='cookie-consent']",
				".cookie-banner",
				"form[action*='consent']",
			),
			Close: entity.NewSelectorSet("cookie accept",
				"#onetrust-accept-btn-handler",
				"#CybotCookiebotDialogBodyLevelButtonLevelOptinAllowAll",
				"button[id*='accept']",
				"button[class*='accept']",
				"form[action*='consent'] button[type='submit']",
				"role=button[name=/accept|agree|allow/i]",
			),
		},
		{
			Name: "newsletter-modal",
			Trigger: entity.NewSelectorSet("newsletter modal",
				"#newsletter-popup",
				"[data-testid='newsletter-modal']",
				"[class*='newsletter'][class*='modal']",
				"[class*='newsletter'][class*='popup']",
			),
			Close: entity.NewSelectorSet("newsletter close",
				"[class*='newsletter'] [aria-label='Close']",
				"[class*='newsletter'] .close",
				"role=button[name=/no,? thanks/i]",
			),
			CancelKey: true,
		},
		{
			Name: "region-picker",
			Trigger: entity.NewSelectorSet("region picker",
				"#geo-popup",
				".locale-modal",
				"[class*='country-selector'][role='dialog']",
			),
			Close: entity.NewSelectorSet("region keep",
				"role=button[name=/stay|continue|keep/i]",
				".locale-modal [aria-label='Close']",
				"#geo-popup .close",
			),
			CancelKey: true,
		},
		{
			Name: "aria-dialog",
			Trigger: entity.NewSelectorSet("modal dialog",
				"[role='dialog'][aria-modal='true']",
				"dialog[open]",
				".modal.show",
			),
			Close: entity.NewSelectorSet("modal close",
				"[role='dialog'] [aria-label='Close']",
				"[role='dialog'] button[class*='close']",
				"dialog[open] button[class*='close']",
				".modal.show .close",
			),
			CancelKey: true,
		},
		{
			Name: "app-banner",
			Trigger: entity.NewSelectorSet("app banner",
				".smartbanner",
				"#branch-banner-iframe",
				"[class*='app-banner']",
			),
			Close: entity.NewSelectorSet("app banner close",
				".smartbanner-close",
				"[class*='app-banner'] [aria-label='Close']",
			),
		},
		{
			Name: "chat-widget",
			Trigger: entity.NewSelectorSet("chat widget",
				"#intercom-container [class*='intercom-messenger']",
				"#hubspot-messages-iframe-container",
				"#launcher[title*='chat' i]",
				"[class*='chat-widget'][class*='open']",
			),
			Close: entity.NewSelectorSet("chat widget close",
				"[class*='intercom'] [aria-label='Close']",
				"#hubspot-messages-iframe-container [aria-label='Close']",
				"[class*='chat-widget'] [aria-label*='close' i]",
				"[class*='chat-widget'] .close",
			),
		},
	}
}
