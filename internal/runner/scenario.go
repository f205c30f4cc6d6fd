package runner

import (
	"context"
	"storefront-e2e/internal/world"
	"strings"
)

// Scenario is one independent test. Run gets a freshly entered world and must
// not keep references to it after returning.
type Scenario struct {
	Name string
	Tags []string
	Run  func(ctx context.Context, w *world.World) error
}

// Filter selects scenarios by tag: a scenario matches when it carries at least
// one include tag (or there are none) and no exclude tag.
type Filter struct {
	Include []string
	Exclude []string
}

// ParseTags reads a TAGS expression such as "smoke,cart,~slow". A leading "@"
// on a tag is ignored.
func ParseTags(expr string) Filter {
	var f Filter

	for _, raw := range strings.Split(expr, ",") {
		tag := strings.TrimSpace(raw)
		if tag == "" {
			continue
		}

		exclude := strings.HasPrefix(tag, "~")
		tag = normalizeTag(strings.TrimPrefix(tag, "~"))

		if tag == "" {
			continue
		}

		if exclude {
			f.Exclude = append(f.Exclude, tag)
		} else {
			f.Include = append(f.Include, tag)
		}
	}

	return f
}

func (f Filter) Match(tags []string) bool {
	has := make(map[string]bool, len(tags))
	for _, t := range tags {
		has[normalizeTag(t)] = true
	}

	for _, t := range f.Exclude {
		if has[t] {
			return false
		}
	}

	if len(f.Include) == 0 {
		return true
	}

	for _, t := range f.Include {
		if has[t] {
			return true
		}
	}

	return false
}

func Select(scenarios []Scenario, expr string) []Scenario {
	f := ParseTags(expr)

	var out []Scenario

	for _, s := range scenarios {
		if f.Match(s.Tags) {
			out = append(out, s)
		}
	}

	return out
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "@"))
}
