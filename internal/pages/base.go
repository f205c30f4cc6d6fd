package pages

import (
	"fmt"
	"regexp"
	"storefront-e2e/internal/entity"
	"storefront-e2e/internal/facade"
	"storefront-e2e/pkg/apperr"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

type base struct {
	actions *facade.Actions
	logger  *zap.Logger
}

// nth narrows every query of set to its index-th match. Negative indexes are
// rejected: the engine reads nth=-1 as the last match.
func nth(op string, set entity.SelectorSet, index int) (entity.SelectorSet, error) {
	if index < 0 {
		return entity.SelectorSet{}, apperr.InvalidReqError(op, "index", fmt.Errorf("%s index must not be negative, got %d", set.Name, index))
	}

	queries := make([]string, 0, len(set.Queries))
	for _, q := range set.Queries {
		queries = append(queries, fmt.Sprintf("%s >> nth=%d", q, index))
	}

	return entity.SelectorSet{Name: fmt.Sprintf("%s #%d", set.Name, index), Queries: queries}, nil
}

var digitsRe = regexp.MustCompile(`\d+`)

// parseCount extracts the first integer in s; badges render as "3", "(3)" or
// "3 items".
func parseCount(s string) (int, bool) {
	m := digitsRe.FindString(s)
	if m == "" {
		return 0, false
	}

	n, err := strconv.Atoi(m)

	return n, err == nil
}

var priceRe = regexp.MustCompile(`\d[\d.,\s]*`)

// parsePrice reads a displayed price such as "$1,299.00", "1.299,00 €" or
// "12,50". The last separator followed by exactly two digits is decimal.
func parsePrice(s string) (float64, bool) {
	m := strings.TrimSpace(priceRe.FindString(s))
	if m == "" {
		return 0, false
	}

	m = strings.ReplaceAll(m, " ", "")

	decimal := ""
	if i := strings.LastIndexAny(m, ".,"); i >= 0 && len(m)-i-1 == 2 {
		decimal = m[i+1:]
		m = m[:i]
	}

	m = strings.NewReplacer(".", "", ",", "").Replace(m)
	if decimal != "" {
		m += "." + decimal
	}

	v, err := strconv.ParseFloat(m, 64)

	return v, err == nil
}
