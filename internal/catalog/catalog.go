// Package catalog filters and pages the in-stock product list.
package catalog

import (
	"strings"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/pagination"
)

// Search returns the products whose title contains query, ignoring case.
// The query is matched as given, whitespace included. An empty query returns
// products unchanged.
func Search(products []domain.Product, query string) []domain.Product {
	q := strings.ToLower(query)
	if q == "" {
		return products
	}
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Title), q) {
			out = append(out, p)
		}
	}
	return out
}

// Window returns the load-more prefix of products for page and perPage and
// whether more products remain. Invalid arguments are normalized with
// defaultPerPage.
func Window(products []domain.Product, page, perPage, defaultPerPage int) ([]domain.Product, bool) {
	w := Page(products, pagination.Params{Page: page, PerPage: perPage}.Normalize(defaultPerPage))
	return w.Items, w.HasNext
}

// Page is Window with the full pagination envelope.
func Page(products []domain.Product, p pagination.Params) pagination.Window[domain.Product] {
	return pagination.Slice(products, p)
}
