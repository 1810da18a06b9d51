// Package seed loads catalog fixtures from YAML.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/validator"
)

// Product is one catalog entry. Price is in major units.
type Product struct {
	Title        string  `yaml:"title" json:"title" validate:"required,max=255"`
	Description  string  `yaml:"description" json:"description" validate:"max=5000"`
	Price        float64 `yaml:"price" json:"price" validate:"gte=0,lte=1000000000"`
	QuantityLeft int     `yaml:"quantity_left" json:"quantity_left" validate:"gte=0"`
	Logo         string  `yaml:"logo" json:"logo" validate:"omitempty,http_url"`
}

// File is the top level of a seed document.
type File struct {
	Products []Product `yaml:"products" validate:"required,min=1,dive"`
}

// Parse decodes and validates a seed document. Unknown keys are rejected so
// typos do not silently drop fields.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("seed file is empty")
		}
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	if err := validator.Validate(f); err != nil {
		return nil, fmt.Errorf("invalid seed file: %w", err)
	}
	return &f, nil
}

// Creator stores products.
type Creator interface {
	CreateProduct(ctx context.Context, userID, role string, in service.CreateProductInput) (*domain.Product, error)
}

// Apply creates every product in f as an admin without an owning user. It
// stops at the first failure and reports how many products were created.
func Apply(ctx context.Context, c Creator, f *File, logger *slog.Logger) (int, error) {
	for i, p := range f.Products {
		created, err := c.CreateProduct(ctx, "", domain.RoleAdmin, service.CreateProductInput{
			Title:        p.Title,
			Description:  p.Description,
			Price:        p.Price,
			QuantityLeft: p.QuantityLeft,
			Logo:         p.Logo,
		})
		if err != nil {
			return i, fmt.Errorf("create product %q: %w", p.Title, err)
		}
		logger.InfoContext(ctx, "seeded product",
			slog.String("product_id", created.ID),
			slog.String("slug", created.Slug),
		)
	}
	return len(f.Products), nil
}
