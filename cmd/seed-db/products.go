package main

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/kart-checkout/internal/domain/product"
)

type productJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	Image    struct {
		Thumbnail string `json:"thumbnail"`
		Mobile    string `json:"mobile"`
		Tablet    string `json:"tablet"`
		Desktop   string `json:"desktop"`
	} `json:"image"`
}

type productUpserter interface {
	Upsert(ctx context.Context, p product.Product) error
}

// readProducts decodes a JSON array of products from path.
func readProducts(path string) ([]product.Product, error) {
	r, err := openSource(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	var raw []productJSON
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "parse products JSON")
	}

	out := make([]product.Product, 0, len(raw))
	for i, p := range raw {
		switch {
		case p.ID == "" || p.Name == "":
			return nil, errors.Errorf("product %d: id and name are required", i)
		case !p.Price.IsPositive():
			return nil, errors.Errorf("product %s: price must be positive", p.ID)
		}
		out = append(out, product.Product{
			ID:       p.ID,
			Name:     p.Name,
			Price:    p.Price,
			Category: p.Category,
			Image: product.Image{
				Thumbnail: p.Image.Thumbnail,
				Mobile:    p.Image.Mobile,
				Tablet:    p.Image.Tablet,
				Desktop:   p.Image.Desktop,
			},
		})
	}
	return out, nil
}

func seedProducts(ctx context.Context, lg *zap.Logger, repo productUpserter, path string) (int, error) {
	lg.Info("Reading products file", zap.String("path", path))

	products, err := readProducts(path)
	if err != nil {
		return 0, err
	}
	for _, p := range products {
		if err := repo.Upsert(ctx, p); err != nil {
			return 0, errors.Wrapf(err, "upsert product %s", p.ID)
		}
		lg.Debug("Upserted product", zap.String("id", p.ID), zap.String("name", p.Name))
	}
	return len(products), nil
}
