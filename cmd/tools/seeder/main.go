// Seeds a development database with a small catalog, one combo, and a coupon.
package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-promo/internal/app"
	"github.com/noah-isme/backend-promo/internal/catalog"
	"github.com/noah-isme/backend-promo/internal/combo"
	"github.com/noah-isme/backend-promo/internal/config"
	"github.com/noah-isme/backend-promo/internal/coupon"
	"github.com/noah-isme/backend-promo/internal/discount"
)

func main() {
	cfg := config.MustLoad()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := app.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()

	items := &catalog.Repo{Pool: pool}
	combos := &combo.Repo{Pool: pool}
	coupons := &coupon.Repo{Pool: pool}

	burger := catalog.Item{
		ID:        uuid.New(),
		SKU:       "BURGER-CLASSIC",
		Title:     "Classic Burger",
		BasePrice: 35000,
		Stock:     100,
		IsActive:  true,
	}
	fries := catalog.Item{
		ID:             uuid.New(),
		SKU:            "FRIES-LARGE",
		Title:          "Large Fries",
		BasePrice:      15000,
		SalePercentBps: 1000,
		Stock:          200,
		IsActive:       true,
	}
	drink := catalog.Item{
		ID:        uuid.New(),
		SKU:       "COLA-500",
		Title:     "Cola 500ml",
		BasePrice: 8000,
		Stock:     300,
		IsActive:  true,
	}
	for _, it := range []catalog.Item{burger, fries, drink} {
		if err := items.UpsertItem(ctx, it); err != nil {
			log.Fatalf("seed item %s: %v", it.SKU, err)
		}
		log.Printf("seeded item %s (%s)", it.SKU, it.ID)
	}

	meal := combo.Definition{
		ID:       uuid.New(),
		Title:    "Burger Meal",
		Rule:     discount.Rule{Kind: discount.KindPercent, PercentBps: 1500},
		IsActive: true,
		Lines: []combo.Line{
			{ItemID: burger.ID, Qty: 1},
			{ItemID: fries.ID, Qty: 1},
			{ItemID: drink.ID, Qty: 1},
		},
	}
	if err := combos.CreateDefinition(ctx, meal); err != nil {
		log.Fatalf("seed combo: %v", err)
	}
	log.Printf("seeded combo %s (%s)", meal.Title, meal.ID)

	welcome := coupon.Record{
		ID: uuid.New(),
		Definition: coupon.Definition{
			Code:        "WELCOME10",
			Rule:        discount.Rule{Kind: discount.KindPercent, PercentBps: 1000, Cap: 20000},
			MinPurchase: 50000,
			IsActive:    true,
		},
	}
	if err := coupons.Create(ctx, welcome); err != nil {
		log.Fatalf("seed coupon: %v", err)
	}
	log.Printf("seeded coupon %s (%s)", welcome.Code, welcome.ID)
}
