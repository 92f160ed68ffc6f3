package main

import (
	"context"
	"errors"

	"github.com/modaplex/internal/config"
	"github.com/modaplex/internal/logger"
	"github.com/modaplex/internal/models"
	"github.com/modaplex/internal/repository"
	"github.com/modaplex/internal/service"

	"github.com/shopspring/decimal"
)

type seedVendor struct {
	input  service.CreateVendorInput
	brands []seedBrand
}

type seedBrand struct {
	name     string
	slug     string
	rate     string
	products []service.ProductInput
}

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, false); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.InitDefaultAdmin("", ""); err != nil {
		stdLog.Printf("Failed to init default admin: %v", err)
	}

	vendorRepo := repository.NewVendorRepository(models.DB)
	userRepo := repository.NewUserRepository(models.DB)
	vendors := service.NewVendorService(vendorRepo, userRepo)
	products := service.NewProductService(repository.NewProductRepository(models.DB), vendorRepo)
	ctx := context.Background()

	for _, item := range demoVendors() {
		vendor, err := vendors.Create(ctx, item.input)
		if errors.Is(err, service.ErrEmailExists) || errors.Is(err, service.ErrSlugExists) {
			stdLog.Printf("Vendor already exists: %s", item.input.Slug)
			continue
		}
		if err != nil {
			stdLog.Printf("Failed to create vendor %s: %v", item.input.Slug, err)
			continue
		}
		stdLog.Printf("Created vendor: %s (id=%d)", vendor.Slug, vendor.ID)

		for _, b := range item.brands {
			input := service.BrandInput{VendorID: vendor.ID, Name: b.name, Slug: b.slug}
			if b.rate != "" {
				input.CommissionRate = decimal.NewNullDecimal(decimal.RequireFromString(b.rate))
			}
			brand, err := vendors.CreateBrand(input, 0)
			if err != nil {
				stdLog.Printf("Failed to create brand %s: %v", b.slug, err)
				continue
			}
			stdLog.Printf("Created brand: %s", brand.Slug)
			for _, p := range b.products {
				p.BrandID = brand.ID
				product, err := products.Create(p, 0)
				if err != nil {
					stdLog.Printf("Failed to create product %s: %v", p.Slug, err)
					continue
				}
				stdLog.Printf("Created product: %s (%s)", product.Slug, product.Price.String())
			}
		}
	}
	stdLog.Printf("Seed completed")
}

func demoVendors() []seedVendor {
	price := decimal.RequireFromString
	return []seedVendor{
		{
			input: service.CreateVendorInput{
				Email:                 "studio@modaplex.local",
				Password:              "studio-demo-123",
				Name:                  "Studio Nord",
				Slug:                  "studio-nord",
				ContactEmail:          "hello@studionord.local",
				DefaultCommissionRate: decimal.NewNullDecimal(decimal.NewFromInt(85)),
				Bank: service.BankDetails{
					BankName:          "Nordic Bank",
					BankAccountName:   "Studio Nord AB",
					BankAccountNumber: "SE4550000000058398257466",
					BankRoutingCode:   "ESSESESS",
				},
			},
			brands: []seedBrand{
				{
					name: "Nord Essentials",
					slug: "nord-essentials",
					products: []service.ProductInput{
						{Name: "Merino Crew Sweater", Slug: "merino-crew-sweater", SKU: "NE-MERINO-01", Category: "knitwear", Price: price("89.00"), Stock: 40, Sizes: []string{"S", "M", "L", "XL"}, Colors: []string{"oat", "navy"}},
						{Name: "Wide Leg Trousers", Slug: "wide-leg-trousers", SKU: "NE-TROUSER-02", Category: "trousers", Price: price("110.00"), CompareAtPrice: price("140.00"), Stock: 25, Sizes: []string{"34", "36", "38", "40"}, Colors: []string{"black"}},
					},
				},
				{
					name: "Nord Atelier",
					slug: "nord-atelier",
					rate: "75",
					products: []service.ProductInput{
						{Name: "Wool Overcoat", Slug: "wool-overcoat", SKU: "NA-COAT-01", Category: "outerwear", Price: price("320.00"), Stock: 8, Sizes: []string{"M", "L"}, Colors: []string{"camel"}},
					},
				},
			},
		},
		{
			input: service.CreateVendorInput{
				Email:        "maison@modaplex.local",
				Password:     "maison-demo-123",
				Name:         "Maison Lune",
				Slug:         "maison-lune",
				ContactEmail: "contact@maisonlune.local",
				Bank: service.BankDetails{
					BankName:          "Banque Lune",
					BankAccountName:   "Maison Lune SARL",
					BankAccountNumber: "FR7630006000011234567890189",
					BankRoutingCode:   "AGRIFRPP",
				},
			},
			brands: []seedBrand{
				{
					name: "Lune",
					slug: "lune",
					products: []service.ProductInput{
						{Name: "Silk Slip Dress", Slug: "silk-slip-dress", SKU: "LU-DRESS-01", Category: "dresses", Price: price("195.00"), Stock: 15, Sizes: []string{"XS", "S", "M"}, Colors: []string{"ivory", "emerald"}},
						{Name: "Leather Ankle Boots", Slug: "leather-ankle-boots", SKU: "LU-BOOT-02", Category: "shoes", Price: price("240.00"), Stock: 12, Sizes: []string{"37", "38", "39", "40"}, Colors: []string{"black"}},
					},
				},
			},
		},
	}
}
