package main

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/HodayaSing/ai-pos/internal/catalog"
	"github.com/HodayaSing/ai-pos/internal/config"
	"github.com/HodayaSing/ai-pos/internal/db"
	"github.com/HodayaSing/ai-pos/internal/obs"
)

type locale struct {
	Name        string
	Description string
}

type menuItem struct {
	Key      string
	Category string
	Price    float64
	English  locale
	Hebrew   locale
}

var menu = []menuItem{
	{"hummus", "Starters", 32, locale{"Hummus", "Creamy chickpeas with tahini, olive oil and warm pita"}, locale{"חומוס", "חומוס קרמי עם טחינה, שמן זית ופיתה חמה"}},
	{"matbucha", "Starters", 24, locale{"Matbucha", "Slow cooked tomatoes and roasted peppers"}, locale{"מטבוחה", "עגבניות ופלפלים קלויים בבישול ארוך"}},
	{"shakshuka", "Breakfast", 48, locale{"Shakshuka", "Eggs poached in spicy tomato sauce"}, locale{"שקשוקה", "ביצים ברוטב עגבניות חריף"}},
	{"sabich", "Main", 42, locale{"Sabich", "Pita with fried eggplant, egg, tahini and amba"}, locale{"סביח", "פיתה עם חציל מטוגן, ביצה, טחינה ועמבה"}},
	{"falafel-plate", "Main", 46, locale{"Falafel plate", "Falafel balls, Israeli salad and tahini"}, locale{"צלחת פלאפל", "כדורי פלאפל, סלט ישראלי וטחינה"}},
	{"schnitzel", "Main", 64, locale{"Schnitzel", "Crispy chicken breast with fries"}, locale{"שניצל", "חזה עוף פריך עם צ'יפס"}},
	{"israeli-salad", "Salads", 28, locale{"Israeli salad", "Finely chopped cucumber, tomato and onion"}, locale{"סלט ישראלי", "מלפפון, עגבנייה ובצל קצוצים דק"}},
	{"malabi", "Desserts", 26, locale{"Malabi", "Rose water milk pudding with pistachios"}, locale{"מלבי", "פודינג חלב במי ורדים עם פיסטוקים"}},
	{"lemonana", "Drinks", 16, locale{"Lemonana", "Fresh lemonade with mint"}, locale{"לימונענע", "לימונדה טרייה עם נענע"}},
	{"turkish-coffee", "Drinks", 12, locale{"Turkish coffee", "Strong coffee with cardamom"}, locale{"קפה טורקי", "קפה חזק עם הל"}},
}

type seedCatalog interface {
	GetByKey(ctx context.Context, key, language string) (catalog.Product, error)
	Create(ctx context.Context, in catalog.CreateInput) (catalog.Product, error)
	UpsertLocale(ctx context.Context, key, language string, in catalog.UpdateInput) (catalog.Product, bool, error)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger("console", "info").With().Str("component", "seeder").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := db.Open(ctx, db.Options{
		Driver:          cfg.DBDriver,
		DatabaseURL:     cfg.DatabaseURL,
		SQLitePath:      cfg.SQLitePath,
		ApplicationName: "ai-pos-seeder",
		Logger:          logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer client.Close()
	if err := db.Migrate(client); err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}

	svc, err := catalog.NewService(catalog.ServiceConfig{
		Repo:   catalog.NewGormRepository(client.DB()),
		Logger: logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog")
	}

	created, skipped, err := seed(ctx, svc, menu, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed menu")
	}
	logger.Info().Int("created", created).Int("skipped", skipped).Msg("seeding completed")
}

// seed creates the English and Hebrew locale of every item whose English
// locale is missing. Existing items are left alone.
func seed(ctx context.Context, svc seedCatalog, items []menuItem, logger zerolog.Logger) (created, skipped int, err error) {
	for _, item := range items {
		_, err := svc.GetByKey(ctx, item.Key, catalog.LanguageEnglish)
		switch {
		case err == nil:
			skipped++
			continue
		case !errors.Is(err, catalog.ErrNotFound):
			return created, skipped, err
		}

		price := item.Price
		if _, err := svc.Create(ctx, catalog.CreateInput{
			ProductKey:  item.Key,
			Language:    catalog.LanguageEnglish,
			Name:        item.English.Name,
			Description: item.English.Description,
			Category:    item.Category,
			Price:       &price,
		}); err != nil {
			return created, skipped, err
		}
		name, desc := item.Hebrew.Name, item.Hebrew.Description
		if _, _, err := svc.UpsertLocale(ctx, item.Key, catalog.LanguageHebrew, catalog.UpdateInput{
			Name:        &name,
			Description: &desc,
		}); err != nil {
			return created, skipped, err
		}
		created++
		logger.Info().Str("product_key", item.Key).Msg("seeded")
	}
	return created, skipped, nil
}
