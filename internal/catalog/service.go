package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/HodayaSing/ai-pos/internal/common"
)

// ServiceConfig wires the catalog service.
type ServiceConfig struct {
	Repo   Repository
	Cache  *Cache
	Logger zerolog.Logger
	NewKey func() string
}

// Service exposes product catalog operations.
type Service struct {
	repo   Repository
	cache  *Cache
	logger zerolog.Logger
	newKey func() string
}

// NewService constructs a catalog service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Repo == nil {
		return nil, errors.New("catalog repository is required")
	}
	newKey := cfg.NewKey
	if newKey == nil {
		newKey = uuid.NewString
	}
	return &Service{
		repo:   cfg.Repo,
		cache:  cfg.Cache,
		logger: cfg.Logger.With().Str("component", "catalog").Logger(),
		newKey: newKey,
	}, nil
}

// CreateInput holds the fields of a new product.
type CreateInput struct {
	ProductKey  string   `json:"product_key"`
	Language    string   `json:"language"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Price       *float64 `json:"price"`
	Image       string   `json:"image"`
}

// UpdateInput holds a partial product update; nil fields are left unchanged.
type UpdateInput struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Price       *float64 `json:"price"`
	Image       *string  `json:"image"`
}

// Empty reports whether the update changes nothing.
func (in UpdateInput) Empty() bool {
	return in.Name == nil && in.Description == nil && in.Category == nil && in.Price == nil && in.Image == nil
}

// List returns all products, or one language's products when language is set.
func (s *Service) List(ctx context.Context, language string) ([]Product, error) {
	if language != "" && !ValidLanguage(language) {
		return nil, invalidLanguage(language)
	}
	gen, err := s.cache.Generation(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache generation read failed")
		return s.repo.List(ctx, Filter{Language: language})
	}
	key := listingKey(gen, language)
	var cached []Product
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
	} else if ok {
		return cached, nil
	}
	products, err := s.repo.List(ctx, Filter{Language: language})
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, key, products); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
	}
	return products, nil
}

// ListByLanguage returns the products of one language.
func (s *Service) ListByLanguage(ctx context.Context, language string) ([]Product, error) {
	return s.List(ctx, language)
}

// ListByCategory returns products whose category matches exactly.
func (s *Service) ListByCategory(ctx context.Context, category string) ([]Product, error) {
	return s.repo.List(ctx, Filter{Category: category})
}

func (s *Service) Get(ctx context.Context, id uint) (Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) GetByKey(ctx context.Context, key, language string) (Product, error) {
	if !ValidLanguage(language) {
		return Product{}, invalidLanguage(language)
	}
	return s.repo.GetByKey(ctx, key, language)
}

// Translations returns every language version of a product keyed by language.
func (s *Service) Translations(ctx context.Context, key string) (map[string]Product, error) {
	products, err := s.repo.List(ctx, Filter{ProductKey: key})
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, ErrNotFound
	}
	out := make(map[string]Product, len(products))
	for _, p := range products {
		out[p.Language] = p
	}
	return out, nil
}

// Create validates and stores a new product. A missing product key is generated.
func (s *Service) Create(ctx context.Context, in CreateInput) (Product, error) {
	name := strings.TrimSpace(in.Name)
	category := strings.TrimSpace(in.Category)
	if name == "" || category == "" || in.Price == nil {
		return Product{}, common.BadRequest("", "Name, category, and price are required fields", nil)
	}
	if *in.Price <= 0 {
		return Product{}, common.BadRequest("price", "Price must be a positive number", nil)
	}
	lang := strings.TrimSpace(in.Language)
	if lang == "" {
		lang = LanguageEnglish
	}
	if !ValidLanguage(lang) {
		return Product{}, invalidLanguage(lang)
	}
	key := strings.TrimSpace(in.ProductKey)
	if key == "" {
		key = s.newKey()
	}
	p := Product{
		ProductKey:  key,
		Language:    lang,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Category:    category,
		Price:       money(*in.Price),
		Image:       strings.TrimSpace(in.Image),
	}
	if err := s.repo.Create(ctx, &p); err != nil {
		return Product{}, err
	}
	s.invalidate(ctx)
	s.logger.Info().Uint("product_id", p.ID).Str("product_key", p.ProductKey).Str("language", p.Language).Msg("product created")
	return p, nil
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (Product, error) {
	changes, err := updateColumns(in)
	if err != nil {
		return Product{}, err
	}
	p, err := s.repo.Update(ctx, id, changes)
	if err != nil {
		return Product{}, err
	}
	if len(changes) > 0 {
		s.invalidate(ctx)
	}
	return p, nil
}

// UpsertLocale updates the (key, language) version of a product or creates it.
// A new version copies category, price and image from an existing sibling
// when the input leaves them unset.
func (s *Service) UpsertLocale(ctx context.Context, key, language string, in UpdateInput) (Product, bool, error) {
	if !ValidLanguage(language) {
		return Product{}, false, invalidLanguage(language)
	}
	existing, err := s.repo.GetByKey(ctx, key, language)
	switch {
	case err == nil:
		p, err := s.Update(ctx, existing.ID, in)
		return p, false, err
	case !errors.Is(err, ErrNotFound):
		return Product{}, false, err
	}

	siblings, err := s.repo.List(ctx, Filter{ProductKey: key})
	if err != nil {
		return Product{}, false, err
	}
	create := CreateInput{ProductKey: key, Language: language}
	if len(siblings) > 0 {
		base := siblings[0]
		create.Name = base.Name
		create.Description = base.Description
		create.Category = base.Category
		price := base.PriceFloat()
		create.Price = &price
		create.Image = base.Image
	}
	if in.Name != nil {
		create.Name = *in.Name
	}
	if in.Description != nil {
		create.Description = *in.Description
	}
	if in.Category != nil {
		create.Category = *in.Category
	}
	if in.Price != nil {
		create.Price = in.Price
	}
	if in.Image != nil {
		create.Image = *in.Image
	}
	p, err := s.Create(ctx, create)
	return p, err == nil, err
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.logger.Info().Uint("product_id", id).Msg("product deleted")
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateListings(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache invalidation failed")
	}
}

func updateColumns(in UpdateInput) (map[string]any, error) {
	changes := map[string]any{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, common.BadRequest("name", "Name cannot be empty", nil)
		}
		changes["name"] = name
	}
	if in.Category != nil {
		category := strings.TrimSpace(*in.Category)
		if category == "" {
			return nil, common.BadRequest("category", "Category cannot be empty", nil)
		}
		changes["category"] = category
	}
	if in.Description != nil {
		changes["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		if *in.Price <= 0 {
			return nil, common.BadRequest("price", "Price must be a positive number", nil)
		}
		changes["price"] = money(*in.Price)
	}
	if in.Image != nil {
		changes["image"] = strings.TrimSpace(*in.Image)
	}
	return changes, nil
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

func invalidLanguage(lang string) error {
	return common.BadRequest("language", fmt.Sprintf("Unsupported language %q; use en or he", lang), nil)
}
