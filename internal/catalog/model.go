package catalog

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Supported product languages.
const (
	LanguageEnglish = "en"
	LanguageHebrew  = "he"
)

var (
	// ErrNotFound is returned when no product matches.
	ErrNotFound = errors.New("product not found")
	// ErrDuplicate is returned when a product_key already has the language.
	ErrDuplicate = errors.New("product translation already exists")
)

// Product is one language version of a menu item. Versions of the same item
// share a ProductKey.
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	ProductKey  string          `gorm:"column:product_key" json:"product_key"`
	Language    string          `json:"language"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2)" json:"price"`
	Image       string          `json:"image"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName pins the GORM table.
func (Product) TableName() string { return "products" }

// View is the API representation of a product.
type View struct {
	ID          uint      `json:"id"`
	ProductKey  string    `json:"product_key"`
	Language    string    `json:"language"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	Image       *string   `json:"image"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ToView converts the stored product for responses.
func (p Product) ToView() View {
	v := View{
		ID:          p.ID,
		ProductKey:  p.ProductKey,
		Language:    p.Language,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price.Round(2).InexactFloat64(),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.Image != "" {
		img := p.Image
		v.Image = &img
	}
	return v
}

// Views converts a slice of products.
func Views(products []Product) []View {
	out := make([]View, 0, len(products))
	for _, p := range products {
		out = append(out, p.ToView())
	}
	return out
}

// PriceFloat returns the price as a float for computations outside the store.
func (p Product) PriceFloat() float64 {
	return p.Price.InexactFloat64()
}

// ValidLanguage reports whether lang is a supported product language.
func ValidLanguage(lang string) bool {
	return lang == LanguageEnglish || lang == LanguageHebrew
}

// OtherLanguage returns the counterpart of a supported language.
func OtherLanguage(lang string) string {
	if lang == LanguageHebrew {
		return LanguageEnglish
	}
	return LanguageHebrew
}
