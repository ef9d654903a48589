package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/HodayaSing/ai-pos/internal/catalog"
	"github.com/HodayaSing/ai-pos/internal/common"
)

// ProductSource lists the products of one language.
type ProductSource interface {
	ListByLanguage(ctx context.Context, language string) ([]catalog.Product, error)
}

// NormalizeLanguage reduces a locale tag such as "he-IL" to its language.
func NormalizeLanguage(lang string) string {
	base, _, _ := strings.Cut(strings.TrimSpace(lang), "-")
	base = strings.ToLower(base)
	if base == "" {
		return catalog.LanguageEnglish
	}
	return base
}

type searchCandidate struct {
	ID          uint   `json:"id"`
	ProductKey  string `json:"product_key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SearchProducts asks the search model which products match query. When the
// language has no products the English menu is searched instead. Results keep
// catalog order.
func (s *Service) SearchProducts(ctx context.Context, query, language string) ([]catalog.Product, error) {
	if s.client == nil {
		return nil, ErrNotConfigured
	}
	if s.products == nil {
		return nil, fmt.Errorf("ai: product source not configured")
	}
	lang := NormalizeLanguage(language)
	products, err := s.products.ListByLanguage(ctx, lang)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 && lang != catalog.LanguageEnglish {
		s.logger.Debug().Str("language", lang).Msg("no products in language, searching english menu")
		products, err = s.products.ListByLanguage(ctx, catalog.LanguageEnglish)
		if err != nil {
			return nil, err
		}
		if len(products) == 0 {
			return nil, common.NotFound(fmt.Sprintf("No products found in %s or default 'en' language", lang), nil)
		}
	} else if len(products) == 0 {
		return nil, common.NotFound(fmt.Sprintf("No products found in %s language", language), nil)
	}

	candidates := make([]searchCandidate, 0, len(products))
	for _, p := range products {
		candidates = append(candidates, searchCandidate{ID: p.ID, ProductKey: p.ProductKey, Name: p.Name, Description: p.Description})
	}
	listing, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return nil, err
	}

	reply, err := s.chat(ctx, "search", openai.ChatCompletionRequest{
		Model: s.cfg.SearchModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: searchSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: searchUserPrompt(query, string(listing))},
		},
		ResponseFormat: jsonObject(),
		MaxTokens:      s.cfg.SearchMaxTokens,
	})
	if err != nil {
		return nil, err
	}
	keys, err := productKeys(reply)
	if err != nil {
		s.logger.Warn().Err(err).Str("reply", reply).Msg("search_reply_unparsable")
		return nil, common.NewAppError("UPSTREAM_ERROR", "Failed to parse AI response", http.StatusBadGateway, err)
	}

	wanted := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		wanted[k] = struct{}{}
	}
	matches := make([]catalog.Product, 0, len(keys))
	for _, p := range products {
		if _, ok := wanted[p.ProductKey]; ok {
			matches = append(matches, p)
		}
	}
	if len(keys) > 0 && len(matches) == 0 {
		s.logger.Info().Strs("keys", keys).Msg("search keys matched no products")
	}
	return matches, nil
}
