package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/HodayaSing/ai-pos/internal/common"
	"github.com/HodayaSing/ai-pos/internal/media"
	"github.com/HodayaSing/ai-pos/internal/obs"
)

var (
	errEmptyReply    = errors.New("ai: empty completion")
	errInvalidFormat = errors.New("ai: unexpected response format")
)

// ImageStore validates and persists images.
type ImageStore interface {
	Prepare(data []byte) (media.Image, error)
	SaveGenerated(ctx context.Context, data []byte) (string, error)
}

// ImageFetcher downloads generated images.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ServiceConfig wires the AI service.
type ServiceConfig struct {
	Config     Config
	HTTPClient openai.HTTPDoer
	Images     ImageStore
	Fetcher    ImageFetcher
	Products   ProductSource
	Logger     zerolog.Logger
	Now        func() time.Time
}

// Service implements the LLM backed features.
type Service struct {
	cfg      Config
	client   *openai.Client
	images   ImageStore
	fetcher  ImageFetcher
	products ProductSource
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(cfg ServiceConfig) *Service {
	conf := cfg.Config.withDefaults()
	s := &Service{
		cfg:      conf,
		images:   cfg.Images,
		fetcher:  cfg.Fetcher,
		products: cfg.Products,
		logger:   obs.Component(cfg.Logger, "ai"),
		now:      cfg.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if conf.Enabled() {
		oc := openai.DefaultConfig(conf.APIKey)
		if conf.BaseURL != "" {
			oc.BaseURL = strings.TrimRight(conf.BaseURL, "/")
		}
		if cfg.HTTPClient != nil {
			oc.HTTPClient = cfg.HTTPClient
		}
		s.client = openai.NewClientWithConfig(oc)
	}
	return s
}

// Enabled reports whether an API key is configured.
func (s *Service) Enabled() bool { return s.client != nil }

// Model describes one model offered to the UI.
type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Models lists the configured models. It does not call the provider.
func (s *Service) Models() []Model {
	return []Model{
		{ID: s.cfg.ChatModel, Name: s.cfg.ChatModel, Description: "General purpose text generation and translation"},
		{ID: s.cfg.SearchModel, Name: s.cfg.SearchModel, Description: "Menu search"},
		{ID: s.cfg.VisionModel, Name: s.cfg.VisionModel, Description: "Product recognition from photos"},
		{ID: s.cfg.ImageModel, Name: s.cfg.ImageModel, Description: "Dish image generation"},
	}
}

// Generation is a free-form completion.
type Generation struct {
	Result    string `json:"result"`
	Timestamp string `json:"timestamp"`
}

func (s *Service) Generate(ctx context.Context, prompt string) (Generation, error) {
	reply, err := s.chat(ctx, "generate", openai.ChatCompletionRequest{
		Model: s.cfg.ChatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: generateSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	})
	if err != nil {
		return Generation{}, err
	}
	return Generation{Result: reply, Timestamp: s.now().UTC().Format("2006-01-02T15:04:05.000Z")}, nil
}

// ProductDraft is the editable text of a product.
type ProductDraft struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// Modification pairs the submitted product with the rewritten one.
type Modification struct {
	Original ProductDraft `json:"original"`
	Updated  ProductDraft `json:"updated"`
}

// ModifyProduct rewrites a product following free-text instructions. Fields the
// model leaves empty, and non-positive prices, keep their original value.
func (s *Service) ModifyProduct(ctx context.Context, product ProductDraft, instructions string) (Modification, error) {
	reply, err := s.chat(ctx, "modify_product", openai.ChatCompletionRequest{
		Model: s.cfg.ChatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: modifySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: modifyUserPrompt(product, instructions)},
		},
		ResponseFormat: jsonObject(),
		Temperature:    s.cfg.Temperature,
		MaxTokens:      s.cfg.MaxTokens,
	})
	if err != nil {
		return Modification{}, err
	}
	var updated ProductDraft
	if err := decodeReply(reply, &updated); err != nil {
		return Modification{}, fmt.Errorf("%w: %v", errInvalidFormat, err)
	}
	if strings.TrimSpace(updated.Name) == "" {
		updated.Name = product.Name
	}
	if strings.TrimSpace(updated.Description) == "" {
		updated.Description = product.Description
	}
	if updated.Price <= 0 {
		updated.Price = product.Price
	}
	return Modification{Original: product, Updated: updated}, nil
}

// Dish describes the image to generate.
type Dish struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// GenerateDishImage renders a dish photo and stores it, returning the public URL.
// Provider URLs expire, so the image is always copied into storage.
func (s *Service) GenerateDishImage(ctx context.Context, dish Dish) (string, error) {
	if s.client == nil {
		return "", ErrNotConfigured
	}
	if s.images == nil {
		return "", errors.New("ai: image storage not configured")
	}
	start := s.now()
	resp, err := s.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         dishImagePrompt(dish),
		Model:          s.cfg.ImageModel,
		N:              1,
		Size:           s.cfg.ImageSize,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	obs.ObserveAIRequest("generate_dish_image", obs.DurationMillis(s.now().Sub(start)), err)
	if err != nil {
		return "", s.upstream("generate_dish_image", err)
	}
	if len(resp.Data) == 0 {
		return "", errEmptyReply
	}

	var data []byte
	switch img := resp.Data[0]; {
	case img.B64JSON != "":
		data, err = base64.StdEncoding.DecodeString(img.B64JSON)
	case img.URL != "" && s.fetcher != nil:
		data, err = s.fetcher.Fetch(ctx, img.URL)
	default:
		err = errEmptyReply
	}
	if err != nil {
		return "", fmt.Errorf("ai: retrieve generated image: %w", err)
	}
	return s.images.SaveGenerated(ctx, data)
}

// Translate translates text into target ("en" or "he").
func (s *Service) Translate(ctx context.Context, text, target string) (string, error) {
	reply, err := s.chat(ctx, "translate", openai.ChatCompletionRequest{
		Model: s.cfg.ChatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: translateSystemPrompt(target)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0.3,
		MaxTokens:   s.cfg.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	return strings.Trim(reply, "\"“”"), nil
}

// RecognizedProduct is one item found in a photo.
type RecognizedProduct struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Recognition is the vision result together with the raw model reply.
type Recognition struct {
	Products    []RecognizedProduct `json:"products"`
	RawResponse string              `json:"rawResponse"`
}

// RecognizeProducts identifies food products in an image given as a data URL.
func (s *Service) RecognizeProducts(ctx context.Context, dataURL string) (Recognition, error) {
	if s.client == nil {
		return Recognition{}, ErrNotConfigured
	}
	_, raw, err := media.DecodeDataURL(dataURL)
	if err != nil {
		return Recognition{}, common.BadRequest("image", "Image must be a base64 encoded data URL", err)
	}
	imageURL := dataURL
	if s.images != nil {
		img, err := s.images.Prepare(raw)
		if err != nil {
			return Recognition{}, err
		}
		imageURL = "data:" + img.ContentType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
	}

	reply, err := s.chat(ctx, "recognize_products", openai.ChatCompletionRequest{
		Model: s.cfg.VisionModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: recognizeSystemPrompt},
			{Role: openai.ChatMessageRoleUser, MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: recognizeUserPrompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: imageURL, Detail: openai.ImageURLDetailAuto}},
			}},
		},
		ResponseFormat: jsonObject(),
		MaxTokens:      s.cfg.MaxTokens,
	})
	if err != nil {
		return Recognition{}, err
	}
	var parsed struct {
		Products []RecognizedProduct `json:"products"`
	}
	if err := decodeReply(reply, &parsed); err != nil {
		return Recognition{}, fmt.Errorf("%w: %v", errInvalidFormat, err)
	}
	if parsed.Products == nil {
		parsed.Products = []RecognizedProduct{}
	}
	return Recognition{Products: parsed.Products, RawResponse: reply}, nil
}

// Recipe is a suggestion built from available products.
type Recipe struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
}

func (s *Service) RecipeRecommendations(ctx context.Context, products []string) ([]Recipe, error) {
	reply, err := s.chat(ctx, "recipe_recommendations", openai.ChatCompletionRequest{
		Model: s.cfg.ChatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: recipeSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: recipeUserPrompt(products)},
		},
		ResponseFormat: jsonObject(),
		Temperature:    s.cfg.Temperature,
		MaxTokens:      2 * s.cfg.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Recipes []Recipe `json:"recipes"`
	}
	if err := decodeReply(reply, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidFormat, err)
	}
	if parsed.Recipes == nil {
		parsed.Recipes = []Recipe{}
	}
	return parsed.Recipes, nil
}

func (s *Service) chat(ctx context.Context, op string, req openai.ChatCompletionRequest) (string, error) {
	if s.client == nil {
		return "", ErrNotConfigured
	}
	start := s.now()
	resp, err := s.client.CreateChatCompletion(ctx, req)
	obs.ObserveAIRequest(op, obs.DurationMillis(s.now().Sub(start)), err)
	if err != nil {
		return "", s.upstream(op, err)
	}
	if len(resp.Choices) == 0 {
		return "", errEmptyReply
	}
	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", errEmptyReply
	}
	return reply, nil
}

func (s *Service) upstream(op string, err error) error {
	evt := s.logger.Warn().Err(err).Str("operation", op)
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		evt = evt.Int("status", apiErr.HTTPStatusCode)
	}
	evt.Msg("ai_request_failed")
	return fmt.Errorf("ai: %s: %w", op, err)
}

func jsonObject() *openai.ChatCompletionResponseFormat {
	return &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
}
