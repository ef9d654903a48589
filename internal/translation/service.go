package translation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/HodayaSing/ai-pos/internal/ai"
	"github.com/HodayaSing/ai-pos/internal/catalog"
	"github.com/HodayaSing/ai-pos/internal/common"
	"github.com/HodayaSing/ai-pos/internal/lock"
	"github.com/HodayaSing/ai-pos/internal/obs"
	"github.com/HodayaSing/ai-pos/internal/queue"
)

// TaskKind is the queue kind consumed by cmd/worker.
const TaskKind = "product-translations"

// ErrSameLanguage rejects translating a product into its own language.
var ErrSameLanguage = errors.New("translation: product already in target language")

// Translator turns text into the target language.
type Translator interface {
	Translate(ctx context.Context, text, target string) (string, error)
}

// Catalog is the slice of the product catalog used here.
type Catalog interface {
	Get(ctx context.Context, id uint) (catalog.Product, error)
	GetByKey(ctx context.Context, key, language string) (catalog.Product, error)
	ListByLanguage(ctx context.Context, language string) ([]catalog.Product, error)
	UpsertLocale(ctx context.Context, key, language string, in catalog.UpdateInput) (catalog.Product, bool, error)
}

// Enqueuer schedules background work.
type Enqueuer interface {
	Enqueue(ctx context.Context, t queue.Task) (bool, error)
}

// ServiceConfig wires the translation service.
type ServiceConfig struct {
	Catalog    Catalog
	Translator Translator
	Locker     lock.Locker
	Queue      Enqueuer
	LockTTL    time.Duration
	Logger     zerolog.Logger
}

// Service creates translated locales of products.
type Service struct {
	catalog    Catalog
	translator Translator
	locker     lock.Locker
	queue      Enqueuer
	lockTTL    time.Duration
	logger     zerolog.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Catalog == nil || cfg.Translator == nil {
		return nil, errors.New("translation: catalog and translator are required")
	}
	locker := cfg.Locker
	if locker == nil {
		locker = lock.NewLocal()
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Service{
		catalog:    cfg.Catalog,
		translator: cfg.Translator,
		locker:     locker,
		queue:      cfg.Queue,
		lockTTL:    ttl,
		logger:     obs.Component(cfg.Logger, "translation"),
	}, nil
}

// Text is the translatable part of a product.
type Text struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Detail is the outcome for one product of a bulk run.
type Detail struct {
	ID         uint   `json:"id"`
	ProductKey string `json:"product_key"`
	Success    bool   `json:"success"`
	Skipped    bool   `json:"skipped,omitempty"`
	Original   *Text  `json:"original,omitempty"`
	Translated *Text  `json:"translated,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Report summarises a bulk run.
type Report struct {
	TargetLanguage string   `json:"targetLanguage"`
	Total          int      `json:"total"`
	Translated     int      `json:"translated"`
	Failed         int      `json:"failed"`
	Skipped        int      `json:"skipped"`
	Details        []Detail `json:"details"`
}

// TranslateProduct translates the name and description of product id and
// stores them as the target locale of the same product key.
func (s *Service) TranslateProduct(ctx context.Context, id uint, target string) (catalog.Product, error) {
	if !catalog.ValidLanguage(target) {
		return catalog.Product{}, invalidTarget(target)
	}
	p, err := s.catalog.Get(ctx, id)
	if err != nil {
		return catalog.Product{}, err
	}
	if p.Language == target {
		return catalog.Product{}, common.BadRequest("targetLanguage",
			fmt.Sprintf("Product is already in %s language", target), ErrSameLanguage)
	}
	text, err := s.translate(ctx, p, target)
	obs.ObserveTranslation(target, err)
	if err != nil {
		return catalog.Product{}, err
	}
	out, _, err := s.catalog.UpsertLocale(ctx, p.ProductKey, target, catalog.UpdateInput{Name: &text.Name, Description: &text.Description})
	return out, err
}

// GenerateAll translates every product of the other language into target.
// Products that already have a target locale are skipped unless overwrite is
// set. Runs for the same language never overlap.
func (s *Service) GenerateAll(ctx context.Context, target string, overwrite bool) (Report, error) {
	if !catalog.ValidLanguage(target) {
		return Report{}, invalidTarget(target)
	}
	var report Report
	err := s.locker.WithLock(ctx, "lock:translations:"+target, s.lockTTL, func(ctx context.Context) error {
		var err error
		report, err = s.generateAll(ctx, target, overwrite)
		return err
	})
	if err != nil {
		return Report{}, err
	}
	s.logger.Info().
		Str("target_language", target).
		Int("total", report.Total).
		Int("translated", report.Translated).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Msg("translations_generated")
	return report, nil
}

func (s *Service) generateAll(ctx context.Context, target string, overwrite bool) (Report, error) {
	source := catalog.OtherLanguage(target)
	products, err := s.catalog.ListByLanguage(ctx, source)
	if err != nil {
		return Report{}, err
	}
	report := Report{TargetLanguage: target, Total: len(products), Details: make([]Detail, 0, len(products))}
	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
		detail := Detail{ID: p.ID, ProductKey: p.ProductKey, Original: &Text{Name: p.Name, Description: p.Description}}

		if !overwrite {
			_, err := s.catalog.GetByKey(ctx, p.ProductKey, target)
			if err == nil {
				detail.Success, detail.Skipped = true, true
				report.Skipped++
				report.Details = append(report.Details, detail)
				continue
			}
			if !errors.Is(err, catalog.ErrNotFound) {
				return Report{}, err
			}
		}

		text, err := s.translate(ctx, p, target)
		if err == nil {
			_, _, err = s.catalog.UpsertLocale(ctx, p.ProductKey, target, catalog.UpdateInput{Name: &text.Name, Description: &text.Description})
		}
		obs.ObserveTranslation(target, err)
		if errors.Is(err, ai.ErrNotConfigured) {
			return Report{}, err
		}
		if err != nil {
			s.logger.Warn().Err(err).Uint("product_id", p.ID).Str("target_language", target).Msg("product_translation_failed")
			detail.Error = err.Error()
			report.Failed++
		} else {
			detail.Success = true
			detail.Translated = &text
			report.Translated++
		}
		report.Details = append(report.Details, detail)
	}
	return report, nil
}

func (s *Service) translate(ctx context.Context, p catalog.Product, target string) (Text, error) {
	name, err := s.translator.Translate(ctx, p.Name, target)
	if err != nil {
		return Text{}, fmt.Errorf("translate name: %w", err)
	}
	out := Text{Name: name}
	if p.Description != "" {
		out.Description, err = s.translator.Translate(ctx, p.Description, target)
		if err != nil {
			return Text{}, fmt.Errorf("translate description: %w", err)
		}
	}
	return out, nil
}

// Job is the queued payload of an asynchronous bulk run.
type Job struct {
	TargetLanguage string `json:"targetLanguage"`
	Overwrite      bool   `json:"overwrite"`
}

// Enqueue schedules GenerateAll on the worker. A pending run for the same
// language and mode absorbs duplicates; the bool reports whether a task was added.
func (s *Service) Enqueue(ctx context.Context, target string, overwrite bool) (bool, error) {
	if !catalog.ValidLanguage(target) {
		return false, invalidTarget(target)
	}
	if s.queue == nil {
		return false, common.Unavailable("Background processing is not available", queue.ErrNotConfigured)
	}
	payload, err := json.Marshal(Job{TargetLanguage: target, Overwrite: overwrite})
	if err != nil {
		return false, err
	}
	return s.queue.Enqueue(ctx, queue.Task{
		Kind:           TaskKind,
		Payload:        payload,
		IdempotencyKey: fmt.Sprintf("%s:%t", target, overwrite),
	})
}

// HandleTask runs a queued job; it is the worker's handler for TaskKind.
func (s *Service) HandleTask(ctx context.Context, task queue.Task) error {
	var job Job
	if err := json.Unmarshal(task.Payload, &job); err != nil {
		return fmt.Errorf("decode translation job: %w", err)
	}
	report, err := s.GenerateAll(ctx, job.TargetLanguage, job.Overwrite)
	if err != nil {
		return err
	}
	if report.Failed > 0 && report.Translated == 0 {
		return fmt.Errorf("translation job: all %d products failed", report.Failed)
	}
	return nil
}

func invalidTarget(target string) error {
	return common.BadRequest("targetLanguage", `Target language must be either "en" or "he"`,
		fmt.Errorf("unsupported language %q", target))
}
