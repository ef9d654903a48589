package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/HodayaSing/ai-pos/internal/app"
	"github.com/HodayaSing/ai-pos/internal/catalog"
	"github.com/HodayaSing/ai-pos/internal/config"
	"github.com/HodayaSing/ai-pos/internal/obs"
	"github.com/HodayaSing/ai-pos/internal/translation"
)

const usage = `usage:
  translate [-lang he] <productId>
  translate -all [-lang he] [-overwrite]`

type translator interface {
	TranslateProduct(ctx context.Context, id uint, target string) (catalog.Product, error)
	GenerateAll(ctx context.Context, target string, overwrite bool) (translation.Report, error)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if !cfg.AIEnabled() {
		log.Fatal("AI_API_KEY is required")
	}
	logger := obs.NewLogger("console", "warn")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	deps, err := app.Build(ctx, cfg, logger, app.Options{ApplicationName: "ai-pos-translate"})
	if err != nil {
		log.Fatalf("initialise dependencies: %v", err)
	}
	defer deps.Close()

	if err := run(ctx, deps.Translations, os.Args[1:], os.Stdout); err != nil {
		deps.Close()
		log.Fatal(err)
	}
}

func run(ctx context.Context, svc translator, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("translate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		lang      = fs.String("lang", catalog.LanguageHebrew, `target language, "en" or "he"`)
		all       = fs.Bool("all", false, "translate every product of the other language")
		overwrite = fs.Bool("overwrite", false, "with -all, replace existing translations")
	)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w\n%s", err, usage)
	}
	if !catalog.ValidLanguage(*lang) {
		return errors.New(`target language must be either "en" or "he"`)
	}

	if *all {
		report, err := svc.GenerateAll(ctx, *lang, *overwrite)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "translated %d of %d products into %s (%d skipped, %d failed)\n",
			report.Translated, report.Total, report.TargetLanguage, report.Skipped, report.Failed)
		for _, d := range report.Details {
			if d.Error != "" {
				fmt.Fprintf(out, "  product %d: %s\n", d.ID, d.Error)
			}
		}
		return nil
	}

	if fs.NArg() != 1 {
		return errors.New(usage)
	}
	id, err := strconv.ParseUint(fs.Arg(0), 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("invalid product id %q", fs.Arg(0))
	}
	p, err := svc.TranslateProduct(ctx, uint(id), *lang)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(p.ToView())
}
