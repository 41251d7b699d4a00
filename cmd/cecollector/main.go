package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turabik33/CE48-Final/internal/app"
	"github.com/turabik33/CE48-Final/internal/config"
	"github.com/turabik33/CE48-Final/internal/logging"
)

const usage = `Usage: cecollector <command> [flags]

Commands:
  collect    collect news articles (RSS, news APIs, scraping) into the raw dataset
  scholar    collect academic papers through the scholar search API
  classify   classify the raw dataset with the LLM into the SQLite store
  report     build the corpus report from the SQLite store

Run "cecollector <command> -h" for command flags.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("missing command")
	}

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	application := app.New(cfg, logger)

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "collect":
		fs := flag.NewFlagSet("collect", flag.ContinueOnError)
		fs.SetOutput(stderr)
		target := fs.Int("target", cfg.Quotas.Target, "number of articles to collect")
		only := fs.String("only", "", "run a single phase: rss, api or scrape")
		every := fs.Duration("every", 0, "repeat the collection at this interval until interrupted")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		opts := app.CollectOptions{Target: *target, Only: *only}
		if *every > 0 {
			return application.RunScheduled(ctx, *every, opts)
		}
		result, err := application.RunCollect(ctx, opts)
		if err != nil {
			return err
		}
		logger.Info("collection complete", "run_id", result.RunID, "collected", len(result.Articles), "target", result.Target)
		return nil

	case "scholar":
		fs := flag.NewFlagSet("scholar", flag.ContinueOnError)
		fs.SetOutput(stderr)
		maxPapers := fs.Int("max", cfg.Scholar.MaxPapers, "maximum number of papers")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		result, err := application.RunScholar(ctx, *maxPapers)
		if err != nil {
			return err
		}
		logger.Info("scholar collection complete", "run_id", result.RunID, "collected", len(result.Articles))
		return nil

	case "classify":
		fs := flag.NewFlagSet("classify", flag.ContinueOnError)
		fs.SetOutput(stderr)
		input := fs.String("input", "", "raw dataset CSV (default <output dir>/articles.csv)")
		start := fs.Int("start", 0, "first row to classify")
		end := fs.Int("end", 0, "row after the last one to classify (0 for all)")
		export := fs.Bool("export", true, "export accepted articles as classified_articles.csv")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		began := time.Now()
		stats, err := application.RunClassify(ctx, app.ClassifyOptions{Input: *input, Start: *start, End: *end, Export: *export})
		if err != nil {
			return err
		}
		logger.Info("classification finished",
			"accepted", stats.Accepted,
			"rejected", stats.Rejected,
			"skipped", stats.Skipped,
			"elapsed", time.Since(began).Round(time.Second),
		)
		return nil

	case "report":
		fs := flag.NewFlagSet("report", flag.ContinueOnError)
		fs.SetOutput(stderr)
		dir := fs.String("dir", "", "output directory (default from config)")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		r, err := application.RunReport(ctx, *dir)
		if err != nil {
			return err
		}
		logger.Info("report complete", "processed", r.Processed, "acceptance_rate", fmt.Sprintf("%.1f%%", r.AcceptanceRate))
		return nil

	case "-h", "--help", "help":
		fmt.Fprint(stderr, usage)
		return nil

	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}
