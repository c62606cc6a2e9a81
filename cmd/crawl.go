package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AdamSzakal/gboc-get/internal/config"
	"github.com/AdamSzakal/gboc-get/internal/crawler"
	collyfetcher "github.com/AdamSzakal/gboc-get/internal/fetcher/colly"
	headlessfetcher "github.com/AdamSzakal/gboc-get/internal/fetcher/headless"
	"github.com/AdamSzakal/gboc-get/internal/hash/sha256"
	"github.com/AdamSzakal/gboc-get/internal/headless/detector"
	"github.com/AdamSzakal/gboc-get/internal/model"
	"github.com/AdamSzakal/gboc-get/internal/policy/ratelimit"
	"github.com/AdamSzakal/gboc-get/internal/report"
)

type crawlFlags struct {
	root    string
	out     string
	fetcher string
}

// newCrawlCmd creates the 'crawl' subcommand, which writes the data file.
func newCrawlCmd() *cobra.Command {
	var f crawlFlags
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the guide into the JSON data file",
		Long: `Fetches the root page, every Area, Sector and Problem below it and
writes the resulting tree to the data file. Pages that fail are skipped and
listed in the crawl report. On interrupt the Areas finished so far are saved.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			f.apply(cmd, &app.Config)
			_, err = crawlToFile(cmd.Context(), app)
			return err
		},
	}
	f.register(cmd)
	return cmd
}

func (f *crawlFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.root, "root", "", "root URL listing all areas (overrides crawler.root_url)")
	cmd.Flags().StringVar(&f.out, "out", "", "data file to write (overrides crawler.data_file)")
	cmd.Flags().StringVar(&f.fetcher, "fetcher", "", "fetch backend: colly, headless or auto (overrides crawler.fetcher)")
}

func (f *crawlFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("root") {
		cfg.Crawler.RootURL = f.root
	}
	if cmd.Flags().Changed("out") {
		cfg.Crawler.DataFile = f.out
	}
	if cmd.Flags().Changed("fetcher") {
		cfg.Crawler.Fetcher = f.fetcher
	}
}

// crawlToFile runs a crawl and saves its Areas. An interrupted crawl still
// saves the Areas that completed; a crawl that failed at the root saves
// nothing so the previous data file survives.
func crawlToFile(ctx context.Context, app *App) (crawler.Result, error) {
	cfg := app.Config
	if err := cfg.Validate(); err != nil {
		return crawler.Result{}, err
	}
	fetcher, closeFetcher, err := buildFetcher(cfg, app.Logger)
	if err != nil {
		return crawler.Result{}, err
	}
	defer closeFetcher()

	c := crawler.New(fetcher, crawler.Config{Concurrency: cfg.Crawler.Concurrency}, app.Logger)
	res, crawlErr := c.Crawl(ctx, cfg.Crawler.RootURL)
	interrupted := errors.Is(crawlErr, context.Canceled) || errors.Is(crawlErr, context.DeadlineExceeded)
	if crawlErr != nil && (!interrupted || len(res.Areas) == 0) {
		return res, crawlErr
	}

	if err := model.Save(cfg.Crawler.DataFile, res.Areas); err != nil {
		return res, fmt.Errorf("save data file: %w", err)
	}
	app.Logger.Info("data file written",
		zap.String("path", cfg.Crawler.DataFile),
		zap.Int("areas", len(res.Areas)),
		zap.Int("problems", res.ProblemCount()),
		zap.Bool("partial", interrupted),
	)

	if cfg.Report.Path != "" {
		run := report.Run{RootURL: cfg.Crawler.RootURL, DataFile: cfg.Crawler.DataFile, Result: res}
		if digest, err := sha256.File(cfg.Crawler.DataFile); err == nil {
			run.DataDigest = digest
		}
		if err := report.WriteFile(cfg.Report.Path, run); err != nil {
			app.Logger.Warn("crawl report not written", zap.String("path", cfg.Report.Path), zap.Error(err))
		} else {
			app.Logger.Info("crawl report written", zap.String("path", cfg.Report.Path))
		}
	}
	return res, crawlErr
}

// buildFetcher selects the fetch backend and wraps it with the per-host rate
// limit, the global in-flight bound and retries.
func buildFetcher(cfg config.Config, logger *zap.Logger) (crawler.Fetcher, func(), error) {
	var base crawler.Fetcher
	closeFn := func() {}
	switch cfg.Crawler.Fetcher {
	case config.FetcherHeadless:
		h, err := newHeadless(cfg)
		if err != nil {
			return nil, nil, err
		}
		base, closeFn = h, h.Close
	case config.FetcherAuto:
		h, err := newHeadless(cfg)
		if err != nil {
			return nil, nil, err
		}
		base = detector.Promote(newColly(cfg), h, detector.NewHeuristic(cfg.Headless.PromoteBelowBytes), logger)
		closeFn = h.Close
	default:
		base = newColly(cfg)
	}

	limiter := ratelimit.New(ratelimit.Config{RPS: cfg.Crawler.RatePerSecond, Burst: cfg.Crawler.RateBurst})
	// Retries wait outside the in-flight bound.
	initial, limit := cfg.Backoff()
	fetcher := crawler.WithLimit(limiter.Wrap(base), cfg.Crawler.MaxInFlight)
	return crawler.WithRetry(fetcher, crawler.NewExponentialRetryPolicy(cfg.HTTP.MaxRetries, initial, limit)), closeFn, nil
}

func newColly(cfg config.Config) *collyfetcher.Fetcher {
	return collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.Crawler.UserAgent,
		RespectRobots: cfg.Crawler.RespectRobots,
		Timeout:       cfg.HTTPTimeout(),
	})
}

func newHeadless(cfg config.Config) (*headlessfetcher.Fetcher, error) {
	h, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
		MaxParallel:       cfg.Headless.MaxParallel,
		UserAgent:         cfg.Crawler.UserAgent,
		NavigationTimeout: cfg.NavTimeout(),
		Settle:            cfg.Settle(),
	})
	if err != nil {
		return nil, fmt.Errorf("init headless fetcher: %w", err)
	}
	return h, nil
}
