// Package crawler walks the guide from its root page down through Areas,
// Sectors and Problems and assembles the nested model.
//
// Fetch failures below the root never abort a crawl: the failing node is
// logged, recorded in Result.Skipped and left out, and its siblings continue.
// Output order always follows discovery order on the source pages.
package crawler

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AdamSzakal/gboc-get/internal/extract"
	"github.com/AdamSzakal/gboc-get/internal/id"
	"github.com/AdamSzakal/gboc-get/internal/metrics"
	"github.com/AdamSzakal/gboc-get/internal/model"
	"github.com/AdamSzakal/gboc-get/internal/sanitize"
)

const (
	defaultConcurrency = 4
	tracerName         = "github.com/AdamSzakal/gboc-get/internal/crawler"
)

// Config holds the crawl settings. It is decoupled from viper so the crawler
// can be built directly in tests.
type Config struct {
	// Concurrency bounds how many Areas are crawled at once.
	Concurrency int
	// TracerProvider receives one span per crawl and per page. Nil uses the
	// global provider.
	TracerProvider trace.TracerProvider
}

// Skip records a node left out of the result.
type Skip struct {
	URL  string
	Kind string
	// Reason is one of not_found, empty_name or error.
	Reason string
	// Detail is the underlying error text.
	Detail string
}

// Result is the outcome of one crawl.
type Result struct {
	RunID   string
	Areas   []model.Area
	Skipped []Skip
}

// ProblemCount sums the problems across all Areas.
func (r Result) ProblemCount() int {
	n := 0
	for _, a := range r.Areas {
		n += a.ProblemCount()
	}
	return n
}

// Crawler orchestrates a hierarchical crawl. It holds no per-crawl state and
// may run several crawls concurrently.
type Crawler struct {
	fetcher Fetcher
	cfg     Config
	logger  *zap.Logger
	ids     id.Generator
	tracer  trace.Tracer
}

// New builds a Crawler. fetcher is typically wrapped with WithRetry and
// WithLimit by the caller.
func New(fetcher Fetcher, cfg Config, logger *zap.Logger) *Crawler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	metrics.Init()
	return &Crawler{
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logger.Named("crawler"),
		ids:     id.UUIDGenerator{},
		tracer:  tp.Tracer(tracerName),
	}
}

// Crawl fetches rootURL and every Area, Sector and Problem reachable from it.
//
// A failure to fetch the root page is returned as an error. When ctx is
// canceled mid-crawl, Crawl returns the Areas that completed beforehand
// together with the context error.
func (c *Crawler) Crawl(ctx context.Context, rootURL string) (Result, error) {
	start := time.Now()
	runID, err := c.ids.NewID()
	if err != nil {
		return Result{}, fmt.Errorf("start crawl: %w", err)
	}
	ctx, span := c.tracer.Start(ctx, "crawler.crawl", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("url", rootURL),
	))
	defer span.End()

	r := &run{
		fetcher: c.fetcher,
		tracer:  c.tracer,
		log:     c.logger.With(zap.String("run_id", runID)),
	}
	r.log.Info("crawl started", zap.String("url", rootURL), zap.Int("concurrency", c.cfg.Concurrency))

	res := Result{RunID: runID, Areas: []model.Area{}, Skipped: []Skip{}}
	root, err := r.page(ctx, rootURL, extract.KindRoot)
	if err != nil {
		span.SetStatus(codes.Error, "root fetch failed")
		return res, fmt.Errorf("crawl root %s: %w", rootURL, err)
	}

	slots := make([]*model.Area, len(root.Areas))
	var g errgroup.Group
	g.SetLimit(c.cfg.Concurrency)
	for i, link := range root.Areas {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			area, ok := r.area(ctx, link)
			if ok && ctx.Err() == nil {
				slots[i] = &area
			}
			return nil
		})
	}
	_ = g.Wait()

	res.Areas = model.Normalize(compact(slots))
	res.Skipped = r.skipped()
	metrics.ObserveCrawl(time.Since(start))
	r.log.Info("crawl finished",
		zap.Int("areas", len(res.Areas)),
		zap.Int("problems", res.ProblemCount()),
		zap.Int("skipped", len(res.Skipped)),
	)
	span.SetAttributes(
		attribute.Int("areas", len(res.Areas)),
		attribute.Int("skipped", len(res.Skipped)),
	)
	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "interrupted")
		return res, fmt.Errorf("crawl %s: %w", rootURL, err)
	}
	return res, nil
}

// run holds the mutable state of a single Crawl call.
type run struct {
	fetcher Fetcher
	tracer  trace.Tracer
	log     *zap.Logger

	mu    sync.Mutex
	skips []Skip
}

func (r *run) area(ctx context.Context, link extract.Link) (model.Area, bool) {
	e, err := r.page(ctx, link.URL, extract.KindArea)
	if err != nil {
		r.skip(link.URL, extract.KindArea, err)
		return model.Area{}, false
	}
	name := cmp.Or(e.Name, link.Name)
	if !r.named(name, link.URL, extract.KindArea) {
		return model.Area{}, false
	}
	area := model.Area{
		Name:        name,
		SourceURL:   link.URL,
		Description: e.Description,
		Coordinate:  e.Coordinate,
		MapsLink:    e.MapsLink,
		Images:      e.Images,
		Sectors:     []model.Sector{},
		Problems:    []model.Problem{},
	}
	if len(e.Sectors) > 0 {
		area.Sectors = r.sectors(ctx, e.Sectors)
	} else {
		area.Problems = r.problems(ctx, e.Problems)
	}
	r.log.Debug("area populated",
		zap.String("url", link.URL),
		zap.String("kind", extract.KindArea.String()),
		zap.Bool("sectorless", len(e.Sectors) == 0),
		zap.Int("children", area.ChildCount()),
	)
	return area, true
}

type sectorPage struct {
	link   extract.Link
	entity extract.Entity
}

// sectors fetches every sector page before any of their problems.
func (r *run) sectors(ctx context.Context, links []extract.Link) []model.Sector {
	pages := make([]*sectorPage, len(links))
	var fetch errgroup.Group
	for i, link := range links {
		fetch.Go(func() error {
			e, err := r.page(ctx, link.URL, extract.KindSector)
			if err != nil {
				r.skip(link.URL, extract.KindSector, err)
				return nil
			}
			pages[i] = &sectorPage{link: link, entity: e}
			return nil
		})
	}
	_ = fetch.Wait()

	slots := make([]*model.Sector, len(links))
	var populate errgroup.Group
	for i, p := range pages {
		if p == nil {
			continue
		}
		name := cmp.Or(p.entity.Name, p.link.Name)
		if !r.named(name, p.link.URL, extract.KindSector) {
			continue
		}
		populate.Go(func() error {
			slots[i] = &model.Sector{
				Name:        name,
				SourceURL:   p.link.URL,
				Description: p.entity.Description,
				Coordinate:  p.entity.Coordinate,
				MapsLink:    p.entity.MapsLink,
				Images:      p.entity.Images,
				Problems:    r.problems(ctx, p.entity.Problems),
			}
			return nil
		})
	}
	_ = populate.Wait()
	return compact(slots)
}

func (r *run) problems(ctx context.Context, links []extract.Link) []model.Problem {
	slots := make([]*model.Problem, len(links))
	var g errgroup.Group
	for i, link := range links {
		g.Go(func() error {
			e, err := r.page(ctx, link.URL, extract.KindProblem)
			if err != nil {
				r.skip(link.URL, extract.KindProblem, err)
				return nil
			}
			name := cmp.Or(e.Name, link.Name)
			if !r.named(name, link.URL, extract.KindProblem) {
				return nil
			}
			slots[i] = &model.Problem{
				Name:        name,
				Grade:       cmp.Or(e.Grade, link.Grade),
				Rating:      model.ClampRating(e.Rating),
				SourceURL:   link.URL,
				Description: e.Description,
				Coordinate:  e.Coordinate,
				MapsLink:    e.MapsLink,
				Landing:     e.Landing,
				SitStart:    e.SitStart,
				Images:      e.Images,
			}
			return nil
		})
	}
	_ = g.Wait()
	return compact(slots)
}

// page fetches rawURL and runs the extraction rules for kind on it.
func (r *run) page(ctx context.Context, rawURL string, kind extract.Kind) (extract.Entity, error) {
	ctx, span := r.tracer.Start(ctx, "crawler.page", trace.WithAttributes(
		attribute.String("url", rawURL),
		attribute.String("kind", kind.String()),
	))
	defer span.End()

	p, err := r.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		metrics.ObserveFetch(kind.String(), fetchStatus(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, fetchStatus(err))
		return extract.Entity{}, err
	}
	span.SetAttributes(attribute.Int("status", p.StatusCode), attribute.Int("bytes", len(p.Body)))
	metrics.ObserveFetch(kind.String(), "ok")

	base, err := url.Parse(cmp.Or(p.URL, rawURL))
	if err != nil {
		return extract.Entity{}, fmt.Errorf("parse url %s: %w", rawURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	if err != nil {
		return extract.Entity{}, fmt.Errorf("parse html %s: %w", rawURL, err)
	}
	e, ruleErrs := extract.Extract(doc, base, kind)
	for _, ruleErr := range ruleErrs {
		r.log.Warn("extraction rule failed",
			zap.String("url", rawURL),
			zap.String("kind", kind.String()),
			zap.Error(ruleErr),
		)
	}
	return e, nil
}

// named reports whether name can identify a record. Records that cannot are
// skipped.
func (r *run) named(name, rawURL string, kind extract.Kind) bool {
	if _, err := sanitize.Name(name); err != nil {
		r.skip(rawURL, kind, fmt.Errorf("unusable name %q: %w", name, err))
		return false
	}
	return true
}

func (r *run) skip(rawURL string, kind extract.Kind, err error) {
	fields := []zap.Field{
		zap.String("url", rawURL),
		zap.String("kind", kind.String()),
		zap.Error(err),
	}
	reason := skipReason(err)
	switch reason {
	case "canceled":
		r.log.Debug("fetch canceled", fields...)
		return
	case "not_found":
		r.log.Warn("missing page", fields...)
	case "empty_name":
		r.log.Warn("dropping unnamed record", fields...)
	default:
		r.log.Error("fetch failed", fields...)
	}
	metrics.ObserveSkip(kind.String(), reason)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.skips = append(r.skips, Skip{URL: rawURL, Kind: kind.String(), Reason: reason, Detail: err.Error()})
}

// skipped returns the recorded skips sorted by URL so reports are stable.
func (r *run) skipped() []Skip {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := slices.Clone(r.skips)
	slices.SortFunc(out, func(a, b Skip) int {
		return cmp.Or(cmp.Compare(a.URL, b.URL), cmp.Compare(a.Kind, b.Kind))
	})
	if out == nil {
		out = []Skip{}
	}
	return out
}

func fetchStatus(err error) string {
	if reason := skipReason(err); reason != "empty_name" {
		return reason
	}
	return "error"
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, sanitize.ErrEmptyName):
		return "empty_name"
	default:
		return "error"
	}
}

func compact[T any](slots []*T) []T {
	out := make([]T, 0, len(slots))
	for _, s := range slots {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}
