// Package site renders the Area tree as a static site: one directory per
// Area and Sector holding an index page, and one page per Problem.
//
// Rendering is split in two. Plan computes every output file in memory and
// is fully deterministic; Synthesize writes the planned files through a
// Writer. Running Synthesize twice on the same input produces identical trees.
package site

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AdamSzakal/gboc-get/internal/model"
)

const defaultWorkers = 8

//go:embed templates/*.html templates/styles.css
var templateFS embed.FS

// Writer stores one site file. Implementations create parent directories and
// replace existing files.
type Writer interface {
	WriteFile(ctx context.Context, path string, data []byte) error
}

// Config controls rendering.
type Config struct {
	// Title heads the root index.
	Title string
	// Workers bounds concurrent writes.
	Workers int
}

// Page is one planned output file. Path is slash-separated and relative to
// the site root.
type Page struct {
	Path string
	Body []byte
}

// Synthesizer renders and writes sites.
type Synthesizer struct {
	w      Writer
	cfg    Config
	logger *zap.Logger
	tmpl   *template.Template
	css    []byte
}

// New parses the embedded templates and builds a Synthesizer.
func New(w Writer, cfg Config, logger *zap.Logger) (*Synthesizer, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.Title == "" {
		cfg.Title = "Climbing Areas"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	tmpl, err := template.New("site").Funcs(template.FuncMap{
		"stars": stars,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	css, err := templateFS.ReadFile("templates/styles.css")
	if err != nil {
		return nil, fmt.Errorf("read stylesheet: %w", err)
	}
	return &Synthesizer{
		w:      w,
		cfg:    cfg,
		logger: logger.Named("site"),
		tmpl:   tmpl,
		css:    css,
	}, nil
}

// Synthesize renders areas and writes every page. The first write error
// cancels the remaining writes and is returned.
func (s *Synthesizer) Synthesize(ctx context.Context, areas []model.Area) error {
	start := time.Now()
	pages, err := s.Plan(areas)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for _, p := range pages {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := s.w.WriteFile(gctx, p.Path, p.Body); err != nil {
				return fmt.Errorf("write %s: %w", p.Path, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("site synthesis aborted", zap.Error(err))
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("synthesize site: %w", err)
	}
	s.logger.Info("site written",
		zap.Int("areas", len(areas)),
		zap.Int("pages", len(pages)),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

func (s *Synthesizer) render(name string, data any) ([]byte, error) {
	var b strings.Builder
	if err := s.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return []byte(b.String()), nil
}

// stars renders a rating as that many star glyphs.
func stars(rating int) string {
	return strings.Repeat("★", model.ClampRating(rating))
}
