package site

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/AdamSzakal/gboc-get/internal/model"
	"github.com/AdamSzakal/gboc-get/internal/sanitize"
)

const (
	indexFile = "index.html"
	styleFile = "styles.css"
)

type link struct {
	Name string
	Href string
}

type entry struct {
	Name   string
	Href   string
	Detail string
}

type meta struct {
	Title     string
	SiteTitle string
	Root      string
	Back      *link
	SourceURL string
}

type rootView struct {
	meta
	Areas []entry
}

type details struct {
	Description string
	Coordinate  string
	MapsLink    string
	Images      []string
}

type containerView struct {
	meta
	details
	Name     string
	Sectors  []entry
	Problems []entry
}

type problemView struct {
	meta
	details
	Name     string
	Grade    string
	Rating   int
	Landing  string
	SitStart string
}

// namer hands out distinct tokens among one set of siblings.
type namer struct {
	taken map[string]bool
}

func newNamer(reserved ...string) *namer {
	n := &namer{taken: make(map[string]bool)}
	for _, r := range reserved {
		n.taken[r] = true
	}
	return n
}

// token sanitizes name. When the token is already taken by an earlier
// sibling the first free numeric suffix starting at -2 is appended.
func (n *namer) token(name string) (string, error) {
	base, err := sanitize.Name(name)
	if err != nil {
		return "", fmt.Errorf("name %q: %w", name, err)
	}
	tok := base
	for i := 2; n.taken[tok]; i++ {
		tok = base + string(sanitize.Separator) + strconv.Itoa(i)
	}
	n.taken[tok] = true
	return tok, nil
}

// Plan renders every page of the site without writing anything. Pages are
// returned root first, followed by a depth-first walk of the tree.
//
// A tree that breaks the hierarchy invariants, such as an Area carrying both
// sectors and direct problems, is rejected before any page is rendered.
func (s *Synthesizer) Plan(areas []model.Area) ([]Page, error) {
	if err := model.Validate(areas); err != nil {
		return nil, fmt.Errorf("invalid area tree: %w", err)
	}
	p := &planner{s: s}
	if err := p.root(areas); err != nil {
		return nil, err
	}
	return p.pages, nil
}

type planner struct {
	s     *Synthesizer
	pages []Page
}

func (p *planner) add(name, tmpl string, view any) error {
	body, err := p.s.render(tmpl, view)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	p.pages = append(p.pages, Page{Path: name, Body: body})
	return nil
}

func (p *planner) meta(title, dir, sourceURL string, back *link) meta {
	depth := 0
	if dir != "" {
		depth = strings.Count(dir, "/") + 1
	}
	return meta{
		Title:     title + " | " + p.s.cfg.Title,
		SiteTitle: p.s.cfg.Title,
		Root:      strings.Repeat("../", depth),
		Back:      back,
		SourceURL: sourceURL,
	}
}

func (p *planner) root(areas []model.Area) error {
	names := newNamer()
	tokens := make([]string, len(areas))
	view := rootView{
		meta:  meta{Title: p.s.cfg.Title, SiteTitle: p.s.cfg.Title},
		Areas: make([]entry, 0, len(areas)),
	}
	for i, a := range areas {
		tok, err := names.token(a.Name)
		if err != nil {
			return fmt.Errorf("area %s: %w", a.SourceURL, err)
		}
		tokens[i] = tok
		detail := count(len(a.Problems), "problem")
		if a.HasSectors() {
			detail = count(len(a.Sectors), "sector")
		}
		view.Areas = append(view.Areas, entry{Name: a.Name, Href: path.Join(tok, indexFile), Detail: detail})
	}
	if err := p.add(indexFile, "root.html", view); err != nil {
		return err
	}
	p.pages = append(p.pages, Page{Path: styleFile, Body: p.s.css})

	for i, a := range areas {
		if err := p.area(tokens[i], a); err != nil {
			return err
		}
	}
	return nil
}

func (p *planner) area(dir string, a model.Area) error {
	view := containerView{
		meta:    p.meta(a.Name, dir, a.SourceURL, &link{Name: p.s.cfg.Title, Href: "../" + indexFile}),
		details: details{a.Description, a.Coordinate, a.MapsLink, a.Images},
		Name:    a.Name,
	}
	self := &link{Name: a.Name, Href: indexFile}

	if !a.HasSectors() {
		problems, err := p.problemPages(dir, a.Problems, self)
		if err != nil {
			return fmt.Errorf("area %q: %w", a.Name, err)
		}
		view.Problems = problems.entries
		if err := p.add(path.Join(dir, indexFile), "container.html", view); err != nil {
			return err
		}
		p.pages = append(p.pages, problems.pages...)
		return nil
	}

	names := newNamer()
	tokens := make([]string, len(a.Sectors))
	for i, sec := range a.Sectors {
		tok, err := names.token(sec.Name)
		if err != nil {
			return fmt.Errorf("area %q: sector %s: %w", a.Name, sec.SourceURL, err)
		}
		tokens[i] = tok
		view.Sectors = append(view.Sectors, entry{
			Name:   sec.Name,
			Href:   path.Join(tok, indexFile),
			Detail: count(len(sec.Problems), "problem"),
		})
	}
	if err := p.add(path.Join(dir, indexFile), "container.html", view); err != nil {
		return err
	}
	for i, sec := range a.Sectors {
		if err := p.sector(path.Join(dir, tokens[i]), a.Name, sec); err != nil {
			return fmt.Errorf("area %q: %w", a.Name, err)
		}
	}
	return nil
}

func (p *planner) sector(dir, areaName string, sec model.Sector) error {
	problems, err := p.problemPages(dir, sec.Problems, &link{Name: sec.Name, Href: indexFile})
	if err != nil {
		return fmt.Errorf("sector %q: %w", sec.Name, err)
	}
	view := containerView{
		meta:     p.meta(sec.Name, dir, sec.SourceURL, &link{Name: areaName, Href: "../" + indexFile}),
		details:  details{sec.Description, sec.Coordinate, sec.MapsLink, sec.Images},
		Name:     sec.Name,
		Problems: problems.entries,
	}
	if err := p.add(path.Join(dir, indexFile), "container.html", view); err != nil {
		return err
	}
	p.pages = append(p.pages, problems.pages...)
	return nil
}

type problemSet struct {
	entries []entry
	pages   []Page
}

// problemPages renders the problems that share dir. The index token is
// reserved so no problem overwrites the listing page.
func (p *planner) problemPages(dir string, problems []model.Problem, back *link) (problemSet, error) {
	names := newNamer(strings.TrimSuffix(indexFile, ".html"))
	set := problemSet{entries: make([]entry, 0, len(problems))}
	for _, pr := range problems {
		tok, err := names.token(pr.Name)
		if err != nil {
			return problemSet{}, fmt.Errorf("problem %s: %w", pr.SourceURL, err)
		}
		file := tok + ".html"
		view := problemView{
			meta:     p.meta(pr.Name, dir, pr.SourceURL, back),
			details:  details{pr.Description, pr.Coordinate, pr.MapsLink, pr.Images},
			Name:     pr.Name,
			Grade:    pr.Grade,
			Rating:   model.ClampRating(pr.Rating),
			Landing:  pr.Landing,
			SitStart: pr.SitStart,
		}
		body, err := p.s.render("problem.html", view)
		if err != nil {
			return problemSet{}, fmt.Errorf("%s: %w", path.Join(dir, file), err)
		}
		set.entries = append(set.entries, entry{Name: pr.Name, Href: file, Detail: pr.Grade})
		set.pages = append(set.pages, Page{Path: path.Join(dir, file), Body: body})
	}
	return set, nil
}

func count(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
