package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/AdamSzakal/gboc-get/internal/model"
)

// Selectors used against the guide markup.
const (
	selAreaList         = "#arealist2 a.inlinetable"
	selAreaListFallback = "a.inlinetable"
	selHeader           = ".breadcrumb + h2"
	selDescription      = "div.description p"
	selProblemDesc      = "div.description > p"
	selMapsLink         = `a[href*="maps.google.com"], a[href*="google.com/maps"]`
	selThumbnail        = "a.thumbnail"
	selSectorLinks      = ".sectorlinkitem > a"
	selHeadings         = "h3"
	selObjectList       = "h3:not(#comments):first-of-type + .object-list li a"
	selNavObjectList    = "h3:first-of-type + ul.nav-list.object-list a"
	selStars            = "h2 i.staricon"
	selNavItems         = "ul.nav-list li"

	problemHeading = "Problem"
	landingLabel   = "Landning"
	sitStartLabel  = "Sittstart"
)

var (
	headerRules = []rule{
		{field: "name", apply: func(doc *goquery.Document, _ *url.URL, e *Entity) {
			e.Name = FirstLine(doc.Find(selHeader).First().Text())
		}},
		{field: "description", apply: func(doc *goquery.Document, _ *url.URL, e *Entity) {
			e.Description = paragraphs(doc.Find(selDescription))
		}},
	}
	locationRules = []rule{
		{field: "coordinate", apply: func(doc *goquery.Document, _ *url.URL, e *Entity) {
			e.Coordinate = AfterLabel(doc.Find(selMapsLink).First().Text())
		}},
		{field: "mapsLink", apply: func(doc *goquery.Document, base *url.URL, e *Entity) {
			href, _ := doc.Find(selMapsLink).First().Attr("href")
			e.MapsLink = resolve(base, href)
		}},
		{field: "images", apply: func(doc *goquery.Document, base *url.URL, e *Entity) {
			e.Images = hrefs(doc.Find(selThumbnail), base)
		}},
	}

	rootRules = []rule{
		{field: "areas", apply: func(doc *goquery.Document, base *url.URL, e *Entity) {
			sel := doc.Find(selAreaList)
			if sel.Length() == 0 {
				sel = doc.Find(selAreaListFallback)
			}
			e.Areas = links(sel, base, ListName)
		}},
	}

	areaRules = concat(headerRules, locationRules, []rule{
		{field: "sectors", apply: func(doc *goquery.Document, base *url.URL, e *Entity) {
			e.Sectors = links(doc.Find(selSectorLinks), base, FirstLine)
		}},
		{field: "problems", apply: func(doc *goquery.Document, base *url.URL, e *Entity) {
			e.Problems = problemLinks(doc, base)
		}},
	})

	sectorRules = concat(headerRules, locationRules, []rule{
		{field: "problems", apply: func(doc *goquery.Document, base *url.URL, e *Entity) {
			e.Problems = problemLinks(doc, base)
		}},
	})

	problemRules = concat([]rule{
		{field: "title", apply: func(doc *goquery.Document, _ *url.URL, e *Entity) {
			e.Name, e.Grade = ParseTitle(doc.Find(selHeader).First().Text())
		}},
		{field: "rating", apply: func(doc *goquery.Document, _ *url.URL, e *Entity) {
			e.Rating = model.ClampRating(doc.Find(selStars).Length())
		}},
		{field: "description", apply: func(doc *goquery.Document, _ *url.URL, e *Entity) {
			e.Description = paragraphs(doc.Find(selProblemDesc))
		}},
	}, locationRules, []rule{
		{field: "landing", apply: func(doc *goquery.Document, _ *url.URL, e *Entity) {
			e.Landing = labelledItem(doc, landingLabel)
		}},
		{field: "sitStart", apply: func(doc *goquery.Document, _ *url.URL, e *Entity) {
			e.SitStart = labelledItem(doc, sitStartLabel)
		}},
	})
)

func rulesFor(kind Kind) []rule {
	switch kind {
	case KindRoot:
		return rootRules
	case KindArea:
		return areaRules
	case KindSector:
		return sectorRules
	case KindProblem:
		return problemRules
	default:
		return nil
	}
}

func concat(groups ...[]rule) []rule {
	var out []rule
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// problemLinks finds the problem list. The list follows an h3 reading
// "Problem"; older page layouts only expose it as the first object list.
func problemLinks(doc *goquery.Document, base *url.URL) []Link {
	var anchors []*goquery.Selection
	for _, h := range doc.Find(selHeadings).EachIter() {
		if NormalizeSpace(h.Text()) != problemHeading {
			continue
		}
		for _, a := range h.Next().Find("a").EachIter() {
			anchors = append(anchors, a)
		}
	}
	if len(anchors) > 0 {
		return problemLinkList(anchors, base)
	}
	for _, sel := range []string{selObjectList, selNavObjectList} {
		found := doc.Find(sel)
		if found.Length() == 0 {
			continue
		}
		for _, a := range found.EachIter() {
			anchors = append(anchors, a)
		}
		return problemLinkList(anchors, base)
	}
	return []Link{}
}

func problemLinkList(anchors []*goquery.Selection, base *url.URL) []Link {
	out := make([]Link, 0, len(anchors))
	seen := make(map[string]struct{}, len(anchors))
	for _, a := range anchors {
		href, _ := a.Attr("href")
		target := resolve(base, href)
		if target == "" {
			continue
		}
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}
		name, grade := ParseTitle(a.Text())
		out = append(out, Link{Name: name, URL: target, Grade: grade})
	}
	return out
}

// links collects anchors in document order, dropping those without a usable
// href and repeated targets.
func links(sel *goquery.Selection, base *url.URL, name func(string) string) []Link {
	out := make([]Link, 0, sel.Length())
	seen := make(map[string]struct{}, sel.Length())
	for _, a := range sel.EachIter() {
		href, _ := a.Attr("href")
		target := resolve(base, href)
		if target == "" {
			continue
		}
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, Link{Name: name(a.Text()), URL: target})
	}
	return out
}

func hrefs(sel *goquery.Selection, base *url.URL) []string {
	out := make([]string, 0, sel.Length())
	for _, a := range sel.EachIter() {
		href, _ := a.Attr("href")
		if target := resolve(base, href); target != "" {
			out = append(out, target)
		}
	}
	return out
}

// paragraphs joins the normalized text of each matched element with a space.
func paragraphs(sel *goquery.Selection) string {
	parts := make([]string, 0, sel.Length())
	for _, p := range sel.EachIter() {
		if text := NormalizeSpace(p.Text()); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

func labelledItem(doc *goquery.Document, label string) string {
	for _, li := range doc.Find(selNavItems).EachIter() {
		text := NormalizeSpace(li.Text())
		if strings.Contains(text, label) {
			return AfterLabel(text)
		}
	}
	return ""
}

// resolve makes href absolute against base and drops its fragment. It returns
// "" for empty, fragment-only, or unparsable hrefs.
func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	ref.Fragment = ""
	return ref.String()
}
