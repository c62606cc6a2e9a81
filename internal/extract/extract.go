// Package extract pulls Area, Sector and Problem attributes out of fetched
// guide pages using fixed, ordered selector rules.
//
// Extraction never fails as a whole: each rule runs on its own, and a rule
// whose selector matches nothing leaves its field at the zero value. A rule
// that panics on unexpected markup is recovered and reported in the returned
// error slice while the remaining rules still run.
package extract

import (
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// Kind identifies which page type a document represents.
type Kind int

// Page kinds, in traversal order.
const (
	KindRoot Kind = iota
	KindArea
	KindSector
	KindProblem
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindArea:
		return "area"
	case KindSector:
		return "sector"
	case KindProblem:
		return "problem"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Link is a child reference discovered on a page.
type Link struct {
	Name  string
	URL   string
	Grade string
}

// Entity is the partial record extracted from one page. Which fields are
// populated depends on the Kind.
type Entity struct {
	Kind        Kind
	Name        string
	Description string
	Coordinate  string
	MapsLink    string
	Images      []string
	Grade       string
	Rating      int
	Landing     string
	SitStart    string

	// Areas is populated for KindRoot.
	Areas []Link
	// Sectors is populated for KindArea.
	Sectors []Link
	// Problems is populated for KindArea (direct problems) and KindSector.
	Problems []Link
}

// RuleError reports a rule that could not be applied.
type RuleError struct {
	Kind  Kind
	Field string
	Cause any
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("extract %s.%s: %v", e.Kind, e.Field, e.Cause)
}

// Extract applies the rule list for kind to doc. base resolves relative
// links; it may be nil when the page URL is unknown.
func Extract(doc *goquery.Document, base *url.URL, kind Kind) (Entity, []error) {
	e := Entity{
		Kind:     kind,
		Images:   []string{},
		Areas:    []Link{},
		Sectors:  []Link{},
		Problems: []Link{},
	}
	if doc == nil {
		return e, nil
	}
	var errs []error
	for _, r := range rulesFor(kind) {
		if err := r.run(doc, base, &e); err != nil {
			errs = append(errs, err)
		}
	}
	return e, errs
}

type rule struct {
	field string
	apply func(doc *goquery.Document, base *url.URL, e *Entity)
}

func (r rule) run(doc *goquery.Document, base *url.URL, e *Entity) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &RuleError{Kind: e.Kind, Field: r.field, Cause: p}
		}
	}()
	r.apply(doc, base, e)
	return nil
}
