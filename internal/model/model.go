// Package model defines the Area -> Sector -> Problem tree produced by the crawler
// and consumed by the site synthesizer.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MaxRating is the highest star rating a problem can carry.
const MaxRating = 3

// Area is a top-level climbing area. Sectorless areas carry their problems
// directly in Problems; Sectors and Problems are never both populated.
type Area struct {
	Name        string    `json:"name"`
	SourceURL   string    `json:"sourceUrl"`
	Description string    `json:"description"`
	Coordinate  string    `json:"coordinate"`
	MapsLink    string    `json:"mapsLink"`
	Images      []string  `json:"images"`
	Sectors     []Sector  `json:"sectors"`
	Problems    []Problem `json:"problems"`
}

// Sector groups problems inside an area.
type Sector struct {
	Name        string    `json:"name"`
	SourceURL   string    `json:"sourceUrl"`
	Description string    `json:"description"`
	Coordinate  string    `json:"coordinate"`
	MapsLink    string    `json:"mapsLink"`
	Images      []string  `json:"images"`
	Problems    []Problem `json:"problems"`
}

// Problem is a single boulder problem.
type Problem struct {
	Name        string   `json:"name"`
	Grade       string   `json:"grade"`
	Rating      int      `json:"rating"`
	SourceURL   string   `json:"sourceUrl"`
	Description string   `json:"description"`
	Coordinate  string   `json:"coordinate"`
	MapsLink    string   `json:"mapsLink"`
	Landing     string   `json:"landing"`
	SitStart    string   `json:"sitStart"`
	Images      []string `json:"images"`
}

// HasSectors reports whether the area is grouped into sectors.
func (a Area) HasSectors() bool {
	return len(a.Sectors) > 0
}

// ChildCount is the number of sectors when present, otherwise the number of direct problems.
func (a Area) ChildCount() int {
	if a.HasSectors() {
		return len(a.Sectors)
	}
	return len(a.Problems)
}

// ProblemCount counts every problem under the area, across sectors.
func (a Area) ProblemCount() int {
	n := len(a.Problems)
	for _, s := range a.Sectors {
		n += len(s.Problems)
	}
	return n
}

// ClampRating maps any value outside [0, MaxRating] to 0.
func ClampRating(r int) int {
	if r < 0 || r > MaxRating {
		return 0
	}
	return r
}

// legacy documents written by the first scraper used "url" for the source link.
type legacyURL struct {
	URL string `json:"url"`
}

// UnmarshalJSON accepts both "sourceUrl" and the legacy "url" key.
func (a *Area) UnmarshalJSON(data []byte) error {
	type plain Area
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.SourceURL == "" {
		var l legacyURL
		if err := json.Unmarshal(data, &l); err == nil {
			p.SourceURL = l.URL
		}
	}
	*a = Area(p)
	return nil
}

// UnmarshalJSON accepts both "sourceUrl" and the legacy "url" key.
func (s *Sector) UnmarshalJSON(data []byte) error {
	type plain Sector
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.SourceURL == "" {
		var l legacyURL
		if err := json.Unmarshal(data, &l); err == nil {
			p.SourceURL = l.URL
		}
	}
	*s = Sector(p)
	return nil
}

// UnmarshalJSON accepts both "sourceUrl" and the legacy "url" key.
func (p *Problem) UnmarshalJSON(data []byte) error {
	type plain Problem
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v.SourceURL == "" {
		var l legacyURL
		if err := json.Unmarshal(data, &l); err == nil {
			v.SourceURL = l.URL
		}
	}
	*p = Problem(v)
	return nil
}

// Normalize replaces nil slices with empty ones throughout the tree so the
// serialized document never carries null lists.
func Normalize(areas []Area) []Area {
	if areas == nil {
		return []Area{}
	}
	for i := range areas {
		a := &areas[i]
		a.Images = nonNil(a.Images)
		if a.Sectors == nil {
			a.Sectors = []Sector{}
		}
		a.Problems = normalizeProblems(a.Problems)
		for j := range a.Sectors {
			s := &a.Sectors[j]
			s.Images = nonNil(s.Images)
			s.Problems = normalizeProblems(s.Problems)
		}
	}
	return areas
}

func normalizeProblems(ps []Problem) []Problem {
	if ps == nil {
		return []Problem{}
	}
	for i := range ps {
		ps[i].Images = nonNil(ps[i].Images)
	}
	return ps
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Validate reports every hierarchy invariant violation in the tree.
func Validate(areas []Area) error {
	var errs []error
	for _, a := range areas {
		if a.Name == "" {
			errs = append(errs, fmt.Errorf("area %q: empty name", a.SourceURL))
		}
		if len(a.Sectors) > 0 && len(a.Problems) > 0 {
			errs = append(errs, fmt.Errorf("area %q: has both sectors and direct problems", a.Name))
		}
		errs = append(errs, validateProblems(a.Name, a.Problems)...)
		for _, s := range a.Sectors {
			if s.Name == "" {
				errs = append(errs, fmt.Errorf("area %q: sector %q has empty name", a.Name, s.SourceURL))
			}
			errs = append(errs, validateProblems(a.Name+"/"+s.Name, s.Problems)...)
		}
	}
	return errors.Join(errs...)
}

func validateProblems(parent string, ps []Problem) []error {
	var errs []error
	for _, p := range ps {
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("%s: problem %q has empty name", parent, p.SourceURL))
		}
		if p.Rating < 0 || p.Rating > MaxRating {
			errs = append(errs, fmt.Errorf("%s: problem %q rating %d out of range", parent, p.Name, p.Rating))
		}
	}
	return errs
}
