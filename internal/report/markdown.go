// Package report writes a Markdown summary of a crawl run for operators.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/AdamSzakal/gboc-get/internal/crawler"
	"github.com/AdamSzakal/gboc-get/internal/id"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// Run describes one crawl for the report.
type Run struct {
	// RootURL is the page the crawl started from.
	RootURL string
	// DataFile is where the Areas were saved and DataDigest its SHA-256.
	DataFile   string
	DataDigest string
	Result     crawler.Result
}

// Write renders run as Markdown to out.
func Write(out io.Writer, run Run) error {
	md := markdown.NewMarkdown(out)

	writeHeader(md, run)
	writeAreas(md, run.Result)
	writeSkipped(md, run.Result)

	if err := md.Build(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// WriteFile renders the report to path, creating its directory.
func WriteFile(path string, run Run) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	// #nosec G304 -- path comes from operator configuration.
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close report: %w", cerr)
		}
	}()
	return Write(f, run)
}

func writeHeader(md *markdown.Markdown, run Run) {
	res := run.Result
	started := "unknown"
	if t, err := id.Time(res.RunID); err == nil {
		started = t.Format(timeLayout)
	}
	sectors := 0
	for _, a := range res.Areas {
		sectors += len(a.Sectors)
	}

	rows := [][]string{
		{"Run", "`" + res.RunID + "`"},
		{"Started", started},
		{"Root", run.RootURL},
	}
	if run.DataFile != "" {
		rows = append(rows, []string{"Data file", run.DataFile})
	}
	if run.DataDigest != "" {
		rows = append(rows, []string{"SHA-256", "`" + run.DataDigest + "`"})
	}
	rows = append(rows,
		[]string{"Areas", strconv.Itoa(len(res.Areas))},
		[]string{"Sectors", strconv.Itoa(sectors)},
		[]string{"Problems", strconv.Itoa(res.ProblemCount())},
		[]string{"Skipped", strconv.Itoa(len(res.Skipped))},
	)

	md.H1("Crawl Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	if n := len(res.Skipped); n > 0 {
		md.Warningf("%d page(s) were skipped. They are missing from the data file.", n)
	} else {
		md.Tip("Every discovered page was crawled.")
	}
	md.PlainText("")
}

func writeAreas(md *markdown.Markdown, res crawler.Result) {
	md.H2("Areas")
	md.PlainText("")
	if len(res.Areas) == 0 {
		md.PlainText("No areas were crawled.")
		md.PlainText("")
		return
	}
	rows := make([][]string, 0, len(res.Areas))
	for _, a := range res.Areas {
		rows = append(rows, []string{a.Name, strconv.Itoa(len(a.Sectors)), strconv.Itoa(a.ProblemCount())})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Area", "Sectors", "Problems"},
		Rows:   rows,
	})
	md.PlainText("")
}

func writeSkipped(md *markdown.Markdown, res crawler.Result) {
	if len(res.Skipped) == 0 {
		return
	}
	md.H2("Skipped")
	md.PlainText("")
	rows := make([][]string, 0, len(res.Skipped))
	for _, s := range res.Skipped {
		rows = append(rows, []string{s.URL, s.Kind, s.Reason, s.Detail})
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Kind", "Reason", "Detail"},
		Rows:   rows,
	})
	md.PlainText("")
}
