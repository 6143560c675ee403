package pdfdecode

import (
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractByRow uses the library's native row grouping. Good enough for
// single-column statements.
func extractByRow(r *pdf.Reader, pages int) string {
	var out []string
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			var parts []string
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			line := strings.TrimSpace(strings.Join(parts, " "))
			if line != "" {
				lines = append(lines, line)
			}
		}
		out = append(out, strings.Join(lines, "\n"))
	}
	return strings.Join(out, "\n\n")
}

// extractByPosition reconstructs each page from raw text fragments: fragments
// are grouped into lines by vertical position and ordered left to right
// within a line. This recovers correct reading order on multi-column
// statement layouts, where native order interleaves the columns.
func extractByPosition(r *pdf.Reader, pages int) string {
	var out []string
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text := reconstructPage(page.Content().Text)
		if text != "" {
			out = append(out, text)
		}
	}
	return strings.Join(out, "\n\n")
}

type fragment struct {
	x float64
	s string
}

func reconstructPage(items []pdf.Text) string {
	// Group fragments by rounded Y coordinate.
	lines := make(map[int][]fragment)
	for _, t := range items {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		y := int(math.Round(t.Y))
		lines[y] = append(lines[y], fragment{x: t.X, s: t.S})
	}

	// PDF Y grows bottom to top, so top of page first means descending.
	ys := make([]int, 0, len(lines))
	for y := range lines {
		ys = append(ys, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ys)))

	var rendered []string
	for _, y := range ys {
		frags := lines[y]
		sort.Slice(frags, func(a, b int) bool {
			return frags[a].x < frags[b].x
		})

		var parts []string
		for _, f := range frags {
			parts = append(parts, f.s)
		}
		line := strings.TrimSpace(strings.Join(parts, " "))
		if line != "" {
			rendered = append(rendered, line)
		}
	}
	return strings.Join(rendered, "\n")
}
