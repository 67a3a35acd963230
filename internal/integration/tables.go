package integration

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/abelzeko/berlin-covid/internal/entities"
)

// Fingerprint decides whether a table header is the one a scraper wants
type Fingerprint func(header []string) bool

var footnoteRe = regexp.MustCompile(`\[[^\]]*\]`)

// ExtractTables returns every table on the page in document order. The first
// row of each table is its header; nested tables are not merged into their
// parents.
func ExtractTables(doc *goquery.Document, source string) []entities.RawTable {
	var tables []entities.RawTable
	doc.Find("table").Each(func(index int, table *goquery.Selection) {
		rows := table.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
			return tr.Closest("table").IsSelection(table)
		})

		raw := entities.RawTable{Source: source, Index: index}
		rows.Each(func(i int, tr *goquery.Selection) {
			var cells []string
			tr.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, cleanCell(cell.Text()))
			})
			if len(cells) == 0 {
				return
			}
			if raw.Header == nil {
				for j := range cells {
					cells[j] = footnoteRe.ReplaceAllString(cells[j], "")
					cells[j] = strings.TrimSpace(cells[j])
				}
				raw.Header = cells
				return
			}
			raw.Rows = append(raw.Rows, cells)
		})
		tables = append(tables, raw)
	})
	return tables
}

// SelectTable picks the table matching fp. The table at the hint ordinal is
// tried first; when it does not match, all tables are scanned in order.
func SelectTable(tables []entities.RawTable, hint int, fp Fingerprint) (entities.RawTable, error) {
	if hint >= 0 && hint < len(tables) && fp(tables[hint].Header) {
		return tables[hint], nil
	}
	for _, t := range tables {
		if fp(t.Header) {
			zap.L().Warn("table not at configured position, selected by fingerprint",
				zap.Int("configured", hint),
				zap.Int("found", t.Index),
			)
			return t, nil
		}
	}
	return entities.RawTable{}, eris.Errorf("no table matches the expected columns among %d tables", len(tables))
}

// HeaderIndex returns the position of the first header cell accepted by match
func HeaderIndex(header []string, match func(string) bool) int {
	for i, h := range header {
		if match(h) {
			return i
		}
	}
	return -1
}

func cleanCell(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
