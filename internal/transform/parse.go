package transform

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/abelzeko/berlin-covid/internal/entities"
)

// day-first layouts accepted for source dates
var dateLayouts = []string{
	"2.1.2006",
	"2.1.06",
	"2/1/2006",
	"2-1-2006",
	"2006-01-02",
}

var (
	germanThousands  = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)
	englishThousands = regexp.MustCompile(`^\d{1,3}(,\d{3})+$`)
	footnoteRe       = regexp.MustCompile(`\[[^\]]*\]`)
	integralFloat    = regexp.MustCompile(`^\d+\.0+$`)
)

// isMissing reports whether a cell counts as a missing value
func isMissing(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "", "-", "–", "—", "nan", "n/a", "na":
		return true
	}
	return false
}

// parseDate parses a source date with the day-first convention
func parseDate(s string) (entities.Date, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return entities.DateOf(t), nil
		}
	}
	return entities.Date{}, eris.Errorf("not a day-first date")
}

// parseCount parses a non-negative integer count. Thousands separators,
// footnote markers and a trailing ".0" (values exported as floats) are
// accepted.
func parseCount(s string) (int, error) {
	s = footnoteRe.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), "")
	switch {
	case germanThousands.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	case englishThousands.MatchString(s):
		s = strings.ReplaceAll(s, ",", "")
	case integralFloat.MatchString(s):
		s = s[:strings.IndexByte(s, '.')]
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, eris.New("not an integer")
	}
	if n < 0 {
		return 0, eris.New("negative count")
	}
	return n, nil
}
