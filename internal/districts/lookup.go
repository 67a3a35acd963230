// Package districts holds the versioned mapping between the column codes of
// the case table and canonical Berlin district names.
package districts

import (
	_ "embed"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed districts.yaml
var defaultAsset []byte

// Entry maps a source column code to a canonical name
type Entry struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

type asset struct {
	Version    string  `yaml:"version"`
	Source     string  `yaml:"source"`
	DateColumn Entry   `yaml:"date_column"`
	Districts  []Entry `yaml:"districts"`
}

// Lookup resolves district codes and free-text district names
type Lookup struct {
	version    string
	source     string
	dateColumn Entry
	entries    []Entry
	byCode     map[string]string
	byKey      map[string]string
}

// Default returns the lookup embedded in the binary
func Default() (*Lookup, error) {
	return Parse(defaultAsset)
}

// Parse builds a Lookup from a YAML asset
func Parse(data []byte) (*Lookup, error) {
	var a asset
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, eris.Wrap(err, "failed to parse district asset")
	}
	if a.Version == "" {
		return nil, eris.New("district asset has no version")
	}
	if a.DateColumn.Code == "" || a.DateColumn.Name == "" {
		return nil, eris.New("district asset has no date column")
	}
	if len(a.Districts) == 0 {
		return nil, eris.New("district asset has no districts")
	}

	l := &Lookup{
		version:    a.Version,
		source:     a.Source,
		dateColumn: a.DateColumn,
		byCode:     make(map[string]string, len(a.Districts)),
		byKey:      make(map[string]string, len(a.Districts)),
	}
	for i, e := range a.Districts {
		code := strings.ToUpper(strings.TrimSpace(e.Code))
		name := NormalizeName(e.Name)
		if code == "" || name == "" {
			return nil, eris.Errorf("district entry %d is incomplete", i)
		}
		if _, dup := l.byCode[code]; dup {
			return nil, eris.Errorf("duplicate district code %q", code)
		}
		if _, dup := l.byKey[matchKey(name)]; dup {
			return nil, eris.Errorf("duplicate district name %q", name)
		}
		l.byCode[code] = name
		l.byKey[matchKey(name)] = name
		l.entries = append(l.entries, Entry{Code: code, Name: name})
	}
	return l, nil
}

// Version identifies the revision of the mapping
func (l *Lookup) Version() string { return l.version }

// Source is the page whose columns the mapping describes
func (l *Lookup) Source() string { return l.source }

// DateColumn returns the source header of the date column and its output name
func (l *Lookup) DateColumn() Entry { return l.dateColumn }

// IsDateColumn reports whether a header cell is the date column
func (l *Lookup) IsDateColumn(header string) bool {
	return strings.EqualFold(strings.TrimSpace(header), l.dateColumn.Code)
}

// Entries returns the district entries in asset order
func (l *Lookup) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len is the number of rename entries, the date column included
func (l *Lookup) Len() int { return len(l.entries) + 1 }

// Names returns the canonical district names in asset order
func (l *Lookup) Names() []string {
	names := make([]string, len(l.entries))
	for i, e := range l.entries {
		names[i] = e.Name
	}
	return names
}

// Name resolves a column code such as "MI" to its canonical district name
func (l *Lookup) Name(code string) (string, bool) {
	name, ok := l.byCode[strings.ToUpper(strings.TrimSpace(code))]
	return name, ok
}

// Canonical matches a free-text district name (footnotes, odd dashes,
// case) against the canonical names
func (l *Lookup) Canonical(name string) (string, bool) {
	canonical, ok := l.byKey[matchKey(NormalizeName(name))]
	return canonical, ok
}

var (
	footnoteRe   = regexp.MustCompile(`\[[^\]]*\]`)
	dashSpaceRe  = regexp.MustCompile(`\s*-\s*`)
	trailingMark = regexp.MustCompile(`[*†‡§¹²³⁴⁵⁶⁷⁸⁹]+$`)
	dashReplacer = strings.NewReplacer("\u2010", "-", "\u2011", "-", "\u2012", "-", "\u2013", "-", "\u2014", "-", "\u00ad", "")
)

// NormalizeName strips footnote markers and whitespace artifacts and returns
// the NFC form of a district name
func NormalizeName(s string) string {
	s = norm.NFC.String(s)
	s = footnoteRe.ReplaceAllString(s, "")
	s = dashReplacer.Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	s = trailingMark.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = dashSpaceRe.ReplaceAllString(s, "-")
	return s
}

func matchKey(name string) string {
	return strings.ToLower(name)
}
