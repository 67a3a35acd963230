// Package entities contains the core domain objects for the berlin-covid application
package entities

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// DateLayout is the on-disk and API representation of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar day. The wrapped time is always midnight UTC, so Dates
// can be compared with == and used as map keys.
type Date struct {
	time.Time
}

// NewDate returns the Date for the given calendar day
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day, as seen in t's location
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, eris.Wrapf(err, "invalid date %q", s)
	}
	return DateOf(t), nil
}

// String formats the date as YYYY-MM-DD
func (d Date) String() string {
	return d.Time.Format(DateLayout)
}

// Before reports whether d is strictly before o
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }

// After reports whether d is strictly after o
func (d Date) After(o Date) bool { return d.Time.After(o.Time) }

// AddDays returns the date n days after d
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time.AddDate(0, 0, n))
}

// MarshalText implements encoding.TextMarshaler (used by the CSV codec)
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON encodes the date as a YYYY-MM-DD string
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a YYYY-MM-DD string
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return eris.Wrap(err, "date must be a string")
	}
	return d.UnmarshalText([]byte(s))
}

// RawTable is an HTML table as scraped: a header row and string cells
type RawTable struct {
	Source string     // URL of the page the table was found on
	Index  int        // Ordinal position of the table on the page
	Header []string   // Cleaned header cell texts
	Rows   [][]string // Body rows, cell texts trimmed
}

// WideTable holds one row per date and one column per district
type WideTable struct {
	Dates     []Date   // Ascending, unique
	Districts []string // Canonical district names, in source column order
	Values    [][]int  // Values[row][column], daily confirmed cases
}

// Column returns the series of a single district, or nil if it is unknown
func (w WideTable) Column(district string) []int {
	for col, name := range w.Districts {
		if name == district {
			series := make([]int, len(w.Dates))
			for row := range w.Dates {
				series[row] = w.Values[row][col]
			}
			return series
		}
	}
	return nil
}

// CaseRecord is a tidy (long format) daily case count
type CaseRecord struct {
	Date     Date   `csv:"Date" json:"date"`
	District string `csv:"District" json:"district"`
	Cases    int    `csv:"Cases" json:"cases"`
}

// RollingRecord is the trailing 7-day mean of daily cases for a district
type RollingRecord struct {
	Date     Date    `csv:"Date" json:"date"`
	District string  `csv:"District" json:"district"`
	Cases    float64 `csv:"Cases" json:"cases"`
}

// IncidenceRecord is a daily case count normalized per 100,000 population
type IncidenceRecord struct {
	Date      Date    `csv:"Date" json:"date"`
	District  string  `csv:"District" json:"district"`
	Cases     int     `csv:"Cases" json:"cases"`
	Incidence float64 `csv:"Incidence" json:"incidence"`
}

// Population maps a canonical district name to its inhabitants
type Population map[string]int
