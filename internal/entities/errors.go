package entities

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
)

// ErrNoPopulation marks a district that has no population figure to join with.
// It is a soft condition: affected rows are excluded, the run continues.
var ErrNoPopulation = eris.New("no population for district")

// FetchError is a network, HTTP or table-not-found failure while scraping a page
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError wraps err as a FetchError for url
func NewFetchError(url string, err error) *FetchError {
	return &FetchError{URL: url, Err: err}
}

// FormatError is an unexpected schema or a value that cannot be coerced
type FormatError struct {
	Stage  string
	Row    int // Zero-based body row, -1 when the error is not tied to a row
	Column string
	Value  string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("%s: column %q: %v", e.Stage, e.Column, e.Err)
	}
	return fmt.Sprintf("%s: row %d column %q value %q: %v", e.Stage, e.Row, e.Column, e.Value, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err has a FetchError in its chain
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// IsFormatError reports whether err has a FormatError in its chain
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}
