// Package repository provides data access implementations
package repository

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/abelzeko/berlin-covid/internal/entities"
)

const (
	// RollingFile holds the 7-day rolling average long table
	RollingFile = "rolling_7_long.csv"
	// IncidenceFile holds the incidence long table
	IncidenceFile = "incidence.csv"
)

// ErrNoData is returned when an export has not been written yet
var ErrNoData = eris.New("no exported data, run the scraper first")

// CaseRepository defines the interface for the exported datasets
type CaseRepository interface {
	SaveRolling(records []entities.RollingRecord) error
	SaveIncidence(records []entities.IncidenceRecord) error
	LoadRolling() ([]entities.RollingRecord, error)
	LoadIncidence() ([]entities.IncidenceRecord, error)
	GetLastUpdateTime() (time.Time, error)
}

// CSVRepository implements CaseRepository with flat CSV files in one directory
type CSVRepository struct {
	Dir string
}

// NewCSVRepository creates the output directory if needed
func NewCSVRepository(dir string) (*CSVRepository, error) {
	if dir == "" {
		// Set default path if not specified
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, eris.Wrapf(err, "failed to create output directory %s", dir)
	}
	zap.L().Debug("using output directory", zap.String("dir", dir))
	return &CSVRepository{Dir: dir}, nil
}

// RollingPath is the location of the rolling average export
func (r *CSVRepository) RollingPath() string { return filepath.Join(r.Dir, RollingFile) }

// IncidencePath is the location of the incidence export
func (r *CSVRepository) IncidencePath() string { return filepath.Join(r.Dir, IncidenceFile) }

// SaveRolling atomically replaces the rolling average export
func (r *CSVRepository) SaveRolling(records []entities.RollingRecord) error {
	data, err := encode(entities.RollingRecord{}, records)
	if err != nil {
		return eris.Wrap(err, "failed to encode rolling averages")
	}
	if err := writeAtomic(r.RollingPath(), data); err != nil {
		return err
	}
	zap.L().Info("saved rolling averages", zap.String("path", r.RollingPath()), zap.Int("rows", len(records)))
	return nil
}

// SaveIncidence atomically replaces the incidence export
func (r *CSVRepository) SaveIncidence(records []entities.IncidenceRecord) error {
	data, err := encode(entities.IncidenceRecord{}, records)
	if err != nil {
		return eris.Wrap(err, "failed to encode incidence")
	}
	if err := writeAtomic(r.IncidencePath(), data); err != nil {
		return err
	}
	zap.L().Info("saved incidence", zap.String("path", r.IncidencePath()), zap.Int("rows", len(records)))
	return nil
}

// LoadRolling reads the rolling average export
func (r *CSVRepository) LoadRolling() ([]entities.RollingRecord, error) {
	var records []entities.RollingRecord
	if err := decode(r.RollingPath(), &records); err != nil {
		return nil, err
	}
	return records, nil
}

// LoadIncidence reads the incidence export
func (r *CSVRepository) LoadIncidence() ([]entities.IncidenceRecord, error) {
	var records []entities.IncidenceRecord
	if err := decode(r.IncidencePath(), &records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetLastUpdateTime returns when the exports were last replaced, the older
// of the two files
func (r *CSVRepository) GetLastUpdateTime() (time.Time, error) {
	var oldest time.Time
	for _, path := range []string{r.RollingPath(), r.IncidencePath()} {
		info, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			return time.Time{}, ErrNoData
		}
		if err != nil {
			return time.Time{}, eris.Wrapf(err, "failed to stat %s", path)
		}
		if oldest.IsZero() || info.ModTime().Before(oldest) {
			oldest = info.ModTime()
		}
	}
	return oldest, nil
}

func encode[T any](header T, records []T) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	enc := csvutil.NewEncoder(w)
	if err := enc.EncodeHeader(header); err != nil {
		return nil, err
	}
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return ErrNoData
	}
	if err != nil {
		return eris.Wrapf(err, "failed to read %s", path)
	}
	if err := csvutil.Unmarshal(data, v); err != nil {
		return eris.Wrapf(err, "failed to decode %s", path)
	}
	return nil
}

// writeAtomic writes data to a temp file next to path and renames it into
// place, so readers see either the old or the new file
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrapf(err, "failed to create temp file in %s", dir)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return eris.Wrapf(err, "failed to write %s", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return eris.Wrapf(err, "failed to sync %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return eris.Wrapf(err, "failed to close %s", tmpName)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		cleanup()
		return eris.Wrapf(err, "failed to chmod %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return eris.Wrapf(err, "failed to replace %s", path)
	}
	return nil
}
