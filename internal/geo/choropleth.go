// Package geo builds the choropleth feed: district boundaries as GeoJSON
// with incidence figures attached to each feature.
package geo

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/abelzeko/berlin-covid/internal/districts"
	"github.com/abelzeko/berlin-covid/internal/query"
)

// DefaultFeatureKey is the property holding the district name in the
// Berlin boundaries dataset
const DefaultFeatureKey = "Gemeinde_name"

// Fetcher retrieves remote documents
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Boundaries holds district polygons keyed by canonical district name
type Boundaries struct {
	features []*geojson.Feature
	names    []string
	key      string
}

// LoadBoundaries reads a boundary file from a URL or a local path
func LoadBoundaries(ctx context.Context, fetcher Fetcher, location, featureKey string, lookup *districts.Lookup) (*Boundaries, error) {
	if location == "" {
		return nil, eris.New("geo: no boundaries location configured")
	}
	zap.L().Info("loading district boundaries", zap.String("location", location))

	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		data, err = fetcher.Fetch(ctx, location)
	} else {
		data, err = os.ReadFile(location)
		if err != nil {
			err = eris.Wrapf(err, "geo: read %s", location)
		}
	}
	if err != nil {
		return nil, err
	}
	return ParseBoundaries(data, featureKey, lookup)
}

// ParseBoundaries decodes a GeoJSON FeatureCollection, resolves each
// feature's district name and rewinds its rings so exteriors run clockwise
func ParseBoundaries(data []byte, featureKey string, lookup *districts.Lookup) (*Boundaries, error) {
	if featureKey == "" {
		featureKey = DefaultFeatureKey
	}
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(err, "geo: decode boundaries")
	}

	b := &Boundaries{key: featureKey}
	for i, f := range fc.Features {
		raw, _ := f.Properties[featureKey].(string)
		if raw == "" {
			zap.L().Warn("skipping boundary feature without district name", zap.Int("feature", i), zap.String("key", featureKey))
			continue
		}
		name := districts.NormalizeName(raw)
		if canonical, ok := lookup.Canonical(name); ok {
			name = canonical
		}

		g, err := Rewind(f.Geometry)
		if err != nil {
			return nil, eris.Wrapf(err, "geo: rewind feature %q", name)
		}
		b.features = append(b.features, &geojson.Feature{
			ID:         f.ID,
			Geometry:   g,
			Properties: map[string]interface{}{featureKey: name},
		})
		b.names = append(b.names, name)
	}
	if len(b.features) == 0 {
		return nil, eris.Errorf("geo: no features with property %q", featureKey)
	}

	zap.L().Info("loaded district boundaries", zap.Int("features", len(b.features)))
	return b, nil
}

// Names lists the district of each feature, in file order
func (b *Boundaries) Names() []string {
	return append([]string(nil), b.names...)
}

// Render attaches mean Cases and Incidence to the matching features.
// Features without data keep null values so the map shows them as empty.
func (b *Boundaries) Render(means []query.DistrictMean) *geojson.FeatureCollection {
	byName := make(map[string]query.DistrictMean, len(means))
	for _, m := range means {
		byName[m.District] = m
	}

	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(b.features))}
	for i, f := range b.features {
		props := map[string]interface{}{
			b.key:       b.names[i],
			"District":  b.names[i],
			"Incidence": nil,
			"Cases":     nil,
		}
		if m, ok := byName[b.names[i]]; ok {
			props["Incidence"] = m.Incidence
			props["Cases"] = m.Cases
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         f.ID,
			Geometry:   f.Geometry,
			Properties: props,
		})
	}
	return fc
}

// Rewind orients polygon rings with clockwise exteriors and
// counter-clockwise holes. Other geometry types are returned unchanged.
func Rewind(g geom.T) (geom.T, error) {
	switch g := g.(type) {
	case *geom.Polygon:
		return rewindPolygon(g)
	case *geom.MultiPolygon:
		mp := geom.NewMultiPolygon(g.Layout()).SetSRID(g.SRID())
		for i := 0; i < g.NumPolygons(); i++ {
			p, err := rewindPolygon(g.Polygon(i))
			if err != nil {
				return nil, err
			}
			if err := mp.Push(p); err != nil {
				return nil, err
			}
		}
		return mp, nil
	default:
		return g, nil
	}
}

func rewindPolygon(p *geom.Polygon) (*geom.Polygon, error) {
	out := geom.NewPolygon(p.Layout()).SetSRID(p.SRID())
	for i := 0; i < p.NumLinearRings(); i++ {
		ring := p.LinearRing(i)
		flat := append([]float64(nil), ring.FlatCoords()...)
		clockwise := SignedArea(flat, ring.Stride()) < 0
		// Exterior must be clockwise, holes counter-clockwise
		if (i == 0) != clockwise {
			reverseCoords(flat, ring.Stride())
		}
		if err := out.Push(geom.NewLinearRingFlat(p.Layout(), flat)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SignedArea is the shoelace area of a ring; positive when the ring runs
// counter-clockwise
func SignedArea(flat []float64, stride int) float64 {
	n := len(flat) / stride
	if n < 3 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		xi, yi := flat[i*stride], flat[i*stride+1]
		xj, yj := flat[j*stride], flat[j*stride+1]
		sum += xi*yj - xj*yi
	}
	return sum / 2
}

func reverseCoords(flat []float64, stride int) {
	n := len(flat) / stride
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		for k := 0; k < stride; k++ {
			flat[i*stride+k], flat[j*stride+k] = flat[j*stride+k], flat[i*stride+k]
		}
	}
}
