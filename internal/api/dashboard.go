package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/wcharczuk/go-chart/v2"
	"go.uber.org/zap"

	"github.com/abelzeko/berlin-covid/internal/entities"
	"github.com/abelzeko/berlin-covid/internal/geo"
	"github.com/abelzeko/berlin-covid/internal/query"
	"github.com/abelzeko/berlin-covid/internal/repository"
)

// DashboardQueries is the read side the dashboard API serves
type DashboardQueries interface {
	Rolling(r query.DateRange) ([]entities.RollingRecord, error)
	Incidence(r query.DateRange) ([]entities.IncidenceRecord, error)
	MeanIncidence(r query.DateRange) ([]query.DistrictMean, error)
	Spread(r query.DateRange) ([]query.Spread, error)
	Bounds() (entities.Date, entities.Date, error)
	LastUpdate() (time.Time, error)
}

// Dashboard serves the exported datasets over HTTP
type Dashboard struct {
	queries    DashboardQueries
	boundaries *geo.Boundaries
	origins    []string
}

// NewDashboard creates the dashboard API. boundaries may be nil, in which
// case the map endpoint reports 404.
func NewDashboard(queries DashboardQueries, boundaries *geo.Boundaries) *Dashboard {
	return &Dashboard{queries: queries, boundaries: boundaries}
}

// AllowOrigins enables cross-origin GET requests from the given origins
func (d *Dashboard) AllowOrigins(origins ...string) *Dashboard {
	d.origins = origins
	return d
}

// Router returns the HTTP handler with all dashboard routes
func (d *Dashboard) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	if len(d.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: d.origins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", d.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/bounds", d.handleBounds)
		r.Get("/rolling", d.handleRolling)
		r.Get("/incidence", d.handleIncidence)
		r.Get("/incidence/mean", d.handleMean)
		r.Get("/incidence/spread", d.handleSpread)
		r.Get("/map.geojson", d.handleMap)
	})
	r.Get("/chart/incidence.png", d.handleChart)
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (d *Dashboard) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok"}
	if updated, err := d.queries.LastUpdate(); err == nil {
		body["last_update"] = updated.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, body)
}

func (d *Dashboard) handleBounds(w http.ResponseWriter, r *http.Request) {
	first, last, err := d.queries.Bounds()
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]entities.Date{"start": first, "end": last})
}

func (d *Dashboard) handleRolling(w http.ResponseWriter, r *http.Request) {
	rng, ok := parseRange(w, r)
	if !ok {
		return
	}
	rows, err := d.queries.Rolling(rng)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (d *Dashboard) handleIncidence(w http.ResponseWriter, r *http.Request) {
	rng, ok := parseRange(w, r)
	if !ok {
		return
	}
	rows, err := d.queries.Incidence(rng)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (d *Dashboard) handleMean(w http.ResponseWriter, r *http.Request) {
	rng, ok := parseRange(w, r)
	if !ok {
		return
	}
	means, err := d.queries.MeanIncidence(rng)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, means)
}

func (d *Dashboard) handleSpread(w http.ResponseWriter, r *http.Request) {
	rng, ok := parseRange(w, r)
	if !ok {
		return
	}
	spreads, err := d.queries.Spread(rng)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, spreads)
}

func (d *Dashboard) handleMap(w http.ResponseWriter, r *http.Request) {
	if d.boundaries == nil {
		writeError(w, http.StatusNotFound, "district boundaries are not configured")
		return
	}
	rng, ok := parseRange(w, r)
	if !ok {
		return
	}
	means, err := d.queries.MeanIncidence(rng)
	if err != nil {
		writeQueryError(w, err)
		return
	}

	data, err := json.Marshal(d.boundaries.Render(means))
	if err != nil {
		zap.L().Error("failed to encode choropleth", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to encode map")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (d *Dashboard) handleChart(w http.ResponseWriter, r *http.Request) {
	rng, ok := parseRange(w, r)
	if !ok {
		return
	}
	means, err := d.queries.MeanIncidence(rng)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	if len(means) == 0 {
		writeError(w, http.StatusNotFound, "no incidence data in range")
		return
	}

	graph := IncidenceBarChart(means)
	w.Header().Set("Content-Type", "image/png")
	if err := graph.Render(chart.PNG, w); err != nil {
		zap.L().Error("failed to render chart", zap.Error(err))
	}
}

// IncidenceBarChart draws mean incidence per district, in the order given
func IncidenceBarChart(means []query.DistrictMean) chart.BarChart {
	bars := make([]chart.Value, 0, len(means))
	top := 0.0
	for _, m := range means {
		bars = append(bars, chart.Value{Label: m.District, Value: m.Incidence})
		if m.Incidence > top {
			top = m.Incidence
		}
	}
	if top == 0 {
		top = 1
	}
	width := 80 * len(bars)
	if width < 640 {
		width = 640
	}
	return chart.BarChart{
		Title:      "Mean incidence per 100,000",
		Background: chart.Style{Padding: chart.Box{Top: 40, Bottom: 40}},
		Width:      width,
		Height:     480,
		BarWidth:   50,
		YAxis:      chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1}},
		Bars:       bars,
	}
}

// parseRange reads the inclusive start/end query parameters. A missing
// bound is open. Malformed dates are answered with 400.
func parseRange(w http.ResponseWriter, r *http.Request) (query.DateRange, bool) {
	var rng query.DateRange
	for _, p := range []struct {
		name string
		dst  *entities.Date
	}{{"start", &rng.Start}, {"end", &rng.End}} {
		raw := r.URL.Query().Get(p.name)
		if raw == "" {
			continue
		}
		d, err := entities.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, p.name+" must be a YYYY-MM-DD date")
			return query.DateRange{}, false
		}
		*p.dst = d
	}
	return rng, true
}

func writeQueryError(w http.ResponseWriter, err error) {
	if errors.Is(err, repository.ErrNoData) {
		writeError(w, http.StatusServiceUnavailable, "no data has been exported yet")
		return
	}
	zap.L().Error("dashboard query failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "query failed")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("failed to write response", zap.Error(err))
	}
}
