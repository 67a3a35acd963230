package transform

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/abelzeko/berlin-covid/internal/entities"
)

// DefaultWindow is the length of the trailing rolling mean, in observations
const DefaultWindow = 7

// RollingMean computes, for every district, the mean of each observation and
// the window-1 observations before it. Rows are observations, not calendar
// days. The first window-1 observations of a district have no mean and are
// left out of the result.
func RollingMean(wide entities.WideTable, window int) ([]entities.RollingRecord, []entities.Exclusion, error) {
	if window < 1 {
		return nil, nil, eris.Errorf("rolling window must be positive, got %d", window)
	}

	n := len(wide.Dates)
	emitted := n - window + 1
	if emitted < 0 {
		emitted = 0
	}
	records := make([]entities.RollingRecord, 0, emitted*len(wide.Districts))
	var exclusions []entities.Exclusion

	for col, district := range wide.Districts {
		sum := 0
		for row := 0; row < n; row++ {
			sum += wide.Values[row][col]
			if row >= window {
				sum -= wide.Values[row-window][col]
			}
			if row < window-1 {
				continue
			}
			records = append(records, entities.RollingRecord{
				Date:     wide.Dates[row],
				District: district,
				Cases:    float64(sum) / float64(window),
			})
		}
		if skipped := min(n, window-1); skipped > 0 {
			exclusions = append(exclusions, entities.Exclusion{
				Stage:   StageRolling,
				Reason:  entities.ReasonInsufficientWindow,
				Subject: district,
				Rows:    skipped,
			})
		}
	}

	zap.L().Info("computed rolling mean",
		zap.Int("window", window),
		zap.Int("rows", len(records)),
	)
	return records, exclusions, nil
}
