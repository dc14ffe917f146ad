package slots

import (
	"time"

	"go.uber.org/zap"
)

// MergeResult counts what an observation did to the cached court.
type MergeResult struct {
	Created bool // the date's table was (re)seeded from this observation
	Opened  int  // cells written as Available
	Closed  int  // cells written as a booked state
	Kept    int  // booked observations that left a richer cached state in place
}

// ApplyCourtObservation folds a single-court probe into date's table.
//
// A missing or expired table is seeded from the observation alone and
// backdated by the probe interval so that it never outlives a fresher
// whole-date fetch. Otherwise each observed cell is merged:
//
//   - Available always wins; the probe is the freshest evidence of a release.
//   - A booked observation only replaces an Available or missing cell, so a
//     cached holder name is not degraded to a bare "booked".
//
// Cells and courts not observed are left alone.
func (c *Cache) ApplyCourtObservation(date string, court int, observed Court, observedAt time.Time) MergeResult {
	var res MergeResult
	if !reYmd.MatchString(date) || court < 1 || len(observed) == 0 || !observed.wellFormed() {
		return res
	}

	e := c.lockEntry(date)
	defer e.mu.Unlock()

	if !c.fresh(e, c.now()) {
		e.courts = Courts{court: observed.clone()}
		e.cachedAt = observedAt.Add(-c.probeInterval)
		res.Created = true
		for _, s := range observed {
			if s.IsAvailable() {
				res.Opened++
			} else {
				res.Closed++
			}
		}
		c.log.Debug("slots: seeded date from probe",
			zap.String("date", date), zap.Int("court", court), zap.Int("cells", len(observed)))
		return res
	}

	cells, ok := e.courts[court]
	if !ok {
		cells = Court{}
		e.courts[court] = cells
	}
	for label, s := range observed {
		cur, seen := cells[label]
		switch {
		case s.IsAvailable():
			cells[label] = s
			res.Opened++
		case !seen || cur.IsAvailable():
			cells[label] = s
			res.Closed++
		default:
			res.Kept++
		}
	}
	c.log.Debug("slots: merged probe",
		zap.String("date", date), zap.Int("court", court),
		zap.Int("opened", res.Opened), zap.Int("closed", res.Closed), zap.Int("kept", res.Kept))
	return res
}
