// Package compensation holds the rank and commission rules of the compensation plan.
package compensation

import (
	"math"
	"sort"

	"github.com/Pixelkingsa/consultant-connect/internal/models"
)

// SortRanks orders ranks by level, lowest first.
func SortRanks(ranks []models.Rank) []models.Rank {
	out := make([]models.Rank, len(ranks))
	copy(out, ranks)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out
}

// Qualifies reports whether the volumes meet both thresholds of r.
func Qualifies(r models.Rank, pv, gv float64) bool {
	return pv >= r.PVThreshold && gv >= r.GVThreshold
}

// Evaluate returns the rank a consultant holds after a volume change. The result is the
// highest qualifying rank, but never below current: ranks do not demote automatically.
// It returns nil only when ranks is empty.
func Evaluate(ranks []models.Rank, currentName string, pv, gv float64) *models.Rank {
	sorted := SortRanks(ranks)
	if len(sorted) == 0 {
		return nil
	}

	var best *models.Rank
	for i := range sorted {
		if Qualifies(sorted[i], pv, gv) {
			best = &sorted[i]
		}
	}

	if cur := Find(sorted, currentName); cur != nil && (best == nil || cur.Level > best.Level) {
		best = cur
	}
	if best == nil {
		best = &sorted[0]
	}
	return best
}

// Find returns the rank named name, or nil.
func Find(ranks []models.Rank, name string) *models.Rank {
	for i := range ranks {
		if ranks[i].Name == name {
			r := ranks[i]
			return &r
		}
	}
	return nil
}

// Next returns the rank directly above current in level order, or nil at the top.
// An unknown current name yields the lowest rank.
func Next(ranks []models.Rank, currentName string) *models.Rank {
	sorted := SortRanks(ranks)
	cur := Find(sorted, currentName)
	for i := range sorted {
		if cur == nil || sorted[i].Level > cur.Level {
			r := sorted[i]
			return &r
		}
	}
	return nil
}

// Percent is current/threshold as a percentage capped to [0, 100]. A zero
// threshold counts as met.
func Percent(current, threshold float64) float64 {
	if threshold <= 0 {
		return 100
	}
	p := current / threshold * 100
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return math.Round(p*100) / 100
}

// Progress builds the rank progress view for a consultant.
func Progress(ranks []models.Rank, currentName string, pv, gv float64) models.RankProgress {
	progress := models.RankProgress{
		CurrentRank:    Find(ranks, currentName),
		NextRank:       Next(ranks, currentName),
		PersonalVolume: pv,
		GroupVolume:    gv,
	}

	if progress.NextRank == nil {
		progress.PVProgress = 100
		progress.GVProgress = 100
		progress.OverallProgress = 100
		return progress
	}

	next := progress.NextRank
	progress.PVProgress = Percent(pv, next.PVThreshold)
	progress.GVProgress = Percent(gv, next.GVThreshold)
	progress.OverallProgress = math.Min(progress.PVProgress, progress.GVProgress)
	progress.PVRemaining = math.Max(0, models.RoundMoney(next.PVThreshold-pv))
	progress.GVRemaining = math.Max(0, models.RoundMoney(next.GVThreshold-gv))
	return progress
}

// Commission is the bonus earned on amount at a rate given in percent.
func Commission(amount, ratePercent float64) float64 {
	if amount <= 0 || ratePercent <= 0 {
		return 0
	}
	return models.RoundMoney(amount * ratePercent / 100)
}
