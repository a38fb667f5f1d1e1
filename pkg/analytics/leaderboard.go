package analytics

import (
	"sort"

	"github.com/samber/lo"
)

// TopPerformer is one entry of an earnings leaderboard.
type TopPerformer struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Earnings float64 `json:"earnings"`
}

// RankOwners totals event values per owner and returns the best limit owners,
// highest first. Ties are broken by owner ID so the order is stable.
func RankOwners(events []TimedEvent, limit int) []TopPerformer {
	withOwner := lo.Filter(events, func(e TimedEvent, _ int) bool { return e.OwnerID != "" })
	totals := lo.MapValues(lo.GroupBy(withOwner, func(e TimedEvent) string { return e.OwnerID }),
		func(es []TimedEvent, _ string) float64 {
			return lo.SumBy(es, func(e TimedEvent) float64 { return e.Value })
		})

	ranked := lo.MapToSlice(totals, func(id string, total float64) TopPerformer {
		return TopPerformer{ID: id, Earnings: total}
	})
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Earnings != ranked[j].Earnings {
			return ranked[i].Earnings > ranked[j].Earnings
		}
		return ranked[i].ID < ranked[j].ID
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// applyNames fills leaderboard names from a lookup, falling back to the ID.
func applyNames(performers []TopPerformer, names map[string]string) []TopPerformer {
	return lo.Map(performers, func(p TopPerformer, _ int) TopPerformer {
		p.Name = lo.ValueOr(names, p.ID, p.ID)
		return p
	})
}
