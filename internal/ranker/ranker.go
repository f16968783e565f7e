package ranker

import (
	"sort"

	"insightdocs-gateway/internal/model"
)

// Rank turns the raw citation list from the query service into a display
// list: candidates without a filepath are dropped, duplicates of the same
// filepath collapse to the highest-scoring entry, and the result is ordered
// by descending score with ties kept in first-seen order. Returns nil when
// nothing survives, so callers can hide the sources affordance entirely.
func Rank(candidates []model.SourceCandidate) []model.Source {
	if len(candidates) == 0 {
		return nil
	}

	best := make(map[string]model.Source, len(candidates))
	var order []string
	for _, c := range candidates {
		if c.Filepath == nil {
			continue
		}
		fp := *c.Filepath
		existing, seen := best[fp]
		if !seen {
			best[fp] = model.Source{Filepath: fp, Score: c.Score}
			order = append(order, fp)
			continue
		}
		if c.Score > existing.Score {
			best[fp] = model.Source{Filepath: fp, Score: c.Score}
		}
	}
	if len(order) == 0 {
		return nil
	}

	ranked := make([]model.Source, 0, len(order))
	for _, fp := range order {
		ranked = append(ranked, best[fp])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}
