// Package aggregate merges raw extraction candidates into deduplicated,
// weighted aggregates keyed by canonical name.
package aggregate

import (
	"sort"

	"github.com/wildpath/naturescout/internal/domain"
)

// Merge collapses candidates sharing a canonical key into one aggregate,
// summing mention counts and weights. Qualifier suffixes ("park", "trail")
// are stripped when doing so does not collide with a different aggregate,
// keeping "Lands End" and "Lands End Trail" as one entry while "Dolores
// Park" survives intact.
func Merge(candidates []domain.Candidate) []domain.AggregatedCandidate {
	byKey := make(map[string]*domain.AggregatedCandidate)
	order := make([]string, 0, len(candidates))

	for _, cand := range candidates {
		key := domain.CanonicalKey(cand.RawName)
		if key == "" {
			continue
		}

		agg, ok := byKey[key]
		if !ok {
			agg = &domain.AggregatedCandidate{Key: key, Name: cand.RawName}
			byKey[key] = agg
			order = append(order, key)
		}
		agg.Mentions++
		agg.RawScore += cand.Weight
	}

	mergeQualifierVariants(byKey, &order)

	out := make([]domain.AggregatedCandidate, 0, len(order))
	for _, key := range order {
		if agg, ok := byKey[key]; ok {
			out = append(out, *agg)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RawScore != out[j].RawScore {
			return out[i].RawScore > out[j].RawScore
		}
		if out[i].Mentions != out[j].Mentions {
			return out[i].Mentions > out[j].Mentions
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// mergeQualifierVariants folds "X trail" into "X" when the bare form also
// appears, preferring the longer display name. A stripped key colliding
// with an unrelated aggregate is left alone.
func mergeQualifierVariants(byKey map[string]*domain.AggregatedCandidate, order *[]string) {
	for _, key := range *order {
		agg, ok := byKey[key]
		if !ok {
			continue
		}
		stripped, changed := domain.StripQualifier(key)
		if !changed || stripped == "" {
			continue
		}

		base, ok := byKey[stripped]
		if !ok {
			continue
		}

		base.Mentions += agg.Mentions
		base.RawScore += agg.RawScore
		if len(agg.Name) > len(base.Name) {
			base.Name = agg.Name
		}
		delete(byKey, key)
	}

	kept := (*order)[:0]
	for _, key := range *order {
		if _, ok := byKey[key]; ok {
			kept = append(kept, key)
		}
	}
	*order = kept
}
