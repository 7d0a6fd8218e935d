package memory

import "sort"

// FuseRRF merges ranked lists with Reciprocal Rank Fusion:
// score(r) = sum over lists of 1/(k + rank), rank starting at 1.
// A record absent from a list contributes nothing for that list, and a record
// repeated within one list only counts at its best rank. Results are ordered by
// fused score descending, then ID ascending, and truncated to limit (limit <= 0
// keeps everything).
func FuseRRF(k, limit int, lists ...[]ScoredRecord) []ScoredRecord {
	scores := make(map[string]float64)
	records := make(map[string]Record)

	for _, list := range lists {
		seen := make(map[string]struct{}, len(list))
		for i, hit := range list {
			if _, dup := seen[hit.ID]; dup {
				continue
			}
			seen[hit.ID] = struct{}{}

			scores[hit.ID] += 1.0 / float64(k+i+1)
			if _, ok := records[hit.ID]; !ok {
				records[hit.ID] = hit.Record
			}
		}
	}

	fused := make([]ScoredRecord, 0, len(scores))
	for id, score := range scores {
		fused = append(fused, ScoredRecord{Record: records[id], Score: score})
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return fused[i].ID < fused[j].ID
	})

	if limit > 0 && len(fused) > limit {
		fused = fused[:limit]
	}
	return fused
}
