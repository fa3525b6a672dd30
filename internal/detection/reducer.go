package detection

// Reduce converts a raw detection list into a per-class summary. Each raw
// detection counts as a separate crack, duplicate and overlapping boxes are
// not merged. An empty input yields a zero total and an empty class map.
func Reduce(dets []RawDetection) Summary {
	summary := Summary{CrackTypes: make(map[string]CrackTypeStat, 4)}

	sums := make(map[string]float64, 4)
	for i := range dets {
		stat := summary.CrackTypes[dets[i].Label]
		stat.Count++
		summary.CrackTypes[dets[i].Label] = stat
		sums[dets[i].Label] += dets[i].Confidence
		summary.TotalCracks++
	}

	for label, stat := range summary.CrackTypes {
		stat.AvgConfidence = sums[label] / float64(stat.Count)
		summary.CrackTypes[label] = stat
	}

	return summary
}

// PrimaryType selects the single dominant label for an entry: the label with
// the highest count, ties broken by higher average confidence, then by the
// lexicographically smallest label. This rule is authoritative so both
// processing paths converge on the same value. An empty summary yields the
// no_cracks sentinel, never "unknown" which is reserved for entries whose
// detection has not been attempted.
func PrimaryType(s Summary) string {
	if s.TotalCracks == 0 || len(s.CrackTypes) == 0 {
		return TypeNoCracks
	}

	var best string
	var bestStat CrackTypeStat
	for label, stat := range s.CrackTypes {
		switch {
		case best == "":
			best, bestStat = label, stat
		case stat.Count > bestStat.Count:
			best, bestStat = label, stat
		case stat.Count == bestStat.Count && stat.AvgConfidence > bestStat.AvgConfidence:
			best, bestStat = label, stat
		case stat.Count == bestStat.Count && stat.AvgConfidence == bestStat.AvgConfidence && label < best:
			best, bestStat = label, stat
		}
	}
	return best
}

// FallbackSummary builds the summary recorded when inference was unavailable
// and a placeholder classification was applied: a single crack of the given
// label at the configured placeholder confidence.
func FallbackSummary(label string, confidence float64) Summary {
	return Summary{
		TotalCracks: 1,
		CrackTypes: map[string]CrackTypeStat{
			label: {Count: 1, AvgConfidence: confidence},
		},
	}
}
