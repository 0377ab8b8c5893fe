package analysis

import "sort"

const topKeywordLimit = 20

// Summarize computes the derived aggregate over a full result list. It is a
// pure function; error-tagged results are excluded from every statistic.
func Summarize(results []AnalysisResult, mislabelAnalysis bool) Summary {
	if len(results) == 0 {
		return Summary{Error: "no results"}
	}

	dist := map[string]int{}
	patterns := map[string][]string{}
	counts := map[string]int{}
	var order []string // first-encounter order, the tie-breaker for ranking

	analyzed := 0
	correct := 0
	for i := range results {
		r := &results[i]
		if r.Failed() {
			continue
		}

		class := r.OriginalClassification
		if class == "" {
			class = "unknown"
		}
		dist[class]++

		if r.ContextPattern != "" {
			patterns[class] = append(patterns[class], r.ContextPattern)
		}

		for _, kw := range r.SupportingKeywords {
			if counts[kw] == 0 {
				order = append(order, kw)
			}
			counts[kw]++
		}

		analyzed++
		if r.CorrectClassification() {
			correct++
		}
	}

	s := Summary{
		ClassificationDistribution: dist,
		TopKeywords:                topKeywords(counts, order, topKeywordLimit),
		ContextPatternsByType:      patterns,
	}
	if mislabelAnalysis {
		s.Accuracy = &AccuracyAnalysis{
			TotalAnalyzed:            analyzed,
			CorrectClassifications:   correct,
			IncorrectClassifications: analyzed - correct,
		}
	}
	return s
}

func topKeywords(counts map[string]int, order []string, limit int) []KeywordCount {
	out := make([]KeywordCount, 0, len(order))
	for _, kw := range order {
		out = append(out, KeywordCount{Keyword: kw, Count: counts[kw]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
