package model

// Recommendation is the sit/start call derived from a composite score.
// Keep these values stable; they are intended for CSV output.
type Recommendation string

const (
	RecommendStart   Recommendation = "START"
	RecommendNeutral Recommendation = "NEUTRAL"
	RecommendSit     Recommendation = "SIT"
)

// RecommendationThreshold is the composite magnitude needed to leave NEUTRAL.
const RecommendationThreshold = 0.05

func RecommendationFromScore(score float64) Recommendation {
	switch {
	case score > RecommendationThreshold:
		return RecommendStart
	case score < -RecommendationThreshold:
		return RecommendSit
	default:
		return RecommendNeutral
	}
}
