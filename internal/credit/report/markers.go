package report

import "github.com/gartstein/kyp/internal/credit/models"

const unknownMarker = "⚪"

var severityMarkers = map[models.Severity]string{
	models.SeverityCritical: "🔴",
	models.SeverityHigh:     "🟠",
	models.SeverityMedium:   "🟡",
	models.SeverityLow:      "🟢",
}

var assessmentMarkers = map[models.Assessment]string{
	models.AssessmentWellAboveAverage: "🟢🟢",
	models.AssessmentAboveAverage:     "🟢",
	models.AssessmentAverage:          "🟡",
	models.AssessmentBelowAverage:     "🟠",
	models.AssessmentWellBelowAverage: "🔴",
	models.AssessmentCritical:         "🔴🔴",
}

var outcomeMarkers = map[models.Outcome]string{
	models.OutcomeApprove:            "✅",
	models.OutcomeApproveWithCaveats: "⚠️",
	models.OutcomeReview:             "🔄",
	models.OutcomeDeny:               "❌",
}

// positiveMarker prefixes every positive point.
const positiveMarker = "✅"

// SeverityMarker returns the marker of a red flag severity.
func SeverityMarker(s models.Severity) string {
	return lookup(severityMarkers, s)
}

// AssessmentMarker returns the marker of a benchmark position.
func AssessmentMarker(a models.Assessment) string {
	return lookup(assessmentMarkers, a)
}

// OutcomeMarker returns the marker of a credit decision.
func OutcomeMarker(o models.Outcome) string {
	return lookup(outcomeMarkers, o)
}

// RatingMarker places a per-metric rating on the assessment scale.
func RatingMarker(r models.Rating) string {
	switch r {
	case models.RatingExcellent:
		return AssessmentMarker(models.AssessmentAboveAverage)
	case models.RatingGood, models.RatingAdequate:
		return AssessmentMarker(models.AssessmentAverage)
	case models.RatingBelow:
		return AssessmentMarker(models.AssessmentBelowAverage)
	}
	return unknownMarker
}

func lookup[K comparable](m map[K]string, k K) string {
	if v, ok := m[k]; ok {
		return v
	}
	return unknownMarker
}
