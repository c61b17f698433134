package services

import (
	"regexp"
	"strings"
	"time"

	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
)

// Default crisis keyword list. Overridable through SOS_KEYWORDS (comma
// separated) so deployments can extend the list without a rebuild.
var defaultSOSKeywords = []string{
	"harm myself",
	"suicide",
	"kill myself",
	"end my life",
	"hurt myself",
	"want to die",
}

var concerningPatterns = []string{
	`\b(don't want to|can't) live\b`,
	`\bno point in living\b`,
	`\bwant to disappear\b`,
	`\bcan't take it anymore\b`,
	`\bthinking about death\b`,
	`\bsuicidal thoughts\b`,
	`\bself harm\b`,
	`\bcut myself\b`,
	`\bhurt myself\b`,
}

var (
	highRiskKeywords   = []string{"suicide", "kill myself", "end my life", "want to die"}
	mediumRiskKeywords = []string{"harm myself", "hurt myself", "can't take it"}
)

// severityBreakpoints maps a summed keyword score to a message risk level.
// Ordered highest first; first breakpoint <= score wins.
var severityBreakpoints = []struct {
	Min   float64
	Level string
}{
	{0.8, "critical"},
	{0.5, "high"},
	{0.3, "medium"},
}

type SafetyAssessment struct {
	RiskLevel            string   `json:"risk_level"`
	Score                float64  `json:"score"`
	Keywords             []string `json:"keywords"`
	RequiresIntervention bool     `json:"requires_intervention"`
}

type SafetyReport struct {
	TotalMessages              int       `json:"total_messages"`
	FlaggedMessages            int       `json:"flagged_messages"`
	FlaggedPercentage          float64   `json:"flagged_percentage"`
	UniqueKeywords             []string  `json:"unique_keywords"`
	AvgRiskScore               float64   `json:"avg_risk_score"`
	MaxRiskScore               float64   `json:"max_risk_score"`
	OverallRisk                string    `json:"overall_risk"`
	RequiresImmediateAttention bool      `json:"requires_immediate_attention"`
	GeneratedAt                time.Time `json:"generated_at"`
}

// SafetyService is a pure detector: no storage, no side effects, so the
// same text always yields the same result.
type SafetyService interface {
	Scan(message string) []string
	Assess(message string) SafetyAssessment
	Report(messages []string) SafetyReport
	Recommendations(assessment SafetyAssessment) []string
}

type safetyService struct {
	log      *logger.Logger
	keywords []string
	patterns []*regexp.Regexp
}

func NewSafetyService(baseLog *logger.Logger, keywords []string) SafetyService {
	serviceLog := baseLog.With("service", "SafetyService")
	if len(keywords) == 0 {
		keywords = defaultSOSKeywords
	}
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			lowered = append(lowered, kw)
		}
	}

	patterns := make([]*regexp.Regexp, 0, len(lowered)+len(concerningPatterns))
	for _, kw := range lowered {
		patterns = append(patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(kw)+`\b`))
	}
	for _, p := range concerningPatterns {
		patterns = append(patterns, regexp.MustCompile(`(?i)`+p))
	}

	return &safetyService{log: serviceLog, keywords: lowered, patterns: patterns}
}

// Scan returns every matched term, deduplicated, first-seen order preserved.
func (ss *safetyService) Scan(message string) []string {
	matched := make([]string, 0, 4)
	lower := strings.ToLower(message)

	for _, kw := range ss.keywords {
		if strings.Contains(lower, kw) {
			matched = append(matched, kw)
		}
	}
	for _, pattern := range ss.patterns {
		for _, m := range pattern.FindAllString(message, -1) {
			matched = append(matched, strings.ToLower(m))
		}
	}

	seen := make(map[string]struct{}, len(matched))
	out := make([]string, 0, len(matched))
	for _, kw := range matched {
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}

func keywordWeight(keyword string) float64 {
	lower := strings.ToLower(keyword)
	for _, high := range highRiskKeywords {
		if strings.Contains(lower, high) {
			return 0.8
		}
	}
	for _, medium := range mediumRiskKeywords {
		if strings.Contains(lower, medium) {
			return 0.5
		}
	}
	return 0.3
}

func (ss *safetyService) Assess(message string) SafetyAssessment {
	matched := ss.Scan(message)
	if len(matched) == 0 {
		return SafetyAssessment{
			RiskLevel:            "low",
			Score:                0.0,
			Keywords:             []string{},
			RequiresIntervention: false,
		}
	}

	score := 0.0
	for _, kw := range matched {
		score += keywordWeight(kw)
	}

	level := "low"
	for _, bp := range severityBreakpoints {
		if score >= bp.Min {
			level = bp.Level
			break
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return SafetyAssessment{
		RiskLevel:            level,
		Score:                score,
		Keywords:             matched,
		RequiresIntervention: level != "low",
	}
}

func (ss *safetyService) Report(messages []string) SafetyReport {
	report := SafetyReport{
		TotalMessages:  len(messages),
		UniqueKeywords: []string{},
		OverallRisk:    "low",
		GeneratedAt:    time.Now().UTC(),
	}

	var scoreSum float64
	seen := map[string]struct{}{}
	for _, message := range messages {
		assessment := ss.Assess(message)
		if !assessment.RequiresIntervention {
			continue
		}
		report.FlaggedMessages++
		scoreSum += assessment.Score
		if assessment.Score > report.MaxRiskScore {
			report.MaxRiskScore = assessment.Score
		}
		for _, kw := range assessment.Keywords {
			if _, ok := seen[kw]; ok {
				continue
			}
			seen[kw] = struct{}{}
			report.UniqueKeywords = append(report.UniqueKeywords, kw)
		}
	}

	if report.FlaggedMessages > 0 {
		report.AvgRiskScore = scoreSum / float64(report.FlaggedMessages)
	}
	if report.TotalMessages > 0 {
		report.FlaggedPercentage = float64(report.FlaggedMessages) / float64(report.TotalMessages) * 100
	}

	switch {
	case report.MaxRiskScore >= 0.8 || report.FlaggedMessages >= 3:
		report.OverallRisk = "critical"
	case report.MaxRiskScore >= 0.5 || report.FlaggedMessages >= 2:
		report.OverallRisk = "high"
	case report.MaxRiskScore >= 0.3 || report.FlaggedMessages >= 1:
		report.OverallRisk = "medium"
	}
	report.RequiresImmediateAttention = report.OverallRisk == "critical" || report.OverallRisk == "high"
	return report
}

func (ss *safetyService) Recommendations(assessment SafetyAssessment) []string {
	var recommendations []string

	switch assessment.RiskLevel {
	case "critical":
		recommendations = append(recommendations,
			"IMMEDIATE ACTION REQUIRED: Contact student immediately",
			"Notify school counselor and administration",
			"Consider involving emergency services if student is unreachable",
			"Contact parent/guardian immediately",
			"Arrange for immediate in-person check-in",
		)
	case "high":
		recommendations = append(recommendations,
			"Contact student within 1 hour",
			"Schedule immediate counseling session",
			"Notify parent/guardian",
			"Increase monitoring and check-ins",
			"Provide crisis hotline information",
		)
	case "medium":
		recommendations = append(recommendations,
			"Contact student within 24 hours",
			"Schedule counseling session within 48 hours",
			"Consider notifying parent/guardian",
			"Provide mental health resources",
			"Monitor for escalation",
		)
	default:
		recommendations = append(recommendations,
			"Continue regular monitoring",
			"Provide general mental health resources",
			"Encourage open communication",
		)
	}

	for _, kw := range assessment.Keywords {
		if strings.Contains(strings.ToLower(kw), "suicide") {
			recommendations = append(recommendations, "Suicide risk protocol activated - follow emergency procedures")
			break
		}
	}
	for _, kw := range assessment.Keywords {
		if strings.Contains(strings.ToLower(kw), "harm") {
			recommendations = append(recommendations, "Self-harm risk identified - assess for physical safety")
			break
		}
	}
	return recommendations
}
