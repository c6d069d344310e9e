package investigation

import (
	"regexp"
	"strings"

	"github.com/sre-incident/orchestrator/pkg/incident"
)

var (
	rootCauseMarker  = regexp.MustCompile(`(?i)ROOT CAUSE:\s*(.+?)(\n|$)`)
	rootCausePattern = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:the\s+)?root cause (?:is|appears to be|seems to be)\s+(.+?)(?:\.|$)`),
		regexp.MustCompile(`(?i)(?:this\s+)?(?:is\s+)?(?:likely\s+)?caused by\s+(.+?)(?:\.|$)`),
		regexp.MustCompile(`(?i)(?:the\s+)?issue (?:is|appears to be)\s+(.+?)(?:\.|$)`),
	}

	confidenceMarker = regexp.MustCompile(`(?i)CONFIDENCE:\s*(high|medium|low)`)

	evidenceMarker = regexp.MustCompile(`(?is)EVIDENCE:\s*(.+?)(\n\n|\n[A-Z]+:|$)`)

	recommendationsMarker = regexp.MustCompile(`(?is)RECOMMENDATIONS?:\s*(.+?)(\n\n|$)`)
	recommendationSplit   = regexp.MustCompile(`\n[-•*]\s*|\n\d+\.\s*|\n`)
)

var (
	highConfidenceIndicators = []string{"definitely", "certainly", "clearly", "obviously", "high confidence"}
	lowConfidenceIndicators  = []string{"possibly", "maybe", "might", "could be", "low confidence", "uncertain"}
)

// extractRootCause mirrors the original's extract_root_cause: an explicit
// "ROOT CAUSE:" marker, falling back to a set of common phrasings, falling
// back to the first sentence of content.
func extractRootCause(content string) string {
	if content == "" {
		return ""
	}

	if m := rootCauseMarker.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}

	for _, p := range rootCausePattern {
		if m := p.FindStringSubmatch(content); m != nil {
			return strings.TrimSpace(m[1])
		}
	}

	sentences := strings.Split(content, ".")
	if len(sentences) > 0 {
		return strings.TrimSpace(sentences[0])
	}
	return ""
}

// extractConfidence mirrors the original's extract_confidence: an explicit
// "CONFIDENCE:" marker, falling back to a keyword scan, defaulting medium.
func extractConfidence(content string) incident.ConfidenceLevel {
	if content == "" {
		return incident.ConfidenceMedium
	}

	if m := confidenceMarker.FindStringSubmatch(content); m != nil {
		return incident.ConfidenceLevel(strings.ToLower(m[1]))
	}

	lower := strings.ToLower(content)
	for _, ind := range highConfidenceIndicators {
		if strings.Contains(lower, ind) {
			return incident.ConfidenceHigh
		}
	}
	for _, ind := range lowConfidenceIndicators {
		if strings.Contains(lower, ind) {
			return incident.ConfidenceLow
		}
	}
	return incident.ConfidenceMedium
}

// extractRecommendations mirrors the original's extract_recommendations:
// pull the RECOMMENDATIONS: block, split on bullet/numbered-list markers or
// newlines, and drop anything <=10 chars after trimming (the model
// documents "> 10" but that floor is really "more than 10 chars", i.e. an
// 11-char minimum).
func extractRecommendations(content string) []string {
	if content == "" {
		return nil
	}

	m := recommendationsMarker.FindStringSubmatch(content)
	if m == nil {
		return nil
	}

	recText := strings.TrimSpace(m[1])
	lines := recommendationSplit.Split(recText, -1)

	var recommendations []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if len(line) > 10 {
			recommendations = append(recommendations, line)
		}
	}
	return recommendations
}

// extractEvidenceFromContent finds an explicit "EVIDENCE:" section in a
// single message's content, used when walking AI messages.
func extractEvidenceFromContent(content string) (string, bool) {
	m := evidenceMarker.FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}
