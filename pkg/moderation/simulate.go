package moderation

import "strings"

const (
	categoryPolitical = "political"
	categoryContent   = "content"
	politicalMarker   = "政治"
)

// simulate scans text for forbidden terms, one violation per matched term.
func simulate(text string, terms []string) *Result {
	var violations []Violation
	for _, term := range terms {
		if term == "" || !strings.Contains(text, term) {
			continue
		}
		category := categoryContent
		if strings.Contains(term, politicalMarker) {
			category = categoryPolitical
		}
		violations = append(violations, Violation{
			Words:       []string{term},
			Category:    category,
			Description: "sensitive term detected: " + term,
		})
	}

	if len(violations) > 0 {
		return &Result{
			Conclusion:   ConclusionNonCompliant,
			Violations:   violations,
			Message:      "simulated moderation: sensitive content found",
			ProviderCode: codeNonCompliant,
		}
	}
	return &Result{
		Conclusion:   ConclusionCompliant,
		Message:      "simulated moderation: content approved",
		ProviderCode: codeCompliant,
	}
}
