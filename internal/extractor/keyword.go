package extractor

import (
	"regexp"
	"strings"
	"time"

	"safetyagent/internal/model"
)

const (
	autoLocation  = "Auto-detected"
	agentName     = "SafetyAgent"
	noMatchFact   = "No specific module detected; created a generic note proposal"
	inspectionDay = "2006-01-02"
)

type keywordRule struct {
	pattern    *regexp.Regexp
	fact       string
	collection string
	payload    func(day string) model.Payload
}

func inspectionPayload(day string) model.Payload {
	return model.Payload{
		"InspectionDate": day,
		"Location":       autoLocation,
		"InspectedBy":    agentName,
		"Status":         "Pending",
	}
}

var keywordRules = []keywordRule{
	{
		pattern:    regexp.MustCompile(`struct|beam|column|slab|foundation`),
		fact:       "Detected structural content",
		collection: "StructuralSafety",
		payload:    inspectionPayload,
	},
	{
		pattern:    regexp.MustCompile(`fire|sprinkler|alarm|evac`),
		fact:       "Detected fire safety content",
		collection: "FireSafety",
		payload:    inspectionPayload,
	},
	{
		pattern:    regexp.MustCompile(`electrical|voltage|wiring|breaker`),
		fact:       "Detected electrical safety content",
		collection: "ElectricalSafety",
		payload:    inspectionPayload,
	},
	{
		pattern:    regexp.MustCompile(`hazard|chemical|dust|noise|ergonomic`),
		fact:       "Detected health hazard content",
		collection: "HealthHazards",
		payload: func(day string) model.Payload {
			return model.Payload{
				"AssessmentDate": day,
				"Location":       autoLocation,
				"HazardType":     "Detected",
				"RiskLevel":      "TBD",
			}
		},
	},
}

// KeywordExtractor proposes one INSERT per safety domain whose keywords appear in the text.
type KeywordExtractor struct {
	now func() time.Time
}

// NewKeywordExtractor returns the default keyword strategy. A nil clock uses time.Now.
func NewKeywordExtractor(now func() time.Time) *KeywordExtractor {
	if now == nil {
		now = time.Now
	}
	return &KeywordExtractor{now: now}
}

var _ Extractor = (*KeywordExtractor)(nil)

func (k *KeywordExtractor) Classify(text string) Result {
	t := strings.ToLower(text)
	day := k.now().UTC().Format(inspectionDay)

	res := Result{
		Proposals: []model.ProposedItem{},
		Facts:     []string{},
	}
	for _, r := range keywordRules {
		if !r.pattern.MatchString(t) {
			continue
		}
		res.Facts = append(res.Facts, r.fact)
		res.Proposals = append(res.Proposals, model.ProposedItem{
			TargetCollection: r.collection,
			Action:           model.ActionInsert,
			Payload:          r.payload(day),
		})
	}
	if len(res.Proposals) == 0 {
		res.Facts = append(res.Facts, noMatchFact)
	}
	return res
}
