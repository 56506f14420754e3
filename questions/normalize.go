package questions

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tariffdesk/stacking/tariff"
)

// Parse converts a raw answer into the typed value for a question kind.
// It is total: every input produces a value, never an error. Booleans match
// yes/true/1 case-insensitively; sliders strip a trailing % and fall back to
// 0 on any parse failure; country selections are trimmed and uppercased.
func Parse(raw any, kind Kind) any {
	switch kind {
	case KindBoolean:
		s := strings.TrimSpace(strings.ToLower(fmt.Sprint(raw)))
		return s == "yes" || s == "true" || s == "1"

	case KindSlider:
		if f, ok := raw.(float64); ok {
			return f
		}
		s := strings.TrimSpace(strings.ReplaceAll(fmt.Sprint(raw), "%", ""))
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0.0
		}
		return f

	case KindCountrySelect:
		return strings.ToUpper(strings.TrimSpace(fmt.Sprint(raw)))
	}
	return raw
}

// Normalize maps raw answers keyed by question index back to question IDs,
// parsing each value per its question's kind. Indexes with no matching
// question are ignored; unanswered questions are simply absent from the
// result.
func Normalize(qs []Question, raw map[string]any) tariff.Answers {
	answers := make(tariff.Answers, len(qs))
	for _, q := range qs {
		v, ok := raw[strconv.Itoa(q.Index)]
		if !ok {
			continue
		}
		answers[q.ID] = Parse(v, q.Kind)
	}
	return answers
}
