package quality

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/m-mizutani/docaudit/pkg/model"
)

// Answer is the model's JSON answer before validation. It is deliberately
// untyped; callers read it only through the accessors below.
type Answer map[string]any

// ParseAnswer extracts the outermost JSON object from a raw model answer.
// Markdown fences and surrounding prose are ignored. Anything that cannot be
// parsed yields an empty Answer so that scoring falls back to defaults.
func ParseAnswer(raw string) Answer {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Answer{}
	}

	var answer Answer
	if err := json.Unmarshal([]byte(raw[start:end+1]), &answer); err != nil {
		return Answer{}
	}
	if answer == nil {
		return Answer{}
	}
	return answer
}

func (a Answer) str(key string) string {
	if s, ok := a[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func (a Answer) Summary() string      { return a.str("summary") }
func (a Answer) Context() string      { return a.str("context") }
func (a Answer) DocumentType() string { return a.str("document_type") }

func (a Answer) RecommendedAction() string {
	if s := a.str("recommended_action"); s != "" {
		return s
	}
	return a.str("action")
}

// Dimensions returns the raw dimension map wherever the model placed it.
func (a Answer) Dimensions() map[string]any {
	for _, key := range []string{"dimensions", "quality_dimensions"} {
		if m, ok := a[key].(map[string]any); ok {
			return m
		}
	}
	if q, ok := a["quality"].(map[string]any); ok {
		if m, ok := q["dimensions"].(map[string]any); ok {
			return m
		}
	}
	return map[string]any{}
}

// Metadata converts the entity lists of the answer.
func (a Answer) Metadata() *model.Metadata {
	m, _ := a["metadata"].(map[string]any)
	return &model.Metadata{
		People:        stringList(m["people"]),
		Locations:     stringList(m["locations"]),
		Organizations: stringList(m["organizations"]),
		Dates:         stringList(m["dates"]),
		Topics:        stringList(m["topics"]),
		Keywords:      stringList(m["keywords"]),
		Emails:        stringList(m["emails"]),
		Phones:        stringList(m["phones"]),
	}
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			var s string
			switch x := item.(type) {
			case string:
				s = x
			case nil:
				continue
			default:
				s = fmt.Sprint(x)
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	}
	return nil
}
