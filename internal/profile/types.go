package profile

import (
	"encoding/json"
	"strings"
	"time"
)

// DefaultCareerStage is used whenever a profile does not state a stage.
const DefaultCareerStage = "exploring"

// PersonProfile is a structured summary of a user's interests, skills, goals,
// values, and work style inferred from conversation. Every list field is
// conceptually a set: duplicates are meaningless and removed on merge. The
// profile accumulates monotonically within a session except CareerStage,
// which a more specific incoming value may overwrite. List fields are
// StringList so extraction output that flattens a list into one delimited
// string still parses.
type PersonProfile struct {
	Interests   StringList `json:"interests"`
	Skills      StringList `json:"skills"`
	Goals       StringList `json:"goals"`
	Values      StringList `json:"values"`
	WorkStyle   StringList `json:"workStyle"`
	CareerStage string     `json:"careerStage"`
	LastUpdated time.Time  `json:"lastUpdated"`
}

// StringList unmarshals from either a JSON array of strings or a single
// string split on commas, semicolons, and newlines. Extraction responses mix
// both shapes; this resolves the union once, at the parse boundary.
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	var items []string
	if err := json.Unmarshal(b, &items); err == nil {
		*l = items
		return nil
	}

	var single string
	if err := json.Unmarshal(b, &single); err != nil {
		return err
	}
	*l = SplitList(single)
	return nil
}

// SplitList breaks a delimited string into trimmed, non-empty entries.
func SplitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	var out []string
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
