package profile

import "strings"

// Merge upserts an incoming profile into a previous one with set-union
// semantics per field. When previous is nil the normalized incoming profile
// becomes current. CareerStage keeps the previous value unless the incoming
// one is more specific than the default. LastUpdated takes the incoming
// timestamp unconditionally. Merge is associative and idempotent: applying
// the same incoming profile twice changes nothing beyond the first time.
func Merge(previous *PersonProfile, incoming PersonProfile) PersonProfile {
	normalized := Normalize(incoming)
	if previous == nil {
		return normalized
	}

	merged := PersonProfile{
		Interests:   unionUnique(previous.Interests, normalized.Interests),
		Skills:      unionUnique(previous.Skills, normalized.Skills),
		Goals:       unionUnique(previous.Goals, normalized.Goals),
		Values:      unionUnique(previous.Values, normalized.Values),
		WorkStyle:   unionUnique(previous.WorkStyle, normalized.WorkStyle),
		CareerStage: previous.CareerStage,
		LastUpdated: normalized.LastUpdated,
	}

	if normalized.CareerStage != DefaultCareerStage {
		merged.CareerStage = normalized.CareerStage
	}
	if merged.CareerStage == "" {
		merged.CareerStage = DefaultCareerStage
	}
	return merged
}

// Normalize dedupes every list field and fills in the default career stage.
func Normalize(p PersonProfile) PersonProfile {
	out := PersonProfile{
		Interests:   uniqueStrings(p.Interests),
		Skills:      uniqueStrings(p.Skills),
		Goals:       uniqueStrings(p.Goals),
		Values:      uniqueStrings(p.Values),
		WorkStyle:   uniqueStrings(p.WorkStyle),
		CareerStage: p.CareerStage,
		LastUpdated: p.LastUpdated,
	}
	if out.CareerStage == "" {
		out.CareerStage = DefaultCareerStage
	}
	return out
}

func unionUnique(a, b []string) []string {
	combined := make([]string, 0, len(a)+len(b))
	combined = append(combined, a...)
	combined = append(combined, b...)
	return uniqueStrings(combined)
}

// uniqueStrings trims entries, drops empties, and keeps the first occurrence
// of each value in input order.
func uniqueStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
