package career

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/careerscope/careerscope/internal/profile"
)

// SalaryRange is a three-band salary estimate for one occupation.
type SalaryRange struct {
	Entry       string `json:"entry"`
	Experienced string `json:"experienced"`
	Senior      string `json:"senior"`
}

// CareerCard is one structured recommendation record. Identity is the
// normalized title+industry dedup key, not the id; ids are assigned only
// when absent. Cards are append-only per session and deduplicated on every
// insertion batch.
type CareerCard struct {
	ID                string      `json:"id,omitempty"`
	Title             string      `json:"title"`
	Description       string      `json:"description"`
	Industry          string      `json:"industry"`
	SalaryRange       SalaryRange `json:"salaryRange"`
	GrowthOutlook     string      `json:"growthOutlook"`
	EntryRequirements []string    `json:"entryRequirements"`
	TrainingPathways  []string    `json:"trainingPathways"`
	KeySkills         []string    `json:"keySkills"`
	WorkEnvironment   string      `json:"workEnvironment"`
	NextSteps         []string    `json:"nextSteps"`
	Confidence        float64     `json:"confidence"`
	SourceData        string      `json:"sourceData,omitempty"`
	Location          string      `json:"location,omitempty"`
	GeneratedAt       time.Time   `json:"generatedAt"`
}

// cardAliases is the lax external shape: producers disagree on field names
// (skillsRequired vs keySkills, marketOutlook vs growthOutlook) and sometimes
// emit delimited strings where arrays are expected. Canonical names win when
// both are present.
type cardAliases struct {
	ID                string             `json:"id"`
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	Industry          string             `json:"industry"`
	SalaryRange       SalaryRange        `json:"salaryRange"`
	GrowthOutlook     string             `json:"growthOutlook"`
	MarketOutlook     string             `json:"marketOutlook"`
	EntryRequirements profile.StringList `json:"entryRequirements"`
	TrainingPathways  profile.StringList `json:"trainingPathways"`
	TrainingPathway   profile.StringList `json:"trainingPathway"`
	KeySkills         profile.StringList `json:"keySkills"`
	SkillsRequired    profile.StringList `json:"skillsRequired"`
	WorkEnvironment   string             `json:"workEnvironment"`
	NextSteps         profile.StringList `json:"nextSteps"`
	Confidence        float64            `json:"confidence"`
	SourceData        string             `json:"sourceData"`
	Location          string             `json:"location"`
	GeneratedAt       time.Time          `json:"generatedAt"`
}

// UnmarshalJSON resolves the external producer shapes into the canonical card.
func (c *CareerCard) UnmarshalJSON(b []byte) error {
	var raw cardAliases
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*c = CareerCard{
		ID:                raw.ID,
		Title:             raw.Title,
		Description:       raw.Description,
		Industry:          raw.Industry,
		SalaryRange:       raw.SalaryRange,
		GrowthOutlook:     firstNonEmpty(raw.GrowthOutlook, raw.MarketOutlook),
		EntryRequirements: raw.EntryRequirements,
		TrainingPathways:  raw.TrainingPathways,
		KeySkills:         raw.KeySkills,
		WorkEnvironment:   raw.WorkEnvironment,
		NextSteps:         raw.NextSteps,
		Confidence:        clampConfidence(raw.Confidence),
		SourceData:        raw.SourceData,
		Location:          raw.Location,
		GeneratedAt:       raw.GeneratedAt,
	}
	if len(c.TrainingPathways) == 0 {
		c.TrainingPathways = raw.TrainingPathway
	}
	if len(c.KeySkills) == 0 {
		c.KeySkills = raw.SkillsRequired
	}
	return nil
}

// EnsureIDs assigns a fresh id to every card that lacks one and stamps
// missing generation times.
func EnsureIDs(cards []CareerCard) []CareerCard {
	now := time.Now().UTC()
	for i := range cards {
		if cards[i].ID == "" {
			cards[i].ID = uuid.New().String()
		}
		if cards[i].GeneratedAt.IsZero() {
			cards[i].GeneratedAt = now
		}
	}
	return cards
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
