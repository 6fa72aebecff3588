package insight

import (
	"context"
	"fmt"
	"time"

	"github.com/careerscope/careerscope/internal/extract"
	"github.com/careerscope/careerscope/internal/llm"
	"github.com/careerscope/careerscope/internal/profile"
)

// Insight is a short practical briefing about one career field.
type Insight struct {
	Field           string             `json:"field"`
	Description     string             `json:"description"`
	SalaryRange     string             `json:"salaryRange"`
	KeySkills       profile.StringList `json:"keySkills"`
	TrainingPathway string             `json:"trainingPathway"`
	NextSteps       profile.StringList `json:"nextSteps"`
	GrowthOutlook   string             `json:"growthOutlook"`
	GeneratedAt     time.Time          `json:"generatedAt"`
}

const instruction = `You write a short practical briefing about one career field for someone considering it.

Rules:
- Be specific to the field; no filler.
- "salaryRange" is a single human-readable range string.
- "keySkills" lists 3 to 6 skills employers in the field actually screen for.
- "trainingPathway" names a concrete route in, with typical duration.
- "nextSteps" are 2 to 4 things the reader could start this month.
- "growthOutlook" summarizes demand direction in one or two sentences.`

var schema = &llm.Schema{
	Type: "object",
	Properties: map[string]llm.SchemaProperty{
		"field":           {Type: "string", Description: "the career field"},
		"description":     {Type: "string", Description: "what working in the field is like"},
		"salaryRange":     {Type: "string", Description: "typical salary range"},
		"keySkills":       {Type: "array", Description: "skills employers screen for"},
		"trainingPathway": {Type: "string", Description: "concrete route into the field"},
		"nextSteps":       {Type: "array", Description: "near-term actions"},
		"growthOutlook":   {Type: "string", Description: "demand direction"},
	},
	Required: []string{"field", "description"},
}

// StructuredExtractor runs one structured-completion call. Implemented by
// extract.Extractor.
type StructuredExtractor interface {
	Extract(ctx context.Context, systemInstruction, userText string, schema *llm.Schema, out any, opts extract.Options) error
}

// UserContext carries optional facts about the reader that season the
// briefing. Empty fields are omitted from the prompt.
type UserContext struct {
	Experience string
	Location   string
}

// Generator produces one Insight per field.
type Generator struct {
	extractor StructuredExtractor
	now       func() time.Time
}

// NewGenerator creates a Generator bound to an extractor.
func NewGenerator(extractor StructuredExtractor) *Generator {
	return &Generator{extractor: extractor, now: time.Now}
}

// Generate produces an insight for a single field.
func (g *Generator) Generate(ctx context.Context, field string, user UserContext) (Insight, error) {
	userText := fmt.Sprintf("Career field: %s", field)
	if user.Experience != "" {
		userText += fmt.Sprintf("\nExperience level: %s", user.Experience)
	}
	if user.Location != "" {
		userText += fmt.Sprintf("\nLocation: %s", user.Location)
	}

	var ins Insight
	err := g.extractor.Extract(ctx, instruction, userText, schema, &ins, extract.Options{
		Temperature: extract.CreativeTemperature,
	})
	if err != nil {
		return Insight{}, fmt.Errorf("generating insight for %q: %w", field, err)
	}
	if ins.Field == "" {
		ins.Field = field
	}
	ins.GeneratedAt = g.now()
	return ins, nil
}
