package synth

import (
	"fmt"
	"strings"

	"github.com/careerscope/careerscope/internal/llm"
	"github.com/careerscope/careerscope/internal/profile"
)

const profileInstruction = `You analyze career conversations and build a profile of the person speaking.

Rules:
- "interests" are pure subjects the person is drawn to (e.g. "biology", "music production"). Never put job titles here.
- "skills" are abilities the person has actually demonstrated in the stories they tell, not aspirations.
- "goals" capture what they say they want to achieve or change.
- "values" and "workStyle" come from how they describe good and bad experiences.
- "careerStage" is one of their own framing: "exploring", "studying", "early-career", "switching", "returning" or similar. Use "exploring" when unclear.
- Leave any list empty rather than guessing.`

const careerInstruction = `You suggest concrete career paths matched to a person's profile.

Rules:
- Suggest 3 to 6 distinct careers spanning more than one industry.
- Ground every suggestion in the profile: name the interests or skills it builds on in the description.
- "salaryRange" uses realistic local figures for entry, experienced and senior levels.
- "entryRequirements" and "trainingPathways" must be actionable, not generic encouragement.
- "confidence" reflects how well the profile supports the match, between 0 and 1.
- Respond with a single JSON object with one field "careerCards" holding the array of cards.`

var profileSchema = &llm.Schema{
	Type: "object",
	Properties: map[string]llm.SchemaProperty{
		"interests":   {Type: "array", Description: "subjects of interest, never job titles"},
		"skills":      {Type: "array", Description: "demonstrated abilities"},
		"goals":       {Type: "array", Description: "stated aims"},
		"values":      {Type: "array", Description: "what matters to the person"},
		"workStyle":   {Type: "array", Description: "preferred ways of working"},
		"careerStage": {Type: "string", Description: "stage of the person's career journey"},
	},
	Required: []string{"interests", "skills", "careerStage"},
}

var cardsSchema = &llm.Schema{
	Type: "object",
	Properties: map[string]llm.SchemaProperty{
		"careerCards": {Type: "array", Description: "3 to 6 career suggestion cards"},
	},
	Required: []string{"careerCards"},
}

// renderProfile serializes a profile as a labeled block for the career pass.
func renderProfile(p profile.PersonProfile) string {
	var b strings.Builder
	writeList := func(label string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&b, "%s: %s\n", label, strings.Join(items, ", "))
	}
	writeList("Interests", p.Interests)
	writeList("Skills", p.Skills)
	writeList("Goals", p.Goals)
	writeList("Values", p.Values)
	writeList("Work style", p.WorkStyle)
	fmt.Fprintf(&b, "Career stage: %s\n", p.CareerStage)
	return b.String()
}
