package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/careerscope/careerscope/internal/career"
	"github.com/careerscope/careerscope/internal/extract"
	"github.com/careerscope/careerscope/internal/llm"
	"github.com/careerscope/careerscope/internal/profile"
	"github.com/careerscope/careerscope/internal/transcript"
)

// StructuredExtractor runs one structured-completion call. Implemented by
// extract.Extractor.
type StructuredExtractor interface {
	Extract(ctx context.Context, systemInstruction, userText string, schema *llm.Schema, out any, opts extract.Options) error
}

// AnalysisResult is the outcome of one full conversation analysis: the
// extracted profile, the generated cards, and flat mirrors of the profile
// lists for callers that only want the detections.
type AnalysisResult struct {
	Profile           profile.PersonProfile `json:"profile"`
	CareerCards       []career.CareerCard   `json:"careerCards"`
	DetectedInterests []string              `json:"detectedInterests"`
	DetectedSkills    []string              `json:"detectedSkills"`
	DetectedGoals     []string              `json:"detectedGoals"`
	DetectedValues    []string              `json:"detectedValues"`
	Confidence        float64               `json:"confidence"`
	AnalyzedAt        time.Time             `json:"analyzedAt"`
}

// Synthesizer runs the two-pass analysis: profile extraction from a rendered
// transcript, then career card generation conditioned on the transcript and
// that profile. Extraction failure degrades to defaults, never to an error.
type Synthesizer struct {
	extractor StructuredExtractor
	location  string
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a Synthesizer. location seasons fallback cards with a locale.
func New(extractor StructuredExtractor, location string, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{extractor: extractor, location: location, logger: logger, now: time.Now}
}

// cardsEnvelope decodes the career pass output, accepting either the
// requested {"careerCards": [...]} wrapper or a bare array.
type cardsEnvelope struct {
	Cards []career.CareerCard
}

func (c *cardsEnvelope) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		CareerCards []career.CareerCard `json:"careerCards"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.CareerCards != nil {
		c.Cards = wrapped.CareerCards
		return nil
	}
	var bare []career.CareerCard
	if err := json.Unmarshal(data, &bare); err != nil {
		return fmt.Errorf("career cards payload: %w", err)
	}
	c.Cards = bare
	return nil
}

// Analyze runs both passes over the given messages. Extraction failures on
// either pass are absorbed: the profile degrades to an empty default and the
// cards degrade to the fallback set, so a single bad model response never
// fails the whole pipeline. Confidence is stamped from how much the profile
// actually carries.
func (s *Synthesizer) Analyze(ctx context.Context, msgs []transcript.Message) (AnalysisResult, error) {
	rendered := transcript.Render(msgs)

	var p profile.PersonProfile
	if err := s.extractor.Extract(ctx, profileInstruction, rendered, profileSchema, &p, extract.Options{
		Temperature: extract.StructuredTemperature,
	}); err != nil {
		s.logger.Warn("profile extraction failed, using empty profile", "error", err)
		p = profile.PersonProfile{}
	}
	p = profile.Normalize(p)
	p.LastUpdated = s.now()

	// The career pass sees the transcript and the extracted profile.
	cards := s.recommend(ctx, p, "Conversation:\n"+rendered+"\n\nExtracted profile:\n"+renderProfile(p))

	return AnalysisResult{
		Profile:           p,
		CareerCards:       cards,
		DetectedInterests: p.Interests,
		DetectedSkills:    p.Skills,
		DetectedGoals:     p.Goals,
		DetectedValues:    p.Values,
		Confidence:        profileConfidence(p),
		AnalyzedAt:        s.now(),
	}, nil
}

// profileConfidence scores how much signal the extraction found. Interests
// are the strongest indicator the conversation was about the person at all.
func profileConfidence(p profile.PersonProfile) float64 {
	if len(p.Interests) > 0 {
		return 0.8
	}
	return 0.3
}

// Recommend generates cards for an already-known profile, for callers that
// skip the transcript pass. Same degradation rules as Analyze.
func (s *Synthesizer) Recommend(ctx context.Context, p profile.PersonProfile) []career.CareerCard {
	return s.recommend(ctx, p, renderProfile(p))
}

func (s *Synthesizer) recommend(ctx context.Context, p profile.PersonProfile, userText string) []career.CareerCard {
	cards := s.generateCards(ctx, userText)
	confidence := profileConfidence(p)
	for i := range cards {
		if cards[i].Confidence == 0 {
			cards[i].Confidence = confidence
		}
		if cards[i].Location == "" {
			cards[i].Location = s.location
		}
	}
	career.EnsureIDs(cards)
	return cards
}

func (s *Synthesizer) generateCards(ctx context.Context, userText string) []career.CareerCard {
	var env cardsEnvelope
	err := s.extractor.Extract(ctx, careerInstruction, userText, cardsSchema, &env, extract.Options{
		Temperature: extract.StructuredTemperature,
		LongRunning: true,
	})
	if err != nil {
		s.logger.Warn("career card generation failed, using fallback cards", "error", err)
		return career.FallbackCards(s.location)
	}

	cards := career.Dedupe(env.Cards)
	if len(cards) == 0 {
		s.logger.Warn("career card generation returned no cards, using fallback cards")
		return career.FallbackCards(s.location)
	}
	return cards
}
