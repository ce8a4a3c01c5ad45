package ai

import (
	"context"
	"encoding/json"
	"fmt"
)

// moodSystemPrompt frames the mood companion persona
const moodSystemPrompt = `You are a compassionate AI mood companion. Provide thoughtful, empathetic insights based on the user's mood and feelings. Keep responses warm, supportive, and under 150 words. Focus on understanding, validation, and gentle suggestions if appropriate. Always maintain a caring and positive tone.`

// cbtSystemPrompt frames the CBT coach persona
const cbtSystemPrompt = `You are a compassionate CBT coach.
- Keep responses brief, practical, and supportive.
- Use CBT techniques: identify distortions, challenge thoughts, generate balanced thoughts, and suggest 1-2 actionable steps.
- Avoid clinical jargon unless helpful.
- Keep a calm, encouraging tone.`

// patternEntryLimit caps how many CBT entries a pattern summary sees
const patternEntryLimit = 50

// patternPayloadLimit caps the serialized entries forwarded upstream
const patternPayloadLimit = 12000

// CBTEntry is one thought record forwarded for pattern analysis
type CBTEntry struct {
	Situation        string `json:"situation,omitempty"`
	AutomaticThought string `json:"automaticThought"`
	Emotion          string `json:"emotion,omitempty"`
	Distortion       string `json:"distortion,omitempty"`
	Reframe          string `json:"reframe,omitempty"`
}

// Insights produces the AI-generated reflections for moods and CBT
// thought records
type Insights struct {
	client *Client
}

// NewInsights creates a new insights service
func NewInsights(client *Client) *Insights {
	return &Insights{client: client}
}

// MoodInsight generates an empathetic reflection for a mood entry
func (s *Insights) MoodInsight(ctx context.Context, moodText, selectedEmoji string) (string, error) {
	messages := []Message{
		{Role: "system", Content: moodSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("My mood: %s %s", selectedEmoji, moodText)},
	}
	return s.client.Complete(ctx, messages, 0.7, 200)
}

// CoachSuggestion generates a balanced-thought reframe for one thought
// record. Missing optional fields are forwarded as "(not provided)".
func (s *Insights) CoachSuggestion(ctx context.Context, situation, automaticThought, emotion, distortion string) (string, error) {
	userMsg := fmt.Sprintf(
		"Situation: %s\nThought: %s\nEmotion: %s\nPossible Distortion: %s\n\nProvide: \n1) A balanced thought\n2) A brief reframe explanation\n3) 1-2 small next steps.",
		orPlaceholder(situation, "(not provided)"),
		automaticThought,
		orPlaceholder(emotion, "(not provided)"),
		orPlaceholder(distortion, "(unknown)"),
	)
	messages := []Message{
		{Role: "system", Content: cbtSystemPrompt},
		{Role: "user", Content: userMsg},
	}
	return s.client.Complete(ctx, messages, 0.7, 0)
}

// PatternSummary summarizes recurring patterns across recent thought
// records
func (s *Insights) PatternSummary(ctx context.Context, entries []CBTEntry) (string, error) {
	if len(entries) > patternEntryLimit {
		entries = entries[:patternEntryLimit]
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("failed to marshal entries: %w", err)
	}
	if len(payload) > patternPayloadLimit {
		payload = payload[:patternPayloadLimit]
	}

	userMsg := fmt.Sprintf(
		"You are given recent CBT entries. Summarize patterns compassionately. \nReturn 4 short sections: \n- Top patterns/distortions\n- Triggers\n- Helpful reframes that worked\n- Suggested next steps.\n\nEntries JSON:\n%s",
		string(payload),
	)
	messages := []Message{
		{Role: "system", Content: cbtSystemPrompt},
		{Role: "user", Content: userMsg},
	}
	return s.client.Complete(ctx, messages, 0.4, 0)
}

func orPlaceholder(value, placeholder string) string {
	if value == "" {
		return placeholder
	}
	return value
}
