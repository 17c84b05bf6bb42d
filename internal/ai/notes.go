package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// MaxInputChars is the input budget for one model call. Longer extracts are
// silently head-truncated, not rejected.
const MaxInputChars = 120_000

// truncateInput enforces the input budget. The cut backs off to a rune
// boundary so the prompt stays valid UTF-8.
func truncateInput(s string) string {
	if len(s) <= MaxInputChars {
		return s
	}
	n := MaxInputChars
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// StructuredNotes is the fixed JSON contract the notes prompt asks for.
// Malformed output is a hard failure; there is no best-effort acceptance.
type StructuredNotes struct {
	Title      string      `json:"title" bson:"title"`
	Sections   []Section   `json:"sections" bson:"sections"`
	KeyTerms   []string    `json:"key_terms" bson:"key_terms"`
	Summary    string      `json:"summary" bson:"summary"`
	Flashcards []Flashcard `json:"flashcards" bson:"flashcards"`
}

type Section struct {
	Heading string   `json:"heading" bson:"heading"`
	Bullets []string `json:"bullets" bson:"bullets"`
}

type Flashcard struct {
	Question string `json:"question" bson:"question"`
	Answer   string `json:"answer" bson:"answer"`
}

const notesPrompt = `You are an expert note-making assistant. Read the provided content and produce structured study notes as strict JSON with the following shape:
{
  "title": string,
  "sections": [ { "heading": string, "bullets": string[] } ],
  "key_terms": string[],
  "summary": string,
  "flashcards": [ { "question": string, "answer": string } ]
}
Guidelines:
- Be concise and accurate.
- Organize content into 3-7 sections maximum.
- Use short bullet points per section (3-7 bullets each).
- Create 5-10 flashcards that cover key ideas.
- Do not include any additional keys. Use valid JSON only.`

// GenerateNotes asks the model for structured notes over text. The structural
// guidelines in the prompt are advisory to the model and not enforced here.
func GenerateNotes(ctx context.Context, g Generator, text string) (*StructuredNotes, error) {
	raw, err := g.GenerateJSON(ctx, notesPrompt+"\n\n---\nCONTENT:\n"+truncateInput(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	return ParseNotes(raw)
}

// ParseNotes decodes a raw model reply as StructuredNotes. Anything that is
// not exactly the contract shape is ErrMalformedResponse.
func ParseNotes(raw string) (*StructuredNotes, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	var notes StructuredNotes
	if err := dec.Decode(&notes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	// A single value and nothing else; trailing data is not well-formed.
	if err := dec.Decode(new(json.RawMessage)); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after notes object", ErrMalformedResponse)
	}
	return &notes, nil
}

// RenderText flattens structured notes into the plain text posted to
// Classroom as a material description.
func (n *StructuredNotes) RenderText() string {
	var b strings.Builder
	if n.Title != "" {
		b.WriteString(n.Title + "\n\n")
	}
	for _, s := range n.Sections {
		b.WriteString(s.Heading + "\n")
		for _, bullet := range s.Bullets {
			b.WriteString("- " + bullet + "\n")
		}
		b.WriteByte('\n')
	}
	if len(n.KeyTerms) > 0 {
		b.WriteString("Key terms: " + strings.Join(n.KeyTerms, ", ") + "\n\n")
	}
	if n.Summary != "" {
		b.WriteString("Summary: " + n.Summary + "\n")
	}
	return strings.TrimSpace(b.String())
}
