package ai

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

type fakeGenerator struct {
	jsonReply string
	textReply string
	err       error

	lastPrompt string
}

func (f *fakeGenerator) GenerateJSON(_ context.Context, prompt string) (string, error) {
	f.lastPrompt = prompt
	return f.jsonReply, f.err
}

func (f *fakeGenerator) GenerateText(_ context.Context, prompt string) (string, error) {
	f.lastPrompt = prompt
	return f.textReply, f.err
}

const validNotesJSON = `{
  "title": "Photosynthesis",
  "sections": [
    {"heading": "Light reactions", "bullets": ["Occur in thylakoids", "Produce ATP and NADPH"]},
    {"heading": "Calvin cycle", "bullets": ["Fixes CO2", "Runs in the stroma"]}
  ],
  "key_terms": ["chlorophyll", "stroma"],
  "summary": "Plants convert light energy into chemical energy.",
  "flashcards": [
    {"question": "Where do light reactions occur?", "answer": "In the thylakoid membranes"}
  ]
}`

func TestGenerateNotes_roundTrip(t *testing.T) {
	g := &fakeGenerator{jsonReply: validNotesJSON}
	got, err := GenerateNotes(context.Background(), g, "enough text about photosynthesis")
	if err != nil {
		t.Fatalf("GenerateNotes: %v", err)
	}
	want := &StructuredNotes{
		Title: "Photosynthesis",
		Sections: []Section{
			{Heading: "Light reactions", Bullets: []string{"Occur in thylakoids", "Produce ATP and NADPH"}},
			{Heading: "Calvin cycle", Bullets: []string{"Fixes CO2", "Runs in the stroma"}},
		},
		KeyTerms:   []string{"chlorophyll", "stroma"},
		Summary:    "Plants convert light energy into chemical energy.",
		Flashcards: []Flashcard{{Question: "Where do light reactions occur?", Answer: "In the thylakoid membranes"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("notes mismatch:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestGenerateNotes_malformed(t *testing.T) {
	cases := map[string]string{
		"not json":       "Sure! Here are your notes:",
		"truncated":      `{"title": "x", "sections": [`,
		"extra keys":     `{"title": "x", "sections": [], "key_terms": [], "summary": "", "flashcards": [], "bonus": 1}`,
		"wrong type":       `{"title": 42}`,
		"empty response":   "",
		"trailing garbage": validNotesJSON + "\nHope these help!",
		"second value":     validNotesJSON + ` {"title": "again"}`,
	}
	for name, raw := range cases {
		g := &fakeGenerator{jsonReply: raw}
		got, err := GenerateNotes(context.Background(), g, "some content")
		if !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("%s: err = %v, want ErrMalformedResponse", name, err)
		}
		if got != nil {
			t.Errorf("%s: got partially-populated notes %+v", name, got)
		}
	}
}

func TestGenerateNotes_generationFailure(t *testing.T) {
	g := &fakeGenerator{err: errors.New("quota exceeded")}
	_, err := GenerateNotes(context.Background(), g, "some content")
	if !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("err = %v, want ErrGenerationFailed", err)
	}
	if errors.Is(err, ErrMalformedResponse) {
		t.Error("generation failure must not collapse into ErrMalformedResponse")
	}
}

func TestGenerateNotes_truncatesInput(t *testing.T) {
	g := &fakeGenerator{jsonReply: validNotesJSON}
	long := strings.Repeat("x", MaxInputChars+500)
	if _, err := GenerateNotes(context.Background(), g, long); err != nil {
		t.Fatalf("GenerateNotes: %v", err)
	}
	if strings.Contains(g.lastPrompt, strings.Repeat("x", MaxInputChars+1)) {
		t.Error("input was not truncated to MaxInputChars")
	}
	if !strings.Contains(g.lastPrompt, strings.Repeat("x", MaxInputChars)) {
		t.Error("truncation removed more than the tail")
	}
}

func TestGenerateNotes_truncationKeepsValidUTF8(t *testing.T) {
	g := &fakeGenerator{jsonReply: validNotesJSON}
	// The two-byte rune straddles the budget boundary.
	long := strings.Repeat("a", MaxInputChars-1) + "é" + strings.Repeat("b", 100)
	if _, err := GenerateNotes(context.Background(), g, long); err != nil {
		t.Fatalf("GenerateNotes: %v", err)
	}
	if !utf8.ValidString(g.lastPrompt) {
		t.Error("truncation split a rune; prompt is not valid UTF-8")
	}
}

func TestRenderText(t *testing.T) {
	n := &StructuredNotes{
		Title:    "Cells",
		Sections: []Section{{Heading: "Organelles", Bullets: []string{"Mitochondria", "Ribosomes"}}},
		KeyTerms: []string{"organelle"},
		Summary:  "Cells are the unit of life.",
	}
	got := n.RenderText()
	for _, want := range []string{"Cells", "Organelles", "- Mitochondria", "Key terms: organelle", "Summary: Cells are the unit of life."} {
		if !strings.Contains(got, want) {
			t.Errorf("rendered text missing %q:\n%s", want, got)
		}
	}
}
