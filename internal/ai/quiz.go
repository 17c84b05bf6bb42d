package ai

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// QuizQuestion is one parsed multiple-choice item. A question is only
// accepted when all four fields are populated and exactly four options were
// parsed.
type QuizQuestion struct {
	Question      string   `json:"question" bson:"question"`
	Options       []string `json:"options" bson:"options"`
	CorrectAnswer string   `json:"correctAnswer" bson:"correctAnswer"`
	Explanation   string   `json:"explanation" bson:"explanation"`
}

const quizPrompt = `Based on the following educational content, create 5 multiple-choice quiz questions that test understanding of the key concepts. Each question should have 4 options (A, B, C, D) with only one correct answer. Include explanations for why the correct answer is right.

Format each question as:
Question: [question text]
A) [option A]
B) [option B]
C) [option C]
D) [option D]
Correct Answer: [letter]
Explanation: [explanation]

Content:
`

// GenerateQuestions asks the model for quiz questions in the plain-text
// template and parses whatever usable questions come back.
func GenerateQuestions(ctx context.Context, g Generator, text string) ([]QuizQuestion, error) {
	raw, err := g.GenerateText(ctx, quizPrompt+truncateInput(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	return ParseQuestions(raw), nil
}

var (
	questionMarker = regexp.MustCompile(`Question:`)
	optionLine     = regexp.MustCompile(`^[A-D]\)`)
	optionPrefix   = regexp.MustCompile(`^[A-D]\)\s*`)
)

// ParseQuestions splits a free-text model reply into blocks anchored at each
// "Question:" marker and keeps the well-formed ones. Malformed blocks are
// dropped silently: free-text model output is expected to be unreliable, so
// this parser tolerates by omission rather than failing the whole reply.
// The result preserves order and may be empty.
func ParseQuestions(raw string) []QuizQuestion {
	var questions []QuizQuestion
	for _, block := range splitBlocks(raw) {
		if q, ok := parseBlock(block); ok {
			questions = append(questions, q)
		}
	}
	return questions
}

func splitBlocks(raw string) []string {
	locs := questionMarker.FindAllStringIndex(raw, -1)
	if len(locs) == 0 {
		return nil
	}
	blocks := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(raw)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		blocks = append(blocks, raw[loc[0]:end])
	}
	return blocks
}

func parseBlock(block string) (QuizQuestion, bool) {
	var lines []string
	for _, line := range strings.Split(block, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	// question + 4 options + answer (+ explanation) at minimum
	if len(lines) < 6 {
		return QuizQuestion{}, false
	}

	q := QuizQuestion{
		Question: strings.TrimSpace(strings.TrimPrefix(lines[0], "Question:")),
	}
	for _, line := range lines[1:] {
		switch {
		case optionLine.MatchString(line):
			q.Options = append(q.Options, optionPrefix.ReplaceAllString(line, ""))
		case strings.HasPrefix(line, "Correct Answer:"):
			if q.CorrectAnswer == "" {
				q.CorrectAnswer = strings.TrimSpace(strings.TrimPrefix(line, "Correct Answer:"))
			}
		case strings.HasPrefix(line, "Explanation:"):
			if q.Explanation == "" {
				q.Explanation = strings.TrimSpace(strings.TrimPrefix(line, "Explanation:"))
			}
		}
	}

	if q.Question == "" || len(q.Options) != 4 || q.CorrectAnswer == "" || q.Explanation == "" {
		return QuizQuestion{}, false
	}
	return q, true
}
