package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	pkgerrors "github.com/sharmaji2007/student-counsellor-system/internal/pkg/errors"
	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
)

type scriptedAI struct {
	response string
	err      error
	lastUser string
}

func (s *scriptedAI) ChatJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.lastUser = userPrompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func newQuizLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func TestGenerateQuiz_ParsesModelResponse(t *testing.T) {
	ai := &scriptedAI{response: `{
		"questions": [
			{
				"question": "What is photosynthesis?",
				"options": ["A) Energy conversion", "B) Cell division", "C) Osmosis", "D) Digestion"],
				"correct_answer": "A",
				"explanation": "Plants convert light into chemical energy."
			},
			{
				"question": "Where does it occur?",
				"options": ["A) Nucleus", "B) Chloroplast", "C) Ribosome", "D) Membrane"],
				"correct_answer": "B",
				"explanation": "Chloroplasts contain chlorophyll."
			}
		]
	}`}
	qs := NewQuizService(newQuizLogger(t), ai)

	questions, err := qs.GenerateQuiz(context.Background(), "Photosynthesis converts light to energy.", 2)
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	if questions[0].Question != "What is photosynthesis?" || questions[0].CorrectAnswer != "A" {
		t.Fatalf("unexpected first question: %+v", questions[0])
	}
	if len(questions[1].Options) != 4 {
		t.Fatalf("expected 4 options, got %v", questions[1].Options)
	}
	if !strings.Contains(ai.lastUser, "create 2 multiple-choice questions") {
		t.Fatalf("prompt missing question count: %q", ai.lastUser)
	}
}

func TestGenerateQuiz_TruncatesToRequestedCount(t *testing.T) {
	ai := &scriptedAI{response: `{"questions": [
		{"question": "Q1?", "options": ["A) x"], "correct_answer": "A", "explanation": ""},
		{"question": "Q2?", "options": ["A) x"], "correct_answer": "A", "explanation": ""},
		{"question": "Q3?", "options": ["A) x"], "correct_answer": "A", "explanation": ""}
	]}`}
	qs := NewQuizService(newQuizLogger(t), ai)

	questions, err := qs.GenerateQuiz(context.Background(), "some text", 2)
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected truncation to 2, got %d", len(questions))
	}
}

func TestGenerateQuiz_SkipsBlankQuestions(t *testing.T) {
	ai := &scriptedAI{response: `{"questions": [
		{"question": "  ", "options": [], "correct_answer": "A", "explanation": ""},
		{"question": "Real question?", "options": ["A) yes"], "correct_answer": "A", "explanation": ""}
	]}`}
	qs := NewQuizService(newQuizLogger(t), ai)

	questions, err := qs.GenerateQuiz(context.Background(), "some text", 5)
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	if len(questions) != 1 || questions[0].Question != "Real question?" {
		t.Fatalf("expected only the real question, got %+v", questions)
	}
}

func TestGenerateQuiz_ModelErrorFallsBackToMock(t *testing.T) {
	ai := &scriptedAI{err: errors.New("rate limited")}
	qs := NewQuizService(newQuizLogger(t), ai)

	questions, err := qs.GenerateQuiz(context.Background(), "some text", 3)
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	if len(questions) != 3 {
		t.Fatalf("expected 3 mock questions, got %d", len(questions))
	}
	if questions[0].Question != "Sample question 1 based on the provided text?" {
		t.Fatalf("unexpected mock question: %q", questions[0].Question)
	}
	if questions[2].CorrectAnswer != "A" {
		t.Fatalf("expected mock answer A, got %q", questions[2].CorrectAnswer)
	}
}

func TestGenerateQuiz_UnparseableResponseFallsBackToMock(t *testing.T) {
	ai := &scriptedAI{response: "sorry, I cannot produce JSON"}
	qs := NewQuizService(newQuizLogger(t), ai)

	questions, err := qs.GenerateQuiz(context.Background(), "some text", 2)
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 mock questions, got %d", len(questions))
	}
}

func TestGenerateQuiz_NilClientServesMock(t *testing.T) {
	qs := NewQuizService(newQuizLogger(t), nil)

	questions, err := qs.GenerateQuiz(context.Background(), "some text", 4)
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	if len(questions) != 4 {
		t.Fatalf("expected 4 mock questions, got %d", len(questions))
	}
}

func TestGenerateQuiz_ValidatesInput(t *testing.T) {
	qs := NewQuizService(newQuizLogger(t), nil)

	if _, err := qs.GenerateQuiz(context.Background(), "text", 0); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for count 0, got %v", err)
	}
	if _, err := qs.GenerateQuiz(context.Background(), "text", 11); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for count 11, got %v", err)
	}
	if _, err := qs.GenerateQuiz(context.Background(), "   ", 3); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty text, got %v", err)
	}
}
