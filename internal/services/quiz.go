package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/sharmaji2007/student-counsellor-system/internal/clients/openai"
	pkgerrors "github.com/sharmaji2007/student-counsellor-system/internal/pkg/errors"
	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
	"github.com/sharmaji2007/student-counsellor-system/internal/types"
)

const (
	minQuizQuestions = 1
	maxQuizQuestions = 10
)

const quizSystemPrompt = "You are an educational assistant that creates quiz questions from text. Always respond with valid JSON format."

// QuizService turns extracted submission text into multiple-choice
// questions. Falls back to canned questions when the model is
// unavailable or returns unparseable output.
type QuizService interface {
	GenerateQuiz(ctx context.Context, text string, numQuestions int) ([]*types.QuizQuestion, error)
}

type quizService struct {
	log *logger.Logger
	ai  openai.Client
}

// NewQuizService accepts a nil client; mock questions are served in
// that case.
func NewQuizService(baseLog *logger.Logger, ai openai.Client) QuizService {
	serviceLog := baseLog.With("service", "QuizService")
	return &quizService{log: serviceLog, ai: ai}
}

type generatedQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

type generatedQuiz struct {
	Questions []generatedQuestion `json:"questions"`
}

func (qs *quizService) GenerateQuiz(ctx context.Context, text string, numQuestions int) ([]*types.QuizQuestion, error) {
	if numQuestions < minQuizQuestions || numQuestions > maxQuizQuestions {
		return nil, fmt.Errorf("num_questions must be between %d and %d: %w",
			minQuizQuestions, maxQuizQuestions, pkgerrors.ErrInvalidArgument)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text is required: %w", pkgerrors.ErrInvalidArgument)
	}

	if qs.ai == nil {
		qs.log.Debug("No AI client configured, serving mock quiz", "num_questions", numQuestions)
		return mockQuiz(numQuestions), nil
	}

	raw, err := qs.ai.ChatJSON(ctx, quizSystemPrompt, quizPrompt(text, numQuestions))
	if err != nil {
		qs.log.Warn("Quiz generation failed, falling back to mock", "error", err.Error())
		return mockQuiz(numQuestions), nil
	}

	var parsed generatedQuiz
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil || len(parsed.Questions) == 0 {
		qs.log.Warn("Unparseable quiz response, falling back to mock", "num_questions", numQuestions)
		return mockQuiz(numQuestions), nil
	}

	out := make([]*types.QuizQuestion, 0, len(parsed.Questions))
	for _, q := range parsed.Questions {
		if strings.TrimSpace(q.Question) == "" || strings.TrimSpace(q.CorrectAnswer) == "" {
			continue
		}
		out = append(out, &types.QuizQuestion{
			ID:            uuid.New(),
			Question:      q.Question,
			Options:       datatypes.NewJSONSlice(q.Options),
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
		})
	}
	if len(out) == 0 {
		return mockQuiz(numQuestions), nil
	}
	if len(out) > numQuestions {
		out = out[:numQuestions]
	}
	return out, nil
}

func quizPrompt(text string, numQuestions int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on the following text, create %d multiple-choice questions.\n", numQuestions)
	b.WriteString("Each question should have 4 options (A, B, C, D) with one correct answer.\n\n")
	fmt.Fprintf(&b, "Text: %s\n\n", text)
	b.WriteString(`Please respond with a JSON object in this exact format:
{
    "questions": [
        {
            "question": "Question text here?",
            "options": ["A) Option 1", "B) Option 2", "C) Option 3", "D) Option 4"],
            "correct_answer": "A",
            "explanation": "Brief explanation of why this is correct"
        }
    ]
}

Make sure the questions test understanding of the key concepts in the text.`)
	return b.String()
}

func mockQuiz(numQuestions int) []*types.QuizQuestion {
	out := make([]*types.QuizQuestion, 0, numQuestions)
	for i := 1; i <= numQuestions; i++ {
		out = append(out, &types.QuizQuestion{
			ID:       uuid.New(),
			Question: fmt.Sprintf("Sample question %d based on the provided text?", i),
			Options: datatypes.NewJSONSlice([]string{
				fmt.Sprintf("A) Sample option A for question %d", i),
				fmt.Sprintf("B) Sample option B for question %d", i),
				fmt.Sprintf("C) Sample option C for question %d", i),
				fmt.Sprintf("D) Sample option D for question %d", i),
			}),
			CorrectAnswer: "A",
			Explanation:   fmt.Sprintf("This is a sample explanation for question %d", i),
		})
	}
	return out
}
