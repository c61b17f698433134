package jobs

import (
	"errors"
	"fmt"
	"io"
	"strings"

	pkgerrors "github.com/sharmaji2007/student-counsellor-system/internal/pkg/errors"
	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
	"github.com/sharmaji2007/student-counsellor-system/internal/repos"
	"github.com/sharmaji2007/student-counsellor-system/internal/services"
)

// OCRExtractHandler pulls the submission file back out of storage,
// runs OCR and writes the extracted text onto the submission row.
type OCRExtractHandler struct {
	log         *logger.Logger
	submissions repos.SubmissionRepo
	storage     services.StorageService
	ocr         services.OCRService
}

func NewOCRExtractHandler(
	baseLog *logger.Logger,
	submissions repos.SubmissionRepo,
	storage services.StorageService,
	ocr services.OCRService,
) *OCRExtractHandler {
	return &OCRExtractHandler{
		log:         baseLog.With("handler", "OCRExtractHandler"),
		submissions: submissions,
		storage:     storage,
		ocr:         ocr,
	}
}

func (h *OCRExtractHandler) Type() string { return services.JobTypeOCRExtract }

func (h *OCRExtractHandler) Run(jc *Context) error {
	submissionID, ok := jc.PayloadUUID("submission_id")
	if !ok {
		return fmt.Errorf("missing submission_id in payload")
	}

	submission, err := h.submissions.GetByID(jc.Ctx, nil, submissionID)
	if err != nil {
		return fmt.Errorf("load submission %s: %w", submissionID, err)
	}

	rc, err := h.storage.Open(jc.Ctx, submission.FilePath)
	if err != nil {
		return fmt.Errorf("open submission file: %w", err)
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return fmt.Errorf("read submission file: %w", err)
	}

	result := h.ocr.ExtractText(jc.Ctx, data, submission.ContentType)
	if err := h.submissions.UpdateFields(jc.Ctx, nil, submissionID, map[string]any{
		"ocr_text": result.Text,
	}); err != nil {
		return fmt.Errorf("store ocr text: %w", err)
	}

	h.log.Info("OCR extraction complete",
		"submission_id", submissionID,
		"provider", result.Provider,
		"confidence", result.Confidence,
		"chars", len(result.Text),
	)
	return nil
}

// QuizGenerateHandler turns a submission's extracted text into quiz
// questions and stores them against the submission.
type QuizGenerateHandler struct {
	log         *logger.Logger
	submissions repos.SubmissionRepo
	questions   repos.QuizQuestionRepo
	quiz        services.QuizService
}

func NewQuizGenerateHandler(
	baseLog *logger.Logger,
	submissions repos.SubmissionRepo,
	questions repos.QuizQuestionRepo,
	quiz services.QuizService,
) *QuizGenerateHandler {
	return &QuizGenerateHandler{
		log:         baseLog.With("handler", "QuizGenerateHandler"),
		submissions: submissions,
		questions:   questions,
		quiz:        quiz,
	}
}

func (h *QuizGenerateHandler) Type() string { return services.JobTypeQuizGenerate }

func (h *QuizGenerateHandler) Run(jc *Context) error {
	submissionID, ok := jc.PayloadUUID("submission_id")
	if !ok {
		return fmt.Errorf("missing submission_id in payload")
	}
	numQuestions, ok := jc.PayloadInt("num_questions")
	if !ok {
		numQuestions = 5
	}

	submission, err := h.submissions.GetByID(jc.Ctx, nil, submissionID)
	if err != nil {
		return fmt.Errorf("load submission %s: %w", submissionID, err)
	}
	if strings.TrimSpace(submission.OCRText) == "" {
		return fmt.Errorf("submission %s has no extracted text", submissionID)
	}

	generated, err := h.quiz.GenerateQuiz(jc.Ctx, submission.OCRText, numQuestions)
	if err != nil {
		return fmt.Errorf("generate quiz: %w", err)
	}
	for _, q := range generated {
		id := submissionID
		q.SubmissionID = &id
	}
	if _, err := h.questions.CreateBatch(jc.Ctx, nil, generated); err != nil {
		return fmt.Errorf("store quiz questions: %w", err)
	}

	h.log.Info("Quiz generated", "submission_id", submissionID, "questions", len(generated))
	return nil
}

// SOSNotifyHandler fans a safety incident out to the counselor and the
// student's guardian and records which channels went through.
type SOSNotifyHandler struct {
	log       *logger.Logger
	users     repos.UserRepo
	profiles  repos.StudentProfileRepo
	messages  repos.ChatMessageRepo
	incidents repos.SafetyIncidentRepo
	notifier  services.NotificationService
	incident  services.IncidentService
}

func NewSOSNotifyHandler(
	baseLog *logger.Logger,
	users repos.UserRepo,
	profiles repos.StudentProfileRepo,
	messages repos.ChatMessageRepo,
	incidents repos.SafetyIncidentRepo,
	notifier services.NotificationService,
	incident services.IncidentService,
) *SOSNotifyHandler {
	return &SOSNotifyHandler{
		log:       baseLog.With("handler", "SOSNotifyHandler"),
		users:     users,
		profiles:  profiles,
		messages:  messages,
		incidents: incidents,
		notifier:  notifier,
		incident:  incident,
	}
}

func (h *SOSNotifyHandler) Type() string { return services.JobTypeSOSNotify }

func (h *SOSNotifyHandler) Run(jc *Context) error {
	incidentID, ok := jc.PayloadUUID("incident_id")
	if !ok {
		return fmt.Errorf("missing incident_id in payload")
	}

	incident, err := h.incidents.GetByID(jc.Ctx, nil, incidentID)
	if err != nil {
		return fmt.Errorf("load incident %s: %w", incidentID, err)
	}
	student, err := h.users.GetByID(jc.Ctx, nil, incident.StudentID)
	if err != nil {
		return fmt.Errorf("load student %s: %w", incident.StudentID, err)
	}

	// Profile is optional: alerts still go to the counselor without one.
	profile, err := h.profiles.GetByUserID(jc.Ctx, nil, incident.StudentID)
	if err != nil && !errors.Is(err, pkgerrors.ErrNotFound) {
		return fmt.Errorf("load student profile: %w", err)
	}

	messageText := ""
	if message, mErr := h.messages.GetByID(jc.Ctx, nil, incident.MessageID); mErr == nil {
		messageText = message.Message
	}

	counselor, guardian := h.notifier.SendSOSAlert(jc.Ctx, &services.SOSAlert{
		Student:  student,
		Profile:  profile,
		Message:  messageText,
		Keywords: []string(incident.TriggerKeywords),
	})
	if err := h.incident.MarkNotified(jc.Ctx, incidentID, counselor, guardian); err != nil {
		return fmt.Errorf("mark incident notified: %w", err)
	}
	return nil
}

// ChatCleanupHandler prunes expired unflagged chat messages.
type ChatCleanupHandler struct {
	log  *logger.Logger
	chat services.ChatService
}

func NewChatCleanupHandler(baseLog *logger.Logger, chat services.ChatService) *ChatCleanupHandler {
	return &ChatCleanupHandler{
		log:  baseLog.With("handler", "ChatCleanupHandler"),
		chat: chat,
	}
}

func (h *ChatCleanupHandler) Type() string { return services.JobTypeChatCleanup }

func (h *ChatCleanupHandler) Run(jc *Context) error {
	deleted, err := h.chat.CleanupExpired(jc.Ctx)
	if err != nil {
		return err
	}
	h.log.Info("Chat cleanup run complete", "deleted", deleted)
	return nil
}
