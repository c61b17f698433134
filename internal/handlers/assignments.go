package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sharmaji2007/student-counsellor-system/internal/http/response"
	"github.com/sharmaji2007/student-counsellor-system/internal/requestdata"
	"github.com/sharmaji2007/student-counsellor-system/internal/services"
)

type AssignmentHandler struct {
	assignmentService services.AssignmentService
}

func NewAssignmentHandler(assignmentService services.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentService: assignmentService}
}

func (ah *AssignmentHandler) Create(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req services.CreateAssignmentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	assignment, err := ah.assignmentService.Create(c.Request.Context(), rd.UserID, &req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, assignment)
}

func (ah *AssignmentHandler) List(c *gin.Context) {
	assignments, err := ah.assignmentService.List(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"assignments": assignments})
}

func (ah *AssignmentHandler) Get(c *gin.Context) {
	assignmentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	assignment, err := ah.assignmentService.Get(c.Request.Context(), assignmentID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, assignment)
}

func (ah *AssignmentHandler) Submit(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	assignmentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	submission, err := ah.assignmentService.Submit(c.Request.Context(), assignmentID, rd.UserID, &services.SubmitInput{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, submission)
}

func (ah *AssignmentHandler) GetSubmission(c *gin.Context) {
	submissionID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	submission, err := ah.assignmentService.GetSubmission(c.Request.Context(), submissionID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, submission)
}

func (ah *AssignmentHandler) Grade(c *gin.Context) {
	submissionID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.GradeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	submission, err := ah.assignmentService.Grade(c.Request.Context(), submissionID, &req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, submission)
}

func (ah *AssignmentHandler) RequestQuiz(c *gin.Context) {
	submissionID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		NumQuestions int `json:"num_questions"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if req.NumQuestions == 0 {
		req.NumQuestions = 5
	}
	if err := ah.assignmentService.RequestQuiz(c.Request.Context(), submissionID, req.NumQuestions); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": true})
}

func (ah *AssignmentHandler) ListQuiz(c *gin.Context) {
	submissionID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	questions, err := ah.assignmentService.ListQuiz(c.Request.Context(), submissionID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"questions": questions})
}
