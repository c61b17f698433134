package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sharmaji2007/student-counsellor-system/internal/http/response"
	"github.com/sharmaji2007/student-counsellor-system/internal/requestdata"
	"github.com/sharmaji2007/student-counsellor-system/internal/services"
)

type StudentHandler struct {
	studentService services.StudentService
}

func NewStudentHandler(studentService services.StudentService) *StudentHandler {
	return &StudentHandler{studentService: studentService}
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return uuid.Nil, false
	}
	return id, true
}

func (sh *StudentHandler) CreateProfile(c *gin.Context) {
	var req services.CreateProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	profile, err := sh.studentService.CreateProfile(c.Request.Context(), &req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, profile)
}

func (sh *StudentHandler) ListProfiles(c *gin.Context) {
	profiles, err := sh.studentService.ListProfiles(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"students": profiles})
}

func (sh *StudentHandler) GetProfile(c *gin.Context) {
	profileID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	profile, err := sh.studentService.GetProfile(c.Request.Context(), profileID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, profile)
}

func (sh *StudentHandler) UpdateProfile(c *gin.Context) {
	profileID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var updates map[string]any
	if err := c.ShouldBindJSON(&updates); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	profile, err := sh.studentService.UpdateProfile(c.Request.Context(), profileID, updates)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, profile)
}

func (sh *StudentHandler) RecordAttendance(c *gin.Context) {
	profileID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.AttendanceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	record, err := sh.studentService.RecordAttendance(c.Request.Context(), profileID, &req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, record)
}

func (sh *StudentHandler) ListAttendance(c *gin.Context) {
	profileID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	records, err := sh.studentService.ListAttendance(c.Request.Context(), profileID, limit)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"attendance": records})
}

func (sh *StudentHandler) RecordTest(c *gin.Context) {
	profileID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.TestRecordInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	record, err := sh.studentService.RecordTest(c.Request.Context(), profileID, &req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, record)
}

func (sh *StudentHandler) ListTests(c *gin.Context) {
	profileID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	records, err := sh.studentService.ListTests(c.Request.Context(), profileID, limit)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"tests": records})
}

func (sh *StudentHandler) RecordFee(c *gin.Context) {
	profileID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.FeeRecordInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	record, err := sh.studentService.RecordFee(c.Request.Context(), profileID, &req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, record)
}

func (sh *StudentHandler) ListFees(c *gin.Context) {
	profileID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	records, err := sh.studentService.ListFees(c.Request.Context(), profileID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"fees": records})
}

// Dashboard serves the calling student's own aggregate view.
func (sh *StudentHandler) Dashboard(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	dashboard, err := sh.studentService.Dashboard(c.Request.Context(), rd.UserID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, dashboard)
}
