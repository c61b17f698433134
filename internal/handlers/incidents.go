package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sharmaji2007/student-counsellor-system/internal/http/response"
	"github.com/sharmaji2007/student-counsellor-system/internal/requestdata"
	"github.com/sharmaji2007/student-counsellor-system/internal/services"
)

type IncidentHandler struct {
	incidentService services.IncidentService
}

func NewIncidentHandler(incidentService services.IncidentService) *IncidentHandler {
	return &IncidentHandler{incidentService: incidentService}
}

func (ih *IncidentHandler) List(c *gin.Context) {
	incidents, err := ih.incidentService.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"incidents": incidents})
}

func (ih *IncidentHandler) Get(c *gin.Context) {
	incidentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	incident, err := ih.incidentService.Get(c.Request.Context(), incidentID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, incident)
}

func (ih *IncidentHandler) UpdateStatus(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	incidentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	incident, err := ih.incidentService.UpdateStatus(c.Request.Context(), rd.UserID, incidentID, req.Status)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, incident)
}

func (ih *IncidentHandler) Resolve(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	incidentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Notes string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	incident, err := ih.incidentService.Resolve(c.Request.Context(), rd.UserID, incidentID, req.Notes)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, incident)
}
