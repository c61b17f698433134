package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/sharmaji2007/student-counsellor-system/internal/http/response"
	"github.com/sharmaji2007/student-counsellor-system/internal/services"
)

type RiskHandler struct {
	riskService services.RiskService
}

func NewRiskHandler(riskService services.RiskService) *RiskHandler {
	return &RiskHandler{riskService: riskService}
}

func (rh *RiskHandler) Compute(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	score, err := rh.riskService.ComputeRisk(c.Request.Context(), userID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, score)
}

func (rh *RiskHandler) ComputeAll(c *gin.Context) {
	result, err := rh.riskService.ComputeAll(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, result)
}

func (rh *RiskHandler) Latest(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	score, err := rh.riskService.LatestForStudent(c.Request.Context(), userID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, score)
}

func (rh *RiskHandler) Explanation(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	explanation, err := rh.riskService.Explanation(c.Request.Context(), userID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, explanation)
}

func (rh *RiskHandler) ListScores(c *gin.Context) {
	scores, err := rh.riskService.ListScores(c.Request.Context(), c.Query("risk_level"))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"scores": scores})
}

func (rh *RiskHandler) Summary(c *gin.Context) {
	summary, err := rh.riskService.DashboardSummary(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, summary)
}
