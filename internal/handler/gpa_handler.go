package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/registrar-api/internal/service"
	"github.com/campusworks/registrar-api/pkg/response"
)

// GPAHandler exposes aggregate metric endpoints.
type GPAHandler struct {
	gpas *service.GPAService
}

// NewGPAHandler constructs GPAHandler.
func NewGPAHandler(gpas *service.GPAService) *GPAHandler {
	return &GPAHandler{gpas: gpas}
}

// StudentGPA godoc
// @Summary Compute a student's weighted GPA
// @Tags Metrics
// @Produce json
// @Param id path string true "Student ID"
// @Param termId query string false "Restrict to one term"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/gpa [get]
func (h *GPAHandler) StudentGPA(c *gin.Context) {
	gpa, err := h.gpas.ComputeGPA(c.Request.Context(), c.Param("id"), c.Query("termId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"student_id": c.Param("id"), "gpa": gpa}, nil)
}

// ProgramRanking godoc
// @Summary Rank a program cohort by GPA
// @Tags Metrics
// @Produce json
// @Param id path string true "Program ID"
// @Param termId query string false "Restrict to one term"
// @Success 200 {object} response.Envelope
// @Router /programs/{id}/ranking [get]
func (h *GPAHandler) ProgramRanking(c *gin.Context) {
	rankings, err := h.gpas.ProgramRanking(c.Request.Context(), c.Param("id"), c.Query("termId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rankings, nil)
}

// AboveAverage godoc
// @Summary List students above their program's mean GPA for a term
// @Tags Metrics
// @Produce json
// @Param termId query string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /metrics/above-average [get]
func (h *GPAHandler) AboveAverage(c *gin.Context) {
	students, err := h.gpas.AboveAverage(c.Request.Context(), c.Query("termId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}
