package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"medtrack-server/internal/models"
	"medtrack-server/internal/services"
	"medtrack-server/internal/utils"
)

// DefaultAssignmentLimit is the page size of GET /assignments.
const DefaultAssignmentLimit = 50

// AssignmentHandler handles assignment related requests.
type AssignmentHandler struct {
	Assignments *services.AssignmentService
}

// NewAssignmentHandler creates a new AssignmentHandler.
func NewAssignmentHandler(assignments *services.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{Assignments: assignments}
}

// CreateAssignmentRequest represents the request body for assigning a
// medication to a patient.
type CreateAssignmentRequest struct {
	PatientID    uint    `json:"patientId" binding:"required,gt=0"`
	MedicationID uint    `json:"medicationId" binding:"required,gt=0"`
	StartDate    *string `json:"startDate" binding:"omitempty,calendardate"`
	TotalDays    *int    `json:"totalDays" binding:"omitempty,gt=0"`
}

// UpdateAssignmentRequest represents the request body for updating an
// assignment. totalDays may be set to 0 explicitly.
type UpdateAssignmentRequest struct {
	MedicationID *uint   `json:"medicationId" binding:"omitempty,gt=0"`
	StartDate    *string `json:"startDate" binding:"omitempty,calendardate"`
	TotalDays    *int    `json:"totalDays" binding:"omitempty,gte=0"`
}

func (h *AssignmentHandler) CreateAssignment(c *gin.Context) {
	var req CreateAssignmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	startDate, ok := parseOptionalDate(c, "startDate", req.StartDate)
	if !ok {
		return
	}

	assignment, err := h.Assignments.Create(c.Request.Context(), services.CreateAssignmentInput{
		PatientID:    req.PatientID,
		MedicationID: req.MedicationID,
		StartDate:    startDate,
		TotalDays:    req.TotalDays,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	utils.Created(c, "Assignment created successfully", assignment.ToDTO(h.Assignments.Now()))
}

// GetAssignments lists assignments. `active=true` drops finished courses from
// the requested page, so a page can be shorter than `limit`.
func (h *AssignmentHandler) GetAssignments(c *gin.Context) {
	patientID, err := utils.QueryID(c, "patientId")
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	active, err := utils.QueryBool(c, "active", false)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	page, err := utils.ParsePagination(c, DefaultAssignmentLimit)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	assignments, err := h.Assignments.FindAll(c.Request.Context(), services.AssignmentFilter{
		PatientID:  patientID,
		ActiveOnly: active,
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	now := h.Assignments.Now()
	out := make([]models.AssignmentDTO, 0, len(assignments))
	for i := range assignments {
		out = append(out, assignments[i].ToDTO(now))
	}
	utils.Page(c, "Assignments fetched successfully", out, len(out), page, nil)
}

func (h *AssignmentHandler) GetAssignmentByID(c *gin.Context) {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	assignment, err := h.Assignments.FindOne(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.Success(c, "Assignment fetched successfully", assignment.ToDTO(h.Assignments.Now()))
}

func (h *AssignmentHandler) UpdateAssignment(c *gin.Context) {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	var req UpdateAssignmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	startDate, ok := parseOptionalDate(c, "startDate", req.StartDate)
	if !ok {
		return
	}

	assignment, err := h.Assignments.Update(c.Request.Context(), id, services.UpdateAssignmentInput{
		MedicationID: req.MedicationID,
		StartDate:    startDate,
		TotalDays:    req.TotalDays,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	utils.Success(c, "Assignment updated successfully", assignment.ToDTO(h.Assignments.Now()))
}

func (h *AssignmentHandler) DeleteAssignment(c *gin.Context) {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	if err := h.Assignments.Remove(c.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.ErrorWithData(c, http.StatusNotFound, err.Error(), DeleteResponse{Deleted: false})
			return
		}
		respondError(c, err)
		return
	}

	utils.Success(c, "Assignment deleted successfully", DeleteResponse{Deleted: true})
}
