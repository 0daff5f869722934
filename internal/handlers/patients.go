package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"medtrack-server/internal/models"
	"medtrack-server/internal/services"
	"medtrack-server/internal/utils"
)

// DefaultPatientLimit is the page size of GET /patients.
const DefaultPatientLimit = 20

// PatientHandler handles patient related requests.
type PatientHandler struct {
	Patients *services.PatientService
}

// NewPatientHandler creates a new PatientHandler.
func NewPatientHandler(patients *services.PatientService) *PatientHandler {
	return &PatientHandler{Patients: patients}
}

// CreatePatientRequest represents the request body for creating a patient.
type CreatePatientRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	DateOfBirth string `json:"dateOfBirth" binding:"required,calendardate"`
}

// UpdatePatientRequest represents the request body for updating a patient.
// Omitted fields are left unchanged.
type UpdatePatientRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=255"`
	DateOfBirth *string `json:"dateOfBirth" binding:"omitempty,calendardate"`
}

// DeleteResponse reports whether a delete removed the resource.
type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// CreatePatient handles creating a new patient.
func (h *PatientHandler) CreatePatient(c *gin.Context) {
	var req CreatePatientRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	dob, ok := parseOptionalDate(c, "dateOfBirth", &req.DateOfBirth)
	if !ok {
		return
	}

	patient, err := h.Patients.Create(c.Request.Context(), services.CreatePatientInput{
		Name:        req.Name,
		DateOfBirth: *dob,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	utils.Created(c, "Patient created successfully", patient.ToDTO(h.Patients.Now()))
}

// GetPatients handles listing patients, optionally with their assignments.
func (h *PatientHandler) GetPatients(c *gin.Context) {
	includeAssignments, err := utils.QueryBool(c, "includeAssignments", false)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	page, err := utils.ParsePagination(c, DefaultPatientLimit)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	patients, total, err := h.Patients.FindAll(c.Request.Context(), includeAssignments, page.Limit, page.Offset)
	if err != nil {
		respondError(c, err)
		return
	}

	now := h.Patients.Now()
	out := make([]models.PatientDTO, 0, len(patients))
	for i := range patients {
		out = append(out, patients[i].ToDTO(now))
	}
	utils.Page(c, "Patients fetched successfully", out, len(out), page, &total)
}

// GetPatientByID handles fetching a single patient with its assignments.
func (h *PatientHandler) GetPatientByID(c *gin.Context) {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	patient, err := h.Patients.FindOne(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.Success(c, "Patient fetched successfully", patient.ToDTO(h.Patients.Now()))
}

// UpdatePatient handles updating an existing patient.
func (h *PatientHandler) UpdatePatient(c *gin.Context) {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	var req UpdatePatientRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	dob, ok := parseOptionalDate(c, "dateOfBirth", req.DateOfBirth)
	if !ok {
		return
	}

	patient, err := h.Patients.Update(c.Request.Context(), id, services.UpdatePatientInput{
		Name:        req.Name,
		DateOfBirth: dob,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	utils.Success(c, "Patient updated successfully", patient.ToDTO(h.Patients.Now()))
}

// DeletePatient handles deleting a patient and, with it, its assignments.
func (h *PatientHandler) DeletePatient(c *gin.Context) {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	if err := h.Patients.Remove(c.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.ErrorWithData(c, http.StatusNotFound, err.Error(), DeleteResponse{Deleted: false})
			return
		}
		respondError(c, err)
		return
	}

	utils.Success(c, "Patient deleted successfully", DeleteResponse{Deleted: true})
}
