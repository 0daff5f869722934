package handlers

import (
	"github.com/gin-gonic/gin"

	"medtrack-server/internal/models"
	"medtrack-server/internal/services"
	"medtrack-server/internal/utils"
)

// DefaultMedicationLimit is the page size of GET /medications.
const DefaultMedicationLimit = 50

// MedicationHandler handles medication related requests.
type MedicationHandler struct {
	Medications *services.MedicationService
}

// NewMedicationHandler creates a new MedicationHandler.
func NewMedicationHandler(medications *services.MedicationService) *MedicationHandler {
	return &MedicationHandler{Medications: medications}
}

// CreateMedicationRequest represents the request body for creating a medication.
type CreateMedicationRequest struct {
	Name      string `json:"name" binding:"required,max=255"`
	Dosage    string `json:"dosage" binding:"max=100"`
	Frequency string `json:"frequency" binding:"max=100"`
}

// UpdateMedicationRequest represents the request body for updating a medication.
type UpdateMedicationRequest struct {
	Name      *string `json:"name" binding:"omitempty,max=255"`
	Dosage    *string `json:"dosage" binding:"omitempty,max=100"`
	Frequency *string `json:"frequency" binding:"omitempty,max=100"`
}

func (h *MedicationHandler) CreateMedication(c *gin.Context) {
	var req CreateMedicationRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	medication, err := h.Medications.Create(c.Request.Context(), services.CreateMedicationInput{
		Name:      req.Name,
		Dosage:    req.Dosage,
		Frequency: req.Frequency,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	utils.Created(c, "Medication created successfully", medication.ToDTO())
}

func (h *MedicationHandler) GetMedications(c *gin.Context) {
	page, err := utils.ParsePagination(c, DefaultMedicationLimit)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	medications, total, err := h.Medications.FindAll(c.Request.Context(), page.Limit, page.Offset)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]models.MedicationDTO, 0, len(medications))
	for i := range medications {
		out = append(out, medications[i].ToDTO())
	}
	utils.Page(c, "Medications fetched successfully", out, len(out), page, &total)
}

func (h *MedicationHandler) GetMedicationByID(c *gin.Context) {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	medication, err := h.Medications.FindOne(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.Success(c, "Medication fetched successfully", medication.ToDTO())
}

func (h *MedicationHandler) UpdateMedication(c *gin.Context) {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	var req UpdateMedicationRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	medication, err := h.Medications.Update(c.Request.Context(), id, services.UpdateMedicationInput{
		Name:      req.Name,
		Dosage:    req.Dosage,
		Frequency: req.Frequency,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	utils.Success(c, "Medication updated successfully", medication.ToDTO())
}

// DeleteMedication handles deleting a medication. A medication that is still
// assigned answers 409 with the reason.
func (h *MedicationHandler) DeleteMedication(c *gin.Context) {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	if err := h.Medications.Remove(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	utils.Success(c, "Medication deleted successfully", DeleteResponse{Deleted: true})
}
