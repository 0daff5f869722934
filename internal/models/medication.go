package models

// Medication is a medication definition that can be assigned to patients.
type Medication struct {
	BaseModel
	Name      string `gorm:"size:255;not null" json:"name"`
	Dosage    string `gorm:"size:100" json:"dosage"`
	Frequency string `gorm:"size:100" json:"frequency"`

	// Relations (back-reference only). Deletes are guarded in the service
	// before the cascade can fire.
	Assignments []Assignment `gorm:"foreignKey:MedicationID;constraint:OnDelete:CASCADE" json:"-"`
}

// MedicationDTO is the medication shape returned by the API.
type MedicationDTO struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
}

// ToDTO maps a Medication to its API shape.
func (m *Medication) ToDTO() MedicationDTO {
	return MedicationDTO{
		ID:        m.ID,
		Name:      m.Name,
		Dosage:    m.Dosage,
		Frequency: m.Frequency,
	}
}
