package models

import "time"

// Patient represents a patient and the medication courses assigned to them.
type Patient struct {
	BaseModel
	Name        string    `gorm:"size:255;not null" json:"name"`
	DateOfBirth time.Time `gorm:"type:date;not null" json:"dateOfBirth"`

	// Relations (not always preloaded)
	Assignments []Assignment `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE" json:"-"`
}

// PatientDTO is the patient shape returned by the API.
type PatientDTO struct {
	ID          uint            `json:"id"`
	Name        string          `json:"name"`
	DateOfBirth string          `json:"dateOfBirth"`
	Assignments []AssignmentDTO `json:"assignments"`
}

// ToDTO maps a Patient, and whatever assignments are loaded on it, to its API
// shape. now drives the remaining days of each assignment.
func (p *Patient) ToDTO(now time.Time) PatientDTO {
	assignments := make([]AssignmentDTO, 0, len(p.Assignments))
	for i := range p.Assignments {
		a := p.Assignments[i]
		if a.PatientID == 0 {
			a.PatientID = p.ID
		}
		assignments = append(assignments, a.ToDTO(now))
	}
	return PatientDTO{
		ID:          p.ID,
		Name:        p.Name,
		DateOfBirth: FormatDate(p.DateOfBirth),
		Assignments: assignments,
	}
}
