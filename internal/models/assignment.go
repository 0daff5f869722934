package models

import (
	"math"
	"time"
)

// Assignment links one patient to one medication for a course of TotalDays
// days starting on StartDate.
type Assignment struct {
	BaseModel
	PatientID    uint      `gorm:"not null;index" json:"patientId"`
	MedicationID uint      `gorm:"not null;index" json:"medicationId"`
	StartDate    time.Time `gorm:"type:date;not null" json:"startDate"`
	TotalDays    int       `gorm:"not null;default:0" json:"totalDays"`

	// Relations
	Patient    Patient    `gorm:"foreignKey:PatientID" json:"-"`
	Medication Medication `gorm:"foreignKey:MedicationID" json:"-"`
}

// AssignmentDTO is the assignment shape returned by the API.
type AssignmentDTO struct {
	ID            uint          `json:"id"`
	PatientID     uint          `json:"patientId"`
	Medication    MedicationDTO `json:"medication"`
	StartDate     string        `json:"startDate"`
	TotalDays     int           `json:"totalDays"`
	RemainingDays int           `json:"remainingDays"`
}

// ElapsedDays is the number of days between StartDate and the calendar day of
// now, rounded up. It is negative for courses starting in the future.
func (a *Assignment) ElapsedDays(now time.Time) int {
	diff := DateOf(now).Sub(DateOf(a.StartDate))
	return int(math.Ceil(diff.Hours() / 24))
}

// RemainingDays is TotalDays minus the elapsed days, floored at zero. It is
// never stored.
func (a *Assignment) RemainingDays(now time.Time) int {
	remaining := a.TotalDays - a.ElapsedDays(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsActive reports whether the course still has days left at now.
func (a *Assignment) IsActive(now time.Time) bool {
	return a.RemainingDays(now) > 0
}

// ToDTO maps an Assignment to its API shape as of now.
func (a *Assignment) ToDTO(now time.Time) AssignmentDTO {
	return AssignmentDTO{
		ID:            a.ID,
		PatientID:     a.PatientID,
		Medication:    a.Medication.ToDTO(),
		StartDate:     FormatDate(a.StartDate),
		TotalDays:     a.TotalDays,
		RemainingDays: a.RemainingDays(now),
	}
}
