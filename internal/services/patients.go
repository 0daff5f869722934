package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"medtrack-server/internal/models"
)

// PatientService is the patient registry.
type PatientService struct {
	DB    *gorm.DB
	Clock Clock
}

// NewPatientService creates a new PatientService.
func NewPatientService(db *gorm.DB, clock Clock) *PatientService {
	return &PatientService{DB: db, Clock: clock}
}

// CreatePatientInput carries the fields of a new patient.
type CreatePatientInput struct {
	Name        string `validate:"required,max=255"`
	DateOfBirth time.Time
}

// UpdatePatientInput carries a partial patient update; nil fields are left
// untouched.
type UpdatePatientInput struct {
	Name        *string `validate:"omitempty,max=255"`
	DateOfBirth *time.Time
}

// Create stores a new patient with an empty assignment set.
func (s *PatientService) Create(ctx context.Context, in CreatePatientInput) (*models.Patient, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.DateOfBirth.IsZero() {
		return nil, validationError("dateOfBirth is required")
	}

	patient := models.Patient{
		Name:        in.Name,
		DateOfBirth: models.DateOf(in.DateOfBirth),
		Assignments: []models.Assignment{},
	}
	if err := s.DB.WithContext(ctx).Create(&patient).Error; err != nil {
		return nil, fmt.Errorf("create patient: %w", err)
	}
	return &patient, nil
}

// FindAll returns one page of patients ordered by id, and the total number of
// patients. With includeAssignments every patient carries its assignments and
// their medications.
func (s *PatientService) FindAll(ctx context.Context, includeAssignments bool, limit, offset int) ([]models.Patient, int64, error) {
	db := s.DB.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Patient{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}

	query := db.Order("id asc").Limit(limit).Offset(offset)
	if includeAssignments {
		query = withAssignments(query)
	}

	var patients []models.Patient
	if err := query.Find(&patients).Error; err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}
	return patients, total, nil
}

// FindOne returns a patient with its assignments and their medications.
func (s *PatientService) FindOne(ctx context.Context, id uint) (*models.Patient, error) {
	if err := requirePositiveID(id, "patient"); err != nil {
		return nil, err
	}
	return s.findOne(s.DB.WithContext(ctx), id)
}

// Update applies the provided fields and returns the refreshed patient.
func (s *PatientService) Update(ctx context.Context, id uint, in UpdatePatientInput) (*models.Patient, error) {
	if err := requirePositiveID(id, "patient"); err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, validationError("name must not be empty")
		}
		in.Name = &name
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.DateOfBirth != nil && in.DateOfBirth.IsZero() {
		return nil, validationError("dateOfBirth must be a valid date")
	}

	updates := map[string]any{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.DateOfBirth != nil {
		updates["date_of_birth"] = models.DateOf(*in.DateOfBirth)
	}

	db := s.DB.WithContext(ctx)
	if len(updates) > 0 {
		if err := db.Model(&models.Patient{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update patient: %w", err)
		}
	}
	return s.findOne(db, id)
}

// Remove deletes a patient together with all of its assignments.
func (s *PatientService) Remove(ctx context.Context, id uint) error {
	if err := requirePositiveID(id, "patient"); err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("patient_id = ?", id).Delete(&models.Assignment{}).Error; err != nil {
			return fmt.Errorf("delete patient assignments: %w", err)
		}
		result := tx.Delete(&models.Patient{}, id)
		if result.Error != nil {
			return fmt.Errorf("delete patient: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return notFoundError("Patient not found")
		}
		return nil
	})
}

// Now is the moment used to map patients for a response.
func (s *PatientService) Now() time.Time {
	return s.Clock.Now()
}

func (s *PatientService) findOne(db *gorm.DB, id uint) (*models.Patient, error) {
	var patient models.Patient
	if err := withAssignments(db).First(&patient, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("Patient not found")
		}
		return nil, fmt.Errorf("find patient: %w", err)
	}
	return &patient, nil
}

func withAssignments(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Assignments", func(db *gorm.DB) *gorm.DB {
			return db.Order("assignments.id asc")
		}).
		Preload("Assignments.Medication")
}
