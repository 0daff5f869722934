package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"medtrack-server/internal/models"
)

// AssignmentService is the assignment ledger: it links patients to
// medications and owns the remaining-days rules.
type AssignmentService struct {
	DB    *gorm.DB
	Clock Clock
}

// NewAssignmentService creates a new AssignmentService.
func NewAssignmentService(db *gorm.DB, clock Clock) *AssignmentService {
	return &AssignmentService{DB: db, Clock: clock}
}

// CreateAssignmentInput links a patient to a medication. StartDate defaults
// to today and TotalDays to 0.
type CreateAssignmentInput struct {
	PatientID    uint
	MedicationID uint
	StartDate    *time.Time
	TotalDays    *int
}

// UpdateAssignmentInput carries a partial assignment update; nil fields are
// left untouched. An explicit TotalDays of 0 is applied.
type UpdateAssignmentInput struct {
	MedicationID *uint
	StartDate    *time.Time
	TotalDays    *int
}

// AssignmentFilter selects assignments for FindAll. Limit and Offset page the
// unfiltered set; ActiveOnly is applied to the page afterwards.
type AssignmentFilter struct {
	PatientID  *uint
	ActiveOnly bool
	Limit      int
	Offset     int
}

// Create resolves the patient and the medication, then stores the assignment.
// Nothing is written when either reference is missing.
func (s *AssignmentService) Create(ctx context.Context, in CreateAssignmentInput) (*models.Assignment, error) {
	if err := requirePositiveID(in.PatientID, "patient"); err != nil {
		return nil, err
	}
	if err := requirePositiveID(in.MedicationID, "medication"); err != nil {
		return nil, err
	}
	if in.TotalDays != nil && *in.TotalDays < 0 {
		return nil, validationError("totalDays must not be negative")
	}

	var assignment models.Assignment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var patient models.Patient
		if err := tx.First(&patient, in.PatientID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError("Patient not found")
			}
			return fmt.Errorf("find patient: %w", err)
		}
		medication, err := findMedication(tx, in.MedicationID)
		if err != nil {
			return err
		}

		startDate := s.Clock.Now()
		if in.StartDate != nil {
			startDate = *in.StartDate
		}
		totalDays := 0
		if in.TotalDays != nil {
			totalDays = *in.TotalDays
		}

		assignment = models.Assignment{
			PatientID:    patient.ID,
			MedicationID: medication.ID,
			StartDate:    models.DateOf(startDate),
			TotalDays:    totalDays,
		}
		if err := tx.Omit(clause.Associations).Create(&assignment).Error; err != nil {
			return fmt.Errorf("create assignment: %w", err)
		}
		assignment.Patient = patient
		assignment.Medication = *medication
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

// FindAll lists assignments with their patient and medication, ordered by id.
func (s *AssignmentService) FindAll(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, error) {
	query := withRelations(s.DB.WithContext(ctx)).Order("assignments.id asc")
	if filter.PatientID != nil {
		query = query.Where("assignments.patient_id = ?", *filter.PatientID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var assignments []models.Assignment
	if err := query.Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}

	if !filter.ActiveOnly {
		return assignments, nil
	}
	now := s.Clock.Now()
	active := make([]models.Assignment, 0, len(assignments))
	for _, a := range assignments {
		if a.IsActive(now) {
			active = append(active, a)
		}
	}
	return active, nil
}

func (s *AssignmentService) FindOne(ctx context.Context, id uint) (*models.Assignment, error) {
	if err := requirePositiveID(id, "assignment"); err != nil {
		return nil, err
	}
	return findAssignment(withRelations(s.DB.WithContext(ctx)), id)
}

// Update replaces the medication, start date and/or course length of an
// assignment. The patient reference never changes.
func (s *AssignmentService) Update(ctx context.Context, id uint, in UpdateAssignmentInput) (*models.Assignment, error) {
	if err := requirePositiveID(id, "assignment"); err != nil {
		return nil, err
	}
	if in.MedicationID != nil {
		if err := requirePositiveID(*in.MedicationID, "medication"); err != nil {
			return nil, err
		}
	}
	if in.TotalDays != nil && *in.TotalDays < 0 {
		return nil, validationError("totalDays must not be negative")
	}

	var updated *models.Assignment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assignment, err := findAssignment(tx, id)
		if err != nil {
			return err
		}

		if in.MedicationID != nil {
			medication, err := findMedication(tx, *in.MedicationID)
			if err != nil {
				return err
			}
			assignment.MedicationID = medication.ID
		}
		if in.StartDate != nil {
			assignment.StartDate = models.DateOf(*in.StartDate)
		}
		if in.TotalDays != nil {
			assignment.TotalDays = *in.TotalDays
		}

		if err := tx.Omit(clause.Associations).Save(assignment).Error; err != nil {
			return fmt.Errorf("update assignment: %w", err)
		}

		updated, err = findAssignment(withRelations(tx), id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *AssignmentService) Remove(ctx context.Context, id uint) error {
	if err := requirePositiveID(id, "assignment"); err != nil {
		return err
	}
	result := s.DB.WithContext(ctx).Delete(&models.Assignment{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete assignment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFoundError("Assignment not found")
	}
	return nil
}

// Now is the moment used to map assignments for a response.
func (s *AssignmentService) Now() time.Time {
	return s.Clock.Now()
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.Joins("Patient").Joins("Medication")
}

func findAssignment(db *gorm.DB, id uint) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := db.Where("assignments.id = ?", id).First(&assignment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("Assignment not found")
		}
		return nil, fmt.Errorf("find assignment: %w", err)
	}
	return &assignment, nil
}
