package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"medtrack-server/internal/models"
)

// MedicationService is the medication registry.
type MedicationService struct {
	DB *gorm.DB
}

// NewMedicationService creates a new MedicationService.
func NewMedicationService(db *gorm.DB) *MedicationService {
	return &MedicationService{DB: db}
}

type CreateMedicationInput struct {
	Name      string `validate:"required,max=255"`
	Dosage    string `validate:"max=100"`
	Frequency string `validate:"max=100"`
}

type UpdateMedicationInput struct {
	Name      *string `validate:"omitempty,max=255"`
	Dosage    *string `validate:"omitempty,max=100"`
	Frequency *string `validate:"omitempty,max=100"`
}

func (s *MedicationService) Create(ctx context.Context, in CreateMedicationInput) (*models.Medication, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	medication := models.Medication{
		Name:      in.Name,
		Dosage:    strings.TrimSpace(in.Dosage),
		Frequency: strings.TrimSpace(in.Frequency),
	}
	if err := s.DB.WithContext(ctx).Create(&medication).Error; err != nil {
		return nil, fmt.Errorf("create medication: %w", err)
	}
	return &medication, nil
}

// FindAll returns one page of medications ordered by id, and the total count.
func (s *MedicationService) FindAll(ctx context.Context, limit, offset int) ([]models.Medication, int64, error) {
	db := s.DB.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Medication{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count medications: %w", err)
	}

	var medications []models.Medication
	if err := db.Order("id asc").Limit(limit).Offset(offset).Find(&medications).Error; err != nil {
		return nil, 0, fmt.Errorf("list medications: %w", err)
	}
	return medications, total, nil
}

func (s *MedicationService) FindOne(ctx context.Context, id uint) (*models.Medication, error) {
	if err := requirePositiveID(id, "medication"); err != nil {
		return nil, err
	}
	return findMedication(s.DB.WithContext(ctx), id)
}

// Update merges the provided fields onto the stored medication.
func (s *MedicationService) Update(ctx context.Context, id uint, in UpdateMedicationInput) (*models.Medication, error) {
	if err := requirePositiveID(id, "medication"); err != nil {
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

	db := s.DB.WithContext(ctx)
	medication, err := findMedication(db, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		medication.Name = *in.Name
	}
	if in.Dosage != nil {
		medication.Dosage = strings.TrimSpace(*in.Dosage)
	}
	if in.Frequency != nil {
		medication.Frequency = strings.TrimSpace(*in.Frequency)
	}

	if err := db.Save(medication).Error; err != nil {
		return nil, fmt.Errorf("update medication: %w", err)
	}
	return medication, nil
}

// Remove deletes a medication unless an assignment still references it.
func (s *MedicationService) Remove(ctx context.Context, id uint) error {
	if err := requirePositiveID(id, "medication"); err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var assigned int64
		if err := tx.Model(&models.Assignment{}).Where("medication_id = ?", id).Count(&assigned).Error; err != nil {
			return fmt.Errorf("count medication assignments: %w", err)
		}
		if assigned > 0 {
			return conflictError("Medication is assigned and cannot be removed")
		}

		result := tx.Delete(&models.Medication{}, id)
		if result.Error != nil {
			return fmt.Errorf("delete medication: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return notFoundError("Medication not found")
		}
		return nil
	})
}

func findMedication(db *gorm.DB, id uint) (*models.Medication, error) {
	var medication models.Medication
	if err := db.First(&medication, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("Medication not found")
		}
		return nil, fmt.Errorf("find medication: %w", err)
	}
	return &medication, nil
}
