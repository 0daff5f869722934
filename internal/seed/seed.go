// Package seed loads demo patients, medications and assignments.
package seed

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"medtrack-server/internal/models"
	"medtrack-server/internal/services"
)

type demoAssignment struct {
	patient    int
	medication int
	totalDays  int
}

var (
	demoPatients = []struct {
		name string
		dob  string
	}{
		{"John Doe", "1980-05-12"},
		{"Jane Smith", "1990-11-03"},
	}

	demoMedications = []services.CreateMedicationInput{
		{Name: "Ibuprofen", Dosage: "200mg", Frequency: "3 times/day"},
		{Name: "Amoxicillin", Dosage: "500mg", Frequency: "2 times/day"},
	}

	// indexes into demoPatients and demoMedications
	demoAssignments = []demoAssignment{
		{patient: 0, medication: 0, totalDays: 5},
		{patient: 0, medication: 1, totalDays: 5},
		{patient: 1, medication: 1, totalDays: 7},
	}
)

// Run inserts the demo data unless a patient already exists. It reports
// whether anything was written.
func Run(ctx context.Context, db *gorm.DB, clock services.Clock, log zerolog.Logger) (bool, error) {
	var existing int64
	if err := db.WithContext(ctx).Model(&models.Patient{}).Count(&existing).Error; err != nil {
		return false, fmt.Errorf("count patients: %w", err)
	}
	if existing > 0 {
		log.Info().Int64("patients", existing).Msg("Database already populated, skipping seed")
		return false, nil
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		patientService := services.NewPatientService(tx, clock)
		medicationService := services.NewMedicationService(tx)
		assignmentService := services.NewAssignmentService(tx, clock)

		patientIDs := make([]uint, 0, len(demoPatients))
		for _, p := range demoPatients {
			dob, err := models.ParseDate(p.dob)
			if err != nil {
				return err
			}
			patient, err := patientService.Create(ctx, services.CreatePatientInput{Name: p.name, DateOfBirth: dob})
			if err != nil {
				return fmt.Errorf("seed patient %q: %w", p.name, err)
			}
			patientIDs = append(patientIDs, patient.ID)
		}

		medicationIDs := make([]uint, 0, len(demoMedications))
		for _, m := range demoMedications {
			medication, err := medicationService.Create(ctx, m)
			if err != nil {
				return fmt.Errorf("seed medication %q: %w", m.Name, err)
			}
			medicationIDs = append(medicationIDs, medication.ID)
		}

		today := models.DateOf(clock.Now())
		for _, a := range demoAssignments {
			totalDays := a.totalDays
			start := today
			if _, err := assignmentService.Create(ctx, services.CreateAssignmentInput{
				PatientID:    patientIDs[a.patient],
				MedicationID: medicationIDs[a.medication],
				StartDate:    &start,
				TotalDays:    &totalDays,
			}); err != nil {
				return fmt.Errorf("seed assignment: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	log.Info().
		Int("patients", len(demoPatients)).
		Int("medications", len(demoMedications)).
		Int("assignments", len(demoAssignments)).
		Msg("Seeded demo data")
	return true, nil
}
