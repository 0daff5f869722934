package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"medtrack-server/internal/models"
)

// movableClock is a Clock tests can advance.
type movableClock struct {
	now time.Time
}

func (c *movableClock) Now() time.Time { return c.now }

func (c *movableClock) advanceDays(n int) { c.now = c.now.AddDate(0, 0, n) }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := models.InitDB(models.DatabaseConfig{
		Driver: "sqlite",
		DSN:    "file::memory:?_pragma=foreign_keys(1)",
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

type fixture struct {
	db          *gorm.DB
	clock       *movableClock
	patients    *PatientService
	medications *MedicationService
	assignments *AssignmentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	clock := &movableClock{now: time.Date(2024, time.June, 3, 10, 30, 0, 0, time.UTC)}
	return &fixture{
		db:          db,
		clock:       clock,
		patients:    NewPatientService(db, clock),
		medications: NewMedicationService(db),
		assignments: NewAssignmentService(db, clock),
	}
}

func (f *fixture) patient(t *testing.T, name string, dob time.Time) *models.Patient {
	t.Helper()
	p, err := f.patients.Create(context.Background(), CreatePatientInput{Name: name, DateOfBirth: dob})
	require.NoError(t, err)
	return p
}

func (f *fixture) medication(t *testing.T, name, dosage, frequency string) *models.Medication {
	t.Helper()
	m, err := f.medications.Create(context.Background(), CreateMedicationInput{Name: name, Dosage: dosage, Frequency: frequency})
	require.NoError(t, err)
	return m
}

func (f *fixture) assign(t *testing.T, patientID, medicationID uint, start *time.Time, days int) *models.Assignment {
	t.Helper()
	a, err := f.assignments.Create(context.Background(), CreateAssignmentInput{
		PatientID:    patientID,
		MedicationID: medicationID,
		StartDate:    start,
		TotalDays:    &days,
	})
	require.NoError(t, err)
	return a
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }
