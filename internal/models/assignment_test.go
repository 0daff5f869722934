package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAssignmentRemainingDays(t *testing.T) {
	start := date(2024, time.March, 10)

	tests := []struct {
		name      string
		start     time.Time
		totalDays int
		now       time.Time
		want      int
	}{
		{"same day", start, 5, start.Add(15 * time.Hour), 5},
		{"three days later", start, 5, date(2024, time.March, 13).Add(9 * time.Hour), 2},
		{"course finished", start, 5, date(2024, time.March, 15), 0},
		{"long past", start, 5, date(2024, time.March, 16), 0},
		{"zero total", start, 0, start, 0},
		{"zero total future start", date(2024, time.April, 1), 0, start, 0},
		{"future start exceeds total", date(2024, time.March, 12), 5, start, 7},
		{"month boundary", date(2024, time.February, 28), 3, date(2024, time.March, 1), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Assignment{StartDate: tt.start, TotalDays: tt.totalDays}
			assert.Equal(t, tt.want, a.RemainingDays(tt.now))
			assert.Equal(t, tt.want > 0, a.IsActive(tt.now))
		})
	}
}

func TestAssignmentRemainingDaysUsesCalendarDayOfNow(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tz database unavailable")
	}
	a := Assignment{StartDate: date(2024, time.March, 10), TotalDays: 3}

	// 23:30 UTC on the 10th is already the 11th in Berlin.
	now := time.Date(2024, time.March, 10, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, 3, a.RemainingDays(now))
	assert.Equal(t, 2, a.RemainingDays(now.In(berlin)))
}

func TestAssignmentRemainingDaysNeverNegative(t *testing.T) {
	start := date(2024, time.January, 1)
	for total := 0; total <= 10; total++ {
		for offset := -3; offset <= 20; offset++ {
			a := Assignment{StartDate: start, TotalDays: total}
			now := start.AddDate(0, 0, offset)
			got := a.RemainingDays(now)
			assert.GreaterOrEqual(t, got, 0)
			if offset >= 0 {
				assert.LessOrEqual(t, got, total)
			}
		}
	}
}

func TestAssignmentToDTO(t *testing.T) {
	a := Assignment{
		BaseModel:    BaseModel{ID: 7},
		PatientID:    3,
		MedicationID: 2,
		StartDate:    date(2024, time.May, 1),
		TotalDays:    30,
		Medication: Medication{
			BaseModel: BaseModel{ID: 2},
			Name:      "Ibuprofen",
			Dosage:    "200mg",
			Frequency: "3 times/day",
		},
	}

	dto := a.ToDTO(date(2024, time.May, 11))
	assert.Equal(t, AssignmentDTO{
		ID:        7,
		PatientID: 3,
		Medication: MedicationDTO{
			ID: 2, Name: "Ibuprofen", Dosage: "200mg", Frequency: "3 times/day",
		},
		StartDate:     "2024-05-01",
		TotalDays:     30,
		RemainingDays: 20,
	}, dto)
}

func TestPatientToDTO(t *testing.T) {
	p := Patient{
		BaseModel:   BaseModel{ID: 1},
		Name:        "John Doe",
		DateOfBirth: date(1980, time.May, 12),
	}

	dto := p.ToDTO(date(2024, time.May, 1))
	assert.Equal(t, "1980-05-12", dto.DateOfBirth)
	assert.NotNil(t, dto.Assignments)
	assert.Empty(t, dto.Assignments)

	p.Assignments = []Assignment{{BaseModel: BaseModel{ID: 4}, StartDate: date(2024, time.May, 1), TotalDays: 2}}
	dto = p.ToDTO(date(2024, time.May, 1))
	assert.Len(t, dto.Assignments, 1)
	assert.Equal(t, uint(1), dto.Assignments[0].PatientID)
	assert.Equal(t, 2, dto.Assignments[0].RemainingDays)
}
