package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"

	"medtrack-server/internal/config"
	"medtrack-server/internal/handlers"
	"medtrack-server/internal/models"
	"medtrack-server/internal/utils"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    *utils.PageMeta `json:"meta"`
	Error   string          `json:"error"`
}

type api struct {
	t      *testing.T
	router *gin.Engine
	clock  *testClock
	token  string
}

func newAPI(t *testing.T, cfg *config.Config) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)

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

	if cfg == nil {
		cfg = &config.Config{Origin: "http://localhost:3000"}
	}
	clock := &testClock{now: time.Date(2024, time.June, 3, 9, 0, 0, 0, time.UTC)}
	return &api{t: t, router: NewRouter(db, cfg, clock, zerolog.Nop()), clock: clock}
}

func (a *api) do(method, path string, body any) (int, envelope) {
	a.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

func (a *api) createPatient(name, dob string) models.PatientDTO {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/api/v1/patients", gin.H{"name": name, "dateOfBirth": dob})
	require.Equal(a.t, http.StatusCreated, code, env.Error)
	return decode[models.PatientDTO](a.t, env.Data)
}

func (a *api) createMedication(name, dosage, frequency string) models.MedicationDTO {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/api/v1/medications", gin.H{"name": name, "dosage": dosage, "frequency": frequency})
	require.Equal(a.t, http.StatusCreated, code, env.Error)
	return decode[models.MedicationDTO](a.t, env.Data)
}

func (a *api) createAssignment(body gin.H) models.AssignmentDTO {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/api/v1/assignments", body)
	require.Equal(a.t, http.StatusCreated, code, env.Error)
	return decode[models.AssignmentDTO](a.t, env.Data)
}

func TestHealth(t *testing.T) {
	a := newAPI(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"UP"}`, w.Body.String())
}

func TestPatientEndpoints(t *testing.T) {
	a := newAPI(t, nil)

	john := a.createPatient("John Doe", "1980-05-12")
	assert.Equal(t, "John Doe", john.Name)
	assert.Equal(t, "1980-05-12", john.DateOfBirth)
	assert.Empty(t, john.Assignments)

	code, env := a.do(http.MethodGet, fmt.Sprintf("/api/v1/patients/%d", john.ID), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, john, decode[models.PatientDTO](t, env.Data))

	code, env = a.do(http.MethodPut, fmt.Sprintf("/api/v1/patients/%d", john.ID), gin.H{"name": "Johnny Doe"})
	require.Equal(t, http.StatusOK, code, env.Error)
	updated := decode[models.PatientDTO](t, env.Data)
	assert.Equal(t, "Johnny Doe", updated.Name)
	assert.Equal(t, "1980-05-12", updated.DateOfBirth)

	code, env = a.do(http.MethodDelete, fmt.Sprintf("/api/v1/patients/%d", john.ID), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, handlers.DeleteResponse{Deleted: true}, decode[handlers.DeleteResponse](t, env.Data))

	code, env = a.do(http.MethodDelete, fmt.Sprintf("/api/v1/patients/%d", john.ID), nil)
	require.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, handlers.DeleteResponse{Deleted: false}, decode[handlers.DeleteResponse](t, env.Data))
	assert.Equal(t, "Patient not found", env.Error)

	code, _ = a.do(http.MethodGet, fmt.Sprintf("/api/v1/patients/%d", john.ID), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPatientValidation(t *testing.T) {
	a := newAPI(t, nil)

	cases := map[string]any{
		"missing name":   gin.H{"dateOfBirth": "1980-05-12"},
		"blank name":     gin.H{"name": "   ", "dateOfBirth": "1980-05-12"},
		"bad date":       gin.H{"name": "John", "dateOfBirth": "12/05/1980"},
		"missing date":   gin.H{"name": "John"},
		"malformed json": `{"name": `,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			code, env := a.do(http.MethodPost, "/api/v1/patients", body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.NotEmpty(t, env.Error)
		})
	}

	code, _ := a.do(http.MethodGet, "/api/v1/patients/abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = a.do(http.MethodGet, "/api/v1/patients/0", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = a.do(http.MethodGet, "/api/v1/patients?includeAssignments=perhaps", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPatientListDefaultsAndInclude(t *testing.T) {
	a := newAPI(t, nil)

	for i := 0; i < 25; i++ {
		a.createPatient(fmt.Sprintf("Patient %02d", i), "1990-01-01")
	}
	med := a.createMedication("Ibuprofen", "200mg", "3 times/day")
	a.createAssignment(gin.H{"patientId": 1, "medicationId": med.ID, "totalDays": 5})

	code, env := a.do(http.MethodGet, "/api/v1/patients", nil)
	require.Equal(t, http.StatusOK, code)
	list := decode[[]models.PatientDTO](t, env.Data)
	assert.Len(t, list, 20)
	require.NotNil(t, env.Meta)
	require.NotNil(t, env.Meta.Total)
	assert.EqualValues(t, 25, *env.Meta.Total)
	assert.Equal(t, 20, env.Meta.Limit)
	assert.Empty(t, list[0].Assignments)

	code, env = a.do(http.MethodGet, "/api/v1/patients?includeAssignments=true&limit=2", nil)
	require.Equal(t, http.StatusOK, code)
	list = decode[[]models.PatientDTO](t, env.Data)
	require.Len(t, list, 2)
	require.Len(t, list[0].Assignments, 1)
	assert.Equal(t, "Ibuprofen", list[0].Assignments[0].Medication.Name)
	assert.Equal(t, 5, list[0].Assignments[0].RemainingDays)

	code, env = a.do(http.MethodGet, "/api/v1/patients?offset=24", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]models.PatientDTO](t, env.Data), 1)
}

func TestMedicationEndpoints(t *testing.T) {
	a := newAPI(t, nil)

	ibu := a.createMedication("Ibuprofen", "200mg", "3 times/day")
	assert.Equal(t, models.MedicationDTO{ID: ibu.ID, Name: "Ibuprofen", Dosage: "200mg", Frequency: "3 times/day"}, ibu)

	code, env := a.do(http.MethodPatch, fmt.Sprintf("/api/v1/medications/%d", ibu.ID), gin.H{"dosage": "400mg"})
	require.Equal(t, http.StatusOK, code, env.Error)
	updated := decode[models.MedicationDTO](t, env.Data)
	assert.Equal(t, "400mg", updated.Dosage)
	assert.Equal(t, "3 times/day", updated.Frequency)

	code, env = a.do(http.MethodGet, "/api/v1/medications", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]models.MedicationDTO](t, env.Data), 1)
	assert.Equal(t, 50, env.Meta.Limit)

	code, _ = a.do(http.MethodPost, "/api/v1/medications", gin.H{"dosage": "1mg"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = a.do(http.MethodGet, "/api/v1/medications/99", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Medication not found", env.Error)
}

func TestMedicationDeleteConflict(t *testing.T) {
	a := newAPI(t, nil)

	john := a.createPatient("John Doe", "1980-05-12")
	ibu := a.createMedication("Ibuprofen", "200mg", "3 times/day")
	asg := a.createAssignment(gin.H{"patientId": john.ID, "medicationId": ibu.ID, "totalDays": 5})

	code, env := a.do(http.MethodDelete, fmt.Sprintf("/api/v1/medications/%d", ibu.ID), nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Medication is assigned and cannot be removed", env.Error)

	code, _ = a.do(http.MethodGet, fmt.Sprintf("/api/v1/assignments/%d", asg.ID), nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = a.do(http.MethodDelete, fmt.Sprintf("/api/v1/assignments/%d", asg.ID), nil)
	require.Equal(t, http.StatusOK, code)

	code, env = a.do(http.MethodDelete, fmt.Sprintf("/api/v1/medications/%d", ibu.ID), nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, handlers.DeleteResponse{Deleted: true}, decode[handlers.DeleteResponse](t, env.Data))

	code, _ = a.do(http.MethodDelete, fmt.Sprintf("/api/v1/medications/%d", ibu.ID), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAssignmentLifecycle(t *testing.T) {
	a := newAPI(t, nil)

	john := a.createPatient("John Doe", "1980-05-12")
	ibu := a.createMedication("Ibuprofen", "200mg", "3 times/day")
	amox := a.createMedication("Amoxicillin", "500mg", "2 times/day")

	asg := a.createAssignment(gin.H{"patientId": john.ID, "medicationId": ibu.ID, "totalDays": 5})
	assert.Equal(t, "2024-06-03", asg.StartDate)
	assert.Equal(t, 5, asg.RemainingDays)
	assert.Equal(t, john.ID, asg.PatientID)
	assert.Equal(t, "Ibuprofen", asg.Medication.Name)

	a.clock.now = a.clock.now.AddDate(0, 0, 3)
	code, env := a.do(http.MethodGet, fmt.Sprintf("/api/v1/assignments/%d", asg.ID), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, decode[models.AssignmentDTO](t, env.Data).RemainingDays)

	code, env = a.do(http.MethodPatch, fmt.Sprintf("/api/v1/assignments/%d", asg.ID), gin.H{"totalDays": 20, "medicationId": amox.ID})
	require.Equal(t, http.StatusOK, code, env.Error)
	updated := decode[models.AssignmentDTO](t, env.Data)
	assert.Equal(t, 17, updated.RemainingDays)
	assert.Equal(t, "Amoxicillin", updated.Medication.Name)

	code, env = a.do(http.MethodPatch, fmt.Sprintf("/api/v1/assignments/%d", asg.ID), gin.H{"totalDays": 0})
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, 0, decode[models.AssignmentDTO](t, env.Data).TotalDays)

	code, env = a.do(http.MethodPatch, fmt.Sprintf("/api/v1/assignments/%d", asg.ID), gin.H{"startDate": "2024-06-10", "totalDays": 3})
	require.Equal(t, http.StatusOK, code, env.Error)
	updated = decode[models.AssignmentDTO](t, env.Data)
	assert.Equal(t, "2024-06-10", updated.StartDate)
	assert.Equal(t, 7, updated.RemainingDays)

	code, env = a.do(http.MethodPatch, fmt.Sprintf("/api/v1/assignments/%d", asg.ID), gin.H{"medicationId": 999})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Medication not found", env.Error)

	code, env = a.do(http.MethodDelete, fmt.Sprintf("/api/v1/assignments/%d", asg.ID), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, handlers.DeleteResponse{Deleted: true}, decode[handlers.DeleteResponse](t, env.Data))

	code, env = a.do(http.MethodDelete, fmt.Sprintf("/api/v1/assignments/%d", asg.ID), nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, handlers.DeleteResponse{Deleted: false}, decode[handlers.DeleteResponse](t, env.Data))
}

func TestAssignmentCreateErrors(t *testing.T) {
	a := newAPI(t, nil)

	john := a.createPatient("John Doe", "1980-05-12")
	ibu := a.createMedication("Ibuprofen", "200mg", "3 times/day")

	code, env := a.do(http.MethodPost, "/api/v1/assignments", gin.H{"patientId": 999, "medicationId": ibu.ID})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Patient not found", env.Error)

	code, env = a.do(http.MethodPost, "/api/v1/assignments", gin.H{"patientId": john.ID, "medicationId": 999})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Medication not found", env.Error)

	for name, body := range map[string]gin.H{
		"missing patient": {"medicationId": ibu.ID},
		"negative days":   {"patientId": john.ID, "medicationId": ibu.ID, "totalDays": -3},
		"zero days":       {"patientId": john.ID, "medicationId": ibu.ID, "totalDays": 0},
		"bad start date":  {"patientId": john.ID, "medicationId": ibu.ID, "startDate": "2024-13-40"},
	} {
		t.Run(name, func(t *testing.T) {
			code, _ := a.do(http.MethodPost, "/api/v1/assignments", body)
			assert.Equal(t, http.StatusBadRequest, code)
		})
	}

	code, env = a.do(http.MethodGet, "/api/v1/assignments", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[[]models.AssignmentDTO](t, env.Data))
}

func TestAssignmentListFilters(t *testing.T) {
	a := newAPI(t, nil)

	john := a.createPatient("John Doe", "1980-05-12")
	jane := a.createPatient("Jane Smith", "1990-11-03")
	med := a.createMedication("Amoxicillin", "500mg", "2 times/day")

	finished := a.createAssignment(gin.H{"patientId": john.ID, "medicationId": med.ID, "startDate": "2024-01-01", "totalDays": 5})
	running := a.createAssignment(gin.H{"patientId": john.ID, "medicationId": med.ID, "totalDays": 5})
	janes := a.createAssignment(gin.H{"patientId": jane.ID, "medicationId": med.ID, "totalDays": 7})

	code, env := a.do(http.MethodGet, fmt.Sprintf("/api/v1/assignments?patientId=%d", john.ID), nil)
	require.Equal(t, http.StatusOK, code)
	list := decode[[]models.AssignmentDTO](t, env.Data)
	require.Len(t, list, 2)
	assert.Equal(t, finished.ID, list[0].ID)
	assert.Equal(t, running.ID, list[1].ID)

	code, env = a.do(http.MethodGet, "/api/v1/assignments?active=true", nil)
	require.Equal(t, http.StatusOK, code)
	list = decode[[]models.AssignmentDTO](t, env.Data)
	require.Len(t, list, 2)
	assert.Equal(t, running.ID, list[0].ID)
	assert.Equal(t, janes.ID, list[1].ID)

	code, env = a.do(http.MethodGet, "/api/v1/assignments?active=true&limit=1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[[]models.AssignmentDTO](t, env.Data))
	assert.Nil(t, env.Meta.Total)

	code, _ = a.do(http.MethodGet, "/api/v1/assignments?patientId=x", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = a.do(http.MethodGet, "/api/v1/assignments?limit=-5", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPatientDeleteCascadesOverHTTP(t *testing.T) {
	a := newAPI(t, nil)

	john := a.createPatient("John Doe", "1980-05-12")
	med := a.createMedication("Ibuprofen", "200mg", "3 times/day")
	asg := a.createAssignment(gin.H{"patientId": john.ID, "medicationId": med.ID, "totalDays": 5})

	code, env := a.do(http.MethodGet, fmt.Sprintf("/api/v1/patients/%d", john.ID), nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, decode[models.PatientDTO](t, env.Data).Assignments, 1)

	code, _ = a.do(http.MethodDelete, fmt.Sprintf("/api/v1/patients/%d", john.ID), nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = a.do(http.MethodGet, fmt.Sprintf("/api/v1/assignments/%d", asg.ID), nil)
	assert.Equal(t, http.StatusNotFound, code)

	// The medication is free again once the cascade removed its assignment.
	code, _ = a.do(http.MethodDelete, fmt.Sprintf("/api/v1/medications/%d", med.ID), nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestAuthRequiredWhenSecretConfigured(t *testing.T) {
	a := newAPI(t, &config.Config{Origin: "http://localhost:3000", JWTSecret: "secret"})

	code, env := a.do(http.MethodGet, "/api/v1/patients", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Authorization header required", env.Error)

	token, err := utils.GenerateToken("frontend", "secret", time.Hour)
	require.NoError(t, err)
	a.token = token
	code, _ = a.do(http.MethodGet, "/api/v1/patients", nil)
	assert.Equal(t, http.StatusOK, code)

	// Health stays public.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
