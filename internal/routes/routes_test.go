package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hospital-portal-server/internal/config"
	"hospital-portal-server/internal/logger"
	"hospital-portal-server/internal/models"
	"hospital-portal-server/internal/monitoring"
	"hospital-portal-server/internal/services"
	"hospital-portal-server/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const password = "correct-horse"

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Fields  map[string]string `json:"fields"`
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	svc    *services.Services
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := models.Open(sqlite.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, models.AutoMigrate(db))

	cfg := &config.Config{Origin: "http://localhost:3000", SessionSecret: "routes-secret", SessionTTLHours: 168}
	metrics := monitoring.NewMetrics()
	svc := services.New(db, cfg, logger.Discard(), metrics)
	return &testServer{router: NewRouter(svc, cfg, logger.Discard(), metrics), db: db, svc: svc}
}

func (s *testServer) register(t *testing.T, role models.Role, roleID, email, name string) {
	t.Helper()
	_, err := s.svc.Auth.Register(context.Background(), services.NewUser{
		Name: name, Email: email, Password: password, Role: role, RoleID: roleID,
	})
	require.NoError(t, err)
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(t *testing.T, email, roleID string) *http.Cookie {
	t.Helper()
	w := s.do(t, http.MethodPost, "/login", gin.H{"email": email, "password": password, "roleId": roleID}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	for _, c := range w.Result().Cookies() {
		if c.Name == utils.SessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	s.register(t, models.RoleDoctor, "D001", "kwame@hospital.test", "Kwame Asante")

	w := s.do(t, http.MethodPost, "/login", gin.H{"email": "kwame@hospital.test", "password": password, "roleId": "D002"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	env := decode(t, w, nil)
	assert.Equal(t, "Invalid Doctor ID", env.Error)
	assert.Empty(t, w.Result().Cookies())

	w = s.do(t, http.MethodPost, "/login", gin.H{"email": "kwame"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env = decode(t, w, nil)
	assert.Equal(t, "Please enter a valid email address", env.Fields["email"])

	w = s.do(t, http.MethodPost, "/login", gin.H{
		"email": "kwame@hospital.test", "password": password, "roleId": "D001", "redirect": "/doctor/patients",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		User       utils.SessionPayload `json:"user"`
		RedirectTo string               `json:"redirectTo"`
	}
	decode(t, w, &resp)
	assert.Equal(t, models.RoleDoctor, resp.User.Role)
	assert.Equal(t, "D001", resp.User.RoleSpecificID)
	assert.Equal(t, "/doctor/patients", resp.RedirectTo)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, "/", cookies[0].Path)
	assert.Equal(t, 7*24*3600, cookies[0].MaxAge)
}

func TestLogin_ForeignRedirectFallsBackHome(t *testing.T) {
	s := newTestServer(t)
	s.register(t, models.RoleNurse, "N001", "efua@hospital.test", "Efua Owusu")

	for _, redirect := range []string{"/doctor", "//evil.example", "https://evil.example"} {
		w := s.do(t, http.MethodPost, "/login", gin.H{
			"email": "efua@hospital.test", "password": password, "roleId": "N001", "redirect": redirect,
		}, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			RedirectTo string `json:"redirectTo"`
		}
		decode(t, w, &resp)
		assert.Equal(t, "/nurse", resp.RedirectTo, redirect)
	}
}

func TestGate(t *testing.T) {
	s := newTestServer(t)
	s.register(t, models.RoleDoctor, "D001", "kwame@hospital.test", "Kwame Asante")
	doctor := s.login(t, "kwame@hospital.test", "D001")

	w := s.do(t, http.MethodGet, "/nurse/appointments", nil, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?redirect=%2Fnurse%2Fappointments", w.Header().Get("Location"))

	w = s.do(t, http.MethodGet, "/nurse/appointments", nil, doctor)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/doctor", w.Header().Get("Location"))

	w = s.do(t, http.MethodPost, "/login", gin.H{}, doctor)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/doctor", w.Header().Get("Location"))

	w = s.do(t, http.MethodGet, "/session", nil, doctor)
	require.Equal(t, http.StatusOK, w.Code)
	var payload utils.SessionPayload
	decode(t, w, &payload)
	assert.Equal(t, "Kwame Asante", payload.Name)

	w = s.do(t, http.MethodGet, "/session", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogout(t *testing.T) {
	s := newTestServer(t)
	s.register(t, models.RolePatient, "VUG/PAT/24/0001", "ama@hospital.test", "Ama Mensah")
	cookie := s.login(t, "ama@hospital.test", "VUG/PAT/24/0001")

	w := s.do(t, http.MethodPost, "/logout", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		RedirectTo string `json:"redirectTo"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "/", resp.RedirectTo)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, utils.SessionCookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestRegisterPatient(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/register", gin.H{
		"name": "Ama Mensah", "email": "ama@hospital.test", "password": password, "patientId": "12345",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w, nil)
	assert.Equal(t, "Patient ID must be in the format VUG/PAT/XX/XXXX", env.Fields["roleId"])

	w = s.do(t, http.MethodPost, "/register", gin.H{
		"name": "Ama Mensah", "email": "ama@hospital.test", "password": password, "patientId": "VUG/PAT/24/0001",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), password)

	cookie := s.login(t, "ama@hospital.test", "VUG/PAT/24/0001")
	w = s.do(t, http.MethodGet, "/patient", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	var patient models.Patient
	decode(t, w, &patient)
	assert.Equal(t, "VUG/PAT/24/0001", patient.PatientID)
	assert.Equal(t, "Ama Mensah", patient.User.Name)
}

func TestAppointmentLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.register(t, models.RolePatient, "VUG/PAT/24/0001", "ama@hospital.test", "Ama Mensah")
	s.register(t, models.RoleNurse, "N001", "efua@hospital.test", "Efua Owusu")
	s.register(t, models.RoleDoctor, "D001", "kwame@hospital.test", "Kwame Asante")
	patient := s.login(t, "ama@hospital.test", "VUG/PAT/24/0001")
	nurse := s.login(t, "efua@hospital.test", "N001")
	doctor := s.login(t, "kwame@hospital.test", "D001")

	w := s.do(t, http.MethodPost, "/patient/appointment-requests", gin.H{
		"preferredDate": "2024-06-20", "type": "check_up", "reason": "annual physical",
	}, patient)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/nurse/appointments/requests", nil, nurse)
	require.Equal(t, http.StatusOK, w.Code)
	var queue []services.PendingRequestView
	decode(t, w, &queue)
	require.Len(t, queue, 1)
	assert.Equal(t, "Ama Mensah", queue[0].PatientName)

	w = s.do(t, http.MethodGet, "/nurse/doctors", nil, nurse)
	require.Equal(t, http.StatusOK, w.Code)
	var doctors []services.DoctorOption
	decode(t, w, &doctors)
	require.Len(t, doctors, 1)

	schedulePath := "/nurse/appointments/requests/" + queue[0].ID + "/schedule"
	w = s.do(t, http.MethodPost, schedulePath, gin.H{"date": "2024-06-25", "time": "10:00", "doctorId": doctors[0].DoctorID}, nurse)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var appointment models.Appointment
	decode(t, w, &appointment)

	w = s.do(t, http.MethodPost, schedulePath, gin.H{"date": "2024-06-25", "time": "10:00", "doctorId": "D001"}, nurse)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, utils.CodeAlreadyScheduled, decode(t, w, nil).Code)

	w = s.do(t, http.MethodPost, "/doctor/appointments/"+appointment.ID+"/start", nil, doctor)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, utils.CodeVitalsNotChecked, decode(t, w, nil).Code)

	w = s.do(t, http.MethodPost, "/nurse/appointments/"+appointment.ID+"/vitals", gin.H{
		"temperature": "98.6", "bloodPressure": "120/80", "heartRate": "72", "respiratoryRate": "16",
	}, nurse)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/doctor/appointments/"+appointment.ID+"/start", nil, doctor)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var view services.ConsultationView
	decode(t, w, &view)
	assert.Equal(t, models.StatusInProgress, view.Appointment.Status)
	require.NotNil(t, view.LatestVitals)

	w = s.do(t, http.MethodPost, "/doctor/consultation/"+appointment.ID, gin.H{"diagnosis": "", "notes": ""}, doctor)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Diagnosis is required", decode(t, w, nil).Fields["diagnosis"])

	w = s.do(t, http.MethodPost, "/doctor/consultation/"+appointment.ID, gin.H{
		"diagnosis": "Hypertension", "notes": "Prescribed Lisinopril", "prescription": "Lisinopril 10mg", "followUpDate": "2024-07-01",
	}, doctor)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var result services.ConsultationResult
	decode(t, w, &result)
	require.NotNil(t, result.FollowUp)
	assert.Equal(t, "10:00", result.FollowUp.Time)
	assert.Equal(t, models.TypeFollowUp, result.FollowUp.Type)

	w = s.do(t, http.MethodGet, "/doctor/appointments/completed", nil, doctor)
	require.Equal(t, http.StatusOK, w.Code)
	var completed []services.CompletedAppointmentView
	decode(t, w, &completed)
	require.Len(t, completed, 1)
	assert.Equal(t, "Hypertension", completed[0].Diagnosis)

	w = s.do(t, http.MethodGet, "/doctor/patients/VUG/PAT/24/0001", nil, doctor)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var details services.PatientDetails
	decode(t, w, &details)
	assert.Len(t, details.Appointments, 2)
	assert.Len(t, details.Medications, 1)

	w = s.do(t, http.MethodGet, "/patient/appointments", nil, patient)
	require.Equal(t, http.StatusOK, w.Code)
	var own []services.AppointmentView
	decode(t, w, &own)
	assert.Len(t, own, 2)

	w = s.do(t, http.MethodGet, "/patient/medical-history/download", nil, patient)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "medical-history.csv")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Date,Diagnosis,Treatment,Doctor", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], ",Hypertension,Prescribed Lisinopril,Dr. Kwame Asante"), lines[1])
}

func TestNurseTasksAndSettings(t *testing.T) {
	s := newTestServer(t)
	s.register(t, models.RoleNurse, "N001", "efua@hospital.test", "Efua Owusu")
	nurse := s.login(t, "efua@hospital.test", "N001")

	w := s.do(t, http.MethodPost, "/nurse/tasks", gin.H{"title": "Check IV", "priority": "URGENT"}, nurse)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var task models.Task
	decode(t, w, &task)

	w = s.do(t, http.MethodGet, "/nurse/tasks", nil, nurse)
	require.Equal(t, http.StatusOK, w.Code)
	var tasks []models.Task
	decode(t, w, &tasks)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Check IV", tasks[0].Title)

	w = s.do(t, http.MethodPatch, "/nurse/tasks/"+task.ID+"/status", gin.H{"status": "IN_PROGRESS"}, nurse)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/nurse/tasks/"+task.ID+"/complete", nil, nurse)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &task)
	assert.Equal(t, models.TaskCompleted, task.Status)

	w = s.do(t, http.MethodPost, "/nurse/tasks/"+uuid.NewString()+"/complete", nil, nurse)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPut, "/nurse/settings", gin.H{"name": "Efua O.", "email": "efua.o@hospital.test", "bio": "Ward 3"}, nurse)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/nurse/settings", nil, nurse)
	require.Equal(t, http.StatusOK, w.Code)
	var settings services.NurseSettings
	decode(t, w, &settings)
	assert.Equal(t, "efua.o@hospital.test", settings.Email)
	assert.Equal(t, "N001", settings.NurseID)

	w = s.do(t, http.MethodGet, "/nurse", nil, nurse)
	require.Equal(t, http.StatusOK, w.Code)
	var overview services.NurseOverview
	decode(t, w, &overview)
	assert.Zero(t, overview.Stats.PendingTasks)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"UP"}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{endpoint="/health",method="GET",status_code="200"} 1`)
}
