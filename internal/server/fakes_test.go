package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"dental-clinic/internal/db"
)

type fakePatient struct {
	id    int64
	name  string
	email string
	phone string
	hash  string
}

type fakeReport struct {
	id          int64
	patientID   int64
	testName    string
	status      string
	filename    *string
	key         *string
	requestedAt time.Time
	uploadDate  *time.Time
}

// fakeStore is an in-memory Store with the same error contract as *db.Store.
type fakeStore struct {
	mu sync.Mutex

	pingErr error
	failErr error // returned by every data operation when set

	nextID       int64
	patients     map[int64]*fakePatient
	appointments map[int64]*db.Appointment
	reports      map[int64]*fakeReport
	admins       map[string]string
	clock        time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		patients:     map[int64]*fakePatient{},
		appointments: map[int64]*db.Appointment{},
		reports:      map[int64]*fakeReport{},
		admins:       map[string]string{},
		clock:        time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Minute)
	return f.clock
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) CreatePatient(_ context.Context, p db.NewPatient) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return 0, f.failErr
	}
	for _, existing := range f.patients {
		if existing.email == p.Email {
			return 0, db.ErrConflict
		}
	}
	id := f.id()
	f.patients[id] = &fakePatient{id: id, name: p.Name, email: p.Email, phone: p.Phone, hash: p.PasswordHash}
	return id, nil
}

func (f *fakeStore) FindPatientsByLogin(_ context.Context, login string) ([]db.PatientCredentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	var out []db.PatientCredentials
	for _, p := range f.patients {
		if p.email == strings.ToLower(login) || p.phone == login {
			out = append(out, db.PatientCredentials{ID: p.id, Name: p.name, PasswordHash: p.hash})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) CreateAppointment(_ context.Context, patientID int64, date time.Time, treatment string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return 0, f.failErr
	}
	p, ok := f.patients[patientID]
	if !ok {
		return 0, db.ErrNotFound
	}
	id := f.id()
	f.appointments[id] = &db.Appointment{
		ID:          id,
		PatientID:   patientID,
		PatientName: p.name,
		Date:        date,
		Treatment:   treatment,
		Status:      db.AppointmentBooked,
	}
	return id, nil
}

func (f *fakeStore) UpdateAppointmentStatus(_ context.Context, id int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	a, ok := f.appointments[id]
	if !ok {
		return db.ErrNotFound
	}
	a.Status = status
	return nil
}

func (f *fakeStore) ListAppointments(context.Context) ([]db.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	out := make([]db.Appointment, 0, len(f.appointments))
	for _, a := range f.appointments {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (f *fakeStore) CreateReportRequest(_ context.Context, patientID int64, testName string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return 0, f.failErr
	}
	if _, ok := f.patients[patientID]; !ok {
		return 0, db.ErrNotFound
	}
	id := f.id()
	f.reports[id] = &fakeReport{
		id:          id,
		patientID:   patientID,
		testName:    testName,
		status:      db.ReportPending,
		requestedAt: f.tick(),
	}
	return id, nil
}

func (f *fakeStore) ListReportRequests(context.Context) ([]db.ReportRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	out := make([]db.ReportRequest, 0, len(f.reports))
	for _, r := range f.reports {
		name := "Unknown Patient"
		if p, ok := f.patients[r.patientID]; ok {
			name = p.name
		}
		requested := r.requestedAt
		out = append(out, db.ReportRequest{
			ID:          r.id,
			PatientID:   r.patientID,
			PatientName: name,
			TestName:    r.testName,
			Status:      r.status,
			RequestedAt: &requested,
			UploadDate:  r.uploadDate,
			S3Key:       r.key,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(*out[j].RequestedAt) })
	return out, nil
}

func (f *fakeStore) ListPatientReports(_ context.Context, patientID int64) ([]db.PatientReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	out := make([]db.PatientReport, 0)
	for _, r := range f.reports {
		if r.patientID != patientID {
			continue
		}
		requested := r.requestedAt
		out = append(out, db.PatientReport{
			ID:          r.id,
			TestName:    r.testName,
			Status:      r.status,
			Filename:    r.filename,
			S3Key:       r.key,
			RequestedAt: &requested,
			UploadDate:  r.uploadDate,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.UploadDate != nil && b.UploadDate == nil:
			return true
		case a.UploadDate == nil && b.UploadDate != nil:
			return false
		case a.UploadDate != nil && !a.UploadDate.Equal(*b.UploadDate):
			return a.UploadDate.After(*b.UploadDate)
		}
		return a.RequestedAt.After(*b.RequestedAt)
	})
	return out, nil
}

func (f *fakeStore) MarkReportUploaded(_ context.Context, id int64, filename, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	r, ok := f.reports[id]
	if !ok {
		return db.ErrNotFound
	}
	uploaded := f.tick()
	r.status = db.ReportUploaded
	r.filename = &filename
	r.key = &key
	r.uploadDate = &uploaded
	return nil
}

func (f *fakeStore) AdminPasswordHash(_ context.Context, username string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return "", f.failErr
	}
	h, ok := f.admins[username]
	if !ok {
		return "", db.ErrNotFound
	}
	return h, nil
}

// setReport places a report directly, bypassing the handlers.
func (f *fakeStore) setReport(r fakeReport) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.requestedAt.IsZero() {
		r.requestedAt = f.tick()
	}
	if r.id > f.nextID {
		f.nextID = r.id
	}
	f.reports[r.id] = &r
}

type presignCall struct {
	method      string
	key         string
	contentType string
	ttl         time.Duration
}

// fakeObjects builds deterministic URLs instead of signing them.
type fakeObjects struct {
	mu        sync.Mutex
	pingErr   error
	uploadErr error
	failKeys  map[string]bool
	calls     []presignCall
}

func (f *fakeObjects) PresignUpload(_ context.Context, key, contentType string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, presignCall{http.MethodPut, key, contentType, ttl})
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return "https://objects.test/reports-bucket/" + key + "?sig=put", nil
}

func (f *fakeObjects) PresignDownload(_ context.Context, key string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, presignCall{http.MethodGet, key, "", ttl})
	if f.failKeys[key] {
		return "", errors.New("signing failed")
	}
	return "https://objects.test/reports-bucket/" + key + "?sig=get", nil
}

func (f *fakeObjects) Ping(context.Context) error { return f.pingErr }

// recordingPublisher keeps every event it is handed.
type recordingPublisher struct {
	mu     sync.Mutex
	err    error
	events []Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type testEnv struct {
	store   *fakeStore
	objects *fakeObjects
	events  *recordingPublisher
	logs    *bytes.Buffer
	srv     *Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:   newFakeStore(),
		objects: &fakeObjects{failKeys: map[string]bool{}},
		events:  &recordingPublisher{},
		logs:    &bytes.Buffer{},
	}
	env.srv = New(Config{
		Addr:        ":0",
		Build:       BuildInfo{Version: "test", Commit: "abc123"},
		Store:       env.store,
		Objects:     env.objects,
		Events:      env.events,
		Logger:      NewLogger(LogOptions{JSON: true, Level: "debug", Output: env.logs}),
		CORSOrigins: []string{"*"},
	})
	return env
}

func (env *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return v
}
