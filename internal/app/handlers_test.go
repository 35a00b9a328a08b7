package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"course-scheduler/internal/holiday"
	"course-scheduler/internal/schedule"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type storeStub struct {
	courses  map[uuid.UUID]*Course
	holidays []holiday.Holiday
	err      error
	inserted []holiday.Holiday
}

func newStoreStub() *storeStub {
	return &storeStub{courses: map[uuid.UUID]*Course{}}
}

func (s *storeStub) Ping(ctx context.Context) error { return s.err }

func (s *storeStub) CreateCourse(ctx context.Context, c *Course) error {
	if s.err != nil {
		return s.err
	}
	for _, existing := range s.courses {
		if existing.TenantID == c.TenantID && existing.Name == c.Name {
			return ErrDuplicate
		}
	}
	s.courses[c.ID] = c
	return nil
}

func (s *storeStub) GetCourse(ctx context.Context, tenantID string, id uuid.UUID) (*Course, error) {
	c, ok := s.courses[id]
	if !ok || c.TenantID != tenantID {
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *storeStub) ListCourses(ctx context.Context, tenantID string) ([]Course, error) {
	var out []Course
	for _, c := range s.courses {
		if c.TenantID == tenantID {
			out = append(out, *c)
		}
	}
	return out, s.err
}

func (s *storeStub) DeleteCourse(ctx context.Context, tenantID string, id uuid.UUID) error {
	if _, err := s.GetCourse(ctx, tenantID, id); err != nil {
		return err
	}
	delete(s.courses, id)
	return nil
}

func (s *storeStub) ListHolidays(ctx context.Context, tenantID string, from, to civil.Date) ([]holiday.Holiday, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []holiday.Holiday
	for _, h := range s.holidays {
		if (h.TenantID == tenantID || h.TenantID == "") && !h.Date.Before(from) && !h.Date.After(to) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *storeStub) InsertHoliday(ctx context.Context, h *holiday.Holiday) error {
	for _, e := range s.holidays {
		if e.TenantID == h.TenantID && e.Date == h.Date {
			return ErrDuplicate
		}
	}
	h.ID = uuid.New()
	s.holidays = append(s.holidays, *h)
	return nil
}

func (s *storeStub) InsertHolidays(ctx context.Context, hs []holiday.Holiday) (int, error) {
	n := 0
	for i := range hs {
		if err := s.InsertHoliday(ctx, &hs[i]); err == nil {
			n++
		}
	}
	s.inserted = append(s.inserted, hs...)
	return n, nil
}

func (s *storeStub) DeleteHoliday(ctx context.Context, tenantID string, id uuid.UUID) error {
	for i, h := range s.holidays {
		if h.ID == id && h.TenantID == tenantID {
			s.holidays = append(s.holidays[:i], s.holidays[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

type cacheStub struct {
	data map[string]schedule.Result
	gets int
	hits int
}

func (c *cacheStub) Get(ctx context.Context, key string) (schedule.Result, bool, error) {
	c.gets++
	res, ok := c.data[key]
	if ok {
		c.hits++
	}
	return res, ok, nil
}

func (c *cacheStub) Set(ctx context.Context, key string, res schedule.Result) error {
	c.data[key] = res
	return nil
}

type importerStub struct {
	holidays []holiday.Holiday
	err      error
	gotCal   string
}

func (i *importerStub) Import(ctx context.Context, token *oauth2.Token, calendarID string, from, to civil.Date, tenantID string) ([]holiday.Holiday, error) {
	i.gotCal = calendarID
	if i.err != nil {
		return nil, i.err
	}
	out := make([]holiday.Holiday, len(i.holidays))
	for n, h := range i.holidays {
		h.TenantID = tenantID
		out[n] = h
	}
	return out, nil
}

const testToken = "secret-token"

func newTestApp() (*App, *storeStub) {
	store := newStoreStub()
	return &App{
		Store: store,
		Auth:  AuthConfig{StaticTokens: []string{testToken}},
	}, store
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set(tenantHeader, "school-1")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

var calcBody = map[string]any{
	"totalHours":             3,
	"sessionDurationMinutes": 90,
	"firstSessionDate":       "2024-01-01",
	"weeklySchedule": []map[string]string{
		{"weekday": "monday", "startTime": "18:00", "endTime": "19:30"},
		{"weekday": "thursday", "startTime": "18:00", "endTime": "19:30"},
	},
}

func TestValidateScheduleHandler(t *testing.T) {
	a, _ := newTestApp()
	r := a.Router()

	w := doRequest(t, r, http.MethodPost, "/api/schedule/validate", map[string]any{
		"weeklySchedule": []map[string]string{
			{"weekday": "monday", "startTime": "10:00", "endTime": "09:00"},
			{"weekday": "monday", "startTime": "11:00", "endTime": "12:00"},
		},
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	resp := decode[struct {
		Valid  bool                      `json:"valid"`
		Errors schedule.ValidationErrors `json:"errors"`
	}](t, w)
	if resp.Valid || !resp.Errors.Has(schedule.MsgEndBeforeStart) || !resp.Errors.Has(schedule.MsgDuplicateDay) {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestValidateScheduleHandlerCasing(t *testing.T) {
	a, _ := newTestApp()
	w := doRequest(t, a.Router(), http.MethodPost, "/api/schedule/validate", map[string]any{
		"weeklySchedule": []map[string]string{
			{"weekday": "Monday", "startTime": "09:00", "endTime": "10:00"},
			{"weekday": "THURSDAY", "startTime": "09:00", "endTime": "10:00"},
		},
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	resp := decode[struct {
		Valid  bool                      `json:"valid"`
		Errors schedule.ValidationErrors `json:"errors"`
	}](t, w)
	if !resp.Valid || len(resp.Errors) != 0 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestCalculateHandler(t *testing.T) {
	a, _ := newTestApp()
	w := doRequest(t, a.Router(), http.MethodPost, "/api/schedule/calculate", calcBody, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	resp := decode[calculateResp](t, w)
	if resp.TotalSessions != 2 || len(resp.SessionDates) != 2 {
		t.Fatalf("unexpected result %+v", resp)
	}
	if resp.CalculatedEndDate != (civil.Date{Year: 2024, Month: 1, Day: 4}) {
		t.Fatalf("CalculatedEndDate = %s", resp.CalculatedEndDate)
	}
	if resp.SessionLength != "1.5 hours" || resp.TotalLength != "3 hours" {
		t.Fatalf("labels = %q / %q", resp.SessionLength, resp.TotalLength)
	}
}

func TestCalculateHandlerUsesHolidays(t *testing.T) {
	a, store := newTestApp()
	store.holidays = []holiday.Holiday{{TenantID: "school-1", Date: civil.Date{Year: 2024, Month: 1, Day: 4}, Name: "Closed"}}
	a.FileHolidays = []holiday.Holiday{{Date: civil.Date{Year: 2024, Month: 1, Day: 1}, Name: "New Year"}}

	body := map[string]any{}
	for k, v := range calcBody {
		body[k] = v
	}
	body["useHolidays"] = true

	w := doRequest(t, a.Router(), http.MethodPost, "/api/schedule/calculate", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	resp := decode[calculateResp](t, w)
	want := []civil.Date{{Year: 2024, Month: 1, Day: 8}, {Year: 2024, Month: 1, Day: 11}}
	if len(resp.SessionDates) != 2 || resp.SessionDates[0].Date != want[0] || resp.SessionDates[1].Date != want[1] {
		t.Fatalf("sessions = %+v, want %v", resp.SessionDates, want)
	}
	if len(resp.SkippedDates) != 2 {
		t.Fatalf("SkippedDates = %v", resp.SkippedDates)
	}
}

func TestCalculateHandlerErrors(t *testing.T) {
	a, _ := newTestApp()
	r := a.Router()

	invalid := map[string]any{
		"totalHours": 3, "sessionDurationMinutes": 90, "firstSessionDate": "2024-01-01",
		"weeklySchedule": []map[string]string{},
	}
	w := doRequest(t, r, http.MethodPost, "/api/schedule/calculate", invalid, nil)
	if w.Code != http.StatusUnprocessableEntity || !strings.Contains(w.Body.String(), schedule.MsgEmptySchedule) {
		t.Fatalf("empty schedule: status = %d, body %s", w.Code, w.Body)
	}

	zero := map[string]any{}
	for k, v := range calcBody {
		zero[k] = v
	}
	zero["totalHours"] = 0
	w = doRequest(t, r, http.MethodPost, "/api/schedule/calculate", zero, nil)
	if w.Code != http.StatusUnprocessableEntity || !strings.Contains(w.Body.String(), "totalHours") {
		t.Fatalf("zero hours: status = %d, body %s", w.Code, w.Body)
	}

	huge := map[string]any{}
	for k, v := range calcBody {
		huge[k] = v
	}
	huge["totalHours"] = 1e12
	huge["sessionDurationMinutes"] = 1
	w = doRequest(t, r, http.MethodPost, "/api/schedule/calculate", huge, nil)
	if w.Code != http.StatusUnprocessableEntity || !strings.Contains(w.Body.String(), "totalHours") {
		t.Fatalf("huge hours: status = %d, body %s", w.Code, w.Body)
	}

	w = doRequest(t, r, http.MethodPost, "/api/schedule/calculate", map[string]any{"firstSessionDate": "01/01/2024"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad date: status = %d", w.Code)
	}
}

func TestCalculateHandlerCache(t *testing.T) {
	a, _ := newTestApp()
	cache := &cacheStub{data: map[string]schedule.Result{}}
	a.Cache = cache
	r := a.Router()

	for i := 0; i < 2; i++ {
		if w := doRequest(t, r, http.MethodPost, "/api/schedule/calculate", calcBody, nil); w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
	}
	if cache.gets != 2 || cache.hits != 1 || len(cache.data) != 1 {
		t.Fatalf("cache gets=%d hits=%d entries=%d", cache.gets, cache.hits, len(cache.data))
	}
}

func TestDurationAndEndTimeHandlers(t *testing.T) {
	a, _ := newTestApp()
	r := a.Router()

	w := doRequest(t, r, http.MethodGet, "/api/schedule/duration?minutes=90", nil, nil)
	if got := decode[map[string]any](t, w)["label"]; got != "1.5 hours" {
		t.Fatalf("label = %v", got)
	}
	w = doRequest(t, r, http.MethodGet, "/api/schedule/duration?minutes=-9223372036854775808", nil, nil)
	if got := decode[map[string]any](t, w)["label"]; got != "-153722867280912928 hours" {
		t.Fatalf("label = %v", got)
	}
	if w := doRequest(t, r, http.MethodGet, "/api/schedule/duration?minutes=abc", nil, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}

	w = doRequest(t, r, http.MethodGet, "/api/schedule/end-time?start=18:00&duration=90", nil, nil)
	if got := decode[map[string]string](t, w)["endTime"]; got != "19:30" {
		t.Fatalf("endTime = %v", got)
	}
	if w := doRequest(t, r, http.MethodGet, "/api/schedule/end-time?start=23:30&duration=60", nil, nil); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestCourseLifecycle(t *testing.T) {
	a, store := newTestApp()
	r := a.Router()

	body := map[string]any{"name": "IELTS Evening A", "timezone": "UTC"}
	for k, v := range calcBody {
		body[k] = v
	}
	w := doRequest(t, r, http.MethodPost, "/api/courses", body, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body %s", w.Code, w.Body)
	}
	created := decode[Course](t, w)
	if created.TenantID != "school-1" || created.TotalSessions != 2 || len(created.Sessions) != 2 {
		t.Fatalf("unexpected course %+v", created)
	}
	if _, ok := store.courses[created.ID]; !ok {
		t.Fatal("course not stored")
	}

	if w := doRequest(t, r, http.MethodPost, "/api/courses", body, nil); w.Code != http.StatusConflict {
		t.Fatalf("duplicate: status = %d", w.Code)
	}

	w = doRequest(t, r, http.MethodGet, "/api/courses/"+created.ID.String(), nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: status = %d", w.Code)
	}
	w = doRequest(t, r, http.MethodGet, "/api/courses/"+created.ID.String(), nil, map[string]string{tenantHeader: "school-2"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("other tenant: status = %d", w.Code)
	}

	w = doRequest(t, r, http.MethodGet, "/api/courses", nil, nil)
	if list := decode[[]Course](t, w); len(list) != 1 {
		t.Fatalf("list = %+v", list)
	}

	if w := doRequest(t, r, http.MethodDelete, "/api/courses/"+created.ID.String(), nil, nil); w.Code != http.StatusOK {
		t.Fatalf("delete: status = %d", w.Code)
	}
	if w := doRequest(t, r, http.MethodGet, "/api/courses/not-a-uuid", nil, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id: status = %d", w.Code)
	}
}

func TestCreateCourseRejectsInvalidSchedule(t *testing.T) {
	a, store := newTestApp()
	body := map[string]any{
		"name": "Broken", "totalHours": 10, "sessionDurationMinutes": 60, "firstSessionDate": "2024-01-01",
		"weeklySchedule": []map[string]string{{"weekday": "monday", "startTime": "10:00", "endTime": "09:00"}},
	}
	w := doRequest(t, a.Router(), http.MethodPost, "/api/courses", body, nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	if len(store.courses) != 0 {
		t.Fatal("invalid course was stored")
	}
}

func TestHolidayHandlers(t *testing.T) {
	a, _ := newTestApp()
	a.FileHolidays = []holiday.Holiday{{Date: civil.Date{Year: 2025, Month: 1, Day: 1}, Name: "New Year", Source: holiday.SourceFile}}
	r := a.Router()

	w := doRequest(t, r, http.MethodPost, "/api/holidays", map[string]any{"date": "2025-03-21", "name": "Nowruz"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body %s", w.Code, w.Body)
	}
	created := decode[holiday.Holiday](t, w)

	if w := doRequest(t, r, http.MethodPost, "/api/holidays", map[string]any{"date": "2025-03-21", "name": "Again"}, nil); w.Code != http.StatusConflict {
		t.Fatalf("duplicate: status = %d", w.Code)
	}
	if w := doRequest(t, r, http.MethodPost, "/api/holidays", map[string]any{"name": "No date"}, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("missing date: status = %d", w.Code)
	}

	w = doRequest(t, r, http.MethodGet, "/api/holidays?from=2025-01-01&to=2025-12-31", nil, nil)
	list := decode[[]holiday.Holiday](t, w)
	if len(list) != 2 || list[0].Name != "New Year" || list[1].Name != "Nowruz" {
		t.Fatalf("list = %+v", list)
	}
	if w := doRequest(t, r, http.MethodGet, "/api/holidays?from=2025-12-31&to=2025-01-01", nil, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("reversed range: status = %d", w.Code)
	}

	if w := doRequest(t, r, http.MethodDelete, "/api/holidays/"+created.ID.String(), nil, nil); w.Code != http.StatusOK {
		t.Fatalf("delete: status = %d", w.Code)
	}
	if w := doRequest(t, r, http.MethodDelete, "/api/holidays/"+created.ID.String(), nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("second delete: status = %d", w.Code)
	}
}

func TestImportHolidaysHandler(t *testing.T) {
	a, store := newTestApp()
	r := a.Router()

	if w := doRequest(t, r, http.MethodPost, "/api/holidays/import", nil, nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("unconfigured: status = %d", w.Code)
	}

	imp := &importerStub{holidays: []holiday.Holiday{
		{Date: civil.Date{Year: 2025, Month: 4, Day: 1}, Name: "Nature Day", Source: holiday.SourceGoogle},
		{Date: civil.Date{Year: 2025, Month: 4, Day: 2}, Name: "Other", Source: holiday.SourceGoogle},
	}}
	a.Importer = imp
	r = a.Router()

	if w := doRequest(t, r, http.MethodPost, "/api/holidays/import", nil, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("missing token: status = %d", w.Code)
	}

	token := map[string]string{"X-Google-Token": `{"access_token":"abc","token_type":"Bearer"}`}
	w := doRequest(t, r, http.MethodPost, "/api/holidays/import?calendar_id=holidays&from=2025-04-01&to=2025-04-30", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("import: status = %d, body %s", w.Code, w.Body)
	}
	got := decode[map[string]int](t, w)
	if got["found"] != 2 || got["imported"] != 2 || imp.gotCal != "holidays" {
		t.Fatalf("import result %v, calendar %q", got, imp.gotCal)
	}
	if store.inserted[0].TenantID != "school-1" {
		t.Fatalf("imported holiday tenant = %q", store.inserted[0].TenantID)
	}

	imp.err = errors.New("calendar down")
	if w := doRequest(t, r, http.MethodPost, "/api/holidays/import?from=2025-04-01&to=2025-04-30", nil, token); w.Code != http.StatusBadGateway {
		t.Fatalf("importer failure: status = %d", w.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	a, store := newTestApp()
	r := a.Router()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	store.err = errors.New("db down")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", w.Code)
	}
}
