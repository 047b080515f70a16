package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xuri/excelize/v2"

	"projecttracker/internal/amqp"
	"projecttracker/internal/auth"
	"projecttracker/internal/cache"
	"projecttracker/internal/core"
	"projecttracker/internal/export"
	"projecttracker/internal/records/memory"
	"projecttracker/internal/services"
)

type fakeSession struct {
	mu        sync.Mutex
	signedIn  bool
	signedOut bool
}

func (f *fakeSession) SignedIn() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signedIn
}

func (f *fakeSession) Status(context.Context) (auth.Status, error) {
	if !f.SignedIn() {
		return auth.Status{}, nil
	}
	return auth.Status{SignedIn: true, Email: "owner@example.com", Name: "Owner"}, nil
}

func (f *fakeSession) SignOut() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signedIn, f.signedOut = false, true
	return nil
}

type recordingDispatcher struct {
	mu   sync.Mutex
	jobs []*amqp.JobMessage
}

func (d *recordingDispatcher) Dispatch(_ context.Context, msg *amqp.JobMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, msg)
	return nil
}

type testEnv struct {
	srv        *Server
	session    *fakeSession
	dispatcher *recordingDispatcher
}

func newTestEnv(t *testing.T, opts services.ExportOptions, rpm int) *testEnv {
	t.Helper()
	return newTestEnvWith(t, opts, func(d *Deps) { d.RequestsPerMinute = rpm })
}

func newTestEnvWith(t *testing.T, opts services.ExportOptions, configure func(*Deps)) *testEnv {
	t.Helper()
	store := memory.New()
	f, err := export.NewFormatter("en", "EUR", time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	env := &testEnv{session: &fakeSession{}, dispatcher: &recordingDispatcher{}}
	deps := Deps{
		Projects: services.NewProjectService(store, time.UTC, nil),
		Stats:    services.NewStatsService(store, time.UTC, cache.NewLRUCache[core.Dashboard]("http_test", 16, time.Minute), nil),
		Exports:  services.NewExportService(store, f, env.dispatcher, env.session, opts, nil),
		Session:  env.session,
		Registry: prometheus.NewRegistry(),
	}
	configure(&deps)
	if deps.RequestsPerMinute == 0 {
		deps.RequestsPerMinute = 10000
	}
	env.srv = NewServer(":0", deps)
	t.Cleanup(func() { _ = env.srv.Shutdown(context.Background()) })
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %T: %v", v, err)
	}
	return v
}

func (e *testEnv) createProject(t *testing.T, body string) projectView {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/projects", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create project status=%d body=%s", rec.Code, rec.Body)
	}
	return decode[projectView](t, rec)
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, services.ExportOptions{}, 0)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := env.do(t, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rec.Code)
		}
		if rec.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s: missing X-Request-ID", path)
		}
		if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("%s: missing security headers", path)
		}
	}
}

func TestProjectLifecycle(t *testing.T) {
	env := newTestEnv(t, services.ExportOptions{}, 0)

	p := env.createProject(t, `{"name":" Site ","client":"ACME","start_date":"2025-01-15","agreed_amount":"1000,50"}`)
	if p.Name != "Site" || p.AgreedAmount != "1000.50" || p.StartDate != "2025-01-15" || !p.Active {
		t.Fatalf("created = %+v", p)
	}
	second := env.createProject(t, `{"name":"Kitchen","start_date":"2025-02-01","agreed_amount":"abc"}`)
	if second.AgreedAmount != "0.00" || second.SortRank != 1 {
		t.Errorf("malformed amount should parse to zero: %+v", second)
	}

	rec := env.do(t, http.MethodPut, "/api/projects/"+formatID(p.ID), `{"name":"Site B","start_date":"2025-01-16","agreed_amount":"900","active":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rec.Code, rec.Body)
	}
	if got := decode[projectView](t, rec); got.Name != "Site B" || got.Active {
		t.Errorf("updated = %+v", got)
	}

	rec = env.do(t, http.MethodPost, "/api/projects/order", `{"ids":[`+formatID(second.ID)+`,`+formatID(p.ID)+`]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("reorder status=%d body=%s", rec.Code, rec.Body)
	}
	list := decode[[]projectView](t, rec)
	if len(list) != 2 || list[0].ID != second.ID {
		t.Errorf("order after reorder = %+v", list)
	}

	if rec := env.do(t, http.MethodDelete, "/api/projects/"+formatID(p.ID), ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/projects/"+formatID(p.ID), ""); rec.Code != http.StatusNotFound {
		t.Errorf("get deleted status=%d", rec.Code)
	}
}

func TestProjectErrors(t *testing.T) {
	env := newTestEnv(t, services.ExportOptions{}, 0)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"empty name", http.MethodPost, "/api/projects", `{"name":"  ","start_date":"2025-01-01"}`, http.StatusUnprocessableEntity},
		{"bad date", http.MethodPost, "/api/projects", `{"name":"x","start_date":"01/02/2025"}`, http.StatusUnprocessableEntity},
		{"malformed json", http.MethodPost, "/api/projects", `{"name":`, http.StatusBadRequest},
		{"empty body", http.MethodPost, "/api/projects", ``, http.StatusBadRequest},
		{"bad id", http.MethodGet, "/api/projects/abc", ``, http.StatusBadRequest},
		{"missing", http.MethodGet, "/api/projects/99", ``, http.StatusNotFound},
		{"reorder unknown", http.MethodPost, "/api/projects/order", `{"ids":[99]}`, http.StatusNotFound},
		{"wrong method", http.MethodPatch, "/api/projects/1", `{}`, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", rec.Code, tt.want, rec.Body)
			}
			if tt.want != http.StatusMethodNotAllowed {
				if body := decode[errorBody](t, rec); body.Error == "" || body.RequestID == "" {
					t.Errorf("error body = %+v", body)
				}
			}
		})
	}
}

func TestEntriesAndTotals(t *testing.T) {
	env := newTestEnv(t, services.ExportOptions{}, 0)
	p := env.createProject(t, `{"name":"Site","start_date":"2025-01-01","agreed_amount":"1000"}`)
	base := "/api/projects/" + formatID(p.ID)

	rec := env.do(t, http.MethodPost, base+"/hours", `{"date":"2025-03-03","hours":"2,5","note":"tiling"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add hours status=%d body=%s", rec.Code, rec.Body)
	}
	h := decode[hourView](t, rec)
	if h.Hours != "2.50" || h.Date != "2025-03-03" {
		t.Errorf("hour = %+v", h)
	}

	rec = env.do(t, http.MethodPost, base+"/expenses", `{"date":"2025-03-03","amount":"10","note":"paint","receipt_ref":"r-1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add expense status=%d body=%s", rec.Code, rec.Body)
	}
	if e := decode[expenseView](t, rec); !e.HasReceipt {
		t.Errorf("expense = %+v", e)
	}

	rec = env.do(t, http.MethodPost, base+"/payments", `{"date":"2025-03-04","amount":"100","note":"advance"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add payment status=%d body=%s", rec.Code, rec.Body)
	}
	pay := decode[paymentView](t, rec)

	rec = env.do(t, http.MethodGet, base+"/totals", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("totals status=%d", rec.Code)
	}
	want := projectTotalsView{ProjectID: p.ID, TotalHours: "2.50", TotalExpenses: "10.00", TotalPayments: "100.00", Profit: "990.00", ProfitPerHour: "396.00"}
	if got := decode[projectTotalsView](t, rec); got != want {
		t.Errorf("totals = %+v, want %+v", got, want)
	}

	rec = env.do(t, http.MethodPut, "/api/hours/"+formatID(h.ID), `{"date":"2025-03-03","hours":"4","note":"tiling"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update hours status=%d body=%s", rec.Code, rec.Body)
	}
	if got := decode[hourView](t, rec); got.Hours != "4.00" || got.ProjectID != p.ID {
		t.Errorf("updated hour = %+v", got)
	}

	if rec := env.do(t, http.MethodDelete, "/api/payments/"+formatID(pay.ID), ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete payment status=%d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/payments/"+formatID(pay.ID), ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status=%d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, base+"/payments", "")
	if got := decode[[]paymentView](t, rec); len(got) != 0 {
		t.Errorf("payments after delete = %+v", got)
	}

	for _, tt := range []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, base + "/bogus", "", http.StatusUnprocessableEntity},
		{http.MethodPost, base + "/expenses", `{"amount":"5","note":""}`, http.StatusUnprocessableEntity},
		{http.MethodPost, "/api/projects/99/hours", `{"hours":"1","note":"x"}`, http.StatusNotFound},
		{http.MethodGet, "/api/projects/99/hours", "", http.StatusNotFound},
	} {
		if rec := env.do(t, tt.method, tt.path, tt.body); rec.Code != tt.want {
			t.Errorf("%s %s status=%d want %d", tt.method, tt.path, rec.Code, tt.want)
		}
	}
}

func TestStatsEndpoints(t *testing.T) {
	env := newTestEnv(t, services.ExportOptions{}, 0)
	p := env.createProject(t, `{"name":"Site","start_date":"2025-01-01","agreed_amount":"1000"}`)
	base := "/api/projects/" + formatID(p.ID)
	env.do(t, http.MethodPost, base+"/hours", `{"date":"2025-03-03","hours":"3","note":"a"}`)
	env.do(t, http.MethodPost, base+"/expenses", `{"date":"2025-03-03","amount":"40","note":"b"}`)
	env.do(t, http.MethodPost, base+"/payments", `{"date":"2025-02-10","amount":"200","note":"c"}`)

	rec := env.do(t, http.MethodGet, "/api/stats/day?project="+formatID(p.ID)+"&date=2025-03-03", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("day status=%d body=%s", rec.Code, rec.Body)
	}
	if d := decode[dayTotalsView](t, rec); d.Hours != "3.00" || d.Expenses != "40.00" || d.Payments != "0.00" {
		t.Errorf("day = %+v", d)
	}

	rec = env.do(t, http.MethodGet, "/api/stats/day?date=2025-03-03", "")
	if d := decode[dayTotalsView](t, rec); d.ProjectID != core.NoProject || d.Hours != "0.00" {
		t.Errorf("day without project = %+v", d)
	}

	rec = env.do(t, http.MethodGet, "/api/stats/month?month=2025-03", "")
	m := decode[monthTotalsView](t, rec)
	if m.Hours != "3.00" || m.Costs != "40.00" || m.Net != "-40.00" || len(m.DaysWithWork) != 1 || m.DaysWithWork[0] != "2025-03-03" {
		t.Errorf("month = %+v", m)
	}

	rec = env.do(t, http.MethodGet, "/api/stats/trend?month=2025-03&height=100", "")
	trend := decode[[]trendPointView](t, rec)
	if len(trend) != 4 || trend[3].Month != "2025-03" || trend[2].Net != "200.00" {
		t.Fatalf("trend = %+v", trend)
	}
	if trend[2].NetBar <= 0 || trend[3].NetBar != 0 {
		t.Errorf("net bars = %v, %v; a loss month should clamp to zero", trend[2].NetBar, trend[3].NetBar)
	}

	rec = env.do(t, http.MethodGet, "/api/stats/dashboard?date=2025-03-03", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status=%d body=%s", rec.Code, rec.Body)
	}
	d := decode[dashboardView](t, rec)
	if d.Selection.ProjectID != p.ID || d.Selection.Month != "2025-03" || d.Day.Hours != "3.00" || len(d.Trend) != 4 {
		t.Errorf("dashboard = %+v", d)
	}

	for _, q := range []string{"month?month=2025-13", "day?date=2025-02-30", "trend?height=-1", "day?project=x"} {
		rec := env.do(t, http.MethodGet, "/api/stats/"+q, "")
		if rec.Code != http.StatusUnprocessableEntity && rec.Code != http.StatusBadRequest {
			t.Errorf("%s status=%d", q, rec.Code)
		}
	}
}

func TestExportWorkbookDownload(t *testing.T) {
	env := newTestEnv(t, services.ExportOptions{}, 0)
	p := env.createProject(t, `{"name":"Site","start_date":"2025-01-01","agreed_amount":"1000"}`)
	env.do(t, http.MethodPost, "/api/projects/"+formatID(p.ID)+"/hours", `{"date":"2025-03-03","hours":"3","note":"a"}`)

	rec := env.do(t, http.MethodGet, "/api/projects/"+formatID(p.ID)+"/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export status=%d body=%s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment") || !strings.Contains(cd, "Site_") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	f, err := excelize.OpenReader(rec.Body)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	want := []string{export.SheetOverview, export.SheetHours, export.SheetExpenses, export.SheetPayments}
	if got := f.GetSheetList(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("sheets = %v", got)
	}

	if rec := env.do(t, http.MethodGet, "/api/projects/42/export", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing project export status=%d", rec.Code)
	}
}

func TestCloudExportAndBackup(t *testing.T) {
	env := newTestEnv(t, services.ExportOptions{Target: amqp.TargetSheets}, 0)
	p := env.createProject(t, `{"name":"Site","start_date":"2025-01-01"}`)
	path := "/api/projects/" + formatID(p.ID) + "/cloud-export"

	if rec := env.do(t, http.MethodPost, path, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("signed out export status=%d", rec.Code)
	}

	env.session.signedIn = true
	rec := env.do(t, http.MethodPost, path, "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("export status=%d body=%s", rec.Code, rec.Body)
	}
	job := decode[jobView](t, rec)
	if job.Type != string(amqp.JobExport) || job.Target != amqp.TargetSheets || job.ProjectID != p.ID || job.RequestID == "" {
		t.Errorf("job = %+v", job)
	}
	if len(env.dispatcher.jobs) != 1 || env.dispatcher.jobs[0].RequestID != job.RequestID {
		t.Errorf("dispatched = %+v", env.dispatcher.jobs)
	}

	if rec := env.do(t, http.MethodPost, "/api/projects/77/cloud-export", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing project status=%d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/backup", ""); rec.Code != http.StatusConflict {
		t.Errorf("backup on memory backend status=%d", rec.Code)
	}
}

func TestBackupAccepted(t *testing.T) {
	env := newTestEnv(t, services.ExportOptions{BackupSupported: true}, 0)
	env.session.signedIn = true

	rec := env.do(t, http.MethodPost, "/api/backup", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("backup status=%d body=%s", rec.Code, rec.Body)
	}
	if job := decode[jobView](t, rec); job.Type != string(amqp.JobBackup) || job.Target != amqp.TargetDrive {
		t.Errorf("job = %+v", job)
	}
}

func TestAuthStatusAndSignOut(t *testing.T) {
	env := newTestEnv(t, services.ExportOptions{}, 0)
	env.session.signedIn = true

	rec := env.do(t, http.MethodGet, "/api/auth/status", "")
	if st := decode[auth.Status](t, rec); !st.SignedIn || st.Email != "owner@example.com" {
		t.Fatalf("status = %+v", st)
	}
	if rec := env.do(t, http.MethodPost, "/api/auth/signout", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("signout status=%d", rec.Code)
	}
	if !env.session.signedOut {
		t.Error("session not signed out")
	}
	rec = env.do(t, http.MethodGet, "/api/auth/status", "")
	if st := decode[auth.Status](t, rec); st.SignedIn {
		t.Errorf("status after signout = %+v", st)
	}
}

func TestRateLimitedResponse(t *testing.T) {
	env := newTestEnv(t, services.ExportOptions{}, 1)

	if rec := env.do(t, http.MethodGet, "/api/projects", ""); rec.Code != http.StatusOK {
		t.Fatalf("first status=%d", rec.Code)
	}
	rec := env.do(t, http.MethodGet, "/api/projects", "")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("second status=%d headers=%v", rec.Code, rec.Header())
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name      string
		remote    string
		forwarded string
		realIP    string
		trusted   string
		untrusted string
	}{
		{"no headers", "10.0.0.7:5123", "", "", "10.0.0.7", "10.0.0.7"},
		{"forwarded chain", "10.0.0.7:5123", "203.0.113.9, 10.0.0.1", "", "203.0.113.9", "10.0.0.7"},
		{"real ip", "10.0.0.7:5123", "", "198.51.100.4", "198.51.100.4", "10.0.0.7"},
		{"blank forwarded", "10.0.0.7:5123", " ", "198.51.100.4", "198.51.100.4", "10.0.0.7"},
		{"remote without port", "10.0.0.7", "", "", "10.0.0.7", "10.0.0.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := forwardedIP(r); got != tt.trusted {
				t.Errorf("forwardedIP = %q, want %q", got, tt.trusted)
			}
			if got := remoteIP(r); got != tt.untrusted {
				t.Errorf("remoteIP = %q, want %q", got, tt.untrusted)
			}
		})
	}
}

func TestRateLimitIgnoresForwardedHeadersByDefault(t *testing.T) {
	get := func(env *testEnv, forwarded string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		env.srv.Handler.ServeHTTP(rec, req)
		return rec.Code
	}

	env := newTestEnv(t, services.ExportOptions{}, 1)
	if code := get(env, "203.0.113.1"); code != http.StatusOK {
		t.Fatalf("first status=%d", code)
	}
	if code := get(env, "203.0.113.2"); code != http.StatusTooManyRequests {
		t.Errorf("spoofed header escaped the limit: status=%d", code)
	}

	proxied := newTestEnvWith(t, services.ExportOptions{}, func(d *Deps) {
		d.RequestsPerMinute = 1
		d.TrustProxyHeaders = true
	})
	for _, ip := range []string{"203.0.113.1", "203.0.113.2"} {
		if code := get(proxied, ip); code != http.StatusOK {
			t.Errorf("behind proxy, client %s status=%d", ip, code)
		}
	}
}

func TestShutdownWithIdleCacheManager(t *testing.T) {
	env := newTestEnvWith(t, services.ExportOptions{}, func(d *Deps) {
		d.Cache = cache.NewManager(nil)
	})

	done := make(chan error, 1)
	go func() { done <- env.srv.Shutdown(context.Background()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown blocked on a cache manager that never started")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, services.ExportOptions{}, 0)
	env.do(t, http.MethodGet, "/api/projects", "")

	rec := env.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `tracker_http_requests_total{method="GET",route="GET /api/projects",status="200"} 1`) {
		t.Errorf("metrics body missing request counter:\n%s", rec.Body)
	}
}
