package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Norvan25/homenest-nous-sub002/internal/config"
	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
	"github.com/Norvan25/homenest-nous-sub002/internal/infrastructure/charts"
	"github.com/Norvan25/homenest-nous-sub002/internal/infrastructure/storage"
	"github.com/Norvan25/homenest-nous-sub002/internal/infrastructure/voice"
	"github.com/Norvan25/homenest-nous-sub002/internal/usecase"
)

const (
	testJWTSecret     = "jwt-secret"
	testWebhookSecret = "whsec"
)

var testNow = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

type stubDialer struct{ calls int }

func (d *stubDialer) StartCall(_ context.Context, req domain.DialRequest) (domain.DialResult, error) {
	d.calls++
	return domain.DialResult{ConversationID: "conv-" + req.ToNumber}, nil
}

type fixture struct {
	handler http.Handler
	leads   *usecase.Leads
	queue   *usecase.CallQueue
	dialer  *stubDialer
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(ctx, config.DatabaseConfig{Driver: config.DriverSQLite, DSN: ":memory:"})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := storage.NewRepository(db, config.DriverSQLite)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := func() time.Time { return testNow }
	dialer := &stubDialer{}

	queue := usecase.NewCallQueue(usecase.CallQueueDeps{Queue: repo, Properties: repo, Dialer: dialer, Clock: clock, Logger: logger})
	leads := usecase.NewLeads(usecase.LeadsDeps{Properties: repo, Calls: queue, Clock: clock, Logger: logger})
	crm := usecase.NewCRM(usecase.CRMDeps{Leads: repo, Properties: repo, Chart: charts.NewPipelineRenderer(), Clock: clock, Logger: logger})
	reports := usecase.NewCallReports(usecase.CallReportsDeps{Queue: queue, CRM: crm, Logger: logger})

	handler := NewHandler(Deps{
		Leads:         leads,
		CRM:           crm,
		Queue:         queue,
		Reports:       reports,
		Generation:    usecase.NewGeneration(usecase.GenerationDeps{Repository: repo, Properties: repo, Clock: clock, Logger: logger}),
		Outreach:      usecase.NewOutreach(usecase.OutreachDeps{Repository: repo, CRM: crm, Clock: clock, Logger: logger}),
		Admin:         usecase.NewAdmin(usecase.AdminDeps{Users: repo, Settings: repo, DebugLogs: repo, Clock: clock, Logger: logger}),
		Realtime:      http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, Actor(r.Context())) }),
		JWTSecret:     testJWTSecret,
		WebhookSecret: testWebhookSecret,
		Now:           clock,
		Logger:        logger,
	})
	return fixture{handler: handler, leads: leads, queue: queue, dialer: dialer}
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func validToken(t *testing.T) string {
	return signToken(t, testJWTSecret, jwt.MapClaims{
		"sub":  "user-123",
		"role": "authenticated",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
}

func (f fixture) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var env Envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
		}
	}
	return rec, env
}

func TestHealthIsPublic(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rec, env := f.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || env.Status != "success" {
		t.Fatalf("unexpected health response: %d %+v", rec.Code, env)
	}
	if !strings.Contains(rec.Body.String(), `"timestamp"`) {
		t.Fatalf("envelope missing timestamp: %s", rec.Body.String())
	}
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tests := []struct {
		name  string
		token string
		want  int
	}{
		{name: "missing", token: "", want: http.StatusUnauthorized},
		{name: "garbage", token: "not-a-jwt", want: http.StatusUnauthorized},
		{name: "wrong secret", token: signToken(t, "other", jwt.MapClaims{"sub": "u", "exp": time.Now().Add(time.Hour).Unix()}), want: http.StatusUnauthorized},
		{name: "expired", token: signToken(t, testJWTSecret, jwt.MapClaims{"sub": "u", "exp": time.Now().Add(-time.Hour).Unix()}), want: http.StatusUnauthorized},
		{name: "no expiry", token: signToken(t, testJWTSecret, jwt.MapClaims{"sub": "u"}), want: http.StatusUnauthorized},
		{name: "anon role", token: signToken(t, testJWTSecret, jwt.MapClaims{"sub": "u", "role": "anon", "exp": time.Now().Add(time.Hour).Unix()}), want: http.StatusUnauthorized},
		{name: "valid", token: validToken(t), want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := f.do(t, http.MethodGet, "/api/properties", tt.token, nil)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d (%+v)", tt.want, rec.Code, env)
			}
		})
	}
}

func TestRealtimeAcceptsQueryToken(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/ws?access_token="+validToken(t), nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "user-123" {
		t.Fatalf("unexpected ws response: %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	token := validToken(t)

	rec, env := f.do(t, http.MethodGet, "/api/properties/missing", token, nil)
	if rec.Code != http.StatusNotFound || env.Status != "error" {
		t.Fatalf("expected 404 envelope, got %d %+v", rec.Code, env)
	}

	rec, _ = f.do(t, http.MethodPost, "/api/properties", token, "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad json, got %d", rec.Code)
	}

	rec, env = f.do(t, http.MethodPost, "/api/properties", token, map[string]any{"address": "12 Elm St", "city": "Austin"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create property: %d %+v", rec.Code, env)
	}
	id := env.Data.(map[string]any)["id"].(string)

	if rec, _ = f.do(t, http.MethodPost, "/api/crm/leads", token, map[string]any{"property_id": id}); rec.Code != http.StatusCreated {
		t.Fatalf("create lead: %d", rec.Code)
	}
	if rec, _ = f.do(t, http.MethodPost, "/api/crm/leads", token, map[string]any{"property_id": id}); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate lead, got %d", rec.Code)
	}

	if rec, _ = f.do(t, http.MethodGet, "/api/call-queue?limit=-1", token, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative limit, got %d", rec.Code)
	}
	if rec, _ = f.do(t, http.MethodGet, "/api/nothing-here", token, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown route, got %d", rec.Code)
	}
}

func TestPipelineChartServesPNG(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rec, _ := f.do(t, http.MethodGet, "/api/crm/stats/chart.png", validToken(t), nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("unexpected chart response: %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatal("body is not a PNG")
	}
}

func webhookRequest(t *testing.T, body string, signature string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/elevenlabs", strings.NewReader(body))
	if signature != "" {
		req.Header.Set(voice.SignatureHeader, signature)
	}
	return req
}

func signedHeader(body string, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	return "t=" + ts + ",v0=" + voice.Sign(testWebhookSecret, ts, []byte(body))
}

func TestWebhookSignature(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	body := `{"type":"post_call_audio","data":{}}`

	tests := []struct {
		name      string
		signature string
		want      int
	}{
		{name: "missing", signature: "", want: http.StatusUnauthorized},
		{name: "forged", signature: "t=" + strconv.FormatInt(testNow.Unix(), 10) + ",v0=deadbeef", want: http.StatusUnauthorized},
		{name: "stale", signature: signedHeader(body, testNow.Add(-31*time.Minute)), want: http.StatusUnauthorized},
		{name: "valid unsupported type", signature: signedHeader(body, testNow), want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			f.handler.ServeHTTP(rec, webhookRequest(t, body, tt.signature))
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d (%s)", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestWebhookCompletesQueuedCall(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	p, err := f.leads.CreateProperty(ctx, domain.Property{Address: "12 Elm St"})
	if err != nil {
		t.Fatalf("create property: %v", err)
	}
	c, err := f.leads.AddContact(ctx, p.ID, domain.Contact{FirstName: "Dana"})
	if err != nil {
		t.Fatalf("add contact: %v", err)
	}
	if _, err := f.leads.AddPhone(ctx, c.ID, domain.Phone{Number: "+15125550100"}); err != nil {
		t.Fatalf("add phone: %v", err)
	}
	if _, err := f.queue.Enqueue(ctx, p.ID, 0); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	res, err := f.queue.Start(ctx, "user-123")
	if err != nil || res.Dialed == nil {
		t.Fatalf("start: %+v %v", res, err)
	}

	body := `{"type":"post_call_transcription","data":{"conversation_id":"` + res.Dialed.ConversationID + `",` +
		`"status":"done","metadata":{"call_duration_secs":42,"termination_reason":"client ended call"},` +
		`"analysis":{"call_successful":"success","transcript_summary":"Owner is open to an offer."}}}`

	send := func() Envelope {
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, webhookRequest(t, body, signedHeader(body, testNow)))
		if rec.Code != http.StatusOK {
			t.Fatalf("webhook: %d %s", rec.Code, rec.Body.String())
		}
		var env Envelope
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return env
	}

	if env := send(); env.Message != usecase.ReportProcessed {
		t.Fatalf("expected processed, got %+v", env)
	}
	if env := send(); env.Message != usecase.ReportDuplicate {
		t.Fatalf("expected duplicate on redelivery, got %+v", env)
	}

	items, err := f.queue.List(ctx, domain.CallQueueFilter{Status: domain.CallCompleted})
	if err != nil || len(items) != 1 || items[0].DurationSeconds != 42 {
		t.Fatalf("expected a completed item, got %+v %v", items, err)
	}
}
