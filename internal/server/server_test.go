package server

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pathakanu/healthGenie/internal/assistant"
	"github.com/pathakanu/healthGenie/internal/config"
	"github.com/pathakanu/healthGenie/internal/database"
	"github.com/pathakanu/healthGenie/internal/document"
	"github.com/pathakanu/healthGenie/internal/history"
	"github.com/pathakanu/healthGenie/internal/llm"
	"github.com/pathakanu/healthGenie/internal/model"
	"github.com/pathakanu/healthGenie/internal/records"
	"github.com/pathakanu/healthGenie/internal/session"
	"github.com/pathakanu/healthGenie/internal/storage"
	"github.com/pathakanu/healthGenie/internal/symptom"
	"github.com/pathakanu/healthGenie/internal/twilio"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubLLM struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
}

func (s *stubLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.System == llm.ClassifierPrompt {
		return "other", nil
	}
	s.calls++
	return s.reply, s.err
}

type testServer struct {
	router *gin.Engine
	llm    *stubLLM
	cfg    *config.Config
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite memory: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &config.Config{MaxUploadBytes: 1 << 20, LocalTimezone: time.UTC}
	if mutate != nil {
		mutate(cfg)
	}

	client := &stubLLM{reply: "Take it easy and stay hydrated."}
	tracker := symptom.NewTracker(db, nil, cfg.LocalTimezone, logger)
	service := records.NewService(db)

	h := New(Deps{
		Config:    cfg,
		Logger:    logger,
		Assistant: assistant.New(client, history.NewMemory(50), tracker, service, logger),
		Documents: document.NewSummarizer(db, client, storage.None{}, nil, cfg.MaxUploadBytes, logger),
		Tracker:   tracker,
		Records:   service,
		Sessions:  session.NewManager("test-secret", time.Hour, false, logger),
		Twilio:    twilio.New("AC123", "auth-token", "+14155550000", logger),
	})
	return &testServer{router: h.Router(), llm: client, cfg: cfg}
}

type envelope struct {
	Status      string          `json:"status"`
	Description string          `json:"description"`
	Data        json.RawMessage `json:"data"`
	Total       int64           `json:"total"`
}

// browser keeps the session cookie between requests.
type browser struct {
	t      *testing.T
	srv    *testServer
	cookie *http.Cookie
}

func (s *testServer) browser(t *testing.T) *browser {
	return &browser{t: t, srv: s}
}

func (b *browser) send(req *http.Request) (*httptest.ResponseRecorder, envelope) {
	b.t.Helper()
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	rec := httptest.NewRecorder()
	b.srv.router.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			b.cookie = c
		}
	}
	var env envelope
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			b.t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func (b *browser) do(method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	b.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			b.t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return b.send(req)
}

func (b *browser) upload(fileName, contentType string, data []byte) (*httptest.ResponseRecorder, envelope) {
	b.t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName)}
	header["Content-Type"] = []string{contentType}
	part, err := writer.CreatePart(header)
	if err != nil {
		b.t.Fatalf("create part: %v", err)
	}
	_, _ = part.Write(data)
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return b.send(req)
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
	return out
}

func TestHealthzAndIndex(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)
	b := srv.browser(t)

	rec, env := b.do(http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK || env.Status != "ok" {
		t.Fatalf("healthz = %d %+v", rec.Code, env)
	}
	rec, _ = b.do(http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "HealthGenie") {
		t.Fatalf("index = %d", rec.Code)
	}
	if b.cookie == nil {
		t.Fatalf("expected the page to start a session")
	}
}

func TestChatLogsSymptomAndKeepsHistory(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)
	b := srv.browser(t)

	rec, env := b.do(http.MethodPost, "/api/chat", gin.H{"message": "I have a bad headache today"})
	if rec.Code != http.StatusOK {
		t.Fatalf("chat = %d %s", rec.Code, rec.Body.String())
	}
	reply := decode[assistant.Reply](t, env)
	if reply.Reply != srv.llm.reply || reply.Logged == nil || reply.Logged.Symptom != "headache" {
		t.Fatalf("unexpected reply %+v", reply)
	}

	_, env = b.do(http.MethodGet, "/api/symptoms", nil)
	entries := decode[[]model.SymptomEntry](t, env)
	if len(entries) != 1 || entries[0].Source != model.SourceChat {
		t.Fatalf("unexpected symptoms %+v", entries)
	}

	_, env = b.do(http.MethodGet, "/api/chat/history", nil)
	if env.Total != 2 {
		t.Fatalf("expected two history messages, got %d", env.Total)
	}
}

func TestChatErrorsMapToStatus(t *testing.T) {
	t.Parallel()
	cases := map[error]int{
		llm.ErrClientNotInitialised: http.StatusServiceUnavailable,
		llm.ErrRateLimited:          http.StatusTooManyRequests,
		llm.ErrUnavailable:          http.StatusBadGateway,
	}
	for backendErr, want := range cases {
		srv := newTestServer(t, nil)
		srv.llm.err = backendErr
		rec, env := srv.browser(t).do(http.MethodPost, "/api/chat", gin.H{"message": "what is a healthy BMI?"})
		if rec.Code != want || env.Status != "error" || env.Description == "" {
			t.Fatalf("%v: got %d %+v, want %d", backendErr, rec.Code, env, want)
		}
	}

	srv := newTestServer(t, nil)
	rec, env := srv.browser(t).do(http.MethodPost, "/api/chat", gin.H{"message": "   "})
	if rec.Code != http.StatusBadRequest || env.Description != assistant.ErrEmptyMessage.Error() {
		t.Fatalf("empty message = %d %+v", rec.Code, env)
	}
}

func TestSymptomEndpoints(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)
	b := srv.browser(t)

	rec, env := b.do(http.MethodPost, "/api/symptoms", gin.H{"symptom": "Nausea", "severity": "mild", "timestamp": "2024-06-10 09:30"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("record = %d %s", rec.Code, rec.Body.String())
	}
	entry := decode[model.SymptomEntry](t, env)
	if entry.Source != model.SourceManual || !entry.Timestamp.Equal(time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected entry %+v", entry)
	}
	_, _ = b.do(http.MethodPost, "/api/symptoms", gin.H{"description": "nausea again", "timestamp": "2024-06-12T08:00:00Z"})

	for name, body := range map[string]gin.H{
		"empty":     {"symptom": " "},
		"timestamp": {"symptom": "cough", "timestamp": "yesterday-ish"},
	} {
		if rec, _ := b.do(http.MethodPost, "/api/symptoms", body); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, rec.Code)
		}
	}

	rec, env = b.do(http.MethodGet, "/api/symptoms/trend?period=week", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("trend = %d %s", rec.Code, rec.Body.String())
	}
	view := decode[symptom.TrendView](t, env)
	if view.Total != 2 || len(view.Totals) != 1 || view.Totals[0].Count != 2 {
		t.Fatalf("unexpected trend %+v", view)
	}

	_, env = b.do(http.MethodGet, "/api/symptoms/trend?from=2024-06-11", nil)
	if view := decode[symptom.TrendView](t, env); view.Total != 1 {
		t.Fatalf("expected from bound to drop one entry, got %+v", view)
	}

	for _, query := range []string{"period=year", "from=soon"} {
		if rec, _ := b.do(http.MethodGet, "/api/symptoms/trend?"+query, nil); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", query, rec.Code)
		}
	}
}

func TestAnalysisNeedsMoreSymptoms(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)
	b := srv.browser(t)

	rec, _ := b.do(http.MethodPost, "/api/symptoms/analysis", nil)
	if rec.Code != http.StatusBadRequest || srv.llm.calls != 0 {
		t.Fatalf("expected 400 without a backend call, got %d (%d calls)", rec.Code, srv.llm.calls)
	}

	for i := 0; i < 4; i++ {
		_, _ = b.do(http.MethodPost, "/api/symptoms", gin.H{"symptom": "fatigue"})
	}
	rec, env := b.do(http.MethodPost, "/api/symptoms/analysis", nil)
	if rec.Code != http.StatusOK || decode[map[string]string](t, env)["analysis"] != srv.llm.reply {
		t.Fatalf("analysis = %d %s", rec.Code, rec.Body.String())
	}
}

func TestRecordsAreSessionScoped(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)
	alice := srv.browser(t)
	bob := srv.browser(t)

	rec, env := alice.do(http.MethodPost, "/api/medications", gin.H{"name": "Metformin", "dosage": "500mg", "frequency": "Twice daily"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add medication = %d %s", rec.Code, rec.Body.String())
	}
	med := decode[model.Medication](t, env)

	if _, env := bob.do(http.MethodGet, "/api/medications", nil); env.Total != 0 {
		t.Fatalf("bob sees %d medications", env.Total)
	}
	if rec, _ := bob.do(http.MethodDelete, "/api/medications/"+med.ID, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("cross-session delete = %d, want 404", rec.Code)
	}
	if rec, _ := alice.do(http.MethodDelete, "/api/medications/"+med.ID, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete = %d, want 204", rec.Code)
	}
	if rec, _ := alice.do(http.MethodPost, "/api/medications", gin.H{"name": "Metformin", "dosage": "500mg", "frequency": "hourly"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid frequency = %d, want 400", rec.Code)
	}
}

func TestAppointmentsAndReminders(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)
	b := srv.browser(t)

	if rec, _ := b.do(http.MethodPost, "/api/appointments", gin.H{"title": "Dentist"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing schedule = %d, want 400", rec.Code)
	}

	future := time.Now().UTC().Add(48 * time.Hour).Format(time.RFC3339)
	rec, _ := b.do(http.MethodPost, "/api/appointments", gin.H{"title": "Dentist", "scheduled_at": future, "type": "Check-up", "doctor": "Dr. Lee"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add appointment = %d %s", rec.Code, rec.Body.String())
	}
	_, _ = b.do(http.MethodPost, "/api/appointments", gin.H{"title": "Old visit", "scheduled_at": "2020-01-01 10:00"})
	_, _ = b.do(http.MethodPost, "/api/medications", gin.H{"name": "Vitamin D", "dosage": "1000IU"})

	_, env := b.do(http.MethodGet, "/api/appointments", nil)
	appts := decode[[]records.AppointmentView](t, env)
	if len(appts) != 2 || appts[0].Upcoming || !appts[1].Upcoming {
		t.Fatalf("unexpected appointments %+v", appts)
	}

	_, env = b.do(http.MethodGet, "/api/reminders", nil)
	reminders := decode[[]model.Reminder](t, env)
	if len(reminders) != 2 || reminders[0].Type != model.ReminderMedication || reminders[1].Title != "Dentist" {
		t.Fatalf("unexpected reminders %+v", reminders)
	}

	_, env = b.do(http.MethodGet, "/api/stats", nil)
	stats := decode[records.Stats](t, env)
	if stats.Appointments != 2 || stats.Medications != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)
	b := srv.browser(t)

	rec, _ := b.do(http.MethodPut, "/api/profile", gin.H{"age": "52", "conditions": "hypertension", "whatsapp_number": "+44 7700 900123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update profile = %d %s", rec.Code, rec.Body.String())
	}
	_, env := b.do(http.MethodGet, "/api/profile", nil)
	profile := decode[model.Profile](t, env)
	if profile.Age != "52" || profile.WhatsAppNumber != "+447700900123" {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if rec, _ := b.do(http.MethodPut, "/api/profile", gin.H{"whatsapp_number": "nope"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid number = %d, want 400", rec.Code)
	}

	rec, env = b.do(http.MethodPost, "/api/insights", nil)
	if rec.Code != http.StatusOK || decode[map[string]string](t, env)["insights"] != srv.llm.reply {
		t.Fatalf("insights = %d %s", rec.Code, rec.Body.String())
	}
}

func TestDocumentUpload(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, func(cfg *config.Config) { cfg.MaxUploadBytes = 64 })
	b := srv.browser(t)

	rec, env := b.upload("labs.txt", "text/plain", []byte("Hemoglobin 13.5 g/dL"))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload = %d %s", rec.Code, rec.Body.String())
	}
	doc := decode[model.DocumentSummary](t, env)
	if doc.FileName != "labs.txt" || doc.Summary != srv.llm.reply {
		t.Fatalf("unexpected summary %+v", doc)
	}

	cases := map[string]struct {
		name, contentType string
		data              []byte
		want              int
	}{
		"unsupported": {"scan.png", "image/png", []byte{0x89, 'P', 'N', 'G'}, http.StatusUnsupportedMediaType},
		"too large":   {"big.txt", "text/plain", bytes.Repeat([]byte("a"), 65), http.StatusRequestEntityTooLarge},
		"corrupt":     {"report.pdf", "application/pdf", []byte("not a pdf"), http.StatusUnprocessableEntity},
		"empty":       {"blank.txt", "text/plain", []byte("   "), http.StatusUnprocessableEntity},
	}
	for name, tc := range cases {
		if rec, _ := b.upload(tc.name, tc.contentType, tc.data); rec.Code != tc.want {
			t.Fatalf("%s: got %d, want %d (%s)", name, rec.Code, tc.want, rec.Body.String())
		}
	}

	_, env = b.do(http.MethodGet, "/api/documents", nil)
	if env.Total != 1 {
		t.Fatalf("expected one stored summary, got %d", env.Total)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/documents", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	if rec, _ := b.send(req); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing file = %d, want 400", rec.Code)
	}
}

func postWebhook(srv *testServer, form url.Values, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/twilio/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if signature != "" {
		req.Header.Set(signatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	return rec
}

func sign(authToken, webhookURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	payload := webhookURL
	for _, k := range keys {
		payload += k + form.Get(k)
	}
	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestTwilioWebhookChats(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)

	rec := postWebhook(srv, url.Values{"From": {"whatsapp:+15550001111"}, "Body": {"Is ginger good for nausea?"}}, "")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/xml" {
		t.Fatalf("webhook = %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	want := "<Response><Message>" + srv.llm.reply + "</Message></Response>"
	if !strings.Contains(rec.Body.String(), want) {
		t.Fatalf("unexpected TwiML %q", rec.Body.String())
	}

	rec = postWebhook(srv, url.Values{"From": {"whatsapp:+15550001111"}, "Body": {"  "}}, "")
	if !strings.Contains(rec.Body.String(), "I need a message") {
		t.Fatalf("unexpected TwiML %q", rec.Body.String())
	}

	rec = postWebhook(srv, url.Values{"From": {"whatsapp:+15550001111"}, "Body": {"help"}}, "")
	if !strings.Contains(rec.Body.String(), "Reminders") {
		t.Fatalf("unexpected help %q", rec.Body.String())
	}

	srv.llm.err = llm.ErrRateLimited
	rec = postWebhook(srv, url.Values{"From": {"whatsapp:+15550001111"}, "Body": {"hello"}}, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "try again in a minute") {
		t.Fatalf("unexpected rate limit reply %d %q", rec.Code, rec.Body.String())
	}
}

func TestTwilioWebhookReminders(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)
	web := srv.browser(t)

	_, _ = web.do(http.MethodPut, "/api/profile", gin.H{"whatsapp_number": "+15550002222"})
	_, _ = web.do(http.MethodPost, "/api/medications", gin.H{"name": "Aspirin", "dosage": "81mg"})

	rec := postWebhook(srv, url.Values{"From": {"whatsapp:+15550002222"}, "Body": {"Reminders"}}, "")
	if !strings.Contains(rec.Body.String(), "[Medication] Aspirin") {
		t.Fatalf("unexpected reminders reply %q", rec.Body.String())
	}

	rec = postWebhook(srv, url.Values{"From": {"whatsapp:+15559999999"}, "Body": {"reminders"}}, "")
	if !strings.Contains(rec.Body.String(), "Add this WhatsApp number") {
		t.Fatalf("unexpected unknown sender reply %q", rec.Body.String())
	}
}

func TestTwilioWebhookSignature(t *testing.T) {
	t.Parallel()
	const webhookURL = "https://healthgenie.example.com/twilio/webhook"
	srv := newTestServer(t, func(cfg *config.Config) { cfg.TwilioWebhookURL = webhookURL })
	form := url.Values{"From": {"whatsapp:+15550001111"}, "Body": {"hello"}}

	if rec := postWebhook(srv, form, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("unsigned = %d, want 403", rec.Code)
	}
	if rec := postWebhook(srv, form, sign("wrong-token", webhookURL, form)); rec.Code != http.StatusForbidden {
		t.Fatalf("bad signature = %d, want 403", rec.Code)
	}
	if rec := postWebhook(srv, form, sign("auth-token", webhookURL, form)); rec.Code != http.StatusOK {
		t.Fatalf("signed = %d, want 200", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	t.Parallel()
	cases := map[error]int{
		fmt.Errorf("wrap: %w", symptom.ErrMalformedTimestamp): http.StatusBadRequest,
		records.ErrMissingTitle:                               http.StatusBadRequest,
		records.ErrNotFound:                                   http.StatusNotFound,
		document.ErrFileTooLarge:                              http.StatusRequestEntityTooLarge,
		document.ErrUnsupportedFile:                           http.StatusUnsupportedMediaType,
		document.ErrEmptyDocument:                             http.StatusUnprocessableEntity,
		fmt.Errorf("%w: status 500", llm.ErrUnavailable):      http.StatusBadGateway,
		llm.ErrEmptyCompletion:                                http.StatusBadGateway,
		fmt.Errorf("disk on fire"):                            http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := statusFor(err); got != want {
			t.Fatalf("statusFor(%v) = %d, want %d", err, got, want)
		}
	}
}
