package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/semlight/internal/config"
	"github.com/hyperjump/semlight/internal/embedding"
	"github.com/hyperjump/semlight/internal/page"
	"github.com/hyperjump/semlight/internal/provider"
	"github.com/hyperjump/semlight/internal/scoring"
	"github.com/hyperjump/semlight/internal/topics"
)

// termModel puts texts mentioning space terms on one axis and everything else on another.
type termModel struct{}

func (termModel) Embed(ctx context.Context, texts []string, opts embedding.EmbedOptions) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		lower := strings.ToLower(t)
		if strings.Contains(lower, "space") || strings.Contains(lower, "planet") || strings.Contains(lower, "rocket") {
			out[i] = []float32{1, 0}
		} else {
			out[i] = []float32{0, 1}
		}
	}
	return out, nil
}

func (termModel) Dimensions() int { return 2 }
func (termModel) Name() string    { return "term" }
func (termModel) Close() error    { return nil }

func newTestServer(t *testing.T, load embedding.LoaderFunc) (*Server, *provider.Provider) {
	t.Helper()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	models := provider.New(load)
	svc := scoring.NewService(models, scoring.WithMaxPassages(cfg.Scoring.MaxPassages))
	hl := page.NewHighlighter(svc)

	store, err := topics.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	idx, err := topics.NewNameIndex(0)
	if err != nil {
		t.Fatal(err)
	}
	catalog := topics.NewCatalog(store, idx, nil)
	t.Cleanup(func() { _ = catalog.Close() })
	ctx := context.Background()
	_ = store.Upsert(ctx, &topics.Topic{Name: "Astronomy", Keywords: []string{"star", "planet"}})
	_ = store.Upsert(ctx, &topics.Topic{Name: "Biology", Keywords: []string{"cell"}})
	if err := catalog.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	return NewServer(svc, hl, catalog, models, cfg, nil), models
}

func okLoader(ctx context.Context) (embedding.Model, error) { return termModel{}, nil }

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	r := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHandleScore(t *testing.T) {
	srv, _ := newTestServer(t, okLoader)
	w := do(t, srv.Handler(), http.MethodPost, "/api/v1/score", scoring.Request{
		Topic: "space exploration",
		Texts: []string{"The rocket launched", "Bread recipe"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var out struct {
		Status  string                  `json:"status"`
		Results []scoring.ScoredPassage `json:"results"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Status != scoring.StatusSuccess || len(out.Results) != 2 {
		t.Fatalf("got %+v", out)
	}
	if out.Results[0].Text != "The rocket launched" || out.Results[0].Score < 0.99 {
		t.Errorf("first result = %+v", out.Results[0])
	}
	if out.Results[1].Score > 0.01 {
		t.Errorf("unrelated passage scored %v", out.Results[1].Score)
	}
}

func TestHandleScore_emptyTexts(t *testing.T) {
	srv, _ := newTestServer(t, okLoader)
	w := do(t, srv.Handler(), http.MethodPost, "/api/v1/score", `{"topic":"space","texts":[]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"status":"success","results":[]}` {
		t.Errorf("body = %s", got)
	}
}

func TestHandleScore_errors(t *testing.T) {
	srv, _ := newTestServer(t, okLoader)
	h := srv.Handler()

	w := do(t, h, http.MethodPost, "/api/v1/score", `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad body status = %d", w.Code)
	}
	var resp map[string]string
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if resp["status"] != "error" || resp["kind"] != "invalid_request" || resp["message"] == "" {
		t.Errorf("bad body response = %v", resp)
	}

	w = do(t, h, http.MethodPost, "/api/v1/score", scoring.Request{Topic: "  ", Texts: []string{"x"}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank topic status = %d", w.Code)
	}

	failing, models := newTestServer(t, func(ctx context.Context) (embedding.Model, error) {
		return nil, errors.New("model file missing")
	})
	w = do(t, failing.Handler(), http.MethodPost, "/api/v1/score", scoring.Request{Topic: "space", Texts: []string{"x"}})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("load failure status = %d", w.Code)
	}
	resp = nil
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if resp["kind"] != "model_load_failure" {
		t.Errorf("load failure response = %v", resp)
	}
	if models.Loaded() || models.Attempts() != 1 {
		t.Errorf("Loaded=%v Attempts=%d", models.Loaded(), models.Attempts())
	}
}

func TestHandleHighlight(t *testing.T) {
	srv, _ := newTestServer(t, okLoader)
	doc := `<html><body><p>Rockets carry satellites into space.</p><p>My grandmother's soup recipe.</p><script>var space = 1;</script></body></html>`
	w := do(t, srv.Handler(), http.MethodPost, "/api/v1/highlight", highlightRequest{Topic: "planets", HTML: doc})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var out struct {
		Status      string               `json:"status"`
		HTML        string               `json:"html"`
		Passages    []page.ScoredPassage `json:"passages"`
		Highlighted int                  `json:"highlighted"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Status != "success" || len(out.Passages) != 2 || out.Highlighted != 1 {
		t.Fatalf("got %+v", out)
	}
	if !strings.Contains(out.HTML, `class="semantic-highlight"`) {
		t.Errorf("html not highlighted: %s", out.HTML)
	}

	w = do(t, srv.Handler(), http.MethodPost, "/api/v1/highlight", highlightRequest{HTML: out.HTML, Clear: true})
	if w.Code != http.StatusOK {
		t.Fatalf("clear status = %d", w.Code)
	}
	var cleared struct {
		HTML    string `json:"html"`
		Cleared int    `json:"cleared"`
	}
	_ = json.NewDecoder(w.Body).Decode(&cleared)
	if cleared.Cleared != 1 || strings.Contains(cleared.HTML, "semantic-highlight") {
		t.Errorf("clear = %+v", cleared)
	}

	w = do(t, srv.Handler(), http.MethodPost, "/api/v1/highlight", highlightRequest{Topic: "", HTML: doc})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty topic status = %d", w.Code)
	}
}

func TestHandleTopics(t *testing.T) {
	srv, _ := newTestServer(t, okLoader)
	h := srv.Handler()

	w := do(t, h, http.MethodGet, "/api/v1/topics", nil)
	var list struct {
		Topics []string `json:"topics"`
	}
	_ = json.NewDecoder(w.Body).Decode(&list)
	if w.Code != http.StatusOK || len(list.Topics) != 2 {
		t.Errorf("list = %d %+v", w.Code, list)
	}

	w = do(t, h, http.MethodGet, "/api/v1/topics?q=astro", nil)
	var search struct {
		Matches []topics.Match `json:"matches"`
	}
	_ = json.NewDecoder(w.Body).Decode(&search)
	if w.Code != http.StatusOK || len(search.Matches) != 1 || search.Matches[0].Name != "Astronomy" {
		t.Errorf("search = %d %+v", w.Code, search)
	}

	w = do(t, h, http.MethodGet, "/api/v1/topics?q=astro&limit=x", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", w.Code)
	}

	w = do(t, h, http.MethodGet, "/api/v1/topics/astronomy", nil)
	var topic topics.Topic
	_ = json.NewDecoder(w.Body).Decode(&topic)
	if w.Code != http.StatusOK || topic.Name != "Astronomy" || len(topic.Keywords) != 2 {
		t.Errorf("get = %d %+v", w.Code, topic)
	}

	w = do(t, h, http.MethodGet, "/api/v1/topics/Chemistry", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing topic status = %d", w.Code)
	}
}

func TestHandleStatusAndHealth(t *testing.T) {
	srv, models := newTestServer(t, okLoader)
	h := srv.Handler()

	w := do(t, h, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d", w.Code)
	}

	w = do(t, h, http.MethodGet, "/api/v1/status", nil)
	var st map[string]interface{}
	_ = json.NewDecoder(w.Body).Decode(&st)
	if st["model_loaded"] != false || st["topics"] != float64(2) {
		t.Errorf("status before load = %v", st)
	}

	if _, err := models.Get(context.Background()); err != nil {
		t.Fatal(err)
	}
	w = do(t, h, http.MethodGet, "/api/v1/status", nil)
	st = nil
	_ = json.NewDecoder(w.Body).Decode(&st)
	if st["model_loaded"] != true || st["model_load_attempts"] != float64(1) {
		t.Errorf("status after load = %v", st)
	}
}

func TestScoringRoutes_deadline(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	srv, _ := newTestServer(t, func(ctx context.Context) (embedding.Model, error) {
		<-release
		return termModel{}, nil
	})
	h := srv.Handler()

	for _, tc := range []struct {
		path string
		body string
	}{
		{"/api/v1/score", `{"topic":"space","texts":["The rocket launched"]}`},
		{"/api/v1/highlight", `{"topic":"space","html":"<p>The rocket launched into orbit</p>"}`},
	} {
		t.Run(tc.path, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			r := httptest.NewRequest(http.MethodPost, tc.path, strings.NewReader(tc.body)).WithContext(ctx)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			if w.Code != http.StatusGatewayTimeout {
				t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
			}
			var out map[string]string
			if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
				t.Fatal(err)
			}
			if out["status"] != scoring.StatusError || out["kind"] != scoring.KindCanceled.String() {
				t.Errorf("body = %v", out)
			}
		})
	}
}

func TestScoringRoutes_cancelled(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	srv, _ := newTestServer(t, func(ctx context.Context) (embedding.Model, error) {
		<-release
		return termModel{}, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/score",
		strings.NewReader(`{"topic":"space","texts":["x"]}`)).WithContext(ctx)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, r)
	if w.Code != http.StatusRequestTimeout {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestRecoverer(t *testing.T) {
	srv, _ := newTestServer(t, okLoader)
	tests := []struct {
		name     string
		panicVal interface{}
		wantKind string
		wantMsg  string
	}{
		{
			name:     "scoring error",
			panicVal: &scoring.Error{Kind: scoring.KindInternalInvariantViolation, Message: "vector 2 is not unit length"},
			wantKind: "internal_invariant_violation",
			wantMsg:  "vector 2 is not unit length",
		},
		{
			name:     "other value",
			panicVal: "index out of range",
			wantKind: "unknown",
			wantMsg:  "internal server error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := srv.recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				panic(tt.panicVal)
			}))
			w := do(t, h, http.MethodPost, "/api/v1/score", nil)
			if w.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d", w.Code)
			}
			var out scoring.Response
			if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
				t.Fatalf("body is not a scoring response: %v", err)
			}
			if out.Status != scoring.StatusError || out.Kind != tt.wantKind || out.Message != tt.wantMsg {
				t.Errorf("got %+v", out)
			}
		})
	}
}
