package api

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dgallion1/ghostcheck/internal/config"
	"github.com/dgallion1/ghostcheck/internal/review"
	"github.com/fumiama/go-docx"
)

const testAPIKey = "test-api-key"

func testConfig() config.Config {
	return config.Config{
		Port:              "0",
		GhostcheckAPIKey:  testAPIKey,
		DashScopeAPIKey:   "ds-key",
		DashScopeModel:    "qwen-turbo",
		MaxUploadBytes:    52428800,
		MaxReviewSegments: 50,
		MaxContextRunes:   30000,
	}
}

func newTestServer(t *testing.T, cfg config.Config, reviewURL string) *Server {
	t.Helper()
	reviewer := review.NewClient(cfg.DashScopeAPIKey, cfg.DashScopeModel)
	if reviewURL != "" {
		reviewer = reviewer.WithBaseURL(reviewURL)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(reviewer, log, cfg)
}

func buildDocx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	w := docx.New().WithDefaultTheme()
	for _, p := range paragraphs {
		w.AddParagraph().AddText(p)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		t.Fatalf("write docx: %v", err)
	}
	return buf.Bytes()
}

func buildPptx(t *testing.T, sentences ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	write := func(name, content string) {
		f, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	ns := `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`
	var shapes strings.Builder
	for _, s := range sentences {
		shapes.WriteString(`<p:sp><p:txBody><a:p><a:r><a:t>` + s + `</a:t></a:r></a:p></p:txBody></p:sp>`)
	}

	write("ppt/presentation.xml",
		`<p:presentation `+ns+` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">`+
			`<p:sldIdLst><p:sldId id="256" r:id="rId2"/></p:sldIdLst></p:presentation>`)
	write("ppt/_rels/presentation.xml.rels",
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+
			`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide1.xml"/></Relationships>`)
	write("ppt/slides/slide1.xml",
		`<p:sld `+ns+`><p:cSld><p:spTree>`+shapes.String()+`</p:spTree></p:cSld></p:sld>`)

	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func compareRequest(t *testing.T, reference, presentation []byte, reviewFlag bool) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if reference != nil {
		fw, err := mw.CreateFormFile("reference", "report.docx")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(reference)
	}
	if presentation != nil {
		fw, err := mw.CreateFormFile("presentation", "deck.pptx")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(presentation)
	}
	if reviewFlag {
		mw.WriteField("review", "true")
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/compare", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	return req
}

func doCompare(t *testing.T, srv *Server, req *http.Request) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec.Code, resp
}

func TestCompare_FullContainment(t *testing.T) {
	srv := newTestServer(t, testConfig(), "")
	ref := buildDocx(t, "Revenue grew 10%.")
	pres := buildPptx(t, "Revenue grew 10%.")

	code, resp := doCompare(t, srv, compareRequest(t, ref, pres, false))
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", code, resp)
	}
	if resp["match"] != true {
		t.Errorf("expected match=true, got %v", resp)
	}
	if resp["ghost_count"] != float64(0) {
		t.Errorf("expected ghost_count=0, got %v", resp["ghost_count"])
	}
}

func TestCompare_GhostSegmentDetected(t *testing.T) {
	srv := newTestServer(t, testConfig(), "")
	ref := buildDocx(t, "Revenue grew 10%.")
	pres := buildPptx(t, "Revenue grew 10%.", "Profit doubled.")

	code, resp := doCompare(t, srv, compareRequest(t, ref, pres, false))
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", code, resp)
	}
	if resp["match"] != false || resp["ghost_count"] != float64(1) {
		t.Fatalf("expected one ghost, got %v", resp)
	}
	ghosts, _ := resp["ghosts"].([]any)
	if len(ghosts) != 1 || ghosts[0] != "Profitdoubled" {
		t.Errorf("expected ghost %q, got %v", "Profitdoubled", ghosts)
	}
}

func TestCompare_ReviewTruncatesToFirstFifty(t *testing.T) {
	var gotPrompt string
	fake := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input struct {
				Prompt string `json:"prompt"`
			} `json:"input"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		gotPrompt = req.Input.Prompt
		w.Write([]byte(`{"output":{"text":"all candidates suspect"},"request_id":"r1"}`))
	}))
	defer fake.Close()

	srv := newTestServer(t, testConfig(), fake.URL)
	ref := buildDocx(t, "Revenue grew 10%.")
	sentences := []string{"Revenue grew 10%."}
	for i := 0; i < 80; i++ {
		sentences = append(sentences, fmt.Sprintf("Unsupported claim number %03d.", i))
	}
	pres := buildPptx(t, sentences...)

	code, resp := doCompare(t, srv, compareRequest(t, ref, pres, true))
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", code, resp)
	}
	if resp["ghost_count"] != float64(80) {
		t.Fatalf("expected 80 ghosts, got %v", resp["ghost_count"])
	}
	if resp["review_truncated"] != true {
		t.Error("expected review_truncated=true")
	}
	notice, _ := resp["notice"].(string)
	if !strings.Contains(notice, "first 50 of 80") {
		t.Errorf("expected truncation notice, got %q", notice)
	}
	if resp["review"] != "all candidates suspect" {
		t.Errorf("expected review verdict relayed, got %v", resp["review"])
	}
	if got := strings.Count(gotPrompt, "\n- "); got != 50 {
		t.Errorf("expected 50 bulleted candidates in prompt, got %d", got)
	}
}

func TestCompare_ReviewFailureSurfacedNotFatal(t *testing.T) {
	fake := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"InvalidApiKey","message":"Invalid API-key provided."}`))
	}))
	defer fake.Close()

	srv := newTestServer(t, testConfig(), fake.URL)
	ref := buildDocx(t, "Revenue grew 10%.")
	pres := buildPptx(t, "Profit doubled.")

	code, resp := doCompare(t, srv, compareRequest(t, ref, pres, true))
	if code != http.StatusOK {
		t.Fatalf("review failure must not fail the comparison, got %d: %v", code, resp)
	}
	reviewErr, _ := resp["review_error"].(string)
	if !strings.Contains(reviewErr, "401") || !strings.Contains(reviewErr, "InvalidApiKey") {
		t.Errorf("expected verbatim status and code in review_error, got %q", reviewErr)
	}
	if resp["ghost_count"] != float64(1) {
		t.Errorf("diff results must survive a review failure, got %v", resp)
	}
}

func TestCompare_NoReviewWithoutKey(t *testing.T) {
	cfg := testConfig()
	cfg.DashScopeAPIKey = ""
	srv := newTestServer(t, cfg, "")
	ref := buildDocx(t, "Revenue grew 10%.")
	pres := buildPptx(t, "Profit doubled.")

	code, resp := doCompare(t, srv, compareRequest(t, ref, pres, true))
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if _, ok := resp["review_error"]; !ok {
		t.Error("expected review_error when no key is configured")
	}
}

func TestCompare_UnreadableReference(t *testing.T) {
	srv := newTestServer(t, testConfig(), "")
	pres := buildPptx(t, "Profit doubled.")

	code, resp := doCompare(t, srv, compareRequest(t, []byte("not a docx at all"), pres, false))
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unreadable reference, got %d: %v", code, resp)
	}
	if resp["document"] != "reference" {
		t.Errorf("error should name the failing document, got %v", resp)
	}
}

func TestCompare_MissingPresentation(t *testing.T) {
	srv := newTestServer(t, testConfig(), "")
	ref := buildDocx(t, "Revenue grew 10%.")

	code, resp := doCompare(t, srv, compareRequest(t, ref, nil, false))
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing presentation, got %d: %v", code, resp)
	}
}

func TestCompare_RequiresAuth(t *testing.T) {
	srv := newTestServer(t, testConfig(), "")
	req := compareRequest(t, buildDocx(t, "x"), buildPptx(t, "y"), false)
	req.Header.Del("Authorization")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, testConfig(), "")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
