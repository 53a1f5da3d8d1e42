package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dshills/datatriage/internal/session"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	sess, err := session.New()
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	cfg := Config{Addr: ":0", AllowedOrigins: []string{"*"}, MaxUploadBytes: 1 << 20}
	ts := httptest.NewServer(New(cfg, sess).Router())
	t.Cleanup(ts.Close)
	return ts
}

func sampleCSV() []byte {
	var sb strings.Builder
	sb.WriteString("x,category,target\n")
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&sb, "%d,g%d,%d\n", (i*13)%29, i%4, 2*i)
	}
	return []byte(sb.String())
}

func upload(t *testing.T, ts *httptest.Server, filename string, data []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("writing part: %v", err)
	}
	mw.Close()

	resp, err := http.Post(ts.URL+"/api/upload", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST /api/upload: %v", err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return out
}

func TestHealth(t *testing.T) {
	ts := testServer(t)
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode(t, resp)
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
	if body["state"] != "NO_SESSION" {
		t.Errorf("state = %v, want NO_SESSION", body["state"])
	}
}

func TestUpload(t *testing.T) {
	ts := testServer(t)
	resp := upload(t, ts, "sample.csv", sampleCSV())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode(t, resp)
	if body["state"] != "DATA_LOADED" {
		t.Errorf("state = %v", body["state"])
	}
	cols, ok := body["columns"].([]any)
	if !ok || len(cols) != 3 {
		t.Errorf("columns = %v", body["columns"])
	}
}

func TestUploadWhileBusy(t *testing.T) {
	ts := testServer(t)
	upload(t, ts, "sample.csv", sampleCSV()).Body.Close()

	resp := upload(t, ts, "second.csv", sampleCSV())
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	body := decode(t, resp)
	if body["action"] != "reset required" {
		t.Errorf("action = %v", body["action"])
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "session busy") {
		t.Errorf("error = %v", body["error"])
	}
}

func TestUploadUnsupportedFormat(t *testing.T) {
	ts := testServer(t)
	resp := upload(t, ts, "data.parquet", []byte("junk"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	decode(t, resp)
}

func TestDiagnosticsFlow(t *testing.T) {
	ts := testServer(t)
	upload(t, ts, "sample.csv", sampleCSV()).Body.Close()

	resp, err := http.Post(ts.URL+"/api/target", "application/json",
		strings.NewReader(`{"column":"TARGET"}`))
	if err != nil {
		t.Fatalf("POST /api/target: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("target status = %d", resp.StatusCode)
	}
	if body := decode(t, resp); body["target_column"] != "target" {
		t.Errorf("target_column = %v", body["target_column"])
	}

	resp, err = http.Post(ts.URL+"/api/diagnostics", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/diagnostics: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("diagnostics status = %d", resp.StatusCode)
	}
	body := decode(t, resp)
	verdict, _ := body["verdict"].(string)
	if verdict != "ALLOWED" && verdict != "CONSTRAINED" && verdict != "BLOCKED" {
		t.Errorf("verdict = %q", verdict)
	}
	report, ok := body["report"].(map[string]any)
	if !ok {
		t.Fatalf("report missing: %v", body)
	}
	if report["tool"] != "datatriage" {
		t.Errorf("tool = %v", report["tool"])
	}

	// Deep analysis follows diagnostics and keeps the verdict.
	resp, err = http.Post(ts.URL+"/api/deep-analysis", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/deep-analysis: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("deep-analysis status = %d", resp.StatusCode)
	}
	if body := decode(t, resp); body["verdict"] != verdict {
		t.Errorf("verdict changed: %v -> %v", verdict, body["verdict"])
	}
}

func TestDiagnosticsWithoutUpload(t *testing.T) {
	ts := testServer(t)
	resp, err := http.Post(ts.URL+"/api/diagnostics", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/diagnostics: %v", err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	decode(t, resp)
}

func TestReset(t *testing.T) {
	ts := testServer(t)
	upload(t, ts, "sample.csv", sampleCSV()).Body.Close()

	resp, err := http.Post(ts.URL+"/api/reset", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/reset: %v", err)
	}
	if body := decode(t, resp); body["state"] != "NO_SESSION" {
		t.Errorf("state = %v", body["state"])
	}

	// A fresh upload succeeds after reset.
	resp = upload(t, ts, "again.csv", sampleCSV())
	if resp.StatusCode != http.StatusOK {
		t.Errorf("upload after reset = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestFormats(t *testing.T) {
	ts := testServer(t)
	resp, err := http.Get(ts.URL + "/api/formats")
	if err != nil {
		t.Fatalf("GET /api/formats: %v", err)
	}
	body := decode(t, resp)
	supported, ok := body["supported"].([]any)
	if !ok || len(supported) == 0 {
		t.Fatalf("supported = %v", body["supported"])
	}
	found := false
	for _, ext := range supported {
		if ext == ".csv" {
			found = true
		}
	}
	if !found {
		t.Error("supported formats missing .csv")
	}
}

func TestColumnsWithoutUpload(t *testing.T) {
	ts := testServer(t)
	resp, err := http.Get(ts.URL + "/api/columns")
	if err != nil {
		t.Fatalf("GET /api/columns: %v", err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
	resp.Body.Close()
}
