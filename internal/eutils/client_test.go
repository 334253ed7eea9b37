package eutils

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ncbitools/ncbifetch/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(io.Discard)
}

// newTestServer serves canned efetch responses keyed by the id parameter.
func newTestServer(t *testing.T, records map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/efetch.fcgi") {
			http.NotFound(w, r)
			return
		}
		body, ok := records[r.URL.Query().Get("id")]
		if !ok {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		io.WriteString(w, body)
	}))
}

func TestFetchOK(t *testing.T) {
	record := ">NC_000913.3 Escherichia coli\nAGCTTTTCATTCTGACTGCA\n"
	srv := newTestServer(t, map[string]string{"NC_000913.3": record})
	defer srv.Close()

	outDir := t.TempDir()
	client := NewClientWithHTTP(srv.URL, outDir, srv.Client(), testLogger())

	res, err := client.Fetch(context.Background(), Request{ID: "NC_000913.3"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if res.Status != StatusOK {
		t.Errorf("Status = %v, want ok", res.Status)
	}
	if res.Bytes != int64(len(record)) {
		t.Errorf("Bytes = %d, want %d", res.Bytes, len(record))
	}

	want := filepath.Join(outDir, "NC_000913.3.fa")
	if res.Path != want {
		t.Errorf("Path = %q, want %q", res.Path, want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("output file: %v", err)
	}
	if string(data) != record {
		t.Errorf("output content = %q, want the record body", data)
	}
}

func TestFetchEmpty(t *testing.T) {
	// EUtils answers unknown identifiers with a bare newline.
	srv := newTestServer(t, map[string]string{"BOGUS_1": "\n"})
	defer srv.Close()

	outDir := t.TempDir()
	client := NewClientWithHTTP(srv.URL, outDir, srv.Client(), testLogger())

	res, err := client.Fetch(context.Background(), Request{ID: "BOGUS_1"})
	if !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("Fetch() error = %v, want ErrEmptyResult", err)
	}
	if res.Status != StatusEmpty {
		t.Errorf("Status = %v, want empty", res.Status)
	}

	// Neither the output file nor a partial may remain.
	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("output directory not empty after empty result: %v", entries)
	}
}

func TestFetchFailed(t *testing.T) {
	srv := newTestServer(t, nil) // every id gets a 500
	defer srv.Close()

	outDir := t.TempDir()
	client := NewClientWithHTTP(srv.URL, outDir, srv.Client(), testLogger())

	res, err := client.Fetch(context.Background(), Request{ID: "NC_000913.3"})
	if err == nil {
		t.Fatal("Fetch() against a failing server succeeded")
	}
	if res.Status != StatusFailed {
		t.Errorf("Status = %v, want failed", res.Status)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("output directory not empty after failed fetch: %v", entries)
	}
}

// recordingReporter captures the progress calls made during a fetch.
type recordingReporter struct {
	startTotal  int64
	startDesc   string
	started     bool
	lastCurrent int64
	finished    bool
}

func (r *recordingReporter) Start(total int64, description string) {
	r.started = true
	r.startTotal = total
	r.startDesc = description
}
func (r *recordingReporter) Update(current int64)    { r.lastCurrent = current }
func (r *recordingReporter) Finish()                 { r.finished = true }
func (r *recordingReporter) Error(err error)         {}
func (r *recordingReporter) SetDescription(d string) {}

func TestFetchReportsProgress(t *testing.T) {
	record := ">NC_000913.3 Escherichia coli\nAGCTTTTCATTCTGACTGCA\n"
	srv := newTestServer(t, map[string]string{"NC_000913.3": record})
	defer srv.Close()

	client := NewClientWithHTTP(srv.URL, t.TempDir(), srv.Client(), testLogger())

	reporter := &recordingReporter{}
	_, err := client.Fetch(context.Background(), Request{
		ID:       "NC_000913.3",
		Reporter: reporter,
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if !reporter.started {
		t.Fatal("reporter was never started")
	}
	if reporter.startTotal != int64(len(record)) {
		t.Errorf("Start total = %d, want %d", reporter.startTotal, len(record))
	}
	if reporter.startDesc != "NC_000913.3.fa" {
		t.Errorf("Start description = %q, want the output name", reporter.startDesc)
	}
	if reporter.lastCurrent != int64(len(record)) {
		t.Errorf("last Update = %d, want %d", reporter.lastCurrent, len(record))
	}
	if !reporter.finished {
		t.Error("reporter was not finished")
	}
}

func TestFetchRequiresID(t *testing.T) {
	client := NewClientWithHTTP("http://localhost:1", t.TempDir(), http.DefaultClient, testLogger())
	res, err := client.Fetch(context.Background(), Request{})
	if err == nil {
		t.Fatal("Fetch() without an identifier succeeded")
	}
	if res.Status != StatusFailed {
		t.Errorf("Status = %v, want failed", res.Status)
	}
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		req  Request
		want string
	}{
		{Request{ID: "NC_000913.3"}, "NC_000913.3.fa"},
		{Request{ID: "NC_000913.3", RetType: "fasta"}, "NC_000913.3.fa"},
		{Request{ID: "NC_000913.3", RetType: "gb"}, "NC_000913.3.gb"},
		{Request{ID: "9606", RetType: "xml"}, "9606.xm"},
	}

	for _, tt := range tests {
		if got := tt.req.OutputName(); got != tt.want {
			t.Errorf("OutputName(%+v) = %q, want %q", tt.req, got, tt.want)
		}
	}
}

func TestFetchURL(t *testing.T) {
	client := NewClientWithHTTP("https://eutils.example.org/entrez/eutils", t.TempDir(), nil, testLogger())

	got := client.FetchURL(Request{ID: "NC_000913.3"})
	for _, part := range []string{
		"https://eutils.example.org/entrez/eutils/efetch.fcgi?",
		"db=nuccore",
		"id=NC_000913.3",
		"rettype=fasta",
		"retmode=text",
	} {
		if !strings.Contains(got, part) {
			t.Errorf("FetchURL() = %q, missing %q", got, part)
		}
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusOK, "ok"},
		{StatusEmpty, "empty"},
		{StatusFailed, "failed"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}
