package fetch

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tee8z/weather-oracle/ratelimit"
)

func newFetcher() *Fetcher {
	return newWithBackoff(ratelimit.New(10, 100), "test-agent", time.Millisecond)
}

func TestFetchXML_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("unexpected user-agent: %s", r.Header.Get("User-Agent"))
		}
		w.Write([]byte("<dwml></dwml>"))
	}))
	defer srv.Close()

	f := newFetcher()
	body, err := f.FetchXML(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "<dwml></dwml>" {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestFetchXML_BadStatusNoRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	f := newFetcher()
	_, err := f.FetchXML(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 call for a non-transient 4xx, got %d", calls)
	}
}

func TestFetchXML_ServerErrorRetriesThenSucceeds(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("<dwml></dwml>"))
	}))
	defer srv.Close()

	f := newFetcher()
	body, err := f.FetchXML(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "<dwml></dwml>" {
		t.Fatalf("unexpected body: %s", body)
	}
	if calls != 3 {
		t.Fatalf("expected exactly 3 calls (2 transient 5xx + 1 success), got %d", calls)
	}
}

func TestFetchXML_ServerErrorExhaustsRetries(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := newFetcher()
	_, err := f.FetchXML(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrBadStatus) {
		t.Fatalf("expected ErrBadStatus, got %v", err)
	}
	if calls != maxRetries+1 {
		t.Fatalf("expected exactly %d calls (initial + %d retries), got %d", maxRetries+1, maxRetries, calls)
	}
}

func TestFetchXMLGzip_StreamsLines(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	gz.Write([]byte("line1\nline2\nline3\n"))
	gz.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	f := newFetcher()
	var lines []string
	err := f.FetchXMLGzip(context.Background(), srv.URL, func(line string) error {
		lines = append(lines, line)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 3 || lines[0] != "line1" || lines[2] != "line3" {
		t.Fatalf("unexpected lines: %v", lines)
	}
}
