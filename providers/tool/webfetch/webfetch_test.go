package webfetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func htmlServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

// TestFetchConvertsHTML verifies the fetch-and-convert happy path.
func TestFetchConvertsHTML(t *testing.T) {
	server := htmlServer(t, `<html><body><h1>Welcome</h1><p>A <strong>test</strong> page.</p></body></html>`)

	output, err := Fetch(context.Background(), Input{URL: server.URL})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if output.URL != server.URL {
		t.Errorf("final URL %q, want %q", output.URL, server.URL)
	}
	if !strings.Contains(output.Markdown, "Welcome") || !strings.Contains(output.Markdown, "**test**") {
		t.Errorf("markdown conversion lost content: %q", output.Markdown)
	}
	if output.HTML != "" {
		t.Error("HTML returned without include_html")
	}
}

// TestFetchIncludeHTML verifies the optional raw-HTML passthrough.
func TestFetchIncludeHTML(t *testing.T) {
	server := htmlServer(t, `<html><body><p>raw</p></body></html>`)

	output, err := Fetch(context.Background(), Input{URL: server.URL, IncludeHTML: true})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(output.HTML, "<p>raw</p>") {
		t.Errorf("raw HTML missing: %q", output.HTML)
	}
}

// TestFetchFollowsRedirects verifies that the final URL is reported after a
// redirect chain.
func TestFetchFollowsRedirects(t *testing.T) {
	target := htmlServer(t, `<html><body>destination</body></html>`)
	redirecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL, http.StatusFound)
	}))
	defer redirecting.Close()

	output, err := Fetch(context.Background(), Input{URL: redirecting.URL})
	if err != nil {
		t.Fatal(err)
	}
	if output.URL != target.URL {
		t.Errorf("final URL %q, want redirect target %q", output.URL, target.URL)
	}
}

// TestFetchRejectsNonOKStatus verifies that error statuses fail the fetch.
func TestFetchRejectsNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	if _, err := Fetch(context.Background(), Input{URL: server.URL}); err == nil {
		t.Fatal("expected an error for a 404 response")
	}
}

// TestFetchEmptyURL verifies input validation.
func TestFetchEmptyURL(t *testing.T) {
	if _, err := Fetch(context.Background(), Input{URL: "   "}); err == nil {
		t.Fatal("expected an error for an empty URL")
	}
}

// TestFetchTimeout verifies that a stalled server is cut off by the
// configured timeout.
func TestFetchTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	start := time.Now()
	_, err := Fetch(context.Background(), Input{URL: server.URL, TimeoutSeconds: 1})
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	if time.Since(start) > 3*time.Second {
		t.Error("timeout did not bound the request")
	}
}

// TestFetchCancellation verifies that caller cancellation aborts an
// in-flight request.
func TestFetchCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	if _, err := Fetch(ctx, Input{URL: server.URL}); err == nil {
		t.Fatal("expected a cancellation error")
	}
	if time.Since(start) > 2*time.Second {
		t.Error("cancellation did not abort the request")
	}
}

// TestNewAdvertisesRequiredURL verifies the advertised schema marks url as
// required.
func TestNewAdvertisesRequiredURL(t *testing.T) {
	description := New().Describe()
	if description.Name != "webfetch" {
		t.Errorf("tool name %q", description.Name)
	}
	if description.Parameters == nil {
		t.Fatal("missing parameter schema")
	}

	var required bool
	for _, name := range description.Parameters.Required {
		if name == "url" {
			required = true
		}
	}
	if !required {
		t.Error("url not marked required in the schema")
	}
}
