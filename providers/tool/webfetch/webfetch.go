package webfetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/leofalp/aigw/core/cost"
	"github.com/leofalp/aigw/providers/tool"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent is the default User-Agent header value.
	DefaultUserAgent = "aigw-webfetch/1.0"
	// MaxBodySize caps the response body at 10MB.
	MaxBodySize = 10 * 1024 * 1024
	// MaxRedirects bounds redirect following.
	MaxRedirects = 10
)

// Input holds the parameters the language model passes to the tool. URL is
// the only required field.
type Input struct {
	// URL may be partial ("example.com") or full ("https://example.com").
	URL string `json:"url" jsonschema:"description=The URL of the web page to fetch; partial URLs get an https:// prefix,required"`

	// TimeoutSeconds overrides the default request timeout.
	TimeoutSeconds int `json:"timeout_seconds,omitempty" jsonschema:"description=Request timeout in seconds (default 30)"`

	// UserAgent overrides the default User-Agent header.
	UserAgent string `json:"user_agent,omitempty" jsonschema:"description=Custom User-Agent header for the request"`

	// IncludeHTML includes the raw HTML alongside the Markdown.
	IncludeHTML bool `json:"include_html,omitempty" jsonschema:"description=When true the raw HTML is returned alongside the Markdown"`
}

// Output is what [Fetch] returns to the model. URL reflects the final
// destination after redirects; HTML is populated only when requested.
type Output struct {
	URL      string `json:"url" jsonschema:"description=The final URL after redirects"`
	Markdown string `json:"markdown" jsonschema:"description=The page content converted to Markdown"`
	HTML     string `json:"html,omitempty" jsonschema:"description=The raw HTML content when include_html was set"`
}

// New returns a [tool.Tool] that fetches a web page and converts its HTML
// to Markdown.
func New() *tool.Tool[Input, Output] {
	return tool.New(
		"webfetch",
		Fetch,
		tool.WithDescription("Fetches a web page over HTTP(S), follows redirects, and returns the content converted to Markdown."),
		tool.WithMetrics(cost.ToolMetrics{
			Currency:                "USD",
			CostDescription:         "local HTTP request",
			Accuracy:                0.98,
			AverageDurationInMillis: 350,
		}),
	)
}

// Fetch retrieves the page at req.URL and returns its content as Markdown.
// Partial URLs get an "https://" prefix; up to [MaxRedirects] redirects are
// followed; the body is capped at [MaxBodySize] bytes. Reading runs on its
// own goroutine so cancellation is honoured during slow reads.
func Fetch(ctx context.Context, req Input) (Output, error) {
	url := strings.TrimSpace(req.URL)
	if url == "" {
		return Output{}, fmt.Errorf("url cannot be empty")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}

	timeout := DefaultTimeout
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, url, nil)
	if err != nil {
		return Output{}, fmt.Errorf("build request: %w", err)
	}

	userAgent := req.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	httpReq.Header.Set("User-Agent", userAgent)

	response, err := httpClient(timeout).Do(httpReq)
	if err != nil {
		if fetchCtx.Err() != nil {
			return Output{}, fmt.Errorf("request timed out or was canceled: %w", err)
		}
		return Output{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return Output{}, fmt.Errorf("unexpected status: %s", response.Status)
	}

	htmlBytes, err := readBounded(fetchCtx, response.Body)
	if err != nil {
		return Output{}, err
	}

	markdown, err := htmltomarkdown.ConvertString(string(htmlBytes))
	if err != nil {
		return Output{}, fmt.Errorf("convert to markdown: %w", err)
	}

	output := Output{
		URL:      response.Request.URL.String(),
		Markdown: markdown,
	}
	if req.IncludeHTML {
		output.HTML = string(htmlBytes)
	}
	return output, nil
}

// httpClient builds a client with per-phase timeouts so a stalled server
// cannot hold the tool past its deadline.
func httpClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			ForceAttemptHTTP2:     true,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= MaxRedirects {
				return fmt.Errorf("too many redirects (>%d)", MaxRedirects)
			}
			return nil
		},
	}
}

// readBounded reads the body up to MaxBodySize, watching the context while
// the read is in flight.
func readBounded(ctx context.Context, body io.Reader) ([]byte, error) {
	type readResult struct {
		data []byte
		err  error
	}

	results := make(chan readResult, 1)
	go func() {
		data, err := io.ReadAll(io.LimitReader(body, MaxBodySize))
		results <- readResult{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("timed out reading response body: %w", ctx.Err())
	case result := <-results:
		if result.err != nil {
			return nil, fmt.Errorf("read response body: %w", result.err)
		}
		if len(result.data) == MaxBodySize {
			return nil, fmt.Errorf("response body exceeds %d bytes", MaxBodySize)
		}
		return result.data, nil
	}
}
