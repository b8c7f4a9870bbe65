package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	dominv "github.com/Zhima-Mochi/honeyshop/internal/domain/inventory"
	"github.com/Zhima-Mochi/honeyshop/internal/observability"
	"github.com/Zhima-Mochi/honeyshop/internal/observability/logctx"
)

const (
	peer         = "inventory_sheet"
	endpoint     = "inventory.fetch"
	maxBodyBytes = 1 << 20
)

// Client reads stock counts from the spreadsheet web app. The endpoint answers with
// {"<display name>": {"stock": 12}, ...}; stock may also arrive as a string.
type Client struct {
	url          string
	http         *http.Client
	log          observability.Logger
	extCounter   observability.Counter
	extHistogram observability.Histogram
}

var _ dominv.Source = (*Client)(nil)

// New returns a client for url. timeout bounds each fetch including redirects.
func New(url string, timeout time.Duration, tel observability.Observability) *Client {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Client{
		url: url,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log:          tel.Logger().With(observability.F("component", peer)),
		extCounter:   tel.Metrics().Counter(observability.MExternalRequests),
		extHistogram: tel.Metrics().Histogram(observability.MExternalRequestDuration),
	}
}

// Fetch returns display name -> stock. Every failure wraps inventory.ErrFetchFailed.
func (c *Client) Fetch(ctx context.Context) (_ map[string]int, err error) {
	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
			if ctx.Err() != nil {
				outcome = "canceled"
			}
		}
		c.extCounter.Add(1,
			observability.L("peer", peer),
			observability.L("endpoint", endpoint),
			observability.L("outcome", outcome),
		)
		c.extHistogram.Observe(time.Since(start).Seconds(),
			observability.L("peer", peer),
			observability.L("endpoint", endpoint),
		)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", dominv.ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dominv.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("%w: http status %d", dominv.ErrFetchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", dominv.ErrFetchFailed, err)
	}

	stock, err := Decode(body)
	if err != nil {
		return nil, err
	}

	logctx.FromOr(ctx, c.log).Debug("inventory_fetched",
		observability.F("entries", len(stock)),
		observability.F("latency_ms", time.Since(start).Milliseconds()),
	)
	return stock, nil
}

type entry struct {
	Stock json.RawMessage `json:"stock"`
}

// Decode parses the sheet payload. The top level must be a JSON object; individual entries
// that are malformed or lack a usable stock field count as 0.
func Decode(body []byte) (map[string]int, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", dominv.ErrFetchFailed, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: body is not an object", dominv.ErrFetchFailed)
	}

	out := make(map[string]int, len(raw))
	for name, msg := range raw {
		var e entry
		if err := json.Unmarshal(msg, &e); err != nil {
			out[name] = 0
			continue
		}
		out[name] = ParseStock(e.Stock)
	}
	return out, nil
}

// ParseStock reads a stock value the way a browser's parseInt would: numbers are truncated,
// strings contribute their leading integer. Anything else, and negatives, yield 0.
func ParseStock(raw json.RawMessage) int {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 0
		}
		return clamp(leadingInt(str))
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	switch {
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= 0:
		return 0
	}
	return int(f)
}

func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return n
}

func clamp(n int) int {
	return dominv.ClampStock(n)
}
