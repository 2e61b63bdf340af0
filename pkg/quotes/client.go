package quotes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/arbdesk/arbdesk/pkg/models"
)

// Client fetches single quote snapshots from the upstream feed. A fetch
// failure fails only that call; retry policy belongs to the caller.
type Client interface {
	EquityQuote(ctx context.Context, symbol string) (models.RawQuote, error)
	FuturesQuote(ctx context.Context, symbol, expiryCode string) (models.RawQuote, error)
}

// HTTPClient talks to the vendor's templated quote endpoints. URL
// templates carry {symbol} and, for futures, {expiry} placeholders.
type HTTPClient struct {
	equityURL  string
	futuresURL string
	httpClient *http.Client
}

func NewHTTPClient(equityURL, futuresURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		equityURL:  equityURL,
		futuresURL: futuresURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) EquityQuote(ctx context.Context, symbol string) (models.RawQuote, error) {
	url := strings.ReplaceAll(c.equityURL, "{symbol}", symbol)
	return c.fetch(ctx, url, symbol, "")
}

func (c *HTTPClient) FuturesQuote(ctx context.Context, symbol, expiryCode string) (models.RawQuote, error) {
	url := strings.NewReplacer("{symbol}", symbol, "{expiry}", expiryCode).Replace(c.futuresURL)
	return c.fetch(ctx, url, symbol, expiryCode)
}

func (c *HTTPClient) fetch(ctx context.Context, url, symbol, expiry string) (models.RawQuote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &models.FetchError{Symbol: symbol, Expiry: expiry, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &models.FetchError{Symbol: symbol, Expiry: expiry, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.FetchError{Symbol: symbol, Expiry: expiry, Err: err}
	}
	return parseQuote(string(body))
}

var numberPattern = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// parseQuote decodes the vendor's CRLF-delimited key=value payload.
// Numeric-looking values become float64, everything else stays a string.
func parseQuote(payload string) (models.RawQuote, error) {
	quote := make(models.RawQuote)
	for _, segment := range strings.Split(payload, "\r\n") {
		if segment == "" {
			continue
		}
		key, value, ok := strings.Cut(segment, "=")
		if !ok {
			return nil, fmt.Errorf("malformed quote segment %q", segment)
		}
		if numberPattern.MatchString(value) {
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("parsing quote field %s: %w", key, err)
			}
			quote[key] = f
		} else {
			quote[key] = value
		}
	}
	return quote, nil
}
