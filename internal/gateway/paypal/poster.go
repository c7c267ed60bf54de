package paypal

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Poster performs the authenticity POST against the gateway. It is a black
// box to the adapter: one synchronous call, no retries.
type Poster interface {
	Post(ctx context.Context, endpoint string, form url.Values) (status int, body string, err error)
}

// HTTPPoster is the default Poster built on net/http.
type HTTPPoster struct {
	Client *http.Client
}

var defaultPoster = &HTTPPoster{}

// Post implements Poster.
func (p *HTTPPoster) Post(ctx context.Context, endpoint string, form url.Values) (int, string, error) {
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", err
	}
	return resp.StatusCode, string(body), nil
}
