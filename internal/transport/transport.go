// Package transport posts request payloads to the pipeline server and
// classifies the responses.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// Server endpoints.
const (
	RunPath      = "/pipeline/run"
	ValidatePath = "/validate"
)

// Outcome is the classified server response.
type Outcome struct {
	StatusCode int
	Message    string
}

// OK reports whether the server accepted the request.
func (o Outcome) OK() bool {
	return o.StatusCode == http.StatusOK
}

// String formats a rejected outcome as "<status> <message>".
func (o Outcome) String() string {
	return strings.TrimSpace(fmt.Sprintf("%d %s", o.StatusCode, o.Message))
}

// Error reports a failure to reach the server at all. It is never retried.
type Error struct {
	Endpoint string
	Err      error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Client posts JSON payloads.
type Client struct {
	http *http.Client
	log  zerolog.Logger
}

// New returns a Client. A nil httpClient uses http.DefaultClient, which has no
// request timeout.
func New(httpClient *http.Client, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		http: httpClient,
		log:  log.With().Str("component", "transport").Logger(),
	}
}

// Endpoint joins the server base URL and path.
func Endpoint(server, path string) string {
	return strings.TrimRight(strings.TrimSpace(server), "/") + "/" + strings.TrimLeft(path, "/")
}

// Post sends payload as JSON to endpoint. Non-200 responses are returned as
// an Outcome; only failures to complete the exchange produce an error.
func (c *Client) Post(ctx context.Context, endpoint string, payload any) (Outcome, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Outcome{}, fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Outcome{}, &Error{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.log.Debug().Str("endpoint", endpoint).RawJSON("payload", body).Msg("sending request")

	resp, err := c.http.Do(req)
	if err != nil {
		return Outcome{}, &Error{Endpoint: endpoint, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Outcome{}, &Error{Endpoint: endpoint, Err: fmt.Errorf("read response: %w", err)}
	}

	c.log.Debug().Str("endpoint", endpoint).Int("status", resp.StatusCode).Int("bytes", len(raw)).Msg("received response")

	return classify(resp.StatusCode, raw), nil
}

func classify(status int, raw []byte) Outcome {
	out := Outcome{StatusCode: status}
	if status == http.StatusOK {
		return out
	}

	var body struct {
		Message *string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != nil {
		out.Message = *body.Message
		return out
	}

	out.Message = strings.TrimSpace(string(raw))
	return out
}
