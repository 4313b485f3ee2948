package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// DefaultReplicateBaseURL is the public Replicate API.
	DefaultReplicateBaseURL = "https://api.replicate.com"

	maxDownloadBytes = 64 << 20
)

// Prediction statuses reported by Replicate.
const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

// Prediction is the subset of a Replicate prediction the client reads.
type Prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
}

// Outputs returns the output URLs. Replicate reports either a single string
// or a list of strings.
func (p *Prediction) Outputs() ([]string, error) {
	raw := bytes.TrimSpace(p.Output)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var single string
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, errors.Wrap(err, "failed to decode prediction output")
		}
		return []string{single}, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, errors.Wrap(err, "failed to decode prediction output")
	}
	return list, nil
}

// ReplicateClient generates images with models hosted on Replicate. It is
// safe for concurrent use.
type ReplicateClient struct {
	baseURL      string
	token        string
	client       *http.Client
	logger       *zap.Logger
	pollInterval time.Duration
	maxInterval  time.Duration
	maxWait      time.Duration
}

// ReplicateOption configures a ReplicateClient.
type ReplicateOption func(*ReplicateClient)

// WithBaseURL points the client at another API host, e.g. a test server.
func WithBaseURL(baseURL string) ReplicateOption {
	return func(c *ReplicateClient) {
		if clean := strings.TrimRight(strings.TrimSpace(baseURL), "/"); clean != "" {
			c.baseURL = clean
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) ReplicateOption {
	return func(c *ReplicateClient) {
		if client != nil {
			c.client = client
		}
	}
}

// WithPolling sets the initial and maximum poll intervals and the total time
// to wait for a prediction.
func WithPolling(initial, max, wait time.Duration) ReplicateOption {
	return func(c *ReplicateClient) {
		c.pollInterval = initial
		c.maxInterval = max
		c.maxWait = wait
	}
}

// WithClientLogger sets the logger.
func WithClientLogger(logger *zap.Logger) ReplicateOption {
	return func(c *ReplicateClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewReplicateClient creates a client authenticated with token.
//
// Arguments:
//   - token: The Replicate API token.
//   - opts: Optional settings.
//
// Returns:
//   - *ReplicateClient: The client.
//   - error: ErrUnauthorized if the token is empty.
func NewReplicateClient(token string, opts ...ReplicateOption) (*ReplicateClient, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.Wrap(ErrUnauthorized, "replicate API token is required")
	}

	c := &ReplicateClient{
		baseURL:      DefaultReplicateBaseURL,
		token:        token,
		client:       &http.Client{Timeout: 60 * time.Second},
		logger:       zap.NewNop(),
		pollInterval: time.Second,
		maxInterval:  5 * time.Second,
		maxWait:      10 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Generate runs the request's model and downloads every output image. Models
// that cannot return several outputs are invoked once per variation.
func (c *ReplicateClient) Generate(ctx context.Context, req Request) ([][]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	model, err := LookupModel(req.Model)
	if err != nil {
		return nil, err
	}

	input := BuildInput(model, req)
	runs := 1
	if !model.SupportsNumOutputs {
		runs = req.Variations
	}

	var urls []string
	for i := 0; i < runs; i++ {
		c.logger.Info("requesting prediction",
			zap.String("model", model.Key),
			zap.Int("run", i+1),
			zap.Int("runs", runs),
		)

		pred, err := c.Predict(ctx, model.ID, input)
		if err != nil {
			return nil, err
		}
		outputs, err := pred.Outputs()
		if err != nil {
			return nil, err
		}
		if !model.SupportsNumOutputs && len(outputs) > 1 {
			outputs = outputs[:1]
		}
		urls = append(urls, outputs...)
	}

	if len(urls) == 0 {
		return nil, ErrNoOutput
	}
	if len(urls) > req.Variations {
		urls = urls[:req.Variations]
	}

	images := make([][]byte, 0, len(urls))
	for i, u := range urls {
		data, err := c.Download(ctx, u)
		if err != nil {
			return nil, errors.Wrapf(err, "variation %d", i+1)
		}
		images = append(images, data)
	}
	return images, nil
}

// Predict creates a prediction and waits for it to finish.
//
// Arguments:
//   - ctx: Cancels both the request and the polling.
//   - modelID: "owner/name" for official models or "owner/name:version".
//   - input: The model input.
//
// Returns:
//   - *Prediction: The succeeded prediction.
//   - error: ErrPredictionFailed, ErrUnauthorized, or a transport error.
func (c *ReplicateClient) Predict(ctx context.Context, modelID string, input map[string]any) (*Prediction, error) {
	pred, err := c.createPrediction(ctx, modelID, input)
	if err != nil {
		return nil, err
	}
	if pred.Status == StatusSucceeded {
		return pred, nil
	}
	return c.wait(ctx, pred.ID)
}

func (c *ReplicateClient) createPrediction(ctx context.Context, modelID string, input map[string]any) (*Prediction, error) {
	body := map[string]any{"input": input}
	endpoint := c.baseURL + "/v1/predictions"

	if _, version, ok := strings.Cut(modelID, ":"); ok {
		body["version"] = version
	} else {
		owner, model, found := strings.Cut(modelID, "/")
		if !found || owner == "" || model == "" {
			return nil, errors.Wrapf(ErrInvalidRequest, "invalid model id %q", modelID)
		}
		endpoint = fmt.Sprintf("%s/v1/models/%s/%s/predictions", c.baseURL, url.PathEscape(owner), url.PathEscape(model))
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode prediction input")
	}

	var pred Prediction
	if err := c.doJSON(ctx, http.MethodPost, endpoint, encoded, &pred); err != nil {
		return nil, errors.Wrap(err, "failed to create prediction")
	}
	if pred.ID == "" {
		return nil, errors.New("prediction response has no id")
	}
	if err := pred.terminalError(); err != nil {
		return nil, err
	}
	return &pred, nil
}

// wait polls the prediction with exponential backoff until it reaches a
// terminal status.
func (c *ReplicateClient) wait(ctx context.Context, id string) (*Prediction, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.pollInterval
	policy.MaxInterval = c.maxInterval
	policy.MaxElapsedTime = c.maxWait

	endpoint := c.baseURL + "/v1/predictions/" + url.PathEscape(id)

	poll := func() (*Prediction, error) {
		var pred Prediction
		if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &pred); err != nil {
			var status *statusError
			if errors.Is(err, ErrUnauthorized) || (errors.As(err, &status) && !status.retryable()) {
				return nil, backoff.Permanent(err)
			}
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, err
		}

		switch pred.Status {
		case StatusSucceeded:
			return &pred, nil
		case StatusFailed, StatusCanceled:
			return nil, backoff.Permanent(pred.terminalError())
		default:
			c.logger.Debug("prediction pending", zap.String("id", id), zap.String("status", pred.Status))
			return nil, errors.Errorf("prediction %s is %s", id, pred.Status)
		}
	}

	pred, err := backoff.RetryWithData(poll, backoff.WithContext(policy, ctx))
	if err != nil {
		return nil, errors.Wrapf(err, "prediction %s", id)
	}
	return pred, nil
}

// Download fetches an output file.
func (c *ReplicateClient) Download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "invalid output url")
	}
	if strings.HasPrefix(rawURL, c.baseURL) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to download output")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Errorf("download failed: status=%d url=%s", resp.StatusCode, rawURL)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read output")
	}
	if len(data) > maxDownloadBytes {
		return nil, errors.Errorf("output exceeds %d bytes", maxDownloadBytes)
	}
	if len(data) == 0 {
		return nil, errors.Wrap(ErrNoOutput, "empty output file")
	}
	return data, nil
}

func (c *ReplicateClient) doJSON(ctx context.Context, method, endpoint string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		serr := &statusError{code: resp.StatusCode, body: payload}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return errors.Wrap(ErrUnauthorized, serr.Error())
		}
		return serr
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (p *Prediction) terminalError() error {
	switch p.Status {
	case StatusFailed, StatusCanceled:
		msg := "no error message"
		if p.Error != nil {
			msg = fmt.Sprint(p.Error)
		}
		return errors.Wrapf(ErrPredictionFailed, "prediction %s %s: %s", p.ID, p.Status, msg)
	}
	return nil
}

type statusError struct {
	code int
	body map[string]any
}

func (e *statusError) Error() string {
	return fmt.Sprintf("replicate request failed: status=%d body=%v", e.code, e.body)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}
