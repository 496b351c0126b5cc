package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-engine-api/internal/dto"
	appErrors "github.com/noah-isme/timetable-engine-api/pkg/errors"
)

// HTTPOracle calls an external candidate producer over JSON. The remote
// service owns generation quality; this client only moves payloads and
// enforces the timeout.
type HTTPOracle struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPOracle builds a client for the producer at baseURL.
func NewHTTPOracle(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPOracle {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPOracle{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type oracleResponse struct {
	Sessions []dto.SessionRecord `json:"sessions"`
}

// Generate requests a fresh assignment.
func (o *HTTPOracle) Generate(ctx context.Context, req dto.CandidateRequest) ([]dto.SessionRecord, error) {
	return o.post(ctx, "/generate", req)
}

// Resolve requests a repaired assignment for the reported conflicts.
func (o *HTTPOracle) Resolve(ctx context.Context, req dto.RepairRequest) ([]dto.SessionRecord, error) {
	return o.post(ctx, "/resolve", req)
}

// Optimize requests a quality pass over a conflict-free assignment.
func (o *HTTPOracle) Optimize(ctx context.Context, req dto.OptimizeRequest) ([]dto.SessionRecord, error) {
	return o.post(ctx, "/optimize", req)
}

func (o *HTTPOracle) post(ctx context.Context, path string, payload interface{}) ([]dto.SessionRecord, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrOracleUnavailable.Code, appErrors.ErrOracleUnavailable.Status, "failed to encode oracle request")
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrOracleUnavailable.Code, appErrors.ErrOracleUnavailable.Status, "failed to build oracle request")
	}
	request.Header.Set("Content-Type", "application/json")

	start := time.Now()
	response, err := o.client.Do(request)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrOracleUnavailable.Code, appErrors.ErrOracleUnavailable.Status, "candidate oracle unreachable")
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		o.logger.Sugar().Warnw("oracle returned non-success status",
			"path", path, "status", response.StatusCode, "body", string(snippet), "duration", time.Since(start))
		return nil, appErrors.Clone(appErrors.ErrOracleUnavailable,
			fmt.Sprintf("candidate oracle returned status %d", response.StatusCode))
	}

	var decoded oracleResponse
	if err := json.NewDecoder(response.Body).Decode(&decoded); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrOracleUnavailable.Code, appErrors.ErrOracleUnavailable.Status, "failed to decode oracle response")
	}
	return decoded.Sessions, nil
}
