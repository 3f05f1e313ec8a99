package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beatguard/internal/pipeline"
	"github.com/beatguard/pkg/models"
)

// stubProcessor returns a canned result, or the pipeline's validation errors
// for the inputs the real pipeline would refuse.
type stubProcessor struct {
	result *models.PipelineResult
}

func (s *stubProcessor) Process(ctx context.Context, req models.ModerationRequest) (*models.PipelineResult, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, pipeline.ErrEmptyContent
	}
	if !req.Kind.IsValid() {
		return nil, pipeline.ErrInvalidKind
	}
	return s.result, nil
}

func newTestServer() *Server {
	return NewServer(0, &stubProcessor{result: &models.PipelineResult{
		RequestID: "req-123",
		Verdict:   models.ModerationVerdict{Approved: true, Confidence: 0.95},
		Bot:       models.NoResponse(),
	}}, zerolog.Nop())
}

func TestHealthz(t *testing.T) {
	s := newTestServer()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestModerateReturnsResult(t *testing.T) {
	s := newTestServer()

	body := `{"content": "loving the new synth pack", "content_kind": "post", "author_id": "user-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/moderate", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result models.PipelineResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "req-123", result.RequestID)
	assert.True(t, result.Verdict.Approved)
	assert.False(t, result.Bot.ShouldRespond)
}

func TestModerateEmptyContent(t *testing.T) {
	s := newTestServer()

	body := `{"content": "", "content_kind": "post", "author_id": "user-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/moderate", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestModerateInvalidKind(t *testing.T) {
	s := newTestServer()

	body := `{"content": "hello", "content_kind": "tweet", "author_id": "user-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/moderate", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestModerateMalformedBody(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/moderate", strings.NewReader("{not json"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
