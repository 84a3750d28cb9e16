package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/skincoach/internal/http/middlewarectx"
	"github.com/magabrotheeeer/skincoach/internal/models"
	"github.com/magabrotheeeer/skincoach/internal/services/skin"
)

type SkinServiceMock struct {
	mock.Mock
}

func (m *SkinServiceMock) Analyze(ctx context.Context, user *models.User, filename string, image []byte, premium bool) (*models.AnalysisSession, error) {
	args := m.Called(ctx, user, filename, image, premium)
	if res := args.Get(0); res != nil {
		return res.(*models.AnalysisSession), args.Error(1)
	}
	return nil, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func multipartBody(t *testing.T, field, filename, fileType string, data []byte) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	header.Set("Content-Type", fileType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func newAnalyzeRequest(t *testing.T, body *bytes.Buffer, contentType string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/analyze", body)
	req.Header.Set("Content-Type", contentType)
	ctx := context.WithValue(req.Context(), middlewarectx.User, &models.User{UID: "u1", Email: "a@b.com"})
	return req.WithContext(ctx)
}

func TestAnalyzeHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		mockSession    *models.AnalysisSession
		mockErr        error
		wantStatusCode int
	}{
		{
			name:           "successful analysis",
			mockSession:    &models.AnalysisSession{ID: 42, Scores: map[string]float64{"Acne": 0.7}},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "quota exceeded",
			mockErr:        skin.ErrQuotaExceeded,
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:           "analyzer unavailable",
			mockErr:        skin.ErrAnalyzerUnavailable,
			wantStatusCode: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(SkinServiceMock)
			svc.On("Analyze", mock.Anything, mock.Anything, "face.jpg", []byte("image-bytes"), false).
				Return(tt.mockSession, tt.mockErr).Once()
			handler := New(newNoopLogger(), svc)

			body, contentType := multipartBody(t, "file", "face.jpg", "image/jpeg", []byte("image-bytes"))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, newAnalyzeRequest(t, body, contentType))

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			if tt.mockSession != nil {
				var resp struct {
					Status string                 `json:"status"`
					Data   models.AnalysisSession `json:"data"`
				}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, "OK", resp.Status)
				assert.Equal(t, int64(42), resp.Data.ID)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestAnalyzeHandler_MissingFile(t *testing.T) {
	svc := new(SkinServiceMock)
	handler := New(newNoopLogger(), svc)

	body, contentType := multipartBody(t, "not-file", "face.jpg", "image/jpeg", []byte("image-bytes"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newAnalyzeRequest(t, body, contentType))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Analyze",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAnalyzeHandler_PremiumFlag(t *testing.T) {
	svc := new(SkinServiceMock)
	svc.On("Analyze", mock.Anything, mock.Anything, "face.jpg", mock.Anything, true).
		Return(&models.AnalysisSession{ID: 1}, nil).Once()
	handler := NewPremium(newNoopLogger(), svc)

	body, contentType := multipartBody(t, "file", "face.jpg", "image/jpeg", []byte("image-bytes"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newAnalyzeRequest(t, body, contentType))

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestAnalyzeHandler_RejectsNonImageUpload(t *testing.T) {
	svc := new(SkinServiceMock)
	handler := New(newNoopLogger(), svc)

	body, contentType := multipartBody(t, "file", "notes.txt", "text/plain", []byte("just text"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newAnalyzeRequest(t, body, contentType))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Analyze",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
