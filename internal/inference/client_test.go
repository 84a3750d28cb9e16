package inference

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/skin-model/3", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"image": {"width": 1000, "height": 500},
			"predictions": [
				{"x": 500, "y": 250, "width": 100, "height": 50, "confidence": 0.91, "class": "Acne"},
				{"x": 100, "y": 100, "width": 20, "height": 10, "confidence": 0.4, "class": "Unknown-Class"}
			]
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "skin-model/3", 0)
	result, err := client.Infer(context.Background(), []byte("fake-image"))
	require.NoError(t, err)

	assert.InDelta(t, 0.91, result.Scores["Acne"], 1e-9)
	assert.Zero(t, result.Scores["Wrinkles"])
	_, hasUnknown := result.Scores["Unknown-Class"]
	assert.False(t, hasUnknown, "классы вне фиксированного списка не попадают в скоры")

	require.Len(t, result.Annotations, 2)
	first := result.Annotations[0]
	assert.InDelta(t, 0.5, first.X, 1e-9)
	assert.InDelta(t, 0.5, first.Y, 1e-9)
	assert.InDelta(t, 0.1, first.Width, 1e-9)
	assert.InDelta(t, 0.1, first.Height, 1e-9)
	assert.Equal(t, "Acne", first.Label)
}

func TestInfer_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "k", "m/1", 0)
	_, err := client.Infer(context.Background(), []byte("img"))
	assert.Error(t, err)
}

func TestInfer_MissingDimensions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"predictions": []}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "k", "m/1", 0)
	_, err := client.Infer(context.Background(), []byte("img"))
	assert.Error(t, err)
}
