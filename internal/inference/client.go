// Package inference реализует клиент внешнего сервиса детекции состояний кожи.
// Сервис принимает изображение в base64 и возвращает предсказанные классы
// с рамками в пиксельных координатах.
package inference

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/magabrotheeeer/skincoach/internal/models"
)

// Client — HTTP-клиент сервиса детекции.
type Client struct {
	apiURL     string
	apiKey     string
	modelID    string
	httpClient *http.Client
}

// NewClient создаёт новый клиент сервиса детекции.
func NewClient(apiURL, apiKey, modelID string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiURL:     strings.TrimRight(apiURL, "/"),
		apiKey:     apiKey,
		modelID:    modelID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Infer отправляет изображение на детекцию и возвращает скоры по всем
// классам из models.Labels (ненайденные классы получают 0) и рамки,
// нормированные к размеру изображения.
func (c *Client) Infer(ctx context.Context, image []byte) (*Result, error) {
	const op = "inference.Infer"

	endpoint := fmt.Sprintf("%s/%s?api_key=%s", c.apiURL, c.modelID, url.QueryEscape(c.apiKey))
	body := base64.StdEncoding.EncodeToString(image)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status: %s", op, resp.Status)
	}

	var raw inferResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if raw.Image.Width <= 0 || raw.Image.Height <= 0 {
		return nil, fmt.Errorf("%s: service returned no image dimensions", op)
	}

	result := &Result{Scores: make(map[string]float64, len(models.Labels))}
	for _, label := range models.Labels {
		result.Scores[label] = 0.0
	}
	for _, p := range raw.Predictions {
		if _, ok := result.Scores[p.Class]; ok {
			result.Scores[p.Class] = p.Confidence
		}
		result.Annotations = append(result.Annotations, Box{
			X:      p.X / raw.Image.Width,
			Y:      p.Y / raw.Image.Height,
			Width:  p.Width / raw.Image.Width,
			Height: p.Height / raw.Image.Height,
			Label:  p.Class,
		})
	}
	return result, nil
}
