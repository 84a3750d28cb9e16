// Package interpret реализует клиент сервиса текстовой интерпретации скоров.
// Сервису chat-completion передаётся промпт со скорами, в ответ приходит
// текст интерпретации и ровно три рекомендации процедур.
package interpret

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Procedures — перечень доступных процедур, из которых модель выбирает рекомендации.
var Procedures = []string{
	"microneedling",
	"hydrafacial",
	"BB Glow",
	"radiofrequency lifting",
	"korean non-surgical lifting",
	"dermaplaning",
}

// Interpretation — результат интерпретации скоров.
type Interpretation struct {
	Interpretation string   `json:"interpretation"`
	Suggestions    []string `json:"suggestions"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client — HTTP-клиент chat-completion API.
type Client struct {
	apiURL     string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient создает новый клиент интерпретации.
func NewClient(apiURL, apiKey, model string) *Client {
	return &Client{
		apiURL:     strings.TrimRight(apiURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func buildPrompt(scores map[string]float64) string {
	lines := []string{
		"You are a skincare expert at a beauty institute.",
		"Available procedures: " + strings.Join(Procedures, ", ") + ".",
		"Analysis scores:",
	}
	labels := make([]string, 0, len(scores))
	for label := range scores {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		lines = append(lines, fmt.Sprintf("- %s: %.0f%%", label, scores[label]*100))
	}
	lines = append(lines,
		"",
		"1) Give a concise interpretation of these results.",
		"2) Propose EXACTLY 3 of the listed procedures, prefixed by 'Suggestions:'.",
	)
	return strings.Join(lines, "\n")
}

// Interpret отправляет скоры на интерпретацию и разбирает ответ модели
// на текст и список рекомендаций.
func (c *Client) Interpret(ctx context.Context, scores map[string]float64) (*Interpretation, error) {
	const op = "interpret.Interpret"

	reqBody := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: buildPrompt(scores)}},
		Temperature: 0.7,
		MaxTokens:   300,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/chat/completions", &buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status: %s", op, resp.Status)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("%s: empty completion", op)
	}

	return parseCompletion(chat.Choices[0].Message.Content), nil
}

// parseCompletion разделяет ответ модели на интерпретацию и рекомендации.
func parseCompletion(content string) *Interpretation {
	parts := strings.SplitN(strings.TrimSpace(content), "Suggestions:", 2)
	interpretation := strings.TrimSpace(strings.TrimPrefix(parts[0], "Interpretation:"))

	result := &Interpretation{Interpretation: interpretation}
	if len(parts) > 1 {
		for _, line := range strings.Split(parts[1], "\n") {
			text := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "•0123456789.) "))
			if text != "" {
				result.Suggestions = append(result.Suggestions, text)
			}
		}
	}
	return result
}
