// Package api реализует HTTP-клиент бэкенда: подстановку токена доступа,
// разбор конверта ответов и классификацию ошибок по статусам.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/magabrotheeeer/skincoach/internal/models"
)

// Profile — учетная запись текущего пользователя.
type Profile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	IsAdmin   bool   `json:"is_admin"`
	IsPremium bool   `json:"is_premium"`
}

// SubscriptionStatus — состояние подписки пользователя.
type SubscriptionStatus struct {
	IsPremium bool       `json:"is_premium"`
	Expiry    *time.Time `json:"subscription_expiry,omitempty"`
}

// Interpretation — текстовая интерпретация скоров с рекомендациями.
type Interpretation struct {
	Interpretation string   `json:"interpretation"`
	Suggestions    []string `json:"suggestions"`
}

type envelope struct {
	Status string          `json:"status"`
	Error  string          `json:"error"`
	Data   json.RawMessage `json:"data"`
}

// Gateway — клиент бэкенда. Токен доступа хранится в памяти и
// подставляется в Authorization на каждый аутентифицированный запрос.
type Gateway struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string

	// Хук принудительного выхода срабатывает один раз на серию 401,
	// пока его не взведут заново после нового входа.
	hookMu      sync.Mutex
	onUnauth    func()
	unauthArmed bool
}

// NewGateway создает клиент бэкенда.
func NewGateway(baseURL string, timeout time.Duration) *Gateway {
	return &Gateway{
		baseURL:    strings.TrimRight(baseURL, "/") + "/api/v1",
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetToken запоминает токен доступа и заново взводит хук принудительного выхода.
func (g *Gateway) SetToken(token string) {
	g.mu.Lock()
	g.token = token
	g.mu.Unlock()

	g.hookMu.Lock()
	g.unauthArmed = true
	g.hookMu.Unlock()
}

// ClearToken сбрасывает токен доступа.
func (g *Gateway) ClearToken() {
	g.mu.Lock()
	g.token = ""
	g.mu.Unlock()
}

// Token возвращает текущий токен доступа.
func (g *Gateway) Token() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.token
}

// OnUnauthorized регистрирует хук, вызываемый при первом ответе 401.
// Повторные 401 до следующего SetToken хук не вызывают, даже из
// конкурентных запросов.
func (g *Gateway) OnUnauthorized(hook func()) {
	g.hookMu.Lock()
	g.onUnauth = hook
	g.unauthArmed = true
	g.hookMu.Unlock()
}

func (g *Gateway) fireUnauthorized() {
	g.hookMu.Lock()
	hook := g.onUnauth
	armed := g.unauthArmed
	g.unauthArmed = false
	g.hookMu.Unlock()

	if armed && hook != nil {
		hook()
	}
}

// Login обменивает учетные данные на токен доступа.
// Токен не сохраняется: этим управляет вызывающий код.
func (g *Gateway) Login(ctx context.Context, email, password string) (string, error) {
	form := url.Values{"username": {email}, "password": {password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return "", WrapError(KindServer, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", WrapError(KindNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", g.classify(resp, false)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", WrapError(KindServer, err)
	}
	if body.AccessToken == "" {
		return "", NewError(KindServer, "empty access token in response")
	}
	return body.AccessToken, nil
}

// Signup регистрирует нового пользователя.
func (g *Gateway) Signup(ctx context.Context, email, password string) error {
	return g.doJSON(ctx, http.MethodPost, "/auth/signup",
		map[string]string{"email": email, "password": password}, nil, false)
}

// Me возвращает профиль держателя токена.
func (g *Gateway) Me(ctx context.Context) (*Profile, error) {
	req, err := g.newRequest(ctx, http.MethodGet, "/auth/me", nil, true)
	if err != nil {
		return nil, err
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, WrapError(KindNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, g.classify(resp, true)
	}
	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, WrapError(KindServer, err)
	}
	return &profile, nil
}

// DeleteAccount удаляет учетную запись держателя токена.
func (g *Gateway) DeleteAccount(ctx context.Context) error {
	return g.doJSON(ctx, http.MethodDelete, "/auth/me", nil, nil, true)
}

// Analyze отправляет снимок на анализ multipart-формой.
func (g *Gateway) Analyze(ctx context.Context, filename string, image []byte, premium bool) (*models.AnalysisSession, error) {
	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if !strings.HasPrefix(contentType, "image/") {
		contentType = "image/jpeg"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	partHeader := textproto.MIMEHeader{}
	partHeader.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	partHeader.Set("Content-Type", contentType)
	part, err := writer.CreatePart(partHeader)
	if err != nil {
		return nil, WrapError(KindServer, err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, WrapError(KindServer, err)
	}
	if err := writer.Close(); err != nil {
		return nil, WrapError(KindServer, err)
	}

	path := "/analyze"
	if premium {
		path = "/analyze-premium"
	}
	req, err := g.newRequest(ctx, http.MethodPost, path, &buf, true)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var session models.AnalysisSession
	if err := g.send(req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// History возвращает сессии анализов пользователя, новые первыми.
func (g *Gateway) History(ctx context.Context, skip, limit int) ([]models.AnalysisSession, error) {
	path := "/history?skip=" + strconv.Itoa(skip) + "&limit=" + strconv.Itoa(limit)
	var sessions []models.AnalysisSession
	if err := g.doJSON(ctx, http.MethodGet, path, nil, &sessions, true); err != nil {
		return nil, err
	}
	return sessions, nil
}

// RemoveSession удаляет сессию анализа по идентификатору.
func (g *Gateway) RemoveSession(ctx context.Context, id int64) error {
	return g.doJSON(ctx, http.MethodDelete, "/history/"+strconv.FormatInt(id, 10), nil, nil, true)
}

// Stats возвращает агрегированную статистику анализов.
func (g *Gateway) Stats(ctx context.Context) (*models.Stats, error) {
	var stats models.Stats
	if err := g.doJSON(ctx, http.MethodGet, "/stats", nil, &stats, true); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Trend возвращает динамику средних скоров по периодам.
func (g *Gateway) Trend(ctx context.Context, period string) (*models.Trend, error) {
	var trend models.Trend
	if err := g.doJSON(ctx, http.MethodGet, "/stats/trend?period="+url.QueryEscape(period), nil, &trend, true); err != nil {
		return nil, err
	}
	return &trend, nil
}

// Interpret запрашивает текстовую интерпретацию скоров.
func (g *Gateway) Interpret(ctx context.Context, scores map[string]float64) (*Interpretation, error) {
	var result Interpretation
	body := map[string]any{"scores": scores}
	if err := g.doJSON(ctx, http.MethodPost, "/interpret", body, &result, true); err != nil {
		return nil, err
	}
	return &result, nil
}

// ValidateReceipt отправляет чек покупки на проверку.
func (g *Gateway) ValidateReceipt(ctx context.Context, receipt models.Receipt) (*SubscriptionStatus, error) {
	var status SubscriptionStatus
	if err := g.doJSON(ctx, http.MethodPost, "/subscription/validate", receipt, &status, true); err != nil {
		return nil, err
	}
	return &status, nil
}

// SubscriptionStatus возвращает состояние подписки пользователя.
func (g *Gateway) SubscriptionStatus(ctx context.Context) (*SubscriptionStatus, error) {
	var status SubscriptionStatus
	if err := g.doJSON(ctx, http.MethodGet, "/subscription/status", nil, &status, true); err != nil {
		return nil, err
	}
	return &status, nil
}

func (g *Gateway) newRequest(ctx context.Context, method, path string, body io.Reader, authed bool) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return nil, WrapError(KindServer, err)
	}
	if authed {
		token := g.Token()
		if token == "" {
			return nil, NewError(KindUnauthorized, "no access token")
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (g *Gateway) doJSON(ctx context.Context, method, path string, body, out any, authed bool) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return WrapError(KindServer, err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := g.newRequest(ctx, method, path, reader, authed)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return g.sendAs(req, out, authed)
}

func (g *Gateway) send(req *http.Request, out any) error {
	return g.sendAs(req, out, true)
}

// sendAs выполняет запрос, разбирает конверт ответа и распаковывает data в out.
func (g *Gateway) sendAs(req *http.Request, out any, authed bool) error {
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return WrapError(KindNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return g.classify(resp, authed)
	}
	if out == nil {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return WrapError(KindServer, err)
	}
	if env.Status != "OK" {
		return NewError(KindServer, env.Error)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return WrapError(KindServer, err)
	}
	return nil
}

// classify переводит неуспешный HTTP-ответ в классифицированную ошибку.
func (g *Gateway) classify(resp *http.Response, authed bool) error {
	message := serverMessage(resp.Body)

	var kind Kind
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		kind = KindUnauthorized
		if authed {
			g.fireUnauthorized()
		}
	case resp.StatusCode == http.StatusForbidden && strings.Contains(message, "limit"):
		kind = KindQuota
	case resp.StatusCode == http.StatusForbidden:
		kind = KindForbidden
	case resp.StatusCode == http.StatusNotFound:
		kind = KindNotFound
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusUnprocessableEntity:
		kind = KindValidation
	default:
		kind = KindServer
	}

	if message == "" {
		message = fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}
	return &Error{Kind: kind, StatusCode: resp.StatusCode, Message: message}
}

func serverMessage(body io.Reader) string {
	var env envelope
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		return ""
	}
	return env.Error
}
