package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hazadus/go-tuner/internal/credentials"
	"github.com/hazadus/go-tuner/internal/service"
)

const (
	deviceCodeGrant   = "urn:ietf:params:oauth:grant-type:device_code"
	refreshTokenGrant = "refresh_token"
	defaultScope      = "r_usr w_usr"
	defaultPollPeriod = 5 * time.Second
	slowDownIncrement = 5 * time.Second
	defaultDeviceTTL  = 5 * time.Minute
)

// Ошибки входа по коду устройства
var (
	ErrLoginExpired = errors.New("код подтверждения истек")
	ErrLoginDenied  = errors.New("вход отклонен пользователем")
	ErrNoClientID   = errors.New("не задан client_id")
)

// DeviceCode - ответ на запрос авторизации устройства
type DeviceCode struct {
	DeviceCode              string `json:"deviceCode"`
	UserCode                string `json:"userCode"`
	VerificationURI         string `json:"verificationUri"`
	VerificationURIComplete string `json:"verificationUriComplete"`
	ExpiresIn               int    `json:"expiresIn"`
	Interval                int    `json:"interval"`
}

// Link возвращает ссылку для подтверждения входа
func (d *DeviceCode) Link() string {
	link := d.VerificationURIComplete
	if link == "" {
		link = d.VerificationURI
	}
	if link != "" && !strings.Contains(link, "://") {
		link = "https://" + link
	}
	return link
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	UserID       ID     `json:"user_id"`
	User         *struct {
		UserID      ID     `json:"userId"`
		CountryCode string `json:"countryCode"`
	} `json:"user"`

	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Login выполняет вход по коду устройства: запрашивает код, показывает его
// через prompt и ждет подтверждения. Полученный токен сохраняется в хранилище.
func (c *Client) Login(ctx context.Context, prompt func(*DeviceCode)) (*credentials.Token, error) {
	dc, err := c.StartDeviceLogin(ctx)
	if err != nil {
		return nil, err
	}
	if prompt != nil {
		prompt(dc)
	}

	tok, err := c.PollToken(ctx, dc)
	if err != nil {
		return nil, err
	}
	if err := c.setToken(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// StartDeviceLogin запрашивает код подтверждения для устройства
func (c *Client) StartDeviceLogin(ctx context.Context) (*DeviceCode, error) {
	if c.clientID == "" {
		return nil, ErrNoClientID
	}

	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("scope", defaultScope)

	resp, err := c.postForm(ctx, "/v1/oauth/device_authorization", form)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}

	var dc DeviceCode
	if err := json.NewDecoder(resp.Body).Decode(&dc); err != nil {
		return nil, fmt.Errorf("ошибка разбора кода устройства: %w", err)
	}
	if dc.DeviceCode == "" {
		return nil, errors.New("сервис не вернул код устройства")
	}

	c.log.Info().Str("user_code", dc.UserCode).Int("expires_in", dc.ExpiresIn).Msg("Получен код устройства")
	return &dc, nil
}

// PollToken опрашивает сервис, пока пользователь не подтвердит вход,
// не откажется или код не истечет
func (c *Client) PollToken(ctx context.Context, dc *DeviceCode) (*credentials.Token, error) {
	interval := time.Duration(dc.Interval) * time.Second
	if interval <= 0 {
		interval = defaultPollPeriod
	}
	ttl := time.Duration(dc.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = defaultDeviceTTL
	}
	deadline := c.now().Add(ttl)

	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("device_code", dc.DeviceCode)
	form.Set("grant_type", deviceCodeGrant)
	form.Set("scope", defaultScope)

	for {
		if c.now().After(deadline) {
			return nil, ErrLoginExpired
		}
		if err := c.wait(ctx, interval); err != nil {
			return nil, err
		}

		tr, err := c.requestToken(ctx, form)
		if err != nil {
			return nil, err
		}

		switch tr.Error {
		case "":
			return c.toToken(tr, nil), nil
		case "authorization_pending":
			continue
		case "slow_down":
			interval += slowDownIncrement
			c.log.Debug().Dur("interval", interval).Msg("Сервис просит опрашивать реже")
		case "expired_token":
			return nil, ErrLoginExpired
		case "access_denied":
			return nil, ErrLoginDenied
		default:
			return nil, fmt.Errorf("ошибка входа: %s %s", tr.Error, tr.ErrorDescription)
		}
	}
}

// Refresh обновляет access token по refresh token и сохраняет результат
func (c *Client) Refresh(ctx context.Context) error {
	old := c.Token()
	if old == nil || old.RefreshToken == "" {
		return fmt.Errorf("%w: нет refresh token", service.ErrUnauthorized)
	}

	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("refresh_token", old.RefreshToken)
	form.Set("grant_type", refreshTokenGrant)
	form.Set("scope", defaultScope)

	tr, err := c.requestToken(ctx, form)
	if err != nil {
		return err
	}
	if tr.Error != "" {
		return fmt.Errorf("%w: не удалось обновить токен: %s", service.ErrUnauthorized, tr.Error)
	}

	c.log.Info().Msg("Токен обновлен")
	return c.setToken(c.toToken(tr, old))
}

// requestToken отправляет запрос токена. Ответ 400 с полем error не ошибка
// транспорта: его разбирает вызывающий.
func (c *Client) requestToken(ctx context.Context, form url.Values) (*tokenResponse, error) {
	resp, err := c.postForm(ctx, "/v1/oauth/token", form)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest && resp.StatusCode != http.StatusUnauthorized {
		return nil, newAPIError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа токена: %w", err)
	}
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("ошибка разбора ответа токена: %w", err)
	}
	if resp.StatusCode != http.StatusOK && tr.Error == "" {
		return nil, &APIError{Code: resp.StatusCode, Message: tr.ErrorDescription}
	}
	return &tr, nil
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	return resp, nil
}

// toToken строит токен из ответа; поля, которых нет в ответе обновления,
// берутся из прежнего токена
func (c *Client) toToken(tr *tokenResponse, prev *credentials.Token) *credentials.Token {
	tok := &credentials.Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		UserID:       string(tr.UserID),
	}
	if tr.ExpiresIn > 0 {
		tok.Expiry = c.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	if tr.User != nil {
		if tok.UserID == "" {
			tok.UserID = string(tr.User.UserID)
		}
		tok.CountryCode = tr.User.CountryCode
	}

	if prev != nil {
		if tok.RefreshToken == "" {
			tok.RefreshToken = prev.RefreshToken
		}
		if tok.UserID == "" {
			tok.UserID = prev.UserID
		}
		if tok.CountryCode == "" {
			tok.CountryCode = prev.CountryCode
		}
	}
	return tok
}

func (c *Client) setToken(tok *credentials.Token) error {
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	if err := c.store.Save(tok); err != nil {
		return fmt.Errorf("ошибка сохранения токена: %w", err)
	}
	return nil
}
