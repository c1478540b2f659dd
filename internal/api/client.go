// Package api is the console's client for the hosted REST backend.
package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dashboard-console/internal/model"
)

const maxResponseBytes = 4 << 20

type Options struct {
	BaseURL    string
	Version    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

type Client struct {
	base   *url.URL
	http   *http.Client
	logger *zap.Logger
}

func New(opts Options) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("api: invalid base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api: invalid base url %q", opts.BaseURL)
	}
	version := strings.Trim(opts.Version, "/")
	if version != "" {
		base.Path = strings.TrimSuffix(base.Path, "/") + "/" + version
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{base: base, http: hc, logger: logger}, nil
}

type credentials struct {
	accountToken string
	userToken    string
	set          bool
}

func userCredentials(user model.User) (credentials, error) {
	if user.AccountToken == "" || user.Token == "" {
		return credentials{}, ErrMissingCredentials
	}
	return credentials{accountToken: user.AccountToken, userToken: user.Token, set: true}, nil
}

// accountCredentials scopes a call to an account without a user session.
func accountCredentials(account model.Account) credentials {
	return credentials{accountToken: account.Token, set: account.Token != ""}
}

func (c credentials) header() string {
	raw := c.accountToken + ":" + c.userToken
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw))
}

func (c *Client) endpoint(query url.Values, segments ...string) string {
	u := *c.base
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.Join(escaped, "/")
	u.RawPath = ""
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, target string, creds credentials, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := encodeWire(in)
		if err != nil {
			return transportError(err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return transportError(err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if creds.set {
		req.Header.Set("Authorization", creds.header())
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed",
			zap.String("method", method),
			zap.String("url", target),
			zap.String("request_id", requestID),
			zap.Error(err))
		return transportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return transportError(err)
	}

	c.logger.Debug("backend request",
		zap.String("method", method),
		zap.String("url", target),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := decodeWire(raw, out); err != nil {
		return transportError(fmt.Errorf("decode %s response: %w", target, err))
	}
	return nil
}

func (c *Client) Account(ctx context.Context, user model.User) (model.Account, error) {
	var out model.Account
	err := c.withUser(user, func(creds credentials) error {
		return c.do(ctx, http.MethodGet, c.endpoint(nil, "organizations", user.AccountID.String()), creds, nil, &out)
	})
	return out, err
}

func (c *Client) CreateAccount(ctx context.Context, in model.AccountInput) (model.Account, error) {
	var out model.Account
	err := c.do(ctx, http.MethodPost, c.endpoint(nil, "organizations"), credentials{}, in, &out)
	return out, err
}

func (c *Client) CreateMember(ctx context.Context, account model.Account, in model.MemberInput) (model.User, error) {
	var out model.User
	err := c.do(ctx, http.MethodPost, c.endpoint(nil, "organizations", account.ID.String(), "members"), accountCredentials(account), in, &out)
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (model.User, error) {
	var out model.User
	in := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{email, password}
	err := c.do(ctx, http.MethodPost, c.endpoint(nil, "organizations", "members", "login"), credentials{}, in, &out)
	return out, err
}

func (c *Client) Logout(ctx context.Context, user model.User) error {
	return c.withUser(user, func(creds credentials) error {
		return c.do(ctx, http.MethodDelete, c.endpoint(nil, "organizations", user.AccountID.String(), "members", user.ID.String(), "logout"), creds, nil, nil)
	})
}

func (c *Client) Member(ctx context.Context, id model.ID, user model.User) (model.Member, error) {
	var out model.Member
	err := c.withUser(user, func(creds credentials) error {
		return c.do(ctx, http.MethodGet, c.endpoint(nil, "organizations", user.AccountID.String(), "members", id.String()), creds, nil, &out)
	})
	return out, err
}

func (c *Client) Members(ctx context.Context, user model.User) (model.MemberList, error) {
	var out model.MemberList
	err := c.withUser(user, func(creds credentials) error {
		return c.do(ctx, http.MethodGet, c.endpoint(nil, "organizations", user.AccountID.String(), "members"), creds, nil, &out)
	})
	return out, err
}

func (c *Client) UpdateMember(ctx context.Context, id model.ID, in model.MemberInput, user model.User) (model.Member, error) {
	var out model.Member
	err := c.withUser(user, func(creds credentials) error {
		return c.do(ctx, http.MethodPut, c.endpoint(nil, "organizations", user.AccountID.String(), "members", id.String()), creds, in, &out)
	})
	return out, err
}

func (c *Client) DeleteMember(ctx context.Context, id model.ID, user model.User) error {
	return c.withUser(user, func(creds credentials) error {
		return c.do(ctx, http.MethodDelete, c.endpoint(nil, "organizations", user.AccountID.String(), "members", id.String()), creds, nil, nil)
	})
}

func (c *Client) App(ctx context.Context, id model.ID, user model.User) (model.Application, error) {
	var out model.Application
	err := c.withUser(user, func(creds credentials) error {
		return c.do(ctx, http.MethodGet, c.endpoint(nil, "organizations", user.AccountID.String(), "applications", id.String()), creds, nil, &out)
	})
	return out, err
}

func (c *Client) Apps(ctx context.Context, user model.User) (model.ApplicationList, error) {
	var out model.ApplicationList
	err := c.withUser(user, func(creds credentials) error {
		return c.do(ctx, http.MethodGet, c.endpoint(nil, "organizations", user.AccountID.String(), "applications"), creds, nil, &out)
	})
	return out, err
}

func (c *Client) CreateApp(ctx context.Context, in model.ApplicationInput, user model.User) (model.Application, error) {
	var out model.Application
	err := c.withUser(user, func(creds credentials) error {
		return c.do(ctx, http.MethodPost, c.endpoint(nil, "organizations", user.AccountID.String(), "applications"), creds, in, &out)
	})
	return out, err
}

func (c *Client) UpdateApp(ctx context.Context, id model.ID, in model.ApplicationInput, user model.User) (model.Application, error) {
	var out model.Application
	err := c.withUser(user, func(creds credentials) error {
		return c.do(ctx, http.MethodPut, c.endpoint(nil, "organizations", user.AccountID.String(), "applications", id.String()), creds, in, &out)
	})
	return out, err
}

func (c *Client) DeleteApp(ctx context.Context, id model.ID, user model.User) error {
	return c.withUser(user, func(creds credentials) error {
		return c.do(ctx, http.MethodDelete, c.endpoint(nil, "organizations", user.AccountID.String(), "applications", id.String()), creds, nil, nil)
	})
}

// Metrics queries the day-bucketed analytics of an application. The range
// travels as URL-encoded JSON in the where parameter.
func (c *Client) Metrics(ctx context.Context, appID model.ID, start, end string, user model.User) (model.Metrics, error) {
	out := model.Metrics{}
	where, err := json.Marshal(map[string]string{"start": start, "end": end})
	if err != nil {
		return out, transportError(err)
	}
	query := url.Values{"where": []string{string(where)}}
	err = c.withUser(user, func(creds credentials) error {
		return c.do(ctx, http.MethodGet, c.endpoint(query, "analytics", "apps", appID.String()), creds, nil, &out)
	})
	return out, err
}

func (c *Client) withUser(user model.User, fn func(credentials) error) error {
	creds, err := userCredentials(user)
	if err != nil {
		return &Error{
			Status: http.StatusUnauthorized,
			Errors: []model.ErrorItem{{Code: 4001, Message: err.Error()}},
			cause:  err,
		}
	}
	return fn(creds)
}
