// Package referrer remembers where a visitor originally came from until
// signup consumes it.
package referrer

import (
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
)

const (
	CookieName    = "originalReferrer"
	defaultMaxAge = 30 * 24 * time.Hour
)

// Jar signs and scopes the originalReferrer cookie.
type Jar struct {
	codec  *securecookie.SecureCookie
	maxAge time.Duration
	logger *zap.Logger
}

func New(hashKey []byte, logger *zap.Logger) (*Jar, error) {
	if len(hashKey) < 32 {
		return nil, errors.New("referrer: hash key must be at least 32 bytes")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	codec := securecookie.New(hashKey, nil)
	codec.MaxAge(int(defaultMaxAge.Seconds()))
	return &Jar{codec: codec, maxAge: defaultMaxAge, logger: logger}, nil
}

// Domain returns the registrable domain of host, or "" when host has none
// (IP addresses, localhost).
func Domain(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" || net.ParseIP(host) != nil {
		return ""
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return ""
	}
	return domain
}

// Capture stores a foreign Referer in the cookie unless one is already
// remembered.
func (j *Jar) Capture() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := j.read(c.Request); !ok {
			if ref := foreignReferer(c.Request); ref != "" {
				j.write(c.Writer, c.Request, ref)
			}
		}
		c.Next()
	}
}

func foreignReferer(r *http.Request) string {
	raw := r.Header.Get("Referer")
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	own := Domain(r.Host)
	if own != "" && Domain(u.Host) == own {
		return ""
	}
	if own == "" && strings.EqualFold(u.Host, r.Host) {
		return ""
	}
	return raw
}

// Take returns the remembered referrer and clears the cookie.
func (j *Jar) Take(w http.ResponseWriter, r *http.Request) string {
	value, ok := j.read(r)
	if _, err := r.Cookie(CookieName); err == nil {
		http.SetCookie(w, j.cookie(r, "", -1))
	}
	if !ok {
		return ""
	}
	return value
}

func (j *Jar) read(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return "", false
	}
	var value string
	if err := j.codec.Decode(CookieName, c.Value, &value); err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			j.logger.Debug("referrer: rejecting cookie", zap.Error(err))
		}
		return "", false
	}
	return value, true
}

func (j *Jar) write(w http.ResponseWriter, r *http.Request, value string) {
	encoded, err := j.codec.Encode(CookieName, value)
	if err != nil {
		j.logger.Warn("referrer: encode failed", zap.Error(err))
		return
	}
	http.SetCookie(w, j.cookie(r, encoded, int(j.maxAge.Seconds())))
}

func (j *Jar) cookie(r *http.Request, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Domain:   Domain(r.Host),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
}
