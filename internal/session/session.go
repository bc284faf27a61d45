// Package session gives every browser an anonymous session id carried in a
// signed cookie.
package session

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	CookieName = "healthgenie_session"
	contextKey = "session_id"
	defaultTTL = 720 * time.Hour
)

var ErrInvalidToken = errors.New("invalid session token")

// Manager issues and verifies HS256 session tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewManager returns a Manager signing with secret. Without a secret a random
// one is generated, so sessions do not survive a restart.
func NewManager(secret string, ttl time.Duration, secure bool, logger *logrus.Logger) *Manager {
	key := []byte(secret)
	if strings.TrimSpace(secret) == "" {
		key = make([]byte, 32)
		_, _ = rand.Read(key)
		logger.Warn("session: SESSION_SECRET not set, using a random key")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Manager{secret: key, ttl: ttl, secure: secure, now: time.Now}
}

// Issue signs a token for sessionID.
func (m *Manager) Issue(sessionID string) (string, error) {
	now := m.now()
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse verifies raw and returns its session id.
func (m *Manager) Parse(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// Middleware attaches the session id to the request, starting a new session
// when the cookie is missing or invalid.
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, err := c.Cookie(CookieName); err == nil {
			if id, err := m.Parse(raw); err == nil {
				c.Set(contextKey, id)
				c.Next()
				return
			}
		}

		id := uuid.NewString()
		token, err := m.Issue(id)
		if err != nil {
			_ = c.Error(fmt.Errorf("session: issue token: %w", err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"status": "error", "description": "could not start session"})
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(CookieName, token, int(m.ttl.Seconds()), "/", "", m.secure, true)
		c.Set(contextKey, id)
		c.Next()
	}
}

// ID returns the session id set by Middleware.
func ID(c *gin.Context) string {
	return c.GetString(contextKey)
}
