package api

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/moonvale/nachtrat/server/internal/config"
)

const (
	clientIDHeader = "X-Client-Id"
	clientIDCookie = "nachtrat_client"
)

// Identity mints and verifies the opaque client tokens handed out at
// create and join time. The token binds a clientId, nothing more; there
// are no accounts.
type Identity struct {
	secret []byte
	expiry time.Duration
}

type clientClaims struct {
	ClientID string `json:"cid"`
	jwt.RegisteredClaims
}

func NewIdentity(cfg config.IdentityConfig) *Identity {
	return &Identity{
		secret: []byte(cfg.JWTSecret),
		expiry: time.Duration(cfg.ExpiryHours) * time.Hour,
	}
}

// Mint issues a signed token for a client identity.
func (i *Identity) Mint(clientID string) (string, error) {
	now := time.Now()
	claims := clientClaims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.expiry)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify extracts the clientId from a token.
func (i *Identity) Verify(token string) (string, error) {
	var claims clientClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !parsed.Valid || claims.ClientID == "" {
		return "", errors.New("invalid client token")
	}
	return claims.ClientID, nil
}

// resolveClientID finds the caller's client identity: a bearer token if
// present, then the X-Client-Id header, then the client cookie. Returns ""
// when the caller carries no identity at all.
func (i *Identity) resolveClientID(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); len(auth) > 7 && auth[:7] == "Bearer " {
		if cid, err := i.Verify(auth[7:]); err == nil {
			return cid
		}
	}
	if cid := c.GetHeader(clientIDHeader); cid != "" {
		return cid
	}
	if cid, err := c.Cookie(clientIDCookie); err == nil && cid != "" {
		return cid
	}
	return ""
}
