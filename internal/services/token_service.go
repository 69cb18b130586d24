package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"authcore/internal/models"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type TokenConfig struct {
	Issuer        string
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Claims carried by both token kinds. Subject is the user id.
type Claims struct {
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() string { return c.Subject }

type TokenService interface {
	IssueAccessToken(user *models.User) (string, time.Time, error)
	IssueRefreshToken(user *models.User) (string, time.Time, error)
	IssuePair(user *models.User) (models.TokenPair, error)
	// Verify checks an access token. Only ErrTokenExpired and
	// ErrInvalidSignature are returned.
	Verify(token string) (*Claims, error)
	VerifyRefresh(token string) (*Claims, error)
}

type tokenService struct {
	cfg TokenConfig
	now Clock
}

func NewTokenService(cfg TokenConfig, now Clock) (TokenService, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("token secrets are required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &tokenService{cfg: cfg, now: orSystem(now)}, nil
}

func (s *tokenService) IssueAccessToken(user *models.User) (string, time.Time, error) {
	return s.issue(user, tokenTypeAccess, s.cfg.AccessSecret, s.cfg.AccessTTL)
}

func (s *tokenService) IssueRefreshToken(user *models.User) (string, time.Time, error) {
	return s.issue(user, tokenTypeRefresh, s.cfg.RefreshSecret, s.cfg.RefreshTTL)
}

func (s *tokenService) IssuePair(user *models.User) (models.TokenPair, error) {
	access, accessExp, err := s.IssueAccessToken(user)
	if err != nil {
		return models.TokenPair{}, err
	}
	refresh, refreshExp, err := s.IssueRefreshToken(user)
	if err != nil {
		return models.TokenPair{}, err
	}
	return models.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *tokenService) issue(user *models.User, typ string, key []byte, ttl time.Duration) (string, time.Time, error) {
	if user == nil || user.ID == "" {
		return "", time.Time{}, errors.New("token subject is required")
	}
	now := s.now()
	// exp is carried in whole seconds; report the value the token holds
	exp := now.Add(ttl).Truncate(time.Second)
	claims := Claims{
		Email:     user.EmailValue(),
		Phone:     user.PhoneValue(),
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, exp, nil
}

func (s *tokenService) Verify(token string) (*Claims, error) {
	return s.parse(token, tokenTypeAccess, s.cfg.AccessSecret)
}

func (s *tokenService) VerifyRefresh(token string) (*Claims, error) {
	return s.parse(token, tokenTypeRefresh, s.cfg.RefreshSecret)
}

func (s *tokenService) parse(raw, typ string, key []byte) (*Claims, error) {
	if raw == "" {
		return nil, ErrInvalidSignature
	}
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return key, nil
	}, opts...)
	if err != nil {
		// signature is checked before claims, so expiry is only reported
		// for tokens we actually signed
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidSignature
	}
	if claims.TokenType != typ || claims.Subject == "" {
		return nil, ErrInvalidSignature
	}
	return claims, nil
}
