package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"videotube/internal/model"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type tokenClaims struct {
	Username string `json:"username,omitempty"`
	Fullname string `json:"fullname,omitempty"`
	Type     string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies access and refresh JWTs. Each kind has its
// own secret and TTL.
type TokenService struct {
	accessSecret  []byte
	accessTTL     time.Duration
	refreshSecret []byte
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenService(accessSecret string, accessTTL time.Duration, refreshSecret string, refreshTTL time.Duration) (*TokenService, error) {
	if strings.TrimSpace(accessSecret) == "" || strings.TrimSpace(refreshSecret) == "" {
		return nil, errors.New("access and refresh token secrets are required")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}

	return &TokenService{
		accessSecret:  []byte(accessSecret),
		accessTTL:     accessTTL,
		refreshSecret: []byte(refreshSecret),
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}, nil
}

func (s *TokenService) AccessTTL() time.Duration {
	return s.accessTTL
}

func (s *TokenService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

func (s *TokenService) IssueAccessToken(user model.User) (string, error) {
	return s.sign(s.accessSecret, s.accessTTL, tokenClaims{
		Username: user.Username,
		Fullname: user.Fullname,
		Type:     tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: user.ID,
		},
	})
}

func (s *TokenService) IssueRefreshToken(user model.User) (string, error) {
	return s.sign(s.refreshSecret, s.refreshTTL, tokenClaims{
		Type: tokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: user.ID,
		},
	})
}

func (s *TokenService) IssuePair(user model.User) (model.TokenPair, error) {
	accessToken, err := s.IssueAccessToken(user)
	if err != nil {
		return model.TokenPair{}, err
	}

	refreshToken, err := s.IssueRefreshToken(user)
	if err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *TokenService) VerifyAccessToken(token string) (*model.AuthClaims, error) {
	return s.verify(token, s.accessSecret, tokenTypeAccess)
}

func (s *TokenService) VerifyRefreshToken(token string) (*model.AuthClaims, error) {
	return s.verify(token, s.refreshSecret, tokenTypeRefresh)
}

func (s *TokenService) sign(secret []byte, ttl time.Duration, claims tokenClaims) (string, error) {
	now := s.now().UTC()
	claims.ID = uuid.NewString()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// verify maps every failure onto model.ErrTokenExpired,
// model.ErrTokenMalformed or model.ErrTokenSignatureMismatch. A token of the
// wrong type counts as a signature mismatch.
func (s *TokenService) verify(token string, secret []byte, expectedType string) (*model.AuthClaims, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, model.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return nil, model.ErrTokenSignatureMismatch
	default:
		return nil, model.ErrTokenMalformed
	}

	if claims.Type != expectedType {
		return nil, model.ErrTokenSignatureMismatch
	}
	if claims.Subject == "" {
		return nil, model.ErrTokenMalformed
	}

	return &model.AuthClaims{
		UserID:   claims.Subject,
		Username: claims.Username,
		Fullname: claims.Fullname,
		Type:     claims.Type,
		TokenID:  claims.ID,
	}, nil
}
