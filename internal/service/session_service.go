package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"spendview/internal/domain"
)

// SessionService emite y valida el token firmado que viaja en la cookie session_id.
type SessionService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

var (
	ErrSessionInvalid = errors.New("session invalid")
	ErrSessionExpired = errors.New("session expired")
)

const defaultSessionTTL = 30 * 24 * time.Hour

func NewSessionService(secret string, ttl time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "spendview",
		now:    time.Now,
	}
}

func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Issue crea una sesion nueva con su token.
func (s *SessionService) Issue() (domain.Session, error) {
	if len(s.secret) == 0 {
		return domain.Session{}, ErrSessionInvalid
	}
	now := s.now().UTC()
	id := uuid.NewString()
	claims := SessionClaims{
		SessionID: id,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{
		ID:        id,
		Token:     signed,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}, nil
}

// Resolve valida el token de la cookie y devuelve la sesion que representa.
func (s *SessionService) Resolve(token string) (domain.Session, error) {
	if len(s.secret) == 0 {
		return domain.Session{}, ErrSessionInvalid
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Session{}, ErrSessionInvalid
	}

	var claims SessionClaims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	_, err := parser.ParseWithClaims(token, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Session{}, ErrSessionExpired
		}
		return domain.Session{}, ErrSessionInvalid
	}
	if strings.TrimSpace(claims.SessionID) == "" || claims.Subject != claims.SessionID {
		return domain.Session{}, ErrSessionInvalid
	}

	session := domain.Session{ID: claims.SessionID, Token: token}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}
