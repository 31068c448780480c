package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"character-quiz/internal/domain"
)

// JWTService emite y valida tokens de sesion del cuestionario.
// Cada token queda atado a una unica sesion (claim sid).
type JWTService struct {
	secret []byte
	grace  time.Duration
	issuer string
	now    func() time.Time
}

type SessionClaims struct {
	SessionID string `json:"sid"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

var (
	ErrJWTInvalid = errors.New("jwt invalid")
	ErrJWTExpired = errors.New("jwt expired")
)

const sessionTokenType = "session"

// NewJWTService crea el emisor. grace es cuanto vive el token despues del deadline
// de la sesion (para leer puntajes y analisis al terminar).
func NewJWTService(secret string, grace time.Duration) *JWTService {
	if grace <= 0 {
		grace = 30 * time.Minute
	}
	return &JWTService{
		secret: []byte(secret),
		grace:  grace,
		issuer: "character-quiz",
		now:    time.Now,
	}
}

// IssueSessionToken firma un token para la sesion dada.
func (s *JWTService) IssueSessionToken(rec domain.SessionRecord) (string, error) {
	if len(s.secret) == 0 || strings.TrimSpace(rec.ID) == "" {
		return "", ErrJWTInvalid
	}
	now := s.now().UTC()
	expires := now.Add(s.grace)
	if !rec.Deadline.IsZero() {
		expires = rec.Deadline.Add(s.grace)
	}
	claims := SessionClaims{
		SessionID: rec.ID,
		TokenType: sessionTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   rec.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseSessionToken valida firma, expiracion, emisor y tipo.
func (s *JWTService) ParseSessionToken(tokenString string) (SessionClaims, error) {
	if len(s.secret) == 0 {
		return SessionClaims{}, ErrJWTInvalid
	}
	if strings.TrimSpace(tokenString) == "" {
		return SessionClaims{}, ErrJWTInvalid
	}
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return SessionClaims{}, err
	}
	if !s.isValidClaims(claims) {
		return SessionClaims{}, ErrJWTInvalid
	}
	return claims, nil
}

func (s *JWTService) parseToken(tokenString string) (SessionClaims, error) {
	var claims SessionClaims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return SessionClaims{}, ErrJWTExpired
		}
		return SessionClaims{}, ErrJWTInvalid
	}
	return claims, nil
}

func (s *JWTService) isValidClaims(claims SessionClaims) bool {
	if claims.TokenType != sessionTokenType {
		return false
	}
	if strings.TrimSpace(claims.SessionID) == "" {
		return false
	}
	if claims.Subject != claims.SessionID {
		return false
	}
	return strings.TrimSpace(claims.Issuer) == s.issuer
}
