package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// accessClaims полезная нагрузка access токена: sub это userID, роль задаёт сервис авторизации.
type accessClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager проверяет HS256 access токены, выпущенные сервисом авторизации.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(accessSecret string, accessTTL time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(accessSecret), ttl: accessTTL}
}

// GenerateAccess выпускает access токен. Нужен тестам и локальной разработке.
func (m *TokenManager) GenerateAccess(userID uuid.UUID, role string) (string, error) {
	now := time.Now()
	claims := accessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// ParseAccess проверяет подпись и срок действия и возвращает userID и роль.
func (m *TokenManager) ParseAccess(token string) (uuid.UUID, string, error) {
	var claims accessClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return uuid.Nil, "", err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", jwt.ErrTokenInvalidSubject
	}
	return userID, claims.Role, nil
}
