package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleMember = "member"
	RoleAdmin  = "admin"

	jwtIssuer   = "campusmarket-api"
	jwtAudience = "campusmarket-users"

	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenType separates short-lived access tokens from the refresh tokens that
// may only be exchanged at /auth/refresh.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

func (t TokenType) ttl() time.Duration {
	if t == TokenRefresh {
		return RefreshTokenTTL
	}
	return AccessTokenTTL
}

var (
	ErrTokenExpired     = errors.New("token expired")
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidTokenType = errors.New("invalid token type")
	ErrEmptyJWTSecret   = errors.New("jwt secret cannot be empty")
)

type JWTClaims struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func CheckPassword(hashedPassword, plainPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(plainPassword)) == nil
}

func sign(typ TokenType, userID, email, role, secret string) (string, error) {
	switch {
	case secret == "":
		return "", ErrEmptyJWTSecret
	case userID == "":
		return "", ErrInvalidToken
	}

	now := time.Now()
	claims := JWTClaims{
		UserID:    userID,
		Email:     email,
		Role:      role,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    jwtIssuer,
			Audience:  jwt.ClaimStrings{jwtAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(typ.ttl())),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func GenerateAccessToken(userID, email, role, secret string) (string, error) {
	return sign(TokenAccess, userID, email, role, secret)
}

func GenerateRefreshToken(userID, email, role, secret string) (string, error) {
	return sign(TokenRefresh, userID, email, role, secret)
}

// GenerateTokens issues the access and refresh pair handed out at register
// and login.
func GenerateTokens(userID, email, role, secret string) (access, refresh string, err error) {
	if access, err = GenerateAccessToken(userID, email, role, secret); err != nil {
		return "", "", err
	}
	if refresh, err = GenerateRefreshToken(userID, email, role, secret); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// ValidateToken parses tokenString and requires it to be of type want.
func ValidateToken(tokenString, secret string, want TokenType) (*JWTClaims, error) {
	if secret == "" {
		return nil, ErrEmptyJWTSecret
	}

	var claims JWTClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims,
		func(token *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(jwtIssuer),
		jwt.WithAudience(jwtAudience),
		jwt.WithExpirationRequired(),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, err
	case !token.Valid || claims.UserID == "":
		return nil, ErrInvalidToken
	case claims.TokenType != want:
		return nil, ErrInvalidTokenType
	}
	return &claims, nil
}
