package jwt

import (
	"crimson-backend/domain"
	"crimson-backend/internal/utils"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const tokenTTL = time.Minute * 120

type (
	JWTService interface {
		GenerateTokenUser(address string, role string) (string, error)
		ValidateTokenUser(token string) (*jwt.Token, error)
		GetUserIDByToken(token string) (string, string, error)
	}

	jwtUserClaim struct {
		Address string `json:"address"`
		Role    string `json:"role"`
		jwt.RegisteredClaims
	}

	jwtService struct {
		secretKey string
		issuer    string
		now       func() time.Time
	}
)

func getSecretKey() string {
	utils.LoadConfig()
	secretKey := utils.GetConfig("JWT_SECRET")
	return secretKey
}

func NewJWTService() JWTService {
	return NewJWTServiceWithSecret(getSecretKey())
}

func NewJWTServiceWithSecret(secret string) JWTService {
	return &jwtService{
		secretKey: secret,
		issuer:    "CRIMSON",
		now:       time.Now,
	}
}

// GenerateTokenUser issues a session token for a wallet. The address is
// stored lowercased so it compares equal to addresses read from the ledger
// after the same normalisation.
func (j *jwtService) GenerateTokenUser(address string, role string) (string, error) {
	now := j.now()
	claims := jwtUserClaim{
		strings.ToLower(address),
		role,
		jwt.RegisteredClaims{
			Subject:   strings.ToLower(address),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.secretKey))
}

func (j *jwtService) parseToken(t_ *jwt.Token) (any, error) {
	if _, ok := t_.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t_.Header["alg"])
	}
	return []byte(j.secretKey), nil
}

func (j *jwtService) ValidateTokenUser(token string) (*jwt.Token, error) {
	return jwt.ParseWithClaims(token, &jwtUserClaim{}, j.parseToken)
}

// GetUserIDByToken returns the wallet address and role carried by token.
func (j *jwtService) GetUserIDByToken(token string) (string, string, error) {
	t_Token, err := j.ValidateTokenUser(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", domain.ErrTokenExpired
		}
		return "", "", domain.ErrTokenInvalid
	}
	if !t_Token.Valid {
		return "", "", domain.ErrTokenInvalid
	}

	claims := t_Token.Claims.(*jwtUserClaim)
	if claims.Issuer != j.issuer {
		return "", "", domain.ErrTokenInvalid
	}
	return claims.Address, claims.Role, nil
}
