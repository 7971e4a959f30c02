package auth

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	tokenIssuer   = "teamquiz-api"
	tokenAudience = "teamquiz-team"
)

// Ошибки разбора токена
var (
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token is expired")
	ErrTokenInvalid   = errors.New("invalid token")
)

// TeamClaims содержит пользовательские поля токена команды
type TeamClaims struct {
	TeamID   uuid.UUID `json:"team_id"`
	TeamName string    `json:"team_name"`
	jwt.RegisteredClaims
}

// JWTService выпускает и проверяет HS256 токены команд
type JWTService struct {
	secret        []byte
	expirationHrs int
	now           func() time.Time
}

// NewJWTService создает сервис JWT и возвращает ошибку при пустом секрете
func NewJWTService(secret string, expirationHrs int) (*JWTService, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is required for JWTService")
	}
	// 7 дней по умолчанию
	if expirationHrs <= 0 {
		expirationHrs = 168
	}
	return &JWTService{
		secret:        []byte(secret),
		expirationHrs: expirationHrs,
		now:           time.Now,
	}, nil
}

// Expiration возвращает срок жизни токена
func (s *JWTService) Expiration() time.Duration {
	return time.Duration(s.expirationHrs) * time.Hour
}

// GenerateTeamToken выпускает токен для команды
func (s *JWTService) GenerateTeamToken(teamID uuid.UUID, teamName string) (string, time.Time, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.Expiration())

	claims := &TeamClaims{
		TeamID:   teamID,
		TeamName: teamName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			Issuer:    tokenIssuer,
			Subject:   teamID.String(),
			Audience:  jwt.ClaimStrings{tokenAudience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		log.Printf("[JWT] Ошибка генерации токена для команды %s: %v", teamID, err)
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken проверяет подпись и срок действия токена
func (s *JWTService) ParseToken(tokenString string) (*TeamClaims, error) {
	claims := &TeamClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) {
			switch {
			case ve.Errors&jwt.ValidationErrorMalformed != 0:
				return nil, ErrTokenMalformed
			case ve.Errors&jwt.ValidationErrorExpired != 0:
				log.Printf("[JWT] Токен команды %s истек", claims.TeamID)
				return nil, ErrTokenExpired
			}
		}
		log.Printf("[JWT] Ошибка при разборе токена: %v", err)
		return nil, ErrTokenInvalid
	}

	if !token.Valid || claims.TeamID == uuid.Nil {
		return nil, ErrTokenInvalid
	}
	if !claims.VerifyAudience(tokenAudience, true) {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
