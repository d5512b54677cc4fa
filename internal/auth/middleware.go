package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"sessionboard-backend/internal/model"
)

const claimsKey = "claims"

var errNoToken = errors.New("missing authorization token")

// extractToken Authorization 헤더 → access_token 쿠키 → token 쿼리 순으로 확인
// (브라우저 WebSocket은 헤더를 보낼 수 없어 쿼리 허용)
func extractToken(c *fiber.Ctx) (string, error) {
	if header := c.Get("Authorization"); header != "" {
		parts := strings.Split(header, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return "", errors.New("invalid authorization header format")
		}
		return parts[1], nil
	}
	if cookie := c.Cookies("access_token"); cookie != "" {
		return cookie, nil
	}
	if q := c.Query("token"); q != "" {
		return q, nil
	}
	return "", errNoToken
}

// AuthMiddleware JWT 인증 미들웨어
func AuthMiddleware(jwtManager *JWTManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := extractToken(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		}

		// 토큰 검증
		claims, err := jwtManager.ValidateAccessToken(token)
		if err != nil {
			if errors.Is(err, ErrExpiredToken) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"success": false,
					"error":   "token expired",
					"code":    "TOKEN_EXPIRED",
				})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "invalid token",
			})
		}

		// 사용자 정보를 컨텍스트에 저장
		c.Locals("userID", claims.UserID)
		c.Locals("nickname", claims.Nickname)
		c.Locals(claimsKey, claims)

		return c.Next()
	}
}

// GetClaimsFromContext AuthMiddleware가 저장한 클레임 조회
func GetClaimsFromContext(c *fiber.Ctx) (*Claims, error) {
	claims, ok := c.Locals(claimsKey).(*Claims)
	if !ok || claims == nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IdentityFrom 요청자 신원 (인증되지 않았으면 zero 값)
func IdentityFrom(c *fiber.Ctx) model.Identity {
	claims, err := GetClaimsFromContext(c)
	if err != nil {
		return model.Identity{}
	}
	return claims.Identity()
}
