package middleware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"github.com/udhaarpay/backend/internal/models"
	"github.com/udhaarpay/backend/internal/services"
)

type ctxKey int

const sessionKey ctxKey = iota

// Session is the authenticated caller, carried in the request context.
type Session struct {
	AccountID string
	Role      models.Role
}

var blacklist *redis.Client

// InitAuthMiddleware enables revoked-token checks against Redis.
func InitAuthMiddleware(rdb *redis.Client) {
	blacklist = rdb
}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func SessionFrom(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey).(*Session)
	return s, ok && s != nil
}

func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			services.SendErrorResponse(w, err.Error(), http.StatusUnauthorized, nil)
			return
		}

		if revoked(r.Context(), token) {
			services.SendErrorResponse(w, "Token has been revoked", http.StatusUnauthorized, nil)
			return
		}

		session, err := validateToken(token)
		if err != nil {
			services.SendErrorResponse(w, "Invalid token", http.StatusUnauthorized, nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
	})
}

// RequireRole rejects callers whose session role is not listed.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := SessionFrom(r.Context())
			if !ok {
				services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
				return
			}
			for _, role := range roles {
				if session.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			services.SendCodedErrorResponse(w, "Role not permitted for this operation", "Forbidden", http.StatusForbidden, nil)
		})
	}
}

// Logout revokes the presented token until it would have expired anyway.
// @Summary Revoke token
// @Description Blacklist the bearer token for its remaining lifetime
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string "Logout successful"
// @Router /auth/logout [post]
func Logout(w http.ResponseWriter, r *http.Request) {
	token, err := bearerToken(r)
	if err == nil && blacklist != nil {
		key := fmt.Sprintf("blacklist:%s", token)
		expiry := time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour
		if err := blacklist.Set(r.Context(), key, "1", expiry).Err(); err != nil {
			log.Printf("[AUTH] Failed to blacklist token: %v", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"message":"Logout successful"}`))
}

// IssueToken signs a session token. Production tokens come from the identity
// service; this is used for local tooling and tests.
func IssueToken(accountID string, role models.Role, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"account_id": accountID,
		"role":       string(role),
		"iat":        time.Now().Unix(),
		"exp":        time.Now().Add(ttl).Unix(),
	})
	return token.SignedString([]byte(viper.GetString("jwt.secret_key")))
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("Authorization header required")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errors.New("Invalid authorization header format")
	}
	return parts[1], nil
}

func revoked(ctx context.Context, token string) bool {
	if blacklist == nil {
		return false
	}
	n, err := blacklist.Exists(ctx, fmt.Sprintf("blacklist:%s", token)).Result()
	if err != nil {
		log.Printf("[AUTH] blacklist lookup failed: %v", err)
		return false
	}
	return n > 0
}

func validateToken(tokenString string) (*Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(viper.GetString("jwt.secret_key")), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}

	accountID, _ := claims["account_id"].(string)
	role, _ := claims["role"].(string)
	if accountID == "" {
		return nil, errors.New("token has no account_id")
	}

	switch models.Role(role) {
	case models.RoleCustomer, models.RoleShopkeeper, models.RoleOwner, models.RoleSystem:
	default:
		return nil, fmt.Errorf("unknown role %q", role)
	}

	return &Session{AccountID: accountID, Role: models.Role(role)}, nil
}
