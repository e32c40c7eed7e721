package devserver

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const contextKeyUserID contextKey = "vaultx-user-id"

type resetToken struct {
	email     string
	expiresAt time.Time
}

// createSessionToken creates a signed JWT session token
func (s *Server) createSessionToken(userID int64, email string) (string, error) {
	now := s.config.Now()
	claims := jwt.MapClaims{
		"sub":   strconv.FormatInt(userID, 10),
		"email": email,
		"type":  "access",
		"iss":   s.config.JWTIssuer,
		"iat":   now.Unix(),
		"exp":   now.Add(s.config.TokenTTL).Unix(),
		"jti":   uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.JWTSecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// validateSessionToken validates a session token and returns its user id
func (s *Server) validateSessionToken(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecretKey), nil
	}, jwt.WithTimeFunc(s.config.Now), jwt.WithIssuer(s.config.JWTIssuer))
	if err != nil {
		return 0, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("invalid claims")
	}
	if tokenType, ok := claims["type"].(string); !ok || tokenType != "access" {
		return 0, fmt.Errorf("invalid token type")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return 0, fmt.Errorf("missing subject")
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subject: %w", err)
	}
	return userID, nil
}

// requireToken rejects requests without a valid bearer token and puts the
// user id in the request context
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		userID, err := s.validateSessionToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			s.config.Logger.Debug("rejected token", "error", err)
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		s.mu.Lock()
		_, exists := s.users[userID]
		s.mu.Unlock()
		if !exists {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyUserID, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(contextKeyUserID).(int64)
	return id
}
