package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/hemolink/hemolink-backend/internal/database"
)

const (
	// AdminSessionDuration is 12 hours
	AdminSessionDuration = 12 * time.Hour
	// AdminSessionKeyPrefix is the Redis key prefix for admin sessions
	AdminSessionKeyPrefix = "admin_session:"
)

// ErrSessionsUnavailable is returned when Redis is not connected; admin
// sign-in is disabled in that case.
var ErrSessionsUnavailable = errors.New("admin sessions unavailable: Redis not connected")

// CreateAdminSession creates a new admin session token and stores it in
// Redis with a 12-hour expiry.
func CreateAdminSession(ctx context.Context) (string, error) {
	if database.RedisClient == nil {
		return "", ErrSessionsUnavailable
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := base64.URLEncoding.EncodeToString(tokenBytes)

	key := AdminSessionKeyPrefix + token
	if err := database.RedisClient.Set(ctx, key, "admin", AdminSessionDuration).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// ValidateAdminSession checks whether a session token is live.
func ValidateAdminSession(ctx context.Context, token string) bool {
	if token == "" || database.RedisClient == nil {
		return false
	}
	_, err := database.RedisClient.Get(ctx, AdminSessionKeyPrefix+token).Result()
	return err == nil
}

// InvalidateAdminSession removes a session (sign-out).
func InvalidateAdminSession(ctx context.Context, token string) error {
	if database.RedisClient == nil {
		return ErrSessionsUnavailable
	}
	return database.RedisClient.Del(ctx, AdminSessionKeyPrefix+token).Err()
}
