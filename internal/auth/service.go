package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrTokenRevoked = errors.New("token revoked")

// Service validates tokens and keeps a Redis deny-list of revoked token ids.
type Service struct {
	jwt         *JWTManager
	redisClient *redis.Client
}

func NewService(jwt *JWTManager, redisClient *redis.Client) *Service {
	return &Service{
		jwt:         jwt,
		redisClient: redisClient,
	}
}

func revokedKey(tokenID string) string {
	return "revoked:" + tokenID
}

// Revoke denies a token until its natural expiry.
func (s *Service) Revoke(ctx context.Context, claims *AccessClaims) error {
	ttl := s.jwt.Expiry()
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}
	if err := s.redisClient.Set(ctx, revokedKey(claims.ID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("storing revocation: %w", err)
	}
	return nil
}

// ValidateAccessToken checks the signature and the deny-list. Redis errors fail open.
func (s *Service) ValidateAccessToken(ctx context.Context, token string) (*AccessClaims, error) {
	claims, err := s.jwt.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" || s.redisClient == nil {
		return claims, nil
	}

	n, err := s.redisClient.Exists(ctx, revokedKey(claims.ID)).Result()
	if err != nil {
		return claims, nil
	}
	if n > 0 {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

func (s *Service) JWT() *JWTManager {
	return s.jwt
}
