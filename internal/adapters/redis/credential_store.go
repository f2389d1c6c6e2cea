package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	domainauth "github.com/polibsk/incidents-ui-api/internal/domain/auth"
)

// Well-known durable credential keys. The token entry holds the current
// bearer token string; the roles entry holds the role list as a JSON array,
// order preserved. Both are written and cleared together.
const (
	CredentialTokenKey = "auth:token"
	CredentialRolesKey = "auth:roles"
)

// CredentialStore is the Redis-backed durable half of the client session
// cache. It implements ports.CredentialStore. Only the session cache
// component may call Put and Clear, and only on its two state transitions.
type CredentialStore struct {
	client redis.UniversalClient
}

// NewCredentialStore creates a Redis-backed credential store.
func NewCredentialStore(client redis.UniversalClient) *CredentialStore {
	return &CredentialStore{client: client}
}

// Put writes both credential entries in one round trip so a reader never
// sees a token without its role list.
func (s *CredentialStore) Put(ctx context.Context, token string, roles []domainauth.Role) error {
	data, err := json.Marshal(roles)
	if err != nil {
		return fmt.Errorf("marshal roles: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, CredentialTokenKey, token, 0)
		pipe.Set(ctx, CredentialRolesKey, data, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("persist credentials: %w", err)
	}
	return nil
}

// Get reads the current credentials. Absent entries yield empty values, not
// an error: an empty token after sign-out is the expected state.
func (s *CredentialStore) Get(ctx context.Context) (string, []domainauth.Role, error) {
	token, err := s.client.Get(ctx, CredentialTokenKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil, nil
		}
		return "", nil, fmt.Errorf("get token: %w", err)
	}

	data, err := s.client.Get(ctx, CredentialRolesKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return token, nil, nil
		}
		return "", nil, fmt.Errorf("get roles: %w", err)
	}

	var roles []domainauth.Role
	if unmarshalErr := json.Unmarshal([]byte(data), &roles); unmarshalErr != nil {
		return "", nil, fmt.Errorf("unmarshal roles: %w", unmarshalErr)
	}

	return token, roles, nil
}

// Clear removes both credential entries together.
func (s *CredentialStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, CredentialTokenKey, CredentialRolesKey).Err(); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}
