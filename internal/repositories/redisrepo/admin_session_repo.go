// Package redisrepo keeps admin sessions in redis so several server instances
// share revocations.
package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/idealempregos/portal/internal/models"
	"github.com/idealempregos/portal/internal/utils"
	"github.com/redis/go-redis/v9"
)

// AdminSessionRepo stores each session as JSON under admin_session:<id> with a
// TTL matching the token lifetime.
type AdminSessionRepo struct {
	rdb *redis.Client
	now func() time.Time
}

func NewAdminSessionRepo(rdb *redis.Client) *AdminSessionRepo {
	return &AdminSessionRepo{rdb: rdb, now: time.Now}
}

func sessionKey(id string) string {
	return fmt.Sprintf("admin_session:%s", id)
}

func (r *AdminSessionRepo) Create(ctx context.Context, s *models.AdminSession) error {
	ttl := s.ExpiraEm.Sub(r.now())
	if ttl <= 0 {
		return errors.New("admin session already expired")
	}

	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, sessionKey(s.ID), b, ttl).Err()
}

func (r *AdminSessionRepo) Get(ctx context.Context, id string) (*models.AdminSession, error) {
	raw, err := r.rdb.Get(ctx, sessionKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var s models.AdminSession
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		// corrupt entry: drop it and treat as missing
		_ = r.rdb.Del(ctx, sessionKey(id)).Err()
		return nil, utils.ErrNotFound
	}
	return &s, nil
}

func (r *AdminSessionRepo) Revoke(ctx context.Context, id string, at time.Time) error {
	s, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if s.RevogadoEm != nil {
		return utils.ErrNotFound
	}
	s.RevogadoEm = &at

	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, sessionKey(id), b, redis.KeepTTL).Err()
}
