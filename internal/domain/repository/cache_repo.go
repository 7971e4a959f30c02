package repository

import (
	"context"
	"time"
)

// CacheRepository - кеш списков вопросов и ключи идемпотентности ответов.
// Отсутствующий ключ возвращается как apperrors.ErrNotFound.
type CacheRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, keys ...string) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetJSON(ctx context.Context, key string, dest interface{}) error
	// SetNX возвращает false, если ключ уже существует
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
}
