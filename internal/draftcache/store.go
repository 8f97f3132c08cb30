// Package draftcache хранит черновик предложения в быстром временном кэше.
//
// Кэш не является источником истины: любые его ошибки журналируются и
// трактуются как отсутствие черновика.
package draftcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/danielkolev/offersrv-sub002/internal/model"
)

// ErrCacheUnavailable возвращается KV-хранилищем, если оно не настроено.
var ErrCacheUnavailable = errors.New("draft cache unavailable")

// KV описывает строковое хранилище ключ-значение, поверх которого работает Store.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Store хранит один черновик под фиксированным ключом.
type Store struct {
	kv     KV
	key    string
	logger *zap.Logger
}

// NewStore создаёт хранилище черновика поверх kv с ключом key.
func NewStore(kv KV, key string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		kv:     kv,
		key:    key,
		logger: logger,
	}
}

// Save сохраняет предложение целиком, заменяя предыдущее.
func (s *Store) Save(ctx context.Context, o model.Offer) {
	if s == nil {
		return
	}
	if err := s.save(ctx, o); err != nil {
		s.logger.Warn("save draft to cache", zap.String("key", s.key), zap.Error(err))
	}
}

func (s *Store) save(ctx context.Context, o model.Offer) error {
	if s.kv == nil {
		return ErrCacheUnavailable
	}
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal offer: %w", err)
	}
	return s.kv.Set(ctx, s.key, string(data))
}

// Load возвращает сохранённое предложение или nil, если его нет или его не удалось прочитать.
func (s *Store) Load(ctx context.Context) *model.Offer {
	if s == nil || s.kv == nil {
		return nil
	}

	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.logger.Warn("load draft from cache", zap.String("key", s.key), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	o, err := model.DecodeOffer([]byte(raw))
	if err != nil {
		s.logger.Warn("decode cached draft", zap.String("key", s.key), zap.Error(err))
		return nil
	}
	return &o
}

// Clear удаляет черновик из кэша.
func (s *Store) Clear(ctx context.Context) {
	if s == nil || s.kv == nil {
		return
	}
	if err := s.kv.Remove(ctx, s.key); err != nil {
		s.logger.Warn("clear cached draft", zap.String("key", s.key), zap.Error(err))
	}
}
