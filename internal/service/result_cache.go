package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"courseforge/internal/cache"
	"courseforge/internal/domain"
	"courseforge/internal/dto"
	"courseforge/internal/logger"

	"go.uber.org/zap"
)

// ErrCourseResultNotFound is returned when a cached result is not found.
var ErrCourseResultNotFound = errors.New("course result not found in cache")

// CourseResultCacheService caches the latest pipeline result per session so
// the presentation layer can re-serve it without re-running the pipeline.
// This is the only state kept across calls, and only for the session's TTL.
type CourseResultCacheService interface {
	Put(ctx context.Context, sessionID string, result *dto.CourseContentResponse) error
	Get(ctx context.Context, sessionID string) (*dto.CourseContentResponse, error)
}

type courseResultCacheService struct {
	cache domain.Cache
	ttl   time.Duration
}

// NewCourseResultCacheService creates a new course result cache. A nil cache
// yields a no-op implementation so the pipeline stays usable without Redis.
func NewCourseResultCacheService(cache domain.Cache, ttl time.Duration) CourseResultCacheService {
	if cache == nil {
		logger.Get().Warn("CourseResultCacheService initialized with nil cache. Service will be no-op.")
		return &noopCourseResultCacheService{}
	}
	return &courseResultCacheService{
		cache: cache,
		ttl:   ttl,
	}
}

func (s *courseResultCacheService) generateKey(sessionID string) string {
	return cache.GenerateCacheKey("course", "result", sessionID)
}

// Put stores a session's generated course content.
func (s *courseResultCacheService) Put(ctx context.Context, sessionID string, result *dto.CourseContentResponse) error {
	if result == nil {
		return domain.NewInvalidInputError("cannot cache nil result")
	}

	key := s.generateKey(sessionID)
	dataBytes, err := json.Marshal(result)
	if err != nil {
		logger.Get().Error("Failed to marshal course result for caching", zap.Error(err), zap.String("session_id", sessionID))
		return domain.NewInternalError("failed to marshal course result for caching", err)
	}

	if err := s.cache.Set(ctx, key, string(dataBytes), s.ttl); err != nil {
		logger.Get().Error("Failed to cache course result", zap.Error(err), zap.String("key", key))
		return domain.NewInternalError(fmt.Sprintf("failed to set course result to cache for key %s", key), err)
	}
	logger.Get().Debug("Cached course result", zap.String("key", key), zap.Duration("ttl", s.ttl))
	return nil
}

// Get retrieves a session's generated course content.
func (s *courseResultCacheService) Get(ctx context.Context, sessionID string) (*dto.CourseContentResponse, error) {
	key := s.generateKey(sessionID)
	dataString, err := s.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
			logger.Get().Debug("Course result cache miss", zap.String("key", key))
			return nil, ErrCourseResultNotFound
		}
		logger.Get().Error("Failed to get course result from cache", zap.Error(err), zap.String("key", key))
		return nil, domain.NewInternalError(fmt.Sprintf("failed to get course result from cache for key %s", key), err)
	}
	if dataString == "" {
		return nil, ErrCourseResultNotFound
	}

	var result dto.CourseContentResponse
	if err := json.Unmarshal([]byte(dataString), &result); err != nil {
		logger.Get().Error("Failed to unmarshal course result from cache", zap.Error(err), zap.String("key", key))
		return nil, domain.NewInternalError(fmt.Sprintf("failed to unmarshal course result from cache for key %s", key), err)
	}
	return &result, nil
}

// noopCourseResultCacheService is used when caching is disabled.
type noopCourseResultCacheService struct{}

func (s *noopCourseResultCacheService) Put(ctx context.Context, sessionID string, result *dto.CourseContentResponse) error {
	return nil
}

func (s *noopCourseResultCacheService) Get(ctx context.Context, sessionID string) (*dto.CourseContentResponse, error) {
	return nil, ErrCourseResultNotFound
}
