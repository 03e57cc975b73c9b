package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-market-api/internal/dto"
	"github.com/noah-isme/course-market-api/internal/models"
	appErrors "github.com/noah-isme/course-market-api/pkg/errors"
)

// Catalog cache key layout. Listing keys embed the filter, detail keys the
// course slug, so a single course edit never flushes the other course pages.
const (
	categoriesKey      = "catalog:categories"
	courseListPrefix   = "catalog:courses:"
	courseDetailPrefix = "catalog:course:"
)

type catalogCacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// CatalogCache holds the public catalog views: the category list, filtered
// course listings and per-slug course pages. Failures are logged and treated
// as misses; the database stays the source of truth. A nil *CatalogCache is a
// disabled cache.
type CatalogCache struct {
	store   catalogCacheStore
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool
}

// NewCatalogCache constructs the cache.
func NewCatalogCache(store catalogCacheStore, metrics *MetricsService, ttl time.Duration, logger *zap.Logger, enabled bool) *CatalogCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogCache{store: store, metrics: metrics, ttl: ttl, logger: logger, enabled: enabled && store != nil}
}

// Enabled reports whether reads and writes reach the store.
func (c *CatalogCache) Enabled() bool {
	return c != nil && c.enabled
}

func courseListKey(filter models.CourseFilter) string {
	return courseListPrefix + filter.CategoryID + ":" + strings.ToLower(strings.TrimSpace(filter.Search))
}

func courseDetailKey(slug string) string {
	return courseDetailPrefix + slug
}

// Categories returns the cached category list.
func (c *CatalogCache) Categories(ctx context.Context) ([]models.Category, bool) {
	var categories []models.Category
	return categories, c.get(ctx, categoriesKey, &categories)
}

// StoreCategories caches the category list.
func (c *CatalogCache) StoreCategories(ctx context.Context, categories []models.Category) {
	c.set(ctx, categoriesKey, categories)
}

// Courses returns the cached listing for filter.
func (c *CatalogCache) Courses(ctx context.Context, filter models.CourseFilter) ([]models.Course, bool) {
	var courses []models.Course
	return courses, c.get(ctx, courseListKey(filter), &courses)
}

// StoreCourses caches the listing for filter.
func (c *CatalogCache) StoreCourses(ctx context.Context, filter models.CourseFilter, courses []models.Course) {
	c.set(ctx, courseListKey(filter), courses)
}

// CourseDetail returns the cached public page for slug.
func (c *CatalogCache) CourseDetail(ctx context.Context, slug string) (*dto.CourseDetail, bool) {
	var detail dto.CourseDetail
	if !c.get(ctx, courseDetailKey(slug), &detail) {
		return nil, false
	}
	return &detail, true
}

// StoreCourseDetail caches the public page for slug.
func (c *CatalogCache) StoreCourseDetail(ctx context.Context, slug string, detail dto.CourseDetail) {
	c.set(ctx, courseDetailKey(slug), detail)
}

// CategoriesChanged drops the category list.
func (c *CatalogCache) CategoriesChanged(ctx context.Context) {
	c.evict(ctx, categoriesKey)
}

// CoursesChanged drops every listing plus the pages of the given slugs. Pass
// both the old and the new slug when a course is renamed.
func (c *CatalogCache) CoursesChanged(ctx context.Context, slugs ...string) {
	c.evictPrefix(ctx, courseListPrefix)
	keys := make([]string, 0, len(slugs))
	for _, slug := range slugs {
		if slug != "" {
			keys = append(keys, courseDetailKey(slug))
		}
	}
	c.evict(ctx, keys...)
}

// CourseContentChanged drops the page of one course after a season or episode
// edit. An empty slug means the course could not be resolved and every page
// is dropped.
func (c *CatalogCache) CourseContentChanged(ctx context.Context, slug string) {
	if slug == "" {
		c.evictPrefix(ctx, courseDetailPrefix)
		return
	}
	c.evict(ctx, courseDetailKey(slug))
}

func (c *CatalogCache) get(ctx context.Context, key string, dest interface{}) bool {
	if !c.Enabled() {
		return false
	}
	start := time.Now()
	err := c.store.Get(ctx, key, dest)
	hit := err == nil
	c.metrics.RecordCacheOperation(hit, time.Since(start))
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		c.logger.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
	}
	return hit
}

func (c *CatalogCache) set(ctx context.Context, key string, value interface{}) {
	if !c.Enabled() {
		return
	}
	start := time.Now()
	if err := c.store.Set(ctx, key, value, c.ttl); err != nil {
		c.logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
		return
	}
	c.metrics.ObserveCacheWrite(time.Since(start))
}

func (c *CatalogCache) evict(ctx context.Context, keys ...string) {
	if !c.Enabled() || len(keys) == 0 {
		return
	}
	if err := c.store.Delete(ctx, keys...); err != nil {
		c.logger.Warn("catalog cache eviction failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (c *CatalogCache) evictPrefix(ctx context.Context, prefix string) {
	if !c.Enabled() {
		return
	}
	if err := c.store.DeletePrefix(ctx, prefix); err != nil {
		c.logger.Warn("catalog cache eviction failed", zap.String("prefix", prefix), zap.Error(err))
	}
}
