package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateUploadCache invalidates all caches touching one upload. Called
// after annotation writes, status changes and deletes.
func InvalidateUploadCache(ctx context.Context, cm *CacheManager, uploadID, userID string) {
	SafeDelete(ctx, cm.Upload,
		fmt.Sprintf("id:%s", uploadID),
		fmt.Sprintf("details:%s", uploadID))

	SafeInvalidatePattern(ctx, cm.Upload, fmt.Sprintf("user:%s:*", userID))
	SafeInvalidatePattern(ctx, cm.Share, fmt.Sprintf("upload:%s:*", uploadID))
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("upload:%s:*", uploadID))
}

// InvalidateCourseCache invalidates catalog listings and one course entry.
func InvalidateCourseCache(ctx context.Context, cm *CacheManager, courseID string) {
	SafeDelete(ctx, cm.Course, fmt.Sprintf("id:%s", courseID))
	SafeInvalidatePattern(ctx, cm.Course, "list:*")
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("course:%s:*", courseID))
}

// InvalidateShareCache drops the cached resolution for one token.
func InvalidateShareCache(ctx context.Context, cm *CacheManager, token string) {
	SafeDelete(ctx, cm.Share, fmt.Sprintf("token:%s", token))
}
