package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ViewCounter counts at most one view per viewer and post within a window.
// Without redis every view counts.
type ViewCounter struct {
	rdb    *redis.Client
	window time.Duration
}

func NewViewCounter(rdb *redis.Client, window time.Duration) *ViewCounter {
	if window <= 0 {
		window = 10 * time.Minute
	}
	return &ViewCounter{rdb: rdb, window: window}
}

func (v *ViewCounter) ShouldCount(ctx context.Context, postID int64, viewerKey string) bool {
	if v.rdb == nil || viewerKey == "" {
		return true
	}

	ok, err := v.rdb.SetNX(ctx, viewKey(postID, viewerKey), 1, v.window).Result()
	if err != nil {
		slog.WarnContext(ctx, "view dedupe unavailable", slog.String("error", err.Error()), slog.String("module", "viewcounter"))
		return true
	}
	return ok
}

func viewKey(postID int64, viewerKey string) string {
	return fmt.Sprintf("community:view:%d:%s", postID, viewerKey)
}
