package statistics

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/newspin/newspin/app/models"
	"github.com/newspin/newspin/internal/pkg/cache"
	"github.com/newspin/newspin/internal/pkg/database"
)

const (
	CacheKeyPostsTotal    = "statistics:posts:total"
	CacheKeyPostsToday    = "statistics:posts:today"
	CacheKeyUsersTotal    = "statistics:users:total"
	CacheKeySubsActive    = "statistics:subscriptions:active"
	CacheKeyPinnedTotal   = "statistics:pins:total"
	CacheKeyCommentsTotal = "statistics:comments:total"
	CacheExpiration       = 30 * time.Minute
)

// StatisticsData holds the aggregate numbers shown on the public stats endpoint
type StatisticsData struct {
	TotalPosts          int `json:"total_posts"`
	TodayPosts          int `json:"today_posts"`
	TotalUsers          int `json:"total_users"`
	ActiveSubscriptions int `json:"active_subscriptions"`
	PinnedPosts         int `json:"pinned_posts"`
	TotalComments       int `json:"total_comments"`
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache checks whether the cached numbers are stale
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded refreshes the cache when the interval has passed
func UpdateCacheIfNeeded() {
	if ShouldUpdateCache() {
		cacheUpdateMutex.Lock()
		defer cacheUpdateMutex.Unlock()

		if err := UpdateStatisticsCache(); err != nil {
			log.Printf("Error updating statistics cache: %v", err)
		} else {
			lastCacheUpdate = time.Now()
		}
	}
}

// ResetCacheUpdateTimer forces the next UpdateCacheIfNeeded to refresh
func ResetCacheUpdateTimer() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	lastCacheUpdate = time.Time{}
}

// UpdateStatisticsCache recounts everything and writes the numbers to Redis
func UpdateStatisticsCache() error {
	db := database.GetDB()
	now := time.Now()

	var totalPosts int64
	if err := db.Model(&models.Post{}).Where("status = ?", models.PostStatusPublished).Count(&totalPosts).Error; err != nil {
		return err
	}

	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var todayPosts int64
	if err := db.Model(&models.Post{}).
		Where("status = ? AND created_at BETWEEN ? AND ?", models.PostStatusPublished, todayStart, todayStart.Add(24*time.Hour)).
		Count(&todayPosts).Error; err != nil {
		return err
	}

	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		return err
	}

	var activeSubs int64
	if err := db.Model(&models.Subscription{}).
		Where("status = ? AND start_date <= ? AND end_date >= ?", models.SubscriptionStatusActive, now, now).
		Count(&activeSubs).Error; err != nil {
		return err
	}

	var pinned int64
	if err := db.Model(&models.PinnedPost{}).Count(&pinned).Error; err != nil {
		return err
	}

	var totalComments int64
	if err := db.Model(&models.Comment{}).Count(&totalComments).Error; err != nil {
		return err
	}

	ctx := context.Background()
	rdb := cache.GetClient()
	values := map[string]int64{
		CacheKeyPostsTotal:    totalPosts,
		CacheKeyPostsToday:    todayPosts,
		CacheKeyUsersTotal:    totalUsers,
		CacheKeySubsActive:    activeSubs,
		CacheKeyPinnedTotal:   pinned,
		CacheKeyCommentsTotal: totalComments,
	}
	for key, value := range values {
		if err := rdb.Set(ctx, key, strconv.FormatInt(value, 10), CacheExpiration).Err(); err != nil {
			return err
		}
	}
	return nil
}

// GetStatistics returns the cached numbers, refreshing the cache when stale
func GetStatistics() StatisticsData {
	UpdateCacheIfNeeded()

	ctx := context.Background()
	rdb := cache.GetClient()

	read := func(key string) int {
		raw, err := rdb.Get(ctx, key).Result()
		if err != nil {
			return 0
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			return 0
		}
		return value
	}

	return StatisticsData{
		TotalPosts:          read(CacheKeyPostsTotal),
		TodayPosts:          read(CacheKeyPostsToday),
		TotalUsers:          read(CacheKeyUsersTotal),
		ActiveSubscriptions: read(CacheKeySubsActive),
		PinnedPosts:         read(CacheKeyPinnedTotal),
		TotalComments:       read(CacheKeyCommentsTotal),
	}
}
