// Package sidebar builds and caches the aggregate data shown in the blog's
// side panel.
package sidebar

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/quillblog/backend/internal/cache"
	"github.com/quillblog/backend/internal/logger"
	"github.com/quillblog/backend/internal/metrics"
	"github.com/quillblog/backend/internal/models"
	"github.com/quillblog/backend/internal/telemetry"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultTTL is how long a built bundle is cached
const DefaultTTL = 3 * time.Hour

const (
	keyPrefix     = "sidebar"
	cacheName     = "sidebar"
	tagWeightStep = 5
	tagWeightBase = 10
)

// ArticleSummary is an article as listed in the sidebar
type ArticleSummary struct {
	ID           uint      `json:"id"`
	Title        string    `json:"title"`
	Views        uint      `json:"views"`
	CreationTime time.Time `json:"creation_time"`
}

// CommentSummary is a recent comment as listed in the sidebar
type CommentSummary struct {
	ID           uint      `json:"id"`
	Body         string    `json:"body"`
	ArticleID    uint      `json:"article_id"`
	ArticleTitle string    `json:"article_title"`
	Author       string    `json:"author"`
	CreationTime time.Time `json:"creation_time"`
}

// TagWeight is a tag cloud entry
type TagWeight struct {
	ID     uint    `json:"id"`
	Name   string  `json:"name"`
	Slug   string  `json:"slug"`
	Count  int64   `json:"count"`
	Weight float64 `json:"weight"`
}

// Bundle is the cached sidebar aggregate. User is filled per request and never cached.
type Bundle struct {
	RecentArticles    []ArticleSummary   `json:"recent_articles"`
	MostReadArticles  []ArticleSummary   `json:"most_read_articles"`
	Categories        []models.Category  `json:"sidebar_categories"`
	ExtraSidebars     []models.SideBar   `json:"extra_sidebars"`
	ArticleDates      []time.Time        `json:"article_dates"`
	Links             []models.Link      `json:"sidebar_links"`
	Comments          []CommentSummary   `json:"sidebar_comments"`
	Tags              []TagWeight        `json:"sidebar_tags"`
	ShowGoogleAdsense bool               `json:"show_google_adsense"`
	GoogleAdsenseCode string             `json:"google_adsense_codes"`
	OpenSiteComment   bool               `json:"open_site_comment"`
	ShowGongAnCode    bool               `json:"show_gongan_code"`
	User              *models.PublicUser `json:"user"`
}

// Builder loads sidebar bundles through the cache
type Builder struct {
	db      *gorm.DB
	store   cache.Store
	ttl     time.Duration
	shuffle func(n int, swap func(i, j int))
}

// NewBuilder creates a builder. A non-positive ttl uses DefaultTTL.
func NewBuilder(db *gorm.DB, store cache.Store, ttl time.Duration) *Builder {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Builder{db: db, store: store, ttl: ttl, shuffle: rand.Shuffle}
}

// CacheKey returns the cache key of the bundle for a link show type
func CacheKey(linkType string) string {
	return keyPrefix + linkType
}

// Load returns the bundle for linkType with user injected, building and
// caching it on a miss. user may be nil for anonymous visitors.
func (b *Builder) Load(ctx context.Context, user *models.User, linkType string) (*Bundle, error) {
	key := CacheKey(linkType)

	var bundle Bundle
	err := cache.GetJSON(ctx, b.store, key, &bundle)
	switch {
	case err == nil:
		metrics.RecordCacheHit(cacheName)
	case errors.Is(err, cache.ErrCacheMiss):
		metrics.RecordCacheMiss(cacheName)
		built, buildErr := b.build(ctx, linkType)
		if buildErr != nil {
			return nil, buildErr
		}
		if setErr := cache.SetJSON(ctx, b.store, key, built, b.ttl); setErr != nil {
			logger.Log.Warn("Failed to cache sidebar", logger.WithCacheKey(key), zap.Error(setErr))
		} else {
			logger.Log.Info("Set sidebar cache", logger.WithCacheKey(key))
		}
		bundle = *built
	default:
		// A broken cache should not take the page down; rebuild uncached
		logger.Log.Warn("Sidebar cache read failed", logger.WithCacheKey(key), zap.Error(err))
		built, buildErr := b.build(ctx, linkType)
		if buildErr != nil {
			return nil, buildErr
		}
		bundle = *built
	}

	if user != nil {
		bundle.User = user.ToPublic()
	}
	return &bundle, nil
}

// Invalidate drops the cached bundle for every link show type
func (b *Builder) Invalidate(ctx context.Context) error {
	keys := make([]string, 0, len(models.LinkShowTypes))
	for _, t := range models.LinkShowTypes {
		keys = append(keys, CacheKey(t))
	}
	if err := b.store.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("invalidate sidebar cache: %w", err)
	}
	logger.Log.Debug("Sidebar cache invalidated")
	return nil
}

func (b *Builder) settings(ctx context.Context) (models.BlogSettings, error) {
	var s models.BlogSettings
	err := b.db.WithContext(ctx).Order("id ASC").First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DefaultBlogSettings(), nil
	}
	return s, err
}

func (b *Builder) build(ctx context.Context, linkType string) (*Bundle, error) {
	ctx, span := telemetry.TraceSidebarBuild(ctx, linkType)
	bundle, err := b.query(ctx, linkType)
	telemetry.EndSpan(span, err)
	return bundle, err
}

func (b *Builder) query(ctx context.Context, linkType string) (*Bundle, error) {
	start := time.Now()
	defer func() { metrics.RecordSidebarBuild(time.Since(start)) }()

	logger.Log.Info("Load sidebar", zap.String("link_type", linkType))
	db := b.db.WithContext(ctx)

	settings, err := b.settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load blog settings: %w", err)
	}

	bundle := &Bundle{
		ShowGoogleAdsense: settings.ShowGoogleAdsense,
		GoogleAdsenseCode: settings.GoogleAdsenseCodes,
		OpenSiteComment:   settings.OpenSiteComment,
		ShowGongAnCode:    settings.ShowGongAnCode,
	}

	published := db.Model(&models.Article{}).
		Select("id", "title", "views", "created_at").
		Where("status = ?", models.ArticlePublished)

	var recent []models.Article
	if err := published.Session(&gorm.Session{}).
		Order("created_at DESC").Order("id DESC").
		Limit(settings.SidebarArticleCount).
		Find(&recent).Error; err != nil {
		return nil, fmt.Errorf("load recent articles: %w", err)
	}
	bundle.RecentArticles = summarize(recent)

	var mostRead []models.Article
	if err := published.Session(&gorm.Session{}).
		Order("views DESC").Order("id DESC").
		Limit(settings.SidebarArticleCount).
		Find(&mostRead).Error; err != nil {
		return nil, fmt.Errorf("load most read articles: %w", err)
	}
	bundle.MostReadArticles = summarize(mostRead)

	if err := db.Order("id ASC").Find(&bundle.Categories).Error; err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	if err := db.Where("is_enable = ?", true).Order("sequence ASC").Find(&bundle.ExtraSidebars).Error; err != nil {
		return nil, fmt.Errorf("load extra sidebars: %w", err)
	}

	if bundle.ArticleDates, err = b.articleMonths(ctx); err != nil {
		return nil, err
	}

	if err := db.Where("is_enable = ?", true).
		Where("show_type = ? OR show_type = ?", linkType, models.LinkShowAll).
		Order("sequence ASC").
		Find(&bundle.Links).Error; err != nil {
		return nil, fmt.Errorf("load links: %w", err)
	}

	var comments []models.Comment
	if err := db.Preload("Author").Preload("Article").
		Where("is_enable = ?", true).
		Order("id DESC").
		Limit(settings.SidebarCommentCount).
		Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	bundle.Comments = summarizeComments(comments)

	if bundle.Tags, err = b.tagCloud(ctx); err != nil {
		return nil, err
	}

	return bundle, nil
}

func summarize(articles []models.Article) []ArticleSummary {
	out := make([]ArticleSummary, 0, len(articles))
	for _, a := range articles {
		out = append(out, ArticleSummary{ID: a.ID, Title: a.Title, Views: a.Views, CreationTime: a.CreatedAt})
	}
	return out
}

func summarizeComments(comments []models.Comment) []CommentSummary {
	out := make([]CommentSummary, 0, len(comments))
	for _, c := range comments {
		s := CommentSummary{ID: c.ID, Body: c.Body, ArticleID: c.ArticleID, CreationTime: c.CreatedAt}
		if c.Article != nil {
			s.ArticleTitle = c.Article.Title
		}
		if c.Author != nil {
			s.Author = c.Author.DisplayName()
		}
		out = append(out, s)
	}
	return out
}

// articleMonths returns the distinct creation months of all articles, newest first
func (b *Builder) articleMonths(ctx context.Context) ([]time.Time, error) {
	var times []time.Time
	if err := b.db.WithContext(ctx).Model(&models.Article{}).Pluck("created_at", &times).Error; err != nil {
		return nil, fmt.Errorf("load article dates: %w", err)
	}

	seen := make(map[time.Time]struct{}, len(times))
	months := make([]time.Time, 0)
	for _, t := range times {
		t = t.UTC()
		m := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].After(months[j]) })
	return months, nil
}

type tagCount struct {
	TagID uint
	Count int64
}

// tagCloud weights each tag with published articles by (count/average)*5+10,
// where the average is taken over all tags, then shuffles the result
func (b *Builder) tagCloud(ctx context.Context) ([]TagWeight, error) {
	db := b.db.WithContext(ctx)

	var tags []models.Tag
	if err := db.Order("id ASC").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	if len(tags) == 0 {
		return []TagWeight{}, nil
	}

	var counts []tagCount
	if err := db.Table("article_tags").
		Select("article_tags.tag_id AS tag_id, COUNT(DISTINCT articles.id) AS count").
		Joins("JOIN articles ON articles.id = article_tags.article_id").
		Where("articles.status = ?", models.ArticlePublished).
		Group("article_tags.tag_id").
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("count tag articles: %w", err)
	}

	byTag := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byTag[c.TagID] = c.Count
	}

	return weighTags(tags, byTag, b.shuffle), nil
}

func weighTags(tags []models.Tag, counts map[uint]int64, shuffle func(n int, swap func(i, j int))) []TagWeight {
	var total int64
	for _, t := range tags {
		total += counts[t.ID]
	}

	avg := 1.0
	if total > 0 && len(tags) > 0 {
		avg = float64(total) / float64(len(tags))
	}

	out := make([]TagWeight, 0, len(tags))
	for _, t := range tags {
		n := counts[t.ID]
		if n == 0 {
			continue
		}
		out = append(out, TagWeight{
			ID:     t.ID,
			Name:   t.Name,
			Slug:   t.Slug,
			Count:  n,
			Weight: (float64(n)/avg)*tagWeightStep + tagWeightBase,
		})
	}

	shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
