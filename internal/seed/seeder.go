// Package seed fills a database with demo blog content and location pings.
package seed

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/quillblog/backend/internal/logger"
	"github.com/quillblog/backend/internal/models"
	"github.com/quillblog/backend/internal/owntracks"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account
const DefaultPassword = "password123"

// Sizes controls how much demo data SeedDev creates
type Sizes struct {
	Users      int
	Categories int
	Tags       int
	Articles   int
	Comments   int
	Links      int
	Pings      int
	// PingDays spreads pings over this many days ending today
	PingDays int
}

// DevSizes is the default development data set
var DevSizes = Sizes{
	Users:      20,
	Categories: 5,
	Tags:       15,
	Articles:   60,
	Comments:   120,
	Links:      6,
	Pings:      300,
	PingDays:   7,
}

// Seeder handles database seeding operations
type Seeder struct {
	db  *gorm.DB
	rnd *rand.Rand
	now func() time.Time
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	seed := uint64(time.Now().UnixNano())
	_ = gofakeit.Seed(int64(seed))
	return &Seeder{
		db:  db,
		rnd: rand.New(rand.NewPCG(seed, seed>>1)),
		now: time.Now,
	}
}

// SeedDev seeds the development database with realistic data
func (s *Seeder) SeedDev() error {
	return s.Seed(DevSizes)
}

// Seed creates the given amount of demo data
func (s *Seeder) Seed(sz Sizes) error {
	log := func(msg string) {
		logger.Log.Info(msg)
	}

	log("Creating users...")
	users, err := s.seedUsers(sz.Users)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	log("Creating categories and tags...")
	categories, tags, err := s.seedTaxonomy(sz.Categories, sz.Tags)
	if err != nil {
		return fmt.Errorf("failed to seed taxonomy: %w", err)
	}

	log("Creating articles...")
	articles, err := s.seedArticles(users, categories, tags, sz.Articles)
	if err != nil {
		return fmt.Errorf("failed to seed articles: %w", err)
	}

	log("Creating comments...")
	if err := s.seedComments(users, articles, sz.Comments); err != nil {
		return fmt.Errorf("failed to seed comments: %w", err)
	}

	log("Creating links and sidebars...")
	if err := s.seedWidgets(sz.Links); err != nil {
		return fmt.Errorf("failed to seed widgets: %w", err)
	}

	log("Creating location pings...")
	if err := s.seedPings(sz.Pings, sz.PingDays); err != nil {
		return fmt.Errorf("failed to seed location pings: %w", err)
	}

	return nil
}

// SeedTest seeds the test database with a fixed set of accounts
func (s *Seeder) SeedTest() error {
	specs := []struct {
		username  string
		email     string
		nickname  string
		superuser bool
	}{
		{"admin", "admin@example.com", "Admin", true},
		{"alice", "alice@example.com", "Alice Smith", false},
		{"bob", "bob@example.com", "Bob Johnson", false},
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	for _, spec := range specs {
		user := models.User{
			Username:     spec.username,
			Email:        spec.email,
			Nickname:     spec.nickname,
			PasswordHash: string(hash),
			IsActive:     true,
			IsStaff:      spec.superuser,
			IsSuperuser:  spec.superuser,
			Source:       models.SourceCLI,
			DateJoined:   s.now().UTC(),
		}
		res := s.db.Where(models.User{Username: spec.username}).FirstOrCreate(&user)
		if res.Error != nil {
			return fmt.Errorf("failed to create test user %s: %w", spec.username, res.Error)
		}
	}

	logger.Log.Info("Test users ready", zap.Int("count", len(specs)))
	return nil
}

// Clean removes all blog content, pings and seeded accounts (use with caution!)
func (s *Seeder) Clean() error {
	// Delete in reverse order of dependencies
	tables := []string{
		"comments",
		"article_tags",
		"articles",
		"tags",
		"categories",
		"links",
		"sidebars",
		"owntracks_log",
	}
	for _, table := range tables {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clean %s: %w", table, err)
		}
	}
	if err := s.db.Where("source = ?", models.SourceCLI).Delete(&models.User{}).Error; err != nil {
		return fmt.Errorf("failed to clean users: %w", err)
	}
	return nil
}

func (s *Seeder) randomPast(days int) time.Time {
	now := s.now()
	return gofakeit.DateRange(now.AddDate(0, 0, -days), now).UTC()
}

// seedUsers creates active accounts with realistic names
func (s *Seeder) seedUsers(count int) ([]models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		username := gofakeit.Username()
		email := gofakeit.Email()

		// Ensure unique username/email
		for {
			var n int64
			s.db.Model(&models.User{}).Where("username = ? OR email = ?", username, email).Count(&n)
			if n == 0 {
				break
			}
			username = gofakeit.Username()
			email = gofakeit.Email()
		}

		user := models.User{
			Username:     username,
			Email:        email,
			Nickname:     gofakeit.Name(),
			PasswordHash: string(hash),
			IsActive:     true,
			Source:       models.SourceCLI,
			DateJoined:   s.randomPast(90),
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, user)
	}

	logger.Log.Info("Created seed users", zap.Int("count", len(users)))
	return users, nil
}

// uniqueWords returns n distinct words not longer than max
func (s *Seeder) uniqueWords(n, max int) []string {
	seen := make(map[string]bool, n)
	words := make([]string, 0, n)
	for attempts := 0; len(words) < n && attempts < n*50; attempts++ {
		w := strings.ToLower(gofakeit.Word())
		if len(w) > max || seen[w] {
			continue
		}
		seen[w] = true
		words = append(words, w)
	}
	return words
}

func (s *Seeder) seedTaxonomy(categoryCount, tagCount int) ([]models.Category, []models.Tag, error) {
	categories := make([]models.Category, 0, categoryCount)
	for i, name := range s.uniqueWords(categoryCount, 30) {
		c := models.Category{Name: name, Slug: name, Index: i}
		if err := s.db.Where(models.Category{Name: name}).FirstOrCreate(&c).Error; err != nil {
			return nil, nil, fmt.Errorf("failed to create category: %w", err)
		}
		categories = append(categories, c)
	}

	tags := make([]models.Tag, 0, tagCount)
	for _, name := range s.uniqueWords(tagCount, 30) {
		t := models.Tag{Name: name, Slug: name}
		if err := s.db.Where(models.Tag{Name: name}).FirstOrCreate(&t).Error; err != nil {
			return nil, nil, fmt.Errorf("failed to create tag: %w", err)
		}
		tags = append(tags, t)
	}

	logger.Log.Info("Created taxonomy",
		zap.Int("categories", len(categories)),
		zap.Int("tags", len(tags)))
	return categories, tags, nil
}

func (s *Seeder) paragraphs(n int) string {
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		parts = append(parts, gofakeit.HipsterSentence())
	}
	return strings.Join(parts, "\n\n")
}

// seedArticles creates articles, about one in ten left as drafts
func (s *Seeder) seedArticles(users []models.User, categories []models.Category, tags []models.Tag, count int) ([]models.Article, error) {
	if len(users) == 0 || len(categories) == 0 {
		return nil, nil
	}

	articles := make([]models.Article, 0, count)
	for i := 0; i < count; i++ {
		status := models.ArticlePublished
		if s.rnd.Float32() < 0.1 {
			status = models.ArticleDraft
		}

		var articleTags []models.Tag
		if len(tags) > 0 {
			perm := s.rnd.Perm(len(tags))
			for _, idx := range perm[:1+s.rnd.IntN(min(3, len(tags)))] {
				articleTags = append(articleTags, tags[idx])
			}
		}

		createdAt := s.randomPast(365)
		article := models.Article{
			Title:      fmt.Sprintf("%s %s", gofakeit.HipsterSentence(), gofakeit.UUID()[:8]),
			Body:       s.paragraphs(3 + s.rnd.IntN(5)),
			Status:     status,
			Views:      uint(s.rnd.IntN(5000)),
			AuthorID:   users[s.rnd.IntN(len(users))].ID,
			CategoryID: categories[s.rnd.IntN(len(categories))].ID,
			Tags:       articleTags,
			CreatedAt:  createdAt,
			UpdatedAt:  createdAt,
		}
		if len(article.Title) > 200 {
			article.Title = article.Title[len(article.Title)-200:]
		}
		if err := s.db.Create(&article).Error; err != nil {
			return nil, fmt.Errorf("failed to create article: %w", err)
		}
		articles = append(articles, article)
	}

	logger.Log.Info("Created articles", zap.Int("count", len(articles)))
	return articles, nil
}

// seedComments creates comments on articles
func (s *Seeder) seedComments(users []models.User, articles []models.Article, count int) error {
	if len(users) == 0 || len(articles) == 0 {
		return nil
	}

	for i := 0; i < count; i++ {
		article := articles[s.rnd.IntN(len(articles))]
		createdAt := gofakeit.DateRange(article.CreatedAt, s.now()).UTC()
		comment := models.Comment{
			Body:      gofakeit.HipsterSentence(),
			AuthorID:  users[s.rnd.IntN(len(users))].ID,
			ArticleID: article.ID,
			IsEnable:  true,
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		}
		if err := s.db.Create(&comment).Error; err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}
	}

	logger.Log.Info("Created comments", zap.Int("count", count))
	return nil
}

// seedWidgets creates blogroll links across every show type plus two
// sidebar blocks
func (s *Seeder) seedWidgets(linkCount int) error {
	for i := 0; i < linkCount; i++ {
		name := fmt.Sprintf("%s-%d", gofakeit.Word(), i)
		if len(name) > 30 {
			name = name[len(name)-30:]
		}
		link := models.Link{
			Name:     name,
			URL:      "https://" + strings.ToLower(gofakeit.Username()) + ".example.com",
			Sequence: i,
			IsEnable: true,
			ShowType: models.LinkShowTypes[i%len(models.LinkShowTypes)],
		}
		if err := s.db.Where(models.Link{Name: name}).FirstOrCreate(&link).Error; err != nil {
			return fmt.Errorf("failed to create link: %w", err)
		}
	}

	blocks := []models.SideBar{
		{Name: "About", Content: s.paragraphs(2), Sequence: 1, IsEnable: true},
		{Name: "Elsewhere", Content: gofakeit.City(), Sequence: 2, IsEnable: true},
	}
	for i := range blocks {
		if err := s.db.Create(&blocks[i]).Error; err != nil {
			return fmt.Errorf("failed to create sidebar: %w", err)
		}
	}
	return nil
}

// seedPings stores demo location pings for a few devices spread over the
// last days
func (s *Seeder) seedPings(count, days int) error {
	if count <= 0 {
		return nil
	}
	if days <= 0 {
		days = 1
	}
	devices := []string{"ph", "tb", "wa"}

	logs := make([]models.OwnTrackLog, 0, count)
	for i := 0; i < count; i++ {
		lat, lon := owntracks.RandomLocation(s.rnd)
		logs = append(logs, models.OwnTrackLog{
			Tid:       devices[s.rnd.IntN(len(devices))],
			Lat:       lat,
			Lon:       lon,
			CreatedAt: s.randomPast(days),
		})
	}
	if err := s.db.CreateInBatches(logs, 100).Error; err != nil {
		return fmt.Errorf("failed to create pings: %w", err)
	}

	logger.Log.Info("Created location pings", zap.Int("count", count), zap.Int("days", days))
	return nil
}
