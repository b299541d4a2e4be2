package models

import "time"

// Article statuses
const (
	ArticleDraft     = "d"
	ArticlePublished = "p"
)

// Link show types control which pages display a blogroll link
const (
	LinkShowIndex   = "i"
	LinkShowList    = "l"
	LinkShowArticle = "p"
	LinkShowAll     = "a"
	LinkShowFriend  = "s"
)

// LinkShowTypes lists every link show type
var LinkShowTypes = []string{LinkShowIndex, LinkShowList, LinkShowArticle, LinkShowAll, LinkShowFriend}

// IsValidLinkShowType reports whether t is a known link show type
func IsValidLinkShowType(t string) bool {
	for _, s := range LinkShowTypes {
		if s == t {
			return true
		}
	}
	return false
}

// Category groups articles
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:30;not null" json:"name"`
	Slug      string    `gorm:"size:60" json:"slug"`
	Index     int       `gorm:"default:0" json:"index"`
	CreatedAt time.Time `json:"creation_time"`
	UpdatedAt time.Time `json:"last_modify_time"`
}

// Tag labels articles
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:30;not null" json:"name"`
	Slug      string    `gorm:"size:60" json:"slug"`
	CreatedAt time.Time `json:"creation_time"`
	UpdatedAt time.Time `json:"last_modify_time"`
}

// Article is a blog post
type Article struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"uniqueIndex;size:200;not null" json:"title"`
	Body       string    `gorm:"type:text" json:"body"`
	Status     string    `gorm:"size:1;default:p;index" json:"status"`
	Views      uint      `gorm:"default:0" json:"views"`
	AuthorID   uint      `gorm:"index" json:"author_id"`
	Author     *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	CategoryID uint      `gorm:"index" json:"category_id"`
	Category   *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Tags       []Tag     `gorm:"many2many:article_tags" json:"tags,omitempty"`
	CreatedAt  time.Time `gorm:"index" json:"creation_time"`
	UpdatedAt  time.Time `json:"last_modify_time"`
}

// Link is a blogroll entry
type Link struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:30;not null" json:"name"`
	URL       string    `gorm:"not null" json:"link"`
	Sequence  int       `gorm:"index" json:"sequence"`
	IsEnable  bool      `gorm:"default:true" json:"is_enable"`
	ShowType  string    `gorm:"size:1;default:i" json:"show_type"`
	CreatedAt time.Time `json:"creation_time"`
	UpdatedAt time.Time `json:"last_mod_time"`
}

// SideBar is a free-form sidebar block
type SideBar struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Content   string    `gorm:"type:text" json:"content"`
	Sequence  int       `gorm:"index" json:"sequence"`
	IsEnable  bool      `gorm:"default:true" json:"is_enable"`
	CreatedAt time.Time `json:"creation_time"`
	UpdatedAt time.Time `json:"last_mod_time"`
}

// TableName keeps the sidebar table name readable
func (SideBar) TableName() string {
	return "sidebars"
}

// BlogSettings holds site-wide display options. Only the first row is used.
type BlogSettings struct {
	ID                  uint   `gorm:"primaryKey" json:"id"`
	SiteName            string `gorm:"size:200" json:"site_name"`
	SidebarArticleCount int    `gorm:"default:10" json:"sidebar_article_count"`
	SidebarCommentCount int    `gorm:"default:5" json:"sidebar_comment_count"`
	ShowGoogleAdsense   bool   `gorm:"default:false" json:"show_google_adsense"`
	GoogleAdsenseCodes  string `gorm:"type:text" json:"google_adsense_codes"`
	OpenSiteComment     bool   `gorm:"default:true" json:"open_site_comment"`
	ShowGongAnCode      bool   `gorm:"default:false" json:"show_gongan_code"`
	GongAnBeiAnCode     string `gorm:"size:2000" json:"gongan_beiancode"`
}

// DefaultBlogSettings is used when no settings row exists yet
func DefaultBlogSettings() BlogSettings {
	return BlogSettings{
		SiteName:            "quill",
		SidebarArticleCount: 10,
		SidebarCommentCount: 5,
		OpenSiteComment:     true,
	}
}

// Comment is a reader comment on an article
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	AuthorID  uint      `gorm:"index" json:"author_id"`
	Author    *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	ArticleID uint      `gorm:"index" json:"article_id"`
	Article   *Article  `gorm:"foreignKey:ArticleID" json:"article,omitempty"`
	IsEnable  bool      `gorm:"default:true" json:"is_enable"`
	CreatedAt time.Time `json:"creation_time"`
	UpdatedAt time.Time `json:"last_mod_time"`
}
