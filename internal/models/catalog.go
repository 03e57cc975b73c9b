package models

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PriceStrategy indicates how a course is sold.
type PriceStrategy string

const (
	PriceStrategyFree PriceStrategy = "FREE"
	PriceStrategyPaid PriceStrategy = "PAID"
)

// DefaultVideoProvider is used when an episode does not name one.
const DefaultVideoProvider = "VIMEO"

// Category groups courses.
type Category struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Slug string `db:"slug" json:"slug"`
}

// Course is the top level catalog entry.
type Course struct {
	ID             string        `db:"id" json:"id"`
	CategoryID     string        `db:"category_id" json:"categoryId"`
	Title          string        `db:"title" json:"title"`
	Slug           string        `db:"slug" json:"slug"`
	Description    string        `db:"description" json:"description"`
	ThumbnailURL   *string       `db:"thumbnail_url" json:"thumbnailUrl,omitempty"`
	InstructorName string        `db:"instructor_name" json:"instructorName"`
	PriceStrategy  PriceStrategy `db:"price_strategy" json:"priceStrategy"`
	CreatedAt      time.Time     `db:"created_at" json:"createdAt"`
}

// CourseFilter narrows public course listings.
type CourseFilter struct {
	CategoryID string
	Search     string
}

// Season belongs to a course and is purchasable as a whole.
type Season struct {
	ID           string    `db:"id" json:"id"`
	CourseID     string    `db:"course_id" json:"courseId"`
	Title        string    `db:"title" json:"title"`
	SeasonNumber int       `db:"season_number" json:"seasonNumber"`
	Price        string    `db:"price" json:"price"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Episode belongs to a season and carries the video reference.
type Episode struct {
	ID            string    `db:"id" json:"id"`
	SeasonID      string    `db:"season_id" json:"seasonId"`
	Title         string    `db:"title" json:"title"`
	EpisodeNumber int       `db:"episode_number" json:"episodeNumber"`
	Description   *string   `db:"description" json:"description,omitempty"`
	DurationSec   int       `db:"duration_sec" json:"durationSec"`
	IsPreview     bool      `db:"is_preview" json:"isPreview"`
	Price         string    `db:"price" json:"price"`
	VideoProvider string    `db:"video_provider" json:"-"`
	VideoRef      string    `db:"video_ref" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// IsFree reports whether the episode can be watched without any grant.
func (e Episode) IsFree() bool {
	return e.IsPreview || IsZeroPrice(e.Price)
}

// ErrInvalidPrice rejects prices that are not plain non-negative amounts with
// at most two fractional digits.
var ErrInvalidPrice = errors.New("price must be a non-negative decimal")

// ParsePrice validates a stored price such as "150" or "99.50". Prices stay
// strings on the models; the parsed value is only used for comparisons.
func ParsePrice(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.ContainsAny(trimmed, "eE+-") ||
		strings.HasPrefix(trimmed, ".") || strings.HasSuffix(trimmed, ".") {
		return decimal.Zero, ErrInvalidPrice
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil || amount.Exponent() < -2 {
		return decimal.Zero, ErrInvalidPrice
	}
	return amount, nil
}

// IsZeroPrice reports whether price parses to zero.
func IsZeroPrice(price string) bool {
	amount, err := ParsePrice(price)
	return err == nil && amount.IsZero()
}

// SeasonTree is a season with its ordered episodes.
type SeasonTree struct {
	Season   Season
	Episodes []Episode
}

// CourseTree is a course with its ordered seasons and episodes.
type CourseTree struct {
	Course  Course
	Seasons []SeasonTree
}
