package dto

import "github.com/noah-isme/course-market-api/internal/models"

// CategoryRequest creates or updates a category.
type CategoryRequest struct {
	Name string `json:"name" validate:"required,max=120"`
	Slug string `json:"slug" validate:"omitempty,max=140"`
}

// CourseRequest creates or updates a course.
type CourseRequest struct {
	CategoryID     string  `json:"categoryId" validate:"required"`
	Title          string  `json:"title" validate:"required,max=200"`
	Slug           string  `json:"slug" validate:"omitempty,max=220"`
	Description    string  `json:"description"`
	ThumbnailURL   *string `json:"thumbnailUrl" validate:"omitempty,url"`
	InstructorName string  `json:"instructorName" validate:"required"`
	PriceStrategy  string  `json:"priceStrategy" validate:"omitempty,oneof=FREE PAID"`
}

// SeasonRequest creates or updates a season.
type SeasonRequest struct {
	Title        string `json:"title" validate:"required,max=200"`
	SeasonNumber int    `json:"seasonNumber" validate:"required,min=1"`
	Price        string `json:"price" validate:"required"`
}

// EpisodeRequest creates or updates an episode.
type EpisodeRequest struct {
	Title         string  `json:"title" validate:"required,max=200"`
	EpisodeNumber int     `json:"episodeNumber" validate:"required,min=1"`
	Description   *string `json:"description"`
	DurationSec   int     `json:"durationSec" validate:"min=0"`
	IsPreview     bool    `json:"isPreview"`
	Price         string  `json:"price" validate:"required"`
	VideoProvider string  `json:"videoProvider"`
	VideoRef      string  `json:"videoRef" validate:"required"`
}

// PaymentOptionRequest creates or updates a payment option.
type PaymentOptionRequest struct {
	Provider      string  `json:"provider" validate:"required"`
	AccountName   string  `json:"accountName" validate:"required"`
	AccountNumber string  `json:"accountNumber" validate:"required"`
	MerchantID    *string `json:"merchantId"`
	QRCodeURL     *string `json:"qrCodeUrl" validate:"omitempty,url"`
	IsActive      *bool   `json:"isActive"`
}

// CourseDetail is the public course page. Episodes never carry video fields.
type CourseDetail struct {
	models.Course
	Seasons []SeasonDetail `json:"seasons"`
}

// SeasonDetail is a season with its episodes.
type SeasonDetail struct {
	models.Season
	Episodes []models.Episode `json:"episodes"`
}

// NewCourseDetail flattens a catalog tree into its public shape.
func NewCourseDetail(tree models.CourseTree) CourseDetail {
	detail := CourseDetail{Course: tree.Course, Seasons: make([]SeasonDetail, 0, len(tree.Seasons))}
	for _, st := range tree.Seasons {
		episodes := st.Episodes
		if episodes == nil {
			episodes = []models.Episode{}
		}
		detail.Seasons = append(detail.Seasons, SeasonDetail{Season: st.Season, Episodes: episodes})
	}
	return detail
}

// AdminCourseTree is the editing view of a course. Unlike CourseDetail it
// carries every episode's video reference.
type AdminCourseTree struct {
	models.Course
	Seasons []AdminSeason `json:"seasons"`
}

// AdminSeason is a season with editable episodes.
type AdminSeason struct {
	models.Season
	Episodes []AdminEpisode `json:"episodes"`
}

// AdminEpisode shadows the hidden video fields of models.Episode.
type AdminEpisode struct {
	models.Episode
	VideoProvider string `json:"videoProvider"`
	VideoRef      string `json:"videoRef"`
}

// NewAdminCourseTree builds the editing view.
func NewAdminCourseTree(tree models.CourseTree) AdminCourseTree {
	out := AdminCourseTree{Course: tree.Course, Seasons: make([]AdminSeason, 0, len(tree.Seasons))}
	for _, st := range tree.Seasons {
		season := AdminSeason{Season: st.Season, Episodes: make([]AdminEpisode, 0, len(st.Episodes))}
		for _, ep := range st.Episodes {
			season.Episodes = append(season.Episodes, AdminEpisode{Episode: ep, VideoProvider: ep.VideoProvider, VideoRef: ep.VideoRef})
		}
		out.Seasons = append(out.Seasons, season)
	}
	return out
}
