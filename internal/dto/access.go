package dto

import "github.com/noah-isme/course-market-api/internal/models"

// CourseAccessView is a course tree annotated with the caller's access state.
type CourseAccessView struct {
	models.Course
	Seasons []SeasonAccessView `json:"seasons"`
}

// SeasonAccessView annotates a season.
type SeasonAccessView struct {
	models.Season
	IsUnlocked   bool                `json:"isUnlocked"`
	AccessStatus models.AccessStatus `json:"accessStatus"`
	Episodes     []EpisodeAccessView `json:"episodes"`
}

// EpisodeAccessView annotates an episode. Video fields never serialise.
type EpisodeAccessView struct {
	models.Episode
	IsFree       bool                `json:"isFree"`
	IsUnlocked   bool                `json:"isUnlocked"`
	AccessStatus models.AccessStatus `json:"accessStatus"`
}

// StreamGrant is returned only when the stream gate lets a request through.
type StreamGrant struct {
	EpisodeID     string `json:"episodeId"`
	VideoProvider string `json:"videoProvider"`
	VideoRef      string `json:"videoRef"`
}
