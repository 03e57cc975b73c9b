package service

import (
	"github.com/noah-isme/course-market-api/internal/dto"
	"github.com/noah-isme/course-market-api/internal/models"
)

// EvaluateEpisodeAccess decides access to an episode inside seasonID.
// Free content short-circuits before any grant is consulted.
func EvaluateEpisodeAccess(snap models.AccessSnapshot, episode models.Episode, seasonID string) models.AccessStatus {
	if episode.IsFree() {
		return models.AccessGranted
	}
	episodeRef := models.EpisodeRef(episode.ID)
	seasonRef := models.SeasonRef(seasonID)
	if snap.HasGrant(episodeRef) {
		return models.AccessGranted
	}
	if seasonID != "" && snap.HasGrant(seasonRef) {
		return models.AccessGranted
	}
	if snap.HasPending(episodeRef) || (seasonID != "" && snap.HasPending(seasonRef)) {
		return models.AccessPendingApproval
	}
	return models.AccessLocked
}

// EvaluateSeasonAccess decides access to a whole season.
func EvaluateSeasonAccess(snap models.AccessSnapshot, seasonID string) models.AccessStatus {
	ref := models.SeasonRef(seasonID)
	switch {
	case snap.HasGrant(ref):
		return models.AccessGranted
	case snap.HasPending(ref):
		return models.AccessPendingApproval
	default:
		return models.AccessLocked
	}
}

// ProjectCourseAccess annotates every season and episode of tree using one snapshot.
// An unlocked season unlocks all of its episodes.
func ProjectCourseAccess(snap models.AccessSnapshot, tree models.CourseTree) dto.CourseAccessView {
	view := dto.CourseAccessView{
		Course:  tree.Course,
		Seasons: make([]dto.SeasonAccessView, 0, len(tree.Seasons)),
	}
	for _, st := range tree.Seasons {
		seasonStatus := EvaluateSeasonAccess(snap, st.Season.ID).ForView()
		seasonView := dto.SeasonAccessView{
			Season:       st.Season,
			IsUnlocked:   seasonStatus == models.AccessUnlocked,
			AccessStatus: seasonStatus,
			Episodes:     make([]dto.EpisodeAccessView, 0, len(st.Episodes)),
		}
		for _, ep := range st.Episodes {
			status := models.AccessUnlocked
			if !seasonView.IsUnlocked {
				status = EvaluateEpisodeAccess(snap, ep, st.Season.ID).ForView()
			}
			seasonView.Episodes = append(seasonView.Episodes, dto.EpisodeAccessView{
				Episode:      ep,
				IsFree:       ep.IsFree(),
				IsUnlocked:   status == models.AccessUnlocked,
				AccessStatus: status,
			})
		}
		view.Seasons = append(view.Seasons, seasonView)
	}
	return view
}
