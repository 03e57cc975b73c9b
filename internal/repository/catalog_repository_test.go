package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-market-api/internal/models"
)

func TestCatalogRepositoryGetCourseTree(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE id = $1")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "category_id", "title", "slug", "description", "thumbnail_url", "instructor_name", "price_strategy", "created_at"}).
			AddRow("course-1", "cat-1", "Fullstack Masterclass", "fullstack-masterclass", "desc", nil, "Jane", "PAID", now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM seasons WHERE course_id = $1 ORDER BY season_number ASC")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "title", "season_number", "price", "created_at"}).
			AddRow("season-1", "course-1", "Season 1", 1, "500", now).
			AddRow("season-2", "course-1", "Season 2", 2, "700", now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM episodes e JOIN seasons s ON s.id = e.season_id")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "season_id", "title", "episode_number", "description", "duration_sec", "is_preview", "price", "video_provider", "video_ref", "created_at"}).
			AddRow("ep-1", "season-1", "Intro", 1, nil, 300, true, "0", "VIMEO", "123456789", now).
			AddRow("ep-2", "season-1", "Deep dive", 2, nil, 900, false, "150", "VIMEO", "987654321", now))

	tree, err := repo.GetCourseTree(context.Background(), "course-1")
	require.NoError(t, err)
	require.Len(t, tree.Seasons, 2)
	assert.Len(t, tree.Seasons[0].Episodes, 2)
	assert.Empty(t, tree.Seasons[1].Episodes)
	assert.Equal(t, "123456789", tree.Seasons[0].Episodes[0].VideoRef)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositoryListCoursesFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE category_id = $1 AND (LOWER(title) LIKE $2 OR LOWER(description) LIKE $2) ORDER BY created_at DESC")).
		WithArgs("cat-1", "%fullstack%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "category_id", "title", "slug", "description", "thumbnail_url", "instructor_name", "price_strategy", "created_at"}))

	courses, err := repo.ListCourses(context.Background(), models.CourseFilter{CategoryID: "cat-1", Search: " FullStack "})
	require.NoError(t, err)
	assert.Empty(t, courses)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositoryCreateEpisodeDefaultsProvider(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO episodes")).WillReturnResult(sqlmock.NewResult(1, 1))

	episode := &models.Episode{SeasonID: "season-1", Title: "Intro", EpisodeNumber: 1, Price: "0", VideoRef: "123"}
	require.NoError(t, repo.CreateEpisode(context.Background(), episode))
	assert.Equal(t, models.DefaultVideoProvider, episode.VideoProvider)
	assert.NoError(t, mock.ExpectationsWereMet())
}
