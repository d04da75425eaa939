package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"fraternitybase/registry/internal/common"
	"fraternitybase/registry/internal/constants"
	"fraternitybase/registry/internal/db/repositories"
	"fraternitybase/registry/internal/logging"
	"fraternitybase/registry/internal/models/dtos"
)

const chapterStatsTTL = 5 * time.Minute

// ChapterStatsService serves per-chapter membership statistics. Snapshots
// are cached until the next import into the chapter finalizes.
type ChapterStatsService struct {
	chapters     *repositories.ChapterRepository
	members      *repositories.MemberRepository
	batches      *repositories.ImportBatchRepo
	cache        common.CacheInterface
	organization string
	now          func() time.Time
}

// NewChapterStatsService creates the stats service. cache may be nil.
func NewChapterStatsService(
	chapters *repositories.ChapterRepository,
	members *repositories.MemberRepository,
	batches *repositories.ImportBatchRepo,
	cache common.CacheInterface,
	organization string,
) *ChapterStatsService {
	if cache == nil {
		cache = common.NewCacheService(int(chapterStatsTTL.Seconds()), 600)
	}
	org := strings.TrimSpace(organization)
	if org == "" {
		org = constants.DefaultOrganization
	}
	return &ChapterStatsService{
		chapters:     chapters,
		members:      members,
		batches:      batches,
		cache:        cache,
		organization: org,
		now:          time.Now,
	}
}

// ChapterStats returns the statistics of one chapter. ErrNotFound when the
// chapter does not exist, ErrStorageUnavailable when the store fails.
func (s *ChapterStatsService) ChapterStats(ctx context.Context, chapter string) (*dtos.ChapterStats, error) {
	chapter = strings.TrimSpace(chapter)
	if chapter == "" {
		return nil, fmt.Errorf("%w: chapter name is required", constants.ErrValidation)
	}

	// snapshots are cached as JSON text so they read back the same from Redis
	val, err := s.cache.GetOrSet(common.ChapterStatsKey(s.organization, chapter), chapterStatsTTL, func() (any, error) {
		stats, err := s.compute(ctx, chapter)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(stats)
		if err != nil {
			return nil, err
		}
		return string(encoded), nil
	})
	if err != nil {
		return nil, err
	}

	encoded, ok := val.(string)
	if !ok {
		logging.Warn("Discarding malformed chapter stats cache entry", "chapter", chapter)
		s.cache.Delete(common.ChapterStatsKey(s.organization, chapter))
		return s.compute(ctx, chapter)
	}

	var stats dtos.ChapterStats
	if err := json.Unmarshal([]byte(encoded), &stats); err != nil {
		return nil, fmt.Errorf("decode chapter stats: %w", err)
	}
	return &stats, nil
}

// Invalidate drops a chapter's cached snapshot
func (s *ChapterStatsService) Invalidate(chapter string) {
	s.cache.Delete(common.ChapterStatsKey(s.organization, strings.TrimSpace(chapter)))
}

func (s *ChapterStatsService) compute(ctx context.Context, name string) (*dtos.ChapterStats, error) {
	chapter, err := s.chapters.FindByName(ctx, s.organization, name)
	if err != nil {
		return nil, fmt.Errorf("%w: find chapter: %w", constants.ErrStorageUnavailable, err)
	}
	if chapter == nil {
		return nil, fmt.Errorf("%w: chapter %q", constants.ErrNotFound, name)
	}

	members, err := s.members.CountByChapter(ctx, chapter.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: count chapter members: %w", constants.ErrStorageUnavailable, err)
	}
	total, err := s.members.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: count members: %w", constants.ErrStorageUnavailable, err)
	}
	last, err := s.batches.GetLastBatchForChapter(ctx, chapter.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: last import: %w", constants.ErrStorageUnavailable, err)
	}

	stats := &dtos.ChapterStats{
		ChapterID:           chapter.ID,
		Chapter:             chapter.Name,
		Organization:        chapter.Organization,
		Status:              chapter.Status,
		UniversityID:        chapter.UniversityID,
		Members:             members,
		OrganizationMembers: total,
		RefreshedAt:         s.now().UTC(),
	}
	if last != nil {
		resp := dtos.NewImportBatchResponse(last)
		resp.ErrorLog = nil
		stats.LastImport = &resp
	}
	return stats, nil
}
