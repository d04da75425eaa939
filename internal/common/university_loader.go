package common

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"fraternitybase/registry/internal/address"
	"fraternitybase/registry/internal/constants"
	"fraternitybase/registry/internal/db/repositories"
	"fraternitybase/registry/internal/logging"
	"fraternitybase/registry/internal/models/gorm"

	gormlib "gorm.io/gorm"
)

// UniversityLoaderService loads university reference data and links chapters to it
type UniversityLoaderService struct {
	universities *repositories.UniversityRepository
	chapters     *repositories.ChapterRepository
}

// RawUniversityData is one entry of the reference JSON array
type RawUniversityData struct {
	Name  string  `json:"name"`
	State string  `json:"state"`
	City  string  `json:"city"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
}

func NewUniversityLoaderService(db *gormlib.DB) *UniversityLoaderService {
	return &UniversityLoaderService{
		universities: repositories.NewUniversityRepository(db),
		chapters:     repositories.NewChapterRepository(db),
	}
}

// LoadFromJSON upserts universities by name from a JSON array.
// Example: [{"name": "Texas A&M University", "state": "TX", "city": "College Station", "lat": 30.61, "lng": -96.34}]
func (s *UniversityLoaderService) LoadFromJSON(ctx context.Context, reader io.Reader) (int, error) {
	var rawData []RawUniversityData
	if err := json.NewDecoder(reader).Decode(&rawData); err != nil {
		return 0, fmt.Errorf("%w: failed to decode JSON: %w", constants.ErrValidation, err)
	}

	if len(rawData) == 0 {
		return 0, fmt.Errorf("%w: no university data found in JSON", constants.ErrValidation)
	}

	// Later entries win when a name repeats; one upsert statement cannot touch a row twice.
	index := make(map[string]int, len(rawData))
	universities := make([]gorm.University, 0, len(rawData))
	skipped := 0
	for _, raw := range rawData {
		name := strings.TrimSpace(raw.Name)
		if name == "" || !validCoordinates(raw.Lat, raw.Lng) {
			skipped++
			continue
		}

		university := gorm.University{
			Name:      name,
			State:     address.NormalizeState(raw.State),
			City:      strings.TrimSpace(raw.City),
			Latitude:  raw.Lat,
			Longitude: raw.Lng,
		}

		key := strings.ToLower(name)
		if i, ok := index[key]; ok {
			universities[i] = university
			continue
		}
		index[key] = len(universities)
		universities = append(universities, university)
	}

	if len(universities) == 0 {
		return 0, fmt.Errorf("%w: no valid universities found after parsing", constants.ErrValidation)
	}

	if err := s.universities.BatchUpsert(ctx, universities); err != nil {
		return 0, fmt.Errorf("failed to upsert universities: %w", err)
	}

	logging.Info("Loaded universities", "count", len(universities), "skipped", skipped)
	return len(universities), nil
}

// LinkChapter points an existing chapter at an existing university
func (s *UniversityLoaderService) LinkChapter(ctx context.Context, organization, chapterName, universityName string) error {
	chapterName = strings.TrimSpace(chapterName)
	universityName = strings.TrimSpace(universityName)
	if chapterName == "" || universityName == "" {
		return fmt.Errorf("%w: chapter and university are required", constants.ErrValidation)
	}

	chapter, err := s.chapters.FindByName(ctx, organization, chapterName)
	if err != nil {
		return fmt.Errorf("failed to find chapter: %w", err)
	}
	if chapter == nil {
		return fmt.Errorf("%w: chapter %q", constants.ErrNotFound, chapterName)
	}

	university, err := s.universities.FindByName(ctx, universityName)
	if err != nil {
		return fmt.Errorf("failed to find university: %w", err)
	}
	if university == nil {
		return fmt.Errorf("%w: university %q", constants.ErrNotFound, universityName)
	}

	if err := s.chapters.SetUniversity(ctx, chapter.ID, university.ID); err != nil {
		return fmt.Errorf("failed to link chapter: %w", err)
	}

	logging.Info("Linked chapter to university", "chapter_id", chapter.ID, "university_id", university.ID)
	return nil
}

// GetStats returns statistics about loaded universities
func (s *UniversityLoaderService) GetStats(ctx context.Context) (map[string]interface{}, error) {
	count, err := s.universities.Count(ctx)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"total_universities": count,
	}, nil
}

func validCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
