package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"fraternitybase/registry/internal/cipher"
	"fraternitybase/registry/internal/common"
	"fraternitybase/registry/internal/constants"
	"fraternitybase/registry/internal/db/repositories"
	"fraternitybase/registry/internal/logging"
	"fraternitybase/registry/internal/metrics"
	"fraternitybase/registry/internal/models/dtos"
	"fraternitybase/registry/internal/models/entities"
)

// Geocoder resolves a home city to coordinates. ok is false when unknown.
type Geocoder interface {
	Geocode(ctx context.Context, city, state string) (lat, lng float64, ok bool)
}

// NoopGeocoder places every home location at 0,0
type NoopGeocoder struct{}

func (NoopGeocoder) Geocode(context.Context, string, string) (float64, float64, bool) {
	return 0, 0, false
}

// ExportService builds the travel map view from the registry. It never
// writes to the store.
type ExportService struct {
	repo     *repositories.ExportRepository
	cipher   cipher.FieldCipher
	geocoder Geocoder
	metrics  *metrics.MetricsRegistry
	now      func() time.Time
}

// NewExportService creates the exporter. geocoder and registry may be nil.
func NewExportService(repo *repositories.ExportRepository, fieldCipher cipher.FieldCipher, geocoder Geocoder, registry *metrics.MetricsRegistry) *ExportService {
	if geocoder == nil {
		geocoder = NoopGeocoder{}
	}
	return &ExportService{
		repo:     repo,
		cipher:   fieldCipher,
		geocoder: geocoder,
		metrics:  registry,
		now:      time.Now,
	}
}

type universityKey struct {
	name  string
	state string
	lat   float64
	lng   float64
}

// ExportDerivedView reads every exportable member and returns the derived
// view. Members without a chapter or university are skipped; fields that
// fail to decrypt are reported as unavailable and the member is kept.
func (svc *ExportService) ExportDerivedView(ctx context.Context) (*dtos.DerivedView, *dtos.ExportStats, error) {
	start := time.Now()

	rows, err := svc.repo.ListExportableMembers(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: list members: %w", constants.ErrStorageUnavailable, err)
	}

	today := svc.now()
	view := &dtos.DerivedView{
		Members:      []dtos.ExportMember{},
		Routes:       []dtos.ExportRoute{},
		Universities: []dtos.ExportUniversity{},
	}
	stats := &dtos.ExportStats{Total: len(rows)}
	seen := make(map[universityKey]struct{})

	for _, row := range rows {
		if !row.ChapterID.Valid || !row.UniversityName.Valid || row.UniversityName.String == "" {
			stats.Skipped++
			svc.recordMember(constants.ExportOutcomeSkipped)
			continue
		}

		seq := len(view.Members)
		member, route := svc.deriveMember(ctx, seq, row, today, stats)
		view.Members = append(view.Members, member)
		view.Routes = append(view.Routes, route)

		key := universityKey{
			name:  row.UniversityName.String,
			state: row.UniversityState.String,
			lat:   row.UniversityLat.Float64,
			lng:   row.UniversityLng.Float64,
		}
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			view.Universities = append(view.Universities, dtos.ExportUniversity{
				Name:  key.name,
				State: key.state,
				Lat:   key.lat,
				Lng:   key.lng,
			})
		}

		stats.Exported++
		svc.recordMember(constants.ExportOutcomeExported)
	}

	stats.Routes = len(view.Routes)
	stats.Universities = len(view.Universities)

	if svc.metrics != nil {
		svc.metrics.ExportRunDuration.Observe(time.Since(start).Seconds())
	}
	logging.Info("Completed travel map export",
		"total", stats.Total,
		"exported", stats.Exported,
		"skipped", stats.Skipped,
		"decrypt_failures", stats.DecryptFailures,
		"routes", stats.Routes,
		"universities", stats.Universities,
	)

	return view, stats, nil
}

func (svc *ExportService) deriveMember(ctx context.Context, seq int, row entities.ExportMemberRow, today time.Time, stats *dtos.ExportStats) (dtos.ExportMember, dtos.ExportRoute) {
	firstName := svc.decryptOr(row, "first_name", row.FirstName, constants.UnknownValue, stats)
	lastName := svc.decryptOr(row, "last_name", row.LastName, constants.UnknownValue, stats)
	homeCity := svc.decryptOr(row, "city", row.City, constants.UnknownValue, stats)
	birthdayText := svc.decryptOr(row, "birthday", row.Birthday, "", stats)

	var (
		age           *int
		birthday      *string
		birthdayToday bool
	)
	if birthdayText != "" {
		birthday = &birthdayText
		if birth, err := common.ParseDate(birthdayText); err == nil && birth != nil {
			a := ComputeAge(*birth, today)
			age = &a
			birthdayToday = IsBirthdayToday(*birth, today)
		}
	}

	homeState := constants.UnknownValue
	if row.State.Valid && row.State.String != "" {
		homeState = row.State.String
	}
	homeLat, homeLng, _ := svc.geocoder.Geocode(ctx, homeCity, homeState)

	uniLat := row.UniversityLat.Float64
	uniLng := row.UniversityLng.Float64
	isAlumni := row.MemberType == string(constants.MemberTypeAlumni)

	current := dtos.CurrentLocation{
		Name: row.UniversityName.String,
		Lat:  uniLat,
		Lng:  uniLng,
	}
	route := dtos.ExportRoute{
		MemberID: seq,
		ToLat:    uniLat,
		ToLng:    uniLng,
		Age:      age,
	}

	if isAlumni {
		current.State = homeState
		if row.AltState.Valid && row.AltState.String != "" {
			current.State = row.AltState.String
		}
		current.Approximate = true

		route.FromLat = uniLat
		route.FromLng = uniLng
		route.FromState = row.UniversityState.String
	} else {
		current.State = row.UniversityState.String

		route.FromLat = homeLat
		route.FromLng = homeLng
		route.FromState = homeState
	}
	route.ToState = current.State

	chapter := constants.UnknownValue
	if row.ChapterName.Valid && row.ChapterName.String != "" {
		chapter = row.ChapterName.String
	}

	member := dtos.ExportMember{
		ID:              seq,
		FirstName:       firstName,
		LastName:        lastName,
		Chapter:         chapter,
		Age:             age,
		Birthday:        birthday,
		BirthdayToday:   birthdayToday,
		CurrentLocation: current,
		HomeLocation: dtos.HomeLocation{
			City:  homeCity,
			State: homeState,
			Lat:   homeLat,
			Lng:   homeLng,
		},
	}
	return member, route
}

// decryptOr returns fallback for absent ciphertext and for ciphertext that
// cannot be opened. Failures are logged by member id and field only.
func (svc *ExportService) decryptOr(row entities.ExportMemberRow, field string, ciphertext []byte, fallback string, stats *dtos.ExportStats) string {
	if len(ciphertext) == 0 {
		return fallback
	}

	plaintext, err := svc.cipher.Decrypt(ciphertext)
	if err != nil {
		if !errors.Is(err, constants.ErrDecryption) {
			logging.Error("Unexpected decrypt error", "member_id", row.ID, "field", field, "error", err)
		} else {
			logging.Warn("Failed to decrypt field", "member_id", row.ID, "field", field)
		}
		stats.DecryptFailures++
		if svc.metrics != nil {
			svc.metrics.DecryptFailuresTotal.WithLabelValues(field).Inc()
		}
		return fallback
	}
	if plaintext == "" {
		return fallback
	}
	return plaintext
}

func (svc *ExportService) recordMember(outcome string) {
	if svc.metrics != nil {
		svc.metrics.ExportMembersTotal.WithLabelValues(outcome).Inc()
	}
}

// WriteJSON writes the view with two-space indentation
func WriteJSON(w io.Writer, view *dtos.DerivedView) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(view)
}

// ComputeAge is whole years elapsed, one less if the birthday has not come
// yet this year.
func ComputeAge(birth, today time.Time) int {
	age := today.Year() - birth.Year()
	if today.Month() < birth.Month() || (today.Month() == birth.Month() && today.Day() < birth.Day()) {
		age--
	}
	return age
}

// IsBirthdayToday compares month and day only
func IsBirthdayToday(birth, today time.Time) bool {
	return birth.Month() == today.Month() && birth.Day() == today.Day()
}
