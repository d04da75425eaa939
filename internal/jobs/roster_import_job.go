package jobs

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"fraternitybase/registry/internal/address"
	"fraternitybase/registry/internal/cipher"
	"fraternitybase/registry/internal/common"
	"fraternitybase/registry/internal/constants"
	"fraternitybase/registry/internal/db/repositories"
	"fraternitybase/registry/internal/logging"
	"fraternitybase/registry/internal/metrics"
	gormModels "fraternitybase/registry/internal/models/gorm"
	"fraternitybase/registry/internal/roster"
)

const (
	chapterCacheTTL = 30 * time.Minute
	pingTimeout     = 5 * time.Second
)

// RowError is one entry of a batch's error log. Data has PII columns
// redacted.
type RowError struct {
	Row   int               `json:"row"`
	Data  map[string]string `json:"data"`
	Error string            `json:"error"`
}

// BatchResult is everything one import run produced. Each call gets its own
// value, so concurrent runs never share counters.
type BatchResult struct {
	BatchID        string                `json:"batch_id"`
	ChapterID      string                `json:"chapter_id"`
	ChapterName    string                `json:"chapter_name"`
	ChapterCreated bool                  `json:"chapter_created"`
	FileName       string                `json:"file_name"`
	FileHash       string                `json:"file_hash"`
	Total          int                   `json:"total_rows"`
	Imported       int                   `json:"imported"`
	Updated        int                   `json:"updated"`
	Skipped        int                   `json:"skipped"`
	Errors         int                   `json:"errors"`
	RowErrors      []RowError            `json:"row_errors"`
	UnknownColumns []string              `json:"unknown_columns,omitempty"`
	ChapterMembers int64                 `json:"chapter_members"`
	Status         constants.BatchStatus `json:"status"`
	StartedAt      time.Time             `json:"started_at"`
	CompletedAt    *time.Time            `json:"completed_at,omitempty"`
}

func (r *BatchResult) record(outcome string) {
	r.Total++
	switch outcome {
	case constants.OutcomeImported:
		r.Imported++
	case constants.OutcomeUpdated:
		r.Updated++
	case constants.OutcomeSkipped:
		r.Skipped++
	case constants.OutcomeError:
		r.Errors++
	}
}

// Balanced reports whether every processed row was counted exactly once.
func (r *BatchResult) Balanced() bool {
	return r.Total == r.Imported+r.Updated+r.Skipped+r.Errors
}

// ImportOptions configures a RosterImportJob.
type ImportOptions struct {
	Organization string
	// NameFallback matches rows without an email on the "first last" hash
	// within the chapter. Two members sharing a name will be merged.
	NameFallback bool
}

// RosterImportJob loads roster files into the encrypted member registry
type RosterImportJob struct {
	db       *gorm.DB
	cipher   cipher.FieldCipher
	cache    common.CacheInterface
	metrics  *metrics.MetricsRegistry
	chapters *repositories.ChapterRepository
	members  *repositories.MemberRepository
	batches  *repositories.ImportBatchRepo

	organization string
	nameFallback bool
	chapterGroup singleflight.Group
	now          func() time.Time
}

// NewRosterImportJob creates a new roster import job. cache and registry
// may be nil.
func NewRosterImportJob(
	db *gorm.DB,
	fieldCipher cipher.FieldCipher,
	cache common.CacheInterface,
	registry *metrics.MetricsRegistry,
	opts ImportOptions,
) *RosterImportJob {
	org := strings.TrimSpace(opts.Organization)
	if org == "" {
		org = constants.DefaultOrganization
	}
	if cache == nil {
		cache = common.NewCacheService(int(chapterCacheTTL.Seconds()), 600)
	}

	return &RosterImportJob{
		db:           db,
		cipher:       fieldCipher,
		cache:        cache,
		metrics:      registry,
		chapters:     repositories.NewChapterRepository(db),
		members:      repositories.NewMemberRepository(db),
		batches:      repositories.NewImportBatchRepo(db),
		organization: org,
		nameFallback: opts.NameFallback,
		now:          time.Now,
	}
}

// Organization is the parent organization chapters are created under
func (j *RosterImportJob) Organization() string {
	return j.organization
}

// ImportFromSource runs one import of src into the named chapter.
//
// ErrValidation is returned before anything is written. ErrStorageUnavailable
// aborts the run and leaves its batch in processing; the partial result is
// returned alongside the error.
func (j *RosterImportJob) ImportFromSource(ctx context.Context, src *roster.Source, chapterName string) (*BatchResult, error) {
	chapterName = strings.TrimSpace(chapterName)
	if chapterName == "" {
		return nil, fmt.Errorf("%w: chapter name is required", constants.ErrValidation)
	}
	if src == nil {
		return nil, fmt.Errorf("%w: roster source is required", constants.ErrValidation)
	}

	start := time.Now()
	logging.Info("Starting roster import", "chapter", chapterName, "file", src.Name, "rows", src.Len())

	chapterID, created, err := j.resolveChapter(ctx, chapterName)
	if err != nil {
		j.recordRun("aborted", start)
		return nil, fmt.Errorf("%w: resolve chapter: %w", constants.ErrStorageUnavailable, err)
	}
	if created {
		logging.Info("Created chapter", "chapter", chapterName, "chapter_id", chapterID)
	}

	batch, err := j.batches.Open(ctx, chapterID, src.Name, src.Hash)
	if err != nil {
		j.recordRun("aborted", start)
		return nil, fmt.Errorf("%w: open import batch: %w", constants.ErrStorageUnavailable, err)
	}

	result := &BatchResult{
		BatchID:        batch.ID,
		ChapterID:      chapterID,
		ChapterName:    chapterName,
		ChapterCreated: created,
		FileName:       src.Name,
		FileHash:       src.Hash,
		RowErrors:      []RowError{},
		UnknownColumns: unknownColumns(src.Headers),
		Status:         constants.BatchStatusProcessing,
		StartedAt:      batch.ImportStartedAt,
	}
	runLog := logging.WithRun(batch.ID, chapterID)
	if len(result.UnknownColumns) > 0 {
		runLog.Warnw("Ignoring unrecognized roster columns", "columns", result.UnknownColumns)
	}
	verified := runDate(j.now())

	for i, row := range src.Rows {
		rowNum := i + 1

		outcome, err := j.processRow(ctx, row, rowNum, chapterID, batch.ID, verified)
		if err != nil {
			if j.storageUnavailable(ctx, err) {
				runLog.Errorw("Import aborted, storage unavailable", "row", rowNum, "error", err)
				j.recordRun("aborted", start)
				return result, fmt.Errorf("%w: row %d: %w", constants.ErrStorageUnavailable, rowNum, err)
			}

			runLog.Warnw("Row failed", "row", rowNum, "error", err)
			result.RowErrors = append(result.RowErrors, RowError{
				Row:   rowNum,
				Data:  redactRow(row),
				Error: err.Error(),
			})
			outcome = constants.OutcomeError
		}

		result.record(outcome)
		if j.metrics != nil {
			j.metrics.ImportRowsTotal.WithLabelValues(outcome).Inc()
		}

		if rowNum%constants.ProgressLogInterval == 0 {
			runLog.Infow("Import progress", "processed", rowNum, "total", src.Len())
		}
	}

	if err := j.finalize(ctx, batch, result); err != nil {
		j.recordRun("aborted", start)
		return result, fmt.Errorf("%w: finalize batch: %w", constants.ErrStorageUnavailable, err)
	}
	j.refreshChapterStats(ctx, result)

	j.recordRun(string(result.Status), start)
	runLog.Infow("Completed roster import",
		"duration", time.Since(start).Truncate(time.Millisecond).String(),
		"total", result.Total,
		"imported", result.Imported,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"errors", result.Errors,
		"chapter_members", result.ChapterMembers,
		"status", result.Status,
	)

	return result, nil
}

type chapterResolution struct {
	id      string
	created bool
}

// resolveChapter finds or creates the chapter once per name; concurrent
// callers in this process share a single lookup.
func (j *RosterImportJob) resolveChapter(ctx context.Context, name string) (string, bool, error) {
	cacheKey := fmt.Sprintf("%s%s:%s", constants.CachePrefixChapterID, j.organization, name)

	if id, ok := common.GetString(j.cache, cacheKey); ok {
		j.recordCache(true)
		return id, false, nil
	}
	j.recordCache(false)

	v, err, _ := j.chapterGroup.Do(cacheKey, func() (interface{}, error) {
		chapter, created, err := j.chapters.FindOrCreate(ctx, j.organization, name)
		if err != nil {
			return nil, err
		}
		j.cache.Set(cacheKey, chapter.ID, chapterCacheTTL)
		return chapterResolution{id: chapter.ID, created: created}, nil
	})
	if err != nil {
		return "", false, err
	}

	res := v.(chapterResolution)
	return res.id, res.created, nil
}

// processRow applies one row inside its own transaction and returns the
// outcome. Any error rolls back everything the row wrote.
func (j *RosterImportJob) processRow(
	ctx context.Context,
	row roster.Row,
	rowNum int,
	chapterID string,
	batchID string,
	verified time.Time,
) (string, error) {
	var outcome string

	err := j.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		members := j.members.WithTx(tx)

		existing, err := j.findExisting(ctx, members, row, chapterID)
		if err != nil {
			return fmt.Errorf("%w: lookup member: %w", constants.ErrRowPersistence, err)
		}

		if existing != nil {
			outcome, err = j.updateMember(ctx, members, existing, row)
			return err
		}

		member, err := j.buildMember(row, rowNum, chapterID, batchID, verified)
		if err != nil {
			return err
		}
		if err := members.Create(ctx, member); err != nil {
			return fmt.Errorf("%w: insert member: %w", constants.ErrRowPersistence, err)
		}
		outcome = constants.OutcomeImported
		return nil
	})
	if err != nil {
		return "", err
	}
	return outcome, nil
}

// findExisting matches on the email hash. A row without an email only
// matches when the name fallback is enabled.
func (j *RosterImportJob) findExisting(ctx context.Context, members *repositories.MemberRepository, row roster.Row, chapterID string) (*gormModels.Member, error) {
	if emailHash := j.cipher.LookupHash(row.Get(constants.ColEmail)); emailHash != nil {
		return members.FindByEmailHash(ctx, *emailHash)
	}
	if !j.nameFallback {
		return nil, nil
	}
	if nameHash := j.cipher.LookupHash(fullName(row)); nameHash != nil {
		return members.FindByNameHash(ctx, chapterID, *nameHash)
	}
	return nil, nil
}

// updateMember compares the drift-tracked fields (cell phone, graduation
// year, status) and writes only those that changed.
func (j *RosterImportJob) updateMember(ctx context.Context, members *repositories.MemberRepository, existing *gormModels.Member, row roster.Row) (string, error) {
	fields := make(map[string]interface{})

	if phone := row.Get(constants.ColCellPhone); phone != "" {
		phoneHash := j.cipher.LookupHash(phone)
		if !sameHash(existing.PhoneHash, phoneHash) {
			encrypted, err := j.cipher.Encrypt(phone)
			if err != nil {
				return "", fmt.Errorf("encrypt cell phone: %w", err)
			}
			fields["cell_phone_encrypted"] = encrypted
			fields["phone_hash"] = phoneHash
		}
	}

	year, err := parseGraduationYear(row.Get(constants.ColGraduationYear))
	if err != nil {
		return "", err
	}
	if year != nil && (existing.GraduationYear == nil || *existing.GraduationYear != *year) {
		fields["graduation_year"] = *year
	}

	if status := row.Get(constants.ColStatus); status != "" && status != existing.Status {
		fields["status"] = status
	}

	if len(fields) == 0 {
		return constants.OutcomeSkipped, nil
	}
	if err := members.UpdateFields(ctx, existing.ID, fields); err != nil {
		return "", fmt.Errorf("%w: update member: %w", constants.ErrRowPersistence, err)
	}
	return constants.OutcomeUpdated, nil
}

// buildMember encrypts every PII column of a new row.
func (j *RosterImportJob) buildMember(row roster.Row, rowNum int, chapterID, batchID string, verified time.Time) (*gormModels.Member, error) {
	mailing := address.Parse(row.Get(constants.ColMailingAddress))
	alt := address.Parse(row.Get(constants.ColAltAddress))

	birthday := ""
	if parsed := j.parseDateField(row, constants.ColBirthday, rowNum); parsed != nil {
		birthday = parsed.Format(constants.CanonicalDateLayout)
	}
	initiation := j.parseDateField(row, constants.ColInitiationDate, rowNum)

	year, err := parseGraduationYear(row.Get(constants.ColGraduationYear))
	if err != nil {
		return nil, err
	}

	member := &gormModels.Member{
		State:             mailing.State,
		AltState:          alt.State,
		MemberType:        valueOr(row.Get(constants.ColMemberType), string(constants.MemberTypeUndergrad)),
		Status:            valueOr(row.Get(constants.ColStatus), string(constants.MemberStatusActive)),
		GraduationYear:    year,
		InitiationDate:    initiation,
		InitiatingChapter: row.Get(constants.ColInitiatingChapter),
		EmailHash:         j.cipher.LookupHash(row.Get(constants.ColEmail)),
		PhoneHash:         j.cipher.LookupHash(row.Get(constants.ColCellPhone)),
		NameHash:          j.cipher.LookupHash(fullName(row)),
		ChapterID:         &chapterID,
		DataSource:        constants.DataSourceRosterImport,
		ImportBatchID:     &batchID,
		LastVerified:      &verified,
	}

	encrypted := []struct {
		name  string
		value string
		dest  *[]byte
	}{
		{"first name", row.Get(constants.ColFirstName), &member.FirstName},
		{"last name", row.Get(constants.ColLastName), &member.LastName},
		{"email", row.Get(constants.ColEmail), &member.Email},
		{"cell phone", row.Get(constants.ColCellPhone), &member.CellPhone},
		{"birthday", birthday, &member.Birthday},
		{"street address", mailing.Street, &member.StreetAddress},
		{"city", mailing.City, &member.City},
		{"zip code", mailing.Zip, &member.ZipCode},
		{"alt street address", alt.Street, &member.AltStreetAddress},
		{"alt city", alt.City, &member.AltCity},
		{"alt zip code", alt.Zip, &member.AltZipCode},
	}
	for _, field := range encrypted {
		ct, err := j.cipher.Encrypt(field.value)
		if err != nil {
			return nil, fmt.Errorf("encrypt %s: %w", field.name, err)
		}
		*field.dest = ct
	}

	return member, nil
}

// parseDateField logs unparseable dates by row and column, never by value.
func (j *RosterImportJob) parseDateField(row roster.Row, column string, rowNum int) *time.Time {
	parsed, err := common.ParseDate(row.Get(column))
	if err != nil {
		logging.Warn("Unparseable date, storing as absent", "row", rowNum, "column", column)
		return nil
	}
	return parsed
}

func (j *RosterImportJob) finalize(ctx context.Context, batch *gormModels.ImportBatch, result *BatchResult) error {
	if result.Errors == 0 {
		result.Status = constants.BatchStatusCompleted
	} else {
		result.Status = constants.BatchStatusCompletedWithErrors
	}

	errorLog, err := json.Marshal(result.RowErrors)
	if err != nil {
		return fmt.Errorf("marshal error log: %w", err)
	}

	completed := j.now().UTC()
	batch.TotalRows = result.Total
	batch.ImportedCount = result.Imported
	batch.UpdatedCount = result.Updated
	batch.SkippedCount = result.Skipped
	batch.ErrorCount = result.Errors
	batch.ErrorLog = string(errorLog)
	batch.Status = string(result.Status)
	batch.ImportCompletedAt = &completed

	if err := j.batches.Finalize(ctx, batch); err != nil {
		return err
	}
	result.CompletedAt = &completed
	return nil
}

// refreshChapterStats drops the chapter's cached statistics and records its
// member count. The batch is already final, so a failed count only warns.
func (j *RosterImportJob) refreshChapterStats(ctx context.Context, result *BatchResult) {
	j.cache.Delete(common.ChapterStatsKey(j.organization, result.ChapterName))

	count, err := j.members.CountByChapter(ctx, result.ChapterID)
	if err != nil {
		logging.Warn("Failed to count chapter members", "chapter_id", result.ChapterID, "error", err)
		return
	}
	result.ChapterMembers = count
}

// storageUnavailable separates a dead store from a bad row. Connection-level
// errors and cancellation are fatal outright; anything else is fatal only if
// the store no longer answers a ping.
func (j *RosterImportJob) storageUnavailable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}

	sqlDB, dbErr := j.db.DB()
	if dbErr != nil {
		return true
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return sqlDB.PingContext(pingCtx) != nil
}

func (j *RosterImportJob) recordRun(status string, start time.Time) {
	if j.metrics == nil {
		return
	}
	j.metrics.ImportRunsTotal.WithLabelValues(status).Inc()
	j.metrics.ImportRunDuration.Observe(time.Since(start).Seconds())
}

func (j *RosterImportJob) recordCache(hit bool) {
	if j.metrics == nil {
		return
	}
	if hit {
		j.metrics.CacheHitsTotal.WithLabelValues(string(constants.CachePrefixChapterID)).Inc()
	} else {
		j.metrics.CacheMissesTotal.WithLabelValues(string(constants.CachePrefixChapterID)).Inc()
	}
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
