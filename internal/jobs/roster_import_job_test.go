package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"fraternitybase/registry/internal/cipher"
	"fraternitybase/registry/internal/common"
	"fraternitybase/registry/internal/constants"
	"fraternitybase/registry/internal/db"
	"fraternitybase/registry/internal/metrics"
	gormModels "fraternitybase/registry/internal/models/gorm"
	"fraternitybase/registry/internal/roster"
)

const rosterHeader = "First Name,Last Name,Email,Cell Phone,Birthday,Mailing Address,Other/School/Work Address,Member Type,Status,Initiation Date,Initiating Chapter,Graduation Year\n"

const iotaPsiRoster = rosterHeader +
	`Jane,Doe,Jane.Doe@Example.com,555-0100,01/15/2000,"814 Livingston Court, Paramus, New Jersey, 07652, United States","1 College Way, College Station, Texas, 77843, USA",Undergrad,Active,03/01/2019,Iota Psi,2026` + "\n" +
	`John,Roe,john.roe@example.com,555-0101,2001-07-04,"9 Elm St, Austin, TX, 78701",,Undergrad,Active,,Iota Psi,2025` + "\n"

type testEnv struct {
	db      *gorm.DB
	cipher  *cipher.Cipher
	metrics *metrics.MetricsRegistry
	job     *RosterImportJob
}

func newTestEnv(t *testing.T, opts ImportOptions) *testEnv {
	t.Helper()

	gdb := db.SetupSQLiteTestDB(t)
	c, err := cipher.New(bytes.Repeat([]byte{7}, 32), nil)
	require.NoError(t, err)
	reg := metrics.NewMetricsRegistry()

	return &testEnv{
		db:      gdb,
		cipher:  c,
		metrics: reg,
		job:     NewRosterImportJob(gdb, c, nil, reg, opts),
	}
}

func loadRoster(t *testing.T, name, content string) *roster.Source {
	t.Helper()
	src, err := roster.Load(name, strings.NewReader(content))
	require.NoError(t, err)
	return src
}

func countRows(t *testing.T, gdb *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(model).Count(&n).Error)
	return n
}

func memberByEmail(t *testing.T, env *testEnv, email string) *gormModels.Member {
	t.Helper()
	hash := env.cipher.LookupHash(email)
	require.NotNil(t, hash)

	var m gormModels.Member
	require.NoError(t, env.db.First(&m, "email_hash = ?", *hash).Error)
	return &m
}

func loadBatch(t *testing.T, gdb *gorm.DB, id string) *gormModels.ImportBatch {
	t.Helper()
	var b gormModels.ImportBatch
	require.NoError(t, gdb.First(&b, "id = ?", id).Error)
	return &b
}

// wrappingCipher lets tests fail or observe individual Encrypt calls.
type wrappingCipher struct {
	cipher.FieldCipher
	onEncrypt func(plaintext string) error
}

func (w *wrappingCipher) Encrypt(plaintext string) ([]byte, error) {
	if w.onEncrypt != nil {
		if err := w.onEncrypt(plaintext); err != nil {
			return nil, err
		}
	}
	return w.FieldCipher.Encrypt(plaintext)
}

func TestRosterImportJob_NewChapterScenario(t *testing.T) {
	env := newTestEnv(t, ImportOptions{})
	ctx := context.Background()

	result, err := env.job.ImportFromSource(ctx, loadRoster(t, "iota_psi.csv", iotaPsiRoster), "Iota Psi")
	require.NoError(t, err)

	assert.True(t, result.ChapterCreated)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 0, result.Errors)
	assert.Equal(t, constants.BatchStatusCompleted, result.Status)
	assert.True(t, result.Balanced())

	assert.EqualValues(t, 1, countRows(t, env.db, &gormModels.Chapter{}))
	assert.EqualValues(t, 2, countRows(t, env.db, &gormModels.Member{}))

	var chapter gormModels.Chapter
	require.NoError(t, env.db.First(&chapter).Error)
	assert.Equal(t, "Iota Psi", chapter.Name)
	assert.Equal(t, constants.DefaultOrganization, chapter.Organization)
	assert.Equal(t, constants.ChapterStatusActive, chapter.Status)

	batch := loadBatch(t, env.db, result.BatchID)
	assert.Equal(t, string(constants.BatchStatusCompleted), batch.Status)
	assert.Equal(t, "iota_psi.csv", batch.FileName)
	assert.Equal(t, result.FileHash, batch.FileHash)
	assert.Equal(t, 2, batch.TotalRows)
	assert.Equal(t, 2, batch.ImportedCount)
	assert.Equal(t, "[]", batch.ErrorLog)
	assert.NotNil(t, batch.ImportCompletedAt)

	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.ImportRowsTotal.WithLabelValues(constants.OutcomeImported)))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ImportRunsTotal.WithLabelValues(string(constants.BatchStatusCompleted))))
}

func TestRosterImportJob_StoresEncryptedFields(t *testing.T) {
	env := newTestEnv(t, ImportOptions{})
	ctx := context.Background()

	result, err := env.job.ImportFromSource(ctx, loadRoster(t, "iota_psi.csv", iotaPsiRoster), "Iota Psi")
	require.NoError(t, err)

	jane := memberByEmail(t, env, "  jane.doe@example.com")
	assert.NotContains(t, string(jane.FirstName), "Jane")
	assert.NotContains(t, string(jane.Email), "example.com")

	decrypt := func(ct []byte) string {
		pt, err := env.cipher.Decrypt(ct)
		require.NoError(t, err)
		return pt
	}
	assert.Equal(t, "Jane", decrypt(jane.FirstName))
	assert.Equal(t, "Doe", decrypt(jane.LastName))
	assert.Equal(t, "Jane.Doe@Example.com", decrypt(jane.Email))
	assert.Equal(t, "2000-01-15", decrypt(jane.Birthday))
	assert.Equal(t, "814 Livingston Court", decrypt(jane.StreetAddress))
	assert.Equal(t, "Paramus", decrypt(jane.City))
	assert.Equal(t, "07652", decrypt(jane.ZipCode))
	assert.Equal(t, "College Station", decrypt(jane.AltCity))
	assert.Equal(t, "NJ", jane.State)
	assert.Equal(t, "TX", jane.AltState)

	assert.Equal(t, string(constants.MemberTypeUndergrad), jane.MemberType)
	assert.Equal(t, string(constants.MemberStatusActive), jane.Status)
	assert.Equal(t, constants.DataSourceRosterImport, jane.DataSource)
	require.NotNil(t, jane.GraduationYear)
	assert.Equal(t, 2026, *jane.GraduationYear)
	require.NotNil(t, jane.InitiationDate)
	assert.Equal(t, "2019-03-01", jane.InitiationDate.Format("2006-01-02"))
	assert.Equal(t, "Iota Psi", jane.InitiatingChapter)
	require.NotNil(t, jane.ImportBatchID)
	assert.Equal(t, result.BatchID, *jane.ImportBatchID)
	require.NotNil(t, jane.ChapterID)
	assert.Equal(t, result.ChapterID, *jane.ChapterID)
	assert.Equal(t, env.cipher.LookupHash("jane doe"), jane.NameHash)
	assert.Equal(t, env.cipher.LookupHash("555-0100"), jane.PhoneHash)

	john := memberByEmail(t, env, "john.roe@example.com")
	assert.Nil(t, john.AltCity)
	assert.Equal(t, "", john.AltState)
	assert.Nil(t, john.InitiationDate)
}

func TestRosterImportJob_ReimportIsIdempotent(t *testing.T) {
	env := newTestEnv(t, ImportOptions{})
	ctx := context.Background()
	src := loadRoster(t, "iota_psi.csv", iotaPsiRoster)

	first, err := env.job.ImportFromSource(ctx, src, "Iota Psi")
	require.NoError(t, err)

	second, err := env.job.ImportFromSource(ctx, src, "Iota Psi")
	require.NoError(t, err)

	assert.False(t, second.ChapterCreated)
	assert.Equal(t, first.ChapterID, second.ChapterID)
	assert.NotEqual(t, first.BatchID, second.BatchID)
	assert.Equal(t, 0, second.Imported)
	assert.Equal(t, 2, second.Skipped)
	assert.Equal(t, 0, second.Updated)
	assert.True(t, second.Balanced())

	assert.EqualValues(t, 1, countRows(t, env.db, &gormModels.Chapter{}))
	assert.EqualValues(t, 2, countRows(t, env.db, &gormModels.Member{}))
	assert.EqualValues(t, 2, countRows(t, env.db, &gormModels.ImportBatch{}))
}

func TestRosterImportJob_PhoneDriftUpdatesOnlyThatMember(t *testing.T) {
	env := newTestEnv(t, ImportOptions{})
	ctx := context.Background()

	_, err := env.job.ImportFromSource(ctx, loadRoster(t, "v1.csv", iotaPsiRoster), "Iota Psi")
	require.NoError(t, err)
	before := memberByEmail(t, env, "jane.doe@example.com")
	johnBefore := memberByEmail(t, env, "john.roe@example.com")

	drifted := strings.Replace(iotaPsiRoster, "555-0100", "555-0199", 1)
	result, err := env.job.ImportFromSource(ctx, loadRoster(t, "v2.csv", drifted), "Iota Psi")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Imported)
	assert.True(t, result.Balanced())

	after := memberByEmail(t, env, "jane.doe@example.com")
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, before.FirstName, after.FirstName)
	assert.Equal(t, before.Email, after.Email)
	assert.Equal(t, before.Birthday, after.Birthday)
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.ImportBatchID, after.ImportBatchID)
	assert.Equal(t, env.cipher.LookupHash("555-0199"), after.PhoneHash)

	phone, err := env.cipher.Decrypt(after.CellPhone)
	require.NoError(t, err)
	assert.Equal(t, "555-0199", phone)

	johnAfter := memberByEmail(t, env, "john.roe@example.com")
	assert.Equal(t, johnBefore.CellPhone, johnAfter.CellPhone)
	assert.Equal(t, johnBefore.UpdatedAt.Unix(), johnAfter.UpdatedAt.Unix())
}

func TestRosterImportJob_StatusAndYearDrift(t *testing.T) {
	env := newTestEnv(t, ImportOptions{})
	ctx := context.Background()

	_, err := env.job.ImportFromSource(ctx, loadRoster(t, "v1.csv", iotaPsiRoster), "Iota Psi")
	require.NoError(t, err)

	drifted := strings.Replace(iotaPsiRoster, "Undergrad,Active,,Iota Psi,2025", "Alumni,Alumni,,Iota Psi,2024", 1)
	result, err := env.job.ImportFromSource(ctx, loadRoster(t, "v2.csv", drifted), "Iota Psi")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)

	john := memberByEmail(t, env, "john.roe@example.com")
	assert.Equal(t, "Alumni", john.Status)
	require.NotNil(t, john.GraduationYear)
	assert.Equal(t, 2024, *john.GraduationYear)
	// member type is not drift-tracked
	assert.Equal(t, string(constants.MemberTypeUndergrad), john.MemberType)
}

func TestRosterImportJob_BlankDriftFieldsAreIgnored(t *testing.T) {
	env := newTestEnv(t, ImportOptions{})
	ctx := context.Background()

	_, err := env.job.ImportFromSource(ctx, loadRoster(t, "v1.csv", iotaPsiRoster), "Iota Psi")
	require.NoError(t, err)

	sparse := rosterHeader + "Jane,Doe,jane.doe@example.com,,,,,,,,,\n"
	result, err := env.job.ImportFromSource(ctx, loadRoster(t, "v2.csv", sparse), "Iota Psi")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
}

func TestRosterImportJob_RowErrorIsIsolated(t *testing.T) {
	env := newTestEnv(t, ImportOptions{})
	ctx := context.Background()

	failing := &wrappingCipher{
		FieldCipher: env.cipher,
		onEncrypt: func(pt string) error {
			if pt == "bad@example.com" {
				return errors.New("key service unavailable")
			}
			return nil
		},
	}
	job := NewRosterImportJob(env.db, failing, nil, env.metrics, ImportOptions{})

	content := iotaPsiRoster + "Bad,Row,bad@example.com,555-0102,,,,Undergrad,Active,,Iota Psi,2027\n"
	result, err := job.ImportFromSource(ctx, loadRoster(t, "mixed.csv", content), "Iota Psi")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Errors)
	assert.Equal(t, constants.BatchStatusCompletedWithErrors, result.Status)
	assert.True(t, result.Balanced())
	assert.EqualValues(t, 2, countRows(t, env.db, &gormModels.Member{}))

	batch := loadBatch(t, env.db, result.BatchID)
	assert.Equal(t, string(constants.BatchStatusCompletedWithErrors), batch.Status)
	assert.Equal(t, 1, batch.ErrorCount)
	assert.NotContains(t, batch.ErrorLog, "bad@example.com")
	assert.NotContains(t, batch.ErrorLog, "555-0102")

	var entries []RowError
	require.NoError(t, json.Unmarshal([]byte(batch.ErrorLog), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, 3, entries[0].Row)
	assert.Equal(t, constants.RedactedValue, entries[0].Data[constants.ColEmail])
	assert.Equal(t, constants.RedactedValue, entries[0].Data[constants.ColFirstName])
	assert.Equal(t, "2027", entries[0].Data[constants.ColGraduationYear])
	assert.Contains(t, entries[0].Error, "key service unavailable")
}

func TestRosterImportJob_StorageErrorOnRowRollsBack(t *testing.T) {
	env := newTestEnv(t, ImportOptions{})
	ctx := context.Background()

	err := env.db.Callback().Create().Before("gorm:create").Register("test:reject_member", func(tx *gorm.DB) {
		if m, ok := tx.Statement.Dest.(*gormModels.Member); ok && m.InitiatingChapter == "Reject Me" {
			_ = tx.AddError(errors.New("constraint violated"))
		}
	})
	require.NoError(t, err)

	content := iotaPsiRoster + "Bad,Row,bad@example.com,,,,,Undergrad,Active,,Reject Me,\n"
	result, err := env.job.ImportFromSource(ctx, loadRoster(t, "mixed.csv", content), "Iota Psi")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Errors)
	require.Len(t, result.RowErrors, 1)
	assert.Contains(t, result.RowErrors[0].Error, constants.ErrRowPersistence.Error())
	assert.EqualValues(t, 2, countRows(t, env.db, &gormModels.Member{}))
}

func TestRosterImportJob_InvalidGraduationYearIsRowError(t *testing.T) {
	env := newTestEnv(t, ImportOptions{})

	content := rosterHeader + "Jane,Doe,jane@example.com,,,,,,,,,twenty\n"
	result, err := env.job.ImportFromSource(context.Background(), loadRoster(t, "bad.csv", content), "Iota Psi")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Errors)
	assert.Equal(t, 0, result.Imported)
	assert.Contains(t, result.RowErrors[0].Error, "graduation year")
}

func TestRosterImportJob_UnparseableDateIsNotRowError(t *testing.T) {
	env := newTestEnv(t, ImportOptions{})

	content := rosterHeader + "Jane,Doe,jane@example.com,,sometime in spring,,,,,last fall,,\n"
	result, err := env.job.ImportFromSource(context.Background(), loadRoster(t, "dates.csv", content), "Iota Psi")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)

	jane := memberByEmail(t, env, "jane@example.com")
	assert.Nil(t, jane.Birthday)
	assert.Nil(t, jane.InitiationDate)
}

func TestRosterImportJob_RowsWithoutEmail(t *testing.T) {
	content := rosterHeader + "Sam,Poe,,555-0200,,,,,,,,\n"

	t.Run("always insert by default", func(t *testing.T) {
		env := newTestEnv(t, ImportOptions{})
		ctx := context.Background()
		src := loadRoster(t, "noemail.csv", content)

		for i := 0; i < 2; i++ {
			result, err := env.job.ImportFromSource(ctx, src, "Iota Psi")
			require.NoError(t, err)
			assert.Equal(t, 1, result.Imported)
		}
		assert.EqualValues(t, 2, countRows(t, env.db, &gormModels.Member{}))
	})

	t.Run("name fallback matches", func(t *testing.T) {
		env := newTestEnv(t, ImportOptions{NameFallback: true})
		ctx := context.Background()
		src := loadRoster(t, "noemail.csv", content)

		_, err := env.job.ImportFromSource(ctx, src, "Iota Psi")
		require.NoError(t, err)
		result, err := env.job.ImportFromSource(ctx, src, "Iota Psi")
		require.NoError(t, err)

		assert.Equal(t, 0, result.Imported)
		assert.Equal(t, 1, result.Skipped)
		assert.EqualValues(t, 1, countRows(t, env.db, &gormModels.Member{}))
	})
}

func TestRosterImportJob_DuplicateEmailWithinFile(t *testing.T) {
	env := newTestEnv(t, ImportOptions{})

	content := iotaPsiRoster + "Jane,Doe,JANE.DOE@example.com ,555-0100,,,,,Alumni,,,\n"
	result, err := env.job.ImportFromSource(context.Background(), loadRoster(t, "dup.csv", content), "Iota Psi")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Updated)
	assert.EqualValues(t, 2, countRows(t, env.db, &gormModels.Member{}))
}

func TestRosterImportJob_ValidationError(t *testing.T) {
	env := newTestEnv(t, ImportOptions{})

	result, err := env.job.ImportFromSource(context.Background(), loadRoster(t, "r.csv", iotaPsiRoster), "   ")
	assert.ErrorIs(t, err, constants.ErrValidation)
	assert.Nil(t, result)

	_, err = env.job.ImportFromSource(context.Background(), nil, "Iota Psi")
	assert.ErrorIs(t, err, constants.ErrValidation)

	assert.EqualValues(t, 0, countRows(t, env.db, &gormModels.Chapter{}))
	assert.EqualValues(t, 0, countRows(t, env.db, &gormModels.ImportBatch{}))
}

func TestRosterImportJob_EmptyRosterCompletes(t *testing.T) {
	env := newTestEnv(t, ImportOptions{})

	result, err := env.job.ImportFromSource(context.Background(), loadRoster(t, "empty.csv", rosterHeader), "Iota Psi")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Total)
	assert.Equal(t, constants.BatchStatusCompleted, result.Status)
}

func TestRosterImportJob_ClosedStoreIsFatal(t *testing.T) {
	env := newTestEnv(t, ImportOptions{})

	sqlDB, err := env.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	result, err := env.job.ImportFromSource(context.Background(), loadRoster(t, "r.csv", iotaPsiRoster), "Iota Psi")
	assert.ErrorIs(t, err, constants.ErrStorageUnavailable)
	assert.Nil(t, result)
}

func TestRosterImportJob_CancelledRunLeavesBatchOpen(t *testing.T) {
	env := newTestEnv(t, ImportOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cancelling := &wrappingCipher{
		FieldCipher: env.cipher,
		onEncrypt: func(pt string) error {
			if pt == "john.roe@example.com" {
				cancel()
			}
			return nil
		},
	}
	job := NewRosterImportJob(env.db, cancelling, nil, env.metrics, ImportOptions{})

	result, err := job.ImportFromSource(ctx, loadRoster(t, "r.csv", iotaPsiRoster), "Iota Psi")
	require.ErrorIs(t, err, constants.ErrStorageUnavailable)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.Imported)

	batch := loadBatch(t, env.db, result.BatchID)
	assert.Equal(t, string(constants.BatchStatusProcessing), batch.Status)
	assert.Nil(t, batch.ImportCompletedAt)
	assert.EqualValues(t, 1, countRows(t, env.db, &gormModels.Member{}))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ImportRunsTotal.WithLabelValues("aborted")))
}

func TestRosterImportJob_ConcurrentChapterResolution(t *testing.T) {
	env := newTestEnv(t, ImportOptions{})
	ctx := context.Background()

	const workers = 8
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, _, err := env.job.resolveChapter(ctx, "Iota Psi")
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.EqualValues(t, 1, countRows(t, env.db, &gormModels.Chapter{}))
}

func TestRosterImportJob_LastVerifiedUsesRunDate(t *testing.T) {
	env := newTestEnv(t, ImportOptions{})
	env.job.now = func() time.Time { return time.Date(2024, 1, 10, 23, 30, 0, 0, time.UTC) }

	_, err := env.job.ImportFromSource(context.Background(), loadRoster(t, "r.csv", iotaPsiRoster), "Iota Psi")
	require.NoError(t, err)

	jane := memberByEmail(t, env, "jane.doe@example.com")
	require.NotNil(t, jane.LastVerified)
	assert.Equal(t, "2024-01-10", jane.LastVerified.Format("2006-01-02"))
}

func TestRosterImportJob_ShortRowImportsWithAbsentFields(t *testing.T) {
	env := newTestEnv(t, ImportOptions{})

	content := rosterHeader +
		"Ann,Lee,ann@example.com,555-0102,,,,Undergrad,Active,,Iota Psi,2025\n" +
		"Bob,Ray,bob@example.com\n" +
		"Cat,Kim,cat@example.com,555-0103,,,,Alumni,Alumni,,Iota Psi,2020\n"

	result, err := env.job.ImportFromSource(context.Background(), loadRoster(t, "ragged.csv", content), "Iota Psi")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 3, result.Imported)
	assert.Equal(t, 0, result.Errors)
	assert.Equal(t, constants.BatchStatusCompleted, result.Status)

	bob := memberByEmail(t, env, "bob@example.com")
	assert.Nil(t, bob.PhoneHash)
	assert.Nil(t, bob.GraduationYear)
	assert.Equal(t, string(constants.MemberTypeUndergrad), bob.MemberType)
	assert.Equal(t, string(constants.MemberStatusActive), bob.Status)
}

func TestRosterImportJob_LiteralNAValuesAreKept(t *testing.T) {
	env := newTestEnv(t, ImportOptions{})
	ctx := context.Background()

	content := rosterHeader + "Kim,NA,NA,555-0104,,,,Undergrad,Active,,NA,2025\n"
	src := loadRoster(t, "na.csv", content)

	_, err := env.job.ImportFromSource(ctx, src, "Iota Psi")
	require.NoError(t, err)
	result, err := env.job.ImportFromSource(ctx, src, "Iota Psi")
	require.NoError(t, err)

	// the "NA" email still hashes, so the second run matches instead of inserting
	assert.Equal(t, 0, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	assert.EqualValues(t, 1, countRows(t, env.db, &gormModels.Member{}))

	kim := memberByEmail(t, env, "NA")
	assert.Equal(t, "NA", kim.InitiatingChapter)
	lastName, err := env.cipher.Decrypt(kim.LastName)
	require.NoError(t, err)
	assert.Equal(t, "NA", lastName)
}

func TestRosterImportJob_ReportsChapterMembersAndUnknownColumns(t *testing.T) {
	env := newTestEnv(t, ImportOptions{})
	ctx := context.Background()
	statsKey := common.ChapterStatsKey(constants.DefaultOrganization, "Iota Psi")
	env.job.cache.Set(statsKey, "stale", time.Minute)

	content := strings.Replace(iotaPsiRoster, "Graduation Year\n", "Graduation Year,Pledge Class\n", 1)
	result, err := env.job.ImportFromSource(ctx, loadRoster(t, "r.csv", content), "Iota Psi")
	require.NoError(t, err)

	assert.EqualValues(t, 2, result.ChapterMembers)
	assert.Equal(t, []string{"Pledge Class"}, result.UnknownColumns)

	_, cached := env.job.cache.Get(statsKey)
	assert.False(t, cached, "import drops the chapter's stats snapshot")

	alpha := rosterHeader + "Ann,Lee,ann@example.com,555-0102,,,,Undergrad,Active,,Alpha,2025\n"
	result, err = env.job.ImportFromSource(ctx, loadRoster(t, "alpha.csv", alpha), "Alpha")
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.ChapterMembers, "counts only the imported chapter")
	assert.Empty(t, result.UnknownColumns)
}
