package api

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"

	"fraternitybase/registry/internal/cipher"
	"fraternitybase/registry/internal/common"
	"fraternitybase/registry/internal/config"
	"fraternitybase/registry/internal/db/repositories"
	"fraternitybase/registry/internal/jobs"
	"fraternitybase/registry/internal/logging"
	"fraternitybase/registry/internal/metrics"
	"fraternitybase/registry/internal/services"
)

type Repositories struct {
	Chapters *repositories.ChapterRepository
	Batches  *repositories.ImportBatchRepo
	Members  *repositories.MemberRepository
	Export   *repositories.ExportRepository
}

type Services struct {
	Cache        common.CacheInterface
	RunLock      common.RunLock
	Importer     *jobs.RosterImportJob
	Exporter     *services.ExportService
	Universities *common.UniversityLoaderService
	ChapterStats *services.ChapterStatsService
}

type Dependencies struct {
	Repo     *Repositories
	Services *Services
	Metrics  *metrics.MetricsRegistry
	Reader   *sqlx.DB
}

// InitDependencies wires repositories and services. With Redis enabled the
// chapter cache and run lock are shared across instances; if Redis cannot be
// reached both fall back to in-process implementations.
func InitDependencies(
	gdb *gorm.DB,
	reader *sqlx.DB,
	fieldCipher cipher.FieldCipher,
	cfg *config.Config,
	metricsReg *metrics.MetricsRegistry,
) (*Dependencies, error) {
	if gdb == nil || reader == nil {
		return nil, fmt.Errorf("registry store is not initialized")
	}

	repos := &Repositories{
		Chapters: repositories.NewChapterRepository(gdb),
		Batches:  repositories.NewImportBatchRepo(gdb),
		Members:  repositories.NewMemberRepository(gdb),
		Export:   repositories.NewExportRepository(reader),
	}

	var (
		cache   common.CacheInterface
		runLock common.RunLock
	)
	if cfg.RedisEnabled {
		client := common.NewRedisClient(cfg.RedisAddr(), cfg.RedisPassword)
		redisCache, err := common.NewRedisCacheService(client)
		if err != nil {
			logging.Warn("Redis unavailable, using in-memory cache and run lock", "error", err)
			_ = client.Close()
		} else {
			cache = redisCache
			runLock = common.NewRedisRunLock(client)
		}
	}
	if cache == nil {
		cache = common.NewCacheService(1800, 600)
		runLock = common.NewLocalRunLock()
	}

	svcs := &Services{
		Cache:        cache,
		RunLock:      runLock,
		Importer:     jobs.InitializeImportJob(gdb, fieldCipher, cache, metricsReg, cfg),
		Exporter:     services.NewExportService(repos.Export, fieldCipher, nil, metricsReg),
		Universities: common.NewUniversityLoaderService(gdb),
		ChapterStats: services.NewChapterStatsService(repos.Chapters, repos.Members, repos.Batches, cache, cfg.Organization),
	}

	return &Dependencies{
		Repo:     repos,
		Services: svcs,
		Metrics:  metricsReg,
		Reader:   reader,
	}, nil
}

// Close releases the cache connection, if any
func (d *Dependencies) Close() error {
	if d.Services == nil || d.Services.Cache == nil {
		return nil
	}
	return d.Services.Cache.Close()
}
