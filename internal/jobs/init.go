package jobs

import (
	"gorm.io/gorm"

	"fraternitybase/registry/internal/cipher"
	"fraternitybase/registry/internal/common"
	"fraternitybase/registry/internal/config"
	"fraternitybase/registry/internal/metrics"
)

// InitializeImportJob wires the roster importer from configuration
func InitializeImportJob(
	db *gorm.DB,
	fieldCipher cipher.FieldCipher,
	cache common.CacheInterface,
	registry *metrics.MetricsRegistry,
	cfg *config.Config,
) *RosterImportJob {
	return NewRosterImportJob(db, fieldCipher, cache, registry, ImportOptions{
		Organization: cfg.Organization,
		NameFallback: cfg.NameFallback,
	})
}
