package db

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"

	"fraternitybase/registry/internal/config"
)

// Store holds the ORM handle used for writes and the sqlx handle used by the
// export query and health checks.
type Store struct {
	ORM    *gorm.DB
	Reader *sqlx.DB
	shared bool
}

// Open connects to the configured driver. Postgres gets its own sqlx pool;
// sqlite shares the ORM's single connection.
func Open(cfg *config.Config) (*Store, error) {
	orm, err := InitORM(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return nil, err
	}

	if cfg.DBDriver == config.DriverSQLite {
		reader, err := ReaderFromORM(orm, cfg.DBDriver)
		if err != nil {
			return nil, err
		}
		return &Store{ORM: orm, Reader: reader, shared: true}, nil
	}

	reader, err := InitPostgres(cfg.DSN())
	if err != nil {
		if sqlDB, dbErr := orm.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, fmt.Errorf("failed to connect to postgres (sqlx): %w", err)
	}
	return &Store{ORM: orm, Reader: reader}, nil
}

func (s *Store) Close() error {
	var errs []error
	if !s.shared && s.Reader != nil {
		errs = append(errs, s.Reader.Close())
	}
	if sqlDB, err := s.ORM.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	} else {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
