package repositories

import (
	"context"

	"fraternitybase/registry/internal/constants"
	"fraternitybase/registry/internal/models/entities"

	"github.com/jmoiron/sqlx"
)

// ExportRepository runs the read-only export join
type ExportRepository struct {
	db *sqlx.DB
}

func NewExportRepository(db *sqlx.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

// ListExportableMembers returns Active and Alumni members with whatever
// chapter and university data resolves, ordered by chapter name.
func (r *ExportRepository) ListExportableMembers(ctx context.Context) ([]entities.ExportMemberRow, error) {
	var rows []entities.ExportMemberRow

	query := r.db.Rebind(constants.ExportMembersQuery)
	err := r.db.SelectContext(ctx, &rows, query,
		string(constants.MemberStatusActive),
		string(constants.MemberStatusAlumni),
	)
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// Ping checks the read connection
func (r *ExportRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
