package service

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/rrebane/market-data-loader/internal/database"
	"github.com/rrebane/market-data-loader/internal/model"
)

// AppVersion is stamped at build time with -ldflags "-X ...service.AppVersion=...".
var AppVersion = "dev"

// SystemService handles system-related operations
type SystemService struct {
	db *sqlx.DB
}

// NewSystemService creates a new SystemService
func NewSystemService(db *sqlx.DB) *SystemService {
	return &SystemService{
		db: db,
	}
}

// CheckHealth checks the health of the system
func (s *SystemService) CheckHealth(ctx context.Context) error {
	return database.HealthCheck(ctx, s.db)
}

// CheckVersion reports the build version and whether the schema is behind the
// embedded migrations.
func (s *SystemService) CheckVersion() (model.VersionInfo, error) {
	current, latest, err := database.SchemaVersion(s.db)
	if err != nil {
		return model.VersionInfo{}, err
	}

	return model.VersionInfo{
		AppVersion:      AppVersion,
		DbVersion:       current,
		LatestDbVersion: latest,
		MigrationNeeded: current < latest,
	}, nil
}
