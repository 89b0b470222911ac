package config

import (
	"fmt"
	"path/filepath"

	"github.com/kgcourse/geopub/pkg/journal"
)

type RepoConfig struct {
	Dir         string `mapstructure:"data_dir"`
	DatabaseURL string `mapstructure:"database_url" validate:"omitempty,url"`
}

func (r RepoConfig) Validate() error {
	if r.DatabaseURL == "" && r.Dir == "" {
		return fmt.Errorf("either repo data dir or database URL required")
	}
	if r.DatabaseURL != "" && !r.IsPostgres() {
		return fmt.Errorf("repo.database_url must be a postgres:// url")
	}
	return nil
}

func (r RepoConfig) JournalPath() string {
	return filepath.Join(r.Dir, journal.DefaultFileName)
}

// IsPostgres returns true if the configured database URL points to a PostgreSQL server.
func (r RepoConfig) IsPostgres() bool {
	return journal.IsPostgres(r.DatabaseURL)
}
