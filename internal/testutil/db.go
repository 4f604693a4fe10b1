// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"findr-server/internal/database"
	"findr-server/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated in-memory SQLite database private to the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func CreateUser(t *testing.T, db *gorm.DB, id string) *models.User {
	t.Helper()

	name := strings.ToUpper(id[:1]) + id[1:]
	username := id
	user := &models.User{ID: id, Name: &name, Username: &username}
	require.NoError(t, db.Create(user).Error)
	return user
}

type ProfileOption func(*models.Profile)

func WithScore(score int) ProfileOption {
	return func(p *models.Profile) { p.GitHubScore = score }
}

func WithLastActive(at time.Time) ProfileOption {
	return func(p *models.Profile) { p.LastActive = at }
}

func WithRole(role models.Role) ProfileOption {
	return func(p *models.Profile) { p.Role = role }
}

func Inactive() ProfileOption {
	return func(p *models.Profile) { p.IsActive = false }
}

// CreateProfile creates a user and an active technical profile for it.
func CreateProfile(t *testing.T, db *gorm.DB, userID string, opts ...ProfileOption) *models.Profile {
	t.Helper()

	CreateUser(t, db, userID)
	profile := &models.Profile{
		UserID:          userID,
		Role:            models.RoleTechnical,
		Skills:          models.StringList{"go"},
		LookingFor:      models.StringList{"design"},
		ProjectIdeas:    models.StringList{},
		Interests:       models.StringList{},
		Commitment:      models.CommitmentFlexible,
		GitHubLanguages: models.StringList{},
		IsActive:        true,
		LastActive:      time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	for _, opt := range opts {
		opt(profile)
	}

	require.NoError(t, db.Omit("User").Create(profile).Error)
	return profile
}
