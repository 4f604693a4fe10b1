package services

import (
	"context"
	"fmt"

	"findr-server/internal/models"

	"gorm.io/gorm"
)

type DiscoverFilters struct {
	Role  *models.Role
	Limit int
}

// DiscoverProfile is a candidate profile together with its owner.
type DiscoverProfile struct {
	models.Profile
	User models.UserSummary `json:"user"`
}

// DiscoverySelector picks profiles a user has not swiped on yet.
type DiscoverySelector struct {
	db           *gorm.DB
	defaultLimit int
	maxLimit     int
}

func NewDiscoverySelector(db *gorm.DB, defaultLimit, maxLimit int) *DiscoverySelector {
	if defaultLimit < 1 {
		defaultLimit = 10
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}
	return &DiscoverySelector{db: db, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// NextCandidates returns up to filters.Limit active profiles, best GitHub score
// first and most recently active among equal scores. Profiles the user already
// swiped on, with any action, are never returned.
func (s *DiscoverySelector) NextCandidates(ctx context.Context, userID string, filters DiscoverFilters) ([]DiscoverProfile, error) {
	if userID == "" {
		return nil, ErrAuthenticationRequired
	}
	if filters.Role != nil && !validRole(*filters.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, *filters.Role)
	}

	limit := s.clampLimit(filters.Limit)

	swiped := s.db.Model(&models.Swipe{}).Select("target_id").Where("swiper_id = ?", userID)

	query := s.db.WithContext(ctx).
		InnerJoins("User").
		Where("profiles.is_active = ?", true).
		Where("profiles.user_id <> ?", userID).
		Where("profiles.user_id NOT IN (?)", swiped)

	if filters.Role != nil {
		query = query.Where("profiles.role = ?", *filters.Role)
	}

	var profiles []models.Profile
	if err := query.
		Order("profiles.github_score DESC").
		Order("profiles.last_active DESC").
		Limit(limit).
		Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch discover profiles: %w", err)
	}

	out := make([]DiscoverProfile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, DiscoverProfile{Profile: p, User: p.User.Summary()})
	}
	return out, nil
}

func (s *DiscoverySelector) clampLimit(limit int) int {
	if limit <= 0 {
		return s.defaultLimit
	}
	if limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}

func validRole(r models.Role) bool {
	switch r {
	case models.RoleTechnical, models.RoleNonTechnical, models.RoleHybrid:
		return true
	}
	return false
}
