package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"findr-server/internal/config"
	"findr-server/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileInput struct {
	Bio            *string           `json:"bio" validate:"omitempty,max=280"`
	Role           models.Role       `json:"role" validate:"required,oneof=technical non-technical hybrid"`
	Skills         []string          `json:"skills" validate:"required,min=1,max=30,dive,required,max=50"`
	LookingFor     []string          `json:"looking_for" validate:"required,min=1,max=30,dive,required,max=50"`
	ProjectIdeas   []string          `json:"project_ideas" validate:"max=3,dive,required,max=200"`
	Interests      []string          `json:"interests" validate:"max=30,dive,required,max=50"`
	Commitment     models.Commitment `json:"commitment" validate:"omitempty,oneof=full-time part-time weekends flexible"`
	GitHubUsername *string           `json:"github_username" validate:"omitempty,max=39"`
}

// ActivityLimiter gates how often last-active pings reach the database.
type ActivityLimiter interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
}

type GitHubStatsFetcher interface {
	FetchStats(ctx context.Context, username string) (*GitHubStats, error)
}

type ObjectStore interface {
	UploadFile(ctx context.Context, file io.Reader, size int64, key, contentType string) (string, error)
	DeleteFile(ctx context.Context, url string) error
}

type ProfileService struct {
	db       *gorm.DB
	cfg      *config.Config
	validate *validator.Validate
	limiter  ActivityLimiter
	github   GitHubStatsFetcher
	store    ObjectStore
	now      func() time.Time
}

// NewProfileService wires the profile store. limiter, github and store are
// optional; the matching features they back are disabled when nil.
func NewProfileService(db *gorm.DB, cfg *config.Config, limiter ActivityLimiter, github GitHubStatsFetcher, store ObjectStore) *ProfileService {
	return &ProfileService{
		db:       db,
		cfg:      cfg,
		validate: validator.New(),
		limiter:  limiter,
		github:   github,
		store:    store,
		now:      time.Now,
	}
}

// CreateOrUpdate upserts the user's profile. List fields are replaced, not merged.
func (s *ProfileService) CreateOrUpdate(ctx context.Context, userID string, input ProfileInput) (*models.Profile, error) {
	if userID == "" {
		return nil, ErrAuthenticationRequired
	}

	input = normalizeProfileInput(input)
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	profile, err := s.GetByUser(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if profile == nil {
		now := s.now()
		profile = &models.Profile{
			UserID:          userID,
			GitHubLanguages: models.StringList{},
			IsActive:        true,
			LastActive:      now,
		}
		applyProfileInput(profile, input)

		err := s.db.WithContext(ctx).Omit(clause.Associations).Create(profile).Error
		if err == nil {
			logrus.WithField("user_id", userID).Info("Profile created")
			return profile, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("failed to create profile: %w", err)
		}

		// A concurrent request created it first; apply this submission on top.
		if profile, err = s.GetByUser(ctx, userID); err != nil {
			return nil, err
		}
	}

	previousGitHub := profile.GitHubUsername
	applyProfileInput(profile, input)
	if !sameString(previousGitHub, profile.GitHubUsername) {
		resetGitHubStats(profile)
	}

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(profile).Error; err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return profile, nil
}

func (s *ProfileService) GetByUser(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: profile for user %s", ErrNotFound, userID)
		}
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	return &profile, nil
}

// UpdateLastActive touches the user's last-active timestamp. Errors are
// logged and dropped; at most one write per ActivityPingInterval reaches the
// database when a limiter is configured.
func (s *ProfileService) UpdateLastActive(ctx context.Context, userID string) {
	if userID == "" {
		return
	}

	if s.limiter != nil {
		acquired, err := s.limiter.SetNX(ctx, "findr:active:"+userID, 1, s.cfg.ActivityPingInterval)
		if err != nil {
			logrus.WithError(err).WithField("user_id", userID).Debug("Activity limiter unavailable")
		} else if !acquired {
			return
		}
	}

	if err := s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("user_id = ?", userID).
		UpdateColumn("last_active", s.now()).Error; err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("Failed to update last active")
	}
}

// SetActive pauses or resumes the user's profile in discovery.
func (s *ProfileService) SetActive(ctx context.Context, userID string, isActive bool) (*models.Profile, error) {
	if userID == "" {
		return nil, ErrAuthenticationRequired
	}

	res := s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"is_active":  isActive,
			"updated_at": s.now(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update profile status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: profile for user %s", ErrNotFound, userID)
	}

	return s.GetByUser(ctx, userID)
}

// RefreshGitHubStats reloads cached GitHub stats unless they are younger than
// the configured refresh interval and force is false.
func (s *ProfileService) RefreshGitHubStats(ctx context.Context, userID string, force bool) (*models.Profile, error) {
	if userID == "" {
		return nil, ErrAuthenticationRequired
	}

	profile, err := s.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile.GitHubUsername == nil || *profile.GitHubUsername == "" {
		return nil, fmt.Errorf("%w: profile has no GitHub username", ErrValidation)
	}
	if s.github == nil {
		return nil, errors.New("github integration is not configured")
	}

	now := s.now()
	if !force && profile.GitHubUpdatedAt != nil && now.Sub(*profile.GitHubUpdatedAt) < s.cfg.GitHubRefreshInterval {
		return profile, nil
	}

	stats, err := s.github.FetchStats(ctx, *profile.GitHubUsername)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch GitHub stats: %w", err)
	}

	profile.GitHubCommits = stats.Commits
	profile.GitHubPRs = stats.PullRequests
	profile.GitHubLanguages = models.StringList(stats.Languages)
	profile.GitHubScore = stats.Score()
	profile.GitHubUpdatedAt = &now

	if err := s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ?", profile.ID).
		UpdateColumns(map[string]interface{}{
			"github_commits":    profile.GitHubCommits,
			"github_prs":        profile.GitHubPRs,
			"github_languages":  profile.GitHubLanguages,
			"github_score":      profile.GitHubScore,
			"github_updated_at": now,
		}).Error; err != nil {
		return nil, fmt.Errorf("failed to store GitHub stats: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"score":   profile.GitHubScore,
	}).Info("GitHub stats refreshed")
	return profile, nil
}

// UploadAvatar stores a custom avatar image and replaces the previous one.
func (s *ProfileService) UploadAvatar(ctx context.Context, userID string, file io.Reader, size int64, contentType, ext string) (*models.Profile, error) {
	if userID == "" {
		return nil, ErrAuthenticationRequired
	}
	if s.store == nil {
		return nil, errors.New("object storage is not configured")
	}
	if err := s.validateImage(size, contentType); err != nil {
		return nil, err
	}

	profile, err := s.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("avatars/%s/%s%s", userID, uuid.NewString(), strings.ToLower(ext))
	url, err := s.store.UploadFile(ctx, file, size, key, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}

	previous := profile.AvatarURL
	profile.AvatarURL = &url
	if err := s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ?", profile.ID).
		Updates(map[string]interface{}{"avatar_url": url, "updated_at": s.now()}).Error; err != nil {
		return nil, fmt.Errorf("failed to save avatar: %w", err)
	}

	if previous != nil && *previous != "" {
		if err := s.store.DeleteFile(ctx, *previous); err != nil {
			logrus.WithError(err).WithField("user_id", userID).Warn("Failed to delete previous avatar")
		}
	}

	return profile, nil
}

func (s *ProfileService) validateImage(size int64, contentType string) error {
	if size <= 0 {
		return fmt.Errorf("%w: empty file", ErrValidation)
	}
	if size > s.cfg.MaxFileSize {
		return fmt.Errorf("%w: file too large, maximum size is %d bytes", ErrValidation, s.cfg.MaxFileSize)
	}

	for _, allowed := range s.cfg.AllowedImageTypes {
		if contentType == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: invalid file type, allowed types are: %s", ErrValidation, strings.Join(s.cfg.AllowedImageTypes, ", "))
}

func applyProfileInput(p *models.Profile, in ProfileInput) {
	p.Bio = in.Bio
	p.Role = in.Role
	p.Skills = models.StringList(in.Skills)
	p.LookingFor = models.StringList(in.LookingFor)
	p.ProjectIdeas = models.StringList(in.ProjectIdeas)
	p.Interests = models.StringList(in.Interests)
	p.Commitment = in.Commitment
	p.GitHubUsername = in.GitHubUsername
}

func resetGitHubStats(p *models.Profile) {
	p.GitHubCommits = 0
	p.GitHubPRs = 0
	p.GitHubLanguages = models.StringList{}
	p.GitHubScore = 0
	p.GitHubUpdatedAt = nil
}

// normalizeProfileInput trims entries, drops blanks and duplicates, and fills
// defaults for optional fields.
func normalizeProfileInput(in ProfileInput) ProfileInput {
	in.Skills = cleanList(in.Skills)
	in.LookingFor = cleanList(in.LookingFor)
	in.ProjectIdeas = cleanList(in.ProjectIdeas)
	in.Interests = cleanList(in.Interests)

	if in.Commitment == "" {
		in.Commitment = models.CommitmentFlexible
	}
	if in.Bio != nil {
		bio := strings.TrimSpace(*in.Bio)
		in.Bio = &bio
	}
	if in.GitHubUsername != nil {
		name := strings.TrimPrefix(strings.TrimSpace(*in.GitHubUsername), "@")
		if name == "" {
			in.GitHubUsername = nil
		} else {
			in.GitHubUsername = &name
		}
	}
	return in
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		out = append(out, trimmed)
	}
	return out
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
