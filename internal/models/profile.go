package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleTechnical    Role = "technical"
	RoleNonTechnical Role = "non-technical"
	RoleHybrid       Role = "hybrid"
)

type Commitment string

const (
	CommitmentFullTime Commitment = "full-time"
	CommitmentPartTime Commitment = "part-time"
	CommitmentWeekends Commitment = "weekends"
	CommitmentFlexible Commitment = "flexible"
)

// Profile is a user's co-founder matching profile. At most one per user.
type Profile struct {
	ID              string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID          string     `json:"user_id" gorm:"type:varchar(64);uniqueIndex;not null"`
	Bio             *string    `json:"bio" gorm:"type:varchar(280)"`
	Role            Role       `json:"role" gorm:"type:varchar(20);not null;index"`
	Skills          StringList `json:"skills" gorm:"type:jsonb;not null"`
	LookingFor      StringList `json:"looking_for" gorm:"type:jsonb;not null"`
	ProjectIdeas    StringList `json:"project_ideas" gorm:"type:jsonb;not null"`
	Interests       StringList `json:"interests" gorm:"type:jsonb;not null"`
	Commitment      Commitment `json:"commitment" gorm:"type:varchar(20);not null"`
	GitHubUsername  *string    `json:"github_username" gorm:"column:github_username"`
	GitHubCommits   int        `json:"github_commits" gorm:"column:github_commits;not null;default:0"`
	GitHubPRs       int        `json:"github_prs" gorm:"column:github_prs;not null;default:0"`
	GitHubLanguages StringList `json:"github_languages" gorm:"column:github_languages;type:jsonb;not null"`
	GitHubScore     int        `json:"github_score" gorm:"column:github_score;not null;default:0;index:idx_profile_discovery,priority:1,sort:desc"`
	GitHubUpdatedAt *time.Time `json:"github_updated_at" gorm:"column:github_updated_at"`
	AvatarSeed      string     `json:"avatar_seed" gorm:"not null"`
	AvatarURL       *string    `json:"avatar_url,omitempty"`
	IsActive        bool       `json:"is_active" gorm:"not null"`
	LastActive      time.Time  `json:"last_active" gorm:"not null;index:idx_profile_discovery,priority:2,sort:desc"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	User            User       `json:"-" gorm:"foreignKey:UserID"`
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.AvatarSeed == "" {
		p.AvatarSeed = uuid.NewString()
	}
	return nil
}
