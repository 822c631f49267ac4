package model

import (
	"fmt"
	"strings"
	"time"
)

// Role is a user's moderation role.
type Role string

const (
	RoleUser      Role = "user"
	RoleMod       Role = "mod"
	RoleHeadAdmin Role = "headadmin"
)

// BanPermanent is the sentinel for a ban with no expiry.
const BanPermanent int64 = -1

// CompletedRecord is one verified completion in a user's history.
// The (LevelID, Video) pair is the dedup key: approving the same
// completion twice must not append a second record.
type CompletedRecord struct {
	LevelID   string    `json:"levelId"`
	Video     string    `json:"video"`
	Percent   int       `json:"percent,omitempty"`
	AwardedAt time.Time `json:"awardedAt"`
}

// User is a registered player or moderator.
//
// Passwords are stored in plain text. That is how the site it mirrors
// stores them; hardening authentication is out of scope for this layer.
type User struct {
	ID             string            `json:"id"`
	Username       string            `json:"username"`
	Password       string            `json:"password"`
	Role           Role              `json:"role"`
	Nationality    string            `json:"nationality,omitempty"`
	Points         int               `json:"points"`
	CreatedAt      time.Time         `json:"createdAt"`
	LastLoginAt    time.Time         `json:"lastLoginAt,omitempty"`
	ProfilePicture string            `json:"profilePicture,omitempty"`
	Bio            string            `json:"bio,omitempty"`
	Completed      []CompletedRecord `json:"completedRecords,omitempty"`
	EquippedTitle  string            `json:"equippedTitle,omitempty"`

	// Ban fields. BannedUntil is epoch milliseconds, BanPermanent for
	// no expiry, zero when not banned.
	BannedUntil int64  `json:"bannedUntil,omitempty"`
	BanReason   string `json:"banReason,omitempty"`
	BannedBy    string `json:"bannedBy,omitempty"`
	BannedAt    int64  `json:"bannedAt,omitempty"`
}

// Validate checks the User has valid field values.
func (u *User) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("id is required")
	}
	if u.Username == "" {
		return fmt.Errorf("username is required")
	}
	switch u.Role {
	case RoleUser, RoleMod, RoleHeadAdmin:
	default:
		return fmt.Errorf("unknown role %q", u.Role)
	}
	if u.Points < 0 {
		return fmt.Errorf("points must not be negative (got %d)", u.Points)
	}
	return nil
}

// IsBanned reports whether the user is banned as of now.
// An expired ban still counts as not banned even before the ban fields
// are cleared; use IsBanExpired plus an explicit cleanup to clear them.
func (u *User) IsBanned(now time.Time) bool {
	if u.BannedUntil == 0 {
		return false
	}
	if u.BannedUntil == BanPermanent {
		return true
	}
	return now.UnixMilli() < u.BannedUntil
}

// IsBanExpired reports whether the user carries ban fields for a ban
// that has already lapsed. Pure query; the caller decides when to clear.
func (u *User) IsBanExpired(now time.Time) bool {
	if u.BannedUntil == 0 || u.BannedUntil == BanPermanent {
		return false
	}
	return now.UnixMilli() >= u.BannedUntil
}

// ClearBan removes all ban fields.
func (u *User) ClearBan() {
	u.BannedUntil = 0
	u.BanReason = ""
	u.BannedBy = ""
	u.BannedAt = 0
}

// HasCompleted reports whether the user already has a completion record
// for the given (level, video) pair.
func (u *User) HasCompleted(levelID, video string) bool {
	for _, c := range u.Completed {
		if c.LevelID == levelID && c.Video == video {
			return true
		}
	}
	return false
}

// SameUsername compares usernames case-insensitively.
func SameUsername(a, b string) bool {
	return strings.EqualFold(a, b)
}
