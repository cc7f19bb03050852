package models

import "time"

// Waitlist roles accepted by the submission form.
const (
	RoleCaregiver    = "caregiver"
	RoleProfessional = "professional"
	RolePartner      = "partner"
	RoleOther        = "other"
)

// WaitlistRoles lists the accepted roles in display order.
var WaitlistRoles = []string{RoleCaregiver, RoleProfessional, RolePartner, RoleOther}

// WaitlistEntry is one person's persisted waitlist submission.
//
// The JSON tags are the on-disk contract of the file store: a JSON array of these
// objects, with submittedAt encoded as an ISO-8601 string.
type WaitlistEntry struct {
	ID          string    `gorm:"type:text;primaryKey" json:"id"`
	Name        *string   `gorm:"type:text" json:"name,omitempty"`
	Email       string    `gorm:"type:text;not null;uniqueIndex" json:"email"`
	Role        string    `gorm:"type:text;not null" json:"role"`
	Challenge   *string   `gorm:"type:text" json:"challenge,omitempty"`
	Consent     bool      `gorm:"not null" json:"consent"`
	SubmittedAt time.Time `gorm:"not null" json:"submittedAt"`
	IPAddress   string    `gorm:"type:text" json:"ipAddress,omitempty"`
	UserAgent   string    `gorm:"type:text" json:"userAgent,omitempty"`
}

func (WaitlistEntry) TableName() string {
	return "waitlist_entries"
}

// HasName reports whether the entry carries a non-empty name.
func (e *WaitlistEntry) HasName() bool {
	return e != nil && e.Name != nil && *e.Name != ""
}

// HasChallenge reports whether the entry carries a non-empty challenge.
func (e *WaitlistEntry) HasChallenge() bool {
	return e != nil && e.Challenge != nil && *e.Challenge != ""
}
