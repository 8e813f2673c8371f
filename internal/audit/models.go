// Package audit records every authentication-relevant event in an
// append-only trail. Recording is best-effort and never alters the auth
// decision: events go through a bounded in-process queue that drops the
// oldest entry (and logs locally) on overflow, with no cross-request
// ordering guarantee.
package audit

import (
	"time"

	id "authgate/pkg/domain"
)

// Status marks an entry as recording a success or a failure.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Action names an authentication-relevant event.
type Action string

const (
	ActionLogin           Action = "login"
	ActionLogout          Action = "logout"
	ActionRefresh         Action = "refresh"
	ActionPasswordChanged Action = "password_changed"
	ActionLockoutEngaged  Action = "lockout_engaged"
	ActionSessionsRevoked Action = "sessions_revoked"
)

// Entry is one immutable row of the audit trail. UserID is nil for events
// that could not be attributed (e.g. login with an unknown username).
// Entries are purged only by the explicit retention policy.
type Entry struct {
	ID        id.AuditID     `json:"id"`
	UserID    *id.UserID     `json:"user_id,omitempty"`
	Action    Action         `json:"action"`
	Resource  string         `json:"resource,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	IPAddress string         `json:"ip_address,omitempty"`
	Status    Status         `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}

// Filter selects entries for a paginated query. Zero-valued fields do not
// constrain the result.
type Filter struct {
	UserID  *id.UserID
	Action  Action
	Status  Status
	IP      string
	From    *time.Time
	To      *time.Time
	Page    int
	PerPage int
}

const (
	defaultPerPage = 50
	maxPerPage     = 500
)

// Normalize clamps pagination to sane bounds.
func (f *Filter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = defaultPerPage
	}
	if f.PerPage > maxPerPage {
		f.PerPage = maxPerPage
	}
}

// Matches reports whether the entry satisfies every set constraint.
func (f *Filter) Matches(e *Entry) bool {
	if f.UserID != nil && (e.UserID == nil || *e.UserID != *f.UserID) {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.IP != "" && e.IPAddress != f.IP {
		return false
	}
	if f.From != nil && e.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !e.CreatedAt.Before(*f.To) {
		return false
	}
	return true
}

// Page is one page of query results.
type Page struct {
	Entries []*Entry `json:"entries"`
	Total   int      `json:"total"`
	Page    int      `json:"page"`
	PerPage int      `json:"per_page"`
}
