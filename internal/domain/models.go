// Package domain defines the persistence models for submissions, catalog
// models, assignments, subscriptions, and accounts. These types are mapped
// with GORM and form the core data layer of the partner portal.
//
// JSON tags reproduce the wire names used by the consumer app's datastore
// (including historical quirks such as "picPathh", "modelNamee", "MName" and
// "Rating"); any change here breaks interop with existing data.
package domain

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Submission represents one partner upload event awaiting (or having
// received) an admin decision.
//
// Timestamps are unix milliseconds to match the documents the consumer app
// already stores. CreatedAt is set once at creation and never mutated.
// ApprovedAt and RejectedAt are mutually exclusive: whichever decision fired
// last sets its own timestamp and nulls the other.
type Submission struct {
	ID            string         `json:"submissionId"  gorm:"type:TEXT NOT NULL;primaryKey"`
	ModelKey      string         `json:"modelKey"      gorm:"type:TEXT;index"`
	BusinessID    string         `json:"businessId"    gorm:"type:TEXT NOT NULL;index:idx_business_subs,priority:1"`
	BusinessName  string         `json:"businessName"  gorm:"type:TEXT NOT NULL"`
	UploaderUID   string         `json:"uploaderUid"   gorm:"type:TEXT NOT NULL"`
	UploaderRole  string         `json:"uploaderRole"  gorm:"type:TEXT NOT NULL"`
	FileName      string         `json:"fileName"      gorm:"type:TEXT NOT NULL"`
	DisplayName   string         `json:"displayName"   gorm:"type:TEXT NOT NULL"`
	Question      string         `json:"question"      gorm:"type:TEXT NOT NULL"`
	PicPath       string         `json:"picPathh"      gorm:"column:pic_path;type:TEXT NOT NULL"`
	StoragePath   string         `json:"storagePath"   gorm:"type:TEXT NOT NULL"`
	TargetMode    TargetMode     `json:"targetMode"    gorm:"type:TEXT NOT NULL;check:target_mode IN ('all_users','specific_users')"`
	TargetUserIDs datatypes.JSON `json:"targetUserIds" gorm:"column:target_user_ids"`
	Status        Status         `json:"status"        gorm:"type:TEXT NOT NULL;default:'pending';check:status IN ('pending','approved','rejected')"`
	PushedToApp   bool           `json:"pushedToApp"   gorm:"not null;default:false"`
	PushedAt      *int64         `json:"pushedAt"`
	PushedCount   int            `json:"pushedCount"   gorm:"not null;default:0"`
	CreatedAt     int64          `json:"createdAt"     gorm:"not null;index:idx_business_subs,priority:2"`
	ApprovedAt    *int64         `json:"approvedAt"`
	RejectedAt    *int64         `json:"rejectedAt"`
	DecisionBy    *string        `json:"decisionBy"`
	AssignmentErr *string        `json:"assignmentError,omitempty" gorm:"column:assignment_error"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the database table name for Submission.
func (Submission) TableName() string { return "submissions" }

// ModelCounters holds the cumulative engagement counters of a catalog entry.
// They are owned by the consumer app and must survive re-publishes of the
// same model key: the catalog projector merges, never resets.
type ModelCounters struct {
	Sent   int    `json:"sent"   gorm:"not null;default:0"`
	Saved  int    `json:"saved"  gorm:"not null;default:0"`
	Yes    int    `json:"yes"    gorm:"not null;default:0"`
	No     int    `json:"no"     gorm:"not null;default:0"`
	Rating string `json:"rating" gorm:"type:TEXT NOT NULL;default:'0.0'"`
}

// Model is one published, distributable catalog entry, keyed by model key.
//
// Version backs optimistic concurrency for the read-merge-write publish path;
// it is storage-internal and never serialized to the wire.
type Model struct {
	ModelKey    string        `json:"modelNamee"  gorm:"column:model_key;type:TEXT NOT NULL;primaryKey"`
	Name        string        `json:"name"        gorm:"type:TEXT NOT NULL"`
	PicPath     string        `json:"picPathh"    gorm:"column:pic_path;type:TEXT NOT NULL"`
	Question    string        `json:"question"    gorm:"type:TEXT NOT NULL"`
	StoragePath string        `json:"storagePath" gorm:"type:TEXT NOT NULL"`
	Data        ModelCounters `json:"data"        gorm:"embedded;embeddedPrefix:data_"`
	Version     int64         `json:"-"           gorm:"not null;default:0"`
	UpdatedAt   time.Time     `json:"-"`
}

// TableName returns the database table name for Model.
func (Model) TableName() string { return "models" }

// Assignment marks that one end-user has received one model. It is created
// at most once per (user, model) pair; saved, Rating and answer are owned by
// the end-user experience and must never be overwritten by the core.
type Assignment struct {
	ID        string    `json:"-"      gorm:"type:TEXT NOT NULL;primaryKey"`
	UserID    string    `json:"-"      gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_model,priority:1"`
	ModelKey  string    `json:"MName"  gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_model,priority:2"`
	Saved     bool      `json:"saved"  gorm:"not null;default:false"`
	Rating    string    `json:"Rating" gorm:"type:TEXT NOT NULL;default:'0.0'"`
	Answer    Answer    `json:"answer" gorm:"type:TEXT NOT NULL;default:'pending';check:answer IN ('pending','yes','no')"`
	CreatedAt time.Time `json:"-"`
}

// TableName returns the database table name for Assignment.
func (Assignment) TableName() string { return "assignments" }

// Subscription is one row of a partner's admin-curated default audience.
// The registry replaces a partner's rows wholesale on save.
type Subscription struct {
	ID        string    `json:"-"         gorm:"type:TEXT NOT NULL;primaryKey"`
	PartnerID string    `json:"partnerId" gorm:"type:TEXT NOT NULL;uniqueIndex:ux_partner_user,priority:1;index"`
	UserID    string    `json:"userId"    gorm:"type:TEXT NOT NULL;uniqueIndex:ux_partner_user,priority:2"`
	CreatedAt time.Time `json:"-"`
}

// TableName returns the database table name for Subscription.
func (Subscription) TableName() string { return "subscriptions" }

// UploadTracker is the denormalized, model-key-keyed projection of a
// submission's status and push outcome, consumed by catalog/administration
// views. It is rebuilt from the owning submission after every mutating
// submission operation and is never a source of truth.
type UploadTracker struct {
	ModelKey      string    `json:"modelKey"     gorm:"type:TEXT NOT NULL;primaryKey"`
	SubmissionID  string    `json:"submissionId" gorm:"type:TEXT NOT NULL;index"`
	BusinessID    string    `json:"businessId"   gorm:"type:TEXT NOT NULL;index"`
	FileName      string    `json:"fileName"     gorm:"type:TEXT NOT NULL"`
	Status        Status    `json:"status"       gorm:"type:TEXT NOT NULL"`
	PushedToApp   bool      `json:"pushedToApp"  gorm:"not null;default:false"`
	PushedAt      *int64    `json:"pushedAt"`
	PushedCount   int       `json:"pushedCount"  gorm:"not null;default:0"`
	AssignmentErr *string   `json:"assignmentError,omitempty" gorm:"column:assignment_error"`
	UpdatedAt     time.Time `json:"-"`
}

// TableName returns the database table name for UploadTracker.
func (UploadTracker) TableName() string { return "upload_trackers" }

// Account is the read-only identity/profile reference owned by the auth
// collaborator. The core consults roles and business ownership but never
// writes profile fields.
type Account struct {
	UID          string `json:"uid"          gorm:"type:TEXT NOT NULL;primaryKey"`
	Role         string `json:"role"         gorm:"type:TEXT NOT NULL;default:'user'"`
	BusinessID   string `json:"businessId"   gorm:"type:TEXT"`
	BusinessName string `json:"businessName" gorm:"type:TEXT"`
	DisplayName  string `json:"displayName"  gorm:"type:TEXT"`
}

// TableName returns the database table name for Account.
func (Account) TableName() string { return "accounts" }

// Event is one engagement event emitted by the consumer app ("open" or
// "save"), scoped to a business for the analytics aggregator.
type Event struct {
	ID         string `json:"-"          gorm:"type:TEXT NOT NULL;primaryKey"`
	BusinessID string `json:"businessId" gorm:"type:TEXT NOT NULL;index"`
	UserID     string `json:"userId"     gorm:"type:TEXT"`
	EventType  string `json:"eventType"  gorm:"type:TEXT NOT NULL"`
	CreatedAt  int64  `json:"createdAt"  gorm:"not null"`
}

// TableName returns the database table name for Event.
func (Event) TableName() string { return "events" }
