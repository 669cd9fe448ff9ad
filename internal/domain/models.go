// Package domain defines the persistence models for accounts, users, diaries,
// and the sync bookkeeping tables. These types are mapped with GORM and form
// the core data layer of the diary aggregator.
package domain

import (
	"time"
)

// Account represents one upstream credential set. The auth token is an opaque
// bearer string ("token <jwt>") refreshed by the token lifecycle manager when
// a stored email/password pair allows automatic re-login.
//
// Fields:
//   - ID: local autoincrement primary key.
//   - NiderijiUserID: upstream numeric user id; unique, at most one account row per upstream user.
//   - AuthToken: current bearer token, including the "token " prefix.
//   - Email / LoginPassword: optional stored credentials enabling auto re-login.
//   - IsActive: soft on/off switch; inactive accounts are skipped by the scheduler.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Account struct {
	ID             uint      `json:"id"              gorm:"primaryKey"`
	NiderijiUserID int64     `json:"nideriji_userid" gorm:"column:nideriji_userid;uniqueIndex;not null"`
	AuthToken      string    `json:"-"               gorm:"type:text;not null"`
	Email          string    `json:"email"           gorm:"type:varchar(255)"`
	LoginPassword  string    `json:"-"               gorm:"type:varchar(255)"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName returns the database table name for Account.
func (Account) TableName() string { return "accounts" }

// User is a denormalized cache of an upstream person's profile (account owner
// or paired partner), keyed by upstream user id. Every successful sync
// overwrites the profile fields with the latest upstream payload.
type User struct {
	ID             uint       `json:"id"              gorm:"primaryKey"`
	NiderijiUserID int64      `json:"nideriji_userid" gorm:"column:nideriji_userid;uniqueIndex;not null"`
	Name           string     `json:"name"            gorm:"type:varchar(100)"`
	Description    string     `json:"description"     gorm:"type:text"`
	Role           string     `json:"role"            gorm:"type:varchar(10)"` // 'boy' or 'girl'
	Avatar         string     `json:"avatar"          gorm:"type:text"`
	DiaryCount     int        `json:"diary_count"     gorm:"default:0"`
	WordCount      int        `json:"word_count"      gorm:"default:0"`
	ImageCount     int        `json:"image_count"     gorm:"default:0"`
	LastLoginTime  *time.Time `json:"last_login_time"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Diary is one synced entry. Content may be empty for preview-only records
// until a detail fetch completes. Rows are never hard-deleted; superseded
// content is snapshotted into DiaryHistory before every overwrite.
//
// Invariants enforced by the reconciliation engine and the msg-count ledger:
//   - Content that crossed the completeness threshold is never replaced by
//     shorter content from a later sync or refresh.
//   - MsgCount is updated via compare-and-swap; increases append one
//     DiaryMsgCountEvent, decreases are written without an event.
type Diary struct {
	ID              uint       `json:"id"                gorm:"primaryKey"`
	NiderijiDiaryID int64      `json:"nideriji_diary_id" gorm:"uniqueIndex;not null"`
	UserID          uint       `json:"user_id"           gorm:"index;not null"`
	AccountID       uint       `json:"account_id"        gorm:"index;not null"`
	Title           string     `json:"title"             gorm:"type:varchar(255)"`
	Content         string     `json:"content"           gorm:"type:text"`
	CreatedDate     time.Time  `json:"created_date"      gorm:"type:date;index"`
	CreatedTime     *time.Time `json:"created_time"`
	Weather         string     `json:"weather"           gorm:"type:varchar(50)"`
	Mood            string     `json:"mood"              gorm:"type:varchar(50)"`
	MoodID          *int       `json:"mood_id"`
	MoodColor       string     `json:"mood_color"        gorm:"type:varchar(20)"`
	Space           string     `json:"space"             gorm:"type:varchar(10)"` // 'boy' or 'girl'
	IsSimple        int        `json:"is_simple"         gorm:"default:0"`
	MsgCount        *int       `json:"msg_count"         gorm:"default:0"`
	TS              int64      `json:"ts"                gorm:"index"` // upstream change marker
	BookmarkedAt    *int64     `json:"bookmarked_at"` // epoch milliseconds
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Diary.
func (Diary) TableName() string { return "diaries" }

// DiaryHistory is an append-only snapshot of a diary's displayed fields taken
// immediately before an overwrite. Rows are never mutated or deleted.
type DiaryHistory struct {
	ID              uint      `json:"id"                gorm:"primaryKey"`
	DiaryID         uint      `json:"diary_id"          gorm:"index;not null"`
	NiderijiDiaryID int64     `json:"nideriji_diary_id" gorm:"index"`
	Title           string    `json:"title"             gorm:"type:text"`
	Content         string    `json:"content"           gorm:"type:text"`
	Weather         string    `json:"weather"           gorm:"type:text"`
	Mood            string    `json:"mood"              gorm:"type:text"`
	TS              int64     `json:"ts"`
	RecordedAt      time.Time `json:"recorded_at"       gorm:"autoCreateTime"`
}

// TableName returns the database table name for DiaryHistory.
func (DiaryHistory) TableName() string { return "diary_history" }

// DiaryDetailFetchState tracks the outcome of detail (full-content) fetches
// per diary, so that entries the upstream keeps permanently short stop
// generating repeat detail requests on every sync.
//
// The row is pure bookkeeping: the decision to skip a detail fetch is made by
// the reconciliation engine from LastDetailSuccess and LastDetailIsShort.
type DiaryDetailFetchState struct {
	ID                   uint       `json:"id"                      gorm:"primaryKey"`
	DiaryID              uint       `json:"diary_id"                gorm:"uniqueIndex;not null"`
	NiderijiDiaryID      int64      `json:"nideriji_diary_id"       gorm:"index"`
	LastDetailAt         *time.Time `json:"last_detail_at"`
	LastDetailSuccess    bool       `json:"last_detail_success"     gorm:"default:false"`
	LastDetailIsShort    bool       `json:"last_detail_is_short"    gorm:"default:false"`
	LastDetailContentLen int        `json:"last_detail_content_len"`
	LastDetailError      string     `json:"last_detail_error"       gorm:"type:text"`
	Attempts             int        `json:"attempts"                gorm:"default:0"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// TableName returns the database table name for DiaryDetailFetchState.
func (DiaryDetailFetchState) TableName() string { return "diary_detail_fetches" }

// DiaryMsgCountEvent is an append-only ledger row recording a positive
// message-count transition. Only inserted, never mutated; windowed queries
// over RecordedAt answer "how many new messages arrived between t0 and t1".
type DiaryMsgCountEvent struct {
	ID          uint      `json:"id"            gorm:"primaryKey"`
	AccountID   uint      `json:"account_id"    gorm:"not null;index:idx_msg_events_acc_diary_at,priority:1"`
	DiaryID     uint      `json:"diary_id"      gorm:"not null;index:idx_msg_events_acc_diary_at,priority:2"`
	SyncLogID   *uint     `json:"sync_log_id"   gorm:"index"`
	OldMsgCount int       `json:"old_msg_count" gorm:"not null"`
	NewMsgCount int       `json:"new_msg_count" gorm:"not null"`
	Delta       int       `json:"delta"         gorm:"not null"`
	Source      string    `json:"source"        gorm:"type:varchar(20);not null;default:'sync';index"` // "sync" or "refresh"
	RecordedAt  time.Time `json:"recorded_at"   gorm:"autoCreateTime;not null;index:idx_msg_events_acc_diary_at,priority:3"`
}

// TableName returns the database table name for DiaryMsgCountEvent.
func (DiaryMsgCountEvent) TableName() string { return "diary_msg_count_events" }

// PairedRelationship links an account's own local user to a partner local
// user. Created once per (account, partner) pair; never hard-deleted, only
// deactivated.
type PairedRelationship struct {
	ID           uint       `json:"id"             gorm:"primaryKey"`
	AccountID    uint       `json:"account_id"     gorm:"index;not null"`
	UserID       uint       `json:"user_id"        gorm:"not null"`
	PairedUserID uint       `json:"paired_user_id" gorm:"index;not null"`
	PairedTime   *time.Time `json:"paired_time"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
}

// TableName returns the database table name for PairedRelationship.
func (PairedRelationship) TableName() string { return "paired_relationships" }

// Sync log states. A row is committed in SyncStatusRunning before any network
// I/O so in-flight syncs stay observable, then finalized exactly once.
const (
	SyncStatusRunning = "running"
	SyncStatusSuccess = "success"
	SyncStatusFailed  = "failed"
)

// SyncLog records one sync attempt for an account.
type SyncLog struct {
	ID                 uint      `json:"id"                   gorm:"primaryKey"`
	AccountID          uint      `json:"account_id"           gorm:"index;not null"`
	SyncTime           time.Time `json:"sync_time"            gorm:"autoCreateTime;index"`
	DiariesCount       int       `json:"diaries_count"`
	PairedDiariesCount int       `json:"paired_diaries_count"`
	Status             string    `json:"status"               gorm:"type:varchar(20)"`
	ErrorMessage       string    `json:"error_message"        gorm:"type:text"`
}

// TableName returns the database table name for SyncLog.
func (SyncLog) TableName() string { return "sync_logs" }

// Image fetch outcomes stored on CachedImage.FetchStatus.
const (
	ImageFetchOK        = "ok"
	ImageFetchForbidden = "forbidden"
	ImageFetchNotFound  = "not_found"
	ImageFetchError     = "error"
)

// CachedImage stores one upstream image blob. Content placeholders of the
// form "[图13]" reference image_id=13; the upstream image endpoint is scoped
// by upstream user id, hence the (nideriji_userid, image_id) unique key.
type CachedImage struct {
	ID             uint       `json:"id"              gorm:"primaryKey"`
	NiderijiUserID int64      `json:"nideriji_userid" gorm:"column:nideriji_userid;not null;uniqueIndex:uq_cached_images_user_image,priority:1"`
	ImageID        int64      `json:"image_id"        gorm:"not null;uniqueIndex:uq_cached_images_user_image,priority:2"`
	ContentType    string     `json:"content_type"    gorm:"type:varchar(100)"`
	Data           []byte     `json:"-"               gorm:"type:blob"`
	SizeBytes      int        `json:"size_bytes"`
	SHA256         string     `json:"sha256"          gorm:"type:varchar(64);index"`
	FetchStatus    string     `json:"fetch_status"    gorm:"type:varchar(20);default:'ok';index"`
	ErrorMessage   string     `json:"error_message"   gorm:"type:text"`
	FetchedAt      *time.Time `json:"fetched_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName returns the database table name for CachedImage.
func (CachedImage) TableName() string { return "cached_images" }
