// Publish-path models. Publishing pushes a content blob to the upstream
// write endpoint; it never touches synced Diary rows. Delivery is
// at-least-once with per-account bookkeeping, so every run and every
// per-account outcome is persisted.
package domain

import "time"

// PublishDraft is the local editing workspace for one calendar date.
// Keyed by date (YYYY-MM-DD) so switching dates reloads the draft.
type PublishDraft struct {
	ID        uint      `json:"id"         gorm:"primaryKey"`
	Date      string    `json:"date"       gorm:"type:varchar(10);uniqueIndex;not null"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for PublishDraft.
func (PublishDraft) TableName() string { return "publish_diary_drafts" }

// PublishRun records one publish action as a whole: the content, the date,
// and which accounts were targeted.
type PublishRun struct {
	ID               uint      `json:"id"                 gorm:"primaryKey"`
	Date             string    `json:"date"               gorm:"type:varchar(10);not null;index"`
	Content          string    `json:"content"            gorm:"type:text;not null"`
	TargetAccountIDs string    `json:"target_account_ids" gorm:"type:text;not null;default:'[]'"` // JSON array
	CreatedAt        time.Time `json:"created_at"`
}

// TableName returns the database table name for PublishRun.
func (PublishRun) TableName() string { return "publish_diary_runs" }

// Publish item outcomes stored on PublishRunItem.Status.
const (
	PublishStatusSuccess = "success"
	PublishStatusFailed  = "failed"
	PublishStatusUnknown = "unknown"
)

// PublishRunItem is the per-account outcome of one publish run.
type PublishRunItem struct {
	ID              uint      `json:"id"                gorm:"primaryKey"`
	RunID           uint      `json:"run_id"            gorm:"index;not null"`
	AccountID       uint      `json:"account_id"        gorm:"index;not null"`
	NiderijiUserID  int64     `json:"nideriji_userid"   gorm:"column:nideriji_userid;not null"`
	Status          string    `json:"status"            gorm:"type:varchar(20);not null;default:'unknown'"`
	NiderijiDiaryID string    `json:"nideriji_diary_id" gorm:"type:varchar(32)"`
	ErrorMessage    string    `json:"error_message"     gorm:"type:text"`
	ResponseJSON    string    `json:"response_json"     gorm:"type:text"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName returns the database table name for PublishRunItem.
func (PublishRunItem) TableName() string { return "publish_diary_run_items" }

// PublishIdempotency maps a client-supplied Idempotency-Key to the publish
// run it produced. Publishing is at-least-once toward the upstream, so
// replayed requests within the TTL return the recorded run instead of
// writing the diary again.
type PublishIdempotency struct {
	Key       string    `json:"key"        gorm:"primaryKey;type:varchar(200)"`
	RunID     uint      `json:"run_id"     gorm:"index;not null"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index"`
}

// TableName returns the database table name for PublishIdempotency.
func (PublishIdempotency) TableName() string { return "publish_idempotency_keys" }
