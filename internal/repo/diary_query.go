// Search/filter query for diaries. The smart-search syntax is parsed in
// utils; this file translates the normalized query into SQL conditions
// (escaped LIKE over title and content).
package repo

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yournote/go-diary-backend/internal/domain"
)

const likeEscape = "\\"

// DiaryQuery carries all filters of the query endpoint in normalized form.
type DiaryQuery struct {
	Positive []string // must-match tokens (terms + phrases)
	Excludes []string // must-not-match tokens
	ModeOr   bool     // false = AND (default), true = OR over positives

	AccountID       uint
	UserID          uint
	DateFrom        *time.Time // inclusive
	DateTo          *time.Time // inclusive
	Bookmarked      *bool
	HasMsg          *bool
	MatchedOnly     bool // restrict to diaries authored by an active paired partner
	IncludeInactive bool // include diaries of deactivated accounts

	OrderBy string // ts | created_date | created_at | bookmarked_at | msg_count
	Asc     bool
	Limit   int
	Offset  int
}

// escapeLikeTerm escapes LIKE wildcards so user input cannot act as a
// pattern.
func escapeLikeTerm(v string) string {
	v = strings.ReplaceAll(v, likeEscape, likeEscape+likeEscape)
	v = strings.ReplaceAll(v, "%", likeEscape+"%")
	v = strings.ReplaceAll(v, "_", likeEscape+"_")
	return v
}

func matchCondition(q *gorm.DB, token string) *gorm.DB {
	pattern := "%" + escapeLikeTerm(strings.ToLower(token)) + "%"
	return q.Session(&gorm.Session{NewDB: true}).
		Where("LOWER(COALESCE(title, '')) LIKE ? ESCAPE ? OR LOWER(COALESCE(content, '')) LIKE ? ESCAPE ?",
			pattern, likeEscape, pattern, likeEscape)
}

// QueryDiaries runs the search and returns one page plus the total count.
func QueryDiaries(ctx context.Context, db *gorm.DB, q DiaryQuery) ([]domain.Diary, int64, error) {
	base := db.WithContext(ctx).Model(&domain.Diary{})

	if q.AccountID != 0 {
		base = base.Where("diaries.account_id = ?", q.AccountID)
	}
	if q.UserID != 0 {
		base = base.Where("diaries.user_id = ?", q.UserID)
	}
	if q.DateFrom != nil {
		base = base.Where("diaries.created_date >= ?", *q.DateFrom)
	}
	if q.DateTo != nil {
		base = base.Where("diaries.created_date <= ?", *q.DateTo)
	}
	if q.Bookmarked != nil {
		if *q.Bookmarked {
			base = base.Where("diaries.bookmarked_at IS NOT NULL")
		} else {
			base = base.Where("diaries.bookmarked_at IS NULL")
		}
	}
	if q.HasMsg != nil {
		if *q.HasMsg {
			base = base.Where("COALESCE(diaries.msg_count, 0) > 0")
		} else {
			base = base.Where("COALESCE(diaries.msg_count, 0) <= 0")
		}
	}

	if len(q.Positive) > 0 {
		if q.ModeOr {
			var or *gorm.DB
			for _, token := range q.Positive {
				cond := matchCondition(db, token)
				if or == nil {
					or = cond
				} else {
					or = or.Or(cond)
				}
			}
			base = base.Where(or)
		} else {
			for _, token := range q.Positive {
				base = base.Where(matchCondition(db, token))
			}
		}
	}
	for _, token := range q.Excludes {
		if strings.TrimSpace(token) == "" {
			continue
		}
		pattern := "%" + escapeLikeTerm(strings.ToLower(token)) + "%"
		base = base.Where("NOT (LOWER(COALESCE(title, '')) LIKE ? ESCAPE ? OR LOWER(COALESCE(content, '')) LIKE ? ESCAPE ?)",
			pattern, likeEscape, pattern, likeEscape)
	}

	if q.MatchedOnly {
		base = base.Where("EXISTS (SELECT 1 FROM paired_relationships pr WHERE pr.account_id = diaries.account_id AND pr.paired_user_id = diaries.user_id AND pr.is_active = ?)", true)
	}
	if !q.IncludeInactive {
		base = base.Joins("JOIN accounts ON accounts.id = diaries.account_id").
			Where("accounts.is_active = ?", true)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderCol := map[string]string{
		"ts":           "diaries.ts",
		"created_date": "diaries.created_date",
		"created_at":   "diaries.created_at",
		"bookmarked_at": "diaries.bookmarked_at",
		"msg_count":    "COALESCE(diaries.msg_count, 0)",
	}[q.OrderBy]
	if orderCol == "" {
		orderCol = "diaries.ts"
	}
	dir := "desc"
	if q.Asc {
		dir = "asc"
	}

	items := base.Session(&gorm.Session{})
	if q.OrderBy == "bookmarked_at" {
		// Unbookmarked rows sort last regardless of direction.
		items = items.Order("diaries.bookmarked_at IS NULL asc")
	}
	items = items.Order(orderCol + " " + dir)
	if q.OrderBy != "created_date" {
		items = items.Order("diaries.created_date " + dir)
	}
	items = items.Order("diaries.id " + dir)
	if q.Limit > 0 {
		items = items.Limit(q.Limit)
	}
	if q.Offset > 0 {
		items = items.Offset(q.Offset)
	}

	var out []domain.Diary
	if err := items.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
