// Reconciliation engine. Pure functions that merge upstream records into the
// local diary state and decide, field by field, what to write. All database
// side effects stay with the callers; keeping the decisions pure makes the
// guard and detail-fetch rules directly testable.
package services

import (
	"strings"
	"time"

	"github.com/yournote/go-diary-backend/internal/domain"
	"github.com/yournote/go-diary-backend/internal/upstream"
	"github.com/yournote/go-diary-backend/internal/utils"
)

// createdDateLayout is the only accepted shape of the upstream createddate
// field. Anything else is a hard failure for the whole sync: a malformed date
// means the payload contract changed and silently skipping rows would lose
// diaries.
const createdDateLayout = "2006-01-02"

// stripBOM removes a leading UTF-8 byte order mark, which the upstream
// occasionally prepends to diary content.
func stripBOM(s string) string {
	return strings.TrimPrefix(s, "\uFEFF")
}

// ContentLength measures content completeness: the rune count after removing
// the BOM and all whitespace.
func ContentLength(content string) int {
	return utils.CountNoWhitespace(stripBOM(content))
}

// MergeDetail overlays the non-nil fields of a detail record onto a preview
// record. Fields absent from the detail keep their preview value; the detail
// never blanks a field the preview carried.
func MergeDetail(preview upstream.Record, detail *upstream.Record) upstream.Record {
	if detail == nil {
		return preview
	}
	merged := preview
	if detail.Title != nil {
		merged.Title = detail.Title
	}
	if detail.Content != nil {
		merged.Content = detail.Content
	}
	if detail.CreatedDate != "" {
		merged.CreatedDate = detail.CreatedDate
	}
	if detail.CreatedTime != nil {
		merged.CreatedTime = detail.CreatedTime
	}
	if detail.Weather != nil {
		merged.Weather = detail.Weather
	}
	if detail.Mood != nil {
		merged.Mood = detail.Mood
	}
	if detail.MoodID != nil {
		merged.MoodID = detail.MoodID
	}
	if detail.MoodColor != nil {
		merged.MoodColor = detail.MoodColor
	}
	if detail.Space != nil {
		merged.Space = detail.Space
	}
	if detail.IsSimple != nil {
		merged.IsSimple = detail.IsSimple
	}
	if detail.MsgCount != nil {
		merged.MsgCount = detail.MsgCount
	}
	if detail.TS != nil {
		merged.TS = detail.TS
	}
	return merged
}

// NeedsDetail decides whether a record warrants a full-content fetch.
//
// A record needs detail when its preview content is below the completeness
// threshold and the local row has not already crossed it. Entries that a
// previous successful detail fetch proved permanently short are suppressed,
// but only for rows that already exist locally; a diary seen for the first
// time is always fetched once.
func NeedsDetail(existing *domain.Diary, rec upstream.Record, state *domain.DiaryDetailFetchState, threshold int) bool {
	var incoming string
	if rec.Content != nil {
		incoming = *rec.Content
	}
	if ContentLength(incoming) >= threshold {
		return false
	}
	if existing != nil && ContentLength(existing.Content) >= threshold {
		return false
	}
	if existing != nil && state != nil && state.LastDetailSuccess && state.LastDetailIsShort {
		return false
	}
	return true
}

// ReconcileResult is the write plan for one upstream record. Exactly one of
// Create or Updates applies: Create is set for rows seen for the first time,
// Updates (possibly empty) for existing rows. History, when set, must be
// appended before the update is applied.
type ReconcileResult struct {
	Create         *domain.Diary
	Updates        map[string]any
	History        *domain.DiaryHistory
	ContentGuarded bool
}

// Reconcile merges an upstream record against the current local row and
// returns the write plan. The msg-count field is deliberately absent from the
// plan; it moves through the compare-and-swap path only.
//
// The content guard: once a row's content has crossed threshold stripped
// characters, an incoming record below the threshold never replaces it, and
// the candidate's title is dropped with the content. All other fields still
// update.
func Reconcile(existing *domain.Diary, rec upstream.Record, threshold int) (*ReconcileResult, error) {
	createdDate, err := time.Parse(createdDateLayout, rec.CreatedDate)
	if err != nil {
		return nil, ErrBadDate
	}

	incoming := ""
	if rec.Content != nil {
		incoming = stripBOM(*rec.Content)
	}

	if existing == nil {
		d := &domain.Diary{
			NiderijiDiaryID: rec.ID,
			Content:         incoming,
			CreatedDate:     createdDate,
		}
		if rec.Title != nil {
			d.Title = *rec.Title
		}
		if rec.CreatedTime != nil {
			t := time.Unix(*rec.CreatedTime, 0).UTC()
			d.CreatedTime = &t
		}
		if rec.Weather != nil {
			d.Weather = *rec.Weather
		}
		if rec.Mood != nil {
			d.Mood = *rec.Mood
		}
		if rec.MoodID != nil {
			v := *rec.MoodID
			d.MoodID = &v
		}
		if rec.MoodColor != nil {
			d.MoodColor = *rec.MoodColor
		}
		if rec.Space != nil {
			d.Space = *rec.Space
		}
		if rec.IsSimple != nil {
			d.IsSimple = *rec.IsSimple
		}
		if rec.TS != nil {
			d.TS = *rec.TS
		}
		return &ReconcileResult{Create: d}, nil
	}

	updates := map[string]any{}

	if rec.Title != nil && *rec.Title != existing.Title {
		updates["title"] = *rec.Title
	}
	if rec.Weather != nil && *rec.Weather != existing.Weather {
		updates["weather"] = *rec.Weather
	}
	if rec.Mood != nil && *rec.Mood != existing.Mood {
		updates["mood"] = *rec.Mood
	}
	if rec.MoodID != nil && (existing.MoodID == nil || *existing.MoodID != *rec.MoodID) {
		updates["mood_id"] = *rec.MoodID
	}
	if rec.MoodColor != nil && *rec.MoodColor != existing.MoodColor {
		updates["mood_color"] = *rec.MoodColor
	}
	if rec.Space != nil && *rec.Space != existing.Space {
		updates["space"] = *rec.Space
	}
	if rec.IsSimple != nil && *rec.IsSimple != existing.IsSimple {
		updates["is_simple"] = *rec.IsSimple
	}
	if rec.TS != nil && *rec.TS != existing.TS {
		updates["ts"] = *rec.TS
	}
	if !createdDate.Equal(existing.CreatedDate) {
		updates["created_date"] = createdDate
	}
	if rec.CreatedTime != nil {
		t := time.Unix(*rec.CreatedTime, 0).UTC()
		if existing.CreatedTime == nil || !existing.CreatedTime.Equal(t) {
			updates["created_time"] = t
		}
	}

	guarded := false
	if rec.Content != nil && incoming != existing.Content {
		if ContentLength(existing.Content) >= threshold && ContentLength(incoming) < threshold {
			guarded = true
		} else {
			updates["content"] = incoming
		}
	}
	if guarded {
		// Title and content travel together: a rejected short candidate must
		// not rename the kept entry either.
		delete(updates, "title")
	}

	res := &ReconcileResult{Updates: updates, ContentGuarded: guarded}

	_, contentChanged := updates["content"]
	_, titleChanged := updates["title"]
	if (contentChanged || titleChanged) && (existing.Content != "" || existing.Title != "") {
		res.History = &domain.DiaryHistory{
			DiaryID:         existing.ID,
			NiderijiDiaryID: existing.NiderijiDiaryID,
			Title:           existing.Title,
			Content:         existing.Content,
			Weather:         existing.Weather,
			Mood:            existing.Mood,
			TS:              existing.TS,
		}
	}
	return res, nil
}
