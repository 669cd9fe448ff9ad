package upstream

import (
	"encoding/json"
)

// Record is one diary record as returned by the upstream, from either the
// bulk sync payload or the detail endpoint. Pointer fields distinguish
// "absent" from zero values so that detail records can overlay previews
// field by field.
type Record struct {
	ID          int64   `json:"id"`
	Title       *string `json:"title"`
	Content     *string `json:"content"`
	CreatedDate string  `json:"createddate"` // YYYY-MM-DD, parsed strictly
	CreatedTime *int64  `json:"createdtime"` // epoch seconds
	Weather     *string `json:"weather"`
	Mood        *string `json:"mood"`
	MoodID      *int    `json:"mood_id"`
	MoodColor   *string `json:"mood_color"`
	Space       *string `json:"space"`
	IsSimple    *int    `json:"is_simple"` // 0/1
	MsgCount    *int    `json:"msg_count"`
	TS          *int64  `json:"ts"`
}

// UserConfig is the upstream profile blob for the account owner or the
// paired partner.
type UserConfig struct {
	UserID           int64       `json:"userid"`
	Name             string      `json:"name"`
	Description      string      `json:"description"`
	Role             string      `json:"role"`
	Avatar           string      `json:"avatar"`
	DiaryCount       int         `json:"diary_count"`
	WordCount        int         `json:"word_count"`
	ImageCount       int         `json:"image_count"`
	LastLoginTime    *int64      `json:"last_login_time"` // epoch seconds
	PairedTime       *int64      `json:"paired_time"`     // epoch seconds, partner config only
	PairedUserConfig *UserConfig `json:"paired_user_config"`
}

// SyncPayload is the body of POST /api/v2/sync/.
type SyncPayload struct {
	UserConfig    UserConfig `json:"user_config"`
	Diaries       []Record   `json:"diaries"`
	DiariesPaired []Record   `json:"diaries_paired"`
}

// detailListKeys is the fixed priority order of object keys that may carry
// the record list in a detail response. The endpoint has been observed to
// return a bare list, an object with one of these list-valued keys, or a
// single object under "diary".
var detailListKeys = [...]string{"diaries", "data", "result", "items"}

// parseDetailRecords normalizes the several response shapes of
// /api/diary/all_by_ids into a flat record slice.
func parseDetailRecords(body []byte) ([]Record, error) {
	var direct []Record
	if err := json.Unmarshal(body, &direct); err == nil {
		return direct, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, &ValidationError{Msg: "detail response is neither a list nor an object"}
	}

	for _, key := range detailListKeys {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var list []Record
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, &ValidationError{Msg: "detail key " + key + " is not a record list"}
		}
		return list, nil
	}

	if raw, ok := obj["diary"]; ok {
		var one Record
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, &ValidationError{Msg: "detail key diary is not a record"}
		}
		return []Record{one}, nil
	}

	// An object without any known list key carries no records.
	return nil, nil
}
