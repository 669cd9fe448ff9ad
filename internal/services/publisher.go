// Package services – PublishService
//
// Publishing pushes one content blob to the upstream write endpoint for a set
// of accounts. Delivery is at-least-once: each per-account attempt is
// recorded as a run item, and a client-supplied Idempotency-Key short-circuits
// replays within the TTL to the recorded run instead of writing again.
package services

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/yournote/go-diary-backend/internal/domain"
	"github.com/yournote/go-diary-backend/internal/repo"
	"github.com/yournote/go-diary-backend/internal/utils"
)

// PublishService writes diary content to the upstream on behalf of accounts.
type PublishService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Upstream issues the write calls.
	Upstream UpstreamAPI

	// IdempotencyTTL bounds how long a replayed Idempotency-Key returns the
	// recorded run.
	IdempotencyTTL time.Duration
	// ErrorSummaryLimit caps stored per-account error messages.
	ErrorSummaryLimit int

	now func() time.Time
}

// NewPublishService constructs a PublishService.
func NewPublishService(db *gorm.DB, up UpstreamAPI, idemTTL time.Duration, errLimit int) *PublishService {
	return &PublishService{
		DB:                db,
		Upstream:          up,
		IdempotencyTTL:    idemTTL,
		ErrorSummaryLimit: errLimit,
		now:               time.Now,
	}
}

// SaveDraft stores the editing draft for one date, replacing any previous
// draft for that date.
func (s *PublishService) SaveDraft(ctx context.Context, date, content string) (*domain.PublishDraft, error) {
	if _, err := time.Parse(createdDateLayout, date); err != nil {
		return nil, ErrBadDate
	}
	if utils.CountNoWhitespace(content) == 0 {
		return nil, ErrEmptyContent
	}
	return repo.UpsertPublishDraft(ctx, s.DB, date, content)
}

// GetDraft loads the draft for one date.
func (s *PublishService) GetDraft(ctx context.Context, date string) (*domain.PublishDraft, error) {
	if _, err := time.Parse(createdDateLayout, date); err != nil {
		return nil, ErrBadDate
	}
	draft, err := repo.GetPublishDraft(ctx, s.DB, date)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrDraftNotFound
		}
		return nil, err
	}
	return draft, nil
}

// Publish writes content for the given date to every target account and
// records the run. When idemKey is non-empty and matches an unexpired earlier
// run, that run is returned with replayed=true and no upstream write happens.
func (s *PublishService) Publish(ctx context.Context, date, content string, accountIDs []uint, idemKey string) (run *domain.PublishRun, items []domain.PublishRunItem, replayed bool, err error) {
	if _, terr := time.Parse(createdDateLayout, date); terr != nil {
		return nil, nil, false, ErrBadDate
	}
	if utils.CountNoWhitespace(content) == 0 {
		return nil, nil, false, ErrEmptyContent
	}
	if len(accountIDs) == 0 {
		return nil, nil, false, ErrNoTargets
	}

	if idemKey != "" {
		prior, perr := repo.GetPublishIdempotency(ctx, s.DB, idemKey, s.now())
		if perr != nil {
			return nil, nil, false, perr
		}
		if prior != nil {
			r, its, gerr := repo.GetPublishRun(ctx, s.DB, prior.RunID)
			if gerr != nil {
				return nil, nil, false, gerr
			}
			return r, its, true, nil
		}
	}

	targets, merr := json.Marshal(accountIDs)
	if merr != nil {
		return nil, nil, false, merr
	}
	run = &domain.PublishRun{Date: date, Content: content, TargetAccountIDs: string(targets)}
	if cerr := repo.CreatePublishRun(ctx, s.DB, run); cerr != nil {
		return nil, nil, false, cerr
	}

	for _, accountID := range accountIDs {
		item := domain.PublishRunItem{RunID: run.ID, AccountID: accountID, Status: domain.PublishStatusUnknown}

		acc, aerr := repo.GetAccount(ctx, s.DB, accountID)
		if aerr != nil {
			item.Status = domain.PublishStatusFailed
			item.ErrorMessage = utils.ErrorSummary(aerr, s.ErrorSummaryLimit)
		} else {
			item.NiderijiUserID = acc.NiderijiUserID
			var resp map[string]any
			werr := withAutoRelogin(ctx, s.DB, s.Upstream, acc, func(token string) error {
				r, e := s.Upstream.WriteDiary(ctx, token, date, content)
				if e == nil {
					resp = r
				}
				return e
			})
			if werr != nil {
				item.Status = domain.PublishStatusFailed
				item.ErrorMessage = utils.ErrorSummary(werr, s.ErrorSummaryLimit)
			} else {
				item.Status = domain.PublishStatusSuccess
				item.NiderijiDiaryID = extractDiaryID(resp)
				if raw, jerr := json.Marshal(resp); jerr == nil {
					item.ResponseJSON = string(raw)
				}
			}
		}

		if ierr := repo.AddPublishRunItem(ctx, s.DB, &item); ierr != nil {
			log.Error().Err(ierr).Uint("run_id", run.ID).Uint("account_id", accountID).
				Msg("record publish run item")
		}
		items = append(items, item)
	}

	if idemKey != "" {
		if perr := repo.PutPublishIdempotency(ctx, s.DB, idemKey, run.ID, s.now(), s.IdempotencyTTL); perr != nil {
			log.Warn().Err(perr).Uint("run_id", run.ID).Msg("store idempotency key")
		}
	}
	return run, items, false, nil
}

// ListRuns returns recent publish runs, newest first.
func (s *PublishService) ListRuns(ctx context.Context, limit int) ([]domain.PublishRun, error) {
	return repo.ListPublishRuns(ctx, s.DB, limit)
}

// GetRun returns one run with its per-account items.
func (s *PublishService) GetRun(ctx context.Context, id uint) (*domain.PublishRun, []domain.PublishRunItem, error) {
	run, items, err := repo.GetPublishRun(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil, ErrRunNotFound
		}
		return nil, nil, err
	}
	return run, items, nil
}

// extractDiaryID digs the created diary id out of the upstream write
// response. Observed shapes: {"diary": {"id": N, ...}} and {"id": N}.
func extractDiaryID(resp map[string]any) string {
	if resp == nil {
		return ""
	}
	if d, ok := resp["diary"].(map[string]any); ok {
		if id := numericID(d["id"]); id != "" {
			return id
		}
	}
	return numericID(resp["id"])
}

func numericID(v any) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatInt(int64(n), 10)
	case string:
		return n
	}
	return ""
}
