// Package services – SyncService
//
// This file implements the sync orchestrator. One sync pulls the full
// upstream payload for an account, reconciles own and paired diaries into
// local storage, maintains the paired relationship, and finalizes an audit
// row. The sync log row is committed before any network I/O so in-flight
// syncs are observable, and per-account locks keep concurrent triggers from
// interleaving writes.
package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/yournote/go-diary-backend/internal/config"
	"github.com/yournote/go-diary-backend/internal/domain"
	"github.com/yournote/go-diary-backend/internal/repo"
	"github.com/yournote/go-diary-backend/internal/upstream"
	"github.com/yournote/go-diary-backend/internal/utils"
)

// UpstreamAPI is the surface of the upstream client used by the service
// layer. Tests substitute a fake.
type UpstreamAPI interface {
	Authenticator
	SyncAll(ctx context.Context, token string) (*upstream.SyncPayload, error)
	FetchDetails(ctx context.Context, token string, ownerUserID int64, diaryIDs []int64) (map[int64]upstream.Record, error)
	WriteDiary(ctx context.Context, token, date, content string) (map[string]any, error)
	FetchImage(ctx context.Context, token string, niderijiUserID, imageID, maxBytes int64) ([]byte, string, error)
}

// SyncService coordinates full account syncs.
type SyncService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Upstream issues the API calls.
	Upstream UpstreamAPI
	// Locks serializes syncs per account within this process.
	Locks *SyncLockRegistry
	// Cfg carries thresholds and limits.
	Cfg config.SyncConfig

	// Images, when set, receives a best-effort background prefetch after
	// each successful sync.
	Images *ImageService

	now func() time.Time
}

// NewSyncService constructs a SyncService.
func NewSyncService(db *gorm.DB, up UpstreamAPI, locks *SyncLockRegistry, cfg config.SyncConfig) *SyncService {
	return &SyncService{
		DB:       db,
		Upstream: up,
		Locks:    locks,
		Cfg:      cfg,
		now:      time.Now,
	}
}

// SyncAccount runs one full sync for the account and returns the finalized
// sync log row. The returned error is non-nil when the sync failed; the log
// row then carries the sanitized failure summary.
func (s *SyncService) SyncAccount(ctx context.Context, accountID uint) (*domain.SyncLog, error) {
	acc, err := repo.GetAccount(ctx, s.DB, accountID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	if !s.Locks.TryAcquire(acc.ID) {
		return nil, ErrSyncInProgress
	}
	defer s.Locks.Release(acc.ID)

	slog := &domain.SyncLog{AccountID: acc.ID, Status: domain.SyncStatusRunning}
	if err := repo.CreateSyncLog(ctx, s.DB, slog); err != nil {
		return nil, err
	}

	own, paired, err := s.run(ctx, acc, slog.ID)
	if err != nil {
		msg := utils.ErrorSummary(err, s.Cfg.ErrorSummaryLimit)
		if ferr := repo.FinalizeSyncLog(ctx, s.DB, slog.ID, domain.SyncStatusFailed, 0, 0, msg); ferr != nil {
			log.Error().Err(ferr).Uint("sync_log_id", slog.ID).Msg("finalize failed sync log")
		}
		slog.Status = domain.SyncStatusFailed
		slog.ErrorMessage = msg
		return slog, err
	}

	if err := repo.FinalizeSyncLog(ctx, s.DB, slog.ID, domain.SyncStatusSuccess, own, paired, ""); err != nil {
		return slog, err
	}
	slog.Status = domain.SyncStatusSuccess
	slog.DiariesCount = own
	slog.PairedDiariesCount = paired
	return slog, nil
}

// run performs the sync body and returns the resulting own/paired diary
// totals for the account.
func (s *SyncService) run(ctx context.Context, acc *domain.Account, syncLogID uint) (int, int, error) {
	var payload *upstream.SyncPayload
	err := withAutoRelogin(ctx, s.DB, s.Upstream, acc, func(token string) error {
		p, serr := s.Upstream.SyncAll(ctx, token)
		if serr == nil {
			payload = p
		}
		return serr
	})
	if err != nil {
		return 0, 0, err
	}

	owner, err := s.upsertProfile(ctx, payload.UserConfig)
	if err != nil {
		return 0, 0, errors.Wrap(err, "upsert owner profile")
	}
	if err := s.reconcileSet(ctx, acc, owner, payload.Diaries, syncLogID); err != nil {
		return 0, 0, err
	}

	if pc := payload.UserConfig.PairedUserConfig; pc != nil && pc.UserID != 0 {
		partner, perr := s.upsertProfile(ctx, *pc)
		if perr != nil {
			return 0, 0, errors.Wrap(perr, "upsert partner profile")
		}
		if err := s.reconcileSet(ctx, acc, partner, payload.DiariesPaired, syncLogID); err != nil {
			return 0, 0, err
		}
		if err := EnsurePairing(ctx, s.DB, acc.ID, owner.ID, partner.ID, epochToTime(pc.PairedTime)); err != nil {
			return 0, 0, errors.Wrap(err, "ensure pairing")
		}
	} else if len(payload.DiariesPaired) > 0 {
		// Paired diaries without a partner profile cannot be attributed.
		log.Warn().
			Uint("account_id", acc.ID).
			Int("count", len(payload.DiariesPaired)).
			Msg("paired diaries present but no paired_user_config, skipping")
	}

	ownTotal, pairedTotal, err := repo.CountDiariesByOwnership(ctx, s.DB, acc.ID, owner.ID)
	if err != nil {
		return 0, 0, err
	}

	if s.Images != nil && s.Cfg.MaxImagesPerSync > 0 {
		accCopy := *acc
		go s.Images.PrefetchForAccount(&accCopy, s.Cfg.MaxImagesPerSync)
	}
	return int(ownTotal), int(pairedTotal), nil
}

// reconcileSet reconciles one record set (the account's own diaries or the
// partner's) into storage under the given local author.
func (s *SyncService) reconcileSet(ctx context.Context, acc *domain.Account, author *domain.User, records []upstream.Record, syncLogID uint) error {
	if len(records) == 0 {
		return nil
	}

	type rowState struct {
		existing   *domain.Diary
		wantDetail bool
	}
	states := make(map[int64]rowState, len(records))
	var wanted []int64

	for _, rec := range records {
		if rec.ID == 0 {
			continue
		}
		existing, err := repo.GetDiaryByUpstreamID(ctx, s.DB, rec.ID)
		if err != nil {
			if !errors.Is(err, repo.ErrNotFound) {
				return err
			}
			existing = nil
		}
		var fetchState *domain.DiaryDetailFetchState
		if existing != nil {
			fetchState, err = repo.GetDetailFetchState(ctx, s.DB, existing.ID)
			if err != nil {
				return err
			}
		}
		want := NeedsDetail(existing, rec, fetchState, s.Cfg.ContentThreshold)
		states[rec.ID] = rowState{existing: existing, wantDetail: want}
		if want {
			wanted = append(wanted, rec.ID)
		}
	}

	details := map[int64]upstream.Record{}
	var detailErr error
	if len(wanted) > 0 {
		detailErr = withAutoRelogin(ctx, s.DB, s.Upstream, acc, func(token string) error {
			m, ferr := s.Upstream.FetchDetails(ctx, token, author.NiderijiUserID, wanted)
			if ferr == nil {
				details = m
			}
			return ferr
		})
		if detailErr != nil {
			// Previews still land; the failure is tracked per diary below.
			log.Warn().Err(detailErr).
				Uint("account_id", acc.ID).
				Int("wanted", len(wanted)).
				Msg("detail fetch failed")
		}
	}

	now := s.now()
	for _, rec := range records {
		if rec.ID == 0 {
			continue
		}
		rs := states[rec.ID]

		var detail *upstream.Record
		if d, ok := details[rec.ID]; ok {
			detail = &d
		}
		merged := MergeDetail(rec, detail)

		result, err := Reconcile(rs.existing, merged, s.Cfg.ContentThreshold)
		if err != nil {
			return errors.Wrapf(err, "diary %d", rec.ID)
		}

		diary := rs.existing
		if result.Create != nil {
			result.Create.AccountID = acc.ID
			result.Create.UserID = author.ID
			if err := repo.CreateDiary(ctx, s.DB, result.Create); err != nil {
				return errors.Wrapf(err, "create diary %d", rec.ID)
			}
			diary = result.Create
		} else {
			if result.History != nil {
				if err := repo.AddDiaryHistory(ctx, s.DB, result.History); err != nil {
					return errors.Wrapf(err, "snapshot diary %d", rec.ID)
				}
			}
			if len(result.Updates) > 0 {
				if err := repo.UpdateDiaryFields(ctx, s.DB, diary.ID, result.Updates); err != nil {
					return errors.Wrapf(err, "update diary %d", rec.ID)
				}
			}
		}

		if rs.wantDetail {
			success := detailErr == nil
			contentLen := 0
			errMsg := ""
			if success {
				if detail != nil && detail.Content != nil {
					contentLen = ContentLength(*detail.Content)
				}
			} else {
				errMsg = utils.ErrorSummary(detailErr, s.Cfg.ErrorSummaryLimit)
			}
			isShort := success && contentLen < s.Cfg.ContentThreshold
			if err := repo.RecordDetailAttempt(ctx, s.DB, diary.ID, rec.ID, success, isShort, contentLen, errMsg, now); err != nil {
				return errors.Wrapf(err, "record detail attempt for diary %d", rec.ID)
			}
		}

		if _, err := ApplyMsgCountDelta(ctx, s.DB, diary, merged.MsgCount, MsgSourceSync, &syncLogID); err != nil {
			return errors.Wrapf(err, "msg count for diary %d", rec.ID)
		}
	}
	return nil
}

// upsertProfile caches an upstream profile blob as a local User row.
func (s *SyncService) upsertProfile(ctx context.Context, uc upstream.UserConfig) (*domain.User, error) {
	return repo.UpsertUser(ctx, s.DB, &domain.User{
		NiderijiUserID: uc.UserID,
		Name:           uc.Name,
		Description:    uc.Description,
		Role:           uc.Role,
		Avatar:         uc.Avatar,
		DiaryCount:     uc.DiaryCount,
		WordCount:      uc.WordCount,
		ImageCount:     uc.ImageCount,
		LastLoginTime:  epochToTime(uc.LastLoginTime),
	})
}

// AccountSyncResult is the per-account outcome of an all-account sweep.
type AccountSyncResult struct {
	AccountID     uint   `json:"account_id"`
	Status        string `json:"status"` // success | failed | skipped
	SyncLogID     uint   `json:"sync_log_id,omitempty"`
	Diaries       int    `json:"diaries_count"`
	PairedDiaries int    `json:"paired_diaries_count"`
	Error         string `json:"error,omitempty"`
}

// SyncAllAccounts sweeps every active account. Individual failures are
// captured per account; the sweep itself only errors when the account list
// cannot be read.
func (s *SyncService) SyncAllAccounts(ctx context.Context) ([]AccountSyncResult, error) {
	accounts, err := repo.ListAccounts(ctx, s.DB, true)
	if err != nil {
		return nil, err
	}

	results := make([]AccountSyncResult, 0, len(accounts))
	for _, acc := range accounts {
		res := AccountSyncResult{AccountID: acc.ID}
		slog, serr := s.SyncAccount(ctx, acc.ID)
		switch {
		case errors.Is(serr, ErrSyncInProgress):
			res.Status = "skipped"
			res.Error = serr.Error()
		case serr != nil:
			res.Status = domain.SyncStatusFailed
			res.Error = utils.ErrorSummary(serr, s.Cfg.ErrorSummaryLimit)
			if slog != nil {
				res.SyncLogID = slog.ID
			}
			log.Error().Err(serr).Uint("account_id", acc.ID).Msg("account sync failed")
		default:
			res.Status = domain.SyncStatusSuccess
			res.SyncLogID = slog.ID
			res.Diaries = slog.DiariesCount
			res.PairedDiaries = slog.PairedDiariesCount
		}
		results = append(results, res)
	}
	return results, nil
}

// epochToTime converts optional epoch seconds to UTC time.
func epochToTime(v *int64) *time.Time {
	if v == nil || *v == 0 {
		return nil
	}
	t := time.Unix(*v, 0).UTC()
	return &t
}
