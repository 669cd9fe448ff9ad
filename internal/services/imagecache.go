// Package services – ImageService
//
// Diary content references uploaded images with placeholders like "[图13]".
// The upstream serves those blobs from a separate host and only while the
// account token is valid, so images are cached locally on first access and
// prefetched in the background after syncs.
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/yournote/go-diary-backend/internal/domain"
	"github.com/yournote/go-diary-backend/internal/repo"
	"github.com/yournote/go-diary-backend/internal/upstream"
	"github.com/yournote/go-diary-backend/internal/utils"
)

// imageRefRE matches the upstream image placeholder syntax in diary content.
var imageRefRE = regexp.MustCompile(`\[图(\d+)\]`)

// prefetchScanLimit caps how many recent diaries one background prefetch
// scans for placeholders.
const prefetchScanLimit = 100

// prefetchTimeout bounds one background prefetch sweep.
const prefetchTimeout = 2 * time.Minute

// ExtractImageIDs returns the image ids referenced by content, deduplicated
// in order of first appearance, at most max when max > 0.
func ExtractImageIDs(content string, max int) []int64 {
	matches := imageRefRE.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(matches))
	var out []int64
	for _, m := range matches {
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || id == 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}

// ImageService caches upstream image blobs.
type ImageService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Upstream issues the image downloads.
	Upstream UpstreamAPI
	// MaxBytes rejects blobs larger than this.
	MaxBytes int64
	// ErrorSummaryLimit caps stored fetch error messages.
	ErrorSummaryLimit int

	now func() time.Time
}

// NewImageService constructs an ImageService.
func NewImageService(db *gorm.DB, up UpstreamAPI, maxBytes int64, errLimit int) *ImageService {
	return &ImageService{
		DB:                db,
		Upstream:          up,
		MaxBytes:          maxBytes,
		ErrorSummaryLimit: errLimit,
		now:               time.Now,
	}
}

// EnsureCached returns the cached blob for (ownerNiderijiUserID, imageID),
// downloading and storing it on first access. Failed downloads are cached
// too, with their outcome, so a missing image does not hit the upstream on
// every page view; non-ok rows are retried on the next call.
func (s *ImageService) EnsureCached(ctx context.Context, acc *domain.Account, ownerNiderijiUserID, imageID int64) (*domain.CachedImage, error) {
	cached, err := repo.GetCachedImage(ctx, s.DB, ownerNiderijiUserID, imageID)
	if err != nil {
		return nil, err
	}
	if cached != nil && cached.FetchStatus == domain.ImageFetchOK {
		return cached, nil
	}

	var data []byte
	var contentType string
	fetchErr := withAutoRelogin(ctx, s.DB, s.Upstream, acc, func(token string) error {
		d, ct, ferr := s.Upstream.FetchImage(ctx, token, ownerNiderijiUserID, imageID, s.MaxBytes)
		if ferr == nil {
			data = d
			contentType = ct
		}
		return ferr
	})

	now := s.now()
	img := &domain.CachedImage{
		NiderijiUserID: ownerNiderijiUserID,
		ImageID:        imageID,
		FetchedAt:      &now,
	}
	if fetchErr != nil {
		img.FetchStatus = classifyImageErr(fetchErr)
		img.ErrorMessage = utils.ErrorSummary(fetchErr, s.ErrorSummaryLimit)
	} else {
		sum := sha256.Sum256(data)
		img.FetchStatus = domain.ImageFetchOK
		img.ContentType = contentType
		img.Data = data
		img.SizeBytes = len(data)
		img.SHA256 = hex.EncodeToString(sum[:])
	}

	if err := repo.UpsertCachedImage(ctx, s.DB, img); err != nil {
		return nil, errors.Wrap(err, "store cached image")
	}
	if fetchErr != nil {
		return img, fetchErr
	}
	return img, nil
}

// PrefetchForAccount scans the account's recent diaries for image
// placeholders and caches up to limit blobs. It is fire-and-forget: it owns
// its context, and every failure is logged and skipped.
func (s *ImageService) PrefetchForAccount(acc *domain.Account, limit int) {
	ctx, cancel := context.WithTimeout(context.Background(), prefetchTimeout)
	defer cancel()

	diaries, err := repo.ListDiaries(ctx, s.DB, repo.DiaryFilter{AccountID: acc.ID, Limit: prefetchScanLimit})
	if err != nil {
		log.Warn().Err(err).Uint("account_id", acc.ID).Msg("image prefetch: list diaries")
		return
	}

	authors := map[uint]int64{}
	fetched := 0
	for _, d := range diaries {
		if fetched >= limit {
			break
		}
		ids := ExtractImageIDs(d.Content, limit-fetched)
		if len(ids) == 0 {
			continue
		}

		ownerID, ok := authors[d.UserID]
		if !ok {
			author, uerr := repo.GetUser(ctx, s.DB, d.UserID)
			if uerr != nil {
				log.Warn().Err(uerr).Uint("user_id", d.UserID).Msg("image prefetch: load author")
				continue
			}
			ownerID = author.NiderijiUserID
			authors[d.UserID] = ownerID
		}

		for _, imageID := range ids {
			if fetched >= limit {
				break
			}
			img, cerr := s.EnsureCached(ctx, acc, ownerID, imageID)
			if cerr != nil {
				log.Debug().Err(cerr).Int64("image_id", imageID).Msg("image prefetch: fetch")
				continue
			}
			if img.FetchStatus == domain.ImageFetchOK {
				fetched++
			}
		}
	}
	if fetched > 0 {
		log.Info().Uint("account_id", acc.ID).Int("fetched", fetched).Msg("image prefetch done")
	}
}

// classifyImageErr maps a download failure to a stored fetch status.
func classifyImageErr(err error) string {
	if upstream.IsUnauthorized(err) || errors.Is(err, ErrNoCredentials) {
		return domain.ImageFetchForbidden
	}
	var se *upstream.StatusError
	if errors.As(err, &se) && se.Status == 404 {
		return domain.ImageFetchNotFound
	}
	return domain.ImageFetchError
}
