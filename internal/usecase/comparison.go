package usecase

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/room-check/internal/comparator"
	"github.com/example/room-check/internal/imageprocessor"
	"github.com/example/room-check/internal/logging"
)

// ComparisonUseCase compares uploaded photos against the reference room.
type ComparisonUseCase struct {
	comparator      *comparator.Comparator
	referenceDigest string
	cache           Cache
	cacheTTL        time.Duration
	logger          *zap.Logger
	retryAttempts   int
	initialBackoff  time.Duration
	maxBackoff      time.Duration
}

type cachedComparison struct {
	Score   float64            `json:"similarity_score"`
	Verdict comparator.Verdict `json:"verdict"`
}

// NewComparisonUseCase decodes and normalizes the reference image once. A
// nil cache disables memoization.
func NewComparisonUseCase(reference []byte, cache Cache, cacheTTL time.Duration, logger *zap.Logger) (*ComparisonUseCase, error) {
	img, _, err := imageprocessor.Decode(reference)
	if err != nil {
		return nil, comparator.NewInvalidImageError(comparator.InputReference, "could not decode reference image", err)
	}
	cmp, err := comparator.NewComparator(img)
	if err != nil {
		return nil, err
	}

	return &ComparisonUseCase{
		comparator:      cmp,
		referenceDigest: digest(reference),
		cache:           cache,
		cacheTTL:        cacheTTL,
		logger:          logger.Named("comparison_usecase"),
		retryAttempts:   3,
		initialBackoff:  50 * time.Millisecond,
		maxBackoff:      time.Second,
	}, nil
}

// CompareUpload scores an uploaded image against the reference. It returns
// the request id assigned to the comparison.
func (uc *ComparisonUseCase) CompareUpload(ctx context.Context, upload []byte) (string, comparator.Result, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.compare_upload", requestID)

	if len(upload) == 0 {
		err := comparator.NewInvalidImageError(comparator.InputCandidate, "no image uploaded", imageprocessor.ErrEmptyPayload)
		return requestID, comparator.Result{}, logging.NewOperationError("usecase.read_upload", requestID, err)
	}

	cacheKey := fmt.Sprintf("comparison:%s:%s", uc.referenceDigest, digest(upload))
	if result, ok := uc.lookup(ctx, requestID, cacheKey); ok {
		opLogger.Debug("comparison served from cache", zap.Float64("score", result.Score))
		return requestID, result, nil
	}

	img, mimeType, err := imageprocessor.Decode(upload)
	if err != nil {
		invalid := comparator.NewInvalidImageError(comparator.InputCandidate, "could not decode upload", err)
		return requestID, comparator.Result{}, logging.NewOperationError("usecase.decode_upload", requestID, invalid)
	}

	start := time.Now()
	result, err := uc.comparator.Compare(img)
	if err != nil {
		return requestID, comparator.Result{}, logging.NewOperationError("usecase.compare", requestID, err)
	}
	opLogger.Info("comparison complete",
		zap.String("mime_type", mimeType),
		zap.Float64("score", result.Score),
		zap.String("verdict", string(result.Verdict)),
		zap.Duration("elapsed", time.Since(start)),
	)

	uc.store(ctx, requestID, cacheKey, result)
	return requestID, result, nil
}

func (uc *ComparisonUseCase) lookup(ctx context.Context, requestID, key string) (comparator.Result, bool) {
	if uc.cache == nil {
		return comparator.Result{}, false
	}

	var raw string
	err := uc.withCacheRetry(ctx, requestID, "cache.get.result", func() error {
		value, err := uc.cache.Get(ctx, key)
		if err != nil {
			return err
		}
		raw = value
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			logging.WithOperation(uc.logger, "usecase.lookup", requestID).Warn("failed to read cache", zap.Error(err))
		}
		return comparator.Result{}, false
	}

	var payload cachedComparison
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		logging.WithOperation(uc.logger, "usecase.lookup", requestID).Warn("failed to decode cached result", zap.Error(err))
		return comparator.Result{}, false
	}
	return comparator.Result{Score: payload.Score, Verdict: payload.Verdict}, true
}

func (uc *ComparisonUseCase) store(ctx context.Context, requestID, key string, result comparator.Result) {
	if uc.cache == nil {
		return
	}

	serialized, err := json.Marshal(cachedComparison{Score: result.Score, Verdict: result.Verdict})
	if err != nil {
		logging.WithOperation(uc.logger, "usecase.store", requestID).Warn("failed to serialize comparison", zap.Error(err))
		return
	}
	if err := uc.withCacheRetry(ctx, requestID, "cache.set.result", func() error {
		return uc.cache.Set(ctx, key, string(serialized), uc.cacheTTL)
	}); err != nil {
		logging.WithOperation(uc.logger, "usecase.store", requestID).Warn("failed to cache comparison", zap.Error(err))
	}
}

func (uc *ComparisonUseCase) withCacheRetry(ctx context.Context, requestID, operation string, fn func() error) error {
	if uc.retryAttempts <= 1 {
		return logging.NewOperationError(operation, requestID, fn())
	}

	backoff := uc.initialBackoff
	opLogger := logging.WithOperation(uc.logger, operation, requestID)
	var err error
	for attempt := 0; attempt < uc.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, requestID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= uc.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("cache operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		if !isTransientError(err) || attempt == uc.retryAttempts-1 {
			return logging.NewOperationError(operation, requestID, err)
		}

		opLogger.Warn("transient cache error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, requestID, err)
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) && temporary.Temporary() {
		return true
	}

	return false
}

func digest(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}
