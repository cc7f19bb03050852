package waitlist

import (
	"context"
	"sort"
	"time"

	"github.com/akeren/caregiver-waitlist/internal/log"
	apperrors "github.com/akeren/caregiver-waitlist/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultStorageTimeout = 5 * time.Second
	DefaultCountCacheTTL  = time.Minute
)

var tracer = otel.Tracer("github.com/akeren/caregiver-waitlist/domain/waitlist")

type WaitlistService interface {
	// Submit validates raw form input and stores it. The result always
	// describes the outcome; Submit itself never fails.
	Submit(ctx context.Context, raw *RawSubmission, meta RequestMeta) *SubmissionResult

	// Count returns the number of entries, or 0 when storage is unavailable.
	Count(ctx context.Context) int
}

type ServiceOptions struct {
	// Cache holds the entry count between submissions. Nil disables caching.
	Cache          CountCache
	CountCacheTTL  time.Duration
	StorageTimeout time.Duration
	Metrics        prometheus.Registerer
}

type waitlistService struct {
	logger         *log.Logger
	repository     WaitlistRepository
	counter        *entryCounter
	metrics        *submissionMetrics
	storageTimeout time.Duration
}

func NewWaitlistService(logger *log.Logger, repository WaitlistRepository, opts *ServiceOptions) WaitlistService {
	if opts == nil {
		opts = &ServiceOptions{}
	}

	storageTimeout := opts.StorageTimeout
	if storageTimeout <= 0 {
		storageTimeout = DefaultStorageTimeout
	}

	ttl := opts.CountCacheTTL
	if ttl <= 0 {
		ttl = DefaultCountCacheTTL
	}

	return &waitlistService{
		logger:         logger,
		repository:     repository,
		counter:        newEntryCounter(repository, opts.Cache, ttl, storageTimeout, logger),
		metrics:        newSubmissionMetrics(opts.Metrics),
		storageTimeout: storageTimeout,
	}
}

func (s *waitlistService) Submit(ctx context.Context, raw *RawSubmission, meta RequestMeta) *SubmissionResult {
	ctx, span := tracer.Start(ctx, "waitlist.Submit")
	defer span.End()

	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if raw == nil {
		raw = &RawSubmission{}
	}

	form, fieldErrors := ValidateSubmission(*raw)
	if fieldErrors.HasErrors() {
		logger.Info("Waitlist submission failed validation", "fields", fieldNames(fieldErrors))
		return s.finish(span, validationFailedResult(fieldErrors))
	}

	entry := ToWaitlistEntryModel(form, meta)
	span.SetAttributes(attribute.String("waitlist.role", entry.Role))

	storeCtx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	created, err := s.repository.CreateEntry(storeCtx, entry)
	cancel()

	if err != nil {
		if IsDuplicateEmail(err) {
			logger.Info("Waitlist submission rejected: email already registered", "role", entry.Role)
			return s.finish(span, duplicateResult())
		}

		logger.Error("Failed to store waitlist entry",
			"error", err,
			"error_type", apperrors.GetErrorType(err),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "waitlist storage failed")
		return s.finish(span, storageFailedResult())
	}

	s.counter.Invalidate(ctx)

	logger.Info("Waitlist entry created",
		"id", created.ID,
		"role", created.Role,
		"has_name", created.HasName(),
		"has_challenge", created.HasChallenge(),
	)

	return s.finish(span, succeededResult(created))
}

func (s *waitlistService) Count(ctx context.Context) int {
	ctx, span := tracer.Start(ctx, "waitlist.Count")
	defer span.End()

	n := s.counter.Count(ctx)
	span.SetAttributes(attribute.Int("waitlist.count", n))

	return n
}

func (s *waitlistService) finish(span trace.Span, result *SubmissionResult) *SubmissionResult {
	span.SetAttributes(attribute.String("waitlist.outcome", string(result.Outcome)))
	s.metrics.observe(result.Outcome)
	return result
}

func fieldNames(fieldErrors apperrors.FieldErrors) []string {
	names := make([]string, 0, len(fieldErrors))
	for name := range fieldErrors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
