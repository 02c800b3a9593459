package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-lending-go/lending"
)

const (
	metricClaims   = "inventory_claims_total"
	metricReleases = "inventory_releases_total"

	labelOutcome = "outcome"

	outcomeClaimed     = "claimed"
	outcomeUnavailable = "unavailable"
	outcomeNotFound    = "not_found"
	outcomeReleased    = "released"
	outcomeError       = "error"

	logMsgClaimed       = "inventory: book claimed"
	logMsgUnavailable   = "inventory: claim denied, book unavailable"
	logMsgReleased      = "inventory: book released"
	logMsgClaimFailed   = "inventory: claim failed"
	logMsgReleaseFailed = "inventory: release failed"
	logAttrBookID       = "book_id"
	logAttrError        = "error"
)

// Claim is the token for a successful claim.
type Claim struct {
	BookID    uuid.UUID
	ClaimedAt time.Time
}

// Guard flips catalog availability. The zero value is usable and observes nothing.
type Guard struct {
	logger           lending.Logger
	contextualLogger lending.ContextualLogger
	metrics          lending.MetricsCollector
	now              func() time.Time
}

// Option defines a functional option for configuring Guard.
type Option func(*Guard)

// WithLogger sets the logger for the Guard.
func WithLogger(logger lending.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

// WithContextualLogger sets the context-aware logger for the Guard.
func WithContextualLogger(logger lending.ContextualLogger) Option {
	return func(g *Guard) {
		g.contextualLogger = logger
	}
}

// WithMetrics sets the metrics collector for the Guard.
func WithMetrics(collector lending.MetricsCollector) Option {
	return func(g *Guard) {
		g.metrics = collector
	}
}

// NewGuard creates a Guard.
func NewGuard(options ...Option) Guard {
	g := Guard{now: time.Now}

	for _, option := range options {
		option(&g)
	}

	return g
}

// TryClaim atomically marks the book unavailable.
// It returns lending.ErrBookUnavailable if the book is already claimed and lending.ErrBookNotFound if it does not exist.
// Store failures are returned unchanged.
func (g Guard) TryClaim(ctx context.Context, catalog lending.CatalogStore, bookID uuid.UUID) (Claim, error) {
	claimed, err := catalog.ClaimAvailability(ctx, bookID)

	switch {
	case errors.Is(err, lending.ErrBookNotFound):
		g.count(ctx, metricClaims, outcomeNotFound)
		return Claim{}, lending.ErrBookNotFound

	case err != nil:
		g.logError(ctx, logMsgClaimFailed, bookID, err)
		g.count(ctx, metricClaims, outcomeError)
		return Claim{}, err

	case !claimed:
		g.logInfo(ctx, logMsgUnavailable, bookID)
		g.count(ctx, metricClaims, outcomeUnavailable)
		return Claim{}, lending.ErrBookUnavailable
	}

	g.logDebug(ctx, logMsgClaimed, bookID)
	g.count(ctx, metricClaims, outcomeClaimed)

	return Claim{BookID: bookID, ClaimedAt: g.clock()}, nil
}

// Release marks the book available again.
func (g Guard) Release(ctx context.Context, catalog lending.CatalogStore, bookID uuid.UUID) error {
	if err := catalog.ReleaseAvailability(ctx, bookID); err != nil {
		g.logError(ctx, logMsgReleaseFailed, bookID, err)
		g.count(ctx, metricReleases, outcomeError)

		return err
	}

	g.logDebug(ctx, logMsgReleased, bookID)
	g.count(ctx, metricReleases, outcomeReleased)

	return nil
}

func (g Guard) clock() time.Time {
	if g.now == nil {
		return time.Now()
	}

	return g.now()
}

func (g Guard) count(ctx context.Context, metric, outcome string) {
	lending.IncrementCounter(ctx, g.metrics, metric, map[string]string{labelOutcome: outcome})
}

func (g Guard) logDebug(ctx context.Context, msg string, bookID uuid.UUID) {
	switch {
	case g.contextualLogger != nil:
		g.contextualLogger.DebugContext(ctx, msg, logAttrBookID, bookID.String())
	case g.logger != nil:
		g.logger.Debug(msg, logAttrBookID, bookID.String())
	}
}

func (g Guard) logInfo(ctx context.Context, msg string, bookID uuid.UUID) {
	switch {
	case g.contextualLogger != nil:
		g.contextualLogger.InfoContext(ctx, msg, logAttrBookID, bookID.String())
	case g.logger != nil:
		g.logger.Info(msg, logAttrBookID, bookID.String())
	}
}

func (g Guard) logError(ctx context.Context, msg string, bookID uuid.UUID, err error) {
	switch {
	case g.contextualLogger != nil:
		g.contextualLogger.ErrorContext(ctx, msg, logAttrBookID, bookID.String(), logAttrError, err.Error())
	case g.logger != nil:
		g.logger.Error(msg, logAttrBookID, bookID.String(), logAttrError, err.Error())
	}
}
