package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/coverage-service/internal/cache"
	"github.com/spec-kit/coverage-service/internal/domain"
	"github.com/spec-kit/coverage-service/internal/events"
	"github.com/spec-kit/coverage-service/internal/observability"
	"github.com/spec-kit/coverage-service/internal/repository"
	apperrors "github.com/spec-kit/coverage-service/pkg/util/errorutil"
)

// EscalationService coordinates escalation workflows.
type EscalationService struct {
	db                 repository.Database
	escalations        repository.EscalationRepository
	history            repository.EscalationHistoryRepository
	changeLog          repository.ChangeLogRepository
	products           repository.ProductRepository
	cache              cache.HistoryCache
	dispatcher         events.Dispatcher
	metrics            *observability.Metrics
	logger             *zap.Logger
	enforceTransitions bool
	now                func() time.Time
}

// EscalationDependencies bundles collaborators for the escalation service.
type EscalationDependencies struct {
	DB                 repository.Database
	EscalationRepo     repository.EscalationRepository
	HistoryRepo        repository.EscalationHistoryRepository
	ChangeLogRepo      repository.ChangeLogRepository
	ProductRepo        repository.ProductRepository
	HistoryCache       cache.HistoryCache
	Dispatcher         events.Dispatcher
	Metrics            *observability.Metrics
	Logger             *zap.Logger
	EnforceTransitions bool
}

// SubmitInput describes a new escalation.
type SubmitInput struct {
	ProductID              string
	ScopeLevel             string
	MarketID               string
	POC                    string
	Reason                 string
	ReasonType             string
	BusinessCaseURL        *string
	TechPOC                *string
	TechSponsor            *string
	OpsPOC                 *string
	OpsSponsor             *string
	AdditionalStakeholders *string
}

// StatusUpdateInput describes a status change. ExpectedStatus is optional;
// when set the update only applies if the record is still in that status.
type StatusUpdateInput struct {
	Status         string
	Notes          string
	ExpectedStatus string
}

// EscalationListFilter describes list parameters.
type EscalationListFilter struct {
	ProductID   *string
	ScopeLevel  *domain.ScopeLevel
	RaisedBy    *string
	Statuses    []domain.AppStatus
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// NewEscalationService constructs the service.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	historyCache := deps.HistoryCache
	if historyCache == nil {
		historyCache = cache.NewRedisHistoryCache(nil, 0)
	}
	return &EscalationService{
		db:                 deps.DB,
		escalations:        deps.EscalationRepo,
		history:            deps.HistoryRepo,
		changeLog:          deps.ChangeLogRepo,
		products:           deps.ProductRepo,
		cache:              historyCache,
		dispatcher:         deps.Dispatcher,
		metrics:            deps.Metrics,
		logger:             logger,
		enforceTransitions: deps.EnforceTransitions,
		now:                time.Now,
	}
}

// Submit validates and stores a new escalation together with its first
// history entry and a change log row.
func (s *EscalationService) Submit(ctx context.Context, actor domain.Identity, input SubmitInput) (*domain.Escalation, error) {
	escalation, err := s.buildEscalation(actor, input)
	if err != nil {
		return nil, err
	}

	if _, err := s.products.GetByID(ctx, s.db, escalation.ProductID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("product", map[string]any{"product_id": escalation.ProductID})
		}
		s.logger.Error("product lookup failed", zap.String("product_id", escalation.ProductID), zap.Error(err))
		return nil, apperrors.NewPersistenceError("load product", err)
	}

	err = s.withTx(ctx, func(tx pgx.Tx) error {
		if err := s.escalations.Create(ctx, tx, escalation); err != nil {
			return apperrors.NewPersistenceError("create escalation", err)
		}
		entry := &domain.EscalationHistoryEntry{
			EscalationID: escalation.ID,
			UserID:       actor.UserID,
			NewStatus:    escalation.Status,
		}
		if err := s.history.Create(ctx, tx, entry); err != nil {
			return apperrors.NewPersistenceError("create escalation history", err)
		}
		logEntry := &domain.ChangeLogEntry{
			Operation:    "escalation.create",
			TableName:    "escalation",
			RowsAffected: 1,
			ChangedBy:    actor.UserID,
			Diff: map[string]any{
				"id":          escalation.ID,
				"product_id":  escalation.ProductID,
				"scope_level": escalation.Market.Level,
				"market_id":   escalation.Market.ID,
				"reason_type": escalation.ReasonType,
				"status":      escalation.Status,
			},
		}
		if err := s.changeLog.Create(ctx, tx, logEntry); err != nil {
			return apperrors.NewPersistenceError("write change log", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("submit escalation failed",
			zap.String("product_id", escalation.ProductID),
			zap.Stringer("market", escalation.Market),
			zap.Error(err))
		return nil, err
	}

	s.metrics.EscalationSubmitted(string(escalation.Market.Level), string(escalation.ReasonType))
	s.logger.Info("escalation submitted",
		zap.String("escalation_id", escalation.ID),
		zap.String("product_id", escalation.ProductID),
		zap.Stringer("market", escalation.Market))
	s.publishEvent(ctx, escalation, actor, events.EventEscalationCreated, events.EscalationCreatedPayload{
		POC:        escalation.POC,
		ReasonType: escalation.ReasonType,
		Status:     escalation.Status,
	})
	return escalation, nil
}

func (s *EscalationService) buildEscalation(actor domain.Identity, input SubmitInput) (*domain.Escalation, error) {
	missing := []string{}
	for _, field := range []struct{ name, value string }{
		{"product_id", input.ProductID},
		{"poc", input.POC},
		{"reason", input.Reason},
		{"reason_type", input.ReasonType},
	} {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("required fields missing", map[string]any{"missing": missing})
	}
	if strings.TrimSpace(actor.UserID) == "" {
		return nil, apperrors.NewUnauthorized("acting user required")
	}

	market, err := domain.NewMarketRef(input.ScopeLevel, input.MarketID)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid market", map[string]any{"market": err.Error()})
	}
	reasonType, err := domain.ParseReasonType(input.ReasonType)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid reason type", map[string]any{"reason_type": input.ReasonType})
	}
	businessCase := trimOptional(input.BusinessCaseURL)
	if businessCase != nil && !isHTTPURL(*businessCase) {
		return nil, apperrors.NewValidationError("business case url must be an absolute http(s) url",
			map[string]any{"business_case_url": *businessCase})
	}

	return &domain.Escalation{
		ProductID:              strings.TrimSpace(input.ProductID),
		Market:                 market,
		RaisedBy:               actor.DisplayName(),
		POC:                    strings.TrimSpace(input.POC),
		Reason:                 strings.TrimSpace(input.Reason),
		ReasonType:             reasonType,
		BusinessCaseURL:        businessCase,
		TechPOC:                trimOptional(input.TechPOC),
		TechSponsor:            trimOptional(input.TechSponsor),
		OpsPOC:                 trimOptional(input.OpsPOC),
		OpsSponsor:             trimOptional(input.OpsSponsor),
		AdditionalStakeholders: trimOptional(input.AdditionalStakeholders),
		Status:                 domain.StatusSubmitted,
	}, nil
}

// UpdateStatus moves an escalation to a new status and appends a history
// entry in the same transaction. The row is locked for the duration so the
// recorded old status is always the one that was overwritten.
func (s *EscalationService) UpdateStatus(ctx context.Context, actor domain.Identity, escalationID string, input StatusUpdateInput) (*domain.Escalation, error) {
	next, err := domain.ParseAppStatus(input.Status)
	if err != nil {
		return nil, err
	}
	var expected *domain.AppStatus
	if strings.TrimSpace(input.ExpectedStatus) != "" {
		parsed, err := domain.ParseAppStatus(input.ExpectedStatus)
		if err != nil {
			return nil, err
		}
		expected = &parsed
	}
	if !isUUID(escalationID) {
		return nil, escalationNotFound(escalationID)
	}
	notes := trimOptional(&input.Notes)

	var (
		escalation *domain.Escalation
		previous   domain.AppStatus
	)
	err = s.withTx(ctx, func(tx pgx.Tx) error {
		current, err := s.lockEscalation(ctx, tx, escalationID)
		if err != nil {
			return err
		}
		previous = current.Status
		if expected != nil && *expected != current.Status {
			return apperrors.NewConflict("escalation status changed", map[string]any{
				"expected": *expected,
				"current":  current.Status,
			})
		}
		if s.enforceTransitions && !isAllowedTransition(current.Status, next) {
			return apperrors.NewInvalidTransition(string(current.Status), string(next))
		}

		current.ApplyStatus(next, s.now().UTC())
		if err := s.escalations.UpdateStatus(ctx, tx, current); err != nil {
			return apperrors.NewPersistenceError("update escalation status", err)
		}
		entry := &domain.EscalationHistoryEntry{
			EscalationID: current.ID,
			UserID:       actor.UserID,
			OldStatus:    &previous,
			NewStatus:    next,
			Notes:        notes,
		}
		if err := s.history.Create(ctx, tx, entry); err != nil {
			return apperrors.NewPersistenceError("create escalation history", err)
		}
		logEntry := &domain.ChangeLogEntry{
			Operation:    "escalation.status_update",
			TableName:    "escalation",
			RowsAffected: 1,
			ChangedBy:    actor.UserID,
			Diff: map[string]any{
				"id":         current.ID,
				"old_status": previous,
				"new_status": next,
			},
		}
		if err := s.changeLog.Create(ctx, tx, logEntry); err != nil {
			return apperrors.NewPersistenceError("write change log", err)
		}
		escalation = current
		return nil
	})
	if err != nil {
		s.logFailure("update escalation status failed", escalationID, err)
		return nil, err
	}

	s.invalidateHistory(ctx, escalation.ID)
	s.metrics.StatusChanged(string(previous), string(next))
	s.logger.Info("escalation status updated",
		zap.String("escalation_id", escalation.ID),
		zap.String("old_status", string(previous)),
		zap.String("new_status", string(next)))
	payload := events.EscalationStatusChangedPayload{OldStatus: previous, NewStatus: next}
	if notes != nil {
		payload.Notes = *notes
	}
	s.publishEvent(ctx, escalation, actor, events.EventEscalationStatusChanged, payload)
	return escalation, nil
}

// AddComment appends a note to the history without changing status.
func (s *EscalationService) AddComment(ctx context.Context, actor domain.Identity, escalationID, note string) (*domain.EscalationHistoryEntry, error) {
	notes := trimOptional(&note)
	if notes == nil {
		return nil, apperrors.NewValidationError("note required", map[string]any{"missing": []string{"notes"}})
	}
	if !isUUID(escalationID) {
		return nil, escalationNotFound(escalationID)
	}

	var (
		escalation *domain.Escalation
		entry      *domain.EscalationHistoryEntry
	)
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		current, err := s.lockEscalation(ctx, tx, escalationID)
		if err != nil {
			return err
		}
		status := current.Status
		entry = &domain.EscalationHistoryEntry{
			EscalationID: current.ID,
			UserID:       actor.UserID,
			OldStatus:    &status,
			NewStatus:    status,
			Notes:        notes,
		}
		if err := s.history.Create(ctx, tx, entry); err != nil {
			return apperrors.NewPersistenceError("create escalation history", err)
		}
		escalation = current
		return nil
	})
	if err != nil {
		s.logFailure("add escalation comment failed", escalationID, err)
		return nil, err
	}

	s.invalidateHistory(ctx, escalation.ID)
	s.metrics.CommentAdded()
	s.publishEvent(ctx, escalation, actor, events.EventEscalationCommented, events.EscalationCommentedPayload{
		Status:      escalation.Status,
		NotePreview: stringPreview(*notes, 120),
	})
	return entry, nil
}

// ListHistory returns the history of one escalation, newest first. An
// escalation without entries, or an unknown id, yields an empty list.
func (s *EscalationService) ListHistory(ctx context.Context, escalationID string) ([]domain.EscalationHistoryEntry, error) {
	if !isUUID(escalationID) {
		return []domain.EscalationHistoryEntry{}, nil
	}
	cached, ok, err := s.cache.Get(ctx, escalationID)
	switch {
	case err != nil:
		s.metrics.HistoryCacheLookup("error")
		s.logger.Warn("history cache read failed", zap.String("escalation_id", escalationID), zap.Error(err))
	case ok:
		s.metrics.HistoryCacheLookup("hit")
		return cached, nil
	default:
		s.metrics.HistoryCacheLookup("miss")
	}

	// The version must be read before the query so a write that commits in
	// between makes the cache write below a no-op.
	version, versionErr := s.cache.Version(ctx, escalationID)
	if versionErr != nil {
		s.logger.Warn("history cache version read failed", zap.String("escalation_id", escalationID), zap.Error(versionErr))
	}

	entries, err := s.history.ListByEscalation(ctx, s.db, escalationID)
	if err != nil {
		s.logger.Error("list escalation history failed", zap.String("escalation_id", escalationID), zap.Error(err))
		return nil, apperrors.NewPersistenceError("list escalation history", err)
	}
	if entries == nil {
		entries = []domain.EscalationHistoryEntry{}
	}
	if versionErr != nil {
		return entries, nil
	}
	stored, err := s.cache.Set(ctx, escalationID, version, entries)
	switch {
	case err != nil:
		s.logger.Warn("history cache write failed", zap.String("escalation_id", escalationID), zap.Error(err))
	case !stored:
		s.logger.Debug("history changed while loading; not cached", zap.String("escalation_id", escalationID))
	}
	return entries, nil
}

// HistoryForMarket returns the history of the most recent escalation raised
// for a product in a market. No escalation yields an empty list.
func (s *EscalationService) HistoryForMarket(ctx context.Context, productID, scopeLevel, marketID string) ([]domain.EscalationHistoryEntry, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, apperrors.NewValidationError("product_id required", map[string]any{"missing": []string{"product_id"}})
	}
	market, err := domain.NewMarketRef(scopeLevel, marketID)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid market", map[string]any{"market": err.Error()})
	}
	escalation, err := s.escalations.GetLatestForMarket(ctx, s.db, productID, market)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []domain.EscalationHistoryEntry{}, nil
		}
		s.logger.Error("resolve escalation for market failed",
			zap.String("product_id", productID),
			zap.Stringer("market", market),
			zap.Error(err))
		return nil, apperrors.NewPersistenceError("load escalation", err)
	}
	return s.ListHistory(ctx, escalation.ID)
}

// GetEscalation fetches one escalation.
func (s *EscalationService) GetEscalation(ctx context.Context, escalationID string) (*domain.Escalation, error) {
	if !isUUID(escalationID) {
		return nil, escalationNotFound(escalationID)
	}
	escalation, err := s.escalations.GetByID(ctx, s.db, escalationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, escalationNotFound(escalationID)
		}
		s.logger.Error("load escalation failed", zap.String("escalation_id", escalationID), zap.Error(err))
		return nil, apperrors.NewPersistenceError("load escalation", err)
	}
	return escalation, nil
}

// ListEscalations returns escalations ordered by last update.
func (s *EscalationService) ListEscalations(ctx context.Context, filter EscalationListFilter) ([]domain.Escalation, error) {
	list, err := s.escalations.ListWithFilter(ctx, s.db, repository.EscalationFilter{
		ProductID:   filter.ProductID,
		ScopeLevel:  filter.ScopeLevel,
		RaisedBy:    filter.RaisedBy,
		Statuses:    filter.Statuses,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	})
	if err != nil {
		s.logger.Error("list escalations failed", zap.Error(err))
		return nil, apperrors.NewPersistenceError("list escalations", err)
	}
	return list, nil
}

func (s *EscalationService) lockEscalation(ctx context.Context, tx pgx.Tx, escalationID string) (*domain.Escalation, error) {
	escalation, err := s.escalations.GetByIDForUpdate(ctx, tx, escalationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, escalationNotFound(escalationID)
		}
		return nil, apperrors.NewPersistenceError("load escalation", err)
	}
	return escalation, nil
}

// withTx runs fn in a transaction. Errors from fn roll back; the deferred
// rollback is a no-op after a successful commit.
func (s *EscalationService) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return apperrors.NewPersistenceError("begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewPersistenceError("commit transaction", err)
	}
	return nil
}

func (s *EscalationService) invalidateHistory(ctx context.Context, escalationID string) {
	if err := s.cache.Invalidate(ctx, escalationID); err != nil {
		s.logger.Warn("history cache invalidation failed", zap.String("escalation_id", escalationID), zap.Error(err))
	}
}

func (s *EscalationService) logFailure(msg, escalationID string, err error) {
	if apperrors.HasCode(err, apperrors.CodePersistence) {
		s.logger.Error(msg, zap.String("escalation_id", escalationID), zap.Error(err))
		return
	}
	s.logger.Info(msg, zap.String("escalation_id", escalationID), zap.Error(err))
}

func (s *EscalationService) publishEvent(ctx context.Context, escalation *domain.Escalation, actor domain.Identity, eventType events.EventType, payload any) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:           uuid.NewString(),
		Type:         eventType,
		EscalationID: escalation.ID,
		ProductID:    escalation.ProductID,
		Market:       events.NewMarketRef(escalation.Market),
		Actor:        events.Actor{UserID: actor.UserID, Name: actor.Name},
		Timestamp:    s.now(),
		Payload:      payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event delivery incomplete",
			zap.String("event_type", string(eventType)),
			zap.String("escalation_id", escalation.ID),
			zap.Error(err))
	}
}

var allowedTransitions = map[domain.AppStatus][]domain.AppStatus{
	domain.StatusSubmitted: {
		domain.StatusUnderReview,
		domain.StatusResolvedLaunched,
		domain.StatusResolvedNotLaunched,
		domain.StatusResolvedWithdrawn,
	},
	domain.StatusUnderReview: {
		domain.StatusResolvedLaunched,
		domain.StatusResolvedNotLaunched,
		domain.StatusResolvedWithdrawn,
	},
	domain.StatusResolvedLaunched:    {domain.StatusUnderReview},
	domain.StatusResolvedNotLaunched: {domain.StatusUnderReview},
	domain.StatusResolvedWithdrawn:   {domain.StatusUnderReview},
}

// isAllowedTransition checks the workflow table. Re-asserting the current
// status is always allowed.
func isAllowedTransition(current, next domain.AppStatus) bool {
	if current == next {
		return true
	}
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

func escalationNotFound(id string) error {
	return apperrors.NewNotFound("escalation", map[string]any{"escalation_id": id})
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// stringPreview shortens body to at most max runes.
func stringPreview(body string, max int) string {
	runes := []rune(strings.TrimSpace(body))
	if len(runes) <= max {
		return string(runes)
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
