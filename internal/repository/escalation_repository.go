package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/coverage-service/internal/domain"
)

const maxListLimit = 100

// EscalationFilter captures list parameters.
type EscalationFilter struct {
	ProductID   *string
	ScopeLevel  *domain.ScopeLevel
	RaisedBy    *string
	Statuses    []domain.AppStatus
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// EscalationRepository encapsulates escalation persistence.
type EscalationRepository interface {
	Create(ctx context.Context, q Querier, escalation *domain.Escalation) error
	UpdateStatus(ctx context.Context, q Querier, escalation *domain.Escalation) error
	GetByID(ctx context.Context, q Querier, id string) (*domain.Escalation, error)
	GetByIDForUpdate(ctx context.Context, q Querier, id string) (*domain.Escalation, error)
	GetLatestForMarket(ctx context.Context, q Querier, productID string, market domain.MarketRef) (*domain.Escalation, error)
	ListWithFilter(ctx context.Context, q Querier, filter EscalationFilter) ([]domain.Escalation, error)
}

type escalationRepository struct{}

// NewEscalationRepository instantiates repository.
func NewEscalationRepository() EscalationRepository {
	return &escalationRepository{}
}

const escalationColumns = `id, product_id, scope_level, city_id, country_code, region, raised_by, poc,
               reason, reason_type, business_case_url, tech_poc, tech_sponsor, ops_poc, ops_sponsor,
               additional_stakeholders, status, aligned_at, resolved_at, created_at, updated_at`

func (r *escalationRepository) Create(ctx context.Context, q Querier, escalation *domain.Escalation) error {
	status, err := domain.ToStorageStatus(escalation.Status)
	if err != nil {
		return err
	}
	cols := escalation.Market.Columns()
	const query = `
        INSERT INTO escalation (product_id, scope_level, city_id, country_code, region, raised_by, poc, reason,
            reason_type, business_case_url, tech_poc, tech_sponsor, ops_poc, ops_sponsor, additional_stakeholders,
            status, aligned_at, resolved_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
        RETURNING id, created_at, updated_at`
	return q.QueryRow(ctx, query,
		escalation.ProductID,
		string(escalation.Market.Level),
		cols.CityID,
		cols.CountryCode,
		cols.Region,
		escalation.RaisedBy,
		escalation.POC,
		escalation.Reason,
		string(escalation.ReasonType),
		escalation.BusinessCaseURL,
		escalation.TechPOC,
		escalation.TechSponsor,
		escalation.OpsPOC,
		escalation.OpsSponsor,
		escalation.AdditionalStakeholders,
		string(status),
		escalation.AlignedAt,
		escalation.ResolvedAt,
	).Scan(&escalation.ID, &escalation.CreatedAt, &escalation.UpdatedAt)
}

func (r *escalationRepository) UpdateStatus(ctx context.Context, q Querier, escalation *domain.Escalation) error {
	status, err := domain.ToStorageStatus(escalation.Status)
	if err != nil {
		return err
	}
	const query = `
        UPDATE escalation SET status=$1, aligned_at=$2, resolved_at=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING updated_at`
	return q.QueryRow(ctx, query,
		string(status),
		escalation.AlignedAt,
		escalation.ResolvedAt,
		escalation.ID,
	).Scan(&escalation.UpdatedAt)
}

func (r *escalationRepository) GetByID(ctx context.Context, q Querier, id string) (*domain.Escalation, error) {
	query := `SELECT ` + escalationColumns + ` FROM escalation WHERE id=$1`
	return scanEscalation(q.QueryRow(ctx, query, id))
}

func (r *escalationRepository) GetByIDForUpdate(ctx context.Context, q Querier, id string) (*domain.Escalation, error) {
	query := `SELECT ` + escalationColumns + ` FROM escalation WHERE id=$1 FOR UPDATE`
	return scanEscalation(q.QueryRow(ctx, query, id))
}

func (r *escalationRepository) GetLatestForMarket(ctx context.Context, q Querier, productID string, market domain.MarketRef) (*domain.Escalation, error) {
	var column string
	switch market.Level {
	case domain.ScopeCity:
		column = "city_id"
	case domain.ScopeCountry:
		column = "country_code"
	case domain.ScopeRegion:
		column = "region"
	default:
		return nil, fmt.Errorf("unknown scope level %q", market.Level)
	}
	query := fmt.Sprintf(`SELECT %s FROM escalation
        WHERE product_id=$1 AND scope_level=$2 AND %s=$3
        ORDER BY created_at DESC LIMIT 1`, escalationColumns, column)
	return scanEscalation(q.QueryRow(ctx, query, productID, string(market.Level), market.ID))
}

func (r *escalationRepository) ListWithFilter(ctx context.Context, q Querier, filter EscalationFilter) ([]domain.Escalation, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ProductID != nil {
		args = append(args, *filter.ProductID)
		clauses = append(clauses, fmt.Sprintf("product_id=$%d", len(args)))
	}
	if filter.ScopeLevel != nil {
		args = append(args, string(*filter.ScopeLevel))
		clauses = append(clauses, fmt.Sprintf("scope_level=$%d", len(args)))
	}
	if filter.RaisedBy != nil {
		args = append(args, *filter.RaisedBy)
		clauses = append(clauses, fmt.Sprintf("raised_by=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			stored, err := domain.ToStorageStatus(status)
			if err != nil {
				return nil, err
			}
			args = append(args, string(stored))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status::text IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM escalation WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		escalationColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Escalation{}
	for rows.Next() {
		escalation, err := scanEscalation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *escalation)
	}
	return result, rows.Err()
}

func scanEscalation(row pgx.Row) (*domain.Escalation, error) {
	var (
		escalation domain.Escalation
		level      string
		cols       domain.MarketColumns
		reasonType string
		status     string
	)
	if err := row.Scan(
		&escalation.ID,
		&escalation.ProductID,
		&level,
		&cols.CityID,
		&cols.CountryCode,
		&cols.Region,
		&escalation.RaisedBy,
		&escalation.POC,
		&escalation.Reason,
		&reasonType,
		&escalation.BusinessCaseURL,
		&escalation.TechPOC,
		&escalation.TechSponsor,
		&escalation.OpsPOC,
		&escalation.OpsSponsor,
		&escalation.AdditionalStakeholders,
		&status,
		&escalation.AlignedAt,
		&escalation.ResolvedAt,
		&escalation.CreatedAt,
		&escalation.UpdatedAt,
	); err != nil {
		return nil, err
	}

	market, err := domain.MarketRefFromColumns(domain.ScopeLevel(level), cols)
	if err != nil {
		return nil, fmt.Errorf("escalation %s: %w", escalation.ID, err)
	}
	escalation.Market = market
	escalation.ReasonType = domain.ReasonType(reasonType)
	appStatus, err := domain.ToAppStatus(domain.StorageStatus(status))
	if err != nil {
		return nil, fmt.Errorf("escalation %s: %w", escalation.ID, err)
	}
	escalation.Status = appStatus
	return &escalation, nil
}
