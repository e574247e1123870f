// internal/repository/postgres/dialing_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"obcampaign-service/internal/domain/dialing"
	xerrors "obcampaign-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DialingRepository reads the plan, destination list and dial attempt
// tables the campaign statistics are built from.
type DialingRepository struct {
	db *pgxpool.Pool
}

func NewDialingRepository(db *pgxpool.Pool) *DialingRepository {
	return &DialingRepository{db: db}
}

// FindPlan retrieves a live plan by uuid
func (r *DialingRepository) FindPlan(ctx context.Context, uuid string) (*dialing.Plan, error) {
	query := `
		SELECT uuid, name, max_retry, tm_create
		FROM ob_plan
		WHERE uuid = $1 AND in_use = true
	`

	var p dialing.Plan
	err := r.db.QueryRow(ctx, query, uuid).Scan(&p.UUID, &p.Name, &p.MaxRetry, &p.TmCreate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find plan: %w", err)
	}

	return &p, nil
}

// FindDlma retrieves a live destination list by uuid
func (r *DialingRepository) FindDlma(ctx context.Context, uuid string) (*dialing.Dlma, error) {
	query := `
		SELECT uuid, name, tm_create
		FROM ob_dlma
		WHERE uuid = $1 AND in_use = true
	`

	var d dialing.Dlma
	err := r.db.QueryRow(ctx, query, uuid).Scan(&d.UUID, &d.Name, &d.TmCreate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find destination list: %w", err)
	}

	return &d, nil
}

func (r *DialingRepository) CountTotal(ctx context.Context, dlma *dialing.Dlma) (int64, error) {
	return r.countEntries(ctx, "total", "", dlma.UUID)
}

// CountFinished counts entries that are done or have used up their retries.
func (r *DialingRepository) CountFinished(ctx context.Context, dlma *dialing.Dlma, plan *dialing.Plan) (int64, error) {
	return r.countEntries(ctx, "finished", "AND (status = $2 OR try_count >= $3)",
		dlma.UUID, dialing.EntryFinished, plan.MaxRetry)
}

// CountAvailable counts idle entries that still have retries left.
func (r *DialingRepository) CountAvailable(ctx context.Context, dlma *dialing.Dlma, plan *dialing.Plan) (int64, error) {
	return r.countEntries(ctx, "available", "AND status = $2 AND try_count < $3",
		dlma.UUID, dialing.EntryIdle, plan.MaxRetry)
}

func (r *DialingRepository) CountDialing(ctx context.Context, dlma *dialing.Dlma) (int64, error) {
	return r.countEntries(ctx, "dialing", "AND status = $2", dlma.UUID, dialing.EntryDialing)
}

func (r *DialingRepository) CountTried(ctx context.Context, dlma *dialing.Dlma) (int64, error) {
	return r.countEntries(ctx, "tried", "AND try_count > 0", dlma.UUID)
}

// ActiveDialCount counts dial attempts of a campaign still in flight.
func (r *DialingRepository) ActiveDialCount(ctx context.Context, campaignUUID string) (int64, error) {
	var total int64
	query := `SELECT COUNT(*) FROM ob_dialing WHERE campaign_uuid = $1`
	if err := r.db.QueryRow(ctx, query, campaignUUID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count active dialings: %w", err)
	}
	return total, nil
}

func (r *DialingRepository) countEntries(ctx context.Context, name, cond string, args ...any) (int64, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM ob_dl_list
		WHERE dlma_uuid = $1 AND in_use = true %s
	`, cond)

	var total int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count %s dial list entries: %w", name, err)
	}
	return total, nil
}
