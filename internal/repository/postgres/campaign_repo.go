// internal/repository/postgres/campaign_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"obcampaign-service/internal/domain/campaign"
	xerrors "obcampaign-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

const campaignColumns = `
	uuid, name, detail, status,
	plan, dlma, dest, next_campaign,
	sc_mode, sc_date_start, sc_date_end, sc_date_list, sc_date_list_except,
	sc_time_start, sc_time_end, sc_day_list,
	variables, tm_create, tm_update, tm_delete, in_use`

// referenceColumns whitelists the columns a reference filter may touch.
var referenceColumns = map[campaign.RefKind]string{
	campaign.RefPlan: "plan",
	campaign.RefDlma: "dlma",
	campaign.RefDest: "dest",
}

type rowScanner interface {
	Scan(dest ...any) error
}

type CampaignRepository struct {
	db *pgxpool.Pool
}

func NewCampaignRepository(db *pgxpool.Pool) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// Insert stores a new campaign snapshot.
func (r *CampaignRepository) Insert(ctx context.Context, c *campaign.Campaign) error {
	query := `
		INSERT INTO ob_campaign (` + campaignColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`

	vars, err := marshalVariables(c.Variables)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, query,
		c.UUID, c.Name, c.Detail, string(c.Status),
		c.Plan, c.Dlma, c.Dest, c.NextCampaign,
		string(c.ScheduleMode), c.ScDateStart, c.ScDateEnd,
		dateArray(c.ScDateList), dateArray(c.ScDateListExcept),
		c.ScTimeStart, c.ScTimeEnd, dayArray(c.ScDayList),
		vars, c.TmCreate, c.TmUpdate, c.TmDelete, c.InUse,
	)
	if err != nil {
		return fmt.Errorf("failed to insert campaign: %w", err)
	}

	return nil
}

// FindOne returns the first campaign matching filter.
func (r *CampaignRepository) FindOne(ctx context.Context, filter campaign.Filter) (*campaign.Campaign, error) {
	where, args, err := buildWhere(filter, 1)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM ob_campaign %s LIMIT 1", campaignColumns, where)
	c, err := scanCampaign(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find campaign: %w", err)
	}

	return c, nil
}

func (r *CampaignRepository) FindMany(ctx context.Context, filter campaign.Filter) ([]campaign.Campaign, error) {
	where, args, err := buildWhere(filter, 1)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM ob_campaign %s ORDER BY tm_create ASC", campaignColumns, where)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := []campaign.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate campaigns: %w", err)
	}

	return campaigns, nil
}

func (r *CampaignRepository) FindUUIDs(ctx context.Context, filter campaign.Filter) ([]string, error) {
	where, args, err := buildWhere(filter, 1)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT uuid FROM ob_campaign %s ORDER BY tm_create ASC", where)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaign uuids: %w", err)
	}

	uuids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect campaign uuids: %w", err)
	}
	return uuids, nil
}

// FindRandom returns one campaign matching filter picked at random.
func (r *CampaignRepository) FindRandom(ctx context.Context, filter campaign.Filter) (*campaign.Campaign, error) {
	where, args, err := buildWhere(filter, 1)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM ob_campaign %s ORDER BY random() LIMIT 1", campaignColumns, where)
	c, err := scanCampaign(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pick campaign: %w", err)
	}

	return c, nil
}

func (r *CampaignRepository) Count(ctx context.Context, filter campaign.Filter) (int64, error) {
	where, args, err := buildWhere(filter, 1)
	if err != nil {
		return 0, err
	}

	var total int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM ob_campaign %s", where)
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count campaigns: %w", err)
	}
	return total, nil
}

// Update writes every mutable column of a live campaign.
func (r *CampaignRepository) Update(ctx context.Context, c *campaign.Campaign) error {
	query := `
		UPDATE ob_campaign
		SET name = $2, detail = $3, status = $4,
		    plan = $5, dlma = $6, dest = $7, next_campaign = $8,
		    sc_mode = $9, sc_date_start = $10, sc_date_end = $11,
		    sc_date_list = $12, sc_date_list_except = $13,
		    sc_time_start = $14, sc_time_end = $15, sc_day_list = $16,
		    variables = $17, tm_update = $18
		WHERE uuid = $1 AND in_use = true
	`

	vars, err := marshalVariables(c.Variables)
	if err != nil {
		return err
	}

	result, err := r.db.Exec(ctx, query,
		c.UUID, c.Name, c.Detail, string(c.Status),
		c.Plan, c.Dlma, c.Dest, c.NextCampaign,
		string(c.ScheduleMode), c.ScDateStart, c.ScDateEnd,
		dateArray(c.ScDateList), dateArray(c.ScDateListExcept),
		c.ScTimeStart, c.ScTimeEnd, dayArray(c.ScDayList),
		vars, c.TmUpdate,
	)
	if err != nil {
		return fmt.Errorf("failed to update campaign: %w", err)
	}

	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// SoftDelete stops a live campaign and marks it deleted.
func (r *CampaignRepository) SoftDelete(ctx context.Context, uuid string, at time.Time) error {
	query := `
		UPDATE ob_campaign
		SET in_use = false, status = $2, tm_delete = $3
		WHERE uuid = $1 AND in_use = true
	`

	result, err := r.db.Exec(ctx, query, uuid, string(campaign.StatusStop), at)
	if err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}

	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// ClearReference unsets ref on every live campaign holding it.
func (r *CampaignRepository) ClearReference(ctx context.Context, ref campaign.Reference, at time.Time) (int64, error) {
	column, ok := referenceColumns[ref.Kind]
	if !ok {
		return 0, xerrors.Invalid("unknown reference kind %q", ref.Kind)
	}
	column = pq.QuoteIdentifier(column)

	query := fmt.Sprintf(`
		UPDATE ob_campaign
		SET %s = NULL, tm_update = $2
		WHERE %s = $1 AND in_use = true
	`, column, column)

	result, err := r.db.Exec(ctx, query, ref.ID, at)
	if err != nil {
		return 0, fmt.Errorf("failed to clear campaign %s: %w", ref.Kind, err)
	}

	return result.RowsAffected(), nil
}

// buildWhere renders filter as a WHERE clause whose placeholders start at
// argPos.
func buildWhere(filter campaign.Filter, argPos int) (string, []any, error) {
	conditions := []string{}
	args := []any{}

	if filter.UUID != nil {
		conditions = append(conditions, fmt.Sprintf("uuid = $%d", argPos))
		args = append(args, *filter.UUID)
		argPos++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, string(*filter.Status))
		argPos++
	}

	if filter.ScheduleMode != nil {
		conditions = append(conditions, fmt.Sprintf("sc_mode = $%d", argPos))
		args = append(args, string(*filter.ScheduleMode))
		argPos++
	}

	if filter.Reference != nil {
		column, ok := referenceColumns[filter.Reference.Kind]
		if !ok {
			return "", nil, xerrors.Invalid("unknown reference kind %q", filter.Reference.Kind)
		}
		conditions = append(conditions, fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(column), argPos))
		args = append(args, filter.Reference.ID)
		argPos++
	}

	if filter.InUse != nil {
		conditions = append(conditions, fmt.Sprintf("in_use = $%d", argPos))
		args = append(args, *filter.InUse)
	}

	if len(conditions) == 0 {
		return "", args, nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args, nil
}

func scanCampaign(row rowScanner) (*campaign.Campaign, error) {
	var (
		c                    campaign.Campaign
		status, mode         string
		dateList, dateExcept []string
		dayList              []int32
		varsJSON             []byte
	)

	err := row.Scan(
		&c.UUID, &c.Name, &c.Detail, &status,
		&c.Plan, &c.Dlma, &c.Dest, &c.NextCampaign,
		&mode, &c.ScDateStart, &c.ScDateEnd, &dateList, &dateExcept,
		&c.ScTimeStart, &c.ScTimeEnd, &dayList,
		&varsJSON, &c.TmCreate, &c.TmUpdate, &c.TmDelete, &c.InUse,
	)
	if err != nil {
		return nil, err
	}

	c.Status = campaign.Status(status)
	c.ScheduleMode = campaign.ScheduleMode(mode)
	c.ScDateList = campaign.DateList(dateList)
	c.ScDateListExcept = campaign.DateList(dateExcept)
	if len(dayList) > 0 {
		c.ScDayList = make(campaign.DayList, len(dayList))
		for i, d := range dayList {
			c.ScDayList[i] = int(d)
		}
	}

	c.Variables = map[string]interface{}{}
	if len(varsJSON) > 0 {
		if err := json.Unmarshal(varsJSON, &c.Variables); err != nil {
			return nil, fmt.Errorf("failed to unmarshal variables: %w", err)
		}
		if c.Variables == nil {
			c.Variables = map[string]interface{}{}
		}
	}

	return &c, nil
}

func marshalVariables(vars map[string]interface{}) ([]byte, error) {
	if vars == nil {
		vars = map[string]interface{}{}
	}
	b, err := json.Marshal(vars)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal variables: %w", err)
	}
	return b, nil
}

func dateArray(l campaign.DateList) []string {
	if len(l) == 0 {
		return nil
	}
	return []string(l)
}

func dayArray(l campaign.DayList) []int32 {
	if len(l) == 0 {
		return nil
	}
	out := make([]int32, len(l))
	for i, d := range l {
		out[i] = int32(d)
	}
	return out
}
