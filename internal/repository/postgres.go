package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/progreswwa/ekipa-strategow-back/internal/domain"
)

type PostgresConfig struct {
	URL      string
	MaxConns int32
}

type PostgresRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pg pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pg: %w", err)
	}
	return &PostgresRepository{
		pool: pool,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

func (r *PostgresRepository) InsertBrief(ctx context.Context, brief *domain.Brief) error {
	colors, err := json.Marshal(nonNilColors(brief.Colors))
	if err != nil {
		return fmt.Errorf("encode colors: %w", err)
	}
	products, err := json.Marshal(nonNilProducts(brief.Products))
	if err != nil {
		return fmt.Errorf("encode products: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO briefs (
			id,
			name,
			email,
			industry,
			page_type,
			description,
			colors,
			products,
			status,
			created_at,
			updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		brief.ID,
		brief.Name,
		brief.Email,
		brief.Industry,
		string(brief.PageType),
		brief.Description,
		colors,
		products,
		brief.Status,
		brief.CreatedAt,
		brief.UpdatedAt,
	)
	if err != nil {
		return mapWriteError("insert brief", err)
	}
	return nil
}

func (r *PostgresRepository) GetBrief(ctx context.Context, briefID string) (*domain.Brief, error) {
	var (
		brief    domain.Brief
		pageType string
		colors   []byte
		products []byte
	)

	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, email, industry, page_type, description, colors, products, status, created_at, updated_at
		FROM briefs
		WHERE id = $1
	`, briefID).Scan(
		&brief.ID,
		&brief.Name,
		&brief.Email,
		&brief.Industry,
		&pageType,
		&brief.Description,
		&colors,
		&products,
		&brief.Status,
		&brief.CreatedAt,
		&brief.UpdatedAt,
	)
	if err != nil {
		return nil, mapReadError("query brief", err)
	}

	brief.PageType = domain.PageType(pageType)
	if err := json.Unmarshal(colors, &brief.Colors); err != nil {
		return nil, fmt.Errorf("decode colors: %w", err)
	}
	if err := json.Unmarshal(products, &brief.Products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	brief.Colors = nonNilColors(brief.Colors)
	brief.Products = nonNilProducts(brief.Products)
	return &brief, nil
}

func (r *PostgresRepository) InsertJob(ctx context.Context, job *domain.Job) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO jobs (
			id,
			brief_id,
			status,
			result,
			error,
			created_at,
			updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		job.ID,
		nullableText(job.BriefID),
		string(job.Status),
		nullableJSON(job.Result),
		nullableText(job.ErrorMessage),
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return fmt.Errorf("brief %s: %w", job.BriefID, domain.ErrNotFound)
		}
		return mapWriteError("insert job", err)
	}
	return nil
}

// UpdateJob only matches rows whose current status may legally move to the
// requested one, so terminal rows are never rewritten.
func (r *PostgresRepository) UpdateJob(ctx context.Context, jobID string, update domain.JobUpdate) (*domain.Job, error) {
	allowedFrom := make([]string, 0, 2)
	for _, status := range []domain.JobStatus{domain.JobStatusPending, domain.JobStatusProcessing} {
		if domain.CanTransition(status, update.Status) {
			allowedFrom = append(allowedFrom, string(status))
		}
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE jobs
		SET status = $2,
			result = $3,
			error = $4,
			updated_at = $5
		WHERE id = $1 AND status = ANY($6)
		RETURNING id::text, COALESCE(brief_id::text, ''), status, result, COALESCE(error, ''), created_at, updated_at
	`,
		jobID,
		string(update.Status),
		nullableJSON(update.Result),
		nullableText(update.ErrorMessage),
		r.now(),
		allowedFrom,
	)
	job, err := scanJob(row)
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, mapWriteError("update job", err)
	}

	current, getErr := r.GetJob(ctx, jobID)
	if getErr != nil {
		return nil, getErr
	}
	if current.Status.IsTerminal() {
		return nil, domain.ErrJobFinalized
	}
	return nil, fmt.Errorf("job %s: invalid transition %s -> %s", jobID, current.Status, update.Status)
}

func (r *PostgresRepository) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id::text, COALESCE(brief_id::text, ''), status, result, COALESCE(error, ''), created_at, updated_at
		FROM jobs
		WHERE id = $1
	`, jobID)
	job, err := scanJob(row)
	if err != nil {
		return nil, mapReadError("query job", err)
	}
	return job, nil
}

func (r *PostgresRepository) ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	filter = filter.Normalize()
	baseQuery, args := buildJobFilters(filter)

	listQuery := fmt.Sprintf(
		`SELECT id::text, COALESCE(brief_id::text, ''), status, result, COALESCE(error, ''), created_at, updated_at
		%s
		ORDER BY created_at DESC
		LIMIT $%d`,
		baseQuery,
		len(args)+1,
	)
	rows, err := r.pool.Query(ctx, listQuery, append(args, filter.Limit)...)
	if err != nil {
		return nil, mapReadError("list jobs", err)
	}
	defer rows.Close()

	items := make([]domain.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		items = append(items, *job)
	}
	if rows.Err() != nil {
		return nil, mapReadError("iterate jobs", rows.Err())
	}
	return items, nil
}

func buildJobFilters(filter domain.JobFilter) (string, []any) {
	query := strings.Builder{}
	query.WriteString("FROM jobs WHERE 1=1")

	args := make([]any, 0, 2)
	argIndex := 1

	if filter.Status != "" {
		query.WriteString(fmt.Sprintf(" AND status = $%d", argIndex))
		args = append(args, string(filter.Status))
		argIndex++
	}
	if briefID := strings.TrimSpace(filter.BriefID); briefID != "" {
		query.WriteString(fmt.Sprintf(" AND brief_id::text = $%d", argIndex))
		args = append(args, briefID)
	}

	return query.String(), args
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job    domain.Job
		status string
		result []byte
	)
	if err := row.Scan(
		&job.ID,
		&job.BriefID,
		&status,
		&result,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	job.Status = domain.JobStatus(status)
	if len(result) > 0 {
		job.Result = json.RawMessage(result)
	}
	return &job, nil
}

// Malformed UUIDs cannot match any row, so they read as not found.
func mapReadError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.InvalidTextRepresentation {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrStore, op, err)
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgerrcode.InvalidTextRepresentation {
			return domain.ErrNotFound
		}
		if pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
			return fmt.Errorf("%w: %s: constraint %s violated", domain.ErrStore, op, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrStore, op, err)
}

func nullableText(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableJSON(value json.RawMessage) any {
	if len(value) == 0 {
		return nil
	}
	return []byte(value)
}

func nonNilColors(colors map[string]string) map[string]string {
	if colors == nil {
		return map[string]string{}
	}
	return colors
}

func nonNilProducts(products []map[string]any) []map[string]any {
	if products == nil {
		return []map[string]any{}
	}
	return products
}
