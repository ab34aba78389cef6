package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"fleetroute/internal/model"
)

// Postgres persists instances, solve jobs, subscriptions and webhook
// deliveries. Problem specs and solution reports are stored as JSONB; the
// query surface only ever needs whole documents plus a few indexed columns.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// Migrate creates the schema if missing. Statements are idempotent so the
// server can run this unconditionally at startup.
func (p *Postgres) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS instances (
			id UUID PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			name TEXT,
			spec JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS instances_tenant_idx ON instances (tenant_id, created_at, id)`,
		`CREATE TABLE IF NOT EXISTS solve_jobs (
			id UUID PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			instance_id UUID NOT NULL,
			strategy TEXT NOT NULL,
			status TEXT NOT NULL,
			submitted_at TIMESTAMPTZ NOT NULL,
			started_at TIMESTAMPTZ,
			finished_at TIMESTAMPTZ,
			result JSONB,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS solve_jobs_tenant_idx ON solve_jobs (tenant_id, submitted_at, id)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id UUID PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			url TEXT NOT NULL,
			events TEXT[] NOT NULL,
			secret TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS webhook_deliveries (
			id UUID PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			subscription_id UUID,
			event_type TEXT NOT NULL,
			url TEXT NOT NULL,
			secret TEXT,
			payload JSONB NOT NULL,
			dedup_key TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			attempts INT NOT NULL DEFAULT 0,
			next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_error TEXT,
			response_code INT,
			latency_ms INT,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (tenant_id, event_type, url, dedup_key)
		)`,
		`CREATE INDEX IF NOT EXISTS webhook_due_idx ON webhook_deliveries (status, next_attempt_at)`,
	}
	for _, s := range stmts {
		if _, err := p.db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) CreateInstance(ctx context.Context, tenantID string, in model.InstanceIn) (model.InstanceRec, error) {
	rec := model.InstanceRec{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Name:      in.Name,
		Spec:      in,
		CreatedAt: time.Now().UTC(),
	}
	spec, err := json.Marshal(in)
	if err != nil {
		return model.InstanceRec{}, err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO instances (id, tenant_id, name, spec, created_at) VALUES ($1,$2,$3,$4,$5)`,
		rec.ID, tenantID, nullIfEmpty(in.Name), spec, rec.CreatedAt)
	if err != nil {
		return model.InstanceRec{}, err
	}
	return rec, nil
}

func (p *Postgres) GetInstance(ctx context.Context, tenantID, id string) (model.InstanceRec, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id::text, tenant_id, COALESCE(name,''), spec, created_at FROM instances WHERE id=$1 AND tenant_id=$2`,
		id, tenantID)
	return scanInstance(row)
}

func (p *Postgres) ListInstances(ctx context.Context, tenantID, cursor string, limit int) ([]model.InstanceRec, string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, tenant_id, COALESCE(name,''), spec, created_at FROM instances
		 WHERE tenant_id=$1 AND ($2='' OR id::text > $2)
		 ORDER BY id LIMIT $3`, tenantID, cursor, limit+1)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	var items []model.InstanceRec
	for rows.Next() {
		rec, err := scanInstance(rows)
		if err != nil {
			return nil, "", err
		}
		items = append(items, rec)
	}
	next := ""
	if len(items) > limit {
		items = items[:limit]
		next = items[limit-1].ID
	}
	return items, next, rows.Err()
}

func (p *Postgres) DeleteInstance(ctx context.Context, tenantID, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM instances WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstance(row rowScanner) (model.InstanceRec, error) {
	var rec model.InstanceRec
	var spec []byte
	err := row.Scan(&rec.ID, &rec.TenantID, &rec.Name, &spec, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.InstanceRec{}, ErrNotFound
	}
	if err != nil {
		return model.InstanceRec{}, err
	}
	if err := json.Unmarshal(spec, &rec.Spec); err != nil {
		return model.InstanceRec{}, err
	}
	return rec, nil
}

func (p *Postgres) CreateSolveJob(ctx context.Context, job model.SolveJob) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO solve_jobs (id, tenant_id, instance_id, strategy, status, submitted_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		job.ID, job.TenantID, job.InstanceID, job.Strategy, job.Status, job.SubmittedAt)
	return err
}

func (p *Postgres) UpdateSolveJob(ctx context.Context, job model.SolveJob) error {
	var result any
	if job.Result != nil {
		b, err := json.Marshal(job.Result)
		if err != nil {
			return err
		}
		result = b
	}
	res, err := p.db.ExecContext(ctx,
		`UPDATE solve_jobs SET status=$2, started_at=$3, finished_at=$4, result=$5, error=$6 WHERE id=$1`,
		job.ID, job.Status, job.StartedAt, job.FinishedAt, result, nullIfEmpty(job.Error))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) GetSolveJob(ctx context.Context, tenantID, id string) (model.SolveJob, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id::text, tenant_id, instance_id::text, strategy, status, submitted_at, started_at, finished_at, result, COALESCE(error,'')
		   FROM solve_jobs WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	return scanSolveJob(row)
}

func (p *Postgres) ListSolveJobs(ctx context.Context, tenantID, status, cursor string, limit int) ([]model.SolveJob, string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, tenant_id, instance_id::text, strategy, status, submitted_at, started_at, finished_at, result, COALESCE(error,'')
		   FROM solve_jobs
		  WHERE tenant_id=$1 AND ($2='' OR status=$2) AND ($3='' OR id::text > $3)
		  ORDER BY id LIMIT $4`, tenantID, status, cursor, limit+1)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	var items []model.SolveJob
	for rows.Next() {
		job, err := scanSolveJob(rows)
		if err != nil {
			return nil, "", err
		}
		items = append(items, job)
	}
	next := ""
	if len(items) > limit {
		items = items[:limit]
		next = items[limit-1].ID
	}
	return items, next, rows.Err()
}

func scanSolveJob(row rowScanner) (model.SolveJob, error) {
	var job model.SolveJob
	var started, finished sql.NullTime
	var result []byte
	err := row.Scan(&job.ID, &job.TenantID, &job.InstanceID, &job.Strategy, &job.Status,
		&job.SubmittedAt, &started, &finished, &result, &job.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SolveJob{}, ErrNotFound
	}
	if err != nil {
		return model.SolveJob{}, err
	}
	if started.Valid {
		job.StartedAt = &started.Time
	}
	if finished.Valid {
		job.FinishedAt = &finished.Time
	}
	if len(result) > 0 {
		job.Result = &model.SolutionReport{}
		if err := json.Unmarshal(result, job.Result); err != nil {
			return model.SolveJob{}, err
		}
	}
	return job, nil
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	sub := model.Subscription{
		ID:       uuid.NewString(),
		TenantID: req.TenantID,
		URL:      req.URL,
		Events:   append([]string(nil), req.Events...),
		Secret:   req.Secret,
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO subscriptions (id, tenant_id, url, events, secret) VALUES ($1,$2,$3,$4,$5)`,
		sub.ID, sub.TenantID, sub.URL, sub.Events, nullIfEmpty(sub.Secret))
	if err != nil {
		return model.Subscription{}, err
	}
	return sub, nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, tenant_id, url, events, COALESCE(secret,'') FROM subscriptions
		  WHERE tenant_id=$1 AND (events @> ARRAY[$2]::text[] OR events @> ARRAY['*']::text[])`,
		tenantID, eventType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubscriptions(rows)
}

func (p *Postgres) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, tenant_id, url, events, COALESCE(secret,'') FROM subscriptions
		  WHERE tenant_id=$1 AND ($2='' OR id::text > $2) ORDER BY id LIMIT $3`,
		tenantID, cursor, limit+1)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	items, err := collectSubscriptions(rows)
	if err != nil {
		return nil, "", err
	}
	next := ""
	if len(items) > limit {
		items = items[:limit]
		next = items[limit-1].ID
	}
	return items, next, nil
}

func collectSubscriptions(rows *sql.Rows) ([]model.Subscription, error) {
	var out []model.Subscription
	for rows.Next() {
		var sub model.Subscription
		var events []byte
		if err := rows.Scan(&sub.ID, &sub.TenantID, &sub.URL, &events, &sub.Secret); err != nil {
			return nil, err
		}
		sub.Events = parseTextArray(events)
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (p *Postgres) DeleteSubscription(ctx context.Context, tenantID, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.NewString()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO webhook_deliveries (id, tenant_id, subscription_id, event_type, url, secret, payload, dedup_key)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (tenant_id, event_type, url, dedup_key) DO NOTHING`,
		id, tenantID, nullIfEmpty(subscriptionID), eventType, url, nullIfEmpty(secret), payload, computeDedupKey(payload))
	if err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, tenant_id, COALESCE(subscription_id::text,''), event_type, url, COALESCE(secret,''), payload, status, attempts
		   FROM webhook_deliveries
		  WHERE status='pending' AND next_attempt_at <= now()
		  ORDER BY next_attempt_at LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []WebhookDelivery
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.TenantID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	if success {
		_, err := p.db.ExecContext(ctx,
			`UPDATE webhook_deliveries SET attempts=attempts+1, status='delivered', last_error=NULL, updated_at=now(), response_code=$2, latency_ms=$3 WHERE id=$1`,
			id, responseCode, latencyMs)
		return err
	}
	_, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries SET attempts=attempts+1, status='pending', last_error=$2, next_attempt_at=$3, updated_at=now(), response_code=$4, latency_ms=$5 WHERE id=$1`,
		id, nullIfEmpty(lastError), nextAttemptAt, responseCode, latencyMs)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries SET attempts=attempts+1, status='failed', last_error=$2, updated_at=now(), response_code=$3, latency_ms=$4 WHERE id=$1`,
		id, nullIfEmpty(lastError), responseCode, latencyMs)
	return err
}

// computeDedupKey prefers the event's own id, falling back to a payload
// hash, so re-emitting the same event does not double-deliver.
func computeDedupKey(payload []byte) string {
	var env struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &env); err == nil && env.ID != "" {
		return env.ID
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:8])
}

// parseTextArray decodes a simple Postgres text[] literal like {a,b}. Event
// names never contain commas, quotes or braces, so the trivial parse holds.
func parseTextArray(b []byte) []string {
	s := string(b)
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return nil
	}
	s = s[1 : len(s)-1]
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return out
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
