package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fleetroute/internal/model"
)

// Memory is the in-memory store used when no database is configured. It is
// the default for development and for tests.
type Memory struct {
	mu        sync.Mutex
	instances map[string]model.InstanceRec // id -> instance
	jobs      map[string]model.SolveJob    // id -> job
	subs      map[string][]model.Subscription
	// Webhook queue state
	deliveries map[string]*memDelivery
	dueOrder   []string // delivery ids in enqueue order
}

func NewMemory() *Memory {
	return &Memory{
		instances:  map[string]model.InstanceRec{},
		jobs:       map[string]model.SolveJob{},
		subs:       map[string][]model.Subscription{},
		deliveries: map[string]*memDelivery{},
	}
}

// memDelivery augments WebhookDelivery with scheduling state.
type memDelivery struct {
	WebhookDelivery
	NextAttemptAt time.Time
	LastError     string
	ResponseCode  int
	LatencyMs     int
	DeliveredAt   *time.Time
}

func (m *Memory) CreateInstance(_ context.Context, tenantID string, in model.InstanceIn) (model.InstanceRec, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := model.InstanceRec{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Name:      in.Name,
		Spec:      in,
		CreatedAt: time.Now().UTC(),
	}
	m.instances[rec.ID] = rec
	return rec, nil
}

func (m *Memory) GetInstance(_ context.Context, tenantID, id string) (model.InstanceRec, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.instances[id]
	if !ok || rec.TenantID != tenantID {
		return model.InstanceRec{}, ErrNotFound
	}
	return rec, nil
}

func (m *Memory) ListInstances(_ context.Context, tenantID, cursor string, limit int) ([]model.InstanceRec, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.InstanceRec
	for _, rec := range m.instances {
		if rec.TenantID == tenantID {
			all = append(all, rec)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	return pageByID(all, cursor, limit, func(r model.InstanceRec) string { return r.ID })
}

func (m *Memory) DeleteInstance(_ context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.instances[id]
	if !ok || rec.TenantID != tenantID {
		return ErrNotFound
	}
	delete(m.instances, id)
	return nil
}

func (m *Memory) CreateSolveJob(_ context.Context, job model.SolveJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	return nil
}

func (m *Memory) UpdateSolveJob(_ context.Context, job model.SolveJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; !ok {
		return ErrNotFound
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *Memory) GetSolveJob(_ context.Context, tenantID, id string) (model.SolveJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.TenantID != tenantID {
		return model.SolveJob{}, ErrNotFound
	}
	return job, nil
}

func (m *Memory) ListSolveJobs(_ context.Context, tenantID, status, cursor string, limit int) ([]model.SolveJob, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.SolveJob
	for _, job := range m.jobs {
		if job.TenantID != tenantID {
			continue
		}
		if status != "" && job.Status != status {
			continue
		}
		all = append(all, job)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].SubmittedAt.Equal(all[j].SubmittedAt) {
			return all[i].SubmittedAt.Before(all[j].SubmittedAt)
		}
		return all[i].ID < all[j].ID
	})
	return pageByID(all, cursor, limit, func(j model.SolveJob) string { return j.ID })
}

func (m *Memory) CreateSubscription(_ context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub := model.Subscription{
		ID:       uuid.NewString(),
		TenantID: req.TenantID,
		URL:      req.URL,
		Events:   append([]string(nil), req.Events...),
		Secret:   req.Secret,
	}
	m.subs[req.TenantID] = append(m.subs[req.TenantID], sub)
	return sub, nil
}

func (m *Memory) GetSubscriptionsForEvent(_ context.Context, tenantID, eventType string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Subscription
	for _, sub := range m.subs[tenantID] {
		for _, ev := range sub.Events {
			if ev == eventType || ev == "*" {
				out = append(out, sub)
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) ListSubscriptions(_ context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := append([]model.Subscription(nil), m.subs[tenantID]...)
	return pageByID(all, cursor, limit, func(s model.Subscription) string { return s.ID })
}

func (m *Memory) DeleteSubscription(_ context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.subs[tenantID]
	for i, sub := range subs {
		if sub.ID == id {
			m.subs[tenantID] = append(subs[:i], subs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) EnqueueWebhook(_ context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.deliveries[id] = &memDelivery{
		WebhookDelivery: WebhookDelivery{
			ID:             id,
			TenantID:       tenantID,
			SubscriptionID: subscriptionID,
			EventType:      eventType,
			URL:            url,
			Secret:         secret,
			Payload:        append([]byte(nil), payload...),
			Status:         "pending",
		},
		NextAttemptAt: time.Now(),
	}
	m.dueOrder = append(m.dueOrder, id)
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(_ context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var out []WebhookDelivery
	for _, id := range m.dueOrder {
		d, ok := m.deliveries[id]
		if !ok || d.Status != "pending" || d.NextAttemptAt.After(now) {
			continue
		}
		out = append(out, d.WebhookDelivery)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(_ context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	if success {
		d.Status = "delivered"
		now := time.Now()
		d.DeliveredAt = &now
		return nil
	}
	if nextAttemptAt != nil {
		d.NextAttemptAt = *nextAttemptAt
	}
	return nil
}

func (m *Memory) FailWebhookDelivery(_ context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.Status = "failed"
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

// pageByID applies cursor pagination over a slice already sorted in a stable
// order: the cursor is the last ID of the previous page.
func pageByID[T any](all []T, cursor string, limit int, id func(T) string) ([]T, string, error) {
	if limit <= 0 {
		limit = 100
	}
	start := 0
	if cursor != "" {
		for i, v := range all {
			if id(v) == cursor {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	next := ""
	if end < len(all) && end > start {
		next = id(all[end-1])
	}
	return all[start:end], next, nil
}
