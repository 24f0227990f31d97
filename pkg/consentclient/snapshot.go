package consentclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Answer is the applicant's local decision on one template version
type Answer struct {
	Version      int   `json:"version"`
	ConsentGiven bool  `json:"consentGiven"`
	AcceptedAt   int64 `json:"acceptedAt,omitempty"`
}

// Snapshot is the session state kept for one (formId, leadId). The client IP is not kept: the server reads it
// from the connection when the batch is submitted.
type Snapshot struct {
	FormID         string            `json:"formId"`
	LeadID         string            `json:"leadId"`
	FormType       string            `json:"formType"`
	Templates      []Template        `json:"templates"`
	Answers        map[string]Answer `json:"answers"`
	AccessCodeHash string            `json:"accessCodeHash,omitempty"`
	UserAgent      string            `json:"userAgent,omitempty"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

func (s *Snapshot) template(id string) (Template, bool) {
	for _, t := range s.Templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

func (s *Snapshot) clone() *Snapshot {
	c := *s
	c.Templates = append([]Template(nil), s.Templates...)
	c.Answers = make(map[string]Answer, len(s.Answers))
	for k, v := range s.Answers {
		c.Answers[k] = v
	}
	return &c
}

// Reconcile keeps an answer only while its version equals the fetched template's version. Any other answer is
// replaced by the template default: given when required, declined otherwise. Answers for templates no longer
// listed are dropped. The returned ids are the templates whose local answer was reset.
func Reconcile(answers map[string]Answer, templates []Template) (map[string]Answer, []string) {
	next := make(map[string]Answer, len(templates))
	var reset []string
	for _, t := range templates {
		if a, ok := answers[t.ID]; ok {
			if a.Version == t.Version {
				next[t.ID] = a
				continue
			}
			reset = append(reset, t.ID)
		}
		next[t.ID] = Answer{Version: t.Version, ConsentGiven: t.IsRequired}
	}
	return next, reset
}

// SnapshotStore persists snapshots keyed by (formId, leadId)
type SnapshotStore interface {
	// Load returns nil without error when nothing is stored.
	Load(ctx context.Context, formID, leadID string) (*Snapshot, error)
	Save(ctx context.Context, snapshot *Snapshot) error
	Clear(ctx context.Context, formID, leadID string) error
}

func snapshotKey(formID, leadID string) string {
	return "consent:snapshot:" + formID + ":" + leadID
}

// MemoryStore keeps snapshots in process. Stored values are copied on the way in and out.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]*Snapshot
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string]*Snapshot)}
}

func (m *MemoryStore) Load(_ context.Context, formID, leadID string) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snapshots[snapshotKey(formID, leadID)]
	if !ok {
		return nil, nil
	}
	return s.clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, snapshot *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snapshotKey(snapshot.FormID, snapshot.LeadID)] = snapshot.clone()
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, formID, leadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, snapshotKey(formID, leadID))
	return nil
}

// RedisStore keeps snapshots as JSON values that expire after ttl of inactivity
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisStore creates a store over client. A zero ttl keeps snapshots until cleared.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Load(ctx context.Context, formID, leadID string) (*Snapshot, error) {
	raw, err := r.client.Get(ctx, snapshotKey(formID, leadID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, snapshot *Snapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := r.client.Set(ctx, snapshotKey(snapshot.FormID, snapshot.LeadID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context, formID, leadID string) error {
	return r.client.Del(ctx, snapshotKey(formID, leadID)).Err()
}
