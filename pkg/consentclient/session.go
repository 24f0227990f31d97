package consentclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leadflow/consent-service/pkg/accesscode"
)

var (
	// ErrNotUnlocked is returned by Submit before a successful Unlock.
	ErrNotUnlocked = errors.New("application form has not been unlocked in this session")
	// ErrUnknownTemplate is returned by SetAnswer for a template the snapshot does not list.
	ErrUnknownTemplate = errors.New("template is not part of the current snapshot")
)

// Session drives one applicant's consent flow for a single (formId, leadId)
type Session struct {
	client   *Client
	store    SnapshotStore
	formID   string
	leadID   string
	formType string
	now      func() time.Time
}

// NewSession binds client and store to one form.
func NewSession(client *Client, store SnapshotStore, formID, leadID, formType string) *Session {
	return &Session{
		client:   client,
		store:    store,
		formID:   formID,
		leadID:   leadID,
		formType: formType,
		now:      time.Now,
	}
}

// Load returns the stored snapshot, reconciled against a fresh template fetch.
func (s *Session) Load(ctx context.Context) (*Snapshot, error) {
	snap, _, err := s.refresh(ctx)
	return snap, err
}

// Refresh fetches templates and reconciles the stored answers. It returns the ids of answers that were reset
// because their template changed version.
func (s *Session) Refresh(ctx context.Context) (*Snapshot, []string, error) {
	return s.refresh(ctx)
}

func (s *Session) refresh(ctx context.Context) (*Snapshot, []string, error) {
	snap, err := s.loadOrNew(ctx)
	if err != nil {
		return nil, nil, err
	}
	templates, err := s.client.FetchTemplates(ctx, s.formType)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch templates: %w", err)
	}

	var reset []string
	snap.Templates = templates
	snap.Answers, reset = Reconcile(snap.Answers, templates)
	snap.UserAgent = s.client.UserAgent()
	if err := s.save(ctx, snap); err != nil {
		return nil, nil, err
	}
	return snap, reset, nil
}

// SetAnswer records the applicant's decision on the current version of templateID.
func (s *Session) SetAnswer(ctx context.Context, templateID string, given bool) (*Snapshot, error) {
	snap, err := s.loadOrNew(ctx)
	if err != nil {
		return nil, err
	}
	t, ok := snap.template(templateID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, templateID)
	}
	snap.Answers[templateID] = Answer{Version: t.Version, ConsentGiven: given, AcceptedAt: s.now().UnixMilli()}
	if err := s.save(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Unlock hashes code locally, verifies it and keeps the hash for the rest of the session.
func (s *Session) Unlock(ctx context.Context, code string) (*VerifyResult, error) {
	if err := accesscode.Validate(code); err != nil {
		return nil, err
	}
	hash := accesscode.Hash(s.formID, s.leadID, code)
	result, err := s.client.VerifyAccess(ctx, s.formID, s.leadID, hash)
	if err != nil {
		return nil, err
	}

	snap, err := s.loadOrNew(ctx)
	if err != nil {
		return nil, err
	}
	snap.AccessCodeHash = hash
	if err := s.save(ctx, snap); err != nil {
		return nil, err
	}
	return result, nil
}

// Submit sends every answer of the snapshot. A TemplateOutdated rejection triggers one refetch and resubmit;
// a second TemplateOutdated is returned to the caller.
func (s *Session) Submit(ctx context.Context) (*SubmitResult, error) {
	snap, err := s.loadOrNew(ctx)
	if err != nil {
		return nil, err
	}
	if snap.AccessCodeHash == "" {
		return nil, ErrNotUnlocked
	}

	result, err := s.client.Submit(ctx, buildSubmitRequest(snap))
	if !IsTemplateOutdated(err) {
		return result, err
	}

	snap, _, err = s.refresh(ctx)
	if err != nil {
		return nil, err
	}
	return s.client.Submit(ctx, buildSubmitRequest(snap))
}

// Clear drops the stored snapshot.
func (s *Session) Clear(ctx context.Context) error {
	return s.store.Clear(ctx, s.formID, s.leadID)
}

func buildSubmitRequest(snap *Snapshot) SubmitRequest {
	req := SubmitRequest{
		ApplicationFormID: snap.FormID,
		LeadID:            snap.LeadID,
		AccessCodeHash:    snap.AccessCodeHash,
		Consents:          make([]ConsentAnswer, 0, len(snap.Templates)),
	}
	for _, t := range snap.Templates {
		a, ok := snap.Answers[t.ID]
		if !ok {
			a = Answer{Version: t.Version, ConsentGiven: t.IsRequired}
		}
		answer := ConsentAnswer{ConsentTemplateID: t.ID, Version: a.Version, ConsentGiven: a.ConsentGiven}
		if a.AcceptedAt > 0 {
			acceptedAt := a.AcceptedAt
			answer.AcceptedAt = &acceptedAt
		}
		req.Consents = append(req.Consents, answer)
	}
	return req
}

func (s *Session) loadOrNew(ctx context.Context) (*Snapshot, error) {
	snap, err := s.store.Load(ctx, s.formID, s.leadID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		snap = &Snapshot{FormID: s.formID, LeadID: s.leadID, FormType: s.formType}
	}
	if snap.Answers == nil {
		snap.Answers = make(map[string]Answer)
	}
	return snap, nil
}

func (s *Session) save(ctx context.Context, snap *Snapshot) error {
	snap.UpdatedAt = s.now().UTC()
	return s.store.Save(ctx, snap)
}
