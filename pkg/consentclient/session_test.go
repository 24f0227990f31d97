package consentclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflow/consent-service/pkg/accesscode"
)

const (
	testFormID = "form-1"
	testLeadID = "lead-1"
	testCode   = "4821"
)

// fakeServer serves the applicant endpoints with a mutable template catalog.
type fakeServer struct {
	mu            sync.Mutex
	versions      map[string]int
	bumpOnSubmit  int
	templateFetch atomic.Int32
	submissions   []SubmitRequest
	fetchGate     chan struct{}
}

func newFakeServer(t *testing.T) (*fakeServer, *httptest.Server) {
	fs := &fakeServer{versions: map[string]int{"tpl_marketing": 2, "tpl_partners": 1}}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/consent-templates", fs.listTemplates)
	mux.HandleFunc("POST /api/v1/application-forms/{formId}/verify-access", fs.verifyAccess)
	mux.HandleFunc("POST /api/v1/consent-records/batch", fs.submit)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return fs, server
}

func (fs *fakeServer) listTemplates(w http.ResponseWriter, r *http.Request) {
	fs.templateFetch.Add(1)
	if fs.fetchGate != nil {
		<-fs.fetchGate
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	list := templateList{Data: []Template{
		{ID: "tpl_marketing", ConsentType: "MARKETING", FormType: r.URL.Query().Get("formType"), Version: fs.versions["tpl_marketing"], IsActive: true, IsRequired: true},
		{ID: "tpl_partners", ConsentType: "FINANCIAL_PARTNERS", Version: fs.versions["tpl_partners"], IsActive: true},
	}}
	list.Total = len(list.Data)
	writeJSON(w, http.StatusOK, list)
}

func (fs *fakeServer) verifyAccess(w http.ResponseWriter, r *http.Request) {
	var req accessRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.AccessCodeHash != accesscode.Hash(r.PathValue("formId"), req.LeadID, testCode) {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: CodeInvalidAccess, ErrorDescription: "invalid access code or link"})
		return
	}
	writeJSON(w, http.StatusOK, VerifyResult{Result: "ok", ApplicationFormID: r.PathValue("formId")})
}

func (fs *fakeServer) submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.submissions = append(fs.submissions, req)
	if fs.bumpOnSubmit > 0 {
		fs.bumpOnSubmit--
		fs.versions["tpl_marketing"]++
	}
	for _, c := range req.Consents {
		if c.Version != fs.versions[c.ConsentTemplateID] {
			writeJSON(w, http.StatusConflict, errorBody{Error: CodeTemplateOutdated, ErrorDescription: "template changed"})
			return
		}
	}
	writeJSON(w, http.StatusCreated, SubmitResult{Processed: len(req.Consents)})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestSession(t *testing.T) (*Session, *fakeServer, SnapshotStore) {
	fs, server := newFakeServer(t)
	store := NewMemoryStore()
	session := NewSession(NewClient(server.URL, WithUserAgent("test-agent")), store, testFormID, testLeadID, "financing_application")
	session.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	return session, fs, store
}

func TestSession_LoadAppliesDefaults(t *testing.T) {
	session, _, store := newTestSession(t)

	snap, err := session.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Templates, 2)
	assert.Equal(t, Answer{Version: 2, ConsentGiven: true}, snap.Answers["tpl_marketing"])
	assert.Equal(t, Answer{Version: 1, ConsentGiven: false}, snap.Answers["tpl_partners"])
	assert.Equal(t, "test-agent", snap.UserAgent)

	stored, err := store.Load(context.Background(), testFormID, testLeadID)
	require.NoError(t, err)
	assert.Equal(t, snap.Answers, stored.Answers)
}

func TestSession_RefreshResetsChangedTemplate(t *testing.T) {
	session, fs, _ := newTestSession(t)
	ctx := context.Background()
	_, err := session.Load(ctx)
	require.NoError(t, err)
	_, err = session.SetAnswer(ctx, "tpl_marketing", false)
	require.NoError(t, err)
	_, err = session.SetAnswer(ctx, "tpl_partners", true)
	require.NoError(t, err)

	fs.mu.Lock()
	fs.versions["tpl_marketing"] = 3
	fs.mu.Unlock()

	snap, reset, err := session.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"tpl_marketing"}, reset)
	assert.Equal(t, Answer{Version: 3, ConsentGiven: true}, snap.Answers["tpl_marketing"])
	assert.Equal(t, Answer{Version: 1, ConsentGiven: true, AcceptedAt: 1_700_000_000_000}, snap.Answers["tpl_partners"])
}

func TestSession_SetAnswerUnknownTemplate(t *testing.T) {
	session, _, _ := newTestSession(t)
	_, err := session.SetAnswer(context.Background(), "tpl_nope", true)
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestSession_UnlockStoresHashOnly(t *testing.T) {
	session, _, store := newTestSession(t)
	ctx := context.Background()

	_, err := session.Unlock(ctx, "12a4")
	assert.ErrorIs(t, err, accesscode.ErrInvalidFormat)

	_, err = session.Unlock(ctx, "0000")
	assert.True(t, IsCode(err, CodeInvalidAccess))

	result, err := session.Unlock(ctx, testCode)
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Result)

	stored, err := store.Load(ctx, testFormID, testLeadID)
	require.NoError(t, err)
	assert.Equal(t, accesscode.Hash(testFormID, testLeadID, testCode), stored.AccessCodeHash)
}

func TestSession_SubmitRequiresUnlock(t *testing.T) {
	session, _, _ := newTestSession(t)
	_, err := session.Load(context.Background())
	require.NoError(t, err)

	_, err = session.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNotUnlocked)
}

func TestSession_SubmitSendsReconciledAnswers(t *testing.T) {
	session, fs, _ := newTestSession(t)
	ctx := context.Background()
	_, err := session.Load(ctx)
	require.NoError(t, err)
	_, err = session.Unlock(ctx, testCode)
	require.NoError(t, err)

	result, err := session.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	require.Len(t, fs.submissions, 1)
	assert.Equal(t, accesscode.Hash(testFormID, testLeadID, testCode), fs.submissions[0].AccessCodeHash)
	assert.Equal(t, []ConsentAnswer{
		{ConsentTemplateID: "tpl_marketing", Version: 2, ConsentGiven: true},
		{ConsentTemplateID: "tpl_partners", Version: 1, ConsentGiven: false},
	}, fs.submissions[0].Consents)
}

func TestSession_SubmitRetriesOnceOnOutdatedTemplate(t *testing.T) {
	session, fs, _ := newTestSession(t)
	ctx := context.Background()
	_, err := session.Load(ctx)
	require.NoError(t, err)
	_, err = session.Unlock(ctx, testCode)
	require.NoError(t, err)
	fs.bumpOnSubmit = 1

	result, err := session.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	require.Len(t, fs.submissions, 2)
	assert.Equal(t, 2, fs.submissions[0].Consents[0].Version)
	assert.Equal(t, 3, fs.submissions[1].Consents[0].Version)
}

func TestSession_SecondOutdatedIsSurfaced(t *testing.T) {
	session, fs, _ := newTestSession(t)
	ctx := context.Background()
	_, err := session.Load(ctx)
	require.NoError(t, err)
	_, err = session.Unlock(ctx, testCode)
	require.NoError(t, err)
	fs.bumpOnSubmit = 5

	_, err = session.Submit(ctx)
	assert.True(t, IsTemplateOutdated(err))
	assert.Len(t, fs.submissions, 2)
}

func TestSession_Clear(t *testing.T) {
	session, _, store := newTestSession(t)
	ctx := context.Background()
	_, err := session.Load(ctx)
	require.NoError(t, err)

	require.NoError(t, session.Clear(ctx))
	snap, err := store.Load(ctx, testFormID, testLeadID)
	require.NoError(t, err)
	assert.Nil(t, snap)
}
