package applicationform

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/leadflow/consent-service/internal/applicationform/mocks"
	"github.com/leadflow/consent-service/internal/applicationform/model"
	auditmocks "github.com/leadflow/consent-service/internal/audit/mocks"
	auditmodel "github.com/leadflow/consent-service/internal/audit/model"
	"github.com/leadflow/consent-service/internal/session"
	"github.com/leadflow/consent-service/internal/system/error/serviceerror"
	"github.com/leadflow/consent-service/internal/system/security"
	"github.com/leadflow/consent-service/internal/system/stores/storetest"
	"github.com/leadflow/consent-service/internal/system/utils"
	"github.com/leadflow/consent-service/pkg/accesscode"
)

const (
	fixedNow = int64(1_700_000_000_000)
	formID   = "form-1"
	leadID   = "lead-1"
	linkTTL  = 72 * time.Hour
)

var (
	supervisor = &security.Actor{UserID: "sup-1", Role: security.RoleSupervisor}
	agent      = &security.Actor{UserID: "agent-1", Role: security.RoleAgent}
	codeHash   = accesscode.Hash(formID, leadID, "1234")
)

type fakeMailer struct {
	sent []string
	err  error
}

func (m *fakeMailer) Send(to []string, subject, _ string) error {
	m.sent = append(m.sent, subject)
	return m.err
}

type fixture struct {
	service  ApplicationFormService
	store    *mocks.MockApplicationFormStore
	audit    *auditmocks.MockAuditStore
	sql      sqlmock.Sqlmock
	presence session.PresenceTracker
	mailer   *fakeMailer
}

func newFixture(t *testing.T) *fixture {
	registry, sqlMock := storetest.NewRegistry(t)
	store := &mocks.MockApplicationFormStore{}
	auditStore := &auditmocks.MockAuditStore{}
	registry.ApplicationForm = store
	registry.Audit = auditStore
	t.Cleanup(func() {
		store.AssertExpectations(t)
		auditStore.AssertExpectations(t)
	})

	presence := session.NewMemoryTracker(time.Minute, func() time.Time { return time.UnixMilli(fixedNow) })
	m := &fakeMailer{}
	service, err := newApplicationFormService(registry, Options{
		Presence:    presence,
		Mailer:      m,
		Supervisors: []string{"supervisors@example.com"},
		LinkTTL:     linkTTL,
		BcryptCost:  bcrypt.MinCost,
		Now:         utils.FixedClock(fixedNow),
	})
	require.NoError(t, err)

	return &fixture{service: service, store: store, audit: auditStore, sql: sqlMock, presence: presence, mailer: m}
}

func boundForm(t *testing.T, status model.FormStatus, expiresAt *int64) *model.ApplicationForm {
	binding, err := bcrypt.GenerateFromPassword([]byte(codeHash), bcrypt.MinCost)
	require.NoError(t, err)
	b := string(binding)
	return &model.ApplicationForm{ID: formID, LeadID: leadID, Status: status, LinkExpiresAt: expiresAt, AccessCodeHash: &b}
}

func int64Ptr(v int64) *int64 { return &v }

func (f *fixture) expectAttempt(result model.AccessResult) {
	f.sql.ExpectBegin()
	f.store.On("AppendUnlockAttempt", mock.Anything, mock.MatchedBy(func(a *model.UnlockAttempt) bool {
		return a.ApplicationFormID == formID && a.Result == result &&
			a.Success == (result == model.AccessResultOK) && a.Type == model.AttemptTypeAccessCode &&
			a.Timestamp == fixedNow
	})).Return(nil).Once()
	f.sql.ExpectCommit()
}

func verify(f *fixture, lead, hash string) (*model.VerifyAccessResult, *serviceerror.ServiceError) {
	return f.service.VerifyAccess(context.Background(), model.VerifyAccessRequest{
		ApplicationFormID: formID, LeadID: lead, AccessCodeHash: hash,
	})
}

func TestVerifyAccess_OK(t *testing.T) {
	f := newFixture(t)
	f.store.On("GetByID", mock.Anything, formID).Return(boundForm(t, model.FormStatusInProgress, int64Ptr(fixedNow+1)), nil)
	f.expectAttempt(model.AccessResultOK)

	result, serr := verify(f, leadID, codeHash)

	require.Nil(t, serr)
	assert.Equal(t, model.AccessResultOK, result.Result)
	assert.Equal(t, fixedNow+1, *result.LinkExpiresAt)

	active, err := f.presence.IsActive(context.Background(), formID)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestVerifyAccess_WrongCodeIsRecorded(t *testing.T) {
	f := newFixture(t)
	f.store.On("GetByID", mock.Anything, formID).Return(boundForm(t, model.FormStatusInProgress, nil), nil)
	f.expectAttempt(model.AccessResultInvalidCode)

	result, serr := verify(f, leadID, accesscode.Hash(formID, leadID, "9999"))

	require.Nil(t, serr)
	assert.Equal(t, model.AccessResultInvalidCode, result.Result)
	assert.Nil(t, result.LinkExpiresAt)

	active, _ := f.presence.IsActive(context.Background(), formID)
	assert.False(t, active)
}

func TestVerifyAccess_ExpiryBoundaryIsInclusive(t *testing.T) {
	f := newFixture(t)
	f.store.On("GetByID", mock.Anything, formID).Return(boundForm(t, model.FormStatusInProgress, int64Ptr(fixedNow)), nil)
	f.expectAttempt(model.AccessResultLinkExpired)

	result, serr := verify(f, leadID, codeHash)

	require.Nil(t, serr)
	assert.Equal(t, model.AccessResultLinkExpired, result.Result)
}

func TestVerifyAccess_LockedFormIsExpired(t *testing.T) {
	f := newFixture(t)
	f.store.On("GetByID", mock.Anything, formID).Return(boundForm(t, model.FormStatusLocked, nil), nil)
	f.expectAttempt(model.AccessResultLinkExpired)

	result, _ := verify(f, leadID, codeHash)
	assert.Equal(t, model.AccessResultLinkExpired, result.Result)
}

func TestVerifyAccess_ExpiredLinkWithWrongCodeRevealsNothing(t *testing.T) {
	f := newFixture(t)
	f.store.On("GetByID", mock.Anything, formID).Return(boundForm(t, model.FormStatusLocked, int64Ptr(1)), nil)
	f.expectAttempt(model.AccessResultInvalidCode)

	result, _ := verify(f, leadID, "not-a-hash")
	assert.Equal(t, model.AccessResultInvalidCode, result.Result)
}

func TestVerifyAccess_LeadMismatchIsNotFound(t *testing.T) {
	f := newFixture(t)
	f.store.On("GetByID", mock.Anything, formID).Return(boundForm(t, model.FormStatusInProgress, nil), nil)
	f.expectAttempt(model.AccessResultNotFound)

	result, serr := verify(f, "lead-other", codeHash)

	require.Nil(t, serr)
	assert.Equal(t, model.AccessResultNotFound, result.Result)
}

func TestVerifyAccess_MissingFormRecordsAttemptLikeWrongCode(t *testing.T) {
	missing := newFixture(t)
	missing.store.On("GetByID", mock.Anything, formID).Return(nil, nil)
	missing.expectAttempt(model.AccessResultNotFound)

	result, serr := verify(missing, leadID, codeHash)

	require.Nil(t, serr)
	assert.Equal(t, model.AccessResultNotFound, result.Result)
	require.NoError(t, missing.sql.ExpectationsWereMet())

	wrong := newFixture(t)
	wrong.store.On("GetByID", mock.Anything, formID).Return(boundForm(t, model.FormStatusInProgress, nil), nil)
	wrong.expectAttempt(model.AccessResultInvalidCode)

	result, serr = verify(wrong, leadID, "not-the-code")

	require.Nil(t, serr)
	assert.Equal(t, model.AccessResultInvalidCode, result.Result)
	require.NoError(t, wrong.sql.ExpectationsWereMet())
}

func TestVerifyAccess_UnboundFormIsInvalidCode(t *testing.T) {
	f := newFixture(t)
	f.store.On("GetByID", mock.Anything, formID).
		Return(&model.ApplicationForm{ID: formID, LeadID: leadID, Status: model.FormStatusInProgress}, nil)
	f.expectAttempt(model.AccessResultInvalidCode)

	result, _ := verify(f, leadID, codeHash)
	assert.Equal(t, model.AccessResultInvalidCode, result.Result)
}

func TestVerifyAccess_HistoryWriteFailureDeniesAccess(t *testing.T) {
	f := newFixture(t)
	f.store.On("GetByID", mock.Anything, formID).Return(boundForm(t, model.FormStatusInProgress, nil), nil)
	f.sql.ExpectBegin()
	f.store.On("AppendUnlockAttempt", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	f.sql.ExpectRollback()

	result, serr := verify(f, leadID, codeHash)

	assert.Nil(t, result)
	assert.True(t, serviceerror.Is(serr, serviceerror.DatabaseError))
}

func TestVerifyAccess_ValidationError(t *testing.T) {
	f := newFixture(t)

	_, serr := verify(f, "", codeHash)
	assert.True(t, serviceerror.Is(serr, serviceerror.ValidationError))
}

func TestHeartbeat(t *testing.T) {
	f := newFixture(t)
	f.store.On("GetByID", mock.Anything, formID).Return(boundForm(t, model.FormStatusInProgress, nil), nil)

	serr := f.service.Heartbeat(context.Background(), model.VerifyAccessRequest{
		ApplicationFormID: formID, LeadID: leadID, AccessCodeHash: codeHash,
	})
	require.Nil(t, serr)

	active, _ := f.presence.IsActive(context.Background(), formID)
	assert.True(t, active)
}

func TestHeartbeat_WrongCode(t *testing.T) {
	f := newFixture(t)
	f.store.On("GetByID", mock.Anything, formID).Return(boundForm(t, model.FormStatusInProgress, nil), nil)

	serr := f.service.Heartbeat(context.Background(), model.VerifyAccessRequest{
		ApplicationFormID: formID, LeadID: leadID, AccessCodeHash: "bad",
	})
	assert.True(t, serviceerror.Is(serr, serviceerror.InvalidAccessError))
}

func TestUnlockApplicationForm(t *testing.T) {
	f := newFixture(t)
	f.store.On("GetByID", mock.Anything, formID).Return(boundForm(t, model.FormStatusLocked, int64Ptr(1)), nil)

	expiresAt := fixedNow + linkTTL.Milliseconds()
	f.sql.ExpectBegin()
	f.store.On("UpdateStatus", mock.Anything, formID, model.FormStatusLocked, model.FormStatusInProgress,
		&expiresAt, fixedNow).Return(nil)
	f.store.On("AppendUnlockAttempt", mock.Anything, mock.MatchedBy(func(a *model.UnlockAttempt) bool {
		return a.Type == model.AttemptTypeStaffUnlock && a.Success && *a.ActorUserID == "sup-1"
	})).Return(nil)
	f.audit.On("CreateNote", mock.Anything, mock.MatchedBy(func(n *auditmodel.LeadNote) bool {
		return n.LeadID == leadID && n.NoteType == auditmodel.NoteTypeFormUnlocked
	})).Return(nil)
	f.audit.On("CreateAuditLog", mock.Anything, mock.MatchedBy(func(l *auditmodel.AuditLog) bool {
		return l.Action == auditmodel.ActionFormUnlocked && l.Metadata.Reason == "called support" &&
			l.Metadata.PreviousStatus == "LOCKED"
	})).Return(nil)
	f.sql.ExpectCommit()

	form, serr := f.service.UnlockApplicationForm(context.Background(), formID,
		model.UnlockRequest{Reason: "called support"}, supervisor)

	require.Nil(t, serr)
	assert.Equal(t, model.FormStatusInProgress, form.Status)
	assert.Equal(t, expiresAt, *form.LinkExpiresAt)
}

func TestUnlockApplicationForm_RollsBackWhenAuditFails(t *testing.T) {
	f := newFixture(t)
	f.store.On("GetByID", mock.Anything, formID).Return(boundForm(t, model.FormStatusLocked, nil), nil)
	f.sql.ExpectBegin()
	f.store.On("UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.store.On("AppendUnlockAttempt", mock.Anything, mock.Anything).Return(nil)
	f.audit.On("CreateNote", mock.Anything, mock.Anything).Return(errors.New("constraint"))
	f.sql.ExpectRollback()

	_, serr := f.service.UnlockApplicationForm(context.Background(), formID, model.UnlockRequest{Reason: "r"}, supervisor)

	assert.True(t, serviceerror.Is(serr, serviceerror.DatabaseError))
	f.audit.AssertNotCalled(t, "CreateAuditLog", mock.Anything, mock.Anything)
}

func TestUnlockApplicationForm_ConcurrentChange(t *testing.T) {
	f := newFixture(t)
	f.store.On("GetByID", mock.Anything, formID).Return(boundForm(t, model.FormStatusLocked, nil), nil)
	f.sql.ExpectBegin()
	f.store.On("UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(ErrStatusChanged)
	f.sql.ExpectRollback()

	_, serr := f.service.UnlockApplicationForm(context.Background(), formID, model.UnlockRequest{Reason: "r"}, supervisor)
	assert.True(t, serviceerror.Is(serr, serviceerror.ConflictError))
}

func TestUnlockApplicationForm_Rejections(t *testing.T) {
	t.Run("agent", func(t *testing.T) {
		f := newFixture(t)
		_, serr := f.service.UnlockApplicationForm(context.Background(), formID, model.UnlockRequest{Reason: "r"}, agent)
		assert.True(t, serviceerror.Is(serr, serviceerror.ForbiddenError))
	})
	t.Run("anonymous", func(t *testing.T) {
		f := newFixture(t)
		_, serr := f.service.UnlockApplicationForm(context.Background(), formID, model.UnlockRequest{Reason: "r"}, nil)
		assert.True(t, serviceerror.Is(serr, serviceerror.ForbiddenError))
	})
	t.Run("submitted", func(t *testing.T) {
		f := newFixture(t)
		f.store.On("GetByID", mock.Anything, formID).Return(boundForm(t, model.FormStatusSubmitted, nil), nil)
		_, serr := f.service.UnlockApplicationForm(context.Background(), formID, model.UnlockRequest{Reason: "r"}, supervisor)
		assert.True(t, serviceerror.Is(serr, serviceerror.ConflictError))
	})
	t.Run("missing reason", func(t *testing.T) {
		f := newFixture(t)
		_, serr := f.service.UnlockApplicationForm(context.Background(), formID, model.UnlockRequest{Reason: "  "}, supervisor)
		assert.True(t, serviceerror.Is(serr, serviceerror.ValidationError))
	})
	t.Run("not found", func(t *testing.T) {
		f := newFixture(t)
		f.store.On("GetByID", mock.Anything, formID).Return(nil, nil)
		_, serr := f.service.UnlockApplicationForm(context.Background(), formID, model.UnlockRequest{Reason: "r"}, supervisor)
		assert.True(t, serviceerror.Is(serr, serviceerror.ResourceNotFoundError))
	})
}

func TestIssueAccessCode_BindingVerifies(t *testing.T) {
	f := newFixture(t)
	f.store.On("GetByID", mock.Anything, formID).
		Return(&model.ApplicationForm{ID: formID, LeadID: leadID, Status: model.FormStatusInProgress}, nil)

	var binding string
	f.sql.ExpectBegin()
	f.store.On("SetAccessCode", mock.Anything, formID, mock.AnythingOfType("string"),
		fixedNow+linkTTL.Milliseconds(), fixedNow).
		Run(func(args mock.Arguments) { binding = args.String(2) }).
		Return(nil)
	f.audit.On("CreateAuditLog", mock.Anything, mock.MatchedBy(func(l *auditmodel.AuditLog) bool {
		return l.Action == auditmodel.ActionAccessCodeIssued
	})).Return(nil)
	f.sql.ExpectCommit()

	_, serr := f.service.IssueAccessCode(context.Background(), formID,
		model.IssueAccessCodeRequest{AccessCodeHash: codeHash}, supervisor)

	require.Nil(t, serr)
	assert.NotEqual(t, codeHash, binding)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(binding), []byte(codeHash)))
}

func TestIssueAccessCode_RejectsRawCode(t *testing.T) {
	f := newFixture(t)

	_, serr := f.service.IssueAccessCode(context.Background(), formID,
		model.IssueAccessCodeRequest{AccessCodeHash: "1234"}, supervisor)
	assert.True(t, serviceerror.Is(serr, serviceerror.ValidationError))
}

func TestGetUnlockHistory(t *testing.T) {
	f := newFixture(t)
	f.store.On("GetByID", mock.Anything, formID).Return(boundForm(t, model.FormStatusInProgress, nil), nil)
	f.store.On("ListUnlockHistory", mock.Anything, formID).Return([]model.UnlockAttempt{
		{ID: "a1", Result: model.AccessResultInvalidCode, Timestamp: 1},
		{ID: "a2", Result: model.AccessResultOK, Success: true, Timestamp: 2},
	}, nil)

	attempts, serr := f.service.GetUnlockHistory(context.Background(), formID)

	require.Nil(t, serr)
	require.Len(t, attempts, 2)
	assert.Equal(t, "a1", attempts[0].ID)
}

func TestAcquireStaffEdit_BlockedWhileClientActive(t *testing.T) {
	f := newFixture(t)
	f.store.On("GetByID", mock.Anything, formID).Return(boundForm(t, model.FormStatusInProgress, nil), nil)
	require.NoError(t, f.presence.MarkActive(context.Background(), formID))

	serr := f.service.AcquireStaffEdit(context.Background(), formID, agent)

	assert.True(t, serviceerror.Is(serr, serviceerror.ClientActiveError))
	require.Len(t, f.mailer.sent, 1)
	assert.Contains(t, f.mailer.sent[0], formID)
}

func TestAcquireStaffEdit_MailFailureStillBlocks(t *testing.T) {
	f := newFixture(t)
	f.mailer.err = errors.New("smtp down")
	f.store.On("GetByID", mock.Anything, formID).Return(boundForm(t, model.FormStatusInProgress, nil), nil)
	require.NoError(t, f.presence.MarkActive(context.Background(), formID))

	serr := f.service.AcquireStaffEdit(context.Background(), formID, agent)
	assert.True(t, serviceerror.Is(serr, serviceerror.ClientActiveError))
}

func TestAcquireStaffEdit_AllowedWhenIdle(t *testing.T) {
	f := newFixture(t)
	f.store.On("GetByID", mock.Anything, formID).Return(boundForm(t, model.FormStatusInProgress, nil), nil)

	assert.Nil(t, f.service.AcquireStaffEdit(context.Background(), formID, agent))
	assert.Empty(t, f.mailer.sent)
}
