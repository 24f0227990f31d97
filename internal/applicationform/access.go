package applicationform

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/leadflow/consent-service/internal/applicationform/model"
	"github.com/leadflow/consent-service/internal/system/utils"
)

// AccessVerifier compares client computed code hashes against form bindings
type AccessVerifier struct {
	now utils.Clock
	// compared against when the form or its code binding is missing so every check costs one bcrypt compare
	dummyHash []byte
}

// NewAccessVerifier prepares a verifier whose dummy binding uses the given bcrypt cost
func NewAccessVerifier(cost int, now utils.Clock) (*AccessVerifier, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if now == nil {
		now = utils.GetCurrentTimeMillis
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(utils.GenerateUUID()), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare access gate: %w", err)
	}
	return &AccessVerifier{now: now, dummyHash: dummy}, nil
}

// EvaluateAccess classifies a code check against form at the current time.
func (v *AccessVerifier) EvaluateAccess(form *model.ApplicationForm, leadID, codeHash string) model.AccessResult {
	return v.evaluate(form, leadID, codeHash, v.now())
}

// evaluate always performs exactly one bcrypt comparison. The code is checked before the form's lifecycle so
// a caller without the code learns nothing about the form.
func (v *AccessVerifier) evaluate(form *model.ApplicationForm, leadID, codeHash string, now int64) model.AccessResult {
	bound := form != nil && form.LeadID == leadID && form.AccessCodeHash != nil
	stored := v.dummyHash
	if bound {
		stored = []byte(*form.AccessCodeHash)
	}
	match := bcrypt.CompareHashAndPassword(stored, []byte(codeHash)) == nil

	switch {
	case form == nil || form.LeadID != leadID:
		return model.AccessResultNotFound
	case !bound || !match:
		return model.AccessResultInvalidCode
	case form.Status == model.FormStatusLocked || utils.IsExpired(form.LinkExpiresAt, now):
		return model.AccessResultLinkExpired
	default:
		return model.AccessResultOK
	}
}
