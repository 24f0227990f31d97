package validator

import (
	"fmt"

	"github.com/leadflow/consent-service/internal/applicationform/model"
	"github.com/leadflow/consent-service/internal/system/utils"
	"github.com/leadflow/consent-service/pkg/accesscode"
)

const (
	maxReasonLength = 500
	maxHashLength   = 128
)

// ValidateVerifyAccessRequest checks identifiers only. A malformed hash is a failed attempt, not a bad request.
func ValidateVerifyAccessRequest(req model.VerifyAccessRequest) error {
	if err := utils.ValidateID("applicationFormId", req.ApplicationFormID); err != nil {
		return err
	}
	if err := utils.ValidateID("leadId", req.LeadID); err != nil {
		return err
	}
	if err := utils.ValidateRequired("accessCodeHash", req.AccessCodeHash); err != nil {
		return err
	}
	return utils.ValidateMaxLength("accessCodeHash", req.AccessCodeHash, maxHashLength)
}

// ValidateUnlockRequest validates a staff unlock
func ValidateUnlockRequest(req model.UnlockRequest) error {
	if err := utils.ValidateRequired("reason", req.Reason); err != nil {
		return err
	}
	return utils.ValidateMaxLength("reason", req.Reason, maxReasonLength)
}

// ValidateIssueAccessCodeRequest requires a hash in the shape accesscode.Hash produces
func ValidateIssueAccessCodeRequest(req model.IssueAccessCodeRequest) error {
	if !accesscode.IsHash(req.AccessCodeHash) {
		return fmt.Errorf("accessCodeHash must be a hex encoded sha256 digest")
	}
	return nil
}
