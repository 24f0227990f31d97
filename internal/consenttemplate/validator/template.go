package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leadflow/consent-service/internal/consenttemplate/model"
	"github.com/leadflow/consent-service/internal/system/utils"
)

const (
	maxTitleLength    = 255
	maxFormTypeLength = 64
	maxTagLength      = 64
	maxTags           = 20
)

// ValidateCreateRequest validates a template creation request
func ValidateCreateRequest(req model.CreateRequest) error {
	if !req.ConsentType.IsValid() {
		return fmt.Errorf("invalid consent type: %s", req.ConsentType)
	}
	if err := utils.ValidateRequired("formType", req.FormType); err != nil {
		return err
	}
	if err := utils.ValidateMaxLength("formType", req.FormType, maxFormTypeLength); err != nil {
		return err
	}
	if err := ValidateTitle(req.Title); err != nil {
		return err
	}
	if err := utils.ValidateRequired("content", req.Content); err != nil {
		return err
	}
	if req.Version <= 0 {
		return fmt.Errorf("version must be a positive integer")
	}
	return ValidateTags(req.Tags)
}

// ValidateUpdateRequest validates a partial template update
func ValidateUpdateRequest(req model.UpdateRequest) error {
	if req.Title == nil && req.Content == nil && req.HelpText == nil && req.Version == nil &&
		req.IsActive == nil && req.IsRequired == nil && req.Tags == nil {
		return fmt.Errorf("at least one field must be provided")
	}
	if req.Title != nil {
		if err := ValidateTitle(*req.Title); err != nil {
			return err
		}
	}
	if req.Content != nil {
		if err := utils.ValidateRequired("content", *req.Content); err != nil {
			return err
		}
	}
	if req.Version != nil && *req.Version <= 0 {
		return fmt.Errorf("version must be a positive integer")
	}
	if req.Tags != nil {
		return ValidateTags(*req.Tags)
	}
	return nil
}

// ValidateSupersedeRequest validates the payload of a new template version
func ValidateSupersedeRequest(req model.SupersedeRequest) error {
	if err := utils.ValidateRequired("content", req.Content); err != nil {
		return err
	}
	if req.Title != nil {
		if err := ValidateTitle(*req.Title); err != nil {
			return err
		}
	}
	if req.Tags != nil {
		return ValidateTags(*req.Tags)
	}
	return nil
}

// ValidateTitle validates a template title
func ValidateTitle(title string) error {
	if err := utils.ValidateRequired("title", title); err != nil {
		return err
	}
	return utils.ValidateMaxLength("title", title, maxTitleLength)
}

// ValidateTags validates template tags
func ValidateTags(tags []string) error {
	if len(tags) > maxTags {
		return fmt.Errorf("too many tags (max %d)", maxTags)
	}
	for _, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("tags must not be blank")
		}
		if len(tag) > maxTagLength {
			return fmt.Errorf("tag too long (max %d chars)", maxTagLength)
		}
	}
	return nil
}

// NormalizeTags trims, de-duplicates and sorts tags so they behave as a set
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if _, ok := seen[tag]; ok || tag == "" {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
