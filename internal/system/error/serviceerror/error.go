/*
 * Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package serviceerror

type ServiceErrorType string

const (
	ClientErrorType ServiceErrorType = "client_error"
	ServerErrorType ServiceErrorType = "server_error"
)

type ServiceError struct {
	Code             string           `json:"code"`
	Type             ServiceErrorType `json:"type"`
	Error            string           `json:"error"`
	ErrorDescription string           `json:"error_description,omitempty"`
}

var (
	InternalServerError = ServiceError{
		Type:             ServerErrorType,
		Code:             "SSE-5000",
		Error:            "internal_server_error",
		ErrorDescription: "An unexpected error occurred",
	}

	DatabaseError = ServiceError{
		Type:             ServerErrorType,
		Code:             "SSE-5001",
		Error:            "database_error",
		ErrorDescription: "A database error occurred",
	}

	InvalidRequestError = ServiceError{
		Type:             ClientErrorType,
		Code:             "CSE-4000",
		Error:            "invalid_request",
		ErrorDescription: "The request is invalid",
	}

	ValidationError = ServiceError{
		Type:             ClientErrorType,
		Code:             "CSE-4001",
		Error:            "validation_error",
		ErrorDescription: "Validation failed",
	}

	UnauthorizedError = ServiceError{
		Type:             ClientErrorType,
		Code:             "CSE-4010",
		Error:            "unauthorized",
		ErrorDescription: "Authentication is required",
	}

	InvalidAccessError = ServiceError{
		Type:             ClientErrorType,
		Code:             "CSE-4011",
		Error:            "invalid_access",
		ErrorDescription: "The access code is invalid",
	}

	ForbiddenError = ServiceError{
		Type:             ClientErrorType,
		Code:             "CSE-4030",
		Error:            "forbidden",
		ErrorDescription: "The actor is not allowed to perform this operation",
	}

	ResourceNotFoundError = ServiceError{
		Type:             ClientErrorType,
		Code:             "CSE-4004",
		Error:            "resource_not_found",
		ErrorDescription: "Resource not found",
	}

	ConflictError = ServiceError{
		Type:             ClientErrorType,
		Code:             "CSE-4009",
		Error:            "conflict",
		ErrorDescription: "Request conflicts with current state",
	}

	// LinkExpiredError covers a missing form, a lead mismatch, an expired link and a locked form.
	LinkExpiredError = ServiceError{
		Type:             ClientErrorType,
		Code:             "CSE-4100",
		Error:            "link_expired",
		ErrorDescription: "The application form link is no longer valid",
	}

	// TemplateOutdatedError is retriable after the client refetches templates.
	TemplateOutdatedError = ServiceError{
		Type:             ClientErrorType,
		Code:             "CSE-4101",
		Error:            "template_outdated",
		ErrorDescription: "A consent template has changed since it was fetched",
	}

	RequiredConsentMissingError = ServiceError{
		Type:             ClientErrorType,
		Code:             "CSE-4102",
		Error:            "required_consent_missing",
		ErrorDescription: "A required consent was not given",
	}

	ClientActiveError = ServiceError{
		Type:             ClientErrorType,
		Code:             "CSE-4103",
		Error:            "client_active",
		ErrorDescription: "The client is currently working on this application form",
	}
)

func CustomServiceError(baseError ServiceError, description string) *ServiceError {
	return &ServiceError{
		Type:             baseError.Type,
		Code:             baseError.Code,
		Error:            baseError.Error,
		ErrorDescription: description,
	}
}

// Is reports whether err was derived from baseError.
func Is(err *ServiceError, baseError ServiceError) bool {
	return err != nil && err.Code == baseError.Code
}
