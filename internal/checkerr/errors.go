/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package checkerr holds the tagged domain-error hierarchy and its
// translation to JSON:API error bodies. Every error that should be visible
// to a caller implements CheckError; anything else is collapsed to an
// InternalError with no leaked detail.
package checkerr

import (
	"errors"
	"net/http"
	"reflect"

	"github.com/resource-health/check-manager/internal/apitypes"
)

// CheckError is implemented by every domain error in this package.
type CheckError interface {
	error
	HTTPStatus() int
	APIErrors() []apitypes.Error
}

func detailPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// codeOf derives the JSON:API "code" field from the concrete error type's
// name, mirroring the original implementation's class-name dispatch without
// its parameter-shadowing bug (see DESIGN.md).
func codeOf(err error) string {
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

func single(err CheckError, status, title, detail string, source *apitypes.ErrorSource, meta map[string]any) apitypes.Error {
	return apitypes.Error{
		Status: status,
		Code:   codeOf(err),
		Title:  title,
		Detail: detailPtr(detail),
		Source: source,
		Meta:   meta,
	}
}

// InternalError never reveals its cause to the caller.
type InternalError struct {
	Cause error
}

func (e *InternalError) Error() string { return "internal server error" }
func (e *InternalError) HTTPStatus() int { return http.StatusInternalServerError }
func (e *InternalError) APIErrors() []apitypes.Error {
	return []apitypes.Error{single(e, "500", "Internal server error", "", nil, nil)}
}
func (e *InternalError) Unwrap() error { return e.Cause }

// Forbidden signals a policy-denied operation.
type Forbidden struct {
	Reason string
}

func (e *Forbidden) Error() string   { return "forbidden" }
func (e *Forbidden) HTTPStatus() int { return http.StatusForbidden }
func (e *Forbidden) APIErrors() []apitypes.Error {
	return []apitypes.Error{single(e, "403", "Forbidden", e.Reason, nil, nil)}
}

// Unauthorized signals missing or invalid authentication.
type Unauthorized struct {
	Reason string
}

func (e *Unauthorized) Error() string   { return "unauthorized" }
func (e *Unauthorized) HTTPStatus() int { return http.StatusUnauthorized }
func (e *Unauthorized) APIErrors() []apitypes.Error {
	return []apitypes.Error{single(e, "401", "Unauthorized", e.Reason, nil, nil)}
}

// UserInputError is a generic 422 for invalid input that doesn't warrant a
// more specific type.
type UserInputError struct {
	Reason string
	Source *apitypes.ErrorSource
}

func (e *UserInputError) Error() string   { return "invalid input: " + e.Reason }
func (e *UserInputError) HTTPStatus() int { return http.StatusUnprocessableEntity }
func (e *UserInputError) APIErrors() []apitypes.Error {
	return []apitypes.Error{single(e, "422", "Unprocessable input", e.Reason, e.Source, nil)}
}

// JsonValidationError reports a JSON-Schema violation. Pointer is the
// JSON-pointer to the offending field; SchemaErrors carries the full
// validator output for the client's benefit.
type JsonValidationError struct {
	Pointer      string
	SchemaErrors []string
}

func (e *JsonValidationError) Error() string { return "template_args failed schema validation" }
func (e *JsonValidationError) HTTPStatus() int { return http.StatusUnprocessableEntity }
func (e *JsonValidationError) APIErrors() []apitypes.Error {
	meta := map[string]any{}
	if len(e.SchemaErrors) > 0 {
		meta["schema_errors"] = e.SchemaErrors
	}
	return []apitypes.Error{single(e, "422", "Schema validation failed", "", apitypes.SourcePointer(e.Pointer), meta)}
}

// CronExpressionValidationError reports a schedule that does not match the
// five-field grammar.
type CronExpressionValidationError struct {
	Expression string
}

func (e *CronExpressionValidationError) Error() string {
	return "invalid cron expression: " + e.Expression
}
func (e *CronExpressionValidationError) HTTPStatus() int { return http.StatusUnprocessableEntity }
func (e *CronExpressionValidationError) APIErrors() []apitypes.Error {
	return []apitypes.Error{single(e, "422", "Invalid cron expression", e.Expression, apitypes.SourcePointer("/data/attributes/schedule"), nil)}
}

// CheckTemplateIdError reports an unknown check_template_id.
type CheckTemplateIdError struct {
	TemplateID string
}

func (e *CheckTemplateIdError) Error() string { return "unknown check template: " + e.TemplateID }
func (e *CheckTemplateIdError) HTTPStatus() int { return http.StatusNotFound }
func (e *CheckTemplateIdError) APIErrors() []apitypes.Error {
	return []apitypes.Error{single(e, "404", "Unknown check template", e.TemplateID, nil, nil)}
}

// CheckIdError reports an unknown check id.
type CheckIdError struct {
	CheckID string
}

func (e *CheckIdError) Error() string   { return "unknown check: " + e.CheckID }
func (e *CheckIdError) HTTPStatus() int { return http.StatusNotFound }
func (e *CheckIdError) APIErrors() []apitypes.Error {
	return []apitypes.Error{single(e, "404", "Unknown check", e.CheckID, nil, nil)}
}

// CheckIdNonUniqueError reports a check id present on more than one
// aggregated backend.
type CheckIdNonUniqueError struct {
	CheckID string
}

func (e *CheckIdNonUniqueError) Error() string { return "ambiguous check id: " + e.CheckID }
func (e *CheckIdNonUniqueError) HTTPStatus() int { return http.StatusBadRequest }
func (e *CheckIdNonUniqueError) APIErrors() []apitypes.Error {
	return []apitypes.Error{single(e, "400", "Ambiguous check id", e.CheckID, nil, nil)}
}

// CheckConnectionError reports a transport failure talking to the
// orchestrator or a remote delegate.
type CheckConnectionError struct {
	Cause error
}

func (e *CheckConnectionError) Error() string { return "connection error: " + e.Cause.Error() }
func (e *CheckConnectionError) HTTPStatus() int { return http.StatusInternalServerError }
func (e *CheckConnectionError) APIErrors() []apitypes.Error {
	return []apitypes.Error{single(e, "500", "Connection error", "", nil, nil)}
}
func (e *CheckConnectionError) Unwrap() error { return e.Cause }

// NewCheckClientSpecifiedId reports that the client supplied an id on
// create, which is forbidden.
type NewCheckClientSpecifiedId struct{}

func (e *NewCheckClientSpecifiedId) Error() string   { return "clients must not specify an id on create" }
func (e *NewCheckClientSpecifiedId) HTTPStatus() int { return http.StatusForbidden }
func (e *NewCheckClientSpecifiedId) APIErrors() []apitypes.Error {
	return []apitypes.Error{single(e, "403", "Client-specified id not allowed", "", apitypes.SourcePointer("/data/id"), nil)}
}

// Translate converts any error into an HTTP status and a JSON:API error
// body. Domain errors pass through unchanged; everything else collapses to
// a 500 with no detail leakage.
func Translate(err error) (int, apitypes.APIErrorResponse) {
	var ce CheckError
	if errors.As(err, &ce) {
		return ce.HTTPStatus(), apitypes.APIErrorResponse{Errors: ce.APIErrors()}
	}
	internal := &InternalError{Cause: err}
	return internal.HTTPStatus(), apitypes.APIErrorResponse{Errors: internal.APIErrors()}
}

// Is404Like reports whether err is one of the deny-set exceptions a
// check-if-allow hook stage is permitted to swallow: Forbidden,
// CheckIdError, CheckTemplateIdError (per spec §4.3/§4.5.1).
func Is404Like(err error) bool {
	var forbidden *Forbidden
	var checkID *CheckIdError
	var templateID *CheckTemplateIdError
	return errors.As(err, &forbidden) || errors.As(err, &checkID) || errors.As(err, &templateID)
}
