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

// Package checktypes holds the core data model shared by the hook pipeline,
// the template registry, and every check-backend implementation: check
// templates, check attributes, and the cron-expression value type. Keeping
// these in their own package lets internal/hooks and internal/checkbackend
// both depend on them without depending on each other.
package checktypes

import "github.com/resource-health/check-manager/internal/apitypes"

// CheckTemplateId identifies a loaded CronjobTemplate.
type CheckTemplateId string

// CheckId identifies a materialised check (the orchestrator CronJob name).
type CheckId string

// CronExpression is a five-field schedule string, validated by
// internal/cronvalidate before use.
type CronExpression string

// CheckTemplateMetadata is informational, non-validated template metadata.
type CheckTemplateMetadata struct {
	Label       string `json:"label"`
	Description string `json:"description"`
}

// CheckTemplateAttributes describes a template's informational metadata and
// its JSON-Schema argument contract.
type CheckTemplateAttributes struct {
	Metadata  CheckTemplateMetadata `json:"metadata"`
	Arguments apitypes.Json         `json:"arguments"`
}

// CheckTemplate is a template resource: identity plus attributes.
type CheckTemplate struct {
	ID         CheckTemplateId         `json:"id"`
	Attributes CheckTemplateAttributes `json:"attributes"`
}

// InCheckMetadata is the client-supplied descriptive metadata for a new
// check.
type InCheckMetadata struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	TemplateID   CheckTemplateId `json:"template_id"`
	TemplateArgs apitypes.Json   `json:"template_args"`
}

// InCheckAttributes is the full client-supplied payload for check creation.
type InCheckAttributes struct {
	Metadata InCheckMetadata `json:"metadata"`
	Schedule CronExpression  `json:"schedule"`
}

// OutCheckMetadata mirrors InCheckMetadata as reconstructed from orchestrator
// state (annotations).
type OutCheckMetadata struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	TemplateID   CheckTemplateId `json:"template_id"`
	TemplateArgs apitypes.Json   `json:"template_args"`
}

// OutcomeFilter is the attribute-equality filter telemetry consumers use to
// associate trace/span/resource data with a check.
type OutcomeFilter struct {
	ResourceAttributes map[string]any `json:"resource_attributes,omitempty"`
	ScopeAttributes    map[string]any `json:"scope_attributes,omitempty"`
	SpanAttributes     map[string]any `json:"span_attributes,omitempty"`
}

// OutCheckAttributes is the full server-side view of a materialised check.
type OutCheckAttributes struct {
	Metadata      OutCheckMetadata `json:"metadata"`
	Schedule      CronExpression   `json:"schedule"`
	OutcomeFilter OutcomeFilter    `json:"outcome_filter"`
	NextRun       *string          `json:"next_run,omitempty"`
}

// OutCheck is a check resource: identity plus attributes.
type OutCheck struct {
	ID         CheckId             `json:"id"`
	Attributes OutCheckAttributes  `json:"attributes"`
}
