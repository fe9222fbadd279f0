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

// Package checktemplate implements the CronjobTemplate plugin contract and
// the CronjobMaker decorator that tags every materialised CronJob with
// check metadata and telemetry wiring (spec §4.4).
package checktemplate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	batchv1 "k8s.io/api/batch/v1"

	"github.com/resource-health/check-manager/internal/apitypes"
	"github.com/resource-health/check-manager/internal/checktypes"
	"github.com/resource-health/check-manager/internal/cronvalidate"
	"github.com/resource-health/check-manager/internal/hooks"
	"github.com/resource-health/check-manager/internal/telemetry"
)

// CronjobTemplate is the plugin contract every check family implements.
type CronjobTemplate interface {
	GetCheckTemplate() checktypes.CheckTemplate
	MakeCronjob(ctx context.Context, templateArgs apitypes.Json, schedule checktypes.CronExpression, userinfo hooks.UserInfo) (*batchv1.CronJob, error)
}

// tagMetadata sets the annotations that make a CronJob reconstructible into
// an OutCheck, and assigns the CronJob's name (= CheckId).
func tagMetadata(cronjob *batchv1.CronJob, metadata checktypes.InCheckMetadata) (checktypes.CheckId, error) {
	if cronjob.Annotations == nil {
		cronjob.Annotations = map[string]string{}
	}
	argsJSON, err := json.Marshal(metadata.TemplateArgs)
	if err != nil {
		return "", fmt.Errorf("marshaling template_args: %w", err)
	}
	cronjob.Annotations["name"] = metadata.Name
	cronjob.Annotations["description"] = metadata.Description
	cronjob.Annotations["template_id"] = string(metadata.TemplateID)
	cronjob.Annotations["template_args"] = string(argsJSON)

	checkID := checktypes.CheckId(uuid.NewString())
	cronjob.Name = string(checkID)
	return checkID, nil
}

func tagCronjob(cronjob *batchv1.CronJob, metadata checktypes.InCheckMetadata, userinfo hooks.UserInfo, otlp telemetry.OTLPExporterConfig) (checktypes.CheckId, error) {
	checkID, err := tagMetadata(cronjob, metadata)
	if err != nil {
		return "", err
	}

	podSpec := &cronjob.Spec.JobTemplate.Spec.Template.Spec
	if len(podSpec.Containers) == 0 {
		return "", fmt.Errorf("template produced a CronJob with no containers")
	}
	telemetry.InjectResourceAttributes(podSpec.Containers, string(checkID), userinfo.Username, metadata.Name)
	telemetry.InjectOTLPExporter(podSpec, otlp)

	return checkID, nil
}

// makeCheck inverts tagCronjob's annotations back into an OutCheck, used
// when the originating template is known.
func makeCheck(cronjob *batchv1.CronJob) (checktypes.OutCheck, error) {
	var templateArgs apitypes.Json
	if raw := cronjob.Annotations["template_args"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &templateArgs); err != nil {
			return checktypes.OutCheck{}, fmt.Errorf("unmarshaling template_args annotation: %w", err)
		}
	}
	out := checktypes.OutCheck{
		ID: checktypes.CheckId(cronjob.Name),
		Attributes: checktypes.OutCheckAttributes{
			Metadata: checktypes.OutCheckMetadata{
				Name:         cronjob.Annotations["name"],
				Description:  cronjob.Annotations["description"],
				TemplateID:   checktypes.CheckTemplateId(cronjob.Annotations["template_id"]),
				TemplateArgs: templateArgs,
			},
			Schedule: checktypes.CronExpression(cronjob.Spec.Schedule),
			OutcomeFilter: checktypes.OutcomeFilter{
				ResourceAttributes: map[string]any{"k8s.cronjob.name": cronjob.Name},
			},
		},
	}
	if next, err := cronvalidate.NextRun(out.Attributes.Schedule, time.Now()); err == nil {
		formatted := next.Format(time.RFC3339)
		out.Attributes.NextRun = &formatted
	}
	return out, nil
}

// DefaultMakeCheck is used when a CronJob's template_id annotation is
// absent or refers to a template no longer loaded; it preserves whatever
// annotations exist instead of failing.
func DefaultMakeCheck(cronjob *batchv1.CronJob) checktypes.OutCheck {
	out, err := makeCheck(cronjob)
	if err != nil {
		// Malformed template_args: still surface the check, with empty args,
		// rather than dropping it from listings entirely.
		out = checktypes.OutCheck{
			ID: checktypes.CheckId(cronjob.Name),
			Attributes: checktypes.OutCheckAttributes{
				Metadata: checktypes.OutCheckMetadata{
					Name:        cronjob.Annotations["name"],
					Description: cronjob.Annotations["description"],
					TemplateID:  checktypes.CheckTemplateId(cronjob.Annotations["template_id"]),
				},
				Schedule: checktypes.CronExpression(cronjob.Spec.Schedule),
				OutcomeFilter: checktypes.OutcomeFilter{
					ResourceAttributes: map[string]any{"k8s.cronjob.name": cronjob.Name},
				},
			},
		}
	}
	return out
}

// CronjobMaker wraps a CronjobTemplate and performs the three deterministic
// post-steps of spec §4.4 on every MakeCronjob call.
type CronjobMaker struct {
	template CronjobTemplate
	otlp     telemetry.OTLPExporterConfig
}

// NewCronjobMaker decorates template with metadata tagging and telemetry
// injection, using otlp (normally telemetry.OTLPExporterConfigFromEnv())
// for the exporter wiring step.
func NewCronjobMaker(template CronjobTemplate, otlp telemetry.OTLPExporterConfig) *CronjobMaker {
	return &CronjobMaker{template: template, otlp: otlp}
}

// GetCheckTemplate delegates to the wrapped template.
func (m *CronjobMaker) GetCheckTemplate() checktypes.CheckTemplate {
	return m.template.GetCheckTemplate()
}

// MakeCronjob builds the CronJob via the wrapped template, then tags it.
func (m *CronjobMaker) MakeCronjob(ctx context.Context, metadata checktypes.InCheckMetadata, schedule checktypes.CronExpression, userinfo hooks.UserInfo) (*batchv1.CronJob, checktypes.CheckId, error) {
	cronjob, err := m.template.MakeCronjob(ctx, metadata.TemplateArgs, schedule, userinfo)
	if err != nil {
		return nil, "", err
	}
	checkID, err := tagCronjob(cronjob, metadata, userinfo, m.otlp)
	if err != nil {
		return nil, "", err
	}
	return cronjob, checkID, nil
}

// MakeCheck inverts the mapping for a CronJob this maker's template
// produced.
func (m *CronjobMaker) MakeCheck(cronjob *batchv1.CronJob) (checktypes.OutCheck, error) {
	return makeCheck(cronjob)
}
