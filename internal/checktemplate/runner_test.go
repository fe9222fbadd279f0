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

package checktemplate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resource-health/check-manager/internal/checkerr"
	"github.com/resource-health/check-manager/internal/checktypes"
	"github.com/resource-health/check-manager/internal/hooks"
	"github.com/resource-health/check-manager/internal/telemetry"
)

func testTemplate(t *testing.T) CronjobTemplate {
	t.Helper()
	tmpl, err := NewSimpleRunnerTemplate(SimpleRunnerConfig{
		TemplateID:  "t1",
		Label:       "Test",
		ArgsSchema: map[string]any{
			"$schema":  "http://json-schema.org/draft-07/schema",
			"type":     "object",
			"properties": map[string]any{
				"script": map[string]any{"type": "string"},
			},
			"required": []any{"script"},
		},
		RunnerImage: "runner:latest",
		ScriptURL: func(args any) (string, error) {
			return "data:text/plain;base64,", nil
		},
	})
	require.NoError(t, err)
	return tmpl
}

func TestMakeCronjob_RejectsArgsFailingSchema(t *testing.T) {
	tmpl := testTemplate(t)
	_, err := tmpl.MakeCronjob(context.Background(), map[string]any{}, "* * * * *", hooks.UserInfo{})
	var schemaErr *checkerr.JsonValidationError
	assert.ErrorAs(t, err, &schemaErr)
}

func TestMakeCronjob_AcceptsValidArgs(t *testing.T) {
	tmpl := testTemplate(t)
	cronjob, err := tmpl.MakeCronjob(context.Background(), map[string]any{"script": "print(1)"}, "* * * * *", hooks.UserInfo{})
	require.NoError(t, err)
	assert.Equal(t, "* * * * *", cronjob.Spec.Schedule)
	require.Len(t, cronjob.Spec.JobTemplate.Spec.Template.Spec.Containers, 1)
}

func TestCronjobMaker_TagsCheckIdAndAnnotations(t *testing.T) {
	maker := NewCronjobMaker(testTemplate(t), telemetry.OTLPExporterConfig{})
	metadata := checktypes.InCheckMetadata{
		Name:         "my check",
		Description:  "desc",
		TemplateID:   "t1",
		TemplateArgs: map[string]any{"script": "print(1)"},
	}
	cronjob, checkID, err := maker.MakeCronjob(context.Background(), metadata, "* * * * *", hooks.UserInfo{Username: "alice"})
	require.NoError(t, err)
	assert.NotEmpty(t, checkID)
	assert.Equal(t, string(checkID), cronjob.Name)
	assert.Equal(t, "my check", cronjob.Annotations["name"])
	assert.Equal(t, "t1", cronjob.Annotations["template_id"])
}

func TestCronjobMaker_MakeCheck_InvertsTagCronjob(t *testing.T) {
	maker := NewCronjobMaker(testTemplate(t), telemetry.OTLPExporterConfig{})
	metadata := checktypes.InCheckMetadata{
		Name:         "my check",
		TemplateID:   "t1",
		TemplateArgs: map[string]any{"script": "print(1)"},
	}
	cronjob, checkID, err := maker.MakeCronjob(context.Background(), metadata, "*/5 * * * *", hooks.UserInfo{Username: "alice"})
	require.NoError(t, err)

	out, err := maker.MakeCheck(cronjob)
	require.NoError(t, err)
	assert.Equal(t, checkID, out.ID)
	assert.Equal(t, metadata.Name, out.Attributes.Metadata.Name)
	assert.Equal(t, metadata.TemplateID, out.Attributes.Metadata.TemplateID)
	assert.Equal(t, checktypes.CronExpression("*/5 * * * *"), out.Attributes.Schedule)
}
