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

package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resource-health/check-manager/internal/checkbackend"
	"github.com/resource-health/check-manager/internal/checkerr"
	"github.com/resource-health/check-manager/internal/checktypes"
	"github.com/resource-health/check-manager/internal/hooks"
)

func fixedUsername(name string) *hooks.Registry {
	reg := hooks.New()
	reg.GetMockUsername = append(reg.GetMockUsername, func(_ context.Context, _ hooks.UserInfo) (string, bool, error) {
		return name, true, nil
	})
	return reg
}

func TestCreateCheck_RoundTrip(t *testing.T) {
	b := New(fixedUsername("alice"))
	ctx := context.Background()
	auth := hooks.UserInfo{Username: "alice"}

	in := checktypes.InCheckAttributes{
		Metadata: checktypes.InCheckMetadata{
			Name:         "my check",
			TemplateID:   "check_template1",
			TemplateArgs: map[string]any{"script": "print(1)"},
		},
		Schedule: "* * * * *",
	}

	created, err := b.CreateCheck(ctx, auth, in)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	fetched, err := checkbackend.Collect(b.GetChecks(ctx, auth, []checktypes.CheckId{created.ID}))
	require.NoError(t, err)
	require.Len(t, fetched, 1)
	assert.Equal(t, created.Attributes, fetched[0].Attributes)
}

func TestCreateCheck_UnknownTemplate(t *testing.T) {
	b := New(fixedUsername("alice"))
	_, err := b.CreateCheck(context.Background(), hooks.UserInfo{Username: "alice"}, checktypes.InCheckAttributes{
		Metadata: checktypes.InCheckMetadata{TemplateID: "does-not-exist"},
	})
	var templateErr *checkerr.CheckTemplateIdError
	assert.ErrorAs(t, err, &templateErr)
}

func TestGetChecks_PartitionedByMockUsername(t *testing.T) {
	reg := hooks.New()
	var current string
	reg.GetMockUsername = append(reg.GetMockUsername, func(_ context.Context, _ hooks.UserInfo) (string, bool, error) {
		return current, true, nil
	})
	b := New(reg)
	ctx := context.Background()

	current = "alice"
	alicesCheck, err := b.CreateCheck(ctx, hooks.UserInfo{Username: "alice"}, checktypes.InCheckAttributes{
		Metadata: checktypes.InCheckMetadata{
			TemplateID:   "check_template1",
			TemplateArgs: map[string]any{"script": "print(1)"},
		},
		Schedule: "* * * * *",
	})
	require.NoError(t, err)

	current = "bob"
	bobsChecks, err := checkbackend.Collect(b.GetChecks(ctx, hooks.UserInfo{Username: "bob"}, nil))
	require.NoError(t, err)
	for _, c := range bobsChecks {
		assert.NotEqual(t, alicesCheck.ID, c.ID, "bob must not see alice's checks")
	}

	current = "alice"
	_, err = checkbackend.Collect(b.GetChecks(ctx, hooks.UserInfo{Username: "alice"}, []checktypes.CheckId{alicesCheck.ID}))
	require.NoError(t, err)
}

func TestCreateCheck_RejectsMalformedCron(t *testing.T) {
	b := New(fixedUsername("alice"))
	_, err := b.CreateCheck(context.Background(), hooks.UserInfo{Username: "alice"}, checktypes.InCheckAttributes{
		Metadata: checktypes.InCheckMetadata{
			TemplateID:   "check_template1",
			TemplateArgs: map[string]any{"script": "print(1)"},
		},
		Schedule: "@daily",
	})
	var cronErr *checkerr.CronExpressionValidationError
	assert.ErrorAs(t, err, &cronErr)
}

func TestCreateCheck_RejectsArgsFailingSchema(t *testing.T) {
	b := New(fixedUsername("alice"))
	_, err := b.CreateCheck(context.Background(), hooks.UserInfo{Username: "alice"}, checktypes.InCheckAttributes{
		Metadata: checktypes.InCheckMetadata{
			TemplateID:   "check_template1",
			TemplateArgs: map[string]any{},
		},
		Schedule: "* * * * *",
	})
	var schemaErr *checkerr.JsonValidationError
	assert.ErrorAs(t, err, &schemaErr)
}

func TestRemoveCheck_UnknownId(t *testing.T) {
	b := New(fixedUsername("alice"))
	err := b.RemoveCheck(context.Background(), hooks.UserInfo{Username: "alice"}, "nope")
	var checkIDErr *checkerr.CheckIdError
	assert.ErrorAs(t, err, &checkIDErr)
}

func TestRunCheck_UnknownId(t *testing.T) {
	b := New(fixedUsername("alice"))
	err := b.RunCheck(context.Background(), hooks.UserInfo{Username: "alice"}, "nope")
	var checkIDErr *checkerr.CheckIdError
	assert.ErrorAs(t, err, &checkIDErr)
}

func TestUsername_NoHookRegistered(t *testing.T) {
	b := New(hooks.New())
	_, err := b.CreateCheck(context.Background(), hooks.UserInfo{}, checktypes.InCheckAttributes{
		Metadata: checktypes.InCheckMetadata{TemplateID: "check_template1"},
	})
	assert.Error(t, err)
}
