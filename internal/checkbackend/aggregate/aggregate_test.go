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

package aggregate

import (
	"context"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resource-health/check-manager/internal/checkbackend"
	"github.com/resource-health/check-manager/internal/checkerr"
	"github.com/resource-health/check-manager/internal/checktypes"
	"github.com/resource-health/check-manager/internal/hooks"
)

// stubBackend is a minimal checkbackend.CheckBackend whose per-call outcomes
// are fixed at construction, used to drive fanOut's reduction deterministically.
type stubBackend struct {
	created  checktypes.OutCheck
	createErr error
	removeErr error
	runErr    error
}

func (s *stubBackend) Close() error { return nil }
func (s *stubBackend) GetCheckTemplates(context.Context, hooks.UserInfo, []checktypes.CheckTemplateId) iter.Seq2[checktypes.CheckTemplate, error] {
	return func(func(checktypes.CheckTemplate, error) bool) {}
}
func (s *stubBackend) CreateCheck(context.Context, hooks.UserInfo, checktypes.InCheckAttributes) (checktypes.OutCheck, error) {
	return s.created, s.createErr
}
func (s *stubBackend) RemoveCheck(context.Context, hooks.UserInfo, checktypes.CheckId) error {
	return s.removeErr
}
func (s *stubBackend) GetChecks(context.Context, hooks.UserInfo, []checktypes.CheckId) iter.Seq2[checktypes.OutCheck, error] {
	return func(func(checktypes.OutCheck, error) bool) {}
}
func (s *stubBackend) RunCheck(context.Context, hooks.UserInfo, checktypes.CheckId) error {
	return s.runErr
}

func TestCreateCheck_RoutesByServiceIndex(t *testing.T) {
	first := &stubBackend{created: checktypes.OutCheck{ID: "from-first"}}
	second := &stubBackend{created: checktypes.OutCheck{ID: "from-second"}}
	b := New([]checkbackend.CheckBackend{first, second})

	out, err := b.CreateCheck(context.Background(), hooks.UserInfo{}, checktypes.InCheckAttributes{
		Metadata: checktypes.InCheckMetadata{
			TemplateArgs: map[string]any{"service_index": float64(1), "script": "x"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, checktypes.CheckId("from-second"), out.ID)
}

func TestCreateCheck_DefaultsToIndexZero(t *testing.T) {
	first := &stubBackend{created: checktypes.OutCheck{ID: "from-first"}}
	second := &stubBackend{created: checktypes.OutCheck{ID: "from-second"}}
	b := New([]checkbackend.CheckBackend{first, second})

	out, err := b.CreateCheck(context.Background(), hooks.UserInfo{}, checktypes.InCheckAttributes{})
	require.NoError(t, err)
	assert.Equal(t, checktypes.CheckId("from-first"), out.ID)
}

func TestCreateCheck_ServiceIndexOutOfRange(t *testing.T) {
	b := New([]checkbackend.CheckBackend{&stubBackend{}})
	_, err := b.CreateCheck(context.Background(), hooks.UserInfo{}, checktypes.InCheckAttributes{
		Metadata: checktypes.InCheckMetadata{TemplateArgs: map[string]any{"service_index": float64(5)}},
	})
	var userErr *checkerr.UserInputError
	assert.ErrorAs(t, err, &userErr)
}

func TestRemoveCheck_SingleSuccessWins(t *testing.T) {
	b := New([]checkbackend.CheckBackend{
		&stubBackend{removeErr: &checkerr.CheckIdError{CheckID: "x"}},
		&stubBackend{removeErr: nil},
	})
	err := b.RemoveCheck(context.Background(), hooks.UserInfo{}, "x")
	assert.NoError(t, err)
}

func TestRemoveCheck_MultipleSuccessesAreAmbiguous(t *testing.T) {
	b := New([]checkbackend.CheckBackend{
		&stubBackend{removeErr: nil},
		&stubBackend{removeErr: nil},
	})
	err := b.RemoveCheck(context.Background(), hooks.UserInfo{}, "x")
	var nonUnique *checkerr.CheckIdNonUniqueError
	assert.ErrorAs(t, err, &nonUnique)
}

func TestRunCheck_AllNotFoundPropagatesCheckIdError(t *testing.T) {
	b := New([]checkbackend.CheckBackend{
		&stubBackend{runErr: &checkerr.CheckIdError{CheckID: "x"}},
		&stubBackend{runErr: &checkerr.CheckIdError{CheckID: "x"}},
	})
	err := b.RunCheck(context.Background(), hooks.UserInfo{}, "x")
	var idErr *checkerr.CheckIdError
	assert.ErrorAs(t, err, &idErr)
}

func TestRunCheck_NonIdFailurePreferredOverIdFailure(t *testing.T) {
	connErr := &checkerr.CheckConnectionError{Cause: assertError("boom")}
	b := New([]checkbackend.CheckBackend{
		&stubBackend{runErr: &checkerr.CheckIdError{CheckID: "x"}},
		&stubBackend{runErr: connErr},
	})
	err := b.RunCheck(context.Background(), hooks.UserInfo{}, "x")
	var gotConn *checkerr.CheckConnectionError
	assert.ErrorAs(t, err, &gotConn)
}

type assertError string

func (e assertError) Error() string { return string(e) }
