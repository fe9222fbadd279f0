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

package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resource-health/check-manager/internal/checkbackend"
	"github.com/resource-health/check-manager/internal/checkerr"
	"github.com/resource-health/check-manager/internal/checktypes"
	"github.com/resource-health/check-manager/internal/hooks"
	"github.com/resource-health/check-manager/internal/remoteclient"
)

func TestGetChecks_DelegatesOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/checks/", r.URL.Path)
		w.Header().Set("Content-Type", "application/vnd.api+json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"id": "c1", "type": "check", "attributes": map[string]any{"schedule": "* * * * *"}},
			},
		})
	}))
	defer srv.Close()

	b := New(remoteclient.New(srv.URL, 0))
	checks, err := checkbackend.Collect(b.GetChecks(context.Background(), hooks.UserInfo{}, nil))
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.Equal(t, checktypes.CheckId("c1"), checks[0].ID)
}

func TestRemoveCheck_TranslatesRemoteJSONAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.api+json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]any{
				{"status": "404", "code": "CheckIdError", "title": "Unknown check"},
			},
		})
	}))
	defer srv.Close()

	b := New(remoteclient.New(srv.URL, 0))
	err := b.RemoveCheck(context.Background(), hooks.UserInfo{}, "missing")
	require.Error(t, err)

	var ce checkerr.CheckError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, http.StatusNotFound, ce.HTTPStatus())
}

func TestRunCheck_TransportFailureBecomesConnectionError(t *testing.T) {
	b := New(remoteclient.New("http://127.0.0.1:1", 0))
	err := b.RunCheck(context.Background(), hooks.UserInfo{}, "c1")
	var connErr *checkerr.CheckConnectionError
	assert.ErrorAs(t, err, &connErr)
}
