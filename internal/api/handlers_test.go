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

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resource-health/check-manager/internal/apitypes"
	"github.com/resource-health/check-manager/internal/checkbackend/mock"
	"github.com/resource-health/check-manager/internal/checktypes"
	"github.com/resource-health/check-manager/internal/hooks"
)

func newTestServer() (*Server, *hooks.Registry) {
	reg := hooks.New()
	reg.GetMockUsername = append(reg.GetMockUsername, func(_ context.Context, auth hooks.UserInfo) (string, bool, error) {
		if auth.Username == "" {
			return "", false, nil
		}
		return auth.Username, true, nil
	})
	backend := mock.New(reg)
	srv := New(Config{
		Addr:    ":0",
		BaseURL: "http://check-manager.example",
		Backend: backend,
		Hooks:   reg,
		Log:     zerolog.Nop(),
	})
	return srv, reg
}

func TestListCheckTemplates_ReturnsSeededTemplate(t *testing.T) {
	srv, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/v1/check_templates/", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, apitypes.MediaType, w.Header().Get("Content-Type"))

	var body apitypes.APIOKResponseList[checktypes.CheckTemplateAttributes, struct{}]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "check_template1", body.Data[0].ID)
}

func TestGetCheckTemplate_UnknownIdIs404(t *testing.T) {
	srv, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/v1/check_templates/does-not-exist", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var body apitypes.APIErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "404", body.Errors[0].Status)
}

func TestCreateAndGetCheck_RoundTrip(t *testing.T) {
	srv, _ := newTestServer()

	payload := `{"data":{"type":"check","attributes":{"metadata":{"name":"n","template_id":"check_template1","template_args":{"script":"print(1)"}},"schedule":"* * * * *"}}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/checks/", strings.NewReader(payload))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotEmpty(t, w.Header().Get("Location"))

	var created apitypes.APIOKResponse[checktypes.OutCheckAttributes]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.Data.ID)

	getReq := httptest.NewRequest(http.MethodGet, "/v1/checks/"+created.Data.ID, nil)
	getW := httptest.NewRecorder()
	srv.Handler().ServeHTTP(getW, getReq)
	require.Equal(t, http.StatusOK, getW.Code)
}

func TestCreateCheck_RejectsClientSpecifiedId(t *testing.T) {
	srv, _ := newTestServer()

	payload := `{"data":{"type":"check","id":"client-chosen","attributes":{"metadata":{"template_id":"check_template1"},"schedule":"* * * * *"}}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/checks/", strings.NewReader(payload))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRemoveCheck_ThenGetReturns404(t *testing.T) {
	srv, _ := newTestServer()

	payload := `{"data":{"type":"check","attributes":{"metadata":{"template_id":"check_template1","template_args":{"script":"print(1)"}},"schedule":"* * * * *"}}}`
	createReq := httptest.NewRequest(http.MethodPost, "/v1/checks/", strings.NewReader(payload))
	createW := httptest.NewRecorder()
	srv.Handler().ServeHTTP(createW, createReq)
	require.Equal(t, http.StatusCreated, createW.Code)
	var created apitypes.APIOKResponse[checktypes.OutCheckAttributes]
	require.NoError(t, json.Unmarshal(createW.Body.Bytes(), &created))

	delReq := httptest.NewRequest(http.MethodDelete, "/v1/checks/"+created.Data.ID, nil)
	delW := httptest.NewRecorder()
	srv.Handler().ServeHTTP(delW, delReq)
	assert.Equal(t, http.StatusNoContent, delW.Code)

	getReq := httptest.NewRequest(http.MethodGet, "/v1/checks/"+created.Data.ID, nil)
	getW := httptest.NewRecorder()
	srv.Handler().ServeHTTP(getW, getReq)
	assert.Equal(t, http.StatusNotFound, getW.Code)
}
