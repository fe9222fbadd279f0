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
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/resource-health/check-manager/internal/apitypes"
	"github.com/resource-health/check-manager/internal/checkbackend"
	"github.com/resource-health/check-manager/internal/checkerr"
	"github.com/resource-health/check-manager/internal/checktypes"
	"github.com/resource-health/check-manager/internal/hooks"
)

type handlers struct {
	backend checkbackend.CheckBackend
	hooks   *hooks.Registry
	baseURL string
	log     zerolog.Logger
}

// wrap is the single error-translating middleware of spec §4.6: a handler
// returns an error instead of writing one, and wrap renders it via
// checkerr.Translate.
func wrap(fn func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			status, body := checkerr.Translate(err)
			writeJSON(w, status, body)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", apitypes.MediaType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// resolveAuth runs step 1-2 of §4.6: GetSecurityScheme until-not-null (auth
// is null if no hook yields anything), then OnAuth until-not-null.
func (h *handlers) resolveAuth(r *http.Request) (hooks.UserInfo, error) {
	ctx := r.Context()
	raw, ok, err := hooks.UntilNotNull(ctx, h.hooks.GetSecurityScheme)
	if err != nil {
		return hooks.UserInfo{}, err
	}
	if !ok {
		return hooks.UserInfo{}, nil
	}
	auth, ok, err := hooks.UntilNotNull(ctx, bindOnAuth(h.hooks.OnAuth, raw))
	if err != nil {
		return hooks.UserInfo{}, err
	}
	if !ok {
		return hooks.UserInfo{}, &checkerr.Unauthorized{Reason: "no identity could be established for the supplied credentials"}
	}
	return auth, nil
}

func bindOnAuth(fns []func(ctxArg context.Context, raw any) (hooks.UserInfo, bool, error), raw any) []func(context.Context) (hooks.UserInfo, bool, error) {
	out := make([]func(context.Context) (hooks.UserInfo, bool, error), len(fns))
	for i, fn := range fns {
		fn := fn
		out[i] = func(ctx context.Context) (hooks.UserInfo, bool, error) { return fn(ctx, raw) }
	}
	return out
}

func (h *handlers) link(path string) apitypes.Link {
	return apitypes.NewLink(h.baseURL + path)
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	if _, err := h.resolveAuth(r); err != nil {
		status, body := checkerr.Translate(err)
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"links": apitypes.Links{
			"self":            h.link("/v1/"),
			"check_templates": h.link("/v1/check_templates/"),
			"checks":          h.link("/v1/checks/"),
		},
	})
}

func (h *handlers) templateToResource(t checktypes.CheckTemplate) apitypes.Resource[checktypes.CheckTemplateAttributes] {
	return apitypes.Resource[checktypes.CheckTemplateAttributes]{
		ID:         string(t.ID),
		Type:       "check_template",
		Attributes: t.Attributes,
		Links:      apitypes.Links{"self": h.link("/v1/check_templates/" + string(t.ID))},
	}
}

func (h *handlers) checkToResource(c checktypes.OutCheck) apitypes.Resource[checktypes.OutCheckAttributes] {
	links := apitypes.Links{"self": h.link("/v1/checks/" + string(c.ID))}
	if c.Attributes.Metadata.TemplateID != "" {
		links["check_template"] = h.link("/v1/check_templates/" + string(c.Attributes.Metadata.TemplateID))
	}
	return apitypes.Resource[checktypes.OutCheckAttributes]{
		ID:         string(c.ID),
		Type:       "check",
		Attributes: c.Attributes,
		Links:      links,
	}
}

func (h *handlers) listCheckTemplates(w http.ResponseWriter, r *http.Request) error {
	auth, err := h.resolveAuth(r)
	if err != nil {
		return err
	}
	ids := idsParam[checktypes.CheckTemplateId](r)

	var resources []apitypes.Resource[checktypes.CheckTemplateAttributes]
	templateErr := error(nil)
	h.backend.GetCheckTemplates(r.Context(), auth, ids)(func(t checktypes.CheckTemplate, err error) bool {
		if err != nil {
			templateErr = err
			return false
		}
		allowed, allowErr := hooks.CheckIfAllow(r.Context(), checkerr.Is404Like, bindTemplateAccess(h.hooks.OnTemplateAccess, r.Context(), auth, t.ID))
		if allowErr != nil {
			templateErr = allowErr
			return false
		}
		if allowed {
			resources = append(resources, h.templateToResource(t))
		}
		return true
	})
	if templateErr != nil {
		return templateErr
	}

	writeJSON(w, http.StatusOK, apitypes.APIOKResponseList[checktypes.CheckTemplateAttributes, struct{}]{
		Data:  resources,
		Links: apitypes.Links{"self": h.link("/v1/check_templates/"), "root": h.link("/v1/")},
	})
	return nil
}

func bindTemplateAccess(fns []func(context.Context, hooks.UserInfo, checktypes.CheckTemplateId) error, ctx context.Context, auth hooks.UserInfo, id checktypes.CheckTemplateId) []func(context.Context) error {
	out := make([]func(context.Context) error, len(fns))
	for i, fn := range fns {
		fn := fn
		out[i] = func(context.Context) error { return fn(ctx, auth, id) }
	}
	return out
}

func (h *handlers) getCheckTemplate(w http.ResponseWriter, r *http.Request) error {
	auth, err := h.resolveAuth(r)
	if err != nil {
		return err
	}
	id := checktypes.CheckTemplateId(chi.URLParam(r, "id"))

	templates, err := checkbackend.Collect(h.backend.GetCheckTemplates(r.Context(), auth, []checktypes.CheckTemplateId{id}))
	if err != nil {
		return err
	}
	if len(templates) == 0 {
		return &checkerr.CheckTemplateIdError{TemplateID: string(id)}
	}

	allowed, err := hooks.CheckIfAllow(r.Context(), checkerr.Is404Like, bindTemplateAccess(h.hooks.OnTemplateAccess, r.Context(), auth, id))
	if err != nil {
		return err
	}
	if !allowed {
		return &checkerr.CheckTemplateIdError{TemplateID: string(id)}
	}

	writeJSON(w, http.StatusOK, apitypes.APIOKResponse[checktypes.CheckTemplateAttributes]{
		Data:  h.templateToResource(templates[0]),
		Links: apitypes.Links{"self": h.link("/v1/check_templates/" + string(id)), "root": h.link("/v1/")},
	})
	return nil
}

func (h *handlers) listChecks(w http.ResponseWriter, r *http.Request) error {
	auth, err := h.resolveAuth(r)
	if err != nil {
		return err
	}
	ids := idsParam[checktypes.CheckId](r)

	var resources []apitypes.Resource[checktypes.OutCheckAttributes]
	var listErr error
	h.backend.GetChecks(r.Context(), auth, ids)(func(c checktypes.OutCheck, err error) bool {
		if err != nil {
			listErr = err
			return false
		}
		allowed, allowErr := hooks.CheckIfAllow(r.Context(), checkerr.Is404Like, bindCheckAccess(h.hooks.OnCheckAccess, r.Context(), auth, c.ID, c.Attributes.Metadata.TemplateID))
		if allowErr != nil {
			listErr = allowErr
			return false
		}
		if allowed {
			resources = append(resources, h.checkToResource(c))
		}
		return true
	})
	if listErr != nil {
		return listErr
	}

	writeJSON(w, http.StatusOK, apitypes.APIOKResponseList[checktypes.OutCheckAttributes, struct{}]{
		Data:  resources,
		Links: apitypes.Links{"self": h.link("/v1/checks/"), "root": h.link("/v1/")},
	})
	return nil
}

func bindCheckAccess(fns []func(context.Context, hooks.UserInfo, checktypes.CheckId, checktypes.CheckTemplateId) error, ctx context.Context, auth hooks.UserInfo, id checktypes.CheckId, templateID checktypes.CheckTemplateId) []func(context.Context) error {
	out := make([]func(context.Context) error, len(fns))
	for i, fn := range fns {
		fn := fn
		out[i] = func(context.Context) error { return fn(ctx, auth, id, templateID) }
	}
	return out
}

// inCheckBody is the request body for POST /v1/checks/. id is decoded only
// to be rejected: clients may never choose a check id (§7
// NewCheckClientSpecifiedId).
type inCheckBody struct {
	Data struct {
		Type       string                        `json:"type"`
		ID         *string                       `json:"id"`
		Attributes checktypes.InCheckAttributes `json:"attributes"`
	} `json:"data"`
}

func (h *handlers) createCheck(w http.ResponseWriter, r *http.Request) error {
	auth, err := h.resolveAuth(r)
	if err != nil {
		return err
	}

	var body inCheckBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return &checkerr.UserInputError{Reason: "malformed request body", Source: apitypes.SourcePointer("/data")}
	}
	if body.Data.ID != nil {
		return &checkerr.NewCheckClientSpecifiedId{}
	}
	attrs := body.Data.Attributes

	for _, hook := range bindTemplateAccess(h.hooks.OnTemplateAccess, r.Context(), auth, attrs.Metadata.TemplateID) {
		if err := hook(r.Context()); err != nil {
			return err
		}
	}
	for _, hook := range h.hooks.OnCheckCreate {
		if err := hook(r.Context(), auth, attrs); err != nil {
			return err
		}
	}

	check, err := h.backend.CreateCheck(r.Context(), auth, attrs)
	if err != nil {
		return err
	}

	for _, hook := range bindCheckAccess(h.hooks.OnCheckAccess, r.Context(), auth, check.ID, check.Attributes.Metadata.TemplateID) {
		if err := hook(r.Context()); err != nil {
			return err
		}
	}

	location := h.baseURL + "/v1/checks/" + string(check.ID)
	w.Header().Set("Location", location)
	writeJSON(w, http.StatusCreated, apitypes.APIOKResponse[checktypes.OutCheckAttributes]{
		Data:  h.checkToResource(check),
		Links: apitypes.Links{"self": h.link("/v1/checks/" + string(check.ID)), "root": h.link("/v1/")},
	})
	return nil
}

func (h *handlers) fetchAndAuthorize(r *http.Request, auth hooks.UserInfo, id checktypes.CheckId) (checktypes.OutCheck, error) {
	checks, err := checkbackend.Collect(h.backend.GetChecks(r.Context(), auth, []checktypes.CheckId{id}))
	if err != nil {
		return checktypes.OutCheck{}, err
	}
	if len(checks) == 0 {
		return checktypes.OutCheck{}, &checkerr.CheckIdError{CheckID: string(id)}
	}
	check := checks[0]
	for _, hook := range bindCheckAccess(h.hooks.OnCheckAccess, r.Context(), auth, check.ID, check.Attributes.Metadata.TemplateID) {
		if err := hook(r.Context()); err != nil {
			return checktypes.OutCheck{}, err
		}
	}
	return check, nil
}

func (h *handlers) getCheck(w http.ResponseWriter, r *http.Request) error {
	auth, err := h.resolveAuth(r)
	if err != nil {
		return err
	}
	id := checktypes.CheckId(chi.URLParam(r, "id"))
	check, err := h.fetchAndAuthorize(r, auth, id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, apitypes.APIOKResponse[checktypes.OutCheckAttributes]{
		Data:  h.checkToResource(check),
		Links: apitypes.Links{"self": h.link("/v1/checks/" + string(id)), "root": h.link("/v1/")},
	})
	return nil
}

func (h *handlers) removeCheck(w http.ResponseWriter, r *http.Request) error {
	auth, err := h.resolveAuth(r)
	if err != nil {
		return err
	}
	id := checktypes.CheckId(chi.URLParam(r, "id"))
	if _, err := h.fetchAndAuthorize(r, auth, id); err != nil {
		return err
	}
	for _, hook := range h.hooks.OnCheckRemove {
		if err := hook(r.Context(), auth, id); err != nil {
			return err
		}
	}
	if err := h.backend.RemoveCheck(r.Context(), auth, id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *handlers) runCheck(w http.ResponseWriter, r *http.Request) error {
	auth, err := h.resolveAuth(r)
	if err != nil {
		return err
	}
	id := checktypes.CheckId(chi.URLParam(r, "id"))
	if _, err := h.fetchAndAuthorize(r, auth, id); err != nil {
		return err
	}
	for _, hook := range h.hooks.OnCheckRun {
		if err := hook(r.Context(), auth, id); err != nil {
			return err
		}
	}
	if err := h.backend.RunCheck(r.Context(), auth, id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// idsParam reads repeatable ?id=... query parameters, returning nil (not
// an empty slice) when absent so backends treat it as "all".
func idsParam[T ~string](r *http.Request) []T {
	values := r.URL.Query()["id"]
	if len(values) == 0 {
		return nil
	}
	out := make([]T, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part != "" {
				out = append(out, T(part))
			}
		}
	}
	return out
}
