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
	"sort"

	batchv1 "k8s.io/api/batch/v1"

	"github.com/resource-health/check-manager/internal/checktypes"
	"github.com/resource-health/check-manager/internal/plugin"
	"github.com/resource-health/check-manager/internal/telemetry"
)

// Registry is the immutable, process-lifetime set of loaded templates,
// keyed by template id.
type Registry struct {
	makers map[checktypes.CheckTemplateId]*CronjobMaker
}

// NewRegistry wraps each of the given templates in a CronjobMaker and
// indexes them by id. Built-ins are registered here at process start
// (compile-time registration, per the design notes); RH_CHECK_K8S_TEMPLATE_PATH
// directories are merged in afterward via LoadDir.
func NewRegistry(templates []CronjobTemplate) *Registry {
	otlp := telemetry.OTLPExporterConfigFromEnv()
	r := &Registry{makers: map[checktypes.CheckTemplateId]*CronjobMaker{}}
	for _, t := range templates {
		maker := NewCronjobMaker(t, otlp)
		r.makers[maker.GetCheckTemplate().ID] = maker
	}
	return r
}

// LoadDir merges in CronjobTemplate implementations built as Go plugins
// under dir (§4.2, per-file=false). Later files never override an id
// already registered by a compile-time built-in.
func (r *Registry) LoadDir(dir string) {
	otlp := telemetry.OTLPExporterConfigFromEnv()
	loaded := plugin.LoadFlat(dir, plugin.Options[CronjobTemplate]{
		Value: func(sym any) (CronjobTemplate, bool) {
			factory, ok := sym.(func() CronjobTemplate)
			if !ok {
				return nil, false
			}
			return factory(), true
		},
		Key: func(sym any) string {
			factory := sym.(func() CronjobTemplate)
			return string(factory().GetCheckTemplate().ID)
		},
	})
	for id, tmpl := range loaded {
		templateID := checktypes.CheckTemplateId(id)
		if _, exists := r.makers[templateID]; exists {
			continue
		}
		r.makers[templateID] = NewCronjobMaker(tmpl, otlp)
	}
}

// Get returns the maker for a template id, or nil if unknown.
func (r *Registry) Get(id checktypes.CheckTemplateId) *CronjobMaker {
	return r.makers[id]
}

// List returns every loaded CheckTemplate, ordered by id for a stable
// response.
func (r *Registry) List() []checktypes.CheckTemplate {
	ids := make([]string, 0, len(r.makers))
	for id := range r.makers {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	out := make([]checktypes.CheckTemplate, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.makers[checktypes.CheckTemplateId(id)].GetCheckTemplate())
	}
	return out
}

// MakeCheck reconstructs an OutCheck from a CronJob, using the template
// named by its template_id annotation when loaded, or DefaultMakeCheck
// otherwise — the dispatch spec §4.4 describes for "make_check(cronjob)".
func (r *Registry) MakeCheck(cronjob *batchv1.CronJob) checktypes.OutCheck {
	templateID := checktypes.CheckTemplateId(cronjob.Annotations["template_id"])
	if maker := r.makers[templateID]; maker != nil {
		if out, err := maker.MakeCheck(cronjob); err == nil {
			return out
		}
	}
	return DefaultMakeCheck(cronjob)
}
