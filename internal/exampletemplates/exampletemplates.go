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

// Package exampletemplates bundles the built-in CronjobTemplates shipped
// with this service: a script runner (sharing its id and schema with the
// mock backend's demo template, and exercised by the S1-S5 scenarios), a
// ping check, and a
// telemetry-protected check that routes through the OIDC mitmproxy
// sidecar. Grounded on original_source's example_k8s_templates/.
package exampletemplates

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/resource-health/check-manager/internal/apitypes"
	"github.com/resource-health/check-manager/internal/checktemplate"
	"github.com/resource-health/check-manager/internal/checktypes"
)

// dataURLFor embeds src directly in the CronJob spec as a base64 data URL,
// so the runner container needs no external script host for these demo
// templates. Decoding the payload out of the URL always recovers src
// unchanged (testable property: round-trips through base64 losslessly).
func dataURLFor(src string) string {
	return "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte(src))
}

func runnerImage() string {
	if img := os.Getenv("RH_CHECK_K8S_DEFAULT_RUNNER_IMAGE"); img != "" {
		return img
	}
	return "ghcr.io/resource-health/check-runner:latest"
}

func mitmproxyImage() string {
	return os.Getenv("RH_CHECK_K8S_DEFAULT_OIDC_MITMPROXY_IMAGE")
}

// ScriptTemplate is the generic "run this script" template exercised by
// scenarios S1-S5. The mock backend's check_template1 carries the same id
// and schema but is its own literal; the mock does not call this function.
func ScriptTemplate() checktemplate.CronjobTemplate {
	schema := map[string]any{
		"$schema": "http://json-schema.org/draft-07/schema",
		"type":    "object",
		"properties": map[string]any{
			"script":       map[string]any{"type": "string", "format": "textarea"},
			"requirements": map[string]any{"type": "string", "format": "textarea"},
		},
		"required": []any{"script"},
	}

	tmpl, err := checktemplate.NewSimpleRunnerTemplate(checktemplate.SimpleRunnerConfig{
		TemplateID:  "check_template1",
		Label:       "Script check",
		Description: "Runs an arbitrary script on the configured schedule",
		ArgsSchema:  schema,
		RunnerImage: runnerImage(),
		ScriptURL: func(args apitypes.Json) (string, error) {
			m, ok := args.(map[string]any)
			if !ok {
				return "", fmt.Errorf("template_args must be an object")
			}
			script, _ := m["script"].(string)
			return dataURLFor(script), nil
		},
	})
	if err != nil {
		panic(err) // schema is a compile-time literal; a failure here is a programming error
	}
	return tmpl
}

// PingTemplate checks that a host responds to an HTTP(S) GET.
func PingTemplate() checktemplate.CronjobTemplate {
	schema := map[string]any{
		"$schema": "http://json-schema.org/draft-07/schema",
		"type":    "object",
		"properties": map[string]any{
			"host": map[string]any{"type": "string", "format": "uri"},
		},
		"required": []any{"host"},
	}

	tmpl, err := checktemplate.NewSimpleRunnerTemplate(checktemplate.SimpleRunnerConfig{
		TemplateID:  "ping",
		Label:       "Ping check",
		Description: "Polls an HTTP(S) endpoint and reports reachability",
		ArgsSchema:  schema,
		RunnerImage: runnerImage(),
		ScriptURL: func(args apitypes.Json) (string, error) {
			m, ok := args.(map[string]any)
			if !ok {
				return "", fmt.Errorf("template_args must be an object")
			}
			host, _ := m["host"].(string)
			return dataURLFor(fmt.Sprintf("import urllib.request\nurllib.request.urlopen(%q)\n", host)), nil
		},
	})
	if err != nil {
		panic(err)
	}
	return tmpl
}

// TelemetryAccessTemplate demonstrates the OIDC-mitmproxy sidecar path: the
// runner's outbound calls to a protected telemetry backend are proxied
// through an authenticating sidecar (spec glossary "Mitmproxy sidecar").
func TelemetryAccessTemplate() checktemplate.CronjobTemplate {
	schema := map[string]any{
		"$schema": "http://json-schema.org/draft-07/schema",
		"type":    "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string", "format": "textarea"},
		},
		"required": []any{"query"},
	}

	tmpl, err := checktemplate.NewSimpleRunnerTemplate(checktemplate.SimpleRunnerConfig{
		TemplateID:     "telemetry_access",
		Label:          "Telemetry access check",
		Description:    "Runs a query against a protected telemetry backend via the OIDC mitmproxy sidecar",
		ArgsSchema:     schema,
		RunnerImage:    runnerImage(),
		MitmproxyImage: mitmproxyImage(),
		MitmproxyEnabled: func(apitypes.Json) bool {
			return mitmproxyImage() != ""
		},
		ScriptURL: func(args apitypes.Json) (string, error) {
			m, ok := args.(map[string]any)
			if !ok {
				return "", fmt.Errorf("template_args must be an object")
			}
			query, _ := m["query"].(string)
			return dataURLFor(query), nil
		},
	})
	if err != nil {
		panic(err)
	}
	return tmpl
}

// Builtins returns every compile-time-registered template, the primary
// loading path the design notes call for.
func Builtins() []checktemplate.CronjobTemplate {
	templates := []checktemplate.CronjobTemplate{ScriptTemplate(), PingTemplate()}
	if mitmproxyImage() != "" {
		templates = append(templates, TelemetryAccessTemplate())
	}
	return templates
}

// CheckTemplateId is re-exported for convenience in tests.
type CheckTemplateId = checktypes.CheckTemplateId
