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

package exampletemplates

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataURLFor_RoundTrips(t *testing.T) {
	cases := []string{
		"",
		"print('hello')",
		"line one\nline two\nline three\n",
		"unicode: éèê",
	}
	for _, src := range cases {
		url := dataURLFor(src)
		require.True(t, strings.HasPrefix(url, "data:text/plain;base64,"))
		encoded := strings.TrimPrefix(url, "data:text/plain;base64,")
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		require.NoError(t, err)
		assert.Equal(t, src, string(decoded))
	}
}

func TestBuiltins_AlwaysIncludesScriptAndPing(t *testing.T) {
	templates := Builtins()
	ids := make(map[string]bool)
	for _, tmpl := range templates {
		ids[string(tmpl.GetCheckTemplate().ID)] = true
	}
	assert.True(t, ids["check_template1"])
	assert.True(t, ids["ping"])
}

func TestScriptTemplate_SchemaRequiresScript(t *testing.T) {
	tmpl := ScriptTemplate().GetCheckTemplate()
	schema, ok := tmpl.Attributes.Arguments.(map[string]any)
	require.True(t, ok)
	required, ok := schema["required"].([]any)
	require.True(t, ok)
	assert.Contains(t, required, "script")
}
