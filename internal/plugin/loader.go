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

// Package plugin discovers Go shared-object plugins (built with
// `go build -buildmode=plugin`) in a directory and projects their exported
// symbols into a name->value map. Import failures are logged and skipped,
// and symbols that don't satisfy the caller's predicate are skipped
// silently; the directory scan never aborts because one file is bad,
// mirroring the load_plugins/load_python_module behaviour this package
// replaces.
//
// Compile-time registration is the primary mechanism this module uses for
// shipping templates and hooks: exampletemplates.Builtins returns the
// built-in templates as a slice, and cmd/checkmanager appends the built-in
// hooks in code. This loader serves the optional "drop a .so in a
// directory" path for templates.
package plugin

import (
	"os"
	"path/filepath"
	"plugin"
	"sort"

	"github.com/rs/zerolog"
)

// Options configures a single load pass.
type Options[V any] struct {
	// Value projects a loaded symbol into the result type, or returns
	// (zero, false) to drop it.
	Value func(sym any) (V, bool)
	// Key overrides the map key a value is stored under; when nil, the
	// exported symbol name is used.
	Key    func(sym any) string
	Logger *zerolog.Logger
}

func (o Options[V]) logger() *zerolog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	l := zerolog.Nop()
	return &l
}

// sortedPluginFiles lists *.so files in dir in alphabetical order, which is
// the ordering template discovery relies on.
func sortedPluginFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".so" {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// exportedSymbols returns every exported (capitalised) top-level symbol of
// the plugin. Go's plugin package has no enumeration API, so callers must
// additionally export a `Symbols() []string` function naming what they
// export; plugins that omit it contribute nothing (logged, not fatal).
func exportedSymbols(p *plugin.Plugin, logger *zerolog.Logger, path string) map[string]any {
	listSym, err := p.Lookup("Symbols")
	if err != nil {
		logger.Warn().Str("file", path).Msg("plugin has no Symbols() []string export, skipping")
		return nil
	}
	list, ok := listSym.(func() []string)
	if !ok {
		logger.Warn().Str("file", path).Msg("plugin Symbols has unexpected type, skipping")
		return nil
	}
	out := map[string]any{}
	for _, name := range list() {
		sym, err := p.Lookup(name)
		if err != nil {
			logger.Warn().Err(err).Str("file", path).Str("symbol", name).Msg("symbol listed but not found, skipping")
			continue
		}
		out[name] = sym
	}
	return out
}

// LoadFlat merges every file's qualifying symbols into a single map; later
// files (alphabetically) override earlier ones on key collision.
func LoadFlat[V any](dir string, opts Options[V]) map[string]V {
	logger := opts.logger()
	result := map[string]V{}
	files, err := sortedPluginFiles(dir)
	if err != nil {
		logger.Warn().Err(err).Str("dir", dir).Msg("plugin directory unreadable, skipping")
		return result
	}
	for _, file := range files {
		p, err := plugin.Open(file)
		if err != nil {
			logger.Warn().Err(err).Str("file", file).Msg("failed to load plugin, skipping")
			continue
		}
		for name, sym := range exportedSymbols(p, logger, file) {
			value, ok := opts.Value(sym)
			if !ok {
				continue
			}
			key := name
			if opts.Key != nil {
				key = opts.Key(sym)
			}
			result[key] = value
		}
	}
	return result
}

// LoadPerFile preserves per-file grouping: file-stem -> name -> value, for
// callers where ordering across files (not just within one) matters. No
// caller in this module uses it; the hook registry is filled in code.
func LoadPerFile[V any](dir string, opts Options[V]) map[string]map[string]V {
	logger := opts.logger()
	result := map[string]map[string]V{}
	files, err := sortedPluginFiles(dir)
	if err != nil {
		logger.Warn().Err(err).Str("dir", dir).Msg("plugin directory unreadable, skipping")
		return result
	}
	for _, file := range files {
		p, err := plugin.Open(file)
		if err != nil {
			logger.Warn().Err(err).Str("file", file).Msg("failed to load plugin, skipping")
			continue
		}
		stem := filepath.Base(file)
		stem = stem[:len(stem)-len(filepath.Ext(stem))]
		perFile := map[string]V{}
		for name, sym := range exportedSymbols(p, logger, file) {
			value, ok := opts.Value(sym)
			if !ok {
				continue
			}
			key := name
			if opts.Key != nil {
				key = opts.Key(sym)
			}
			perFile[key] = value
		}
		result[stem] = perFile
	}
	return result
}
