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

// Package config loads process configuration from flags, environment
// variables (prefix RH_CHECK), and an optional config file, layered with
// spf13/viper the way the teacher's internal/config/config.go does.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Backend selects which CheckBackend cmd/checkmanager wires up.
type Backend string

const (
	BackendMock      Backend = "mock"
	BackendK8s       Backend = "k8s"
	BackendRemote    Backend = "remote"
	BackendAggregate Backend = "aggregate"
)

// Config is the fully-resolved process configuration (spec §6.2).
type Config struct {
	configFileUsed string

	Addr    string `mapstructure:"addr"`
	Backend Backend `mapstructure:"backend"`

	APIBaseURL         string `mapstructure:"api-base-url"`
	HookDirPath        string `mapstructure:"hook-dir-path"`
	K8sTemplatePath    string `mapstructure:"k8s-template-path"`
	K8sRunnerImage     string `mapstructure:"k8s-default-runner-image"`
	K8sMitmproxyImage  string `mapstructure:"k8s-default-oidc-mitmproxy-image"`
	RemoteURL          string `mapstructure:"remote-url"`

	OIDCURL      string `mapstructure:"open-id-connect-url"`
	OIDCAudience string `mapstructure:"open-id-connect-audience"`

	OTLPExporterEndpoint  string `mapstructure:"otel-exporter-otlp-endpoint"`
	CollectorTLSSecret    string `mapstructure:"collector-tls-secret"`

	MockUsername string `mapstructure:"mock-username"`
}

// ConfigFileUsed reports the config file viper resolved, if any.
func (c *Config) ConfigFileUsed() string { return c.configFileUsed }

// DefaultConfig mirrors the teacher's zero-value defaults.
func DefaultConfig() *Config {
	return &Config{
		Addr:    ":8080",
		Backend: BackendMock,
	}
}

// BindFlags registers every setting as a hyphenated command-line flag, which
// maps 1:1 onto env vars via SetEnvKeyReplacer.
func BindFlags(flags *pflag.FlagSet) {
	d := DefaultConfig()
	flags.String("addr", d.Addr, "address to listen on")
	flags.String("backend", string(d.Backend), "check backend: mock, k8s, remote, or aggregate")
	flags.String("api-base-url", "", "base URL used in self/root links (RH_CHECK_API_BASE_URL)")
	flags.String("hook-dir-path", "", "directory of hook plugins (RH_CHECK_HOOK_DIR_PATH)")
	flags.String("k8s-template-path", "", "directory of cronjob-template plugins (RH_CHECK_K8S_TEMPLATE_PATH)")
	flags.String("k8s-default-runner-image", "", "script runner image (RH_CHECK_K8S_DEFAULT_RUNNER_IMAGE)")
	flags.String("k8s-default-oidc-mitmproxy-image", "", "sidecar image (RH_CHECK_K8S_DEFAULT_OIDC_MITMPROXY_IMAGE)")
	flags.String("remote-url", "", "base URL of the delegate check-manager instance (remote backend)")
	flags.String("open-id-connect-url", "", "OIDC issuer URL (OPEN_ID_CONNECT_URL)")
	flags.String("open-id-connect-audience", "", "OIDC audience (OPEN_ID_CONNECT_AUDIENCE)")
	flags.String("otel-exporter-otlp-endpoint", "", "OTLP endpoint injected into CronJob env (OTEL_EXPORTER_OTLP_ENDPOINT)")
	flags.String("collector-tls-secret", "", "secret mounted as /tls in CronJob (CHECK_MANAGER_COLLECTOR_TLS_SECRET)")
	flags.String("mock-username", "", "fixed username partition for the mock backend (RH_CHECK_MOCK_USERNAME)")
}

// Load builds a fresh viper instance bound to flags, the RH_CHECK/OTEL/
// OPEN_ID_CONNECT env vars, and an optional config file.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigName("check-manager")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/check-manager")

	v.SetEnvPrefix("RH_CHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}

	// These four deliberately break the RH_CHECK_ prefix convention,
	// matching the literal env var names spec §6.2 requires.
	_ = v.BindEnv("otel-exporter-otlp-endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
	_ = v.BindEnv("collector-tls-secret", "CHECK_MANAGER_COLLECTOR_TLS_SECRET")
	_ = v.BindEnv("open-id-connect-url", "OPEN_ID_CONNECT_URL")
	_ = v.BindEnv("open-id-connect-audience", "OPEN_ID_CONNECT_AUDIENCE")

	configFileUsed := ""
	if err := v.ReadInConfig(); err == nil {
		configFileUsed = v.ConfigFileUsed()
	} else if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.configFileUsed = configFileUsed

	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("RH_CHECK_API_BASE_URL (or --api-base-url) is required")
	}
	return cfg, nil
}
