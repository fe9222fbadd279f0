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

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/zerologr"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/resource-health/check-manager/internal/api"
	"github.com/resource-health/check-manager/internal/checkbackend"
	"github.com/resource-health/check-manager/internal/checkbackend/aggregate"
	k8sbackend "github.com/resource-health/check-manager/internal/checkbackend/k8s"
	"github.com/resource-health/check-manager/internal/checkbackend/mock"
	"github.com/resource-health/check-manager/internal/checkbackend/remote"
	"github.com/resource-health/check-manager/internal/checktemplate"
	"github.com/resource-health/check-manager/internal/config"
	"github.com/resource-health/check-manager/internal/examplehooks"
	"github.com/resource-health/check-manager/internal/exampletemplates"
	"github.com/resource-health/check-manager/internal/hooks"
	"github.com/resource-health/check-manager/internal/metrics"
	"github.com/resource-health/check-manager/internal/remoteclient"
)

func main() {
	flags := pflag.NewFlagSet("check-manager", pflag.ExitOnError)
	config.BindFlags(flags)
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	zl := zerolog.New(os.Stderr).With().Timestamp().Logger()
	ctrl.SetLogger(zerologr.New(&zl))

	cfg, err := config.Load(flags)
	if err != nil {
		zl.Fatal().Err(err).Msg("failed to load configuration")
	}

	metrics.MustRegister()

	hookreg := buildHooks(cfg)
	templates := checktemplate.NewRegistry(exampletemplates.Builtins())
	if cfg.K8sTemplatePath != "" {
		templates.LoadDir(cfg.K8sTemplatePath)
	}

	backend, err := buildBackend(cfg, templates, hookreg)
	if err != nil {
		zl.Fatal().Err(err).Msg("failed to build check backend")
	}
	defer func() {
		if err := backend.Close(); err != nil {
			zl.Warn().Err(err).Msg("error closing check backend")
		}
	}()

	srv := api.New(api.Config{
		Addr:    cfg.Addr,
		BaseURL: cfg.APIBaseURL,
		Backend: backend,
		Hooks:   hookreg,
		Log:     zl,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zl.Info().Str("addr", cfg.Addr).Str("backend", string(cfg.Backend)).Msg("starting check-manager")
	if err := srv.Start(ctx); err != nil {
		zl.Fatal().Err(err).Msg("server exited with error")
	}
}

// buildHooks wires the bundled example hooks into the default chain. These
// are the only hooks the process runs: RH_CHECK_HOOK_DIR_PATH is read into
// the config but no hook plugins are loaded from it.
func buildHooks(cfg *config.Config) *hooks.Registry {
	reg := hooks.New()

	reg.GetSecurityScheme = append(reg.GetSecurityScheme, examplehooks.OIDCSecurityScheme())
	reg.OnAuth = append(reg.OnAuth, examplehooks.OIDCAuthHook("", ""))

	reg.GetK8sConfig = append(reg.GetK8sConfig,
		examplehooks.K8sConfigFromFile(os.Getenv("KUBECONFIG")),
		examplehooks.K8sConfigInCluster(),
	)
	reg.GetK8sNamespace = append(reg.GetK8sNamespace, examplehooks.LookupK8sSecretNamespace("resource-health"))

	reg.GetMockUsername = append(reg.GetMockUsername, func(_ context.Context, auth hooks.UserInfo) (string, bool, error) {
		if auth.Username == "" {
			return "", false, nil
		}
		return auth.Username, true, nil
	})

	return reg
}

func buildBackend(cfg *config.Config, templates *checktemplate.Registry, hookreg *hooks.Registry) (checkbackend.CheckBackend, error) {
	switch cfg.Backend {
	case config.BackendK8s:
		return k8sbackend.New(templates, hookreg), nil
	case config.BackendRemote:
		return remote.New(remoteclient.New(cfg.RemoteURL, 0)), nil
	case config.BackendAggregate:
		return aggregate.New([]checkbackend.CheckBackend{
			mock.New(hookreg),
			k8sbackend.New(templates, hookreg),
		}), nil
	case config.BackendMock, "":
		return mock.New(hookreg), nil
	default:
		return mock.New(hookreg), nil
	}
}
