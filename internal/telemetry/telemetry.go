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

// Package telemetry injects the OpenTelemetry resource-attribute and OTLP
// exporter wiring CronjobMaker stamps onto every materialised check's
// container, so that its emitted traces can be filtered back to the check
// that produced them (see checktypes.OutcomeFilter).
package telemetry

import (
	"os"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	corev1 "k8s.io/api/core/v1"
)

// ResourceAttributesEnvVar is the name of the env var injected into the
// check's runner container.
const ResourceAttributesEnvVar = "OTEL_RESOURCE_ATTRIBUTES"

// BuildResourceAttributes formats the three resource attributes every check
// carries, using otel/attribute for typed key construction rather than raw
// string concatenation.
func BuildResourceAttributes(checkID, username, name string) string {
	kvs := []attribute.KeyValue{
		attribute.String("k8s.cronjob.name", checkID),
		attribute.String("user.id", username),
		attribute.String("health_check.name", name),
	}
	parts := make([]string, len(kvs))
	for i, kv := range kvs {
		parts[i] = string(kv.Key) + "=" + kv.Value.AsString()
	}
	return strings.Join(parts, ",")
}

// InjectResourceAttributes appends OTEL_RESOURCE_ATTRIBUTES to the first
// container's env. The caller guarantees containers is non-empty.
func InjectResourceAttributes(containers []corev1.Container, checkID, username, name string) {
	containers[0].Env = append(containers[0].Env, corev1.EnvVar{
		Name:  ResourceAttributesEnvVar,
		Value: BuildResourceAttributes(checkID, username, name),
	})
}

// OTLPExporterConfig is read from the process environment once at process
// start and threaded into every CronjobMaker.
type OTLPExporterConfig struct {
	Endpoint      string
	TLSSecretName string
}

// OTLPExporterConfigFromEnv reads OTEL_EXPORTER_OTLP_ENDPOINT and
// CHECK_MANAGER_COLLECTOR_TLS_SECRET per spec §6.2.
func OTLPExporterConfigFromEnv() OTLPExporterConfig {
	return OTLPExporterConfig{
		Endpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TLSSecretName: os.Getenv("CHECK_MANAGER_COLLECTOR_TLS_SECRET"),
	}
}

// InjectOTLPExporter conditionally appends the OTLP endpoint env var and,
// when a TLS secret name is configured, mounts it at /tls read-only and
// wires the cert/key/CA env vars. podSpec must have at least one container.
func InjectOTLPExporter(podSpec *corev1.PodSpec, cfg OTLPExporterConfig) {
	container := &podSpec.Containers[0]

	if cfg.Endpoint != "" {
		container.Env = append(container.Env, corev1.EnvVar{
			Name:  "OTEL_EXPORTER_OTLP_ENDPOINT",
			Value: cfg.Endpoint,
		})
	}

	if cfg.TLSSecretName != "" {
		container.Env = append(container.Env,
			corev1.EnvVar{Name: "OTEL_EXPORTER_OTLP_CERTIFICATE", Value: "/tls/ca.crt"},
			corev1.EnvVar{Name: "OTEL_EXPORTER_OTLP_CLIENT_KEY", Value: "/tls/tls.key"},
			corev1.EnvVar{Name: "OTEL_EXPORTER_OTLP_CLIENT_CERTIFICATE", Value: "/tls/tls.crt"},
		)
		container.VolumeMounts = append(container.VolumeMounts, corev1.VolumeMount{
			Name:      "tls",
			MountPath: "/tls",
			ReadOnly:  true,
		})
		podSpec.Volumes = append(podSpec.Volumes, corev1.Volume{
			Name: "tls",
			VolumeSource: corev1.VolumeSource{
				Secret: &corev1.SecretVolumeSource{
					SecretName: cfg.TLSSecretName,
				},
			},
		})
	}
}
