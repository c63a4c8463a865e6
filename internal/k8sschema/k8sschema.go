// Package k8sschema provides a static Kubernetes JSON Schema lookup used
// by the schema composer to annotate value-use paths that land inside a
// known Kubernetes field: given a Resource Reference and YAML path, it
// returns a JSON Schema fragment or none. The table is compiled in, not
// fetched or cached from a downloader — helmschema never talks to the
// network.
package k8sschema

import (
	"strings"

	"github.com/hupe1980/helmschema/internal/ir"
)

// Provider looks up JSON Schema fragments for known Kubernetes resource
// fields. The zero value is ready to use.
type Provider struct{}

// New returns a Provider backed by the built-in field table.
func New() *Provider {
	return &Provider{}
}

// SchemaForPath returns the JSON Schema fragment for the field at path
// within the given resource's spec, or nil if the (kind, path) pair
// isn't in the built-in table. It never resolves $ref or fetches
// anything — the table only ever holds fully expanded fragments.
func (p *Provider) SchemaForPath(resource ir.Resource, path ir.YAMLPath) map[string]interface{} {
	fields, ok := fieldTables[resource.Kind]
	if !ok {
		return nil
	}

	key := normalizeKey(path)

	frag, ok := fields[key]
	if !ok {
		return nil
	}

	return cloneFragment(frag)
}

// normalizeKey collapses a YAMLPath into the dotted, list-marker-free
// key the table is indexed by, e.g. "spec.template.spec.containers[*].image"
// becomes "spec.template.spec.containers.image".
func normalizeKey(path ir.YAMLPath) string {
	segs := make([]string, 0, len(path))

	for _, s := range path {
		seg := strings.TrimSuffix(string(s), "[*]")
		if seg == "" {
			continue
		}

		segs = append(segs, seg)
	}

	return strings.Join(segs, ".")
}

func cloneFragment(frag map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(frag))
	for k, v := range frag {
		out[k] = v
	}

	return out
}

// fieldTables holds a hand-curated subset of the well-known Kubernetes
// workload/service/networking kinds' schemas, keyed by the dotted path
// within that kind's document (including "apiVersion"/"kind"/"metadata"
// at the root). It does not attempt full coverage of the Kubernetes API
// surface (spec §1's Non-goal: "supporting CRDs absent from the schema
// database"); it covers the fields inference most commonly lands on.
var fieldTables = map[string]map[string]interface{}{
	"Deployment":  workloadFields("Deployment"),
	"StatefulSet": workloadFields("StatefulSet"),
	"DaemonSet":   workloadFields("DaemonSet"),
	"ReplicaSet":  workloadFields("ReplicaSet"),
	"Job":         jobFields(),
	"CronJob":     cronJobFields(),
	"Pod":         podFields(),
	"Service": {
		"metadata.name":            stringSchema(),
		"spec.type":                enumSchema("ClusterIP", "NodePort", "LoadBalancer", "ExternalName"),
		"spec.selector":            objectSchema(),
		"spec.ports.name":          stringSchema(),
		"spec.ports.port":          integerSchema(),
		"spec.ports.targetPort":    integerOrStringSchema(),
		"spec.ports.protocol":     enumSchema("TCP", "UDP", "SCTP"),
		"spec.clusterIP":           stringSchema(),
		"spec.externalName":        stringSchema(),
	},
	"Ingress": {
		"metadata.name":                        stringSchema(),
		"spec.ingressClassName":                stringSchema(),
		"spec.rules.host":                      stringSchema(),
		"spec.rules.http.paths.path":           stringSchema(),
		"spec.rules.http.paths.pathType":       enumSchema("Exact", "Prefix", "ImplementationSpecific"),
		"spec.tls.hosts":                       arraySchema(stringSchema()),
		"spec.tls.secretName":                  stringSchema(),
	},
	"ConfigMap": {
		"metadata.name": stringSchema(),
		"data":          objectSchema(),
	},
	"Secret": {
		"metadata.name": stringSchema(),
		"type":          stringSchema(),
		"data":          objectSchema(),
		"stringData":    objectSchema(),
	},
	"ServiceAccount": {
		"metadata.name":                   stringSchema(),
		"automountServiceAccountToken":    booleanSchema(),
		"imagePullSecrets.name":           stringSchema(),
	},
	"HorizontalPodAutoscaler": {
		"spec.minReplicas":    integerSchema(),
		"spec.maxReplicas":    integerSchema(),
		"spec.scaleTargetRef.name": stringSchema(),
		"spec.scaleTargetRef.kind": stringSchema(),
	},
	"PersistentVolumeClaim": {
		"metadata.name":                     stringSchema(),
		"spec.accessModes":                  arraySchema(stringSchema()),
		"spec.storageClassName":             stringSchema(),
		"spec.resources.requests.storage":   stringSchema(),
	},
	"NetworkPolicy": {
		"metadata.name":             stringSchema(),
		"spec.podSelector":          objectSchema(),
		"spec.policyTypes":          arraySchema(enumSchema("Ingress", "Egress")),
	},
	"PodDisruptionBudget": {
		"spec.minAvailable":   integerOrStringSchema(),
		"spec.maxUnavailable": integerOrStringSchema(),
	},
}

func workloadFields(kind string) map[string]interface{} {
	fields := map[string]interface{}{
		"metadata.name":                                          stringSchema(),
		"spec.replicas":                                          integerSchema(),
		"spec.selector":                                          objectSchema(),
		"spec.template.metadata.labels":                          objectSchema(),
		"spec.template.metadata.annotations":                     objectSchema(),
		"spec.template.spec.serviceAccountName":                  stringSchema(),
		"spec.template.spec.nodeSelector":                        objectSchema(),
		"spec.template.spec.tolerations":                         arraySchema(objectSchema()),
		"spec.template.spec.affinity":                            objectSchema(),
		"spec.template.spec.containers.name":                     stringSchema(),
		"spec.template.spec.containers.image":                    stringSchema(),
		"spec.template.spec.containers.imagePullPolicy":          enumSchema("Always", "IfNotPresent", "Never"),
		"spec.template.spec.containers.command":                  arraySchema(stringSchema()),
		"spec.template.spec.containers.args":                     arraySchema(stringSchema()),
		"spec.template.spec.containers.ports.containerPort":      integerSchema(),
		"spec.template.spec.containers.env.name":                 stringSchema(),
		"spec.template.spec.containers.env.value":                stringSchema(),
		"spec.template.spec.containers.resources.limits.cpu":     stringSchema(),
		"spec.template.spec.containers.resources.limits.memory":  stringSchema(),
		"spec.template.spec.containers.resources.requests.cpu":   stringSchema(),
		"spec.template.spec.containers.resources.requests.memory": stringSchema(),
		"spec.template.spec.volumes.name":                        stringSchema(),
		"spec.template.spec.imagePullSecrets.name":                stringSchema(),
	}

	if kind == "StatefulSet" {
		fields["spec.serviceName"] = stringSchema()
		fields["spec.volumeClaimTemplates"] = arraySchema(objectSchema())
	}

	if kind == "Deployment" {
		fields["spec.strategy.type"] = enumSchema("Recreate", "RollingUpdate")
	}

	return fields
}

func jobFields() map[string]interface{} {
	return map[string]interface{}{
		"metadata.name":                    stringSchema(),
		"spec.backoffLimit":                integerSchema(),
		"spec.completions":                 integerSchema(),
		"spec.parallelism":                 integerSchema(),
		"spec.template.spec.restartPolicy": enumSchema("Never", "OnFailure"),
		"spec.template.spec.containers.image": stringSchema(),
	}
}

func cronJobFields() map[string]interface{} {
	return map[string]interface{}{
		"metadata.name":              stringSchema(),
		"spec.schedule":              stringSchema(),
		"spec.suspend":               booleanSchema(),
		"spec.concurrencyPolicy":     enumSchema("Allow", "Forbid", "Replace"),
		"spec.successfulJobsHistoryLimit": integerSchema(),
		"spec.failedJobsHistoryLimit":     integerSchema(),
	}
}

func podFields() map[string]interface{} {
	return map[string]interface{}{
		"metadata.name":                          stringSchema(),
		"spec.restartPolicy":                     enumSchema("Always", "OnFailure", "Never"),
		"spec.serviceAccountName":                stringSchema(),
		"spec.containers.name":                   stringSchema(),
		"spec.containers.image":                  stringSchema(),
	}
}

func stringSchema() map[string]interface{}  { return map[string]interface{}{"type": "string"} }
func integerSchema() map[string]interface{} { return map[string]interface{}{"type": "integer"} }
func booleanSchema() map[string]interface{} { return map[string]interface{}{"type": "boolean"} }
func objectSchema() map[string]interface{}  { return map[string]interface{}{"type": "object"} }

func arraySchema(items map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"type": "array", "items": items}
}

func enumSchema(values ...string) map[string]interface{} {
	enum := make([]interface{}, len(values))
	for i, v := range values {
		enum[i] = v
	}

	return map[string]interface{}{"type": "string", "enum": enum}
}

func integerOrStringSchema() map[string]interface{} {
	return map[string]interface{}{
		"oneOf": []interface{}{
			map[string]interface{}{"type": "integer"},
			map[string]interface{}{"type": "string"},
		},
	}
}
