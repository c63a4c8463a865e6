package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/helmschema/internal/config"
	"github.com/hupe1980/helmschema/internal/ir"
	"github.com/hupe1980/helmschema/internal/schema"
)

func use(expr string, guards ...ir.Guard) ir.ValueUse {
	return ir.ValueUse{SourceExpr: ir.ValuePath(expr), Guards: guards}
}

func TestCompose_ScalarRequired(t *testing.T) {
	uses := []ir.ValueUse{use("replicaCount")}
	defaults := map[string]interface{}{"replicaCount": 3}

	out := schema.Compose(uses, defaults, nil)

	assert.Equal(t, "object", out["type"])

	props, ok := out["properties"].(map[string]interface{})
	require.True(t, ok)

	field, ok := props["replicaCount"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "integer", field["type"])

	required, ok := out["required"].([]string)
	require.True(t, ok)
	assert.Contains(t, required, "replicaCount")
}

func TestCompose_GuardedFieldOptional(t *testing.T) {
	uses := []ir.ValueUse{use("image.pullPolicy", ir.Guard{})}
	defaults := map[string]interface{}{
		"image": map[string]interface{}{"pullPolicy": "IfNotPresent"},
	}

	out := schema.Compose(uses, defaults, nil)

	props := out["properties"].(map[string]interface{})
	image := props["image"].(map[string]interface{})

	if required, ok := image["required"].([]string); ok {
		assert.NotContains(t, required, "pullPolicy")
	}
}

func TestCompose_RequiredOnlyWhenAllUsesUnguarded(t *testing.T) {
	uses := []ir.ValueUse{
		use("service.port"),
		use("service.port", ir.Guard{}),
	}

	out := schema.Compose(uses, nil, nil)

	props := out["properties"].(map[string]interface{})
	svc := props["service"].(map[string]interface{})

	required, ok := svc["required"].([]string)
	require.False(t, ok, "port has a guarded use, so service has no required list")
	assert.NotContains(t, required, "port")
}

func TestCompose_NestedObject(t *testing.T) {
	uses := []ir.ValueUse{use("image.repository"), use("image.tag")}
	defaults := map[string]interface{}{
		"image": map[string]interface{}{"repository": "nginx", "tag": "latest"},
	}

	out := schema.Compose(uses, defaults, nil)

	props := out["properties"].(map[string]interface{})
	image := props["image"].(map[string]interface{})
	assert.Equal(t, "object", image["type"])

	imageProps := image["properties"].(map[string]interface{})
	assert.Equal(t, "string", imageProps["repository"].(map[string]interface{})["type"])
	assert.Equal(t, "string", imageProps["tag"].(map[string]interface{})["type"])
}

func TestCompose_ArrayOfScalars_WithDefault(t *testing.T) {
	uses := []ir.ValueUse{use("args.*")}
	defaults := map[string]interface{}{
		"args": []interface{}{"a", "b"},
	}

	out := schema.Compose(uses, defaults, nil)

	props := out["properties"].(map[string]interface{})
	args := props["args"].(map[string]interface{})
	assert.Equal(t, "array", args["type"])

	items := args["items"].(map[string]interface{})
	assert.Equal(t, "string", items["type"])
}

func TestCompose_ArrayOfScalars_NoDefault(t *testing.T) {
	uses := []ir.ValueUse{use("args.*")}

	out := schema.Compose(uses, nil, nil)

	props := out["properties"].(map[string]interface{})
	args := props["args"].(map[string]interface{})
	assert.Equal(t, "array", args["type"])

	items := args["items"].(map[string]interface{})
	assert.Equal(t, "string", items["type"])
}

func TestCompose_ArrayOfObjects(t *testing.T) {
	uses := []ir.ValueUse{use("ports.*.name"), use("ports.*.containerPort")}
	defaults := map[string]interface{}{
		"ports": []interface{}{
			map[string]interface{}{"name": "http", "containerPort": 80},
		},
	}

	out := schema.Compose(uses, defaults, nil)

	props := out["properties"].(map[string]interface{})
	ports := props["ports"].(map[string]interface{})
	assert.Equal(t, "array", ports["type"])

	items := ports["items"].(map[string]interface{})
	assert.Equal(t, "object", items["type"])

	itemProps := items["properties"].(map[string]interface{})
	assert.Equal(t, "string", itemProps["name"].(map[string]interface{})["type"])
	assert.Equal(t, "integer", itemProps["containerPort"].(map[string]interface{})["type"])
}

func TestCompose_RepeatedUseSameType(t *testing.T) {
	uses := []ir.ValueUse{use("nodeSelector"), use("nodeSelector")}
	defaults := map[string]interface{}{"nodeSelector": map[string]interface{}{"disk": "ssd"}}

	out := schema.Compose(uses, defaults, nil)
	props := out["properties"].(map[string]interface{})
	field := props["nodeSelector"].(map[string]interface{})
	assert.Equal(t, "object", field["type"])
	assert.NotContains(t, field, "oneOf")
}

func TestCompose_SchemaOverride(t *testing.T) {
	uses := []ir.ValueUse{use("image.tag")}
	defaults := map[string]interface{}{"image": map[string]interface{}{"tag": 123}}

	cfg := &config.ExtensibilityConfig{
		SchemaOverrides: map[string]config.SchemaOverride{
			"image.tag": {Type: "string", Description: "container image tag"},
		},
	}

	out := schema.Compose(uses, defaults, cfg)
	props := out["properties"].(map[string]interface{})
	image := props["image"].(map[string]interface{})
	imageProps := image["properties"].(map[string]interface{})
	tag := imageProps["tag"].(map[string]interface{})

	assert.Equal(t, "string", tag["type"])
	assert.Equal(t, "container image tag", tag["description"])
}

func TestCompose_Empty(t *testing.T) {
	out := schema.Compose(nil, nil, nil)
	assert.Equal(t, "object", out["type"])
	assert.NotContains(t, out, "required")
}
