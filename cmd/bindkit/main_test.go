package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(append([]string{"--no-color"}, args...), &out, &errOut)
	return out.String(), errOut.String(), code
}

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const deployment = `
metadata:
  name: web
spec:
  replicas: 2
  ports: [80, 443]
`

func TestVersion(t *testing.T) {
	out, _, code := execute(t, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "bindkit dev")
}

func TestEval_Path(t *testing.T) {
	doc := writeDoc(t, "deploy.yaml", deployment)

	out, _, code := execute(t, "eval", doc, "metadata.name")
	require.Equal(t, 0, code)
	assert.Equal(t, "\"web\"\n", out)

	out, _, code = execute(t, "eval", doc, "spec.ports.1")
	require.Equal(t, 0, code)
	assert.Equal(t, "443\n", out)
}

func TestEval_ExpressionWithSet(t *testing.T) {
	doc := writeDoc(t, "deploy.yaml", deployment)

	out, errOut, code := execute(t, "eval", doc, "${spec.replicas * 2}", "--set", "spec.replicas=5")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "10\n", out)
}

func TestEval_YAMLOutput(t *testing.T) {
	doc := writeDoc(t, "deploy.json", `{"spec": {"replicas": 3}}`)

	out, _, code := execute(t, "-o", "yaml", "eval", doc, "spec")
	require.Equal(t, 0, code)
	assert.Equal(t, "replicas: 3\n", out)
}

func TestEval_Errors(t *testing.T) {
	doc := writeDoc(t, "deploy.yaml", deployment)

	_, errOut, code := execute(t, "eval", doc, "spec.missing")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Error:")

	_, errOut, code = execute(t, "eval", doc, "name", "--set", "novalue")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "want path=value")

	_, _, code = execute(t, "eval", filepath.Join(t.TempDir(), "none.yaml"), "x")
	assert.Equal(t, 1, code)
}

func TestInvalidConfig(t *testing.T) {
	cfg := writeDoc(t, "bindkit.toml", "[log]\nlevel = \"loud\"\n")
	_, errOut, code := execute(t, "--config", cfg, "version")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "log.level")
}

func TestDemo(t *testing.T) {
	out, errOut, code := execute(t, "demo")
	require.Equal(t, 0, code, errOut)

	for _, want := range []string{
		"start: bindings active",
		`field: name="A" street="Main" city="Springfield"`,
		"name: A -> B",
		"address: address.street = Elm",
		"name: B -> B!",
		"friends: ann, bob, carol",
		"selected: carol",
		"address: address.street = Oak",
		`field: name="B!" street="Pine" city="Capital City"`,
		"summary: B! lives on Pine",
		`"street": "Pine"`,
	} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "name: A -> B"), strings.Index(out, "name: B -> B!"))
	assert.Contains(t, errOut, "object")
}

func TestDemo_Script(t *testing.T) {
	script := writeDoc(t, "echo.lua", `
watch("name", function(ev) print("script saw " .. ev.new) end)
`)
	_, errOut, code := execute(t, "demo", "--script", script)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, errOut, "script saw B")
}
