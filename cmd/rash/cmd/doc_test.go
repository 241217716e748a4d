package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocModules_TextListsRegisteredModules(t *testing.T) {
	docModulesJSON = false
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"doc", "modules"})

	err := rootCmd.Execute()
	require.NoError(t, err)

	assert.Contains(t, out.String(), "copy")
	assert.Contains(t, out.String(), "command")
	assert.Contains(t, out.String(), "docker_container")
}

func TestDocModules_JSONIncludesSchemaForCopy(t *testing.T) {
	docModulesJSON = true
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"doc", "modules", "--json"})
	defer func() { docModulesJSON = false }()

	err := rootCmd.Execute()
	require.NoError(t, err)

	assert.Contains(t, out.String(), `"name": "copy"`)
	assert.Contains(t, out.String(), `"schema"`)
}
