package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("no markers & <raw>", nil)
	require.NoError(t, err)
	assert.Equal(t, "no markers & <raw>", out)

	out, err = RenderTemplate(`Hello {{ .name | upper }} from {{ default "n/a" .org }} & co`, map[string]any{"name": "ada"})
	require.NoError(t, err)
	assert.Equal(t, "Hello ADA from n/a & co", out)

	_, err = RenderTemplate("{{ .broken", nil)
	assert.Error(t, err)
}
