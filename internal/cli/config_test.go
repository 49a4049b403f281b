package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/soypat/gshade"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), defaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), defaultConfigFile)
	cfg, err := LoadConfig(missing, true)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	_, err = LoadConfig(missing, false)
	assert.Error(t, err, "explicit config file must exist")
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
functions_dir = "shaders/functions"
output_ext = ".glsl"
surface_import = "engine/surface.glsl"
default_texture = "textures/white.png"
alpha_threshold = 0.5
`)
	cfg, err := LoadConfig(path, false)
	require.NoError(t, err)
	assert.Equal(t, "shaders/functions", cfg.FunctionsDir)
	assert.Equal(t, ".glsl", cfg.OutputExt)
	assert.Equal(t, "engine/surface.glsl", cfg.SurfaceImport)
	assert.Empty(t, cfg.ParticleImport)
	require.NotNil(t, cfg.AlphaThreshold)
	assert.Equal(t, float32(0.5), *cfg.AlphaThreshold)
	assert.Equal(t, "engine/surface.glsl", cfg.CompilerConfig().SurfaceImport)
}

func TestLoadConfigRejects(t *testing.T) {
	for name, content := range map[string]string{
		"unknown key":       `functions = "x"`,
		"syntax":            `output_ext = `,
		"ext without dot":   `output_ext = "glsl"`,
		"graph ext":         `output_ext = "` + gshade.FileExt + `"`,
		"threshold too big": `alpha_threshold = 1.5`,
		"negative":          `alpha_threshold = -0.25`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, content), false)
			assert.Error(t, err)
		})
	}
}

func TestConfigApply(t *testing.T) {
	g, err := gshade.NewGraph(gshade.KindSurface)
	require.NoError(t, err)
	out := g.Root().(*gshade.OutputNode)
	out.Masked = true
	out.AlphaThreshold = 0.125
	bare, err := g.AddNode(gshade.KindSample)
	require.NoError(t, err)
	set, err := g.AddNode(gshade.KindSample)
	require.NoError(t, err)
	set.(*gshade.SampleNode).Texture = "textures/rock.png"

	DefaultConfig().apply(g)
	assert.Equal(t, float32(0.125), out.AlphaThreshold, "threshold kept without override")
	assert.Empty(t, bare.(*gshade.SampleNode).Texture)

	threshold := float32(0.75)
	cfg := DefaultConfig()
	cfg.AlphaThreshold = &threshold
	cfg.DefaultTexture = "textures/white.png"
	cfg.apply(g)
	assert.Equal(t, float32(0.75), out.AlphaThreshold)
	assert.Equal(t, "textures/white.png", bare.(*gshade.SampleNode).Texture)
	assert.Equal(t, "textures/rock.png", set.(*gshade.SampleNode).Texture)
}
