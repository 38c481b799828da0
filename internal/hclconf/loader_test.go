package hclconf_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/starmeasgo/internal/config"
	"github.com/vk/starmeasgo/internal/hclconf"
	"github.com/vk/starmeasgo/internal/testutil"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

const fullPipeline = `
pipeline {
  plugin "base_NaiveCentroid" {
    radius = 5
  }
  plugin "base_PsfFlux" {}
  plugin "base_CircularApertureFlux" {
    radii = [3.0, 12.0]
  }

  undeblended = ["base_PsfFlux"]

  slots {
    centroid   = "base_NaiveCentroid"
    model_flux = null
  }

  aperture_correction {
    names              = ["base_PsfFlux"]
    use_naive_flux_err = false
  }

  dataset {
    width    = 100
    height   = 100
    variance = 0.25

    source {
      x    = 50
      y    = 50
      flux = 1000
    }
  }
}
`

func TestLoader_FullPipeline(t *testing.T) {
	dir := writeFiles(t, map[string]string{"pipeline.hcl": fullPipeline})

	model, conv, err := hclconf.NewLoader().Load(testutil.SilentContext(), dir)
	require.NoError(t, err)
	require.NotNil(t, model.Pipeline)

	p := model.Pipeline
	require.Len(t, p.Plugins, 3)
	assert.Equal(t, "base_NaiveCentroid", p.Plugins[0].Name)
	assert.Equal(t, []string{"base_PsfFlux"}, p.Undeblended)

	require.NotNil(t, p.Slots)
	require.NotNil(t, p.Slots.Centroid)
	assert.Equal(t, "base_NaiveCentroid", *p.Slots.Centroid)
	require.NotNil(t, p.Slots.ModelFlux)
	assert.Empty(t, *p.Slots.ModelFlux, "null disables the role")
	assert.Nil(t, p.Slots.Shape, "absent roles keep the application default")

	require.NotNil(t, p.ApCorr)
	assert.Equal(t, []string{"base_PsfFlux"}, p.ApCorr.Names)
	require.NotNil(t, p.ApCorr.UseNaiveFluxErr)
	assert.False(t, *p.ApCorr.UseNaiveFluxErr)

	require.NotNil(t, p.Dataset)
	assert.Equal(t, 100, p.Dataset.Width)
	assert.Equal(t, 0.25, p.Dataset.Variance)
	require.Len(t, p.Dataset.Sources, 1)
	assert.Equal(t, 1000.0, p.Dataset.Sources[0].Flux)

	// Plugin option bodies decode against the plugin's own config struct.
	var opts struct {
		Radius     int     `hcl:"radius,optional"`
		Background float64 `hcl:"background,optional"`
	}
	opts.Radius = 7
	require.NoError(t, conv.DecodeBody(testutil.SilentContext(), p.Plugins[0].Body, &opts))
	assert.Equal(t, 5, opts.Radius)
	assert.Equal(t, 0.0, opts.Background)
}

func TestLoader_DecodeBodyKeepsDefaults(t *testing.T) {
	dir := writeFiles(t, map[string]string{"pipeline.hcl": `
pipeline {
  plugin "base_NaiveCentroid" {}
}
`})

	model, conv, err := hclconf.NewLoader().Load(testutil.SilentContext(), dir)
	require.NoError(t, err)

	var opts struct {
		Radius int `hcl:"radius,optional"`
	}
	opts.Radius = 7
	require.NoError(t, conv.DecodeBody(testutil.SilentContext(), model.Pipeline.Plugins[0].Body, &opts))
	assert.Equal(t, 7, opts.Radius, "absent attributes leave pre-set defaults alone")
}

func TestLoader_NoPipelineBlock(t *testing.T) {
	dir := writeFiles(t, map[string]string{"empty.hcl": ``})

	_, _, err := hclconf.NewLoader().Load(testutil.SilentContext(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no pipeline block found")
}

func TestLoader_MultiplePipelineBlocks(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.hcl": `pipeline {}`,
		"b.hcl": `pipeline {}`,
	})

	_, _, err := hclconf.NewLoader().Load(testutil.SilentContext(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple pipeline blocks")
}

func TestLoader_UnknownSlotRole(t *testing.T) {
	dir := writeFiles(t, map[string]string{"pipeline.hcl": `
pipeline {
  slots {
    nonsense = "base_NaiveCentroid"
  }
}
`})

	_, _, err := hclconf.NewLoader().Load(testutil.SilentContext(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown slot role "nonsense"`)
}

func TestLoader_NonStringSlotBinding(t *testing.T) {
	dir := writeFiles(t, map[string]string{"pipeline.hcl": `
pipeline {
  slots {
    centroid = 42
  }
}
`})

	_, _, err := hclconf.NewLoader().Load(testutil.SilentContext(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a string or null")
}

func TestLoader_MissingPath(t *testing.T) {
	_, _, err := hclconf.NewLoader().Load(testutil.SilentContext(), "/does/not/exist")
	require.Error(t, err)
}

func TestLoader_MergesAcrossFiles(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"notes.hcl": ``,
		"pipeline.hcl": `
pipeline {
  plugin "base_PeakCentroid" {}
}
`,
	})

	model, _, err := hclconf.NewLoader().Load(testutil.SilentContext(), dir)
	require.NoError(t, err)
	require.Len(t, model.Pipeline.Plugins, 1)
	assert.IsType(t, &config.PluginBlock{}, model.Pipeline.Plugins[0])
}
