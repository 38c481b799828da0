package cli_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/starmeasgo/internal/cli"
	"github.com/vk/starmeasgo/internal/testutil"
)

func TestParse_NoArgsPrintsUsage(t *testing.T) {
	out := &testutil.SafeBuffer{}

	cfg, shouldExit, err := cli.Parse(nil, out)

	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "starmeas - Source-measurement pipeline runner.")
}

func TestParse_PositionalPath(t *testing.T) {
	out := &testutil.SafeBuffer{}

	cfg, shouldExit, err := cli.Parse([]string{"pipelines/"}, out)

	require.NoError(t, err)
	assert.False(t, shouldExit)
	require.NotNil(t, cfg)
	assert.Equal(t, "pipelines/", cfg.PipelinePath)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Plan)
}

func TestParse_Flags(t *testing.T) {
	out := &testutil.SafeBuffer{}

	cfg, shouldExit, err := cli.Parse([]string{
		"-pipeline", "run.hcl",
		"-plan",
		"-log-format", "json",
		"-log-level", "DEBUG",
		"-metadata-out", "md.yaml",
	}, out)

	require.NoError(t, err)
	assert.False(t, shouldExit)
	require.NotNil(t, cfg)
	assert.Equal(t, "run.hcl", cfg.PipelinePath)
	assert.True(t, cfg.Plan)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel, "level comparison is case-insensitive")
	assert.Equal(t, "md.yaml", cfg.MetadataOut)
}

func TestParse_ShorthandPathFlag(t *testing.T) {
	out := &testutil.SafeBuffer{}

	cfg, _, err := cli.Parse([]string{"-p", "run.hcl"}, out)

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "run.hcl", cfg.PipelinePath)
}

func TestParse_InvalidLogLevel(t *testing.T) {
	out := &testutil.SafeBuffer{}

	_, _, err := cli.Parse([]string{"-log-level", "loud", "run.hcl"}, out)

	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, exitErr.Message, "invalid log-level")
}

func TestParse_InvalidLogFormat(t *testing.T) {
	out := &testutil.SafeBuffer{}

	_, _, err := cli.Parse([]string{"-log-format", "xml", "run.hcl"}, out)

	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}

func TestParse_UnknownFlag(t *testing.T) {
	out := &testutil.SafeBuffer{}

	_, _, err := cli.Parse([]string{"-frobnicate"}, out)

	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}
