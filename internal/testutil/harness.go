package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/starmeasgo/internal/app"
	"github.com/vk/starmeasgo/internal/hclconf"
)

// HarnessResult holds the outcomes of an end-to-end pipeline test run.
type HarnessResult struct {
	LogOutput string
	Err       error
	Panic     any
	App       *app.App
}

// RunPipelineTest writes the given HCL files into a temporary directory,
// constructs an App over them, and runs it. App construction panics on
// configuration errors, so the panic value is captured for assertions
// instead of failing the test.
func RunPipelineTest(t *testing.T, files map[string]string) *HarnessResult {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", ".tmp-pipeline-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))
	}

	appConfig, err := app.NewConfig(app.Config{
		PipelinePath: tmpDir,
		LogLevel:     "debug",
		LogFormat:    "text",
	})
	require.NoError(t, err)

	logBuffer := &SafeBuffer{}
	result := &HarnessResult{}

	func() {
		defer func() {
			if r := recover(); r != nil {
				result.Panic = r
			}
		}()
		result.App = app.New(logBuffer, appConfig, hclconf.NewLoader())
		result.Err = result.App.Run(context.Background(), appConfig)
	}()

	result.LogOutput = logBuffer.String()
	return result
}
