package plugin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/starmeasgo/internal/plugin"
	"github.com/vk/starmeasgo/internal/schema"
)

func TestFlagHandler_HandleFailure(t *testing.T) {
	s := schema.New()
	var defs plugin.FlagDefinitionList
	failBit := defs.AddFailureFlag("general failure")
	edgeBit := defs.Add("edge", "source too close to the image edge")

	h, err := plugin.AddFlagFields(s, "base_Test", &defs)
	require.NoError(t, err)
	require.True(t, s.HasField("base_Test_flag"))
	require.True(t, s.HasField("base_Test_edge"))

	t.Run("measurement error sets general and sub flag", func(t *testing.T) {
		rec := schema.NewRecord(s)
		h.HandleFailure(rec, plugin.NewMeasurementError("off the edge", edgeBit))
		assert.True(t, h.GetFlag(rec, failBit))
		assert.True(t, h.GetFlag(rec, edgeBit))
	})

	t.Run("fatal error sets only the general flag", func(t *testing.T) {
		rec := schema.NewRecord(s)
		h.HandleFailure(rec, plugin.NewFatalError("no psf attached"))
		assert.True(t, h.GetFlag(rec, failBit))
		assert.False(t, h.GetFlag(rec, edgeBit))
	})

	t.Run("undefined flag bit sets only the general flag", func(t *testing.T) {
		rec := schema.NewRecord(s)
		h.HandleFailure(rec, plugin.NewMeasurementError("unspecified", plugin.FlagBitUndefined))
		assert.True(t, h.GetFlag(rec, failBit))
		assert.False(t, h.GetFlag(rec, edgeBit))
	})
}

func TestAddFlagFieldsExcluding(t *testing.T) {
	s := schema.New()
	var defs plugin.FlagDefinitionList
	failBit := defs.AddFailureFlag("general failure")
	sincBit := defs.Add("sincCoeffsTruncated", "sinc support truncated")

	h, err := plugin.AddFlagFieldsExcluding(s, "base_Test", &defs,
		map[string]bool{"sincCoeffsTruncated": true})
	require.NoError(t, err)

	assert.True(t, h.HasFlag(failBit))
	assert.False(t, h.HasFlag(sincBit), "excluded bits keep invalid keys")
	assert.False(t, s.HasField("base_Test_sincCoeffsTruncated"))

	rec := schema.NewRecord(s)
	require.Panics(t, func() { h.SetFlag(rec, sincBit, true) })

	// An error carrying the excluded bit still sets the general flag.
	h.HandleFailure(rec, plugin.NewMeasurementError("truncated", sincBit))
	assert.True(t, h.GetFlag(rec, failBit))
}
