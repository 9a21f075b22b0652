package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsInvalidCommands(t *testing.T) {
	for _, argv := range [][]string{
		nil,
		{},
		{""},
		{"frobnicate"},
		{"change-preset"},
		{"change-preset", "0"},
		{"change-preset", "201"},
		{"change-preset", "abc"},
		{"upload-preset"},
		{"upload-preset", "3"},
		{"upload-preset", "0", "Clean"},
		{"import-preset", "yaml", "a.yaml"},
		{"import-preset", "phb"},
		{"export-preset", "42"},
		{"export-preset", "42", "yaml"},
		{"parse-preset"},
	} {
		assert.Nil(t, New(argv), "%v", argv)
	}
}

func TestNewSimpleVerbs(t *testing.T) {
	for verb, kind := range map[string]Kind{
		"cli":          KindCLI,
		"help":         KindHelp,
		"quit":         KindQuit,
		"list-presets": KindListPresets,
		"init":         KindInit,
		"get-presets":  KindGetPresets,
		"get-extras":   KindGetExtras,
		"interrupt":    KindInterrupt,
	} {
		tk := New([]string{verb})
		require.NotNil(t, tk, verb)
		assert.Equal(t, kind, tk.Kind)
	}
}

func TestNewIsCaseInsensitive(t *testing.T) {
	tk := New([]string{"Change-Preset", "42"})
	require.NotNil(t, tk)
	assert.Equal(t, KindChangePreset, tk.Kind)
	assert.Equal(t, 42, tk.Nums[0])

	tk = New([]string{"IMPORT-PRESET", "PHB", "a.phb"})
	require.NotNil(t, tk)
	assert.Equal(t, KindImportPreset, tk.Kind)
	assert.True(t, tk.PHB(0))

	tk = New([]string{"import-preset", "Binary", "a.bhb"})
	require.NotNil(t, tk)
	assert.False(t, tk.PHB(0))
}

func TestParsePresetSlotVsName(t *testing.T) {
	tk := New([]string{"parse-preset", "42"})
	require.NotNil(t, tk)
	assert.Equal(t, 42, tk.Nums[0])
	assert.Empty(t, tk.Texts[0])

	tk = New([]string{"parse-preset", "clean"})
	require.NotNil(t, tk)
	assert.Zero(t, tk.Nums[0])
	assert.Equal(t, "clean", tk.Texts[0])

	// Four digits never read as a slot.
	tk = New([]string{"parse-preset", "1234"})
	require.NotNil(t, tk)
	assert.Zero(t, tk.Nums[0])
	assert.Equal(t, "1234", tk.Texts[0])

	// Not a positive integer.
	tk = New([]string{"parse-preset", "0"})
	require.NotNil(t, tk)
	assert.Zero(t, tk.Nums[0])
	assert.Equal(t, "0", tk.Texts[0])
}

func TestExportPresetArity(t *testing.T) {
	tk := New([]string{"export-preset", "42", "phb"})
	require.NotNil(t, tk)
	assert.Equal(t, 42, tk.Nums[0])
	assert.True(t, tk.PHB(1))
	assert.Empty(t, tk.Texts[1])

	tk = New([]string{"export-preset", "Lead", "binary", "out.bhb"})
	require.NotNil(t, tk)
	assert.Equal(t, "Lead", tk.Texts[0])
	assert.False(t, tk.PHB(1))
	assert.Equal(t, "out.bhb", tk.Texts[1])
}

func TestUploadPreset(t *testing.T) {
	tk := New([]string{"upload-preset", "3", "Clean"})
	require.NotNil(t, tk)
	assert.Equal(t, KindUploadPreset, tk.Kind)
	assert.Equal(t, 3, tk.Nums[0])
	assert.Equal(t, "Clean", tk.Texts[0])
}

func TestCompletionRunsOnce(t *testing.T) {
	tk := New([]string{"init"})
	require.NotNil(t, tk)
	calls := 0
	var gotCode int
	var gotCtx any
	tk.AttachCompletion("ctx", func(code int, _ any, ctx any) {
		calls++
		gotCode = code
		gotCtx = ctx
	})
	tk.Complete(CodeOK, nil)
	tk.Complete(CodeIOError, nil)
	assert.Equal(t, 1, calls)
	assert.Equal(t, CodeOK, gotCode)
	assert.Equal(t, "ctx", gotCtx)
}

func TestCompleteWithoutCallback(t *testing.T) {
	tk := New([]string{"init"})
	require.NotNil(t, tk)
	assert.NotPanics(t, func() { tk.Complete(CodeOK, nil) })
}
