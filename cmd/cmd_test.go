package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"gotest.tools/assert"

	"github.com/gaurav-prasanna/gtmkit/config"
	"github.com/gaurav-prasanna/gtmkit/core/export"
	"github.com/gaurav-prasanna/gtmkit/core/store"
)

func TestSelectedFormats(t *testing.T) {
	t.Cleanup(func() { flagTxt, flagDOCX, flagPDF, flagAll = false, false, false, false })

	_, err := selectedFormats()
	assert.ErrorContains(t, err, "at least one output format")

	flagDOCX, flagPDF = true, true
	formats, err := selectedFormats()
	assert.NilError(t, err)
	assert.DeepEqual(t, formats, []export.Format{export.FormatDOCX, export.FormatPDF})

	flagAll = true
	formats, err = selectedFormats()
	assert.NilError(t, err)
	assert.Equal(t, len(formats), 5)
}

func TestReadBrief(t *testing.T) {
	dir := t.TempDir()

	brief, err := readBrief("")
	assert.NilError(t, err)
	assert.Assert(t, brief == nil)

	jsonPath := filepath.Join(dir, "brief.json")
	assert.NilError(t, os.WriteFile(jsonPath, []byte(`{"goal":"launch"}`), 0o644))
	brief, err = readBrief(jsonPath)
	assert.NilError(t, err)
	assert.Equal(t, string(brief), `{"goal":"launch"}`)

	textPath := filepath.Join(dir, "brief.txt")
	assert.NilError(t, os.WriteFile(textPath, []byte("sell more bikes"), 0o644))
	brief, err = readBrief(textPath)
	assert.NilError(t, err)
	var s string
	assert.NilError(t, json.Unmarshal(brief, &s))
	assert.Equal(t, s, "sell more bikes")
}

func TestServeGeneratorWithoutAPIKey(t *testing.T) {
	prevCfg, prevLogger := cfg, logger
	t.Cleanup(func() { cfg, logger = prevCfg, prevLogger })
	cfg = config.DefaultConfig()
	cfg.Generation.APIKey = ""
	logger = zap.NewNop()

	st, err := store.OpenMemory()
	assert.NilError(t, err)
	t.Cleanup(func() { st.Close() })

	gen, err := serveGenerator(st)
	assert.NilError(t, err)
	assert.Assert(t, gen == nil)

	cfg.Generation.Provider = "mock"
	gen, err = serveGenerator(st)
	assert.NilError(t, err)
	assert.Assert(t, gen != nil)
}
