package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestVersionCommand(t *testing.T) {
	out := runCommand(t, "version")
	assert.Contains(t, out, "nplift")
	assert.Contains(t, out, Version)
}

func TestSymbolsCommand(t *testing.T) {
	out := runCommand(t, "symbols")
	assert.Contains(t, out, "aops_dot[float64,float64,float64]")
	assert.Contains(t, out, "aops_argmin[float32,int64]")
	assert.Contains(t, out, "32 symbols installed")
}

func TestSymbolsCommandJSON(t *testing.T) {
	out := runCommand(t, "symbols", "--json")

	var symbols []struct {
		Op    string   `json:"op"`
		Types []string `json:"types"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &symbols))
	assert.Len(t, symbols, 32)

	found := false
	for _, s := range symbols {
		if s.Op == "aops_sum" && strings.Join(s.Types, ",") == "float64,none" {
			found = true
		}
	}
	assert.True(t, found, "sum key carries the sentinel return slot")
}
