package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/moviefind/internal/config"
	"github.com/John-Robertt/moviefind/internal/domain"
	"github.com/John-Robertt/moviefind/internal/present"
)

func TestParseFindArgs(t *testing.T) {
	fa, err := parseFindArgs([]string{"--engine", "duckduckgo", "матрица", "--json", "перезагрузка"})
	require.NoError(t, err)
	assert.Equal(t, "матрица перезагрузка", fa.Query)
	assert.True(t, fa.EngineSet)
	assert.Equal(t, "duckduckgo", fa.Engine)
	assert.True(t, fa.JSON)

	fa, err = parseFindArgs([]string{"--config=my.yaml", "--", "--не флаг"})
	require.NoError(t, err)
	assert.Equal(t, "my.yaml", fa.ConfigPath)
	assert.Equal(t, "--не флаг", fa.Query, "-- 之后应全部视为查询词")
}

func TestParseFindArgs_Errors(t *testing.T) {
	cases := [][]string{
		{},
		{"  "},
		{"--engine"},
		{"--engine=", "x"},
		{"--config"},
		{"--bogus", "x"},
	}
	for _, args := range cases {
		_, err := parseFindArgs(args)
		assert.Error(t, err, "期望参数错误：%q", args)
	}
}

func TestResolutionForConfigError(t *testing.T) {
	err := &config.Error{Code: config.ErrCodeNotFound, Path: "/x/moviefind.yaml", Err: os.ErrNotExist}
	res := resolutionForConfigError("матрица", err)
	assert.Equal(t, domain.StateFailed, res.State)
	assert.Equal(t, config.ErrCodeNotFound, res.ErrorCode)
	assert.NotNil(t, res.Links, "应已 Finalize")
	assert.NotNil(t, res.Attempts, "应已 Finalize")
	assert.NotEmpty(t, res.ID)

	other := resolutionForConfigError("q", errors.New("bad level"))
	assert.Equal(t, domain.ErrCodeConfigInvalid, other.ErrorCode, "非配置错误应归为 config_invalid")
}

func TestEmitResolution_JSONKeepsHTMLUnescaped(t *testing.T) {
	res := domain.Resolution{
		Query: "q",
		Links: []string{"https://example.org/a?x=1&y=2"},
		State: domain.StateDone,
	}
	res.Finalize()

	var buf bytes.Buffer
	require.NoError(t, emitResolution(&buf, findArgs{Query: "q", JSON: true}, res))
	assert.Contains(t, buf.String(), "x=1&y=2", "链接中的 & 不应被转义")

	var got domain.Resolution
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got), "stdout 不是合法 JSON")
	assert.Len(t, got.Links, 1)
	assert.Equal(t, domain.StateDone, got.State)
}

func TestEmitResolution_EncodeErrorIsReturned(t *testing.T) {
	res := domain.Resolution{
		Query: "q",
		Links: []string{"https://example.org/a"},
		Meta:  &domain.MovieMeta{Title: "T", Rating: math.NaN()},
		State: domain.StateDone,
	}
	res.Finalize()

	var buf bytes.Buffer
	err := emitResolution(&buf, findArgs{Query: "q", JSON: true}, res)
	assert.Error(t, err)
	assert.Zero(t, buf.Len(), "编码失败时不应写出半截 JSON")
}

func TestPrintHelp_IncludesBotCommands(t *testing.T) {
	var buf bytes.Buffer
	printHelp(&buf)
	assert.Contains(t, buf.String(), "moviefind find")
	assert.Contains(t, buf.String(), present.HelpText)
}

func TestPrintStart(t *testing.T) {
	var buf bytes.Buffer
	printStart(&buf, "Нео")
	assert.Equal(t, present.StartText("Нео")+"\n\n"+present.HelpText+"\n", buf.String())
}
