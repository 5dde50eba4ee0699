package main

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/example/stackgen/pkg/orchestrator"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"help", pflag.ErrHelp, exitOK},
		{"vars missing", &orchestrator.MissingDirError{Input: orchestrator.InputVars, Path: "vars"}, exitVarsMissing},
		{"templates missing", &orchestrator.MissingDirError{Input: orchestrator.InputTemplates, Path: "templates"}, exitTemplatesMissing},
		{"render failure", errors.New("boom"), exitRenderFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, exitCode(tc.err))
		})
	}
}

func TestResolvePath(t *testing.T) {
	got, err := resolvePath("", "vars")
	require.NoError(t, err)
	require.Equal(t, "vars", got)

	got, err = resolvePath(filepath.Join("/", "srv", "deploy"), "vars")
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/", "srv", "deploy", "vars"), got)

	abs := filepath.Join("/", "etc", "vars")
	got, err = resolvePath(filepath.Join("/", "srv"), abs)
	require.NoError(t, err)
	require.Equal(t, abs, got)
}
