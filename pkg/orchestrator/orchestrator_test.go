package orchestrator_test

import (
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/example/stackgen/pkg/orchestrator"
	"github.com/example/stackgen/pkg/render"
	"github.com/example/stackgen/pkg/testsupport"
	"github.com/example/stackgen/pkg/vars"
)

// fixture builds the three directory roots for one run.
type fixture struct {
	varsDir      string
	templatesDir string
	outputDir    string
}

func newFixture(t *testing.T, varsFiles, templateFiles map[string]string) fixture {
	t.Helper()
	root := t.TempDir()
	f := fixture{
		varsDir:      filepath.Join(root, "vars"),
		templatesDir: filepath.Join(root, "templates"),
		outputDir:    filepath.Join(root, "output"),
	}
	testsupport.WriteTree(t, f.varsDir, varsFiles)
	testsupport.WriteTree(t, f.templatesDir, templateFiles)
	return f
}

func (f fixture) request() orchestrator.Request {
	return orchestrator.Request{
		VarsDir:      f.varsDir,
		TemplatesDir: f.templatesDir,
		OutputDir:    f.outputDir,
	}
}

func TestRun_EndToEnd(t *testing.T) {
	f := newFixture(t,
		map[string]string{
			"prod/main.yaml":     "env: p\n",
			"prod/app/main.yaml": "name: x\n",
		},
		map[string]string{
			"greet": "{{ env }}-{{ name }}",
		},
	)

	o := orchestrator.New()
	err := o.Run(testsupport.Context(), f.request())
	require.NoError(t, err)

	got := testsupport.ReadTree(t, f.outputDir)
	want := map[string]string{"prod/app/greet": "p-x\n"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("output tree mismatch (-want +got):\n%s", diff)
	}

	goldenPath := filepath.Join("testdata", "greet.golden")
	rendered := []byte(got["prod/app/greet"])
	if testsupport.WriteMaybeGolden(t, goldenPath, rendered) {
		return
	}
	golden := testsupport.MustReadGolden(t, goldenPath)
	if diff := testsupport.CompareGolden(string(golden), string(rendered)); diff != "" {
		t.Fatalf("golden mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_Idempotent(t *testing.T) {
	f := newFixture(t,
		map[string]string{
			"prod/a/main.yaml": "name: a\n",
			"prod/b/main.yaml": "name: b\n",
			"main.yaml":        "env: shared\n",
		},
		map[string]string{
			"conf": "{{ env }}/{{ name }}",
		},
	)

	o := orchestrator.New()
	require.NoError(t, o.Run(testsupport.Context(), f.request()))
	first := testsupport.ReadTree(t, f.outputDir)

	require.NoError(t, o.Run(testsupport.Context(), f.request()))
	second := testsupport.ReadTree(t, f.outputDir)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("runs differ (-first +second):\n%s", diff)
	}
}

func TestRun_MissingVarsDir(t *testing.T) {
	f := newFixture(t, nil, map[string]string{"tmpl": "x"})

	o := orchestrator.New()
	err := o.Run(testsupport.Context(), orchestrator.Request{
		VarsDir:      filepath.Join(f.varsDir, "nope"),
		TemplatesDir: f.templatesDir,
		OutputDir:    f.outputDir,
	})

	var missing *orchestrator.MissingDirError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, orchestrator.InputVars, missing.Input)
}

func TestRun_MissingTemplatesDir(t *testing.T) {
	f := newFixture(t, map[string]string{"main.yaml": "a: 1\n"}, nil)

	o := orchestrator.New()
	err := o.Run(testsupport.Context(), orchestrator.Request{
		VarsDir:      f.varsDir,
		TemplatesDir: filepath.Join(f.templatesDir, "nope"),
		OutputDir:    f.outputDir,
	})

	var missing *orchestrator.MissingDirError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, orchestrator.InputTemplates, missing.Input)
}

func TestRun_RenderFailureAbortsAtFirstStack(t *testing.T) {
	f := newFixture(t,
		map[string]string{
			"aa/main.yaml": "name: first\n",
			"bb/main.yaml": "name: second\n",
		},
		map[string]string{
			"broken": "{% if %}",
		},
	)

	o := orchestrator.New()
	err := o.Run(testsupport.Context(), f.request())

	var renderErr *render.RenderError
	require.ErrorAs(t, err, &renderErr)
	require.Equal(t, vars.KeyOf("aa"), renderErr.Stack)
}

func TestRun_TemplateAllowListAndExclusion(t *testing.T) {
	f := newFixture(t,
		map[string]string{
			"prod/main.yaml": "templates:\n- web\n- db\nexclude:\n- db\n",
		},
		map[string]string{
			"web.yaml":   "web for {{ templates.0 }}",
			"db.yaml":    "db",
			"other.yaml": "never",
		},
	)

	o := orchestrator.New()
	require.NoError(t, o.Run(testsupport.Context(), f.request()))

	got := testsupport.ReadTree(t, f.outputDir)
	want := map[string]string{"prod/web.yaml": "web for web\n"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("output tree mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_PartialsNeverRendered(t *testing.T) {
	f := newFixture(t,
		map[string]string{
			"prod/main.yaml": "env: p\n",
		},
		map[string]string{
			"page":          "{% include \"partials/head\" %}{{ env }}",
			"partials/head": "h:",
		},
	)

	o := orchestrator.New()
	require.NoError(t, o.Run(testsupport.Context(), f.request()))

	got := testsupport.ReadTree(t, f.outputDir)
	want := map[string]string{"prod/page": "h:p\n"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("output tree mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_StackFilter(t *testing.T) {
	f := newFixture(t,
		map[string]string{
			"prod/main.yaml":    "env: prod\n",
			"staging/main.yaml": "env: staging\n",
		},
		map[string]string{
			"conf": "{{ env }}",
		},
	)

	var offered []string
	o := orchestrator.New(orchestrator.WithStackFilter(func(stacks []string) ([]string, error) {
		offered = append(offered, stacks...)
		return []string{"staging"}, nil
	}))
	require.NoError(t, o.Run(testsupport.Context(), f.request()))

	sort.Strings(offered)
	require.Equal(t, []string{"prod", "staging"}, offered)

	got := testsupport.ReadTree(t, f.outputDir)
	want := map[string]string{"staging/conf": "staging\n"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("output tree mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_ParallelMatchesSequential(t *testing.T) {
	varsFiles := map[string]string{
		"main.yaml":   "env: e\n",
		"a/main.yaml": "name: a\n",
		"b/main.yaml": "name: b\n",
		"c/main.yaml": "name: c\n",
	}
	templateFiles := map[string]string{
		"conf": "{{ env }}-{{ name }}",
	}

	sequential := newFixture(t, varsFiles, templateFiles)
	require.NoError(t, orchestrator.New().Run(testsupport.Context(), sequential.request()))

	parallel := newFixture(t, varsFiles, templateFiles)
	o := orchestrator.New(orchestrator.WithJobs(4))
	require.NoError(t, o.Run(testsupport.Context(), parallel.request()))

	if diff := cmp.Diff(
		testsupport.ReadTree(t, sequential.outputDir),
		testsupport.ReadTree(t, parallel.outputDir),
	); diff != "" {
		t.Fatalf("parallel output differs (-sequential +parallel):\n%s", diff)
	}
}

func TestRun_DeepCascadeOverrides(t *testing.T) {
	f := newFixture(t,
		map[string]string{
			"main.yaml":            "region: default\nowner: platform\n",
			"prod/main.yaml":       "region: us-east\n",
			"prod/web/main.yaml":   "owner: web-team\n",
			"prod/batch/main.yaml": "",
		},
		map[string]string{
			"info": "{{ region }} {{ owner }}",
		},
	)

	o := orchestrator.New()
	require.NoError(t, o.Run(testsupport.Context(), f.request()))

	got := testsupport.ReadTree(t, f.outputDir)
	want := map[string]string{
		"prod/web/info":   "us-east web-team\n",
		"prod/batch/info": "us-east platform\n",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("output tree mismatch (-want +got):\n%s", diff)
	}
}
