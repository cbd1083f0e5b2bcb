package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
)

func validOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		PackageDirs: []string{t.TempDir()},
		OutputDir:   DefaultOutputDir,
		HeaderFile:  DefaultHeaderFile,
		Generator:   "rosidl_generator_type_description",
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(o *Options)
		wantErr string
	}{
		{name: "valid", mutate: func(o *Options) {}},
		{name: "skip generate without generator", mutate: func(o *Options) {
			o.Generator = ""
			o.SkipGenerate = true
		}},
		{name: "missing generator", mutate: func(o *Options) { o.Generator = "" }, wantErr: "generator: required unless"},
		{name: "missing package dir", mutate: func(o *Options) {
			o.PackageDirs = append(o.PackageDirs, filepath.Join(o.PackageDirs[0], "nope"))
		}, wantErr: "is not a directory"},
		{name: "negative jobs", mutate: func(o *Options) { o.Jobs = -1 }, wantErr: "jobs: must be at least 0"},
		{name: "bad env", mutate: func(o *Options) { o.GeneratorEnv = []string{"PYTHONPATH"} }, wantErr: "KEY=VALUE"},
		{name: "qualified only", mutate: func(o *Options) { o.Only = []string{"std_msgs/msg/String"} }, wantErr: "bare namespace"},
		{name: "empty output dir", mutate: func(o *Options) { o.OutputDir = "" }, wantErr: "output-dir: required"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			o := validOptions(t)
			tt.mutate(&o)
			err := o.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateReportsAll(t *testing.T) {
	t.Parallel()

	o := validOptions(t)
	o.Generator = ""
	o.Jobs = -2
	err := o.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "generator") || !strings.Contains(err.Error(), "jobs") {
		t.Errorf("not every problem reported: %v", err)
	}
}

func TestHeaderPath(t *testing.T) {
	t.Parallel()

	o := Options{OutputDir: "out", HeaderFile: "generated_types.h"}
	if got := o.HeaderPath(); got != filepath.Join("out", "generated_types.h") {
		t.Errorf("HeaderPath = %q", got)
	}
	abs := filepath.Join(t.TempDir(), "include", "types.h")
	o.HeaderFile = abs
	if got := o.HeaderPath(); got != abs {
		t.Errorf("HeaderPath = %q, want %q", got, abs)
	}
}

type testCLI struct {
	OutputDir string   `default:"./out"`
	Only      []string `sep:","`
	Jobs      int
	Verify    bool
}

func parseWithConfig(t *testing.T, yamlText string, args ...string) (*testCLI, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFile)
	if err := os.WriteFile(path, []byte(yamlText), 0o644); err != nil {
		t.Fatal(err)
	}
	cli := &testCLI{}
	parser, err := kong.New(cli, kong.Configuration(YAML, path))
	if err != nil {
		return nil, err
	}
	_, err = parser.Parse(args)
	return cli, err
}

func TestYAMLResolver(t *testing.T) {
	t.Parallel()

	cli, err := parseWithConfig(t, "output_dir: build/types\nonly: [std_msgs, geometry_msgs]\njobs: 3\nverify: true\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cli.OutputDir != "build/types" {
		t.Errorf("OutputDir = %q", cli.OutputDir)
	}
	if len(cli.Only) != 2 || cli.Only[0] != "std_msgs" || cli.Only[1] != "geometry_msgs" {
		t.Errorf("Only = %v", cli.Only)
	}
	if cli.Jobs != 3 || !cli.Verify {
		t.Errorf("Jobs = %d, Verify = %v", cli.Jobs, cli.Verify)
	}
}

func TestYAMLResolverFlagsWin(t *testing.T) {
	t.Parallel()

	cli, err := parseWithConfig(t, "jobs: 3\n", "--jobs", "7")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cli.Jobs != 7 {
		t.Errorf("Jobs = %d, want command-line value", cli.Jobs)
	}
}

func TestYAMLResolverUnknownKey(t *testing.T) {
	t.Parallel()

	_, err := parseWithConfig(t, "outptu-dir: x\n")
	if err == nil || !strings.Contains(err.Error(), "outptu-dir") {
		t.Errorf("expected unknown key error, got %v", err)
	}
}

func TestYAMLMalformed(t *testing.T) {
	t.Parallel()

	if _, err := YAML(strings.NewReader("jobs: [unclosed\n")); err == nil {
		t.Error("expected parse error")
	}
	r, err := YAML(strings.NewReader(""))
	if err != nil || r == nil {
		t.Errorf("empty file: %v, %v", r, err)
	}
}
