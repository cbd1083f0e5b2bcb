package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// createArtifacts writes type descriptions for two messages and a service
// into a fresh output directory.
func createArtifacts(t *testing.T) string {
	t.Helper()
	out := filepath.Join(t.TempDir(), "type_descriptions")
	writeTestFile(t, out, "geometry_msgs/msg/Point.json", `{
  "type_description_msg": {
    "type_description": {
      "type_name": "geometry_msgs/msg/Point",
      "fields": [
        {"name": "x", "type": {"type_id": 11}},
        {"name": "y", "type": {"type_id": 11}}
      ]
    },
    "referenced_type_descriptions": []
  },
  "type_hashes": [{"type_name": "geometry_msgs/msg/Point", "hash_string": "RIHS01_aa01"}]
}`)
	writeTestFile(t, out, "std_msgs/msg/Int32.json", `{
  "type_description_msg": {
    "type_description": {
      "type_name": "std_msgs/msg/Int32",
      "fields": [{"name": "data", "type": {"type_id": 6}}]
    },
    "referenced_type_descriptions": []
  },
  "type_hashes": [{"type_name": "std_msgs/msg/Int32", "hash_string": "RIHS01_bb02"}]
}`)
	writeTestFile(t, out, "std_srvs/srv/SetBool.json", `{
  "type_description_msg": {
    "type_description": {
      "type_name": "std_srvs/srv/SetBool",
      "fields": [
        {"name": "request_message", "type": {"type_id": 1, "nested_type_name": "std_srvs/srv/SetBool_Request"}},
        {"name": "response_message", "type": {"type_id": 1, "nested_type_name": "std_srvs/srv/SetBool_Response"}}
      ]
    },
    "referenced_type_descriptions": [
      {"type_name": "std_srvs/srv/SetBool_Request", "fields": [{"name": "data", "type": {"type_id": 15}}]},
      {"type_name": "std_srvs/srv/SetBool_Response", "fields": [{"name": "success", "type": {"type_id": 15}}]}
    ]
  },
  "type_hashes": [
    {"type_name": "std_srvs/srv/SetBool", "hash_string": "RIHS01_cc03"},
    {"type_name": "std_srvs/srv/SetBool_Request", "hash_string": "RIHS01_cc04"},
    {"type_name": "std_srvs/srv/SetBool_Response", "hash_string": "RIHS01_cc05"}
  ]
}`)
	writeTestFile(t, out, "std_srvs/srv/SetBool_Request.json", `{
  "type_description_msg": {
    "type_description": {
      "type_name": "std_srvs/srv/SetBool_Request",
      "fields": [{"name": "data", "type": {"type_id": 15}}]
    },
    "referenced_type_descriptions": []
  },
  "type_hashes": [{"type_name": "std_srvs/srv/SetBool_Request", "hash_string": "RIHS01_cc04"}]
}`)
	writeTestFile(t, out, "std_srvs/srv/SetBool_Response.json", `{
  "type_description_msg": {
    "type_description": {
      "type_name": "std_srvs/srv/SetBool_Response",
      "fields": [{"name": "success", "type": {"type_id": 15}}]
    },
    "referenced_type_descriptions": []
  },
  "type_hashes": [{"type_name": "std_srvs/srv/SetBool_Response", "hash_string": "RIHS01_cc05"}]
}`)
	return out
}

func TestRunGenSkipGenerate(t *testing.T) {
	t.Parallel()
	out := createArtifacts(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"gen", "--skip-generate", "-o", out}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}

	data, err := os.ReadFile(filepath.Join(out, "generated_types.h"))
	if err != nil {
		t.Fatalf("header not written: %v", err)
	}
	header := string(data)
	for _, want := range []string{
		"#define MSG_LIST(BTYPE, CTYPE, TTYPE, FIELD, ARRAY)",
		"CTYPE(ros_Point,",
		"BTYPE(ros_Int32,",
		"#define SRV_LIST(SRV, REQUEST, REPLY, FIELD, ARRAY)",
		"SRV(srv_SetBool,",
		`"std_srvs::srv::dds_::SetBool"`,
	} {
		if !strings.Contains(header, want) {
			t.Errorf("header missing %q:\n%s", want, header)
		}
	}
	if !strings.Contains(stdout.String(), "2 types, 1 services, 0 dropped") {
		t.Errorf("summary: %q", stdout.String())
	}
}

func TestRunDefaultCommand(t *testing.T) {
	t.Parallel()
	out := createArtifacts(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"--skip-generate", "--verify", "--header-file", "types.h", "-o", out}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	if _, err := os.Stat(filepath.Join(out, "types.h")); err != nil {
		t.Errorf("header not written: %v", err)
	}
}

func TestRunCheck(t *testing.T) {
	t.Parallel()
	out := createArtifacts(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"gen", "--skip-generate", "-o", out}, &stdout, &stderr); err != nil {
		t.Fatalf("gen: %v", err)
	}

	stdout.Reset()
	if err := run([]string{"check", "-o", out}, &stdout, &stderr); err != nil {
		t.Fatalf("check on fresh header: %v", err)
	}
	if !strings.Contains(stdout.String(), "is up to date") {
		t.Errorf("check output: %q", stdout.String())
	}

	writeTestFile(t, out, "generated_types.h", "/* stale */\n")
	err := run([]string{"check", "-o", out}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "out of date") {
		t.Errorf("expected stale error, got %v", err)
	}
}

func TestRunInspect(t *testing.T) {
	t.Parallel()
	out := createArtifacts(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"inspect", out}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := stdout.String()
	for _, want := range []string{
		"types[2]{name,class,hash,fields,deps}:",
		"geometry_msgs/msg/Point,compound,aa01,2,",
		"services[1]{name,hash,request,response}:",
		"std_srvs/srv/SetBool,cc03,1,1",
		"dropped[0]",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("inspect output missing %q:\n%s", want, got)
		}
	}
	if _, err := os.Stat(filepath.Join(out, "generated_types.h")); err == nil {
		t.Error("inspect should not write a header")
	}
}

func TestRunInspectOnly(t *testing.T) {
	t.Parallel()
	out := createArtifacts(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"inspect", "--only", "std_msgs", out}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := stdout.String()
	if !strings.Contains(got, "types[1]") || strings.Contains(got, "Point") {
		t.Errorf("namespace selection not applied:\n%s", got)
	}
}

func TestRunVersion(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := run([]string{"-V"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "picoros-typegen") {
		t.Errorf("version output: %q", stdout.String())
	}
}

func TestRunHelp(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	if err := run([]string{"--help"}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	help := stdout.String()
	if !strings.Contains(help, "Usage: picoros-typegen") {
		t.Errorf("help output: %q", help)
	}
	for _, want := range []string{"(debug,info,warn,error)", "(text,json)"} {
		if !strings.Contains(help, want) {
			t.Errorf("help missing %q:\n%s", want, help)
		}
	}
}

func TestRunNoTypes(t *testing.T) {
	t.Parallel()
	out := t.TempDir()

	var stdout, stderr bytes.Buffer
	err := run([]string{"gen", "--skip-generate", "-o", out}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "no usable type descriptions") {
		t.Errorf("expected no-types error, got %v", err)
	}
}

func TestRunInvalidLogLevel(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	if err := run([]string{"--log-level", "loud", "-V"}, &stdout, &stderr); err == nil {
		t.Error("expected error for unknown log level")
	}
	if err := run([]string{"--log-format", "xml", "-V"}, &stdout, &stderr); err == nil {
		t.Error("expected error for unknown log format")
	}
	if err := run([]string{"--log-level", "debug", "--log-format", "json", "-V"}, &stdout, &stderr); err != nil {
		t.Errorf("accepted spellings rejected: %v", err)
	}
}

func TestRunConfigFile(t *testing.T) {
	t.Parallel()
	out := createArtifacts(t)
	cfg := filepath.Join(t.TempDir(), "typegen.yaml")
	writeTestFile(t, filepath.Dir(cfg), filepath.Base(cfg),
		"output_dir: "+out+"\nskip_generate: true\nheader_file: from_config.h\nlog_format: json\n")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"--config", cfg}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	if _, err := os.Stat(filepath.Join(out, "from_config.h")); err != nil {
		t.Errorf("config values not applied: %v", err)
	}
	if !strings.Contains(stderr.String(), `"run":`) {
		t.Errorf("expected JSON logs with a run id, got %q", stderr.String())
	}
}

func TestRunConfigUnknownKey(t *testing.T) {
	t.Parallel()
	cfg := filepath.Join(t.TempDir(), "typegen.yaml")
	writeTestFile(t, filepath.Dir(cfg), filepath.Base(cfg), "outptu_dir: x\n")

	var stdout, stderr bytes.Buffer
	err := run([]string{"--config", cfg, "-V"}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "outptu-dir") {
		t.Errorf("expected unknown key error, got %v", err)
	}
}
