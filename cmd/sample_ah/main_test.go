package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"cloudpico-analysis/internal/cli"
)

func runTool(t *testing.T, args []string, input string) (string, string, int) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("APP_ENV", "")
	t.Setenv("LOG_LEVEL", "")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, strings.NewReader(input), &stdout, &stderr)
	code := cli.Code(appName, err, &stderr)
	return stdout.String(), stderr.String(), code
}

func TestRun(t *testing.T) {
	input := `{"val":{"hmd":49.7,"tmp":17.5},"rec":"2018-10-28T00:00:46.037+00:00","tag":"scs-be2-2"}
{"val":{"hmd":50,"tmp":20}}

{"val":{"hmd":10,"tmp":10}}
`
	out, stderr, code := runTool(t, []string{"-p", "val"}, input)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr %s", code, stderr)
	}
	want := `{"rec":"2018-10-28T00:00:46.037+00:00","val":{"hmd":49.7,"tmp":17.5,"ah":7.4}}
{"val":{"hmd":50,"tmp":20,"ah":8.6}}
`
	if out != want {
		t.Errorf("stdout =\n%s\nwant\n%s", out, want)
	}
}

func TestRun_DefaultPath(t *testing.T) {
	out, _, code := runTool(t, nil, `{"val":{"sht":{"hmd":100,"tmp":0}}}`)
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if want := `{"val":{"sht":{"hmd":100,"tmp":0,"ah":4.8}}}` + "\n"; out != want {
		t.Errorf("stdout = %q, want %q", out, want)
	}
}

func TestRun_MissingFieldExits1(t *testing.T) {
	_, stderr, code := runTool(t, nil, `{"val":{"sht":{"hmd":40}}}`)
	if code != cli.ExitFailure {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "missing field: val.sht.tmp") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRun_StopsAtMalformed(t *testing.T) {
	input := "{\"val\":{\"sht\":{\"hmd\":50,\"tmp\":20}}}\n{oops\n{\"val\":{\"sht\":{\"hmd\":50,\"tmp\":20}}}\n"
	out, _, code := runTool(t, nil, input)
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if strings.Count(out, "\n") != 1 {
		t.Errorf("stdout = %q, want one document", out)
	}
}

func TestRun_UnexpectedArgument(t *testing.T) {
	if _, _, code := runTool(t, []string{"val.sht"}, ""); code != cli.ExitUsage {
		t.Fatalf("exit code = %d, want %d", code, cli.ExitUsage)
	}
}
