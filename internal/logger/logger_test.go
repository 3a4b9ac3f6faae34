package logger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewLoggerVariants(t *testing.T) {
	cases := []Config{
		{},
		{Level: "debug"},
		{Level: "warn", Color: true},
		{Level: "error", File: FileConfig{Path: filepath.Join(t.TempDir(), "s.log")}},
	}
	for _, c := range cases {
		if lg := c.NewLogger(); lg == nil {
			t.Fatalf("nil logger for %+v", c)
		}
	}
}

func TestSlogLevelParsing(t *testing.T) {
	for in, want := range map[string]string{
		"debug":   "DEBUG",
		"info":    "INFO",
		"":        "INFO",
		"warn":    "WARN",
		"warning": "WARN",
		"error":   "ERROR",
		"bogus":   "INFO",
	} {
		c := Config{Level: in}
		if got := c.slogLevel().String(); got != want {
			t.Fatalf("level %q: got %s want %s", in, got, want)
		}
	}
}

func TestChildStdioNothingConfigured(t *testing.T) {
	outF, errF, err := (Config{}).ChildStdio("svc")
	if err != nil {
		t.Fatalf("ChildStdio: %v", err)
	}
	if outF != nil || errF != nil {
		t.Fatalf("expected nil files when nothing is configured")
	}
}

func TestChildStdioFromDir(t *testing.T) {
	dir := t.TempDir()
	c := Config{ChildDir: dir}
	outF, errF, err := c.ChildStdio("svc")
	if err != nil {
		t.Fatalf("ChildStdio: %v", err)
	}
	defer func() { _ = outF.Close(); _ = errF.Close() }()

	if got, want := outF.Name(), filepath.Join(dir, "svc.stdout.log"); got != want {
		t.Fatalf("stdout path %q, want %q", got, want)
	}
	if got, want := errF.Name(), filepath.Join(dir, "svc.stderr.log"); got != want {
		t.Fatalf("stderr path %q, want %q", got, want)
	}
	if _, err := outF.WriteString("hello\n"); err != nil {
		t.Fatalf("write stdout: %v", err)
	}
}

func TestChildStdioAppendsAcrossOpens(t *testing.T) {
	dir := t.TempDir()
	c := Config{ChildStdout: filepath.Join(dir, "out.log")}

	for _, line := range []string{"one\n", "two\n"} {
		outF, errF, err := c.ChildStdio("svc")
		if err != nil {
			t.Fatalf("ChildStdio: %v", err)
		}
		if errF != nil {
			t.Fatalf("stderr opened without configuration")
		}
		if _, err := outF.WriteString(line); err != nil {
			t.Fatalf("write: %v", err)
		}
		_ = outF.Close()
	}

	data, err := os.ReadFile(c.ChildStdout)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "one\ntwo\n" {
		t.Fatalf("restarted writer truncated the log: %q", data)
	}
}

func TestChildStdioCreatesParentDir(t *testing.T) {
	dir := t.TempDir()
	c := Config{ChildDir: filepath.Join(dir, "nested", "logs")}
	outF, errF, err := c.ChildStdio("svc")
	if err != nil {
		t.Fatalf("ChildStdio: %v", err)
	}
	_ = outF.Close()
	_ = errF.Close()
}
