package shell

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want Kind
	}{
		{"/bin/bash", Posix},
		{"/usr/bin/zsh", Posix},
		{"/bin/sh", Posix},
		{`C:\cygwin64\bin\bash.exe`, Posix},
		{`C:\Windows\System32\cmd.exe`, Cmd},
		{`C:\Windows\System32\WindowsPowerShell\v1.0\powershell.exe`, PowerShell},
		{"/usr/local/bin/pwsh", PowerShell},
		{"/usr/bin/fish", Unknown},
	}
	for _, tt := range tests {
		if got := Classify(tt.path); got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestInvocationArgs(t *testing.T) {
	tests := []struct {
		kind Kind
		want []string
	}{
		{Posix, []string{"-c"}},
		{Cmd, []string{"/c"}},
		{PowerShell, []string{"-Command"}},
		{Unknown, []string{"-c"}},
	}
	for _, tt := range tests {
		if got := invocationArgs[tt.kind]; !reflect.DeepEqual(got, tt.want) {
			t.Errorf("invocationArgs[%q] = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestResolve_EnvOverride(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on unix exec bits")
	}
	dir := t.TempDir()
	fake := filepath.Join(dir, "mybash")
	if err := os.WriteFile(fake, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SHELLBRIDGE_SHELL", fake)

	d, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if d.Path != fake {
		t.Errorf("Path = %q, want %q", d.Path, fake)
	}
	if d.Kind != Posix {
		t.Errorf("Kind = %q, want %q", d.Kind, Posix)
	}
}

func TestResolve_EnvOverrideMissingFileIgnored(t *testing.T) {
	t.Setenv("SHELLBRIDGE_SHELL", filepath.Join(t.TempDir(), "does-not-exist"))

	d, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if d.Path == "" {
		t.Error("expected a candidate shell, got empty path")
	}
}

func TestResolve_Deterministic(t *testing.T) {
	first, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	second, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Resolve not idempotent: %+v vs %+v", first, second)
	}
}

func TestFromPath_Missing(t *testing.T) {
	_, err := FromPath(filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFromPath_NotExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("exec bits are a unix concept")
	}
	p := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(p, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := FromPath(p); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestNeedsPathTranslation_OffWindows(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("non-windows behavior")
	}
	d := &Descriptor{Path: "/bin/bash", Kind: Posix}
	if d.NeedsPathTranslation() {
		t.Error("NeedsPathTranslation = true on a non-windows host")
	}
}
