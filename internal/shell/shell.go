// Package shell locates a usable shell executable on the host and
// describes how to invoke it with a command string.
package shell

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrNotFound is returned when no usable shell exists on the host.
var ErrNotFound = errors.New("no usable shell found")

// Kind classifies a shell executable. It selects the invocation
// arguments only; it carries no other execution semantics.
type Kind string

const (
	// Posix covers bash, zsh, sh and anything speaking "-c".
	Posix Kind = "posix"
	// Cmd is the Windows command interpreter.
	Cmd Kind = "cmd"
	// PowerShell covers powershell.exe and pwsh.
	PowerShell Kind = "powershell"
	// Unknown is any unclassified shell; it is invoked like a POSIX shell.
	Unknown Kind = "unknown"
)

// invocationArgs maps each Kind to the flags passed before the command
// string. New shells are supported by adding a Kind, not by branching
// on names at call sites.
var invocationArgs = map[Kind][]string{
	Posix:      {"-c"},
	Cmd:        {"/c"},
	PowerShell: {"-Command"},
	Unknown:    {"-c"},
}

// Descriptor is a resolved shell: an existing executable plus the
// arguments that make it run a string as a command. It is read-only
// after resolution and safe to share.
type Descriptor struct {
	Path string
	Args []string
	Kind Kind
}

// Candidate paths per OS family, in preference order.
var (
	windowsCandidates = []string{
		`C:\cygwin64\bin\bash.exe`,
		`C:\cygwin\bin\bash.exe`,
		`C:\msys64\usr\bin\bash.exe`,
		`C:\Program Files\Git\bin\bash.exe`,
		`C:\Windows\System32\WindowsPowerShell\v1.0\powershell.exe`,
		`C:\Windows\System32\cmd.exe`,
	}
	darwinCandidates = []string{
		"/bin/bash",
		"/usr/bin/bash",
		"/bin/zsh",
		"/usr/bin/zsh",
		"/bin/sh",
	}
	unixCandidates = []string{
		"/bin/bash",
		"/usr/bin/bash",
		"/bin/sh",
		"/usr/bin/sh",
	}
)

// Resolve locates a shell for the current host. The SHELLBRIDGE_SHELL
// and SHELL environment variables win when they point at an existing
// executable; otherwise the platform candidate list is scanned in
// order. Resolution is deterministic for an unchanged host, and
// callers cache the result for the lifetime of an executor.
//
// Unlike some bridges, Resolve never falls back to a path it has
// verified missing: if nothing usable exists it returns ErrNotFound.
func Resolve() (*Descriptor, error) {
	for _, env := range []string{"SHELLBRIDGE_SHELL", "SHELL"} {
		if p := os.Getenv(env); p != "" && isExecutable(p) {
			return describe(p), nil
		}
	}

	for _, p := range candidates() {
		if isExecutable(p) {
			return describe(p), nil
		}
	}

	return nil, fmt.Errorf("%w (tried %d candidates for %s)", ErrNotFound, len(candidates()), runtime.GOOS)
}

// FromPath builds a Descriptor for an explicitly configured shell path.
func FromPath(path string) (*Descriptor, error) {
	if !isExecutable(path) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return describe(path), nil
}

func candidates() []string {
	switch runtime.GOOS {
	case "windows":
		return windowsCandidates
	case "darwin":
		return darwinCandidates
	default:
		return unixCandidates
	}
}

func describe(path string) *Descriptor {
	kind := Classify(path)
	return &Descriptor{
		Path: path,
		Args: invocationArgs[kind],
		Kind: kind,
	}
}

// Classify maps an executable name to a Kind. Patterns are ordered:
// "powershell"/"pwsh" and "cmd" must be tested before the bare "sh"
// substring, which matches almost everything.
func Classify(path string) Kind {
	name := strings.ToLower(filepath.Base(path))
	name = strings.TrimSuffix(name, ".exe")
	switch {
	case strings.Contains(name, "powershell"), strings.Contains(name, "pwsh"):
		return PowerShell
	case strings.Contains(name, "cmd"):
		return Cmd
	case strings.Contains(name, "bash"), strings.Contains(name, "zsh"), strings.Contains(name, "sh"):
		return Posix
	default:
		return Unknown
	}
}

// NeedsPathTranslation reports whether working directories must be
// rewritten to the shell's own path syntax. Only a Cygwin or MSYS
// shell hosted on Windows needs that; everything else takes the
// host's native paths.
func (d *Descriptor) NeedsPathTranslation() bool {
	if runtime.GOOS != "windows" || d.Kind != Posix {
		return false
	}
	lower := strings.ToLower(d.Path)
	return strings.Contains(lower, "cygwin") || strings.Contains(lower, "msys")
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
