package diagnostics

import (
	"bytes"
	"context"
	"os/exec"
)

// SystemValidator invokes a bean-check binary already on PATH.
type SystemValidator struct {
	Cmd string // e.g. "bean-check"
}

func (s *SystemValidator) Name() string { return "system" }

func (s *SystemValidator) Available() bool {
	if s.Cmd == "" {
		return false
	}
	_, err := exec.LookPath(s.Cmd)
	return err == nil
}

func (s *SystemValidator) Run(ctx context.Context, rootFile string) ([]byte, []byte, int, error) {
	return runCommand(ctx, s.Cmd, []string{"--format", "json", rootFile})
}

// PythonSystemValidator invokes bean-check through a system Python
// interpreter's beancount module.
type PythonSystemValidator struct {
	PythonCmd string // e.g. "python3"
}

func (p *PythonSystemValidator) Name() string { return "python-system" }

func (p *PythonSystemValidator) Available() bool {
	if p.PythonCmd == "" {
		return false
	}
	_, err := exec.LookPath(p.PythonCmd)
	return err == nil
}

func (p *PythonSystemValidator) Run(ctx context.Context, rootFile string) ([]byte, []byte, int, error) {
	return runCommand(ctx, p.PythonCmd, []string{"-m", "beancount.scripts.check", "--format", "json", rootFile})
}

// PythonEmbeddedValidator invokes a bundled, version-pinned Python
// runtime shipped alongside this server. Never available unless such a
// runtime was actually installed next to the binary; Available()
// simply checks the configured path exists and is executable via the
// same exec.LookPath probe the other strategies use.
type PythonEmbeddedValidator struct {
	InterpreterPath string
}

func (p *PythonEmbeddedValidator) Name() string { return "python-embedded" }

func (p *PythonEmbeddedValidator) Available() bool {
	if p.InterpreterPath == "" {
		return false
	}
	_, err := exec.LookPath(p.InterpreterPath)
	return err == nil
}

func (p *PythonEmbeddedValidator) Run(ctx context.Context, rootFile string) ([]byte, []byte, int, error) {
	return runCommand(ctx, p.InterpreterPath, []string{"-m", "beancount.scripts.check", "--format", "json", rootFile})
}

func runCommand(ctx context.Context, name string, args []string) ([]byte, []byte, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	exitCode := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
		err = nil
	}
	return stdout.Bytes(), stderr.Bytes(), exitCode, err
}
