package testutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

var (
	buildOnce   sync.Once
	binaryPath  string
	buildOutput string
	buildErr    error
)

// CLIResult is a decoded `weft --json` response envelope.
type CLIResult struct {
	OK       bool                   `json:"ok"`
	Data     map[string]interface{} `json:"data,omitempty"`
	Error    *CLIError              `json:"error,omitempty"`
	Warnings []CLIWarning           `json:"warnings,omitempty"`
	Meta     *CLIMeta               `json:"meta,omitempty"`

	// RawJSON is the unparsed stdout; ExitCode is the process exit status.
	RawJSON  string `json:"-"`
	ExitCode int    `json:"-"`
}

// CLIError is the envelope's error object.
type CLIError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Suggestion string                 `json:"suggestion,omitempty"`
}

// CLIWarning is one entry of the envelope's warnings.
type CLIWarning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Ref     string `json:"ref,omitempty"`
}

// CLIMeta is the envelope's meta object.
type CLIMeta struct {
	Count       int   `json:"count,omitempty"`
	QueryTimeMs int64 `json:"query_time_ms,omitempty"`
}

// BuildCLI compiles ./cmd/weft once per test binary and returns its path.
func BuildCLI(t *testing.T) string {
	t.Helper()

	buildOnce.Do(func() {
		root, err := moduleRoot()
		if err != nil {
			buildErr = err
			return
		}
		dir, err := os.MkdirTemp("", "weft-cli-bin-*")
		if err != nil {
			buildErr = err
			return
		}
		name := "weft"
		if runtime.GOOS == "windows" {
			name += ".exe"
		}
		out := filepath.Join(dir, name)

		cmd := exec.Command("go", "build", "-o", out, "./cmd/weft")
		cmd.Dir = root
		output, err := cmd.CombinedOutput()
		if err != nil {
			buildErr, buildOutput = err, string(output)
			return
		}
		binaryPath = out
	})

	if buildErr != nil {
		t.Fatalf("failed to build weft: %v\n%s", buildErr, buildOutput)
	}
	return binaryPath
}

// moduleRoot walks up from the working directory to the directory holding go.mod.
func moduleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found above %s", dir)
		}
		dir = parent
	}
}

// RunCLI runs `weft --vault-path <vault> --json args...` and decodes the
// response envelope.
func (v *TestVault) RunCLI(args ...string) *CLIResult {
	v.t.Helper()
	return v.run(nil, args)
}

// RunCLIWithStdin is RunCLI with stdin attached. Commands that do not print
// an envelope leave their output in RawJSON and report a PARSE_ERROR.
func (v *TestVault) RunCLIWithStdin(stdin string, args ...string) *CLIResult {
	v.t.Helper()
	return v.run(strings.NewReader(stdin), args)
}

func (v *TestVault) run(stdin io.Reader, args []string) *CLIResult {
	v.t.Helper()

	cmd := exec.Command(BuildCLI(v.t), append([]string{"--vault-path", v.Path, "--json"}, args...)...)
	// Keep the developer's global config out of tests.
	cmd.Env = append(os.Environ(), "XDG_CONFIG_HOME="+filepath.Join(v.Path, ".weft", "xdg"))
	cmd.Stdin = stdin
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	result := &CLIResult{}
	if err := cmd.Run(); err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
	}
	result.RawJSON = stdout.String()

	if err := json.Unmarshal(stdout.Bytes(), result); err != nil {
		result.OK = false
		result.Error = &CLIError{
			Code:    "PARSE_ERROR",
			Message: "Failed to parse JSON output: " + err.Error(),
		}
	}
	return result
}

// MustSucceed fails the test unless the envelope reports ok.
func (r *CLIResult) MustSucceed(t *testing.T) *CLIResult {
	t.Helper()
	if r.OK {
		return r
	}
	msg := "unknown error"
	if r.Error != nil {
		msg = r.Error.Code + ": " + r.Error.Message
	}
	t.Fatalf("expected command to succeed, got %s\nRaw output: %s", msg, r.RawJSON)
	return r
}

// MustFail fails the test unless the envelope reports the expected error code.
func (r *CLIResult) MustFail(t *testing.T, code string) *CLIResult {
	t.Helper()
	switch {
	case r.OK:
		t.Fatalf("expected error %s, but the command succeeded\nRaw output: %s", code, r.RawJSON)
	case r.Error == nil:
		t.Fatalf("expected error %s, got no error object\nRaw output: %s", code, r.RawJSON)
	case r.Error.Code != code:
		t.Fatalf("expected error %s, got %s: %s\nRaw output: %s", code, r.Error.Code, r.Error.Message, r.RawJSON)
	}
	return r
}

// DataList returns data[key] as a list, or nil.
func (r *CLIResult) DataList(key string) []interface{} {
	list, _ := r.Data[key].([]interface{})
	return list
}

// DataString returns data[key] as a string, or "".
func (r *CLIResult) DataString(key string) string {
	s, _ := r.Data[key].(string)
	return s
}

// DataNumber returns data[key] as a number, or 0.
func (r *CLIResult) DataNumber(key string) float64 {
	n, _ := r.Data[key].(float64)
	return n
}
