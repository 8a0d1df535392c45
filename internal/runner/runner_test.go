package runner

import (
	"bytes"
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shell(script string) Command {
	return Command{Name: "sh", Args: []string{"-c", script}}
}

func TestExecRun(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh is not available")
	}

	tests := []struct {
		name     string
		cmd      Command
		wantCode int
		wantOut  string
	}{
		{name: "success", cmd: shell("echo hello"), wantCode: 0, wantOut: "hello\n"},
		{name: "non-zero exit", cmd: shell("echo oops >&2; exit 3"), wantCode: 3, wantOut: "oops\n"},
		{name: "environment", cmd: Command{Name: "sh", Args: []string{"-c", "echo $LOG_DIR"}, Env: []string{"LOG_DIR=/tmp/ng-logs"}}, wantOut: "/tmp/ng-logs\n"},
		{name: "working directory", cmd: Command{Name: "sh", Args: []string{"-c", "pwd"}, Dir: "/"}, wantOut: "/\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewExec(hclog.NewNullLogger()).Run(context.Background(), tt.cmd)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, res.ExitCode)
			assert.Equal(t, tt.wantOut, res.Output)
			assert.False(t, res.TimedOut)
		})
	}
}

func TestExecTimeout(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep is not available")
	}

	cmd := Command{Name: "sleep", Args: []string{"10"}, Timeout: 100 * time.Millisecond}
	res, err := NewExec(hclog.NewNullLogger()).Run(context.Background(), cmd)
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.Less(t, res.Duration, 5*time.Second)
}

func TestExecCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExec(hclog.NewNullLogger()).Run(ctx, shell("true"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecMissingBinary(t *testing.T) {
	_, err := NewExec(hclog.NewNullLogger()).Run(context.Background(), Command{Name: "neongoby-no-such-binary"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to start neongoby-no-such-binary")
}

func TestExecTeesOutput(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh is not available")
	}

	var logs, out bytes.Buffer
	logger := hclog.New(&hclog.LoggerOptions{Name: "runner-test", Output: &logs, Level: hclog.Info, DisableTime: true})

	res, err := NewExec(logger).WithOutput(&out).Run(context.Background(), shell("echo Detected 2 missing aliases."))
	require.NoError(t, err)
	assert.Equal(t, "Detected 2 missing aliases.\n", res.Output)
	assert.Equal(t, res.Output, out.String())
	assert.Contains(t, logs.String(), "Detected 2 missing aliases.")
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line    string
		extra   []string
		want    Command
		wantErr bool
	}{
		{line: "ng_hook_mem.py", extra: []string{"prog"}, want: Command{Name: "ng_hook_mem.py", Args: []string{"prog"}}},
		{line: `python3 "tools/ng check aa.py" -v`, want: Command{Name: "python3", Args: []string{"tools/ng check aa.py", "-v"}}},
		{line: "   ", wantErr: true},
		{line: `broken "quote`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseCommand(tt.line, tt.extra...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitArgs(t *testing.T) {
	args, err := SplitArgs("")
	require.NoError(t, err)
	assert.Nil(t, args)

	args, err = SplitArgs(`-lm --input 'a b'`)
	require.NoError(t, err)
	assert.Equal(t, []string{"-lm", "--input", "a b"}, args)
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "ng_check_aa.py prog.bc pts-1 basicaa", Command{Name: "ng_check_aa.py", Args: []string{"prog.bc", "pts-1", "basicaa"}}.String())
}
