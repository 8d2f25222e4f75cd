// Package process owns the language-server subprocess lifecycle and exposes
// its stdio pipes as byte streams.
package process

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"lsp-client/src/internal/common"
	"lsp-client/src/internal/constants"
	"lsp-client/src/internal/errors"
	"lsp-client/src/internal/types"
)

// Info holds the handles for a running language server process.
type Info struct {
	Cmd      *exec.Cmd
	Stdin    io.WriteCloser
	Stdout   io.ReadCloser
	Stderr   io.ReadCloser
	StopCh   chan struct{}
	Language string

	// IntentionalStop suppresses crash reporting during explicit shutdown.
	IntentionalStop bool

	stopOnce sync.Once
	waitOnce sync.Once
	waitErr  error
	waitDone chan struct{}
}

// signalStop closes StopCh exactly once. Called from both the monitor and
// the stop path, which can race during shutdown.
func (info *Info) signalStop() {
	info.stopOnce.Do(func() {
		close(info.StopCh)
	})
}

// wait reaps the process exactly once; concurrent callers share the result.
// exec.Cmd.Wait must not be called twice.
func (info *Info) wait() error {
	info.waitOnce.Do(func() {
		info.waitErr = info.Cmd.Wait()
		close(info.waitDone)
	})
	<-info.waitDone
	return info.waitErr
}

// ShutdownSender sends the protocol-level shutdown sequence before the
// process is terminated.
type ShutdownSender interface {
	SendShutdownRequest(ctx context.Context) error
	SendExitNotification(ctx context.Context) error
}

// Manager controls language server process lifecycles.
type Manager struct{}

// NewManager creates a process manager.
func NewManager() *Manager {
	return &Manager{}
}

// StartProcess launches the server described by config and wires up its
// stdio pipes. Launch failures are startup errors: the session never starts.
func (pm *Manager) StartProcess(config types.ClientConfig, language string) (*Info, error) {
	cmd := exec.Command(config.Command, config.Args...)

	if config.WorkingDir != "" {
		cmd.Dir = config.WorkingDir
	} else if wd, err := os.Getwd(); err == nil {
		cmd.Dir = wd
	}

	if len(config.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range config.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}

	info := &Info{
		Cmd:      cmd,
		StopCh:   make(chan struct{}),
		Language: language,
		waitDone: make(chan struct{}),
	}

	var err error
	info.Stdin, err = cmd.StdinPipe()
	if err != nil {
		return nil, errors.NewProcessError(language, config.Command, "start", err)
	}

	info.Stdout, err = cmd.StdoutPipe()
	if err != nil {
		info.Stdin.Close()
		return nil, errors.NewProcessError(language, config.Command, "start", err)
	}

	info.Stderr, err = cmd.StderrPipe()
	if err != nil {
		info.Stdin.Close()
		info.Stdout.Close()
		return nil, errors.NewProcessError(language, config.Command, "start", err)
	}

	if err := cmd.Start(); err != nil {
		pm.CleanupProcess(info)
		return nil, errors.NewProcessError(language, config.Command, "start", err)
	}

	common.LSPLogger.Info("Started %s language server: PID %d", language, cmd.Process.Pid)
	return info, nil
}

// MonitorProcess waits for the process to exit, closes StopCh so the
// dispatcher can fail outstanding calls fast, and reports the exit error.
func (pm *Manager) MonitorProcess(info *Info, onExit func(error)) {
	if info == nil || info.Cmd == nil || info.Cmd.Process == nil {
		if onExit != nil {
			onExit(fmt.Errorf("invalid process info"))
		}
		return
	}

	err := info.wait()

	if err != nil && !info.IntentionalStop {
		common.LSPLogger.Error("%s language server exited unexpectedly: %v", info.Language, err)
	}

	info.signalStop()

	if onExit != nil {
		onExit(err)
	}
}

// StopProcess terminates a process gracefully: protocol shutdown sequence,
// then a grace period, then a forced kill.
func (pm *Manager) StopProcess(info *Info, sender ShutdownSender) error {
	if info == nil {
		return nil
	}

	info.IntentionalStop = true

	if sender != nil {
		pm.sendShutdown(sender)
	}

	info.signalStop()

	// EOF on stdin is the fallback exit signal for servers that missed the
	// protocol shutdown sequence.
	if info.Stdin != nil {
		info.Stdin.Close()
	}

	if info.Cmd != nil && info.Cmd.Process != nil {
		done := make(chan error, 1)
		go func() {
			done <- info.wait()
		}()

		select {
		case <-done:
			// Graceful exit.
		case <-time.After(constants.ProcessShutdownTimeout):
			common.LSPLogger.Warn("%s language server did not exit within %v, killing", info.Language, constants.ProcessShutdownTimeout)
			if err := info.Cmd.Process.Kill(); err != nil {
				common.LSPLogger.Error("Failed to kill %s language server: %v", info.Language, err)
			}
			<-done
		}
	}

	pm.CleanupProcess(info)
	return nil
}

// CleanupProcess closes all pipes.
func (pm *Manager) CleanupProcess(info *Info) {
	if info == nil {
		return
	}

	if info.Stdin != nil {
		info.Stdin.Close()
		info.Stdin = nil
	}
	if info.Stdout != nil {
		info.Stdout.Close()
		info.Stdout = nil
	}
	if info.Stderr != nil {
		info.Stderr.Close()
		info.Stderr = nil
	}
}

// DrainStderr logs error-looking stderr output from the server until the
// stream ends. The stream must be drained or the child can block on writes.
func (pm *Manager) DrainStderr(info *Info) {
	if info == nil || info.Stderr == nil {
		return
	}

	scanner := bufio.NewScanner(info.Stderr)
	for scanner.Scan() {
		select {
		case <-info.StopCh:
			return
		default:
		}

		line := scanner.Text()
		lower := strings.ToLower(line)
		if strings.Contains(lower, "error") || strings.Contains(lower, "fatal") ||
			strings.Contains(lower, "exception") || strings.Contains(lower, "panic") {
			common.LSPLogger.Error("%s stderr: %s", info.Language, line)
		} else {
			common.LSPLogger.Debug("%s stderr: %s", info.Language, line)
		}
	}
}

func (pm *Manager) sendShutdown(sender ShutdownSender) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.ShutdownRequestTimeout)
	defer shutdownCancel()
	sender.SendShutdownRequest(shutdownCtx)

	exitCtx, exitCancel := context.WithTimeout(context.Background(), constants.ExitNotifyTimeout)
	defer exitCancel()
	sender.SendExitNotification(exitCtx)
}
