// Package deck drives the external presentation that renders the slides.
//
// The pipeline itself never renders anything; it issues commands to a
// collaborator. The stock implementation shells out to a helper executable
// (for example a script that sends arrow-key presses to the presentation
// window), speaking JSON over stdin/stdout.
package deck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Command actions understood by the helper executable.
const (
	cmdNextSlide   = "next_slide"
	cmdPrevSlide   = "prev_slide"
	cmdExitPreview = "exit_preview"
)

// commandRequest is what the helper reads from stdin.
type commandRequest struct {
	Action string `json:"action"`
}

// commandResponse is what the helper writes to stdout.
type commandResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ExecController issues deck commands by running a helper executable once
// per command, with a timeout.
type ExecController struct {
	executable string
	timeout    time.Duration
}

// NewExecController creates an ExecController for the given helper
// executable with the specified per-command timeout in milliseconds.
func NewExecController(executable string, timeoutMs int) *ExecController {
	if timeoutMs <= 0 {
		timeoutMs = 5000
	}
	return &ExecController{
		executable: executable,
		timeout:    time.Duration(timeoutMs) * time.Millisecond,
	}
}

// Ready reports whether the helper executable is available.
func (c *ExecController) Ready() bool {
	if c.executable == "" {
		return false
	}
	info, err := os.Stat(c.executable)
	return err == nil && !info.IsDir()
}

// NextSlide advances the presentation by one slide.
func (c *ExecController) NextSlide() error {
	return c.run(cmdNextSlide)
}

// PrevSlide moves the presentation back by one slide.
func (c *ExecController) PrevSlide() error {
	return c.run(cmdPrevSlide)
}

// ExitPreview leaves the current presentation or preview.
func (c *ExecController) ExitPreview() error {
	return c.run(cmdExitPreview)
}

// run executes the helper with the given action on stdin and parses the
// JSON response from stdout.
func (c *ExecController) run(action string) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.executable)

	req, err := json.Marshal(commandRequest{Action: action})
	if err != nil {
		return fmt.Errorf("marshal deck command: %w", err)
	}
	cmd.Stdin = bytes.NewReader(req)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("deck command %s timed out after %v", action, c.timeout)
		}
		return fmt.Errorf("deck command %s: %w (stderr: %s)", action, err, stderr.String())
	}

	var resp commandResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return fmt.Errorf("parse deck helper response: %w", err)
	}

	if !resp.Success {
		if resp.Error != "" {
			return fmt.Errorf("deck command %s failed: %s", action, resp.Error)
		}
		return fmt.Errorf("deck command %s failed", action)
	}

	return nil
}
