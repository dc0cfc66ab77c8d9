// Package capture writes full-screen screenshots with per-platform tools.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/worklog/internal/app"
	"github.com/hylla/worklog/internal/domain"
)

const (
	// DirName is the sub-directory of the data dir that holds screenshots.
	DirName = "screenshots"

	// DefaultTimeout bounds one capture command.
	DefaultTimeout = 15 * time.Second

	isoLayout = "2006-01-02T15:04:05.000Z"
)

var fileNameReplacer = strings.NewReplacer(":", "-", ".", "-")

// Runner executes a command to completion.
type Runner func(ctx context.Context, name string, args ...string) error

// ExecRunner runs commands with os/exec, folding stderr into the error.
func ExecRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

// Capturer is an app.ScreenCaptureProvider backed by OS screenshot tools.
type Capturer struct {
	dir      string
	platform domain.Platform
	run      Runner
	timeout  time.Duration
}

var _ app.ScreenCaptureProvider = (*Capturer)(nil)

// New constructs a capturer writing into dir. A nil runner uses ExecRunner.
func New(dir, goos string, run Runner) *Capturer {
	if run == nil {
		run = ExecRunner
	}
	return &Capturer{dir: dir, platform: domain.PlatformForGOOS(goos), run: run, timeout: DefaultTimeout}
}

// Dir returns the screenshot directory.
func (c *Capturer) Dir() string {
	return c.dir
}

// FileName returns the image name for a capture taken at ts.
func FileName(ts time.Time) string {
	return "screenshot_" + fileNameReplacer.Replace(ts.UTC().Format(isoLayout)) + ".png"
}

// Capture takes one screenshot and returns its file reference.
func (c *Capturer) Capture(ctx context.Context, at time.Time) (domain.Screenshot, error) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return domain.Screenshot{}, &app.StoreIOError{Op: "create screenshot dir", Path: c.dir, Err: err}
	}
	name := FileName(at)
	path := filepath.Join(c.dir, name)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	tool, args := Command(c.platform, path)
	if err := c.run(ctx, tool, args...); err != nil {
		return domain.Screenshot{}, fmt.Errorf("capture screenshot with %s: %w", tool, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Screenshot{}, fmt.Errorf("capture screenshot with %s: no image written", tool)
		}
		return domain.Screenshot{}, &app.StoreIOError{Op: "stat screenshot", Path: path, Err: err}
	}
	return domain.Screenshot{
		Filename:  name,
		Path:      path,
		Timestamp: domain.NormalizeTimestamp(at),
		SizeBytes: info.Size(),
	}, nil
}

// Command returns the tool invocation that writes a PNG of the whole screen to path.
func Command(platform domain.Platform, path string) (string, []string) {
	switch platform {
	case domain.PlatformWindows:
		script := strings.Join([]string{
			"Add-Type -AssemblyName System.Windows.Forms,System.Drawing;",
			"$bounds = [System.Windows.Forms.Screen]::PrimaryScreen.Bounds;",
			"$bitmap = New-Object System.Drawing.Bitmap $bounds.Width, $bounds.Height;",
			"$graphics = [System.Drawing.Graphics]::FromImage($bitmap);",
			"$graphics.CopyFromScreen($bounds.Location, [System.Drawing.Point]::Empty, $bounds.Size);",
			"$bitmap.Save('" + strings.ReplaceAll(path, "'", "''") + "', [System.Drawing.Imaging.ImageFormat]::Png);",
			"$graphics.Dispose(); $bitmap.Dispose();",
		}, " ")
		return "powershell.exe", []string{"-NoProfile", "-NonInteractive", "-Command", script}
	case domain.PlatformMacOS:
		return "screencapture", []string{"-x", "-t", "png", path}
	default:
		return "import", []string{"-window", "root", "-format", "png", path}
	}
}
