// Package probe reads the focused window by shelling out to per-platform tools.
package probe

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/hylla/worklog/internal/app"
	"github.com/hylla/worklog/internal/domain"
)

// DefaultTimeout bounds one probe invocation.
const DefaultTimeout = 5 * time.Second

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

const windowsScript = `[Console]::OutputEncoding = [System.Text.Encoding]::UTF8;
Add-Type -TypeDefinition 'using System; using System.Runtime.InteropServices; public class Win32 { [DllImport("user32.dll")] public static extern IntPtr GetForegroundWindow(); [DllImport("user32.dll")] public static extern int GetWindowThreadProcessId(IntPtr hWnd, out int lpdwProcessId); [DllImport("user32.dll", CharSet = CharSet.Auto)] public static extern int GetWindowText(IntPtr hWnd, System.Text.StringBuilder lpString, int nMaxCount); }';
$hwnd = [Win32]::GetForegroundWindow();
$processId = 0;
[Win32]::GetWindowThreadProcessId($hwnd, [ref]$processId) | Out-Null;
$process = Get-Process -Id $processId -ErrorAction SilentlyContinue;
if ($process) {
  $title = New-Object System.Text.StringBuilder 256;
  [Win32]::GetWindowText($hwnd, $title, $title.Capacity) | Out-Null;
  $windowTitle = $title.ToString();
  if (-not $windowTitle) { $windowTitle = $process.MainWindowTitle; }
  Write-Output "$($process.ProcessName)|$windowTitle";
}`

const macScript = `tell application "System Events" to get name of first process whose frontmost is true`

// Probe is an app.WindowProbe for one platform.
type Probe struct {
	platform domain.Platform
	run      Runner
	timeout  time.Duration
}

var _ app.WindowProbe = (*Probe)(nil)

// New constructs a probe for goos. A nil runner uses ExecRunner.
func New(goos string, run Runner) *Probe {
	if run == nil {
		run = ExecRunner
	}
	return &Probe{platform: domain.PlatformForGOOS(goos), run: run, timeout: DefaultTimeout}
}

// Platform returns the platform the probe targets.
func (p *Probe) Platform() domain.Platform {
	return p.platform
}

// Read returns the focused process and window title. Failures wrap app.ErrProbeMiss.
func (p *Probe) Read(ctx context.Context) (domain.WindowReading, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var (
		reading domain.WindowReading
		err     error
	)
	switch p.platform {
	case domain.PlatformWindows:
		reading, err = p.readWindows(ctx)
	case domain.PlatformMacOS:
		reading, err = p.readMac(ctx)
	default:
		reading, err = p.readLinux(ctx)
	}
	if err != nil {
		return domain.WindowReading{}, err
	}
	reading.Platform = p.platform
	if reading.Empty() {
		return domain.WindowReading{}, fmt.Errorf("%w: no focused window", app.ErrProbeMiss)
	}
	return reading, nil
}

func (p *Probe) readWindows(ctx context.Context) (domain.WindowReading, error) {
	out, err := p.run(ctx, "powershell.exe", "-NoProfile", "-NonInteractive", "-Command", windowsScript)
	if err != nil {
		return domain.WindowReading{}, miss("powershell", err)
	}
	process, title, ok := strings.Cut(strings.TrimSpace(string(out)), "|")
	if !ok {
		return domain.WindowReading{}, fmt.Errorf("%w: unexpected powershell output %q", app.ErrProbeMiss, out)
	}
	return domain.WindowReading{ProcessName: strings.TrimSpace(process), WindowTitle: strings.TrimSpace(title)}, nil
}

// readMac reports the frontmost process; its name doubles as the window title.
func (p *Probe) readMac(ctx context.Context) (domain.WindowReading, error) {
	out, err := p.run(ctx, "osascript", "-e", macScript)
	if err != nil {
		return domain.WindowReading{}, miss("osascript", err)
	}
	name := strings.TrimSpace(string(out))
	return domain.WindowReading{ProcessName: name, WindowTitle: name}, nil
}

func (p *Probe) readLinux(ctx context.Context) (domain.WindowReading, error) {
	out, err := p.run(ctx, "xdotool", "getactivewindow", "getwindowname", "getwindowpid")
	if err != nil {
		return domain.WindowReading{}, miss("xdotool", err)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) < 2 {
		return domain.WindowReading{}, fmt.Errorf("%w: unexpected xdotool output %q", app.ErrProbeMiss, out)
	}
	title := strings.TrimSpace(lines[0])
	pid := strings.TrimSpace(lines[len(lines)-1])
	comm, err := p.run(ctx, "ps", "-p", pid, "-o", "comm=")
	if err != nil {
		return domain.WindowReading{}, miss("ps", err)
	}
	return domain.WindowReading{ProcessName: strings.TrimSpace(string(comm)), WindowTitle: title}, nil
}

func miss(tool string, err error) error {
	return fmt.Errorf("%w: %s: %v", app.ErrProbeMiss, tool, err)
}
