// Package platform provides the per-OS capability layer: where temp, cache
// and log files live, which paths must never be touched, and how file
// identity (hard links) and hidden files are detected. The concrete Info is
// selected once at startup; the algorithms above it never branch on GOOS.
package platform

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
)

// Platform represents the operating system platform.
type Platform string

const (
	MacOS   Platform = "darwin"
	Linux   Platform = "linux"
	Unknown Platform = "unknown"
)

// Info contains platform-specific paths used by the scanners and the
// quarantine store.
type Info struct {
	OS             Platform
	HomeDir        string
	Username       string
	TempDirs       []string
	CacheDirs      []string
	LogDirs        []string
	QuarantineRoot string
	ProtectedPaths []string
}

// Detect returns the current platform.
func Detect() Platform {
	switch runtime.GOOS {
	case "darwin":
		return MacOS
	case "linux":
		return Linux
	default:
		return Unknown
	}
}

// GetInfo returns platform-specific information for the current OS.
func GetInfo() (*Info, error) {
	currentUser, err := user.Current()
	if err != nil {
		return nil, err
	}

	switch Detect() {
	case MacOS:
		return getMacOSInfo(currentUser.HomeDir, currentUser.Username), nil
	case Linux:
		return getLinuxInfo(currentUser.HomeDir, currentUser.Username), nil
	default:
		return nil, ErrUnsupportedPlatform
	}
}

// IsProtected reports whether path is one of the platform's protected
// paths. Matching is exact: protecting /usr does not protect files below
// it, only the directory entry itself.
func (i *Info) IsProtected(path string) bool {
	clean := filepath.Clean(path)
	for _, protected := range i.ProtectedPaths {
		if clean == protected {
			return true
		}
	}
	return false
}

// IsHidden reports whether the file or directory name is hidden by platform
// convention. On unix platforms this is a dot prefix.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// ConfigDir returns the user configuration directory for this tool.
func ConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	switch Detect() {
	case MacOS:
		return filepath.Join(homeDir, "Library", "Application Support", "reclaim"), nil
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "reclaim"), nil
		}
		return filepath.Join(homeDir, ".config", "reclaim"), nil
	}
}

// DataDir returns the user data directory (quarantine, scan history).
func DataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	switch Detect() {
	case MacOS:
		return filepath.Join(homeDir, "Library", "Application Support", "reclaim"), nil
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "reclaim"), nil
		}
		return filepath.Join(homeDir, ".local", "share", "reclaim"), nil
	}
}

// ErrUnsupportedPlatform is returned when no capability set exists for the
// current OS.
var ErrUnsupportedPlatform = &Error{"unsupported platform"}

// Error represents a platform-related error.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
