package platform

import (
	"runtime"
	"testing"
)

func TestDetect(t *testing.T) {
	got := Detect()
	switch runtime.GOOS {
	case "darwin":
		if got != MacOS {
			t.Errorf("expected MacOS, got %s", got)
		}
	case "linux":
		if got != Linux {
			t.Errorf("expected Linux, got %s", got)
		}
	default:
		if got != Unknown {
			t.Errorf("expected Unknown, got %s", got)
		}
	}
}

func TestGetInfo(t *testing.T) {
	if Detect() == Unknown {
		t.Skip("unsupported platform")
	}

	info, err := GetInfo()
	if err != nil {
		t.Fatalf("GetInfo failed: %v", err)
	}
	if info.HomeDir == "" {
		t.Error("expected home directory")
	}
	if len(info.TempDirs) == 0 {
		t.Error("expected temp directories")
	}
	if info.QuarantineRoot == "" {
		t.Error("expected quarantine root")
	}
	if len(info.ProtectedPaths) == 0 {
		t.Error("expected protected paths")
	}
}

func TestIsProtected(t *testing.T) {
	info := &Info{ProtectedPaths: []string{"/", "/usr", "/etc"}}

	if !info.IsProtected("/usr") {
		t.Error("/usr must be protected")
	}
	if !info.IsProtected("/usr/") {
		t.Error("trailing slash must not defeat protection")
	}
	if info.IsProtected("/usr/share/doc") {
		t.Error("matching is exact, children are not protected")
	}
	if info.IsProtected("/home/user/file") {
		t.Error("unlisted path reported protected")
	}
}

func TestIsHidden(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{".bashrc", true},
		{".git", true},
		{"visible.txt", false},
		{".", false},
		{"..", false},
	}
	for _, tc := range cases {
		if got := IsHidden(tc.name); got != tc.want {
			t.Errorf("IsHidden(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}
