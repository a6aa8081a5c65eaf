package platform

import "path/filepath"

// getMacOSInfo returns platform-specific information for macOS
func getMacOSInfo(homeDir, username string) *Info {
	return &Info{
		OS:       MacOS,
		HomeDir:  homeDir,
		Username: username,
		TempDirs: []string{
			"/tmp",
			"/private/var/tmp",
			filepath.Join(homeDir, "Library/Caches/TemporaryItems"),
		},
		CacheDirs: []string{
			filepath.Join(homeDir, "Library/Caches"),
			"/Library/Caches",
		},
		LogDirs: []string{
			filepath.Join(homeDir, "Library/Logs"),
			"/Library/Logs",
			"/var/log",
		},
		QuarantineRoot: filepath.Join(homeDir, "Library/Application Support/reclaim/quarantine"),
		ProtectedPaths: []string{
			"/",
			"/Applications",
			"/Library",
			"/System",
			"/bin",
			"/dev",
			"/etc",
			"/private",
			"/sbin",
			"/usr",
			"/var",
			filepath.Join(homeDir, "Documents"),
			filepath.Join(homeDir, "Desktop"),
			filepath.Join(homeDir, "Pictures"),
			filepath.Join(homeDir, "Music"),
			filepath.Join(homeDir, "Movies"),
			filepath.Join(homeDir, "Library/Keychains"),
		},
	}
}
