package platform

import "path/filepath"

// getLinuxInfo returns platform-specific information for Linux
func getLinuxInfo(homeDir, username string) *Info {
	return &Info{
		OS:       Linux,
		HomeDir:  homeDir,
		Username: username,
		TempDirs: []string{
			"/tmp",
			"/var/tmp",
		},
		CacheDirs: []string{
			filepath.Join(homeDir, ".cache"),
			"/var/cache",
		},
		LogDirs: []string{
			"/var/log",
			filepath.Join(homeDir, ".local/share/logs"),
		},
		QuarantineRoot: filepath.Join(homeDir, ".local/share/reclaim/quarantine"),
		ProtectedPaths: []string{
			"/",
			"/bin",
			"/boot",
			"/dev",
			"/etc",
			"/home",
			"/lib",
			"/lib64",
			"/opt",
			"/proc",
			"/root",
			"/run",
			"/sbin",
			"/srv",
			"/sys",
			"/usr",
			"/var",
			filepath.Join(homeDir, ".config"),
			filepath.Join(homeDir, ".ssh"),
			filepath.Join(homeDir, "Documents"),
			filepath.Join(homeDir, "Pictures"),
			filepath.Join(homeDir, "Music"),
			filepath.Join(homeDir, "Videos"),
		},
	}
}
