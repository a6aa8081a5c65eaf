package cleaner

import "os"

// deletePath removes a file or directory tree. A path that no longer
// exists counts as success so a re-run of the same batch is harmless.
func deletePath(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return os.RemoveAll(path)
	}
	return os.Remove(path)
}
