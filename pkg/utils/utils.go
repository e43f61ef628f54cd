package utils

import "os"

func GetDefaultOutputDir() string {
	tmpDir, err := os.MkdirTemp("", "exocortex-export-*")
	if err != nil {
		// If we can't create a temp directory, fall back to local directory
		return "exocortex-export"
	}
	return tmpDir
}
