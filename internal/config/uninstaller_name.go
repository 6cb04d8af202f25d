package config

import "runtime"

// UninstallerName returns the file name of the generated uninstaller for the
// running platform.
func UninstallerName() string {
	if runtime.GOOS == "windows" {
		return UninstallerStem + ".exe"
	}
	return UninstallerStem
}
