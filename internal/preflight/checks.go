package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Access is the permission set a directory check requires.
type Access uint32

const (
	AccessRead      Access = unix.R_OK | unix.X_OK
	AccessReadWrite Access = unix.R_OK | unix.W_OK | unix.X_OK
)

func (a Access) label() string {
	if a&unix.W_OK != 0 {
		return "read/write ok"
	}
	return "read ok"
}

// CheckDirectoryAccess verifies that the directory exists and grants access.
func CheckDirectoryAccess(name, path string, access Access) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, uint32(access)); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, access.label())}
}
