// Package pidfile records the running process id for external supervisors.
package pidfile

import (
	"fmt"
	"os"
	"strconv"
)

// Write stores the current pid as decimal text at path, replacing any
// existing file.
func Write(path string) (int, error) {
	pid := os.Getpid()
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return 0, fmt.Errorf("write pid file %s: %w", path, err)
	}
	return pid, nil
}
