//go:build !unix && !windows

package mirror

import "os"

// No advisory locking here; sessions are only serialized within a process.
func lockFile(*os.File) error   { return nil }
func unlockFile(*os.File) error { return nil }
