package storage

import (
	"fmt"
	"os"
	"strings"
)

// fileLock matérialise un verrou d'ouverture par fichier sentinelle : le
// fichier <pages>.lock est créé en exclusif (O_EXCL) et contient le PID du
// processus détenteur, si bien qu'un second processus échoue à l'ouverture
// avec l'identité du détenteur. Après un crash, le .lock orphelin doit
// être supprimé avant de rouvrir le fichier de pages.
type fileLock struct {
	path string
}

// lockFile acquiert le verrou d'ouverture du fichier de pages donné.
// Le verrou doit être relâché avec unlock().
func lockFile(path string) (*fileLock, error) {
	lockPath := path + ".lock"
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			holder := "pid unknown"
			if owner, readErr := os.ReadFile(lockPath); readErr == nil {
				if s := strings.TrimSpace(string(owner)); s != "" {
					holder = "pid " + s
				}
			}
			return nil, fmt.Errorf("filelock: page file %q is locked by another process (%s)", path, holder)
		}
		return nil, fmt.Errorf("filelock: cannot create lock file: %w", err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()
	return &fileLock{path: lockPath}, nil
}

// unlock relâche le verrou en supprimant le fichier sentinelle.
func (fl *fileLock) unlock() error {
	if fl == nil || fl.path == "" {
		return nil
	}
	return os.Remove(fl.path)
}
