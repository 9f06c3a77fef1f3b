package storage

import (
	"fmt"
	"os"
	"sync"
)

// FsPageManager persiste les pages dans un fichier unique, adressé par
// PageId (offset = PageId * PageBytes). L'allocation est séquentielle ;
// les pages libérées par la fusion de pages partielles sont recyclées
// avant d'étendre le fichier.
type FsPageManager struct {
	mu   sync.Mutex
	file StorageFile
	path string
	lock *fileLock // OS-level file lock (inter-process), nil en mode mémoire

	totalPages uint32
	freePages  []PageId // pages allouées puis libérées, réutilisées en priorité
}

// NewFsPageManager ouvre ou crée le fichier de pages.
func NewFsPageManager(path string) (*FsPageManager, error) {
	// Verrou OS pour empêcher l'accès concurrent depuis un autre processus.
	lock, err := lockFile(path)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		lock.unlock()
		return nil, fmt.Errorf("pagemanager: cannot open file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		lock.unlock()
		return nil, fmt.Errorf("pagemanager: %w", err)
	}

	return &FsPageManager{
		file:       file,
		path:       path,
		lock:       lock,
		totalPages: uint32(info.Size() / PageBytes),
	}, nil
}

// NewMemPageManager crée un gestionnaire de pages entièrement en mémoire
// (sans fichier ni verrou). Utilisé par les tests et le mode mémoire du CLI.
func NewMemPageManager() *FsPageManager {
	return &FsPageManager{
		file: NewMemFile(),
		path: ":memory:",
	}
}

// Close ferme le fichier et relâche le verrou.
func (m *FsPageManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.file.Sync(); err != nil {
		return fmt.Errorf("pagemanager: sync: %w", err)
	}
	fileErr := m.file.Close()
	if m.lock != nil {
		m.lock.unlock()
	}
	return fileErr
}

// Path retourne le chemin du fichier de pages.
func (m *FsPageManager) Path() string {
	return m.path
}

// TotalPages retourne le nombre de pages allouées (recyclées comprises).
func (m *FsPageManager) TotalPages() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalPages
}

// Store écrit la page dans un emplacement fraîchement alloué et retourne
// son identifiant. L'allocation est durable au retour.
func (m *FsPageManager) Store(page *Page) (PageId, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var pid PageId
	if n := len(m.freePages); n > 0 {
		pid = m.freePages[n-1]
		m.freePages = m.freePages[:n-1]
	} else {
		pid = PageId(m.totalPages)
		m.totalPages++
	}
	if err := m.writeAt(pid, page); err != nil {
		return PageIdNone, err
	}
	return pid, nil
}

// StoreAt réécrit une page existante.
func (m *FsPageManager) StoreAt(pid PageId, page *Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if uint32(pid) >= m.totalPages {
		return fmt.Errorf("pagemanager: page %d out of range (total=%d)", pid, m.totalPages)
	}
	return m.writeAt(pid, page)
}

func (m *FsPageManager) writeAt(pid PageId, page *Page) error {
	if _, err := m.file.WriteAt(page.Data[:], int64(pid)*PageBytes); err != nil {
		return fmt.Errorf("pagemanager: write page %d: %w", pid, err)
	}
	return nil
}

// Load lit une page complète depuis le fichier.
func (m *FsPageManager) Load(pid PageId) (*Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if uint32(pid) >= m.totalPages {
		return nil, fmt.Errorf("pagemanager: page %d out of range (total=%d)", pid, m.totalPages)
	}
	page := &Page{}
	if _, err := m.file.ReadAt(page.Data[:], int64(pid)*PageBytes); err != nil {
		return nil, fmt.Errorf("pagemanager: read page %d: %w", pid, err)
	}
	return page, nil
}

// Release rend une page au pool d'allocation. Appelé quand les blocs d'une
// page de construction ont été fusionnés dans une page partielle partagée :
// l'emplacement fichier est réutilisé par un Store ultérieur.
func (m *FsPageManager) Release(pid PageId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.freePages = append(m.freePages, pid)
}
