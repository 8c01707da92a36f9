// Package openfiles implements the per-worker Open File Table: a mapping
// from filename to an open file handle, lifecycle bound to explicit
// open/close and never shared across workers. Grounded on
// original_source/DataStrucures.py's FileObject/open_file.
package openfiles

import "github.com/kasmir/blockfs"

// Mode is the open mode a handle was created with.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
	ModeAppend
)

// Handle is one open file: the cached inode, a logical offset, and the mode
// it was opened with.
type Handle struct {
	Name            string
	InodeIndex      int
	Mode            Mode
	Inode           blockfs.Inode
	Offset          int
	ParentDataBlock uint32
}

// Table is one worker's open file table: filename -> handle. Not safe for
// concurrent use by multiple goroutines — each worker owns its own Table.
type Table struct {
	handles map[string]*Handle
}

// New builds an empty Table.
func New() *Table {
	return &Table{handles: make(map[string]*Handle)}
}

// Open installs a handle under name, replacing (and implicitly releasing)
// any previous handle already open under that name.
func (t *Table) Open(h *Handle) {
	t.handles[h.Name] = h
}

// Close removes name from the table. Closing a name that was never opened
// is a silent no-op.
func (t *Table) Close(name string) {
	delete(t.handles, name)
}

// Get returns the handle open under name, if any.
func (t *Table) Get(name string) (*Handle, bool) {
	h, ok := t.handles[name]
	return h, ok
}
