// Package engine ties the Concurrency Gate, Image Formatter output,
// Allocator, Directory Service, File I/O Engine, and (caller-supplied,
// per-worker) Open File Table behind the filesystem's top-level operations.
// Grounded on dargueta/disko's drivers/common/basedriver/driver.go
// (CommonDriver: resolve object, call implementation, translate errors),
// generalized from path-walking to a flat parent-inode-plus-name calling
// convention; this filesystem never parses multi-segment paths.
package engine

import (
	"fmt"

	"github.com/kasmir/blockfs"
	"github.com/kasmir/blockfs/alloc"
	"github.com/kasmir/blockfs/directory"
	"github.com/kasmir/blockfs/fileio"
	"github.com/kasmir/blockfs/image"
	"github.com/kasmir/blockfs/openfiles"
)

// Engine is the dependency-injected filesystem object: it owns the image
// and the Gate; callers own their own openfiles.Table.
type Engine struct {
	Image *image.Image
	Gate  *blockfs.Gate
	alloc *alloc.Allocator
	files *fileio.Engine
	dirs  *directory.Service
}

// New wires an Engine over an already-opened image.
func New(img *image.Image) *Engine {
	return &Engine{
		Image: img,
		Gate:  &blockfs.Gate{},
		alloc: alloc.New(img),
		files: fileio.New(img),
		dirs:  img.Dirs,
	}
}

func (e *Engine) dirDataBlock(dirInode int) (uint32, error) {
	ino, err := e.Image.Inodes.Read(dirInode)
	if err != nil {
		return 0, err
	}
	if !ino.IsDirectory {
		return 0, blockfs.ErrNotADirectory
	}
	return ino.DirectBlocks[0], nil
}

// CreateFile creates an empty (or pre-populated) file in cwd.
func (e *Engine) CreateFile(cwd int, name string, content []byte) error {
	return e.Gate.WithLock(func() error {
		dataBlock, err := e.dirDataBlock(cwd)
		if err != nil {
			return err
		}
		_, err = e.alloc.CreateFile(dataBlock, name, content)
		return err
	})
}

// Mkdir creates a directory in cwd.
func (e *Engine) Mkdir(cwd int, name string) error {
	return e.Gate.WithLock(func() error {
		dataBlock, err := e.dirDataBlock(cwd)
		if err != nil {
			return err
		}
		_, err = e.alloc.CreateDirectory(dataBlock, name)
		return err
	})
}

// DeleteFile deletes a file from cwd.
func (e *Engine) DeleteFile(cwd int, name string) error {
	return e.Gate.WithLock(func() error {
		dataBlock, err := e.dirDataBlock(cwd)
		if err != nil {
			return err
		}
		return e.alloc.DeleteFile(dataBlock, name)
	})
}

// Chdir resolves name inside cwd and returns the child's inode index. On
// failure the caller's own cwd is left unchanged; this function only
// resolves, it never mutates any state.
func (e *Engine) Chdir(cwd int, name string) (int, error) {
	var result int
	err := e.Gate.WithLock(func() error {
		dataBlock, err := e.dirDataBlock(cwd)
		if err != nil {
			return err
		}
		inodeNum, err := e.dirs.Lookup(dataBlock, name)
		if err != nil {
			return err
		}
		ino, err := e.Image.Inodes.Read(int(inodeNum))
		if err != nil {
			return err
		}
		if !ino.IsDirectory {
			return blockfs.ErrNotADirectory
		}
		result = int(inodeNum)
		return nil
	})
	return result, err
}

// Move moves entry src to directory dst within the same parent cwd; dst ==
// ".." means move to the root directory.
func (e *Engine) Move(cwd int, src, dst string) error {
	return e.Gate.WithLock(func() error {
		srcParentBlock, err := e.dirDataBlock(cwd)
		if err != nil {
			return err
		}

		inodeNum, err := e.dirs.Lookup(srcParentBlock, src)
		if err != nil {
			return err
		}
		ino, err := e.Image.Inodes.Read(int(inodeNum))
		if err != nil {
			return err
		}

		var dstDirInode int
		if dst == ".." {
			dstDirInode = blockfs.RootDirInodeIndex
		} else {
			dstInodeNum, err := e.dirs.Lookup(srcParentBlock, dst)
			if err != nil {
				return err
			}
			dstDirInode = int(dstInodeNum)
		}
		dstBlock, err := e.dirDataBlock(dstDirInode)
		if err != nil {
			return err
		}

		kind := blockfs.KindFile
		if ino.IsDirectory {
			kind = blockfs.KindDirectory
		}
		if err := e.dirs.Add(dstBlock, blockfs.Dirent{
			Name:        src,
			InodeNumber: inodeNum,
			Kind:        kind,
			Size:        ino.FileSize,
		}); err != nil {
			return err
		}
		return e.dirs.Remove(srcParentBlock, src)
	})
}

// Open resolves name inside cwd and installs a handle in table under
// filename.
func (e *Engine) Open(table *openfiles.Table, cwd int, name string, mode openfiles.Mode) error {
	return e.Gate.WithLock(func() error {
		dataBlock, err := e.dirDataBlock(cwd)
		if err != nil {
			return err
		}
		inodeNum, err := e.dirs.Lookup(dataBlock, name)
		if err != nil {
			return err
		}
		ino, err := e.Image.Inodes.Read(int(inodeNum))
		if err != nil {
			return err
		}
		table.Open(&openfiles.Handle{
			Name:            name,
			InodeIndex:      int(inodeNum),
			Mode:            mode,
			Inode:           ino,
			ParentDataBlock: dataBlock,
		})
		return nil
	})
}

// Close removes name from table; a name never opened is a silent no-op.
func (e *Engine) Close(table *openfiles.Table, name string) {
	table.Close(name)
}

// WriteToFile writes text at pos (or appends if pos < 0) into the file open
// under name, refreshing the cached handle on success.
func (e *Engine) WriteToFile(table *openfiles.Table, name string, pos int, text []byte) error {
	h, ok := table.Get(name)
	if !ok {
		return blockfs.ErrNotFound
	}
	return e.Gate.WithLock(func() error {
		var ino blockfs.Inode
		var err error
		if pos < 0 {
			ino, err = e.files.Append(h.InodeIndex, text)
		} else {
			ino, err = e.files.WriteAt(h.InodeIndex, pos, text)
		}
		if err != nil {
			return err
		}
		h.Inode = ino
		return e.dirs.UpdateSize(h.ParentDataBlock, name, ino.FileSize)
	})
}

// ReadFromFile reads [start, start+size) (or the whole file if start < 0)
// from the file open under name.
func (e *Engine) ReadFromFile(table *openfiles.Table, name string, start, size int) ([]byte, error) {
	h, ok := table.Get(name)
	if !ok {
		return nil, blockfs.ErrNotFound
	}
	var out []byte
	err := e.Gate.WithLock(func() error {
		var rerr error
		out, rerr = e.files.ReadRange(h.InodeIndex, start, size)
		return rerr
	})
	return out, err
}

// MoveWithinFile performs an in-file move on the file open under name.
func (e *Engine) MoveWithinFile(table *openfiles.Table, name string, start, size, target int) error {
	h, ok := table.Get(name)
	if !ok {
		return blockfs.ErrNotFound
	}
	return e.Gate.WithLock(func() error {
		ino, err := e.files.MoveWithin(h.InodeIndex, start, size, target)
		if err != nil {
			return err
		}
		h.Inode = ino
		return e.dirs.UpdateSize(h.ParentDataBlock, name, ino.FileSize)
	})
}

// TruncateFile truncates or pads the file open under name to maxSize.
func (e *Engine) TruncateFile(table *openfiles.Table, name string, maxSize int) error {
	h, ok := table.Get(name)
	if !ok {
		return blockfs.ErrNotFound
	}
	return e.Gate.WithLock(func() error {
		ino, err := e.files.Truncate(h.InodeIndex, maxSize)
		if err != nil {
			return err
		}
		h.Inode = ino
		return e.dirs.UpdateSize(h.ParentDataBlock, name, ino.FileSize)
	})
}

// TreeLine is one line of a depth-first directory render.
type TreeLine struct {
	Depth int
	Name  string
	Kind  blockfs.DirentKind
	Inode uint32
}

// ShowMemoryMap renders a depth-first tree of the directory hierarchy
// rooted at inode 0. A directory that fails to deserialize is annotated and
// traversal continues rather than aborting.
func (e *Engine) ShowMemoryMap() ([]TreeLine, error) {
	var lines []TreeLine
	err := e.Gate.WithLock(func() error {
		return e.walk(blockfs.RootDirInodeIndex, "/", 0, &lines)
	})
	return lines, err
}

func (e *Engine) walk(dirInode int, name string, depth int, lines *[]TreeLine) error {
	ino, err := e.Image.Inodes.Read(dirInode)
	if err != nil {
		*lines = append(*lines, TreeLine{Depth: depth, Name: fmt.Sprintf("%s <error: %s>", name, err), Kind: blockfs.KindDirectory, Inode: uint32(dirInode)})
		return nil
	}
	*lines = append(*lines, TreeLine{Depth: depth, Name: name, Kind: blockfs.KindDirectory, Inode: uint32(dirInode)})

	entries, err := e.dirs.Load(ino.DirectBlocks[0])
	if err != nil {
		*lines = append(*lines, TreeLine{Depth: depth + 1, Name: fmt.Sprintf("<corrupt directory: %s>", err), Kind: blockfs.KindFile})
		return nil
	}
	for _, entry := range entries {
		if entry.Kind == blockfs.KindDirectory {
			if err := e.walk(int(entry.InodeNumber), entry.Name, depth+1, lines); err != nil {
				return err
			}
			continue
		}
		*lines = append(*lines, TreeLine{Depth: depth + 1, Name: entry.Name, Kind: blockfs.KindFile, Inode: entry.InodeNumber})
	}
	return nil
}
