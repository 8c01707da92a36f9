// Package report renders a depth-first directory listing as CSV via
// github.com/gocarina/gocsv, the same struct-tag (csv:"...") marshal
// pattern disks/disks.go uses for its DiskGeometry table.
package report

import (
	"io"

	"github.com/gocarina/gocsv"
	"github.com/kasmir/blockfs"
	"github.com/kasmir/blockfs/engine"
)

// Row is one line of the directory tree, flattened for CSV export.
type Row struct {
	Depth int    `csv:"depth"`
	Name  string `csv:"name"`
	Kind  string `csv:"kind"`
	Inode uint32 `csv:"inode"`
}

func rowsFrom(lines []engine.TreeLine) []*Row {
	rows := make([]*Row, 0, len(lines))
	for _, l := range lines {
		kind := "file"
		if l.Kind == blockfs.KindDirectory {
			kind = "directory"
		}
		rows = append(rows, &Row{Depth: l.Depth, Name: l.Name, Kind: kind, Inode: l.Inode})
	}
	return rows
}

// WriteCSV renders lines (as produced by engine.Engine.ShowMemoryMap) to w
// as CSV with a header row.
func WriteCSV(w io.Writer, lines []engine.TreeLine) error {
	return gocsv.Marshal(rowsFrom(lines), w)
}
