// Package testutil provides in-memory image fixtures for tests, grounded on
// dargueta/disko's testing/images.go: a byte slice wrapped as an
// io.ReadWriteSeeker via github.com/xaionaro-go/bytesextra, sized to a fixed
// number of blocks rather than loaded from a compressed fixture (this
// repo's images are always generated fresh by format.CreateInMemory).
package testutil

import (
	"github.com/kasmir/blockfs/format"
	"github.com/kasmir/blockfs/image"
	"github.com/xaionaro-go/bytesextra"
)

// NewMemoryImage formats a fresh sizeMB-megabyte image directly into an
// in-memory byte slice and returns it assembled as an *image.Image. No host
// file is ever created.
func NewMemoryImage(sizeMB int) (*image.Image, error) {
	buf, err := format.CreateInMemory(sizeMB)
	if err != nil {
		return nil, err
	}
	stream := bytesextra.NewReadWriteSeeker(buf)
	return image.OpenStream(stream)
}
