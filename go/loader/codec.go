package loader

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"
	"github.com/lunixbochs/struc"
	"github.com/op/go-logging"
	"github.com/pkg/errors"
)

var log = logging.MustGetLogger("loader")

var IMAGE_MAGIC = "TCIM"

const (
	imageVersion = 1
	ImageExt     = ".tci"
)

var UnknownMagic = errors.New("Could not identify file magic.")

type imageHeader struct {
	Magic   string `struc:"[4]byte"`
	Version uint32
	// Right-null-padded.
	Name     string `struc:"[32]byte"`
	Entry    uint64
	SegCount uint16
}

type segmentHeader struct {
	Addr    uint64
	MemSize uint64
	Size    uint64
	Prot    uint8
}

func MatchImage(r io.ReaderAt) bool {
	var p [4]byte
	_, err := r.ReadAt(p[:], 0)
	return err == nil && bytes.Equal(p[:], []byte(IMAGE_MAGIC))
}

// Encode writes img as a packed header and segment table followed by the
// snappy-compressed segment contents.
func Encode(w io.Writer, img *Image) error {
	if len(img.Name) > 32 {
		return errors.Errorf("image name %q is too long", img.Name)
	}
	header := &imageHeader{
		Magic:    IMAGE_MAGIC,
		Version:  imageVersion,
		Name:     img.Name,
		Entry:    img.Entry,
		SegCount: uint16(len(img.Segments)),
	}
	if err := struc.PackWithOrder(w, header, binary.LittleEndian); err != nil {
		return errors.Wrap(err, "failed to pack header")
	}
	for _, seg := range img.Segments {
		sh := &segmentHeader{Addr: seg.Addr, MemSize: seg.MemSize, Size: uint64(len(seg.Data)), Prot: uint8(seg.Prot)}
		if err := struc.PackWithOrder(w, sh, binary.LittleEndian); err != nil {
			return errors.Wrap(err, "failed to pack segment header")
		}
	}
	zw := snappy.NewBufferedWriter(w)
	for _, seg := range img.Segments {
		if _, err := zw.Write(seg.Data); err != nil {
			return errors.Wrap(err, "failed to write segment")
		}
	}
	return zw.Close()
}

func Decode(r io.Reader) (*Image, error) {
	var header imageHeader
	if err := struc.UnpackWithOrder(r, &header, binary.LittleEndian); err != nil {
		return nil, errors.Wrap(err, "failed to unpack header")
	}
	if header.Magic != IMAGE_MAGIC {
		return nil, errors.WithStack(UnknownMagic)
	}
	if header.Version != imageVersion {
		return nil, errors.Errorf("unsupported image version %d", header.Version)
	}
	img := &Image{
		Name:     strings.TrimRight(header.Name, "\x00"),
		Entry:    header.Entry,
		Segments: make([]Segment, header.SegCount),
	}
	sizes := make([]uint64, header.SegCount)
	for i := range img.Segments {
		var sh segmentHeader
		if err := struc.UnpackWithOrder(r, &sh, binary.LittleEndian); err != nil {
			return nil, errors.Wrap(err, "failed to unpack segment header")
		}
		if sh.Size > sh.MemSize {
			return nil, errors.Errorf("segment %d: file size %d exceeds memory size %d", i, sh.Size, sh.MemSize)
		}
		img.Segments[i] = Segment{Addr: sh.Addr, MemSize: sh.MemSize, Prot: int(sh.Prot)}
		sizes[i] = sh.Size
	}
	zr := snappy.NewReader(r)
	for i := range img.Segments {
		data := make([]byte, sizes[i])
		if _, err := io.ReadFull(zr, data); err != nil {
			return nil, errors.Wrapf(err, "segment %d", i)
		}
		img.Segments[i].Data = data
	}
	return img, nil
}

func LoadFile(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return img, nil
}

func SaveFile(path string, img *Image) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create image '%s'", path)
	}
	if err := Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadDir registers every image file in dir under its base name.
func LoadDir(r *Registry, dir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+ImageExt))
	if err != nil {
		return 0, errors.WithStack(err)
	}
	count := 0
	for _, path := range matches {
		img, err := LoadFile(path)
		if err != nil {
			log.Warningf("skipping %s: %v", path, err)
			continue
		}
		img.Name = strings.TrimSuffix(filepath.Base(path), ImageExt)
		r.Add(img)
		count++
	}
	return count, nil
}
