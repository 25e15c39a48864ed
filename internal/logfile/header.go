// Package logfile holds the on-disk header format shared by the data log
// and the index log (spec §6): a 4-byte magic, a version, a creation
// timestamp, the file's sequence id, and a last-opened timestamp that
// gets rewritten in place every time the file is reopened.
package logfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"
)

// Size is the fixed on-disk size of Header in bytes:
// magic(4) + version(2) + created(4) + fileid(2) + opened(4).
const Size = 4 + 2 + 4 + 2 + 4

const CurrentVersion uint16 = 1

var (
	MagicIndex = [4]byte{'I', 'D', 'X', '0'}
	MagicData  = [4]byte{'D', 'A', 'T', '0'}
)

// Header is the fixed-size record written at the start of every data and
// index log file.
type Header struct {
	Magic   [4]byte
	Version uint16
	Created uint32
	FileID  uint16
	Opened  uint32
}

// New builds a fresh header for fileid, stamping Created and Opened at
// the current time.
func New(magic [4]byte, fileid uint16) Header {
	now := uint32(time.Now().Unix())
	return Header{
		Magic:   magic,
		Version: CurrentVersion,
		Created: now,
		FileID:  fileid,
		Opened:  now,
	}
}

// Encode serializes h into a Size-byte buffer.
func (h Header) Encode() []byte {
	buf := make([]byte, Size)
	copy(buf[0:4], h.Magic[:])
	binary.BigEndian.PutUint16(buf[4:6], h.Version)
	binary.BigEndian.PutUint32(buf[6:10], h.Created)
	binary.BigEndian.PutUint16(buf[10:12], h.FileID)
	binary.BigEndian.PutUint32(buf[12:16], h.Opened)
	return buf
}

// Decode parses a Size-byte buffer into a Header.
func Decode(buf []byte) (Header, error) {
	if len(buf) < Size {
		return Header{}, fmt.Errorf("logfile: short header (%d bytes)", len(buf))
	}
	var h Header
	copy(h.Magic[:], buf[0:4])
	h.Version = binary.BigEndian.Uint16(buf[4:6])
	h.Created = binary.BigEndian.Uint32(buf[6:10])
	h.FileID = binary.BigEndian.Uint16(buf[10:12])
	h.Opened = binary.BigEndian.Uint32(buf[12:16])
	return h, nil
}

// Validate checks the magic and version of h against the expected magic.
func (h Header) Validate(wantMagic [4]byte) error {
	if h.Magic != wantMagic {
		return fmt.Errorf("logfile: bad magic %q, expected %q", h.Magic, wantMagic)
	}
	if h.Version > CurrentVersion {
		return fmt.Errorf("logfile: unsupported version %d", h.Version)
	}
	return nil
}

// WriteAt0 rewrites h at the start of f, without moving f's read/write
// offset (used to refresh "Opened" on each reopen, per spec §4.2's load
// protocol). f must not be opened with O_APPEND: os.File.WriteAt
// rejects such files.
func WriteAt0(f *os.File, h Header) error {
	_, err := f.WriteAt(h.Encode(), 0)
	return err
}

// ReadHeader reads and decodes the Size-byte header at the start of f.
// The file's read offset is left at Size on success.
func ReadHeader(f *os.File) (Header, int, error) {
	buf := make([]byte, Size)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return Header{}, n, err
	}
	if n == 0 {
		return Header{}, 0, nil
	}
	if n < Size {
		return Header{}, n, fmt.Errorf("logfile: torn header (%d of %d bytes)", n, Size)
	}
	h, decErr := Decode(buf)
	return h, n, decErr
}

// Path formats the conventional file name for a log file family
// ("rkv-index" or "rkv-data") at the given sequence id.
func Path(dir, family string, id uint16) string {
	return fmt.Sprintf("%s/%s-%04d", dir, family, id)
}
