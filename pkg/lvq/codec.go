package lvq

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// Persistence blob layout, all fields big-endian:
//
//	magic      4 bytes "LVQ1"
//	version    uint16, currently 1
//	dim        uint32
//	size       uint32
//	has_labels uint8
//	prototypes size x dim float64, prototype-major
//	labels     size x int32, present iff has_labels=1
const (
	codecMagic   = "LVQ1"
	codecVersion = 1
)

// Store writes the codebook to w in the persistence blob layout.
// Loading the result restores prototype contents and labels bit-exact.
func (c *Codebook) Store(w io.Writer) error {
	bw := bufio.NewWriter(w)

	header := make([]byte, 0, 15)
	header = append(header, codecMagic...)
	header = binary.BigEndian.AppendUint16(header, codecVersion)
	header = binary.BigEndian.AppendUint32(header, uint32(c.dim))
	header = binary.BigEndian.AppendUint32(header, uint32(len(c.protos)))
	if c.labels != nil {
		header = append(header, 1)
	} else {
		header = append(header, 0)
	}
	if _, err := bw.Write(header); err != nil {
		return fmt.Errorf("%w: writing header: %v", ErrIO, err)
	}

	var buf [8]byte
	for _, p := range c.protos {
		for _, x := range p {
			binary.BigEndian.PutUint64(buf[:], math.Float64bits(x))
			if _, err := bw.Write(buf[:]); err != nil {
				return fmt.Errorf("%w: writing prototypes: %v", ErrIO, err)
			}
		}
	}
	for _, l := range c.labels {
		binary.BigEndian.PutUint32(buf[:4], uint32(int32(l)))
		if _, err := bw.Write(buf[:4]); err != nil {
			return fmt.Errorf("%w: writing labels: %v", ErrIO, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: flushing blob: %v", ErrIO, err)
	}
	return nil
}

// Load reads a codebook previously written by Store. A blob with a bad
// magic, an unsupported version, a truncated payload, or a non-finite
// prototype component is rejected with ErrFormat.
func Load(r io.Reader) (*Codebook, error) {
	header := make([]byte, 15)
	if err := readFull(r, header, "header"); err != nil {
		return nil, err
	}

	if string(header[:4]) != codecMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrFormat, header[:4])
	}
	if v := binary.BigEndian.Uint16(header[4:6]); v != codecVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrFormat, v)
	}
	dim := int(binary.BigEndian.Uint32(header[6:10]))
	size := int(binary.BigEndian.Uint32(header[10:14]))
	hasLabels := header[14]
	if hasLabels > 1 {
		return nil, fmt.Errorf("%w: invalid label flag %d", ErrFormat, hasLabels)
	}
	if dim < 1 || size < 1 {
		return nil, fmt.Errorf("%w: invalid shape %dx%d", ErrFormat, size, dim)
	}

	c, err := New(dim, size)
	if err != nil {
		return nil, err
	}

	var buf [8]byte
	for i, p := range c.protos {
		for j := range p {
			if err := readFull(r, buf[:], "prototypes"); err != nil {
				return nil, err
			}
			x := math.Float64frombits(binary.BigEndian.Uint64(buf[:]))
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return nil, fmt.Errorf("%w: non-finite component %d of prototype %d", ErrFormat, j, i)
			}
			p[j] = x
		}
	}

	if hasLabels == 1 {
		labels := make([]int, size)
		for i := range labels {
			if err := readFull(r, buf[:4], "labels"); err != nil {
				return nil, err
			}
			l := int32(binary.BigEndian.Uint32(buf[:4]))
			if l < 0 || int(l) >= size {
				return nil, fmt.Errorf("%w: invalid label %d for prototype %d", ErrFormat, l, i)
			}
			labels[i] = int(l)
		}
		c.labels = labels
	}

	return c, nil
}

// StoreFile writes the codebook blob to a file, creating or truncating
// it.
func (c *Codebook) StoreFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := c.Store(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

// LoadFile reads a codebook blob from a file.
func LoadFile(path string) (*Codebook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	defer f.Close()
	return Load(f)
}

// readFull fills buf from r, mapping a short read to a format error
// and any other failure to an i/o error.
func readFull(r io.Reader, buf []byte, section string) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: truncated blob in %s", ErrFormat, section)
		}
		return fmt.Errorf("%w: reading %s: %v", ErrIO, section, err)
	}
	return nil
}
