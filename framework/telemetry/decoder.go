package telemetry

import (
	"errors"
	"io"
)

// ErrShortRecord is returned when a stream ends in the middle of a record.
var ErrShortRecord = errors.New("stream ended inside a record")

// Decoder splits a byte stream into records. The stream has no delimiters; every record is
// exactly RecordSize bytes.
type Decoder struct {
	in  io.Reader
	buf [RecordSize]byte
}

// NewDecoder creates a Decoder reading from in.
func NewDecoder(in io.Reader) *Decoder {
	return &Decoder{in: in}
}

// Next returns the next record, or io.EOF at a clean end of stream.
func (d *Decoder) Next() (Record, error) {
	if _, err := io.ReadFull(d.in, d.buf[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortRecord
		}
		return nil, err
	}
	return Decode(d.buf[:])
}

// ReadAll decodes records until the end of the stream. The records decoded before an
// error are returned along with it.
func ReadAll(in io.Reader) ([]Record, error) {
	var ret []Record
	d := NewDecoder(in)
	for {
		r, err := d.Next()
		if err == io.EOF {
			return ret, nil
		}
		if err != nil {
			return ret, err
		}
		ret = append(ret, r)
	}
}
