package stream

import (
	"bytes"
	"io"
	"os"
	"sort"

	"nscope/internal/core/errors"
	"nscope/internal/shared/observability"
)

// DefaultBufferSize is the working buffer used when none is configured.
const DefaultBufferSize = 8192

// ToEnd as a replacement size selects everything from the offset to the
// end of the stream.
const ToEnd int64 = -1

// Stream is a random access byte stream that can be shortened. *os.File
// satisfies it.
type Stream interface {
	io.ReadWriteSeeker
	Truncate(size int64) error
}

// Replacement replaces Size bytes at Offset with Data. A nil Data deletes
// the range and a zero Size inserts.
type Replacement struct {
	Offset int64
	Size   int64
	Data   []byte
}

// Editor splices byte ranges in streams through a fixed-size buffer, so
// memory use does not depend on stream length.
type Editor struct {
	bufferSize int
}

// NewEditor returns an Editor. Sizes below one select DefaultBufferSize.
func NewEditor(bufferSize int) *Editor {
	if bufferSize < 1 {
		bufferSize = DefaultBufferSize
	}
	return &Editor{bufferSize: bufferSize}
}

func (e *Editor) BufferSize() int {
	return e.bufferSize
}

// Session binds the editor to one stream. Path only annotates errors and
// may be empty. A session drives the stream cursor and must not be shared
// between goroutines.
func (e *Editor) Session(s Stream, path string) *Session {
	return &Session{stream: s, path: path, buf: make([]byte, e.bufferSize)}
}

// EditFile opens path read-write, applies the replacements as one batch and
// returns the size delta.
func (e *Editor) EditFile(path string, replacements []Replacement) (int64, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return 0, errors.Read(path, err)
	}
	delta, err := e.Session(f, path).ReplaceMultiple(replacements)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = errors.Write(path, closeErr)
	}
	return delta, err
}

type Session struct {
	stream Stream
	path   string
	buf    []byte
}

// Replace replaces size bytes at offset with data and returns the change
// in stream length. A size of ToEnd replaces through the end of the
// stream. Ranges reaching past the end are clipped to it.
//
// A failure part way through can leave the tail partially shifted.
func (s *Session) Replace(offset, size int64, data []byte) (int64, error) {
	streamSize, err := s.size()
	if err != nil {
		return 0, err
	}
	if offset < 0 || offset > streamSize {
		return 0, errors.OffsetOutOfBounds(offset, s.path, io.ErrUnexpectedEOF)
	}
	if _, err := s.stream.Seek(offset, io.SeekStart); err != nil {
		return 0, errors.OffsetOutOfBounds(offset, s.path, errors.Read(s.path, err))
	}
	if size < 0 || offset+size > streamSize {
		size = streamSize - offset
	}

	delta := int64(len(data)) - size
	switch {
	case delta > 0:
		err = s.expand(delta, offset+size, streamSize)
	case delta < 0:
		err = s.contract(delta, offset+size, streamSize)
	}
	if err != nil {
		return 0, err
	}

	if err := s.seek(offset); err != nil {
		return 0, err
	}
	if err := s.write(data); err != nil {
		return 0, err
	}
	observability.StreamReplacementsTotal.Inc()
	return delta, nil
}

// ReplaceMultiple applies independent replacements expressed in original
// stream offsets. They run from the highest offset down, ties in input
// order, so no edit moves a range that another edit still refers to.
func (s *Session) ReplaceMultiple(replacements []Replacement) (int64, error) {
	ordered := make([]Replacement, len(replacements))
	copy(ordered, replacements)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Offset > ordered[j].Offset
	})

	var total int64
	for _, r := range ordered {
		delta, err := s.Replace(r.Offset, r.Size, r.Data)
		if err != nil {
			return total, err
		}
		total += delta
	}
	return total, nil
}

// FindIndentByOffset returns the run of spaces and tabs that starts the
// line containing offset.
func (s *Session) FindIndentByOffset(offset int64) (string, error) {
	one := s.buf[:1]
	for offset > 0 {
		offset--
		if err := s.seek(offset); err != nil {
			return "", err
		}
		if _, err := io.ReadFull(s.stream, one); err != nil {
			return "", errors.Read(s.path, err)
		}
		if one[0] == '\n' || one[0] == '\r' {
			offset++
			break
		}
	}

	if err := s.seek(offset); err != nil {
		return "", err
	}
	var indent bytes.Buffer
	for {
		_, err := io.ReadFull(s.stream, one)
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", errors.Read(s.path, err)
		}
		if one[0] != ' ' && one[0] != '\t' {
			break
		}
		indent.WriteByte(one[0])
	}
	return indent.String(), nil
}

// expand moves [from, end) forward by delta, last window first.
func (s *Session) expand(delta, from, end int64) error {
	window := int64(len(s.buf))
	for pos := end; pos > from; {
		start := pos - window
		if start < from {
			start = from
		}
		chunk := s.buf[:pos-start]
		if err := s.seek(start); err != nil {
			return err
		}
		if _, err := io.ReadFull(s.stream, chunk); err != nil {
			return errors.Read(s.path, err)
		}
		if err := s.seekOrExtend(start + delta); err != nil {
			return err
		}
		if err := s.write(chunk); err != nil {
			return err
		}
		observability.StreamBytesShiftedTotal.Add(float64(len(chunk)))
		pos = start
	}
	return nil
}

// contract moves [from, end) back by -delta, first window first, and then
// truncates the stream.
func (s *Session) contract(delta, from, end int64) error {
	for pos := from; pos < end; {
		if err := s.seek(pos); err != nil {
			return err
		}
		n, err := io.ReadFull(s.stream, s.buf)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return errors.Read(s.path, err)
		}
		if n == 0 {
			break
		}
		if err := s.seek(pos + delta); err != nil {
			return err
		}
		if err := s.write(s.buf[:n]); err != nil {
			return err
		}
		observability.StreamBytesShiftedTotal.Add(float64(n))
		pos += int64(n)
	}
	if err := s.stream.Truncate(end + delta); err != nil {
		return errors.Write(s.path, err)
	}
	return nil
}

// seekOrExtend positions the cursor at offset, zero filling from the
// current end when offset lies beyond it.
func (s *Session) seekOrExtend(offset int64) error {
	size, err := s.size()
	if err != nil {
		return err
	}
	if offset <= size {
		return s.seek(offset)
	}
	if err := s.seek(size); err != nil {
		return err
	}
	zeros := make([]byte, len(s.buf))
	for remaining := offset - size; remaining > 0; {
		n := int64(len(zeros))
		if n > remaining {
			n = remaining
		}
		if err := s.write(zeros[:n]); err != nil {
			return err
		}
		remaining -= n
	}
	return nil
}

func (s *Session) size() (int64, error) {
	size, err := s.stream.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, errors.Read(s.path, err)
	}
	return size, nil
}

func (s *Session) seek(offset int64) error {
	if _, err := s.stream.Seek(offset, io.SeekStart); err != nil {
		return errors.Read(s.path, err)
	}
	return nil
}

func (s *Session) write(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if _, err := s.stream.Write(data); err != nil {
		return errors.Write(s.path, err)
	}
	return nil
}
