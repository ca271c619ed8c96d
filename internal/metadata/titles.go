package metadata

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// maxTagSize bounds how much of a tag block is read into memory
const maxTagSize = 16 << 20

// titleValues returns every value of the title in an ID3v2 tag or a FLAC
// Vorbis comment block. The tag library collapses repeated values into one
// string, so the frames are read again here.
func titleValues(r io.ReadSeeker) []string {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil
	}
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil
	}
	switch {
	case string(magic[:3]) == "ID3":
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil
		}
		return id3TitleValues(r)
	case string(magic[:]) == "fLaC":
		return flacTitleValues(r)
	}
	return nil
}

func syncsafe(b []byte) int {
	return int(b[0]&0x7f)<<21 | int(b[1]&0x7f)<<14 | int(b[2]&0x7f)<<7 | int(b[3]&0x7f)
}

func id3TitleValues(r io.Reader) []string {
	var header [10]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil
	}
	version, flags := header[3], header[5]
	size := syncsafe(header[6:10])
	// unsynchronised tags are rare and not worth decoding here
	if version < 2 || version > 4 || flags&0x80 != 0 || size > maxTagSize {
		return nil
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil
	}

	if flags&0x40 != 0 && version > 2 {
		if len(body) < 4 {
			return nil
		}
		skip := int(binary.BigEndian.Uint32(body[:4])) + 4
		if version == 4 {
			skip = syncsafe(body[:4])
		}
		if skip > len(body) {
			return nil
		}
		body = body[skip:]
	}

	idLen, headLen, want := 4, 10, "TIT2"
	if version == 2 {
		idLen, headLen, want = 3, 6, "TT2"
	}
	for len(body) >= headLen && body[0] != 0 {
		id := string(body[:idLen])
		var n int
		switch version {
		case 2:
			n = int(body[3])<<16 | int(body[4])<<8 | int(body[5])
		case 3:
			n = int(binary.BigEndian.Uint32(body[4:8]))
		default:
			n = syncsafe(body[4:8])
		}
		if n < 0 || headLen+n > len(body) {
			return nil
		}
		if id == want {
			// compressed, encrypted or unsynchronised frames are skipped
			if version > 2 && body[9] != 0 {
				return nil
			}
			return decodeTextFrame(body[headLen : headLen+n])
		}
		body = body[headLen+n:]
	}
	return nil
}

// decodeTextFrame splits a text frame on its NUL separators and decodes
// each value in the frame's encoding
func decodeTextFrame(b []byte) []string {
	if len(b) < 2 {
		return nil
	}
	enc, text := b[0], b[1:]

	var dec *encoding.Decoder
	var parts [][]byte
	switch enc {
	case 0:
		dec = charmap.ISO8859_1.NewDecoder()
		parts = bytes.Split(text, []byte{0})
	case 1:
		dec = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		parts = splitUTF16(text)
	case 2:
		dec = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
		parts = splitUTF16(text)
	case 3:
		parts = bytes.Split(text, []byte{0})
	default:
		return nil
	}

	var values []string
	for _, p := range parts {
		if dec != nil {
			decoded, err := dec.Bytes(p)
			if err != nil {
				continue
			}
			p = decoded
		}
		if v := strings.TrimSpace(string(p)); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// splitUTF16 splits on double NUL code units at even offsets
func splitUTF16(b []byte) [][]byte {
	var parts [][]byte
	start := 0
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			parts = append(parts, b[start:i])
			start = i + 2
		}
	}
	if start < len(b) {
		parts = append(parts, b[start:])
	}
	return parts
}

func flacTitleValues(r io.ReadSeeker) []string {
	for {
		var head [4]byte
		if _, err := io.ReadFull(r, head[:]); err != nil {
			return nil
		}
		last, kind := head[0]&0x80 != 0, head[0]&0x7f
		n := int(head[1])<<16 | int(head[2])<<8 | int(head[3])
		if kind == 4 {
			block := make([]byte, n)
			if _, err := io.ReadFull(r, block); err != nil {
				return nil
			}
			return vorbisTitleValues(block)
		}
		if last {
			return nil
		}
		if _, err := r.Seek(int64(n), io.SeekCurrent); err != nil {
			return nil
		}
	}
}

func vorbisTitleValues(b []byte) []string {
	next := func() ([]byte, bool) {
		if len(b) < 4 {
			return nil, false
		}
		n := int(binary.LittleEndian.Uint32(b[:4]))
		if n < 0 || 4+n > len(b) {
			return nil, false
		}
		v := b[4 : 4+n]
		b = b[4+n:]
		return v, true
	}

	if _, ok := next(); !ok { // vendor
		return nil
	}
	if len(b) < 4 {
		return nil
	}
	count := int(binary.LittleEndian.Uint32(b[:4]))
	b = b[4:]

	var values []string
	for range count {
		c, ok := next()
		if !ok {
			break
		}
		k, v, found := strings.Cut(string(c), "=")
		if found && strings.EqualFold(k, "title") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
	}
	return values
}
