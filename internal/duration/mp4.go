package duration

import (
	"encoding/binary"
	"io"
	"os"
	"time"
)

// probeMP4 reads the duration from an MP4 container's movie header:
// top-level moov atom, mvhd atom inside it, timescale plus duration fields.
func probeMP4(path string) time.Duration {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0
	}
	size := info.Size()

	moovOffset, moovEnd, ok := findAtom(f, 0, size, "moov")
	if !ok {
		return 0
	}
	mvhdOffset, mvhdEnd, ok := findAtom(f, moovOffset, moovEnd, "mvhd")
	if !ok {
		return 0
	}
	return readMvhd(f, mvhdOffset, mvhdEnd)
}

// findAtom scans [start, end) for a box with the given type and returns the
// bounds of its payload.
func findAtom(r io.ReaderAt, start, end int64, name string) (int64, int64, bool) {
	head := make([]byte, 8)
	offset := start
	for offset+8 <= end {
		if _, err := r.ReadAt(head, offset); err != nil {
			return 0, 0, false
		}
		atomSize := int64(binary.BigEndian.Uint32(head[:4]))
		atomType := string(head[4:8])
		headerLen := int64(8)

		if atomSize == 1 {
			// 64-bit extended size follows the type.
			ext := make([]byte, 8)
			if _, err := r.ReadAt(ext, offset+8); err != nil {
				return 0, 0, false
			}
			atomSize = int64(binary.BigEndian.Uint64(ext))
			headerLen = 16
		}
		if atomSize < headerLen {
			return 0, 0, false
		}
		if atomType == name {
			return offset + headerLen, offset + atomSize, true
		}
		offset += atomSize
	}
	return 0, 0, false
}

// readMvhd decodes timescale and duration from a movie header box, handling
// both the 32-bit (version 0) and 64-bit (version 1) layouts.
func readMvhd(r io.ReaderAt, start, end int64) time.Duration {
	buf := make([]byte, 32)
	if end-start < int64(len(buf)) {
		return 0
	}
	if _, err := r.ReadAt(buf, start); err != nil {
		return 0
	}

	version := buf[0]
	var timescale uint32
	var dur uint64
	if version == 1 {
		// 1 version + 3 flags + 8 created + 8 modified.
		timescale = binary.BigEndian.Uint32(buf[20:24])
		dur = binary.BigEndian.Uint64(buf[24:32])
	} else {
		// 1 version + 3 flags + 4 created + 4 modified.
		timescale = binary.BigEndian.Uint32(buf[12:16])
		dur = uint64(binary.BigEndian.Uint32(buf[16:20]))
	}
	if timescale == 0 {
		return 0
	}
	seconds := float64(dur) / float64(timescale)
	return time.Duration(seconds * float64(time.Second))
}
