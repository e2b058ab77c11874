package duration

import (
	"encoding/binary"
	"io"
	"os"
	"time"
)

// Bitrate tables for MPEG-1 and MPEG-2/2.5 Layer III, in kbit/s.
var (
	bitratesV1 = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0}
	bitratesV2 = [16]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0}

	sampleRatesV1  = [4]int{44100, 48000, 32000, 0}
	sampleRatesV2  = [4]int{22050, 24000, 16000, 0}
	sampleRatesV25 = [4]int{11025, 12000, 8000, 0}
)

// probeMP3 estimates an MP3's duration. A Xing/Info header gives the exact
// frame count for VBR files; otherwise the first frame's bitrate is assumed
// constant for the rest of the audio data.
func probeMP3(path string) time.Duration {
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

	audioStart := int64(id3v2Size(f))
	header := make([]byte, 4)
	if _, err := f.ReadAt(header, audioStart); err != nil {
		return 0
	}
	// Resync: the frame may not start exactly after the tag.
	offset := audioStart
	for !isFrameSync(header) {
		offset++
		if offset > audioStart+64*1024 || offset+4 > size {
			return 0
		}
		if _, err := f.ReadAt(header, offset); err != nil {
			return 0
		}
	}

	version := (header[1] >> 3) & 0x03 // 0=2.5, 2=2, 3=1
	layer := (header[1] >> 1) & 0x03   // 1=III
	if layer != 1 {
		return 0
	}
	bitrateIdx := (header[2] >> 4) & 0x0F
	sampleIdx := (header[2] >> 2) & 0x03

	var bitrate, sampleRate, samplesPerFrame int
	switch version {
	case 3:
		bitrate = bitratesV1[bitrateIdx]
		sampleRate = sampleRatesV1[sampleIdx]
		samplesPerFrame = 1152
	case 2:
		bitrate = bitratesV2[bitrateIdx]
		sampleRate = sampleRatesV2[sampleIdx]
		samplesPerFrame = 576
	case 0:
		bitrate = bitratesV2[bitrateIdx]
		sampleRate = sampleRatesV25[sampleIdx]
		samplesPerFrame = 576
	default:
		return 0
	}
	if bitrate == 0 || sampleRate == 0 {
		return 0
	}

	if frames, ok := xingFrameCount(f, offset, version, header); ok {
		seconds := float64(frames) * float64(samplesPerFrame) / float64(sampleRate)
		return time.Duration(seconds * float64(time.Second))
	}

	audioBytes := size - offset
	seconds := float64(audioBytes*8) / float64(bitrate*1000)
	return time.Duration(seconds * float64(time.Second))
}

func isFrameSync(h []byte) bool {
	return h[0] == 0xFF && h[1]&0xE0 == 0xE0 && (h[1]>>3)&0x03 != 1 && (h[1]>>1)&0x03 != 0
}

// xingFrameCount reads the frame count from a Xing or Info header when one
// sits in the first frame.
func xingFrameCount(r io.ReaderAt, frameOffset int64, version byte, header []byte) (uint32, bool) {
	channelMode := (header[3] >> 6) & 0x03

	// The Xing header offset inside the frame depends on version and mode.
	var xingOffset int64
	if version == 3 {
		xingOffset = 36
		if channelMode == 3 {
			xingOffset = 21
		}
	} else {
		xingOffset = 21
		if channelMode == 3 {
			xingOffset = 13
		}
	}

	buf := make([]byte, 12)
	if _, err := r.ReadAt(buf, frameOffset+xingOffset); err != nil {
		return 0, false
	}
	tag := string(buf[:4])
	if tag != "Xing" && tag != "Info" {
		return 0, false
	}
	flags := binary.BigEndian.Uint32(buf[4:8])
	if flags&0x01 == 0 {
		return 0, false
	}
	return binary.BigEndian.Uint32(buf[8:12]), true
}

// id3v2Size returns the total size of a leading ID3v2 tag, zero when the
// file has none.
func id3v2Size(r io.ReaderAt) int {
	head := make([]byte, 10)
	if _, err := r.ReadAt(head, 0); err != nil {
		return 0
	}
	if string(head[:3]) != "ID3" {
		return 0
	}
	size := int(head[6]&0x7F)<<21 | int(head[7]&0x7F)<<14 | int(head[8]&0x7F)<<7 | int(head[9]&0x7F)
	size += 10
	if head[5]&0x10 != 0 {
		size += 10 // footer
	}
	return size
}
