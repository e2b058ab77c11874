package duration

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildMP3 assembles a minimal CBR MPEG-1 Layer III stream: optional ID3v2
// tag, then frames of 128 kbit/s at 44.1 kHz.
func buildMP3(t *testing.T, withTag bool, audioBytes int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if withTag {
		tag := make([]byte, 10+100)
		copy(tag, "ID3")
		tag[3] = 4
		tag[9] = 100 // synchsafe payload size
		buf.Write(tag)
	}
	audio := make([]byte, audioBytes)
	// MPEG-1 Layer III, 128 kbit/s, 44.1 kHz, stereo.
	audio[0], audio[1], audio[2], audio[3] = 0xFF, 0xFB, 0x90, 0x00
	buf.Write(audio)
	return buf.Bytes()
}

func TestProbeMP3CBREstimate(t *testing.T) {
	dir := t.TempDir()
	// 160000 bytes at 128 kbit/s is 10 seconds.
	path := filepath.Join(dir, "book.mp3")
	require.NoError(t, os.WriteFile(path, buildMP3(t, true, 160000), 0o644))

	d := Probe(path)
	assert.InDelta(t, 10.0, d.Seconds(), 0.1)
}

func TestProbeMP3NoTag(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.mp3")
	require.NoError(t, os.WriteFile(path, buildMP3(t, false, 16000), 0o644))

	d := Probe(path)
	assert.InDelta(t, 1.0, d.Seconds(), 0.1)
}

func TestProbeMP3Garbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "noise.mp3")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0x00}, 4096), 0o644))
	assert.Zero(t, Probe(path))
}

// buildM4B assembles a minimal MP4 with a moov/mvhd declaring the given
// duration in a 1000-tick timescale.
func buildM4B(t *testing.T, seconds uint32) []byte {
	t.Helper()
	mvhd := make([]byte, 8+32)
	binary.BigEndian.PutUint32(mvhd[:4], uint32(len(mvhd)))
	copy(mvhd[4:8], "mvhd")
	// version 0: ctime and mtime at 12..20, timescale at 20, duration at 24.
	binary.BigEndian.PutUint32(mvhd[8+12:], 1000)
	binary.BigEndian.PutUint32(mvhd[8+16:], seconds*1000)

	moov := make([]byte, 8)
	binary.BigEndian.PutUint32(moov[:4], uint32(8+len(mvhd)))
	copy(moov[4:8], "moov")

	ftyp := make([]byte, 16)
	binary.BigEndian.PutUint32(ftyp[:4], 16)
	copy(ftyp[4:8], "ftyp")
	copy(ftyp[8:12], "M4B ")

	var buf bytes.Buffer
	buf.Write(ftyp)
	buf.Write(moov)
	buf.Write(mvhd)
	return buf.Bytes()
}

func TestProbeMP4(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.m4b")
	require.NoError(t, os.WriteFile(path, buildM4B(t, 90), 0o644))

	d := Probe(path)
	assert.Equal(t, 90*time.Second, d)
}

func TestProbeUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.flac")
	require.NoError(t, os.WriteFile(path, []byte("fLaC"), 0o644))
	assert.Zero(t, Probe(path))
}

func TestSynthesize(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "01 - Opening.mp3")
	second := filepath.Join(dir, "02 - The Road.mp3")
	require.NoError(t, os.WriteFile(first, buildMP3(t, false, 160000), 0o644))
	require.NoError(t, os.WriteFile(second, buildMP3(t, false, 320000), 0o644))

	chapters := Synthesize([]string{first, second})
	require.Len(t, chapters, 2)

	assert.Equal(t, 1, chapters[0].ID)
	assert.Equal(t, "Opening", chapters[0].Title)
	assert.Equal(t, time.Duration(0), chapters[0].Start)
	assert.InDelta(t, 10.0, chapters[0].End.Seconds(), 0.1)

	assert.Equal(t, "The Road", chapters[1].Title)
	assert.InDelta(t, 10.0, chapters[1].Start.Seconds(), 0.1)
	assert.InDelta(t, 30.0, chapters[1].End.Seconds(), 0.1)
}

func TestSynthesizeUnknownMemberAbortsAll(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "01.mp3")
	bad := filepath.Join(dir, "02.mp3")
	require.NoError(t, os.WriteFile(good, buildMP3(t, false, 160000), 0o644))
	require.NoError(t, os.WriteFile(bad, bytes.Repeat([]byte{0x00}, 1024), 0o644))

	assert.Nil(t, Synthesize([]string{good, bad}))
}

func TestSynthesizeSingleFile(t *testing.T) {
	assert.Nil(t, Synthesize([]string{"/x/book.mp3"}))
}

func TestChapterTitle(t *testing.T) {
	tests := []struct {
		path string
		n    int
		want string
	}{
		{"01 - The Spice.mp3", 1, "The Spice"},
		{"Chapter 02 - Arrakis.mp3", 2, "Arrakis"},
		{"Part 3.mp3", 3, "Chapter 3"},
		{"07 Stilgar.mp3", 7, "Stilgar"},
		{"audiobook.mp3", 4, "Chapter 4"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, chapterTitle(tt.path, tt.n), tt.path)
	}
}
