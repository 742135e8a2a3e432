// Package audio loads uploaded WAV files into PCM buffers that recognizer
// backends understand.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrInvalidWAV is returned when a file is not a readable PCM WAV file.
var ErrInvalidWAV = errors.New("not a valid PCM wav file")

// wavFormatPCM is the WAVE_FORMAT_PCM tag in the fmt chunk.
const wavFormatPCM = 1

// Clip is a decoded WAV file.
type Clip struct {
	Path       string
	SampleRate int
	Channels   int
	BitDepth   int
	// Samples holds interleaved integer samples at the source bit depth.
	Samples []int
}

// Load decodes the WAV file at path.
func Load(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: format tag %d", ErrInvalidWAV, dec.WavAudioFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode pcm: %w", err)
	}

	return &Clip{
		Path:       path,
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		Samples:    buf.Data,
	}, nil
}

// Duration returns the playback length of the clip.
func (c *Clip) Duration() time.Duration {
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return 0
	}
	frames := len(c.Samples) / c.Channels
	return time.Duration(frames) * time.Second / time.Duration(c.SampleRate)
}

// sample16 scales a source sample to the signed 16-bit range.
func (c *Clip) sample16(s int) int {
	switch c.BitDepth {
	case 8:
		return (s - 128) << 8
	case 24:
		return s >> 8
	case 32:
		return s >> 16
	default:
		return s
	}
}

// PCM16 returns the samples as interleaved little-endian signed 16-bit PCM.
func (c *Clip) PCM16() []byte {
	out := make([]byte, len(c.Samples)*2)
	for i, s := range c.Samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(clamp16(c.sample16(s)))))
	}
	return out
}

// RMS returns the root-mean-square energy on the 16-bit scale.
func (c *Clip) RMS() float64 {
	if len(c.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range c.Samples {
		v := float64(c.sample16(s))
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(c.Samples)))
}

func clamp16(v int) int {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return v
}

// Write encodes mono 16-bit samples as a WAV file.
func Write(w io.WriteSeeker, sampleRate int, samples []int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, 1, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}

// WriteSilence encodes d of digital silence.
func WriteSilence(w io.WriteSeeker, sampleRate int, d time.Duration) error {
	n := int(int64(sampleRate) * int64(d) / int64(time.Second))
	return Write(w, sampleRate, make([]int, n))
}

// Tone returns n samples of a sine wave at freq Hz with the given amplitude.
func Tone(sampleRate int, freq float64, amplitude int, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = int(float64(amplitude) * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return out
}

// Mono returns the clip with channels averaged into one. Mono clips are
// returned unchanged.
func (c *Clip) Mono() *Clip {
	if c.Channels <= 1 {
		return c
	}
	frames := len(c.Samples) / c.Channels
	out := make([]int, frames)
	for i := 0; i < frames; i++ {
		var sum int
		for ch := 0; ch < c.Channels; ch++ {
			sum += c.Samples[i*c.Channels+ch]
		}
		out[i] = sum / c.Channels
	}
	return &Clip{
		Path:       c.Path,
		SampleRate: c.SampleRate,
		Channels:   1,
		BitDepth:   c.BitDepth,
		Samples:    out,
	}
}
