// Package audio handles waveform loading, per-turn segment extraction, and
// long-turn chunking for the transcription pipeline.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// LoadWAV reads a RIFF/WAVE file containing 16-bit PCM samples and returns the
// waveform downmixed to mono (channel average, samples in [-1, 1]) together
// with its sample rate.
func LoadWAV(path string) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	var riff [12]byte
	if _, err := io.ReadFull(f, riff[:]); err != nil {
		return nil, 0, fmt.Errorf("read RIFF header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("%s: not a RIFF/WAVE file", path)
	}

	var (
		channels      int
		sampleRate    int
		bitsPerSample int
		data          []byte
	)

	// Chunk walk: only "fmt " and "data" matter, everything else is skipped.
	for {
		var header [8]byte
		if _, err := io.ReadFull(f, header[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, 0, fmt.Errorf("read chunk header: %w", err)
		}
		chunkID := string(header[0:4])
		chunkSize := int(binary.LittleEndian.Uint32(header[4:8]))

		switch chunkID {
		case "fmt ":
			body := make([]byte, chunkSize)
			if _, err := io.ReadFull(f, body); err != nil {
				return nil, 0, fmt.Errorf("read fmt chunk: %w", err)
			}
			audioFormat := int(binary.LittleEndian.Uint16(body[0:2]))
			if audioFormat != 1 {
				return nil, 0, fmt.Errorf("unsupported WAV format %d (only PCM)", audioFormat)
			}
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))
		case "data":
			data = make([]byte, chunkSize)
			if _, err := io.ReadFull(f, data); err != nil {
				return nil, 0, fmt.Errorf("read data chunk: %w", err)
			}
		default:
			// Odd-sized chunks carry a pad byte.
			skip := int64(chunkSize)
			if chunkSize%2 == 1 {
				skip++
			}
			if _, err := f.Seek(skip, io.SeekCurrent); err != nil {
				return nil, 0, fmt.Errorf("skip chunk %q: %w", chunkID, err)
			}
		}
		if channels > 0 && data != nil {
			break
		}
	}

	if channels == 0 || sampleRate == 0 {
		return nil, 0, fmt.Errorf("%s: missing fmt chunk", path)
	}
	if bitsPerSample != 16 {
		return nil, 0, fmt.Errorf("unsupported bit depth %d (only 16-bit PCM)", bitsPerSample)
	}
	if data == nil {
		return nil, 0, fmt.Errorf("%s: missing data chunk", path)
	}

	frames := len(data) / 2 / channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			off := (i*channels + c) * 2
			sample := int16(binary.LittleEndian.Uint16(data[off : off+2]))
			sum += float32(sample) / 32768.0
		}
		mono[i] = sum / float32(channels)
	}

	return mono, sampleRate, nil
}

// WriteWAV writes mono float32 samples as a 16-bit PCM WAV file.
func WriteWAV(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	const (
		channels      = 1
		bitsPerSample = 16
	)
	dataSize := len(samples) * 2
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8
	chunkSize := 36 + dataSize

	// RIFF header
	f.Write([]byte("RIFF"))
	binary.Write(f, binary.LittleEndian, uint32(chunkSize))
	f.Write([]byte("WAVE"))
	// fmt chunk
	f.Write([]byte("fmt "))
	binary.Write(f, binary.LittleEndian, uint32(16))            // Subchunk1Size
	binary.Write(f, binary.LittleEndian, uint16(1))             // PCM
	binary.Write(f, binary.LittleEndian, uint16(channels))      // NumChannels
	binary.Write(f, binary.LittleEndian, uint32(sampleRate))    // SampleRate
	binary.Write(f, binary.LittleEndian, uint32(byteRate))      // ByteRate
	binary.Write(f, binary.LittleEndian, uint16(blockAlign))    // BlockAlign
	binary.Write(f, binary.LittleEndian, uint16(bitsPerSample)) // BitsPerSample
	// data chunk
	f.Write([]byte("data"))
	binary.Write(f, binary.LittleEndian, uint32(dataSize))

	for _, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		if err := binary.Write(f, binary.LittleEndian, int16(s*32767)); err != nil {
			return err
		}
	}
	return nil
}
