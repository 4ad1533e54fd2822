// Package audio converts recorded audio payloads into the PCM WAV format the
// speech recognizers require.
//
// Browser recorders deliver audio in whatever container the platform favours
// (WebM/Opus on Chrome, MP4/AAC on Safari, Ogg on Firefox). Demuxing and
// decoding those is delegated to the ffmpeg binary; this package only manages
// the temp files around the invocation and guarantees they are removed on
// every exit path.
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Recognizer input format: 16 kHz mono signed 16-bit little-endian PCM.
const (
	targetSampleRate = 16000
	targetChannels   = 1
)

// ErrFFmpegNotFound is returned when the ffmpeg binary is not on PATH.
var ErrFFmpegNotFound = errors.New("audio: ffmpeg binary not found")

// Transcoder converts an audio payload into 16 kHz mono PCM WAV. It exists as
// an interface so tests can substitute a passthrough implementation without
// requiring ffmpeg on the test machine.
type Transcoder interface {
	ToWAV(ctx context.Context, data []byte, mimeType string) ([]byte, error)
}

// FFmpeg is the default [Transcoder], shelling out to the ffmpeg binary.
// The zero value is ready to use.
type FFmpeg struct {
	// Path overrides the ffmpeg binary location. Empty means look up "ffmpeg"
	// on PATH.
	Path string
}

// ToWAV writes data to a temp file, runs ffmpeg to produce a 16 kHz mono
// pcm_s16le WAV, and returns the WAV bytes. Both temp files are removed before
// return regardless of outcome.
func (f *FFmpeg) ToWAV(ctx context.Context, data []byte, mimeType string) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("audio: empty payload")
	}

	bin := f.Path
	if bin == "" {
		var err error
		bin, err = exec.LookPath("ffmpeg")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFFmpegNotFound, err)
		}
	}

	dir, err := os.MkdirTemp("", "valisia-audio-*")
	if err != nil {
		return nil, fmt.Errorf("audio: create temp dir: %w", err)
	}
	// One RemoveAll covers input, output, and any partial file ffmpeg left
	// behind after a failure.
	defer os.RemoveAll(dir)

	inPath := filepath.Join(dir, "input."+extensionFor(mimeType))
	outPath := filepath.Join(dir, "output.wav")

	if err := os.WriteFile(inPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("audio: write input: %w", err)
	}

	cmd := exec.CommandContext(ctx, bin,
		"-hide_banner", "-loglevel", "error",
		"-i", inPath,
		"-ar", fmt.Sprint(targetSampleRate),
		"-ac", fmt.Sprint(targetChannels),
		"-acodec", "pcm_s16le",
		"-f", "wav",
		"-y", outPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("audio: transcode cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("audio: ffmpeg: %w: %s", err, strings.TrimSpace(string(out)))
	}

	wav, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("audio: read output: %w", err)
	}
	return wav, nil
}

// extensionFor maps a MIME type to a file extension ffmpeg can use to guess
// the container format. Unknown types fall back to "webm", the most common
// browser recorder output.
func extensionFor(mimeType string) string {
	sub := mimeType
	if i := strings.Index(sub, "/"); i >= 0 {
		sub = sub[i+1:]
	}
	// Strip codec parameters such as "webm;codecs=opus".
	if i := strings.Index(sub, ";"); i >= 0 {
		sub = sub[:i]
	}
	sub = strings.TrimSpace(strings.ToLower(sub))

	switch sub {
	case "mpeg", "mp3":
		return "mp3"
	case "mp4", "m4a", "x-m4a":
		return "m4a"
	case "ogg", "opus":
		return "ogg"
	case "wav", "x-wav", "wave":
		return "wav"
	case "webm", "":
		return "webm"
	default:
		return sub
	}
}
