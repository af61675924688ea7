// Package tts provides a unified interface for text-to-speech providers.
//
// The primary implementation synthesizes speech through the buddy backend's
// /tts endpoint. All providers implement the Provider interface, enabling
// seamless switching without changing caller code.
//
// Example usage:
//
//	provider, _ := tts.NewBackend(
//	    tts.WithBaseURL("http://localhost:5000/api"),
//	)
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, "Turn right onto State Street")
//	// result.Audio contains WAV/MP3 audio bytes
package tts

import (
	"context"
	"time"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Synthesize converts text to audio, returning the complete audio buffer.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Health checks provider connectivity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	// Audio contains the raw audio data in the specified format.
	Audio []byte

	// Format describes the audio encoding and sample rate.
	Format AudioFormat

	// Duration is the estimated audio playback duration.
	Duration time.Duration

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the request round-trip time in milliseconds.
	LatencyMs int64
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	// Encoding specifies the audio container or codec.
	Encoding Encoding

	// SampleRate in Hz (e.g., 24000, 44100, 22050).
	SampleRate int

	// Channels is 1 for mono, 2 for stereo.
	Channels int

	// BitDepth for PCM formats (e.g., 16 for PCM16).
	BitDepth int
}

// Encoding represents audio encoding types.
type Encoding string

const (
	// EncodingWAV is a RIFF WAV container with PCM16 samples.
	EncodingWAV Encoding = "wav"

	// EncodingMP3 is MP3 compressed audio.
	EncodingMP3 Encoding = "mp3"

	// EncodingPCM24 is raw 24kHz mono PCM16.
	EncodingPCM24 Encoding = "pcm_24000"
)

// EncodingFromMIME maps an HTTP content type to an encoding.
func EncodingFromMIME(mime string) Encoding {
	switch mime {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return EncodingWAV
	case "audio/mpeg", "audio/mp3":
		return EncodingMP3
	case "audio/pcm":
		return EncodingPCM24
	default:
		return EncodingWAV
	}
}

// SampleRateFromEncoding returns the nominal sample rate for an encoding.
func SampleRateFromEncoding(enc Encoding) int {
	switch enc {
	case EncodingMP3:
		return 44100
	default:
		return 24000
	}
}
