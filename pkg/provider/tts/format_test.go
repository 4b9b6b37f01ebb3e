package tts

import (
	"context"
	"testing"
)

type silent struct{}

func (silent) SynthesizeStream(context.Context, <-chan string, VoiceProfile) (<-chan []byte, error) {
	return nil, nil
}

type typed struct {
	silent
	mt string
}

func (t typed) MediaType() string { return t.mt }

func TestFormatMediaType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format string
		want   string
	}{
		{"mp3_44100_128", "audio/mpeg"},
		{"MP3_22050_32", "audio/mpeg"},
		{"pcm_24000", "audio/pcm;rate=24000"},
		{"pcm", "audio/pcm"},
		{"ulaw_8000", "audio/basic"},
		{"alaw_8000", "audio/x-alaw-basic"},
		{"opus_48000_64", "audio/opus"},
		{"wav_44100", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := FormatMediaType(tt.format); got != tt.want {
			t.Errorf("FormatMediaType(%q) = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestMediaTypeOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		p    Provider
		want string
	}{
		{"no media type", silent{}, DefaultMediaType},
		{"empty media type", typed{}, DefaultMediaType},
		{"reported", typed{mt: "audio/opus"}, "audio/opus"},
	}
	for _, tt := range tests {
		if got := MediaTypeOf(tt.p); got != tt.want {
			t.Errorf("%s: MediaTypeOf = %q, want %q", tt.name, got, tt.want)
		}
	}
}
