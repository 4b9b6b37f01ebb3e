package tts

import (
	"strings"
)

// DefaultMediaType is assumed for providers that do not report one.
const DefaultMediaType = "audio/mpeg"

// MediaTyper is implemented by providers that know the MIME type of the
// audio they stream.
type MediaTyper interface {
	MediaType() string
}

// MediaTypeOf returns the MIME type of p's audio, or [DefaultMediaType].
func MediaTypeOf(p Provider) string {
	if mt, ok := p.(MediaTyper); ok {
		if t := mt.MediaType(); t != "" {
			return t
		}
	}
	return DefaultMediaType
}

// FormatMediaType maps an ElevenLabs style output format such as
// "mp3_44100_128" or "pcm_24000" to a MIME type.
func FormatMediaType(format string) string {
	codec, rest, _ := strings.Cut(strings.ToLower(format), "_")
	rate, _, _ := strings.Cut(rest, "_")
	switch codec {
	case "mp3":
		return "audio/mpeg"
	case "pcm":
		if rate == "" {
			return "audio/pcm"
		}
		return "audio/pcm;rate=" + rate
	case "ulaw":
		return "audio/basic"
	case "alaw":
		return "audio/x-alaw-basic"
	case "opus":
		return "audio/opus"
	}
	return "application/octet-stream"
}
