package tts

// VoiceProfile selects a voice and the delivery settings to speak with.
type VoiceProfile struct {
	// ID is the provider-specific voice identifier.
	ID string

	// Name is the human-readable voice name.
	Name string

	// Provider identifies which TTS provider this voice belongs to.
	Provider string

	// Stability trades expressiveness for consistency (0.1–1.0).
	// Zero means the provider default.
	Stability float64

	// Expressiveness controls how much style the provider adds (0.1–1.0).
	// Zero means the provider default.
	Expressiveness float64

	// SpeedFactor adjusts speaking rate (0.5–2.0, 1.0 = default).
	// Zero means the provider default.
	SpeedFactor float64
}
