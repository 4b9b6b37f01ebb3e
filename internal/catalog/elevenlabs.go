package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/MrWong99/vocalis/internal/describe"
	"github.com/MrWong99/vocalis/pkg/voice"
)

const defaultElevenLabsBaseURL = "https://api.elevenlabs.io"

// ElevenLabsSource lists the voices available to an ElevenLabs account and
// maps their labels onto catalog attributes.
type ElevenLabsSource struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var _ Source = (*ElevenLabsSource)(nil)

// ElevenLabsOption configures an [ElevenLabsSource].
type ElevenLabsOption func(*ElevenLabsSource)

// WithElevenLabsBaseURL overrides the API base URL (used by tests).
func WithElevenLabsBaseURL(u string) ElevenLabsOption {
	return func(s *ElevenLabsSource) {
		s.baseURL = strings.TrimRight(u, "/")
	}
}

// WithElevenLabsHTTPClient sets the HTTP client used for requests.
func WithElevenLabsHTTPClient(c *http.Client) ElevenLabsOption {
	return func(s *ElevenLabsSource) {
		s.httpClient = c
	}
}

// NewElevenLabsSource creates an [ElevenLabsSource]. apiKey must be non-empty.
func NewElevenLabsSource(apiKey string, opts ...ElevenLabsOption) (*ElevenLabsSource, error) {
	if apiKey == "" {
		return nil, errors.New("catalog: elevenlabs apiKey must not be empty")
	}
	s := &ElevenLabsSource{
		apiKey:     apiKey,
		baseURL:    defaultElevenLabsBaseURL,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Name implements [Source].
func (s *ElevenLabsSource) Name() string { return "elevenlabs" }

// voicesResponse is the top-level response from GET /v1/voices.
type voicesResponse struct {
	Voices []elevenLabsVoice `json:"voices"`
}

// elevenLabsVoice is a single voice entry from the ElevenLabs API.
type elevenLabsVoice struct {
	VoiceID  string            `json:"voice_id"`
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Labels   map[string]string `json:"labels"`
}

// ListVoices implements [Source].
func (s *ElevenLabsSource) ListVoices(ctx context.Context) ([]voice.CatalogVoice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: elevenlabs list voices: %w", err)
	}
	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: elevenlabs list voices HTTP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog: elevenlabs list voices: unexpected status %d", resp.StatusCode)
	}

	var vr voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("catalog: elevenlabs list voices decode: %w", err)
	}
	voices := make([]voice.CatalogVoice, 0, len(vr.Voices))
	for _, v := range vr.Voices {
		voices = append(voices, fromElevenLabs(v))
	}
	return voices, nil
}

// fromElevenLabs maps ElevenLabs labels onto catalog attributes. The
// free-text labels are run through the description rule tables so catalog
// and request attributes share one vocabulary.
func fromElevenLabs(v elevenLabsVoice) voice.CatalogVoice {
	cv := voice.CatalogVoice{
		ID:          v.VoiceID,
		Name:        v.Name,
		Gender:      voice.GenderUnspecified,
		AgeGroup:    voice.AgeUnspecified,
		QualityTier: voice.TierStandard,
		ProviderRef: v.VoiceID,
	}
	if g, ok := describe.Gender(v.Labels["gender"]).Value(); ok {
		cv.Gender = g
	}
	if a, ok := describe.AgeGroup(strings.ReplaceAll(v.Labels["age"], "_", "-")).Value(); ok {
		cv.AgeGroup = a
	}
	if a, ok := describe.Accent(v.Labels["accent"]).Value(); ok {
		cv.Accent = a
	}
	styleText := strings.ReplaceAll(v.Labels["description"]+" "+v.Labels["use_case"]+" "+v.Labels["descriptive"], "_", " ")
	cv.Tone = describe.Tones(styleText)
	cv.Tags = describe.Tags(styleText)
	if c, ok := describe.Character(styleText).Value(); ok {
		cv.Tags = append(cv.Tags, c)
	}
	switch v.Category {
	case "premade", "professional", "high_quality":
		cv.QualityTier = voice.TierHigh
	}
	return cv
}
