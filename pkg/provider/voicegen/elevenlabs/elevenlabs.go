// Package elevenlabs provides an ElevenLabs-backed voice-generation provider
// using the text-to-voice preview API. It implements the voicegen.Provider
// interface.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/MrWong99/vocalis/pkg/provider/voicegen"
)

const (
	defaultBaseURL   = "https://api.elevenlabs.io"
	previewsPath     = "/v1/text-to-voice/create-previews"
	defaultOutputFmt = "mp3_44100_128"

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 64 << 10
)

// Option is a functional option for configuring the ElevenLabs Provider.
type Option func(*Provider)

// WithBaseURL overrides the API base URL (used by tests and proxies).
func WithBaseURL(u string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(u, "/")
	}
}

// WithOutputFormat sets the preview audio format (e.g. "mp3_44100_128").
func WithOutputFormat(format string) Option {
	return func(p *Provider) {
		p.outputFormat = format
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements voicegen.Provider backed by the ElevenLabs API.
type Provider struct {
	apiKey       string
	baseURL      string
	outputFormat string
	httpClient   *http.Client
}

// New creates a new ElevenLabs Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:       apiKey,
		baseURL:      defaultBaseURL,
		outputFormat: defaultOutputFmt,
		httpClient:   &http.Client{},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// previewsRequest is the JSON body of POST /v1/text-to-voice/create-previews.
type previewsRequest struct {
	VoiceDescription string `json:"voice_description"`
	Text             string `json:"text,omitempty"`
	AutoGenerateText bool   `json:"auto_generate_text,omitempty"`
}

// previewsResponse is the JSON response of the preview endpoint.
type previewsResponse struct {
	Previews []struct {
		AudioBase64      string  `json:"audio_base_64"`
		GeneratedVoiceID string  `json:"generated_voice_id"`
		MediaType        string  `json:"media_type"`
		DurationSecs     float64 `json:"duration_secs"`
	} `json:"previews"`
	Text string `json:"text"`
}

// errorResponse is the ElevenLabs error envelope.
type errorResponse struct {
	Detail struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"detail"`
}

// GeneratePreviews implements voicegen.Provider.
func (p *Provider) GeneratePreviews(ctx context.Context, req voicegen.Request) ([]voicegen.Preview, error) {
	if strings.TrimSpace(req.Description) == "" {
		return nil, errors.New("elevenlabs: description must not be empty")
	}
	body, err := json.Marshal(previewsRequest{
		VoiceDescription: req.Description,
		Text:             req.SampleText,
		AutoGenerateText: req.SampleText == "",
	})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: marshal request: %w", err)
	}

	url := p.baseURL + previewsPath + "?output_format=" + p.outputFormat
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: create previews: %w", err)
	}
	httpReq.Header.Set("xi-api-key", p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("elevenlabs: create previews: %w", ctx.Err())
		}
		return nil, fmt.Errorf("elevenlabs: create previews HTTP: %w: %w", voicegen.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classify(resp)
	}

	var pr previewsResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("elevenlabs: create previews decode: %w: %w", voicegen.ErrTransient, err)
	}

	previews := make([]voicegen.Preview, 0, len(pr.Previews))
	for _, raw := range pr.Previews {
		pv := voicegen.Preview{
			VoiceRef:     raw.GeneratedVoiceID,
			MediaType:    raw.MediaType,
			DurationSecs: raw.DurationSecs,
		}
		// An undecodable payload leaves Audio empty; the caller drops it.
		if audio, err := base64.StdEncoding.DecodeString(raw.AudioBase64); err == nil {
			pv.Audio = audio
		}
		previews = append(previews, pv)
	}
	if req.Count > 0 && len(previews) > req.Count {
		previews = previews[:req.Count]
	}
	return previews, nil
}

// classify maps a non-200 response onto the voicegen sentinel errors.
func classify(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var er errorResponse
	_ = json.Unmarshal(raw, &er)
	status := strings.ToLower(er.Detail.Status)
	msg := er.Detail.Message
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}

	var kind error
	switch {
	case strings.Contains(status, "quota") || resp.StatusCode == http.StatusPaymentRequired:
		kind = voicegen.ErrQuota
	case strings.Contains(status, "blocked") || strings.Contains(status, "policy") ||
		strings.Contains(status, "moderation") || resp.StatusCode == http.StatusUnprocessableEntity && status == "":
		kind = voicegen.ErrContentPolicy
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusRequestTimeout ||
		resp.StatusCode >= 500:
		kind = voicegen.ErrTransient
	}
	if kind == nil {
		return fmt.Errorf("elevenlabs: create previews: unexpected status %d: %s", resp.StatusCode, msg)
	}
	return fmt.Errorf("elevenlabs: create previews: status %d: %w: %s", resp.StatusCode, kind, msg)
}

// Ensure Provider implements voicegen.Provider at compile time.
var _ voicegen.Provider = (*Provider)(nil)
