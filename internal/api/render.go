package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MrWong99/vocalis/internal/catalog"
	"github.com/MrWong99/vocalis/internal/observe"
	"github.com/MrWong99/vocalis/internal/settings"
	"github.com/MrWong99/vocalis/pkg/provider/tts"
)

// maxRenderText bounds the text of a render request, in characters.
const maxRenderText = 5000

type settingsRequest struct {
	Traits []string `json:"traits,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// handleSettings handles POST /v1/voices/settings.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, settings.Optimize(req.Traits, req.Text))
}

type renderRequest struct {
	// VoiceID is a catalog voice id or, when unknown to the catalog, a
	// provider voice id such as a generated preview reference.
	VoiceID string   `json:"voice_id"`
	Text    string   `json:"text"`
	Traits  []string `json:"traits,omitempty"`
}

// handleRender handles POST /v1/voices/render. The audio is streamed as it
// is synthesised; errors before the first chunk are reported as JSON.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	if s.renderer == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "rendering is not configured"})
		return
	}

	var req renderRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	switch {
	case req.VoiceID == "":
		badRequest(w, "voice_id is required")
		return
	case req.Text == "":
		badRequest(w, "text is required")
		return
	case utf8.RuneCountInString(req.Text) > maxRenderText:
		badRequest(w, "text is too long")
		return
	}

	profile, err := s.resolveVoice(r, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	start := time.Now()
	textCh := make(chan string, 1)
	textCh <- req.Text
	close(textCh)

	audioCh, err := s.renderer.SynthesizeStream(ctx, textCh, profile)
	if err != nil {
		s.metrics.RecordProviderError(ctx, s.rendererName, "tts")
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "speech synthesis failed"})
		return
	}
	first, ok := <-audioCh
	if !ok {
		s.metrics.RecordProviderError(ctx, s.rendererName, "tts")
		writeJSON(w, http.StatusBadGateway, errorBody{Error: tts.ErrEmptyAudio.Error()})
		return
	}

	w.Header().Set("Content-Type", tts.MediaTypeOf(s.renderer))
	w.Header().Set("X-Voice-Stability", formatSetting(profile.Stability))
	w.Header().Set("X-Voice-Expressiveness", formatSetting(profile.Expressiveness))
	w.WriteHeader(http.StatusOK)
	rc := http.NewResponseController(w)
	for chunk := first; ; {
		if _, err := w.Write(chunk); err != nil {
			// The client went away; drain so the provider can finish.
			for range audioCh {
			}
			break
		}
		_ = rc.Flush()
		next, ok := <-audioCh
		if !ok {
			break
		}
		chunk = next
	}
	s.metrics.RenderDuration.Record(ctx, time.Since(start).Seconds())
	s.metrics.RecordProviderRequest(ctx, s.rendererName, "tts", "ok")
}

// resolveVoice turns the request into a voice profile carrying the
// optimized settings.
func (s *Server) resolveVoice(r *http.Request, req renderRequest) (tts.VoiceProfile, error) {
	profile := tts.VoiceProfile{ID: req.VoiceID, Provider: s.rendererName}
	traits := req.Traits

	v, err := s.catalog.Get(r.Context(), req.VoiceID)
	switch {
	case err == nil:
		if v.ProviderRef != "" {
			profile.ID = v.ProviderRef
		}
		profile.Name = v.Name
		if len(traits) == 0 {
			traits = append(append(traits, v.Tone...), v.Tags...)
		}
	case errors.Is(err, catalog.ErrVoiceNotFound):
		// Not a catalog voice; pass the id through to the provider.
	default:
		return tts.VoiceProfile{}, err
	}

	st := settings.Optimize(traits, req.Text)
	profile.Stability = st.Stability
	profile.Expressiveness = st.Expressiveness
	observe.Logger(r.Context()).Debug("render voice resolved",
		"voice_id", req.VoiceID,
		"provider_voice", profile.ID,
		"category", st.Category,
		"energy", st.Energy,
	)
	return profile, nil
}

func formatSetting(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
