package api

import (
	"net/http"
	"strings"

	"github.com/MrWong99/vocalis/pkg/voice"
)

type voiceList struct {
	Voices []voice.CatalogVoice `json:"voices"`
}

// handleListVoices handles GET /v1/voices. The optional gender, accent and
// age_group query parameters filter the roster case-insensitively.
func (s *Server) handleListVoices(w http.ResponseWriter, r *http.Request) {
	voices, err := s.catalog.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	gender, accent, age := q.Get("gender"), q.Get("accent"), q.Get("age_group")
	out := voiceList{Voices: make([]voice.CatalogVoice, 0, len(voices))}
	for _, v := range voices {
		if !matchesFilter(string(v.Gender), gender) ||
			!matchesFilter(v.Accent, accent) ||
			!matchesFilter(string(v.AgeGroup), age) {
			continue
		}
		out.Voices = append(out.Voices, v)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleGetVoice handles GET /v1/voices/{id}.
func (s *Server) handleGetVoice(w http.ResponseWriter, r *http.Request) {
	v, err := s.catalog.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func matchesFilter(value, filter string) bool {
	return filter == "" || strings.EqualFold(value, filter)
}
