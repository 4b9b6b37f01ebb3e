package api

import (
	"net/http"

	"github.com/MrWong99/vocalis/internal/designer"
	"github.com/MrWong99/vocalis/pkg/voice"
)

// candidateView is the public shape of one ranked candidate. Audio is only
// present for generated previews; catalog voices are rendered on demand.
type candidateView struct {
	ID          string              `json:"id"`
	Kind        voice.CandidateKind `json:"kind"`
	Name        string              `json:"name,omitempty"`
	Gender      voice.Gender        `json:"gender"`
	Accent      string              `json:"accent,omitempty"`
	AgeGroup    voice.AgeGroup      `json:"age_group"`
	Score       float64             `json:"score"`
	Tags        []string            `json:"tags,omitempty"`
	ProviderRef string              `json:"provider_ref,omitempty"`
	Audio       []byte              `json:"audio,omitempty"`
	MediaType   string              `json:"media_type,omitempty"`
	SubScores   voice.SubScores     `json:"sub_scores"`
}

type designResponse struct {
	Source     designer.Source    `json:"source"`
	Hash       string             `json:"hash"`
	Language   string             `json:"language"`
	Attributes voice.AttributeSet `json:"attributes"`
	Notes      []string           `json:"notes,omitempty"`
	Candidates []candidateView    `json:"candidates"`
}

// handleDesign handles POST /v1/voices/design.
func (s *Server) handleDesign(w http.ResponseWriter, r *http.Request) {
	var req designer.Request
	if err := decode(w, r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	resp, err := s.designer.Design(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := designResponse{
		Source:     resp.Source,
		Hash:       resp.Hash,
		Language:   resp.Language,
		Attributes: resp.Attributes,
		Notes:      resp.Notes,
		Candidates: make([]candidateView, 0, len(resp.Candidates)),
	}
	for _, c := range resp.Candidates {
		out.Candidates = append(out.Candidates, viewOf(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func viewOf(c voice.ScoredCandidate) candidateView {
	v := candidateView{
		ID:        c.ID(),
		Kind:      c.Kind,
		Score:     c.Score,
		SubScores: c.SubScores,
	}
	switch {
	case c.Match != nil:
		cv := c.Match.Voice
		v.Name = cv.Name
		v.Gender = cv.Gender
		v.Accent = cv.Accent
		v.AgeGroup = cv.AgeGroup
		v.Tags = cv.Tags
		v.ProviderRef = cv.ProviderRef
	case c.Generated != nil:
		// Generated voices are described by what was asked for.
		a := c.Attributes
		v.Gender = a.Gender
		v.Accent = a.Accent
		v.AgeGroup = a.AgeGroup
		v.Tags = a.Tags
		v.ProviderRef = c.Generated.ProviderRef
		v.Audio = c.Generated.Audio
		v.MediaType = c.Generated.MediaType
	}
	return v
}
