package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrWong99/vocalis/pkg/provider/voicegen"
)

func TestNew_EmptyAPIKey(t *testing.T) {
	t.Parallel()
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty apiKey, got nil")
	}
}

func TestGeneratePreviews_Success(t *testing.T) {
	t.Parallel()
	audio := []byte("fake-mp3-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != previewsPath {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("output_format") != "mp3_22050_32" {
			t.Errorf("output_format = %q", r.URL.Query().Get("output_format"))
		}
		if r.Header.Get("xi-api-key") != "key" {
			t.Error("missing api key header")
		}
		var body previewsRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
			return
		}
		if body.VoiceDescription != "a sarcastic alien overlord" || body.Text == "" || body.AutoGenerateText {
			t.Errorf("body = %+v", body)
		}
		enc := base64.StdEncoding.EncodeToString(audio)
		_, _ = w.Write([]byte(`{"previews":[
			{"audio_base_64":"` + enc + `","generated_voice_id":"g1","media_type":"audio/mpeg","duration_secs":4.2},
			{"audio_base_64":"%%%not-base64","generated_voice_id":"g2","media_type":"audio/mpeg","duration_secs":4.0},
			{"audio_base_64":"` + enc + `","generated_voice_id":"g3","media_type":"audio/mpeg","duration_secs":3.9}
		],"text":"hello"}`))
	}))
	defer srv.Close()

	p, err := New("key", WithBaseURL(srv.URL), WithOutputFormat("mp3_22050_32"))
	if err != nil {
		t.Fatal(err)
	}
	previews, err := p.GeneratePreviews(context.Background(), voicegen.Request{
		Description: "a sarcastic alien overlord",
		SampleText:  "Greetings, small creatures.",
		Count:       2,
	})
	if err != nil {
		t.Fatalf("GeneratePreviews: %v", err)
	}
	if len(previews) != 2 {
		t.Fatalf("got %d previews, want 2 (Count)", len(previews))
	}
	if previews[0].VoiceRef != "g1" || string(previews[0].Audio) != string(audio) || previews[0].DurationSecs != 4.2 {
		t.Errorf("preview[0] = %+v", previews[0])
	}
	if len(previews[1].Audio) != 0 {
		t.Errorf("undecodable preview should have empty audio, got %d bytes", len(previews[1].Audio))
	}
}

func TestGeneratePreviews_Classification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"content policy", http.StatusBadRequest, `{"detail":{"status":"blocked_generation","message":"nope"}}`, voicegen.ErrContentPolicy},
		{"unprocessable", http.StatusUnprocessableEntity, `{}`, voicegen.ErrContentPolicy},
		{"quota", http.StatusUnauthorized, `{"detail":{"status":"quota_exceeded","message":"out of credits"}}`, voicegen.ErrQuota},
		{"payment", http.StatusPaymentRequired, ``, voicegen.ErrQuota},
		{"rate limit", http.StatusTooManyRequests, `{"detail":{"status":"too_many_concurrent_requests"}}`, voicegen.ErrTransient},
		{"server", http.StatusBadGateway, `upstream`, voicegen.ErrTransient},
		{"other", http.StatusUnauthorized, `{"detail":{"status":"invalid_api_key"}}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p, _ := New("key", WithBaseURL(srv.URL))
			_, err := p.GeneratePreviews(context.Background(), voicegen.Request{Description: "x voice", SampleText: "y"})
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want == nil {
				for _, s := range []error{voicegen.ErrContentPolicy, voicegen.ErrQuota, voicegen.ErrTransient} {
					if errors.Is(err, s) {
						t.Errorf("err = %v, should not be classified as %v", err, s)
					}
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGeneratePreviews_NetworkErrorIsTransient(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	p, _ := New("key", WithBaseURL(url))
	_, err := p.GeneratePreviews(context.Background(), voicegen.Request{Description: "a voice", SampleText: "x"})
	if !voicegen.IsTransient(err) {
		t.Errorf("err = %v, want transient", err)
	}
}

func TestGeneratePreviews_EmptyDescription(t *testing.T) {
	t.Parallel()
	p, _ := New("key")
	if _, err := p.GeneratePreviews(context.Background(), voicegen.Request{Description: "  "}); err == nil {
		t.Fatal("expected error for empty description")
	}
}
