package app

import (
	"context"
	"errors"

	"github.com/MrWong99/vocalis/internal/observe"
	"github.com/MrWong99/vocalis/pkg/provider/voicegen"
)

// instrumentedVoiceGen counts every outbound preview call per provider.
type instrumentedVoiceGen struct {
	inner   voicegen.Provider
	name    string
	metrics *observe.Metrics
}

var _ voicegen.Provider = (*instrumentedVoiceGen)(nil)

func instrument(p voicegen.Provider, name string, m *observe.Metrics) voicegen.Provider {
	return &instrumentedVoiceGen{inner: p, name: name, metrics: m}
}

// GeneratePreviews implements [voicegen.Provider].
func (i *instrumentedVoiceGen) GeneratePreviews(ctx context.Context, req voicegen.Request) ([]voicegen.Preview, error) {
	previews, err := i.inner.GeneratePreviews(ctx, req)
	switch {
	case err == nil:
		i.metrics.RecordProviderRequest(ctx, i.name, "voicegen", "ok")
	case voicegen.IsPermanent(err):
		i.metrics.RecordProviderRequest(ctx, i.name, "voicegen", "rejected")
	default:
		i.metrics.RecordProviderRequest(ctx, i.name, "voicegen", "error")
		i.metrics.RecordProviderError(ctx, i.name, "voicegen")
	}
	return previews, err
}

// errNoVoiceGen is returned in catalog-only mode.
var errNoVoiceGen = errors.New("voicegen: no provider configured")

// noVoiceGen stands in for generation when no provider is configured.
type noVoiceGen struct{}

func (noVoiceGen) GeneratePreviews(context.Context, voicegen.Request) ([]voicegen.Preview, error) {
	return nil, errNoVoiceGen
}
