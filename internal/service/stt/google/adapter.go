// Package google provides a Google Cloud Speech-to-Text adapter.
package google

import (
	"context"
	"fmt"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"ai-speech-transcribe-service/internal/service/audio"
	"ai-speech-transcribe-service/internal/service/stt"
)

const (
	// ProviderName is the registered name for the Google backend.
	ProviderName = "google"

	// maxSyncDuration is the synchronous Recognize limit.
	maxSyncDuration = time.Minute

	warmSampleRate = 16000
	warmDuration   = 100 * time.Millisecond
)

// Config holds Google STT configuration.
type Config struct {
	Model                      string
	EnableAutomaticPunctuation bool
	// Language is the BCP-47 tag used for warm-up requests.
	Language string
}

// DefaultConfig returns the default Google STT configuration.
func DefaultConfig() Config {
	return Config{
		Model:                      "default",
		EnableAutomaticPunctuation: true,
		Language:                   "en-US",
	}
}

type recognizeFunc func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)

// Adapter implements stt.Recognizer using synchronous Google Speech-to-Text.
type Adapter struct {
	cfg       Config
	client    *speech.Client
	recognize recognizeFunc
}

// New creates a new Google STT adapter.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	return &Adapter{
		cfg:    cfg,
		client: c,
		recognize: func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
			return c.Recognize(ctx, req)
		},
	}, nil
}

// Name returns the provider name.
func (a *Adapter) Name() string { return ProviderName }

// Recognize sends the clip as LINEAR16 content and joins the top alternative
// of every result.
func (a *Adapter) Recognize(ctx context.Context, clip *audio.Clip, language string) stt.Result {
	if clip.Duration() > maxSyncDuration {
		return stt.OtherError(fmt.Errorf("audio is %v long, synchronous recognition accepts at most %v", clip.Duration(), maxSyncDuration))
	}

	resp, err := a.recognize(ctx, a.request(clip, language))
	if err != nil {
		return classify(err)
	}

	var parts []string
	for _, r := range resp.GetResults() {
		if alts := r.GetAlternatives(); len(alts) > 0 {
			if t := strings.TrimSpace(alts[0].GetTranscript()); t != "" {
				parts = append(parts, t)
			}
		}
	}
	if len(parts) == 0 {
		return stt.NoSpeech()
	}
	return stt.OK(strings.Join(parts, " "))
}

// Warm runs a short silent recognition so the gRPC channel and auth token
// are established.
func (a *Adapter) Warm(ctx context.Context) error {
	n := int(int64(warmSampleRate) * int64(warmDuration) / int64(time.Second))
	clip := &audio.Clip{SampleRate: warmSampleRate, Channels: 1, BitDepth: 16, Samples: make([]int, n)}
	r := a.Recognize(ctx, clip, a.cfg.Language)
	if r.Kind == stt.KindBackendError || r.Kind == stt.KindOtherError {
		return r.Err
	}
	return nil
}

// Close releases the underlying gRPC connection.
func (a *Adapter) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

func (a *Adapter) request(clip *audio.Clip, language string) *speechpb.RecognizeRequest {
	return &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            int32(clip.SampleRate),
			AudioChannelCount:          int32(clip.Channels),
			LanguageCode:               language,
			Model:                      a.cfg.Model,
			EnableAutomaticPunctuation: a.cfg.EnableAutomaticPunctuation,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: clip.PCM16()},
		},
	}
}

// classify maps gRPC failures: a rejected request is our fault, everything
// else is the backend's.
func classify(err error) stt.Result {
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.InvalidArgument, codes.OutOfRange:
		return stt.OtherError(fmt.Errorf("google speech rejected request (%s): %s", st.Code(), st.Message()))
	default:
		return stt.BackendError(fmt.Errorf("google speech %s: %s", st.Code(), st.Message()))
	}
}
