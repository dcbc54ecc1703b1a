package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anurag-haridas/visual-impaired/internal/config"
	"github.com/anurag-haridas/visual-impaired/internal/constants"
	"github.com/anurag-haridas/visual-impaired/internal/face"
	"github.com/anurag-haridas/visual-impaired/internal/face/dlib"
	"github.com/anurag-haridas/visual-impaired/internal/pipeline"
	"github.com/anurag-haridas/visual-impaired/internal/speech"
	"github.com/anurag-haridas/visual-impaired/internal/video"
	gstvideo "github.com/anurag-haridas/visual-impaired/internal/video/gst"
)

// newExtractor builds the configured face extractor. The returned function
// releases native resources.
func newExtractor(cfg *config.Config) (face.Extractor, func(), error) {
	switch cfg.Extractor.Backend {
	case config.ExtractorHTTP:
		fmt.Printf("Using embedding server at %s\n", cfg.Extractor.URL)
		return face.NewHTTPExtractor(cfg.Extractor.URL, constants.ExtractorTimeout), func() {}, nil
	default:
		fmt.Printf("Loading dlib models from %s...\n", cfg.Extractor.ModelsDir)
		ext, err := dlib.New(cfg.Extractor.ModelsDir, constants.MaxImageSize)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load dlib models from %s: %w", cfg.Extractor.ModelsDir, err)
		}
		return ext, func() { ext.Close() }, nil
	}
}

// newCommandSpeaker creates the engine speaker and, when no voice is
// configured, picks the first available preferred voice.
func newCommandSpeaker(ctx context.Context, cfg *config.Config) (*speech.CommandSpeaker, error) {
	cs, err := speech.NewCommandSpeaker(speech.Options{
		Engine: cfg.Speech.Engine,
		Voice:  cfg.Speech.Voice,
		Rate:   cfg.Speech.Rate,
		Volume: cfg.Speech.Volume,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Speech.Voice != "" || len(cfg.Speech.PreferredVoices) == 0 {
		return cs, nil
	}

	voices, err := cs.Voices(ctx)
	if err != nil {
		slog.Warn("speech: could not list voices, using engine default", "engine", cfg.Speech.Engine, "error", err)
		return cs, nil
	}
	if v, ok := speech.ResolveVoice(voices, cfg.Speech.PreferredVoices); ok {
		slog.Info("speech: using preferred voice", "voice", v.ID, "name", v.Name)
		return cs.WithVoice(v.ID), nil
	}
	slog.Info("speech: no preferred voice available, using engine default", "engine", cfg.Speech.Engine)
	return cs, nil
}

// newSpeaker wraps the engine speaker with the circuit breaker and, in
// asynchronous mode, the dispatch queue. The returned function drains the
// queue.
func newSpeaker(ctx context.Context, cfg *config.Config) (speech.Speaker, func(), error) {
	cs, err := newCommandSpeaker(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	var sp speech.Speaker = speech.NewBreakerSpeaker(cs, speech.BreakerSettings{
		MaxFailures: constants.SpeechBreakerFailures,
		OpenTimeout: constants.SpeechBreakerTimeout,
	}, slog.Default())

	if !cfg.Speech.Async {
		return sp, func() {}, nil
	}
	async := speech.NewAsyncSpeaker(sp, constants.SpeechQueueSize, slog.Default())
	return async, func() { async.Close() }, nil
}

// openSource opens the configured camera backend.
func openSource(cfg *config.Config) (pipeline.FrameSource, error) {
	if cfg.Camera.Backend == config.CameraGst {
		src, err := gstvideo.Open(gstvideo.Config{
			SourceElement: cfg.Camera.Pipeline,
			Device:        cfg.Camera.Device,
			Width:         cfg.Camera.Width,
			Height:        cfg.Camera.Height,
		})
		if err != nil {
			return nil, err
		}
		return src, nil
	}

	cam, err := video.OpenCamera(cfg.Camera.Device, cfg.Camera.Width, cfg.Camera.Height)
	if err != nil {
		return nil, err
	}
	return cam, nil
}
