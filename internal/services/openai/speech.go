package openai

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	goopenai "github.com/sashabaranov/go-openai"

	"shortsmith/internal/logging"
	"shortsmith/internal/script"
	"shortsmith/internal/services"
)

// Prober reports the duration of a media file in seconds.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Concatenator joins audio files in order into output.
type Concatenator interface {
	ConcatAudio(ctx context.Context, inputs []string, output string) error
}

// Take is one synthesized narration file in the public directory.
type Take struct {
	FileName string
	Duration float64
}

// Speech synthesizes narration takes.
type Speech struct {
	client    *goopenai.Client
	model     string
	publicDir string
	prober    Prober
	concat    Concatenator
	logger    *slog.Logger
}

// NewSpeech constructs a synthesizer writing into publicDir. prober and
// concat may be nil; without a prober durations are left at zero and
// without a concatenator SynthesizeScript is unavailable.
func NewSpeech(cfg Config, publicDir string, prober Prober, concat Concatenator, logger *slog.Logger, opts ...Option) *Speech {
	model := strings.TrimSpace(cfg.TTSModel)
	if model == "" {
		model = "gpt-4o-mini-tts"
	}
	return &Speech{
		client:    newClient(cfg, opts...),
		model:     model,
		publicDir: publicDir,
		prober:    prober,
		concat:    concat,
		logger:    logging.NewComponentLogger(logger, "openai-speech"),
	}
}

// Synthesize speaks text in speaker's voice and writes audio-<id>.mp3. An
// empty id gets a random one.
func (s *Speech) Synthesize(ctx context.Context, speaker script.Speaker, text, id string) (Take, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Take{}, services.Wrap(services.ErrValidation, "tts", "synthesize", "empty text", nil)
	}
	if id == "" {
		id = uuid.NewString()
	}
	v := voiceFor(speaker)
	s.logger.Debug("synthesizing speech",
		logging.String("speaker", string(speaker)),
		logging.Int("text_length", len(text)))

	resp, err := s.client.CreateSpeech(ctx, goopenai.CreateSpeechRequest{
		Model:          goopenai.SpeechModel(s.model),
		Input:          text,
		Voice:          goopenai.SpeechVoice(v.Name),
		Instructions:   v.Instructions,
		ResponseFormat: goopenai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return Take{}, services.Wrap(services.ErrExternalTool, "tts", "create speech", string(speaker), err)
	}
	defer resp.Close()

	name := fmt.Sprintf("audio-%s.mp3", id)
	path := filepath.Join(s.publicDir, name)
	if err := writeStream(path, resp); err != nil {
		return Take{}, services.Wrap(services.ErrTransient, "tts", "write audio", name, err)
	}
	return Take{FileName: name, Duration: s.duration(ctx, path)}, nil
}

// SynthesizeScript speaks every segment, merging consecutive runs of one
// speaker into a single request, and concatenates the takes into
// audio-<id>.mp3. Intermediate takes are removed.
func (s *Speech) SynthesizeScript(ctx context.Context, segments []script.Segment, id string) (Take, error) {
	if s.concat == nil {
		return Take{}, services.Wrap(services.ErrConfiguration, "tts", "synthesize script", "no audio concatenator configured", nil)
	}
	if id == "" {
		id = uuid.NewString()
	}
	type turn struct {
		speaker script.Speaker
		text    string
	}
	var turns []turn
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if n := len(turns); n > 0 && turns[n-1].speaker == seg.Speaker {
			turns[n-1].text += " " + text
			continue
		}
		turns = append(turns, turn{speaker: seg.Speaker, text: text})
	}
	if len(turns) == 0 {
		return Take{}, services.Wrap(services.ErrValidation, "tts", "synthesize script", "script has no text", nil)
	}

	parts := make([]string, 0, len(turns))
	defer func() {
		for _, part := range parts {
			_ = os.Remove(part)
		}
	}()
	for i, t := range turns {
		take, err := s.Synthesize(ctx, t.speaker, t.text, fmt.Sprintf("%s-part-%d", id, i))
		if err != nil {
			return Take{}, err
		}
		parts = append(parts, filepath.Join(s.publicDir, take.FileName))
	}

	name := fmt.Sprintf("audio-%s.mp3", id)
	path := filepath.Join(s.publicDir, name)
	if err := s.concat.ConcatAudio(ctx, parts, path); err != nil {
		return Take{}, services.Wrap(services.ErrExternalTool, "tts", "concat", name, err)
	}
	s.logger.Info("script synthesized",
		logging.String("file", name),
		logging.Int("turns", len(turns)),
		logging.String(logging.FieldEventType, "script_synthesized"))
	return Take{FileName: name, Duration: s.duration(ctx, path)}, nil
}

func (s *Speech) duration(ctx context.Context, path string) float64 {
	if s.prober == nil {
		return 0
	}
	d, err := s.prober.Duration(ctx, path)
	if err != nil {
		logging.WarnWithContext(s.logger, "could not probe take duration", "tts_probe_failed",
			logging.String("file", filepath.Base(path)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "duration refined during alignment"))
		return 0
	}
	return d
}

func writeStream(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}
