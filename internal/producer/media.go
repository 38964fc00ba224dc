package producer

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"shortsmith/internal/logging"
	"shortsmith/internal/script"
	"shortsmith/internal/services/openai"
	"shortsmith/internal/staging"
	"shortsmith/internal/textutil"
)

// maxTopicSpeedUp caps how much a topic take is sped up.
const maxTopicSpeedUp = 2

// narrate synthesizes the record's audio: one take for the whole script or
// one take per segment.
func (p *Producer) narrate(ctx context.Context, rec *script.Record, id string, r run, tracker *staging.Tracker) error {
	if r.singleTake {
		segments := make([]script.Segment, len(rec.Segments))
		for i, seg := range rec.Segments {
			seg.Text = textutil.SanitizeCaption(seg.Text)
			segments[i] = seg
		}
		take, err := p.deps.Speech.SynthesizeScript(ctx, segments, id)
		tracker.Track(take.FileName)
		if err != nil {
			return err
		}
		if take, err = p.fitTake(ctx, take, r, tracker); err != nil {
			return err
		}
		rec.Audio = []script.AudioTrack{{Src: take.FileName, Name: take.FileName, Duration: take.Duration}}
		return nil
	}
	return p.narrateSegments(ctx, rec, id, tracker)
}

// narrateSegments synthesizes one take per segment in the segment's voice.
func (p *Producer) narrateSegments(ctx context.Context, rec *script.Record, id string, tracker *staging.Tracker) error {
	tracks := make([]script.AudioTrack, len(rec.Segments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, seg := range rec.Segments {
		g.Go(func() error {
			p.logger.Debug("synthesizing segment",
				logging.Int("segment", i+1),
				logging.Int("segments", len(rec.Segments)),
				logging.String("speaker", string(seg.Speaker)))
			take, err := p.deps.Speech.Synthesize(gctx, seg.Speaker, textutil.SanitizeCaption(seg.Text), fmt.Sprintf("%s-%d", id, i))
			tracker.Track(take.FileName)
			if err != nil {
				return err
			}
			tracks[i] = script.AudioTrack{Src: take.FileName, Name: take.FileName, Duration: take.Duration}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	rec.Audio = tracks
	return nil
}

// illustrate fills MediaSrc for every segment that asks for an
// illustration. Types without a registered illustrator use image
// generation.
func (p *Producer) illustrate(ctx context.Context, rec *script.Record, id string, tracker *staging.Tracker) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i := range rec.Segments {
		ill := rec.Segments[i].Illustration
		if ill == nil {
			continue
		}
		text := rec.Segments[i].Text
		g.Go(func() error {
			segID := fmt.Sprintf("%s-%d", id, i)
			p.logger.Info("generating illustration",
				logging.Int("segment", i+1),
				logging.Int("segments", len(rec.Segments)),
				logging.String("type", string(ill.Type)),
				logging.String(logging.FieldEventType, "illustration_started"))
			var (
				name string
				err  error
			)
			if custom, ok := p.illustrators[ill.Type]; ok && ill.Type != script.IllustrationImageGeneration {
				name, err = custom.Illustrate(gctx, *ill, text, segID)
			} else {
				if ill.Type != script.IllustrationImageGeneration {
					logging.WarnWithContext(p.logger, "no illustrator for type", "illustration_fallback",
						logging.Int("segment", i+1),
						logging.String("type", string(ill.Type)),
						logging.String(logging.FieldImpact, "segment gets a generated image instead"),
					)
				}
				name, err = p.deps.Images.Generate(gctx, ill.Description, segID)
			}
			tracker.Track(name)
			if err != nil {
				return err
			}
			rec.Segments[i].MediaSrc = name
			return nil
		})
	}
	return g.Wait()
}

// thumbnails generates one cover per distinct orientation among comps.
func (p *Producer) thumbnails(ctx context.Context, title string, comps []script.Composition) ([]string, error) {
	var orientations []script.Orientation
	seen := make(map[script.Orientation]bool)
	for _, c := range comps {
		o := c.Orientation()
		if !seen[o] {
			seen[o] = true
			orientations = append(orientations, o)
		}
	}
	paths := make([]string, len(orientations))
	g, gctx := errgroup.WithContext(ctx)
	for i, o := range orientations {
		g.Go(func() error {
			p.logger.Info("generating thumbnail",
				logging.String("orientation", string(o)),
				logging.String(logging.FieldEventType, "thumbnail_started"))
			path, err := p.deps.Images.GenerateThumbnail(gctx, title, o)
			if err != nil {
				return err
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

// fitTake speeds up take when it runs past the run's maximum.
func (p *Producer) fitTake(ctx context.Context, take openai.Take, r run, tracker *staging.Tracker) (openai.Take, error) {
	if r.maxTake <= 0 || take.Duration <= r.maxTake {
		return take, nil
	}
	if p.retimer == nil {
		logging.WarnWithContext(p.logger, "narration runs long", "narration_too_long",
			logging.Float64("duration_seconds", take.Duration),
			logging.Float64("max_seconds", r.maxTake),
			logging.String(logging.FieldImpact, "take is kept at its original speed"),
		)
		return take, nil
	}
	factor := take.Duration / r.maxTake
	if r.maxFactor > 0 {
		factor = min(factor, r.maxFactor)
	}
	p.logger.Info("speeding up narration",
		logging.Float64("duration_seconds", take.Duration),
		logging.Float64("max_seconds", r.maxTake),
		logging.Float64("factor", factor),
		logging.String(logging.FieldEventType, "narration_retimed"))
	out, err := p.retimer.SpeedUpAudio(ctx, filepath.Join(p.cfg.Paths.PublicDir, take.FileName), factor)
	tracker.Track(out)
	if err != nil {
		return take, err
	}
	return openai.Take{FileName: filepath.Base(out), Duration: take.Duration / factor}, nil
}
