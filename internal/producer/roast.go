package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"shortsmith/internal/docstore"
	"shortsmith/internal/fileutil"
	"shortsmith/internal/logging"
	"shortsmith/internal/script"
	"shortsmith/internal/services"
	"shortsmith/internal/services/llm"
	"shortsmith/internal/staging"
	"shortsmith/internal/textutil"
)

type roastProfile struct {
	Name                 string   `json:"name"`
	Age                  int      `json:"age"`
	Job                  string   `json:"job"`
	Location             string   `json:"location"`
	MainPhotoDescription string   `json:"main_photo_description"`
	Photos               []string `json:"photos"`
}

type bioRoast struct {
	Target    string `json:"target"`
	Narration string `json:"narration"`
}

type roastScript struct {
	Profile roastProfile `json:"profile"`
	Script  struct {
		VideoIntro  string     `json:"video_intro"`
		Intro       string     `json:"intro"`
		PhotoRoasts []string   `json:"photo_roasts"`
		BioRoast    []bioRoast `json:"bio_roast"`
		Decision    struct {
			SwipeDirection string `json:"swipe_direction"`
			Verdict        string `json:"verdict"`
		} `json:"decision"`
	} `json:"script"`
}

// RoastBio is one highlighted line of the profile bio.
type RoastBio struct {
	Narration string `json:"narration"`
	Highlight string `json:"highlight"`
}

// RoastProfile is the card the renderer draws.
type RoastProfile struct {
	Name     string `json:"name"`
	Age      int    `json:"age"`
	Job      string `json:"job"`
	Location string `json:"location"`
}

// RoastSettings is the renderer payload stored on a roast record.
type RoastSettings struct {
	BioRoast []RoastBio   `json:"bio_roast"`
	Swipe    string       `json:"swipe"`
	Profile  RoastProfile `json:"profile"`
}

// Roast invents a dating profile for archetype, roasts it, and saves a
// single-take TinderRoast record bound for the RedFlagRadar channel.
// Profile photos that fail to generate drop their roast line.
func (p *Producer) Roast(ctx context.Context, archetype string) (Result, error) {
	archetype = strings.TrimSpace(archetype)
	if archetype == "" {
		return Result{}, services.Wrap(services.ErrValidation, "producer", "roast", "an archetype is required", nil)
	}
	id := p.newID()
	ctx = services.WithRequestID(ctx, id)
	logger := logging.WithContext(ctx, p.logger).With(logging.String("archetype", archetype))

	logger.Info("writing roast", logging.String(logging.FieldEventType, "roast_started"))
	reply, err := p.deps.LLM.Complete(ctx, llm.AgentTinderRoast,
		fmt.Sprintf("Generate a funny Tinder roast for the archetype: %s. Keep it funny and witty.", archetype))
	if err != nil {
		return Result{}, err
	}
	var roast roastScript
	if err := llm.DecodeLLMJSON(reply, &roast); err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "producer", "decode roast", archetype, err)
	}
	if strings.TrimSpace(roast.Profile.MainPhotoDescription) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "producer", "decode roast", "profile has no main photo", nil)
	}

	tracker := staging.NewTracker(p.cfg.Paths.PublicDir, logger)
	defer tracker.Release()

	mainPhoto, err := p.deps.Images.Generate(ctx, roast.Profile.MainPhotoDescription, id+"-main")
	tracker.Track(mainPhoto)
	if err != nil {
		return Result{}, err
	}
	photos := p.profilePhotos(ctx, roast.Profile, id, tracker)

	rec := script.Record{
		Title:        archetype,
		Compositions: []script.Composition{script.TinderRoast},
		Channels:     []script.Channel{script.RedFlagRadar},
		Segments:     roastSegments(roast, photos),
	}
	settings, err := json.Marshal(roastSettings(roast))
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "producer", "roast settings", archetype, err)
	}
	rec.Settings = settings

	segments := make([]script.Segment, len(rec.Segments))
	for i, seg := range rec.Segments {
		seg.Text = textutil.SanitizeCaption(seg.Text)
		segments[i] = seg
	}
	take, err := p.deps.Speech.SynthesizeScript(ctx, segments, id)
	tracker.Track(take.FileName)
	if err != nil {
		return Result{}, err
	}
	rec.Audio = []script.AudioTrack{{Src: take.FileName, Name: take.FileName, Duration: take.Duration}}

	thumbnail, err := p.roastThumbnail(ctx, archetype, mainPhoto)
	if err != nil {
		return Result{}, err
	}

	pageID, err := p.deps.Store.SaveScript(ctx, docstore.SaveRequest{
		Record:     rec,
		Status:     p.status,
		Thumbnails: []string{thumbnail},
	})
	if err != nil {
		return Result{}, err
	}
	logger.Info("roast produced",
		logging.String(logging.FieldRecordID, pageID),
		logging.Int("segments", len(rec.Segments)),
		logging.Int("photos", len(photos)),
		logging.String(logging.FieldEventType, "script_produced"))
	return Result{ID: pageID, Title: rec.Title}, nil
}

// profilePhotos generates one photo per description; the slot of a failed
// photo stays empty.
func (p *Producer) profilePhotos(ctx context.Context, profile roastProfile, id string, tracker *staging.Tracker) []string {
	photos := make([]string, len(profile.Photos))
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, description := range profile.Photos {
		g.Go(func() error {
			prompt := fmt.Sprintf("%s. Same person as: %s", description, profile.MainPhotoDescription)
			name, err := p.deps.Images.Generate(ctx, prompt, fmt.Sprintf("%s-%d", id, i))
			tracker.Track(name)
			if err != nil {
				logging.WarnWithContext(p.logger, "profile photo failed", "roast_photo_failed",
					logging.Int("photo", i+1),
					logging.Error(err),
					logging.String(logging.FieldImpact, "photo roast is dropped"),
				)
				return nil
			}
			photos[i] = name
			return nil
		})
	}
	_ = g.Wait()
	return photos
}

// roastThumbnail falls back to the main photo when the cover cannot be
// generated.
func (p *Producer) roastThumbnail(ctx context.Context, archetype, mainPhoto string) (string, error) {
	path, err := p.deps.Images.GenerateThumbnail(ctx, archetype, script.OrientationPortrait)
	if err == nil {
		return path, nil
	}
	logging.WarnWithContext(p.logger, "roast thumbnail failed", "roast_thumbnail_failed",
		logging.Error(err),
		logging.String(logging.FieldImpact, "main photo is used as the cover"),
	)
	fallback := filepath.Join(p.cfg.Paths.OutputDir,
		fmt.Sprintf("%s-Thumbnail-%s.png", textutil.Slug(archetype), script.OrientationPortrait))
	if err := fileutil.CopyFile(filepath.Join(p.cfg.Paths.PublicDir, mainPhoto), fallback); err != nil {
		return "", services.Wrap(services.ErrTransient, "producer", "roast thumbnail", fallback, err)
	}
	return fallback, nil
}

func roastSegments(roast roastScript, photos []string) []script.Segment {
	var segments []script.Segment
	add := func(text, media string, ill *script.Illustration) {
		if text = strings.TrimSpace(text); text != "" {
			segments = append(segments, script.Segment{Speaker: script.Roaster, Text: text, MediaSrc: media, Illustration: ill})
		}
	}
	add(roast.Script.VideoIntro, "", nil)
	add(roast.Script.Intro, "", nil)
	for i, line := range roast.Script.PhotoRoasts {
		if i >= len(photos) || photos[i] == "" {
			continue
		}
		add(line, photos[i], &script.Illustration{Type: script.IllustrationImageGeneration, Description: roast.Profile.Photos[i]})
	}
	for _, bio := range roast.Script.BioRoast {
		add(bio.Narration, "", nil)
	}
	add(roast.Script.Decision.Verdict, "", nil)
	return segments
}

func roastSettings(roast roastScript) RoastSettings {
	bio := make([]RoastBio, 0, len(roast.Script.BioRoast))
	for _, b := range roast.Script.BioRoast {
		bio = append(bio, RoastBio{Narration: b.Narration, Highlight: b.Target})
	}
	return RoastSettings{
		BioRoast: bio,
		Swipe:    roast.Script.Decision.SwipeDirection,
		Profile: RoastProfile{
			Name:     roast.Profile.Name,
			Age:      roast.Profile.Age,
			Job:      roast.Profile.Job,
			Location: roast.Profile.Location,
		},
	}
}
