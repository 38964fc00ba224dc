package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"shortsmith/internal/docstore"
	"shortsmith/internal/logging"
	"shortsmith/internal/script"
	"shortsmith/internal/services"
	"shortsmith/internal/services/llm"
	"shortsmith/internal/staging"
)

// debater pairs a speaker with the agent that argues for it.
type debater struct {
	speaker script.Speaker
	agent   string
}

// Debaters speak in this order within every topic.
var debaters = []debater{
	{speaker: script.ChatGPT, agent: llm.AgentDebateChatGPT},
	{speaker: script.Grok, agent: llm.AgentDebateGrok},
	{speaker: script.Claude, agent: llm.AgentDebateClaude},
	{speaker: script.Gemini, agent: llm.AgentDebateGemini},
}

type debatePosition struct {
	Position string `json:"position"`
}

type councilVerdict struct {
	Title     string `json:"title"`
	Reasoning string `json:"reasoning"`
	Ending    string `json:"ending"`
	Winner    string `json:"winner"`
}

// DebateSettings is the renderer payload stored on the landscape record.
type DebateSettings struct {
	Winner string `json:"winner"`
}

type topicRound struct {
	topic        string
	illustration string
	positions    map[script.Speaker]string
}

// Debate asks every debater for a position on each topic, has the council
// pick a winner, and saves one portrait record per topic plus one landscape
// record covering the whole debate. A debater that fails to answer is
// recorded as having declined.
func (p *Producer) Debate(ctx context.Context, topics []string) ([]Result, error) {
	cleaned := make([]string, 0, len(topics))
	for _, topic := range topics {
		if topic = strings.TrimSpace(topic); topic != "" {
			cleaned = append(cleaned, topic)
		}
	}
	if len(cleaned) == 0 {
		return nil, services.Wrap(services.ErrValidation, "producer", "debate", "at least one topic is required", nil)
	}
	id := p.newID()
	ctx = services.WithRequestID(ctx, id)
	logger := logging.WithContext(ctx, p.logger)

	tracker := staging.NewTracker(p.cfg.Paths.PublicDir, logger)
	defer tracker.Release()

	rounds := make([]topicRound, 0, len(cleaned))
	for i, topic := range cleaned {
		logger.Info("debate round started",
			logging.String("topic", topic),
			logging.Int("round", i+1),
			logging.Int("rounds", len(cleaned)),
			logging.String(logging.FieldEventType, "debate_round_started"))
		round, err := p.debateRound(ctx, topic, fmt.Sprintf("%s-%d", id, i), tracker)
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, round)
	}

	reply, err := p.deps.LLM.Complete(ctx, llm.AgentDebateCouncil, councilPrompt(rounds))
	if err != nil {
		return nil, err
	}
	var verdict councilVerdict
	if err := llm.DecodeLLMJSON(reply, &verdict); err != nil {
		return nil, services.Wrap(services.ErrValidation, "producer", "decode council", "", err)
	}
	if strings.TrimSpace(verdict.Title) == "" {
		return nil, services.Wrap(services.ErrValidation, "producer", "decode council", "verdict has no title", nil)
	}
	logger.Info("council decided",
		logging.String("title", verdict.Title),
		logging.String("winner", verdict.Winner),
		logging.String(logging.FieldEventType, "debate_council_decided"))

	records, err := debateRecords(rounds, verdict)
	if err != nil {
		return nil, err
	}

	var (
		results []Result
		errs    []error
	)
	for i := range records {
		rec := &records[i]
		rec.Channels = append([]script.Channel(nil), p.channels...)
		if err := p.narrateSegments(ctx, rec, fmt.Sprintf("%s-r%d", id, i), tracker); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rec.Title, err))
			continue
		}
		pageID, err := p.deps.Store.SaveScript(ctx, docstore.SaveRequest{Record: *rec, Status: p.status})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rec.Title, err))
			continue
		}
		logger.Info("debate record saved",
			logging.String(logging.FieldRecordID, pageID),
			logging.String("title", rec.Title),
			logging.Int("segments", len(rec.Segments)),
			logging.String(logging.FieldEventType, "script_produced"))
		results = append(results, Result{ID: pageID, Title: rec.Title})
	}
	return results, errors.Join(errs...)
}

// debateRound collects every debater's position and the round illustration
// concurrently.
func (p *Producer) debateRound(ctx context.Context, topic, id string, tracker *staging.Tracker) (topicRound, error) {
	answers := make([]string, len(debaters))
	var illustration string

	g, gctx := errgroup.WithContext(ctx)
	for i, d := range debaters {
		g.Go(func() error {
			answers[i] = p.position(gctx, d, topic)
			return nil
		})
	}
	g.Go(func() error {
		name, err := p.deps.Images.Generate(gctx, fmt.Sprintf("Uma ilustração detalhada que represente um debate sobre o tópico: %q - A imagem não deve conter background", topic), id)
		tracker.Track(name)
		if err != nil {
			return err
		}
		illustration = name
		return nil
	})
	if err := g.Wait(); err != nil {
		return topicRound{}, err
	}

	round := topicRound{topic: topic, illustration: illustration, positions: make(map[script.Speaker]string, len(debaters))}
	for i, d := range debaters {
		round.positions[d.speaker] = answers[i]
	}
	return round, nil
}

// position never fails: a refusal or malformed reply becomes a line saying
// the model declined.
func (p *Producer) position(ctx context.Context, d debater, topic string) string {
	declined := fmt.Sprintf("O modelo %s recusou-se a responder.", d.speaker)
	reply, err := p.deps.LLM.Complete(ctx, d.agent, "Tópico: "+topic)
	if err == nil {
		var pos debatePosition
		if err = llm.DecodeLLMJSON(reply, &pos); err == nil && strings.TrimSpace(pos.Position) != "" {
			return strings.TrimSpace(pos.Position)
		}
		if err == nil {
			err = errors.New("empty position")
		}
	}
	logging.WarnWithContext(p.logger, "debater declined", "debate_position_missing",
		logging.String("speaker", string(d.speaker)),
		logging.String("topic", topic),
		logging.Error(err),
		logging.String(logging.FieldImpact, "debater is shown as declining"),
	)
	return declined
}

func councilPrompt(rounds []topicRound) string {
	parts := make([]string, 0, len(rounds))
	for _, r := range rounds {
		var b strings.Builder
		fmt.Fprintf(&b, "Tópico: %s", r.topic)
		for _, d := range debaters {
			fmt.Fprintf(&b, "\n\n[%s]: %s", d.speaker, r.positions[d.speaker])
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// debateRecords lays out one DebatePortrait record per round, numbered in
// the title, and a DebateLandscape record with every round followed by the
// council's reasoning and sign-off.
func debateRecords(rounds []topicRound, verdict councilVerdict) ([]script.Record, error) {
	settings, err := json.Marshal(DebateSettings{Winner: verdict.Winner})
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "producer", "debate settings", "", err)
	}
	title := strings.TrimSpace(verdict.Title)
	records := make([]script.Record, 0, len(rounds)+1)
	var all []script.Segment
	for i, r := range rounds {
		segments := roundSegments(r)
		all = append(all, segments...)
		records = append(records, script.Record{
			Title:        fmt.Sprintf("[%d] %s", i+1, title),
			Segments:     segments,
			Compositions: []script.Composition{script.DebatePortrait},
		})
	}
	for _, line := range []string{verdict.Reasoning, verdict.Ending} {
		if line = strings.TrimSpace(line); line != "" {
			all = append(all, tagged(script.Narrator, line, ""))
		}
	}
	records = append(records, script.Record{
		Title:        title,
		Segments:     all,
		Compositions: []script.Composition{script.DebateLandscape},
		Settings:     settings,
	})
	return records, nil
}

func roundSegments(r topicRound) []script.Segment {
	segments := make([]script.Segment, 0, len(debaters)+1)
	segments = append(segments, tagged(script.Narrator, r.topic, r.illustration))
	for _, d := range debaters {
		segments = append(segments, tagged(d.speaker, r.positions[d.speaker], r.illustration))
	}
	return segments
}

// tagged prefixes text with the speaker tag the decoder uses to restore
// attribution across the many speakers of a debate.
func tagged(speaker script.Speaker, text, media string) script.Segment {
	return script.Segment{Speaker: speaker, Text: fmt.Sprintf("[%s] %s", speaker, text), MediaSrc: media}
}
