package producer

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"shortsmith/internal/script"
	"shortsmith/internal/services/llm"
	"shortsmith/internal/testsupport"
)

const newsScripts = `[{"title":"Chip novo","segments":[
 {"speaker":"Cody","text":"O que saiu hoje?"},
 {"speaker":"Felippe","text":"Um chip novo.","illustration":{"type":"query","description":"foto do chip"}}
]},{"title":"Vacina","segments":[{"speaker":"Felippe","text":"Uma vacina aprovada."}]}]`

func newNewsProducer(t *testing.T, retimer *audioRetimer) (*Producer, *agentLLM, *fileSpeech, *captureSaver) {
	t.Helper()
	p, completer, speech, _, saver := newTestProducer(t, WithRetimer(retimer))
	p.cfg.Notion.NewsDatabaseID = "db-news"
	p.cfg.Producer.NewsMaxTakeSeconds = 4
	completer.responses[llm.AgentNewsWriter] = newsScripts
	return p, completer, speech, saver
}

func TestNewsletterSavesPortraitTakesToNewsDatabase(t *testing.T) {
	retimer := &audioRetimer{}
	p, completer, speech, saver := newNewsProducer(t, retimer)
	completer.responses[llm.AgentNewsReviewer] = newsScripts

	results, err := p.Newsletter(context.Background(), Issue{Title: "Edição 42", Content: "<p>notícias</p>"})
	if err != nil {
		t.Fatalf("Newsletter: %v", err)
	}
	if len(results) != 2 || len(saver.requests) != 2 {
		t.Fatalf("expected two records, got %+v", results)
	}
	if got := completer.prompts[llm.AgentNewsWriter][0]; got != "Edição 42\n\n<p>notícias</p>" {
		t.Fatalf("writer prompt = %q", got)
	}
	for _, req := range saver.requests {
		if req.DatabaseID != "db-news" {
			t.Fatalf("saved to %q, want the news database", req.DatabaseID)
		}
		comps := req.Record.Compositions
		if len(comps) != 1 || comps[0] != script.Portrait {
			t.Fatalf("news records are portrait only, got %v", comps)
		}
		if len(req.Record.Audio) != 1 || req.Record.Audio[0].Duration != 4 {
			t.Fatalf("expected one fitted take, got %+v", req.Record.Audio)
		}
		if len(req.Thumbnails) != 1 {
			t.Fatalf("thumbnails = %v", req.Thumbnails)
		}
	}
	if speech.scripts != 2 || speech.perSeg != 0 {
		t.Fatalf("scripts=%d perSeg=%d", speech.scripts, speech.perSeg)
	}
	// 10s takes fit 4s with no cap on the factor.
	if retimer.factor != 2.5 {
		t.Fatalf("factor = %v, want 2.5", retimer.factor)
	}
	if src := saver.requests[0].Record.Audio[0].Src; src != "audio-id-SpeedUp.mp3" {
		t.Fatalf("audio src = %q", src)
	}
	testsupport.AssertMissing(t,
		filepath.Join(p.cfg.Paths.PublicDir, "audio-id.mp3"),
		filepath.Join(p.cfg.Paths.PublicDir, "audio-id-SpeedUp.mp3"),
	)
}

func TestNewsletterFallsBackToDraftWhenReviewIsInvalid(t *testing.T) {
	p, completer, _, saver := newNewsProducer(t, &audioRetimer{})
	completer.responses[llm.AgentNewsReviewer] = "Desculpe, não consegui revisar."

	results, err := p.Newsletter(context.Background(), Issue{Title: "Edição", Content: "texto"})
	if err != nil {
		t.Fatalf("Newsletter: %v", err)
	}
	if len(results) != 2 || saver.requests[1].Record.Title != "Vacina" {
		t.Fatalf("draft should be produced unreviewed, got %+v", results)
	}
}

func TestNewsletterRequiresContent(t *testing.T) {
	p, _, _, _ := newNewsProducer(t, &audioRetimer{})
	if _, err := p.Newsletter(context.Background(), Issue{Title: "Vazia", Content: "  "}); err == nil {
		t.Fatal("expected error for an empty newsletter")
	}
}

func TestNewsResearchesBeforeWriting(t *testing.T) {
	p, completer, _, saver := newNewsProducer(t, &audioRetimer{})
	completer.responses[llm.AgentNewsResearcher] = "pesquisa do dia"
	completer.responses[llm.AgentNewsReviewer] = newsScripts

	if _, err := p.News(context.Background()); err != nil {
		t.Fatalf("News: %v", err)
	}
	if got := completer.prompts[llm.AgentNewsWriter][0]; got != "pesquisa do dia" {
		t.Fatalf("writer should receive the research, got %q", got)
	}
	if !strings.Contains(completer.prompts[llm.AgentNewsResearcher][0], "latest news") {
		t.Fatalf("unexpected research prompt %q", completer.prompts[llm.AgentNewsResearcher][0])
	}
	if len(saver.requests) != 2 {
		t.Fatalf("saved %d records", len(saver.requests))
	}
}

func TestIllustrationWithoutIllustratorFallsBackToImages(t *testing.T) {
	retimer := &audioRetimer{}
	p, completer, _, saver := newNewsProducer(t, retimer)
	completer.responses[llm.AgentNewsReviewer] = newsScripts
	var logs bytes.Buffer
	p.logger = slog.New(slog.NewJSONHandler(&logs, nil))

	if _, err := p.Newsletter(context.Background(), Issue{Title: "Edição", Content: "texto"}); err != nil {
		t.Fatalf("Newsletter: %v", err)
	}
	seg := saver.requests[0].Record.Segments[1]
	if seg.MediaSrc != "image-id-1-0.png" {
		t.Fatalf("query illustration should fall back to a generated image, got %q", seg.MediaSrc)
	}
	out := logs.String()
	if !strings.Contains(out, `"illustration_fallback"`) || !strings.Contains(out, "segment gets a generated image instead") {
		t.Fatalf("fallback should be logged with its impact:\n%s", out)
	}
}
