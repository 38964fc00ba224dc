package producer

import (
	"context"
	"strings"

	"shortsmith/internal/logging"
	"shortsmith/internal/script"
	"shortsmith/internal/services"
	"shortsmith/internal/services/llm"
)

// Issue is one newsletter edition to turn into news scripts.
type Issue struct {
	Title   string
	Content string
}

const newsResearchPrompt = "Generate detailed research about the latest news in technology, science, health, and world events. Provide comprehensive information with relevant data and context."

// Newsletter writes news scripts from issue and saves them to the news
// database as Portrait records narrated in one take.
func (p *Producer) Newsletter(ctx context.Context, issue Issue) ([]Result, error) {
	title := strings.TrimSpace(issue.Title)
	content := strings.TrimSpace(issue.Content)
	if content == "" {
		return nil, services.Wrap(services.ErrValidation, "producer", "newsletter", "the newsletter is empty", nil)
	}
	ctx = services.WithRequestID(ctx, p.newID())
	logging.WithContext(ctx, p.logger).Info("newsletter received",
		logging.String("title", title),
		logging.Int("content_length", len(content)),
		logging.String(logging.FieldEventType, "newsletter_received"))
	return p.produceNews(ctx, strings.TrimSpace(title+"\n\n"+content))
}

// News researches the latest headlines and produces news scripts from them
// the same way Newsletter does.
func (p *Producer) News(ctx context.Context) ([]Result, error) {
	ctx = services.WithRequestID(ctx, p.newID())
	logging.WithContext(ctx, p.logger).Info("research started",
		logging.String("topic", "latest news"),
		logging.String(logging.FieldEventType, "research_started"))
	research, err := p.deps.LLM.Complete(ctx, llm.AgentNewsResearcher, newsResearchPrompt)
	if err != nil {
		return nil, err
	}
	return p.produceNews(ctx, research)
}

// produceNews runs the newsletter writer and reviewer over source. A review
// that does not decode falls back to the writer's draft.
func (p *Producer) produceNews(ctx context.Context, source string) ([]Result, error) {
	logger := logging.WithContext(ctx, p.logger)

	logger.Info("writing news scripts", logging.String(logging.FieldEventType, "script_writing"))
	draftText, err := p.deps.LLM.Complete(ctx, llm.AgentNewsWriter, source)
	if err != nil {
		return nil, err
	}

	logger.Info("reviewing news scripts", logging.String(logging.FieldEventType, "script_review"))
	review, err := p.deps.LLM.Complete(ctx, llm.AgentNewsReviewer, draftText)
	if err != nil {
		return nil, err
	}
	drafts, err := decodeDrafts(review)
	if err != nil {
		logging.WarnWithContext(logger, "review did not decode", "news_review_invalid",
			logging.Error(err),
			logging.String(logging.FieldImpact, "writer draft is produced unreviewed"),
		)
		if drafts, err = decodeDrafts(draftText); err != nil {
			return nil, services.Wrap(services.ErrValidation, "producer", "decode news draft", "", err)
		}
	}
	return p.produceDrafts(ctx, drafts, p.newsRun())
}

// newsRun narrates one Portrait take per script, sped up to fit the short
// length with no cap on the factor.
func (p *Producer) newsRun() run {
	return run{
		compositions: []script.Composition{script.Portrait},
		singleTake:   true,
		maxTake:      p.cfg.Producer.NewsMaxTakeSeconds,
		databaseID:   p.cfg.NewsDatabaseID(),
	}
}
