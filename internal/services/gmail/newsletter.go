// Package gmail fetches newsletter issues from a Gmail inbox.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gm "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"shortsmith/internal/logging"
	"shortsmith/internal/services"
)

// Config carries OAuth credentials and the newsletter to look for.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Sender       string
	MaxAge       time.Duration
}

// Issue is the newest newsletter found in the inbox.
type Issue struct {
	Subject string
	Content string
}

// Fetcher reads the most recent newsletter from one sender.
type Fetcher struct {
	svc    *gm.Service
	sender string
	maxAge time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// New authenticates with the refresh token. Extra client options are
// applied after the OAuth client.
func New(ctx context.Context, cfg Config, logger *slog.Logger, opts ...option.ClientOption) (*Fetcher, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" || strings.TrimSpace(cfg.RefreshToken) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "gmail", "init", "client id, client secret, and refresh token are required", nil)
	}
	if strings.TrimSpace(cfg.Sender) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "gmail", "init", "newsletter sender is required", nil)
	}
	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gm.GmailReadonlyScope},
	}
	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
		Expiry:       time.Now().Add(-time.Hour),
	}
	clientOpts := append([]option.ClientOption{option.WithHTTPClient(conf.Client(ctx, token))}, opts...)
	svc, err := gm.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "gmail", "init", "create service", err)
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 12 * time.Hour
	}
	return &Fetcher{
		svc:    svc,
		sender: strings.TrimSpace(cfg.Sender),
		maxAge: maxAge,
		now:    time.Now,
		logger: logging.NewComponentLogger(logger, "gmail"),
	}, nil
}

// Latest returns the newest issue received within the configured window.
func (f *Fetcher) Latest(ctx context.Context) (Issue, error) {
	since := f.now().Add(-f.maxAge)
	query := fmt.Sprintf("from:%s after:%d", f.sender, since.Unix())
	f.logger.Info("searching inbox",
		logging.String("sender", f.sender),
		logging.String("since", since.UTC().Format(time.RFC3339)),
		logging.String(logging.FieldEventType, "newsletter_search"))

	list, err := f.svc.Users.Messages.List("me").Q(query).MaxResults(1).Context(ctx).Do()
	if err != nil {
		return Issue{}, services.Wrap(services.ErrExternalTool, "gmail", "list messages", f.sender, err)
	}
	if len(list.Messages) == 0 {
		return Issue{}, services.Wrap(services.ErrValidation, "gmail", "list messages", "no newsletter from "+f.sender, nil)
	}
	msg, err := f.svc.Users.Messages.Get("me", list.Messages[0].Id).Format("full").Context(ctx).Do()
	if err != nil {
		return Issue{}, services.Wrap(services.ErrExternalTool, "gmail", "get message", list.Messages[0].Id, err)
	}
	if msg.Payload == nil {
		return Issue{}, services.Wrap(services.ErrValidation, "gmail", "read message", "message has no content", nil)
	}

	subject := "No Subject"
	for _, h := range msg.Payload.Headers {
		if h.Name == "Subject" && strings.TrimSpace(h.Value) != "" {
			subject = h.Value
			break
		}
	}
	body := htmlBody(msg.Payload)
	if body == "" {
		return Issue{}, services.Wrap(services.ErrValidation, "gmail", "read message", "message has no HTML part", nil)
	}
	raw, err := base64.URLEncoding.DecodeString(body)
	if err != nil {
		if raw, err = base64.RawURLEncoding.DecodeString(body); err != nil {
			return Issue{}, services.Wrap(services.ErrValidation, "gmail", "decode body", msg.Id, err)
		}
	}
	content, err := ParseNewsletter(string(raw))
	if err != nil {
		return Issue{}, services.Wrap(services.ErrValidation, "gmail", "parse body", msg.Id, err)
	}
	f.logger.Info("newsletter fetched",
		logging.String("subject", subject),
		logging.Int("content_length", len(content)),
		logging.String(logging.FieldEventType, "newsletter_fetched"))
	return Issue{Subject: subject, Content: content}, nil
}

// htmlBody returns the encoded data of the first text/html part.
func htmlBody(part *gm.MessagePart) string {
	if part == nil {
		return ""
	}
	if part.MimeType == "text/html" && part.Body != nil && part.Body.Data != "" {
		return part.Body.Data
	}
	for _, child := range part.Parts {
		if data := htmlBody(child); data != "" {
			return data
		}
	}
	return ""
}

// ParseNewsletter extracts the stories of a newsletter: the text of every
// paragraph inside a table body, minus the greeting paragraph, separated by
// blank lines.
func ParseNewsletter(document string) (string, error) {
	root, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return "", err
	}
	var paragraphs []string
	var walk func(n *html.Node, inBody bool)
	walk = func(n *html.Node, inBody bool) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Tbody:
				inBody = true
			case atom.P:
				if inBody {
					paragraphs = append(paragraphs, strings.TrimSpace(nodeText(n)))
					return
				}
			case atom.Script, atom.Style:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inBody)
		}
	}
	walk(root, false)
	if len(paragraphs) < 2 {
		return "", fmt.Errorf("newsletter has no stories")
	}
	return strings.Join(paragraphs[1:], "\n\n"), nil
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return b.String()
}
