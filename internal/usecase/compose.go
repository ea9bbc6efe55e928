package usecase

import (
	"context"
	"fmt"
	"strings"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

// Composer transforms an eligible item into a message for one channel.
type Composer interface {
	// Begin is called once at the start of every run.
	Begin()
	Compose(ctx context.Context, item domain.ContentItem) (domain.Message, error)
}

const (
	separatorLine   = "——"
	jobsRemoteLabel = "🌍 Удаленная работа"
	newsFooter      = "📝 Краткий пересказ статьи для русскоязычных читателей"

	placeholderTitle       = "Без названия"
	placeholderCompany     = "Компания не указана"
	placeholderJobType     = "Тип не указан"
	placeholderDescription = "Описание отсутствует"
)

// NewsComposer summarizes stories and renders the news post.
type NewsComposer struct {
	summarizer    ports.Summarizer
	channelID     string
	discussionURL string
	subscribeURL  string
}

// NewNewsComposer builds the news renderer. discussionURL is the prefix the story id is appended to.
func NewNewsComposer(summarizer ports.Summarizer, channelID, discussionURL, subscribeURL string) *NewsComposer {
	return &NewsComposer{
		summarizer:    summarizer,
		channelID:     channelID,
		discussionURL: discussionURL,
		subscribeURL:  subscribeURL,
	}
}

func (c *NewsComposer) Begin() {
	c.summarizer.Begin()
}

// Compose passes through domain.ErrNotRelevant and domain.ErrTransformUnavailable from the summarizer.
func (c *NewsComposer) Compose(ctx context.Context, item domain.ContentItem) (domain.Message, error) {
	news, ok := item.(domain.NewsItem)
	if !ok {
		return domain.Message{}, fmt.Errorf("%w: news composer got %T", domain.ErrIneligible, item)
	}

	summary, err := c.summarizer.Summarize(ctx, news.URL)
	if err != nil {
		return domain.Message{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📰 *%s*\n\n", escapeMarkdown(news.Title))
	b.WriteString(escapeMarkdown(summary))
	b.WriteString("\n\n" + separatorLine + "\n\n")
	fmt.Fprintf(&b, "[Источник](%s)\n", escapeURL(news.URL))
	fmt.Fprintf(&b, "[Обсуждение](%s%d)\n\n", c.discussionURL, news.ID)
	b.WriteString(newsFooter)
	if c.subscribeURL != "" {
		fmt.Fprintf(&b, "\n\n[Подписаться на Hacker News](%s)", escapeURL(c.subscribeURL))
	}

	return domain.Message{ChannelID: c.channelID, Text: b.String()}, nil
}

// JobsComposer translates job fields and renders the vacancy post.
type JobsComposer struct {
	translator   ports.Translator
	channelID    string
	subscribeURL string
	excerptRunes int
}

// NewJobsComposer builds the jobs renderer. excerptRunes bounds the description excerpt.
func NewJobsComposer(translator ports.Translator, channelID, subscribeURL string, excerptRunes int) *JobsComposer {
	if excerptRunes <= 0 {
		excerptRunes = 400
	}
	return &JobsComposer{
		translator:   translator,
		channelID:    channelID,
		subscribeURL: subscribeURL,
		excerptRunes: excerptRunes,
	}
}

func (c *JobsComposer) Begin() {}

// Compose never fails on translation; untranslated fields are published as is.
func (c *JobsComposer) Compose(ctx context.Context, item domain.ContentItem) (domain.Message, error) {
	job, ok := item.(domain.JobItem)
	if !ok {
		return domain.Message{}, fmt.Errorf("%w: jobs composer got %T", domain.ErrIneligible, item)
	}

	title := orPlaceholder(c.translator.Translate(ctx, job.Title), placeholderTitle)
	company := orPlaceholder(c.translator.Translate(ctx, job.Company), placeholderCompany)
	jobType := orPlaceholder(c.translator.Translate(ctx, job.JobType), placeholderJobType)
	industry := c.translator.Translate(ctx, job.Industry)
	description := truncateRunes(c.translator.Translate(ctx, job.Description), c.excerptRunes)

	var b strings.Builder
	fmt.Fprintf(&b, "💼 *%s*\n", escapeMarkdown(title))
	fmt.Fprintf(&b, "🏢 %s\n", escapeMarkdown(company))
	fmt.Fprintf(&b, "🕒 %s\n", escapeMarkdown(jobType))
	b.WriteString(jobsRemoteLabel)
	if industry != "" {
		fmt.Fprintf(&b, "\n🏭 %s", escapeMarkdown(industry))
	}
	if description != "" {
		fmt.Fprintf(&b, "\n\n%s...", escapeMarkdown(description))
	} else {
		b.WriteString("\n\n" + placeholderDescription)
	}
	b.WriteString("\n\n" + separatorLine + "\n\n")
	fmt.Fprintf(&b, "[Подробнее](%s)", escapeURL(job.URL))
	if c.subscribeURL != "" {
		fmt.Fprintf(&b, "\n[Подписаться на вакансии](%s)", escapeURL(c.subscribeURL))
	}

	return domain.Message{ChannelID: c.channelID, Text: b.String(), DisablePreview: true}, nil
}

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}

var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"`", "\\`",
	"[", "\\[",
)

// escapeMarkdown neutralizes legacy Markdown control characters in free text.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// escapeURL keeps a link target from closing the Markdown link early.
func escapeURL(u string) string {
	return strings.ReplaceAll(strings.TrimSpace(u), ")", "%29")
}

func truncateRunes(s string, limit int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= limit {
		return string(runes)
	}
	cut := runes[:limit]
	for i := len(cut) - 1; i >= limit*3/4; i-- {
		if cut[i] == ' ' || cut[i] == '\n' {
			cut = cut[:i]
			break
		}
	}
	return strings.TrimSpace(string(cut))
}
