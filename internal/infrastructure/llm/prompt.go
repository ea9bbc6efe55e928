package llm

import "strings"

const urlPlaceholder = "{url}"

// DefaultPromptTemplate asks for a channel post or the single character "0" when the article does not fit.
const DefaultPromptTemplate = `Ты ведёшь Telegram-канал, где пересказываешь лучшие материалы Hacker News для русскоязычных IT-специалистов.

Прочитай статью по ссылке: {url}

Если материал не будет интересен русскоязычной IT-аудитории (реклама, локальные новости без технической части, политика), ответь одним символом: 0

Иначе напиши пост на русском языке объёмом около 350 слов от первого лица автора канала: суть статьи, ключевые детали и чем это полезно читателю. Не используй markdown, заголовки и списки. Не добавляй ссылку на источник.`

const notRelevantReply = "0"

func buildPrompt(template, articleURL string) string {
	if strings.TrimSpace(template) == "" {
		template = DefaultPromptTemplate
	}
	if !strings.Contains(template, urlPlaceholder) {
		return template + "\n\n" + articleURL
	}
	return strings.ReplaceAll(template, urlPlaceholder, articleURL)
}
