package telegram

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/usecase"
)

const msgAccessDenied = "⛔ Доступ запрещен"

func kindLabel(kind domain.Kind) string {
	switch kind {
	case domain.KindNews:
		return "новости"
	case domain.KindJobs:
		return "вакансии"
	default:
		return string(kind)
	}
}

func helpText(autoRunning bool) string {
	status := "остановлена"
	if autoRunning {
		status = "работает"
	}
	return strings.Join([]string{
		"Команды:",
		"/force_check - проверить новости сейчас",
		"/force_jobs - проверить вакансии сейчас",
		"/stats - статистика за сегодня",
		"/clear_db - очистить историю публикаций",
		"/stop - остановить автоматическую проверку",
		"/start_auto - возобновить автоматическую проверку",
		"",
		"Автоматическая проверка: " + status,
	}, "\n")
}

func formatRunResult(kind domain.Kind, res usecase.Result, err error) string {
	switch {
	case errors.Is(err, domain.ErrRunInProgress):
		return fmt.Sprintf("⏳ Проверка (%s) уже выполняется", kindLabel(kind))
	case err != nil:
		return fmt.Sprintf("❌ Проверка (%s) не удалась: %v", kindLabel(kind), err)
	}
	return fmt.Sprintf("✅ Проверка (%s) завершена: опубликовано %d, пропущено %d, нерелевантно %d, отложено %d",
		kindLabel(kind), res.Published, res.Seen, res.NotRelevant, res.Deferred)
}

func formatCleared(deleted map[domain.Kind]int64) string {
	kinds := make([]domain.Kind, 0, len(deleted))
	for k := range deleted {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%s: %d", kindLabel(k), deleted[k]))
	}
	return "🗑 История очищена (" + strings.Join(parts, ", ") + ")"
}

func formatStats(stats []domain.StatisticsCounter, channels map[string]string) string {
	if len(stats) == 0 {
		return "📊 Сегодня публикаций не было"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Статистика за %s:", stats[0].Date)
	var total int64
	for _, s := range stats {
		label := s.ChannelID
		if name, ok := channels[s.ChannelID]; ok {
			label = name
		}
		fmt.Fprintf(&b, "\n%s: %d", label, s.Count)
		total += s.Count
	}
	fmt.Fprintf(&b, "\nВсего: %d", total)
	return b.String()
}
