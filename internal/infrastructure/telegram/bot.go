package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v4"

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/usecase"
)

// NewBot creates a long-polling bot client.
func NewBot(cfg config.TelegramConfig) (*tele.Bot, error) {
	if strings.TrimSpace(cfg.BotToken) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout.Duration
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.BotToken,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return b, nil
}

// AdminService is what the command surface needs from the admin use case.
type AdminService interface {
	RunNow(ctx context.Context, kind domain.Kind) (usecase.Result, error)
	ClearProcessed(ctx context.Context, kinds ...domain.Kind) (map[domain.Kind]int64, error)
	Today(ctx context.Context) ([]domain.StatisticsCounter, error)
	StopAuto(ctx context.Context) error
	StartAuto(ctx context.Context) error
	AutoRunning() bool
	Kinds() []domain.Kind
}

// CommandBot serves owner-only administrative commands.
type CommandBot struct {
	bot      *tele.Bot
	admin    AdminService
	ownerID  int64
	channels map[string]string
	log      zerolog.Logger

	mu  sync.Mutex
	ctx context.Context
}

// NewCommandBot registers handlers. channels maps channel ids to labels used in /stats.
func NewCommandBot(bot *tele.Bot, admin AdminService, ownerID int64, channels map[string]string, log zerolog.Logger) *CommandBot {
	cb := &CommandBot{bot: bot, admin: admin, ownerID: ownerID, channels: channels, log: log, ctx: context.Background()}

	bot.Use(cb.recoverPanics, ownerOnly(ownerID, log))
	bot.Handle("/start", cb.onHelp)
	bot.Handle("/help", cb.onHelp)
	bot.Handle("/force_check", cb.onForce(domain.KindNews))
	bot.Handle("/force_jobs", cb.onForce(domain.KindJobs))
	bot.Handle("/clear_db", cb.onClear)
	bot.Handle("/stop", cb.onStop)
	bot.Handle("/start_auto", cb.onStartAuto)
	bot.Handle("/stats", cb.onStats)
	return cb
}

// Run polls updates until ctx is cancelled.
func (cb *CommandBot) Run(ctx context.Context) error {
	cb.mu.Lock()
	cb.ctx = ctx
	cb.mu.Unlock()

	go func() {
		<-ctx.Done()
		cb.bot.Stop()
	}()
	cb.log.Info().Msg("polling started")
	cb.bot.Start()
	cb.log.Info().Msg("polling stopped")
	return nil
}

func (cb *CommandBot) runContext() context.Context {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.ctx
}

func ownerOnly(ownerID int64, log zerolog.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if ownerID == 0 || sender == nil || sender.ID != ownerID {
				var from int64
				if sender != nil {
					from = sender.ID
				}
				log.Warn().Int64("from_id", from).Str("text", c.Text()).Msg("command rejected")
				return c.Send(msgAccessDenied)
			}
			return next(c)
		}
	}
}

func (cb *CommandBot) recoverPanics(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				cb.log.Error().Interface("panic", r).Msg("command panicked")
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return next(c)
	}
}

func (cb *CommandBot) onHelp(c tele.Context) error {
	return c.Send(helpText(cb.admin.AutoRunning()))
}

func (cb *CommandBot) onForce(kind domain.Kind) tele.HandlerFunc {
	return func(c tele.Context) error {
		if err := c.Send(fmt.Sprintf("🔄 Запускаю проверку: %s", kindLabel(kind))); err != nil {
			return err
		}
		res, err := cb.admin.RunNow(cb.runContext(), kind)
		return c.Send(formatRunResult(kind, res, err))
	}
}

func (cb *CommandBot) onClear(c tele.Context) error {
	deleted, err := cb.admin.ClearProcessed(cb.runContext(), cb.admin.Kinds()...)
	if err != nil {
		cb.log.Error().Err(err).Msg("clear processed failed")
		return c.Send("❌ Не удалось очистить историю: " + err.Error())
	}
	return c.Send(formatCleared(deleted))
}

func (cb *CommandBot) onStop(c tele.Context) error {
	if err := cb.admin.StopAuto(cb.runContext()); err != nil {
		return c.Send("❌ " + err.Error())
	}
	return c.Send("⏸ Автоматическая проверка остановлена")
}

func (cb *CommandBot) onStartAuto(c tele.Context) error {
	if err := cb.admin.StartAuto(cb.runContext()); err != nil {
		return c.Send("❌ " + err.Error())
	}
	return c.Send("▶️ Автоматическая проверка запущена")
}

func (cb *CommandBot) onStats(c tele.Context) error {
	stats, err := cb.admin.Today(cb.runContext())
	if err != nil {
		cb.log.Error().Err(err).Msg("stats query failed")
		return c.Send("❌ Не удалось получить статистику")
	}
	return c.Send(formatStats(stats, cb.channels))
}
