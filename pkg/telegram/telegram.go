package telegram

import (
	"context"

	"egg-trading/config"
	"egg-trading/pkg/logger"
	"egg-trading/pkg/utils"

	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"
)

// Messenger is the operator notification channel. Sends are fire-and-forget:
// failures are logged and swallowed, never surfaced to the caller.
type Messenger interface {
	Send(ctx context.Context, text string)
	SendPhoto(ctx context.Context, text, photoPath string)
}

type telegramMessenger struct {
	cfg     *config.TelegramConfig
	log     *logger.Logger
	bot     *telebot.Bot
	chat    *telebot.Chat
	limiter *rate.Limiter
}

// New builds a Telegram-backed Messenger.
func New(cfg *config.TelegramConfig, log *logger.Logger) (Messenger, error) {
	bot, err := telebot.NewBot(telebot.Settings{
		Token: cfg.BotToken,
		OnError: func(err error, c telebot.Context) {
			log.Warn("telegram bot error", logger.ErrorField(err))
		},
	})
	if err != nil {
		return nil, err
	}

	return &telegramMessenger{
		cfg:     cfg,
		log:     log,
		bot:     bot,
		chat:    &telebot.Chat{ID: cfg.ChatID},
		limiter: rate.NewLimiter(rate.Limit(cfg.MaxRequestPerSecond), cfg.MaxRequestPerSecond),
	}, nil
}

func (t *telegramMessenger) Send(ctx context.Context, text string) {
	t.send(ctx, text, "")
}

func (t *telegramMessenger) SendPhoto(ctx context.Context, text, photoPath string) {
	t.send(ctx, text, photoPath)
}

func (t *telegramMessenger) send(ctx context.Context, text, photoPath string) {
	sendCtx, cancel := context.WithTimeout(ctx, t.cfg.TimeoutDuration)
	defer cancel()

	if err := t.limiter.Wait(sendCtx); err != nil {
		t.log.Warn("telegram rate limit wait aborted", logger.ErrorField(err))
		return
	}

	text = utils.Truncate(text, t.cfg.MaxMessageLength)

	var err error
	if photoPath != "" {
		photo := &telebot.Photo{File: telebot.FromDisk(photoPath), Caption: text}
		_, err = t.bot.Send(t.chat, photo)
	} else {
		_, err = t.bot.Send(t.chat, text)
	}
	if err != nil {
		t.log.Warn("failed to send telegram message",
			logger.ErrorField(err),
			logger.IntField("text_len", len(text)),
		)
	}
}

// noopMessenger prints locally instead of hitting Telegram; used when
// app.is_test is set.
type noopMessenger struct {
	log *logger.Logger
}

func NewNoop(log *logger.Logger) Messenger {
	return &noopMessenger{log: log}
}

func (n *noopMessenger) Send(ctx context.Context, text string) {
	n.log.Info("messenger (suppressed)", logger.StringField("text", text))
}

func (n *noopMessenger) SendPhoto(ctx context.Context, text, photoPath string) {
	n.log.Info("messenger photo (suppressed)",
		logger.StringField("text", text),
		logger.StringField("photo", photoPath),
	)
}
