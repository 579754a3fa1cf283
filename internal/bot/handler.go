package bot

import (
	"fmt"
	"time"

	"github.com/eliseohh/pollbot/internal/session"
	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v3"
)

const (
	startText = "Please select /poll to get a Poll, /quiz to get a Quiz or /preview" +
		" to generate a preview for your poll"
	helpText = "Use /quiz, /poll or /preview to test this bot."
)

// Client is the part of the Telegram API the handlers call directly.
// *tele.Bot implements it.
type Client interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	StopPoll(msg tele.Editable, opts ...interface{}) (*tele.Poll, error)
}

type Bot struct {
	api    *tele.Bot
	client Client
	store  session.Store
	log    zerolog.Logger
	cfg    Config
}

type Config struct {
	Token       string
	PollTimeout time.Duration
}

func New(cfg Config, store session.Store, log zerolog.Logger) (*Bot, error) {
	if cfg.PollTimeout == 0 {
		cfg.PollTimeout = 10 * time.Second
	}

	bot := &Bot{store: store, log: log, cfg: cfg}

	pref := tele.Settings{
		Token:       cfg.Token,
		Poller:      tele.NewMiddlewarePoller(&tele.LongPoller{Timeout: cfg.PollTimeout}, bot.filter),
		Synchronous: true,
		OnError:     bot.onError,
	}
	if err := bot.init(pref); err != nil {
		return nil, err
	}
	return bot, nil
}

func (b *Bot) init(pref tele.Settings) error {
	api, err := tele.NewBot(pref)
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}

	b.api = api
	if b.client == nil {
		b.client = api
	}
	b.register()
	return nil
}

// Start blocks until Stop is called.
func (b *Bot) Start() {
	b.log.Info().Str("username", b.api.Me.Username).Msg("bot started")
	b.api.Start()
}

func (b *Bot) Stop() {
	b.api.Stop()
	if err := b.store.Close(); err != nil {
		b.log.Error().Err(err).Msg("close session store")
	}
}

func (b *Bot) register() {
	b.api.Handle("/start", b.handleStart)
	b.api.Handle("/help", b.handleHelp)
	b.api.Handle("/status", b.handleStatus)

	b.api.Handle("/poll", b.handlePoll)
	b.api.Handle("/quiz", b.handleQuiz)
	b.api.Handle("/preview", b.handlePreview)

	// Only poll state updates reach OnPoll; submitted polls are taken by filter.
	b.api.Handle(tele.OnPoll, b.handlePollUpdate)
	b.api.Handle(tele.OnPollAnswer, b.handlePollAnswer)
}

// filter answers messages carrying a poll before telebot dispatches them,
// since ProcessUpdate has no endpoint for them.
func (b *Bot) filter(u *tele.Update) bool {
	if u.Message == nil || u.Message.Poll == nil {
		return true
	}
	if err := b.handleReceivedPoll(u.Message); err != nil {
		b.onError(err, b.api.NewContext(*u))
	}
	return false
}

func (b *Bot) onError(err error, c tele.Context) {
	ev := b.log.Error().Err(err)
	if c != nil && c.Update().ID != 0 {
		ev = ev.Int("update_id", c.Update().ID)
	}
	ev.Msg("handler failed")
}

func (b *Bot) handleStart(c tele.Context) error {
	return c.Send(startText)
}

func (b *Bot) handleHelp(c tele.Context) error {
	return c.Send(helpText)
}

func (b *Bot) handleStatus(c tele.Context) error {
	n, err := b.store.Len()
	if err != nil {
		return err
	}
	return c.Send(fmt.Sprintf("Tracked polls: %d", n))
}
