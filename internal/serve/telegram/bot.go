// Package telegram runs the converter as a Telegram bot. Each chat gets its
// own conversation, kept in memory until /new or process exit.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/samsaffron/sql2pyspark/internal/session"
)

// maxMessageLen is Telegram's limit for one text message, in characters.
const maxMessageLen = 4096

const helpText = `Send me a SQL query and I will reply with a PySpark equivalent.

/new - start a new conversation
/help - show this message`

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Options struct {
	// NewSession builds the conversation for a chat that has none yet.
	NewSession func() *session.Session
	// AllowedUsers restricts the bot to these Telegram user IDs. Empty
	// allows everyone.
	AllowedUsers []int64
	Logger       zerolog.Logger
}

type Bot struct {
	api  *tgbotapi.BotAPI
	s    sender
	opts Options

	mu       sync.Mutex
	sessions map[int64]*session.Session
}

// New connects to the Bot API with token.
func New(token string, opts Options) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	b := newBot(api, opts)
	b.api = api
	return b, nil
}

func newBot(s sender, opts Options) *Bot {
	return &Bot{s: s, opts: opts, sessions: make(map[int64]*session.Session)}
}

// Username returns the bot's account name.
func (b *Bot) Username() string {
	if b.api == nil {
		return ""
	}
	return b.api.Self.UserName
}

// Run long-polls for updates until ctx is cancelled. Messages are handled
// concurrently; a chat that is still waiting on a reply gets a busy notice.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer wg.Done()
				b.handleMessage(ctx, msg)
			}(update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil || msg.From == nil {
		return
	}
	chatID := msg.Chat.ID
	logger := b.opts.Logger.With().Int64("chat", chatID).Int64("user", msg.From.ID).Logger()

	if !b.allowed(msg.From.ID) {
		logger.Warn().Str("username", msg.From.UserName).Msg("unauthorized user")
		b.sendText(chatID, "You are not allowed to use this bot.")
		return
	}

	if msg.IsCommand() {
		b.handleCommand(chatID, msg.Command())
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if _, err := b.s.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		logger.Debug().Err(err).Msg("chat action failed")
	}

	reply, err := b.session(chatID).Submit(ctx, text, nil)
	switch {
	case errors.Is(err, session.ErrBusy):
		b.sendText(chatID, "Still working on your previous query.")
	case err != nil:
		logger.Error().Err(err).Msg("generation failed")
		b.sendText(chatID, "Error: "+err.Error())
	default:
		for _, part := range splitMessage(reply, maxMessageLen) {
			b.sendText(chatID, part)
		}
	}
}

func (b *Bot) handleCommand(chatID int64, command string) {
	switch command {
	case "start", "help":
		b.sendText(chatID, helpText)
	case "new", "reset":
		if err := b.reset(chatID); err != nil {
			b.sendText(chatID, "Still working on your previous query.")
			return
		}
		b.sendText(chatID, "Started a new conversation.")
	default:
		b.sendText(chatID, "Unknown command. Try /help.")
	}
}

func (b *Bot) allowed(userID int64) bool {
	return len(b.opts.AllowedUsers) == 0 || slices.Contains(b.opts.AllowedUsers, userID)
}

func (b *Bot) session(chatID int64) *session.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	sess, ok := b.sessions[chatID]
	if !ok {
		sess = b.opts.NewSession()
		b.sessions[chatID] = sess
	}
	return sess
}

// reset drops the chat's conversation. It refuses while a reply is being
// generated.
func (b *Bot) reset(chatID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sess, ok := b.sessions[chatID]; ok && sess.State() == session.Responding {
		return session.ErrBusy
	}
	delete(b.sessions, chatID)
	return nil
}

// Chats returns how many chats currently hold a conversation.
func (b *Bot) Chats() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

func (b *Bot) sendText(chatID int64, text string) {
	if _, err := b.s.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.opts.Logger.Error().Err(err).Int64("chat", chatID).Msg("send failed")
	}
}

// splitMessage breaks text into parts of at most limit characters,
// preferring to cut at a line break.
func splitMessage(text string, limit int) []string {
	var parts []string
	for utf8.RuneCountInString(text) > limit {
		cut := byteOffset(text, limit)
		if nl := strings.LastIndex(text[:cut], "\n"); nl > 0 {
			cut = nl + 1
		}
		parts = append(parts, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}

// byteOffset returns the byte index of the n-th rune in s.
func byteOffset(s string, n int) int {
	i := 0
	for pos := range s {
		if i == n {
			return pos
		}
		i++
	}
	return len(s)
}
