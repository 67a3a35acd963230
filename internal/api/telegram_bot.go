// Package api provides handlers for external APIs and interfaces
package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/abelzeko/berlin-covid/internal/query"
	"github.com/abelzeko/berlin-covid/internal/repository"
	"github.com/abelzeko/berlin-covid/internal/usecases"
)

const (
	topDistricts = 5
	topDays      = 7
)

// DistrictQueries is the read side the bot answers from
type DistrictQueries interface {
	Districts() ([]string, error)
	DistrictSummary(input string) (usecases.DistrictSummary, error)
	Top(n, days int) ([]query.DistrictMean, error)
	LastUpdate() (time.Time, error)
	FormatDistrictInfo(s usecases.DistrictSummary) string
	FormatTop(means []query.DistrictMean, days int) string
}

// TelegramBot handles interactions with the Telegram API
type TelegramBot struct {
	bot     *tgbotapi.BotAPI
	queries DistrictQueries
}

// NewTelegramBot creates a new Telegram bot handler
func NewTelegramBot(botToken string, queries DistrictQueries) (*TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create bot")
	}

	return &TelegramBot{
		bot:     bot,
		queries: queries,
	}, nil
}

// Start listens for and handles Telegram messages until ctx is cancelled
func (t *TelegramBot) Start(ctx context.Context) {
	zap.L().Info("authorized on telegram", zap.String("account", t.bot.Self.UserName))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := t.bot.GetUpdatesChan(u)
	zap.L().Info("bot is now listening for messages")

	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			zap.L().Info("bot stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			zap.L().Debug("received message",
				zap.String("user", update.Message.From.UserName),
				zap.Int64("user_id", update.Message.From.ID),
				zap.String("text", update.Message.Text),
			)
			t.handleMessage(update)
		}
	}
}

// handleMessage processes a Telegram message update
func (t *TelegramBot) handleMessage(update tgbotapi.Update) {
	msg := tgbotapi.NewMessage(update.Message.Chat.ID, t.reply(update.Message))

	if _, err := t.bot.Send(msg); err != nil {
		zap.L().Error("error sending message", zap.Error(err))
	}
}

// reply builds the answer to one message
func (t *TelegramBot) reply(message *tgbotapi.Message) string {
	if message.IsCommand() {
		return t.handleCommand(message.Command(), message.CommandArguments())
	}

	// Plain text is treated as a district name
	text := strings.TrimSpace(message.Text)
	if text == "" {
		return "I don't understand. Use /help to see available commands."
	}
	summary, err := t.queries.DistrictSummary(text)
	if err != nil {
		return "I don't understand. Use /help to see available commands."
	}
	return t.queries.FormatDistrictInfo(summary)
}

// handleCommand processes commands like /start, /help, etc.
func (t *TelegramBot) handleCommand(command, args string) string {
	zap.L().Debug("handling command", zap.String("command", command), zap.String("args", args))

	switch command {
	case "start":
		return "Welcome to the Berlin COVID-19 bot! Use /districts to see the districts or /help for more information."

	case "help":
		return "Available commands:\n" +
			"/start - Start the bot\n" +
			"/districts - Show the list of districts\n" +
			"/district [name] - Show the latest figures for a district\n" +
			"/top - Show the districts with the highest incidence this week\n" +
			"/help - Show this help message"

	case "districts":
		return t.handleDistrictsCommand()

	case "district":
		return t.handleDistrictCommand(args)

	case "top":
		return t.handleTopCommand()

	default:
		zap.L().Debug("unknown command", zap.String("command", command))
		return "Unknown command. Use /help to see available commands."
	}
}

// handleDistrictsCommand processes the /districts command
func (t *TelegramBot) handleDistrictsCommand() string {
	names, err := t.queries.Districts()
	if err != nil {
		return dataError(err)
	}

	var text strings.Builder
	text.WriteString("Available districts:\n\n")
	for _, name := range names {
		text.WriteString("• " + name + "\n")
	}
	text.WriteString("\nUse /district [name] to get the latest figures.")
	if lastUpdate, err := t.queries.LastUpdate(); err == nil {
		text.WriteString(fmt.Sprintf("\n\n🕒 Last update: %s", lastUpdate.Format("2006-01-02 15:04:05")))
	}
	return text.String()
}

// handleDistrictCommand processes the /district [name] command
func (t *TelegramBot) handleDistrictCommand(args string) string {
	if strings.TrimSpace(args) == "" {
		return "Please specify a district name. Example: /district Neukölln"
	}

	summary, err := t.queries.DistrictSummary(args)
	if errors.Is(err, usecases.ErrUnknownDistrict) {
		return fmt.Sprintf("No information found for district '%s'. Use /districts to see the available districts.", strings.TrimSpace(args))
	}
	if err != nil {
		return dataError(err)
	}
	return t.queries.FormatDistrictInfo(summary)
}

// handleTopCommand processes the /top command
func (t *TelegramBot) handleTopCommand() string {
	means, err := t.queries.Top(topDistricts, topDays)
	if err != nil {
		return dataError(err)
	}
	return t.queries.FormatTop(means, topDays)
}

func dataError(err error) string {
	if errors.Is(err, repository.ErrNoData) {
		return "No data has been collected yet. Please try again later."
	}
	zap.L().Error("error fetching case data", zap.Error(err))
	return "Error fetching case data. Please try again later."
}
