package api

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
)

func commandMessage(text string, length int) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
	}
}

func TestHandleStartAndHelp(t *testing.T) {
	bot := &TelegramBot{queries: seededQueries(t)}

	assert.Contains(t, bot.handleCommand("start", ""), "Welcome")
	help := bot.handleCommand("help", "")
	for _, cmd := range []string{"/districts", "/district [name]", "/top"} {
		assert.Contains(t, help, cmd)
	}
	assert.Contains(t, bot.handleCommand("vaccines", ""), "Unknown command")
}

func TestHandleDistrictsCommand(t *testing.T) {
	bot := &TelegramBot{queries: seededQueries(t)}

	text := bot.handleCommand("districts", "")
	assert.Contains(t, text, "• Mitte\n")
	assert.Contains(t, text, "• Pankow\n")
	assert.Contains(t, text, "Last update")
}

func TestHandleDistrictCommand(t *testing.T) {
	bot := &TelegramBot{queries: seededQueries(t)}

	text := bot.handleCommand("district", "pa")
	assert.Contains(t, text, "COVID-19 figures for Pankow")
	assert.Contains(t, text, "New cases: 8")
	assert.Contains(t, text, "7-day average: 5.0")

	assert.Contains(t, bot.handleCommand("district", ""), "Please specify a district name")
	assert.Contains(t, bot.handleCommand("district", "Atlantis"), "No information found for district 'Atlantis'")
}

func TestHandleTopCommand(t *testing.T) {
	bot := &TelegramBot{queries: seededQueries(t)}

	text := bot.handleCommand("top", "")
	assert.Contains(t, text, "last 7 days")
	assert.Contains(t, text, "1. Mitte")
	assert.Contains(t, text, "2. Pankow")
}

func TestHandleWithoutData(t *testing.T) {
	bot := &TelegramBot{queries: emptyQueries(t)}

	assert.Contains(t, bot.handleCommand("districts", ""), "No data has been collected yet")
	assert.Contains(t, bot.handleCommand("top", ""), "No data has been collected yet")
	assert.Contains(t, bot.handleCommand("district", "Mitte"), "No data has been collected yet")
}

func TestReply(t *testing.T) {
	bot := &TelegramBot{queries: seededQueries(t)}

	assert.Contains(t, bot.reply(commandMessage("/district Mitte", 9)), "COVID-19 figures for Mitte")
	assert.Contains(t, bot.reply(&tgbotapi.Message{Text: "mitte"}), "COVID-19 figures for Mitte")
	assert.Contains(t, bot.reply(&tgbotapi.Message{Text: "hello"}), "I don't understand")
	assert.Contains(t, bot.reply(&tgbotapi.Message{Text: "  "}), "I don't understand")
}
