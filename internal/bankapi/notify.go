package bankapi

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/PaulSonOfLars/gotgbot/v2"

	"gamebank/internal/telegram"
)

func EscapeMarkdownV2(text string) string {
	specialChars := []string{"_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	for _, char := range specialChars {
		text = strings.ReplaceAll(text, char, "\\"+char)
	}
	return text
}

// SendTelegramMessage posts an ops message to the configured channel.
// chat "finance" routes balance-affecting events to the finance channel,
// anything else goes to the default one.
func SendTelegramMessage(msg string, chat string) error {
	token := os.Getenv("TELEGRAM_TOKEN")
	if token == "" {
		return errors.New("TELEGRAM_TOKEN is not set")
	}
	var chatId string
	switch chat {
	case "finance":
		chatId = os.Getenv("FINANCE_CHAT_ID")
		if chatId == "" {
			return errors.New("FINANCE_CHAT_ID is not set")
		}
	default:
		chatId = os.Getenv("DEFAULT_CHAT_ID")
		if chatId == "" {
			return errors.New("DEFAULT_CHAT_ID is not set")
		}
	}
	id, err := strconv.ParseInt(chatId, 10, 64)
	if err != nil {
		return err
	}
	bot, err := telegram.NewBot(token)
	if err != nil {
		return err
	}
	_, err = bot.Api.SendMessage(id, msg, &gotgbot.SendMessageOpts{
		ParseMode: "MarkdownV2",
		LinkPreviewOptions: &gotgbot.LinkPreviewOptions{
			IsDisabled: true,
		},
	})
	if err != nil {
		return err
	}
	return nil
}
