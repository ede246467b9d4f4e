package telegram

import (
	"fmt"

	"quizzarium-backend/internal/models"
)

const (
	cbReportIssue = "report_issue"
	cbCheckStatus = "check_status"
	cbReplyPrefix = "reply_"

	btnStart      = "Начать"
	btnNewTickets = "📢 Посмотреть нерассмотренные обращения"
)

func StartKeyboard() *ReplyKeyboardMarkup {
	return &ReplyKeyboardMarkup{
		Keyboard:              [][]KeyboardButton{{{Text: btnStart}}},
		ResizeKeyboard:        true,
		InputFieldPlaceholder: "Нажмите «Начать», чтобы выбрать действие",
	}
}

func UserMenuKeyboard() *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{
			{{Text: "💬 Сообщить о проблеме", CallbackData: cbReportIssue}},
			{{Text: "🔍 Проверить статус", CallbackData: cbCheckStatus}},
		},
	}
}

func AdminMenuKeyboard() *ReplyKeyboardMarkup {
	return &ReplyKeyboardMarkup{
		Keyboard:       [][]KeyboardButton{{{Text: btnNewTickets}}},
		ResizeKeyboard: true,
	}
}

func ReplyKeyboard(tickets []models.SupportTicket) *InlineKeyboardMarkup {
	var rows [][]InlineKeyboardButton
	for _, t := range tickets {
		rows = append(rows, []InlineKeyboardButton{
			{Text: fmt.Sprintf("Ответить №%d", t.ID), CallbackData: fmt.Sprintf("%s%d", cbReplyPrefix, t.ID)},
		})
	}
	return &InlineKeyboardMarkup{InlineKeyboard: rows}
}
