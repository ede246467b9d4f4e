package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"quizzarium-backend/internal/apperrors"
	"quizzarium-backend/internal/models"
)

// SupportStore is the ticket backend the bot talks to.
type SupportStore interface {
	GetOrCreateGuest(ctx context.Context, telegramID int64) (*models.User, bool, error)
	CreateTicket(ctx context.Context, userID uint, username, message string) (*models.SupportTicket, error)
	ListNew(ctx context.Context) ([]models.SupportTicket, error)
	ListByUser(ctx context.Context, userID uint) ([]models.SupportTicket, error)
	Reply(ctx context.Context, ticketID uint, response string) (*models.SupportTicket, *models.User, error)
}

type UpdateHandler struct {
	client      *Client
	state       *StateManager
	support     SupportStore
	adminChatID int64
}

func NewUpdateHandler(client *Client, state *StateManager, support SupportStore, adminChatID int64) *UpdateHandler {
	return &UpdateHandler{
		client:      client,
		state:       state,
		support:     support,
		adminChatID: adminChatID,
	}
}

func (h *UpdateHandler) Handle(upd Update) {
	if upd.CallbackQuery != nil {
		h.handleCallback(upd.CallbackQuery)
		return
	}
	if upd.Message != nil {
		h.handleMessage(upd.Message)
	}
}

func (h *UpdateHandler) isAdmin(chatID int64) bool {
	return h.adminChatID != 0 && chatID == h.adminChatID
}

func (h *UpdateHandler) handleMessage(msg *Message) {
	if msg.From == nil || msg.From.IsBot {
		return
	}
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	if h.isAdmin(chatID) {
		h.handleAdminMessage(msg, text)
		return
	}

	if isCommand(msg, "start") {
		h.cmdStart(msg)
		return
	}
	if text == btnStart {
		h.state.Clear(chatID)
		h.send(chatID, "Выберите действие:", UserMenuKeyboard())
		return
	}

	if st := h.state.Take(chatID); st.State == StateAwaitingIssue {
		h.submitIssue(msg, text)
		return
	}

	h.send(chatID, "Выберите действие:", UserMenuKeyboard())
}

func (h *UpdateHandler) handleAdminMessage(msg *Message, text string) {
	chatID := msg.Chat.ID

	if isCommand(msg, "start") {
		h.state.Clear(chatID)
		h.send(chatID, "Техподдержка!", AdminMenuKeyboard())
		return
	}
	if isCommand(msg, "tickets") || text == btnNewTickets {
		h.state.Clear(chatID)
		h.showNewTickets(chatID)
		return
	}

	st := h.state.Take(chatID)
	if st.State != StateAwaitingReply {
		h.send(chatID, "Выберите обращение через меню.", AdminMenuKeyboard())
		return
	}

	ticket, user, err := h.support.Reply(context.Background(), st.TicketID, text)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		h.send(chatID, "Обращение не найдено.", nil)
		return
	case errors.Is(err, apperrors.ErrValidation):
		h.state.Set(chatID, st)
		h.send(chatID, "Ответ не может быть пустым. Введите ответ ещё раз:", nil)
		return
	case err != nil:
		log.Printf("[SupportBot] reply to ticket %d: %v", st.TicketID, err)
		h.send(chatID, "❌ Не удалось сохранить ответ.", nil)
		return
	}

	if user.TelegramID == nil {
		h.send(chatID, fmt.Sprintf("Ответ сохранён (№ %d), но у пользователя нет чата с ботом.", ticket.ID), nil)
		return
	}
	if _, err := h.client.SendMessage(*user.TelegramID, "📩 Ответ от поддержки:\n\n"+ticket.Response, nil); err != nil {
		log.Printf("[SupportBot] relay ticket %d: %v", ticket.ID, err)
		h.send(chatID, "❌ Не удалось отправить ответ пользователю.", nil)
		return
	}
	h.send(chatID, fmt.Sprintf("✅ Ответ отправлен пользователю (№ %d).", ticket.ID), nil)
}

func (h *UpdateHandler) cmdStart(msg *Message) {
	chatID := msg.Chat.ID
	h.state.Clear(chatID)

	_, created, err := h.support.GetOrCreateGuest(context.Background(), msg.From.ID)
	if err != nil {
		log.Printf("[SupportBot] guest for %d: %v", msg.From.ID, err)
		h.send(chatID, "Сервис временно недоступен, попробуйте позже.", nil)
		return
	}

	if !created {
		h.send(chatID, "Выберите действие:", UserMenuKeyboard())
		return
	}

	name := msg.From.FirstName
	if name == "" {
		name = "друг"
	}
	h.send(chatID,
		fmt.Sprintf("👋 Добро пожаловать, %s!\n\n🤖 Это техподдержка Quizzarium.\n\nНажмите «Начать», чтобы выбрать действие.", name),
		StartKeyboard())
}

func (h *UpdateHandler) submitIssue(msg *Message, text string) {
	chatID := msg.Chat.ID
	ctx := context.Background()

	user, _, err := h.support.GetOrCreateGuest(ctx, msg.From.ID)
	if err != nil {
		log.Printf("[SupportBot] guest for %d: %v", msg.From.ID, err)
		h.send(chatID, "Сервис временно недоступен, попробуйте позже.", nil)
		return
	}

	ticket, err := h.support.CreateTicket(ctx, user.ID, msg.From.Username, text)
	if errors.Is(err, apperrors.ErrValidation) {
		h.state.Set(chatID, ChatState{State: StateAwaitingIssue})
		h.send(chatID, "Опишите проблему текстом:", nil)
		return
	}
	if err != nil {
		log.Printf("[SupportBot] create ticket: %v", err)
		h.send(chatID, "Не удалось сохранить обращение, попробуйте позже.", nil)
		return
	}

	h.send(chatID, "Спасибо за обращение! Мы ответим вам в ближайшее время.", nil)

	if h.adminChatID != 0 {
		username := msg.From.Username
		if username == "" {
			username = "no_username"
		}
		h.send(h.adminChatID,
			fmt.Sprintf("🔔 Новое обращение № %d от @%s (ID: %d):\n\n%s", ticket.ID, username, msg.From.ID, ticket.Message),
			ReplyKeyboard([]models.SupportTicket{*ticket}))
	}
}

func (h *UpdateHandler) handleCallback(cb *CallbackQuery) {
	if err := h.client.AnswerCallbackQuery(cb.ID, ""); err != nil {
		log.Printf("[SupportBot] answer callback: %v", err)
	}
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	if h.isAdmin(chatID) {
		if !strings.HasPrefix(cb.Data, cbReplyPrefix) {
			return
		}
		id, err := strconv.ParseUint(strings.TrimPrefix(cb.Data, cbReplyPrefix), 10, 64)
		if err != nil || id == 0 {
			return
		}
		h.state.Set(chatID, ChatState{State: StateAwaitingReply, TicketID: uint(id)})
		h.send(chatID, fmt.Sprintf("Введите ответ для обращения № %d:", id), nil)
		return
	}

	switch cb.Data {
	case cbReportIssue:
		h.state.Set(chatID, ChatState{State: StateAwaitingIssue})
		h.send(chatID, "Опишите вашу проблему, мы обязательно поможем!", nil)
	case cbCheckStatus:
		h.state.Clear(chatID)
		h.showOwnTickets(chatID, cb.From.ID)
	}
}

func (h *UpdateHandler) showOwnTickets(chatID, telegramID int64) {
	ctx := context.Background()
	user, _, err := h.support.GetOrCreateGuest(ctx, telegramID)
	if err != nil {
		log.Printf("[SupportBot] guest for %d: %v", telegramID, err)
		h.send(chatID, "Сервис временно недоступен, попробуйте позже.", nil)
		return
	}
	tickets, err := h.support.ListByUser(ctx, user.ID)
	if err != nil {
		log.Printf("[SupportBot] list tickets of user %d: %v", user.ID, err)
		h.send(chatID, "Не удалось загрузить обращения.", nil)
		return
	}
	if len(tickets) == 0 {
		h.send(chatID, "Вы ещё не отправляли обращений.", nil)
		return
	}

	var b strings.Builder
	b.WriteString("Ваши обращения:\n\n")
	for _, t := range tickets {
		fmt.Fprintf(&b, "№ %d\nСообщение: %s\nСтатус: %s", t.ID, t.Message, statusLabel(t.Status))
		if t.Response != "" {
			fmt.Fprintf(&b, "\n\n📩 Ответ поддержки:\n%s", t.Response)
		}
		b.WriteString("\n\n")
	}
	h.send(chatID, strings.TrimRight(b.String(), "\n"), nil)
}

func (h *UpdateHandler) showNewTickets(chatID int64) {
	tickets, err := h.support.ListNew(context.Background())
	if err != nil {
		log.Printf("[SupportBot] list new tickets: %v", err)
		h.send(chatID, "Не удалось загрузить обращения.", nil)
		return
	}
	if len(tickets) == 0 {
		h.send(chatID, "Нет нерассмотренных обращений.", nil)
		return
	}

	var b strings.Builder
	b.WriteString("🔔 Все нерассмотренные обращения:\n\n")
	for _, t := range tickets {
		username := t.Username
		if username == "" {
			username = "не указан"
		}
		fmt.Fprintf(&b, "№ %d\nПользователь: @%s\nСообщение: %s\n\n", t.ID, username, t.Message)
	}
	h.send(chatID, strings.TrimRight(b.String(), "\n"), nil)
	h.send(chatID, "Выберите обращение для ответа:", ReplyKeyboard(tickets))
}

func (h *UpdateHandler) send(chatID int64, text string, markup interface{}) {
	if _, err := h.client.SendMessage(chatID, text, markup); err != nil {
		log.Printf("[SupportBot] send to %d: %v", chatID, err)
	}
}

func statusLabel(status string) string {
	switch status {
	case models.TicketStatusNew:
		return "🟡 На рассмотрении"
	case models.TicketStatusAnswered:
		return "✅ Отвечено"
	default:
		return status
	}
}

func isCommand(msg *Message, cmd string) bool {
	for _, e := range msg.Entities {
		if e.Type == "bot_command" && e.Offset == 0 && e.Length <= len(msg.Text) {
			cmdText := msg.Text[:e.Length]
			cmdText = strings.Split(cmdText, "@")[0]
			return cmdText == "/"+cmd
		}
	}
	return false
}
