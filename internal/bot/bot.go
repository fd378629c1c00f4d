package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"dpsmart-bot/internal/board"
	"dpsmart-bot/internal/config"
	"dpsmart-bot/internal/users"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
)

type Bot struct {
	Instance *telego.Bot
	Users    *users.Service
	Boards   *board.Service
	Cfg      *config.Config
}

func NewBot(token string, userService *users.Service, boardService *board.Service, cfg *config.Config) (*Bot, error) {
	tgBot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Bot{
		Instance: tgBot,
		Users:    userService,
		Boards:   boardService,
		Cfg:      cfg,
	}, nil
}

func (b *Bot) Start() {
	updates, _ := b.Instance.UpdatesViaLongPolling(context.Background(), nil)

	handler, _ := th.NewBotHandler(b.Instance, updates)

	b.registerStartHandlers(handler)
	b.registerBoardHandlers(handler)
	b.registerAdminHandlers(handler)

	handler.Start()
}

func mainKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🎁 Доски").WithCallbackData("levels"),
			tu.InlineKeyboardButton("📋 Мои доски").WithCallbackData("myboards"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("✋ Я тут").WithCallbackData("heartbeat"),
			tu.InlineKeyboardButton("👤 Профиль").WithCallbackData("profile"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🤝 Пригласить друга").WithCallbackData("invite"),
		),
	)
}

func (b *Bot) registerStartHandlers(handler *th.BotHandler) {
	// /start, optionally with a referral code argument (dp_<tid>)
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		telegramID := message.From.ID

		args := ""
		if parts := strings.Split(message.Text, " "); len(parts) > 1 {
			args = parts[1]
		}

		var mentorTID *int64
		if args != "" {
			mentor, err := b.Users.GetByReferralCode(args)
			if err != nil {
				log.Printf("Failed to resolve referral code %q: %v", args, err)
			} else if mentor != nil {
				mentorTID = &mentor.TelegramID
			}
		}

		fullname := message.From.FirstName
		if message.From.LastName != "" {
			fullname += " " + message.From.LastName
		}

		user, isNew, err := b.Users.RegisterOrGet(telegramID, message.From.Username, fullname, mentorTID)
		if err != nil {
			log.Printf("Failed to register user %d: %v", telegramID, err)
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(message.Chat.ID), "❌ Ошибка регистрации, попробуйте позже."))
			return nil
		}
		if isNew && user.MentorID != nil {
			log.Printf("User %d invited by %d", telegramID, *user.MentorID)
		}

		greeting := fmt.Sprintf("Привет, %s! 👋\n\nЭто «Дари Получай Smart» — здесь подарки двигаются по доскам от дарителей к получателю.", user.DisplayName())
		if isNew {
			greeting += "\n\nНажимай «✋ Я тут» раз в 48 часов, чтобы оставаться активным."
		}

		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
			tu.ID(message.Chat.ID), greeting,
		).WithReplyMarkup(mainKeyboard()))
		return nil
	}, th.CommandEqual("start"))

	// Heartbeat: extends the 48h activity window
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		telegramID := callback.From.ID

		ok, err := b.Users.PressHeartbeat(telegramID)
		if err != nil {
			log.Printf("Failed to press heartbeat for %d: %v", telegramID, err)
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(telegramID), "❌ Ошибка, попробуйте позже."))
			_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
			return nil
		}

		msg := "✅ Активность продлена на 48 часов!"
		if !ok {
			msg = "🚫 Нельзя продлить активность: вы заблокированы или не зарегистрированы."
		}
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(telegramID), msg))
		_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
		return nil
	}, th.CallbackDataEqual("heartbeat"))

	// Profile: activity, ban and referral projection
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		telegramID := callback.From.ID

		user, err := b.Users.GetByTelegramID(telegramID)
		if err != nil || user == nil {
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(telegramID), "👤 Профиль не найден. Нажмите /start."))
			_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
			return nil
		}

		now := time.Now()
		globalStatus := "❌ нет (пригласите друга)"
		if user.IsGloballyActive(now) {
			globalStatus = fmt.Sprintf("✅ ещё %d дн.", user.GlobalActivityRemainingDays(now))
		}
		heartbeatStatus := "❌ истекла"
		if user.IsHeartbeatActive(now) {
			heartbeatStatus = fmt.Sprintf("✅ ещё %d ч.", user.HeartbeatRemainingHours(now))
		}
		banStatus := "нет"
		if user.Blocked {
			banStatus = "⛔ постоянная"
		} else if user.IsBanned(now) {
			banStatus = fmt.Sprintf("🚫 ещё %d ч. (нарушений: %d)", user.BanRemainingHours(now), user.ViolationCount)
		}

		msg := fmt.Sprintf("👤 *Профиль*\n\n"+
			"🔹 ID: `%d`\n"+
			"🔹 Глобальная активность: %s\n"+
			"🔹 Активность «Я тут»: %s\n"+
			"🔹 Блокировка: %s\n"+
			"🔹 Приглашено: %d",
			telegramID, globalStatus, heartbeatStatus, banStatus, user.ReferralCount)

		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(telegramID), msg).WithParseMode(telego.ModeMarkdown))
		_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
		return nil
	}, th.CallbackDataEqual("profile"))

	// Referral link
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		telegramID := callback.From.ID

		user, err := b.Users.GetByTelegramID(telegramID)
		if err != nil || user == nil {
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(telegramID), "❌ Сначала нажмите /start."))
			_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
			return nil
		}

		botUsername := "dpsmart_bot"
		if info, err := b.Instance.GetMe(ctx.Context()); err == nil {
			botUsername = info.Username
		}
		refLink := fmt.Sprintf("https://t.me/%s?start=%s", botUsername, user.ReferralCode)

		msg := fmt.Sprintf("🤝 *Приглашай друзей*\n\n"+
			"Каждый приглашённый продлевает твою глобальную активность на 30 дней.\n\n"+
			"👥 Приглашено: %d\n\n"+
			"🔗 *Твоя ссылка:*\n`%s`", user.ReferralCount, refLink)

		keyboard := tu.InlineKeyboard(
			tu.InlineKeyboardRow(
				tu.InlineKeyboardButton("« Назад").WithCallbackData("start_back"),
			),
		)
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(telegramID), msg).WithParseMode(telego.ModeMarkdown).WithReplyMarkup(keyboard))
		_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
		return nil
	}, th.CallbackDataEqual("invite"))

	// Back to main menu
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
			tu.ID(callback.From.ID),
			"Главное меню 👇",
		).WithReplyMarkup(mainKeyboard()))
		_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
		return nil
	}, th.CallbackDataEqual("start_back"))
}

// parseIDArg extracts a numeric argument from callback data like
// "board:123", returning the part after the prefix.
func parseIDArg(data, prefix string) (int64, bool) {
	raw := strings.TrimPrefix(data, prefix)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
