package bot

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"dpsmart-bot/internal/models"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
)

// isAdmin: superadmins come from config, the rest from the DB roster.
func (b *Bot) isAdmin(tid int64) bool {
	if b.Cfg.IsSuperAdmin(tid) {
		return true
	}
	user, err := b.Users.GetByTelegramID(tid)
	if err != nil {
		log.Printf("Failed to check admin for %d: %v", tid, err)
		return false
	}
	return user != nil && user.IsAdmin
}

// commandArgs splits "/cmd a b" into ["a", "b"].
func commandArgs(text string) []string {
	parts := strings.Fields(text)
	if len(parts) <= 1 {
		return nil
	}
	return parts[1:]
}

func parseTID(arg string) (int64, bool) {
	tid, err := strconv.ParseInt(arg, 10, 64)
	return tid, err == nil
}

func (b *Bot) registerAdminHandlers(handler *th.BotHandler) {
	// /create_genesis <tid> <level> seeds a root board
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		if !b.isAdmin(message.From.ID) {
			return nil
		}

		args := commandArgs(message.Text)
		if len(args) != 2 {
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(message.Chat.ID), "Использование: /create_genesis <tid> <уровень>"))
			return nil
		}
		tid, ok1 := parseTID(args[0])
		level, err := strconv.Atoi(args[1])
		if !ok1 || err != nil || !models.ValidLevel(level) {
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(message.Chat.ID), "❌ Неверные аргументы."))
			return nil
		}

		user, err := b.Users.GetByTelegramID(tid)
		if err != nil || user == nil {
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(message.Chat.ID), "❌ Пользователь не найден."))
			return nil
		}

		brd, err := b.Boards.CreateGenesisBoard(level, tid)
		if err != nil {
			log.Printf("Failed to create genesis board: %v", err)
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(message.Chat.ID), "❌ Ошибка при создании доски."))
			return nil
		}

		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
			tu.ID(message.Chat.ID),
			fmt.Sprintf("✅ Корневая доска «%s» #%d создана, получатель %s.", brd.LevelName(), brd.ID, user.DisplayName()),
		))
		return nil
	}, th.CommandEqual("create_genesis"))

	// /stats [level]
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		if !b.isAdmin(message.From.ID) {
			return nil
		}

		from, to := models.MinLevel, models.MaxLevel
		if args := commandArgs(message.Text); len(args) == 1 {
			if level, err := strconv.Atoi(args[0]); err == nil && models.ValidLevel(level) {
				from, to = level, level
			}
		}

		var sb strings.Builder
		sb.WriteString("📊 *Доски по уровням*\n\n")
		for level := from; level <= to; level++ {
			stats, err := b.Boards.StatsForLevel(level)
			if err != nil {
				log.Printf("Failed to load stats for level %d: %v", level, err)
				continue
			}
			fmt.Fprintf(&sb, "%2d. %-10s активных: %d, закрытых: %d\n", level, stats.Name, stats.Active, stats.Closed)
		}
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(message.Chat.ID), sb.String()).WithParseMode(telego.ModeMarkdown))
		return nil
	}, th.CommandEqual("stats"))

	// /userinfo <tid>
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		if !b.isAdmin(message.From.ID) {
			return nil
		}

		args := commandArgs(message.Text)
		if len(args) != 1 {
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(message.Chat.ID), "Использование: /userinfo <tid>"))
			return nil
		}
		tid, ok := parseTID(args[0])
		if !ok {
			return nil
		}

		user, err := b.Users.GetByTelegramID(tid)
		if err != nil || user == nil {
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(message.Chat.ID), "❌ Пользователь не найден."))
			return nil
		}

		now := time.Now()
		mentor := "—"
		if user.MentorID != nil {
			mentor = strconv.FormatInt(*user.MentorID, 10)
		}
		boards, _ := b.Boards.UserBoards(tid, true)

		msg := fmt.Sprintf("👤 %s\n\n"+
			"ID: %d\nНаставник: %s\nРефералов: %d\n"+
			"Активен глобально: %v\nАктивен «Я тут»: %v\n"+
			"Бан: %v (нарушений %d)\nBlacklist: %v\nАдмин: %v\n"+
			"Активных досок: %d",
			user.DisplayName(), user.TelegramID, mentor, user.ReferralCount,
			user.IsGloballyActive(now), user.IsHeartbeatActive(now),
			user.IsBanned(now), user.ViolationCount, user.Blocked, user.IsAdmin,
			len(boards))
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(message.Chat.ID), msg))
		return nil
	}, th.CommandEqual("userinfo"))

	// /ban <tid>: manual escalating ban
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		if !b.isAdmin(message.From.ID) {
			return nil
		}
		args := commandArgs(message.Text)
		if len(args) != 1 {
			return nil
		}
		tid, ok := parseTID(args[0])
		if !ok {
			return nil
		}

		hours, err := b.Users.ApplyBan(tid)
		if err != nil {
			log.Printf("Failed to ban %d: %v", tid, err)
			return nil
		}
		if hours == 0 {
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(message.Chat.ID), "❌ Пользователь не найден."))
			return nil
		}
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(message.Chat.ID), fmt.Sprintf("🚫 Бан на %d ч. применён к %d.", hours, tid)))
		return nil
	}, th.CommandEqual("ban"))

	// /unban <tid>: indulgence, violation counter stays
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		if !b.isAdmin(message.From.ID) {
			return nil
		}
		args := commandArgs(message.Text)
		if len(args) != 1 {
			return nil
		}
		tid, ok := parseTID(args[0])
		if !ok {
			return nil
		}

		done, err := b.Users.ClearBan(tid)
		if err != nil {
			log.Printf("Failed to unban %d: %v", tid, err)
			return nil
		}
		msg := "❌ Пользователь не найден."
		if done {
			msg = fmt.Sprintf("✅ Бан снят с %d. Счётчик нарушений сохранён.", tid)
		}
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(message.Chat.ID), msg))
		return nil
	}, th.CommandEqual("unban"))

	// /block and /unblock: permanent blacklist
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		if !b.isAdmin(message.From.ID) {
			return nil
		}
		args := commandArgs(message.Text)
		if len(args) != 1 {
			return nil
		}
		tid, ok := parseTID(args[0])
		if !ok {
			return nil
		}

		done, err := b.Users.Block(tid)
		if err != nil {
			log.Printf("Failed to block %d: %v", tid, err)
			return nil
		}
		msg := "❌ Пользователь не найден."
		if done {
			msg = fmt.Sprintf("⛔ Пользователь %d в blacklist.", tid)
		}
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(message.Chat.ID), msg))
		return nil
	}, th.CommandEqual("block"))

	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		if !b.isAdmin(message.From.ID) {
			return nil
		}
		args := commandArgs(message.Text)
		if len(args) != 1 {
			return nil
		}
		tid, ok := parseTID(args[0])
		if !ok {
			return nil
		}

		done, err := b.Users.Unblock(tid)
		if err != nil {
			log.Printf("Failed to unblock %d: %v", tid, err)
			return nil
		}
		msg := "❌ Пользователь не найден."
		if done {
			msg = fmt.Sprintf("✅ Пользователь %d удалён из blacklist.", tid)
		}
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(message.Chat.ID), msg))
		return nil
	}, th.CommandEqual("unblock"))

	// /set_admin and /remove_admin: superadmin only
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		if !b.Cfg.IsSuperAdmin(message.From.ID) {
			return nil
		}
		args := commandArgs(message.Text)
		if len(args) != 1 {
			return nil
		}
		tid, ok := parseTID(args[0])
		if !ok {
			return nil
		}

		done, err := b.Users.SetAdmin(tid, true)
		if err != nil {
			log.Printf("Failed to set admin %d: %v", tid, err)
			return nil
		}
		msg := "❌ Пользователь не найден."
		if done {
			msg = fmt.Sprintf("✅ Пользователь %d назначен админом.", tid)
		}
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(message.Chat.ID), msg))
		return nil
	}, th.CommandEqual("set_admin"))

	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		if !b.Cfg.IsSuperAdmin(message.From.ID) {
			return nil
		}
		args := commandArgs(message.Text)
		if len(args) != 1 {
			return nil
		}
		tid, ok := parseTID(args[0])
		if !ok {
			return nil
		}

		done, err := b.Users.SetAdmin(tid, false)
		if err != nil {
			log.Printf("Failed to remove admin %d: %v", tid, err)
			return nil
		}
		msg := "❌ Пользователь не найден."
		if done {
			msg = fmt.Sprintf("✅ Пользователь %d больше не админ.", tid)
		}
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(message.Chat.ID), msg))
		return nil
	}, th.CommandEqual("remove_admin"))

	// /list_admins
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		if !b.isAdmin(message.From.ID) {
			return nil
		}

		admins, err := b.Users.ListAdmins()
		if err != nil {
			log.Printf("Failed to list admins: %v", err)
			return nil
		}

		var sb strings.Builder
		sb.WriteString("👑 Суперадмины:\n")
		for _, id := range b.Cfg.SuperAdminIDs {
			fmt.Fprintf(&sb, "  %d\n", id)
		}
		sb.WriteString("🛡 Админы:\n")
		if len(admins) == 0 {
			sb.WriteString("  —\n")
		}
		for _, a := range admins {
			fmt.Fprintf(&sb, "  %d %s\n", a.TelegramID, a.DisplayName())
		}
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(message.Chat.ID), sb.String()))
		return nil
	}, th.CommandEqual("list_admins"))

	// /admin_help
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		if !b.isAdmin(message.From.ID) {
			return nil
		}
		msg := "🛠 Команды администратора:\n\n" +
			"/create_genesis <tid> <уровень> — корневая доска\n" +
			"/stats [уровень] — статистика досок\n" +
			"/userinfo <tid> — данные пользователя\n" +
			"/ban <tid>, /unban <tid> — временный бан\n" +
			"/block <tid>, /unblock <tid> — blacklist\n" +
			"/set_admin <tid>, /remove_admin <tid>\n" +
			"/list_admins"
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(message.Chat.ID), msg))
		return nil
	}, th.CommandEqual("admin_help"))
}
