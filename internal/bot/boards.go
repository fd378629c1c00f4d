package bot

import (
	"fmt"
	"log"
	"strings"

	"dpsmart-bot/internal/board"
	"dpsmart-bot/internal/models"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
)

var positionNames = map[models.Position]string{
	models.PosReceiver:     "🎁 Получатель",
	models.PosCreatorLeft:  "⭐ Создатель (Л)",
	models.PosCreatorRight: "⭐ Создатель (П)",
	models.PosBuilderL1:    "🔨 Строитель 1",
	models.PosBuilderL2:    "🔨 Строитель 2",
	models.PosBuilderR3:    "🔨 Строитель 3",
	models.PosBuilderR4:    "🔨 Строитель 4",
	models.PosDonorL1:      "🎀 Даритель 1",
	models.PosDonorL2:      "🎀 Даритель 2",
	models.PosDonorL3:      "🎀 Даритель 3",
	models.PosDonorL4:      "🎀 Даритель 4",
	models.PosDonorR5:      "🎀 Даритель 5",
	models.PosDonorR6:      "🎀 Даритель 6",
	models.PosDonorR7:      "🎀 Даритель 7",
	models.PosDonorR8:      "🎀 Даритель 8",
}

func reasonText(r board.Reason) string {
	switch r {
	case board.ReasonUserNotFound:
		return "❌ Вы не зарегистрированы. Нажмите /start."
	case board.ReasonUserBlocked:
		return "🚫 Вы заблокированы и не можете участвовать."
	case board.ReasonAlreadyOnLevel:
		return "⚠️ Вы уже занимаете место на доске этого уровня."
	case board.ReasonBoardNotFound:
		return "❌ Доска не найдена."
	case board.ReasonBoardClosed:
		return "🔒 Доска уже закрыта."
	case board.ReasonAlreadyOnBoard:
		return "⚠️ Вы уже на этой доске."
	case board.ReasonNoSlots:
		return "😔 На этой доске не осталось мест."
	case board.ReasonNoBoards:
		return "😔 Свободных досок на этом уровне пока нет. Попробуйте позже."
	case board.ReasonNotADonor:
		return "❌ Вы не даритель на этой доске."
	case board.ReasonAlreadyPaid:
		return "⚠️ Подарок уже подтверждён, покинуть доску нельзя."
	case board.ReasonAlreadyConfirmed:
		return "⚠️ Этот подарок уже подтверждён."
	case board.ReasonNotSplitReady:
		return "⚠️ Сторона ещё не готова к разделению."
	case board.ReasonInvalidLevel:
		return "❌ Неверный уровень."
	default:
		return "❌ Операция отклонена: " + string(r)
	}
}

func levelsKeyboard() *telego.InlineKeyboardMarkup {
	rows := make([][]telego.InlineKeyboardButton, 0, 7)
	for level := models.MinLevel; level <= models.MaxLevel; level += 2 {
		row := []telego.InlineKeyboardButton{
			tu.InlineKeyboardButton(fmt.Sprintf("%s (%d)", models.LevelName(level), models.GiftAmount(level))).
				WithCallbackData(fmt.Sprintf("level:%d", level)),
		}
		if level+1 <= models.MaxLevel {
			row = append(row, tu.InlineKeyboardButton(fmt.Sprintf("%s (%d)", models.LevelName(level+1), models.GiftAmount(level+1))).
				WithCallbackData(fmt.Sprintf("level:%d", level+1)))
		}
		rows = append(rows, row)
	}
	rows = append(rows, []telego.InlineKeyboardButton{
		tu.InlineKeyboardButton("« Назад").WithCallbackData("start_back"),
	})
	return &telego.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// renderBoard builds the plain-text projection of one board.
func (b *Bot) renderBoard(brd *models.Board, viewerTID int64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🎯 Доска «%s» #%d\n", brd.LevelName(), brd.ID)
	fmt.Fprintf(&sb, "💰 Подарок: %d USDT\n", brd.GiftAmount())
	fmt.Fprintf(&sb, "📦 Подарков получено: %d/8\n", brd.GiftsReceived)

	status := "⏳ Ожидание"
	switch brd.Status {
	case models.StatusActive:
		status = "🔥 Активна"
	case models.StatusClosed:
		status = "🔒 Закрыта"
	}
	fmt.Fprintf(&sb, "📌 Статус: %s\n\n", status)

	for _, pos := range models.AllPositions {
		occ := brd.Occupant(pos)
		line := "— свободно"
		if occ != nil {
			name := fmt.Sprintf("%d", *occ)
			if u, err := b.Users.GetByTelegramID(*occ); err == nil && u != nil {
				name = u.DisplayName()
			}
			if *occ == viewerTID {
				name += " (вы)"
			}
			line = name
			if pos.IsDonor() {
				if brd.DonorPaid(pos) {
					line += " ✅"
				} else if dl := brd.DonorDeadline(pos); dl != nil {
					line += fmt.Sprintf(" ⏳ до %s", dl.Format("02.01 15:04"))
				}
			}
		}
		fmt.Fprintf(&sb, "%s: %s\n", positionNames[pos], line)
	}
	return sb.String()
}

func (b *Bot) boardKeyboard(brd *models.Board, viewerTID int64) *telego.InlineKeyboardMarkup {
	var rows [][]telego.InlineKeyboardButton

	if pos, ok := brd.DonorPosition(viewerTID); ok && !brd.DonorPaid(pos) {
		rows = append(rows, []telego.InlineKeyboardButton{
			tu.InlineKeyboardButton("✅ Я подарил(а)").WithCallbackData(fmt.Sprintf("confirm:%d", brd.ID)),
			tu.InlineKeyboardButton("🚪 Покинуть").WithCallbackData(fmt.Sprintf("leave:%d", brd.ID)),
		})
	}
	if brd.Rec != nil && *brd.Rec == viewerTID {
		var splitRow []telego.InlineKeyboardButton
		if brd.CanSplit(models.SideLeft) {
			splitRow = append(splitRow, tu.InlineKeyboardButton("✂️ Разделить левую").WithCallbackData(fmt.Sprintf("split:%d:left", brd.ID)))
		}
		if brd.CanSplit(models.SideRight) {
			splitRow = append(splitRow, tu.InlineKeyboardButton("✂️ Разделить правую").WithCallbackData(fmt.Sprintf("split:%d:right", brd.ID)))
		}
		if len(splitRow) > 0 {
			rows = append(rows, splitRow)
		}
	}
	rows = append(rows, []telego.InlineKeyboardButton{
		tu.InlineKeyboardButton("🔄 Обновить").WithCallbackData(fmt.Sprintf("board:%d", brd.ID)),
		tu.InlineKeyboardButton("« Меню").WithCallbackData("start_back"),
	})
	return &telego.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func (b *Bot) registerBoardHandlers(handler *th.BotHandler) {
	// Level menu
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
			tu.ID(callback.From.ID),
			"🎁 Выберите уровень доски:",
		).WithReplyMarkup(levelsKeyboard()))
		_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
		return nil
	}, th.CallbackDataEqual("levels"))

	// Level info
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		telegramID := callback.From.ID

		level64, ok := parseIDArg(callback.Data, "level:")
		if !ok {
			_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
			return nil
		}
		level := int(level64)

		stats, err := b.Boards.StatsForLevel(level)
		if err != nil {
			log.Printf("Failed to load stats for level %d: %v", level, err)
		}

		msg := fmt.Sprintf("💎 Уровень «%s»\n\n💰 Подарок: %d USDT\n📊 Активных досок: %d\n🔒 Закрытых досок: %d",
			models.LevelName(level), models.GiftAmount(level), stats.Active, stats.Closed)

		keyboard := tu.InlineKeyboard(
			tu.InlineKeyboardRow(
				tu.InlineKeyboardButton("🎀 Сесть на доску").WithCallbackData(fmt.Sprintf("join:%d", level)),
			),
			tu.InlineKeyboardRow(
				tu.InlineKeyboardButton("« К уровням").WithCallbackData("levels"),
			),
		)
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(telegramID), msg).WithReplyMarkup(keyboard))
		_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
		return nil
	}, th.CallbackDataPrefix("level:"))

	// Join: placement then claim, one retry when the claim loses a race
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		telegramID := callback.From.ID

		level64, ok := parseIDArg(callback.Data, "join:")
		if !ok {
			_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
			return nil
		}
		level := int(level64)

		msg := b.joinLevel(telegramID, level)
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(telegramID), msg))
		_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
		return nil
	}, th.CallbackDataPrefix("join:"))

	// My boards
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		telegramID := callback.From.ID

		boards, err := b.Boards.UserBoards(telegramID, true)
		if err != nil {
			log.Printf("Failed to list boards for %d: %v", telegramID, err)
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(telegramID), "❌ Ошибка, попробуйте позже."))
			_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
			return nil
		}
		if len(boards) == 0 {
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(telegramID), "📋 Вы пока не на досках. Выберите уровень в меню «Доски»."))
			_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
			return nil
		}

		rows := make([][]telego.InlineKeyboardButton, 0, len(boards)+1)
		for _, brd := range boards {
			label := fmt.Sprintf("«%s» #%d — %d/8", brd.LevelName(), brd.ID, brd.GiftsReceived)
			if pos, ok := brd.UserPosition(telegramID); ok {
				label += " — " + positionNames[pos]
			}
			rows = append(rows, []telego.InlineKeyboardButton{
				tu.InlineKeyboardButton(label).WithCallbackData(fmt.Sprintf("board:%d", brd.ID)),
			})
		}
		rows = append(rows, []telego.InlineKeyboardButton{
			tu.InlineKeyboardButton("« Меню").WithCallbackData("start_back"),
		})
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
			tu.ID(telegramID), "📋 Ваши доски:",
		).WithReplyMarkup(&telego.InlineKeyboardMarkup{InlineKeyboard: rows}))
		_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
		return nil
	}, th.CallbackDataEqual("myboards"))

	// Board detail
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		telegramID := callback.From.ID

		boardID, ok := parseIDArg(callback.Data, "board:")
		if !ok {
			_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
			return nil
		}

		brd, err := b.Boards.GetByID(uint(boardID))
		if err != nil {
			log.Printf("Failed to load board %d: %v", boardID, err)
		}
		if brd == nil {
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(telegramID), reasonText(board.ReasonBoardNotFound)))
			_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
			return nil
		}

		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
			tu.ID(telegramID), b.renderBoard(brd, telegramID),
		).WithReplyMarkup(b.boardKeyboard(brd, telegramID)))
		_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
		return nil
	}, th.CallbackDataPrefix("board:"))

	// Confirm payment
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		telegramID := callback.From.ID

		boardID, ok := parseIDArg(callback.Data, "confirm:")
		if !ok {
			_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
			return nil
		}

		gifts, readySide, reason, err := b.Boards.ConfirmPayment(uint(boardID), telegramID)
		var msg string
		switch {
		case err == board.ErrConflict:
			msg = "⚠️ Доска изменилась, попробуйте ещё раз."
		case err != nil:
			log.Printf("Failed to confirm payment on board %d by %d: %v", boardID, telegramID, err)
			msg = "❌ Ошибка, попробуйте позже."
		case reason != board.ReasonOK:
			msg = reasonText(reason)
		default:
			msg = fmt.Sprintf("✅ Подарок подтверждён! На доске %d/8 подарков.", gifts)
			if readySide != "" {
				msg += "\n✂️ Сторона готова к разделению — получатель может разделить доску."
				if brd, err := b.Boards.GetByID(uint(boardID)); err == nil && brd != nil && brd.Rec != nil {
					_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
						tu.ID(*brd.Rec),
						fmt.Sprintf("✂️ Доска #%d: сторона готова к разделению!", brd.ID),
					))
				}
			}
		}
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(telegramID), msg))
		_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
		return nil
	}, th.CallbackDataPrefix("confirm:"))

	// Leave board (unpaid donors only)
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		telegramID := callback.From.ID

		boardID, ok := parseIDArg(callback.Data, "leave:")
		if !ok {
			_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
			return nil
		}

		reason, err := b.Boards.ReleaseSlot(uint(boardID), telegramID)
		var msg string
		switch {
		case err == board.ErrConflict:
			msg = "⚠️ Доска изменилась, попробуйте ещё раз."
		case err != nil:
			log.Printf("Failed to release slot on board %d by %d: %v", boardID, telegramID, err)
			msg = "❌ Ошибка, попробуйте позже."
		case reason != board.ReasonOK:
			msg = reasonText(reason)
		default:
			msg = "🚪 Вы покинули доску. Место освобождено."
		}
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(telegramID), msg))
		_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
		return nil
	}, th.CallbackDataPrefix("leave:"))

	// Split, receiver only
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		telegramID := callback.From.ID

		parts := strings.Split(callback.Data, ":")
		if len(parts) != 3 {
			_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
			return nil
		}
		boardID, ok := parseIDArg("id:"+parts[1], "id:")
		if !ok {
			_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
			return nil
		}
		side := models.Side(parts[2])

		brd, err := b.Boards.GetByID(uint(boardID))
		if err != nil || brd == nil || brd.Rec == nil || *brd.Rec != telegramID {
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(telegramID), "🚫 Разделить доску может только получатель."))
			_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
			return nil
		}

		child, reason, err := b.Boards.Split(uint(boardID), side)
		var msg string
		switch {
		case err == board.ErrConflict:
			msg = "⚠️ Доска изменилась, попробуйте ещё раз."
		case err != nil:
			log.Printf("Failed to split board %d/%s: %v", boardID, side, err)
			msg = "❌ Ошибка, попробуйте позже."
		case reason != board.ReasonOK:
			msg = reasonText(reason)
		default:
			msg = fmt.Sprintf("✂️ Доска разделена! Новая доска #%d создана.", child.ID)
			if child.Rec != nil {
				_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
					tu.ID(*child.Rec),
					fmt.Sprintf("🎉 Поздравляем! Вы теперь получатель на новой доске «%s» #%d!", child.LevelName(), child.ID),
				))
			}
		}
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(telegramID), msg))
		_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
		return nil
	}, th.CallbackDataPrefix("split:"))
}

// joinLevel does placement, then claim, re-querying once when the claim
// loses a race for the last slot.
func (b *Bot) joinLevel(telegramID int64, level int) string {
	for attempt := 0; attempt < 2; attempt++ {
		brd, placement, err := b.Boards.FindBoard(telegramID, level)
		if err != nil {
			log.Printf("Failed to find board for %d at level %d: %v", telegramID, level, err)
			return "❌ Ошибка, попробуйте позже."
		}
		if brd == nil {
			return reasonText(placement.Reason)
		}

		pos, reason, err := b.Boards.ClaimSlot(brd.ID, telegramID)
		if err == board.ErrConflict {
			continue
		}
		if err != nil {
			log.Printf("Failed to claim slot on board %d for %d: %v", brd.ID, telegramID, err)
			return "❌ Ошибка, попробуйте позже."
		}
		if reason != board.ReasonOK {
			// The board filled or the user state changed between the
			// placement read and the claim; one re-query covers it.
			if reason == board.ReasonNoSlots || reason == board.ReasonBoardClosed {
				continue
			}
			return reasonText(reason)
		}

		via := "по глобальному переливу"
		if placement.Reason == board.ReasonMentorBoard {
			via = fmt.Sprintf("по цепочке наставников (глубина %d)", placement.Depth)
		}
		return fmt.Sprintf("🎉 Вы на доске «%s» #%d!\n\nМесто: %s (%s)\n⏳ На подарок %d USDT отводится 72 часа.",
			models.LevelName(level), brd.ID, positionNames[pos], via, models.GiftAmount(level))
	}
	return "😔 Не удалось занять место — доска заполнилась. Попробуйте ещё раз."
}
