package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"dpsmart-bot/internal/board"
	"dpsmart-bot/internal/models"
	"dpsmart-bot/internal/users"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/redis/go-redis/v9"
)

// reminder window before a payment deadline
const reminderLead = 12 * time.Hour

// Checker is the time-driven side of the engine: it sweeps active
// boards, reminds donors whose deadline is near and evicts the ones
// whose deadline passed unpaid.
type Checker struct {
	Redis    *redis.Client
	Bot      *telego.Bot
	Boards   *board.Service
	Users    *users.Service
	Interval time.Duration
}

func NewChecker(rdb *redis.Client, bot *telego.Bot, boards *board.Service, userService *users.Service, interval time.Duration) *Checker {
	return &Checker{
		Redis:    rdb,
		Bot:      bot,
		Boards:   boards,
		Users:    userService,
		Interval: interval,
	}
}

func (c *Checker) Start() {
	ticker := time.NewTicker(c.Interval)
	log.Println("Background deadline worker started")

	// Run once at start
	c.sweep()

	for range ticker.C {
		c.sweep()
	}
}

// sweep is idempotent: evicted slots are gone on the next pass and
// reminders are deduplicated through redis.
func (c *Checker) sweep() {
	ctx := context.Background()

	ids, err := c.Boards.ActiveBoardIDs()
	if err != nil {
		log.Printf("Error listing active boards: %v", err)
		return
	}

	for _, id := range ids {
		c.remindBoard(ctx, id)
		c.evictBoard(id)
	}
}

func (c *Checker) remindBoard(ctx context.Context, boardID uint) {
	b, err := c.Boards.GetByID(boardID)
	if err != nil {
		log.Printf("Error loading board %d: %v", boardID, err)
		return
	}
	if b == nil || b.IsClosed() {
		return
	}

	now := time.Now()
	for _, pos := range models.DonorPositions {
		occ := b.Occupant(pos)
		deadline := b.DonorDeadline(pos)
		if occ == nil || deadline == nil || b.DonorPaid(pos) {
			continue
		}
		remaining := deadline.Sub(now)
		if remaining <= 0 || remaining > reminderLead {
			continue
		}

		key := fmt.Sprintf("deadline_reminder_%d_%s_%d", boardID, pos, *occ)
		exists, _ := c.Redis.Exists(ctx, key).Result()
		if exists != 0 {
			continue
		}

		msg := fmt.Sprintf(
			"⏳ Осталось %d ч. на подарок %d USDT (доска «%s» #%d). После дедлайна место освобождается и начисляется блокировка.",
			int(remaining/time.Hour), b.GiftAmount(), b.LevelName(), b.ID,
		)
		_, err := c.Bot.SendMessage(ctx, tu.Message(tu.ID(*occ), msg))
		if err == nil {
			c.Redis.Set(ctx, key, "true", reminderLead*2)
			log.Printf("Sent deadline reminder to user %d (board %d slot %s)", *occ, boardID, pos)
		} else {
			log.Printf("Failed to send deadline reminder to %d: %v", *occ, err)
		}
	}
}

func (c *Checker) evictBoard(boardID uint) {
	ctx := context.Background()

	expired, err := c.Boards.ExpiredDonors(boardID)
	if err != nil {
		log.Printf("Error listing expired donors on board %d: %v", boardID, err)
		return
	}

	for _, exp := range expired {
		evicted, hours, err := c.Boards.EvictDonor(boardID, exp.Position, true)
		if err != nil {
			log.Printf("Failed to evict donor %d from board %d: %v", exp.TelegramID, boardID, err)
			continue
		}
		if evicted == 0 {
			// Paid or left between the scan and the eviction.
			continue
		}
		log.Printf("Evicted donor %d from board %d slot %s, ban %dh", evicted, boardID, exp.Position, hours)

		_, err = c.Bot.SendMessage(ctx, tu.Message(
			tu.ID(evicted),
			fmt.Sprintf("❌ Время на подарок истекло. Место на доске #%d освобождено, блокировка на %d ч.", boardID, hours),
		))
		if err != nil {
			log.Printf("Failed to notify evicted user %d: %v", evicted, err)
		}

		if b, err := c.Boards.GetByID(boardID); err == nil && b != nil && b.Rec != nil {
			_, err = c.Bot.SendMessage(ctx, tu.Message(
				tu.ID(*b.Rec),
				fmt.Sprintf("ℹ️ На вашей доске #%d освободилось место дарителя.", boardID),
			))
			if err != nil {
				log.Printf("Failed to notify receiver of board %d: %v", boardID, err)
			}
		}
	}
}
