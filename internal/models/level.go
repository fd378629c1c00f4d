package models

import "time"

// LevelInfo describes one rung of the 13-level gift ladder.
type LevelInfo struct {
	Name   string
	Amount int // gift amount in USDT
}

const (
	MinLevel = 1
	MaxLevel = 13
)

// Levels is the fixed ladder. Amounts double at every level.
var Levels = map[int]LevelInfo{
	1:  {Name: "Start", Amount: 10},
	2:  {Name: "Tin", Amount: 20},
	3:  {Name: "Bronze", Amount: 40},
	4:  {Name: "Copper", Amount: 80},
	5:  {Name: "Silver", Amount: 160},
	6:  {Name: "Amber", Amount: 320},
	7:  {Name: "Gold", Amount: 640},
	8:  {Name: "Ruby", Amount: 1280},
	9:  {Name: "Platinum", Amount: 2560},
	10: {Name: "Emerald", Amount: 5120},
	11: {Name: "Brilliant", Amount: 10240},
	12: {Name: "Sapphire", Amount: 20480},
	13: {Name: "Titan", Amount: 40960},
}

// PaymentTimeout is how long a donor has to deliver the gift after
// claiming a slot.
const PaymentTimeout = 72 * time.Hour

func ValidLevel(level int) bool {
	return level >= MinLevel && level <= MaxLevel
}

func LevelName(level int) string {
	if info, ok := Levels[level]; ok {
		return info.Name
	}
	return "Unknown"
}

func GiftAmount(level int) int {
	if info, ok := Levels[level]; ok {
		return info.Amount
	}
	return 0
}
