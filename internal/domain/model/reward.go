package model

import "time"

// Reward — позиция каталога вознаграждений. 100 баллов = 1 EUR.
type Reward struct {
	ID             string
	Name           string
	Partners       *string
	Services       *string
	ValueEUR       float64
	PointsRequired int
}

// RewardClaim — факт обмена баллов на вознаграждение.
type RewardClaim struct {
	ID         string
	UserID     string
	RewardID   string
	RewardName string
	ClaimedAt  time.Time
}
