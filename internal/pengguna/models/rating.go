package models

import "time"

type Rating struct {
	ID             int64     `json:"id"`
	ChatID         string    `json:"chatId"`
	ConsultationID string    `json:"consultationId"`
	RaterID        int64     `json:"raterId"`
	RatedID        int64     `json:"ratedId"`
	Score          int       `json:"rating"`
	Comment        string    `json:"comment"`
	CreatedAt      time.Time `json:"createdAt"`
}

type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
}

type DeviceToken struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Token     string    `json:"token"`
	Platform  string    `json:"platform"`
	UpdatedAt time.Time `json:"updatedAt"`
}
