package models

import "time"

type Car struct {
	ID         int64     `yaml:"id" json:"id"`
	Name       string    `yaml:"name" json:"name"`
	Model      string    `yaml:"model" json:"model"`
	Seats      int64     `yaml:"seats" json:"seats"`
	HourlyRate float64   `yaml:"hourly_rate" json:"hourly_rate"`
	DailyRate  float64   `yaml:"daily_rate" json:"daily_rate"`
	Available  bool      `yaml:"available" json:"available"`
	CreatedAt  time.Time `yaml:"-" json:"created_at"`
	UpdatedAt  time.Time `yaml:"-" json:"updated_at"`
}

type Location struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
