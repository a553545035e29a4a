package models

// Query parameters of the dashboard API.

type EquitiesRequest struct {
	Ticker string `query:"ticker" json:"ticker" validate:"omitempty,max=12"`
}

type NewsRequest struct {
	Categories string `query:"categories" json:"categories" validate:"omitempty,category"`
	Limit      int    `query:"limit" json:"limit" default:"10" validate:"min=5,max=20"`
}
