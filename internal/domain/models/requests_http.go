package models

// Requests for the pipeline HTTP endpoints. GET routes bind query parameters,
// batch routes bind a JSON body. Dates are YYYY-MM-DD; window 0 means the configured size.

type ForecastRequest struct {
	Ticker   string `query:"ticker" json:"ticker" validate:"required,ticker"`
	Start    string `query:"start" json:"start" validate:"required,date"`
	End      string `query:"end" json:"end" validate:"required,date"`
	Window   int    `query:"window" json:"window" validate:"gte=0,lte=365"`
	WithNews bool   `query:"with_news" json:"with_news"`
}

type BatchForecastRequest struct {
	Tickers  []string `json:"tickers" validate:"required,min=1,max=500,dive,required,ticker"`
	Start    string   `json:"start" validate:"required,date"`
	End      string   `json:"end" validate:"required,date"`
	Window   int      `json:"window" validate:"gte=0,lte=365"`
	WithNews bool     `json:"with_news"`
}

type TickerGuessRequest struct {
	Ticker string `query:"ticker" json:"ticker" validate:"required,ticker"`
	Start  string `query:"start" json:"start" validate:"required,date"`
	End    string `query:"end" json:"end" validate:"required,date"`
	Window int    `query:"window" json:"window" validate:"gte=0,lte=365"`
}

type BatchTickerGuessRequest struct {
	Tickers []string `json:"tickers" validate:"required,min=1,max=500,dive,required,ticker"`
	Start   string   `json:"start" validate:"required,date"`
	End     string   `json:"end" validate:"required,date"`
	Window  int      `json:"window" validate:"gte=0,lte=365"`
}

type SentimentRequest struct {
	Ticker string `query:"ticker" json:"ticker" validate:"required,ticker"`
	Start  string `query:"start" json:"start" validate:"required,date"`
	End    string `query:"end" json:"end" validate:"required,date"`
}

type BatchSentimentRequest struct {
	Tickers []string `json:"tickers" validate:"required,min=1,max=500,dive,required,ticker"`
	Start   string   `json:"start" validate:"required,date"`
	End     string   `json:"end" validate:"required,date"`
}

type EarningsRequest struct {
	Ticker  string `query:"ticker" json:"ticker" validate:"required,ticker"`
	Year    int    `query:"year" json:"year" validate:"required,gte=1990,lte=2100"`
	Quarter string `query:"quarter" json:"quarter" validate:"required,quarter"`
}

// BatchEarningsRequest runs every ticker with statements when Tickers is empty.
type BatchEarningsRequest struct {
	Tickers []string `json:"tickers" validate:"max=500,dive,required,ticker"`
	Year    int      `json:"year" validate:"required,gte=1990,lte=2100"`
	Quarter string   `json:"quarter" validate:"required,quarter"`
}

type StatsRequest struct {
	Ticker string `query:"ticker" json:"ticker" validate:"required,ticker"`
	Start  string `query:"start" json:"start" validate:"required,date"`
	End    string `query:"end" json:"end" validate:"required,date"`
}

// UniverseRequest leaves MinCount empty to use the configured minimum; "0" disables the filter.
type UniverseRequest struct {
	Start    string `query:"start" json:"start" validate:"omitempty,date"`
	End      string `query:"end" json:"end" validate:"omitempty,date"`
	MinCount string `query:"min_count" json:"min_count" validate:"omitempty,number"`
}

// JobRequest queues a pipeline run. Dates and tickers apply to every kind but earnings.
type JobRequest struct {
	ID         string   `json:"id" validate:"omitempty,max=64"`
	Kind       string   `json:"kind" validate:"required,oneof=forecast estimate sentiment earnings"`
	Tickers    []string `json:"tickers" validate:"max=500,dive,required,ticker"`
	Start      string   `json:"start" validate:"omitempty,date"`
	End        string   `json:"end" validate:"omitempty,date"`
	WindowSize int      `json:"window_size" validate:"gte=0,lte=365"`
	WithNews   bool     `json:"with_news"`
	Year       int      `json:"year" validate:"omitempty,gte=1990,lte=2100"`
	Quarter    string   `json:"quarter" validate:"omitempty,quarter"`
}
