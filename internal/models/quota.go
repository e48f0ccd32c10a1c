package models

// QuotaRecord tracks how many images an identity submitted on Day (YYYY-MM-DD, UTC).
type QuotaRecord struct {
	Identity string `json:"identity"`
	Count    int    `json:"count"`
	Day      string `json:"day"`
}

type UsageResponse struct {
	Identity   string `json:"identity"`
	Day        string `json:"day"`
	Used       int    `json:"used"`
	Remaining  int    `json:"remaining"`
	DailyLimit int    `json:"daily_limit"`
	Privileged bool   `json:"privileged"`
}
