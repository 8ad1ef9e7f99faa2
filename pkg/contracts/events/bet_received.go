package events

type BetReceived struct {
	Agency    int    `json:"agency"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Document  string `json:"document"`
	Birthdate string `json:"birthdate"` // YYYY-MM-DD
	Number    int    `json:"number"`
	TsUnixMs  int64  `json:"ts_unix_ms"`
}
