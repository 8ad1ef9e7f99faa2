package topics

const (
	// Bets
	BetReceived = "bet_received"
)
