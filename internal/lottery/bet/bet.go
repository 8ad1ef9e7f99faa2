package bet

import (
	"fmt"
	"strconv"
	"time"
)

// BirthdateLayout é o formato ISO exigido no campo de nascimento
const BirthdateLayout = "2006-01-02"

// Bet é o registro de uma aposta já validada.
// Construído uma única vez no decode; nunca é mutado nem removido do histórico.
type Bet struct {
	Agency    int
	FirstName string
	LastName  string
	Document  string
	Birthdate time.Time
	Number    int
}

// New valida campo a campo e monta a aposta
// Todos os campos textuais chegam como vieram do fio; número e agência em formato inteiro,
// nascimento em 'YYYY-MM-DD'. Qualquer campo vazio ou mal formado é erro, nunca zero-value.
func New(agency int, firstName, lastName, document, birthdate, number string) (Bet, error) {
	if firstName == "" || lastName == "" || document == "" || birthdate == "" || number == "" {
		return Bet{}, fmt.Errorf("missing fields")
	}

	bd, err := time.Parse(BirthdateLayout, birthdate)
	if err != nil {
		return Bet{}, fmt.Errorf("invalid birthdate %q: %w", birthdate, err)
	}

	n, err := strconv.Atoi(number)
	if err != nil {
		return Bet{}, fmt.Errorf("invalid number %q: %w", number, err)
	}

	return Bet{
		Agency:    agency,
		FirstName: firstName,
		LastName:  lastName,
		Document:  document,
		Birthdate: bd,
		Number:    n,
	}, nil
}

// HasWon verifica se a aposta acertou o número sorteado
func (b Bet) HasWon(winningNumber int) bool {
	return b.Number == winningNumber
}
