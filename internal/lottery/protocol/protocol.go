// Package protocol implementa o codec binário trocado com as agências.
//
// Toda mensagem cabe em um único send e começa com um byte de tipo:
//
//	'b'  lote de apostas:  agency_len(1) + agency + bet_count(1) +
//	     bet_count × ( bet_len(1) + 5 campos length-prefixed:
//	     first_name, last_name, document, birthdate, number )
//	'w'  consulta de ganadores:  agency_len(1) + agency
//
// bet_count == 0 sinaliza que a agência terminou de enviar apostas.
package protocol

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/radieske/lottery-central-poc/internal/lottery/bet"
)

// Tipos de mensagem (primeiro byte no fio)
const (
	TagBetBatch      byte = 'b'
	TagWinnerRequest byte = 'w'
)

var (
	// ErrMalformedBatch indica erro de framing: o lote inteiro é descartado
	ErrMalformedBatch = errors.New("malformed batch")
	// ErrMalformedBet indica um registro inválido dentro de um envelope válido:
	// só aquele registro é descartado
	ErrMalformedBet = errors.New("malformed bet")
)

// Batch é o resultado de decodificar um lote.
// Declared carrega a quantidade anunciada no fio; len(Bets) pode ser menor
// quando registros individuais vieram corrompidos.
type Batch struct {
	Agency   int
	Declared int
	Bets     []bet.Bet
}

// Done informa se o lote é o sinal terminal da agência (bet_count == 0)
func (b Batch) Done() bool { return b.Declared == 0 }

// DecodeBatch decodifica o corpo de um lote (payload já sem o byte de tipo).
// Erros de framing (comprimento anunciado além do buffer, cabeçalho ausente,
// agência não numérica) retornam ErrMalformedBatch. Um registro com corpo
// inválido é pulado; o chamador detecta pelo Declared != len(Bets).
func DecodeBatch(payload []byte) (Batch, error) {
	agency, pos, err := readAgency(payload)
	if err != nil {
		return Batch{}, err
	}

	if pos >= len(payload) {
		return Batch{}, fmt.Errorf("%w: missing bet count", ErrMalformedBatch)
	}
	count := int(payload[pos])
	pos++

	out := Batch{Agency: agency, Declared: count}
	for i := 0; i < count; i++ {
		if pos >= len(payload) {
			return Batch{}, fmt.Errorf("%w: missing length of bet %d", ErrMalformedBatch, i)
		}
		betLen := int(payload[pos])
		pos++
		if pos+betLen > len(payload) {
			return Batch{}, fmt.Errorf("%w: bet %d runs past buffer", ErrMalformedBatch, i)
		}

		b, err := decodeBetBody(agency, payload[pos:pos+betLen])
		pos += betLen
		if err != nil {
			// registro corrompido dentro de envelope válido: pula e segue
			continue
		}
		out.Bets = append(out.Bets, b)
	}
	return out, nil
}

// DecodeWinnerRequest decodifica o corpo de uma consulta de ganadores
func DecodeWinnerRequest(payload []byte) (int, error) {
	agency, _, err := readAgency(payload)
	return agency, err
}

// readAgency lê o cabeçalho agency_len + agency e converte o id para inteiro
func readAgency(payload []byte) (agency int, pos int, err error) {
	if len(payload) == 0 {
		return 0, 0, fmt.Errorf("%w: empty payload", ErrMalformedBatch)
	}
	agencyLen := int(payload[0])
	if agencyLen == 0 || 1+agencyLen > len(payload) {
		return 0, 0, fmt.Errorf("%w: bad agency header", ErrMalformedBatch)
	}
	agency, convErr := strconv.Atoi(string(payload[1 : 1+agencyLen]))
	if convErr != nil {
		return 0, 0, fmt.Errorf("%w: non numeric agency id", ErrMalformedBatch)
	}
	return agency, 1 + agencyLen, nil
}

// decodeBetBody decodifica os 5 campos length-prefixed de um registro
func decodeBetBody(agency int, body []byte) (bet.Bet, error) {
	fields := make([]string, 0, 5)
	pos := 0
	for i := 0; i < 5; i++ {
		if pos >= len(body) {
			return bet.Bet{}, fmt.Errorf("%w: missing field %d", ErrMalformedBet, i)
		}
		fieldLen := int(body[pos])
		pos++
		if pos+fieldLen > len(body) {
			return bet.Bet{}, fmt.Errorf("%w: field %d runs past record", ErrMalformedBet, i)
		}
		fields = append(fields, string(body[pos:pos+fieldLen]))
		pos += fieldLen
	}

	b, err := bet.New(agency, fields[0], fields[1], fields[2], fields[3], fields[4])
	if err != nil {
		return bet.Bet{}, fmt.Errorf("%w: %v", ErrMalformedBet, err)
	}
	return b, nil
}

// EncodeBatch monta a mensagem completa de um lote, espelhando o cliente das
// agências. Um slice vazio produz o lote terminal (bet_count == 0).
func EncodeBatch(agency int, bets []bet.Bet) []byte {
	msg := appendAgency([]byte{TagBetBatch}, agency)
	msg = append(msg, uint8(len(bets)))
	for _, b := range bets {
		record := EncodeBetRecord(b)
		msg = append(msg, uint8(len(record)))
		msg = append(msg, record...)
	}
	return msg
}

// EncodeBetRecord serializa os 5 campos de um registro, cada um length-prefixed
func EncodeBetRecord(b bet.Bet) []byte {
	var record []byte
	for _, field := range []string{
		b.FirstName,
		b.LastName,
		b.Document,
		b.Birthdate.Format(bet.BirthdateLayout),
		strconv.Itoa(b.Number),
	} {
		record = append(record, uint8(len(field)))
		record = append(record, field...)
	}
	return record
}

// EncodeWinnerRequest monta a mensagem de consulta de ganadores
func EncodeWinnerRequest(agency int) []byte {
	return appendAgency([]byte{TagWinnerRequest}, agency)
}

func appendAgency(msg []byte, agency int) []byte {
	id := strconv.Itoa(agency)
	msg = append(msg, uint8(len(id)))
	return append(msg, id...)
}
