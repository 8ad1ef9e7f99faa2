package protocol

import (
	"errors"
	"fmt"
)

// Respostas do servidor, byte a byte:
//
//	OK               'a' 0x00
//	BAD_REQUEST      'a' 0x01
//	DRAW_IN_PROGRESS 'W'
//	WINNERS          'w' + count(1) + count × ( doc_len(1) + document )
const (
	TagStatus         byte = 'a'
	TagDrawInProgress byte = 'W'
	TagWinners        byte = 'w'

	statusOK         byte = 0x00
	statusBadRequest byte = 0x01
)

func EncodeOK() []byte             { return []byte{TagStatus, statusOK} }
func EncodeBadRequest() []byte     { return []byte{TagStatus, statusBadRequest} }
func EncodeDrawInProgress() []byte { return []byte{TagDrawInProgress} }

// EncodeWinners serializa os documentos ganadores de uma agência.
// Contagem e comprimento de documento viajam em um byte cada; acima de 255
// não há representação no fio e a codificação falha.
func EncodeWinners(documents []string) ([]byte, error) {
	if len(documents) > 255 {
		return nil, fmt.Errorf("too many winners: %d", len(documents))
	}

	msg := []byte{TagWinners, uint8(len(documents))}
	for _, doc := range documents {
		if len(doc) > 255 {
			return nil, fmt.Errorf("document too long: %d bytes", len(doc))
		}
		msg = append(msg, uint8(len(doc)))
		msg = append(msg, doc...)
	}
	return msg, nil
}

// DecodeWinners decodifica o payload de uma resposta WINNERS (sem o byte de
// tipo), espelhando o lado cliente
func DecodeWinners(payload []byte) ([]string, error) {
	if len(payload) == 0 {
		return nil, errors.New("empty winners payload")
	}

	total := int(payload[0])
	documents := make([]string, 0, total)
	pos := 1
	for i := 0; i < total; i++ {
		if pos >= len(payload) {
			return nil, errors.New("missing length byte")
		}
		docLen := int(payload[pos])
		pos++
		if pos+docLen > len(payload) {
			return nil, errors.New("document runs past buffer")
		}
		documents = append(documents, string(payload[pos:pos+docLen]))
		pos += docLen
	}
	return documents, nil
}
