// Package store persiste o histórico de apostas. O modelo é um log append-only:
// lotes são anexados, nunca alterados, e a leitura é sempre um replay completo
// em ordem de chegada.
package store

import (
	"context"

	"github.com/radieske/lottery-central-poc/internal/lottery/bet"
)

// Store abstrai o backend de persistência para a lógica de protocolo não
// depender do formato em disco.
type Store interface {
	// Append anexa o lote de forma durável. Writers concorrentes não podem
	// intercalar registros parciais.
	Append(ctx context.Context, bets []bet.Bet) error
	// ScanAll percorre todo o histórico em ordem de append, chamando visit
	// para cada aposta. A varredura observa um snapshot consistente do início
	// da chamada; um erro de visit interrompe e é propagado.
	ScanAll(ctx context.Context, visit func(bet.Bet) error) error
}
