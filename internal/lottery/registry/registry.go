// Package registry implementa a barreira de prontidão do sorteio: o conjunto
// de agências que ainda têm envios pendentes. O sorteio só responde ganadores
// quando o conjunto está vazio.
package registry

import "context"

// Registry é o único ponto de coordenação entre conexões concorrentes.
// Cada operação é atômica em relação às demais; a barreira é level-triggered:
// IsDrawReady é reavaliado a cada consulta, nunca cacheado.
type Registry interface {
	// MarkActive registra a agência como pendente; idempotente
	MarkActive(ctx context.Context, agency int) error
	// MarkDone remove a agência; idempotente, sem erro se ausente
	MarkDone(ctx context.Context, agency int) error
	// IsDrawReady informa se nenhuma agência está pendente no instante da chamada
	IsDrawReady(ctx context.Context) (bool, error)
}
