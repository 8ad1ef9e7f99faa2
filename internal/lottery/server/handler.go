package server

import (
	"context"
	"net"

	"go.uber.org/zap"

	"github.com/radieske/lottery-central-poc/internal/lottery/bet"
	"github.com/radieske/lottery-central-poc/internal/lottery/protocol"
	"github.com/radieske/lottery-central-poc/pkg/contracts/events"
)

// handleConnection é a máquina de estados por conexão: lê exatamente uma
// mensagem, despacha pelo byte de tipo, escreve exatamente uma resposta e
// fecha a conexão em todo caminho, inclusive nos de erro.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	buf := make([]byte, maxMessageSize)
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		// peer fechou ou falha de transporte: sem resposta possível
		s.Log.Error("mensaje_recibido", zap.String("result", "fail"), zap.Error(err))
		return
	}
	msg := buf[:n]

	switch msg[0] {
	case protocol.TagBetBatch:
		s.handleBetBatch(ctx, conn, msg[1:])
	case protocol.TagWinnerRequest:
		s.handleWinnerQuery(ctx, conn, msg[1:])
	default:
		s.Log.Error("mensaje_recibido",
			zap.String("result", "fail"),
			zap.String("error", "bad message type"),
		)
		s.write(conn, protocol.EncodeBadRequest())
	}
}

// handleBetBatch processa um lote de apostas. A barreira é atualizada antes do
// append: com contagem não nula a agência fica ativa antes de qualquer registro
// tocar o disco, então uma consulta de ganadores concorrente nunca observa a
// barreira vazia com apostas ainda em voo. O lote terminal (contagem zero) não
// carrega apostas, logo o MarkDone nunca antecede um append pendente.
func (s *Server) handleBetBatch(ctx context.Context, conn net.Conn, payload []byte) {
	batch, err := protocol.DecodeBatch(payload)
	if err != nil {
		s.Log.Error("mensaje_recibido", zap.String("result", "fail"), zap.Error(err))
		if s.OnBatchRejected != nil {
			s.OnBatchRejected()
		}
		s.write(conn, protocol.EncodeBadRequest())
		return
	}

	if batch.Done() {
		err = s.Registry.MarkDone(ctx, batch.Agency)
	} else {
		err = s.Registry.MarkActive(ctx, batch.Agency)
	}
	if err != nil {
		s.Log.Error("apuesta_recibida", zap.String("result", "fail"), zap.Error(err))
		return
	}

	if err := s.Store.Append(ctx, batch.Bets); err != nil {
		s.Log.Error("apuesta_recibida", zap.String("result", "fail"), zap.Error(err))
		return
	}

	if len(batch.Bets) == batch.Declared {
		s.Log.Info("apuesta_recibida",
			zap.String("result", "success"),
			zap.Int("cantidad", batch.Declared),
		)
	} else {
		// lote parcial: registros corrompidos foram descartados, os válidos
		// persistidos; o protocolo não tem reenvio, então a agência recebe OK
		s.Log.Error("apuesta_recibida",
			zap.String("result", "error"),
			zap.Int("cantidad", batch.Declared),
			zap.Int("decodificadas", len(batch.Bets)),
		)
	}
	if s.OnBetsStored != nil {
		s.OnBetsStored(len(batch.Bets))
	}

	s.publishStored(ctx, batch.Bets)
	s.write(conn, protocol.EncodeOK())
}

// handleWinnerQuery responde os documentos ganadores da agência solicitante.
// A barreira é reavaliada a cada consulta; antes de todas as agências
// terminarem a resposta é DRAW_IN_PROGRESS e o histórico nem é tocado.
func (s *Server) handleWinnerQuery(ctx context.Context, conn net.Conn, payload []byte) {
	agency, err := protocol.DecodeWinnerRequest(payload)
	if err != nil {
		s.Log.Error("mensaje_recibido", zap.String("result", "fail"), zap.Error(err))
		s.write(conn, protocol.EncodeBadRequest())
		return
	}

	ready, err := s.Registry.IsDrawReady(ctx)
	if err != nil {
		s.Log.Error("sorteo", zap.String("result", "fail"), zap.Error(err))
		return
	}
	if !ready {
		s.Log.Info("sorteo", zap.String("result", "in_progress"))
		if s.OnWinnerQuery != nil {
			s.OnWinnerQuery("in_progress")
		}
		s.write(conn, protocol.EncodeDrawInProgress())
		return
	}

	// sem cache entre consultas: o conjunto é pequeno e fixo, cada consulta
	// pronta faz seu próprio replay do histórico
	var winners []string
	err = s.Store.ScanAll(ctx, func(b bet.Bet) error {
		if b.HasWon(s.WinningNumber) && b.Agency == agency {
			winners = append(winners, b.Document)
		}
		return nil
	})
	if err != nil {
		s.Log.Error("sorteo", zap.String("result", "fail"), zap.Error(err))
		return
	}

	resp, err := protocol.EncodeWinners(winners)
	if err != nil {
		s.Log.Error("sorteo", zap.String("result", "fail"), zap.Error(err))
		return
	}

	s.Log.Info("sorteo",
		zap.String("result", "success"),
		zap.Int("cant_ganadores", len(winners)),
	)
	if s.OnWinnerQuery != nil {
		s.OnWinnerQuery("success")
	}
	s.write(conn, resp)
}

// publishStored emite um evento bet_received por aposta persistida; best-effort
func (s *Server) publishStored(ctx context.Context, bets []bet.Bet) {
	if s.Publisher == nil {
		return
	}
	for _, b := range bets {
		ev := events.BetReceived{
			Agency:    b.Agency,
			FirstName: b.FirstName,
			LastName:  b.LastName,
			Document:  b.Document,
			Birthdate: b.Birthdate.Format(bet.BirthdateLayout),
			Number:    b.Number,
		}
		if err := s.Publisher.PublishBetReceived(ctx, ev); err != nil {
			s.Log.Warn("bet_received publish failed", zap.Error(err))
			return
		}
	}
}

func (s *Server) write(conn net.Conn, resp []byte) {
	if _, err := conn.Write(resp); err != nil {
		s.Log.Error("respuesta", zap.String("result", "fail"), zap.Error(err))
	}
}
