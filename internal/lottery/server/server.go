// Package server implementa o núcleo TCP da central de lotería: um acceptor
// que despacha cada conexão para uma goroutine de vida curta (uma mensagem,
// uma resposta, close).
package server

import (
	"context"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/radieske/lottery-central-poc/internal/lottery/registry"
	"github.com/radieske/lottery-central-poc/internal/lottery/store"
	"github.com/radieske/lottery-central-poc/pkg/contracts/events"
)

// Uma mensagem inteira precisa caber em um único read; lotes maiores que o
// buffer não são remontados (limitação herdada do protocolo das agências).
const maxMessageSize = 8192

// Publisher emite eventos de aposta persistida; opcional
type Publisher interface {
	PublishBetReceived(ctx context.Context, e events.BetReceived) error
}

// Server atende as agências de lotería. Handlers de conexão rodam em paralelo
// e só se coordenam pelo Registry (barreira do sorteio) e pelo Store (log de
// apostas); fora isso são totalmente isolados, erro em uma conexão nunca
// afeta outra.
//
// Callbacks OnXxx alimentam métricas e podem ser nil.
type Server struct {
	Log           *zap.Logger
	Registry      registry.Registry
	Store         store.Store
	Publisher     Publisher // pode ser nil
	WinningNumber int

	OnAccepted      func()
	OnBetsStored    func(int)
	OnBatchRejected func()
	OnWinnerQuery   func(result string)

	ln net.Listener
	wg sync.WaitGroup
}

// Listen cria o socket de escuta. Falha aqui é fatal para o processo; todo
// erro posterior é local a uma conexão.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.ln = ln
	return nil
}

// Addr expõe o endereço efetivo de escuta (relevante com porta 0)
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Serve roda o loop de accept até o contexto ser cancelado. O cancelamento
// fecha o socket de escuta, o erro de accept resultante é tratado como
// shutdown limpo e as conexões em voo terminam antes do retorno.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.ln.Close()
	}()

	for {
		s.Log.Info("accept_connections", zap.String("result", "in_progress"))
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.Log.Info("close", zap.String("result", "success"))
				break
			}
			s.Log.Error("accept_connections", zap.String("result", "fail"), zap.Error(err))
			continue
		}
		s.Log.Info("accept_connections",
			zap.String("result", "success"),
			zap.String("ip", conn.RemoteAddr().String()),
		)
		if s.OnAccepted != nil {
			s.OnAccepted()
		}

		s.wg.Add(1)
		// handlers em voo rodam até o fim mesmo durante o shutdown, por isso
		// o contexto segue sem o cancelamento do accept loop
		hctx := context.WithoutCancel(ctx)
		go func() {
			defer s.wg.Done()
			s.handleConnection(hctx, conn)
		}()
	}

	s.wg.Wait()
	return nil
}
