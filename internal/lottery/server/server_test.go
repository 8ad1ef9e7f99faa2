package server_test

import (
	"context"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/lottery-central-poc/internal/lottery/bet"
	"github.com/radieske/lottery-central-poc/internal/lottery/protocol"
	"github.com/radieske/lottery-central-poc/internal/lottery/registry"
	"github.com/radieske/lottery-central-poc/internal/lottery/server"
	"github.com/radieske/lottery-central-poc/internal/lottery/store"
)

// memStore implementa store.Store em memória com contadores de acesso, para
// verificar efeitos colaterais (nenhum scan antes do sorteio, nada anexado em
// lote rejeitado)
type memStore struct {
	mu      sync.Mutex
	bets    []bet.Bet
	appends int
	scans   int
}

func (m *memStore) Append(_ context.Context, bets []bet.Bet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appends++
	m.bets = append(m.bets, bets...)
	return nil
}

func (m *memStore) ScanAll(_ context.Context, visit func(bet.Bet) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans++
	for _, b := range m.bets {
		if err := visit(b); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) snapshot() (bets []bet.Bet, appends, scans int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bet.Bet(nil), m.bets...), m.appends, m.scans
}

var _ store.Store = (*memStore)(nil)

func startServer(t *testing.T, st store.Store, winningNumber int) string {
	t.Helper()

	srv := &server.Server{
		Log:           zap.NewNop(),
		Registry:      registry.NewMemory(),
		Store:         st,
		WinningNumber: winningNumber,
	}
	require.NoError(t, srv.Listen("127.0.0.1:0"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return srv.Addr().String()
}

// exchange abre uma conexão, envia uma mensagem e lê a resposta até o servidor
// fechar, replicando o ciclo do cliente das agências
func exchange(t *testing.T, addr string, msg []byte) []byte {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(msg)
	require.NoError(t, err)

	resp, err := io.ReadAll(conn)
	require.NoError(t, err)
	return resp
}

func mustBet(t *testing.T, agency int, first, last, document, birthdate, number string) bet.Bet {
	t.Helper()
	b, err := bet.New(agency, first, last, document, birthdate, number)
	require.NoError(t, err)
	return b
}

// Cenário completo de uma agência: envia a aposta, sinaliza o fim e consulta
// os ganadores
func TestSingleAgencyFullCycle(t *testing.T) {
	st := &memStore{}
	addr := startServer(t, st, 42)

	juan := mustBet(t, 1, "Juan", "Perez", "123456789", "1990-05-15", "42")

	resp := exchange(t, addr, protocol.EncodeBatch(1, []bet.Bet{juan}))
	assert.Equal(t, protocol.EncodeOK(), resp)

	resp = exchange(t, addr, protocol.EncodeBatch(1, nil))
	assert.Equal(t, protocol.EncodeOK(), resp)

	resp = exchange(t, addr, protocol.EncodeWinnerRequest(1))
	require.NotEmpty(t, resp)
	require.Equal(t, byte('w'), resp[0])

	winners, err := protocol.DecodeWinners(resp[1:])
	require.NoError(t, err)
	assert.Equal(t, []string{"123456789"}, winners)
}

// Com uma segunda agência ainda ativa, qualquer consulta recebe
// DRAW_IN_PROGRESS e o histórico não é varrido
func TestDrawInProgressWhileAgencyPending(t *testing.T) {
	st := &memStore{}
	addr := startServer(t, st, 42)

	exchange(t, addr, protocol.EncodeBatch(1, []bet.Bet{
		mustBet(t, 1, "Juan", "Perez", "123456789", "1990-05-15", "42"),
	}))
	exchange(t, addr, protocol.EncodeBatch(2, []bet.Bet{
		mustBet(t, 2, "Ana", "Gomez", "00123", "2000-01-01", "42"),
	}))

	// só a agência 1 sinaliza o fim
	exchange(t, addr, protocol.EncodeBatch(1, nil))

	for _, agency := range []int{1, 2} {
		resp := exchange(t, addr, protocol.EncodeWinnerRequest(agency))
		assert.Equal(t, protocol.EncodeDrawInProgress(), resp)
	}

	_, _, scans := st.snapshot()
	assert.Zero(t, scans, "consulta antes do sorteio não pode varrer o histórico")
}

func TestWinnersFilteredByAgency(t *testing.T) {
	st := &memStore{}
	addr := startServer(t, st, 42)

	exchange(t, addr, protocol.EncodeBatch(1, []bet.Bet{
		mustBet(t, 1, "Juan", "Perez", "123456789", "1990-05-15", "42"),
		mustBet(t, 1, "Luis", "Diaz", "55555555", "1985-03-02", "13"),
	}))
	exchange(t, addr, protocol.EncodeBatch(2, []bet.Bet{
		mustBet(t, 2, "Ana", "Gomez", "00123", "2000-01-01", "42"),
	}))
	exchange(t, addr, protocol.EncodeBatch(1, nil))
	exchange(t, addr, protocol.EncodeBatch(2, nil))

	resp := exchange(t, addr, protocol.EncodeWinnerRequest(1))
	require.Equal(t, byte('w'), resp[0])
	winners, err := protocol.DecodeWinners(resp[1:])
	require.NoError(t, err)
	// a aposta ganhadora da agência 2 não aparece, nem a perdedora da 1
	assert.Equal(t, []string{"123456789"}, winners)

	resp = exchange(t, addr, protocol.EncodeWinnerRequest(2))
	winners, err = protocol.DecodeWinners(resp[1:])
	require.NoError(t, err)
	assert.Equal(t, []string{"00123"}, winners)
}

// Lote com framing inválido: BAD_REQUEST e nada anexado
func TestMalformedBatchRejected(t *testing.T) {
	st := &memStore{}
	addr := startServer(t, st, 42)

	record := protocol.EncodeBetRecord(mustBet(t, 1, "Juan", "Perez", "123456789", "1990-05-15", "42"))
	msg := []byte{'b', 1, '1', 1, uint8(len(record) + 50)} // comprimento além do buffer
	msg = append(msg, record...)

	resp := exchange(t, addr, msg)
	assert.Equal(t, protocol.EncodeBadRequest(), resp)

	bets, appends, _ := st.snapshot()
	assert.Empty(t, bets)
	assert.Zero(t, appends)
}

// Lote parcial: o registro corrompido é descartado, o válido persiste e a
// resposta segue OK
func TestPartialBatchStoresDecodedBets(t *testing.T) {
	st := &memStore{}
	addr := startServer(t, st, 42)

	good := protocol.EncodeBetRecord(mustBet(t, 1, "Juan", "Perez", "123456789", "1990-05-15", "42"))
	bad := []byte{4, 'J', 'u', 'a', 'n'} // registro incompleto, envelope válido

	msg := []byte{'b', 1, '1', 2, uint8(len(good))}
	msg = append(msg, good...)
	msg = append(msg, uint8(len(bad)))
	msg = append(msg, bad...)

	resp := exchange(t, addr, msg)
	assert.Equal(t, protocol.EncodeOK(), resp)

	bets, _, _ := st.snapshot()
	require.Len(t, bets, 1)
	assert.Equal(t, "123456789", bets[0].Document)
}

func TestUnknownMessageTag(t *testing.T) {
	addr := startServer(t, &memStore{}, 42)

	resp := exchange(t, addr, []byte{'x', 1, '1'})
	assert.Equal(t, protocol.EncodeBadRequest(), resp)
}

func TestPeerClosingWithoutData(t *testing.T) {
	addr := startServer(t, &memStore{}, 42)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	// o servidor segue atendendo outras conexões normalmente
	resp := exchange(t, addr, protocol.EncodeBatch(1, nil))
	assert.Equal(t, protocol.EncodeOK(), resp)
}

// O sinal terminal é idempotente e level-triggered: repetir o lote vazio não
// muda o estado e uma consulta tardia continua funcionando
func TestTerminalBatchIdempotent(t *testing.T) {
	st := &memStore{}
	addr := startServer(t, st, 42)

	exchange(t, addr, protocol.EncodeBatch(1, []bet.Bet{
		mustBet(t, 1, "Juan", "Perez", "123456789", "1990-05-15", "42"),
	}))
	exchange(t, addr, protocol.EncodeBatch(1, nil))
	exchange(t, addr, protocol.EncodeBatch(1, nil))

	for i := 0; i < 2; i++ {
		resp := exchange(t, addr, protocol.EncodeWinnerRequest(1))
		require.Equal(t, byte('w'), resp[0])
		winners, err := protocol.DecodeWinners(resp[1:])
		require.NoError(t, err)
		assert.Equal(t, []string{"123456789"}, winners)
	}
}

// Agências concorrentes enviando lotes em paralelo: todas as apostas persistem
// e o sorteio só abre depois do último sinal terminal
func TestConcurrentAgencies(t *testing.T) {
	st := &memStore{}
	addr := startServer(t, st, 7574)

	const agencies = 8

	var wg sync.WaitGroup
	for a := 1; a <= agencies; a++ {
		wg.Add(1)
		go func(agency int) {
			defer wg.Done()
			exchange(t, addr, protocol.EncodeBatch(agency, []bet.Bet{
				mustBet(t, agency, "Juan", "Perez", "123456789", "1990-05-15", "7574"),
			}))
		}(a)
	}
	wg.Wait()

	resp := exchange(t, addr, protocol.EncodeWinnerRequest(1))
	assert.Equal(t, protocol.EncodeDrawInProgress(), resp)

	for a := 1; a <= agencies; a++ {
		wg.Add(1)
		go func(agency int) {
			defer wg.Done()
			exchange(t, addr, protocol.EncodeBatch(agency, nil))
		}(a)
	}
	wg.Wait()

	resp = exchange(t, addr, protocol.EncodeWinnerRequest(3))
	require.Equal(t, byte('w'), resp[0])
	winners, err := protocol.DecodeWinners(resp[1:])
	require.NoError(t, err)
	assert.Equal(t, []string{"123456789"}, winners)

	bets, _, _ := st.snapshot()
	assert.Len(t, bets, agencies)
}
