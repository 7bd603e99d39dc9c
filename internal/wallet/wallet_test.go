package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

type stubSigner struct {
	connected bool
	chainID   uint64
	err       error
}

func (s *stubSigner) Connected() bool { return s.connected }

func (s *stubSigner) ChainID(context.Context) (uint64, error) {
	return s.chainID, s.err
}

type sourceFunc func(context.Context) (Connection, error)

func (f sourceFunc) Connection(ctx context.Context) (Connection, error) { return f(ctx) }

func TestConnectionOnNetwork(t *testing.T) {
	if !Connect(50312).OnNetwork(50312) {
		t.Fatalf("expected match on same chain")
	}
	if Connect(1).OnNetwork(50312) {
		t.Fatalf("expected mismatch on different chain")
	}
	if (Connection{Connected: true}).OnNetwork(50312) {
		t.Fatalf("unknown network must not match")
	}
	if (Connection{}).OnNetwork(50312) {
		t.Fatalf("disconnected session must not match")
	}
}

func TestConnectionEqual(t *testing.T) {
	if !Connect(1).Equal(Connect(1)) {
		t.Fatalf("expected equal sessions")
	}
	if Connect(1).Equal(Connect(2)) {
		t.Fatalf("different chains compared equal")
	}
	if Connect(1).Equal(Connection{Connected: true}) {
		t.Fatalf("nil chain compared equal to set chain")
	}
}

func TestChainSource(t *testing.T) {
	ctx := context.Background()

	conn, err := ChainSource{Signer: &stubSigner{}}.Connection(ctx)
	if err != nil || conn.Connected {
		t.Fatalf("expected disconnected session, got %+v %v", conn, err)
	}

	conn, err = ChainSource{Signer: &stubSigner{connected: true, chainID: 50312}}.Connection(ctx)
	if err != nil || !conn.OnNetwork(50312) {
		t.Fatalf("expected session on 50312, got %+v %v", conn, err)
	}

	conn, err = ChainSource{Signer: &stubSigner{connected: true, err: errors.New("rpc down")}}.Connection(ctx)
	if err == nil || !conn.Connected || conn.ChainID != nil {
		t.Fatalf("expected connected session without network, got %+v %v", conn, err)
	}
}

func TestWatcherDeliversOnlyChanges(t *testing.T) {
	var mu sync.Mutex
	current := Connect(1)
	src := sourceFunc(func(context.Context) (Connection, error) {
		mu.Lock()
		defer mu.Unlock()
		return current, nil
	})

	w := NewWatcher(src, 0, zerolog.Nop())
	var got []Connection
	w.Subscribe(func(_ context.Context, c Connection) { got = append(got, c) })

	ctx := context.Background()
	w.Poll(ctx)
	w.Poll(ctx)

	mu.Lock()
	current = Connect(50312)
	mu.Unlock()
	w.Poll(ctx)

	if len(got) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(got))
	}
	if !got[1].OnNetwork(50312) || !w.Current().OnNetwork(50312) {
		t.Fatalf("expected latest session on 50312, got %+v", got[1])
	}
}

func TestWatcherFirstPollDeliversDisconnected(t *testing.T) {
	w := NewWatcher(Static{}, 0, zerolog.Nop())
	calls := 0
	w.Subscribe(func(context.Context, Connection) { calls++ })
	w.Poll(context.Background())
	if calls != 1 {
		t.Fatalf("expected initial delivery, got %d", calls)
	}
}
