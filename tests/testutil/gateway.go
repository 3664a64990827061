package testutil

import (
	"testing"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/nhle/sprintwithfriends/internal/gateway"
	"github.com/nhle/sprintwithfriends/internal/realtime"
	"github.com/nhle/sprintwithfriends/internal/store"
)

// GatewayEnv bundles a Local gateway with the store and broker behind it.
type GatewayEnv struct {
	Gateway *gateway.Local
	Store   *store.SQLiteStore
	Broker  *realtime.Broker
}

// NewTestGateway wires a Local gateway to a temporary store and an
// in-process Redis. tp may be nil.
func NewTestGateway(t *testing.T, tp trace.TracerProvider) GatewayEnv {
	t.Helper()

	st := NewTestStore(t)
	_, rc := NewTestRedis(t)
	broker := realtime.NewBroker(rc, zap.NewNop())

	var opts []gateway.Option
	if tp != nil {
		opts = append(opts, gateway.WithTracerProvider(tp))
	}
	return GatewayEnv{
		Gateway: gateway.NewLocal(st, broker, zap.NewNop(), opts...),
		Store:   st,
		Broker:  broker,
	}
}
