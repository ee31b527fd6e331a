package gateway

import (
	"google.golang.org/grpc/metadata"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"racehub/internal/roommanager"
)

// grpcConn adapts a GatewayStreamServer (this package's hand-written
// stand-in for generated protoc-gen-go-grpc stream code) to Conn.
type grpcConn struct{ stream GatewayStreamServer }

func (g grpcConn) ReadMessage() ([]byte, error) {
	f, err := g.stream.Recv()
	if err != nil {
		return nil, err
	}
	return *f, nil
}

func (g grpcConn) WriteMessage(data []byte) error {
	f := Frame(data)
	return g.stream.Send(&f)
}

func (g grpcConn) Close() error { return nil } // the stream's lifetime is owned by grpc-go

// Server implements GatewayServer, bridging gRPC streams into the same
// Session/Hub machinery the websocket transport uses.
type Server struct {
	hub     *Hub
	manager *roommanager.Manager
	catalog TrackCatalog
	log     zerolog.Logger
}

// NewServer constructs the gRPC-facing half of the gateway.
func NewServer(hub *Hub, manager *roommanager.Manager, catalog TrackCatalog, log zerolog.Logger) *Server {
	return &Server{hub: hub, manager: manager, catalog: catalog, log: log}
}

// Stream implements GatewayServer. The peer supplies its session id
// (new or reconnecting) via the "session-id" gRPC metadata key, since
// a bidi stream has no query-string equivalent.
func (srv *Server) Stream(stream GatewayStreamServer) error {
	id := sessionIDFromContext(stream)
	reconnecting := id != ""
	if id == "" {
		id = uuid.NewString()
	}

	if reconnecting {
		if r, ok := srv.manager.RoomForSession(id); ok {
			r.SubmitReconnect(id)
		}
	}

	NewSession(id, grpcConn{stream: stream}, srv.hub, srv.manager, srv.catalog, srv.log).Run()
	return nil
}

func sessionIDFromContext(stream GatewayStreamServer) string {
	md, ok := metadata.FromIncomingContext(stream.Context())
	if !ok {
		return ""
	}
	values := md.Get("session-id")
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
