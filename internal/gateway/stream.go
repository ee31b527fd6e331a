package gateway

import "google.golang.org/grpc"

// Frame is one wire message, already JSON-encoded by internal/protocol
// (a ClientMessage or ServerMessage). It is the sole payload type of
// the gRPC bidirectional stream; jsonCodec marshals it as opaque bytes
// rather than re-encoding an already-encoded payload.
type Frame []byte

// GatewayStreamServer is the server-side half of the bidirectional
// stream, the hand-written equivalent of what protoc-gen-go-grpc would
// generate for a `stream Frame returns (stream Frame)` RPC.
type GatewayStreamServer interface {
	Send(*Frame) error
	Recv() (*Frame, error)
	grpc.ServerStream
}

// GatewayServer is implemented by the gateway's gRPC transport.
type GatewayServer interface {
	Stream(GatewayStreamServer) error
}

type gatewayStreamServer struct {
	grpc.ServerStream
}

func (x *gatewayStreamServer) Send(f *Frame) error {
	return x.ServerStream.SendMsg(f)
}

func (x *gatewayStreamServer) Recv() (*Frame, error) {
	f := new(Frame)
	if err := x.ServerStream.RecvMsg(f); err != nil {
		return nil, err
	}
	return f, nil
}

func gatewayStreamHandler(srv any, stream grpc.ServerStream) error {
	return srv.(GatewayServer).Stream(&gatewayStreamServer{ServerStream: stream})
}

// ServiceDesc registers the gateway's one streaming method on a
// *grpc.Server, in place of generated *_grpc.pb.go registration code.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "racehub.Gateway",
	HandlerType: (*GatewayServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Stream",
			Handler:       gatewayStreamHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "gateway.proto",
}
