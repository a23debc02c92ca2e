package transport

import "google.golang.org/grpc"

const (
	serviceName    = "disqueria.transport.v1.Commands"
	exchangeMethod = "/" + serviceName + "/Exchange"
)

// exchanger is implemented by Server; gRPC checks it on registration.
type exchanger interface {
	exchange(stream grpc.ServerStream) error
}

var exchangeStreamDesc = grpc.StreamDesc{
	StreamName:    "Exchange",
	Handler:       exchangeHandler,
	ServerStreams: true,
	ClientStreams: true,
}

// serviceDesc is written by hand: the service has a single bidirectional
// stream of JSON envelopes, so there are no generated stubs.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*exchanger)(nil),
	Streams:     []grpc.StreamDesc{exchangeStreamDesc},
	Metadata:    "internal/pkg/transport/service.go",
}

func exchangeHandler(srv any, stream grpc.ServerStream) error {
	return srv.(exchanger).exchange(stream)
}
