package stream

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/HatiCode/healthwatch/pkg/events"
)

// Fully qualified gRPC names of the watch service.
const (
	UpdateStreamService = "healthwatch.v1.UpdateStream"
	watchMethod         = "/" + UpdateStreamService + "/Watch"
)

// UpdateStreamServer is the server API of the watch service. The request is
// a Struct with an optional "topics" list; responses are envelope Structs.
type UpdateStreamServer interface {
	Watch(req *structpb.Struct, stream grpc.ServerStream) error
}

// UpdateStreamServiceDesc describes the watch service for grpc.Server.
var UpdateStreamServiceDesc = grpc.ServiceDesc{
	ServiceName: UpdateStreamService,
	HandlerType: (*UpdateStreamServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: ProtoFile,
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	req := new(structpb.Struct)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(UpdateStreamServer).Watch(req, stream)
}

// WatchServer implements UpdateStreamServer on a Manager.
type WatchServer struct {
	manager *Manager
	allowed map[string]bool
	topics  []string
}

// NewWatchServer serves the given topics. Clients may narrow the set.
func NewWatchServer(manager *Manager, topics ...string) *WatchServer {
	allowed := make(map[string]bool, len(topics))
	for _, t := range topics {
		allowed[t] = true
	}
	return &WatchServer{manager: manager, allowed: allowed, topics: topics}
}

// Register adds the service to s.
func (w *WatchServer) Register(s *grpc.Server) {
	s.RegisterService(&UpdateStreamServiceDesc, w)
}

// Watch implements UpdateStreamServer.
func (w *WatchServer) Watch(req *structpb.Struct, stream grpc.ServerStream) error {
	topics, err := w.requestedTopics(req)
	if err != nil {
		return err
	}

	ctx := stream.Context()
	session := w.manager.Open(ctx, TransportGRPC, topics...)
	defer w.manager.Close(session)

	if err := sendEnvelope(stream, events.Connected()); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.manager.done:
			return nil
		case env := <-session.Events():
			if err := sendEnvelope(stream, env); err != nil {
				return err
			}
		}
	}
}

func (w *WatchServer) requestedTopics(req *structpb.Struct) ([]string, error) {
	list := req.GetFields()["topics"].GetListValue()
	if list == nil || len(list.GetValues()) == 0 {
		return w.topics, nil
	}
	topics := make([]string, 0, len(list.GetValues()))
	for _, v := range list.GetValues() {
		t := v.GetStringValue()
		if !w.allowed[t] {
			return nil, status.Errorf(codes.InvalidArgument, "unknown topic %q", t)
		}
		topics = append(topics, t)
	}
	return topics, nil
}

func sendEnvelope(stream grpc.ServerStream, env events.Envelope) error {
	msg, err := envelopeStruct(env)
	if err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	return stream.SendMsg(msg)
}

// envelopeStruct converts an envelope to a Struct through its JSON form so
// field names match the SSE payloads.
func envelopeStruct(env events.Envelope) (*structpb.Struct, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return structpb.NewStruct(m)
}

// WatchStream is the client side of a Watch call.
type WatchStream struct {
	stream grpc.ClientStream
}

// Watch opens a watch stream on cc. With no topics the server default is used.
func Watch(ctx context.Context, cc grpc.ClientConnInterface, topics ...string) (*WatchStream, error) {
	stream, err := cc.NewStream(ctx, &UpdateStreamServiceDesc.Streams[0], watchMethod)
	if err != nil {
		return nil, err
	}
	list := make([]any, len(topics))
	for i, t := range topics {
		list[i] = t
	}
	req, err := structpb.NewStruct(map[string]any{"topics": list})
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &WatchStream{stream: stream}, nil
}

// Recv returns the next envelope.
func (w *WatchStream) Recv() (events.Envelope, error) {
	msg := new(structpb.Struct)
	if err := w.stream.RecvMsg(msg); err != nil {
		return events.Envelope{}, err
	}
	env := events.Envelope{}
	if t, ok := msg.GetFields()["type"]; ok {
		env.Type = t.GetStringValue()
	}
	if d, ok := msg.GetFields()["data"]; ok {
		env.Data = d.AsInterface()
	}
	return env, nil
}
