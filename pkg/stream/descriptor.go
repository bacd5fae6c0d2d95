package stream

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

// ProtoFile is the path of the watch service definition,
// proto/healthwatch/v1/stream.proto.
const ProtoFile = "healthwatch/v1/stream.proto"

// File_healthwatch_v1_stream_proto describes the watch service. It is
// registered with the global registry so server reflection can resolve it.
var File_healthwatch_v1_stream_proto protoreflect.FileDescriptor

func init() {
	fdp := &descriptorpb.FileDescriptorProto{
		Name:       proto.String(ProtoFile),
		Package:    proto.String("healthwatch.v1"),
		Dependency: []string{"google/protobuf/struct.proto"},
		Syntax:     proto.String("proto3"),
		Options: &descriptorpb.FileOptions{
			GoPackage: proto.String("github.com/HatiCode/healthwatch/pkg/stream"),
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("UpdateStream"),
			Method: []*descriptorpb.MethodDescriptorProto{{
				Name:            proto.String("Watch"),
				InputType:       proto.String(".google.protobuf.Struct"),
				OutputType:      proto.String(".google.protobuf.Struct"),
				ServerStreaming: proto.Bool(true),
			}},
		}},
	}

	fd, err := protodesc.NewFile(fdp, protoregistry.GlobalFiles)
	if err != nil {
		panic(fmt.Sprintf("build %s descriptor: %v", ProtoFile, err))
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		panic(fmt.Sprintf("register %s: %v", ProtoFile, err))
	}
	File_healthwatch_v1_stream_proto = fd
}
