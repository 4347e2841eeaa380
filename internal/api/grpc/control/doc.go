// Package control implements the gRPC control plane of the lookout monitor.
//
// The service is described by hand over the well-known protobuf types
// (google.protobuf.Empty and google.protobuf.Struct), so no generated code is
// required on either side. It exposes the engine status, the recenter hotkey
// and the activity override to lookout-ctl.
package control
