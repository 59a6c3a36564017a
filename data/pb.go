package data

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Nodes and points are sent over NATS as protobuf Struct/ListValue messages
// keyed by the external field names. Unset node fields are absent keys.

// ToPbStruct converts a node to a protobuf Struct
func (n Node) ToPbStruct() *structpb.Struct {
	fields := make(map[string]*structpb.Value)

	add := func(key string, v *string) {
		if v != nil {
			fields[key] = structpb.NewStringValue(*v)
		}
	}

	add(PointTypeID, n.ID)
	add(PointTypeName, n.Name)
	add(PointTypeType, n.Type)
	add(PointTypeParentID, n.ParentID)
	add(PointTypeLocation, n.Location)
	add(PointTypeClientID, n.ClientID)
	if n.IsActive != nil {
		fields[PointTypeIsActive] = structpb.NewBoolValue(*n.IsActive)
	}
	add(PointTypeHwConfigID, n.HwConfigID)

	return &structpb.Struct{Fields: fields}
}

// ToPb encodes a node to a protobuf
func (n Node) ToPb() ([]byte, error) {
	return proto.Marshal(n.ToPbStruct())
}

func pbString(v *structpb.Value, key string) (*string, error) {
	switch k := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return nil, nil
	case *structpb.Value_StringValue:
		s := k.StringValue
		return &s, nil
	default:
		return nil, fmt.Errorf("field %v is not a string", key)
	}
}

// PbToNode converts a protobuf Struct to a node. Null values are treated
// as unset.
func PbToNode(s *structpb.Struct) (Node, error) {
	var n Node

	for key, v := range s.GetFields() {
		if key == PointTypeIsActive {
			switch k := v.GetKind().(type) {
			case *structpb.Value_NullValue:
			case *structpb.Value_BoolValue:
				n.IsActive = Bool(k.BoolValue)
			default:
				return Node{}, fmt.Errorf("field %v is not a bool", key)
			}
			continue
		}

		sv, err := pbString(v, key)
		if err != nil {
			return Node{}, err
		}

		switch key {
		case PointTypeID:
			n.ID = sv
		case PointTypeName:
			n.Name = sv
		case PointTypeType:
			n.Type = sv
		case PointTypeParentID:
			n.ParentID = sv
		case PointTypeLocation:
			n.Location = sv
		case PointTypeClientID:
			n.ClientID = sv
		case PointTypeHwConfigID:
			n.HwConfigID = sv
		default:
			return Node{}, fmt.Errorf("unknown node field: %v", key)
		}
	}

	return n, nil
}

// PbDecodeNode converts a protobuf to node data structure
func PbDecodeNode(data []byte) (Node, error) {
	s := &structpb.Struct{}

	err := proto.Unmarshal(data, s)
	if err != nil {
		return Node{}, err
	}

	return PbToNode(s)
}

func (nodes Nodes) toPbList() *structpb.ListValue {
	values := make([]*structpb.Value, len(nodes))
	for i, n := range nodes {
		values[i] = structpb.NewStructValue(n.ToPbStruct())
	}

	return &structpb.ListValue{Values: values}
}

func pbListToNodes(l *structpb.ListValue) (Nodes, error) {
	ret := make(Nodes, len(l.GetValues()))

	for i, v := range l.GetValues() {
		s := v.GetStructValue()
		if s == nil {
			return nil, fmt.Errorf("node %v is not a struct", i)
		}

		var err error
		ret[i], err = PbToNode(s)
		if err != nil {
			return nil, err
		}
	}

	return ret, nil
}

// ToPb encodes a list of nodes to protobuf
func (nodes Nodes) ToPb() ([]byte, error) {
	return proto.Marshal(nodes.toPbList())
}

// PbDecodeNodes decodes protobuf encoded nodes
func PbDecodeNodes(data []byte) (Nodes, error) {
	l := &structpb.ListValue{}
	err := proto.Unmarshal(data, l)
	if err != nil {
		return nil, err
	}

	return pbListToNodes(l)
}

// ToPbStruct converts a point to a protobuf Struct
func (p Point) ToPbStruct() *structpb.Struct {
	fields := map[string]*structpb.Value{
		"type": structpb.NewStringValue(p.Type),
	}

	if !p.Time.IsZero() {
		fields["time"] = structpb.NewStringValue(p.Time.Format(time.RFC3339Nano))
	}
	if p.Text != "" {
		fields["text"] = structpb.NewStringValue(p.Text)
	}
	if p.Value != 0 {
		fields["value"] = structpb.NewNumberValue(p.Value)
	}
	if p.Tombstone != 0 {
		fields["tombstone"] = structpb.NewNumberValue(float64(p.Tombstone))
	}
	if p.Origin != "" {
		fields["origin"] = structpb.NewStringValue(p.Origin)
	}

	return &structpb.Struct{Fields: fields}
}

// PbToPoint converts a protobuf Struct to a point
func PbToPoint(s *structpb.Struct) (Point, error) {
	f := s.GetFields()

	ts := f["tombstone"].GetNumberValue()
	if ts < 0 || ts != math.Trunc(ts) || ts > math.MaxInt32 {
		return Point{}, fmt.Errorf("invalid point tombstone: %v", ts)
	}

	p := Point{
		Type:      f["type"].GetStringValue(),
		Text:      f["text"].GetStringValue(),
		Value:     f["value"].GetNumberValue(),
		Tombstone: int(ts),
		Origin:    f["origin"].GetStringValue(),
	}

	if ts := f["time"].GetStringValue(); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return Point{}, fmt.Errorf("invalid point time: %w", err)
		}
		p.Time = t
	}

	return p, nil
}

// ToPb encodes an array of points into protobuf
func (ps Points) ToPb() ([]byte, error) {
	values := make([]*structpb.Value, len(ps))
	for i, p := range ps {
		values[i] = structpb.NewStructValue(p.ToPbStruct())
	}

	return proto.Marshal(&structpb.ListValue{Values: values})
}

// PbDecodePoints decodes a protobuf into an array of points
func PbDecodePoints(data []byte) (Points, error) {
	l := &structpb.ListValue{}
	err := proto.Unmarshal(data, l)
	if err != nil {
		return nil, err
	}

	ret := make(Points, len(l.GetValues()))
	for i, v := range l.GetValues() {
		s := v.GetStructValue()
		if s == nil {
			return nil, fmt.Errorf("point %v is not a struct", i)
		}
		ret[i], err = PbToPoint(s)
		if err != nil {
			return nil, err
		}
	}

	return ret, nil
}

// NodesResponse is the reply to node requests sent over NATS
type NodesResponse struct {
	Nodes Nodes
	Error string
}

// ToPb encodes a nodes response
func (r NodesResponse) ToPb() ([]byte, error) {
	s := &structpb.Struct{Fields: map[string]*structpb.Value{
		"nodes": structpb.NewListValue(r.Nodes.toPbList()),
	}}

	if r.Error != "" {
		s.Fields["error"] = structpb.NewStringValue(r.Error)
	}

	return proto.Marshal(s)
}

// PbDecodeNodesResponse decodes a nodes response
func PbDecodeNodesResponse(data []byte) (NodesResponse, error) {
	s := &structpb.Struct{}
	err := proto.Unmarshal(data, s)
	if err != nil {
		return NodesResponse{}, err
	}

	nodes, err := pbListToNodes(s.GetFields()["nodes"].GetListValue())
	if err != nil {
		return NodesResponse{}, err
	}

	return NodesResponse{
		Nodes: nodes,
		Error: s.GetFields()["error"].GetStringValue(),
	}, nil
}
