package data

import "fmt"

// PointTypeRoots is used in filter points to select nodes without a parent
const PointTypeRoots = "roots"

// NodeFilter selects nodes in node list queries. Nil fields match
// everything.
type NodeFilter struct {
	ParentID *string
	ClientID *string
	Type     *string
	Active   *bool
	// Roots restricts the result to nodes without a parent
	Roots bool
}

// ToPoints encodes the filter as points so it can be sent in requests
func (f NodeFilter) ToPoints() Points {
	var ret Points

	if f.ParentID != nil {
		ret = append(ret, Point{Type: PointTypeParentID, Text: *f.ParentID})
	}
	if f.ClientID != nil {
		ret = append(ret, Point{Type: PointTypeClientID, Text: *f.ClientID})
	}
	if f.Type != nil {
		ret = append(ret, Point{Type: PointTypeType, Text: *f.Type})
	}
	if f.Active != nil {
		ret = append(ret, Point{Type: PointTypeIsActive, Value: BoolToFloat(*f.Active)})
	}
	if f.Roots {
		ret = append(ret, Point{Type: PointTypeRoots, Value: 1})
	}

	return ret
}

// NodeFilterFromPoints decodes a filter encoded by NodeFilter.ToPoints
func NodeFilterFromPoints(points Points) (NodeFilter, error) {
	var f NodeFilter

	for _, p := range points {
		switch p.Type {
		case PointTypeParentID:
			f.ParentID = String(p.Text)
		case PointTypeClientID:
			f.ClientID = String(p.Text)
		case PointTypeType:
			f.Type = String(p.Text)
		case PointTypeIsActive:
			f.Active = Bool(FloatToBool(p.Value))
		case PointTypeRoots:
			f.Roots = FloatToBool(p.Value)
		default:
			return NodeFilter{}, fmt.Errorf("%w: %v", ErrUnknownPointType, p.Type)
		}
	}

	return f, nil
}
