package data

import (
	"fmt"
	"time"
)

// Point types. A point type is the external key name of the node field it
// updates.
const (
	PointTypeID         = "id"
	PointTypeName       = "name"
	PointTypeType       = "type"
	PointTypeParentID   = "parentId"
	PointTypeLocation   = "location"
	PointTypeClientID   = "clientId"
	PointTypeIsActive   = "isActive"
	PointTypeHwConfigID = "hwConfigId"
)

// Point is a field level update for a node. Text carries string fields,
// Value carries isActive (0 or 1). An odd Tombstone means the field is
// unset.
type Point struct {
	// Type of point, one of the PointType* constants
	Type string `json:"type,omitempty" yaml:"type"`

	// Time the point was created
	Time time.Time `json:"time,omitempty" yaml:"-"`

	// Text value for string fields
	Text string `json:"text,omitempty" yaml:"text,omitempty"`

	// Value for the isActive field. 0 and 1 represent false and true.
	Value float64 `json:"value,omitempty" yaml:"value,omitempty"`

	// Used to indicate a field has been unset. This value is only
	// ever incremented. Odd values mean the field is unset.
	Tombstone int `json:"tombstone,omitempty" yaml:"tombstone,omitempty"`

	// Where did this point come from. If from the owning node, it may be blank.
	Origin string `json:"origin,omitempty" yaml:"origin,omitempty"`
}

// IsUnset returns true if the point clears its field
func (p Point) IsUnset() bool {
	return p.Tombstone%2 != 0
}

func (p Point) String() string {
	t := ""

	if p.Type != "" {
		t += "T:" + p.Type + " "
	}

	switch {
	case p.IsUnset():
		t += "Unset "
	case p.Type == PointTypeIsActive:
		t += fmt.Sprintf("V:%v ", FloatToBool(p.Value))
	default:
		t += fmt.Sprintf("V:%v ", p.Text)
	}

	if p.Origin != "" {
		t += fmt.Sprintf("O:%v ", p.Origin)
	}

	if !p.Time.IsZero() {
		t += p.Time.Format(time.RFC3339)
	}

	return t
}

// Points is an array of Point
type Points []Point

func (ps Points) String() string {
	ret := ""
	for _, p := range ps {
		ret += p.String() + "\n"
	}

	return ret
}

// Find returns the last point of the given type
func (ps Points) Find(typ string) (Point, bool) {
	for i := len(ps) - 1; i >= 0; i-- {
		if ps[i].Type == typ {
			return ps[i], true
		}
	}

	return Point{}, false
}

// BoolToFloat converts bool to float
func BoolToFloat(v bool) float64 {
	if !v {
		return 0
	}
	return 1
}

// FloatToBool converts a float to bool
func FloatToBool(v float64) bool {
	return v == 1
}

func stringPoint(typ string, v *string, now time.Time) Point {
	if v == nil {
		return Point{Type: typ, Time: now, Tombstone: 1}
	}
	return Point{Type: typ, Time: now, Text: *v}
}

// ToPoints converts the set fields of a node to points. Unset fields are
// not included.
func (n Node) ToPoints() Points {
	now := time.Now()
	var ret Points

	add := func(typ string, v *string) {
		if v != nil {
			ret = append(ret, stringPoint(typ, v, now))
		}
	}

	add(PointTypeID, n.ID)
	add(PointTypeName, n.Name)
	add(PointTypeType, n.Type)
	add(PointTypeParentID, n.ParentID)
	add(PointTypeLocation, n.Location)
	add(PointTypeClientID, n.ClientID)

	if n.IsActive != nil {
		ret = append(ret, Point{Type: PointTypeIsActive, Time: now,
			Value: BoolToFloat(*n.IsActive)})
	}

	add(PointTypeHwConfigID, n.HwConfigID)

	return ret
}

// UnsetPoint returns a point that clears the given field
func UnsetPoint(typ string) Point {
	return Point{Type: typ, Time: time.Now(), Tombstone: 1}
}

// ApplyPoint sets the node field the point refers to
func (n *Node) ApplyPoint(p Point) error {
	var v *string
	if !p.IsUnset() {
		v = &p.Text
	}

	switch p.Type {
	case PointTypeID:
		n.SetID(v)
	case PointTypeName:
		n.SetName(v)
	case PointTypeType:
		n.SetType(v)
	case PointTypeParentID:
		n.SetParentID(v)
	case PointTypeLocation:
		n.SetLocation(v)
	case PointTypeClientID:
		n.SetClientID(v)
	case PointTypeHwConfigID:
		n.SetHwConfigID(v)
	case PointTypeIsActive:
		if p.IsUnset() {
			n.SetIsActive(nil)
		} else {
			n.SetIsActive(Bool(FloatToBool(p.Value)))
		}
	default:
		return fmt.Errorf("%w: %v", ErrUnknownPointType, p.Type)
	}

	return nil
}

// ApplyPoints applies points in order. Processing stops at the first
// point that does not map to a node field.
func (n *Node) ApplyPoints(points Points) error {
	for _, p := range points {
		if err := n.ApplyPoint(p); err != nil {
			return err
		}
	}

	return nil
}

// NodeFromPoints builds a node from points
func NodeFromPoints(points Points) (Node, error) {
	var n Node
	err := n.ApplyPoints(points)
	return n, err
}
