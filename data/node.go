package data

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// Node describes one node (apiary, hive, scale, gateway, ...) in the
// hive hierarchy. Every field is optional and nil means unset.
// ParentID, ClientID, and HwConfigID are plain IDs of other entities and
// are only resolved by lookup in a store.
type Node struct {
	ID         *string `json:"id,omitempty" yaml:"id,omitempty"`
	Name       *string `json:"name,omitempty" yaml:"name,omitempty"`
	Type       *string `json:"type,omitempty" yaml:"type,omitempty"`
	ParentID   *string `json:"parentId,omitempty" yaml:"parentId,omitempty"`
	Location   *string `json:"location,omitempty" yaml:"location,omitempty"`
	ClientID   *string `json:"clientId,omitempty" yaml:"clientId,omitempty"`
	IsActive   *bool   `json:"isActive,omitempty" yaml:"isActive,omitempty"`
	HwConfigID *string `json:"hwConfigId,omitempty" yaml:"hwConfigId,omitempty"`
}

// ValidID returns true if id can be used as a node ID. IDs are part of
// NATS subjects so they must not be blank or contain delimiters, wildcards
// or whitespace.
func ValidID(id string) bool {
	return id != "" && !strings.ContainsAny(id, ".*> \t\r\n")
}

// NewNode returns a node with all fields unset
func NewNode() *Node {
	return &Node{}
}

// String returns a pointer to a copy of s
func String(s string) *string {
	return &s
}

// Bool returns a pointer to a copy of b
func Bool(b bool) *bool {
	return &b
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func getString(v *string) (string, bool) {
	if v == nil {
		return "", false
	}
	return *v, true
}

// GetID returns the node ID and true if it is set
func (n Node) GetID() (string, bool) { return getString(n.ID) }

// GetName returns the node name and true if it is set
func (n Node) GetName() (string, bool) { return getString(n.Name) }

// GetType returns the node type and true if it is set
func (n Node) GetType() (string, bool) { return getString(n.Type) }

// GetParentID returns the parent node ID and true if it is set
func (n Node) GetParentID() (string, bool) { return getString(n.ParentID) }

// GetLocation returns the location and true if it is set
func (n Node) GetLocation() (string, bool) { return getString(n.Location) }

// GetClientID returns the client ID and true if it is set
func (n Node) GetClientID() (string, bool) { return getString(n.ClientID) }

// GetHwConfigID returns the hardware config ID and true if it is set
func (n Node) GetHwConfigID() (string, bool) { return getString(n.HwConfigID) }

// GetIsActive returns the active flag and true if it is set
func (n Node) GetIsActive() (bool, bool) {
	if n.IsActive == nil {
		return false, false
	}
	return *n.IsActive, true
}

// SetID sets the ID, nil unsets it
func (n *Node) SetID(v *string) { n.ID = copyString(v) }

// SetName sets the name, nil unsets it
func (n *Node) SetName(v *string) { n.Name = copyString(v) }

// SetType sets the type, nil unsets it
func (n *Node) SetType(v *string) { n.Type = copyString(v) }

// SetParentID sets the parent ID, nil unsets it
func (n *Node) SetParentID(v *string) { n.ParentID = copyString(v) }

// SetLocation sets the location, nil unsets it
func (n *Node) SetLocation(v *string) { n.Location = copyString(v) }

// SetClientID sets the client ID, nil unsets it
func (n *Node) SetClientID(v *string) { n.ClientID = copyString(v) }

// SetIsActive sets the active flag, nil unsets it
func (n *Node) SetIsActive(v *bool) { n.IsActive = copyBool(v) }

// SetHwConfigID sets the hardware config ID, nil unsets it
func (n *Node) SetHwConfigID(v *string) { n.HwConfigID = copyString(v) }

// Copy returns a deep copy of the node
func (n Node) Copy() Node {
	return Node{
		ID:         copyString(n.ID),
		Name:       copyString(n.Name),
		Type:       copyString(n.Type),
		ParentID:   copyString(n.ParentID),
		Location:   copyString(n.Location),
		ClientID:   copyString(n.ClientID),
		IsActive:   copyBool(n.IsActive),
		HwConfigID: copyString(n.HwConfigID),
	}
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Equal returns true if all fields of both nodes are equal. An unset field
// only equals another unset field.
func (n Node) Equal(o Node) bool {
	if n.IsActive == nil || o.IsActive == nil {
		if n.IsActive != o.IsActive {
			return false
		}
	} else if *n.IsActive != *o.IsActive {
		return false
	}

	return equalString(n.ID, o.ID) &&
		equalString(n.Name, o.Name) &&
		equalString(n.Type, o.Type) &&
		equalString(n.ParentID, o.ParentID) &&
		equalString(n.Location, o.Location) &&
		equalString(n.ClientID, o.ClientID) &&
		equalString(n.HwConfigID, o.HwConfigID)
}

// Hash returns a md5 digest of all node fields. Each field is prefixed with
// a presence byte so an unset field and an empty string hash differently.
func (n Node) Hash() []byte {
	h := md5.New()

	writeString := func(v *string) {
		if v == nil {
			h.Write([]byte{0})
			return
		}
		h.Write([]byte{1})
		// length prefix keeps field boundaries unambiguous
		h.Write([]byte(fmt.Sprintf("%d:", len(*v))))
		h.Write([]byte(*v))
	}

	writeString(n.ID)
	writeString(n.Name)
	writeString(n.Type)
	writeString(n.ParentID)
	writeString(n.Location)
	writeString(n.ClientID)

	switch {
	case n.IsActive == nil:
		h.Write([]byte{0})
	case *n.IsActive:
		h.Write([]byte{1, 1})
	default:
		h.Write([]byte{1, 0})
	}

	writeString(n.HwConfigID)

	return h.Sum(nil)
}

const unsetText = "<unset>"

func fmtString(v *string) string {
	if v == nil {
		return unsetText
	}
	return *v
}

func (n Node) String() string {
	active := unsetText
	if n.IsActive != nil {
		active = fmt.Sprintf("%v", *n.IsActive)
	}

	ret := fmt.Sprintf("NODE: %v (%v)\n", fmtString(n.ID), fmtString(n.Type))
	ret += fmt.Sprintf("  - name: %v\n", fmtString(n.Name))
	ret += fmt.Sprintf("  - parentId: %v\n", fmtString(n.ParentID))
	ret += fmt.Sprintf("  - location: %v\n", fmtString(n.Location))
	ret += fmt.Sprintf("  - clientId: %v\n", fmtString(n.ClientID))
	ret += fmt.Sprintf("  - isActive: %v\n", active)
	ret += fmt.Sprintf("  - hwConfigId: %v\n", fmtString(n.HwConfigID))
	ret += fmt.Sprintf("  - hash: %v\n", hex.EncodeToString(n.Hash()))

	return ret
}

// Desc returns the name if set, otherwise the ID
func (n Node) Desc() string {
	if name, ok := n.GetName(); ok && name != "" {
		return name
	}

	id, _ := n.GetID()
	return id
}

// Nodes defines a list of nodes
type Nodes []Node

// Sort orders nodes by ID. Nodes without an ID sort first.
func (nodes Nodes) Sort() {
	slices.SortStableFunc(nodes, func(a, b Node) int {
		aID, _ := a.GetID()
		bID, _ := b.GetID()
		return strings.Compare(aID, bID)
	})
}

// Find returns the node with the given ID
func (nodes Nodes) Find(id string) (Node, bool) {
	for _, n := range nodes {
		if nID, ok := n.GetID(); ok && nID == id {
			return n, true
		}
	}

	return Node{}, false
}
