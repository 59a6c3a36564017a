package data

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func fullNode() Node {
	return Node{
		ID:         String("8d1b4a9e"),
		Name:       String("Hive 7"),
		Type:       String("hive"),
		ParentID:   String("apiary-1"),
		Location:   String("57.0N 24.1E"),
		ClientID:   String("client-42"),
		IsActive:   Bool(true),
		HwConfigID: String("hw-scale-v2"),
	}
}

func TestNewNodeUnset(t *testing.T) {
	n := NewNode()

	if _, ok := n.GetID(); ok {
		t.Error("id is set")
	}
	if _, ok := n.GetName(); ok {
		t.Error("name is set")
	}
	if _, ok := n.GetType(); ok {
		t.Error("type is set")
	}
	if _, ok := n.GetParentID(); ok {
		t.Error("parentId is set")
	}
	if _, ok := n.GetLocation(); ok {
		t.Error("location is set")
	}
	if _, ok := n.GetClientID(); ok {
		t.Error("clientId is set")
	}
	if _, ok := n.GetIsActive(); ok {
		t.Error("isActive is set")
	}
	if _, ok := n.GetHwConfigID(); ok {
		t.Error("hwConfigId is set")
	}

	if !n.Equal(Node{}) {
		t.Error("new node does not equal zero value")
	}
}

func TestGetSetRoundTrip(t *testing.T) {
	fields := []struct {
		name string
		set  func(*Node, *string)
		get  func(Node) (string, bool)
	}{
		{"id", (*Node).SetID, Node.GetID},
		{"name", (*Node).SetName, Node.GetName},
		{"type", (*Node).SetType, Node.GetType},
		{"parentId", (*Node).SetParentID, Node.GetParentID},
		{"location", (*Node).SetLocation, Node.GetLocation},
		{"clientId", (*Node).SetClientID, Node.GetClientID},
		{"hwConfigId", (*Node).SetHwConfigID, Node.GetHwConfigID},
	}

	values := []string{"", "abc", "Hive ü 3", "  spaced  "}

	for _, f := range fields {
		t.Run(f.name, func(t *testing.T) {
			var n Node
			for _, v := range values {
				f.set(&n, String(v))
				got, ok := f.get(n)
				if !ok || got != v {
					t.Errorf("set %q, got %q (set: %v)", v, got, ok)
				}
			}

			f.set(&n, nil)
			if _, ok := f.get(n); ok {
				t.Error("field still set after unset")
			}
		})
	}
}

func TestSetCopiesValue(t *testing.T) {
	var n Node
	name := "Hive 1"
	n.SetName(&name)
	name = "changed"

	if got, _ := n.GetName(); got != "Hive 1" {
		t.Fatal("setter aliases caller value, got: ", got)
	}
}

func TestIsActiveTriState(t *testing.T) {
	var n Node

	n.SetIsActive(Bool(true))
	if v, ok := n.GetIsActive(); !ok || !v {
		t.Fatal("expected true")
	}

	n.SetIsActive(Bool(false))
	if v, ok := n.GetIsActive(); !ok || v {
		t.Fatal("expected false")
	}

	n.SetIsActive(nil)
	if _, ok := n.GetIsActive(); ok {
		t.Fatal("expected unset")
	}
}

func TestEqual(t *testing.T) {
	a := fullNode()
	b := fullNode()

	if !a.Equal(b) {
		t.Fatal("identical nodes are not equal")
	}

	if !bytes.Equal(a.Hash(), b.Hash()) {
		t.Fatal("identical nodes hash differently")
	}

	mods := map[string]func(*Node){
		"id":            func(n *Node) { n.SetID(String("other")) },
		"name unset":    func(n *Node) { n.SetName(nil) },
		"type":          func(n *Node) { n.SetType(String("apiary")) },
		"parentId":      func(n *Node) { n.SetParentID(String("apiary-2")) },
		"location":      func(n *Node) { n.SetLocation(String("")) },
		"clientId":      func(n *Node) { n.SetClientID(nil) },
		"isActive":      func(n *Node) { n.SetIsActive(Bool(false)) },
		"isActive nil":  func(n *Node) { n.SetIsActive(nil) },
		"hwConfigId":    func(n *Node) { n.SetHwConfigID(String("hw-scale-v3")) },
		"hwConfigId ''": func(n *Node) { n.SetHwConfigID(String("")) },
	}

	for name, mod := range mods {
		t.Run(name, func(t *testing.T) {
			c := fullNode()
			mod(&c)
			if a.Equal(c) || c.Equal(a) {
				t.Error("modified node is equal")
			}
			if bytes.Equal(a.Hash(), c.Hash()) {
				t.Error("modified node has same hash")
			}
		})
	}
}

func TestEqualUnsetVsEmpty(t *testing.T) {
	a := Node{Name: String("")}
	b := Node{}

	if a.Equal(b) {
		t.Fatal("empty string equals unset")
	}

	if bytes.Equal(a.Hash(), b.Hash()) {
		t.Fatal("empty string hashes like unset")
	}
}

func TestHashFieldBoundaries(t *testing.T) {
	a := Node{ID: String("ab"), Name: String("c")}
	b := Node{ID: String("a"), Name: String("bc")}

	if bytes.Equal(a.Hash(), b.Hash()) {
		t.Fatal("hash does not separate fields")
	}
}

func TestString(t *testing.T) {
	n := fullNode()
	s := n.String()

	for _, v := range []string{"8d1b4a9e", "Hive 7", "hive", "apiary-1",
		"57.0N 24.1E", "client-42", "true", "hw-scale-v2"} {
		if !strings.Contains(s, v) {
			t.Errorf("string does not contain %q: %v", v, s)
		}
	}

	empty := Node{}.String()
	if !strings.Contains(empty, unsetText) {
		t.Error("unset fields not shown: ", empty)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	cases := map[string]Node{
		"all set":       fullNode(),
		"all unset":     {},
		"id and parent": {ID: String("n1"), ParentID: String("n0")},
		"inactive":      {ID: String("n2"), IsActive: Bool(false)},
		"empty strings": {Name: String(""), Location: String("")},
	}

	for name, n := range cases {
		t.Run(name, func(t *testing.T) {
			d, err := json.Marshal(n)
			if err != nil {
				t.Fatal("Error marshalling: ", err)
			}

			var out Node
			if err := json.Unmarshal(d, &out); err != nil {
				t.Fatal("Error unmarshalling: ", err)
			}

			if !out.Equal(n) {
				t.Errorf("round trip failed, exp: %v, got: %v", n, out)
			}
		})
	}
}

func TestJSONKeys(t *testing.T) {
	d, err := json.Marshal(fullNode())
	if err != nil {
		t.Fatal("Error marshalling: ", err)
	}

	var m map[string]any
	if err := json.Unmarshal(d, &m); err != nil {
		t.Fatal("Error unmarshalling: ", err)
	}

	for _, k := range []string{"id", "name", "type", "parentId", "location",
		"clientId", "isActive", "hwConfigId"} {
		if _, ok := m[k]; !ok {
			t.Errorf("key %v missing in %s", k, d)
		}
	}

	if len(m) != 8 {
		t.Errorf("expected 8 keys, got %v", len(m))
	}

	d, _ = json.Marshal(Node{ID: String("x")})
	if string(d) != `{"id":"x"}` {
		t.Error("unset fields are not omitted: ", string(d))
	}
}

func TestJSONNullIsUnset(t *testing.T) {
	var n Node
	err := json.Unmarshal([]byte(`{"id":"a","parentId":null,"isActive":null}`), &n)
	if err != nil {
		t.Fatal("Error unmarshalling: ", err)
	}

	if !n.Equal(Node{ID: String("a")}) {
		t.Fatal("null not treated as unset: ", n)
	}
}

func TestNodesSortFind(t *testing.T) {
	nodes := Nodes{
		{ID: String("c")},
		{ID: String("a")},
		{Name: String("no id")},
		{ID: String("b")},
	}

	nodes.Sort()

	exp := []string{"", "a", "b", "c"}
	for i, n := range nodes {
		id, _ := n.GetID()
		if id != exp[i] {
			t.Errorf("index %v: exp %v, got %v", i, exp[i], id)
		}
	}

	if _, ok := nodes.Find("b"); !ok {
		t.Error("did not find b")
	}

	if _, ok := nodes.Find("z"); ok {
		t.Error("found z")
	}
}

func TestDesc(t *testing.T) {
	if d := (Node{ID: String("x"), Name: String("Hive")}).Desc(); d != "Hive" {
		t.Error("expected name, got: ", d)
	}

	if d := (Node{ID: String("x")}).Desc(); d != "x" {
		t.Error("expected id, got: ", d)
	}
}
