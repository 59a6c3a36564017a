package client_test

import (
	"errors"
	"testing"

	"github.com/beemon/hivenode/client"
	"github.com/beemon/hivenode/data"
	hnats "github.com/beemon/hivenode/nats"
	"github.com/beemon/hivenode/server"
	"github.com/goccy/go-yaml"
	"github.com/google/go-cmp/cmp"
	"github.com/nats-io/nats.go"
)

func startServer(t *testing.T) *nats.Conn {
	t.Helper()

	s, stop, err := server.TestServer()
	if err != nil {
		if stop != nil {
			stop()
		}
		t.Fatal("Error starting test server: ", err)
	}

	t.Cleanup(stop)

	return s.Nc()
}

func create(t *testing.T, nc *nats.Conn, nodes ...data.Node) {
	t.Helper()

	for _, n := range nodes {
		if _, err := hnats.CreateNode(nc, n); err != nil {
			t.Fatal("Error creating node: ", err)
		}
	}
}

func TestExportNodes(t *testing.T) {
	nc := startServer(t)

	create(t, nc,
		data.Node{ID: data.String("apiary-1"), Type: data.String("apiary"), Name: data.String("Home")},
		data.Node{ID: data.String("hive-2"), Type: data.String("hive"), ParentID: data.String("apiary-1")},
		data.Node{ID: data.String("hive-1"), Type: data.String("hive"), ParentID: data.String("apiary-1"),
			IsActive: data.Bool(true)},
		data.Node{ID: data.String("scale-1"), Type: data.String("scale"), ParentID: data.String("hive-1")},
	)

	y, err := client.ExportNodes(nc, "apiary-1")
	if err != nil {
		t.Fatal("Error exporting nodes: ", err)
	}

	// convert back to nodes and check a few
	var exp client.Export

	err = yaml.Unmarshal(y, &exp)
	if err != nil {
		t.Fatal("Unmarshal error: ", err)
	}

	if len(exp.Nodes) != 1 {
		t.Fatal("expected one top level node, got: ", len(exp.Nodes))
	}

	top := exp.Nodes[0]
	if typ, _ := top.GetType(); typ != "apiary" {
		t.Fatal("top level node should be apiary")
	}

	if len(top.Children) != 2 {
		t.Fatal("expected 2 hives, got: ", len(top.Children))
	}

	// children are sorted by ID and parent is implied
	exp1 := data.Node{ID: data.String("hive-1"), Type: data.String("hive"), IsActive: data.Bool(true)}
	if !top.Children[0].Equal(exp1) {
		t.Fatal("first child not correct: ", top.Children[0].Node)
	}

	if len(top.Children[0].Children) != 1 {
		t.Fatal("scale not exported")
	}
}

func TestExportAllRoots(t *testing.T) {
	nc := startServer(t)

	create(t, nc,
		data.Node{ID: data.String("b"), Type: data.String("apiary")},
		data.Node{ID: data.String("a"), Type: data.String("apiary")},
		data.Node{ID: data.String("a1"), Type: data.String("hive"), ParentID: data.String("a")},
	)

	exp, err := client.ExportTree(nc, "")
	if err != nil {
		t.Fatal("Error exporting: ", err)
	}

	var got []string
	for _, n := range exp.Nodes {
		id, _ := n.GetID()
		got = append(got, id)
	}

	if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
		t.Fatal("root nodes not correct: ", diff)
	}
}

var importYaml = `
nodes:
  - id: hive-9
    type: hive
    name: Imported hive
    isActive: false
    children:
      - type: scale
        hwConfigId: hw-3
`

func TestImportNodes(t *testing.T) {
	nc := startServer(t)

	create(t, nc, data.Node{ID: data.String("apiary-1"), Type: data.String("apiary")})

	err := client.ImportNodes(nc, "apiary-1", []byte(importYaml))
	if err != nil {
		t.Fatal("Error importing: ", err)
	}

	hive, err := hnats.GetNode(nc, "hive-9")
	if err != nil {
		t.Fatal("Error getting imported hive: ", err)
	}

	exp := data.Node{
		ID:       data.String("hive-9"),
		Type:     data.String("hive"),
		Name:     data.String("Imported hive"),
		ParentID: data.String("apiary-1"),
		IsActive: data.Bool(false),
	}

	if !hive.Equal(exp) {
		t.Fatal("Imported hive not correct: ", hive)
	}

	children, err := hnats.GetNodeChildren(nc, "hive-9")
	if err != nil {
		t.Fatal("Error getting children: ", err)
	}

	if len(children) != 1 {
		t.Fatal("Expected 1 child, got: ", len(children))
	}

	if _, ok := children[0].GetID(); !ok {
		t.Fatal("Imported scale did not get an ID")
	}

	if hw, _ := children[0].GetHwConfigID(); hw != "hw-3" {
		t.Fatal("Imported scale hwConfigId not correct: ", hw)
	}
}

func TestImportMissingParent(t *testing.T) {
	nc := startServer(t)

	err := client.ImportNodes(nc, "nope", []byte(importYaml))
	if !errors.Is(err, data.ErrParentNotFound) {
		t.Fatal("Import under missing parent should fail, got: ", err)
	}

	if _, err := hnats.GetNode(nc, "hive-9"); !errors.Is(err, data.ErrNodeNotFound) {
		t.Fatal("hive-9 should not exist, got: ", err)
	}
}

func TestImportConflictsCreateNothing(t *testing.T) {
	nc := startServer(t)

	create(t, nc, data.Node{ID: data.String("apiary-1"), Type: data.String("apiary")})

	if err := client.ImportNodes(nc, "apiary-1", []byte(importYaml)); err != nil {
		t.Fatal("Error importing: ", err)
	}

	before, err := client.ExportTree(nc, "")
	if err != nil {
		t.Fatal("Error exporting: ", err)
	}

	tests := []struct {
		name string
		yaml string
	}{
		{"same file again", importYaml},
		{"existing id below new node", `
nodes:
  - id: hive-10
    type: hive
    children:
      - id: scale-10
        type: scale
      - id: hive-9
        type: scale
`},
		{"id listed twice", `
nodes:
  - id: hive-11
    type: hive
    children:
      - id: scale-11
        type: scale
  - id: scale-11
    type: scale
`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := client.ImportNodes(nc, "apiary-1", []byte(test.yaml))
			if !errors.Is(err, data.ErrNodeExists) {
				t.Fatal("Expected ErrNodeExists, got: ", err)
			}

			after, err := client.ExportTree(nc, "")
			if err != nil {
				t.Fatal("Error exporting: ", err)
			}

			if diff := cmp.Diff(before, after); diff != "" {
				t.Fatal("Failed import changed the store: ", diff)
			}
		})
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	nc := startServer(t)

	create(t, nc,
		data.Node{ID: data.String("apiary-1"), Type: data.String("apiary"), Location: data.String("north field")},
		data.Node{ID: data.String("hive-1"), Type: data.String("hive"), ParentID: data.String("apiary-1")},
	)

	y, err := client.ExportNodes(nc, "apiary-1")
	if err != nil {
		t.Fatal("Error exporting: ", err)
	}

	nc2 := startServer(t)

	if err := client.ImportNodes(nc2, "", y); err != nil {
		t.Fatal("Error importing: ", err)
	}

	exp, err := client.ExportTree(nc, "apiary-1")
	if err != nil {
		t.Fatal("Error exporting original: ", err)
	}

	got, err := client.ExportTree(nc2, "apiary-1")
	if err != nil {
		t.Fatal("Error exporting imported: ", err)
	}

	if diff := cmp.Diff(exp, got); diff != "" {
		t.Fatal("Imported tree does not match: ", diff)
	}
}

func TestDuplicateNode(t *testing.T) {
	nc := startServer(t)

	create(t, nc,
		data.Node{ID: data.String("apiary-1"), Type: data.String("apiary")},
		data.Node{ID: data.String("apiary-2"), Type: data.String("apiary")},
		data.Node{ID: data.String("hive-1"), Type: data.String("hive"), ParentID: data.String("apiary-1")},
		data.Node{ID: data.String("scale-1"), Type: data.String("scale"), ParentID: data.String("hive-1")},
	)

	newID, err := client.DuplicateNode(nc, "hive-1", "apiary-2")
	if err != nil {
		t.Fatal("Error duplicating: ", err)
	}

	if newID == "hive-1" {
		t.Fatal("Duplicate should get a new ID")
	}

	dup, err := hnats.GetNode(nc, newID)
	if err != nil {
		t.Fatal("Error getting duplicate: ", err)
	}

	if p, _ := dup.GetParentID(); p != "apiary-2" {
		t.Fatal("Duplicate parent not correct: ", p)
	}

	children, err := hnats.GetNodeChildren(nc, newID)
	if err != nil {
		t.Fatal("Error getting duplicate children: ", err)
	}

	if len(children) != 1 {
		t.Fatal("Duplicate children not copied")
	}

	if id, _ := children[0].GetID(); id == "scale-1" {
		t.Fatal("Duplicated child kept original ID")
	}
}
