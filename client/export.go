package client

import (
	"fmt"
	"log"

	"github.com/beemon/hivenode/data"
	hnats "github.com/beemon/hivenode/nats"
	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
)

// Export is the top level structure of export/import YAML files
type Export struct {
	Nodes []data.NodeTree `yaml:"nodes"`
}

// fetchTree walks the hierarchy below n. The ParentID of children is
// cleared as it is implied by the tree structure.
func fetchTree(nc *nats.Conn, n data.Node, visited map[string]bool) (data.NodeTree, error) {
	id, _ := n.GetID()
	if visited[id] {
		return data.NodeTree{}, fmt.Errorf("%w: %v", data.ErrParentCycle, id)
	}
	visited[id] = true

	ret := data.NodeTree{Node: n}

	children, err := hnats.GetNodeChildren(nc, id)
	if err != nil {
		return data.NodeTree{}, errors.Wrapf(err, "error getting children of %v", id)
	}

	children.Sort()

	for _, c := range children {
		c.SetParentID(nil)
		ct, err := fetchTree(nc, c, visited)
		if err != nil {
			return data.NodeTree{}, err
		}
		ret.Children = append(ret.Children, ct)
	}

	return ret, nil
}

// ExportTree returns the tree below rootID. If rootID is blank, all root
// nodes are exported.
func ExportTree(nc *nats.Conn, rootID string) (Export, error) {
	var tops data.Nodes

	if rootID != "" {
		n, err := hnats.GetNode(nc, rootID)
		if err != nil {
			return Export{}, errors.Wrap(err, "error getting root node")
		}
		tops = data.Nodes{n}
	} else {
		var err error
		tops, err = hnats.GetNodes(nc, data.NodeFilter{Roots: true})
		if err != nil {
			return Export{}, errors.Wrap(err, "error getting root nodes")
		}
		tops.Sort()
	}

	var ret Export
	visited := make(map[string]bool)

	for _, n := range tops {
		t, err := fetchTree(nc, n, visited)
		if err != nil {
			return Export{}, err
		}
		ret.Nodes = append(ret.Nodes, t)
	}

	return ret, nil
}

// ExportNodes is used to export nodes at a particular location to YAML.
// If rootID is blank, the whole hierarchy is exported.
func ExportNodes(nc *nats.Conn, rootID string) ([]byte, error) {
	exp, err := ExportTree(nc, rootID)
	if err != nil {
		return nil, err
	}

	return yaml.Marshal(exp)
}

// assignIDs gives every node without an ID a new UUID
func assignIDs(t *data.NodeTree) {
	if _, ok := t.GetID(); !ok {
		t.SetID(data.String(uuid.New().String()))
	}

	for i := range t.Children {
		assignIDs(&t.Children[i])
	}
}

// newIDs replaces all IDs in the tree with new UUIDs
func newIDs(t *data.NodeTree) {
	t.SetID(data.String(uuid.New().String()))

	for i := range t.Children {
		newIDs(&t.Children[i])
	}
}

// flatten lists the nodes of all trees, parents before children. Top level
// nodes get parentID, or are made root nodes if parentID is blank.
func flatten(parentID string, trees []data.NodeTree) data.Nodes {
	var parent *string
	if parentID != "" {
		parent = &parentID
	}

	var ret data.Nodes
	for _, t := range trees {
		if parent == nil {
			t.SetParentID(nil)
		}
		ret = append(ret, t.Flatten(parent)...)
	}

	return ret
}

// checkCreate verifies nodes can be created without conflicts: IDs must be
// valid and unique, none may exist yet and parentID must exist.
func checkCreate(nc *nats.Conn, parentID string, nodes data.Nodes) error {
	if parentID != "" {
		if _, err := hnats.GetNode(nc, parentID); err != nil {
			if errors.Is(err, data.ErrNodeNotFound) {
				return fmt.Errorf("%w: %v", data.ErrParentNotFound, parentID)
			}
			return errors.Wrap(err, "error getting parent node")
		}
	}

	seen := make(map[string]bool)

	for _, n := range nodes {
		id, _ := n.GetID()
		if !data.ValidID(id) {
			return fmt.Errorf("%w: %q", data.ErrInvalidID, id)
		}

		if seen[id] {
			return fmt.Errorf("%w: %v is listed more than once", data.ErrNodeExists, id)
		}
		seen[id] = true

		_, err := hnats.GetNode(nc, id)
		switch {
		case err == nil:
			return fmt.Errorf("%w: %v", data.ErrNodeExists, id)
		case !errors.Is(err, data.ErrNodeNotFound):
			return errors.Wrapf(err, "error checking node %v", id)
		}
	}

	return nil
}

// createNodes creates nodes in order. If a create fails, the nodes created
// so far are deleted again, children first.
func createNodes(nc *nats.Conn, nodes data.Nodes) error {
	var created []string

	for _, n := range nodes {
		id, _ := n.GetID()
		if _, err := hnats.CreateNode(nc, n); err != nil {
			for i := len(created) - 1; i >= 0; i-- {
				if err := hnats.DeleteNode(nc, created[i]); err != nil {
					log.Printf("Error removing node %v after failed create: %v\n",
						created[i], err)
				}
			}
			return errors.Wrapf(err, "error creating node %v", id)
		}
		created = append(created, id)
	}

	return nil
}

// ImportNodes is used to import nodes from YAML created by ExportNodes.
// Top level nodes are created under parentID, or as root nodes if parentID
// is blank. IDs in the file are kept, nodes without an ID get a new one.
// Nothing is created if any ID in the file is already in use.
func ImportNodes(nc *nats.Conn, parentID string, yamlData []byte) error {
	var imp Export

	if err := yaml.Unmarshal(yamlData, &imp); err != nil {
		return errors.Wrap(err, "error parsing import data")
	}

	if len(imp.Nodes) < 1 {
		return errors.New("no nodes in import data")
	}

	for i := range imp.Nodes {
		assignIDs(&imp.Nodes[i])
	}

	nodes := flatten(parentID, imp.Nodes)

	if err := checkCreate(nc, parentID, nodes); err != nil {
		return err
	}

	return createNodes(nc, nodes)
}

// DuplicateNode copies the node id and everything below it to newParent.
// All copied nodes get new IDs. The ID of the new top node is returned.
func DuplicateNode(nc *nats.Conn, id, newParent string) (string, error) {
	exp, err := ExportTree(nc, id)
	if err != nil {
		return "", err
	}

	t := exp.Nodes[0]
	newIDs(&t)

	nodes := flatten(newParent, []data.NodeTree{t})

	if err := checkCreate(nc, newParent, nodes); err != nil {
		return "", err
	}

	if err := createNodes(nc, nodes); err != nil {
		return "", err
	}

	newID, _ := t.GetID()
	return newID, nil
}
