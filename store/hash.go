package store

import (
	"bytes"
	"crypto/md5"
	"fmt"

	"github.com/beemon/hivenode/data"
	"golang.org/x/exp/slices"
)

// TreeHash returns a hash of the node id and everything below it. The hash
// of a node covers its own fields and the hashes of its children, so two
// stores hold the same subtree if the tree hashes match.
func (sdb *DbSqlite) TreeHash(id string) ([]byte, error) {
	n, err := sdb.Node(id)
	if err != nil {
		return nil, err
	}

	return sdb.treeHash(n, make(map[string]bool))
}

func (sdb *DbSqlite) treeHash(n data.Node, visited map[string]bool) ([]byte, error) {
	id, _ := n.GetID()
	if visited[id] {
		return nil, fmt.Errorf("%w: %v", data.ErrParentCycle, id)
	}
	visited[id] = true

	children, err := sdb.Children(id)
	if err != nil {
		return nil, err
	}

	childHashes := make([][]byte, 0, len(children))
	for _, c := range children {
		ch, err := sdb.treeHash(c, visited)
		if err != nil {
			return nil, err
		}
		childHashes = append(childHashes, ch)
	}

	// child hashes are sorted so the result does not depend on query order
	slices.SortFunc(childHashes, bytes.Compare)

	h := md5.New()
	h.Write(n.Hash())
	for _, ch := range childHashes {
		h.Write(ch)
	}

	return h.Sum(nil), nil
}
