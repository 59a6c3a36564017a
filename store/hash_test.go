package store

import (
	"bytes"
	"testing"

	"github.com/beemon/hivenode/data"
)

func TestTreeHash(t *testing.T) {
	db1 := newTestDb(t)
	populate(t, db1)

	db2 := newTestDb(t)
	populate(t, db2)

	h1, err := db1.TreeHash("apiary-1")
	if err != nil {
		t.Fatal("Error hashing tree: ", err)
	}

	h2, err := db2.TreeHash("apiary-1")
	if err != nil {
		t.Fatal("Error hashing tree: ", err)
	}

	if !bytes.Equal(h1, h2) {
		t.Fatal("Same trees should have the same hash")
	}

	hive1Before, err := db1.TreeHash("hive-1")
	if err != nil {
		t.Fatal("Error hashing tree: ", err)
	}

	hive2Before, err := db1.TreeHash("hive-2")
	if err != nil {
		t.Fatal("Error hashing tree: ", err)
	}

	// change a leaf, all hashes up the chain change
	_, err = db1.ApplyPoints("scale-1", data.Points{{Type: data.PointTypeName, Text: "scale A"}})
	if err != nil {
		t.Fatal("Error applying points: ", err)
	}

	h1, err = db1.TreeHash("apiary-1")
	if err != nil {
		t.Fatal("Error hashing tree: ", err)
	}

	if bytes.Equal(h1, h2) {
		t.Fatal("Hash should change when a descendant changes")
	}

	hive1After, _ := db1.TreeHash("hive-1")
	if bytes.Equal(hive1Before, hive1After) {
		t.Fatal("Parent of changed node should have a new hash")
	}

	hive2After, _ := db1.TreeHash("hive-2")
	if !bytes.Equal(hive2Before, hive2After) {
		t.Fatal("Sibling hash should not change")
	}

	if _, err := db1.TreeHash("nope"); err == nil {
		t.Fatal("Expected error for missing node")
	}
}
