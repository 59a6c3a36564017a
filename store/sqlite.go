package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/beemon/hivenode/data"
	"github.com/google/uuid"

	// tell sql to use sqlite
	_ "modernc.org/sqlite"
)

const dbVersion = 1

// Meta contains metadata about the database
type Meta struct {
	ID         int
	Version    int
	InstanceID string
}

// DbSqlite represents a SQLite data store
type DbSqlite struct {
	db   *sql.DB
	meta Meta
}

// NewSqliteDb creates a new Sqlite data store. dbFile can be ":memory:"
// for a store that is discarded when closed. If id is blank, a UUID is
// used for the instance ID.
func NewSqliteDb(dbFile string, id string) (*DbSqlite, error) {
	ret := &DbSqlite{}

	db, err := sql.Open("sqlite", dbFile)
	if err != nil {
		return nil, err
	}

	// writes are serialized through a single connection. This also keeps
	// :memory: stores on one database as every connection to :memory: is a
	// separate database.
	db.SetMaxOpenConns(1)

	ret.db = db

	if err := ret.initTables(); err != nil {
		return nil, err
	}

	err = db.QueryRow("SELECT id, version, instance_id FROM meta").Scan(
		&ret.meta.ID, &ret.meta.Version, &ret.meta.InstanceID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("Error querying meta: %v", err)
	}

	if ret.meta.InstanceID == "" {
		if id == "" {
			id = uuid.New().String()
		}

		ret.meta = Meta{Version: dbVersion, InstanceID: id}

		log.Println("Store: initialize instance", id)
		_, err = db.Exec(`INSERT INTO meta(id, version, instance_id) VALUES(0, ?, ?)`,
			dbVersion, id)
		if err != nil {
			return nil, fmt.Errorf("Error initializing meta: %v", err)
		}
	}

	return ret, nil
}

func (sdb *DbSqlite) initTables() error {
	_, err := sdb.db.Exec(`CREATE TABLE IF NOT EXISTS meta (id INT NOT NULL PRIMARY KEY,
				version INT,
				instance_id TEXT)`)
	if err != nil {
		return fmt.Errorf("Error creating meta table: %v", err)
	}

	_, err = sdb.db.Exec(`CREATE TABLE IF NOT EXISTS nodes (id TEXT NOT NULL PRIMARY KEY,
				name TEXT,
				type TEXT,
				parent_id TEXT,
				location TEXT,
				client_id TEXT,
				is_active INT,
				hw_config_id TEXT)`)
	if err != nil {
		return fmt.Errorf("Error creating nodes table: %v", err)
	}

	_, err = sdb.db.Exec(`CREATE INDEX IF NOT EXISTS nodes_parent ON nodes(parent_id)`)
	if err != nil {
		return fmt.Errorf("Error creating nodes index: %v", err)
	}

	return nil
}

// InstanceID returns the ID of this store instance
func (sdb *DbSqlite) InstanceID() string {
	return sdb.meta.InstanceID
}

// Close the db
func (sdb *DbSqlite) Close() error {
	return sdb.db.Close()
}

// Reset permanently removes all nodes
func (sdb *DbSqlite) Reset() error {
	_, err := sdb.db.Exec("DELETE FROM nodes")
	return err
}

const nodeColumns = "id, name, type, parent_id, location, client_id, is_active, hw_config_id"

type rowScanner interface {
	Scan(dest ...any) error
}

// queryer is implemented by *sql.DB and *sql.Tx so reads can run inside
// or outside of a write transaction
type queryer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

func scanNode(row rowScanner) (data.Node, error) {
	var id string
	var name, typ, parent, location, client, hwConfig sql.NullString
	var active sql.NullBool

	err := row.Scan(&id, &name, &typ, &parent, &location, &client, &active, &hwConfig)
	if err != nil {
		return data.Node{}, err
	}

	fromNull := func(v sql.NullString) *string {
		if !v.Valid {
			return nil
		}
		return data.String(v.String)
	}

	n := data.Node{
		ID:         data.String(id),
		Name:       fromNull(name),
		Type:       fromNull(typ),
		ParentID:   fromNull(parent),
		Location:   fromNull(location),
		ClientID:   fromNull(client),
		HwConfigID: fromNull(hwConfig),
	}

	if active.Valid {
		n.IsActive = data.Bool(active.Bool)
	}

	return n, nil
}

func nodeArgs(n data.Node) []any {
	str := func(v *string) any {
		if v == nil {
			return nil
		}
		return *v
	}

	var active any
	if n.IsActive != nil {
		active = *n.IsActive
	}

	return []any{str(n.ID), str(n.Name), str(n.Type), str(n.ParentID),
		str(n.Location), str(n.ClientID), active, str(n.HwConfigID)}
}

func queryNodes(q queryer, query string, args ...any) (data.Nodes, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := data.Nodes{}

	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		ret = append(ret, n)
	}

	return ret, rows.Err()
}

// write runs f in a transaction. The transaction is rolled back if f
// returns an error.
func (sdb *DbSqlite) write(f func(tx *sql.Tx) error) error {
	tx, err := sdb.db.Begin()
	if err != nil {
		return fmt.Errorf("Error starting transaction: %v", err)
	}

	if err := f(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Println("Store: Error rolling back transaction:", rbErr)
		}
		return err
	}

	return tx.Commit()
}

func getNode(q queryer, id string) (data.Node, error) {
	row := q.QueryRow("SELECT "+nodeColumns+" FROM nodes WHERE id=?", id)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return data.Node{}, fmt.Errorf("%w: %v", data.ErrNodeNotFound, id)
	}

	return n, err
}

// Node returns the node with the given ID
func (sdb *DbSqlite) Node(id string) (data.Node, error) {
	return getNode(sdb.db, id)
}

func exists(q queryer, id string) (bool, error) {
	var count int
	err := q.QueryRow("SELECT COUNT(*) FROM nodes WHERE id=?", id).Scan(&count)
	return count > 0, err
}

func getNodes(q queryer, f data.NodeFilter) (data.Nodes, error) {
	var where []string
	var args []any

	if f.Roots {
		where = append(where, "parent_id IS NULL")
	}
	if f.ParentID != nil {
		where = append(where, "parent_id=?")
		args = append(args, *f.ParentID)
	}
	if f.ClientID != nil {
		where = append(where, "client_id=?")
		args = append(args, *f.ClientID)
	}
	if f.Type != nil {
		where = append(where, "type=?")
		args = append(args, *f.Type)
	}
	if f.Active != nil {
		where = append(where, "is_active=?")
		args = append(args, *f.Active)
	}

	query := "SELECT " + nodeColumns + " FROM nodes"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	return queryNodes(q, query, args...)
}

// Nodes returns all nodes matching the filter, ordered by ID
func (sdb *DbSqlite) Nodes(f data.NodeFilter) (data.Nodes, error) {
	return getNodes(sdb.db, f)
}

func children(q queryer, id string) (data.Nodes, error) {
	if _, err := getNode(q, id); err != nil {
		return nil, err
	}

	return getNodes(q, data.NodeFilter{ParentID: &id})
}

// Children returns the immediate children of a node
func (sdb *DbSqlite) Children(id string) (data.Nodes, error) {
	return children(sdb.db, id)
}

// Roots returns all nodes without a parent
func (sdb *DbSqlite) Roots() (data.Nodes, error) {
	return sdb.Nodes(data.NodeFilter{Roots: true})
}

func ancestors(q queryer, id string) (data.Nodes, error) {
	n, err := getNode(q, id)
	if err != nil {
		return nil, err
	}

	ret := data.Nodes{}
	visited := map[string]bool{id: true}

	for {
		parent, ok := n.GetParentID()
		if !ok {
			return ret, nil
		}

		if visited[parent] {
			return ret, fmt.Errorf("%w: %v", data.ErrParentCycle, parent)
		}
		visited[parent] = true

		n, err = getNode(q, parent)
		if err != nil {
			// dangling parent reference ends the chain
			if errors.Is(err, data.ErrNodeNotFound) {
				return ret, nil
			}
			return nil, err
		}

		ret = append(ret, n)
	}
}

// Ancestors returns the parent chain of a node, nearest parent first
func (sdb *DbSqlite) Ancestors(id string) (data.Nodes, error) {
	return ancestors(sdb.db, id)
}

// Descendants returns all nodes below id in top-down order, not including
// the node itself
func (sdb *DbSqlite) Descendants(id string) (data.Nodes, error) {
	if _, err := sdb.Node(id); err != nil {
		return nil, err
	}

	ret := data.Nodes{}
	queue := []string{id}
	visited := map[string]bool{id: true}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		children, err := sdb.Nodes(data.NodeFilter{ParentID: &cur})
		if err != nil {
			return nil, err
		}

		for _, c := range children {
			cID, _ := c.GetID()
			if visited[cID] {
				continue
			}
			visited[cID] = true
			ret = append(ret, c)
			queue = append(queue, cID)
		}
	}

	return ret, nil
}

// checkParent verifies the parent of n exists and that n is not one of
// the ancestors of the parent
func checkParent(q queryer, n data.Node) error {
	parent, ok := n.GetParentID()
	if !ok {
		return nil
	}

	id, _ := n.GetID()
	if parent == id {
		return fmt.Errorf("%w: %v", data.ErrParentCycle, id)
	}

	found, err := exists(q, parent)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %v", data.ErrParentNotFound, parent)
	}

	parents, err := ancestors(q, parent)
	if err != nil {
		return err
	}

	for _, a := range parents {
		if aID, _ := a.GetID(); aID == id {
			return fmt.Errorf("%w: %v", data.ErrParentCycle, id)
		}
	}

	return nil
}

// Insert adds a new node. If the node ID is not set, a UUID is assigned.
// The stored node is returned.
func (sdb *DbSqlite) Insert(n data.Node) (data.Node, error) {
	n = n.Copy()
	if _, ok := n.GetID(); !ok {
		n.SetID(data.String(uuid.New().String()))
	}

	id, _ := n.GetID()
	if !data.ValidID(id) {
		return data.Node{}, fmt.Errorf("%w: %q", data.ErrInvalidID, id)
	}

	err := sdb.write(func(tx *sql.Tx) error {
		found, err := exists(tx, id)
		if err != nil {
			return err
		}
		if found {
			return fmt.Errorf("%w: %v", data.ErrNodeExists, id)
		}

		if err := checkParent(tx, n); err != nil {
			return err
		}

		_, err = tx.Exec("INSERT INTO nodes("+nodeColumns+") VALUES(?, ?, ?, ?, ?, ?, ?, ?)",
			nodeArgs(n)...)
		if err != nil {
			return fmt.Errorf("Error inserting node: %v", err)
		}

		return nil
	})
	if err != nil {
		return data.Node{}, err
	}

	return n, nil
}

// update writes all fields of n. The node must exist.
func update(tx *sql.Tx, n data.Node) error {
	id, _ := n.GetID()

	if err := checkParent(tx, n); err != nil {
		return err
	}

	args := nodeArgs(n)
	res, err := tx.Exec(`UPDATE nodes SET name=?, type=?, parent_id=?, location=?,
		client_id=?, is_active=?, hw_config_id=? WHERE id=?`,
		append(args[1:], args[0])...)
	if err != nil {
		return fmt.Errorf("Error updating node: %v", err)
	}

	count, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Error updating node: %v", err)
	}
	if count < 1 {
		return fmt.Errorf("%w: %v", data.ErrNodeNotFound, id)
	}

	return nil
}

// Update replaces all fields of an existing node
func (sdb *DbSqlite) Update(n data.Node) (data.Node, error) {
	if _, ok := n.GetID(); !ok {
		return data.Node{}, fmt.Errorf("%w: node without id", data.ErrNodeNotFound)
	}

	n = n.Copy()
	if err := sdb.write(func(tx *sql.Tx) error {
		return update(tx, n)
	}); err != nil {
		return data.Node{}, err
	}

	return n, nil
}

// ApplyPoints updates individual fields of a node. The id field cannot be
// changed.
func (sdb *DbSqlite) ApplyPoints(id string, points data.Points) (data.Node, error) {
	var ret data.Node

	err := sdb.write(func(tx *sql.Tx) error {
		n, err := getNode(tx, id)
		if err != nil {
			return err
		}

		if err := n.ApplyPoints(points); err != nil {
			return err
		}

		if newID, ok := n.GetID(); !ok || newID != id {
			return fmt.Errorf("%w: %v", data.ErrNodeIDChange, id)
		}

		if err := update(tx, n); err != nil {
			return err
		}

		ret = n
		return nil
	})
	if err != nil {
		return data.Node{}, err
	}

	return ret, nil
}

// Move changes the parent of a node. A blank newParent makes the node a
// root node.
func (sdb *DbSqlite) Move(id, newParent string) (data.Node, error) {
	var p data.Point
	if newParent == "" {
		p = data.UnsetPoint(data.PointTypeParentID)
	} else {
		p = data.Point{Type: data.PointTypeParentID, Text: newParent}
	}

	return sdb.ApplyPoints(id, data.Points{p})
}

// Delete removes a node and returns it. Nodes with children can not be
// deleted.
func (sdb *DbSqlite) Delete(id string) (data.Node, error) {
	var ret data.Node

	err := sdb.write(func(tx *sql.Tx) error {
		n, err := getNode(tx, id)
		if err != nil {
			return err
		}

		c, err := getNodes(tx, data.NodeFilter{ParentID: &id})
		if err != nil {
			return err
		}

		if len(c) > 0 {
			return fmt.Errorf("%w: %v", data.ErrNodeHasChildren, id)
		}

		if _, err := tx.Exec("DELETE FROM nodes WHERE id=?", id); err != nil {
			return fmt.Errorf("Error deleting node: %v", err)
		}

		ret = n
		return nil
	})
	if err != nil {
		return data.Node{}, err
	}

	return ret, nil
}
