package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/beemon/hivenode/data"
	hnats "github.com/beemon/hivenode/nats"
	"github.com/nats-io/nats.go"
)

// Store implements the hivenode NATS api
type Store struct {
	params        Params
	nc            *nats.Conn
	subscriptions map[string]*nats.Subscription
	db            *DbSqlite

	chStop      chan struct{}
	chWaitStart chan struct{}
}

// Params are used to configure a store
type Params struct {
	File string
	Nc   *nats.Conn
	// ID for the instance -- it is only used when initializing the store.
	// ID must be unique. If ID is not set, then a UUID is generated.
	ID string
}

// NewStore creates a new NATS client for handling node requests
func NewStore(p Params) (*Store, error) {
	db, err := NewSqliteDb(p.File, p.ID)
	if err != nil {
		return nil, fmt.Errorf("error opening db: %v", err)
	}

	return &Store{
		params:        p,
		nc:            p.Nc,
		db:            db,
		subscriptions: make(map[string]*nats.Subscription),
		chStop:        make(chan struct{}),
		chWaitStart:   make(chan struct{}),
	}, nil
}

// Run subscribes to node requests and blocks until Stop is called
func (st *Store) Run() error {
	handlers := map[string]nats.MsgHandler{
		hnats.SubjectNode("*"):          st.handleNode,
		hnats.SubjectNodeChildren("*"):  st.handleNodeChildren,
		hnats.SubjectNodeAncestors("*"): st.handleNodeAncestors,
		hnats.SubjectNodePoints("*"):    st.handleNodePoints,
		hnats.SubjectNodeUpdate("*"):    st.handleNodeUpdate,
		hnats.SubjectNodeMove("*"):      st.handleNodeMove,
		hnats.SubjectNodeDelete("*"):    st.handleNodeDelete,
		hnats.SubjectNodesCreate:        st.handleNodesCreate,
		hnats.SubjectNodesList:          st.handleNodesList,
	}

	for subject, h := range handlers {
		sub, err := st.nc.Subscribe(subject, h)
		if err != nil {
			st.unsubscribe()
			return fmt.Errorf("subscribe %v error: %w", subject, err)
		}
		st.subscriptions[subject] = sub
	}

	// make sure the subscriptions are registered with the server before
	// anyone waiting on start sends requests
	if err := st.nc.Flush(); err != nil {
		st.unsubscribe()
		return fmt.Errorf("flush error: %w", err)
	}

done:
	for {
		select {
		case <-st.chWaitStart:
			// don't need to do anything as simply reading this
			// channel will unblock the caller
		case <-st.chStop:
			log.Println("Store stopped")
			break done
		}
	}

	st.unsubscribe()

	return st.db.Close()
}

func (st *Store) unsubscribe() {
	for k, sub := range st.subscriptions {
		err := sub.Unsubscribe()
		if err != nil {
			log.Printf("Error unsubscribing from %v: %v\n", k, err)
		}
		delete(st.subscriptions, k)
	}
}

// Stop the store
func (st *Store) Stop(_ error) {
	close(st.chStop)
}

// WaitStart waits for store to start
func (st *Store) WaitStart(ctx context.Context) error {
	waitDone := make(chan struct{})

	go func() {
		// the following will block until the main store select
		// loop starts
		select {
		case st.chWaitStart <- struct{}{}:
			close(waitDone)
		case <-ctx.Done():
		}
	}()

	select {
	case <-ctx.Done():
		return errors.New("Store wait timeout or canceled")
	case <-waitDone:
		// all is well
		return nil
	}
}

// Reset the store by permanently wiping all data
func (st *Store) Reset() error {
	return st.db.Reset()
}

// subjectNodeID extracts the node ID from node.<id>[.<op>] subjects
func subjectNodeID(subject string) (string, error) {
	chunks := strings.Split(subject, ".")
	if len(chunks) < 2 || chunks[1] == "" {
		return "", fmt.Errorf("Error in message subject: %v", subject)
	}

	return chunks[1], nil
}

// respond sends nodes or the error back to the requester
func (st *Store) respond(msg *nats.Msg, nodes data.Nodes, err error) {
	if msg.Reply == "" {
		// sender is not expecting a reply
		return
	}

	resp := data.NodesResponse{Nodes: nodes}
	if err != nil {
		resp.Error = err.Error()
	}

	d, err := resp.ToPb()
	if err != nil {
		log.Println("Store: Error encoding response:", err)
		return
	}

	err = st.nc.Publish(msg.Reply, d)
	if err != nil {
		log.Println("Store: Error publishing response to node request:", err)
	}
}

func (st *Store) publish(subject string, n data.Node) {
	d, err := n.ToPb()
	if err != nil {
		log.Println("Store: Error encoding node event:", err)
		return
	}

	if err := st.nc.Publish(subject, d); err != nil {
		log.Println("Store: Error publishing node event:", err)
	}
}

func (st *Store) changed(n data.Node) {
	id, _ := n.GetID()
	st.publish(hnats.SubjectNodeChanged(id), n)
}

func (st *Store) handleNode(msg *nats.Msg) {
	id, err := subjectNodeID(msg.Subject)
	if err != nil {
		st.respond(msg, nil, err)
		return
	}

	n, err := st.db.Node(id)
	if err != nil {
		st.respond(msg, nil, err)
		return
	}

	st.respond(msg, data.Nodes{n}, nil)
}

func (st *Store) handleNodeChildren(msg *nats.Msg) {
	id, err := subjectNodeID(msg.Subject)
	if err != nil {
		st.respond(msg, nil, err)
		return
	}

	nodes, err := st.db.Children(id)
	st.respond(msg, nodes, err)
}

func (st *Store) handleNodeAncestors(msg *nats.Msg) {
	id, err := subjectNodeID(msg.Subject)
	if err != nil {
		st.respond(msg, nil, err)
		return
	}

	nodes, err := st.db.Ancestors(id)
	st.respond(msg, nodes, err)
}

func (st *Store) handleNodePoints(msg *nats.Msg) {
	id, err := subjectNodeID(msg.Subject)
	if err != nil {
		st.respond(msg, nil, err)
		return
	}

	points, err := data.PbDecodePoints(msg.Data)
	if err != nil {
		log.Printf("Store: Error decoding points for %v: %v\n", id, err)
		st.respond(msg, nil, fmt.Errorf("error decoding points: %w", err))
		return
	}

	n, err := st.db.ApplyPoints(id, points)
	if err != nil {
		st.respond(msg, nil, err)
		return
	}

	st.changed(n)
	st.respond(msg, data.Nodes{n}, nil)
}

func (st *Store) handleNodeUpdate(msg *nats.Msg) {
	id, err := subjectNodeID(msg.Subject)
	if err != nil {
		st.respond(msg, nil, err)
		return
	}

	n, err := data.PbDecodeNode(msg.Data)
	if err != nil {
		st.respond(msg, nil, fmt.Errorf("error decoding node: %w", err))
		return
	}

	if nID, ok := n.GetID(); !ok || nID != id {
		st.respond(msg, nil, fmt.Errorf("%w: %v", data.ErrNodeIDChange, id))
		return
	}

	n, err = st.db.Update(n)
	if err != nil {
		st.respond(msg, nil, err)
		return
	}

	st.changed(n)
	st.respond(msg, data.Nodes{n}, nil)
}

func (st *Store) handleNodeMove(msg *nats.Msg) {
	id, err := subjectNodeID(msg.Subject)
	if err != nil {
		st.respond(msg, nil, err)
		return
	}

	n, err := st.db.Move(id, string(msg.Data))
	if err != nil {
		st.respond(msg, nil, err)
		return
	}

	st.changed(n)
	st.respond(msg, data.Nodes{n}, nil)
}

func (st *Store) handleNodeDelete(msg *nats.Msg) {
	id, err := subjectNodeID(msg.Subject)
	if err != nil {
		st.respond(msg, nil, err)
		return
	}

	n, err := st.db.Delete(id)
	if err != nil {
		st.respond(msg, nil, err)
		return
	}

	st.publish(hnats.SubjectNodeDeleted(id), n)
	st.respond(msg, nil, nil)
}

func (st *Store) handleNodesCreate(msg *nats.Msg) {
	n, err := data.PbDecodeNode(msg.Data)
	if err != nil {
		st.respond(msg, nil, fmt.Errorf("error decoding node: %w", err))
		return
	}

	n, err = st.db.Insert(n)
	if err != nil {
		st.respond(msg, nil, err)
		return
	}

	st.changed(n)
	st.respond(msg, data.Nodes{n}, nil)
}

func (st *Store) handleNodesList(msg *nats.Msg) {
	var f data.NodeFilter

	if len(msg.Data) > 0 {
		points, err := data.PbDecodePoints(msg.Data)
		if err != nil {
			st.respond(msg, nil, fmt.Errorf("error decoding filter: %w", err))
			return
		}

		f, err = data.NodeFilterFromPoints(points)
		if err != nil {
			st.respond(msg, nil, err)
			return
		}
	}

	nodes, err := st.db.Nodes(f)
	st.respond(msg, nodes, err)
}
