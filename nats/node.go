package nats

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/beemon/hivenode/data"
	natsgo "github.com/nats-io/nats.go"
)

// RequestTimeout is used for all node requests
var RequestTimeout = 20 * time.Second

func request(nc *natsgo.Conn, subject string, payload []byte) (data.Nodes, error) {
	msg, err := nc.Request(subject, payload, RequestTimeout)
	if err != nil {
		return nil, err
	}

	resp, err := data.PbDecodeNodesResponse(msg.Data)
	if err != nil {
		return nil, fmt.Errorf("Error decoding response: %v", err)
	}

	if resp.Error != "" {
		return nil, data.ErrorFromText(resp.Error)
	}

	return resp.Nodes, nil
}

// checkID rejects ids that would change the meaning of a subject, for
// example "a.delete" or "a.*".
func checkID(id string) error {
	if !data.ValidID(id) {
		return fmt.Errorf("%w: %q", data.ErrInvalidID, id)
	}
	return nil
}

func requestOne(nc *natsgo.Conn, subject string, payload []byte) (data.Node, error) {
	nodes, err := request(nc, subject, payload)
	if err != nil {
		return data.Node{}, err
	}

	if len(nodes) < 1 {
		return data.Node{}, errors.New("no node in response")
	}

	return nodes[0], nil
}

// GetNode over NATS
func GetNode(nc *natsgo.Conn, id string) (data.Node, error) {
	if err := checkID(id); err != nil {
		return data.Node{}, err
	}
	return requestOne(nc, SubjectNode(id), nil)
}

// GetNodes returns all nodes matching the filter
func GetNodes(nc *natsgo.Conn, f data.NodeFilter) (data.Nodes, error) {
	payload, err := f.ToPoints().ToPb()
	if err != nil {
		return nil, err
	}

	return request(nc, SubjectNodesList, payload)
}

// GetNodeChildren over NATS (immediate children only, not recursive)
func GetNodeChildren(nc *natsgo.Conn, id string) (data.Nodes, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return request(nc, SubjectNodeChildren(id), nil)
}

// GetNodeAncestors returns the parent chain of a node, nearest parent first
func GetNodeAncestors(nc *natsgo.Conn, id string) (data.Nodes, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return request(nc, SubjectNodeAncestors(id), nil)
}

// CreateNode creates a node. If the ID is not set, the store assigns one.
// The stored node is returned.
func CreateNode(nc *natsgo.Conn, n data.Node) (data.Node, error) {
	payload, err := n.ToPb()
	if err != nil {
		return data.Node{}, err
	}

	return requestOne(nc, SubjectNodesCreate, payload)
}

// UpdateNode replaces all fields of a node
func UpdateNode(nc *natsgo.Conn, n data.Node) (data.Node, error) {
	id, ok := n.GetID()
	if !ok {
		return data.Node{}, errors.New("node ID is not set")
	}

	if err := checkID(id); err != nil {
		return data.Node{}, err
	}

	payload, err := n.ToPb()
	if err != nil {
		return data.Node{}, err
	}

	return requestOne(nc, SubjectNodeUpdate(id), payload)
}

// SendNodePoints updates individual fields of a node and returns the
// updated node
func SendNodePoints(nc *natsgo.Conn, id string, points data.Points) (data.Node, error) {
	if err := checkID(id); err != nil {
		return data.Node{}, err
	}

	payload, err := points.ToPb()
	if err != nil {
		return data.Node{}, err
	}

	return requestOne(nc, SubjectNodePoints(id), payload)
}

// SendNodePoint is a convenience wrapper around SendNodePoints
func SendNodePoint(nc *natsgo.Conn, id string, point data.Point) (data.Node, error) {
	return SendNodePoints(nc, id, data.Points{point})
}

// MoveNode changes the parent of a node. A blank newParent makes it a root
// node.
func MoveNode(nc *natsgo.Conn, id, newParent string) (data.Node, error) {
	if err := checkID(id); err != nil {
		return data.Node{}, err
	}

	if newParent != "" {
		if err := checkID(newParent); err != nil {
			return data.Node{}, err
		}
	}

	return requestOne(nc, SubjectNodeMove(id), []byte(newParent))
}

// DeleteNode deletes a node that has no children
func DeleteNode(nc *natsgo.Conn, id string) error {
	if err := checkID(id); err != nil {
		return err
	}

	_, err := request(nc, SubjectNodeDelete(id), nil)
	return err
}

// SubscribeNodeChanged calls callback every time a node is created or
// modified. The returned subscription must be unsubscribed by the caller.
func SubscribeNodeChanged(nc *natsgo.Conn, callback func(n data.Node)) (*natsgo.Subscription, error) {
	return nc.Subscribe(SubjectNodeAllChanged(), func(msg *natsgo.Msg) {
		n, err := data.PbDecodeNode(msg.Data)
		if err != nil {
			log.Println("Error decoding changed node:", err)
			return
		}

		callback(n)
	})
}

// SubscribeNodeDeleted calls callback every time a node is deleted
func SubscribeNodeDeleted(nc *natsgo.Conn, callback func(n data.Node)) (*natsgo.Subscription, error) {
	return nc.Subscribe(SubjectNodeAllDeleted(), func(msg *natsgo.Msg) {
		n, err := data.PbDecodeNode(msg.Data)
		if err != nil {
			log.Println("Error decoding deleted node:", err)
			return
		}

		callback(n)
	})
}
