package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/beemon/hivenode/data"
	hnats "github.com/beemon/hivenode/nats"
	"github.com/nats-io/nats.go"
)

// NodeMove is a data structure used in the /nodes/<id>/parent api calls
type NodeMove struct {
	NewParent string `json:"newParent"`
}

// Nodes handles node requests
type Nodes struct {
	nc        *nats.Conn
	authToken string
}

// NewNodesHandler returns a new node handler. If authToken is not blank,
// requests must carry it in the Authorization header.
func NewNodesHandler(nc *nats.Conn, authToken string) http.Handler {
	return &Nodes{nc: nc, authToken: authToken}
}

// errorStatus maps store errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, data.ErrNodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, data.ErrNodeExists),
		errors.Is(err, data.ErrParentCycle),
		errors.Is(err, data.ErrNodeHasChildren):
		return http.StatusConflict
	case errors.Is(err, data.ErrParentNotFound),
		errors.Is(err, data.ErrUnknownPointType),
		errors.Is(err, data.ErrNodeIDChange),
		errors.Is(err, data.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, nats.ErrTimeout), errors.Is(err, nats.ErrNoResponders):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(res http.ResponseWriter, status int, err error) {
	writeJSON(res, status, StandardResponse{Success: false, Error: err.Error()})
}

func (h *Nodes) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	if h.authToken != "" && req.Header.Get("Authorization") != h.authToken {
		http.Error(res, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var id string
	id, req.URL.Path = ShiftPath(req.URL.Path)

	var head string
	head, req.URL.Path = ShiftPath(req.URL.Path)

	if id == "" {
		switch req.Method {
		case http.MethodGet:
			h.listNodes(res, req)
		case http.MethodPost:
			h.insertNode(res, req)
		default:
			http.Error(res, "invalid method", http.StatusMethodNotAllowed)
		}
		return
	}

	if !data.ValidID(id) {
		writeError(res, http.StatusBadRequest, fmt.Errorf("%w: %q", data.ErrInvalidID, id))
		return
	}

	// process requests with an ID.
	switch head {
	case "":
		switch req.Method {
		case http.MethodGet:
			node, err := hnats.GetNode(h.nc, id)
			if err != nil {
				writeError(res, errorStatus(err), err)
				return
			}
			writeJSON(res, http.StatusOK, node)
		case http.MethodPut:
			h.updateNode(res, req, id)
		case http.MethodDelete:
			err := hnats.DeleteNode(h.nc, id)
			if err != nil {
				writeError(res, errorStatus(err), err)
				return
			}
			writeJSON(res, http.StatusOK, StandardResponse{Success: true, ID: id})
		default:
			http.Error(res, "invalid method", http.StatusMethodNotAllowed)
		}

	case "children", "ancestors":
		if req.Method != http.MethodGet {
			http.Error(res, "only GET allowed", http.StatusMethodNotAllowed)
			return
		}

		var nodes data.Nodes
		var err error
		if head == "children" {
			nodes, err = hnats.GetNodeChildren(h.nc, id)
		} else {
			nodes, err = hnats.GetNodeAncestors(h.nc, id)
		}
		if err != nil {
			writeError(res, errorStatus(err), err)
			return
		}
		writeJSON(res, http.StatusOK, nodes)

	case "points":
		if req.Method != http.MethodPost {
			http.Error(res, "only POST allowed", http.StatusMethodNotAllowed)
			return
		}
		h.processPoints(res, req, id)

	case "parent":
		if req.Method != http.MethodPost {
			http.Error(res, "only POST allowed", http.StatusMethodNotAllowed)
			return
		}

		var nodeMove NodeMove
		if err := decode(req.Body, &nodeMove); err != nil {
			writeError(res, http.StatusBadRequest, err)
			return
		}

		node, err := hnats.MoveNode(h.nc, id, nodeMove.NewParent)
		if err != nil {
			writeError(res, errorStatus(err), err)
			return
		}
		writeJSON(res, http.StatusOK, node)

	default:
		http.Error(res, "Not Found", http.StatusNotFound)
	}
}

func (h *Nodes) listNodes(res http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	var f data.NodeFilter

	if q.Has("parentId") {
		f.ParentID = data.String(q.Get("parentId"))
	}
	if q.Has("clientId") {
		f.ClientID = data.String(q.Get("clientId"))
	}
	if q.Has("type") {
		f.Type = data.String(q.Get("type"))
	}
	if q.Has("active") {
		active, err := strconv.ParseBool(q.Get("active"))
		if err != nil {
			writeError(res, http.StatusBadRequest, err)
			return
		}
		f.Active = data.Bool(active)
	}
	if q.Has("roots") {
		roots, err := strconv.ParseBool(q.Get("roots"))
		if err != nil {
			writeError(res, http.StatusBadRequest, err)
			return
		}
		f.Roots = roots
	}

	nodes, err := hnats.GetNodes(h.nc, f)
	if err != nil {
		writeError(res, errorStatus(err), err)
		return
	}

	writeJSON(res, http.StatusOK, nodes)
}

func (h *Nodes) insertNode(res http.ResponseWriter, req *http.Request) {
	var node data.Node
	if err := decode(req.Body, &node); err != nil {
		writeError(res, http.StatusBadRequest, err)
		return
	}

	node, err := hnats.CreateNode(h.nc, node)
	if err != nil {
		writeError(res, errorStatus(err), err)
		return
	}

	writeJSON(res, http.StatusCreated, node)
}

func (h *Nodes) updateNode(res http.ResponseWriter, req *http.Request, id string) {
	var node data.Node
	if err := decode(req.Body, &node); err != nil {
		writeError(res, http.StatusBadRequest, err)
		return
	}

	// the ID in the path wins
	node.SetID(&id)

	node, err := hnats.UpdateNode(h.nc, node)
	if err != nil {
		writeError(res, errorStatus(err), err)
		return
	}

	writeJSON(res, http.StatusOK, node)
}

func (h *Nodes) processPoints(res http.ResponseWriter, req *http.Request, id string) {
	var points data.Points
	if err := decode(req.Body, &points); err != nil {
		writeError(res, http.StatusBadRequest, err)
		return
	}

	node, err := hnats.SendNodePoints(h.nc, id, points)
	if err != nil {
		writeError(res, errorStatus(err), err)
		return
	}

	writeJSON(res, http.StatusOK, node)
}
