package api

import (
	"net/http"
)

// Version is returned by the /v1/version route
type Version struct {
	Version string `json:"version"`
}

// V1 handles v1 api requests
type V1 struct {
	NodesHandler http.Handler
	version      string
}

// Top level handler for v1 api requests
func (h *V1) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	var head string

	head, req.URL.Path = ShiftPath(req.URL.Path)
	switch head {
	case "nodes":
		h.NodesHandler.ServeHTTP(res, req)
	case "version":
		if req.Method != http.MethodGet {
			http.Error(res, "only GET allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(res, http.StatusOK, Version{Version: h.version})
	default:
		http.Error(res, "Not Found", http.StatusNotFound)
	}
}

// NewV1Handler returns a handle for V1 API
func NewV1Handler(args ServerArgs) http.Handler {
	return &V1{
		NodesHandler: NewNodesHandler(args.Nc, args.AuthToken),
		version:      args.AppVersion,
	}
}
