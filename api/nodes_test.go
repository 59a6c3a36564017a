package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/beemon/hivenode/api"
	"github.com/beemon/hivenode/data"
	"github.com/beemon/hivenode/server"
)

func startAPI(t *testing.T, authToken string) *httptest.Server {
	t.Helper()

	s, stop, err := server.TestServer()
	if err != nil {
		if stop != nil {
			stop()
		}
		t.Fatal("Error starting test server: ", err)
	}
	t.Cleanup(stop)

	ts := httptest.NewServer(api.NewAppHandler(api.ServerArgs{
		Nc:        s.Nc(),
		AuthToken: authToken,
		Debug:     true,
	}))
	t.Cleanup(ts.Close)

	return ts
}

func doRequest(t *testing.T, method, url string, body string, out any) int {
	t.Helper()

	var rdr io.Reader
	if body != "" {
		rdr = bytes.NewBufferString(body)
	}

	req, err := http.NewRequest(method, url, rdr)
	if err != nil {
		t.Fatal("Error creating request: ", err)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal("Error doing request: ", err)
	}
	defer res.Body.Close()

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			t.Fatal("Error decoding response: ", err)
		}
	}

	return res.StatusCode
}

func TestNodesAPI(t *testing.T) {
	ts := startAPI(t, "")
	nodesURL := ts.URL + "/v1/nodes"

	var apiary data.Node
	status := doRequest(t, http.MethodPost, nodesURL,
		`{"id":"apiary-1","type":"apiary","name":"Home","isActive":true}`, &apiary)
	if status != http.StatusCreated {
		t.Fatal("Expected 201, got: ", status)
	}

	var hive data.Node
	status = doRequest(t, http.MethodPost, nodesURL,
		`{"id":"hive-1","type":"hive","parentId":"apiary-1","isActive":null}`, &hive)
	if status != http.StatusCreated {
		t.Fatal("Expected 201, got: ", status)
	}

	if _, ok := hive.GetIsActive(); ok {
		t.Fatal("null isActive should stay unset")
	}

	var got data.Node
	status = doRequest(t, http.MethodGet, nodesURL+"/apiary-1", "", &got)
	if status != http.StatusOK {
		t.Fatal("Expected 200, got: ", status)
	}

	if !got.Equal(apiary) {
		t.Fatalf("Got %v, exp %v", got, apiary)
	}

	var children data.Nodes
	doRequest(t, http.MethodGet, nodesURL+"/apiary-1/children", "", &children)
	if len(children) != 1 || !children[0].Equal(hive) {
		t.Fatal("Children not correct: ", children)
	}

	var ancestors data.Nodes
	doRequest(t, http.MethodGet, nodesURL+"/hive-1/ancestors", "", &ancestors)
	if len(ancestors) != 1 || !ancestors[0].Equal(apiary) {
		t.Fatal("Ancestors not correct: ", ancestors)
	}

	var roots data.Nodes
	doRequest(t, http.MethodGet, nodesURL+"?roots=true", "", &roots)
	if len(roots) != 1 || !roots[0].Equal(apiary) {
		t.Fatal("Roots not correct: ", roots)
	}

	var updated data.Node
	status = doRequest(t, http.MethodPost, nodesURL+"/hive-1/points",
		`[{"type":"location","text":"row 3"},{"type":"isActive","value":1}]`, &updated)
	if status != http.StatusOK {
		t.Fatal("Expected 200, got: ", status)
	}

	exp := data.Node{
		ID:       data.String("hive-1"),
		Type:     data.String("hive"),
		ParentID: data.String("apiary-1"),
		Location: data.String("row 3"),
		IsActive: data.Bool(true),
	}

	if !updated.Equal(exp) {
		t.Fatalf("Points update not correct, got %v, exp %v", updated, exp)
	}

	status = doRequest(t, http.MethodPost, nodesURL+"/hive-1/parent", `{"newParent":""}`, &updated)
	if status != http.StatusOK {
		t.Fatal("Expected 200, got: ", status)
	}

	if _, ok := updated.GetParentID(); ok {
		t.Fatal("Node should be a root after move")
	}

	status = doRequest(t, http.MethodPut, nodesURL+"/hive-1", `{"type":"nuc"}`, &updated)
	if status != http.StatusOK {
		t.Fatal("Expected 200, got: ", status)
	}

	if !updated.Equal(data.Node{ID: data.String("hive-1"), Type: data.String("nuc")}) {
		t.Fatal("PUT should replace node: ", updated)
	}

	var resp api.StandardResponse
	status = doRequest(t, http.MethodDelete, nodesURL+"/hive-1", "", &resp)
	if status != http.StatusOK || !resp.Success {
		t.Fatal("Delete failed: ", status, resp.Error)
	}

	status = doRequest(t, http.MethodGet, nodesURL+"/hive-1", "", &resp)
	if status != http.StatusNotFound {
		t.Fatal("Expected 404, got: ", status)
	}
}

func TestNodesAPIErrors(t *testing.T) {
	ts := startAPI(t, "")
	nodesURL := ts.URL + "/v1/nodes"

	doRequest(t, http.MethodPost, nodesURL, `{"id":"a"}`, nil)
	doRequest(t, http.MethodPost, nodesURL, `{"id":"b","parentId":"a"}`, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"duplicate", http.MethodPost, "", `{"id":"a"}`, http.StatusConflict},
		{"missing parent", http.MethodPost, "", `{"parentId":"zzz"}`, http.StatusBadRequest},
		{"bad json", http.MethodPost, "", `{"id":`, http.StatusBadRequest},
		{"has children", http.MethodDelete, "/a", "", http.StatusConflict},
		{"cycle", http.MethodPost, "/a/parent", `{"newParent":"b"}`, http.StatusConflict},
		{"unknown point", http.MethodPost, "/a/points", `[{"type":"color"}]`, http.StatusBadRequest},
		{"bad filter", http.MethodGet, "?active=maybe", "", http.StatusBadRequest},
		{"bad route", http.MethodGet, "/a/siblings", "", http.StatusNotFound},
		{"bad method", http.MethodPatch, "/a", "", http.StatusMethodNotAllowed},
		{"dotted id", http.MethodGet, "/b.delete", "", http.StatusBadRequest},
		{"dotted id delete", http.MethodDelete, "/b.delete", "", http.StatusBadRequest},
		{"wildcard id", http.MethodGet, "/a*", "", http.StatusBadRequest},
		{"full wildcard id", http.MethodPost, "/a%3E/points", `[{"type":"name","text":"x"}]`, http.StatusBadRequest},
		{"invalid new parent", http.MethodPost, "/b/parent", `{"newParent":"a.b"}`, http.StatusBadRequest},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			status := doRequest(t, test.method, nodesURL+test.path, test.body, nil)
			if status != test.status {
				t.Fatalf("expected status %v, got %v", test.status, status)
			}
		})
	}

	var b data.Node
	if status := doRequest(t, http.MethodGet, nodesURL+"/b", "", &b); status != http.StatusOK {
		t.Fatal("node b missing after invalid requests, status: ", status)
	}

	if p, _ := b.GetParentID(); p != "a" {
		t.Fatal("node b was moved, parent: ", p)
	}
}

func TestNodesAPIAuth(t *testing.T) {
	ts := startAPI(t, "secret")

	status := doRequest(t, http.MethodGet, ts.URL+"/v1/nodes", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatal("Expected 401, got: ", status)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/v1/nodes", nil)
	req.Header.Set("Authorization", "secret")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal("Error doing request: ", err)
	}
	defer res.Body.Close()

	var nodes data.Nodes
	if err := json.NewDecoder(res.Body).Decode(&nodes); err != nil {
		t.Fatal("Error decoding: ", err)
	}

	if len(nodes) != 0 {
		t.Fatal("Expected no nodes, got: ", len(nodes))
	}
}

func TestShiftPath(t *testing.T) {
	head, tail := api.ShiftPath("/v1/nodes/hive-1")
	if head != "v1" || tail != "/nodes/hive-1" {
		t.Fatalf("ShiftPath wrong: %v %v", head, tail)
	}

	head, tail = api.ShiftPath("/")
	if head != "" || tail != "/" {
		t.Fatalf("ShiftPath wrong for root: %v %v", head, tail)
	}
}
