package nats

// create subject strings for the node requests and events. Node IDs must not
// contain '.', '*', or '>' as those are NATS subject delimiters/wildcards.

// SubjectNode constructs a NATS subject for getting a node
func SubjectNode(nodeID string) string {
	return "node." + nodeID
}

// SubjectNodeChildren constructs a NATS subject for getting node children
func SubjectNodeChildren(nodeID string) string {
	return "node." + nodeID + ".children"
}

// SubjectNodeAncestors constructs a NATS subject for getting node ancestors
func SubjectNodeAncestors(nodeID string) string {
	return "node." + nodeID + ".ancestors"
}

// SubjectNodePoints constructs a NATS subject for node field updates
func SubjectNodePoints(nodeID string) string {
	return "node." + nodeID + ".points"
}

// SubjectNodeUpdate constructs a NATS subject for replacing a node
func SubjectNodeUpdate(nodeID string) string {
	return "node." + nodeID + ".update"
}

// SubjectNodeMove constructs a NATS subject for moving a node to a new parent
func SubjectNodeMove(nodeID string) string {
	return "node." + nodeID + ".move"
}

// SubjectNodeDelete constructs a NATS subject for deleting a node
func SubjectNodeDelete(nodeID string) string {
	return "node." + nodeID + ".delete"
}

// SubjectNodeChanged constructs the subject a node is published on after
// it is created or modified
func SubjectNodeChanged(nodeID string) string {
	return "node." + nodeID + ".changed"
}

// SubjectNodeDeleted constructs the subject a node is published on after
// it is deleted
func SubjectNodeDeleted(nodeID string) string {
	return "node." + nodeID + ".deleted"
}

// SubjectNodeAllChanged provides subject for changes of any node
func SubjectNodeAllChanged() string {
	return "node.*.changed"
}

// SubjectNodeAllDeleted provides subject for deletes of any node
func SubjectNodeAllDeleted() string {
	return "node.*.deleted"
}

// SubjectNodesCreate is used to create nodes
const SubjectNodesCreate = "nodes.create"

// SubjectNodesList is used to list nodes matching a filter
const SubjectNodesList = "nodes.list"
