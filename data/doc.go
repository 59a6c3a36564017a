/*
Package data contains the node record and the data structures that are used
throughout hivenode.

[Node] is the record for one node in the hive hierarchy. [Point] and
[Points] carry field level updates, [NodeTree] is used for YAML export and
import, and the ToPb/PbDecode functions implement the protobuf encoding used
on NATS.
*/
package data
