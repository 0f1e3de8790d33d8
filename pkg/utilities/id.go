package utilities

import (
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewDocumentID returns a KSUID used as the primary key of stored documents.
// KSUIDs sort by creation time, which keeps insertion order readable in the store.
func NewDocumentID() string {
	return ksuid.New().String()
}

var (
	nodeOnce sync.Once
	node     *snowflake.Node
)

// NewRequestID returns a snowflake ID for correlating log lines of one request.
// The node number comes from SNOWFLAKE_NODE (default 1). If the node cannot be
// created a KSUID is returned instead so callers always get a unique value.
func NewRequestID() string {
	nodeOnce.Do(func() {
		nodeID := int64(1)
		if v, err := strconv.ParseInt(os.Getenv("SNOWFLAKE_NODE"), 10, 64); err == nil {
			nodeID = v
		}
		node, _ = snowflake.NewNode(nodeID)
	})
	if node == nil {
		return NewDocumentID()
	}
	return node.Generate().String()
}
