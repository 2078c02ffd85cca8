package project

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ritzau/scenegraph/pkg/ir"
)

// rawDocument mirrors the node part of a project with every node kept as
// its raw members, so keys can be checked for presence rather than value
type rawDocument struct {
	Modules []struct {
		Graph struct {
			Nodes []map[string]json.RawMessage `json:"nodes"`
		} `json:"graph"`
	} `json:"modules"`
}

// checkPresence rejects code members on nodes that are not code nodes even
// when they are empty or null, and code metadata without an inputs list
func checkPresence(text string) error {
	var doc rawDocument
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrInvalidProject, err)
	}

	var msgs []string
	for i, m := range doc.Modules {
		for j, n := range m.Graph.Nodes {
			path := fmt.Sprintf("modules[%d].graph.nodes[%d]", i, j)
			var typeKey string
			_ = json.Unmarshal(n["typeKey"], &typeKey)

			if typeKey != ir.CodeTypeKey {
				for _, key := range []string{"code", "codeMeta"} {
					if _, ok := n[key]; ok {
						msgs = append(msgs, fmt.Sprintf(`%s.%s failed "excluded_unless" (typeKey code)`, path, key))
					}
				}
				continue
			}

			var meta map[string]json.RawMessage
			if err := json.Unmarshal(n["codeMeta"], &meta); err != nil || meta == nil {
				// missing metadata is reported by the schema
				continue
			}
			if _, ok := meta["inputs"]; !ok {
				msgs = append(msgs, fmt.Sprintf(`%s.codeMeta.inputs failed "required"`, path))
			}
		}
	}
	if len(msgs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidProject, strings.Join(msgs, "; "))
	}
	return nil
}
