package document

import (
	"encoding/json"
	"fmt"
)

type documentJSON struct {
	Revision uint64  `json:"revision"`
	Blocks   []Block `json:"blocks"`
}

// MarshalJSON encodes the block tree and revision.
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(documentJSON{Revision: d.rev, Blocks: d.blocks})
}

// UnmarshalJSON decodes a document previously encoded with MarshalJSON.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw documentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	decoded := FromBlocks(raw.Blocks)
	if raw.Revision > 0 {
		decoded.rev = raw.Revision
	}
	*d = *decoded
	return nil
}
