package blockgraph

import (
	"encoding/json"
	"fmt"
)

// Encode serializes a block list to the cached JSON form.
func Encode(blocks []Block) ([]byte, error) {
	data, err := json.MarshalIndent(blocks, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode block graph: %w", err)
	}
	return data, nil
}

// Decode parses a cached block graph back into a block list.
func Decode(data []byte) ([]Block, error) {
	var blocks []Block
	if err := json.Unmarshal(data, &blocks); err != nil {
		return nil, fmt.Errorf("failed to decode block graph: %w", err)
	}
	return blocks, nil
}
