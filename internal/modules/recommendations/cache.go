package recommendations

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// encodeItems packs the item list for the items blob column. msgpack keeps
// the blob compact; item lists can hold every holding in the portfolio.
func encodeItems(items []Item) ([]byte, error) {
	blob, err := msgpack.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode recommendation items: %w", err)
	}
	return blob, nil
}

func decodeItems(blob []byte) ([]Item, error) {
	var items []Item
	if err := msgpack.Unmarshal(blob, &items); err != nil {
		return nil, fmt.Errorf("failed to decode recommendation items: %w", err)
	}
	return items, nil
}
