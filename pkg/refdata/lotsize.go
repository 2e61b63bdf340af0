package refdata

import (
	"encoding/json"
	"fmt"
	"os"
)

// LotSizeTable maps a symbol to its exchange-mandated futures lot size.
// Loaded once at startup and read-only afterwards.
type LotSizeTable map[string]int

// Load reads the lot size table from a JSON file. A missing file or
// malformed content is an error; the caller treats it as fatal.
func Load(path string) (LotSizeTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lot size file %s: %w", path, err)
	}

	var table LotSizeTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("decoding lot size file %s: %w", path, err)
	}

	for symbol, lot := range table {
		if lot <= 0 {
			return nil, fmt.Errorf("lot size for %s must be positive, got %d", symbol, lot)
		}
	}
	return table, nil
}

// Lookup returns the lot size for symbol, defaulting to 1 when the symbol
// has no entry.
func (t LotSizeTable) Lookup(symbol string) int {
	if lot, ok := t[symbol]; ok {
		return lot
	}
	return 1
}
