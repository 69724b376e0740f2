package post

import (
	"encoding/json"
	"fmt"
	"strings"

	"campusmarket/internal/apperr"
)

// ParseItems decodes a JSON-encoded PasaBuy item list. The list must be a
// non-empty array whose entries have a name and a positive numeric price.
func ParseItems(raw string) ([]ItemInput, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, apperr.Validation("At least one item is required.")
	}

	var items []ItemInput
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, apperr.Validation("Invalid items format.")
	}
	if len(items) == 0 {
		return nil, apperr.Validation("At least one item is required.")
	}

	for i := range items {
		items[i].ProductName = strings.TrimSpace(items[i].ProductName)
		if items[i].ProductName == "" {
			return nil, apperr.Validation(fmt.Sprintf("Item %d is missing a product name.", i+1))
		}
		if !items[i].Price.IsPositive() {
			return nil, apperr.Validation(fmt.Sprintf("Item %d must have a price greater than zero.", i+1))
		}
	}

	return items, nil
}
