package output

import (
	"encoding/json"
	"io"

	"github.com/law-makers/weeklyad/pkg/models"
)

// WriteJSON writes the items as an indented array, the same shape as the
// stored document.
func WriteJSON(w io.Writer, e *Export) error {
	items := e.Items
	if items == nil {
		items = []models.GroceryItem{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}
