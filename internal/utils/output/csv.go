package output

import (
	"encoding/csv"
	"io"
)

var csvHeader = []string{"name", "price", "image", "image_url", "in_stock"}

// WriteCSV writes one row per item under a fixed header.
func WriteCSV(w io.Writer, e *Export) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, it := range e.Items {
		if err := writer.Write([]string{it.Name, it.Price, it.Image, it.ImageURL, inStock(it)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
