package main

import (
	"encoding/json"
	"fmt"
	"io"
)

// outputJSON writes data as pretty-printed JSON to the command's stdout.
func outputJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}
