package export

import (
	"encoding/json"
	"io"
)

// JSONExporter exports a transcript as indented JSON.
type JSONExporter struct{}

// Export exports a session to JSON format.
func (e *JSONExporter) Export(t Transcript, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

// Extension returns the file extension for this format.
func (e *JSONExporter) Extension() string {
	return "json"
}
