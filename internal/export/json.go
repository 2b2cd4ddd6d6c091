package export

import (
	"encoding/json"
	"io"

	"github.com/israel2640/JARVIS-IA-LIGHT/internal"
)

// JSONExporter exports chats as pretty-printed JSON
type JSONExporter struct{}

// Export exports a chat to JSON format
func (e *JSONExporter) Export(chat *internal.Chat, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(chat)
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}
