package function

import "github.com/MrWong99/aiagentdata/pkg/toolprop"

// Snippet tool configuration. These values are reserved: no function reads or
// writes snippets, and the host only lists them in its -describe manifest.
const (
	SnippetNameProperty = "snippetname"
	SnippetProperty     = "snippet"

	// SnippetBlobPath is the blob path template keyed by the snippet name
	// tool argument.
	SnippetBlobPath = "snippets/{mcptoolargs." + SnippetNameProperty + "}.json"
)

var (
	// SaveSnippetProperties are the tool properties of a snippet save tool.
	SaveSnippetProperties = []toolprop.ToolProperty{
		toolprop.New(SnippetNameProperty, "string", "The name of the snippet."),
		toolprop.New(SnippetProperty, "string", "The content of the snippet."),
	}

	// GetSnippetProperties are the tool properties of a snippet get tool.
	GetSnippetProperties = []toolprop.ToolProperty{
		toolprop.New(SnippetNameProperty, "string", "The name of the snippet."),
	}
)

// Reserved describes the reserved snippet configuration.
type Reserved struct {
	BlobPath              string                  `json:"blobPath"`
	SaveSnippetProperties []toolprop.ToolProperty `json:"saveSnippetProperties"`
	GetSnippetProperties  []toolprop.ToolProperty `json:"getSnippetProperties"`
}

// ReservedConfig returns the reserved snippet configuration.
func ReservedConfig() Reserved {
	return Reserved{
		BlobPath:              SnippetBlobPath,
		SaveSnippetProperties: SaveSnippetProperties,
		GetSnippetProperties:  GetSnippetProperties,
	}
}
