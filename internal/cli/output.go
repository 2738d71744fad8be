// Package cli provides output formatting for the Teller CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/covebank/teller/internal/models"
)

// OutputFormat is the format for CLI output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat maps a -output flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch s {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteChatResponse writes a chat response to w in the given format.
func WriteChatResponse(w io.Writer, resp *models.ChatResponse, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	writeChatResponseText(w, resp)
	return nil
}

func writeChatResponseText(w io.Writer, resp *models.ChatResponse) {
	fmt.Fprintf(w, "session: %s  intent: %s\n", resp.SessionID, resp.Intent)
	switch {
	case resp.Response != nil:
		fmt.Fprintf(w, "\n%s\n", resp.Response.Answer)
		if len(resp.Response.Citations) > 0 {
			fmt.Fprintln(w, "\nSources:")
			for _, c := range resp.Response.Citations {
				fmt.Fprintf(w, "  %s (chunk %d)\n", c.Source, c.ChunkIndex)
			}
		}
	case resp.Status != "":
		fmt.Fprintf(w, "status: %s\n", resp.Status)
	case resp.ActionResult != nil:
		out, _ := json.MarshalIndent(resp.ActionResult, "", "  ")
		fmt.Fprintf(w, "result: %s\n", string(out))
	default:
		fmt.Fprintln(w, "I couldn't map that request to a supported action.")
	}
}
