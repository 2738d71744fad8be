package extract

import "strings"

// extractPlain treats content as UTF-8 text. Bytes that do not form valid
// UTF-8 are replaced so downstream chunking never sees broken sequences.
func extractPlain(content []byte) (string, error) {
	return strings.ToValidUTF8(string(content), "�"), nil
}
