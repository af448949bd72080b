package store

import (
	"crypto/sha256"
	"encoding/hex"

	json "github.com/goccy/go-json"

	"github.com/christiancopeland/pulsewatch/internal/models"
)

// contentHash computes the item's dedup hash over the best available body
// text: RawContent if non-empty, else Summary, else Title.
func contentHash(item models.CollectedItem) string {
	body := item.RawContent
	if body == "" {
		body = item.Summary
	}
	if body == "" {
		body = item.Title
	}
	if body == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

func jsonMarshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func jsonUnmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
