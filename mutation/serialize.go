package mutation

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// MarshalBatch serialises a Batch to JSON.
func MarshalBatch(b *Batch) ([]byte, error) {
	return json.Marshal(b)
}

// UnmarshalBatch deserialises a Batch from JSON.
func UnmarshalBatch(data []byte) (*Batch, error) {
	var b Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// HashHTML returns the SHA-256 hex digest of markup. The engine stamps it on
// canvas nodes so unchanged markup is not re-parsed on every render.
func HashHTML(markup string) string {
	h := sha256.Sum256([]byte(markup))
	return fmt.Sprintf("%x", h)
}
