package classifier

import (
	"encoding/json"
	"os"
	"strings"
)

// LabelEncoder maps raw categorical values to the canonical class labels
// the model was trained on. An empty encoder passes values through
// unchanged, which is the documented fallback when the artifact is
// missing or unreadable.
type LabelEncoder struct {
	Classes map[string][]string `json:"classes"`
}

func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{Classes: map[string][]string{}}
}

// LoadLabelEncoder reads the encoder artifact from disk. Callers are
// expected to fall back to NewLabelEncoder on error and surface a
// warning rather than fail startup.
func LoadLabelEncoder(path string) (*LabelEncoder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var enc LabelEncoder
	if err := json.Unmarshal(data, &enc); err != nil {
		return nil, err
	}
	if enc.Classes == nil {
		enc.Classes = map[string][]string{}
	}
	return &enc, nil
}

// Canonical returns the trained class label matching value for the given
// column, comparing case-insensitively after trimming. Unknown columns
// and unknown values pass through trimmed.
func (e *LabelEncoder) Canonical(column, value string) string {
	v := strings.TrimSpace(value)
	classes, ok := e.Classes[column]
	if !ok {
		return v
	}
	for _, class := range classes {
		if strings.EqualFold(class, v) {
			return class
		}
	}
	return v
}
