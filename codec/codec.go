// Package codec centralizes payload encoding for persisted data.
//
// Codec selection is a breaking-change boundary: if you change codecs,
// persisted bytes created by older codecs may no longer decode. Snapshots are
// therefore self-describing and store the codec name in their header.
package codec

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	default:
		return nil, false
	}
}

// Default is the codec used for newly written snapshots. Existing snapshots
// are opened by selecting the codec recorded in their header.
var Default Codec = JSON{}
