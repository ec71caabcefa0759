package kafka

import "encoding/json"

// MustMarshal is for values the process itself constructs; a marshal failure
// there is a programming error.
func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
