package cdpsession

import "encoding/json"

// jsonUnmarshalQuiet unmarshals data into v, reporting success only; a
// malformed or absent layout-metrics response is not a session failure,
// just a missing viewport hint.
func jsonUnmarshalQuiet(data []byte, v any) bool {
	return json.Unmarshal(data, v) == nil
}
