package sheet

import "encoding/json"

// ApplyWire consumes a remote update request and produces its response.
// the request is a JSON array of {"id", "source"} objects; the response is
// a JSON array of {"id", "kind", "type", "value"} (or "error") objects for
// every cell whose result changed: the assigned cells plus their
// transitive dependents, with unchanged cells omitted. failed entries are
// reported through the returned error next to the response, which still
// carries the cells that were re-evaluated.
func (s *Sheet) ApplyWire(request []byte) ([]byte, error) {
	var changes []Change
	if err := json.Unmarshal(request, &changes); err != nil {
		return nil, NewParseError(string(request), "malformed update request: "+err.Error())
	}

	updates, err := s.UpdateBatch(changes)

	// an empty result is still a JSON array
	if updates == nil {
		updates = []Update{}
	}
	response, marshalErr := json.Marshal(updates)
	if marshalErr != nil {
		return nil, marshalErr
	}
	return response, err
}
