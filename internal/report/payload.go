package report

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodePayload parses a report document. Only a document that is not a JSON
// object is a load failure; a missing or non-object statistics entry yields an
// empty metric set so that every chart panel degrades on its own.
func DecodePayload(t ReportType, statisticsKey string, data []byte) (*Payload, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s document is empty", ErrLoadFailure, t)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: decode %s document: %v", ErrLoadFailure, t, err)
	}
	if top == nil {
		return nil, fmt.Errorf("%w: %s document is null", ErrLoadFailure, t)
	}

	p := &Payload{
		Type:       t,
		Statistics: map[string]json.RawMessage{},
		Sections:   make(map[string]json.RawMessage, len(top)),
	}
	for k, v := range top {
		if k == statisticsKey {
			var stats map[string]json.RawMessage
			if err := json.Unmarshal(v, &stats); err == nil && stats != nil {
				p.Statistics = stats
			}
			continue
		}
		p.Sections[k] = v
	}
	return p, nil
}

// DecodeGeneral parses the catalogue-wide counts document.
func DecodeGeneral(data []byte) (*General, error) {
	var g General
	if err := json.Unmarshal(bytes.TrimSpace(data), &g); err != nil {
		return nil, fmt.Errorf("%w: decode general statistics: %v", ErrLoadFailure, err)
	}
	return &g, nil
}
