package main

import (
	"context"
	"encoding/json"

	"github.com/calvinalkan/persist"
)

// document is the value type persistctl manages: an arbitrary JSON object,
// the simplest payload shape that exercises the full commit protocol
// without committing this demo to any particular schema.
type document map[string]any

func readDocument(_ context.Context, r persist.Reader) (document, error) {
	var doc document

	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}

	if doc == nil {
		doc = document{}
	}

	return doc, nil
}

func writeDocument(_ context.Context, v document, w persist.Writer) error {
	return json.NewEncoder(w).Encode(v)
}

func documentsEqual(a, b document) bool {
	if len(a) != len(b) {
		return false
	}

	aJSON, err := json.Marshal(a)
	if err != nil {
		return false
	}

	bJSON, err := json.Marshal(b)
	if err != nil {
		return false
	}

	return string(aJSON) == string(bJSON)
}
