package spool

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/saltinventory/minion-inventory/pkg/inventory"
)

const (
	TypeAudit   = "audit"
	TypePresent = "present"
)

// errIncomplete marks a file that is still being written
var errIncomplete = errors.New("incomplete envelope")

// Envelope is one spooled report
type Envelope struct {
	Type       string                `json:"type"`
	Timestamp  string                `json:"timestamp"`
	Changed    bool                  `json:"changed,omitempty"`
	Properties *inventory.Properties `json:"properties,omitempty"`
	Minions    []string              `json:"minions,omitempty"`
}

func decodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope

	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&env); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return env, errIncomplete
		}
		return env, fmt.Errorf("%w: %v", inventory.ErrMalformedInput, err)
	}

	switch env.Type {
	case TypeAudit:
		if env.Properties == nil {
			return env, fmt.Errorf("%w: audit envelope without properties", inventory.ErrMalformedInput)
		}
	case TypePresent:
	default:
		return env, fmt.Errorf("%w: unknown envelope type %q", inventory.ErrMalformedInput, env.Type)
	}
	return env, nil
}
