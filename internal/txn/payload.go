package txn

import (
	"aptos-playground/internal/bcs"
	"aptos-playground/internal/move"
)

// payloadEntryFunction is the TransactionPayload variant index of an entry
// function call. Scripts (0) and module bundles (1) are not built here.
const payloadEntryFunction = 2

// Payload is the executable part of a transaction.
type Payload interface {
	bcs.Marshaler
	String() string
}

// EntryFunctionPayload calls a published entry function.
type EntryFunctionPayload struct {
	Function move.EntryFunction
}

// NewEntryFunctionPayload wraps fn.
func NewEntryFunctionPayload(fn move.EntryFunction) *EntryFunctionPayload {
	return &EntryFunctionPayload{Function: fn}
}

// MarshalBCS writes the variant index followed by the call.
func (p *EntryFunctionPayload) MarshalBCS(s *bcs.Serializer) {
	s.Uleb128(payloadEntryFunction)
	p.Function.MarshalBCS(s)
}

func (p *EntryFunctionPayload) String() string {
	return "entry_function " + p.Function.String()
}
