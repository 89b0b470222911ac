// Package graph defines the operations that make up a knowledge-graph edit
// and helpers for building them.
//
// Operations are plain serializable values. Code that publishes them (the
// router, the publishers) treats them as opaque and only forwards them.
package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"

	"github.com/kgcourse/geopub/pkg/ids"
)

type OpType string

const (
	CreatePropertyOp OpType = "CREATE_PROPERTY"
	CreateEntityOp   OpType = "CREATE_ENTITY"
	UpdateEntityOp   OpType = "UPDATE_ENTITY"
	DeleteEntityOp   OpType = "DELETE_ENTITY"
	CreateRelationOp OpType = "CREATE_RELATION"
	DeleteRelationOp OpType = "DELETE_RELATION"
)

var opTypes = []OpType{
	CreatePropertyOp,
	CreateEntityOp,
	UpdateEntityOp,
	DeleteEntityOp,
	CreateRelationOp,
	DeleteRelationOp,
}

func (t OpType) Valid() bool {
	return lo.Contains(opTypes, t)
}

type DataType string

const (
	Text     DataType = "TEXT"
	Number   DataType = "NUMBER"
	Checkbox DataType = "CHECKBOX"
	Time     DataType = "TIME"
	Point    DataType = "POINT"
	// RelationType marks a property whose values are relations to other
	// entities rather than literal values.
	RelationType DataType = "RELATION"
)

var dataTypes = []DataType{Text, Number, Checkbox, Time, Point, RelationType}

// ParseDataType accepts a data type name in any case.
func ParseDataType(s string) (DataType, error) {
	t := DataType(strings.ToUpper(s))
	if !lo.Contains(dataTypes, t) {
		return "", fmt.Errorf("unknown data type %q, expected one of %v", s, dataTypes)
	}
	return t, nil
}

// Op is a single graph mutation. Exactly one payload field is set, matching
// Type.
type Op struct {
	Type     OpType    `json:"type"`
	Property *Property `json:"property,omitempty"`
	Entity   *Entity   `json:"entity,omitempty"`
	Relation *Relation `json:"relation,omitempty"`
	// ID names the element removed by a delete op.
	ID *ids.ID `json:"id,omitempty"`
}

type Property struct {
	ID       ids.ID   `json:"id"`
	DataType DataType `json:"dataType"`
}

type Value struct {
	Property ids.ID `json:"property"`
	Value    string `json:"value"`
}

type Entity struct {
	ID     ids.ID  `json:"id"`
	Values []Value `json:"values"`
}

type Relation struct {
	ID         ids.ID  `json:"id"`
	Type       ids.ID  `json:"type"`
	FromEntity ids.ID  `json:"fromEntity"`
	ToEntity   ids.ID  `json:"toEntity"`
	ToSpace    *ids.ID `json:"toSpace,omitempty"`
	Position   string  `json:"position,omitempty"`
}

var ErrMalformedOp = errors.New("malformed op")

// Validate checks that the payload matches the op type.
func (op Op) Validate() error {
	switch op.Type {
	case CreatePropertyOp:
		if op.Property == nil {
			return fmt.Errorf("%w: %s without property", ErrMalformedOp, op.Type)
		}
	case CreateEntityOp, UpdateEntityOp:
		if op.Entity == nil {
			return fmt.Errorf("%w: %s without entity", ErrMalformedOp, op.Type)
		}
	case CreateRelationOp:
		if op.Relation == nil {
			return fmt.Errorf("%w: %s without relation", ErrMalformedOp, op.Type)
		}
	case DeleteEntityOp, DeleteRelationOp:
		if op.ID == nil || op.ID.IsNil() {
			return fmt.Errorf("%w: %s without id", ErrMalformedOp, op.Type)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrMalformedOp, op.Type)
	}
	return nil
}

// ReadOps decodes a JSON array of ops and validates each one.
func ReadOps(r io.Reader) ([]Op, error) {
	var ops []Op
	if err := json.NewDecoder(r).Decode(&ops); err != nil {
		return nil, fmt.Errorf("decoding ops: %w", err)
	}
	for i, op := range ops {
		if err := op.Validate(); err != nil {
			return nil, fmt.Errorf("op %d: %w", i, err)
		}
	}
	return ops, nil
}

// WriteOps encodes ops as an indented JSON array.
func WriteOps(w io.Writer, ops []Op) error {
	if ops == nil {
		ops = []Op{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ops)
}

// Summarize counts ops by type.
func Summarize(ops []Op) map[OpType]int {
	return lo.CountValuesBy(ops, func(op Op) OpType { return op.Type })
}
