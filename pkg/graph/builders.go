package graph

import (
	"github.com/kgcourse/geopub/pkg/ids"
)

// Well-known system properties and relation types shared by every space.
var (
	NameProperty        = ids.MustParse("a126ca530c8e48d5b88882c734c38935")
	DescriptionProperty = ids.MustParse("9b1f76ff9711404c861e59dc3fa7d037")
	TypesProperty       = ids.MustParse("8f151ba4de204e3c9cb499ddf96f48f1")
	PropertiesProperty  = ids.MustParse("01412f8381894ab1836565c7fd358cc1")
	SchemaType          = ids.MustParse("e7d737c536764c609fa16aa64a8c90ad")
	PropertyType        = ids.MustParse("808a04ceb21c4d888ad12e240613e5ca")
)

// Created is the result of a builder: the id of the new element and the ops
// that create it.
type Created struct {
	ID  ids.ID
	Ops []Op
}

// CreateProperty creates a property with a human readable name.
func CreateProperty(name string, dataType DataType) Created {
	id := ids.New()
	ops := []Op{{
		Type:     CreatePropertyOp,
		Property: &Property{ID: id, DataType: dataType},
	}}
	ops = append(ops, entityOp(id, name, "", nil)...)
	ops = append(ops, CreateRelation(RelationParams{From: id, To: PropertyType, Type: TypesProperty}).Ops...)
	return Created{ID: id, Ops: ops}
}

// CreateType creates a type entity linked to the given properties.
func CreateType(name string, properties ...ids.ID) Created {
	id := ids.New()
	ops := entityOp(id, name, "", nil)
	ops = append(ops, CreateRelation(RelationParams{From: id, To: SchemaType, Type: TypesProperty}).Ops...)
	for _, p := range properties {
		ops = append(ops, CreateRelation(RelationParams{From: id, To: p, Type: PropertiesProperty}).Ops...)
	}
	return Created{ID: id, Ops: ops}
}

type EntityParams struct {
	// ID is generated when nil.
	ID          ids.ID
	Name        string
	Description string
	Types       []ids.ID
	Values      []Value
	// Relations maps a relation type to target entities.
	Relations map[ids.ID][]ids.ID
}

// CreateEntity creates an entity with its values, types and relations.
func CreateEntity(p EntityParams) Created {
	id := p.ID
	if id.IsNil() {
		id = ids.New()
	}
	ops := entityOp(id, p.Name, p.Description, p.Values)
	for _, t := range p.Types {
		ops = append(ops, CreateRelation(RelationParams{From: id, To: t, Type: TypesProperty}).Ops...)
	}
	for relType, targets := range p.Relations {
		for _, to := range targets {
			ops = append(ops, CreateRelation(RelationParams{From: id, To: to, Type: relType}).Ops...)
		}
	}
	return Created{ID: id, Ops: ops}
}

// UpdateEntity sets values on an existing entity.
func UpdateEntity(id ids.ID, values ...Value) Created {
	return Created{ID: id, Ops: []Op{{
		Type:   UpdateEntityOp,
		Entity: &Entity{ID: id, Values: nonNil(values)},
	}}}
}

func DeleteEntity(id ids.ID) Created {
	return Created{ID: id, Ops: []Op{{Type: DeleteEntityOp, ID: &id}}}
}

type RelationParams struct {
	From     ids.ID
	To       ids.ID
	Type     ids.ID
	ToSpace  *ids.ID
	Position string
}

func CreateRelation(p RelationParams) Created {
	id := ids.New()
	return Created{ID: id, Ops: []Op{{
		Type: CreateRelationOp,
		Relation: &Relation{
			ID:         id,
			Type:       p.Type,
			FromEntity: p.From,
			ToEntity:   p.To,
			ToSpace:    p.ToSpace,
			Position:   p.Position,
		},
	}}}
}

func DeleteRelation(id ids.ID) Created {
	return Created{ID: id, Ops: []Op{{Type: DeleteRelationOp, ID: &id}}}
}

func entityOp(id ids.ID, name, description string, values []Value) []Op {
	var vs []Value
	if name != "" {
		vs = append(vs, Value{Property: NameProperty, Value: name})
	}
	if description != "" {
		vs = append(vs, Value{Property: DescriptionProperty, Value: description})
	}
	vs = append(vs, values...)
	return []Op{{
		Type:   CreateEntityOp,
		Entity: &Entity{ID: id, Values: nonNil(vs)},
	}}
}

func nonNil(values []Value) []Value {
	if values == nil {
		return []Value{}
	}
	return values
}
