package ops

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kgcourse/geopub/pkg/graph"
	"github.com/kgcourse/geopub/pkg/ids"
)

var propertyFlags struct {
	dataType string
}

var propertyCmd = &cobra.Command{
	Use:     "property <name>",
	Short:   "Create a property",
	Example: "  geopub ops property Born --type TIME",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dt, err := graph.ParseDataType(propertyFlags.dataType)
		if err != nil {
			return err
		}
		return appendOps(cmd, "property", graph.CreateProperty(args[0], dt))
	},
}

var typeFlags struct {
	properties []string
}

var typeCmd = &cobra.Command{
	Use:     "type <name>",
	Short:   "Create a type with the given properties",
	Example: "  geopub ops type Person --property <born-id> --property <name-id>",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		props, err := parseIDs("property", typeFlags.properties)
		if err != nil {
			return err
		}
		return appendOps(cmd, "type", graph.CreateType(args[0], props...))
	},
}

var entityFlags struct {
	description string
	types       []string
	values      []string
	relations   []string
}

var entityCmd = &cobra.Command{
	Use:     "entity <name>",
	Short:   "Create an entity",
	Example: "  geopub ops entity \"Ada Lovelace\" --type <person-id> --value <born-id>=1815-12-10",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		types, err := parseIDs("type", entityFlags.types)
		if err != nil {
			return err
		}
		values, err := parseValues(entityFlags.values)
		if err != nil {
			return err
		}
		relations := map[ids.ID][]ids.ID{}
		for _, rel := range entityFlags.relations {
			v, err := parseValues([]string{rel})
			if err != nil {
				return fmt.Errorf("--relation %q: expected <relation-type-id>=<entity-id>", rel)
			}
			to, err := ids.Parse(v[0].Value)
			if err != nil {
				return fmt.Errorf("--relation %q: %w", rel, err)
			}
			relations[v[0].Property] = append(relations[v[0].Property], to)
		}
		return appendOps(cmd, "entity", graph.CreateEntity(graph.EntityParams{
			Name:        args[0],
			Description: entityFlags.description,
			Types:       types,
			Values:      values,
			Relations:   relations,
		}))
	},
}

var updateFlags struct {
	values []string
}

var updateCmd = &cobra.Command{
	Use:   "update <entity-id>",
	Short: "Set values on an existing entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := ids.Parse(args[0])
		if err != nil {
			return err
		}
		values, err := parseValues(updateFlags.values)
		if err != nil {
			return err
		}
		if len(values) == 0 {
			return fmt.Errorf("at least one --value is required")
		}
		return appendOps(cmd, "update", graph.UpdateEntity(id, values...))
	},
}

var relationFlags struct {
	from, to, relType string
	toSpace           string
	position          string
}

var relationCmd = &cobra.Command{
	Use:   "relation",
	Short: "Relate two entities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var p graph.RelationParams
		for _, f := range []struct {
			name  string
			value string
			dst   *ids.ID
		}{
			{"from", relationFlags.from, &p.From},
			{"to", relationFlags.to, &p.To},
			{"type", relationFlags.relType, &p.Type},
		} {
			id, err := ids.Parse(f.value)
			if err != nil {
				return fmt.Errorf("--%s: %w", f.name, err)
			}
			*f.dst = id
		}
		p.Position = relationFlags.position
		if relationFlags.toSpace != "" {
			space, err := ids.Parse(relationFlags.toSpace)
			if err != nil {
				return fmt.Errorf("--to-space: %w", err)
			}
			p.ToSpace = &space
		}
		return appendOps(cmd, "relation", graph.CreateRelation(p))
	},
}

var deleteCmd = &cobra.Command{
	Use:       "delete {entity|relation} <id>",
	Short:     "Delete an entity or a relation",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"entity", "relation"},
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := ids.Parse(args[1])
		if err != nil {
			return err
		}
		switch args[0] {
		case "entity":
			return appendOps(cmd, "delete", graph.DeleteEntity(id))
		case "relation":
			return appendOps(cmd, "delete", graph.DeleteRelation(id))
		default:
			return fmt.Errorf("can only delete an entity or a relation, not %q", args[0])
		}
	},
}

func init() {
	propertyCmd.Flags().StringVarP(&propertyFlags.dataType, "type", "t", string(graph.Text), "Data type: TEXT, NUMBER, CHECKBOX, TIME, POINT or RELATION")

	typeCmd.Flags().StringArrayVarP(&typeFlags.properties, "property", "p", nil, "Property id of the type (repeatable)")

	entityCmd.Flags().StringVarP(&entityFlags.description, "description", "d", "", "Description of the entity")
	entityCmd.Flags().StringArrayVarP(&entityFlags.types, "type", "t", nil, "Type id of the entity (repeatable)")
	entityCmd.Flags().StringArrayVarP(&entityFlags.values, "value", "v", nil, "<property-id>=<value> (repeatable)")
	entityCmd.Flags().StringArrayVarP(&entityFlags.relations, "relation", "r", nil, "<relation-type-id>=<entity-id> (repeatable)")

	updateCmd.Flags().StringArrayVarP(&updateFlags.values, "value", "v", nil, "<property-id>=<value> (repeatable)")

	relationCmd.Flags().StringVar(&relationFlags.from, "from", "", "Entity the relation starts at")
	relationCmd.Flags().StringVar(&relationFlags.to, "to", "", "Entity the relation points to")
	relationCmd.Flags().StringVar(&relationFlags.relType, "type", "", "Relation type id")
	relationCmd.Flags().StringVar(&relationFlags.toSpace, "to-space", "", "Space of the target entity, when it lives elsewhere")
	relationCmd.Flags().StringVar(&relationFlags.position, "position", "", "Ordering key among relations of the same type")
	for _, f := range []string{"from", "to", "type"} {
		cobra.CheckErr(relationCmd.MarkFlagRequired(f))
	}
}
