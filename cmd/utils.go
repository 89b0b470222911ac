package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kgcourse/geopub/pkg/config"
)

// commandPath returns the command path for a `cobra.Command` as a slice of the
// individual command names.
func commandPath(c *cobra.Command) []string {
	var path []string
	if c.HasParent() {
		path = commandPath(c.Parent())
	}
	return append(path, c.Name())
}

// setSpanAttributes records the command path and every flag the user set.
func setSpanAttributes(cmd *cobra.Command, span trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.StringSlice("command.path", commandPath(cmd)),
	}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		k := "command.flag." + f.Name
		switch f.Value.Type() {
		case "bool":
			v, err := cmd.Flags().GetBool(f.Name)
			if err != nil {
				log.Warnf("getting flag %q for telemetry: %v", f.Name, err)
				return
			}
			attrs = append(attrs, attribute.Bool(k, v))
		case "int":
			v, err := cmd.Flags().GetInt(f.Name)
			if err != nil {
				log.Warnf("getting flag %q for telemetry: %v", f.Name, err)
				return
			}
			attrs = append(attrs, attribute.Int(k, v))
		case "string":
			v := f.Value.String()
			if f.Name == "database-url" {
				v = fmt.Sprint(config.Redact("repo.database_url", v))
			}
			attrs = append(attrs, attribute.String(k, v))
		default:
			attrs = append(attrs, attribute.String(k, f.Value.String()))
		}
	})
	span.SetAttributes(attrs...)
}
