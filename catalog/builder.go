package catalog

import (
	"context"

	"github.com/teranos/scribe/errors"
	"github.com/teranos/scribe/pulse/generate"
)

// PromptVersion is recorded in every context so a prompt change invalidates cached results
const PromptVersion = "scribe_v1"

// Target types carried in built contexts
const (
	TargetTable  = "table"
	TargetColumn = "column"
)

// DescriptionSource looks up a description already generated for an item
type DescriptionSource interface {
	Description(ctx context.Context, itemID string) (string, bool, error)
}

// ContextBuilder turns catalog entities into generation contexts.
//
// A column's context includes its table's description: the one in the
// catalog, or otherwise the generated one from Descriptions. The generated
// one only exists once the table completed, so pair Descriptions with
// generate.WithDeferredContext.
type ContextBuilder struct {
	Descriptions DescriptionSource
}

// Build implements generate.ContextBuilder
func (b ContextBuilder) Build(ctx context.Context, kind generate.Kind, entity generate.Entity) (generate.Context, error) {
	switch e := entity.(type) {
	case *Table:
		return tableContext(e), nil
	case *Column:
		return b.columnContext(ctx, e)
	default:
		return nil, generate.Permanent(errors.Newf("cannot build context for %T (%s)", entity, kind))
	}
}

func tableContext(t *Table) generate.MapContext {
	columns := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		columns[i] = map[string]interface{}{
			"name":        c.Name,
			"data_type":   c.DataType,
			"is_nullable": c.Nullable,
		}
	}
	m := generate.MapContext{
		"target_type":    TargetTable,
		"target_name":    t.QualifiedName(),
		"schema_name":    t.Schema,
		"table_name":     t.Name,
		"columns":        columns,
		"prompt_version": PromptVersion,
	}
	if t.TableType != "" {
		m["table_type"] = t.TableType
	}
	if t.RowCount > 0 {
		m["row_count"] = t.RowCount
	}
	return m
}

func (b ContextBuilder) columnContext(ctx context.Context, c *Column) (generate.Context, error) {
	t := c.Table()
	if t == nil {
		return nil, generate.Permanent(errors.Newf("column %s is not linked to a table", c.Name))
	}

	m := generate.MapContext{
		"target_type":    TargetColumn,
		"target_name":    t.Name + "." + c.Name,
		"table_name":     t.Name,
		"column_name":    c.Name,
		"data_type":      c.DataType,
		"is_nullable":    c.Nullable,
		"is_key":         c.IsKey,
		"is_pii":         c.IsPII,
		"prompt_version": PromptVersion,
	}
	if profile := columnProfile(c); len(profile) > 0 {
		m["profile"] = profile
	}

	description := t.Description
	if description == "" && b.Descriptions != nil {
		generated, ok, err := b.Descriptions.Description(ctx, t.ID())
		if err != nil {
			return nil, errors.Wrapf(err, "failed to look up description of %s", t.ID())
		}
		if ok {
			description = generated
		}
	}
	if description != "" {
		m["table_description"] = description
	}
	return m, nil
}

func columnProfile(c *Column) map[string]interface{} {
	p := map[string]interface{}{}
	if c.Cardinality != nil {
		p["cardinality"] = *c.Cardinality
	}
	if c.NullPercentage != nil {
		p["null_percentage"] = *c.NullPercentage
	}
	if len(c.TopValues) > 0 {
		top := make(map[string]interface{}, len(c.TopValues))
		for k, v := range c.TopValues {
			top[k] = v
		}
		p["top_values"] = top
	}
	if c.MinValue != "" {
		p["min_value"] = c.MinValue
	}
	if c.MaxValue != "" {
		p["max_value"] = c.MaxValue
	}
	return p
}
