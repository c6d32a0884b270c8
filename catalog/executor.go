package catalog

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/teranos/scribe/errors"
	"github.com/teranos/scribe/pulse/generate"
)

// TemplateModel is reported as model_used by TemplateExecutor
const TemplateModel = "template"

// Confidence reported for template descriptions; they only restate metadata
const templateConfidence = 0.4

// TemplateExecutor writes descriptions from catalog metadata alone. It makes
// no external calls and is deterministic, which makes it the offline
// generator for the CLI and for tests.
type TemplateExecutor struct{}

// Execute implements generate.Executor
func (TemplateExecutor) Execute(ctx context.Context, input generate.Context) (generate.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, ok := input.(generate.MapContext)
	if !ok {
		return nil, generate.Permanent(errors.Newf("unsupported context type %T", input))
	}

	switch m["target_type"] {
	case TargetTable:
		return describeTable(m), nil
	case TargetColumn:
		return describeColumn(m), nil
	default:
		return nil, generate.Permanent(errors.Newf("unknown target type %v", m["target_type"]))
	}
}

func describeTable(m generate.MapContext) generate.Result {
	name, _ := m["table_name"].(string)
	columns, _ := m["columns"].([]interface{})

	var b strings.Builder
	fmt.Fprintf(&b, "%s", Humanize(name))
	if kind, ok := m["table_type"].(string); ok && kind != "" && kind != "table" {
		fmt.Fprintf(&b, " %s", kind)
	}
	fmt.Fprintf(&b, " with %d columns", len(columns))
	if rows, ok := m["row_count"].(int64); ok {
		fmt.Fprintf(&b, " and about %d rows", rows)
	}
	if schema, ok := m["schema_name"].(string); ok && schema != "" {
		fmt.Fprintf(&b, " in schema %s", schema)
	}
	b.WriteString(".")

	return generate.Result{
		"description":      b.String(),
		"suggested_name":   Humanize(name),
		"confidence_score": templateConfidence,
		"model_used":       TemplateModel,
		"reasoning":        "derived from table metadata",
	}
}

func describeColumn(m generate.MapContext) generate.Result {
	name, _ := m["column_name"].(string)
	table, _ := m["table_name"].(string)
	dataType, _ := m["data_type"].(string)

	var b strings.Builder
	fmt.Fprintf(&b, "%s of %s, stored as %s", Humanize(name), Humanize(table), dataType)
	if key, _ := m["is_key"].(bool); key {
		b.WriteString("; identifies the row")
	}
	if nullable, _ := m["is_nullable"].(bool); !nullable {
		b.WriteString("; always present")
	}
	b.WriteString(".")
	if desc, ok := m["table_description"].(string); ok && desc != "" {
		fmt.Fprintf(&b, " Table: %s", desc)
	}

	pii, _ := m["is_pii"].(bool)
	return generate.Result{
		"description":      b.String(),
		"suggested_name":   Humanize(name),
		"confidence_score": templateConfidence,
		"model_used":       TemplateModel,
		"reasoning":        "derived from column metadata",
		"suggested_is_pii": pii,
	}
}

// Humanize turns snake_case or kebab-case identifiers into title case words
func Humanize(identifier string) string {
	words := strings.FieldsFunc(identifier, func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || unicode.IsSpace(r)
	})
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
