package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/scribe/errors"
	"github.com/teranos/scribe/pulse/generate"
)

type descriptionMap map[string]string

func (d descriptionMap) Description(_ context.Context, id string) (string, bool, error) {
	s, ok := d[id]
	return s, ok, nil
}

func TestContextBuilder_Table(t *testing.T) {
	cat := shop(t)
	input, err := ContextBuilder{}.Build(context.Background(), generate.KindParent, cat.Tables[0])
	require.NoError(t, err)

	m := input.(generate.MapContext)
	assert.Equal(t, TargetTable, m["target_type"])
	assert.Equal(t, "public.orders", m["target_name"])
	assert.Equal(t, int64(120000), m["row_count"])
	assert.Len(t, m["columns"], 2)
	assert.Equal(t, PromptVersion, m["prompt_version"])
}

func TestContextBuilder_ColumnUsesTableDescription(t *testing.T) {
	cat := shop(t)
	b := ContextBuilder{Descriptions: descriptionMap{"table_1": "Customer orders."}}

	input, err := b.Build(context.Background(), generate.KindChild, cat.Tables[0].Columns[1])
	require.NoError(t, err)
	m := input.(generate.MapContext)
	assert.Equal(t, "orders.customer_email", m["target_name"])
	assert.Equal(t, "Customer orders.", m["table_description"])
	profile := m["profile"].(map[string]interface{})
	assert.Equal(t, int64(5400), profile["cardinality"])

	// catalog description wins over the generated one
	input, err = b.Build(context.Background(), generate.KindChild, cat.Tables[1].Columns[0])
	require.NoError(t, err)
	assert.Equal(t, "Sales regions used for reporting.", input.(generate.MapContext)["table_description"])
}

func TestContextBuilder_DescriptionLookupFailure(t *testing.T) {
	cat := shop(t)
	b := ContextBuilder{Descriptions: failingSource{}}
	_, err := b.Build(context.Background(), generate.KindChild, cat.Tables[0].Columns[0])
	require.Error(t, err)
	assert.False(t, generate.IsPermanent(err), "lookup failures are retryable")
}

type failingSource struct{}

func (failingSource) Description(context.Context, string) (string, bool, error) {
	return "", false, errors.New("database is locked")
}

func TestContextBuilder_FingerprintStableAcrossFormats(t *testing.T) {
	fromYAML := shop(t)
	fromTOML, err := Load("testdata/shop.toml")
	require.NoError(t, err)

	for i, table := range fromYAML.Tables {
		for j, col := range table.Columns {
			a, err := ContextBuilder{}.Build(context.Background(), generate.KindChild, col)
			require.NoError(t, err)
			b, err := ContextBuilder{}.Build(context.Background(), generate.KindChild, fromTOML.Tables[i].Columns[j])
			require.NoError(t, err)

			fa, err := a.Fingerprint()
			require.NoError(t, err)
			fb, err := b.Fingerprint()
			require.NoError(t, err)
			assert.Equal(t, fa, fb, col.Name)
		}
	}
}

func TestContextBuilder_RejectsForeignEntities(t *testing.T) {
	_, err := ContextBuilder{}.Build(context.Background(), generate.KindParent, foreign("x"))
	require.Error(t, err)
	assert.True(t, generate.IsPermanent(err))

	_, err = ContextBuilder{}.Build(context.Background(), generate.KindChild, &Column{Name: "orphan"})
	assert.True(t, generate.IsPermanent(err))
}

type foreign string

func (f foreign) ID() string { return string(f) }
