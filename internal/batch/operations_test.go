package batch

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlstn/go-odata-client/internal/edm"
	"github.com/nlstn/go-odata-client/internal/keys"
	"github.com/nlstn/go-odata-client/internal/query"
)

func TestOperationHelpers(t *testing.T) {
	c := NewCodec()

	get, err := c.GetEntity("g", "Orders", []keys.NamedValue{
		{Name: "CustomerId", Value: "ALFKI"},
		{Name: "OrderId", Value: 5},
	})
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, get.Method)
	assert.Equal(t, "Orders(CustomerId='ALFKI',OrderId=5)", get.Path)

	create := c.Create("c", "Orders", []byte(`{}`))
	assert.Equal(t, Operation{ID: "c", Method: http.MethodPost, Path: "Orders", Body: []byte(`{}`)}, create)

	update, err := c.Update("u", "Orders", 7, []byte(`{"Total":1}`))
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, update.Method)
	assert.Equal(t, "Orders(7)", update.Path)

	replace, err := c.Replace("r", "People", "O'Neil", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, replace.Method)
	assert.Equal(t, "People('O''Neil')", replace.Path)

	del, err := c.Delete("d", "People", "Ann Lee")
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, del.Method)
	assert.Equal(t, "People('Ann%20Lee')", del.Path)
}

func TestOperationHelpersRejectBadKeys(t *testing.T) {
	c := NewCodec()

	_, err := c.Delete("d", "People", nil)
	assert.ErrorIs(t, err, keys.ErrKeyFormat)

	_, err = c.GetEntity("g", "Orders", []keys.NamedValue{{Name: "A", Value: 1}, {Name: "A", Value: 2}})
	assert.ErrorIs(t, err, keys.ErrKeyFormat)
}

func TestOperationHelpersUseLiteralFormatter(t *testing.T) {
	id := uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")

	op, err := NewCodec().GetEntity("1", "Devices", id)
	require.NoError(t, err)
	assert.Equal(t, "Devices(guid'0f8fad5b-d9cb-469f-a165-70867728950e')", op.Path)

	op, err = NewCodec(WithLiteralFormatter(edm.Formatter{BareGUIDs: true})).GetEntity("1", "Devices", id)
	require.NoError(t, err)
	assert.Equal(t, "Devices(0f8fad5b-d9cb-469f-a165-70867728950e)", op.Path)
}

func TestGetCarriesQueryOptions(t *testing.T) {
	c := NewCodec()

	op, err := c.Get("q", "People", query.NewOptions().
		Filter(query.Eq(query.Prop("City"), "New York")).
		Top(2).
		Header("Prefer", "odata.include-annotations=*"))
	require.NoError(t, err)
	assert.Equal(t, "People?$filter=City%20eq%20'New%20York'&$top=2", op.Path)
	assert.Equal(t, []Header{{Name: "Prefer", Value: "odata.include-annotations=*"}}, op.Headers)

	op, err = c.Get("plain", "People", nil)
	require.NoError(t, err)
	assert.Equal(t, "People", op.Path)

	_, err = c.Get("bad", "People", query.NewOptions().Top(-1))
	assert.ErrorIs(t, err, query.ErrInvalidQueryOption)
}

func TestIfMatch(t *testing.T) {
	c := NewCodec()
	update, err := c.Update("u", "Orders", 7, []byte(`{}`))
	require.NoError(t, err)

	guarded := update.IfMatch(`W/"3"`)
	assert.Empty(t, update.Headers)
	assert.Equal(t, []Header{{Name: "If-Match", Value: `W/"3"`}}, guarded.Headers)

	assert.Equal(t, []Header{{Name: "If-Match", Value: `"abc"`}}, update.IfMatch("abc").Headers)
	assert.Equal(t, []Header{{Name: "If-Match", Value: "*"}}, update.IfMatch("*").Headers)
}

func TestResponseETag(t *testing.T) {
	resp := &Response{Header: http.Header{"Etag": {`W/"9"`}}}
	tag, ok := resp.ETag()
	assert.True(t, ok)
	assert.Equal(t, `W/"9"`, tag)

	resp = &Response{Header: http.Header{}, Body: []byte(`{"@odata.etag":"W/\"2\""}`)}
	tag, ok = resp.ETag()
	assert.True(t, ok)
	assert.Equal(t, `W/"2"`, tag)

	var missing *Response
	_, ok = missing.ETag()
	assert.False(t, ok)
}
