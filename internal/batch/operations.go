package batch

import (
	"net/http"

	"github.com/nlstn/go-odata-client/internal/keys"
	"github.com/nlstn/go-odata-client/internal/query"
)

// Get builds a GET operation for resource with the given query options, which
// may be nil. Headers set on opts are carried over to the operation.
func (c *Codec) Get(id, resource string, opts *query.Options) (Operation, error) {
	path := resource
	var headers []Header
	if opts != nil {
		u, err := opts.BuildURL(resource)
		if err != nil {
			return Operation{}, err
		}
		path = u
		for _, h := range opts.Headers() {
			headers = append(headers, Header{Name: h.Name, Value: h.Value})
		}
	}
	return Operation{ID: id, Method: http.MethodGet, Path: path, Headers: headers}, nil
}

// GetEntity builds a GET operation for a single entity. key is a single key
// value or a []keys.NamedValue composite key.
func (c *Codec) GetEntity(id, entitySet string, key interface{}) (Operation, error) {
	return c.entityOperation(id, http.MethodGet, entitySet, key, nil)
}

// Create builds a POST of body to entitySet.
func (c *Codec) Create(id, entitySet string, body []byte) Operation {
	return Operation{ID: id, Method: http.MethodPost, Path: entitySet, Body: body}
}

// Update builds a PATCH of the entity addressed by key.
func (c *Codec) Update(id, entitySet string, key interface{}, body []byte) (Operation, error) {
	return c.entityOperation(id, http.MethodPatch, entitySet, key, body)
}

// Replace builds a PUT of the entity addressed by key.
func (c *Codec) Replace(id, entitySet string, key interface{}, body []byte) (Operation, error) {
	return c.entityOperation(id, http.MethodPut, entitySet, key, body)
}

// Delete builds a DELETE of the entity addressed by key.
func (c *Codec) Delete(id, entitySet string, key interface{}) (Operation, error) {
	return c.entityOperation(id, http.MethodDelete, entitySet, key, nil)
}

func (c *Codec) entityOperation(id, method, entitySet string, key interface{}, body []byte) (Operation, error) {
	opts := query.NewOptions().WithTranslator(query.Translator{Formatter: c.keys.Literals})
	if composite, ok := key.([]keys.NamedValue); ok {
		opts.CompositeKey(composite...)
	} else {
		opts.Key(key)
	}
	path, err := opts.BuildURL(entitySet)
	if err != nil {
		return Operation{}, err
	}
	return Operation{ID: id, Method: method, Path: path, Body: body}, nil
}
