package assistance

import (
	"github.com/mohitkumar/assist/model"
)

// Context parameter keys shared between dispatcher and operations.
const (
	ContextKeyAID             = "a_id"
	ContextKeyStatementID     = "statement_id"
	ContextKeyUserID          = "user_id"
	ContextKeyResponseObjects = "assistance_objects"
)

// Context is the ephemeral parameter bag passed into one operation
// invocation. Values set through Set are serializable and survive
// scheduling; volatile values exist only for the current synchronous cycle.
type Context struct {
	values   map[string]model.Value
	volatile map[string]any
}

func NewContext() *Context {
	return &Context{
		values:   make(map[string]model.Value),
		volatile: make(map[string]any),
	}
}

// NewContextFromSnapshot rebuilds a context from a persisted snapshot.
func NewContextFromSnapshot(snapshot map[string]model.Value) *Context {
	ctx := NewContext()
	for k, v := range snapshot {
		ctx.values[k] = v
	}
	return ctx
}

func (c *Context) Set(key string, value model.Value) *Context {
	c.values[key] = value
	return c
}

func (c *Context) SetString(key string, value string) *Context {
	return c.Set(key, model.StringValue(value))
}

// SetVolatile stores a value that can not be persisted. A context carrying
// volatile values can not be scheduled.
func (c *Context) SetVolatile(key string, value any) *Context {
	c.volatile[key] = value
	return c
}

func (c *Context) Get(key string) (model.Value, error) {
	v, ok := c.values[key]
	if !ok {
		return model.Value{}, MissingParameterError{Key: key}
	}
	return v, nil
}

func (c *Context) GetString(key string) (string, error) {
	v, err := c.Get(key)
	if err != nil {
		return "", err
	}
	s, ok := v.AsString()
	if !ok {
		return "", MissingParameterError{Key: key}
	}
	return s, nil
}

func (c *Context) Has(key string) bool {
	_, ok := c.values[key]
	if ok {
		return true
	}
	_, ok = c.volatile[key]
	return ok
}

// ResponseObjects returns the client response objects attached to this
// context by the append-response path.
func (c *Context) ResponseObjects() ([]model.AssistanceObject, error) {
	v, ok := c.volatile[ContextKeyResponseObjects]
	if !ok {
		return nil, MissingParameterError{Key: ContextKeyResponseObjects}
	}
	objects, ok := v.([]model.AssistanceObject)
	if !ok {
		return nil, MissingParameterError{Key: ContextKeyResponseObjects}
	}
	return objects, nil
}

// Persistable reports whether the context can be stored for a scheduled
// invocation.
func (c *Context) Persistable() bool {
	return len(c.volatile) == 0
}

// Snapshot returns the serializable view of the context.
func (c *Context) Snapshot() (map[string]model.Value, error) {
	if !c.Persistable() {
		return nil, NotSchedulableError{}
	}
	snapshot := make(map[string]model.Value, len(c.values))
	for k, v := range c.values {
		snapshot[k] = v
	}
	return snapshot, nil
}
