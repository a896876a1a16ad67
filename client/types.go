package client

import (
	"context"

	"github.com/nemakiware/cmis-fixture/pkg/cmis"
	"github.com/nemakiware/cmis-fixture/pkg/form"
)

// CreateType registers a new type, and returns its definition as stored by
// the server.
func (c *Client) CreateType(ctx context.Context, def *cmis.TypeDefinition) (*cmis.TypeDefinition, error) {
	js, err := def.JSON()
	if err != nil {
		return nil, err
	}
	f := form.New(cmis.ActionCreateType).Set("type", js)
	var created cmis.TypeDefinition
	if err := c.Action(ctx, f, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		created = *def
	}
	return &created, nil
}

// DeleteType removes a type. The server refuses it while objects of this
// type exist.
func (c *Client) DeleteType(ctx context.Context, typeID string) error {
	f := form.New(cmis.ActionDeleteType).Set("typeId", typeID)
	return c.Action(ctx, f, nil)
}

// GetTypeDefinition returns the definition of a type.
func (c *Client) GetTypeDefinition(ctx context.Context, typeID string) (*cmis.TypeDefinition, error) {
	var def cmis.TypeDefinition
	err := c.Select(ctx, "", &SelectorParams{
		Selector: cmis.SelectorTypeDefinition,
		TypeID:   typeID,
	}, &def)
	if err != nil {
		return nil, err
	}
	return &def, nil
}
