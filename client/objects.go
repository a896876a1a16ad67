package client

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/nemakiware/cmis-fixture/client/request"
	"github.com/nemakiware/cmis-fixture/pkg/cmis"
	"github.com/nemakiware/cmis-fixture/pkg/form"
)

// DefaultPageSize is the maxItems sent by the paged calls when the client
// has no PageSize.
const DefaultPageSize = 100

// failedToDelete is the response of a deleteTree that could not remove
// everything.
type failedToDelete struct {
	IDs []string `json:"ids"`
}

func (c *Client) pageSize() int {
	if c.PageSize > 0 {
		return c.PageSize
	}
	return DefaultPageSize
}

// GetObject returns the object with the given id.
func (c *Client) GetObject(ctx context.Context, objectID string) (*cmis.Object, error) {
	var obj cmis.Object
	err := c.Select(ctx, objectID, &SelectorParams{
		Selector: cmis.SelectorObject,
		Succinct: c.Succinct,
	}, &obj)
	if err != nil {
		return nil, err
	}
	return &obj, nil
}

// ObjectExists returns false, without error, if the server answers that
// the object is not found.
func (c *Client) ObjectExists(ctx context.Context, objectID string) (bool, error) {
	_, err := c.GetObject(ctx, objectID)
	if err == nil {
		return true, nil
	}
	if request.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// Children returns all the children of a folder, following the pages.
func (c *Client) Children(ctx context.Context, folderID string) ([]cmis.Object, error) {
	var objs []cmis.Object
	skip := 0
	for {
		var list cmis.ObjectList
		err := c.Select(ctx, folderID, &SelectorParams{
			Selector:  cmis.SelectorChildren,
			MaxItems:  c.pageSize(),
			SkipCount: skip,
			Succinct:  c.Succinct,
		}, &list)
		if err != nil {
			return objs, err
		}
		for _, child := range list.Objects {
			objs = append(objs, child.Object)
		}
		if !list.HasMoreItems || len(list.Objects) == 0 {
			return objs, nil
		}
		skip += len(list.Objects)
	}
}

func creationForm(action, baseType, parentID, name string, props []form.Property) *form.Form {
	f := form.New(action).Set("objectId", parentID)
	typeID := baseType
	for _, p := range props {
		if p.ID == cmis.PropObjectTypeID && len(p.Values) > 0 {
			typeID = p.Values[0]
		}
	}
	f.AddProperty(cmis.PropObjectTypeID, typeID)
	f.AddProperty(cmis.PropName, name)
	for _, p := range props {
		if p.ID == cmis.PropObjectTypeID || p.ID == cmis.PropName {
			continue
		}
		f.AddProperty(p.ID, p.Values...)
	}
	return f
}

func createdObject(obj *cmis.Object) (*cmis.Object, error) {
	if obj.ID() == "" {
		return nil, ErrNoObjectID
	}
	return obj, nil
}

// CreateFolder creates a folder in the parent folder. The type is
// cmis:folder unless a cmis:objectTypeId property is given.
func (c *Client) CreateFolder(ctx context.Context, parentID, name string, props ...form.Property) (*cmis.Object, error) {
	f := creationForm(cmis.ActionCreateFolder, cmis.BaseFolder, parentID, name, props)
	var obj cmis.Object
	if err := c.Action(ctx, f, &obj); err != nil {
		return nil, err
	}
	return createdObject(&obj)
}

// CreateDocument creates a document in the parent folder. When content is
// not nil, the request is a multipart form with the content stream.
func (c *Client) CreateDocument(ctx context.Context, parentID, name string, content *form.Content, props ...form.Property) (*cmis.Object, error) {
	f := creationForm(cmis.ActionCreateDocument, cmis.BaseDocument, parentID, name, props)
	var obj cmis.Object
	var err error
	if content != nil {
		if content.Filename == "" {
			content.Filename = name
		}
		err = c.ActionMultipart(ctx, f, content, &obj)
	} else {
		err = c.Action(ctx, f, &obj)
	}
	if err != nil {
		return nil, err
	}
	return createdObject(&obj)
}

// Delete deletes a single object. It fails on a non-empty folder.
func (c *Client) Delete(ctx context.Context, objectID string, allVersions bool) error {
	f := form.New(cmis.ActionDelete).
		Set("objectId", objectID).
		Set("allVersions", strconv.FormatBool(allVersions))
	return c.Action(ctx, f, nil)
}

// DeleteTree deletes a folder and all its descendants, continuing on
// failure. It returns the ids of the objects that could not be deleted.
func (c *Client) DeleteTree(ctx context.Context, folderID string) ([]string, error) {
	f := form.New(cmis.ActionDeleteTree).
		Set("objectId", folderID).
		Set("allVersions", "true").
		Set("continueOnFailure", "true")
	b, err := c.actionRaw(ctx, f)
	if err != nil || len(b) == 0 {
		return nil, err
	}
	var failed failedToDelete
	if err := json.Unmarshal(b, &failed); err == nil {
		return failed.IDs, nil
	}
	var ids []string
	if err := json.Unmarshal(b, &ids); err == nil {
		return ids, nil
	}
	return nil, &request.ParseError{StatusCode: 200, Body: b, Err: errUnexpectedShape}
}
