package client

import (
	"context"

	"github.com/nemakiware/cmis-fixture/pkg/cmis"
	"github.com/nemakiware/cmis-fixture/pkg/logger"
)

// Query runs a CMIS SQL statement and returns a single page of results.
func (c *Client) Query(ctx context.Context, statement string, skipCount, maxItems int) (*cmis.QueryResult, error) {
	var res cmis.QueryResult
	err := c.Select(ctx, "", &SelectorParams{
		Selector:  cmis.SelectorQuery,
		Statement: statement,
		MaxItems:  maxItems,
		SkipCount: skipCount,
		Succinct:  c.Succinct,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// QueryAll runs a CMIS SQL statement and follows the pages until the server
// says there are no more items. A page that comes back empty while still
// claiming more items ends the loop. On error, the results of the pages
// already read are returned with it.
func (c *Client) QueryAll(ctx context.Context, statement string) ([]cmis.Object, error) {
	var objs []cmis.Object
	skip := 0
	for {
		page, err := c.Query(ctx, statement, skip, c.pageSize())
		if err != nil {
			return objs, err
		}
		objs = append(objs, page.Results...)
		if !page.HasMoreItems {
			return objs, nil
		}
		if len(page.Results) == 0 {
			logger.WithNamespace("client").
				WithField("skip", skip).
				Warnf("empty page while hasMoreItems is true: %s", statement)
			return objs, nil
		}
		skip += len(page.Results)
	}
}

// FindObjectIDs returns the ids of the objects of the base type whose name
// matches the LIKE pattern (% and _ wildcards). Only the cmis:objectId
// column is read, so objects whose type definition has been removed are
// still found. Rows without an id are skipped.
func (c *Client) FindObjectIDs(ctx context.Context, baseType, pattern string) ([]string, error) {
	objs, err := c.QueryAll(ctx, cmis.NameLikeStatement(baseType, pattern))
	ids := make([]string, 0, len(objs))
	seen := make(map[string]struct{}, len(objs))
	for i := range objs {
		id := objs[i].ID()
		if id == "" {
			logger.WithNamespace("client").
				WithField("pattern", pattern).
				Warnf("query result without %s", cmis.PropObjectID)
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, err
}
