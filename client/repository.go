package client

import (
	"context"

	"github.com/nemakiware/cmis-fixture/pkg/cmis"
)

// RepositoryInfo returns the information of the configured repository.
func (c *Client) RepositoryInfo(ctx context.Context) (*cmis.RepositoryInfo, error) {
	var infos cmis.RepositoryInfos
	err := c.Select(ctx, "", &SelectorParams{Selector: cmis.SelectorRepositoryInfo}, &infos)
	if err != nil {
		return nil, err
	}
	info, ok := infos[c.Repository]
	if !ok || info == nil {
		return nil, ErrRepositoryNotFound
	}
	if info.ID == "" {
		info.ID = c.Repository
	}
	return info, nil
}

// RootFolderID returns the id of the root folder of the repository.
func (c *Client) RootFolderID(ctx context.Context) (string, error) {
	info, err := c.RepositoryInfo(ctx)
	if err != nil {
		return "", err
	}
	if info.RootFolderID == "" {
		return "", ErrNoObjectID
	}
	return info.RootFolderID, nil
}

// Authenticate checks that the credentials of the client are accepted by
// the server, by reading the repository information. A rejection gives an
// error for which request.IsPermissionDenied is true.
func (c *Client) Authenticate(ctx context.Context) error {
	_, err := c.RepositoryInfo(ctx)
	return err
}
