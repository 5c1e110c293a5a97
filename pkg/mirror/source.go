package mirror

import (
	"context"
	"errors"
	"fmt"

	"github.com/bookmart/nestable-sdk-go/pkg/nestable"
)

const readOnlyReason = "remote registry is read-only"

// RemoteSource exposes one remote registry as a read-only TokenSource.
type RemoteSource struct {
	client *Client
	id     nestable.RegistryID
}

var _ nestable.TokenSource = (*RemoteSource)(nil)

func NewRemoteSource(client *Client, registry string) (*RemoteSource, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	id, err := nestable.NormalizeRegistryID(registry)
	if err != nil {
		return nil, err
	}
	return &RemoteSource{client: client, id: id}, nil
}

func (source *RemoteSource) ID() nestable.RegistryID {
	return source.id
}

func (source *RemoteSource) Exists(ctx context.Context, tokenID nestable.TokenID) (bool, error) {
	if tokenID == 0 {
		return false, nil
	}
	_, err := source.client.GetToken(ctx, source.id, tokenID)
	if err == nil {
		return true, nil
	}
	var status StatusError
	if errors.As(err, &status) && status.NotFound() {
		return false, nil
	}
	return false, err
}

func (source *RemoteSource) DirectOwnerOf(ctx context.Context, tokenID nestable.TokenID) (nestable.Owner, error) {
	token, err := source.client.GetToken(ctx, source.id, tokenID)
	if err != nil {
		var status StatusError
		if errors.As(err, &status) && status.NotFound() {
			return nestable.Owner{}, nestable.NewUnknownTokenError(source.id, tokenID)
		}
		return nestable.Owner{}, err
	}
	return token.DirectOwner, nil
}

func (source *RemoteSource) ReceiveChild(ctx context.Context, parentID nestable.TokenID, child nestable.TokenRef, caller nestable.Account) error {
	return nestable.NewAuthorizationError(source.id, caller, parentID, readOnlyReason)
}

func (source *RemoteSource) NotifyAccepted(ctx context.Context, childID nestable.TokenID, parent nestable.TokenRef) error {
	return nestable.NewAuthorizationError(source.id, "", childID, readOnlyReason)
}

func (source *RemoteSource) NotifyChildTransferred(ctx context.Context, childID nestable.TokenID, from nestable.TokenRef, to nestable.Owner) error {
	return nestable.NewAuthorizationError(source.id, "", childID, readOnlyReason)
}

func (source *RemoteSource) NotifyChildBurned(ctx context.Context, parentID nestable.TokenID, child nestable.TokenRef) error {
	return nestable.NewAuthorizationError(source.id, "", parentID, readOnlyReason)
}

func (source *RemoteSource) BurnChild(ctx context.Context, childID nestable.TokenID, parent nestable.TokenRef, maxRecursiveBurns int) (int, error) {
	return 0, nestable.NewAuthorizationError(source.id, "", childID, readOnlyReason)
}
