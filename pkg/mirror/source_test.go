package mirror

import (
	"context"
	"errors"
	"testing"

	"github.com/bookmart/nestable-sdk-go/pkg/nestable"
)

func TestRemoteSourceResolvesOwnership(t *testing.T) {
	ctx := context.Background()
	client := newRemote(t)

	source, err := NewRemoteSource(client, " 0.0.5002 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.ID() != charactersID {
		t.Fatalf("unexpected id %s", source.ID())
	}

	directory := nestable.NewDirectory(nestable.DirectoryOptions{})
	if err := directory.Register(source); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	owner, err := directory.OwnerOf(ctx, nestable.TokenRef{Registry: charactersID, TokenID: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owner != aliceAccount {
		t.Fatalf("expected %s, got %s", aliceAccount, owner)
	}

	exists, err := source.Exists(ctx, 99)
	if err != nil || exists {
		t.Fatalf("expected missing token, got %v %v", exists, err)
	}
	_, err = source.DirectOwnerOf(ctx, 99)
	var unknown nestable.UnknownTokenError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownTokenError, got %v", err)
	}
}

func TestRemoteSourceRefusesMutations(t *testing.T) {
	ctx := context.Background()
	client := newRemote(t)
	source, err := NewRemoteSource(client, string(charactersID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	directory := nestable.NewDirectory(nestable.DirectoryOptions{})
	if err := directory.Register(source); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	films, err := nestable.NewRegistry(directory, string(filmsID), nestable.Config{Name: "Films", Symbol: "FLM", Admin: adminAccount})
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}

	_, err = films.NestMint(ctx, aliceAccount, charactersID, 1, 1)
	var unauthorized nestable.AuthorizationError
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected AuthorizationError, got %v", err)
	}
	supply, err := films.TotalSupply(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if supply != 0 {
		t.Fatalf("expected the failed nest mint to roll back, supply %d", supply)
	}

	if _, err := source.BurnChild(ctx, 1, nestable.TokenRef{Registry: filmsID, TokenID: 1}, 0); !errors.As(err, &unauthorized) {
		t.Fatalf("expected AuthorizationError, got %v", err)
	}

	if _, err := NewRemoteSource(nil, string(charactersID)); err == nil {
		t.Fatalf("expected error without client")
	}
}
