package nestable

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	adminAccount Account = "0.0.1001"
	aliceAccount Account = "0.0.2002"
	bobAccount   Account = "0.0.3003"
	carolAccount Account = "0.0.4004"

	filmsID      RegistryID = "0.0.5001"
	charactersID RegistryID = "0.0.5002"
	foreignID    RegistryID = "0.0.6006"
)

type fixture struct {
	ctx        context.Context
	directory  *Directory
	films      *Registry
	characters *Registry
}

func newFixture(t testing.TB, mutate ...func(films *Config, characters *Config)) fixture {
	t.Helper()
	f, err := buildFixture(mutate...)
	require.NoError(t, err)
	return f
}

func buildFixture(mutate ...func(films *Config, characters *Config)) (fixture, error) {
	filmsConfig := Config{
		Name:                   "Films",
		Symbol:                 "FLM",
		BaseTokenURI:           "ipfs://films/",
		TokenURIIsEnumerable:   true,
		Admin:                  adminAccount,
		AllowedChildRegistries: []RegistryID{charactersID, foreignID},
	}
	charactersConfig := Config{
		Name:                   "Characters",
		Symbol:                 "CHR",
		BaseTokenURI:           "ipfs://characters.json",
		Admin:                  adminAccount,
		AllowedChildRegistries: []RegistryID{filmsID},
	}
	for _, apply := range mutate {
		apply(&filmsConfig, &charactersConfig)
	}

	directory := NewDirectory(DirectoryOptions{})
	films, err := NewRegistry(directory, string(filmsID), filmsConfig)
	if err != nil {
		return fixture{}, err
	}
	characters, err := NewRegistry(directory, string(charactersID), charactersConfig)
	if err != nil {
		return fixture{}, err
	}

	return fixture{
		ctx:        context.Background(),
		directory:  directory,
		films:      films,
		characters: characters,
	}, nil
}

func (f fixture) mintFilm(t testing.TB, to Account) TokenID {
	t.Helper()
	ids, err := f.films.Mint(f.ctx, adminAccount, to, 1)
	require.NoError(t, err)
	return ids[0]
}

func ref(registry RegistryID, id TokenID) TokenRef {
	return TokenRef{Registry: registry, TokenID: id}
}

// fakeSource is a TokenSource outside this package's control.
type fakeSource struct {
	id         RegistryID
	owners     map[TokenID]Owner
	onAccepted func(ctx context.Context, childID TokenID, parent TokenRef) error
}

func newFakeSource(id RegistryID) *fakeSource {
	return &fakeSource{id: id, owners: map[TokenID]Owner{}}
}

func (source *fakeSource) ID() RegistryID { return source.id }

func (source *fakeSource) Exists(ctx context.Context, tokenID TokenID) (bool, error) {
	_, ok := source.owners[tokenID]
	return ok, nil
}

func (source *fakeSource) DirectOwnerOf(ctx context.Context, tokenID TokenID) (Owner, error) {
	owner, ok := source.owners[tokenID]
	if !ok {
		return Owner{}, NewUnknownTokenError(source.id, tokenID)
	}
	return owner, nil
}

func (source *fakeSource) ReceiveChild(ctx context.Context, parentID TokenID, child TokenRef, caller Account) error {
	return nil
}

func (source *fakeSource) NotifyAccepted(ctx context.Context, childID TokenID, parent TokenRef) error {
	if source.onAccepted != nil {
		return source.onAccepted(ctx, childID, parent)
	}
	return nil
}

func (source *fakeSource) NotifyChildTransferred(ctx context.Context, childID TokenID, from TokenRef, to Owner) error {
	source.owners[childID] = to
	return nil
}

func (source *fakeSource) NotifyChildBurned(ctx context.Context, parentID TokenID, child TokenRef) error {
	return nil
}

func (source *fakeSource) BurnChild(ctx context.Context, childID TokenID, parent TokenRef, maxRecursiveBurns int) (int, error) {
	delete(source.owners, childID)
	return 1, nil
}

type recordingSink struct {
	batches [][]Event
}

func (sink *recordingSink) HandleEvents(ctx context.Context, events []Event) error {
	sink.batches = append(sink.batches, append([]Event{}, events...))
	return nil
}
