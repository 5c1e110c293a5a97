package queryapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bookmart/nestable-sdk-go/pkg/journal"
	"github.com/bookmart/nestable-sdk-go/pkg/nestable"
)

const (
	adminAccount nestable.Account    = "0.0.1001"
	aliceAccount nestable.Account    = "0.0.2002"
	bobAccount   nestable.Account    = "0.0.3003"
	filmsID      nestable.RegistryID = "0.0.5001"
	charactersID nestable.RegistryID = "0.0.5002"
)

type testServer struct {
	server     *httptest.Server
	films      *nestable.Registry
	characters *nestable.Registry
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	ctx := context.Background()

	events, err := journal.Open(journal.MemoryPath, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}
	t.Cleanup(func() { _ = events.Close() })

	directory := nestable.NewDirectory(nestable.DirectoryOptions{})
	directory.AddSink(events)
	films, err := nestable.NewRegistry(directory, string(filmsID), nestable.Config{
		Name:                   "Films",
		Symbol:                 "FLM",
		BaseTokenURI:           "ipfs://films/",
		TokenURIIsEnumerable:   true,
		Admin:                  adminAccount,
		AllowedChildRegistries: []nestable.RegistryID{charactersID},
	})
	if err != nil {
		t.Fatalf("failed to create films: %v", err)
	}
	characters, err := nestable.NewRegistry(directory, string(charactersID), nestable.Config{
		Name:   "Characters",
		Symbol: "CHR",
		Admin:  adminAccount,
	})
	if err != nil {
		t.Fatalf("failed to create characters: %v", err)
	}

	if _, err := films.Mint(ctx, adminAccount, aliceAccount, 1); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if _, err := characters.NestMint(ctx, aliceAccount, filmsID, 1, 1); err != nil {
		t.Fatalf("nest mint failed: %v", err)
	}
	if _, err := films.AddAssetEntry(ctx, adminAccount, "ipfs://poster"); err != nil {
		t.Fatalf("add asset entry failed: %v", err)
	}
	if err := films.AddAssetToTokens(ctx, adminAccount, []nestable.TokenID{1}, 1, 0); err != nil {
		t.Fatalf("add asset failed: %v", err)
	}
	if err := films.AcceptAsset(ctx, aliceAccount, 1, 0, 1); err != nil {
		t.Fatalf("accept asset failed: %v", err)
	}

	server := httptest.NewServer(NewServer(directory, Options{Journal: events}))
	t.Cleanup(server.Close)
	return testServer{server: server, films: films, characters: characters}
}

func getJSON(t *testing.T, url string, target any) int {
	t.Helper()
	response, err := http.Get(url)
	if err != nil {
		t.Fatalf("request %s failed: %v", url, err)
	}
	defer response.Body.Close()
	if target != nil {
		if err := json.NewDecoder(response.Body).Decode(target); err != nil {
			t.Fatalf("failed to decode %s: %v", url, err)
		}
	}
	return response.StatusCode
}

func TestGetTokenIsConsistentDuringTransfers(t *testing.T) {
	fixture := newTestServer(t)
	ctx := context.Background()

	var start TokenResponse
	getJSON(t, fixture.server.URL+"/registries/0.0.5002/tokens/1", &start)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		holder, next := aliceAccount, bobAccount
		for {
			select {
			case <-stop:
				return
			default:
			}
			if err := fixture.films.Transfer(ctx, holder, 1, next); err != nil {
				t.Errorf("transfer failed: %v", err)
				return
			}
			holder, next = next, holder
		}
	}()
	defer func() {
		close(stop)
		<-done
	}()

	deadline := time.Now().Add(200 * time.Millisecond)
	for requests := 0; requests < 20 || time.Now().Before(deadline); requests++ {
		var character TokenResponse
		if status := getJSON(t, fixture.server.URL+"/registries/0.0.5002/tokens/1", &character); status != http.StatusOK {
			t.Fatalf("unexpected status %d", status)
		}
		expected := aliceAccount
		if (character.Generation-start.Generation)%2 == 1 {
			expected = bobAccount
		}
		if character.Owner != expected {
			t.Fatalf("owner %s does not match generation %d", character.Owner, character.Generation)
		}
	}
}

func TestGetToken(t *testing.T) {
	fixture := newTestServer(t)

	var film TokenResponse
	status := getJSON(t, fixture.server.URL+"/registries/0.0.5001/tokens/1", &film)
	if status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	if film.Owner != aliceAccount || film.DirectOwner.IsToken() {
		t.Fatalf("unexpected owner: %+v", film)
	}
	if len(film.ActiveChildren) != 1 || film.ActiveChildren[0] != (nestable.TokenRef{Registry: charactersID, TokenID: 1}) {
		t.Fatalf("unexpected children: %+v", film.ActiveChildren)
	}
	if len(film.ActiveAssets) != 1 || film.ActiveAssets[0] != 1 {
		t.Fatalf("unexpected assets: %+v", film.ActiveAssets)
	}
	if film.TokenURI != "ipfs://films/1" {
		t.Fatalf("unexpected token URI %s", film.TokenURI)
	}

	var character TokenResponse
	status = getJSON(t, fixture.server.URL+"/registries/0.0.5002/tokens/1", &character)
	if status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	if character.Owner != aliceAccount || character.DirectOwner.Parent != (nestable.TokenRef{Registry: filmsID, TokenID: 1}) {
		t.Fatalf("unexpected nested owner: %+v", character)
	}
}

func TestGetBalanceAndAsset(t *testing.T) {
	fixture := newTestServer(t)

	var balance BalanceResponse
	if status := getJSON(t, fixture.server.URL+"/registries/0.0.5001/accounts/0.0.2002/balance", &balance); status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	if balance.Balance != 1 || balance.Account != aliceAccount {
		t.Fatalf("unexpected balance: %+v", balance)
	}

	var asset AssetResponse
	if status := getJSON(t, fixture.server.URL+"/registries/0.0.5001/assets/1", &asset); status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	if asset.Reference != "ipfs://poster" {
		t.Fatalf("unexpected asset: %+v", asset)
	}
}

func TestErrorStatuses(t *testing.T) {
	fixture := newTestServer(t)

	cases := map[string]int{
		"/registries/0.0.5001/tokens/9":                http.StatusNotFound,
		"/registries/0.0.5001/tokens/0":                http.StatusBadRequest,
		"/registries/0.0.5001/tokens/abc":              http.StatusBadRequest,
		"/registries/0.0.9999/tokens/1":                http.StatusNotFound,
		"/registries/not-an-id/tokens/1":               http.StatusBadRequest,
		"/registries/0.0.5001/assets/7":                http.StatusNotFound,
		"/registries/0.0.5001/accounts/nobody/balance": http.StatusBadRequest,
		"/registries/0.0.5001/events?limit=0":          http.StatusBadRequest,
		"/nowhere":                                     http.StatusNotFound,
	}
	for path, expected := range cases {
		var body ErrorResponse
		status := getJSON(t, fixture.server.URL+path, &body)
		if status != expected {
			t.Fatalf("%s: expected %d, got %d (%s)", path, expected, status, body.Error)
		}
		if body.Error == "" {
			t.Fatalf("%s: expected an error message", path)
		}
	}
}

func TestListRegistriesAndEvents(t *testing.T) {
	fixture := newTestServer(t)

	var registries RegistriesResponse
	if status := getJSON(t, fixture.server.URL+"/registries", &registries); status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	if len(registries.Registries) != 2 || registries.Generation != 5 {
		t.Fatalf("unexpected registries: %+v", registries)
	}

	var page EventsResponse
	if status := getJSON(t, fixture.server.URL+"/registries/0.0.5001/events?limit=2", &page); status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	if len(page.Events) != 2 || page.Events[0].Event.Type != nestable.EventMint {
		t.Fatalf("unexpected events: %+v", page.Events)
	}

	var rest EventsResponse
	url := fixture.server.URL + "/registries/0.0.5001/events?after=" + jsonNumber(page.Next)
	if status := getJSON(t, url, &rest); status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	for _, entry := range rest.Events {
		if entry.Seq <= page.Next {
			t.Fatalf("entry %d is not after %d", entry.Seq, page.Next)
		}
		if entry.Event.Registry != filmsID {
			t.Fatalf("unexpected registry %s", entry.Event.Registry)
		}
	}
	if len(rest.Events) == 0 {
		t.Fatalf("expected more events after %d", page.Next)
	}
}

func jsonNumber(value int64) string {
	encoded, _ := json.Marshal(value)
	return string(encoded)
}
