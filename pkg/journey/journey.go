package journey

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bookmart/nestable-sdk-go/pkg/nestable"
	"github.com/bookmart/nestable-sdk-go/pkg/shared"
)

// Scenario parameterizes the walkthrough.
type Scenario struct {
	Curator           nestable.Account    `yaml:"curator" mapstructure:"curator"`
	Visitor           nestable.Account    `yaml:"visitor" mapstructure:"visitor"`
	FilmRegistry      nestable.RegistryID `yaml:"film_registry" mapstructure:"film_registry"`
	CharacterRegistry nestable.RegistryID `yaml:"character_registry" mapstructure:"character_registry"`
	FilmAssets        []string            `yaml:"film_assets" mapstructure:"film_assets"`
	CharacterAssets   []string            `yaml:"character_assets" mapstructure:"character_assets"`
	CharactersPerFilm int                 `yaml:"characters_per_film" mapstructure:"characters_per_film"`
}

// DefaultScenario mirrors the gallery demo: three films, three characters
// per film, three poster assets and one asset triple per character slot.
func DefaultScenario() Scenario {
	return Scenario{
		Curator:           "0.0.1001",
		Visitor:           "0.0.2002",
		FilmRegistry:      "0.0.5001",
		CharacterRegistry: "0.0.5002",
		FilmAssets: []string{
			"ipfs://QmQWoLb2WfYsWUcXfyQcodVEoVbaByWH4WmB5K8CdREVbh",
			"ipfs://QmW8xbC6aUTHWgSxYykq7jizhzYCbxfsyodkeBa4BqY6Si",
			"ipfs://QmdXhkjUbbF5KWUv8Kwng6542f4pEamKjmBMi3DVb24e9J",
		},
		CharacterAssets: []string{
			"ipfs://portrait1", "ipfs://metadata1", "ipfs://voice1",
			"ipfs://portrait2", "ipfs://metadata2", "ipfs://voice2",
			"ipfs://portrait3", "ipfs://metadata3", "ipfs://voice3",
		},
		CharactersPerFilm: 3,
	}
}

// WithGeneratedAccounts replaces the curator and visitor of scenario with
// fresh secp256k1 accounts.
func WithGeneratedAccounts(scenario Scenario) (Scenario, error) {
	curator, _, err := shared.GenerateAccount()
	if err != nil {
		return Scenario{}, fmt.Errorf("generate curator: %w", err)
	}
	visitor, _, err := shared.GenerateAccount()
	if err != nil {
		return Scenario{}, fmt.Errorf("generate visitor: %w", err)
	}
	scenario.Curator = nestable.Account(curator)
	scenario.Visitor = nestable.Account(visitor)
	return scenario, nil
}

// Report is the final state of both collections.
type Report struct {
	Generation uint64                `yaml:"generation" json:"generation"`
	Curator    nestable.Account      `yaml:"curator" json:"curator"`
	Visitor    nestable.Account      `yaml:"visitor" json:"visitor"`
	Balances   map[string]int        `yaml:"balances" json:"balances"`
	Films      []TokenReport         `yaml:"films" json:"films"`
	Characters []TokenReport         `yaml:"characters" json:"characters"`
	Registries []nestable.RegistryID `yaml:"registries" json:"registries"`
}

type TokenReport struct {
	Registry        nestable.RegistryID `yaml:"registry" json:"registry"`
	ID              nestable.TokenID    `yaml:"id" json:"id"`
	DirectOwner     string              `yaml:"direct_owner" json:"directOwner"`
	Owner           nestable.Account    `yaml:"owner" json:"owner"`
	ActiveAssets    []nestable.AssetID  `yaml:"active_assets,flow" json:"activeAssets"`
	PendingAssets   []nestable.AssetID  `yaml:"pending_assets,flow" json:"pendingAssets"`
	ActiveChildren  []string            `yaml:"active_children,omitempty,flow" json:"activeChildren,omitempty"`
	PendingChildren []string            `yaml:"pending_children,omitempty,flow" json:"pendingChildren,omitempty"`
}

// Collections holds the two registries the walkthrough deploys.
type Collections struct {
	Films      *nestable.Registry
	Characters *nestable.Registry
}

// Deploy creates the film and character registries on directory.
func Deploy(directory *nestable.Directory, scenario Scenario) (Collections, error) {
	films, err := nestable.NewRegistry(directory, string(scenario.FilmRegistry), nestable.Config{
		Name:                   "Pet Projects",
		Symbol:                 "PET",
		CollectionMetadata:     "ipfs://collectionMeta",
		BaseTokenURI:           "ipfs://tokenMeta",
		RoyaltyPercentageBps:   1000,
		MaxSupply:              10_000,
		PricePerMint:           "1000000000000000",
		Admin:                  scenario.Curator,
		AllowedChildRegistries: []nestable.RegistryID{scenario.CharacterRegistry},
	})
	if err != nil {
		return Collections{}, fmt.Errorf("deploy films: %w", err)
	}
	characters, err := nestable.NewRegistry(directory, string(scenario.CharacterRegistry), nestable.Config{
		Name:         "Cat",
		Symbol:       "CAT",
		BaseTokenURI: "ipfs://characterMeta",
		Admin:        scenario.Curator,
	})
	if err != nil {
		return Collections{}, fmt.Errorf("deploy characters: %w", err)
	}
	return Collections{Films: films, Characters: characters}, nil
}

// Run deploys both collections and plays the walkthrough. Film 1 goes to
// the curator, films 2 and 3 to the visitor.
func Run(ctx context.Context, directory *nestable.Directory, scenario Scenario, logger zerolog.Logger) (Report, error) {
	if scenario.CharactersPerFilm <= 0 {
		return Report{}, fmt.Errorf("characters per film must be positive")
	}
	if len(scenario.CharacterAssets) < scenario.CharactersPerFilm {
		return Report{}, fmt.Errorf("need at least %d character assets", scenario.CharactersPerFilm)
	}

	collections, err := Deploy(directory, scenario)
	if err != nil {
		return Report{}, err
	}
	films, characters := collections.Films, collections.Characters
	curator := scenario.Curator
	visitor := scenario.Visitor
	logger.Info().Str("films", string(films.ID())).Str("characters", string(characters.ID())).Msg("collections deployed")

	owners := []nestable.Account{curator, visitor, visitor}
	filmIDs := make([]nestable.TokenID, 0, len(owners))
	for _, owner := range owners {
		minted, err := films.Mint(ctx, curator, owner, 1)
		if err != nil {
			return Report{}, fmt.Errorf("mint film for %s: %w", owner, err)
		}
		filmIDs = append(filmIDs, minted...)
	}
	logger.Info().Int("films", len(filmIDs)).Msg("films minted")

	posterIDs := make([]nestable.AssetID, 0, len(scenario.FilmAssets))
	for _, reference := range scenario.FilmAssets {
		assetID, err := films.AddAssetEntry(ctx, curator, reference)
		if err != nil {
			return Report{}, fmt.Errorf("add film asset %s: %w", reference, err)
		}
		posterIDs = append(posterIDs, assetID)
	}
	for _, assetID := range posterIDs {
		if err := films.AddAssetToTokens(ctx, curator, filmIDs[:2], assetID, 0); err != nil {
			return Report{}, fmt.Errorf("add poster %d: %w", assetID, err)
		}
	}
	for _, assetID := range posterIDs {
		if err := films.AcceptAsset(ctx, visitor, filmIDs[1], 0, assetID); err != nil {
			return Report{}, fmt.Errorf("accept poster %d: %w", assetID, err)
		}
	}
	logger.Info().Int("posters", len(posterIDs)).Msg("film assets attached")

	characterIDs := make([][]nestable.TokenID, 0, len(filmIDs))
	for _, filmID := range filmIDs {
		minted, err := characters.NestMint(ctx, curator, films.ID(), filmID, scenario.CharactersPerFilm)
		if err != nil {
			return Report{}, fmt.Errorf("nest characters into film %d: %w", filmID, err)
		}
		characterIDs = append(characterIDs, minted)
	}
	for index, filmID := range filmIDs {
		if owners[index] == curator {
			continue
		}
		for _, childID := range characterIDs[index] {
			if err := films.AcceptChild(ctx, visitor, filmID, 0, characters.ID(), childID); err != nil {
				return Report{}, fmt.Errorf("accept character %d into film %d: %w", childID, filmID, err)
			}
		}
	}
	logger.Info().Int("films", len(filmIDs)).Int("per_film", scenario.CharactersPerFilm).Msg("characters nested")

	portraitIDs := make([]nestable.AssetID, 0, len(scenario.CharacterAssets))
	for _, reference := range scenario.CharacterAssets {
		assetID, err := characters.AddAssetEntry(ctx, curator, reference)
		if err != nil {
			return Report{}, fmt.Errorf("add character asset %s: %w", reference, err)
		}
		portraitIDs = append(portraitIDs, assetID)
	}
	// Slot n of every film shares one group of assets.
	groupSize := len(portraitIDs) / scenario.CharactersPerFilm
	for slot := 0; slot < scenario.CharactersPerFilm; slot++ {
		tokens := make([]nestable.TokenID, 0, len(filmIDs))
		for index := range filmIDs {
			tokens = append(tokens, characterIDs[index][slot])
		}
		group := portraitIDs[slot*groupSize : (slot+1)*groupSize]
		if err := characters.AddAssetsToTokens(ctx, curator, tokens, group); err != nil {
			return Report{}, fmt.Errorf("add character assets for slot %d: %w", slot, err)
		}
	}
	for index := range filmIDs {
		if owners[index] == curator {
			continue
		}
		for _, childID := range characterIDs[index] {
			pending, err := characters.GetPendingAssets(ctx, childID)
			if err != nil {
				return Report{}, err
			}
			for _, assetID := range pending {
				if err := characters.AcceptAsset(ctx, visitor, childID, 0, assetID); err != nil {
					return Report{}, fmt.Errorf("accept asset %d on character %d: %w", assetID, childID, err)
				}
			}
		}
	}
	logger.Info().Int("assets", len(portraitIDs)).Msg("character assets attached")

	return Collect(ctx, directory, collections, scenario)
}

// Collect reports the current state of both collections.
func Collect(ctx context.Context, directory *nestable.Directory, collections Collections, scenario Scenario) (Report, error) {
	report := Report{
		Generation: directory.Generation(),
		Curator:    scenario.Curator,
		Visitor:    scenario.Visitor,
		Balances:   map[string]int{},
		Registries: directory.Registries(),
	}
	for _, account := range []nestable.Account{scenario.Curator, scenario.Visitor} {
		balance, err := collections.Films.BalanceOf(ctx, account)
		if err != nil {
			return Report{}, err
		}
		report.Balances[string(account)] = balance
	}

	var err error
	if report.Films, err = tokenReports(ctx, collections.Films); err != nil {
		return Report{}, err
	}
	if report.Characters, err = tokenReports(ctx, collections.Characters); err != nil {
		return Report{}, err
	}
	return report, nil
}

func tokenReports(ctx context.Context, registry *nestable.Registry) ([]TokenReport, error) {
	snapshot, err := registry.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	reports := make([]TokenReport, 0, len(snapshot.Tokens))
	for _, token := range snapshot.Tokens {
		if token.Burned {
			continue
		}
		owner, err := registry.OwnerOf(ctx, token.ID)
		if err != nil {
			return nil, err
		}
		reports = append(reports, TokenReport{
			Registry:        registry.ID(),
			ID:              token.ID,
			DirectOwner:     token.DirectOwner.String(),
			Owner:           owner,
			ActiveAssets:    token.ActiveAssets,
			PendingAssets:   pendingIDs(token.PendingAssets),
			ActiveChildren:  refStrings(token.ActiveChildren),
			PendingChildren: refStrings(token.PendingChildren),
		})
	}
	return reports, nil
}

func pendingIDs(entries []nestable.PendingAssetSnapshot) []nestable.AssetID {
	ids := make([]nestable.AssetID, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.AssetID)
	}
	return ids
}

func refStrings(refs []nestable.TokenRef) []string {
	if len(refs) == 0 {
		return nil
	}
	result := make([]string, 0, len(refs))
	for _, ref := range refs {
		result = append(result, ref.String())
	}
	return result
}
