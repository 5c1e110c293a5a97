package nestable

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Registry is one nestable, multi-asset token collection attached to a
// Directory. All state is guarded by the directory's transaction lock.
type Registry struct {
	id        RegistryID
	directory *Directory
	config    Config
	logger    zerolog.Logger

	assets       catalog
	tokens       ledger
	contributors map[Account]bool
	operators    map[Account]map[Account]bool
}

// NewRegistry validates config and attaches a new empty registry to
// directory under id.
func NewRegistry(directory *Directory, id string, config Config) (*Registry, error) {
	registry, err := newRegistry(directory, id, config)
	if err != nil {
		return nil, err
	}
	if err := directory.Register(registry); err != nil {
		return nil, err
	}
	registry.logger.Info().
		Str("name", registry.config.Name).
		Str("symbol", registry.config.Symbol).
		Str("admin", string(registry.config.Admin)).
		Msg("registry created")
	return registry, nil
}

func newRegistry(directory *Directory, id string, config Config) (*Registry, error) {
	if directory == nil {
		return nil, fmt.Errorf("directory is required")
	}
	registryID, err := NormalizeRegistryID(id)
	if err != nil {
		return nil, err
	}
	validated, err := ValidateConfig(config)
	if err != nil {
		return nil, err
	}
	return &Registry{
		id:           registryID,
		directory:    directory,
		config:       validated,
		logger:       directory.logger.With().Str("registry", string(registryID)).Logger(),
		tokens:       newLedger(registryID),
		contributors: map[Account]bool{},
		operators:    map[Account]map[Account]bool{},
	}, nil
}

// ID returns the registry identifier.
func (registry *Registry) ID() RegistryID {
	return registry.id
}

// Config returns a copy of the construction-time configuration.
func (registry *Registry) Config() Config {
	return registry.config.clone()
}

func (registry *Registry) ref(id TokenID) TokenRef {
	return TokenRef{Registry: registry.id, TokenID: id}
}

func normalizeCaller(caller Account) (Account, error) {
	normalized, err := NormalizeAccount(string(caller))
	if err != nil {
		return "", fmt.Errorf("caller: %w", err)
	}
	return normalized, nil
}

func (registry *Registry) isOperator(owner Account, operator Account) bool {
	return registry.operators[owner][operator]
}

func (registry *Registry) isCatalogWriter(caller Account) bool {
	return caller == registry.config.Admin || registry.contributors[caller]
}

// rootOwner resolves the root owner of a token of this registry.
func (registry *Registry) rootOwner(ctx context.Context, id TokenID) (Account, error) {
	return registry.directory.OwnerOf(ctx, registry.ref(id))
}

// authorizeOwnerOrApproved allows the root owner, the token's approved
// account and operators of the root owner.
func (registry *Registry) authorizeOwnerOrApproved(ctx context.Context, caller Account, id TokenID) (*tokenRecord, error) {
	record, err := registry.tokens.get(id)
	if err != nil {
		return nil, err
	}
	owner, err := registry.rootOwner(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller == owner || caller == record.approved || registry.isOperator(owner, caller) {
		return record, nil
	}
	return nil, NewAuthorizationError(registry.id, caller, id, "caller is not the root owner or approved")
}

// authorizeDirectTransfer allows the direct account owner, the approved
// account and operators of the direct owner. Nested tokens move through
// their parent instead.
func (registry *Registry) authorizeDirectTransfer(caller Account, id TokenID) (*tokenRecord, error) {
	record, err := registry.tokens.get(id)
	if err != nil {
		return nil, err
	}
	if record.owner.IsToken() {
		return nil, NewAuthorizationError(registry.id, caller, id, "token is nested; transfer it through its parent")
	}
	owner := record.owner.Account
	if caller == owner || caller == record.approved || registry.isOperator(owner, caller) {
		return record, nil
	}
	return nil, NewAuthorizationError(registry.id, caller, id, "caller is not the owner, approved or an operator")
}

func (registry *Registry) checkSupply(quantity int) error {
	if err := validateQuantity(quantity); err != nil {
		return err
	}
	maxSupply := registry.config.MaxSupply
	issued := registry.tokens.issued()
	if maxSupply > 0 && issued+uint64(quantity) > maxSupply {
		return NewMaxSupplyExceededError(registry.id, maxSupply, issued, uint64(quantity))
	}
	return nil
}

// Mint issues quantity new top-level tokens owned by to.
func (registry *Registry) Mint(ctx context.Context, caller Account, to Account, quantity int) ([]TokenID, error) {
	caller, err := normalizeCaller(caller)
	if err != nil {
		return nil, err
	}
	recipient, err := NormalizeAccount(string(to))
	if err != nil {
		return nil, fmt.Errorf("recipient: %w", err)
	}

	var minted []TokenID
	err = registry.directory.transact(ctx, "mint", registry.id, func(ctx context.Context, txn *transaction) error {
		if err := registry.checkSupply(quantity); err != nil {
			return err
		}
		minted = make([]TokenID, 0, quantity)
		for index := 0; index < quantity; index++ {
			id := registry.tokens.mint(txn, AccountOwner(recipient))
			minted = append(minted, id)
			registry.emit(txn, Event{Type: EventMint, TokenID: id, From: string(caller), To: string(recipient)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	registry.logger.Debug().Str("caller", string(caller)).Str("to", string(recipient)).Int("quantity", quantity).Msg("minted")
	return minted, nil
}

// Transfer moves a top-level token to another account.
func (registry *Registry) Transfer(ctx context.Context, caller Account, tokenID TokenID, to Account) error {
	caller, err := normalizeCaller(caller)
	if err != nil {
		return err
	}
	recipient, err := NormalizeAccount(string(to))
	if err != nil {
		return fmt.Errorf("recipient: %w", err)
	}

	return registry.directory.transact(ctx, "transfer", registry.id, func(ctx context.Context, txn *transaction) error {
		if _, err := registry.authorizeDirectTransfer(caller, tokenID); err != nil {
			return err
		}
		release, err := txn.guard(registry.ref(tokenID))
		if err != nil {
			return err
		}
		defer release()

		record, err := registry.tokens.mutable(txn, tokenID)
		if err != nil {
			return err
		}
		from := record.owner
		registry.tokens.setDirectOwner(txn, record, AccountOwner(recipient))
		registry.emit(txn, Event{Type: EventTransfer, TokenID: tokenID, From: from.String(), To: string(recipient)})
		return nil
	})
}

// NestTransfer moves a top-level token under destTokenID of destRegistry.
// The destination decides whether the token lands pending or active.
func (registry *Registry) NestTransfer(
	ctx context.Context,
	caller Account,
	tokenID TokenID,
	destRegistry RegistryID,
	destTokenID TokenID,
) error {
	caller, err := normalizeCaller(caller)
	if err != nil {
		return err
	}
	destinationID, err := NormalizeRegistryID(string(destRegistry))
	if err != nil {
		return fmt.Errorf("destination registry: %w", err)
	}
	destination := TokenRef{Registry: destinationID, TokenID: destTokenID}

	return registry.directory.transact(ctx, "nest-transfer", registry.id, func(ctx context.Context, txn *transaction) error {
		if _, err := registry.authorizeDirectTransfer(caller, tokenID); err != nil {
			return err
		}
		if err := registry.directory.tokenExists(ctx, destination); err != nil {
			return err
		}
		token := registry.ref(tokenID)
		cycle, err := registry.directory.chainContains(ctx, destination, token)
		if err != nil {
			return err
		}
		if cycle {
			return NewCycleDetectedError(token, destination)
		}
		levels := 1 + registry.directory.subtreeHeight(token, registry.directory.options.MaxResolutionDepth)
		if err := registry.directory.checkNestingDepth(ctx, destination, levels); err != nil {
			return err
		}

		release, err := txn.guard(token)
		if err != nil {
			return err
		}
		defer release()

		record, err := registry.tokens.mutable(txn, tokenID)
		if err != nil {
			return err
		}
		from := record.owner
		registry.tokens.setDirectOwner(txn, record, TokenOwner(destination))

		destinationSource, err := registry.directory.Lookup(destination.Registry)
		if err != nil {
			return err
		}
		if err := destinationSource.ReceiveChild(withActor(ctx, registry.id, destination.Registry), destTokenID, token, caller); err != nil {
			return err
		}
		registry.emit(txn, Event{Type: EventNestTransfer, TokenID: tokenID, From: from.String(), To: destination.String()})
		return nil
	})
}

// Burn destroys a token together with its active and pending children, up
// to maxRecursiveBurns descendants, and returns the number of tokens burned.
func (registry *Registry) Burn(ctx context.Context, caller Account, tokenID TokenID, maxRecursiveBurns int) (int, error) {
	caller, err := normalizeCaller(caller)
	if err != nil {
		return 0, err
	}

	burned := 0
	err = registry.directory.transact(ctx, "burn", registry.id, func(ctx context.Context, txn *transaction) error {
		record, err := registry.authorizeOwnerOrApproved(ctx, caller, tokenID)
		if err != nil {
			return err
		}
		parent := record.owner
		burned, err = registry.burnToken(ctx, txn, tokenID, maxRecursiveBurns)
		if err != nil {
			return err
		}
		if !parent.IsToken() {
			return nil
		}
		parentSource, err := registry.directory.Lookup(parent.Parent.Registry)
		if err != nil {
			return err
		}
		return parentSource.NotifyChildBurned(withActor(ctx, registry.id, parent.Parent.Registry), parent.Parent.TokenID, registry.ref(tokenID))
	})
	if err != nil {
		return 0, err
	}
	return burned, nil
}

// burnToken burns id and its children. The caller is responsible for
// detaching id from its parent.
func (registry *Registry) burnToken(ctx context.Context, txn *transaction, id TokenID, maxRecursiveBurns int) (int, error) {
	token := registry.ref(id)
	release, err := txn.guard(token)
	if err != nil {
		return 0, err
	}
	defer release()

	record, err := registry.tokens.mutable(txn, id)
	if err != nil {
		return 0, err
	}

	children := make([]TokenRef, 0, len(record.activeChildren)+len(record.pendingChildren))
	children = append(children, record.activeChildren...)
	children = append(children, record.pendingChildren...)

	descendants := 0
	for _, child := range children {
		remaining := maxRecursiveBurns - descendants
		if remaining <= 0 {
			return 0, NewMaxRecursiveBurnsError(token, maxRecursiveBurns)
		}
		childSource, err := registry.directory.Lookup(child.Registry)
		if err != nil {
			return 0, err
		}
		count, err := childSource.BurnChild(withActor(ctx, registry.id, child.Registry), child.TokenID, token, remaining-1)
		if err != nil {
			return 0, err
		}
		descendants += count
	}

	from := record.owner
	registry.tokens.retire(txn, record)
	registry.emit(txn, Event{Type: EventBurn, TokenID: id, From: from.String(), Count: descendants})
	return descendants + 1, nil
}

// Approve lets approved transfer tokenID and act on its pending lists. An
// empty approved clears the approval.
func (registry *Registry) Approve(ctx context.Context, caller Account, tokenID TokenID, approved Account) error {
	caller, err := normalizeCaller(caller)
	if err != nil {
		return err
	}
	if approved != "" {
		approved, err = NormalizeAccount(string(approved))
		if err != nil {
			return fmt.Errorf("approved: %w", err)
		}
	}

	return registry.directory.transact(ctx, "approve", registry.id, func(ctx context.Context, txn *transaction) error {
		if _, err := registry.tokens.get(tokenID); err != nil {
			return err
		}
		owner, err := registry.rootOwner(ctx, tokenID)
		if err != nil {
			return err
		}
		if caller != owner && !registry.isOperator(owner, caller) {
			return NewAuthorizationError(registry.id, caller, tokenID, "caller is not the root owner or an operator")
		}
		if approved == owner {
			return NewAuthorizationError(registry.id, caller, tokenID, "cannot approve the current owner")
		}
		record, err := registry.tokens.mutable(txn, tokenID)
		if err != nil {
			return err
		}
		record.approved = approved
		registry.emit(txn, Event{Type: EventApproval, TokenID: tokenID, From: string(owner), To: string(approved)})
		return nil
	})
}

// SetApprovalForAll grants or revokes operator rights over every token the
// caller owns in this registry.
func (registry *Registry) SetApprovalForAll(ctx context.Context, caller Account, operator Account, approved bool) error {
	caller, err := normalizeCaller(caller)
	if err != nil {
		return err
	}
	operator, err = NormalizeAccount(string(operator))
	if err != nil {
		return fmt.Errorf("operator: %w", err)
	}
	if operator == caller {
		return NewAuthorizationError(registry.id, caller, 0, "cannot approve self as operator")
	}

	return registry.directory.transact(ctx, "set-approval-for-all", registry.id, func(ctx context.Context, txn *transaction) error {
		previous := registry.operators[caller][operator]
		registry.setOperator(caller, operator, approved)
		txn.record(func() { registry.setOperator(caller, operator, previous) })
		registry.emit(txn, Event{Type: EventApprovalForAll, From: string(caller), To: string(operator), Flag: approved})
		return nil
	})
}

func (registry *Registry) setOperator(owner Account, operator Account, approved bool) {
	if !approved {
		delete(registry.operators[owner], operator)
		if len(registry.operators[owner]) == 0 {
			delete(registry.operators, owner)
		}
		return
	}
	if registry.operators[owner] == nil {
		registry.operators[owner] = map[Account]bool{}
	}
	registry.operators[owner][operator] = true
}

// AddContributor lets account write to the asset catalog. Admin only.
func (registry *Registry) AddContributor(ctx context.Context, caller Account, account Account) error {
	return registry.updateContributor(ctx, caller, account, true)
}

// RemoveContributor revokes catalog write access. Admin only.
func (registry *Registry) RemoveContributor(ctx context.Context, caller Account, account Account) error {
	return registry.updateContributor(ctx, caller, account, false)
}

func (registry *Registry) updateContributor(ctx context.Context, caller Account, account Account, enabled bool) error {
	caller, err := normalizeCaller(caller)
	if err != nil {
		return err
	}
	contributor, err := NormalizeAccount(string(account))
	if err != nil {
		return fmt.Errorf("contributor: %w", err)
	}
	if caller != registry.config.Admin {
		return NewAuthorizationError(registry.id, caller, 0, "only the admin manages contributors")
	}

	return registry.directory.transact(ctx, "update-contributor", registry.id, func(ctx context.Context, txn *transaction) error {
		previous := registry.contributors[contributor]
		registry.setContributor(contributor, enabled)
		txn.record(func() { registry.setContributor(contributor, previous) })
		registry.emit(txn, Event{Type: EventContributorUpdated, To: string(contributor), Flag: enabled})
		return nil
	})
}

func (registry *Registry) setContributor(account Account, enabled bool) {
	if enabled {
		registry.contributors[account] = true
		return
	}
	delete(registry.contributors, account)
}

// DirectOwnerOf returns the immediate owner of tokenID.
func (registry *Registry) DirectOwnerOf(ctx context.Context, tokenID TokenID) (Owner, error) {
	var owner Owner
	err := registry.directory.read(ctx, func(ctx context.Context) error {
		record, err := registry.tokens.get(tokenID)
		if err != nil {
			return err
		}
		owner = record.owner
		return nil
	})
	return owner, err
}

// OwnerOf returns the root owner of tokenID.
func (registry *Registry) OwnerOf(ctx context.Context, tokenID TokenID) (Account, error) {
	return registry.directory.OwnerOf(ctx, registry.ref(tokenID))
}

// BalanceOf counts the tokens of this registry directly owned by account.
func (registry *Registry) BalanceOf(ctx context.Context, account Account) (int, error) {
	normalized, err := NormalizeAccount(string(account))
	if err != nil {
		return 0, err
	}
	balance := 0
	err = registry.directory.read(ctx, func(ctx context.Context) error {
		balance = registry.tokens.balances[normalized]
		return nil
	})
	return balance, err
}

// Exists reports whether tokenID was minted and not burned.
func (registry *Registry) Exists(ctx context.Context, tokenID TokenID) (bool, error) {
	exists := false
	err := registry.directory.read(ctx, func(ctx context.Context) error {
		_, err := registry.tokens.get(tokenID)
		exists = err == nil
		return nil
	})
	return exists, err
}

// Token returns a copy of one token's state.
func (registry *Registry) Token(ctx context.Context, tokenID TokenID) (TokenView, error) {
	var view TokenView
	err := registry.directory.read(ctx, func(ctx context.Context) error {
		record, err := registry.tokens.get(tokenID)
		if err != nil {
			return err
		}
		owner, err := registry.rootOwner(ctx, tokenID)
		if err != nil {
			return err
		}
		view = record.view(tokenID)
		view.Owner = owner
		view.TokenURI = registry.tokenURI(tokenID)
		view.Generation = registry.directory.generation
		return nil
	})
	return view, err
}

// TotalSupply returns the number of live tokens.
func (registry *Registry) TotalSupply(ctx context.Context) (uint64, error) {
	var supply uint64
	err := registry.directory.read(ctx, func(ctx context.Context) error {
		supply = registry.tokens.live()
		return nil
	})
	return supply, err
}

// TokenURI returns the fallback metadata reference of tokenID.
func (registry *Registry) TokenURI(ctx context.Context, tokenID TokenID) (string, error) {
	var uri string
	err := registry.directory.read(ctx, func(ctx context.Context) error {
		if _, err := registry.tokens.get(tokenID); err != nil {
			return err
		}
		uri = registry.tokenURI(tokenID)
		return nil
	})
	return uri, err
}

func (registry *Registry) tokenURI(tokenID TokenID) string {
	if registry.config.TokenURIIsEnumerable {
		return fmt.Sprintf("%s%d", registry.config.BaseTokenURI, tokenID)
	}
	return registry.config.BaseTokenURI
}

// GetApproved returns the account approved for tokenID, if any.
func (registry *Registry) GetApproved(ctx context.Context, tokenID TokenID) (Account, error) {
	var approved Account
	err := registry.directory.read(ctx, func(ctx context.Context) error {
		record, err := registry.tokens.get(tokenID)
		if err != nil {
			return err
		}
		approved = record.approved
		return nil
	})
	return approved, err
}

// IsApprovedForAll reports whether operator acts for owner.
func (registry *Registry) IsApprovedForAll(ctx context.Context, owner Account, operator Account) (bool, error) {
	owner, err := NormalizeAccount(string(owner))
	if err != nil {
		return false, fmt.Errorf("owner: %w", err)
	}
	operator, err = NormalizeAccount(string(operator))
	if err != nil {
		return false, fmt.Errorf("operator: %w", err)
	}
	var approved bool
	err = registry.directory.read(ctx, func(ctx context.Context) error {
		approved = registry.isOperator(owner, operator)
		return nil
	})
	return approved, err
}

// IsContributor reports whether account may write to the asset catalog.
func (registry *Registry) IsContributor(ctx context.Context, account Account) (bool, error) {
	account, err := NormalizeAccount(string(account))
	if err != nil {
		return false, err
	}
	var contributor bool
	err = registry.directory.read(ctx, func(ctx context.Context) error {
		contributor = registry.contributors[account]
		return nil
	})
	return contributor, err
}
