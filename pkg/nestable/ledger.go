package nestable

type pendingAsset struct {
	AssetID  AssetID
	Replaces AssetID
}

type tokenRecord struct {
	owner           Owner
	burned          bool
	activeChildren  []TokenRef
	pendingChildren []TokenRef
	activeAssets    []AssetID
	priorities      []uint64
	pendingAssets   []pendingAsset
	approved        Account
}

func (record *tokenRecord) clone() *tokenRecord {
	return &tokenRecord{
		owner:           record.owner,
		burned:          record.burned,
		activeChildren:  append([]TokenRef{}, record.activeChildren...),
		pendingChildren: append([]TokenRef{}, record.pendingChildren...),
		activeAssets:    append([]AssetID{}, record.activeAssets...),
		priorities:      append([]uint64{}, record.priorities...),
		pendingAssets:   append([]pendingAsset{}, record.pendingAssets...),
		approved:        record.approved,
	}
}

func (record *tokenRecord) view(id TokenID) TokenView {
	pending := make([]AssetID, len(record.pendingAssets))
	for index, entry := range record.pendingAssets {
		pending[index] = entry.AssetID
	}
	return TokenView{
		ID:              id,
		DirectOwner:     record.owner,
		ActiveChildren:  append([]TokenRef{}, record.activeChildren...),
		PendingChildren: append([]TokenRef{}, record.pendingChildren...),
		ActiveAssets:    append([]AssetID{}, record.activeAssets...),
		Priorities:      append([]uint64{}, record.priorities...),
		PendingAssets:   pending,
		Approved:        record.approved,
	}
}

// ledger is a dense arena of token records indexed by token id. Slot 0 is
// never used and burned tokens keep their slot.
type ledger struct {
	registry RegistryID
	tokens   []*tokenRecord
	balances map[Account]int
	burned   uint64
}

func newLedger(registry RegistryID) ledger {
	return ledger{
		registry: registry,
		tokens:   []*tokenRecord{nil},
		balances: map[Account]int{},
	}
}

func (tokens *ledger) issued() uint64 {
	return uint64(len(tokens.tokens) - 1)
}

func (tokens *ledger) live() uint64 {
	return tokens.issued() - tokens.burned
}

// get returns the record of a live token.
func (tokens *ledger) get(id TokenID) (*tokenRecord, error) {
	if id == 0 || uint64(id) >= uint64(len(tokens.tokens)) {
		return nil, NewUnknownTokenError(tokens.registry, id)
	}
	record := tokens.tokens[id]
	if record.burned {
		return nil, NewUnknownTokenError(tokens.registry, id)
	}
	return record, nil
}

// mutable returns the record of a live token, saving its prior state to
// the transaction the first time it is touched.
func (tokens *ledger) mutable(txn *transaction, id TokenID) (*tokenRecord, error) {
	record, err := tokens.get(id)
	if err != nil {
		return nil, err
	}
	if txn.firstTouch(TokenRef{Registry: tokens.registry, TokenID: id}) {
		saved := record.clone()
		txn.record(func() { tokens.tokens[id] = saved })
	}
	return record, nil
}

func (tokens *ledger) mint(txn *transaction, owner Owner) TokenID {
	tokens.tokens = append(tokens.tokens, &tokenRecord{owner: owner})
	length := len(tokens.tokens)
	txn.record(func() { tokens.tokens = tokens.tokens[:length-1] })
	id := TokenID(length - 1)
	txn.firstTouch(TokenRef{Registry: tokens.registry, TokenID: id})
	if !owner.IsToken() {
		tokens.adjustBalance(txn, owner.Account, 1)
	}
	return id
}

// setDirectOwner moves a mutable record to owner and clears its approval.
func (tokens *ledger) setDirectOwner(txn *transaction, record *tokenRecord, owner Owner) {
	if !record.owner.IsToken() {
		tokens.adjustBalance(txn, record.owner.Account, -1)
	}
	if !owner.IsToken() {
		tokens.adjustBalance(txn, owner.Account, 1)
	}
	record.owner = owner
	record.approved = ""
}

func (tokens *ledger) retire(txn *transaction, record *tokenRecord) {
	if !record.owner.IsToken() {
		tokens.adjustBalance(txn, record.owner.Account, -1)
	}
	record.burned = true
	record.approved = ""
	record.activeChildren = nil
	record.pendingChildren = nil
	record.activeAssets = nil
	record.priorities = nil
	record.pendingAssets = nil
	tokens.burned++
	txn.record(func() { tokens.burned-- })
}

func (tokens *ledger) adjustBalance(txn *transaction, account Account, delta int) {
	tokens.balances[account] += delta
	if tokens.balances[account] == 0 {
		delete(tokens.balances, account)
	}
	txn.record(func() {
		tokens.balances[account] -= delta
		if tokens.balances[account] == 0 {
			delete(tokens.balances, account)
		}
	})
}
