package custody

import (
	"math/big"
	"sync"

	"github.com/darshprotocol/lending-engine/internal/domain"
	customError "github.com/darshprotocol/lending-engine/pkg/errors"
)

// PoolAccount holds escrowed principal and collateral for the duration of
// offers and loans.
const PoolAccount domain.AccountID = "pool"

// Book is the token custody collaborator: a per-(account, asset) balance
// ledger standing in for the host chain's token transfers. TransferIn moves
// value into pool escrow, TransferOut releases it. Balances never go
// negative; a short balance fails the transfer with InsufficientFunds and no
// mutation.
type Book struct {
	mu       sync.Mutex
	balances map[domain.AccountID]map[domain.Asset]*big.Int
}

func NewBook() *Book {
	return &Book{balances: make(map[domain.AccountID]map[domain.Asset]*big.Int)}
}

func (b *Book) balance(account domain.AccountID, asset domain.Asset) *big.Int {
	assets, ok := b.balances[account]
	if !ok {
		assets = make(map[domain.Asset]*big.Int)
		b.balances[account] = assets
	}
	bal, ok := assets[asset]
	if !ok {
		bal = big.NewInt(0)
		assets[asset] = bal
	}
	return bal
}

// Deposit credits an account directly. Simulation faucet: the on-chain
// equivalent is an inbound token transfer observed by the mirror.
func (b *Book) Deposit(account domain.AccountID, asset domain.Asset, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	bal := b.balance(account, asset)
	bal.Add(bal, amount)
}

// TransferIn pulls amount from the account into pool custody.
func (b *Book) TransferIn(account domain.AccountID, asset domain.Asset, amount *big.Int) error {
	return b.Transfer(account, PoolAccount, asset, amount)
}

// TransferOut releases amount from pool custody to the account.
func (b *Book) TransferOut(account domain.AccountID, asset domain.Asset, amount *big.Int) error {
	return b.Transfer(PoolAccount, account, asset, amount)
}

// Transfer moves amount between two accounts atomically.
func (b *Book) Transfer(from, to domain.AccountID, asset domain.Asset, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return customError.WrapInvalidAmount("transfer amount")
	}
	if amount.Sign() == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	fromBal := b.balance(from, asset)
	if fromBal.Cmp(amount) < 0 {
		return customError.WrapInsufficientFunds(from.String(), asset.String())
	}
	toBal := b.balance(to, asset)
	fromBal.Sub(fromBal, amount)
	toBal.Add(toBal, amount)
	return nil
}

// Balance returns a copy of the account's balance for an asset.
func (b *Book) Balance(account domain.AccountID, asset domain.Asset) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(b.balance(account, asset))
}
