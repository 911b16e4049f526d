package domain

// Asset identifies a token by its address-like identifier. Prices are
// resolved through the price oracle; the asset itself is opaque to the core.
type Asset string

// NativeAsset is the sentinel identifier for the chain's base currency.
const NativeAsset Asset = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"

// AccountID identifies a participant account.
type AccountID string

func (a Asset) String() string     { return string(a) }
func (a AccountID) String() string { return string(a) }
