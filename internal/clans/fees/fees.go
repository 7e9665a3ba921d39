package fees

import (
	"github.com/google/uuid"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/failure"
	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/host"
)

// Wallet charges fees in one resource from a player's held inventory.
type Wallet struct {
	inv host.Inventory
	res host.Resource
}

func NewWallet(inv host.Inventory, res host.Resource) *Wallet {
	return &Wallet{inv: inv, res: res}
}

func (w *Wallet) Resource() host.Resource { return w.res }

// Charge takes amount units or nothing. Non-positive amounts are free.
func (w *Wallet) Charge(player uuid.UUID, amount int) error {
	if amount <= 0 {
		return nil
	}
	if !w.inv.Take(player, w.res, amount) {
		return failure.Newf(failure.InsufficientFunds, "requires %d %s", amount, w.res)
	}
	return nil
}

func (w *Wallet) Refund(player uuid.UUID, amount int) {
	if amount <= 0 {
		return
	}
	w.inv.Give(player, w.res, amount)
}
