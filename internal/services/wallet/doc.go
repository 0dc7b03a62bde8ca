/*
Package wallet owns user balances and the append-only wallet ledger.

The service is the only writer of User.WalletBalance. Every balance change
is paired with a ledger entry in the same store transaction, and every
credit additionally records a CreditTransaction bracketing the balance
before and after. The cached balance is an index over the ledger; Reconcile
compares the two.

Usage:

	svc := wallet.NewService(store, limiter, balanceCache, publisher, collector, wallet.Config{
	    Limits: config.DefaultLimits(),
	})

	// Top up, subject to the daily volume, balance and count caps
	tx, err := svc.TopUp(ctx, userID, decimal.NewFromInt(500), "birthday money")

	// Opportunistic refill before showing the balance
	result, err := svc.CheckAndAutoRefill(ctx, userID)

	// Move funds for an accepted purchase inside the caller's transaction
	err = store.WithinTransaction(ctx, func(tx repositories.Store) error {
	    _, err := svc.SettleSale(ctx, tx, wallet.SaleSettlement{...})
	    return err
	})

Limits:

  - DailyCreditCap: minted credits (top-ups, refills, admin credits) per UTC day
  - BalanceCap: maximum balance reachable through a top-up
  - MaxTopUpsPerDay: manual top-ups per UTC day
  - RefillThreshold / RefillTarget: auto-refill low-water mark and ceiling
  - MaxRefillsPerDay: refills (automatic or manual) per UTC day

Sale proceeds are moved funds, not minted ones, and ignore the balance cap.
*/
package wallet
