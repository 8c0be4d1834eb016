package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sljivkov/fiatoracle/chains"
	"github.com/sljivkov/fiatoracle/config"
	"github.com/sljivkov/fiatoracle/domain"
	"github.com/sljivkov/fiatoracle/metrics"
	"github.com/sljivkov/fiatoracle/pricefeed"
)

// Updater runs one fetch-validate-sign-broadcast cycle.
type Updater struct {
	cfg         *config.Config
	feed        pricefeed.RateProvider
	accounts    pricefeed.AccountProvider
	broadcaster pricefeed.TxBroadcaster
	metrics     *metrics.Recorder
	log         logrus.FieldLogger
}

func NewUpdater(
	cfg *config.Config,
	feed pricefeed.RateProvider,
	accounts pricefeed.AccountProvider,
	broadcaster pricefeed.TxBroadcaster,
	recorder *metrics.Recorder,
	log logrus.FieldLogger,
) *Updater {
	return &Updater{
		cfg:         cfg,
		feed:        feed,
		accounts:    accounts,
		broadcaster: broadcaster,
		metrics:     recorder,
		log:         log,
	}
}

// Run posts the current prices to the price contract. It returns
// domain.ErrNoValidPrices, without touching the ledger, when no rate is usable.
// A committed transaction with a non-zero code is reported, not returned as an error.
func (u *Updater) Run(ctx context.Context) (*chains.CommitResult, error) {
	snapshot, err := u.feed.FetchRates(ctx)
	if err != nil {
		u.log.WithError(err).Warn("⚠️ Price feed failed, falling back to zero prices")

		snapshot = pricefeed.RateSnapshot{}
	}

	valid := pricefeed.Validate(snapshot, u.log)
	u.metrics.ValidPrices(len(valid))

	if len(valid) == 0 {
		u.log.Error("❌ No valid prices available. Aborting transaction to prevent posting invalid data.")

		return nil, u.fail("validate", domain.ErrNoValidPrices)
	}

	u.log.Infof("✅ Valid prices to post: %d/%d", len(valid), len(pricefeed.Currencies))

	entries, err := pricefeed.ToEntries(valid)
	if err != nil {
		return nil, u.fail("convert", &domain.SignError{Op: "convert prices", Err: err})
	}

	u.log.WithField("prices", entries).Debug("📝 Converted prices")

	id, err := chains.ResolveIdentity(u.cfg.Seed, u.cfg.DerivationPath, u.cfg.AddrPrefix)
	if err != nil {
		return nil, u.fail("identity", err)
	}
	defer id.Close()

	log := u.log.WithField("sender", id.Address())

	meta, err := u.accounts.FetchAccountMeta(ctx, id.Address())
	if err != nil {
		return nil, u.fail("account", err)
	}

	log.WithFields(logrus.Fields{
		"account_number": meta.AccountNumber,
		"sequence":       meta.Sequence,
	}).Infof("🔑 Account sequence is %d", meta.Sequence)

	tx, err := chains.BuildAndSign(entries, id, meta, u.cfg.TxParams())
	if err != nil {
		return nil, u.fail("sign", err)
	}

	// the key is not needed past this point
	id.Close()

	log.WithField("tx_hash", tx.Hash()).Info("📨 Broadcasting price update")

	res, err := u.broadcaster.BroadcastCommit(ctx, tx)
	if err != nil {
		return nil, u.fail("broadcast", err)
	}

	u.metrics.TxResult(res.Code)

	resultLog := log.WithFields(logrus.Fields{
		"tx_hash":    res.Hash,
		"height":     res.Height,
		"code":       res.Code,
		"codespace":  res.Codespace,
		"gas_used":   res.GasUsed,
		"gas_wanted": res.GasWanted,
	})

	if res.OK() {
		resultLog.Info("🔗 Prices committed")
	} else {
		resultLog.Errorf("⛔ Price update failed: %s", res.Log)
	}

	return res, nil
}

func (u *Updater) fail(stage string, err error) error {
	u.metrics.Failure(stage)

	if !errors.Is(err, domain.ErrNoValidPrices) {
		return fmt.Errorf("%s: %w", stage, err)
	}

	return err
}
