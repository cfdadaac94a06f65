// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gitlab.com/jaxnet/headerdb/config"
	"gitlab.com/jaxnet/headerdb/database"
	"gitlab.com/jaxnet/headerdb/node/headerchain"
	"gitlab.com/jaxnet/headerdb/node/metrics"
	"golang.org/x/sync/errgroup"
)

// daemon owns the header chain, its files and the goroutines that feed and
// persist it.
type daemon struct {
	cfg     *config.Config
	log     zerolog.Logger
	chain   *headerchain.HeaderChain
	archive database.Archive

	// stdin is the feed used when cfg.Feed is "-".
	stdin io.Reader
}

func newDaemon(cfg *config.Config, log zerolog.Logger) (*daemon, error) {
	d := &daemon{cfg: cfg, log: log, stdin: os.Stdin}

	if cfg.Archive.Enabled {
		archive, err := database.OpenOrCreate(cfg.Archive.DBType, cfg.Archive.Path)
		if err != nil {
			return nil, errors.Wrap(err, "unable to open header archive")
		}
		d.archive = archive
	}

	chain, err := headerchain.New(headerchain.Config{
		Params:           cfg.NetParams(),
		Archive:          d.archive,
		LocatorCacheSize: cfg.LocatorCacheSize,
	})
	if err != nil {
		d.close()
		return nil, err
	}
	d.chain = chain

	if err := d.loadHeaders(); err != nil {
		d.close()
		return nil, err
	}
	return d, nil
}

// loadHeaders restores the chain from the header file and the archive. When
// neither holds any header, for example on the first run or after a save was
// interrupted, the chain starts over from the network genesis.
func (d *daemon) loadHeaders() error {
	path := d.cfg.HeadersFile
	if _, err := os.Stat(path); err == nil {
		if err := d.chain.LoadFile(path); err != nil {
			return errors.Wrapf(err, "unable to load header file %s", path)
		}
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "unable to access header file %s", path)
	}
	fromFile := d.chain.Size()

	if d.archive != nil {
		if _, err := d.chain.LoadArchive(); err != nil {
			return err
		}
	}

	if d.chain.Size() == 0 {
		params := d.chain.Params()
		d.log.Info().Msgf("Seeding %s with the %s genesis %v", path, params.Name, params.GenesisHash)

		if _, err := d.chain.ProcessHeader(&params.GenesisHeader); err != nil {
			return err
		}
	}
	if fromFile == 0 {
		if err := d.save(); err != nil {
			return err
		}
	}

	best := d.chain.BestSnapshot()
	d.log.Info().Msgf("Best header %v (height %d), %d headers known",
		best.Hash, best.Height, best.Size)
	return nil
}

// run blocks until the context is canceled or a component fails, then saves
// the header file one last time.
func (d *daemon) run(ctx context.Context) error {
	d.chain.Subscribe(d.logReorganization)

	g, ctx := errgroup.WithContext(ctx)

	if d.cfg.Metrics.Enabled {
		manager := metrics.Metrics(ctx, d.cfg.Metrics.Interval, nil)
		chainMetrics, err := metrics.MetricsOfChain(d.chain, nil)
		if err != nil {
			return errors.Wrap(err, "unable to register chain metrics")
		}
		manager.Add(chainMetrics)

		g.Go(func() error {
			return manager.Listen(ctx, d.cfg.Metrics.Route, d.cfg.Metrics.Port)
		})
	}

	if d.cfg.Feed != "" {
		g.Go(func() error {
			return d.consumeFeed(ctx)
		})
	}

	if d.cfg.SaveInterval > 0 {
		g.Go(func() error {
			d.saveLoop(ctx, d.cfg.SaveInterval)
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		return nil
	})

	err := g.Wait()
	if saveErr := d.save(); err == nil {
		err = saveErr
	}
	return err
}

func (d *daemon) consumeFeed(ctx context.Context) error {
	var r io.Reader = d.stdin
	if d.cfg.Feed != "-" {
		file, err := os.Open(d.cfg.Feed)
		if err != nil {
			return errors.Wrap(err, "unable to open header feed")
		}
		defer file.Close()
		r = file
	}

	// Reads from stdin can't be interrupted, so the reader is left behind
	// when the daemon stops.
	type result struct {
		stats feedStats
		err   error
	}
	done := make(chan result, 1)
	go func() {
		stats, err := readFeed(ctx, r, d.chain, d.log)
		done <- result{stats, err}
	}()

	select {
	case res := <-done:
		event := d.log.Info()
		if best := d.chain.BestSnapshot(); best != nil {
			event = event.Stringer("best", best.Hash).Int32("height", best.Height)
		}
		event.Msgf("Header feed finished: %d accepted, %d duplicate, %d rejected",
			res.stats.accepted, res.stats.duplicates, res.stats.rejected)
		return res.err
	case <-ctx.Done():
		return nil
	}
}

func (d *daemon) saveLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.save(); err != nil {
				d.log.Error().Err(err).Msg("Periodic save failed")
			}
		}
	}
}

func (d *daemon) save() error {
	start := time.Now()
	if err := d.chain.SaveFile(d.cfg.HeadersFile); err != nil {
		return errors.Wrapf(err, "unable to save header file %s", d.cfg.HeadersFile)
	}

	d.log.Debug().Dur("took", time.Since(start)).Msgf("Saved best chain to %s", d.cfg.HeadersFile)
	return nil
}

func (d *daemon) logReorganization(n *headerchain.Notification) {
	if n.Type != headerchain.NTReorganization {
		return
	}

	change := n.Data.(*headerchain.TipChange)
	d.log.Warn().
		Str("old_tip", change.Report.OldBest.Hash().String()).
		Str("new_tip", change.Tip.Hash.String()).
		Int32("height", change.Tip.Height).
		Int("disconnected", change.Report.Disconnected).
		Int("connected", change.Report.Connected).
		Msg("Best chain reorganized")
}

func (d *daemon) close() {
	if d.archive == nil {
		return
	}
	if err := d.archive.Close(); err != nil {
		d.log.Error().Err(err).Msg("Unable to close header archive")
	}
}
