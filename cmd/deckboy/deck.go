package main

import (
	"context"

	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/catalog"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/logger"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/saves"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/session"
)

// deck ties cartridge files on disk to a session. Battery saves are restored
// after loading and written back before switching cartridge and on exit.
type deck struct {
	sess    *session.Manager
	reader  catalog.Reader
	battery bool
}

// load mounts the cartridge at path and starts it.
func (d *deck) load(ctx context.Context, path string) error {
	if d.sess.State() == session.Running {
		if err := d.sess.Pause(ctx); err != nil {
			return err
		}
	}
	d.persist(ctx)

	rom, err := d.reader.Read(ctx, path)
	if err != nil {
		return err
	}
	if err := d.sess.LoadCartridge(ctx, rom, path); err != nil {
		return err
	}

	if d.battery {
		data, ok, err := saves.ReadBattery(path)
		switch {
		case err != nil:
			logger.Logf("deckboy", "battery save: %v", err)
		case ok:
			if err := d.sess.RestoreSave(ctx, data); err != nil {
				logger.Logf("deckboy", "restore battery save: %v", err)
			} else {
				logger.Logf("deckboy", "loaded %s (%d bytes)", saves.SavPath(path), len(data))
			}
		}
	}
	return d.sess.Start(ctx)
}

// persist writes the battery save of the mounted cartridge, if it has one.
func (d *deck) persist(ctx context.Context) {
	st := d.sess.Status()
	if !d.battery || st.Cartridge == nil {
		return
	}
	if st.State != session.Running && st.State != session.Paused {
		return
	}
	data, ok, err := d.sess.CaptureSave(ctx)
	if err != nil {
		logger.Logf("deckboy", "capture battery save: %v", err)
		return
	}
	if !ok {
		return
	}
	if err := saves.WriteBattery(st.Cartridge.FullPath, data); err != nil {
		logger.Logf("deckboy", "write battery save: %v", err)
		return
	}
	logger.Logf("deckboy", "wrote %s", saves.SavPath(st.Cartridge.FullPath))
}

// close persists the battery save and releases the runtime.
func (d *deck) close(ctx context.Context) {
	d.persist(ctx)
	d.sess.Teardown(ctx)
}
