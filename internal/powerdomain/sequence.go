package powerdomain

import (
	"errors"
	"fmt"
)

// Enable powers the domain up.
//
// The sequence for software-collapse domains: pulse the block software
// reset (mirrored on the ACD resets), release the AON reset and I/O
// clamp, clear the collapse request, then poll the power-on status bit
// until the rail reports powered. Reset-toggled domains instead
// de-assert their reset lines in forward order.
//
// Enable fails with ErrInvalidState while the domain is under hardware
// control, and with ErrTimeout when the status bit never sets. A
// non-nil return means the domain did not change state.
func (d *Domain) Enable() error {
	d.lastPollCount = 0

	if d.skipEnable.Load() {
		return nil
	}

	if d.cfg.RootEnable || d.cfg.ForceRootEnable {
		d.voteRootClock()
	}

	val, err := d.cfg.Regs.Main.Read(regOffset)
	if err != nil {
		d.releaseTransientRootVote()
		return fmt.Errorf("reading control register: %w", err)
	}
	if val&hwControlMask != 0 {
		d.releaseTransientRootVote()
		d.logger.Warn("invalid enable while under hardware control", "domain", d.cfg.Name)
		return fmt.Errorf("%w: %s is under hardware control", ErrInvalidState, d.cfg.Name)
	}

	if d.cfg.ToggleLogic {
		if err := d.enableCollapseLogic(); err != nil {
			d.releaseTransientRootVote()
			return err
		}
	} else {
		for _, rst := range d.cfg.Resets {
			if err := rst.Deassert(); err != nil {
				d.releaseTransientRootVote()
				return fmt.Errorf("de-asserting reset: %w", err)
			}
		}
		d.resetsAsserted = false
	}

	// Clocks already running take extra cycles to re-enable once the
	// rail is up, and must not restart within 400ns of powering the
	// memories; then the staggered memory power-up needs its own settle.
	d.sleep(settleDelay)
	d.sleep(settleDelay)

	if d.cfg.ForceRootEnable && !d.cfg.RootEnable {
		d.unvoteRootClock()
	}

	d.enabled = true
	return nil
}

// enableCollapseLogic runs the software-collapse restore sequence.
func (d *Domain) enableCollapseLogic() error {
	regs := d.cfg.Regs

	if regs.SWReset != nil {
		val, err := regs.SWReset.Read(regOffset)
		if err != nil {
			return fmt.Errorf("reading block reset: %w", err)
		}

		val |= blockAresMask
		if err := d.writeBlockResets(val); err != nil {
			return err
		}
		// The block reset must stay asserted for at least 1us before
		// release.
		d.barrier()
		d.sleep(settleDelay)

		val &^= blockAresMask
		if err := d.writeBlockResets(val); err != nil {
			return err
		}
		d.barrier()
	}

	if regs.DomainClamp != nil {
		if d.cfg.ResetAON {
			val, err := regs.DomainClamp.Read(regOffset)
			if err != nil {
				return fmt.Errorf("reading domain clamp: %w", err)
			}
			val |= domainResetMask
			if err := regs.DomainClamp.Write(regOffset, val); err != nil {
				return fmt.Errorf("asserting AON reset: %w", err)
			}
			// Keep the AON reset asserted for at least 1us.
			d.barrier()
			d.sleep(settleDelay)

			val &^= domainResetMask
			if err := regs.DomainClamp.Write(regOffset, val); err != nil {
				return fmt.Errorf("de-asserting AON reset: %w", err)
			}
			d.barrier()
		}

		val, err := regs.DomainClamp.Read(regOffset)
		if err != nil {
			return fmt.Errorf("reading domain clamp: %w", err)
		}
		val &^= clampIOMask
		if err := regs.DomainClamp.Write(regOffset, val); err != nil {
			return fmt.Errorf("releasing I/O clamp: %w", err)
		}
		d.barrier()
	}

	if err := d.writeCollapse(false); err != nil {
		return err
	}
	// Give the state machine 8 XO cycles before polling the status bit.
	d.barrier()
	d.sleep(settleDelay)

	reads, err := d.pollStatus(statusEnabled)
	d.lastPollCount = reads
	if err != nil {
		if !errors.Is(err, ErrTimeout) {
			return err
		}
		if err := d.retryEnablePoll(); err != nil {
			return err
		}
	}

	if d.cfg.RetainFFEnable {
		val, err := regs.Main.Read(regOffset)
		if err != nil {
			return fmt.Errorf("reading control register: %w", err)
		}
		if val&retainFFMask == 0 {
			val |= retainFFMask
			if err := regs.Main.Write(regOffset, val); err != nil {
				return fmt.Errorf("setting retain: %w", err)
			}
		}
	}
	return nil
}

// retryEnablePoll handles an enable-side poll timeout. When a
// hardware-control alias window exists the discrepancy between the
// request and status registers is logged and the poll retried once
// before the timeout becomes fatal. Without an alias window the full
// timeout is waited out once more purely so the final register state
// lands in the log.
func (d *Domain) retryEnablePoll() error {
	regval, _ := d.cfg.Regs.Main.Read(regOffset)

	if d.cfg.Regs.HWCtrl == nil {
		d.logger.Error("enable timed out",
			"domain", d.cfg.Name,
			"gdscr", fmt.Sprintf("%#x", regval),
		)
		d.sleep(d.timeout)
		regval, _ = d.cfg.Regs.Main.Read(regOffset)
		d.logger.Error("final state after enable timeout",
			"domain", d.cfg.Name,
			"gdscr", fmt.Sprintf("%#x", regval),
			"waited", d.timeout,
		)
		return fmt.Errorf("%s enable: %w", d.cfg.Name, ErrTimeout)
	}

	hwval, _ := d.cfg.Regs.HWCtrl.Read(regOffset)
	d.logger.Warn("enable timed out, re-polling",
		"domain", d.cfg.Name,
		"gdscr", fmt.Sprintf("%#x", regval),
		"hw_ctrl", fmt.Sprintf("%#x", hwval),
		"timeout", d.timeout,
	)

	reads, err := d.pollStatus(statusEnabled)
	d.lastPollCount += reads
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrTimeout) {
		return err
	}

	regval, _ = d.cfg.Regs.Main.Read(regOffset)
	hwval, _ = d.cfg.Regs.HWCtrl.Read(regOffset)
	d.logger.Error("enable timed out after re-poll",
		"domain", d.cfg.Name,
		"gdscr", fmt.Sprintf("%#x", regval),
		"hw_ctrl", fmt.Sprintf("%#x", hwval),
	)
	return fmt.Errorf("%s enable: %w", d.cfg.Name, ErrTimeout)
}

// Disable collapses the domain.
//
// When a parent rail is configured its lock is held for the whole
// operation and the parent must report enabled; otherwise the control
// registers of this domain may be unclocked and unsafe to touch.
//
// Disable is best-effort past the collapse request: a status-poll
// timeout is logged but the domain is still marked disabled, so an
// unconfirmed collapse never leaves the framework believing the rail
// is stuck on. The caller should treat a non-nil return as "state
// change uncertain".
func (d *Domain) Disable() error {
	d.lastPollCount = 0

	if d.cfg.Parent != nil {
		d.cfg.Parent.Lock()
		defer d.cfg.Parent.Unlock()

		on, err := d.cfg.Parent.Enabled()
		if err != nil {
			return fmt.Errorf("checking parent rail: %w", err)
		}
		if !on {
			d.logger.Error("cannot disable while parent rail is disabled", "domain", d.cfg.Name)
			return fmt.Errorf("%w: %s", ErrParentUnavailable, d.cfg.Name)
		}
	}

	if d.cfg.ForceRootEnable {
		d.voteRootClock()
	}

	// Staggered memory powerdown settle.
	d.sleep(settleDelay)

	if d.cfg.ToggleLogic {
		if err := d.disableCollapseLogic(); err != nil {
			d.releaseTransientRootVote()
			return err
		}
	} else {
		for i := len(d.cfg.Resets) - 1; i >= 0; i-- {
			if err := d.cfg.Resets[i].Assert(); err != nil {
				d.releaseTransientRootVote()
				return fmt.Errorf("asserting reset: %w", err)
			}
		}
		d.resetsAsserted = true
	}

	// The root clock was voted either persistently by an earlier enable
	// or transiently for this call; both votes end here.
	if (d.rootClkVoted && d.cfg.RootEnable) || d.cfg.ForceRootEnable {
		d.unvoteRootClock()
	}

	d.enabled = false
	return nil
}

// disableCollapseLogic runs the software-collapse sequence.
func (d *Domain) disableCollapseLogic() error {
	regs := d.cfg.Regs

	// The ACD misc reset is left asserted through the collapse; enable
	// releases it again on the way back up.
	if regs.SWReset != nil && regs.ACDMiscReset != nil {
		if err := regs.ACDMiscReset.UpdateBits(regOffset, blockAresMask, blockAresMask); err != nil {
			return fmt.Errorf("asserting ACD misc reset: %w", err)
		}
	}

	if err := d.writeCollapse(true); err != nil {
		return err
	}
	// Give the state machine 8 XO cycles before polling the status bit.
	d.barrier()
	d.sleep(settleDelay)

	timedOut := false
	if d.cfg.NoStatusCheckOnDisable {
		// No poll on this domain: wait out one timeout period so an
		// enable immediately after the collapse does not catch the
		// state machine mid-flight.
		d.sleep(d.timeout)
	} else {
		reads, err := d.pollStatus(statusDisabled)
		d.lastPollCount = reads
		switch {
		case errors.Is(err, ErrTimeout):
			regval, _ := regs.Main.Read(regOffset)
			d.logger.Error("disable timed out",
				"domain", d.cfg.Name,
				"gdscr", fmt.Sprintf("%#x", regval),
			)
			timedOut = true
		case err != nil:
			return err
		}
	}

	if regs.DomainClamp != nil {
		if timedOut {
			// The clamp still goes on after an unconfirmed collapse.
			d.logger.Warn("clamping I/O with unconfirmed collapse", "domain", d.cfg.Name)
		}
		val, err := regs.DomainClamp.Read(regOffset)
		if err != nil {
			return fmt.Errorf("reading domain clamp: %w", err)
		}
		val |= clampIOMask
		if err := regs.DomainClamp.Write(regOffset, val); err != nil {
			return fmt.Errorf("applying I/O clamp: %w", err)
		}
	}
	return nil
}

// SetMode switches the domain between software control (ModeNormal)
// and hardware-autonomous control (ModeFast).
//
// Only domains that declare hardware-trigger support accept mode
// changes. The parent rail, when present, is locked across the whole
// switch: the control register may be unclocked while the parent is
// down, and the parent's state must not change between the check and
// the write.
func (d *Domain) SetMode(mode Mode) error {
	d.lastPollCount = 0

	if !d.cfg.SupportsHWTrigger {
		return fmt.Errorf("%w: %s does not support hardware trigger", ErrInvalidState, d.cfg.Name)
	}

	if d.cfg.Parent != nil {
		d.cfg.Parent.Lock()
		defer d.cfg.Parent.Unlock()

		on, err := d.cfg.Parent.Enabled()
		if err != nil {
			return fmt.Errorf("checking parent rail: %w", err)
		}
		if !on {
			d.logger.Error("cannot change control mode while parent rail is disabled", "domain", d.cfg.Name)
			return fmt.Errorf("%w: %s", ErrParentUnavailable, d.cfg.Name)
		}
	}

	val, err := d.cfg.Regs.Main.Read(regOffset)
	if err != nil {
		return fmt.Errorf("reading control register: %w", err)
	}

	switch mode {
	case ModeFast:
		val |= hwControlMask
		if err := d.cfg.Regs.Main.Write(regOffset, val); err != nil {
			return fmt.Errorf("enabling hardware trigger: %w", err)
		}
		// The internal trigger signal may race the switch and run the
		// domain through a full power cycle. Firmware polling the same
		// status bits must not observe a stale 'on' before that cycle
		// completes; hold 1us before returning.
		d.barrier()
		d.sleep(settleDelay)
		d.hwControlMode = true

	case ModeNormal:
		val &^= hwControlMask
		if err := d.cfg.Regs.Main.Write(regOffset, val); err != nil {
			return fmt.Errorf("disabling hardware trigger: %w", err)
		}
		// Same trigger race as above: absorb a possible hardware-driven
		// power cycle before software relies on the register state.
		d.barrier()
		d.sleep(settleDelay)

		if d.enabled {
			// Hardware may still be updating internal signals; the
			// switch back to software mode is only safe once the rail
			// confirms powered. Failing here is a hard error.
			reads, err := d.pollStatus(statusEnabled)
			d.lastPollCount = reads
			if err != nil {
				if errors.Is(err, ErrTimeout) {
					d.logger.Error("mode switch confirmation timed out", "domain", d.cfg.Name)
					return fmt.Errorf("%s mode switch: %w", d.cfg.Name, ErrTimeout)
				}
				return err
			}
		}
		d.hwControlMode = false

	default:
		return fmt.Errorf("%w: unknown mode %d", ErrInvalidState, mode)
	}
	return nil
}

// writeBlockResets writes val to the block software reset and mirrors
// it on the ACD reset windows when they exist.
func (d *Domain) writeBlockResets(val uint32) error {
	if err := d.cfg.Regs.SWReset.Write(regOffset, val); err != nil {
		return fmt.Errorf("writing block reset: %w", err)
	}
	if d.cfg.Regs.ACDReset != nil {
		if err := d.cfg.Regs.ACDReset.Write(regOffset, val); err != nil {
			return fmt.Errorf("writing ACD reset: %w", err)
		}
	}
	if d.cfg.Regs.ACDMiscReset != nil {
		if err := d.cfg.Regs.ACDMiscReset.Write(regOffset, val); err != nil {
			return fmt.Errorf("writing ACD misc reset: %w", err)
		}
	}
	return nil
}

// writeCollapse sets or clears the collapse request, through the shared
// vote bitmap when this domain participates in one, otherwise through
// the collapse bit of the main register.
func (d *Domain) writeCollapse(collapse bool) error {
	if d.cfg.Regs.CollapseVote != nil {
		mask := uint32(1) << d.cfg.CollapseVoteBit
		val := uint32(0)
		if collapse {
			val = mask
		}
		if err := d.cfg.Regs.CollapseVote.UpdateBits(regOffset, mask, val); err != nil {
			return fmt.Errorf("writing collapse vote: %w", err)
		}
		return nil
	}

	val, err := d.cfg.Regs.Main.Read(regOffset)
	if err != nil {
		return fmt.Errorf("reading control register: %w", err)
	}
	if collapse {
		val |= swCollapseMask
	} else {
		val &^= swCollapseMask
	}
	if err := d.cfg.Regs.Main.Write(regOffset, val); err != nil {
		return fmt.Errorf("writing collapse request: %w", err)
	}
	return nil
}
