package panel

import (
	"time"

	"github.com/pkg/errors"

	"github.com/hubertat/multiio/board"
	"github.com/hubertat/multiio/calibration"
)

func (p *Panel) SetRelay(ch int, on bool) error {
	return p.do(func(dev Device) error {
		return errors.Wrapf(dev.SetRelay(ch, on), "error setting relay %d", ch)
	})
}

func (p *Panel) SetLed(ch int, on bool) error {
	return p.do(func(dev Device) error {
		return errors.Wrapf(dev.SetLed(ch, on), "error setting led %d", ch)
	})
}

func (p *Panel) SetUOut(ch int, volts float64) error {
	return p.do(func(dev Device) error {
		return errors.Wrapf(dev.SetUOut(ch, volts), "error setting u_out %d", ch)
	})
}

func (p *Panel) SetIOut(ch int, milliamps float64) error {
	return p.do(func(dev Device) error {
		return errors.Wrapf(dev.SetIOut(ch, milliamps), "error setting i_out %d", ch)
	})
}

func (p *Panel) SetWdtPeriod(seconds int) error {
	return p.do(func(dev Device) error {
		return errors.Wrap(dev.SetWdtPeriod(seconds), "error setting watchdog period")
	})
}

func (p *Panel) SetWdtInitPeriod(seconds int) error {
	return p.do(func(dev Device) error {
		return errors.Wrap(dev.SetWdtInitPeriod(seconds), "error setting watchdog initial period")
	})
}

func (p *Panel) SetWdtOffPeriod(seconds int) error {
	return p.do(func(dev Device) error {
		return errors.Wrap(dev.SetWdtOffPeriod(seconds), "error setting watchdog off period")
	})
}

func (p *Panel) ReloadWdt() error {
	return p.do(func(dev Device) error {
		return errors.Wrap(dev.WdtReload(), "error reloading watchdog")
	})
}

func (p *Panel) ClearWdtResetCount() error {
	return p.do(func(dev Device) error {
		return errors.Wrap(dev.WdtClearResetCount(), "error clearing watchdog reset count")
	})
}

func (p *Panel) SetRtc(t time.Time) error {
	return p.do(func(dev Device) error {
		return errors.Wrap(dev.SetRtc(t), "error setting rtc")
	})
}

func (p *Panel) SetOptoEdge(ch int, edge board.Edge) error {
	return p.do(func(dev Device) error {
		return errors.Wrapf(dev.SetOptoEdge(ch, edge), "error setting opto %d edge mode", ch)
	})
}

func (p *Panel) ResetOptoCount(ch int) error {
	return p.do(func(dev Device) error {
		return errors.Wrapf(dev.ResetOptoCount(ch), "error resetting opto %d counter", ch)
	})
}

func (p *Panel) SetOptoEncoder(ch int, enabled bool) error {
	return p.do(func(dev Device) error {
		return errors.Wrapf(dev.SetOptoEncoder(ch, enabled), "error setting encoder %d state", ch)
	})
}

func (p *Panel) ResetOptoEncoderCount(ch int) error {
	return p.do(func(dev Device) error {
		return errors.Wrapf(dev.ResetOptoEncoderCount(ch), "error resetting encoder %d counter", ch)
	})
}

func (p *Panel) SetServo(ch int, percent float64) error {
	return p.do(func(dev Device) error {
		return errors.Wrapf(dev.SetServo(ch, percent), "error setting servo %d position", ch)
	})
}

func (p *Panel) SetMotor(percent float64) error {
	return p.do(func(dev Device) error {
		return errors.Wrap(dev.SetMotor(percent), "error setting motor speed")
	})
}

// Calibrate sends one calibration point to the card firmware, e.g. the
// voltage present on a u_in channel or the resistance on an RTD input.
func (p *Panel) Calibrate(target board.CalTarget, ch int, value float64) error {
	return p.do(func(dev Device) error {
		return errors.Wrapf(dev.Calibrate(target, ch, value), "error calibrating %s %d", target, ch)
	})
}

func (p *Panel) CalibrateUIn(ch int, volts float64) error {
	return p.Calibrate(board.CalUIn, ch, volts)
}

func (p *Panel) CalibrateRtdRes(ch int, ohms float64) error {
	return p.Calibrate(board.CalRtd, ch, ohms)
}

func (p *Panel) ResetCalibration(target board.CalTarget, ch int) error {
	return p.do(func(dev Device) error {
		return errors.Wrapf(dev.ResetCalibration(target, ch), "error resetting %s %d calibration", target, ch)
	})
}

// Calibration returns a copy of the current software calibration.
func (p *Panel) Calibration() calibration.Settings {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.settings.Clone()
}

// SetGainOffset updates one channel of the software calibration and pushes
// it to the card when one is connected.
func (p *Panel) SetGainOffset(kind board.AnalogKind, ch int, gain, offset float64) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if err := p.settings.Set(kind, ch, gain, offset); err != nil {
		return err
	}
	if p.dev == nil {
		return nil
	}
	return errors.Wrapf(p.dev.SetGainOffset(kind, ch, gain, offset), "error applying %s %d gain/offset", kind, ch)
}

// LoadCalibration reads a settings file, replaces the current settings and
// applies them to the card. A bad file leaves the current settings untouched.
func (p *Panel) LoadCalibration(path string) error {
	settings, err := calibration.LoadFile(path)
	if err != nil {
		return err
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	p.settings = settings
	p.logger.Info("calibration settings loaded", "file", path)
	if p.dev == nil {
		return errors.Wrap(ErrNotConnected, "cannot apply calibration settings")
	}
	return errors.Wrap(settings.Apply(p.dev), "error applying calibration settings to device")
}

// SaveCalibration writes the current settings, an empty path selects the
// default file name for the connected stack and bus.
func (p *Panel) SaveCalibration(path string) (string, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if path == "" {
		path = calibration.DefaultFileName(p.stack, p.bus)
	}
	if err := p.settings.SaveFile(path); err != nil {
		return path, errors.Wrap(err, "error saving calibration settings")
	}
	p.logger.Info("calibration settings saved", "file", path)
	return path, nil
}
