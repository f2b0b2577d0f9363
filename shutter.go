package multiio

import (
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/service"
	"github.com/pkg/errors"

	"github.com/hubertat/multiio/drivers"
)

const defaultMovementDuration = 30 * time.Second
const defaultShutterSpeed = 100.0

// HomeKit position states.
const (
	positionGoingDown = 0
	positionGoingUp   = 1
	positionStopped   = 2
)

// Shutter drives a roller shutter with the card DC motor. There is no end
// switch, the position is estimated from the time the motor runs.
type Shutter struct {
	Name             string
	DriverName       string
	MovementDuration string
	Speed            float64
	InvertDirection  bool
	DisableHomekit   bool

	State int

	motor                drivers.MotorOutput
	hk                   *accessory.A
	covering             *service.WindowCovering
	now                  func() time.Time
	isMoving             bool
	isGoingUp            bool
	movementStartedAt    time.Time
	movementStartState   int
	fullMovementDuration time.Duration
	targetState          int
	lock                 sync.Mutex
}

func (shu *Shutter) GetDriverName() string {
	return shu.DriverName
}

func (shu *Shutter) GetUniqueId() uint64 {
	hash := fnv.New64()
	hash.Write([]byte("Shutter_" + shu.Name))
	return hash.Sum64()
}

func (shu *Shutter) Init(driver drivers.IoDriver) error {
	if !strings.EqualFold(driver.String(), shu.DriverName) {
		return errors.Errorf("shutter %s Init failed, mismatched or incorrect driver", shu.Name)
	}
	if !driver.IsReady() {
		return errors.Errorf("shutter %s Init failed, driver not ready", shu.Name)
	}

	motorDriver, ok := driver.(drivers.MotorDriver)
	if !ok {
		return errors.Errorf("shutter %s Init failed, driver %s has no motor", shu.Name, driver)
	}
	var err error
	shu.motor, err = motorDriver.GetMotor()
	if err != nil {
		return errors.Wrap(err, "Init failed on getting motor")
	}

	shu.fullMovementDuration = defaultMovementDuration
	if len(shu.MovementDuration) > 0 {
		shu.fullMovementDuration, err = time.ParseDuration(shu.MovementDuration)
		if err != nil {
			return errors.Wrapf(err, "shutter %s: invalid MovementDuration", shu.Name)
		}
	}
	if shu.Speed <= 0 || shu.Speed > 100 {
		shu.Speed = defaultShutterSpeed
	}
	if shu.now == nil {
		shu.now = time.Now
	}
	shu.targetState = shu.State

	if shu.DisableHomekit {
		return nil
	}

	info := accessory.Info{
		Name:         shu.Name,
		SerialNumber: fmt.Sprintf("shutter:%s:motor", shu.DriverName),
	}
	shu.hk = accessory.New(info, accessory.TypeWindowCovering)
	shu.covering = service.NewWindowCovering()
	shu.hk.AddS(shu.covering.S)

	shu.covering.CurrentPosition.SetValue(shu.State)
	shu.covering.TargetPosition.SetValue(shu.State)
	shu.covering.PositionState.SetValue(positionStopped)
	shu.covering.TargetPosition.OnValueRemoteUpdate(shu.StartMovement)

	return nil
}

func (shu *Shutter) GetHk() *accessory.A {
	return shu.hk
}

func (shu *Shutter) GetState() int {
	shu.lock.Lock()
	defer shu.lock.Unlock()

	return shu.State
}

func (shu *Shutter) GetPositionState() int {
	shu.lock.Lock()
	defer shu.lock.Unlock()

	return shu.positionState()
}

func (shu *Shutter) positionState() int {
	if !shu.isMoving {
		return positionStopped
	}
	if shu.isGoingUp {
		return positionGoingUp
	}
	return positionGoingDown
}

func (shu *Shutter) GoUp() {
	shu.StartMovement(100)
}

func (shu *Shutter) GoDown() {
	shu.StartMovement(0)
}

// StartMovement sets a new target position in percent, 100 is fully open.
// The motor is switched on the next Sync.
func (shu *Shutter) StartMovement(target int) {
	shu.lock.Lock()
	defer shu.lock.Unlock()

	if target < 0 {
		target = 0
	}
	if target > 100 {
		target = 100
	}
	shu.targetState = target

	if shu.isMoving {
		shu.updateCurrentState()
	}
	if shu.State == target {
		shu.stop()
		return
	}

	shu.movementStartedAt = shu.now()
	shu.movementStartState = shu.State
	shu.isGoingUp = target > shu.State
	shu.isMoving = true
}

func (shu *Shutter) StopMovement() {
	shu.lock.Lock()
	defer shu.lock.Unlock()

	if shu.isMoving {
		shu.updateCurrentState()
	}
	shu.targetState = shu.State
	shu.stop()
}

func (shu *Shutter) stop() {
	shu.isMoving = false
	shu.movementStartedAt = time.Time{}
}

func (shu *Shutter) updateCurrentState() {
	if !shu.isMoving {
		return
	}
	percentageMoved := float64(100*shu.now().Sub(shu.movementStartedAt)) / float64(shu.fullMovementDuration)
	calculatedState := float64(shu.movementStartState)
	if shu.isGoingUp {
		calculatedState += percentageMoved
	} else {
		calculatedState -= percentageMoved
	}

	switch {
	case calculatedState >= 100:
		shu.State = 100
	case calculatedState <= 0:
		shu.State = 0
	default:
		shu.State = int(calculatedState)
	}

	if shu.isGoingUp && shu.State >= shu.targetState {
		shu.State = shu.targetState
		shu.stop()
	}
	if !shu.isGoingUp && shu.State <= shu.targetState {
		shu.State = shu.targetState
		shu.stop()
	}
}

func (shu *Shutter) speed() float64 {
	if !shu.isMoving {
		return 0
	}
	goingUp := shu.isGoingUp
	if shu.InvertDirection {
		goingUp = !goingUp
	}
	if goingUp {
		return shu.Speed
	}
	return -shu.Speed
}

// Sync updates the estimated position and drives the motor.
func (shu *Shutter) Sync() error {
	shu.lock.Lock()
	defer shu.lock.Unlock()

	shu.updateCurrentState()

	if err := shu.motor.SetSpeed(shu.speed()); err != nil {
		return errors.Wrapf(err, "shutter %s failed to drive motor", shu.Name)
	}

	if shu.covering != nil {
		shu.covering.CurrentPosition.SetValue(shu.State)
		shu.covering.PositionState.SetValue(shu.positionState())
	}
	return nil
}
