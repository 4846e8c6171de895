package propeller

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/kr/pty"
	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"
)

const (
	PropAddr = 0x42

	RegMotor1 = 22
	RegMotor2 = 23

	// Propeller hat reset pin (active low).
	resetGPIO = "17"

	writeTries = 20
	flashTries = 3
)

var ErrGaveUp = errors.New("failed to program or reflash the propeller")

// Interface is the motor side of the propeller hat.  Speeds are signed, -127..127.
type Interface interface {
	SetMotorSpeeds(left, right int8) error
	Close() error
}

type Propeller struct {
	lock     sync.Mutex
	dev      *i2c.Device
	bus      string
	firmware string
	reset    sysfsPin
}

// New opens the propeller on the given I2C bus and flashes the motor firmware onto it.
func New(bus, firmware string) (*Propeller, error) {
	p := &Propeller{
		bus:      bus,
		firmware: firmware,
		reset:    sysfsPin(resetGPIO),
	}
	if err := p.reopen(); err != nil {
		return nil, err
	}
	if err := p.Flash(); err != nil {
		_ = p.dev.Close()
		return nil, err
	}
	return p, nil
}

func (p *Propeller) reopen() error {
	if p.dev != nil {
		_ = p.dev.Close()
		p.dev = nil
	}
	dev, err := i2c.Open(&i2c.Devfs{Dev: p.bus}, PropAddr)
	if err != nil {
		return errors.Wrapf(err, "failed to open propeller on %s", p.bus)
	}
	p.dev = dev
	return nil
}

// Flash loads the firmware with propman and then releases the reset line.
func (p *Propeller) Flash() error {
	fmt.Println("Propeller: flashing", p.firmware)
	cmd := exec.Command("propman", p.firmware)
	// propman reports success without booting the chip unless it has a TTY.
	tty, err := pty.Start(cmd)
	if err != nil {
		return errors.Wrap(err, "failed to start propman")
	}
	defer tty.Close()
	go func() { _, _ = io.Copy(os.Stdout, tty) }()
	if err := cmd.Wait(); err != nil {
		return errors.Wrap(err, "propman failed")
	}

	// Writing "high" as the direction makes the pin an output that starts high, so the chip
	// is not glitched into reset.
	if err := p.reset.export(); err != nil {
		return err
	}
	if err := p.reset.write("direction", "high"); err != nil {
		return err
	}
	time.Sleep(25 * time.Millisecond)
	fmt.Println("Propeller: flashed")
	return nil
}

func (p *Propeller) Reset() error {
	fmt.Println("Propeller: reset")
	return p.reset.write("value", "0")
}

func (p *Propeller) SetMotorSpeeds(left, right int8) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.writeWithRetries(motorFrame(left, right))
}

// motorFrame builds the register write for both motors.  The right motor is mounted mirrored.
func motorFrame(left, right int8) []byte {
	// -128 can't be negated.
	if left == -128 {
		left = -127
	}
	if right == -128 {
		right = -127
	}
	return []byte{RegMotor2, byte(left), byte(-right)}
}

// writeWithRetries retries the write, reopening the bus after each failure; after a run of
// failures it resets and reflashes the chip.  Must be called with the lock held.
func (p *Propeller) writeWithRetries(data []byte) error {
	var lastErr error
	for flash := 0; flash < flashTries; flash++ {
		for try := 0; try < writeTries; try++ {
			if p.dev != nil {
				lastErr = p.dev.Write(data)
				if lastErr == nil {
					if try > 0 || flash > 0 {
						fmt.Println("Propeller: write succeeded after retries")
					}
					return nil
				}
			}
			fmt.Println("Propeller: write failed:", lastErr)
			time.Sleep(time.Millisecond)
			if err := p.reopen(); err != nil {
				lastErr = err
			}
		}
		fmt.Println("Propeller: giving up on writes, rebooting it:", lastErr)
		_ = p.Reset()
		_ = p.Flash()
	}
	return errors.Wrapf(ErrGaveUp, "last error: %v", lastErr)
}

func (p *Propeller) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.dev == nil {
		return nil
	}
	return p.dev.Close()
}

// sysfsPin is a GPIO driven through /sys/class/gpio.
type sysfsPin string

func (pin sysfsPin) export() error {
	f, err := os.OpenFile("/sys/class/gpio/export", os.O_WRONLY, 0666)
	if err != nil {
		return errors.Wrap(err, "failed to open GPIO export")
	}
	defer f.Close()
	// Fails if the pin is already exported.
	_, _ = f.WriteString(string(pin))
	return nil
}

func (pin sysfsPin) write(attr, value string) error {
	f, err := os.OpenFile("/sys/class/gpio/gpio"+string(pin)+"/"+attr, os.O_WRONLY, 0666)
	if err != nil {
		return errors.Wrapf(err, "failed to open gpio%s %s", pin, attr)
	}
	defer f.Close()
	if _, err := f.WriteString(value); err != nil {
		return errors.Wrapf(err, "failed to write gpio%s %s", pin, attr)
	}
	return nil
}

// Dummy logs motor changes instead of sending them.
func Dummy() Interface {
	return &dummyPropeller{}
}

type dummyPropeller struct {
	lock         sync.Mutex
	lastL, lastR int8
}

func (p *dummyPropeller) SetMotorSpeeds(left, right int8) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if left != p.lastL || right != p.lastR {
		fmt.Printf("Dummy propeller: l=%v r=%v\n", left, right)
		p.lastL, p.lastR = left, right
	}
	return nil
}

func (p *dummyPropeller) Close() error {
	return nil
}
