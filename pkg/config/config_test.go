package config

import (
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/tigerbot-team/tigerbot/linebot/pkg/odometry"
)

func writeFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "linebot.yaml")
	if err := ioutil.WriteFile(path, []byte(contents), 0666); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultsMatchOdometry(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if c.OdometryParams() != odometry.DefaultParams() {
		t.Errorf("config defaults %+v differ from odometry defaults %+v", c.OdometryParams(), odometry.DefaultParams())
	}
	if !c.Intersections() || c.CenterRange(true) != 100 || c.CenterRange(false) != 47 {
		t.Errorf("unexpected steering defaults %+v", c.Steering)
	}
	if c.IgnoreBudgetTicks != 8500 {
		t.Errorf("ignore budget = %d", c.IgnoreBudgetTicks)
	}
}

func TestMissingFileGivesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if c.Steering != Default().Steering {
		t.Errorf("unexpected config %+v", c.Steering)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
steering:
  variant: a
  centerrangesimple: 60
odometry:
  thresholdmm: 500
motors:
  turnleft:
    left: 1500
    right: 3500
`)
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Intersections() || c.CenterRange(false) != 60 {
		t.Errorf("steering not loaded: %+v", c.Steering)
	}
	if math.Abs(c.Odometry.ThresholdMM-500) > 1e-9 {
		t.Errorf("threshold = %f", c.Odometry.ThresholdMM)
	}
	// Untouched fields keep their defaults.
	if c.Odometry.ReportEvery != 1000 || c.Motors.Forward != Default().Motors.Forward {
		t.Errorf("defaults lost: %+v %+v", c.Odometry, c.Motors)
	}
	if d := c.Duties().TurnLeft; d.Left != 1500 || d.Right != 3500 {
		t.Errorf("turn left duties = %+v", d)
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	for _, contents := range []string{
		"steering:\n  variant: c\n",
		"odometry:\n  reportevery: 0\n",
		"hardware:\n  sensorpins: [a, b]\n",
		"nosuchfield: 1\n",
		"steering: [",
	} {
		if _, err := Load(writeFile(t, contents)); err == nil {
			t.Errorf("expected error for %q", contents)
		}
	}
}

func TestWriteInUseRoundTrip(t *testing.T) {
	c := Default()
	c.Steering.Variant = VariantSimple
	c.Hardware.SerialPort = ""
	path := filepath.Join(t.TempDir(), "in-use.yaml")
	if err := WriteInUse(c, path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Steering != c.Steering || loaded.Hardware.SerialPort != "" {
		t.Errorf("round trip lost settings: %+v", loaded)
	}
}

func TestPathFromEnvironment(t *testing.T) {
	old, had := os.LookupEnv(EnvPath)
	defer func() {
		if had {
			os.Setenv(EnvPath, old)
		} else {
			os.Unsetenv(EnvPath)
		}
	}()
	os.Setenv(EnvPath, "/tmp/x.yaml")
	if Path() != "/tmp/x.yaml" {
		t.Errorf("Path() = %s", Path())
	}
	os.Unsetenv(EnvPath)
	if Path() != DefaultPath {
		t.Errorf("Path() = %s", Path())
	}
}
