package homing

import (
	"io"
	"log"
	"os"
	"testing"

	"github.com/mastercactapus/motioncore/coord"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

type recordDriver struct {
	calls []string
	fail  map[Channel]bool
}

func (d *recordDriver) SetEnabled(ch Channel, on bool) error {
	state := "off"
	if on {
		state = "on"
	}
	d.calls = append(d.calls, string(ch)+" "+state)
	if d.fail[ch] {
		return errors.New("stuck")
	}
	return nil
}

func TestTracker_Startup(t *testing.T) {
	tr := New(Config{RequireHoming: true}, nil)
	for _, a := range coord.LinearAxes {
		assert.False(t, tr.Known(a))
		assert.False(t, tr.Homed(a))
	}

	err := tr.AxisUnhomedError(true, false, true)
	require.Error(t, err)
	assert.Equal(t, "home XZ first", err.Error())
	assert.True(t, errors.Is(err, ErrUnhomed))

	var uerr *UnhomedError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, []coord.Axis{coord.X, coord.Z}, uerr.Axes)

	assert.NoError(t, tr.AxisUnhomedError(false, false, false))
}

func TestTracker_NotRequired(t *testing.T) {
	tr := New(Config{}, nil)
	assert.NoError(t, tr.AxisUnhomedError(true, true, true))
}

func TestTracker_HomeAndDisable(t *testing.T) {
	drv := &recordDriver{}
	tr := New(Config{RequireHoming: true}, drv)

	tr.SetHomed(coord.X, coord.Y, coord.Z)
	assert.NoError(t, tr.AxisUnhomedError(true, true, true))
	assert.Equal(t, Flags{Known: "XYZ", Homed: "XYZ"}, tr.Flags())

	require.NoError(t, tr.Disable(coord.X))
	assert.False(t, tr.Known(coord.X))
	assert.True(t, tr.Homed(coord.X))
	assert.Equal(t, []string{"X off"}, drv.calls)

	// homed stays set, so moves are still allowed unless position loss matters
	assert.NoError(t, tr.AxisUnhomedError(true, true, true))
}

func TestTracker_HomeAfterDeactivate(t *testing.T) {
	tr := New(Config{RequireHoming: true, HomeAfterDeactivate: true}, nil)
	tr.SetHomed(coord.X, coord.Y, coord.Z)

	require.NoError(t, tr.Disable(coord.Y))
	err := tr.AxisUnhomedError(true, true, true)
	assert.EqualError(t, err, "home Y first")

	tr.SetHomed(coord.Y)
	assert.NoError(t, tr.AxisUnhomedError(true, true, true))

	log.SetOutput(io.Discard)
	defer log.SetOutput(os.Stderr)
	tr.Fault(coord.Z, "driver overtemperature")
	assert.EqualError(t, tr.AxisUnhomedError(false, false, true), "home Z first")
	assert.Equal(t, Flags{Known: "XY", Homed: "XYZ"}, tr.Flags())
}

func TestTracker_ChannelTable(t *testing.T) {
	drv := &recordDriver{}
	tr := New(Config{Drivers: DriverLayout{DualX: true, ZDrivers: 3, Extruders: 2}}, drv)

	require.NoError(t, tr.Enable(coord.Z))
	require.NoError(t, tr.Disable(coord.X))
	require.NoError(t, tr.Disable(coord.E))
	assert.Equal(t, []string{
		"Z on", "Z2 on", "Z3 on",
		"X off", "X2 off",
		"E0 off", "E1 off",
	}, drv.calls)
}

func TestTracker_DisableAll(t *testing.T) {
	drv := &recordDriver{fail: map[Channel]bool{"Y": true, "E0": true}}
	tr := New(Config{}, drv)
	tr.SetHomed(coord.X, coord.Y, coord.Z)

	err := tr.DisableAll()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Equal(t, []string{"X off", "Y off", "Z off", "E0 off"}, drv.calls)
	assert.Equal(t, Flags{Known: "", Homed: "XYZ"}, tr.Flags())

	drv.fail = nil
	assert.NoError(t, tr.EnableAll())
}

func TestTracker_Reset(t *testing.T) {
	tr := New(Config{}, nil)
	tr.SetHomed(coord.X, coord.E)
	assert.Equal(t, Flags{Known: "X", Homed: "X"}, tr.Flags())

	tr.Reset()
	assert.Equal(t, Flags{}, tr.Flags())
}

func TestDriverLayout(t *testing.T) {
	tb := DriverLayout{DualY: true}.Table()
	assert.Equal(t, []Channel{"X"}, tb[coord.X])
	assert.Equal(t, []Channel{"Y", "Y2"}, tb[coord.Y])
	assert.Equal(t, []Channel{"Z"}, tb[coord.Z])
	assert.Equal(t, []Channel{"E0"}, tb[coord.E])
}
