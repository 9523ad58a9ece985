package hostinfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSysfs builds a synthetic /sys tree with one virtio NIC, one e1000
// NIC and two virtio block devices.
func fakeSysfs(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	drivers := filepath.Join(root, "bus", "virtio", "drivers", "virtio_net")
	require.NoError(t, os.MkdirAll(drivers, 0o755))
	e1000 := filepath.Join(root, "bus", "pci", "drivers", "e1000")
	require.NoError(t, os.MkdirAll(e1000, 0o755))

	addNIC := func(name, driver string) {
		dev := filepath.Join(root, "class", "net", name, "device")
		require.NoError(t, os.MkdirAll(dev, 0o755))
		require.NoError(t, os.Symlink(driver, filepath.Join(dev, "driver")))
	}
	addNIC("eth0", drivers)
	addNIC("eth1", e1000)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "class", "net", "lo"), 0o755))

	for _, q := range []string{"rx-0", "rx-1", "tx-0", "tx-1"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, "class", "net", "eth0", "queues", q), 0o755))
	}

	for _, blk := range []string{"vda", "vdb", "sda"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, "block", blk), 0o755))
	}

	return root
}

func TestVirtIONetScan(t *testing.T) {
	p := NewSysProvider(WithSysfsRoot(fakeSysfs(t)))

	assert.Equal(t, []string{"eth0"}, p.virtioNetDevices())
}

func TestVirtIOBlockScan(t *testing.T) {
	p := NewSysProvider(WithSysfsRoot(fakeSysfs(t)))

	assert.Equal(t, []string{"vda", "vdb"}, p.virtioBlockDevices())
}

func TestQueueCount(t *testing.T) {
	p := NewSysProvider(WithSysfsRoot(fakeSysfs(t)))

	assert.Equal(t, 2, p.QueueCount("eth0"))
	assert.Equal(t, 4, p.QueueCount("does-not-exist"), "unreadable queue dir falls back to 4")
}

func TestMissingSysfsIsBestEffort(t *testing.T) {
	p := NewSysProvider(WithSysfsRoot(filepath.Join(t.TempDir(), "nope")))

	assert.Empty(t, p.virtioNetDevices())
	assert.Empty(t, p.virtioBlockDevices())
}
