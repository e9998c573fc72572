//go:build windows

package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVideoControllersSkipBasicDisplay(t *testing.T) {
	ram := uint32(4 << 30)
	driver := "31.0.101.4502"
	gpus := videoControllers([]win32VideoController{
		{Name: "Microsoft Basic Display Adapter"},
		{Name: "Intel(R) UHD Graphics 770 ", AdapterRAM: &ram, DriverVersion: &driver},
	})

	require.Len(t, gpus, 1)
	assert.Equal(t, 0, gpus[0].Index)
	assert.Equal(t, "Intel(R) UHD Graphics 770", gpus[0].Name)
	assert.Equal(t, uint64(4<<30), gpus[0].MemoryTotal)
	assert.Equal(t, driver, gpus[0].Driver)

	assert.Empty(t, videoControllers([]win32VideoController{{Name: "Microsoft Basic Display Adapter"}}))
}

func TestEngineUtilizationSums3DEngines(t *testing.T) {
	assert.InDelta(t, 35.0, engineUtilization([]win32GPUEngine{
		{Name: "pid_1200_luid_0x00000000_0x0000D1B2_phys_0_eng_0_engtype_3D", UtilizationPercentage: 20},
		{Name: "pid_4410_luid_0x00000000_0x0000D1B2_phys_0_eng_0_engtype_3D", UtilizationPercentage: 15},
		{Name: "pid_4410_luid_0x00000000_0x0000D1B2_phys_0_eng_3_engtype_VideoDecode", UtilizationPercentage: 60},
	}), 0.001)

	assert.InDelta(t, 100.0, engineUtilization([]win32GPUEngine{
		{Name: "a_engtype_3D", UtilizationPercentage: 80},
		{Name: "b_engtype_3D", UtilizationPercentage: 70},
	}), 0.001, "capped at 100")
}
