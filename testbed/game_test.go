package testbed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-engine/engine"
	"github.com/spaghettifunk/anima-engine/engine/core"
	"github.com/spaghettifunk/anima-engine/engine/renderer"
)

func TestTestbedRunsHeadless(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Jobs.Workers = 2
	tg := NewTestGame(cfg)
	st := tg.state()
	st.removeAt, st.maxFrame = 5, 12

	device := renderer.NewHostDevice(0)
	e, err := engine.New(tg.Game, device)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())

	fs := e.Project().FS()
	assert.Equal(t, "Models/pillar/pillar.mesh", fs.Path(st.model.Meshes[0]))
	liveAfterImport := device.LiveBuffers()
	assert.Greater(t, liveAfterImport, 0)

	require.NoError(t, e.Run())
	assert.Equal(t, uint64(12), e.Frames())
	// texture, material, mesh and the prefab scene wait for the fence
	assert.Equal(t, uint32(4), tg.Flushed())
	assert.False(t, fs.Valid(st.model.Folder))
	assert.Less(t, device.LiveBuffers(), liveAfterImport)

	require.NoError(t, e.Shutdown())
	assert.Equal(t, engine.EngineStageShutdown, e.Stage())
}

func TestGenerateModelIsSkinned(t *testing.T) {
	desc := GenerateModel("pillar")
	mesh := desc.Meshes[0].Mesh
	assert.True(t, mesh.IsSkinned())
	assert.Len(t, mesh.Indices, 12)
	assert.Equal(t, float32(2), desc.Animations.Clips[0].Duration)
	assert.NoError(t, desc.Skeleton.Validate())
}
