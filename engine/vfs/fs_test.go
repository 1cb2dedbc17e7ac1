package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-engine/engine/containers"
	"github.com/spaghettifunk/anima-engine/engine/core"
)

type mesh struct{ Name string }
type texture struct{ Width int }
type material struct{ Albedo containers.Handle }

func newFS(t *testing.T) *FS {
	t.Helper()
	return New(containers.NewRegistry())
}

func TestCreateFileUnderFolderPath(t *testing.T) {
	fs := newFS(t)
	models := fs.CreateFolder("Models", containers.NullHandle)
	require.False(t, models.IsNull())

	hero := CreateFile(fs, "Hero.mesh", mesh{Name: "hero"}, models, nil)
	require.False(t, hero.IsNull())

	assert.Equal(t, "Models/Hero.mesh", fs.Path(hero))
	assert.Equal(t, "Project/Models/Hero.mesh", fs.PathWithRoot(hero, "Project"))
	assert.Equal(t, "", fs.Path(fs.Root()))
	assert.True(t, fs.IsFile(hero))
	assert.True(t, fs.IsFolder(models))
	assert.Equal(t, "hero", DataOf[mesh](fs, hero).Name)
	assert.Equal(t, hero, fs.FileOf(fs.Data(hero)))
	assert.Equal(t, hero, fs.Find("Models/Hero.mesh"))
	assert.Equal(t, hero, fs.FindByUUID(fs.Node(hero).UUID))
}

func TestCreateDuplicateNamesAreSuffixed(t *testing.T) {
	fs := newFS(t)
	models := fs.CreateFolder("Models", containers.NullHandle)

	a := CreateFile(fs, "Hero.mesh", mesh{}, models, nil)
	b := CreateFile(fs, "Hero.mesh", mesh{}, models, nil)
	c := CreateFile(fs, "Hero.mesh", mesh{}, models, nil)

	assert.Equal(t, "Hero.mesh", fs.Node(a).Name)
	assert.Equal(t, "Hero (2).mesh", fs.Node(b).Name)
	assert.Equal(t, "Hero (3).mesh", fs.Node(c).Name)
	assert.NotEqual(t, fs.Path(a), fs.Path(b))
	assert.Len(t, fs.Children(models), 3)

	f1 := fs.CreateFolder("X", containers.NullHandle)
	f2 := fs.CreateFolder("X", containers.NullHandle)
	assert.Equal(t, "X (2)", fs.Node(f2).Name)
	assert.NotEqual(t, fs.Path(f1), fs.Path(f2))
}

func TestCreateRejectsFileParent(t *testing.T) {
	fs := newFS(t)
	file := CreateFile(fs, "a.mesh", mesh{}, containers.NullHandle, nil)
	before := fs.Registry().Len()

	assert.True(t, fs.CreateFolder("sub", file).IsNull())
	assert.True(t, CreateFile(fs, "b.mesh", mesh{}, file, nil).IsNull())
	assert.Equal(t, before, fs.Registry().Len())

	stale := fs.CreateFolder("gone", containers.NullHandle)
	fs.Rm(stale, nil)
	assert.True(t, fs.CreateFolder("sub", stale).IsNull())
}

func TestExtensionAppendedFromTypeInfo(t *testing.T) {
	fs := newFS(t)
	RegisterType[mesh](fs, TypeInfo{Extension: ".mesh"})
	h := CreateFile(fs, "Hero", mesh{}, containers.NullHandle, nil)
	assert.Equal(t, "Hero.mesh", fs.Node(h).Name)
	h2 := CreateFile(fs, "Hero.obj", mesh{}, containers.NullHandle, nil)
	assert.Equal(t, "Hero.obj", fs.Node(h2).Name)
}

func TestMoveRejectsCycles(t *testing.T) {
	fs := newFS(t)
	a := fs.CreateFolder("A", containers.NullHandle)
	b := fs.CreateFolder("B", a)
	c := fs.CreateFolder("C", b)
	file := CreateFile(fs, "f.mesh", mesh{}, a, nil)

	tests := []struct {
		name   string
		node   containers.Handle
		target containers.Handle
	}{
		{"self", a, a},
		{"child", a, b},
		{"grandchild", a, c},
		{"into file", b, file},
		{"root", fs.Root(), a},
		{"null target", b, containers.NullHandle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, fs.Move(tt.node, tt.target))
			assert.Equal(t, "A/B/C", fs.Path(c))
			assert.Equal(t, []containers.Handle{b, file}, fs.Children(a))
		})
	}
}

func TestMoveRebuildsSubtreePaths(t *testing.T) {
	fs := newFS(t)
	a := fs.CreateFolder("A", containers.NullHandle)
	b := fs.CreateFolder("B", a)
	hero := CreateFile(fs, "Hero.mesh", mesh{}, b, nil)
	other := fs.CreateFolder("Other", containers.NullHandle)
	CreateFile(fs, "B", mesh{}, other, nil)

	require.True(t, fs.Move(b, other))
	assert.Equal(t, "Other/B (2)", fs.Path(b))
	assert.Equal(t, "Other/B (2)/Hero.mesh", fs.Path(hero))
	assert.Empty(t, fs.Children(a))
	assert.True(t, fs.IsAncestor(other, hero))
	assert.False(t, fs.IsAncestor(a, hero))
}

func TestRename(t *testing.T) {
	fs := newFS(t)
	dir := fs.CreateFolder("Models", containers.NullHandle)
	a := CreateFile(fs, "Hero.mesh", mesh{}, dir, nil)
	b := CreateFile(fs, "Villain.mesh", mesh{}, dir, nil)

	bus := core.NewEventBus()
	fs.SetEventBus(bus)
	var renamed []string
	bus.Register(core.EventCodeNodeRenamed, nil, func(_ core.SystemEventCode, _ interface{}, _ interface{}, ctx core.EventContext) bool {
		renamed = append(renamed, ctx.C[0]+"->"+ctx.C[1])
		return false
	})

	assert.Equal(t, "Hero (2).mesh", fs.Rename(b, "Hero.mesh"))
	assert.Equal(t, "Hero.mesh", fs.Rename(a, "Hero.mesh"))
	assert.Equal(t, "Models/Hero (2).mesh", fs.Path(b))
	assert.Equal(t, "Assets", fs.Rename(dir, "Assets"))
	assert.Equal(t, "Assets/Hero.mesh", fs.Path(a))
	assert.Equal(t, []string{"Villain.mesh->Hero (2).mesh", "Models->Assets"}, renamed)
	assert.Equal(t, "", fs.Rename(containers.NullHandle, "x"))
	assert.Equal(t, "", fs.Rename(a, ""))
	assert.Equal(t, "", fs.Rename(a, "sub/Hero.mesh"))
	assert.Equal(t, "Hero.mesh", fs.Node(a).Name)
}

func TestNamesCannotBreakPaths(t *testing.T) {
	fs := newFS(t)
	before := fs.Registry().Len()

	assert.True(t, fs.CreateFolder("", containers.NullHandle).IsNull())
	assert.True(t, fs.CreateFolder("a/b", containers.NullHandle).IsNull())
	assert.True(t, CreateFile(fs, "", mesh{}, containers.NullHandle, nil).IsNull())
	assert.True(t, CreateFile(fs, "x/y.mesh", mesh{}, containers.NullHandle, nil).IsNull())
	assert.Equal(t, before, fs.Registry().Len())

	a := fs.CreateFolder("a", containers.NullHandle)
	b := fs.CreateFolder("b", a)
	assert.Equal(t, "a/b", fs.Path(b))
	assert.Equal(t, b, fs.Find("a/b"))

	assert.Equal(t, "a_b", SafeName("a/b", "x"))
	assert.Equal(t, "x", SafeName("", "x"))
	assert.True(t, ValidName(SafeName("/", "x")))
}

func TestRmErasesInRmOrder(t *testing.T) {
	fs := newFS(t)
	var order []string
	onDelete := func(fs *FS, file containers.Handle, _ any) bool {
		order = append(order, fs.Node(file).Name)
		return true
	}
	RegisterType[material](fs, TypeInfo{Extension: ".mat", RmOrder: 10, OnDelete: onDelete})
	RegisterType[texture](fs, TypeInfo{Extension: ".tex", RmOrder: 0, OnDelete: onDelete})
	RegisterType[mesh](fs, TypeInfo{Extension: ".mesh", RmOrder: 20, OnDelete: onDelete})

	model := fs.CreateFolder("Model", containers.NullHandle)
	mats := fs.CreateFolder("Materials", model)
	CreateFile(fs, "Body", mesh{}, model, nil)
	tex := CreateFile(fs, "Albedo", texture{}, model, nil)
	mat := CreateFile(fs, "Skin", material{Albedo: fs.Data(tex)}, mats, nil)
	texData := fs.Data(tex)
	matData := fs.Data(mat)

	queue := fs.RmQueue(model)
	require.Len(t, queue, 5)
	assert.Equal(t, tex, queue[0])
	assert.Equal(t, mat, queue[1])
	assert.True(t, fs.IsFolder(queue[3]))
	assert.True(t, fs.IsFolder(queue[4]))

	require.True(t, fs.Rm(model, nil))
	assert.Equal(t, []string{"Albedo.tex", "Skin.mat", "Body.mesh"}, order)
	assert.False(t, fs.Valid(model))
	assert.False(t, fs.Registry().Valid(texData))
	assert.False(t, fs.Registry().Valid(matData))
	assert.Empty(t, fs.Children(fs.Root()))
	assert.Equal(t, 1, fs.Len())
}

func TestRmVetoLeavesDetachedNode(t *testing.T) {
	fs := newFS(t)
	RegisterType[texture](fs, TypeInfo{OnDelete: func(*FS, containers.Handle, any) bool { return false }})

	dir := fs.CreateFolder("Textures", containers.NullHandle)
	tex := CreateFile(fs, "stone.tex", texture{Width: 8}, dir, nil)
	m := CreateFile(fs, "rock.mesh", mesh{}, dir, nil)

	require.True(t, fs.Rm(dir, nil))
	assert.False(t, fs.Valid(dir))
	assert.False(t, fs.Valid(m))

	require.True(t, fs.Valid(tex))
	assert.Equal(t, 8, DataOf[texture](fs, tex).Width)
	assert.True(t, fs.Node(tex).Parent.IsNull())
	assert.Equal(t, "stone.tex", fs.Path(tex))
	assert.Empty(t, fs.Children(fs.Root()))
	assert.True(t, fs.Find("Textures/stone.tex").IsNull())
}

func TestRmRoot(t *testing.T) {
	fs := newFS(t)
	fs.CreateFolder("A", containers.NullHandle)
	CreateFile(fs, "b.mesh", mesh{}, containers.NullHandle, nil)
	require.True(t, fs.Rm(fs.Root(), nil))
	assert.True(t, fs.Valid(fs.Root()))
	assert.Equal(t, 1, fs.Len())
	assert.False(t, fs.Rm(containers.NullHandle, nil))
}

func TestRmRawRescuesChildren(t *testing.T) {
	fs := newFS(t)
	top := fs.CreateFolder("Top", containers.NullHandle)
	before := CreateFile(fs, "before.mesh", mesh{}, top, nil)
	mid := fs.CreateFolder("Mid", top)
	after := CreateFile(fs, "after.mesh", mesh{}, top, nil)
	a := CreateFile(fs, "a.mesh", mesh{}, mid, nil)
	dup := CreateFile(fs, "before.mesh", mesh{}, mid, nil)

	require.True(t, fs.RmRaw(mid, nil))
	assert.False(t, fs.Valid(mid))
	assert.Equal(t, []containers.Handle{before, a, dup, after}, fs.Children(top))
	assert.Equal(t, "Top/a.mesh", fs.Path(a))
	assert.Equal(t, "Top/before (2).mesh", fs.Path(dup))
	assert.False(t, fs.RmRaw(fs.Root(), nil))
}

func TestRmRawVeto(t *testing.T) {
	fs := newFS(t)
	RegisterType[mesh](fs, TypeInfo{OnDelete: func(*FS, containers.Handle, any) bool { return false }})
	dir := fs.CreateFolder("Dir", containers.NullHandle)
	m := CreateFile(fs, "m.mesh", mesh{}, dir, nil)

	assert.False(t, fs.RmRaw(m, nil))
	assert.True(t, fs.Valid(m))
	assert.True(t, fs.Node(m).Parent.IsNull())
	assert.Empty(t, fs.Children(dir))
}

func TestCallbacksReceiveUserData(t *testing.T) {
	fs := newFS(t)
	type ctx struct{ created, reloaded int }
	c := &ctx{}
	RegisterType[texture](fs, TypeInfo{
		OnCreate: func(_ *FS, _ containers.Handle, ud any) { ud.(*ctx).created++ },
		OnReload: func(_ *FS, _ containers.Handle, ud any) { ud.(*ctx).reloaded++ },
	})
	h := CreateFile(fs, "t.tex", texture{}, containers.NullHandle, c)
	assert.Equal(t, 1, c.created)

	assert.True(t, fs.Reload(h, c))
	assert.Equal(t, 1, c.reloaded)
	assert.False(t, fs.Reload(fs.Root(), c))
	unregistered := CreateFile(fs, "m.mesh", mesh{}, containers.NullHandle, c)
	assert.False(t, fs.Reload(unregistered, c))
}

func TestDetachAndSourcePath(t *testing.T) {
	fs := newFS(t)
	dir := fs.CreateFolder("Dir", containers.NullHandle)
	m := CreateFile(fs, "m.mesh", mesh{}, dir, nil)
	require.True(t, fs.SetSourcePath(m, "assets/../assets/m.obj"))
	assert.Equal(t, m, fs.FileBySource("assets/m.obj"))
	assert.False(t, fs.SetSourcePath(dir, "x"))

	require.True(t, fs.Detach(m))
	assert.Empty(t, fs.Children(dir))
	assert.Equal(t, "m.mesh", fs.Path(m))
	require.True(t, fs.RmRaw(m, nil))
	assert.True(t, fs.FileBySource("assets/m.obj").IsNull())
}

func TestEventsCarryHandle(t *testing.T) {
	fs := newFS(t)
	bus := core.NewEventBus()
	fs.SetEventBus(bus)
	var created, removed []containers.Handle
	bus.Register(core.EventCodeFileCreated, "c", func(_ core.SystemEventCode, _ interface{}, _ interface{}, ctx core.EventContext) bool {
		created = append(created, HandleFromEvent(ctx))
		return false
	})
	bus.Register(core.EventCodeFileRemoved, "r", func(_ core.SystemEventCode, _ interface{}, _ interface{}, ctx core.EventContext) bool {
		removed = append(removed, HandleFromEvent(ctx))
		return false
	})
	h := CreateFile(fs, "m.mesh", mesh{}, containers.NullHandle, nil)
	fs.Rm(h, nil)
	assert.Equal(t, []containers.Handle{h}, created)
	assert.Equal(t, []containers.Handle{h}, removed)
}
