package namespace

import (
	"errors"
	"testing"
	"time"

	"github.com/brettbedarf/nstree"
	"github.com/brettbedarf/nstree/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNode_ChangeName(t *testing.T) {
	t.Parallel()

	t.Run("RenameToSiblingNameIsNoOp", func(t *testing.T) {
		t.Parallel()
		f := newAlphaFixture(t)

		assert.False(t, f.file1.CanAcceptAsNewName("Bravo"))
		require.NoError(t, f.file1.ChangeName("Bravo"))
		assert.Equal(t, "file1", f.file1.Name())
		assert.Equal(t, 2, f.alpha.ChildCount())
		assert.Equal(t, []string{"Bravo", "file1"}, childNames(f.alpha))
		_, modified := f.file1.ModificationTime()
		assert.False(t, modified)
	})

	t.Run("UnacceptableNamesAreNoOps", func(t *testing.T) {
		t.Parallel()
		f := newAlphaFixture(t)

		for _, name := range []string{"", "bad name", "file1", "FILE1", "a/b"} {
			require.NoError(t, f.file1.ChangeName(name), "name %q", name)
			assert.Equal(t, "file1", f.file1.Name(), "name %q", name)
		}
		link, err := f.tree.NewLink(nil, "lnk", f.file1)
		require.NoError(t, err)
		require.NoError(t, link.ChangeName("with.dot"))
		assert.Equal(t, "lnk", link.Name())
		require.NoError(t, f.bravo.ChangeName(".."))
		assert.Equal(t, "Bravo", f.bravo.Name())
	})

	t.Run("ReordersParent", func(t *testing.T) {
		t.Parallel()
		tr := newTestTree(t)
		dir, err := tr.NewDirectory(nil, "dir", true)
		require.NoError(t, err)
		for _, name := range []string{"a", "b", "c"} {
			_, err := tr.NewFile(dir, name, nstree.TextFileType, 0, true)
			require.NoError(t, err)
		}
		a, ok := dir.Lookup("a")
		require.True(t, ok)

		require.NoError(t, a.ChangeName("D"))
		assert.Equal(t, []string{"b", "c", "D"}, childNames(dir))
		last, err := dir.ChildAt(3)
		require.NoError(t, err)
		assert.Same(t, a, last)

		require.NoError(t, a.ChangeName("0first"))
		assert.Equal(t, []string{"0first", "b", "c"}, childNames(dir))
		assert.NoError(t, tr.Check())
	})

	t.Run("StampsModificationTime", func(t *testing.T) {
		t.Parallel()
		f := newAlphaFixture(t)

		require.NoError(t, f.file1.ChangeName("renamed"))
		mtime, ok := f.file1.ModificationTime()
		require.True(t, ok)
		assert.True(t, mtime.After(f.file1.CreationTime()))
	})

	t.Run("Root", func(t *testing.T) {
		t.Parallel()
		f := newAlphaFixture(t)
		require.NoError(t, f.alpha.ChangeName("Omega"))
		assert.Equal(t, "Omega", f.alpha.Name())
		assert.Equal(t, "/Omega/file1.txt", f.file1.AbsolutePath())
	})

	t.Run("NotWritableNode", func(t *testing.T) {
		t.Parallel()
		f := newAlphaFixture(t)
		require.NoError(t, f.file1.SetWritable(false))

		err := f.file1.ChangeName("x")
		var nwErr *nstree.NotWritableError
		require.ErrorAs(t, err, &nwErr)
		assert.Equal(t, "file1", nwErr.Name())
		assert.False(t, f.file1.CanAcceptAsNewName("x"))
	})

	t.Run("NotWritableParent", func(t *testing.T) {
		t.Parallel()
		f := newAlphaFixture(t)
		require.NoError(t, f.alpha.SetWritable(false))

		err := f.file1.ChangeName("x")
		var nwErr *nstree.NotWritableError
		require.ErrorAs(t, err, &nwErr)
		assert.Equal(t, "Alpha", nwErr.Name())
		assert.Equal(t, "file1", f.file1.Name())
	})

	t.Run("LinkUnderNonWritableParent", func(t *testing.T) {
		t.Parallel()
		f := newAlphaFixture(t)
		link, err := f.tree.NewLink(f.alpha, "lnk", f.file1)
		require.NoError(t, err)
		require.NoError(t, f.alpha.SetWritable(false))

		assert.True(t, link.CanAcceptAsNewName("renamed"))
		require.NoError(t, link.ChangeName("renamed"))
		assert.Equal(t, "renamed", link.Name())
		assert.Equal(t, []string{"Bravo", "file1", "renamed"}, childNames(f.alpha))
		assert.NoError(t, f.tree.Check())
	})

	t.Run("Terminated", func(t *testing.T) {
		t.Parallel()
		f := newAlphaFixture(t)
		require.NoError(t, f.file1.Terminate())

		assert.ErrorIs(t, f.file1.ChangeName("x"), nstree.ErrInvalidState)
		assert.False(t, f.file1.CanAcceptAsNewName("x"))
	})
}

func TestNode_Ordering(t *testing.T) {
	t.Parallel()

	f := newAlphaFixture(t)
	var absent *File

	assert.True(t, f.bravo.IsOrderedBefore("FILE1"))
	assert.False(t, f.bravo.IsOrderedAfter("FILE1"))
	assert.True(t, f.file1.IsOrderedAfter("bravo"))
	assert.False(t, f.file1.IsOrderedBefore("file1"))
	assert.False(t, f.file1.IsOrderedAfter("FILE1"))
	assert.False(t, f.file1.IsOrderedBefore(""))
	assert.False(t, f.file1.IsOrderedAfter(""))

	assert.True(t, f.bravo.IsOrderedBeforeNode(f.file1))
	assert.True(t, f.file1.IsOrderedAfterNode(f.bravo))
	assert.False(t, f.file1.IsOrderedBeforeNode(nil))
	assert.False(t, f.file1.IsOrderedAfterNode(absent))
}

func TestNode_Ancestry(t *testing.T) {
	t.Parallel()

	f := newAlphaFixture(t)
	file2, err := f.tree.NewFile(f.bravo, "file2", nstree.TextFileType, 0, true)
	require.NoError(t, err)

	assert.True(t, f.alpha.IsDirectOrIndirectParentOf(file2))
	assert.True(t, f.bravo.IsDirectOrIndirectParentOf(file2))
	assert.False(t, f.file1.IsDirectOrIndirectParentOf(file2))
	assert.False(t, file2.IsDirectOrIndirectParentOf(f.alpha))
	assert.False(t, f.alpha.IsDirectOrIndirectParentOf(f.alpha))
	assert.False(t, f.alpha.IsDirectOrIndirectParentOf(nil))

	assert.True(t, f.alpha.IsRoot())
	assert.False(t, file2.IsRoot())
	assert.Nil(t, f.alpha.Parent())
	assert.Same(t, f.bravo, file2.Parent())
	assert.Same(t, f.alpha, file2.Root())
	assert.Same(t, f.alpha, f.alpha.Root())

	sub, err := f.bravo.IsDirectOrIndirectSubdirectoryOf(f.alpha)
	require.NoError(t, err)
	assert.True(t, sub)
	sub, err = f.alpha.IsDirectOrIndirectSubdirectoryOf(f.bravo)
	require.NoError(t, err)
	assert.False(t, sub)
	_, err = f.alpha.IsDirectOrIndirectSubdirectoryOf(nil)
	assert.ErrorIs(t, err, nstree.ErrIllegalArgument)
}

func TestNode_Move(t *testing.T) {
	t.Parallel()

	t.Run("Success", func(t *testing.T) {
		t.Parallel()
		f := newAlphaFixture(t)

		require.NoError(t, f.file1.Move(f.bravo))
		assert.Same(t, f.bravo, f.file1.Parent())
		assert.False(t, f.alpha.HasChild(f.file1))
		assert.True(t, f.bravo.HasChild(f.file1))
		assert.Equal(t, 1, f.alpha.ChildCount())
		assert.Equal(t, "/Alpha/Bravo/file1.txt", f.file1.AbsolutePath())
		_, ok := f.file1.ModificationTime()
		assert.True(t, ok)
		assert.NoError(t, f.tree.Check())
	})

	t.Run("RootIntoDirectory", func(t *testing.T) {
		t.Parallel()
		f := newAlphaFixture(t)
		loose, err := f.tree.NewFile(nil, "loose", nstree.PDFFileType, 1, true)
		require.NoError(t, err)

		require.NoError(t, loose.Move(f.alpha))
		assert.Equal(t, []string{"Bravo", "file1", "loose"}, childNames(f.alpha))
		assert.Equal(t, "/Alpha/loose.pdf", loose.AbsolutePath())
	})

	t.Run("OutOfNonWritableParent", func(t *testing.T) {
		t.Parallel()
		f := newAlphaFixture(t)
		require.NoError(t, f.alpha.SetWritable(false))

		err := f.file1.Move(f.bravo)
		var nwErr *nstree.NotWritableError
		require.ErrorAs(t, err, &nwErr)
		assert.Equal(t, "Alpha", nwErr.Name())
		assert.Same(t, f.alpha, f.file1.Parent())
		assert.True(t, f.alpha.HasChild(f.file1))
		assert.False(t, f.bravo.HasChild(f.file1))
	})

	t.Run("IntoNonWritableTarget", func(t *testing.T) {
		t.Parallel()
		f := newAlphaFixture(t)
		require.NoError(t, f.bravo.SetWritable(false))

		err := f.file1.Move(f.bravo)
		var nwErr *nstree.NotWritableError
		require.ErrorAs(t, err, &nwErr)
		assert.Equal(t, "Bravo", nwErr.Name())
		assert.Same(t, f.alpha, f.file1.Parent())
	})

	t.Run("LinkOutOfNonWritableParent", func(t *testing.T) {
		t.Parallel()
		f := newAlphaFixture(t)
		link, err := f.tree.NewLink(f.alpha, "lnk", f.file1)
		require.NoError(t, err)
		require.NoError(t, f.alpha.SetWritable(false))

		assert.False(t, f.bravo.CanHaveAsChild(link))
		err = link.Move(f.bravo)
		assert.ErrorIs(t, err, nstree.ErrIllegalMove)
		var nwErr *nstree.NotWritableError
		assert.False(t, errors.As(err, &nwErr))
		assert.Same(t, f.alpha, link.Parent())
		assert.False(t, f.bravo.HasChild(link))
	})

	t.Run("LinkIntoNonWritableTarget", func(t *testing.T) {
		t.Parallel()
		f := newAlphaFixture(t)
		link, err := f.tree.NewLink(f.alpha, "lnk", f.file1)
		require.NoError(t, err)
		require.NoError(t, f.bravo.SetWritable(false))

		require.NoError(t, link.Move(f.bravo))
		assert.Same(t, f.bravo, link.Parent())
		assert.NoError(t, f.tree.Check())
	})

	t.Run("NonWritableNode", func(t *testing.T) {
		t.Parallel()
		f := newAlphaFixture(t)
		require.NoError(t, f.file1.SetWritable(false))

		err := f.file1.Move(f.bravo)
		var nwErr *nstree.NotWritableError
		require.ErrorAs(t, err, &nwErr)
		assert.Equal(t, "file1", nwErr.Name())
	})

	t.Run("IntoOwnDescendant", func(t *testing.T) {
		t.Parallel()
		f := newAlphaFixture(t)
		charlie, err := f.tree.NewDirectory(f.bravo, "Charlie", true)
		require.NoError(t, err)

		err = f.alpha.Move(charlie)
		assert.ErrorIs(t, err, nstree.ErrIllegalArgument)
		assert.ErrorIs(t, err, nstree.ErrCyclicParentage)
		assert.True(t, f.alpha.IsRoot())
		assert.Same(t, f.bravo, charlie.Parent())

		err = f.bravo.Move(f.bravo)
		assert.ErrorIs(t, err, nstree.ErrCyclicParentage)
		assert.Same(t, f.alpha, f.bravo.Parent())
		assert.NoError(t, f.tree.Check())
	})

	t.Run("IllegalTargets", func(t *testing.T) {
		t.Parallel()
		f := newAlphaFixture(t)
		other := newTestTree(t)
		foreign, err := other.NewDirectory(nil, "foreign", true)
		require.NoError(t, err)

		assert.ErrorIs(t, f.file1.Move(nil), nstree.ErrIllegalMove)
		assert.ErrorIs(t, f.file1.Move(f.alpha), nstree.ErrIllegalMove)
		assert.ErrorIs(t, f.file1.Move(foreign), nstree.ErrIllegalMove)
		assert.Same(t, f.alpha, f.file1.Parent())
	})

	t.Run("DuplicateNameInTarget", func(t *testing.T) {
		t.Parallel()
		f := newAlphaFixture(t)
		_, err := f.tree.NewFile(f.bravo, "FILE1", nstree.TextFileType, 0, true)
		require.NoError(t, err)

		err = f.file1.Move(f.bravo)
		assert.ErrorIs(t, err, nstree.ErrIllegalMove)
		assert.Same(t, f.alpha, f.file1.Parent())
		assert.Equal(t, 1, f.bravo.ChildCount())
		assert.Equal(t, 2, f.alpha.ChildCount())
	})

	t.Run("Terminated", func(t *testing.T) {
		t.Parallel()
		f := newAlphaFixture(t)
		require.NoError(t, f.file1.Terminate())
		assert.ErrorIs(t, f.file1.Move(f.bravo), nstree.ErrInvalidState)
	})
}

func TestNode_MakeRoot(t *testing.T) {
	t.Parallel()

	t.Run("Detaches", func(t *testing.T) {
		t.Parallel()
		f := newAlphaFixture(t)
		require.NoError(t, f.bravo.MakeRoot())
		assert.True(t, f.bravo.IsRoot())
		assert.Equal(t, []string{"file1"}, childNames(f.alpha))
		assert.Equal(t, "/Bravo", f.bravo.AbsolutePath())
		assert.Len(t, f.tree.Roots(), 2)
	})

	t.Run("IdempotentForRoots", func(t *testing.T) {
		t.Parallel()
		f := newAlphaFixture(t)
		require.NoError(t, f.alpha.MakeRoot())
		_, ok := f.alpha.ModificationTime()
		assert.True(t, ok, "alpha was modified by inserting children")
		assert.True(t, f.alpha.IsRoot())
	})

	t.Run("NonWritableParent", func(t *testing.T) {
		t.Parallel()
		f := newAlphaFixture(t)
		require.NoError(t, f.alpha.SetWritable(false))

		var nwErr *nstree.NotWritableError
		require.ErrorAs(t, f.bravo.MakeRoot(), &nwErr)
		assert.Equal(t, "Alpha", nwErr.Name())
		assert.False(t, f.bravo.IsRoot())
	})

	t.Run("NonWritableNode", func(t *testing.T) {
		t.Parallel()
		f := newAlphaFixture(t)
		require.NoError(t, f.bravo.SetWritable(false))

		var nwErr *nstree.NotWritableError
		require.ErrorAs(t, f.bravo.MakeRoot(), &nwErr)
		assert.Equal(t, "Bravo", nwErr.Name())
	})
}

func TestNode_Terminate(t *testing.T) {
	t.Parallel()

	t.Run("Idempotent", func(t *testing.T) {
		t.Parallel()
		f := newAlphaFixture(t)

		assert.True(t, f.file1.CanBeTerminated())
		require.NoError(t, f.file1.Terminate())
		require.NoError(t, f.file1.Terminate())
		assert.True(t, f.file1.IsTerminated())
		assert.True(t, f.file1.IsRoot())
		assert.False(t, f.file1.CanBeTerminated())
		assert.Equal(t, []string{"Bravo"}, childNames(f.alpha))

		assert.ErrorIs(t, f.file1.ChangeName("x"), nstree.ErrInvalidState)
		assert.ErrorIs(t, f.file1.Move(f.bravo), nstree.ErrInvalidState)
		assert.ErrorIs(t, f.file1.MakeRoot(), nstree.ErrInvalidState)
		assert.ErrorIs(t, f.file1.SetWritable(false), nstree.ErrInvalidState)
		assert.ErrorIs(t, f.file1.Resize(1), nstree.ErrInvalidState)
		assert.False(t, f.bravo.CanHaveAsChild(f.file1))
	})

	t.Run("NonEmptyDirectory", func(t *testing.T) {
		t.Parallel()
		f := newAlphaFixture(t)

		assert.False(t, f.alpha.CanBeTerminated())
		err := f.alpha.Terminate()
		assert.ErrorIs(t, err, nstree.ErrCannotTerminate)
		assert.ErrorIs(t, err, nstree.ErrInvalidState)
		assert.False(t, f.alpha.IsTerminated())
	})

	t.Run("NonWritableNode", func(t *testing.T) {
		t.Parallel()
		f := newAlphaFixture(t)
		require.NoError(t, f.file1.SetWritable(false))

		assert.ErrorIs(t, f.file1.Terminate(), nstree.ErrInvalidState)
		assert.Same(t, f.alpha, f.file1.Parent())
	})

	t.Run("NonWritableParent", func(t *testing.T) {
		t.Parallel()
		f := newAlphaFixture(t)
		require.NoError(t, f.alpha.SetWritable(false))

		assert.ErrorIs(t, f.file1.Terminate(), nstree.ErrInvalidState)
		assert.False(t, f.file1.IsTerminated())
	})

	t.Run("LinkNeedsOnlyWritableParent", func(t *testing.T) {
		t.Parallel()
		f := newAlphaFixture(t)
		link, err := f.tree.NewLink(f.bravo, "lnk", f.file1)
		require.NoError(t, err)

		require.NoError(t, link.Terminate())
		assert.True(t, link.IsTerminated())
		assert.False(t, f.file1.IsTerminated())
	})
}

func TestNode_Times(t *testing.T) {
	t.Parallel()

	t.Run("ModificationNeverBeforeCreation", func(t *testing.T) {
		t.Parallel()
		clock := &mocks.MockClock{}
		clock.On("Now").Return(testEpoch.Add(time.Hour)).Once()
		clock.On("Now").Return(testEpoch)
		tr := mustNewTree(t, nil, WithClock(clock))

		f, err := tr.NewFile(nil, "f", nstree.TextFileType, 0, true)
		require.NoError(t, err)
		_, ok := f.ModificationTime()
		assert.False(t, ok)

		require.NoError(t, f.ChangeName("g"))
		mtime, ok := f.ModificationTime()
		require.True(t, ok)
		assert.Equal(t, f.CreationTime(), mtime)
		clock.AssertExpectations(t)
	})

	t.Run("OverlappingUsePeriods", func(t *testing.T) {
		t.Parallel()
		tr := newTestTree(t)
		newRoot := func(name string) *File {
			f, err := tr.NewFile(nil, name, nstree.TextFileType, 0, true)
			require.NoError(t, err)
			return f
		}

		// each clock reading advances one second
		a := newRoot("a") // t0
		b := newRoot("b") // t1
		assert.False(t, a.HasOverlappingUsePeriod(b), "neither was modified")
		require.NoError(t, a.ChangeName("a2")) // t2
		assert.False(t, a.HasOverlappingUsePeriod(b), "b was never modified")
		require.NoError(t, b.ChangeName("b2")) // t3
		c := newRoot("c")                      // t4
		require.NoError(t, c.ChangeName("c2")) // t5

		assert.True(t, a.HasOverlappingUsePeriod(b))
		assert.True(t, b.HasOverlappingUsePeriod(a))
		assert.False(t, a.HasOverlappingUsePeriod(c))
		assert.False(t, c.HasOverlappingUsePeriod(b))
		assert.False(t, a.HasOverlappingUsePeriod(nil))
	})
}

func TestFile_Resize(t *testing.T) {
	t.Parallel()

	f := newAlphaFixture(t)
	require.NoError(t, f.file1.Resize(7))
	assert.Equal(t, int64(7), f.file1.Size())
	assert.Equal(t, int64(7), f.alpha.TotalDiskUsage())

	assert.ErrorIs(t, f.file1.Resize(-1), nstree.ErrIllegalArgument)
	assert.ErrorIs(t, f.file1.Resize(f.tree.cfg.MaxFileSize+1), nstree.ErrIllegalArgument)

	require.NoError(t, f.file1.SetWritable(false))
	assert.ErrorIs(t, f.file1.Resize(1), nstree.ErrNotWritable)
	assert.Equal(t, int64(7), f.file1.Size())
}

func TestLink(t *testing.T) {
	t.Parallel()

	t.Run("TargetAndValidity", func(t *testing.T) {
		t.Parallel()
		f := newAlphaFixture(t)
		link, err := f.tree.NewLink(f.alpha, "shortcut", f.file1)
		require.NoError(t, err)

		assert.Equal(t, nstree.LinkNodeType, link.Type())
		assert.Same(t, f.file1, link.Target())
		assert.True(t, link.IsValid())
		assert.Equal(t, int64(0), link.TotalDiskUsage())
		assert.Equal(t, int64(100), f.alpha.TotalDiskUsage())

		require.NoError(t, f.file1.Terminate())
		assert.False(t, link.IsValid())
		assert.False(t, link.IsTerminated())
	})

	t.Run("IllegalTargets", func(t *testing.T) {
		t.Parallel()
		f := newAlphaFixture(t)
		other := newTestTree(t)
		foreign, err := other.NewDirectory(nil, "foreign", true)
		require.NoError(t, err)
		var absent *Directory

		_, err = f.tree.NewLink(nil, "l", nil)
		assert.ErrorIs(t, err, nstree.ErrIllegalArgument)
		_, err = f.tree.NewLink(nil, "l", absent)
		assert.ErrorIs(t, err, nstree.ErrIllegalArgument)
		_, err = f.tree.NewLink(nil, "l", foreign)
		assert.ErrorIs(t, err, nstree.ErrIllegalArgument)

		require.NoError(t, f.file1.Terminate())
		_, err = f.tree.NewLink(nil, "l", f.file1)
		assert.ErrorIs(t, err, nstree.ErrTargetTerminated)
		assert.ErrorIs(t, err, nstree.ErrIllegalArgument)
	})
}
