package sweepreader_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/Digital-Validation-Laboratory/mooseherder/internal/config"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/dirmanager"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/exodus"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/exodus/exodustest"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/herd"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/modifier"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/simdata"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/sweepreader"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gonum.org/v1/gonum/mat"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const numTime = 4

var denseComparer = cmp.Comparer(func(a, b *mat.Dense) bool {
	if a == nil || b == nil {
		return a == b
	}
	return mat.Equal(a, b)
})

func newManager(t *testing.T, numDirs int) *dirmanager.Manager {
	t.Helper()
	dm := dirmanager.New(numDirs)
	require.NoError(t, dm.SetBaseDir(t.TempDir(), false))
	_, err := dm.CreateDirs()
	require.NoError(t, err)
	return dm
}

func newReader(dm *dirmanager.Manager, numParaRead int) *sweepreader.Reader {
	return sweepreader.New(dm, numParaRead)
}

// newHerd builds a one stage herd whose solver writes plate fixtures
// scaled by the load variable.
func newHerd(t *testing.T, dm *dirmanager.Manager, keepAll bool) *herd.Herd {
	t.Helper()
	template := filepath.Join(t.TempDir(), "plate.i")
	require.NoError(t, os.WriteFile(template, []byte("#_*\nload = 1\n#**\n[Mesh]\n[]\n"), 0o644))
	mod, err := modifier.New(template, "#", "")
	require.NoError(t, err)

	solver := &testutil.FixtureRunner{Label: "moose", LoadVar: "load", NumTime: numTime}
	h, err := herd.New([]herd.Runner{solver}, []herd.Modifier{mod}, dm)
	require.NoError(t, err)
	h.SetKeepFlag(keepAll)
	h.SetNumParaSims(dm.NumDirs())
	return h
}

func runSweep(t *testing.T, h *herd.Herd, loads ...float64) {
	t.Helper()
	sweep := make([][]config.Vars, len(loads))
	for i, l := range loads {
		sweep[i] = []config.Vars{{"load": l}}
	}
	_, err := h.RunPara(context.Background(), sweep)
	require.NoError(t, err)
}

func writeKey(t *testing.T, dm *dirmanager.Manager, iter int, names ...string) dirmanager.OutputPaths {
	t.Helper()
	paths := make(dirmanager.OutputPaths, len(names))
	for i, n := range names {
		paths[i] = []dirmanager.NullPath{dirmanager.PathOf(filepath.Join(dm.RunDir(0), n))}
	}
	dm.SetOutputPaths(paths)
	require.NoError(t, dm.WriteOutputKey(iter))
	require.NoError(t, dm.WriteSweepVars([][]config.Vars{{{"iter": float64(iter)}}}, iter))
	return paths
}

func TestReadAllOutputKeysNone(t *testing.T) {
	dm := newManager(t, 2)
	_, err := newReader(dm, 1).ReadAllOutputKeys()

	require.ErrorIs(t, err, sweepreader.ErrNoOutputKeys)
	require.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), dm.RunDir(0))

	_, err = newReader(dm, 1).ReadAllSweepVars()
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestReadAllOutputKeysInSweepOrder(t *testing.T) {
	dm := newManager(t, 1)
	k10 := writeKey(t, dm, 10, "c.e")
	k1 := writeKey(t, dm, 1, "a.e")
	k2 := writeKey(t, dm, 2, "b1.e", "b2.e")

	r := newReader(dm, 1)
	all, err := r.ReadAllOutputKeys()
	require.NoError(t, err)

	var want dirmanager.OutputPaths
	want = append(append(append(want, k1...), k2...), k10...)
	assert.Equal(t, want, all)
	assert.Equal(t, want, r.OutputFiles())

	one, err := r.ReadOutputKey(2)
	require.NoError(t, err)
	assert.Equal(t, k2, one)

	vars, err := r.ReadAllSweepVars()
	require.NoError(t, err)
	assert.Equal(t, [][]config.Vars{{{"iter": 1.0}}, {{"iter": 2.0}}, {{"iter": 10.0}}}, vars)
}

func TestReadResultsOnceKeepsStageShape(t *testing.T) {
	dm := newManager(t, 1)
	out := filepath.Join(dm.RunDir(0), "moose-1_out.e")
	require.NoError(t, exodustest.WriteFile(out, exodustest.Plate(numTime, 1)))

	buf := &testutil.SafeBuffer{}
	ctx := testutil.LogContext(buf)
	chain := []dirmanager.NullPath{{}, dirmanager.PathOf(out), dirmanager.PathOf(filepath.Join(dm.RunDir(0), "gone_out.e"))}

	results, err := newReader(dm, 1).ReadResultsOnce(ctx, chain, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Nil(t, results[0], "stage without output")
	require.NotNil(t, results[1])
	assert.Len(t, results[1].Time, numTime)
	assert.Nil(t, results[2], "missing artifact")
	assert.Contains(t, buf.String(), "Output artifact missing.")
}

func TestReadResultsOnceCorruptArtifact(t *testing.T) {
	dm := newManager(t, 1)
	out := filepath.Join(dm.RunDir(0), "bad_out.e")
	require.NoError(t, os.WriteFile(out, []byte("not a fixture"), 0o644))

	_, err := newReader(dm, 1).ReadResultsOnce(context.Background(), []dirmanager.NullPath{dirmanager.PathOf(out)}, nil)
	assert.Error(t, err)
}

func TestReadResultsOpenerError(t *testing.T) {
	dm := newManager(t, 1)
	out := filepath.Join(dm.RunDir(0), "moose-1_out.e")
	require.NoError(t, exodustest.WriteFile(out, exodustest.Plate(numTime, 1)))

	locked := errors.New("file locked by solver")
	r := newReader(dm, 1)
	var opened []string
	r.SetOpener(func(path string) (*exodus.Reader, error) {
		opened = append(opened, path)
		return nil, locked
	})

	_, err := r.ReadResultsOnce(context.Background(), []dirmanager.NullPath{dirmanager.PathOf(out)}, nil)
	require.ErrorIs(t, err, locked)
	assert.Equal(t, []string{out}, opened)
}

func TestReadResultsSelector(t *testing.T) {
	dm := newManager(t, 1)
	runSweep(t, newHerd(t, dm, true), 1)

	cfg := &simdata.ReadConfig{Time: true, GlobVars: []string{"react_y"}, TimeInds: []int{numTime - 1}}
	results, err := newReader(dm, 1).ReadResultsSequential(context.Background(), 1, sweepreader.Fixed(cfg))
	require.NoError(t, err)
	require.Len(t, results, 1)

	data := results[0][0]
	assert.Equal(t, []float64{numTime - 1}, data.Time)
	assert.Nil(t, data.Coords)
	assert.Nil(t, data.NodeVars)
	assert.Len(t, data.GlobVars["react_y"], 1)
}

func TestFromSettings(t *testing.T) {
	reader := exodus.NewReader("plate.e", exodustest.Plate(2, 1).Dataset())

	all := sweepreader.FromSettings(&config.ReadSettings{})(reader)
	assert.Equal(t, reader.MaxReadConfig(), all)

	some := sweepreader.FromSettings(&config.ReadSettings{
		SkipCoords: true,
		NodeVars:   []string{},
		ElemVars:   []config.ElemVarSetting{{Name: "stress_yy", Block: 2}},
		TimeInds:   []int{0},
	})(reader)
	assert.False(t, some.Coords)
	assert.True(t, some.Time)
	assert.Empty(t, some.NodeVars)
	assert.NotNil(t, some.NodeVars)
	assert.Equal(t, []simdata.ElemVarKey{{Name: "stress_yy", Block: 2}}, some.ElemVars)
	assert.Equal(t, []string{"react_y", "max_disp_y"}, some.GlobVars)

	assert.Nil(t, sweepreader.FromSettings(nil))
}

func TestEndToEndOverwritingSweep(t *testing.T) {
	dm := newManager(t, 4)
	loads := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	runSweep(t, newHerd(t, dm, false), loads...)

	results, err := newReader(dm, 4).ReadResultsPara(context.Background(), 0, nil)
	require.NoError(t, err)
	require.Len(t, results, len(loads))
	for i, chain := range results {
		require.Len(t, chain, 1)
		require.NotNil(t, chain[0], "sim %d", i)
		assert.Len(t, chain[0].Time, numTime, "sim %d", i)
	}
}

func TestEndToEndResultsInSweepOrder(t *testing.T) {
	dm := newManager(t, 4)
	loads := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	runSweep(t, newHerd(t, dm, true), loads...)

	r := newReader(dm, 4)
	para, err := r.ReadResultsPara(context.Background(), 0, nil)
	require.NoError(t, err)
	require.Len(t, para, len(loads))

	for i, chain := range para {
		maxDisp := chain[0].GlobVars["max_disp_y"]
		require.Len(t, maxDisp, numTime)
		assert.InDelta(t, loads[i]*float64(numTime-1), maxDisp[numTime-1], 1e-9, "sim %d", i)
	}

	seq, err := r.ReadResultsSequential(context.Background(), 0, nil)
	require.NoError(t, err)
	if diff := cmp.Diff(seq, para, denseComparer); diff != "" {
		t.Errorf("sequential and parallel reads differ (-seq +para):\n%s", diff)
	}
}

func TestReadResultsSingleSweepIter(t *testing.T) {
	dm := newManager(t, 2)
	h := newHerd(t, dm, true)
	runSweep(t, h, 1, 2)
	runSweep(t, h, 3, 4, 5)

	r := newReader(dm, 2)
	results, err := r.ReadResultsPara(context.Background(), 2, nil)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Len(t, r.OutputFiles(), 3)

	all, err := r.ReadResultsPara(context.Background(), 0, nil)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	_, err = r.ReadResultsSequential(context.Background(), 7, nil)
	require.ErrorIs(t, err, fs.ErrNotExist)
}
