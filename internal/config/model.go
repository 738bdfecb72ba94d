package config

// Vars is one variable dictionary handed to a stage's input modifier. A nil
// Vars means the stage input is copied without modification.
type Vars map[string]any

// Runner kinds understood by the application wiring.
const (
	RunnerMoose = "moose"
	RunnerGmsh  = "gmsh"
)

// Execution modes for a sweep.
const (
	ModeSequential = "sequential"
	ModeParallel   = "parallel"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultSubDir      = "sim-workdir"
	DefaultCommentChar = "#"
)

// Model is the unified, format-agnostic representation of a herd
// configuration.
type Model struct {
	Moose  *MooseConfig
	Gmsh   *GmshConfig
	Herd   HerdConfig
	Stages []StageConfig
	// Sweeps maps a stage name to the variable grid swept for that stage.
	Sweeps map[string]SweepGrid
	// Read is nil when every discoverable variable should be read back.
	Read *ReadSettings
}

// HerdConfig describes the worker directory pool and execution policy.
type HerdConfig struct {
	BaseDir     string
	SubDir      string
	NumDirs     int
	NumParaSims int
	KeepAll     bool
	Mode        string
}

// StageConfig is one link of the simulation chain, e.g. mesh generation
// followed by a solve.
type StageConfig struct {
	Name        string
	Runner      string
	Input       string
	CommentChar string
	EndChar     string
}

// GmshConfig points at the mesher binary.
type GmshConfig struct {
	AppPath string
}

// SweepGrid maps a variable name to the values it takes in the sweep.
type SweepGrid map[string][]any

// ElemVarSetting selects one element variable in one block.
type ElemVarSetting struct {
	Name  string
	Block int
}

// ReadSettings restricts what is read back from the sweep outputs.
type ReadSettings struct {
	NumParaRead int
	SkipTime    bool
	SkipCoords  bool
	SkipConnect bool
	NodeVars    []string
	ElemVars    []ElemVarSetting
	GlobVars    []string
	SideSets    []string
	TimeInds    []int
}

// ApplyDefaults fills zero-valued fields with their defaults. KeepAll is
// left to the loaders because its default (true) cannot be told apart from
// an explicit false here.
func (m *Model) ApplyDefaults() {
	if m.Herd.BaseDir == "" {
		m.Herd.BaseDir = "."
	}
	if m.Herd.SubDir == "" {
		m.Herd.SubDir = DefaultSubDir
	}
	if m.Herd.NumDirs <= 0 {
		m.Herd.NumDirs = 1
	}
	if m.Herd.NumParaSims <= 0 {
		m.Herd.NumParaSims = m.Herd.NumDirs
	}
	if m.Herd.Mode == "" {
		if m.Herd.NumParaSims > 1 {
			m.Herd.Mode = ModeParallel
		} else {
			m.Herd.Mode = ModeSequential
		}
	}
	for i := range m.Stages {
		if m.Stages[i].CommentChar == "" {
			m.Stages[i].CommentChar = DefaultCommentChar
		}
	}
	if m.Moose != nil {
		if m.Moose.Tasks <= 0 {
			m.Moose.Tasks = 1
		}
		if m.Moose.Threads <= 0 {
			m.Moose.Threads = 1
		}
	}
	if m.Read != nil && m.Read.NumParaRead <= 0 {
		m.Read.NumParaRead = m.Herd.NumParaSims
	}
}
