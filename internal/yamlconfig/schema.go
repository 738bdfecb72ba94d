package yamlconfig

// fileRoot is the shape of one YAML configuration document.
type fileRoot struct {
	Moose  *mooseSection             `yaml:"moose"`
	Gmsh   *gmshSection              `yaml:"gmsh"`
	Herd   *herdSection              `yaml:"herd"`
	Stages []stageSection            `yaml:"stages"`
	Sweeps map[string]map[string]any `yaml:"sweeps"`
	Read   *readSection              `yaml:"read"`
}

type mooseSection struct {
	MainPath       string `yaml:"main_path"`
	AppPath        string `yaml:"app_path"`
	AppName        string `yaml:"app_name"`
	Tasks          int    `yaml:"tasks"`
	Threads        int    `yaml:"threads"`
	RedirectStdout bool   `yaml:"redirect_stdout"`
}

type gmshSection struct {
	AppPath string `yaml:"app_path"`
}

type herdSection struct {
	BaseDir     string `yaml:"base_dir"`
	SubDir      string `yaml:"sub_dir"`
	NumDirs     int    `yaml:"num_dirs"`
	NumParaSims int    `yaml:"num_para_sims"`
	KeepAll     *bool  `yaml:"keep_all"`
	Mode        string `yaml:"mode"`
}

type stageSection struct {
	Name        string `yaml:"name"`
	Runner      string `yaml:"runner"`
	Input       string `yaml:"input"`
	CommentChar string `yaml:"comment_char"`
	EndChar     string `yaml:"end_char"`
}

type elemVarSection struct {
	Name  string `yaml:"name"`
	Block int    `yaml:"block"`
}

// readSection keeps list fields as slices: an omitted key decodes to nil and
// an empty sequence to a non-nil empty slice. Time indices decode as floats
// so fractional values are rejected instead of truncated.
type readSection struct {
	NumParaRead int              `yaml:"num_para_read"`
	SkipTime    bool             `yaml:"skip_time"`
	SkipCoords  bool             `yaml:"skip_coords"`
	SkipConnect bool             `yaml:"skip_connect"`
	NodeVars    []string         `yaml:"node_vars"`
	ElemVars    []elemVarSection `yaml:"elem_vars"`
	GlobVars    []string         `yaml:"glob_vars"`
	SideSets    []string         `yaml:"side_sets"`
	TimeInds    []float64        `yaml:"time_inds"`
}
