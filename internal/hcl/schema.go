package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes all possible top-level blocks from any file.
type fileRoot struct {
	Moose  *mooseBlock    `hcl:"moose,block"`
	Gmsh   *gmshBlock     `hcl:"gmsh,block"`
	Herd   *herdBlock     `hcl:"herd,block"`
	Stages []*stageBlock  `hcl:"stage,block"`
	Sweeps []*sweepBlock  `hcl:"sweep,block"`
	Read   *readBlock     `hcl:"read,block"`
	Remain hcl.Body       `hcl:",remain"`
}

type mooseBlock struct {
	MainPath       string `hcl:"main_path"`
	AppPath        string `hcl:"app_path"`
	AppName        string `hcl:"app_name"`
	Tasks          int    `hcl:"tasks,optional"`
	Threads        int    `hcl:"threads,optional"`
	RedirectStdout bool   `hcl:"redirect_stdout,optional"`
}

type gmshBlock struct {
	AppPath string `hcl:"app_path"`
}

type herdBlock struct {
	BaseDir     string `hcl:"base_dir,optional"`
	SubDir      string `hcl:"sub_dir,optional"`
	NumDirs     int    `hcl:"num_dirs,optional"`
	NumParaSims int    `hcl:"num_para_sims,optional"`
	// KeepAll is a pointer so an omitted attribute keeps the default.
	KeepAll *bool  `hcl:"keep_all,optional"`
	Mode    string `hcl:"mode,optional"`
}

type stageBlock struct {
	Name        string `hcl:"name,label"`
	Runner      string `hcl:"runner"`
	Input       string `hcl:"input"`
	CommentChar string `hcl:"comment_char,optional"`
	EndChar     string `hcl:"end_char,optional"`
}

type sweepBlock struct {
	Stage  string         `hcl:"stage,label"`
	Values hcl.Expression `hcl:"values"`
}

type readBlock struct {
	NumParaRead int            `hcl:"num_para_read,optional"`
	SkipTime    bool           `hcl:"skip_time,optional"`
	SkipCoords  bool           `hcl:"skip_coords,optional"`
	SkipConnect bool           `hcl:"skip_connect,optional"`
	NodeVars    hcl.Expression `hcl:"node_vars,optional"`
	ElemVars    hcl.Expression `hcl:"elem_vars,optional"`
	GlobVars    hcl.Expression `hcl:"glob_vars,optional"`
	SideSets    hcl.Expression `hcl:"side_sets,optional"`
	TimeInds    hcl.Expression `hcl:"time_inds,optional"`
}
