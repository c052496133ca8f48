package frame

import (
	"github.com/tigerc/tigerc/pkg/temp"
	"github.com/tigerc/tigerc/pkg/tree"
)

// Fragment is a compilation unit produced by Translate (spec §3): either a
// compiled procedure body or a string constant.
type Fragment interface{ implFragment() }

// ProcFragment is one compiled function body, not yet canonicalized.
type ProcFragment struct {
	Body  tree.Stmt
	Frame *Frame
}

// StringFragment is one string literal, to be lowered by codegen_data.
type StringFragment struct {
	Label   temp.Label
	Literal string
}

func (ProcFragment) implFragment()   {}
func (StringFragment) implFragment() {}
