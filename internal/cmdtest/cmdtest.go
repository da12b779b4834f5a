// Package cmdtest provides a testscript-based test harness for the cix
// command-line tools.
//
// It uses txtar format test files to specify input files and expected outputs,
// making it easy to write comprehensive CLI tests.
//
// Example test file (testdata/cix/check.txtar):
//
//	# Test that cix check catches a wrong argument count
//	! exec cix check
//	stdout 'wrong-arg-count'
//
//	-- main.ci --
//	INT FUNCTION Add(INT a, INT b)
//	    RETURN a + b;
//	END
//
//	FUNCTION Main()
//	    Add(1);
//	END
package cmdtest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/albertocavalcante/cix/internal/cixconfig"
	"github.com/albertocavalcante/cix/internal/cmd/cix"
	"github.com/albertocavalcante/cix/internal/cmd/cixls"
)

// Run executes the testscript tests in the given directory.
func Run(t *testing.T, dir string) {
	testscript.Run(t, testscript.Params{
		Dir: dir,
		Setup: func(env *testscript.Env) error {
			// Config discovery stops at a git root; keep it inside $WORK.
			env.Setenv(cixconfig.EnvConfig, "")
			env.Setenv("NO_COLOR", "1")
			return os.Mkdir(filepath.Join(env.WorkDir, ".git"), 0o755)
		},
	})
}

// Main is the TestMain function that should be called from test files.
// It sets up the CLI tools as testscript commands.
func Main(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"cix":   wrapRun(cix.Run),
		"cixls": wrapRun(cixls.Run),
	}))
}

// wrapRun wraps a Run(args []string) int function to func() int for testscript.
// The args are taken from os.Args[1:].
func wrapRun(run func(args []string) int) func() int {
	return func() int {
		return run(os.Args[1:])
	}
}
