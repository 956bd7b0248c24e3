package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jbenden/deployer/internal/document"
	"github.com/jbenden/deployer/internal/handler"
	"github.com/jbenden/deployer/internal/handlers"
	"github.com/jbenden/deployer/internal/logging"
	"github.com/jbenden/deployer/internal/pipeline"
	"github.com/jbenden/deployer/internal/procrunner"
	"github.com/jbenden/deployer/internal/registry"
	"github.com/jbenden/deployer/internal/variables"
)

func main() {
	args := os.Args[1:]
	var global []string
	for len(args) > 0 && (args[0] == "--debug" || args[0] == "-d" || args[0] == "--silent") {
		global = append(global, args[0])
		args = args[1:]
	}
	if len(args) < 1 {
		usage()
		os.Exit(3)
	}
	rest := append(global, args[1:]...)

	switch args[0] {
	case "validate":
		validateCmd(rest)
	case "exec":
		execCmd(rest)
	default:
		usage()
		os.Exit(3)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  deployer validate [--debug|-d] [--silent] <path>...")
	fmt.Fprintln(os.Stderr, "  deployer exec [--debug|-d] [--silent] [--tag <s>]... [--matrix-tags <csv>] <path>...")
}

func newDriver() *pipeline.Driver {
	reg := registry.New()
	handlers.RegisterAll(reg)
	return pipeline.NewDriver(reg)
}

func loadPaths(paths []string) []document.Node {
	if len(paths) == 0 {
		usage()
		os.Exit(3)
	}
	var nodes []document.Node
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		fileNodes, err := document.Load(data)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		nodes = append(nodes, fileNodes...)
	}
	return nodes
}

func validateCmd(args []string) {
	var debug, silent bool
	var paths []string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--debug", "-d":
			debug = true
		case "--silent":
			silent = true
		default:
			paths = append(paths, args[i])
		}
	}
	if debug && silent {
		fmt.Fprintln(os.Stderr, "--debug and --silent are mutually exclusive")
		os.Exit(3)
	}

	nodes := loadPaths(paths)

	if err := newDriver().Validate(nodes); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	os.Exit(0)
}

func execCmd(args []string) {
	var debug, silent bool
	var tags []string
	var matrixTags string
	var paths []string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--debug", "-d":
			debug = true
		case "--silent":
			silent = true
		case "--tag":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--tag requires a value")
				os.Exit(3)
			}
			tags = append(tags, args[i])
		case "--matrix-tags":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--matrix-tags requires a value")
				os.Exit(3)
			}
			matrixTags = args[i]
		default:
			paths = append(paths, args[i])
		}
	}
	if debug && silent {
		fmt.Fprintln(os.Stderr, "--debug and --silent are mutually exclusive")
		os.Exit(3)
	}

	if len(tags) == 0 {
		if v := os.Getenv("DEPLOYER_TAG"); v != "" {
			tags = strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' })
		}
	}
	if matrixTags == "" {
		matrixTags = os.Getenv("DEPLOYER_MATRIX_TAGS")
	}

	zlog := logging.New(logging.Options{Debug: debug, Silent: silent})
	nodes := loadPaths(paths)
	driver := newDriver()

	runner := procrunner.New(zlog)
	defer runner.Close()

	selected := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			selected[t] = struct{}{}
		}
	}

	var matrixPatterns []string
	if matrixTags != "" {
		for _, p := range strings.Split(matrixTags, ",") {
			matrixPatterns = append(matrixPatterns, strings.TrimSpace(p))
		}
	}

	execCtx := &handler.Context{
		Variables:         variables.NewStore(),
		SelectedTags:      selected,
		MatrixTagPatterns: matrixPatterns,
		Runner:            runner,
		Logger:            logging.NewAdapter(zlog),
		Silent:            silent,
	}

	res, err := driver.Execute(nodes, execCtx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if res.Failed() {
		os.Exit(1)
	}
	os.Exit(0)
}
