package handlers

import (
	"context"
	"errors"
	"os"
	"runtime"

	"github.com/jbenden/deployer/internal/document"
	"github.com/jbenden/deployer/internal/handler"
	"github.com/jbenden/deployer/internal/procrunner"
	"github.com/jbenden/deployer/internal/rendering"
	"github.com/jbenden/deployer/internal/result"
)

type standardExecutable struct {
	executable string
	flags      []string
	extension  string
}

var standardExecutables = map[string]standardExecutable{
	"sh":   {"/bin/sh", []string{"-euf"}, ".sh"},
	"bash": {"/bin/bash", []string{"-euf", "-o", "pipefail"}, ".sh"},
	"cmd":  {`\Windows\System32\cmd.exe`, []string{"/q", "/c"}, ".bat"},
	"powershell": {
		`C:\Windows\System32\WindowsPowerShell\v1.0\powershell.exe`,
		[]string{"-Version", "4.0", "-NoLogo", "-NonInteractive", "-WindowStyle", "Hidden", "-File"},
		".ps1",
	},
}

// Shell renders a script body, writes it to a temporary file with the
// chosen interpreter's extension, and invokes that interpreter with its
// standard flags.
type Shell struct {
	Executable string
	Flags      []string
	Extension  string
	Script     string
}

// Execute implements handler.Handler.
func (s *Shell) Execute(ctx *handler.Context) result.Result {
	rendered, err := rendering.Render(s.Script, ctx.Variables.Bindings())
	if err != nil {
		ctx.Logger.Errorf("shell: %v", err)
		return result.Failure()
	}

	f, err := os.CreateTemp("", "deployer-shell-*"+s.Extension)
	if err != nil {
		ctx.Logger.Errorf("shell: %v", err)
		return result.Failure()
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString(rendered); err != nil {
		f.Close()
		ctx.Logger.Errorf("shell: %v", err)
		return result.Failure()
	}
	if err := f.Close(); err != nil {
		ctx.Logger.Errorf("shell: %v", err)
		return result.Failure()
	}

	ctx.Logger.Debugf("running: %q", f.Name())
	argv := append(append([]string{s.Executable}, s.Flags...), f.Name())
	res, err := ctx.Runner.Run(context.Background(), argv, procrunner.Options{Silent: ctx.Silent})
	if err != nil {
		var terminated *procrunner.ProcessTerminatedError
		if errors.As(err, &terminated) {
			ctx.Logger.Errorf("process failed and returned %d", terminated.ExitCode)
		} else {
			ctx.Logger.Errorf("shell: %v", err)
		}
		return result.Failure()
	}
	return res
}

// ShellFactory returns the registrable handler.Factory for shell.
func ShellFactory() handler.Factory {
	return handler.Factory{
		Tag: "shell",
		Schema: `{
			"type": "object",
			"properties": {
				"executable": {"type": "string", "minLength": 1},
				"executable_flags": {"type": "array", "items": {"type": "string", "minLength": 1}},
				"script": {"type": "string", "minLength": 1}
			},
			"required": ["script"],
			"additionalProperties": false
		}`,
		Build: func(payload document.Node, b handler.Builder) ([]handler.Handler, error) {
			defaultExec := "sh"
			if runtime.GOOS == "windows" {
				defaultExec = "cmd"
			}

			execName := defaultExec
			if v, ok := payload.Get("executable"); ok {
				execName = v.String()
			}

			var flags []string
			if v, ok := payload.Get("executable_flags"); ok && v.Kind == document.Sequence {
				for _, item := range v.Items {
					flags = append(flags, item.String())
				}
			}

			scriptNode, _ := payload.Get("script")
			sh := &Shell{Script: scriptNode.String()}
			if std, ok := standardExecutables[execName]; ok {
				sh.Executable = std.executable
				sh.Extension = std.extension
				sh.Flags = std.flags
				if flags != nil {
					sh.Flags = flags
				}
			} else {
				sh.Executable = execName
				sh.Flags = flags
			}
			return []handler.Handler{sh}, nil
		},
	}
}
